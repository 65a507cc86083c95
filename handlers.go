package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tcm-diagnosis/config"
	"tcm-diagnosis/diagnosis"
	"tcm-diagnosis/models"
	"tcm-diagnosis/services"
	"tcm-diagnosis/storage"
)

const userIDKey = "user_id"

type diagnoser interface {
	Diagnose(ctx context.Context, userID uint, prescription string) (*services.Diagnosis, error)
	DiagnoseHerbs(ctx context.Context, userID uint, herbs []string) (*services.Diagnosis, error)
}

type historian interface {
	History(ctx context.Context, userID uint) ([]services.HistoryEntry, error)
	Statistics(ctx context.Context, userID uint) (map[string]int, error)
}

type adminStore interface {
	CreateHerbs(ctx context.Context, names []string) ([]models.Herb, error)
	ListHerbs(ctx context.Context) ([]models.Herb, error)
	CreateDiseases(ctx context.Context, names []string) ([]models.Disease, error)
	ListDiseases(ctx context.Context) ([]models.Disease, error)
	Associate(ctx context.Context, herb string, diseases []string) ([]models.HerbDiseaseAssociation, error)
	ListAssociations(ctx context.Context) ([]models.HerbDiseaseAssociation, error)
	DeleteAssociation(ctx context.Context, id uint) error
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// userIDMiddleware übernimmt die Nutzer-ID aus X-User-ID. Die Anmeldung selbst
// erledigt ein vorgeschalteter Dienst.
func userIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.GetHeader("X-User-ID"), 10, 32)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: missing or invalid X-User-ID"})
			return
		}
		c.Set(userIDKey, uint(id))
		c.Next()
	}
}

func setupDiagnosisRoutes(router *gin.Engine, diag diagnoser, history historian, log *zap.Logger) {
	router.POST("/diagnose", userIDMiddleware(), func(c *gin.Context) {
		var req struct {
			Prescription string   `form:"prescription" json:"prescription"`
			Herbs        []string `form:"herbs" json:"herbs"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		userID := c.GetUint(userIDKey)

		var (
			d   *services.Diagnosis
			err error
		)
		switch {
		case req.Herbs != nil:
			d, err = diag.DiagnoseHerbs(c.Request.Context(), userID, req.Herbs)
		case strings.TrimSpace(req.Prescription) == "":
			c.JSON(http.StatusBadRequest, gin.H{"error": "prescription is required"})
			return
		default:
			d, err = diag.Diagnose(c.Request.Context(), userID, req.Prescription)
		}
		if err != nil {
			writeDiagnosisError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, d.Predictions)
	})

	rg := router.Group("/diagnosis", userIDMiddleware())
	rg.GET("/history", func(c *gin.Context) {
		entries, err := history.History(c.Request.Context(), c.GetUint(userIDKey))
		if err != nil {
			log.Error("Loading diagnosis history failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, entries)
	})
	rg.GET("/statistics", func(c *gin.Context) {
		stats, err := history.Statistics(c.Request.Context(), c.GetUint(userIDKey))
		if err != nil {
			log.Error("Computing diagnosis statistics failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, stats)
	})
}

func writeDiagnosisError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidPrescription):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, diagnosis.ErrUnknownEntity):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, diagnosis.ErrTrainingTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model training timed out, please retry"})
	default:
		log.Error("Diagnosis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "diagnosis failed"})
	}
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

type bulkNamesRequest struct {
	Names string `json:"names" binding:"required"`
}

// setupAdminRoutes stellt die Pflege von Herbs, Diseases und Assoziationen
// bereit. Jede Änderung verwirft die gecachten Modelle.
func setupAdminRoutes(router *gin.Engine, store adminStore, cache *services.ModelCache, log *zap.Logger) {
	herbs := router.Group("/herbs")
	herbs.GET("", func(c *gin.Context) {
		list, err := store.ListHerbs(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})
	herbs.POST("", func(c *gin.Context) {
		var req nameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		created, err := store.CreateHerbs(c.Request.Context(), []string{req.Name})
		if err != nil {
			log.Error("Creating herb failed", zap.String("name", req.Name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create herb"})
			return
		}
		if len(created) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be blank"})
			return
		}
		cache.Flush()
		c.JSON(http.StatusCreated, created[0])
	})
	herbs.POST("/bulk", func(c *gin.Context) {
		var req bulkNamesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		created, err := store.CreateHerbs(c.Request.Context(), storage.SplitLines(req.Names))
		if err != nil {
			log.Error("Bulk creating herbs failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create herbs"})
			return
		}
		cache.Flush()
		c.JSON(http.StatusCreated, created)
	})

	diseases := router.Group("/diseases")
	diseases.GET("", func(c *gin.Context) {
		list, err := store.ListDiseases(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})
	diseases.POST("", func(c *gin.Context) {
		var req nameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		created, err := store.CreateDiseases(c.Request.Context(), []string{req.Name})
		if err != nil {
			log.Error("Creating disease failed", zap.String("name", req.Name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create disease"})
			return
		}
		if len(created) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be blank"})
			return
		}
		cache.Flush()
		c.JSON(http.StatusCreated, created[0])
	})
	diseases.POST("/bulk", func(c *gin.Context) {
		var req bulkNamesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		created, err := store.CreateDiseases(c.Request.Context(), storage.SplitLines(req.Names))
		if err != nil {
			log.Error("Bulk creating diseases failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create diseases"})
			return
		}
		cache.Flush()
		c.JSON(http.StatusCreated, created)
	})

	assocs := router.Group("/associations")
	assocs.GET("", func(c *gin.Context) {
		list, err := store.ListAssociations(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})
	associate := func(c *gin.Context, herb string, diseases []string, single bool) {
		created, err := store.Associate(c.Request.Context(), herb, diseases)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			case errors.Is(err, storage.ErrInvalidInput):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Error("Creating association failed", zap.String("herb", herb), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create association"})
			return
		}
		cache.Flush()
		if single {
			c.JSON(http.StatusCreated, created[0])
			return
		}
		c.JSON(http.StatusCreated, created)
	}
	assocs.POST("", func(c *gin.Context) {
		var req struct {
			Herb    string `json:"herb" binding:"required"`
			Disease string `json:"disease" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		associate(c, req.Herb, []string{req.Disease}, true)
	})
	assocs.POST("/bulk", func(c *gin.Context) {
		var req struct {
			Herb     string `json:"herb" binding:"required"`
			Diseases string `json:"diseases" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		associate(c, req.Herb, storage.SplitLines(req.Diseases), false)
	})
	assocs.DELETE("/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		if err := store.DeleteAssociation(c.Request.Context(), uint(id)); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "association not found"})
				return
			}
			log.Error("Deleting association failed", zap.Uint64("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete association"})
			return
		}
		cache.Flush()
		c.Status(http.StatusNoContent)
	})
}
