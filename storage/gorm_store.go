package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"tcm-diagnosis/config"
	"tcm-diagnosis/diagnosis"
	"tcm-diagnosis/models"
)

// ErrNotFound wird geliefert, wenn ein referenzierter Herb, eine Disease oder
// eine Assoziation nicht existiert.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrInvalidInput wird für leere Namen in Admin-Operationen geliefert.
var ErrInvalidInput = errors.New("invalid input")

// Open verbindet sich je nach DB_DRIVER mit PostgreSQL oder SQLite.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// GormStore ist der Entity-Store und das Diagnose-Log auf Basis von GORM.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// AutoMigrate legt alle Tabellen an bzw. aktualisiert sie.
func (s *GormStore) AutoMigrate() error {
	return s.DB.AutoMigrate(&models.Herb{}, &models.Disease{}, &models.HerbDiseaseAssociation{}, &models.DiagnosisLog{})
}

// LoadEntities liest Herbs, Diseases und Assoziationen innerhalb einer
// Transaktion, damit eine Inferenz keine halb geschriebenen Admin-Änderungen sieht.
func (s *GormStore) LoadEntities(ctx context.Context) (diagnosis.Entities, error) {
	var ents diagnosis.Entities
	var opts []*sql.TxOptions
	if s.DB.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id").Find(&ents.Herbs).Error; err != nil {
			return fmt.Errorf("herbs: %w", err)
		}
		if err := tx.Order("id").Find(&ents.Diseases).Error; err != nil {
			return fmt.Errorf("diseases: %w", err)
		}
		if err := tx.Order("id").Find(&ents.Associations).Error; err != nil {
			return fmt.Errorf("associations: %w", err)
		}
		return nil
	}, opts...)
	return ents, err
}

// AppendDiagnosisLog hängt einen Eintrag an das Diagnose-Log an.
func (s *GormStore) AppendDiagnosisLog(ctx context.Context, entry *models.DiagnosisLog) error {
	return s.DB.WithContext(ctx).Create(entry).Error
}

// DiagnosisLogs liefert die Einträge eines Nutzers, neueste zuerst.
func (s *GormStore) DiagnosisLogs(ctx context.Context, userID uint) ([]models.DiagnosisLog, error) {
	var logs []models.DiagnosisLog
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp desc").Order("id desc").
		Find(&logs).Error
	return logs, err
}

// AllDiagnosisLogs liefert alle Einträge in Schreibreihenfolge.
func (s *GormStore) AllDiagnosisLogs(ctx context.Context) ([]models.DiagnosisLog, error) {
	var logs []models.DiagnosisLog
	err := s.DB.WithContext(ctx).Order("id").Find(&logs).Error
	return logs, err
}

// CreateHerbs legt die Herbs an, die noch nicht existieren, und liefert alle
// angefragten Herbs zurück.
func (s *GormStore) CreateHerbs(ctx context.Context, names []string) ([]models.Herb, error) {
	rows := make([]models.Herb, 0, len(names))
	for _, n := range cleanNames(names) {
		rows = append(rows, models.Herb{Name: n})
	}
	return ensureNamed(s.DB.WithContext(ctx), rows, cleanNames(names))
}

func (s *GormStore) ListHerbs(ctx context.Context) ([]models.Herb, error) {
	var herbs []models.Herb
	err := s.DB.WithContext(ctx).Order("name").Find(&herbs).Error
	return herbs, err
}

// CreateDiseases arbeitet wie CreateHerbs.
func (s *GormStore) CreateDiseases(ctx context.Context, names []string) ([]models.Disease, error) {
	rows := make([]models.Disease, 0, len(names))
	for _, n := range cleanNames(names) {
		rows = append(rows, models.Disease{Name: n})
	}
	return ensureNamed(s.DB.WithContext(ctx), rows, cleanNames(names))
}

func (s *GormStore) ListDiseases(ctx context.Context) ([]models.Disease, error) {
	var diseases []models.Disease
	err := s.DB.WithContext(ctx).Order("name").Find(&diseases).Error
	return diseases, err
}

func ensureNamed[T any](db *gorm.DB, rows []T, names []string) ([]T, error) {
	if len(rows) == 0 {
		return []T{}, nil
	}
	var out []T
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&rows).Error
		if err != nil {
			return err
		}
		return tx.Where("name IN ?", names).Order("id").Find(&out).Error
	})
	return out, err
}

// Associate verknüpft einen Herb mit einer oder mehreren Diseases, jeweils
// per Name. Fehlt einer der Namen, wird nichts geschrieben.
func (s *GormStore) Associate(ctx context.Context, herb string, diseases []string) ([]models.HerbDiseaseAssociation, error) {
	herb = strings.TrimSpace(herb)
	diseases = cleanNames(diseases)
	if herb == "" || len(diseases) == 0 {
		return nil, fmt.Errorf("%w: herb and at least one disease are required", ErrInvalidInput)
	}

	var out []models.HerbDiseaseAssociation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var h models.Herb
		if err := tx.Where("name = ?", herb).First(&h).Error; err != nil {
			return fmt.Errorf("herb %q: %w", herb, err)
		}
		for _, name := range diseases {
			var d models.Disease
			if err := tx.Where("name = ?", name).First(&d).Error; err != nil {
				return fmt.Errorf("disease %q: %w", name, err)
			}
			out = append(out, models.HerbDiseaseAssociation{HerbID: h.ID, DiseaseID: d.ID})
		}
		return tx.Create(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ListAssociations(ctx context.Context) ([]models.HerbDiseaseAssociation, error) {
	var assocs []models.HerbDiseaseAssociation
	err := s.DB.WithContext(ctx).Order("id").Find(&assocs).Error
	return assocs, err
}

// DeleteAssociation entfernt eine einzelne Kante.
func (s *GormStore) DeleteAssociation(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.HerbDiseaseAssociation{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("association %d: %w", id, ErrNotFound)
	}
	return nil
}

// cleanNames trimmt, verwirft leere Einträge und entfernt Duplikate.
func cleanNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// SplitLines zerlegt den Inhalt eines Bulk-Formulars in einzelne Namen.
func SplitLines(text string) []string {
	return cleanNames(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"))
}
