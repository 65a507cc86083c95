package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const exportPrefix = "exports/"

// ObjectStore ist das Ziel für Statistik-Exporte, z.B. storage.S3Store.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
	Rotate(ctx context.Context, prefix string, keep int) ([]string, error)
}

// StatisticsExport ist das exportierte Dokument.
type StatisticsExport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Diseases    map[string]int `json:"diseases"`
}

// ExportService schreibt die globale Disease-Statistik periodisch in den Object-Store.
type ExportService struct {
	History *HistoryService
	Objects ObjectStore
	Keep    int
	Logger  *zap.Logger

	now func() time.Time
}

func NewExportService(history *HistoryService, objects ObjectStore, keep int, logger *zap.Logger) *ExportService {
	return &ExportService{History: history, Objects: objects, Keep: keep, Logger: logger, now: time.Now}
}

// Run exportiert die aktuelle Statistik und rotiert alte Exporte.
// Ein Fehler bei der Rotation lässt den Export selbst bestehen.
func (e *ExportService) Run(ctx context.Context) (string, error) {
	stats, err := e.History.GlobalStatistics(ctx)
	if err != nil {
		return "", fmt.Errorf("collect statistics: %w", err)
	}
	now := e.now().UTC()
	data, err := json.Marshal(StatisticsExport{GeneratedAt: now, Diseases: stats})
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%sstatistics-%s.json", exportPrefix, now.Format("2006-01-02T15-04-05Z"))
	link, err := e.Objects.Upload(ctx, key, data)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	e.Logger.Info("Statistics exported", zap.String("link", link), zap.Int("diseases", len(stats)))

	deleted, err := e.Objects.Rotate(ctx, exportPrefix, e.Keep)
	if err != nil {
		e.Logger.Error("Rotation of old exports failed", zap.Error(err))
	}
	for _, k := range deleted {
		e.Logger.Info("Deleted old export", zap.String("key", k))
	}
	return link, nil
}
