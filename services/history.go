package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tcm-diagnosis/diagnosis"
	"tcm-diagnosis/models"
)

// LogStore liest das Diagnose-Log.
type LogStore interface {
	DiagnosisLogs(ctx context.Context, userID uint) ([]models.DiagnosisLog, error)
	AllDiagnosisLogs(ctx context.Context) ([]models.DiagnosisLog, error)
}

// HistoryEntry ist ein Log-Eintrag mit dekodiertem Ergebnis. Corrupt ist
// gesetzt, wenn das gespeicherte Ergebnis nicht lesbar war.
type HistoryEntry struct {
	ID              uint                   `json:"id"`
	Prescription    string                 `json:"prescription"`
	DiagnosisResult []diagnosis.Prediction `json:"diagnosis_result"`
	Timestamp       time.Time              `json:"timestamp"`
	Corrupt         bool                   `json:"corrupt,omitempty"`
}

// HistoryService stellt Verlauf und Statistiken aus dem Diagnose-Log bereit.
type HistoryService struct {
	Store  LogStore
	Logger *zap.Logger
}

func NewHistoryService(store LogStore, logger *zap.Logger) *HistoryService {
	return &HistoryService{Store: store, Logger: logger}
}

// History liefert die Diagnosen eines Nutzers, neueste zuerst.
func (h *HistoryService) History(ctx context.Context, userID uint) ([]HistoryEntry, error) {
	logs, err := h.Store.DiagnosisLogs(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(logs))
	for _, l := range logs {
		entry := HistoryEntry{ID: l.ID, Prescription: l.Prescription, Timestamp: l.Timestamp}
		preds, err := h.decode(l)
		if err != nil {
			entry.Corrupt = true
			entry.DiagnosisResult = []diagnosis.Prediction{}
		} else {
			entry.DiagnosisResult = preds
		}
		out = append(out, entry)
	}
	return out, nil
}

// Statistics zählt, wie oft jede Disease in den Ergebnissen eines Nutzers vorkam.
// Nicht lesbare Einträge werden übersprungen.
func (h *HistoryService) Statistics(ctx context.Context, userID uint) (map[string]int, error) {
	logs, err := h.Store.DiagnosisLogs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return h.aggregate(logs), nil
}

// GlobalStatistics zählt über alle Nutzer.
func (h *HistoryService) GlobalStatistics(ctx context.Context) (map[string]int, error) {
	logs, err := h.Store.AllDiagnosisLogs(ctx)
	if err != nil {
		return nil, err
	}
	return h.aggregate(logs), nil
}

func (h *HistoryService) aggregate(logs []models.DiagnosisLog) map[string]int {
	stats := make(map[string]int)
	for _, l := range logs {
		preds, err := h.decode(l)
		if err != nil {
			continue
		}
		for _, p := range preds {
			stats[p.Name]++
		}
	}
	return stats
}

func (h *HistoryService) decode(l models.DiagnosisLog) ([]diagnosis.Prediction, error) {
	preds, err := diagnosis.DecodeResult(l.DiagnosisResult)
	if err != nil {
		corruptLogRows.Inc()
		h.Logger.Warn("Skipping unreadable diagnosis log entry",
			zap.Uint("log_id", l.ID), zap.Uint("user_id", l.UserID), zap.Error(err))
		return nil, err
	}
	return preds, nil
}
