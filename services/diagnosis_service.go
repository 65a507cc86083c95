package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tcm-diagnosis/config"
	"tcm-diagnosis/diagnosis"
	"tcm-diagnosis/models"
)

// MaxPrescriptionLength entspricht der Spaltenbreite von diagnosis_logs.prescription.
const MaxPrescriptionLength = 500

// ErrInvalidPrescription wird für zu lange Rezepturtexte geliefert.
var ErrInvalidPrescription = errors.New("invalid prescription")

// DiagnosisStore ist der Entity-Store plus das anhängende Diagnose-Log.
type DiagnosisStore interface {
	diagnosis.EntityStore
	AppendDiagnosisLog(ctx context.Context, entry *models.DiagnosisLog) error
}

// Diagnosis ist das Ergebnis einer Inferenz.
type Diagnosis struct {
	LogID       uint                   `json:"log_id"`
	Herbs       []string               `json:"herbs"`
	Unknown     []string               `json:"unknown,omitempty"`
	Predictions []diagnosis.Prediction `json:"predictions"`
}

// DiagnosisService führt die Inferenz-Pipeline aus: Snapshot lesen,
// tokenisieren, Modell trainieren (oder aus dem Cache holen), vorhersagen,
// ranken und das Ergebnis protokollieren.
type DiagnosisService struct {
	Store  DiagnosisStore
	Cache  *ModelCache
	Logger *zap.Logger

	mode      diagnosis.EncodingMode
	tokenizer *diagnosis.Tokenizer
	params    diagnosis.TreeParams
	timeout   time.Duration
	training  singleflight.Group
}

// NewDiagnosisService erstellt eine neue Instanz des DiagnosisService.
func NewDiagnosisService(cfg *config.Config, store DiagnosisStore, cache *ModelCache, logger *zap.Logger) (*DiagnosisService, error) {
	mode, err := diagnosis.ParseEncodingMode(cfg.EncodingMode)
	if err != nil {
		return nil, err
	}
	tokMode, err := diagnosis.ParseTokenizerMode(cfg.TokenizerMode)
	if err != nil {
		return nil, err
	}
	return &DiagnosisService{
		Store:     store,
		Cache:     cache,
		Logger:    logger,
		mode:      mode,
		tokenizer: diagnosis.NewTokenizer(tokMode),
		params: diagnosis.TreeParams{
			MaxDepth:        cfg.TreeMaxDepth,
			MinSamplesSplit: cfg.TreeMinSamplesSplit,
		},
		timeout: cfg.TrainingTimeout,
	}, nil
}

// Diagnose tokenisiert den Rezepturtext gegen die aktuell bekannten Herbs und
// liefert die gerankten Diseases. Unbekannte Tokens werden verworfen. Jede
// erfolgreiche Inferenz schreibt genau einen Log-Eintrag, auch bei leerem Ergebnis.
func (s *DiagnosisService) Diagnose(ctx context.Context, userID uint, prescription string) (*Diagnosis, error) {
	if n := utf8.RuneCountInString(prescription); n > MaxPrescriptionLength {
		diagnosesTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %d characters, at most %d allowed", ErrInvalidPrescription, n, MaxPrescriptionLength)
	}

	snap, err := diagnosis.TakeSnapshot(ctx, s.Store)
	if err != nil {
		diagnosesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	herbs, unknown := s.tokenizer.Split(prescription, snap.Vocabulary())
	if len(unknown) > 0 {
		s.Logger.Debug("Dropped unknown prescription tokens",
			zap.Uint("user_id", userID), zap.Strings("tokens", unknown))
	}

	d, err := s.run(ctx, userID, prescription, snap, herbs)
	if err != nil {
		return nil, err
	}
	d.Unknown = unknown
	return d, nil
}

// DiagnoseHerbs ist die strikte Variante mit bereits zerlegten Herb-Namen:
// ein unbekannter Name führt zu diagnosis.ErrUnknownEntity, ohne Log-Eintrag.
func (s *DiagnosisService) DiagnoseHerbs(ctx context.Context, userID uint, herbs []string) (*Diagnosis, error) {
	prescription := strings.Join(herbs, ", ")
	if n := utf8.RuneCountInString(prescription); n > MaxPrescriptionLength {
		diagnosesTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %d characters, at most %d allowed", ErrInvalidPrescription, n, MaxPrescriptionLength)
	}

	snap, err := diagnosis.TakeSnapshot(ctx, s.Store)
	if err != nil {
		diagnosesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	for _, h := range herbs {
		if !snap.HerbEncoder().Contains(h) {
			diagnosesTotal.WithLabelValues("unknown_entity").Inc()
			return nil, fmt.Errorf("%w: herb %q", diagnosis.ErrUnknownEntity, h)
		}
	}
	return s.run(ctx, userID, prescription, snap, herbs)
}

func (s *DiagnosisService) run(ctx context.Context, userID uint, prescription string, snap *diagnosis.Snapshot, herbs []string) (*Diagnosis, error) {
	if snap.Orphans() > 0 {
		s.Logger.Warn("Skipped associations with dangling references", zap.Int("count", snap.Orphans()))
	}

	preds, err := s.infer(ctx, snap, herbs)
	if err != nil {
		switch {
		case errors.Is(err, diagnosis.ErrTrainingTimeout):
			diagnosesTotal.WithLabelValues("timeout").Inc()
		case errors.Is(err, diagnosis.ErrUnknownEntity):
			diagnosesTotal.WithLabelValues("unknown_entity").Inc()
		default:
			diagnosesTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	id, err := s.record(ctx, userID, prescription, preds)
	if err != nil {
		diagnosesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(preds) == 0 {
		diagnosesTotal.WithLabelValues("empty").Inc()
	} else {
		diagnosesTotal.WithLabelValues("ok").Inc()
	}
	return &Diagnosis{LogID: id, Herbs: herbs, Predictions: preds}, nil
}

func (s *DiagnosisService) infer(ctx context.Context, snap *diagnosis.Snapshot, herbs []string) ([]diagnosis.Prediction, error) {
	if len(herbs) == 0 {
		return diagnosis.Rank(nil), nil
	}
	model, err := s.model(ctx, snap)
	if errors.Is(err, diagnosis.ErrEmptyTrainingSet) {
		return diagnosis.Rank(nil), nil
	}
	if err != nil {
		return nil, err
	}
	probs, err := model.Predict(herbs)
	if err != nil {
		return nil, err
	}
	return diagnosis.Rank(probs), nil
}

// model liefert ein Modell für den Snapshot. Gleichzeitige Anfragen auf
// denselben Snapshot-Inhalt teilen sich ein Training.
func (s *DiagnosisService) model(ctx context.Context, snap *diagnosis.Snapshot) (*diagnosis.Model, error) {
	key := fmt.Sprintf("%s/%s/%d/%d", snap.Hash(), s.mode, s.params.MaxDepth, s.params.MinSamplesSplit)
	if m, ok := s.Cache.Get(key); ok {
		modelCacheHits.Inc()
		return m, nil
	}

	v, err, _ := s.training.Do(key, func() (interface{}, error) {
		trainCtx := context.WithoutCancel(ctx)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			trainCtx, cancel = context.WithTimeout(trainCtx, s.timeout)
			defer cancel()
		}
		start := time.Now()
		m, err := diagnosis.Train(trainCtx, snap, s.mode, s.params)
		if err != nil {
			return nil, err
		}
		elapsed := time.Since(start)
		trainingSeconds.Observe(elapsed.Seconds())
		s.Logger.Debug("Model trained",
			zap.String("mode", string(s.mode)),
			zap.Int("samples", m.Samples()),
			zap.Int("depth", m.Tree().Depth()),
			zap.Int("leaves", m.Tree().Leaves()),
			zap.Duration("took", elapsed))
		s.Cache.Set(key, m)
		return m, nil
	})
	if err != nil {
		if errors.Is(err, diagnosis.ErrTrainingTimeout) {
			s.Logger.Warn("Model training exceeded budget", zap.Duration("timeout", s.timeout))
		}
		return nil, err
	}
	return v.(*diagnosis.Model), nil
}

func (s *DiagnosisService) record(ctx context.Context, userID uint, prescription string, preds []diagnosis.Prediction) (uint, error) {
	encoded, err := diagnosis.EncodeResult(preds)
	if err != nil {
		return 0, err
	}
	entry := &models.DiagnosisLog{
		UserID:          userID,
		Prescription:    prescription,
		DiagnosisResult: encoded,
	}
	if err := s.Store.AppendDiagnosisLog(ctx, entry); err != nil {
		s.Logger.Error("Failed to write diagnosis log", zap.Uint("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("write diagnosis log: %w", err)
	}
	return entry.ID, nil
}
