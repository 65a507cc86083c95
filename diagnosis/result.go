package diagnosis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

type resultRecord struct {
	Name        *string  `json:"name"`
	Probability *float64 `json:"probability"`
}

// EncodeResult serialisiert das gerankte Ergebnis für DiagnosisLog.DiagnosisResult.
func EncodeResult(preds []Prediction) (string, error) {
	if preds == nil {
		preds = []Prediction{}
	}
	b, err := json.Marshal(preds)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return string(b), nil
}

// DecodeResult liest ein gespeichertes Ergebnis zurück und prüft das Schema:
// ein JSON-Array aus Objekten mit nicht-leerem name und probability in (0,1].
func DecodeResult(s string) ([]Prediction, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.DisallowUnknownFields()

	var records []resultRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after result list", ErrSerialization)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: result is not a list", ErrSerialization)
	}

	out := make([]Prediction, 0, len(records))
	for i, r := range records {
		if r.Name == nil || *r.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrSerialization, i)
		}
		if r.Probability == nil {
			return nil, fmt.Errorf("%w: entry %d has no probability", ErrSerialization, i)
		}
		p := *r.Probability
		if math.IsNaN(p) || p <= 0 || p > 1 {
			return nil, fmt.Errorf("%w: entry %d probability %v outside (0,1]", ErrSerialization, i, p)
		}
		out = append(out, Prediction{Name: *r.Name, Probability: p})
	}
	return out, nil
}
