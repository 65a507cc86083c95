package diagnosis

import (
	"context"
	"fmt"
)

// Model ist ein auf einem Snapshot trainierter Klassifikator. Er ist nach
// Train unveränderlich und kann parallel für Vorhersagen genutzt werden.
type Model struct {
	snapshot *Snapshot
	mode     EncodingMode
	tree     *DecisionTree
	samples  int
}

// Train baut das Trainingsset des Snapshots und trainiert einen Entscheidungsbaum.
func Train(ctx context.Context, s *Snapshot, mode EncodingMode, params TreeParams) (*Model, error) {
	ts, err := BuildTrainingSet(s, mode)
	if err != nil {
		return nil, err
	}
	tree := NewDecisionTree(params)
	if err := tree.Fit(ctx, ts); err != nil {
		return nil, err
	}
	return &Model{snapshot: s, mode: mode, tree: tree, samples: ts.Len()}, nil
}

func (m *Model) Snapshot() *Snapshot { return m.snapshot }
func (m *Model) Mode() EncodingMode  { return m.mode }
func (m *Model) Tree() *DecisionTree { return m.tree }
func (m *Model) Samples() int        { return m.samples }

// Features kodiert einen Herb-Namen gemäß dem Modus des Modells.
func (m *Model) Features(herb string) ([]float64, error) {
	enc := m.snapshot.HerbEncoder()
	if m.mode == EncodingOneHot {
		return enc.OneHot(herb)
	}
	i, err := enc.Encode(herb)
	if err != nil {
		return nil, err
	}
	return []float64{float64(i)}, nil
}

// Predict fragt das Modell je Herb einzeln ab und mittelt die
// Wahrscheinlichkeiten je Disease. Doppelte Herbs zählen einmal.
func (m *Model) Predict(herbs []string) (map[string]float64, error) {
	seen := make(map[string]bool, len(herbs))
	var rows [][]float64
	for _, h := range herbs {
		if seen[h] {
			continue
		}
		seen[h] = true
		x, err := m.Features(h)
		if err != nil {
			return nil, err
		}
		p, err := m.tree.PredictProba(x)
		if err != nil {
			return nil, err
		}
		rows = append(rows, p)
	}

	out := make(map[string]float64)
	for i, p := range MeanProbabilities(rows) {
		name, err := m.snapshot.DiseaseEncoder().Decode(i)
		if err != nil {
			return nil, fmt.Errorf("decode disease: %w", err)
		}
		out[name] = p
	}
	return out, nil
}
