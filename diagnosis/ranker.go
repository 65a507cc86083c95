package diagnosis

import (
	"math"
	"sort"
)

// Prediction ist ein Eintrag des gerankten Ergebnisses.
type Prediction struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// MeanProbabilities mittelt mehrere Wahrscheinlichkeitsvektoren spaltenweise.
func MeanProbabilities(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	mean := make([]float64, len(rows[0]))
	for _, r := range rows {
		for j := range mean {
			if j < len(r) {
				mean[j] += r[j]
			}
		}
	}
	for j := range mean {
		mean[j] /= float64(len(rows))
	}
	return mean
}

// Rank verwirft Einträge mit Wahrscheinlichkeit <= 0 und sortiert absteigend
// nach Wahrscheinlichkeit, bei Gleichstand lexikalisch nach Name.
func Rank(probabilities map[string]float64) []Prediction {
	out := make([]Prediction, 0, len(probabilities))
	for name, p := range probabilities {
		if math.IsNaN(p) || p <= 0 {
			continue
		}
		out = append(out, Prediction{Name: name, Probability: math.Min(p, 1)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Probability != out[j].Probability {
			return out[i].Probability > out[j].Probability
		}
		return out[i].Name < out[j].Name
	})
	return out
}
