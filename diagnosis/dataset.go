package diagnosis

import "fmt"

// TrainingSet ist die Feature-/Label-Matrix eines Snapshots, eine Zeile pro Assoziation.
//
// Im Modus EncodingScalar hat X genau eine Spalte (Herb-Index) und Labels den
// Disease-Index. Im Modus EncodingOneHot ist X eine One-Hot-Zeile über alle Herbs
// und Y eine One-Hot-Zeile über alle Diseases.
type TrainingSet struct {
	Mode   EncodingMode
	X      [][]float64
	Labels []int
	Y      [][]float64

	NumFeatures int
	NumOutputs  int
}

// Len liefert die Anzahl der Trainingszeilen.
func (ts *TrainingSet) Len() int { return len(ts.X) }

// BuildTrainingSet materialisiert die Assoziationen des Snapshots. Doppelte
// Assoziationen ergeben doppelte Zeilen. Ohne Assoziationen wird
// ErrEmptyTrainingSet geliefert.
func BuildTrainingSet(s *Snapshot, mode EncodingMode) (*TrainingSet, error) {
	herbs, diseases := s.HerbEncoder(), s.DiseaseEncoder()
	ts := &TrainingSet{Mode: mode, NumOutputs: diseases.Len()}
	switch mode {
	case EncodingScalar:
		ts.NumFeatures = 1
	case EncodingOneHot:
		ts.NumFeatures = herbs.Len()
	default:
		return nil, fmt.Errorf("unknown encoding mode %q", mode)
	}

	for _, p := range s.pairs {
		hi, err := herbs.Encode(p.Herb)
		if err != nil {
			return nil, err
		}
		di, err := diseases.Encode(p.Disease)
		if err != nil {
			return nil, err
		}
		if mode == EncodingScalar {
			ts.X = append(ts.X, []float64{float64(hi)})
			ts.Labels = append(ts.Labels, di)
			continue
		}
		x := make([]float64, herbs.Len())
		x[hi] = 1
		y := make([]float64, diseases.Len())
		y[di] = 1
		ts.X = append(ts.X, x)
		ts.Y = append(ts.Y, y)
	}

	if ts.Len() == 0 {
		return ts, ErrEmptyTrainingSet
	}
	return ts, nil
}

// targets liefert pro Zeile den Zielvektor über alle Outputs.
func (ts *TrainingSet) targets() [][]float64 {
	if ts.Mode == EncodingOneHot {
		return ts.Y
	}
	out := make([][]float64, len(ts.Labels))
	for i, l := range ts.Labels {
		row := make([]float64, ts.NumOutputs)
		row[l] = 1
		out[i] = row
	}
	return out
}
