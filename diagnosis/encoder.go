package diagnosis

import (
	"fmt"
	"sort"
)

// EncodingMode legt fest, wie Herbs und Diseases in Features/Labels übersetzt werden.
type EncodingMode string

const (
	// EncodingScalar: eine Feature-Spalte mit dem Herb-Index, ein Label mit dem Disease-Index.
	EncodingScalar EncodingMode = "scalar"
	// EncodingOneHot: eine binäre Spalte pro Herb und ein binäres Label pro Disease.
	EncodingOneHot EncodingMode = "onehot"
)

// ParseEncodingMode wandelt den Konfigurationswert in einen EncodingMode um.
func ParseEncodingMode(s string) (EncodingMode, error) {
	switch EncodingMode(s) {
	case EncodingScalar, EncodingOneHot:
		return EncodingMode(s), nil
	}
	return "", fmt.Errorf("unknown encoding mode %q", s)
}

// LabelEncoder bildet Namen bidirektional auf Indizes ab. Die Indizes folgen
// der lexikalischen Ordnung der Namen und ändern sich nicht nach dem Erzeugen.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// NewLabelEncoder erzeugt einen Encoder über die eindeutigen, sortierten Namen.
func NewLabelEncoder(names []string) *LabelEncoder {
	index := make(map[string]int, len(names))
	classes := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := index[n]; ok {
			continue
		}
		index[n] = 0
		classes = append(classes, n)
	}
	sort.Strings(classes)
	for i, n := range classes {
		index[n] = i
	}
	return &LabelEncoder{classes: classes, index: index}
}

// Len liefert die Größe der Domäne.
func (e *LabelEncoder) Len() int {
	return len(e.classes)
}

// Classes liefert eine Kopie der Domäne in Index-Reihenfolge.
func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// Contains meldet, ob name zur Domäne gehört.
func (e *LabelEncoder) Contains(name string) bool {
	_, ok := e.index[name]
	return ok
}

func (e *LabelEncoder) Encode(name string) (int, error) {
	i, ok := e.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	return i, nil
}

func (e *LabelEncoder) Decode(i int) (string, error) {
	if i < 0 || i >= len(e.classes) {
		return "", fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(e.classes))
	}
	return e.classes[i], nil
}

// OneHot liefert einen Vektor der Länge Len() mit einer 1 an der Position von name.
func (e *LabelEncoder) OneHot(name string) ([]float64, error) {
	i, err := e.Encode(name)
	if err != nil {
		return nil, err
	}
	v := make([]float64, len(e.classes))
	v[i] = 1
	return v, nil
}
