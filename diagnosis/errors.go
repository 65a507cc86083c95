package diagnosis

import "errors"

var (
	// ErrUnknownEntity wird geliefert, wenn ein Name oder Index nicht zur
	// Domäne des aktuellen Snapshots gehört.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrIndexOutOfRange wird von LabelEncoder.Decode geliefert.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrEmptyTrainingSet signalisiert, dass keine Assoziationen vorhanden sind.
	ErrEmptyTrainingSet = errors.New("empty training set")
	// ErrTrainingTimeout signalisiert, dass Fit das Zeitbudget überschritten hat.
	ErrTrainingTimeout = errors.New("training timeout")
	// ErrSerialization signalisiert ein nicht lesbares diagnosis_result.
	ErrSerialization = errors.New("diagnosis result serialization")
)
