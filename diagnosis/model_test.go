package diagnosis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bothModes = []EncodingMode{EncodingScalar, EncodingOneHot}

func diagnose(t *testing.T, snap *Snapshot, mode EncodingMode, prescription string) []Prediction {
	t.Helper()
	herbs := NewTokenizer(TokenizeAuto).Tokenize(prescription, snap.Vocabulary())
	if len(herbs) == 0 {
		return Rank(nil)
	}
	model, err := Train(context.Background(), snap, mode, DefaultTreeParams())
	require.NoError(t, err)
	probs, err := model.Predict(herbs)
	require.NoError(t, err)
	return Rank(probs)
}

func TestModel_SingleAssociation(t *testing.T) {
	snap := NewSnapshot(entities([]string{"ginseng"}, []string{"fatigue"}, [2]string{"ginseng", "fatigue"}))

	for _, mode := range bothModes {
		got := diagnose(t, snap, mode, "ginseng")
		assert.Equal(t, []Prediction{{Name: "fatigue", Probability: 1}}, got, mode)
	}
}

func TestModel_EmptyAssociations(t *testing.T) {
	snap := NewSnapshot(entities([]string{"ginseng"}, []string{"fatigue"}))

	for _, mode := range bothModes {
		_, err := Train(context.Background(), snap, mode, DefaultTreeParams())
		assert.ErrorIs(t, err, ErrEmptyTrainingSet)
	}
}

func TestModel_SharedHerb(t *testing.T) {
	snap := NewSnapshot(entities(
		[]string{"ginseng", "licorice"},
		[]string{"fatigue", "cough"},
		[2]string{"ginseng", "fatigue"},
		[2]string{"licorice", "cough"},
		[2]string{"licorice", "fatigue"},
	))

	for _, mode := range bothModes {
		got := diagnose(t, snap, mode, "licorice")
		require.Len(t, got, 2, mode)
		assert.Equal(t, "cough", got[0].Name)
		assert.Equal(t, "fatigue", got[1].Name)
		assert.InDelta(t, 0.5, got[0].Probability, 1e-9)
		assert.InDelta(t, 0.5, got[1].Probability, 1e-9)
	}
}

func TestModel_UnknownTokenDropped(t *testing.T) {
	snap := NewSnapshot(entities(
		[]string{"ginseng", "licorice"},
		[]string{"fatigue", "cough"},
		[2]string{"ginseng", "fatigue"},
		[2]string{"licorice", "cough"},
	))

	for _, mode := range bothModes {
		assert.Equal(t, []Prediction{{Name: "fatigue", Probability: 1}},
			diagnose(t, snap, mode, "ginseng, dragon bone"), mode)
		assert.Empty(t, diagnose(t, snap, mode, "dragon bone"), mode)
	}
}

func TestModel_MeanOverHerbs(t *testing.T) {
	snap := NewSnapshot(entities(
		[]string{"ginseng", "licorice"},
		[]string{"fatigue", "cough"},
		[2]string{"ginseng", "fatigue"},
		[2]string{"licorice", "cough"},
	))

	for _, mode := range bothModes {
		got := diagnose(t, snap, mode, "ginseng,licorice,ginseng")
		assert.Equal(t, []Prediction{
			{Name: "cough", Probability: 0.5},
			{Name: "fatigue", Probability: 0.5},
		}, got, mode)
	}
}

func TestModel_ResultsOnlyContainReachableDiseases(t *testing.T) {
	snap := NewSnapshot(entities(
		[]string{"ginseng", "licorice", "astragalus", "angelica"},
		[]string{"fatigue", "cough", "anemia", "insomnia"},
		[2]string{"ginseng", "fatigue"},
		[2]string{"astragalus", "fatigue"},
		[2]string{"licorice", "cough"},
		[2]string{"angelica", "anemia"},
		[2]string{"angelica", "fatigue"},
	))

	for _, mode := range bothModes {
		for _, herb := range []string{"ginseng", "licorice", "astragalus", "angelica"} {
			for _, p := range diagnose(t, snap, mode, herb) {
				assert.Greater(t, p.Probability, 0.0)
				assert.NotEqual(t, "insomnia", p.Name, "%s/%s", mode, herb)
			}
		}
	}
}

func TestModel_Idempotent(t *testing.T) {
	ents := entities(
		[]string{"ginseng", "licorice", "astragalus"},
		[]string{"fatigue", "cough", "anemia"},
		[2]string{"ginseng", "fatigue"},
		[2]string{"licorice", "cough"},
		[2]string{"licorice", "fatigue"},
		[2]string{"astragalus", "anemia"},
		[2]string{"astragalus", "fatigue"},
	)

	for _, mode := range bothModes {
		first := diagnose(t, NewSnapshot(ents), mode, "licorice,astragalus")
		second := diagnose(t, NewSnapshot(ents), mode, "licorice,astragalus")
		assert.Equal(t, first, second, mode)
	}
}

func TestModel_PredictUnknownHerb(t *testing.T) {
	snap := NewSnapshot(entities([]string{"ginseng"}, []string{"fatigue"}, [2]string{"ginseng", "fatigue"}))

	for _, mode := range bothModes {
		model, err := Train(context.Background(), snap, mode, DefaultTreeParams())
		require.NoError(t, err)
		_, err = model.Predict([]string{"ginseng", "unicorn horn"})
		assert.ErrorIs(t, err, ErrUnknownEntity)
	}
}
