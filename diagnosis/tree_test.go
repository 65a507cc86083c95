package diagnosis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionTree_PureLeaf(t *testing.T) {
	ts := &TrainingSet{
		Mode:        EncodingScalar,
		X:           [][]float64{{0}, {0}},
		Labels:      []int{1, 1},
		NumFeatures: 1,
		NumOutputs:  2,
	}
	tree := NewDecisionTree(DefaultTreeParams())
	require.NoError(t, tree.Fit(context.Background(), ts))

	p, err := tree.PredictProba([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, p)
	assert.Equal(t, 1, tree.Leaves())
	assert.Equal(t, 0, tree.Depth())
}

func TestDecisionTree_SplitsOnThreshold(t *testing.T) {
	ts := &TrainingSet{
		Mode:        EncodingScalar,
		X:           [][]float64{{0}, {1}, {2}, {2}},
		Labels:      []int{0, 0, 1, 2},
		NumFeatures: 1,
		NumOutputs:  3,
	}
	tree := NewDecisionTree(DefaultTreeParams())
	require.NoError(t, tree.Fit(context.Background(), ts))

	p, err := tree.PredictProba([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0}, p)

	p, err = tree.PredictProba([]float64{2})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.5, 0.5}, p, 1e-9)
}

func TestDecisionTree_MaxDepth(t *testing.T) {
	ts := &TrainingSet{
		Mode:        EncodingScalar,
		X:           [][]float64{{0}, {1}, {2}, {3}},
		Labels:      []int{0, 1, 2, 3},
		NumFeatures: 1,
		NumOutputs:  4,
	}
	tree := NewDecisionTree(TreeParams{MaxDepth: 1, MinSamplesSplit: 2})
	require.NoError(t, tree.Fit(context.Background(), ts))

	assert.Equal(t, 1, tree.Depth())
	assert.Equal(t, 2, tree.Leaves())

	p, err := tree.PredictProba([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 0}, p)

	p, err = tree.PredictProba([]float64{3})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1.0 / 3, 1.0 / 3, 1.0 / 3}, p, 1e-9)
}

func TestDecisionTree_MultiLabel(t *testing.T) {
	ts := &TrainingSet{
		Mode:        EncodingOneHot,
		X:           [][]float64{{1, 0}, {0, 1}, {0, 1}},
		Y:           [][]float64{{0, 1}, {1, 0}, {0, 1}},
		NumFeatures: 2,
		NumOutputs:  2,
	}
	tree := NewDecisionTree(DefaultTreeParams())
	require.NoError(t, tree.Fit(context.Background(), ts))

	p, err := tree.PredictProba([]float64{1, 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1}, p, 1e-9)

	p, err = tree.PredictProba([]float64{0, 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, p, 1e-9)
}

func TestDecisionTree_Errors(t *testing.T) {
	tree := NewDecisionTree(DefaultTreeParams())

	_, err := tree.PredictProba([]float64{0})
	assert.Error(t, err)

	assert.ErrorIs(t, tree.Fit(context.Background(), &TrainingSet{}), ErrEmptyTrainingSet)

	ts := &TrainingSet{Mode: EncodingScalar, X: [][]float64{{0}}, Labels: []int{0}, NumFeatures: 1, NumOutputs: 1}
	require.NoError(t, tree.Fit(context.Background(), ts))
	_, err = tree.PredictProba([]float64{0, 1})
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestDecisionTree_Timeout(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	ts := &TrainingSet{Mode: EncodingScalar, X: [][]float64{{0}, {1}}, Labels: []int{0, 1}, NumFeatures: 1, NumOutputs: 2}
	err := NewDecisionTree(DefaultTreeParams()).Fit(ctx, ts)
	assert.ErrorIs(t, err, ErrTrainingTimeout)
}

func TestDecisionTree_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ts := &TrainingSet{Mode: EncodingScalar, X: [][]float64{{0}}, Labels: []int{0}, NumFeatures: 1, NumOutputs: 1}
	err := NewDecisionTree(DefaultTreeParams()).Fit(ctx, ts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTrainingTimeout)
}
