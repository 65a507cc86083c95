package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

const minImprovement = 1e-12

// TreeParams steuert das Wachstum des Entscheidungsbaums.
type TreeParams struct {
	// MaxDepth begrenzt die Tiefe; 0 bedeutet unbegrenzt.
	MaxDepth int
	// MinSamplesSplit ist die Mindestanzahl Zeilen, ab der ein Knoten geteilt wird.
	MinSamplesSplit int
}

// DefaultTreeParams entspricht einem voll ausgewachsenen Baum.
func DefaultTreeParams() TreeParams {
	return TreeParams{MaxDepth: 0, MinSamplesSplit: 2}
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     []float64
	samples   int
}

func (n *treeNode) leaf() bool { return n.left == nil }

// DecisionTree ist ein deterministischer CART-Klassifikator. Im Modus
// EncodingScalar liefert er eine Klassenverteilung über alle Diseases (Gini),
// im Modus EncodingOneHot je Disease eine unabhängige Wahrscheinlichkeit
// (Gini gemittelt über die Outputs).
type DecisionTree struct {
	params    TreeParams
	root      *treeNode
	nFeatures int
	nOutputs  int
	depth     int
	leafCount int
}

func NewDecisionTree(params TreeParams) *DecisionTree {
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}
	return &DecisionTree{params: params}
}

// Fit trainiert den Baum. Ein abgelaufener Kontext-Deadline wird als
// ErrTrainingTimeout gemeldet.
func (t *DecisionTree) Fit(ctx context.Context, ts *TrainingSet) error {
	if ts == nil || ts.Len() == 0 {
		return ErrEmptyTrainingSet
	}
	b := &treeBuilder{
		ctx:      ctx,
		params:   t.params,
		x:        ts.X,
		y:        sparseRows(ts.targets()),
		nOutputs: ts.NumOutputs,
		multi:    ts.Mode == EncodingOneHot,
	}
	idx := make([]int, ts.Len())
	for i := range idx {
		idx[i] = i
	}
	root, err := b.grow(idx, 0)
	if err != nil {
		return err
	}

	t.root = root
	t.nFeatures = ts.NumFeatures
	t.nOutputs = ts.NumOutputs
	t.depth = b.maxDepth
	t.leafCount = b.leaves
	return nil
}

// PredictProba liefert für einen Feature-Vektor die Wahrscheinlichkeit je Disease-Index.
func (t *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	if t.root == nil {
		return nil, errors.New("decision tree is not fitted")
	}
	if len(features) != t.nFeatures {
		return nil, fmt.Errorf("%w: feature vector has %d columns, model was fit with %d",
			ErrUnknownEntity, len(features), t.nFeatures)
	}
	n := t.root
	for !n.leaf() {
		if features[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	out := make([]float64, len(n.value))
	copy(out, n.value)
	return out, nil
}

func (t *DecisionTree) Depth() int  { return t.depth }
func (t *DecisionTree) Leaves() int { return t.leafCount }

type entry struct {
	j int
	v float64
}

func sparseRows(rows [][]float64) [][]entry {
	out := make([][]entry, len(rows))
	for i, row := range rows {
		for j, v := range row {
			if v != 0 {
				out[i] = append(out[i], entry{j, v})
			}
		}
	}
	return out
}

// stats hält Summen je Output sowie deren Summe (S) und Quadratsumme (Q),
// damit die Unreinheit beim Verschieben einer Zeile in O(nnz) nachgeführt wird.
type stats struct {
	s []float64
	S float64
	Q float64
	n int
}

func newStats(k int) *stats { return &stats{s: make([]float64, k)} }

func (st *stats) add(row []entry) {
	for _, e := range row {
		st.Q += 2*st.s[e.j]*e.v + e.v*e.v
		st.S += e.v
		st.s[e.j] += e.v
	}
	st.n++
}

func (st *stats) remove(row []entry) {
	for _, e := range row {
		st.Q += -2*st.s[e.j]*e.v + e.v*e.v
		st.S -= e.v
		st.s[e.j] -= e.v
	}
	st.n--
}

func (st *stats) clone() *stats {
	c := &stats{s: make([]float64, len(st.s)), S: st.S, Q: st.Q, n: st.n}
	copy(c.s, st.s)
	return c
}

type treeBuilder struct {
	ctx      context.Context
	params   TreeParams
	x        [][]float64
	y        [][]entry
	nOutputs int
	multi    bool

	maxDepth int
	leaves   int
}

func (b *treeBuilder) impurity(st *stats) float64 {
	if st.n == 0 {
		return 0
	}
	n := float64(st.n)
	if b.multi {
		if b.nOutputs == 0 {
			return 0
		}
		return 2 / float64(b.nOutputs) * (st.S/n - st.Q/(n*n))
	}
	return 1 - st.Q/(n*n)
}

func (b *treeBuilder) checkContext() error {
	if err := b.ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTrainingTimeout, err)
		}
		return err
	}
	return nil
}

func (b *treeBuilder) grow(idx []int, depth int) (*treeNode, error) {
	if err := b.checkContext(); err != nil {
		return nil, err
	}
	if depth > b.maxDepth {
		b.maxDepth = depth
	}

	total := newStats(b.nOutputs)
	for _, i := range idx {
		total.add(b.y[i])
	}
	node := &treeNode{samples: len(idx), value: make([]float64, b.nOutputs)}
	for j, s := range total.s {
		node.value[j] = s / float64(len(idx))
	}

	imp := b.impurity(total)
	if imp <= minImprovement ||
		len(idx) < b.params.MinSamplesSplit ||
		(b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) {
		b.leaves++
		return node, nil
	}

	feature, threshold, ok, err := b.bestSplit(idx, total, imp)
	if err != nil {
		return nil, err
	}
	if !ok {
		b.leaves++
		return node, nil
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	node.feature, node.threshold = feature, threshold
	if node.left, err = b.grow(left, depth+1); err != nil {
		return nil, err
	}
	if node.right, err = b.grow(right, depth+1); err != nil {
		return nil, err
	}
	node.value = nil
	return node, nil
}

// bestSplit sucht über alle Features die Schwelle mit der geringsten gewichteten
// Unreinheit. Bei Gleichstand gewinnt das kleinere Feature bzw. die kleinere Schwelle.
func (b *treeBuilder) bestSplit(idx []int, total *stats, parentImp float64) (int, float64, bool, error) {
	n := float64(len(idx))
	bestW := parentImp - minImprovement
	bestF, bestT, found := 0, 0.0, false

	order := make([]int, len(idx))
	nFeatures := len(b.x[idx[0]])
	for f := 0; f < nFeatures; f++ {
		if err := b.checkContext(); err != nil {
			return 0, 0, false, err
		}
		if w, thr, binary, ok := b.binarySplit(idx, f, total); binary {
			if ok && w < bestW {
				bestW, bestF, bestT, found = w, f, thr, true
			}
			continue
		}

		copy(order, idx)
		sort.SliceStable(order, func(a, c int) bool { return b.x[order[a]][f] < b.x[order[c]][f] })
		if b.x[order[0]][f] == b.x[order[len(order)-1]][f] {
			continue
		}
		left, right := newStats(b.nOutputs), total.clone()
		for k := 0; k < len(order)-1; k++ {
			row := b.y[order[k]]
			right.remove(row)
			left.add(row)
			v, next := b.x[order[k]][f], b.x[order[k+1]][f]
			if v == next {
				continue
			}
			w := (float64(left.n)*b.impurity(left) + float64(right.n)*b.impurity(right)) / n
			if w < bestW {
				bestW, bestF, bestT, found = w, f, v+(next-v)/2, true
			}
		}
	}
	return bestF, bestT, found, nil
}

// binarySplit behandelt 0/1-Spalten (One-Hot) ohne Sortierung. binary ist
// false, wenn die Spalte andere Werte enthält; ok ist false, wenn sie im Knoten
// konstant ist.
func (b *treeBuilder) binarySplit(idx []int, f int, total *stats) (w, threshold float64, binary, ok bool) {
	left := newStats(b.nOutputs)
	for _, i := range idx {
		switch b.x[i][f] {
		case 0:
			left.add(b.y[i])
		case 1:
		default:
			return 0, 0, false, false
		}
	}
	if left.n == 0 || left.n == len(idx) {
		return 0, 0, true, false
	}
	right := total.clone()
	for j := range right.s {
		right.s[j] -= left.s[j]
	}
	right.n = total.n - left.n
	right.S = total.S - left.S
	right.Q = 0
	for _, s := range right.s {
		right.Q += s * s
	}
	n := float64(len(idx))
	return (float64(left.n)*b.impurity(left) + float64(right.n)*b.impurity(right)) / n, 0.5, true, true
}
