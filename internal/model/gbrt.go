// Package model implements the regression models behind the prediction
// engine: gradient-boosted trees that route missing values natively, a
// ridge baseline used for comparison during training, and the artifact
// files the serving layer loads.
package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// maxSplitCandidates caps the number of thresholds evaluated per feature.
const maxSplitCandidates = 32

// rowSubsample is the fraction of training rows each tree sees.
const rowSubsample = 0.8

// GBRTParams are the boosting hyperparameters.
type GBRTParams struct {
	Rounds         int     `json:"rounds"`
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	Seed           int64   `json:"seed"`
}

// GBRT is a gradient-boosted ensemble of regression trees. Each split carries
// a learned default direction for rows whose split feature is missing, so
// NaN inputs flow through prediction without imputation.
type GBRT struct {
	Params      GBRTParams `json:"params"`
	NumFeatures int        `json:"num_features"`
	BaseScore   float64    `json:"base_score"`
	Trees       []Tree     `json:"trees"`
}

// Tree is one regression tree stored as a flat node array. Index 0 is the
// root; leaves have Left == -1.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode is one split or leaf.
type TreeNode struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	MissingLeft bool    `json:"missing_left"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`
	Value       float64 `json:"value"`
}

// NewGBRT returns an untrained model with the given hyperparameters.
func NewGBRT(params GBRTParams) *GBRT {
	return &GBRT{Params: params}
}

// Fit trains the ensemble on rows X against targets y using least-squares
// boosting. Feature values may be NaN; targets may not.
func (m *GBRT) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("gbrt: no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("gbrt: %d rows but %d targets", len(X), len(y))
	}
	for i, v := range y {
		if math.IsNaN(v) {
			return fmt.Errorf("gbrt: target %d is NaN", i)
		}
	}

	m.NumFeatures = len(X[0])
	m.BaseScore = mean(y)
	m.Trees = m.Trees[:0]

	rng := rand.New(rand.NewSource(m.Params.Seed))

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = m.BaseScore
	}
	residual := make([]float64, len(y))

	for round := 0; round < m.Params.Rounds; round++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}

		sample := sampleRows(rng, len(y), rowSubsample)
		b := &treeBuilder{
			X:              X,
			target:         residual,
			maxDepth:       m.Params.MaxDepth,
			minSamplesLeaf: m.Params.MinSamplesLeaf,
		}
		tree := b.build(sample)
		m.Trees = append(m.Trees, tree)

		for i := range pred {
			pred[i] += m.Params.LearningRate * tree.predict(X[i])
		}
	}
	return nil
}

// Predict scores one feature vector. The vector length must match the
// trained feature list.
func (m *GBRT) Predict(x []float64) (float64, error) {
	if len(x) != m.NumFeatures {
		return 0, fmt.Errorf("gbrt: got %d features, model expects %d", len(x), m.NumFeatures)
	}
	score := m.BaseScore
	for i := range m.Trees {
		score += m.Params.LearningRate * m.Trees[i].predict(x)
	}
	return score, nil
}

// PredictBatch scores every row.
func (m *GBRT) PredictBatch(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, x := range X {
		v, err := m.Predict(x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (t *Tree) predict(x []float64) float64 {
	idx := 0
	for {
		n := &t.Nodes[idx]
		if n.Left < 0 {
			return n.Value
		}
		v := x[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.MissingLeft {
				idx = n.Left
			} else {
				idx = n.Right
			}
		case v <= n.Threshold:
			idx = n.Left
		default:
			idx = n.Right
		}
	}
}

// treeBuilder grows one depth-limited regression tree on residuals.
type treeBuilder struct {
	X              [][]float64
	target         []float64
	maxDepth       int
	minSamplesLeaf int

	nodes []TreeNode
}

func (b *treeBuilder) build(indices []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(indices, 0)
	nodes := make([]TreeNode, len(b.nodes))
	copy(nodes, b.nodes)
	return Tree{Nodes: nodes}
}

// grow appends the subtree for indices and returns its root node index.
func (b *treeBuilder) grow(indices []int, depth int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Left: -1, Right: -1})

	if depth >= b.maxDepth || len(indices) < 2*b.minSamplesLeaf {
		b.nodes[idx].Value = b.leafValue(indices)
		return idx
	}

	split, ok := b.bestSplit(indices)
	if !ok {
		b.nodes[idx].Value = b.leafValue(indices)
		return idx
	}

	left, right := b.partition(indices, split)
	b.nodes[idx].Feature = split.feature
	b.nodes[idx].Threshold = split.threshold
	b.nodes[idx].MissingLeft = split.missingLeft
	b.nodes[idx].Left = b.grow(left, depth+1)
	b.nodes[idx].Right = b.grow(right, depth+1)
	return idx
}

func (b *treeBuilder) leafValue(indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range indices {
		sum += b.target[i]
	}
	return sum / float64(len(indices))
}

type splitCandidate struct {
	feature     int
	threshold   float64
	missingLeft bool
	gain        float64
}

// bestSplit scans every feature for the threshold and missing-value
// direction with the largest squared-error reduction.
func (b *treeBuilder) bestSplit(indices []int) (splitCandidate, bool) {
	parentSum, parentSq := 0.0, 0.0
	for _, i := range indices {
		parentSum += b.target[i]
		parentSq += b.target[i] * b.target[i]
	}
	n := float64(len(indices))
	parentSSE := parentSq - parentSum*parentSum/n

	best := splitCandidate{gain: 1e-12}
	found := false

	nFeatures := len(b.X[indices[0]])
	for f := 0; f < nFeatures; f++ {
		if cand, ok := b.bestSplitForFeature(indices, f, parentSum, parentSq, parentSSE); ok && cand.gain > best.gain {
			best = cand
			found = true
		}
	}
	return best, found
}

func (b *treeBuilder) bestSplitForFeature(indices []int, feature int, totalSum, totalSq, parentSSE float64) (splitCandidate, bool) {
	known := make([]int, 0, len(indices))
	missingSum, missingSq := 0.0, 0.0
	nMissing := 0
	for _, i := range indices {
		v := b.X[i][feature]
		if math.IsNaN(v) {
			missingSum += b.target[i]
			missingSq += b.target[i] * b.target[i]
			nMissing++
			continue
		}
		known = append(known, i)
	}
	if len(known) < 2 {
		return splitCandidate{}, false
	}

	sort.Slice(known, func(a, c int) bool {
		return b.X[known[a]][feature] < b.X[known[c]][feature]
	})

	// Prefix aggregates over the sorted known rows.
	prefSum := make([]float64, len(known)+1)
	prefSq := make([]float64, len(known)+1)
	for j, i := range known {
		prefSum[j+1] = prefSum[j] + b.target[i]
		prefSq[j+1] = prefSq[j] + b.target[i]*b.target[i]
	}

	stride := 1
	if len(known) > maxSplitCandidates {
		stride = len(known) / maxSplitCandidates
	}

	best := splitCandidate{feature: feature}
	found := false
	for j := stride; j < len(known); j += stride {
		lo := b.X[known[j-1]][feature]
		hi := b.X[known[j]][feature]
		if lo == hi {
			continue
		}
		threshold := (lo + hi) / 2

		leftSum, leftSq := prefSum[j], prefSq[j]
		rightSum := prefSum[len(known)] - leftSum
		rightSq := prefSq[len(known)] - leftSq
		nLeft, nRight := j, len(known)-j

		// Try routing the missing rows to each side.
		for _, missingLeft := range []bool{true, false} {
			ls, lq, ln := leftSum, leftSq, nLeft
			rs, rq, rn := rightSum, rightSq, nRight
			if missingLeft {
				ls += missingSum
				lq += missingSq
				ln += nMissing
			} else {
				rs += missingSum
				rq += missingSq
				rn += nMissing
			}
			if ln < b.minSamplesLeaf || rn < b.minSamplesLeaf {
				continue
			}
			sse := lq - ls*ls/float64(ln) + rq - rs*rs/float64(rn)
			gain := parentSSE - sse
			if !found || gain > best.gain {
				best.threshold = threshold
				best.missingLeft = missingLeft
				best.gain = gain
				found = true
			}
		}
	}
	return best, found
}

func (b *treeBuilder) partition(indices []int, split splitCandidate) (left, right []int) {
	for _, i := range indices {
		v := b.X[i][split.feature]
		goLeft := false
		if math.IsNaN(v) {
			goLeft = split.missingLeft
		} else {
			goLeft = v <= split.threshold
		}
		if goLeft {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

// sampleRows draws a without-replacement subsample of row indices, sorted
// for deterministic tree construction.
func sampleRows(rng *rand.Rand, n int, fraction float64) []int {
	k := int(float64(n) * fraction)
	if k < 1 {
		k = n
	}
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
