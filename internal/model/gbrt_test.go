package model

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() GBRTParams {
	return GBRTParams{Rounds: 50, LearningRate: 0.1, MaxDepth: 3, MinSamplesLeaf: 5, Seed: 42}
}

// A step function is the easiest thing a tree ensemble should nail.
func stepData(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(7))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := rng.Float64() * 10
		X[i] = []float64{x, rng.Float64()}
		if x > 5 {
			y[i] = 20
		} else {
			y[i] = 5
		}
	}
	return X, y
}

func TestGBRTFitsStepFunction(t *testing.T) {
	X, y := stepData(400)
	m := NewGBRT(testParams())
	require.NoError(t, m.Fit(X, y))

	low, err := m.Predict([]float64{2, 0.5})
	require.NoError(t, err)
	high, err := m.Predict([]float64{8, 0.5})
	require.NoError(t, err)

	assert.InDelta(t, 5, low, 2.0)
	assert.InDelta(t, 20, high, 2.0)
}

func TestGBRTConstantTarget(t *testing.T) {
	X := make([][]float64, 50)
	y := make([]float64, 50)
	for i := range X {
		X[i] = []float64{float64(i)}
		y[i] = 11.5
	}
	m := NewGBRT(testParams())
	require.NoError(t, m.Fit(X, y))

	pred, err := m.Predict([]float64{25})
	require.NoError(t, err)
	assert.InDelta(t, 11.5, pred, 1e-6)
}

func TestGBRTRoutesMissingValues(t *testing.T) {
	// Feature 0 is missing for the high-target half, so the model can only
	// separate the classes by learning where NaN goes.
	X := make([][]float64, 200)
	y := make([]float64, 200)
	for i := range X {
		if i%2 == 0 {
			X[i] = []float64{math.NaN(), 1}
			y[i] = 30
		} else {
			X[i] = []float64{float64(i), 1}
			y[i] = 10
		}
	}
	m := NewGBRT(testParams())
	require.NoError(t, m.Fit(X, y))

	missing, err := m.Predict([]float64{math.NaN(), 1})
	require.NoError(t, err)
	present, err := m.Predict([]float64{50, 1})
	require.NoError(t, err)

	assert.False(t, math.IsNaN(missing), "missing input must never produce NaN")
	assert.Greater(t, missing, present, "NaN rows carry the higher target")
}

func TestGBRTRejectsBadInput(t *testing.T) {
	m := NewGBRT(testParams())
	assert.Error(t, m.Fit(nil, nil))
	assert.Error(t, m.Fit([][]float64{{1}}, []float64{1, 2}))
	assert.Error(t, m.Fit([][]float64{{1}}, []float64{math.NaN()}))

	X, y := stepData(100)
	require.NoError(t, m.Fit(X, y))
	_, err := m.Predict([]float64{1, 2, 3})
	assert.Error(t, err, "vector length must match training")
}

func TestGBRTDeterministicForSeed(t *testing.T) {
	X, y := stepData(200)

	a := NewGBRT(testParams())
	require.NoError(t, a.Fit(X, y))
	b := NewGBRT(testParams())
	require.NoError(t, b.Fit(X, y))

	pa, err := a.Predict(X[0])
	require.NoError(t, err)
	pb, err := b.Predict(X[0])
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestGBRTJSONRoundTrip(t *testing.T) {
	X, y := stepData(200)
	m := NewGBRT(testParams())
	require.NoError(t, m.Fit(X, y))

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var loaded GBRT
	require.NoError(t, json.Unmarshal(data, &loaded))

	for _, x := range X[:20] {
		want, err := m.Predict(x)
		require.NoError(t, err)
		got, err := loaded.Predict(x)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
