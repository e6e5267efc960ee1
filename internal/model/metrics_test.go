package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateKnownValues(t *testing.T) {
	pred := []float64{1, 2, 3, 4}
	actual := []float64{1, 2, 5, 4}

	m := Evaluate(pred, actual)
	assert.Equal(t, 4, m.N)
	assert.InDelta(t, 0.5, m.MAE, 1e-9)
	assert.InDelta(t, 1.0, m.RMSE, 1e-9)
	assert.Less(t, m.R2, 1.0)
}

func TestEvaluatePerfectFit(t *testing.T) {
	vals := []float64{3, 7, 11}
	m := Evaluate(vals, vals)
	assert.Equal(t, 0.0, m.MAE)
	assert.Equal(t, 1.0, m.R2)
}

func TestEvaluateSkipsMissingActuals(t *testing.T) {
	pred := []float64{1, 2, 3}
	actual := []float64{1, math.NaN(), 3}
	m := Evaluate(pred, actual)
	assert.Equal(t, 2, m.N)
	assert.Equal(t, 0.0, m.MAE)
}

func TestEvaluateConstantTarget(t *testing.T) {
	m := Evaluate([]float64{5, 5}, []float64{5, 5})
	assert.Equal(t, 1.0, m.R2, "exact fit of a constant is perfect")

	m = Evaluate([]float64{4, 6}, []float64{5, 5})
	assert.Equal(t, 0.0, m.R2, "constant target with error has no explainable variance")
}

func TestSelectFormulationThreshold(t *testing.T) {
	strong := map[string]float64{
		"pts": 1.2, "ast": 0.5, "reb": 0.6, "stl": 0.1,
		"blk": 0.1, "fg_pct": 0.4, "ft_pct": 0.35, "minutes": 2.0,
	}
	assert.Equal(t, FormulationFull, selectFormulation(strong, 0.3))

	weak := map[string]float64{
		"pts": 0.4, "ast": 0.1, "reb": 0.1, "stl": 0.0,
		"blk": 0.0, "fg_pct": 0.05, "ft_pct": 0.05, "minutes": 0.2,
	}
	assert.Equal(t, FormulationDelta, selectFormulation(weak, 0.3))

	assert.Equal(t, FormulationDelta, selectFormulation(nil, 0.3))
}

func TestMedianSensitivity(t *testing.T) {
	assert.Equal(t, 0.0, medianSensitivity(nil))
	assert.Equal(t, 2.0, medianSensitivity(map[string]float64{"a": 1, "b": 2, "c": 3}))
	assert.Equal(t, 2.5, medianSensitivity(map[string]float64{"a": 1, "b": 2, "c": 3, "d": 4}))
}

func TestFormulationJSON(t *testing.T) {
	data, err := FormulationDelta.MarshalJSON()
	assert.NoError(t, err)
	assert.JSONEq(t, `"delta"`, string(data))

	var f Formulation
	assert.NoError(t, f.UnmarshalJSON([]byte(`"delta"`)))
	assert.Equal(t, FormulationDelta, f)
	assert.Error(t, f.UnmarshalJSON([]byte(`"bogus"`)))
}
