package model

import "math"

// Metrics summarizes regression quality on a held-out set.
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
	N    int     `json:"n"`
}

// Evaluate computes MAE, RMSE and R-squared of predictions against actuals.
// Pairs where the actual is missing are skipped.
func Evaluate(predicted, actual []float64) Metrics {
	var absSum, sqSum float64
	kept := make([]float64, 0, len(actual))
	for i := range actual {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		d := predicted[i] - actual[i]
		absSum += math.Abs(d)
		sqSum += d * d
		kept = append(kept, actual[i])
	}
	m := Metrics{N: len(kept)}
	if m.N == 0 {
		return m
	}
	m.MAE = absSum / float64(m.N)
	m.RMSE = math.Sqrt(sqSum / float64(m.N))

	mu := mean(kept)
	var totalSq float64
	for _, v := range kept {
		totalSq += (v - mu) * (v - mu)
	}
	if totalSq == 0 {
		// Constant target: R2 is defined as zero unless the fit is exact.
		if sqSum == 0 {
			m.R2 = 1
		}
		return m
	}
	m.R2 = 1 - sqSum/totalSq
	return m
}
