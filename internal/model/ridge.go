package model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Ridge is an L2-regularized linear model. It cannot see missing values, so
// fitting learns per-feature medians for imputation along with
// standardization scales. It exists as a sanity check against the boosted
// trees during training and never ships as a serving artifact.
type Ridge struct {
	Lambda float64

	weights   []float64
	intercept float64
	medians   []float64
	means     []float64
	scales    []float64
}

// NewRidge returns an untrained model with regularization strength lambda.
func NewRidge(lambda float64) *Ridge {
	return &Ridge{Lambda: lambda}
}

// Fit solves the regularized normal equations on the imputed, standardized
// design matrix.
func (r *Ridge) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("ridge: no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("ridge: %d rows but %d targets", len(X), len(y))
	}
	nRows, nCols := len(X), len(X[0])

	r.medians = columnMedians(X)
	r.means = make([]float64, nCols)
	r.scales = make([]float64, nCols)

	dense := mat.NewDense(nRows, nCols, nil)
	for j := 0; j < nCols; j++ {
		col := make([]float64, nRows)
		for i := 0; i < nRows; i++ {
			v := X[i][j]
			if math.IsNaN(v) {
				v = r.medians[j]
			}
			col[i] = v
			r.means[j] += v
		}
		r.means[j] /= float64(nRows)

		variance := 0.0
		for i := range col {
			d := col[i] - r.means[j]
			variance += d * d
		}
		r.scales[j] = math.Sqrt(variance / float64(nRows))
		if r.scales[j] == 0 {
			r.scales[j] = 1
		}
		for i := range col {
			dense.Set(i, j, (col[i]-r.means[j])/r.scales[j])
		}
	}

	yMean := mean(y)
	yVec := mat.NewVecDense(nRows, nil)
	for i := range y {
		yVec.SetVec(i, y[i]-yMean)
	}

	var gram mat.SymDense
	gram.SymOuterK(1, dense.T())
	for j := 0; j < nCols; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.Lambda)
	}

	var xty mat.VecDense
	xty.MulVec(dense.T(), yVec)

	var chol mat.Cholesky
	if !chol.Factorize(&gram) {
		return fmt.Errorf("ridge: gram matrix not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &xty); err != nil {
		return fmt.Errorf("ridge: solve: %w", err)
	}

	r.weights = make([]float64, nCols)
	for j := 0; j < nCols; j++ {
		r.weights[j] = w.AtVec(j)
	}
	r.intercept = yMean
	return nil
}

// Predict scores one feature vector, imputing missing entries with the
// medians learned at fit time.
func (r *Ridge) Predict(x []float64) (float64, error) {
	if len(x) != len(r.weights) {
		return 0, fmt.Errorf("ridge: got %d features, model expects %d", len(x), len(r.weights))
	}
	score := r.intercept
	for j, v := range x {
		if math.IsNaN(v) {
			v = r.medians[j]
		}
		score += r.weights[j] * (v - r.means[j]) / r.scales[j]
	}
	return score, nil
}

// PredictBatch scores every row.
func (r *Ridge) PredictBatch(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, x := range X {
		v, err := r.Predict(x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// columnMedians computes per-column medians over non-missing entries. A
// column with no observed values gets zero.
func columnMedians(X [][]float64) []float64 {
	nCols := len(X[0])
	medians := make([]float64, nCols)
	for j := 0; j < nCols; j++ {
		col := make([]float64, 0, len(X))
		for i := range X {
			if !math.IsNaN(X[i][j]) {
				col = append(col, X[i][j])
			}
		}
		if len(col) == 0 {
			continue
		}
		sort.Float64s(col)
		mid := len(col) / 2
		if len(col)%2 == 1 {
			medians[j] = col[mid]
		} else {
			medians[j] = (col[mid-1] + col[mid]) / 2
		}
	}
	return medians
}
