package features

import (
	"strings"

	"github.com/stitts-dev/nba-ripple/internal/types"
)

// BuildVector builds one feature vector from a row in featureList order.
// This is the single code path for feature construction: training builds its
// matrices through it and inference calls it with synthesized scenario rows,
// so the two can never drift apart.
//
// Named features the row does not carry come out as the missing sentinel,
// never as an error; the models tolerate missing values natively.
func BuildVector(row *types.PlayerGame, featureList []string) []float64 {
	posG, posF, posC := encodePosition(row.Position)
	isHome := encodeHomeAway(row.HomeAway)

	values := make([]float64, len(featureList))
	for i, name := range featureList {
		switch name {
		case "pos_G":
			values[i] = posG
		case "pos_F":
			values[i] = posF
		case "pos_C":
			values[i] = posC
		case "is_home":
			values[i] = isHome
		default:
			if v, ok := row.FeatureValue(name); ok {
				values[i] = v
			} else {
				values[i] = types.Missing()
			}
		}
	}
	return values
}

// BuildMatrix is the batch variant used in training. It must produce results
// numerically identical, row by row, to repeated BuildVector calls; that
// identity is the anti-skew guarantee and is property-tested.
func BuildMatrix(rows []*types.PlayerGame, featureList []string) [][]float64 {
	matrix := make([][]float64, len(rows))
	for i, row := range rows {
		matrix[i] = BuildVector(row, featureList)
	}
	return matrix
}

// encodePosition turns a position string into multi-label dummies by
// substring containment, so "G-F" sets both guard and forward.
func encodePosition(position string) (posG, posF, posC float64) {
	pos := strings.ToUpper(position)
	if strings.Contains(pos, "G") {
		posG = 1
	}
	if strings.Contains(pos, "F") {
		posF = 1
	}
	if strings.Contains(pos, "C") {
		posC = 1
	}
	return posG, posF, posC
}

func encodeHomeAway(homeAway string) float64 {
	if strings.EqualFold(strings.TrimSpace(homeAway), "HOME") {
		return 1
	}
	return 0
}
