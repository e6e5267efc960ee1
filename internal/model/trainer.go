package model

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nba-ripple/internal/config"
	"github.com/stitts-dev/nba-ripple/internal/dataset"
	"github.com/stitts-dev/nba-ripple/internal/features"
	"github.com/stitts-dev/nba-ripple/internal/types"
	"github.com/stitts-dev/nba-ripple/pkg/logger"
)

// ridgeLambda is the fixed regularization strength of the comparison model.
const ridgeLambda = 1.0

// Trainer fits the per-stat baseline and ripple models off a processed
// dataset, picks the ripple formulation, and writes the artifact bundle.
type Trainer struct {
	cfg *config.Config
	log *logrus.Entry
}

// NewTrainer returns a trainer bound to the given configuration.
func NewTrainer(cfg *config.Config) *Trainer {
	return &Trainer{cfg: cfg, log: logger.WithComponent("trainer")}
}

// Train runs the full pipeline and returns the saved bundle.
func (t *Trainer) Train(ds *dataset.Dataset) (*Bundle, error) {
	split, err := t.cfg.SplitTime()
	if err != nil {
		return nil, err
	}

	trainRows, testRows := temporalSplit(ds.Rows(), split)
	if len(trainRows) == 0 {
		return nil, fmt.Errorf("no training rows before %s", t.cfg.SplitDate)
	}
	if len(testRows) == 0 {
		t.log.Warn("No test rows after split date; metrics and sensitivity will be empty")
	}
	t.log.WithFields(logrus.Fields{
		"train_rows": len(trainRows),
		"test_rows":  len(testRows),
		"split_date": t.cfg.SplitDate,
	}).Info("Temporal split complete")

	baseTrain := features.BuildMatrix(trainRows, features.BaselineFeatures)
	baseTest := features.BuildMatrix(testRows, features.BaselineFeatures)
	rippleTrain := features.BuildMatrix(trainRows, features.RippleFeatures)
	rippleTest := features.BuildMatrix(testRows, features.RippleFeatures)
	injuryTrain := features.BuildMatrix(trainRows, features.InjuryFeatures)
	injuryTest := features.BuildMatrix(testRows, features.InjuryFeatures)

	bundle := &Bundle{
		Baseline:         make(map[string]*GBRT, len(features.StatNames)),
		Ripple:           make(map[string]*GBRT, len(features.StatNames)),
		BaselineFeatures: append([]string{}, features.BaselineFeatures...),
		Metadata: Metadata{
			TrainedAt:       time.Now().UTC(),
			SplitDate:       t.cfg.SplitDate,
			TrainRows:       len(trainRows),
			TestRows:        len(testRows),
			Sensitivity:     make(map[string]float64),
			BaselineMetrics: make(map[string]Metrics),
			RippleMetrics:   make(map[string]Metrics),
			RidgeMetrics:    make(map[string]Metrics),
		},
	}

	fullRipple := make(map[string]*GBRT, len(features.StatNames))
	deltaRipple := make(map[string]*GBRT, len(features.StatNames))
	deltaComplete := true

	for _, stat := range features.StatNames {
		statLog := t.log.WithField("stat", stat)

		yTrain := targets(trainRows, stat)
		yTest := targets(testRows, stat)

		baseline := NewGBRT(t.params())
		bX, bY := dropMissingTargets(baseTrain, yTrain)
		if err := baseline.Fit(bX, bY); err != nil {
			return nil, fmt.Errorf("baseline %s: %w", stat, err)
		}
		bundle.Baseline[stat] = baseline

		if len(testRows) > 0 {
			pred, err := baseline.PredictBatch(baseTest)
			if err != nil {
				return nil, fmt.Errorf("baseline %s: %w", stat, err)
			}
			m := Evaluate(pred, yTest)
			bundle.Metadata.BaselineMetrics[stat] = m
			statLog.WithFields(logrus.Fields{"mae": m.MAE, "rmse": m.RMSE, "r2": m.R2}).Info("Baseline model evaluated")
		}

		ridge := NewRidge(ridgeLambda)
		if err := ridge.Fit(bX, bY); err != nil {
			statLog.WithError(err).Warn("Ridge comparison failed; skipping")
		} else if len(testRows) > 0 {
			pred, err := ridge.PredictBatch(baseTest)
			if err != nil {
				return nil, fmt.Errorf("ridge %s: %w", stat, err)
			}
			m := Evaluate(pred, yTest)
			bundle.Metadata.RidgeMetrics[stat] = m
			statLog.WithFields(logrus.Fields{"mae": m.MAE, "r2": m.R2}).Info("Ridge comparison evaluated")
		}

		full := NewGBRT(t.params())
		rX, rY := dropMissingTargets(rippleTrain, yTrain)
		if err := full.Fit(rX, rY); err != nil {
			return nil, fmt.Errorf("ripple %s: %w", stat, err)
		}
		fullRipple[stat] = full

		// The delta formulation regresses the deviation from season average
		// on the injury-context block alone, so baseline variance cannot
		// drown the injury signal.
		delta := NewGBRT(t.params())
		dX, dY := deltaTrainingSet(injuryTrain, trainRows, stat)
		if len(dX) > 0 {
			if err := delta.Fit(dX, dY); err != nil {
				return nil, fmt.Errorf("delta ripple %s: %w", stat, err)
			}
			deltaRipple[stat] = delta
		} else {
			statLog.Warn("No rows with season averages; delta formulation unavailable")
			deltaComplete = false
		}
	}

	sensitivity := t.measureSensitivity(fullRipple, rippleTest, testRows)
	bundle.Metadata.Sensitivity = sensitivity
	formulation := selectFormulation(sensitivity, t.cfg.SensitivityThreshold)
	if formulation == FormulationDelta && !deltaComplete {
		t.log.Warn("Delta formulation selected but not trainable; falling back to full")
		formulation = FormulationFull
	}
	bundle.Metadata.Formulation = formulation

	// The persisted feature list is the serving contract: full models read
	// the whole ripple vector, delta models only the injury block.
	if formulation == FormulationFull {
		bundle.Ripple = fullRipple
		bundle.RippleFeatures = append([]string{}, features.RippleFeatures...)
	} else {
		bundle.Ripple = deltaRipple
		bundle.RippleFeatures = append([]string{}, features.InjuryFeatures...)
	}
	t.log.WithFields(logrus.Fields{
		"formulation":   formulation.String(),
		"median_ripple": medianSensitivity(sensitivity),
		"threshold":     t.cfg.SensitivityThreshold,
	}).Info("Ripple formulation selected")

	if len(testRows) > 0 {
		evalX := rippleTest
		if formulation == FormulationDelta {
			evalX = injuryTest
		}
		for _, stat := range features.StatNames {
			pred, err := bundle.Ripple[stat].PredictBatch(evalX)
			if err != nil {
				return nil, fmt.Errorf("ripple eval %s: %w", stat, err)
			}
			if formulation == FormulationDelta {
				for i, row := range testRows {
					pred[i] += row.SeasonAverage(stat)
				}
			}
			bundle.Metadata.RippleMetrics[stat] = Evaluate(pred, targets(testRows, stat))
		}
	}

	if err := bundle.Save(t.cfg.ModelsDir); err != nil {
		return nil, err
	}
	t.log.WithField("dir", t.cfg.ModelsDir).Info("Model artifacts saved")
	return bundle, nil
}

func (t *Trainer) params() GBRTParams {
	return GBRTParams{
		Rounds:         t.cfg.BoostingRounds,
		LearningRate:   t.cfg.LearningRate,
		MaxDepth:       t.cfg.MaxTreeDepth,
		MinSamplesLeaf: t.cfg.MinSamplesLeaf,
		Seed:           t.cfg.TrainerSeed,
	}
}

// measureSensitivity quantifies how much the full-formulation models react
// to injury features: on test rows that actually had starters out, predict
// once with the real injury block and once with it zeroed, and average the
// absolute difference per stat.
func (t *Trainer) measureSensitivity(models map[string]*GBRT, rippleTest [][]float64, testRows []*types.PlayerGame) map[string]float64 {
	out := make(map[string]float64, len(models))

	injured := make([]int, 0, len(testRows))
	for i, row := range testRows {
		if row.NStartersOut > 0 {
			injured = append(injured, i)
		}
	}
	if len(injured) == 0 {
		t.log.Warn("No test rows with starters out; sensitivity defaults to zero")
		for stat := range models {
			out[stat] = 0
		}
		return out
	}

	injuryStart := len(features.BaselineFeatures)
	for stat, m := range models {
		var total float64
		n := 0
		for _, i := range injured {
			withInjury, err := m.Predict(rippleTest[i])
			if err != nil {
				continue
			}
			zeroed := append([]float64{}, rippleTest[i]...)
			for j := injuryStart; j < len(zeroed); j++ {
				zeroed[j] = 0
			}
			withoutInjury, err := m.Predict(zeroed)
			if err != nil {
				continue
			}
			total += math.Abs(withInjury - withoutInjury)
			n++
		}
		if n > 0 {
			out[stat] = total / float64(n)
		}
	}
	return out
}

// selectFormulation picks full when the median per-stat ripple magnitude
// clears the threshold, delta otherwise.
func selectFormulation(sensitivity map[string]float64, threshold float64) Formulation {
	if medianSensitivity(sensitivity) >= threshold {
		return FormulationFull
	}
	return FormulationDelta
}

func medianSensitivity(sensitivity map[string]float64) float64 {
	if len(sensitivity) == 0 {
		return 0
	}
	vals := make([]float64, 0, len(sensitivity))
	for _, v := range sensitivity {
		vals = append(vals, v)
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}

func temporalSplit(rows []*types.PlayerGame, split time.Time) (train, test []*types.PlayerGame) {
	for _, g := range rows {
		if g.GameDate.Before(split) {
			train = append(train, g)
		} else {
			test = append(test, g)
		}
	}
	return train, test
}

func targets(rows []*types.PlayerGame, stat string) []float64 {
	out := make([]float64, len(rows))
	for i, g := range rows {
		out[i] = g.Target(stat)
	}
	return out
}

// dropMissingTargets filters out rows whose target is missing so the trees
// only ever fit observed outcomes.
func dropMissingTargets(X [][]float64, y []float64) ([][]float64, []float64) {
	outX := make([][]float64, 0, len(X))
	outY := make([]float64, 0, len(y))
	for i := range y {
		if math.IsNaN(y[i]) {
			continue
		}
		outX = append(outX, X[i])
		outY = append(outY, y[i])
	}
	return outX, outY
}

// deltaTrainingSet builds the delta-formulation target: actual minus season
// average, restricted to rows where both exist.
func deltaTrainingSet(X [][]float64, rows []*types.PlayerGame, stat string) ([][]float64, []float64) {
	outX := make([][]float64, 0, len(X))
	outY := make([]float64, 0, len(rows))
	for i, g := range rows {
		actual := g.Target(stat)
		avg := g.SeasonAverage(stat)
		if math.IsNaN(actual) || math.IsNaN(avg) {
			continue
		}
		outX = append(outX, X[i])
		outY = append(outY, actual-avg)
	}
	return outX, outY
}
