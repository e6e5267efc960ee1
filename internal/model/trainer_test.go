package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nba-ripple/internal/config"
	"github.com/stitts-dev/nba-ripple/internal/dataset"
	"github.com/stitts-dev/nba-ripple/internal/features"
	"github.com/stitts-dev/nba-ripple/internal/types"
)

func testTrainerConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ModelsDir:            t.TempDir(),
		SplitDate:            "2024-10-01",
		MinGamesForRole:      5,
		SensitivityThreshold: 0.3,
		BoostingRounds:       20,
		LearningRate:         0.1,
		MaxTreeDepth:         3,
		MinSamplesLeaf:       5,
		TrainerSeed:          42,
	}
}

// syntheticRows builds a processed-style dataset where every stat shifts
// when starters are out, so the injury features carry real signal.
func syntheticRows() []*types.PlayerGame {
	rows := make([]*types.PlayerGame, 0, 600)
	for playerID := int64(1); playerID <= 10; playerID++ {
		for day := 0; day < 60; day++ {
			var date time.Time
			if day < 45 {
				date = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
			} else {
				date = time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day-45)
			}

			startersOut := 0.0
			if day%4 == 0 {
				startersOut = 1
			}
			noise := float64((day*int(playerID))%5) - 2

			base := 10 + float64(playerID)
			g := &types.PlayerGame{
				PlayerID:   playerID,
				PlayerName: "Player",
				TeamID:     1,
				TeamAbbr:   "LAL",
				Season:     "2023-24",
				GameID:     date.Format("20060102"),
				GameDate:   date,
				Opponent:   "BOS",
				HomeAway:   "HOME",
				Position:   "F",
			}
			g.SeasonAvgPts = base
			g.SeasonAvgAst = base / 4
			g.SeasonAvgReb = base / 3
			g.SeasonAvgStl = 1
			g.SeasonAvgBlk = 0.5
			g.SeasonAvgMinutes = 30
			g.SeasonAvgFgPct = 0.45
			g.SeasonAvgFtPct = 0.78
			g.GamesPlayedSeason = float64(day)
			g.NStartersOut = startersOut

			g.TargetPts = base + 6*startersOut + noise
			g.TargetAst = base/4 + 2*startersOut + noise/4
			g.TargetReb = base/3 + 2*startersOut + noise/4
			g.TargetStl = 1 + startersOut
			g.TargetBlk = 0.5 + startersOut
			g.TargetFgPct = 0.45 + 0.2*startersOut
			g.TargetFtPct = 0.78 + 0.2*startersOut
			g.TargetMinutes = 30 + 4*startersOut + noise

			rows = append(rows, g)
		}
	}
	return rows
}

func TestTrainerProducesLoadableBundle(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	cfg := testTrainerConfig(t)
	ds := dataset.New(syntheticRows())

	bundle, err := NewTrainer(cfg).Train(ds)
	require.NoError(t, err)

	require.Len(t, bundle.Baseline, len(features.StatNames))
	require.Len(t, bundle.Ripple, len(features.StatNames))
	assert.Equal(t, features.BaselineFeatures, bundle.BaselineFeatures)
	assert.Equal(t, features.RippleFeatures, bundle.RippleFeatures)

	assert.Greater(t, bundle.Metadata.TrainRows, 0)
	assert.Greater(t, bundle.Metadata.TestRows, 0)
	assert.Len(t, bundle.Metadata.Sensitivity, len(features.StatNames))

	for _, name := range []string{"baseline_pts.json", "ripple_pts.json", "baseline_features.json", "ripple_features.json", "metadata.json"} {
		_, err := os.Stat(filepath.Join(cfg.ModelsDir, name))
		assert.NoError(t, err, name)
	}

	loaded, err := Load(cfg.ModelsDir, features.StatNames)
	require.NoError(t, err)
	assert.Equal(t, bundle.Metadata.Formulation, loaded.Metadata.Formulation)

	vec := features.BuildVector(ds.Rows()[0], features.BaselineFeatures)
	want, err := bundle.Baseline["pts"].Predict(vec)
	require.NoError(t, err)
	got, err := loaded.Baseline["pts"].Predict(vec)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTrainerPicksFullFormulationOnStrongSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	cfg := testTrainerConfig(t)
	ds := dataset.New(syntheticRows())

	bundle, err := NewTrainer(cfg).Train(ds)
	require.NoError(t, err)

	assert.Equal(t, FormulationFull, bundle.Metadata.Formulation,
		"every stat shifts with starters out, so the ripple models must react")
	assert.GreaterOrEqual(t, medianSensitivity(bundle.Metadata.Sensitivity), cfg.SensitivityThreshold)
}

func TestTrainerDeltaModelsUseInjuryFeaturesOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	cfg := testTrainerConfig(t)
	cfg.SensitivityThreshold = 1e9 // no signal clears this, forcing delta
	ds := dataset.New(syntheticRows())

	bundle, err := NewTrainer(cfg).Train(ds)
	require.NoError(t, err)

	require.Equal(t, FormulationDelta, bundle.Metadata.Formulation)
	assert.Equal(t, features.InjuryFeatures, bundle.RippleFeatures,
		"delta formulation must persist the injury feature list as the serving contract")
	for _, stat := range features.StatNames {
		assert.Equal(t, len(features.InjuryFeatures), bundle.Ripple[stat].NumFeatures, stat)
	}

	// The persisted list and the model agree end to end.
	loaded, err := Load(cfg.ModelsDir, features.StatNames)
	require.NoError(t, err)
	vec := features.BuildVector(ds.Rows()[0], loaded.RippleFeatures)
	_, err = loaded.Ripple["pts"].Predict(vec)
	assert.NoError(t, err)
}

func TestTrainerRequiresTrainingRows(t *testing.T) {
	cfg := testTrainerConfig(t)
	cfg.SplitDate = "2020-01-01" // everything lands in the test window
	ds := dataset.New(syntheticRows())

	_, err := NewTrainer(cfg).Train(ds)
	assert.Error(t, err)
}

func TestLoadMissingArtifacts(t *testing.T) {
	_, err := Load(t.TempDir(), features.StatNames)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrArtifactMissing)
}
