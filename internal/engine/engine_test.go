package engine

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nba-ripple/internal/config"
	"github.com/stitts-dev/nba-ripple/internal/dataset"
	"github.com/stitts-dev/nba-ripple/internal/features"
	"github.com/stitts-dev/nba-ripple/internal/injury"
	"github.com/stitts-dev/nba-ripple/internal/model"
	"github.com/stitts-dev/nba-ripple/internal/roles"
	"github.com/stitts-dev/nba-ripple/internal/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ProcessedDataDir:     t.TempDir(),
		ModelsDir:            t.TempDir(),
		SplitDate:            "2024-10-01",
		MinGamesForRole:      5,
		SensitivityThreshold: 0.3,
		BoostingRounds:       15,
		LearningRate:         0.1,
		MaxTreeDepth:         3,
		MinSamplesLeaf:       5,
		TrainerSeed:          42,
	}
}

// buildArtifacts runs the real pipeline over a small two-team league and
// writes processed data plus trained models into the config's directories.
// Team LAL holds players 1..8, BOS 101..108. LAL's player 8 misses every
// fifth game and his teammates score more in those games, so the ripple
// models have genuine injury signal to learn.
func buildArtifacts(t *testing.T, cfg *config.Config) {
	t.Helper()

	teams := []struct {
		id       int64
		abbr     string
		opponent string
		base     int64
	}{
		{1, "LAL", "BOS", 0},
		{2, "BOS", "LAL", 100},
	}

	var rows []*types.PlayerGame
	var rosters []types.RosterEntry
	for _, team := range teams {
		for i := int64(1); i <= 8; i++ {
			playerID := team.base + i
			for _, season := range []string{"2023-24", "2024-25"} {
				rosters = append(rosters, types.RosterEntry{
					PlayerID: playerID, TeamID: team.id, Season: season,
					Position: "F", Age: 22 + float64(i), Experience: float64(i),
				})
			}
		}
	}

	for g := 1; g <= 52; g++ {
		var date time.Time
		season := "2023-24"
		if g <= 40 {
			date = time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 2*g)
		} else {
			date = time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 2*(g-40))
			season = "2024-25"
		}
		gameID := fmt.Sprintf("G%03d", g)
		for _, team := range teams {
			homeAway := "HOME"
			if (g+int(team.id))%2 == 0 {
				homeAway = "AWAY"
			}
			for i := int64(1); i <= 8; i++ {
				if team.abbr == "LAL" && i == 8 && g%5 == 0 {
					continue // player 8 sits out
				}
				playerID := team.base + i
				pts := float64(28-3*i) + float64(g%3)
				if team.abbr == "LAL" && g%5 == 0 {
					pts += 4 // teammates absorb the sitting player's shots
				}
				rows = append(rows, &types.PlayerGame{
					PlayerID:   playerID,
					PlayerName: fmt.Sprintf("%s Player %d", team.abbr, i),
					TeamID:     team.id,
					TeamAbbr:   team.abbr,
					GameID:     gameID,
					GameDate:   date,
					Season:     season,
					Opponent:   team.opponent,
					HomeAway:   homeAway,
					Pts:        pts,
					Ast:        float64(8) - float64(i)*0.5,
					Reb:        float64(10) - float64(i),
					Stl:        1.5 - float64(i)*0.1,
					Blk:        1.2 - float64(i)*0.1,
					Tov:        2,
					FgPct:      0.5,
					FtPct:      0.8,
					Fg3Pct:     0.35,
					PlusMinus:  float64(4 - int(i)),
					Minutes:    float64(38 - 3*i),
				})
			}
		}
	}

	features.BuildPlayerFeatures(rows, rosters)
	features.BuildTargets(rows)
	features.AssignCurrentTeam(rows)
	roleRows := roles.Detect(rows, rosters, cfg.MinGamesForRole)
	absences := injury.DeriveAbsences(rows, rosters)
	injury.Annotate(rows, absences, roleRows)
	rows = features.DropRowsWithoutHistory(rows)

	require.NoError(t, dataset.SaveProcessed(filepath.Join(cfg.ProcessedDataDir, "player_games.csv"), rows))

	ds, err := dataset.LoadProcessed(filepath.Join(cfg.ProcessedDataDir, "player_games.csv"))
	require.NoError(t, err)
	_, err = model.NewTrainer(cfg).Train(ds)
	require.NoError(t, err)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := testConfig(t)
	buildArtifacts(t, cfg)
	return New(cfg)
}

func assertOneDecimal(t *testing.T, line types.StatLine) {
	t.Helper()
	for stat, v := range line {
		assert.InDelta(t, math.Round(v*10)/10, v, 1e-9, "stat %s not rounded", stat)
	}
}

func TestPredictBaseline(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	eng := newTestEngine(t)

	pred, err := eng.PredictBaseline(1, types.GameContext{Opponent: "BOS"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), pred.PlayerID)
	assert.Equal(t, "LAL Player 1", pred.PlayerName)
	assert.Empty(t, pred.MatchupData, "plenty of history against BOS")
	require.Len(t, pred.Predictions, len(features.StatNames))
	for stat, v := range pred.Predictions {
		assert.GreaterOrEqual(t, v, 0.0, "stat %s", stat)
	}
	assertOneDecimal(t, pred.Predictions)

	// The top scorer should project for more points than the last man.
	low, err := eng.PredictBaseline(7, types.GameContext{Opponent: "BOS"})
	require.NoError(t, err)
	assert.Greater(t, pred.Predictions["pts"], low.Predictions["pts"])
}

func TestPredictBaselineUnknownOpponent(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	eng := newTestEngine(t)

	pred, err := eng.PredictBaseline(1, types.GameContext{Opponent: "XYZ"})
	require.NoError(t, err)
	assert.Equal(t, "unavailable", pred.MatchupData)
}

func TestPredictUnknownPlayer(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	eng := newTestEngine(t)

	_, err := eng.PredictBaseline(99999, types.GameContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestPredictWithInjuries(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	eng := newTestEngine(t)

	pred, err := eng.PredictWithInjuries(2, []int64{1}, types.GameContext{Opponent: "BOS"})
	require.NoError(t, err)

	assert.Equal(t, 1, pred.InjuryContext.NStartersOut)
	assert.Equal(t, 1, pred.InjuryContext.Starter1Out)
	require.Len(t, pred.Predictions, len(features.StatNames))
	assertOneDecimal(t, pred.Predictions)
}

func TestRippleEffectEmptyAbsenceIsZero(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	eng := newTestEngine(t)

	result, err := eng.GetRippleEffect("LAL", nil, types.GameContext{})
	require.NoError(t, err)

	assert.Equal(t, types.HealthyConfigHash, result.InjuryContext.ConfigHash)
	assert.Empty(t, result.AbsentPlayers)
	require.NotEmpty(t, result.PlayerPredictions)
	for _, p := range result.PlayerPredictions {
		for stat, v := range p.RippleEffect {
			assert.Equal(t, 0.0, v, "player %d stat %s", p.PlayerID, stat)
		}
	}
}

func TestRippleEffectStarterOut(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	eng := newTestEngine(t)

	result, err := eng.GetRippleEffect("LAL", []int64{1}, types.GameContext{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.InjuryContext.NStartersOut)
	assert.Equal(t, 1, result.InjuryContext.Starter1Out)
	assert.Equal(t, 1, result.InjuryContext.PrimaryScorerOut, "player 1 leads LAL in scoring")
	assert.Greater(t, result.InjuryContext.TotalPtsLost, 0.0)

	require.Len(t, result.AbsentPlayers, 1)
	assert.Equal(t, int64(1), result.AbsentPlayers[0].PlayerID)

	positivePts := false
	for _, p := range result.PlayerPredictions {
		assert.NotEqual(t, int64(1), p.PlayerID, "absent player gets no prediction")
		assertOneDecimal(t, p.RippleEffect)
		if p.RippleEffect["pts"] > 0 {
			positivePts = true
		}
	}
	assert.True(t, positivePts, "teammates score more during absences, so losing a starter must lift someone's points")
}

func TestRippleEffectUnknownTeam(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	eng := newTestEngine(t)

	_, err := eng.GetRippleEffect("ZZZ", []int64{1}, types.GameContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSimulateInjuryMatchesRipple(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	eng := newTestEngine(t)

	sim, err := eng.SimulateInjury(101, types.GameContext{Opponent: "LAL"})
	require.NoError(t, err)
	ripple, err := eng.GetRippleEffect("BOS", []int64{101}, types.GameContext{Opponent: "LAL"})
	require.NoError(t, err)

	assert.Equal(t, "BOS", sim.Team, "team resolved from the player's current team")
	assert.Equal(t, ripple.InjuryContext, sim.InjuryContext)
	assert.Equal(t, ripple.AbsentPlayers, sim.AbsentPlayers)
}

func TestSimulateInjuryUnknownPlayer(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	eng := newTestEngine(t)

	_, err := eng.SimulateInjury(99999, types.GameContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestEngineMissingArtifacts(t *testing.T) {
	eng := New(testConfig(t))

	err := eng.Ready()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrArtifactMissing)
}

func TestEngineReload(t *testing.T) {
	if testing.Short() {
		t.Skip("trains real models")
	}
	cfg := testConfig(t)
	buildArtifacts(t, cfg)
	eng := New(cfg)

	require.NoError(t, eng.Ready())
	require.NoError(t, eng.Reload())

	meta, err := eng.Metadata()
	require.NoError(t, err)
	assert.Equal(t, cfg.SplitDate, meta.SplitDate)
}
