// Package engine is the serving core: it loads the processed dataset and
// the trained model artifacts, builds inference scenarios, and answers the
// prediction and ripple queries the API exposes.
package engine

import (
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nba-ripple/internal/config"
	"github.com/stitts-dev/nba-ripple/internal/dataset"
	"github.com/stitts-dev/nba-ripple/internal/features"
	"github.com/stitts-dev/nba-ripple/internal/injury"
	"github.com/stitts-dev/nba-ripple/internal/model"
	"github.com/stitts-dev/nba-ripple/internal/types"
	"github.com/stitts-dev/nba-ripple/pkg/logger"
)

// state is one immutable snapshot of everything serving needs. Reload builds
// a fresh snapshot and swaps the pointer, so in-flight requests keep the
// snapshot they started with.
type state struct {
	ds     *dataset.Dataset
	bundle *model.Bundle
}

// Engine answers prediction queries against the loaded artifacts. Safe for
// concurrent use.
type Engine struct {
	cfg *config.Config
	log *logrus.Entry

	current atomic.Pointer[state]
	loadMu  sync.Mutex
}

// New returns an engine that loads artifacts lazily on first use.
func New(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg, log: logger.WithComponent("engine")}
}

// Reload rebuilds the snapshot from disk and atomically swaps it in.
func (e *Engine) Reload() error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	return e.load()
}

// Ready reports whether artifacts are loadable, loading them if needed.
func (e *Engine) Ready() error {
	_, err := e.state()
	return err
}

// Metadata returns the loaded training metadata.
func (e *Engine) Metadata() (model.Metadata, error) {
	st, err := e.state()
	if err != nil {
		return model.Metadata{}, err
	}
	return st.bundle.Metadata, nil
}

func (e *Engine) state() (*state, error) {
	if st := e.current.Load(); st != nil {
		return st, nil
	}
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if st := e.current.Load(); st != nil {
		return st, nil
	}
	if err := e.load(); err != nil {
		return nil, err
	}
	return e.current.Load(), nil
}

// load must be called with loadMu held.
func (e *Engine) load() error {
	ds, err := dataset.LoadProcessed(filepath.Join(e.cfg.ProcessedDataDir, "player_games.csv"))
	if err != nil {
		return err
	}
	bundle, err := model.Load(e.cfg.ModelsDir, features.StatNames)
	if err != nil {
		return err
	}
	e.current.Store(&state{ds: ds, bundle: bundle})
	e.log.WithFields(logrus.Fields{
		"rows":        ds.Len(),
		"formulation": bundle.Metadata.Formulation.String(),
	}).Info("Engine artifacts loaded")
	return nil
}

// PredictBaseline predicts a player's stat line with no injuries in play,
// optionally conditioned on an opponent and home/away setting.
func (e *Engine) PredictBaseline(playerID int64, game types.GameContext) (*types.BaselinePrediction, error) {
	st, err := e.state()
	if err != nil {
		return nil, err
	}

	row, matchup, err := e.scenarioRow(st, playerID, game)
	if err != nil {
		return nil, err
	}
	types.InjuryContext{ConfigHash: types.HealthyConfigHash}.Apply(row)

	preds, err := e.score(st.bundle.Baseline, st.bundle.BaselineFeatures, row, model.FormulationFull)
	if err != nil {
		return nil, err
	}
	return &types.BaselinePrediction{
		PlayerID:    playerID,
		PlayerName:  st.ds.PlayerName(playerID),
		Predictions: preds,
		MatchupData: matchup,
	}, nil
}

// PredictWithInjuries predicts a player's stat line with the given teammates
// absent. The injury context is always the player's own team's.
func (e *Engine) PredictWithInjuries(playerID int64, absentIDs []int64, game types.GameContext) (*types.InjuryPrediction, error) {
	st, err := e.state()
	if err != nil {
		return nil, err
	}

	row, matchup, err := e.scenarioRow(st, playerID, game)
	if err != nil {
		return nil, err
	}

	team, ok := st.ds.CurrentTeam(playerID)
	if !ok {
		return nil, types.NotFoundf("player %d has no team", playerID)
	}
	ctx := injury.Compute(st.ds, e.cfg, team, absentIDs, game.Date)
	ctx.Apply(row)

	preds, err := e.score(st.bundle.Ripple, st.bundle.RippleFeatures, row, st.bundle.Metadata.Formulation)
	if err != nil {
		return nil, err
	}
	return &types.InjuryPrediction{
		PlayerID:      playerID,
		PlayerName:    st.ds.PlayerName(playerID),
		Predictions:   preds,
		InjuryContext: ctx,
		MatchupData:   matchup,
	}, nil
}

// GetRippleEffect predicts how the given absences shift every remaining
// rotation player on the team. Both sides of the comparison use the ripple
// models, one with the real injury context and one with it cleared, so an
// empty absence set always yields a zero ripple. Players whose scenario
// cannot be built are skipped with a log line rather than failing the whole
// response.
func (e *Engine) GetRippleEffect(teamAbbr string, absentIDs []int64, game types.GameContext) (*types.RippleResult, error) {
	st, err := e.state()
	if err != nil {
		return nil, err
	}

	absent := make(map[int64]bool, len(absentIDs))
	for _, id := range absentIDs {
		absent[id] = true
	}
	if len(st.ds.TeamRows(teamAbbr, game.Date)) == 0 {
		return nil, types.NotFoundf("team %s", teamAbbr)
	}
	active := st.ds.ActivePlayers(teamAbbr, absent, game.Date)

	ctx := injury.Compute(st.ds, e.cfg, teamAbbr, absentIDs, game.Date)

	result := &types.RippleResult{
		Team:          teamAbbr,
		InjuryContext: ctx,
		AbsentPlayers: make([]types.AbsentPlayer, 0, len(absentIDs)),
	}
	for _, id := range absentIDs {
		result.AbsentPlayers = append(result.AbsentPlayers, types.AbsentPlayer{
			PlayerID:   id,
			PlayerName: st.ds.PlayerName(id),
		})
	}

	formulation := st.bundle.Metadata.Formulation
	for _, playerID := range active {
		row, _, err := e.scenarioRow(st, playerID, game)
		if err != nil {
			e.log.WithError(err).WithField("player_id", playerID).Warn("Skipping player in ripple response")
			continue
		}

		healthy := *row
		types.InjuryContext{ConfigHash: types.HealthyConfigHash}.Apply(&healthy)
		baseline, err := e.score(st.bundle.Ripple, st.bundle.RippleFeatures, &healthy, formulation)
		if err != nil {
			return nil, err
		}

		ctx.Apply(row)
		withInjuries, err := e.score(st.bundle.Ripple, st.bundle.RippleFeatures, row, formulation)
		if err != nil {
			return nil, err
		}

		ripple := make(types.StatLine, len(baseline))
		for _, stat := range features.StatNames {
			ripple[stat] = round1(withInjuries[stat] - baseline[stat])
		}
		result.PlayerPredictions = append(result.PlayerPredictions, types.PlayerPrediction{
			PlayerID:     playerID,
			PlayerName:   st.ds.PlayerName(playerID),
			Baseline:     baseline,
			WithInjuries: withInjuries,
			RippleEffect: ripple,
		})
	}
	return result, nil
}

// SimulateInjury is the what-if form of the ripple query: one hypothetical
// absence, with the scenario's game context applied to every teammate. The
// team comes from the injured player's current-team column, never the
// caller.
func (e *Engine) SimulateInjury(injuredPlayerID int64, game types.GameContext) (*types.RippleResult, error) {
	st, err := e.state()
	if err != nil {
		return nil, err
	}
	team, ok := st.ds.CurrentTeam(injuredPlayerID)
	if !ok {
		return nil, types.NotFoundf("player %d has no team", injuredPlayerID)
	}
	return e.GetRippleEffect(team, []int64{injuredPlayerID}, game)
}

// scenarioRow builds the inference row for a player: their most recent
// processed row with the requested game context overlaid. The second return
// is "unavailable" when opponent history was requested but absent.
func (e *Engine) scenarioRow(st *state, playerID int64, game types.GameContext) (*types.PlayerGame, string, error) {
	latest, err := st.ds.LatestRowBefore(playerID, game.Date)
	if err != nil {
		return nil, "", err
	}
	row := *latest

	if game.HomeOrAway != "" {
		row.HomeAway = game.HomeOrAway
	}

	matchup := ""
	if game.Opponent != "" {
		row.Opponent = game.Opponent
		if opp, ok := st.ds.LatestOpponentRow(playerID, game.Opponent, game.Date); ok {
			row.VsOppAvgPts = opp.VsOppAvgPts
			row.VsOppAvgReb = opp.VsOppAvgReb
			row.VsOppAvgAst = opp.VsOppAvgAst
		} else {
			// No history against this opponent: fall back to overall averages.
			row.VsOppAvgPts = latest.SeasonAvgPts
			row.VsOppAvgReb = latest.SeasonAvgReb
			row.VsOppAvgAst = latest.SeasonAvgAst
			matchup = "unavailable"
		}
	}
	return &row, matchup, nil
}

// score runs every per-stat model over the row's feature vector, built in
// the order of the loaded artifact's feature list. Delta formulation
// predictions get the season average added back. Outputs are clamped at
// zero and rounded to one decimal.
func (e *Engine) score(models map[string]*model.GBRT, featureList []string, row *types.PlayerGame, formulation model.Formulation) (types.StatLine, error) {
	vector := features.BuildVector(row, featureList)
	out := make(types.StatLine, len(models))
	for _, stat := range features.StatNames {
		m, ok := models[stat]
		if !ok {
			return nil, types.ArtifactMissingf("no model for stat %s", stat)
		}
		pred, err := m.Predict(vector)
		if err != nil {
			return nil, err
		}
		if formulation == model.FormulationDelta {
			if avg := row.SeasonAverage(stat); !math.IsNaN(avg) {
				pred += avg
			}
		}
		if pred < 0 {
			pred = 0
		}
		out[stat] = round1(pred)
	}
	return out, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Dataset exposes the loaded dataset for read-only lookups.
func (e *Engine) Dataset() (*dataset.Dataset, error) {
	st, err := e.state()
	if err != nil {
		return nil, err
	}
	return st.ds, nil
}
