package types

import (
	"math"
	"time"
)

// HealthyConfigHash identifies the empty absence set.
const HealthyConfigHash = "healthy"

// Missing returns the missing-value sentinel for numeric fields.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether a numeric field carries the missing sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// PlayerGame is one row of the processed dataset: a single player's stats
// and context for a single game. Numeric fields use NaN as the explicit
// missing sentinel rather than a zero value.
type PlayerGame struct {
	// Identifiers
	PlayerID    int64     `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	TeamID      int64     `json:"team_id"`
	TeamAbbr    string    `json:"team_abbr"`
	CurrentTeam string    `json:"current_team"`
	GameID      string    `json:"game_id"`
	GameDate    time.Time `json:"game_date"`
	Season      string    `json:"season"`
	Opponent    string    `json:"opponent"`
	HomeAway    string    `json:"home_away"`
	Position    string    `json:"position"`

	// Raw box score stats
	Pts       float64
	Ast       float64
	Reb       float64
	Stl       float64
	Blk       float64
	Tov       float64
	FgPct     float64
	FtPct     float64
	Fg3Pct    float64
	PlusMinus float64
	Minutes   float64

	// Season expanding averages (prior games only)
	SeasonAvgPts       float64
	SeasonAvgAst       float64
	SeasonAvgReb       float64
	SeasonAvgStl       float64
	SeasonAvgBlk       float64
	SeasonAvgTov       float64
	SeasonAvgFgPct     float64
	SeasonAvgFtPct     float64
	SeasonAvgFg3Pct    float64
	SeasonAvgPlusMinus float64
	SeasonAvgMinutes   float64

	// Last-5 rolling averages (prior games only)
	Last5AvgPts       float64
	Last5AvgAst       float64
	Last5AvgReb       float64
	Last5AvgMinutes   float64
	Last5AvgFgPct     float64
	Last5AvgPlusMinus float64

	// Last-10 rolling averages (prior games only)
	Last10AvgPts       float64
	Last10AvgAst       float64
	Last10AvgReb       float64
	Last10AvgMinutes   float64
	Last10AvgFgPct     float64
	Last10AvgPlusMinus float64

	// Home/away splits
	HomeAvgPts      float64
	AwayAvgPts      float64
	HomeAwayPtsDiff float64

	// Per-opponent career averages
	VsOppAvgPts float64
	VsOppAvgReb float64
	VsOppAvgAst float64

	// Trend and context
	MinutesTrend      float64
	GamesPlayedSeason float64
	Age               float64
	Experience        float64

	// Injury context (17 model features + the configuration hash)
	NStartersOut       float64
	Starter1Out        float64
	Starter2Out        float64
	Starter3Out        float64
	Starter4Out        float64
	Starter5Out        float64
	BallHandlerOut     float64
	PrimaryScorerOut   float64
	PrimaryRebounderOut float64
	PrimaryDefenderOut float64
	SixthManOut        float64
	NRotationPlayersOut float64
	TotalPtsLost       float64
	TotalAstLost       float64
	TotalRebLost       float64
	TotalMinutesLost   float64
	GamesWithThisConfig float64
	InjuryConfigHash   string

	// Targets (the actual game stats the models predict)
	TargetPts     float64
	TargetAst     float64
	TargetReb     float64
	TargetStl     float64
	TargetBlk     float64
	TargetFgPct   float64
	TargetFtPct   float64
	TargetMinutes float64
}

// FeatureValue resolves a named numeric feature on this row. The second
// return is false for names the row does not carry at all; a carried field
// holding the NaN sentinel returns (NaN, true).
func (g *PlayerGame) FeatureValue(name string) (float64, bool) {
	switch name {
	case "pts":
		return g.Pts, true
	case "ast":
		return g.Ast, true
	case "reb":
		return g.Reb, true
	case "stl":
		return g.Stl, true
	case "blk":
		return g.Blk, true
	case "tov":
		return g.Tov, true
	case "fg_pct":
		return g.FgPct, true
	case "ft_pct":
		return g.FtPct, true
	case "fg3_pct":
		return g.Fg3Pct, true
	case "plus_minus":
		return g.PlusMinus, true
	case "minutes":
		return g.Minutes, true
	case "season_avg_pts":
		return g.SeasonAvgPts, true
	case "season_avg_ast":
		return g.SeasonAvgAst, true
	case "season_avg_reb":
		return g.SeasonAvgReb, true
	case "season_avg_stl":
		return g.SeasonAvgStl, true
	case "season_avg_blk":
		return g.SeasonAvgBlk, true
	case "season_avg_tov":
		return g.SeasonAvgTov, true
	case "season_avg_fg_pct":
		return g.SeasonAvgFgPct, true
	case "season_avg_ft_pct":
		return g.SeasonAvgFtPct, true
	case "season_avg_fg3_pct":
		return g.SeasonAvgFg3Pct, true
	case "season_avg_plus_minus":
		return g.SeasonAvgPlusMinus, true
	case "season_avg_minutes":
		return g.SeasonAvgMinutes, true
	case "last5_avg_pts":
		return g.Last5AvgPts, true
	case "last5_avg_ast":
		return g.Last5AvgAst, true
	case "last5_avg_reb":
		return g.Last5AvgReb, true
	case "last5_avg_minutes":
		return g.Last5AvgMinutes, true
	case "last5_avg_fg_pct":
		return g.Last5AvgFgPct, true
	case "last5_avg_plus_minus":
		return g.Last5AvgPlusMinus, true
	case "last10_avg_pts":
		return g.Last10AvgPts, true
	case "last10_avg_ast":
		return g.Last10AvgAst, true
	case "last10_avg_reb":
		return g.Last10AvgReb, true
	case "last10_avg_minutes":
		return g.Last10AvgMinutes, true
	case "last10_avg_fg_pct":
		return g.Last10AvgFgPct, true
	case "last10_avg_plus_minus":
		return g.Last10AvgPlusMinus, true
	case "home_avg_pts":
		return g.HomeAvgPts, true
	case "away_avg_pts":
		return g.AwayAvgPts, true
	case "home_away_pts_diff":
		return g.HomeAwayPtsDiff, true
	case "vs_opp_avg_pts":
		return g.VsOppAvgPts, true
	case "vs_opp_avg_reb":
		return g.VsOppAvgReb, true
	case "vs_opp_avg_ast":
		return g.VsOppAvgAst, true
	case "minutes_trend":
		return g.MinutesTrend, true
	case "games_played_season":
		return g.GamesPlayedSeason, true
	case "age":
		return g.Age, true
	case "experience":
		return g.Experience, true
	case "n_starters_out":
		return g.NStartersOut, true
	case "starter_1_out":
		return g.Starter1Out, true
	case "starter_2_out":
		return g.Starter2Out, true
	case "starter_3_out":
		return g.Starter3Out, true
	case "starter_4_out":
		return g.Starter4Out, true
	case "starter_5_out":
		return g.Starter5Out, true
	case "ball_handler_out":
		return g.BallHandlerOut, true
	case "primary_scorer_out":
		return g.PrimaryScorerOut, true
	case "primary_rebounder_out":
		return g.PrimaryRebounderOut, true
	case "primary_defender_out":
		return g.PrimaryDefenderOut, true
	case "sixth_man_out":
		return g.SixthManOut, true
	case "n_rotation_players_out":
		return g.NRotationPlayersOut, true
	case "total_pts_lost":
		return g.TotalPtsLost, true
	case "total_ast_lost":
		return g.TotalAstLost, true
	case "total_reb_lost":
		return g.TotalRebLost, true
	case "total_minutes_lost":
		return g.TotalMinutesLost, true
	case "games_with_this_config":
		return g.GamesWithThisConfig, true
	case "target_pts":
		return g.TargetPts, true
	case "target_ast":
		return g.TargetAst, true
	case "target_reb":
		return g.TargetReb, true
	case "target_stl":
		return g.TargetStl, true
	case "target_blk":
		return g.TargetBlk, true
	case "target_fg_pct":
		return g.TargetFgPct, true
	case "target_ft_pct":
		return g.TargetFtPct, true
	case "target_minutes":
		return g.TargetMinutes, true
	}
	return 0, false
}

// SeasonAverage returns the season-average feature backing a short stat name.
func (g *PlayerGame) SeasonAverage(stat string) float64 {
	switch stat {
	case "pts":
		return g.SeasonAvgPts
	case "ast":
		return g.SeasonAvgAst
	case "reb":
		return g.SeasonAvgReb
	case "stl":
		return g.SeasonAvgStl
	case "blk":
		return g.SeasonAvgBlk
	case "fg_pct":
		return g.SeasonAvgFgPct
	case "ft_pct":
		return g.SeasonAvgFtPct
	case "minutes":
		return g.SeasonAvgMinutes
	}
	return Missing()
}

// Target returns the target value backing a short stat name.
func (g *PlayerGame) Target(stat string) float64 {
	switch stat {
	case "pts":
		return g.TargetPts
	case "ast":
		return g.TargetAst
	case "reb":
		return g.TargetReb
	case "stl":
		return g.TargetStl
	case "blk":
		return g.TargetBlk
	case "fg_pct":
		return g.TargetFgPct
	case "ft_pct":
		return g.TargetFtPct
	case "minutes":
		return g.TargetMinutes
	}
	return Missing()
}

// InjuryContext is the fixed 17-field feature record describing which
// teammates are absent for one (game, team) and how much talent is lost.
type InjuryContext struct {
	NStartersOut        int     `json:"n_starters_out"`
	Starter1Out         int     `json:"starter_1_out"`
	Starter2Out         int     `json:"starter_2_out"`
	Starter3Out         int     `json:"starter_3_out"`
	Starter4Out         int     `json:"starter_4_out"`
	Starter5Out         int     `json:"starter_5_out"`
	BallHandlerOut      int     `json:"ball_handler_out"`
	PrimaryScorerOut    int     `json:"primary_scorer_out"`
	PrimaryRebounderOut int     `json:"primary_rebounder_out"`
	PrimaryDefenderOut  int     `json:"primary_defender_out"`
	SixthManOut         int     `json:"sixth_man_out"`
	NRotationPlayersOut int     `json:"n_rotation_players_out"`
	TotalPtsLost        float64 `json:"total_pts_lost"`
	TotalAstLost        float64 `json:"total_ast_lost"`
	TotalRebLost        float64 `json:"total_reb_lost"`
	TotalMinutesLost    float64 `json:"total_minutes_lost"`
	GamesWithThisConfig int     `json:"games_with_this_config"`

	// ConfigHash identifies the absence set; it is not itself a model feature.
	ConfigHash string `json:"injury_config_hash"`
}

// Apply writes the context onto a row so the shared feature builder sees the
// same columns training saw.
func (c InjuryContext) Apply(g *PlayerGame) {
	g.NStartersOut = float64(c.NStartersOut)
	g.Starter1Out = float64(c.Starter1Out)
	g.Starter2Out = float64(c.Starter2Out)
	g.Starter3Out = float64(c.Starter3Out)
	g.Starter4Out = float64(c.Starter4Out)
	g.Starter5Out = float64(c.Starter5Out)
	g.BallHandlerOut = float64(c.BallHandlerOut)
	g.PrimaryScorerOut = float64(c.PrimaryScorerOut)
	g.PrimaryRebounderOut = float64(c.PrimaryRebounderOut)
	g.PrimaryDefenderOut = float64(c.PrimaryDefenderOut)
	g.SixthManOut = float64(c.SixthManOut)
	g.NRotationPlayersOut = float64(c.NRotationPlayersOut)
	g.TotalPtsLost = c.TotalPtsLost
	g.TotalAstLost = c.TotalAstLost
	g.TotalRebLost = c.TotalRebLost
	g.TotalMinutesLost = c.TotalMinutesLost
	g.GamesWithThisConfig = float64(c.GamesWithThisConfig)
	g.InjuryConfigHash = c.ConfigHash
}

// RoleRow is one (player, team, season) entry of the role table: season
// averages plus the boolean role flags. Players below the games-played
// threshold keep averages but never hold roles.
type RoleRow struct {
	PlayerID    int64   `json:"player_id"`
	TeamID      int64   `json:"team_id"`
	Season      string  `json:"season"`
	AvgPts      float64 `json:"avg_pts"`
	AvgAst      float64 `json:"avg_ast"`
	AvgReb      float64 `json:"avg_reb"`
	AvgStl      float64 `json:"avg_stl"`
	AvgBlk      float64 `json:"avg_blk"`
	AvgMinutes  float64 `json:"avg_minutes"`
	GamesPlayed int     `json:"games_played"`

	IsStarter       bool `json:"is_starter"`
	RoleBallHandler bool `json:"role_ball_handler"`
	RoleScorer      bool `json:"role_scorer"`
	RoleRebounder   bool `json:"role_rebounder"`
	RoleDefender    bool `json:"role_defender"`
	RoleSixthMan    bool `json:"role_sixth_man"`

	Position string  `json:"position"`
	Age      float64 `json:"age"`
}

// DefensiveAverage is the primary-defender metric.
func (r *RoleRow) DefensiveAverage() float64 {
	return r.AvgStl + r.AvgBlk
}

// RosterEntry is one (player, team, season) roster demographics record.
type RosterEntry struct {
	PlayerID   int64
	TeamID     int64
	Season     string
	Position   string
	Age        float64
	Experience float64
}

// Absence marks a rostered player missing from their team's game log for a
// game. Derived once per data refresh, immutable afterward.
type Absence struct {
	PlayerID int64     `json:"player_id"`
	TeamID   int64     `json:"team_id"`
	GameID   string    `json:"game_id"`
	GameDate time.Time `json:"game_date"`
	Season   string    `json:"season"`
}

// StatLine maps short stat names to values.
type StatLine map[string]float64

// AbsentPlayer names one absent player in a ripple response.
type AbsentPlayer struct {
	PlayerID   int64  `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// PlayerPrediction is one player's baseline-vs-injury comparison.
type PlayerPrediction struct {
	PlayerID     int64    `json:"player_id"`
	PlayerName   string   `json:"player_name"`
	Baseline     StatLine `json:"baseline"`
	WithInjuries StatLine `json:"with_injuries"`
	RippleEffect StatLine `json:"ripple_effect"`
}

// BaselinePrediction is the response shape of a single-player prediction.
type BaselinePrediction struct {
	PlayerID    int64    `json:"player_id"`
	PlayerName  string   `json:"player_name"`
	Predictions StatLine `json:"predictions"`

	// MatchupData is "unavailable" when no history vs the requested opponent
	// existed and season averages were used instead.
	MatchupData string `json:"matchup_data,omitempty"`
}

// InjuryPrediction is the response shape of predict-with-injuries.
type InjuryPrediction struct {
	PlayerID      int64         `json:"player_id"`
	PlayerName    string        `json:"player_name"`
	Predictions   StatLine      `json:"predictions"`
	InjuryContext InjuryContext `json:"injury_context"`
	MatchupData   string        `json:"matchup_data,omitempty"`
}

// RippleResult is the response shape of get-ripple-effect.
type RippleResult struct {
	Team              string             `json:"team"`
	AbsentPlayers     []AbsentPlayer     `json:"absent_players"`
	InjuryContext     InjuryContext      `json:"injury_context"`
	PlayerPredictions []PlayerPrediction `json:"player_predictions"`
}

// GameContext carries the scenario fields of a simulate-injury request.
type GameContext struct {
	Opponent   string     `json:"opponent"`
	HomeOrAway string     `json:"home_or_away"`
	Date       *time.Time `json:"date,omitempty"`
}
