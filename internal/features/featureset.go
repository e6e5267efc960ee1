// Package features owns the feature-name registry and the single feature
// construction code path shared by training and inference, plus the offline
// rolling/derived feature engineering.
package features

// BaselineFeatures is the ordered 37-feature list used by the baseline
// models. Order is load-bearing: the persisted feature list defines the
// column order models were trained with.
var BaselineFeatures = []string{
	// Season rolling averages (11)
	"season_avg_pts", "season_avg_ast", "season_avg_reb",
	"season_avg_stl", "season_avg_blk", "season_avg_tov",
	"season_avg_fg_pct", "season_avg_ft_pct", "season_avg_fg3_pct",
	"season_avg_plus_minus", "season_avg_minutes",
	// Last-5 averages (6)
	"last5_avg_pts", "last5_avg_ast", "last5_avg_reb",
	"last5_avg_minutes", "last5_avg_fg_pct", "last5_avg_plus_minus",
	// Last-10 averages (6)
	"last10_avg_pts", "last10_avg_ast", "last10_avg_reb",
	"last10_avg_minutes", "last10_avg_fg_pct", "last10_avg_plus_minus",
	// Home/away splits (3)
	"home_avg_pts", "away_avg_pts", "home_away_pts_diff",
	// Per-opponent averages (3)
	"vs_opp_avg_pts", "vs_opp_avg_reb", "vs_opp_avg_ast",
	// Trend/context (4)
	"minutes_trend", "games_played_season", "age", "experience",
	// Derived binary (1)
	"is_home",
	// Position dummies (3)
	"pos_G", "pos_F", "pos_C",
}

// InjuryFeatures is the ordered 17-feature injury context block.
var InjuryFeatures = []string{
	// Binary absence (6)
	"n_starters_out",
	"starter_1_out", "starter_2_out", "starter_3_out",
	"starter_4_out", "starter_5_out",
	// Role-based (6)
	"ball_handler_out", "primary_scorer_out",
	"primary_rebounder_out", "primary_defender_out",
	"sixth_man_out", "n_rotation_players_out",
	// Talent loss (4)
	"total_pts_lost", "total_ast_lost",
	"total_reb_lost", "total_minutes_lost",
	// Config experience (1)
	"games_with_this_config",
}

// RippleFeatures is the full-formulation feature list.
var RippleFeatures = append(append([]string{}, BaselineFeatures...), InjuryFeatures...)

// StatNames are the eight target statistics, in training order.
var StatNames = []string{"pts", "ast", "reb", "stl", "blk", "fg_pct", "ft_pct", "minutes"}

// TargetColumn maps a short stat name to its target column name.
func TargetColumn(stat string) string {
	return "target_" + stat
}

// SeasonAvgColumn maps a short stat name to its season-average column name.
func SeasonAvgColumn(stat string) string {
	return "season_avg_" + stat
}
