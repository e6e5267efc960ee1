package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/stitts-dev/nba-ripple/internal/types"
)

const dateLayout = "2006-01-02"

// processedColumns fixes the column order of the processed dataset file.
// Readers key by header name, so extra columns from older pipeline runs are
// tolerated; writers always emit this exact order.
var processedColumns = []string{
	"player_id", "player_name", "team_id", "team_abbr", "current_team",
	"game_id", "game_date", "season", "opponent", "home_away", "position",
	"pts", "ast", "reb", "stl", "blk", "tov",
	"fg_pct", "ft_pct", "fg3_pct", "plus_minus", "minutes",
	"season_avg_pts", "season_avg_ast", "season_avg_reb",
	"season_avg_stl", "season_avg_blk", "season_avg_tov",
	"season_avg_fg_pct", "season_avg_ft_pct", "season_avg_fg3_pct",
	"season_avg_plus_minus", "season_avg_minutes",
	"last5_avg_pts", "last5_avg_ast", "last5_avg_reb",
	"last5_avg_minutes", "last5_avg_fg_pct", "last5_avg_plus_minus",
	"last10_avg_pts", "last10_avg_ast", "last10_avg_reb",
	"last10_avg_minutes", "last10_avg_fg_pct", "last10_avg_plus_minus",
	"home_avg_pts", "away_avg_pts", "home_away_pts_diff",
	"vs_opp_avg_pts", "vs_opp_avg_reb", "vs_opp_avg_ast",
	"minutes_trend", "games_played_season", "age", "experience",
	"n_starters_out",
	"starter_1_out", "starter_2_out", "starter_3_out",
	"starter_4_out", "starter_5_out",
	"ball_handler_out", "primary_scorer_out",
	"primary_rebounder_out", "primary_defender_out",
	"sixth_man_out", "n_rotation_players_out",
	"total_pts_lost", "total_ast_lost", "total_reb_lost", "total_minutes_lost",
	"injury_config_hash", "games_with_this_config",
	"target_pts", "target_ast", "target_reb", "target_stl",
	"target_blk", "target_fg_pct", "target_ft_pct", "target_minutes",
}

// LoadProcessed reads the processed player dataset. A missing file is an
// artifact-missing condition: the pipeline has not run yet.
func LoadProcessed(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.ArtifactMissingf("processed data not found at %s, run process-data first", path)
		}
		return nil, fmt.Errorf("opening processed data: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading processed data header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	var rows []*types.PlayerGame
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading processed data: %w", err)
		}
		row, err := decodeProcessedRow(record, col)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return New(rows), nil
}

// SaveProcessed writes the processed dataset in the fixed column order.
func SaveProcessed(path string, rows []*types.PlayerGame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating processed data file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(processedColumns); err != nil {
		return fmt.Errorf("writing processed data header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(encodeProcessedRow(row)); err != nil {
			return fmt.Errorf("writing processed data row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func decodeProcessedRow(record []string, col map[string]int) (*types.PlayerGame, error) {
	get := func(name string) string {
		if i, ok := col[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	gameDate, err := time.Parse(dateLayout, get("game_date"))
	if err != nil {
		return nil, fmt.Errorf("bad game_date %q: %w", get("game_date"), err)
	}

	g := &types.PlayerGame{
		PlayerID:    parseInt(get("player_id")),
		PlayerName:  get("player_name"),
		TeamID:      parseInt(get("team_id")),
		TeamAbbr:    get("team_abbr"),
		CurrentTeam: get("current_team"),
		GameID:      get("game_id"),
		GameDate:    gameDate,
		Season:      get("season"),
		Opponent:    get("opponent"),
		HomeAway:    get("home_away"),
		Position:    get("position"),

		InjuryConfigHash: get("injury_config_hash"),
	}
	if g.InjuryConfigHash == "" {
		g.InjuryConfigHash = types.HealthyConfigHash
	}
	if g.CurrentTeam == "" {
		g.CurrentTeam = g.TeamAbbr
	}

	for _, name := range processedColumns {
		ptr := numericField(g, name)
		if ptr == nil {
			continue
		}
		*ptr = parseFloat(get(name))
	}

	return g, nil
}

func encodeProcessedRow(g *types.PlayerGame) []string {
	record := make([]string, len(processedColumns))
	for i, name := range processedColumns {
		switch name {
		case "player_id":
			record[i] = strconv.FormatInt(g.PlayerID, 10)
		case "player_name":
			record[i] = g.PlayerName
		case "team_id":
			record[i] = strconv.FormatInt(g.TeamID, 10)
		case "team_abbr":
			record[i] = g.TeamAbbr
		case "current_team":
			record[i] = g.CurrentTeam
		case "game_id":
			record[i] = g.GameID
		case "game_date":
			record[i] = g.GameDate.Format(dateLayout)
		case "season":
			record[i] = g.Season
		case "opponent":
			record[i] = g.Opponent
		case "home_away":
			record[i] = g.HomeAway
		case "position":
			record[i] = g.Position
		case "injury_config_hash":
			record[i] = g.InjuryConfigHash
		default:
			if ptr := numericField(g, name); ptr != nil {
				record[i] = formatFloat(*ptr)
			}
		}
	}
	return record
}

// numericField maps a processed column name to its field on the row; nil for
// the non-numeric columns.
func numericField(g *types.PlayerGame, name string) *float64 {
	switch name {
	case "pts":
		return &g.Pts
	case "ast":
		return &g.Ast
	case "reb":
		return &g.Reb
	case "stl":
		return &g.Stl
	case "blk":
		return &g.Blk
	case "tov":
		return &g.Tov
	case "fg_pct":
		return &g.FgPct
	case "ft_pct":
		return &g.FtPct
	case "fg3_pct":
		return &g.Fg3Pct
	case "plus_minus":
		return &g.PlusMinus
	case "minutes":
		return &g.Minutes
	case "season_avg_pts":
		return &g.SeasonAvgPts
	case "season_avg_ast":
		return &g.SeasonAvgAst
	case "season_avg_reb":
		return &g.SeasonAvgReb
	case "season_avg_stl":
		return &g.SeasonAvgStl
	case "season_avg_blk":
		return &g.SeasonAvgBlk
	case "season_avg_tov":
		return &g.SeasonAvgTov
	case "season_avg_fg_pct":
		return &g.SeasonAvgFgPct
	case "season_avg_ft_pct":
		return &g.SeasonAvgFtPct
	case "season_avg_fg3_pct":
		return &g.SeasonAvgFg3Pct
	case "season_avg_plus_minus":
		return &g.SeasonAvgPlusMinus
	case "season_avg_minutes":
		return &g.SeasonAvgMinutes
	case "last5_avg_pts":
		return &g.Last5AvgPts
	case "last5_avg_ast":
		return &g.Last5AvgAst
	case "last5_avg_reb":
		return &g.Last5AvgReb
	case "last5_avg_minutes":
		return &g.Last5AvgMinutes
	case "last5_avg_fg_pct":
		return &g.Last5AvgFgPct
	case "last5_avg_plus_minus":
		return &g.Last5AvgPlusMinus
	case "last10_avg_pts":
		return &g.Last10AvgPts
	case "last10_avg_ast":
		return &g.Last10AvgAst
	case "last10_avg_reb":
		return &g.Last10AvgReb
	case "last10_avg_minutes":
		return &g.Last10AvgMinutes
	case "last10_avg_fg_pct":
		return &g.Last10AvgFgPct
	case "last10_avg_plus_minus":
		return &g.Last10AvgPlusMinus
	case "home_avg_pts":
		return &g.HomeAvgPts
	case "away_avg_pts":
		return &g.AwayAvgPts
	case "home_away_pts_diff":
		return &g.HomeAwayPtsDiff
	case "vs_opp_avg_pts":
		return &g.VsOppAvgPts
	case "vs_opp_avg_reb":
		return &g.VsOppAvgReb
	case "vs_opp_avg_ast":
		return &g.VsOppAvgAst
	case "minutes_trend":
		return &g.MinutesTrend
	case "games_played_season":
		return &g.GamesPlayedSeason
	case "age":
		return &g.Age
	case "experience":
		return &g.Experience
	case "n_starters_out":
		return &g.NStartersOut
	case "starter_1_out":
		return &g.Starter1Out
	case "starter_2_out":
		return &g.Starter2Out
	case "starter_3_out":
		return &g.Starter3Out
	case "starter_4_out":
		return &g.Starter4Out
	case "starter_5_out":
		return &g.Starter5Out
	case "ball_handler_out":
		return &g.BallHandlerOut
	case "primary_scorer_out":
		return &g.PrimaryScorerOut
	case "primary_rebounder_out":
		return &g.PrimaryRebounderOut
	case "primary_defender_out":
		return &g.PrimaryDefenderOut
	case "sixth_man_out":
		return &g.SixthManOut
	case "n_rotation_players_out":
		return &g.NRotationPlayersOut
	case "total_pts_lost":
		return &g.TotalPtsLost
	case "total_ast_lost":
		return &g.TotalAstLost
	case "total_reb_lost":
		return &g.TotalRebLost
	case "total_minutes_lost":
		return &g.TotalMinutesLost
	case "games_with_this_config":
		return &g.GamesWithThisConfig
	case "target_pts":
		return &g.TargetPts
	case "target_ast":
		return &g.TargetAst
	case "target_reb":
		return &g.TargetReb
	case "target_stl":
		return &g.TargetStl
	case "target_blk":
		return &g.TargetBlk
	case "target_fg_pct":
		return &g.TargetFgPct
	case "target_ft_pct":
		return &g.TargetFtPct
	case "target_minutes":
		return &g.TargetMinutes
	}
	return nil
}

// parseFloat coerces a CSV cell to a numeric value. Empty and non-coercible
// cells become the missing sentinel, never an error.
func parseFloat(s string) float64 {
	if s == "" {
		return types.Missing()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return types.Missing()
	}
	return v
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
