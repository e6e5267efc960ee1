package features

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/nba-ripple/internal/types"
	"github.com/stitts-dev/nba-ripple/pkg/logger"
)

// trendWindow and trendMinPoints bound the minutes-trend slope fit.
const (
	trendWindow    = 10
	trendMinPoints = 3
)

// BuildPlayerFeatures fills in every rolling and derived feature on the
// cleaned game logs, in place. Every value is computed from strictly earlier
// games of the same player, so no row ever sees its own stats or the future.
// Rows must arrive sorted by player then game date (the loader guarantees
// this).
func BuildPlayerFeatures(rows []*types.PlayerGame, rosters []types.RosterEntry) {
	log := logger.WithComponent("features")
	log.Info("Building player features")

	byPlayerSeason := groupRows(rows, func(g *types.PlayerGame) [2]interface{} {
		return [2]interface{}{g.PlayerID, g.Season}
	})
	for _, group := range byPlayerSeason {
		buildSeasonFeatures(group)
	}

	byPlayerOpponent := groupRows(rows, func(g *types.PlayerGame) [2]interface{} {
		return [2]interface{}{g.PlayerID, g.Opponent}
	})
	for _, group := range byPlayerOpponent {
		buildOpponentFeatures(group)
	}

	mergeRosterInfo(rows, rosters)

	log.WithField("rows", len(rows)).Info("Player features complete")
}

// buildSeasonFeatures computes the per-(player, season) features for one
// group of rows already in date order.
func buildSeasonFeatures(group []*types.PlayerGame) {
	type sums struct {
		total float64
		n     int
	}
	var (
		season    [11]sums // one accumulator per season-average stat
		homePts   sums
		awayPts   sums
		last5     = map[string][]float64{}
		last10    = map[string][]float64{}
		priorMins []float64
	)

	statOf := func(g *types.PlayerGame, i int) float64 {
		switch i {
		case 0:
			return g.Pts
		case 1:
			return g.Ast
		case 2:
			return g.Reb
		case 3:
			return g.Stl
		case 4:
			return g.Blk
		case 5:
			return g.Tov
		case 6:
			return g.FgPct
		case 7:
			return g.FtPct
		case 8:
			return g.Fg3Pct
		case 9:
			return g.PlusMinus
		default:
			return g.Minutes
		}
	}
	seasonDst := func(g *types.PlayerGame, i int) *float64 {
		switch i {
		case 0:
			return &g.SeasonAvgPts
		case 1:
			return &g.SeasonAvgAst
		case 2:
			return &g.SeasonAvgReb
		case 3:
			return &g.SeasonAvgStl
		case 4:
			return &g.SeasonAvgBlk
		case 5:
			return &g.SeasonAvgTov
		case 6:
			return &g.SeasonAvgFgPct
		case 7:
			return &g.SeasonAvgFtPct
		case 8:
			return &g.SeasonAvgFg3Pct
		case 9:
			return &g.SeasonAvgPlusMinus
		default:
			return &g.SeasonAvgMinutes
		}
	}

	for idx, g := range group {
		// Season expanding averages over prior games.
		for i := 0; i < 11; i++ {
			if season[i].n == 0 {
				*seasonDst(g, i) = types.Missing()
			} else {
				*seasonDst(g, i) = season[i].total / float64(season[i].n)
			}
		}

		// Last-5 / last-10 windows over prior games.
		g.Last5AvgPts = tailMean(last5["pts"], 5)
		g.Last5AvgAst = tailMean(last5["ast"], 5)
		g.Last5AvgReb = tailMean(last5["reb"], 5)
		g.Last5AvgMinutes = tailMean(last5["minutes"], 5)
		g.Last5AvgFgPct = tailMean(last5["fg_pct"], 5)
		g.Last5AvgPlusMinus = tailMean(last5["plus_minus"], 5)
		g.Last10AvgPts = tailMean(last10["pts"], 10)
		g.Last10AvgAst = tailMean(last10["ast"], 10)
		g.Last10AvgReb = tailMean(last10["reb"], 10)
		g.Last10AvgMinutes = tailMean(last10["minutes"], 10)
		g.Last10AvgFgPct = tailMean(last10["fg_pct"], 10)
		g.Last10AvgPlusMinus = tailMean(last10["plus_minus"], 10)

		// Home/away points splits.
		g.HomeAvgPts = ratioOrMissing(homePts.total, homePts.n)
		g.AwayAvgPts = ratioOrMissing(awayPts.total, awayPts.n)
		if types.IsMissing(g.HomeAvgPts) || types.IsMissing(g.AwayAvgPts) {
			g.HomeAwayPtsDiff = types.Missing()
		} else {
			g.HomeAwayPtsDiff = g.HomeAvgPts - g.AwayAvgPts
		}

		// Minutes trend over the last window of prior games.
		g.MinutesTrend = trendSlope(priorMins)

		g.GamesPlayedSeason = float64(idx)

		// Fold the current game into the accumulators for later rows.
		for i := 0; i < 11; i++ {
			if v := statOf(g, i); !types.IsMissing(v) {
				season[i].total += v
				season[i].n++
			}
		}
		for _, key := range []string{"pts", "ast", "reb", "minutes", "fg_pct", "plus_minus"} {
			v, _ := g.FeatureValue(key)
			last5[key] = append(last5[key], v)
			last10[key] = append(last10[key], v)
		}
		if g.HomeAway == "HOME" {
			homePts.total += g.Pts
			homePts.n++
		} else {
			awayPts.total += g.Pts
			awayPts.n++
		}
		priorMins = append(priorMins, g.Minutes)
	}
}

func buildOpponentFeatures(group []*types.PlayerGame) {
	var pts, reb, ast struct {
		total float64
		n     int
	}
	for _, g := range group {
		g.VsOppAvgPts = ratioOrMissing(pts.total, pts.n)
		g.VsOppAvgReb = ratioOrMissing(reb.total, reb.n)
		g.VsOppAvgAst = ratioOrMissing(ast.total, ast.n)

		pts.total += g.Pts
		pts.n++
		reb.total += g.Reb
		reb.n++
		ast.total += g.Ast
		ast.n++
	}
}

// mergeRosterInfo attaches position, age, and experience by
// (player, team, season).
func mergeRosterInfo(rows []*types.PlayerGame, rosters []types.RosterEntry) {
	type key struct {
		playerID int64
		teamID   int64
		season   string
	}
	info := make(map[key]types.RosterEntry, len(rosters))
	for _, r := range rosters {
		k := key{r.PlayerID, r.TeamID, r.Season}
		if _, ok := info[k]; !ok {
			info[k] = r
		}
	}

	for _, g := range rows {
		r, ok := info[key{g.PlayerID, g.TeamID, g.Season}]
		if !ok {
			g.Age = types.Missing()
			g.Experience = types.Missing()
			continue
		}
		g.Position = r.Position
		g.Age = r.Age
		g.Experience = r.Experience
	}
}

// BuildTargets copies the raw game stats into the target columns the models
// predict.
func BuildTargets(rows []*types.PlayerGame) {
	for _, g := range rows {
		g.TargetPts = g.Pts
		g.TargetAst = g.Ast
		g.TargetReb = g.Reb
		g.TargetStl = g.Stl
		g.TargetBlk = g.Blk
		g.TargetFgPct = g.FgPct
		g.TargetFtPct = g.FtPct
		g.TargetMinutes = g.Minutes
	}
}

// AssignCurrentTeam stamps every row of a player with the team of their most
// recent game. The per-row TeamAbbr stays historical; CurrentTeam is what
// trade-aware lookups key on.
func AssignCurrentTeam(rows []*types.PlayerGame) {
	latestTeam := make(map[int64]string)
	latestDate := make(map[int64]int64)
	for _, g := range rows {
		if ts := g.GameDate.Unix(); ts >= latestDate[g.PlayerID] {
			latestDate[g.PlayerID] = ts
			latestTeam[g.PlayerID] = g.TeamAbbr
		}
	}
	for _, g := range rows {
		g.CurrentTeam = latestTeam[g.PlayerID]
	}
}

// DropRowsWithoutHistory removes rows whose season averages are all missing:
// a player's first game of a season carries no usable prior signal.
func DropRowsWithoutHistory(rows []*types.PlayerGame) []*types.PlayerGame {
	kept := rows[:0]
	dropped := 0
	for _, g := range rows {
		allMissing := types.IsMissing(g.SeasonAvgPts) &&
			types.IsMissing(g.SeasonAvgAst) &&
			types.IsMissing(g.SeasonAvgReb) &&
			types.IsMissing(g.SeasonAvgStl) &&
			types.IsMissing(g.SeasonAvgBlk) &&
			types.IsMissing(g.SeasonAvgTov) &&
			types.IsMissing(g.SeasonAvgFgPct) &&
			types.IsMissing(g.SeasonAvgFtPct) &&
			types.IsMissing(g.SeasonAvgFg3Pct) &&
			types.IsMissing(g.SeasonAvgPlusMinus) &&
			types.IsMissing(g.SeasonAvgMinutes)
		if allMissing {
			dropped++
			continue
		}
		kept = append(kept, g)
	}
	if dropped > 0 {
		logger.WithComponent("features").WithField("rows", dropped).Info("Dropped first-game rows with no prior season data")
	}
	return kept
}

// tailMean averages the last n values of the window; missing when empty.
func tailMean(window []float64, n int) float64 {
	if len(window) == 0 {
		return types.Missing()
	}
	if len(window) > n {
		window = window[len(window)-n:]
	}
	total := 0.0
	for _, v := range window {
		total += v
	}
	return total / float64(len(window))
}

func ratioOrMissing(total float64, n int) float64 {
	if n == 0 {
		return types.Missing()
	}
	return total / float64(n)
}

// trendSlope fits a line over the last trendWindow prior values and returns
// its slope; missing below trendMinPoints.
func trendSlope(prior []float64) float64 {
	if len(prior) > trendWindow {
		prior = prior[len(prior)-trendWindow:]
	}
	if len(prior) < trendMinPoints {
		return types.Missing()
	}
	xs := make([]float64, len(prior))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, prior, nil, false)
	return slope
}

// groupRows partitions rows by key, preserving each group's original
// (date-sorted) order, and returns groups in a deterministic order.
func groupRows(rows []*types.PlayerGame, keyFn func(*types.PlayerGame) [2]interface{}) [][]*types.PlayerGame {
	groups := make(map[[2]interface{}][]*types.PlayerGame)
	var keys [][2]interface{}
	for _, g := range rows {
		k := keyFn(g)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], g)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		af, _ := a[0].(int64)
		bf, _ := b[0].(int64)
		if af != bf {
			return af < bf
		}
		as, _ := a[1].(string)
		bs, _ := b[1].(string)
		return as < bs
	})

	out := make([][]*types.PlayerGame, 0, len(keys))
	for _, k := range keys {
		out = append(out, groups[k])
	}
	return out
}
