// Package roles derives per-team-season player roles (starter, ball
// handler, scorer, rebounder, defender, sixth man) from season-long
// averages.
package roles

import (
	"sort"

	"github.com/stitts-dev/nba-ripple/internal/types"
	"github.com/stitts-dev/nba-ripple/pkg/logger"
)

// Detect computes one role row per (player, team, season) from cleaned game
// logs. Players with at least minGames appearances qualify for role
// assignment; the rest keep raw averages with no role flags.
//
// Role ties are deliberate: if two qualified starters tie on the defining
// stat, both carry the flag.
func Detect(games []*types.PlayerGame, rosters []types.RosterEntry, minGames int) []*types.RoleRow {
	log := logger.WithComponent("roles")
	log.Info("Detecting player roles")

	rows := seasonAverages(games)
	mergeRosters(rows, rosters)

	type teamSeason struct {
		teamID int64
		season string
	}
	byTeamSeason := make(map[teamSeason][]*types.RoleRow)
	var keys []teamSeason
	for _, r := range rows {
		k := teamSeason{r.TeamID, r.Season}
		if _, ok := byTeamSeason[k]; !ok {
			keys = append(keys, k)
		}
		byTeamSeason[k] = append(byTeamSeason[k], r)
	}

	starters, handlers, scorers := 0, 0, 0
	for _, k := range keys {
		group := byTeamSeason[k]

		var qualified []*types.RoleRow
		for _, r := range group {
			if r.GamesPlayed >= minGames {
				qualified = append(qualified, r)
			}
		}
		if len(qualified) == 0 {
			continue
		}

		AssignRoles(qualified)

		for _, r := range qualified {
			if r.IsStarter {
				starters++
			}
			if r.RoleBallHandler {
				handlers++
			}
			if r.RoleScorer {
				scorers++
			}
		}
	}

	log.WithFields(map[string]interface{}{
		"starters":      starters,
		"ball_handlers": handlers,
		"scorers":       scorers,
		"team_seasons":  len(keys),
	}).Info("Role detection complete")

	return rows
}

// AssignRoles flags starters and the primary roles within one team-season's
// qualified players, already filtered to role eligibility. The serving-time
// injury context engine reuses it to recompute roles from approximated
// season averages.
func AssignRoles(qualified []*types.RoleRow) {
	// Starters: top 5 by average minutes; all of them if fewer than 5.
	byMinutes := append([]*types.RoleRow{}, qualified...)
	sort.SliceStable(byMinutes, func(i, j int) bool {
		return byMinutes[i].AvgMinutes > byMinutes[j].AvgMinutes
	})
	nStarters := 5
	if len(byMinutes) < nStarters {
		nStarters = len(byMinutes)
	}
	starters := byMinutes[:nStarters]
	for _, r := range starters {
		r.IsStarter = true
	}

	// Primary roles among starters; ties flag every tied holder.
	flagMax(starters, func(r *types.RoleRow) float64 { return r.AvgAst },
		func(r *types.RoleRow) { r.RoleBallHandler = true })
	flagMax(starters, func(r *types.RoleRow) float64 { return r.AvgPts },
		func(r *types.RoleRow) { r.RoleScorer = true })
	flagMax(starters, func(r *types.RoleRow) float64 { return r.AvgReb },
		func(r *types.RoleRow) { r.RoleRebounder = true })
	flagMax(starters, func(r *types.RoleRow) float64 { return r.DefensiveAverage() },
		func(r *types.RoleRow) { r.RoleDefender = true })

	// Sixth man: the single top non-starter by minutes.
	if len(byMinutes) > nStarters {
		byMinutes[nStarters].RoleSixthMan = true
	}
}

func flagMax(rows []*types.RoleRow, value func(*types.RoleRow) float64, flag func(*types.RoleRow)) {
	if len(rows) == 0 {
		return
	}
	best := value(rows[0])
	for _, r := range rows[1:] {
		if v := value(r); v > best {
			best = v
		}
	}
	for _, r := range rows {
		if value(r) == best {
			flag(r)
		}
	}
}

// seasonAverages aggregates per (player, team, season).
func seasonAverages(games []*types.PlayerGame) []*types.RoleRow {
	type key struct {
		playerID int64
		teamID   int64
		season   string
	}
	acc := make(map[key]*types.RoleRow)
	sums := make(map[key]*[6]float64)
	var keys []key

	for _, g := range games {
		k := key{g.PlayerID, g.TeamID, g.Season}
		r, ok := acc[k]
		if !ok {
			r = &types.RoleRow{PlayerID: g.PlayerID, TeamID: g.TeamID, Season: g.Season}
			acc[k] = r
			sums[k] = &[6]float64{}
			keys = append(keys, k)
		}
		s := sums[k]
		s[0] += g.Pts
		s[1] += g.Ast
		s[2] += g.Reb
		s[3] += g.Stl
		s[4] += g.Blk
		s[5] += g.Minutes
		r.GamesPlayed++
	}

	rows := make([]*types.RoleRow, 0, len(keys))
	for _, k := range keys {
		r := acc[k]
		s := sums[k]
		n := float64(r.GamesPlayed)
		r.AvgPts = s[0] / n
		r.AvgAst = s[1] / n
		r.AvgReb = s[2] / n
		r.AvgStl = s[3] / n
		r.AvgBlk = s[4] / n
		r.AvgMinutes = s[5] / n
		rows = append(rows, r)
	}
	return rows
}

func mergeRosters(rows []*types.RoleRow, rosters []types.RosterEntry) {
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
	for _, r := range rows {
		if entry, ok := info[key{r.PlayerID, r.TeamID, r.Season}]; ok {
			r.Position = entry.Position
			r.Age = entry.Age
		} else {
			r.Age = types.Missing()
		}
	}
}
