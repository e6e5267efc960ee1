// Package injury derives the injury-context features: who is absent from a
// team for a game, what roles the absentees held, and how familiar the team
// is with that exact absence configuration.
package injury

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stitts-dev/nba-ripple/internal/config"
	"github.com/stitts-dev/nba-ripple/internal/dataset"
	"github.com/stitts-dev/nba-ripple/internal/roles"
	"github.com/stitts-dev/nba-ripple/internal/types"
	"github.com/stitts-dev/nba-ripple/pkg/logger"
)

// rotationSize is how many of a team's top players by minutes count as the
// rotation when tallying rotation absences.
const rotationSize = 8

// ConfigHash identifies an absence set. Sorting first makes the identity
// order-invariant, so {5, 3} and {3, 5} hash identically. An empty set maps
// to the reserved healthy identity.
func ConfigHash(absentIDs []int64) string {
	if len(absentIDs) == 0 {
		return types.HealthyConfigHash
	}
	sorted := make([]int64, len(absentIDs))
	copy(sorted, absentIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	sum := md5.Sum([]byte(strings.Join(parts, ",")))
	return hex.EncodeToString(sum[:])[:12]
}

// ExperienceCounter tracks how many prior games each team has played under
// each absence configuration, the healthy configuration included.
type ExperienceCounter struct {
	counts map[string]int
}

// NewExperienceCounter returns an empty counter.
func NewExperienceCounter() *ExperienceCounter {
	return &ExperienceCounter{counts: make(map[string]int)}
}

// Visit returns the number of games the team had already played under the
// configuration, then records the current game. The returned value therefore
// excludes the game being visited: a team's first game under a configuration
// reports zero experience.
func (c *ExperienceCounter) Visit(teamID int64, configHash string) int {
	key := fmt.Sprintf("%d|%s", teamID, configHash)
	prior := c.counts[key]
	c.counts[key] = prior + 1
	return prior
}

// FromRoles computes a context from a team's role pool, sorted by average
// minutes descending. Starter slots follow that order, the rotation is the
// pool's top entries, and talent loss sums the averages of every absent
// pool member. Role flags fire when any holder of the role is absent.
func FromRoles(pool []*types.RoleRow, absent map[int64]bool, experience int) types.InjuryContext {
	ctx := types.InjuryContext{
		ConfigHash:          ConfigHash(absentKeys(absent)),
		GamesWithThisConfig: experience,
	}

	starterSlot := 0
	for i, r := range pool {
		isOut := absent[r.PlayerID]
		if r.IsStarter {
			starterSlot++
			if isOut {
				ctx.NStartersOut++
				setStarterFlag(&ctx, starterSlot)
			}
		}
		if !isOut {
			continue
		}
		if i < rotationSize {
			ctx.NRotationPlayersOut++
		}
		if r.RoleBallHandler {
			ctx.BallHandlerOut = 1
		}
		if r.RoleScorer {
			ctx.PrimaryScorerOut = 1
		}
		if r.RoleRebounder {
			ctx.PrimaryRebounderOut = 1
		}
		if r.RoleDefender {
			ctx.PrimaryDefenderOut = 1
		}
		if r.RoleSixthMan {
			ctx.SixthManOut = 1
		}
		ctx.TotalPtsLost += r.AvgPts
		ctx.TotalAstLost += r.AvgAst
		ctx.TotalRebLost += r.AvgReb
		ctx.TotalMinutesLost += r.AvgMinutes
	}

	ctx.TotalPtsLost = round2(ctx.TotalPtsLost)
	ctx.TotalAstLost = round2(ctx.TotalAstLost)
	ctx.TotalRebLost = round2(ctx.TotalRebLost)
	ctx.TotalMinutesLost = round2(ctx.TotalMinutesLost)
	return ctx
}

func setStarterFlag(ctx *types.InjuryContext, slot int) {
	switch slot {
	case 1:
		ctx.Starter1Out = 1
	case 2:
		ctx.Starter2Out = 1
	case 3:
		ctx.Starter3Out = 1
	case 4:
		ctx.Starter4Out = 1
	case 5:
		ctx.Starter5Out = 1
	}
}

func absentKeys(absent map[int64]bool) []int64 {
	ids := make([]int64, 0, len(absent))
	for id := range absent {
		ids = append(ids, id)
	}
	return ids
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// teamGame is one (game, team) combination of the training data.
type teamGame struct {
	GameID   string
	TeamID   int64
	Season   string
	GameDate time.Time
}

// Annotate stamps injury-context features onto every training row. Each
// unique (game, team) combination is evaluated once, in date order so the
// configuration-experience counter only ever sees history, and the resulting
// context is copied onto all of that team's rows for the game.
func Annotate(games []*types.PlayerGame, absences []types.Absence, roleRows []*types.RoleRow) {
	log := logger.WithComponent("injury_context")

	absentByGame := make(map[string]map[int64]bool)
	for _, a := range absences {
		key := gameTeamKey(a.GameID, a.TeamID)
		if absentByGame[key] == nil {
			absentByGame[key] = make(map[int64]bool)
		}
		absentByGame[key][a.PlayerID] = true
	}

	pools := rolePools(roleRows)

	seen := make(map[string]bool)
	combos := make([]teamGame, 0)
	for _, g := range games {
		key := gameTeamKey(g.GameID, g.TeamID)
		if seen[key] {
			continue
		}
		seen[key] = true
		combos = append(combos, teamGame{GameID: g.GameID, TeamID: g.TeamID, Season: g.Season, GameDate: g.GameDate})
	}
	sort.Slice(combos, func(i, j int) bool {
		if !combos[i].GameDate.Equal(combos[j].GameDate) {
			return combos[i].GameDate.Before(combos[j].GameDate)
		}
		if combos[i].GameID != combos[j].GameID {
			return combos[i].GameID < combos[j].GameID
		}
		return combos[i].TeamID < combos[j].TeamID
	})

	counter := NewExperienceCounter()
	contexts := make(map[string]types.InjuryContext, len(combos))
	for _, c := range combos {
		absent := absentByGame[gameTeamKey(c.GameID, c.TeamID)]
		hash := ConfigHash(absentKeys(absent))
		experience := counter.Visit(c.TeamID, hash)
		pool := pools[poolKey(c.TeamID, c.Season)]
		contexts[gameTeamKey(c.GameID, c.TeamID)] = FromRoles(pool, absent, experience)
	}

	for _, g := range games {
		ctx := contexts[gameTeamKey(g.GameID, g.TeamID)]
		ctx.Apply(g)
	}

	log.WithField("game_team_combos", len(combos)).Info("Annotated injury context")
}

// rolePools groups role rows by (team, season), sorted by average minutes
// descending so starter slots and the rotation cutoff line up with minutes
// rank.
func rolePools(roleRows []*types.RoleRow) map[string][]*types.RoleRow {
	pools := make(map[string][]*types.RoleRow)
	for _, r := range roleRows {
		key := poolKey(r.TeamID, r.Season)
		pools[key] = append(pools[key], r)
	}
	for _, pool := range pools {
		sort.Slice(pool, func(i, j int) bool {
			if pool[i].AvgMinutes != pool[j].AvgMinutes {
				return pool[i].AvgMinutes > pool[j].AvgMinutes
			}
			return pool[i].PlayerID < pool[j].PlayerID
		})
	}
	return pools
}

func gameTeamKey(gameID string, teamID int64) string {
	return fmt.Sprintf("%s|%d", gameID, teamID)
}

func poolKey(teamID int64, season string) string {
	return fmt.Sprintf("%d|%s", teamID, season)
}

// Compute approximates a context at serving time, where the processed data
// holds no role table. Roles are recomputed from each current-team player's
// latest season averages, then matched against the requested absence set.
// Configuration experience comes from the processed rows' recorded counts.
func Compute(ds *dataset.Dataset, cfg *config.Config, teamAbbr string, absentIDs []int64, asOf *time.Time) types.InjuryContext {
	if len(absentIDs) == 0 {
		return types.InjuryContext{ConfigHash: types.HealthyConfigHash}
	}

	log := logger.WithTeam(teamAbbr)

	teamRows := ds.TeamRows(teamAbbr, asOf)
	if len(teamRows) == 0 {
		log.Warn("No rows for team; injury context defaults to zero")
		return types.InjuryContext{ConfigHash: ConfigHash(absentIDs)}
	}

	// Latest season only, one synthetic role row per player from their most
	// recent appearance.
	season := teamRows[len(teamRows)-1].Season
	latest := make(map[int64]*types.PlayerGame)
	for _, g := range teamRows {
		if g.Season != season {
			continue
		}
		latest[g.PlayerID] = g
	}

	pool := make([]*types.RoleRow, 0, len(latest))
	for _, g := range latest {
		pool = append(pool, &types.RoleRow{
			PlayerID:    g.PlayerID,
			TeamID:      g.TeamID,
			Season:      g.Season,
			AvgPts:      zeroIfMissing(g.SeasonAvgPts),
			AvgAst:      zeroIfMissing(g.SeasonAvgAst),
			AvgReb:      zeroIfMissing(g.SeasonAvgReb),
			AvgStl:      zeroIfMissing(g.SeasonAvgStl),
			AvgBlk:      zeroIfMissing(g.SeasonAvgBlk),
			AvgMinutes:  zeroIfMissing(g.SeasonAvgMinutes),
			GamesPlayed: int(zeroIfMissing(g.GamesPlayedSeason)),
		})
	}

	qualified := make([]*types.RoleRow, 0, len(pool))
	for _, r := range pool {
		if r.GamesPlayed >= cfg.MinGamesForRole {
			qualified = append(qualified, r)
		}
	}
	if len(qualified) == 0 {
		// Early season: nobody qualifies yet, fall back to everyone.
		qualified = pool
	}
	sort.Slice(qualified, func(i, j int) bool {
		if qualified[i].AvgMinutes != qualified[j].AvgMinutes {
			return qualified[i].AvgMinutes > qualified[j].AvgMinutes
		}
		return qualified[i].PlayerID < qualified[j].PlayerID
	})
	roles.AssignRoles(qualified)

	absent := make(map[int64]bool, len(absentIDs))
	for _, id := range absentIDs {
		absent[id] = true
	}

	hash := ConfigHash(absentIDs)
	experience := ds.ConfigExperience(teamAbbr, hash)
	return FromRoles(qualified, absent, experience)
}

func zeroIfMissing(v float64) float64 {
	if types.IsMissing(v) {
		return 0
	}
	return v
}
