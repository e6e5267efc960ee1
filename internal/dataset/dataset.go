// Package dataset loads the tabular player-game record and serves the
// indexed lookups the engines need: per-player histories, current-team
// resolution, and injury-configuration experience.
package dataset

import (
	"fmt"
	"sort"
	"time"

	"github.com/stitts-dev/nba-ripple/internal/types"
)

// Dataset is the in-memory processed player-game record with the lookup
// indexes built once up front. It is treated as immutable after New; the
// engine swaps whole Dataset values on reload.
type Dataset struct {
	rows []*types.PlayerGame

	byPlayer map[int64][]*types.PlayerGame
	byTeam   map[string][]*types.PlayerGame
}

// New indexes an already-loaded set of rows. The input contract guarantees
// rows are deduplicated by (player, game); each index is kept in game-date
// order regardless of input order.
func New(rows []*types.PlayerGame) *Dataset {
	d := &Dataset{
		rows:     rows,
		byPlayer: make(map[int64][]*types.PlayerGame),
		byTeam:   make(map[string][]*types.PlayerGame),
	}
	for _, row := range rows {
		d.byPlayer[row.PlayerID] = append(d.byPlayer[row.PlayerID], row)
		d.byTeam[row.TeamAbbr] = append(d.byTeam[row.TeamAbbr], row)
	}
	for _, playerRows := range d.byPlayer {
		sortByDate(playerRows)
	}
	for _, teamRows := range d.byTeam {
		sortByDate(teamRows)
	}
	return d
}

func sortByDate(rows []*types.PlayerGame) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].GameDate.Before(rows[j].GameDate)
	})
}

// Len returns the number of player-game rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Rows returns all rows. Callers must not mutate them.
func (d *Dataset) Rows() []*types.PlayerGame {
	return d.rows
}

// PlayerRows returns a player's rows in date order.
func (d *Dataset) PlayerRows(playerID int64) []*types.PlayerGame {
	return d.byPlayer[playerID]
}

// PlayerName resolves a player's display name from their latest row.
func (d *Dataset) PlayerName(playerID int64) string {
	rows := d.byPlayer[playerID]
	if len(rows) == 0 {
		return fmt.Sprintf("Unknown (%d)", playerID)
	}
	return rows[len(rows)-1].PlayerName
}

// CurrentTeam resolves the team of a player's most recent game. A traded
// player resolves to the team they moved to, never a previous one.
func (d *Dataset) CurrentTeam(playerID int64) (string, bool) {
	rows := d.byPlayer[playerID]
	if len(rows) == 0 {
		return "", false
	}
	last := rows[len(rows)-1]
	if last.CurrentTeam != "" {
		return last.CurrentTeam, true
	}
	return last.TeamAbbr, true
}

// LatestRowBefore returns the player's most recent row on their most recent
// team, optionally restricted to games strictly before asOf. Rows from teams
// the player has since left are never returned.
func (d *Dataset) LatestRowBefore(playerID int64, asOf *time.Time) (*types.PlayerGame, error) {
	rows := d.byPlayer[playerID]
	if len(rows) == 0 {
		return nil, types.NotFoundf("player %d not found in processed data", playerID)
	}

	team, _ := d.CurrentTeam(playerID)
	var latest *types.PlayerGame
	for _, row := range rows {
		if row.TeamAbbr != team {
			continue
		}
		if asOf != nil && !row.GameDate.Before(*asOf) {
			continue
		}
		latest = row
	}
	if latest == nil {
		if asOf != nil {
			return nil, types.NotFoundf("no data for player %d before %s", playerID, asOf.Format("2006-01-02"))
		}
		return nil, types.NotFoundf("no data for player %d on team %s", playerID, team)
	}
	return latest, nil
}

// LatestOpponentRow returns the player's most recent row against an opponent
// while on their most recent team, optionally date-bounded. ok is false when
// no such matchup exists.
func (d *Dataset) LatestOpponentRow(playerID int64, opponent string, asOf *time.Time) (*types.PlayerGame, bool) {
	team, found := d.CurrentTeam(playerID)
	if !found {
		return nil, false
	}
	var latest *types.PlayerGame
	for _, row := range d.byPlayer[playerID] {
		if row.TeamAbbr != team || row.Opponent != opponent {
			continue
		}
		if asOf != nil && !row.GameDate.Before(*asOf) {
			continue
		}
		latest = row
	}
	return latest, latest != nil
}

// TeamRows returns the rows a team logged for players still on that team,
// in date order and optionally bounded by asOf. Restricting to current
// members keeps a traded player's old-team rows out of their new team's
// context and vice versa.
func (d *Dataset) TeamRows(teamAbbr string, asOf *time.Time) []*types.PlayerGame {
	var rows []*types.PlayerGame
	for _, row := range d.byTeam[teamAbbr] {
		if row.CurrentTeam != teamAbbr {
			continue
		}
		if asOf != nil && !row.GameDate.Before(*asOf) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// ActivePlayers returns the current-roster players of a team in the team's
// latest observed season, excluding the given absent set.
func (d *Dataset) ActivePlayers(teamAbbr string, absent map[int64]bool, asOf *time.Time) []int64 {
	teamRows := d.TeamRows(teamAbbr, asOf)
	if len(teamRows) == 0 {
		return nil
	}

	latestSeason := teamRows[len(teamRows)-1].Season
	seen := make(map[int64]bool)
	var players []int64
	for _, row := range teamRows {
		if row.Season != latestSeason || seen[row.PlayerID] || absent[row.PlayerID] {
			continue
		}
		seen[row.PlayerID] = true
		players = append(players, row.PlayerID)
	}
	return players
}

// ConfigExperience returns the highest recorded visit count for an injury
// configuration on a team: the frozen, last-observed experience used when
// serving a never-before-seen future game. 0 if the configuration never
// occurred.
func (d *Dataset) ConfigExperience(teamAbbr, configHash string) int {
	best := 0
	for _, row := range d.byTeam[teamAbbr] {
		if row.InjuryConfigHash != configHash {
			continue
		}
		if !types.IsMissing(row.GamesWithThisConfig) && int(row.GamesWithThisConfig) > best {
			best = int(row.GamesWithThisConfig)
		}
	}
	return best
}
