package injury

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nba-ripple/internal/types"
	"github.com/stitts-dev/nba-ripple/pkg/logger"
)

// tenureBufferDays extends a player's last appearance for a team so a
// late-season injury still reads as an absence rather than a departure.
const tenureBufferDays = 30

// tenure is a player's game-log date range with one team in one season.
type tenure struct {
	first time.Time
	last  time.Time
}

// DeriveAbsences finds every rostered player missing from their team's game
// log for a game they should have appeared in. A player on the roster for a
// (team, season) who has no row for one of that team's games that season is
// recorded absent, whatever the reason upstream.
//
// Mid-season trades put a player on two rosters, which would mark them
// absent from the old team after the trade and from the new team before it.
// An absence is therefore kept only inside the player's tenure with that
// team (first appearance through last appearance plus a buffer). Players
// with no appearances at all for a team-season keep every absence; they were
// rostered but never played.
func DeriveAbsences(games []*types.PlayerGame, rosters []types.RosterEntry) []types.Absence {
	log := logger.WithComponent("absence_detection")

	rosterByTeamSeason := make(map[string][]int64)
	for _, r := range rosters {
		key := poolKey(r.TeamID, r.Season)
		rosterByTeamSeason[key] = append(rosterByTeamSeason[key], r.PlayerID)
	}

	tenures := make(map[string]tenure)
	for _, g := range games {
		key := tenureKey(g.PlayerID, g.TeamID, g.Season)
		t, ok := tenures[key]
		if !ok {
			tenures[key] = tenure{first: g.GameDate, last: g.GameDate}
			continue
		}
		if g.GameDate.Before(t.first) {
			t.first = g.GameDate
		}
		if g.GameDate.After(t.last) {
			t.last = g.GameDate
		}
		tenures[key] = t
	}

	type gameInfo struct {
		teamGame
		played map[int64]bool
	}
	byGameTeam := make(map[string]*gameInfo)
	for _, g := range games {
		key := gameTeamKey(g.GameID, g.TeamID)
		info := byGameTeam[key]
		if info == nil {
			info = &gameInfo{
				teamGame: teamGame{GameID: g.GameID, TeamID: g.TeamID, Season: g.Season, GameDate: g.GameDate},
				played:   make(map[int64]bool),
			}
			byGameTeam[key] = info
		}
		info.played[g.PlayerID] = true
	}

	dropped := 0
	absences := make([]types.Absence, 0)
	for _, info := range byGameTeam {
		roster := rosterByTeamSeason[poolKey(info.TeamID, info.Season)]
		for _, playerID := range roster {
			if info.played[playerID] {
				continue
			}
			if t, ok := tenures[tenureKey(playerID, info.TeamID, info.Season)]; ok {
				if info.GameDate.Before(t.first) || info.GameDate.After(t.last.AddDate(0, 0, tenureBufferDays)) {
					dropped++
					continue
				}
			}
			absences = append(absences, types.Absence{
				PlayerID: playerID,
				TeamID:   info.TeamID,
				GameID:   info.GameID,
				GameDate: info.GameDate,
				Season:   info.Season,
			})
		}
	}
	sortAbsences(absences)

	log.WithFields(logrus.Fields{
		"absences":       len(absences),
		"outside_tenure": dropped,
	}).Info("Derived absence records")
	return absences
}

func tenureKey(playerID, teamID int64, season string) string {
	return fmt.Sprintf("%d|%d|%s", playerID, teamID, season)
}

// MergeAbsences combines derived absences with collector-provided records,
// dropping duplicates by (player, game, team).
func MergeAbsences(derived, extra []types.Absence) []types.Absence {
	seen := make(map[string]bool, len(derived))
	key := func(a types.Absence) string {
		return fmt.Sprintf("%s|%d|%d", a.GameID, a.TeamID, a.PlayerID)
	}
	out := make([]types.Absence, 0, len(derived)+len(extra))
	for _, a := range derived {
		seen[key(a)] = true
		out = append(out, a)
	}
	for _, a := range extra {
		if seen[key(a)] {
			continue
		}
		seen[key(a)] = true
		out = append(out, a)
	}
	sortAbsences(out)
	return out
}

func sortAbsences(absences []types.Absence) {
	sort.Slice(absences, func(i, j int) bool {
		if !absences[i].GameDate.Equal(absences[j].GameDate) {
			return absences[i].GameDate.Before(absences[j].GameDate)
		}
		if absences[i].GameID != absences[j].GameID {
			return absences[i].GameID < absences[j].GameID
		}
		if absences[i].TeamID != absences[j].TeamID {
			return absences[i].TeamID < absences[j].TeamID
		}
		return absences[i].PlayerID < absences[j].PlayerID
	})
}
