package injury

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/nba-ripple/internal/types"
)

func logRow(playerID, teamID int64, gameID string, date time.Time) *types.PlayerGame {
	return &types.PlayerGame{
		PlayerID: playerID,
		TeamID:   teamID,
		GameID:   gameID,
		GameDate: date,
		Season:   "2023-24",
	}
}

func absenceKeys(absences []types.Absence) []string {
	keys := make([]string, len(absences))
	for i, a := range absences {
		keys[i] = fmt.Sprintf("%d@%s/%d", a.PlayerID, a.GameID, a.TeamID)
	}
	return keys
}

func TestDeriveAbsencesFindsMissingRosterPlayer(t *testing.T) {
	nov := func(day int) time.Time { return time.Date(2023, 11, day, 0, 0, 0, 0, time.UTC) }
	games := []*types.PlayerGame{
		logRow(1, 1, "A1", nov(1)),
		logRow(2, 1, "A1", nov(1)),
		logRow(1, 1, "A2", nov(3)),
		// player 2 skips A2
	}
	rosters := []types.RosterEntry{
		{PlayerID: 1, TeamID: 1, Season: "2023-24"},
		{PlayerID: 2, TeamID: 1, Season: "2023-24"},
	}

	absences := DeriveAbsences(games, rosters)
	assert.Equal(t, []string{"2@A2/1"}, absenceKeys(absences))
}

// A mid-season trade puts a player on both rosters. Their absences must be
// confined to their actual tenure with each team: no "absent from the old
// team" after the trade, no "absent from the new team" before it.
func TestDeriveAbsencesIgnoresTradeArtifacts(t *testing.T) {
	day := func(month, d int) time.Time { return time.Date(2023, time.Month(month), d, 0, 0, 0, 0, time.UTC) }

	var games []*types.PlayerGame
	// Team 1 plays four November games, team 2 four December games. Player 20
	// anchors each team's schedule; player 10 is traded from 1 to 2 between
	// the months.
	for i := 1; i <= 4; i++ {
		games = append(games,
			logRow(20, 1, fmt.Sprintf("N%d", i), day(11, 2*i)),
			logRow(10, 1, fmt.Sprintf("N%d", i), day(11, 2*i)),
			logRow(21, 2, fmt.Sprintf("D%d", i), day(12, 2*i)),
			logRow(10, 2, fmt.Sprintf("D%d", i), day(12, 2*i)),
		)
	}
	// December team-1 games the traded player should NOT be absent from, and
	// November team-2 games likewise.
	games = append(games,
		logRow(20, 1, "N5", day(12, 10)),
		logRow(21, 2, "D0", day(11, 10)),
	)
	rosters := []types.RosterEntry{
		{PlayerID: 20, TeamID: 1, Season: "2023-24"},
		{PlayerID: 10, TeamID: 1, Season: "2023-24"},
		{PlayerID: 21, TeamID: 2, Season: "2023-24"},
		{PlayerID: 10, TeamID: 2, Season: "2023-24"},
	}

	absences := DeriveAbsences(games, rosters)
	for _, a := range absences {
		assert.NotEqual(t, int64(10), a.PlayerID,
			"traded player flagged absent from %s (team %d) outside tenure", a.GameID, a.TeamID)
	}
}

// The tenure buffer keeps a genuine late-season injury: the player stops
// appearing but stays absent for games shortly after their last one.
func TestDeriveAbsencesKeepsInjuryInsideBuffer(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	games := []*types.PlayerGame{
		logRow(1, 1, "G1", day(1)),
		logRow(2, 1, "G1", day(1)),
		logRow(1, 1, "G2", day(20)), // player 2 out, 19 days after last game
	}
	rosters := []types.RosterEntry{
		{PlayerID: 1, TeamID: 1, Season: "2023-24"},
		{PlayerID: 2, TeamID: 1, Season: "2023-24"},
	}

	absences := DeriveAbsences(games, rosters)
	assert.Equal(t, []string{"2@G2/1"}, absenceKeys(absences))
}

// Rostered players who never appear at all (season-long injury, two-way
// contract) keep every absence.
func TestDeriveAbsencesKeepsNeverPlayed(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	games := []*types.PlayerGame{
		logRow(1, 1, "G1", day(1)),
		logRow(1, 1, "G2", day(3)),
	}
	rosters := []types.RosterEntry{
		{PlayerID: 1, TeamID: 1, Season: "2023-24"},
		{PlayerID: 9, TeamID: 1, Season: "2023-24"},
	}

	absences := DeriveAbsences(games, rosters)
	assert.ElementsMatch(t, []string{"9@G1/1", "9@G2/1"}, absenceKeys(absences))
}

func TestMergeAbsencesDropsDuplicates(t *testing.T) {
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	derived := []types.Absence{
		{PlayerID: 1, TeamID: 1, GameID: "G1", GameDate: date, Season: "2023-24"},
	}
	extra := []types.Absence{
		{PlayerID: 1, TeamID: 1, GameID: "G1", GameDate: date, Season: "2023-24"},
		{PlayerID: 2, TeamID: 1, GameID: "G1", GameDate: date, Season: "2023-24"},
	}

	merged := MergeAbsences(derived, extra)
	assert.ElementsMatch(t, []string{"1@G1/1", "2@G1/1"}, absenceKeys(merged))
}
