package roles

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nba-ripple/internal/types"
)

func roleRow(playerID int64, minutes, pts, ast, reb, stl, blk float64) *types.RoleRow {
	return &types.RoleRow{
		PlayerID:    playerID,
		TeamID:      1,
		Season:      "2023-24",
		AvgMinutes:  minutes,
		AvgPts:      pts,
		AvgAst:      ast,
		AvgReb:      reb,
		AvgStl:      stl,
		AvgBlk:      blk,
		GamesPlayed: 60,
	}
}

// Nine-man rotation, minutes descending by player ID for readability.
func nineManPool() []*types.RoleRow {
	return []*types.RoleRow{
		roleRow(1, 36, 28, 3, 5, 1.0, 0.2), // starter, primary scorer
		roleRow(2, 34, 18, 9, 4, 1.2, 0.1), // starter, ball handler
		roleRow(3, 33, 15, 4, 11, 0.8, 0.9), // starter, primary rebounder
		roleRow(4, 31, 12, 2, 6, 1.8, 1.4), // starter, primary defender
		roleRow(5, 30, 10, 5, 3, 0.6, 0.3), // starter
		roleRow(6, 24, 14, 3, 4, 0.5, 0.4), // sixth man
		roleRow(7, 18, 6, 2, 2, 0.4, 0.2),
		roleRow(8, 12, 4, 1, 2, 0.3, 0.1),
		roleRow(9, 8, 2, 1, 1, 0.1, 0.1),
	}
}

func TestAssignRolesFiveStartersAndRoles(t *testing.T) {
	pool := nineManPool()
	AssignRoles(pool)

	starters := 0
	for _, r := range pool {
		if r.IsStarter {
			starters++
		}
	}
	assert.Equal(t, 5, starters)

	byID := make(map[int64]*types.RoleRow)
	for _, r := range pool {
		byID[r.PlayerID] = r
	}
	assert.True(t, byID[1].RoleScorer)
	assert.True(t, byID[2].RoleBallHandler)
	assert.True(t, byID[3].RoleRebounder)
	assert.True(t, byID[4].RoleDefender, "stl + blk decides the defender")
	assert.True(t, byID[6].RoleSixthMan, "highest-minute non-starter")
	assert.False(t, byID[6].IsStarter)
	assert.False(t, byID[7].RoleSixthMan)
}

func TestAssignRolesTiesFlagAllHolders(t *testing.T) {
	pool := []*types.RoleRow{
		roleRow(1, 36, 25, 3, 5, 1, 0.2),
		roleRow(2, 34, 25, 8, 4, 1, 0.1), // tied for top scorer
		roleRow(3, 32, 10, 4, 8, 1, 0.5),
	}
	AssignRoles(pool)

	assert.True(t, pool[0].RoleScorer)
	assert.True(t, pool[1].RoleScorer)
	assert.False(t, pool[2].RoleScorer)
}

func TestAssignRolesFewerThanFiveQualified(t *testing.T) {
	pool := []*types.RoleRow{
		roleRow(1, 36, 25, 3, 5, 1, 0.2),
		roleRow(2, 34, 18, 8, 4, 1, 0.1),
		roleRow(3, 32, 10, 4, 8, 1, 0.5),
	}
	AssignRoles(pool)

	for _, r := range pool {
		assert.True(t, r.IsStarter, "player %d", r.PlayerID)
		assert.False(t, r.RoleSixthMan, "no bench left to hold sixth man")
	}
}

func TestAssignRolesEmptyPool(t *testing.T) {
	assert.NotPanics(t, func() { AssignRoles(nil) })
}

func TestDetectQualificationThreshold(t *testing.T) {
	rows := make([]*types.PlayerGame, 0)
	addGames := func(playerID int64, n int, minutes float64) {
		for i := 0; i < n; i++ {
			rows = append(rows, &types.PlayerGame{
				PlayerID: playerID,
				TeamID:   1,
				TeamAbbr: "LAL",
				Season:   "2023-24",
				GameID:   fmt.Sprintf("P%d-G%d", playerID, i),
				GameDate: time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
				Minutes:  minutes,
				Pts:      10,
			})
		}
	}
	addGames(1, 25, 35) // qualified
	addGames(2, 25, 30) // qualified
	addGames(3, 5, 40)  // big minutes but too few games

	roleRows := Detect(rows, nil, 20)
	require.Len(t, roleRows, 3, "unqualified players keep their averages")

	byID := make(map[int64]*types.RoleRow)
	for _, r := range roleRows {
		byID[r.PlayerID] = r
	}
	assert.True(t, byID[1].IsStarter)
	assert.True(t, byID[2].IsStarter)
	assert.False(t, byID[3].IsStarter, "below the games threshold")
	assert.Equal(t, 25, byID[1].GamesPlayed)
	assert.InDelta(t, 35.0, byID[1].AvgMinutes, 1e-9)
}
