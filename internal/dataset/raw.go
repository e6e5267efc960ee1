package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stitts-dev/nba-ripple/internal/types"
	"github.com/stitts-dev/nba-ripple/pkg/logger"
)

// LoadGameLogs reads the raw per-player game log file produced by the data
// collectors and returns cleaned rows: dates parsed, "MM:SS" minutes
// converted, zero-attempt shooting percentages and missing minutes filled
// with 0, duplicates by (player, game) dropped, sorted by player then date.
func LoadGameLogs(path string) ([]*types.PlayerGame, error) {
	records, col, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	log := logger.WithComponent("dataset")

	var rows []*types.PlayerGame
	seen := make(map[string]bool)
	dupes := 0
	for _, record := range records {
		get := func(name string) string {
			if i, ok := col[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		gameDate, err := time.Parse(dateLayout, get("game_date"))
		if err != nil {
			return nil, fmt.Errorf("bad game_date %q in %s: %w", get("game_date"), path, err)
		}

		g := &types.PlayerGame{
			PlayerID:   parseInt(get("player_id")),
			PlayerName: get("player_name"),
			TeamID:     parseInt(get("team_id")),
			TeamAbbr:   get("team_abbr"),
			GameID:     get("game_id"),
			GameDate:   gameDate,
			Season:     get("season"),
			Opponent:   get("opponent"),
			HomeAway:   strings.ToUpper(get("home_away")),

			Pts:       parseFloat(get("pts")),
			Ast:       parseFloat(get("ast")),
			Reb:       parseFloat(get("reb")),
			Stl:       parseFloat(get("stl")),
			Blk:       parseFloat(get("blk")),
			Tov:       parseFloat(get("tov")),
			FgPct:     zeroIfMissing(parseFloat(get("fg_pct"))),
			FtPct:     zeroIfMissing(parseFloat(get("ft_pct"))),
			Fg3Pct:    zeroIfMissing(parseFloat(get("fg3_pct"))),
			PlusMinus: zeroIfMissing(parseFloat(get("plus_minus"))),
			Minutes:   parseMinutes(get("minutes")),
		}

		// Same player twice for the same game should not happen; keep first.
		key := fmt.Sprintf("%d|%s", g.PlayerID, g.GameID)
		if seen[key] {
			dupes++
			continue
		}
		seen[key] = true
		rows = append(rows, g)
	}
	if dupes > 0 {
		log.WithField("rows", dupes).Warn("Removed duplicate game log rows")
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].PlayerID != rows[j].PlayerID {
			return rows[i].PlayerID < rows[j].PlayerID
		}
		return rows[i].GameDate.Before(rows[j].GameDate)
	})
	return rows, nil
}

// LoadRosters reads roster demographics. Season formats are normalized to
// the game-log convention ("2022" becomes "2022-23") and rookie experience
// markers become 0.
func LoadRosters(path string) ([]types.RosterEntry, error) {
	records, col, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var rosters []types.RosterEntry
	for _, record := range records {
		get := func(name string) string {
			if i, ok := col[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		rosters = append(rosters, types.RosterEntry{
			PlayerID:   parseInt(get("player_id")),
			TeamID:     parseInt(get("team_id")),
			Season:     NormalizeSeason(get("season")),
			Position:   get("position"),
			Age:        parseFloat(get("age")),
			Experience: parseExperience(get("experience")),
		})
	}
	return rosters, nil
}

// LoadAbsences reads the derived absence records produced by the injury
// collector. Consumed read-only.
func LoadAbsences(path string) ([]types.Absence, error) {
	records, col, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var absences []types.Absence
	for _, record := range records {
		get := func(name string) string {
			if i, ok := col[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		gameDate, err := time.Parse(dateLayout, get("game_date"))
		if err != nil {
			return nil, fmt.Errorf("bad game_date %q in %s: %w", get("game_date"), path, err)
		}
		absences = append(absences, types.Absence{
			PlayerID: parseInt(get("player_id")),
			TeamID:   parseInt(get("team_id")),
			GameID:   get("game_id"),
			GameDate: gameDate,
			Season:   get("season"),
		})
	}
	return absences, nil
}

// NormalizeSeason converts a bare starting year to the "2022-23" convention
// used by the game logs; already-formatted values pass through.
func NormalizeSeason(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "-") {
		return s
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	next := strconv.Itoa(year + 1)
	return fmt.Sprintf("%d-%s", year, next[len(next)-2:])
}

// parseMinutes handles both decimal minutes and the "MM:SS" form some
// upstream endpoints return. Unparseable values become 0.
func parseMinutes(s string) float64 {
	if s == "" {
		return 0
	}
	if strings.Contains(s, ":") {
		parts := strings.SplitN(s, ":", 2)
		mins, err1 := strconv.ParseFloat(parts[0], 64)
		secs, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			return 0
		}
		return mins + secs/60
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseExperience converts roster experience, where 'R' marks a rookie.
func parseExperience(s string) float64 {
	if strings.EqualFold(s, "R") {
		return 0
	}
	return parseFloat(s)
}

func zeroIfMissing(v float64) float64 {
	if types.IsMissing(v) {
		return 0
	}
	return v
}

func readCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("reading %s: empty file", path)
	}

	col := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		col[strings.TrimSpace(name)] = i
	}
	return all[1:], col, nil
}
