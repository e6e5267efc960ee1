package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nba-ripple/internal/config"
	"github.com/stitts-dev/nba-ripple/internal/dataset"
	"github.com/stitts-dev/nba-ripple/internal/features"
	"github.com/stitts-dev/nba-ripple/internal/injury"
	"github.com/stitts-dev/nba-ripple/internal/roles"
	"github.com/stitts-dev/nba-ripple/internal/types"
	"github.com/stitts-dev/nba-ripple/pkg/logger"
)

// process-data turns the raw collector files into the processed training
// dataset: cleaned game logs with rolling features, role flags, derived
// absences, and injury-context columns.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithComponent("process_data")

	rows, err := dataset.LoadGameLogs(filepath.Join(cfg.RawDataDir, "game_logs.csv"))
	if err != nil {
		log.Fatalf("Failed to load game logs: %v", err)
	}
	rosters, err := dataset.LoadRosters(filepath.Join(cfg.RawDataDir, "rosters.csv"))
	if err != nil {
		log.Fatalf("Failed to load rosters: %v", err)
	}
	log.WithFields(logrus.Fields{"games": len(rows), "roster_entries": len(rosters)}).Info("Raw data loaded")

	features.BuildPlayerFeatures(rows, rosters)
	features.BuildTargets(rows)
	features.AssignCurrentTeam(rows)

	roleRows := roles.Detect(rows, rosters, cfg.MinGamesForRole)

	absences := injury.DeriveAbsences(rows, rosters)
	if extraPath := filepath.Join(cfg.RawDataDir, "absences.csv"); fileExists(extraPath) {
		extra, err := dataset.LoadAbsences(extraPath)
		if err != nil {
			log.Fatalf("Failed to load absence records: %v", err)
		}
		absences = injury.MergeAbsences(absences, extra)
		log.WithField("total", len(absences)).Info("Merged collector absence records")
	}

	injury.Annotate(rows, absences, roleRows)

	rows = features.DropRowsWithoutHistory(rows)

	if err := os.MkdirAll(cfg.ProcessedDataDir, 0o755); err != nil {
		log.Fatalf("Failed to create processed dir: %v", err)
	}
	if err := dataset.SaveProcessed(filepath.Join(cfg.ProcessedDataDir, "player_games.csv"), rows); err != nil {
		log.Fatalf("Failed to save processed dataset: %v", err)
	}
	if err := saveRoles(filepath.Join(cfg.ProcessedDataDir, "team_roles.json"), roleRows); err != nil {
		log.Fatalf("Failed to save role table: %v", err)
	}

	log.WithField("rows", len(rows)).Info("Processed dataset written")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func saveRoles(path string, roleRows []*types.RoleRow) error {
	data, err := json.MarshalIndent(roleRows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
