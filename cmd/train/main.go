package main

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nba-ripple/internal/config"
	"github.com/stitts-dev/nba-ripple/internal/dataset"
	"github.com/stitts-dev/nba-ripple/internal/features"
	"github.com/stitts-dev/nba-ripple/internal/model"
	"github.com/stitts-dev/nba-ripple/pkg/logger"
)

// train fits the per-stat baseline and ripple models off the processed
// dataset, selects the ripple formulation, and writes the serving artifacts.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithComponent("train")

	ds, err := dataset.LoadProcessed(filepath.Join(cfg.ProcessedDataDir, "player_games.csv"))
	if err != nil {
		log.Fatalf("Failed to load processed dataset: %v", err)
	}
	log.WithField("rows", ds.Len()).Info("Processed dataset loaded")

	trainer := model.NewTrainer(cfg)
	bundle, err := trainer.Train(ds)
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	for _, stat := range features.StatNames {
		if m, ok := bundle.Metadata.BaselineMetrics[stat]; ok {
			log.WithFields(logrus.Fields{
				"stat": stat,
				"mae":  m.MAE,
				"r2":   m.R2,
			}).Info("Final baseline metrics")
		}
	}
	log.WithField("formulation", bundle.Metadata.Formulation.String()).Info("Training complete")
}
