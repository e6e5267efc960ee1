package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the pipeline, trainer, and prediction engine read
// at startup. Values come from an optional .env file plus the environment.
type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Data locations
	RawDataDir       string `mapstructure:"RAW_DATA_DIR"`
	ProcessedDataDir string `mapstructure:"PROCESSED_DATA_DIR"`
	ModelsDir        string `mapstructure:"MODELS_DIR"`

	// Training
	SplitDate            string  `mapstructure:"SPLIT_DATE"`
	MinGamesForRole      int     `mapstructure:"MIN_GAMES_FOR_ROLE"`
	SensitivityThreshold float64 `mapstructure:"SENSITIVITY_THRESHOLD"`
	BoostingRounds       int     `mapstructure:"BOOSTING_ROUNDS"`
	LearningRate         float64 `mapstructure:"LEARNING_RATE"`
	MaxTreeDepth         int     `mapstructure:"MAX_TREE_DEPTH"`
	MinSamplesLeaf       int     `mapstructure:"MIN_SAMPLES_LEAF"`
	TrainerSeed          int64   `mapstructure:"TRAINER_SEED"`
}

// LoadConfig reads configuration with defaults matching the shipped pipeline.
func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")

	viper.SetDefault("RAW_DATA_DIR", "data/raw")
	viper.SetDefault("PROCESSED_DATA_DIR", "data/processed")
	viper.SetDefault("MODELS_DIR", "models")

	viper.SetDefault("SPLIT_DATE", "2024-10-01")
	viper.SetDefault("MIN_GAMES_FOR_ROLE", 20)
	viper.SetDefault("SENSITIVITY_THRESHOLD", 0.3)
	viper.SetDefault("BOOSTING_ROUNDS", 500)
	viper.SetDefault("LEARNING_RATE", 0.05)
	viper.SetDefault("MAX_TREE_DEPTH", 6)
	viper.SetDefault("MIN_SAMPLES_LEAF", 20)
	viper.SetDefault("TRAINER_SEED", 42)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if _, err := config.SplitTime(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SplitTime parses the temporal train/test cutoff.
func (c *Config) SplitTime() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.SplitDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid SPLIT_DATE %q: %w", c.SplitDate, err)
	}
	return t, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
