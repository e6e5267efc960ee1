package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// InitLogger initializes the structured logger with proper configuration
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	log := logrus.New()

	// Override with environment if not provided
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			if isDevelopment {
				logLevel = "debug"
			} else {
				logLevel = "info"
			}
		}
	}

	if level, err := logrus.ParseLevel(strings.ToLower(logLevel)); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", logLevel).Warn("Invalid LOG_LEVEL, using INFO")
	}

	// Set formatter based on environment
	if !isDevelopment || strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	log.SetOutput(os.Stdout)

	Logger = log

	return log
}

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	if Logger == nil {
		return InitLogger("info", false)
	}
	return Logger
}

// WithComponent creates a logger with pipeline component context
func WithComponent(component string) *logrus.Entry {
	return GetLogger().WithField("component", component)
}

// WithPlayer creates a logger with player context
func WithPlayer(playerID int64) *logrus.Entry {
	return GetLogger().WithField("player_id", playerID)
}

// WithTeam creates a logger with team context
func WithTeam(teamAbbr string) *logrus.Entry {
	return GetLogger().WithField("team", teamAbbr)
}

// WithPredictionContext creates a logger with full prediction context
func WithPredictionContext(playerID int64, teamAbbr, opponent string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"player_id": playerID,
		"team":      teamAbbr,
		"opponent":  opponent,
	})
}

// WithRequestContext creates a logger with HTTP request context
func WithRequestContext(requestID, method, path string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"request_id":  requestID,
		"http_method": method,
		"http_path":   path,
	})
}
