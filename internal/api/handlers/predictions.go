package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/nba-ripple/internal/engine"
	"github.com/stitts-dev/nba-ripple/internal/types"
	"github.com/stitts-dev/nba-ripple/pkg/logger"
)

// PredictionHandler serves the prediction and ripple endpoints.
type PredictionHandler struct {
	engine *engine.Engine
}

// NewPredictionHandler creates a new prediction handler.
func NewPredictionHandler(eng *engine.Engine) *PredictionHandler {
	return &PredictionHandler{engine: eng}
}

// BaselineRequest is the body of POST /predict/baseline.
type BaselineRequest struct {
	PlayerID   int64  `json:"player_id" binding:"required"`
	Opponent   string `json:"opponent"`
	HomeOrAway string `json:"home_or_away"`
	Date       string `json:"date"`
}

// InjuryRequest is the body of POST /predict/with-injuries.
type InjuryRequest struct {
	PlayerID        int64   `json:"player_id" binding:"required"`
	AbsentPlayerIDs []int64 `json:"absent_player_ids"`
	Opponent        string  `json:"opponent"`
	HomeOrAway      string  `json:"home_or_away"`
	Date            string  `json:"date"`
}

// RippleRequest is the body of POST /ripple-effect.
type RippleRequest struct {
	Team            string  `json:"team" binding:"required"`
	AbsentPlayerIDs []int64 `json:"absent_player_ids"`
	Opponent        string  `json:"opponent"`
	HomeOrAway      string  `json:"home_or_away"`
	Date            string  `json:"date"`
}

// SimulateRequest is the body of POST /simulate-injury. The injured
// player's team is resolved from the dataset, not supplied by the caller.
type SimulateRequest struct {
	InjuredPlayerID int64               `json:"injured_player_id" binding:"required"`
	GameContext     SimulateGameContext `json:"game_context"`
}

// SimulateGameContext carries the hypothetical game settings.
type SimulateGameContext struct {
	Opponent   string `json:"opponent"`
	HomeOrAway string `json:"home_or_away"`
	Date       string `json:"date"`
}

// PredictBaseline handles POST /api/v1/predict/baseline.
func (h *PredictionHandler) PredictBaseline(c *gin.Context) {
	var req BaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	game, err := gameContext(req.Opponent, req.HomeOrAway, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pred, err := h.engine.PredictBaseline(req.PlayerID, game)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pred)
}

// PredictWithInjuries handles POST /api/v1/predict/with-injuries.
func (h *PredictionHandler) PredictWithInjuries(c *gin.Context) {
	var req InjuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	game, err := gameContext(req.Opponent, req.HomeOrAway, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pred, err := h.engine.PredictWithInjuries(req.PlayerID, req.AbsentPlayerIDs, game)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pred)
}

// RippleEffect handles POST /api/v1/ripple-effect.
func (h *PredictionHandler) RippleEffect(c *gin.Context) {
	var req RippleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	game, err := gameContext(req.Opponent, req.HomeOrAway, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.GetRippleEffect(req.Team, req.AbsentPlayerIDs, game)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SimulateInjury handles POST /api/v1/simulate-injury.
func (h *PredictionHandler) SimulateInjury(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	game, err := gameContext(req.GameContext.Opponent, req.GameContext.HomeOrAway, req.GameContext.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.SimulateInjury(req.InjuredPlayerID, game)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reload handles POST /api/v1/reload: rebuild the engine snapshot from disk.
func (h *PredictionHandler) Reload(c *gin.Context) {
	if err := h.engine.Reload(); err != nil {
		respondError(c, err)
		return
	}
	meta, err := h.engine.Metadata()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "formulation": meta.Formulation.String()})
}

// Metadata handles GET /api/v1/model/metadata.
func (h *PredictionHandler) Metadata(c *gin.Context) {
	meta, err := h.engine.Metadata()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func gameContext(opponent, homeOrAway, date string) (types.GameContext, error) {
	game := types.GameContext{Opponent: opponent, HomeOrAway: homeOrAway}
	if date != "" {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			return game, errors.New("invalid date, expected YYYY-MM-DD")
		}
		game.Date = &t
	}
	return game, nil
}

// respondError maps the core error taxonomy onto HTTP statuses: unknown
// players/teams are the caller's mistake, missing artifacts mean the service
// is not ready yet, everything else is internal.
func respondError(c *gin.Context, err error) {
	log := logger.GetLogger().WithField("request_id", c.GetString("request_id"))
	switch {
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrArtifactMissing):
		log.WithError(err).Warn("Serving without trained artifacts")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("Prediction request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
