package handlers

import (
	"net/http"

	"arcade_webapp/internal/domain"
	"arcade_webapp/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

type levelRequest struct {
	Action     string            `json:"action"`
	Difficulty string            `json:"difficulty"`
	Obstacles  []domain.Obstacle `json:"obstacles"`
}

// GetLevels returns the whole difficulty -> obstacles mapping
func (h *Handler) GetLevels(c *gin.Context) {
	levels, err := h.Levels.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, levels)
}

// PostLevels runs saveLevel, clearLevel or clearAll. Saving without a
// difficulty or obstacles, or clearing an absent level, changes nothing.
func (h *Handler) PostLevels(c *gin.Context) {
	var req levelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ctx := c.Request.Context()

	var err error
	switch req.Action {
	case "saveLevel":
		if req.Difficulty != "" && req.Obstacles != nil {
			err = h.Levels.Save(ctx, req.Difficulty, req.Obstacles)
		}
	case "clearLevel":
		if req.Difficulty != "" {
			err = h.Levels.Clear(ctx, req.Difficulty)
		}
	case "clearAll":
		err = h.Levels.ClearAll(ctx)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action"})
		middleware.ObserveAction("levels", "unknown", http.StatusBadRequest)
		return
	}
	if err != nil {
		respondError(c, err)
		middleware.ObserveAction("levels", req.Action, c.Writer.Status())
		return
	}

	levels, err := h.Levels.All(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "levels": levels})
	middleware.ObserveAction("levels", req.Action, http.StatusOK)
}
