package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ezan-player-backend/internal/player"
	"ezan-player-backend/internal/prayer"
)

type playTestRequest struct {
	Prayer string `json:"prayer" binding:"required"`
}

// PlayTest handles POST /api/play_test: a manual firing that bypasses the
// due-time check but runs the full executor sequence, suppression included.
func (h *Handler) PlayTest(c *gin.Context) {
	var req playTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := prayer.Event(req.Prayer)
	suppressed, err := h.player.ForceFire(event)
	if err != nil {
		if errors.Is(err, player.ErrNotArmed) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "trigger is not armed"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if suppressed {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Office mode active - ezan disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": req.Prayer + " ezan played"})
}

// GetFirings handles GET /api/firings, returning recent firing history.
func (h *Handler) GetFirings(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	firings, err := h.store.RecentFirings(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list firings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"firings": firings})
}
