package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"ezan-player-backend/internal/model"
	"ezan-player-backend/internal/prayer"
)

type setModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// SetMode handles POST /api/mode, toggling between home and office mode.
func (h *Handler) SetMode(c *gin.Context) {
	var req setModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SetMode(c.Request.Context(), req.Mode); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Mode == model.ModeOffice {
		log.Printf("DASHBOARD: Mode changed to OFFICE, prayers will be skipped")
	} else {
		log.Printf("DASHBOARD: Mode changed to HOME, prayers will play normally")
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "mode": req.Mode})
}

type setVolumeRequest struct {
	Volume *int   `json:"volume" binding:"required"`
	Event  string `json:"event"`
}

// SetVolume handles POST /api/volume. Without an event it sets the default
// cue volume; with one it sets that event's override.
func (h *Handler) SetVolume(c *gin.Context) {
	var req setVolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.Event != "" {
		if !prayer.Event(req.Event).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event"})
			return
		}
		if err := h.store.SetEventVolume(ctx, req.Event, *req.Volume); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		log.Printf("DASHBOARD: %s volume set to %d%%", req.Event, *req.Volume)
	} else {
		if err := h.store.SetDefaultVolume(ctx, *req.Volume); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		log.Printf("DASHBOARD: Ezan volume set to %d%%", *req.Volume)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "volume": *req.Volume})
}

type setRestoreRequest struct {
	Restore      *bool `json:"restore" binding:"required"`
	DelaySeconds int   `json:"delay_seconds"`
}

// SetRestore handles POST /api/restore, configuring post-cue volume
// restoration.
func (h *Handler) SetRestore(c *gin.Context) {
	var req setRestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SetRestore(c.Request.Context(), *req.Restore, req.DelaySeconds); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
