package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// nextPrayerResponse describes the next upcoming armed trigger.
type nextPrayerResponse struct {
	Name      string `json:"name"`
	Time      string `json:"time"`
	Countdown string `json:"countdown"`
}

// statusResponse is the dashboard's status payload.
type statusResponse struct {
	Mode        string              `json:"mode"`
	Volume      int                 `json:"volume"`
	PrayerTimes map[string]string   `json:"prayer_times"`
	NextPrayer  *nextPrayerResponse `json:"next_prayer"`
	CurrentTime string              `json:"current_time"`
}

// GetStatus handles the GET /api/status request.
func (h *Handler) GetStatus(c *gin.Context) {
	settings, err := h.store.Settings(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}

	entries := h.player.ScheduleSnapshot()
	now := time.Now()
	if len(entries) > 0 {
		now = now.In(entries[0].FireAt.Location())
	}

	times := make(map[string]string, len(entries))
	var next *nextPrayerResponse
	for _, e := range entries {
		times[e.Event.String()] = e.FireAt.Format("15:04")
		if next == nil && e.Armed && !e.Fired && e.FireAt.After(now) {
			next = &nextPrayerResponse{
				Name:      e.Event.String(),
				Time:      e.FireAt.Format("15:04"),
				Countdown: e.FireAt.Sub(now).Truncate(time.Second).String(),
			}
		}
	}

	c.JSON(http.StatusOK, statusResponse{
		Mode:        settings.Mode,
		Volume:      settings.DefaultVolume,
		PrayerTimes: times,
		NextPrayer:  next,
		CurrentTime: now.Format("15:04:05"),
	})
}

// GetSchedule handles the GET /api/schedule request, returning the trigger
// table snapshot in ascending fire-time order.
func (h *Handler) GetSchedule(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"schedule": h.player.ScheduleSnapshot()})
}
