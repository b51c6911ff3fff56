package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"ezan-player-backend/internal/player"
	"ezan-player-backend/internal/prayer"
	"ezan-player-backend/internal/store"
)

// Player is the surface of the scheduling engine the control API consumes.
// Satisfied by *player.Service.
type Player interface {
	ScheduleSnapshot() []player.Entry
	ForceFire(event prayer.Event) (suppressed bool, err error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	player  Player
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, p Player, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		player:  p,
		webpush: webpushOptions,
	}
}
