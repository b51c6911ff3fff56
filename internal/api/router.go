package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"ezan-player-backend/config"
	"ezan-player-backend/internal/mw"
	"ezan-player-backend/internal/store"
)

// NewRouter creates and configures a new Gin router for the control surface.
func NewRouter(s store.Store, p Player, webpushOptions *webpush.Options, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, p, webpushOptions)

	limit := rate.Limit(10)
	if cfg != nil && cfg.RateLimitPerSec > 0 {
		limit = rate.Limit(cfg.RateLimitPerSec)
	}
	rateLimiter := mw.RateLimiter(limit, 5)

	cacheTTL := 5 * time.Second
	if cfg != nil && cfg.CacheTTLSeconds > 0 {
		cacheTTL = time.Duration(cfg.CacheTTLSeconds) * time.Second
	}
	cacheStore := cache.New(cacheTTL, 10*time.Minute)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/status", handler.GetStatus)
		api.GET("/schedule", handler.GetSchedule)
		api.GET("/firings", caching, handler.GetFirings)

		api.POST("/mode", handler.SetMode)
		api.POST("/volume", handler.SetVolume)
		api.POST("/restore", handler.SetRestore)
		api.POST("/play_test", handler.PlayTest)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
