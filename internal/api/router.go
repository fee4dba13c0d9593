package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lab-tracker-backend/config"
	"lab-tracker-backend/internal/logging"
	"lab-tracker-backend/internal/mw"
	"lab-tracker-backend/internal/occupancy"
	"lab-tracker-backend/internal/store"
)

// NewRouter wires every /api route onto a fresh gin engine.
func NewRouter(s store.Store, engine *occupancy.Engine, webpushOptions *webpush.Options, cfg config.ServerConfig, logger *zap.Logger) *gin.Engine {
	logger = logging.OrNop(logger)

	r := gin.New()
	r.Use(mw.Logger(logger), gin.Recovery())

	handler := NewHandler(s, engine, webpushOptions, logger)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	responses := mw.NewResponseCache(cache.New(ttl, 2*ttl))
	caching := responses.Middleware(ttl)
	// Any write may add a lab or a person, so cached lookups are dropped.
	invalidate := responses.Invalidate()

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/register", invalidate, handler.Register)
		api.POST("/scan", invalidate, handler.Scan)
		api.POST("/scan/manual", invalidate, handler.ScanManual)

		api.GET("/person/:id", caching, handler.GetPerson)
		api.GET("/persons", handler.ListPersons)
		api.GET("/labs", caching, handler.GetLabs)

		api.GET("/records", handler.ListRecords)
		api.DELETE("/records/:id", handler.DeleteRecord)
		api.DELETE("/records", handler.DeleteAllRecords)
		api.GET("/current_lab_status", handler.CurrentLabStatus)

		api.GET("/export/excel", handler.ExportRecords)
		api.GET("/export/current_status", handler.ExportCurrentStatus)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
