package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"lab-tracker-backend/internal/logging"
	"lab-tracker-backend/internal/occupancy"
	"lab-tracker-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	engine  *occupancy.Engine
	webpush *webpush.Options
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, engine *occupancy.Engine, webpushOptions *webpush.Options, logger *zap.Logger) *Handler {
	h := &Handler{
		store:   s,
		engine:  engine,
		webpush: webpushOptions,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
	// Exports are stamped with the same clock that stamps records.
	if engine != nil {
		h.now = engine.Now
	}
	return h
}
