package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-evac-priority/internal/config"
	"github.com/mr1hm/go-evac-priority/internal/geocoding"
	"github.com/mr1hm/go-evac-priority/internal/ranking"
	"github.com/mr1hm/go-evac-priority/internal/repository"
	"github.com/mr1hm/go-evac-priority/internal/service"
	"github.com/mr1hm/go-evac-priority/internal/stream"
)

type Handler struct {
	store           repository.Store
	priority        *service.PriorityService
	geocoder        geocoding.Provider
	broadcaster     *stream.Broadcaster
	defaultStrategy ranking.Strategy
	maxFamilies     int
	log             *slog.Logger
}

// NewHandler wires the HTTP handlers. geocoder and broadcaster may be nil.
func NewHandler(
	store repository.Store,
	priority *service.PriorityService,
	geocoder geocoding.Provider,
	broadcaster *stream.Broadcaster,
	cfg config.RankingConfig,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	strategy, ok := ranking.ParseStrategy(cfg.Strategy)
	if !ok {
		strategy = ranking.StrategyTopological
	}
	return &Handler{
		store:           store,
		priority:        priority,
		geocoder:        geocoder,
		broadcaster:     broadcaster,
		defaultStrategy: strategy,
		maxFamilies:     cfg.MaxFamilies,
		log:             log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.POST("/rank", h.rank)

	api.GET("/families", h.listFamilies)
	api.POST("/families", h.createFamily)
	api.GET("/families/:id", h.getFamily)
	api.PUT("/families/:id", h.updateFamily)
	api.DELETE("/families/:id", h.deleteFamily)

	api.GET("/disasters", h.getDisasters)
	api.POST("/disasters", h.createDisaster)
	api.GET("/disasters/:id/priority", h.prioritize)
	api.GET("/disasters/:id/priority/latest", h.latestPriority)

	api.GET("/stream", h.stream)
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"subscribers": h.subscriberCount(),
	})
}

func (h *Handler) subscriberCount() int {
	if h.broadcaster == nil {
		return 0
	}
	return h.broadcaster.SubscriberCount()
}

// strategyParam reads ?strategy=, falling back to the configured default.
func (h *Handler) strategyParam(c *gin.Context) (ranking.Strategy, bool) {
	s := c.Query("strategy")
	if s == "" {
		return h.defaultStrategy, true
	}
	strategy, ok := ranking.ParseStrategy(s)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "strategy must be weighted or topological"})
		return "", false
	}
	return strategy, true
}

func queryInt(c *gin.Context, name string, def, max int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || (max > 0 && n > max) {
		return def
	}
	return n
}

// writeError maps domain errors onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var invalid *ranking.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     invalid.Error(),
			"family_id": invalid.FamilyID,
			"field":     invalid.Field,
		})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repository.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	default:
		h.log.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
