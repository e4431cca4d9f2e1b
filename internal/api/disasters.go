package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mr1hm/go-evac-priority/internal/models"
	"github.com/mr1hm/go-evac-priority/internal/repository"
)

func (h *Handler) getDisasters(c *gin.Context) {
	filter := repository.Filter{
		Limit: queryInt(c, "limit", 20, 500),
	}

	if t := c.Query("type"); t != "" {
		dt := models.ParseDisasterType(t)
		if dt != models.DisasterTypeUnknown {
			filter.Type = &dt
		}
	}
	if m := c.Query("min_magnitude"); m != "" {
		if mag, err := strconv.ParseFloat(m, 64); err == nil {
			filter.MinMagnitude = &mag
		}
	}
	if s := c.Query("since"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.Since = &t
		}
	}
	if al := c.Query("alert_level"); al != "" {
		level := models.ParseAlertLevel(al)
		if level != models.AlertLevelUnknown {
			filter.AlertLevel = &level
		}
	}
	if mal := c.Query("min_alert_level"); mal != "" {
		level := models.ParseAlertLevel(mal)
		if level != models.AlertLevelUnknown {
			filter.MinAlertLevel = &level
		}
	}

	disasters, err := h.store.ListDisasters(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch disasters",
		})
		return
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, disastersToGeoJSON(disasters))
}

type createDisasterRequest struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Magnitude   float64  `json:"magnitude"`
	AlertLevel  string   `json:"alert_level"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Country     string   `json:"country"`
}

// createDisaster registers a manually reported epicenter.
func (h *Handler) createDisaster(c *gin.Context) {
	var req createDisasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}
	loc := models.Coordinates{Lng: *req.Longitude, Lat: *req.Latitude}
	if !loc.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location out of range"})
		return
	}

	now := time.Now().UTC()
	d := &models.Disaster{
		ID:          strings.TrimSpace(req.ID),
		Source:      "manual",
		Type:        models.ParseDisasterType(req.Type),
		Title:       req.Title,
		Description: req.Description,
		Magnitude:   req.Magnitude,
		AlertLevel:  models.ParseAlertLevel(req.AlertLevel),
		Latitude:    loc.Lat,
		Longitude:   loc.Lng,
		Timestamp:   now,
		Country:     req.Country,
		CreatedAt:   now,
	}
	if d.ID == "" {
		d.ID = "manual_" + uuid.NewString()
	}
	if d.Title == "" {
		d.Title = "Manually reported " + string(d.Type)
	}

	if err := h.store.Add(c.Request.Context(), d); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// prioritize ranks every registered family near the disaster and stores the
// result as the disaster's latest snapshot.
func (h *Handler) prioritize(c *gin.Context) {
	strategy, ok := h.strategyParam(c)
	if !ok {
		return
	}

	d, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	snap, err := h.priority.Prioritize(c.Request.Context(), d, strategy)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) latestPriority(c *gin.Context) {
	strategy, ok := h.strategyParam(c)
	if !ok {
		return
	}

	snap, err := h.store.LatestSnapshot(c.Request.Context(), c.Param("id"), string(strategy))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
