package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/mr1hm/go-evac-priority/internal/geocoding"
	"github.com/mr1hm/go-evac-priority/internal/models"
	"github.com/mr1hm/go-evac-priority/internal/repository"
)

func (h *Handler) listFamilies(c *gin.Context) {
	filter := repository.FamilyFilter{
		Limit:          queryInt(c, "limit", 100, 1000),
		Offset:         queryInt(c, "offset", 0, 0),
		VulnerableOnly: c.Query("vulnerable") == "true",
	}
	if b := c.Query("bbox"); b != "" {
		box, ok := parseBBox(b)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bbox must be minLng,minLat,maxLng,maxLat"})
			return
		}
		filter.Within = &box
	}

	families, err := h.store.ListFamilies(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if families == nil {
		families = []models.FamilyRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"families": families, "count": len(families)})
}

func (h *Handler) createFamily(c *gin.Context) {
	var f models.FamilyRecord
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(f.ID) == "" {
		f.ID = uuid.NewString()
	}
	if !h.prepareFamily(c, &f) {
		return
	}

	if err := h.store.AddFamily(c.Request.Context(), &f); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h *Handler) getFamily(c *gin.Context) {
	f, err := h.store.GetFamily(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) updateFamily(c *gin.Context) {
	var f models.FamilyRecord
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	f.ID = c.Param("id")
	if !h.prepareFamily(c, &f) {
		return
	}

	if err := h.store.UpdateFamily(c.Request.Context(), &f); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) deleteFamily(c *gin.Context) {
	if err := h.store.DeleteFamily(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// prepareFamily geocodes a missing location and rejects coordinates that are
// out of range. It writes the error response itself and reports whether the
// request may continue.
func (h *Handler) prepareFamily(c *gin.Context, f *models.FamilyRecord) bool {
	if f.Location == nil && f.Address != "" && h.geocoder != nil {
		h.geocode(c.Request.Context(), f)
	}
	if f.Location != nil && !f.Location.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location needs both lng and lat within range", "family_id": f.ID})
		return false
	}
	if f.Housing != nil && !f.Housing.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown housing type", "family_id": f.ID})
		return false
	}
	return true
}

func (h *Handler) geocode(ctx context.Context, f *models.FamilyRecord) {
	batch := []models.FamilyRecord{*f}
	n, err := geocoding.ResolveMissing(ctx, h.geocoder, batch, h.log)
	if err != nil || n == 0 {
		return
	}
	f.Location = batch[0].Location
}

func parseBBox(s string) (orb.Bound, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, false
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, false
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, false
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, true
}
