package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-evac-priority/internal/models"
	"github.com/mr1hm/go-evac-priority/internal/ranking"
)

type rankRequest struct {
	Disaster *models.Coordinates  `json:"disaster"`
	Families []models.FamilyRecord `json:"families"`
	Policy   string               `json:"policy,omitempty"`
}

// rank orders the families in the request body. Nothing is persisted.
func (h *Handler) rank(c *gin.Context) {
	strategy, ok := h.strategyParam(c)
	if !ok {
		return
	}

	var req rankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Disaster == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "disaster location is required"})
		return
	}
	if h.maxFamilies > 0 && len(req.Families) > h.maxFamilies {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many families", "max": h.maxFamilies})
		return
	}

	ranker := h.priority.Ranker()
	if req.Policy != "" {
		policy, ok := ranking.ParsePolicy(req.Policy)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "policy must be strict or lenient"})
			return
		}
		ranker = ranker.WithPolicy(policy)
	}

	result, err := ranker.Rank(strategy, *req.Disaster, req.Families)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if c.Query("format") == "geojson" {
		c.Header("Content-Type", "application/geo+json")
		c.JSON(http.StatusOK, result.FeatureCollection())
		return
	}
	c.JSON(http.StatusOK, result)
}
