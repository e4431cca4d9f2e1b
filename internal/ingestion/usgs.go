package ingestion

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-evac-priority/internal/models"
)

type usgsResponse struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string         `json:"id"`
	Properties usgsProperties `json:"properties"`
	Geometry   usgsGeometry   `json:"geometry"`
}

type usgsProperties struct {
	Mag     float64 `json:"mag"`
	Place   string  `json:"place"`
	Time    int64   `json:"time"` // unix millis
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Alert   string  `json:"alert"` // PAGER level, often null
	Tsunami int     `json:"tsunami"`
}

type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}

func (m *Manager) pollUSGS(ctx context.Context, url string) ([]*models.Disaster, error) {
	resp, err := m.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var data usgsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, eris.Wrap(err, "error decoding USGS feed")
	}

	now := time.Now().UTC()
	disasters := make([]*models.Disaster, 0, len(data.Features))
	for _, f := range data.Features {
		if len(f.Geometry.Coordinates) < 2 {
			m.log.Warn("USGS feature without coordinates", "id", f.ID)
			continue
		}
		disasters = append(disasters, &models.Disaster{
			ID:          "usgs_" + f.ID,
			Source:      "usgs",
			Type:        models.DisasterTypeEarthquake,
			Title:       f.Properties.Title,
			Description: f.Properties.Place,
			Magnitude:   f.Properties.Mag,
			AlertLevel:  models.ParseAlertLevel(f.Properties.Alert),
			Longitude:   f.Geometry.Coordinates[0],
			Latitude:    f.Geometry.Coordinates[1],
			Timestamp:   time.UnixMilli(f.Properties.Time).UTC(),
			ReportURL:   f.Properties.URL,
			CreatedAt:   now,
		})
	}

	return disasters, nil
}
