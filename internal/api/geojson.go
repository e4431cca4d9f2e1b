package api

import (
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-evac-priority/internal/models"
)

func disastersToGeoJSON(disasters []models.Disaster) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, d := range disasters {
		f := geojson.NewFeature(d.Coordinates().Point())
		f.ID = d.ID
		f.Properties = geojson.Properties{
			"id":          d.ID,
			"type":        string(d.Type),
			"title":       d.Title,
			"description": d.Description,
			"magnitude":   d.Magnitude,
			"alert_level": string(d.AlertLevel),
			"source":      d.Source,
			"timestamp":   d.Timestamp,
		}
		if d.Country != "" {
			f.Properties["country"] = d.Country
		}
		if d.ReportURL != "" {
			f.Properties["report_url"] = d.ReportURL
		}
		fc.Append(f)
	}

	return fc
}
