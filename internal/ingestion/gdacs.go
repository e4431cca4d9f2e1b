package ingestion

import (
	"context"
	"encoding/xml"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-evac-priority/internal/models"
)

type gdacsRSS struct {
	Channel gdacsChannel `xml:"channel"`
}

type gdacsChannel struct {
	Items []gdacsItem `xml:"item"`
}

type gdacsItem struct {
	Title       string        `xml:"title"`
	Description string        `xml:"description"`
	Link        string        `xml:"link"`
	PubDate     string        `xml:"pubDate"`
	Point       gdacsPoint    `xml:"http://www.w3.org/2003/01/geo/wgs84_pos# Point"`
	EventType   string        `xml:"http://www.gdacs.org eventtype"`
	AlertLevel  string        `xml:"http://www.gdacs.org alertlevel"`
	EventID     string        `xml:"http://www.gdacs.org eventid"`
	Severity    gdacsSeverity `xml:"http://www.gdacs.org severity"`
	Country     string        `xml:"http://www.gdacs.org country"`
}

type gdacsPoint struct {
	Lat  float64 `xml:"lat"`
	Long float64 `xml:"long"`
}

// gdacsSeverity carries the numeric value as an attribute and a
// human-readable summary as text.
type gdacsSeverity struct {
	Value float64 `xml:"value,attr"`
	Text  string  `xml:",chardata"`
}

func (m *Manager) pollGDACS(ctx context.Context, url string) ([]*models.Disaster, error) {
	resp, err := m.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var data gdacsRSS
	if err := xml.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, eris.Wrap(err, "error decoding GDACS feed")
	}

	now := time.Now().UTC()
	disasters := make([]*models.Disaster, 0, len(data.Channel.Items))
	for _, item := range data.Channel.Items {
		if item.EventID == "" {
			continue
		}
		timestamp, err := time.Parse(time.RFC1123, item.PubDate)
		if err != nil {
			m.log.Warn("GDACS timestamp parsing failed", "id", item.EventID, "error", err.Error())
			timestamp = now
		}

		disasters = append(disasters, &models.Disaster{
			ID:          "gdacs_" + item.EventID,
			Source:      "gdacs",
			Type:        mapGDACSEventType(item.EventType),
			Title:       item.Title,
			Description: item.Description,
			Magnitude:   item.Severity.Value,
			AlertLevel:  models.ParseAlertLevel(item.AlertLevel),
			Latitude:    item.Point.Lat,
			Longitude:   item.Point.Long,
			Timestamp:   timestamp.UTC(),
			Country:     item.Country,
			ReportURL:   item.Link,
			CreatedAt:   now,
		})
	}

	return disasters, nil
}

func mapGDACSEventType(eventType string) models.DisasterType {
	switch strings.ToUpper(strings.TrimSpace(eventType)) {
	case "EQ":
		return models.DisasterTypeEarthquake
	case "TC":
		return models.DisasterTypeCyclone
	case "FL":
		return models.DisasterTypeFlood
	case "VO":
		return models.DisasterTypeVolcano
	case "TS":
		return models.DisasterTypeTsunami
	case "WF":
		return models.DisasterTypeWildfire
	case "DR":
		return models.DisasterTypeDrought
	default:
		return models.DisasterTypeUnknown
	}
}
