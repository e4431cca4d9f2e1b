package models

import (
	"strings"
	"time"
)

type DisasterType string

const (
	DisasterTypeUnknown    DisasterType = "unknown"
	DisasterTypeEarthquake DisasterType = "earthquake"
	DisasterTypeFlood      DisasterType = "flood"
	DisasterTypeCyclone    DisasterType = "cyclone"
	DisasterTypeTsunami    DisasterType = "tsunami"
	DisasterTypeVolcano    DisasterType = "volcano"
	DisasterTypeWildfire   DisasterType = "wildfire"
	DisasterTypeDrought    DisasterType = "drought"
)

func ParseDisasterType(s string) DisasterType {
	switch dt := DisasterType(strings.ToLower(s)); dt {
	case DisasterTypeEarthquake, DisasterTypeFlood, DisasterTypeCyclone, DisasterTypeTsunami,
		DisasterTypeVolcano, DisasterTypeWildfire, DisasterTypeDrought:
		return dt
	default:
		return DisasterTypeUnknown
	}
}

type AlertLevel string

const (
	AlertLevelUnknown AlertLevel = ""
	AlertLevelGreen   AlertLevel = "green"
	AlertLevelOrange  AlertLevel = "orange"
	AlertLevelRed     AlertLevel = "red"
)

func ParseAlertLevel(s string) AlertLevel {
	switch l := AlertLevel(strings.ToLower(s)); l {
	case AlertLevelGreen, AlertLevelOrange, AlertLevelRed:
		return l
	default:
		return AlertLevelUnknown
	}
}

// Rank orders alert levels: unknown < green < orange < red.
func (l AlertLevel) Rank() int {
	switch l {
	case AlertLevelGreen:
		return 1
	case AlertLevelOrange:
		return 2
	case AlertLevelRed:
		return 3
	default:
		return 0
	}
}

type Disaster struct {
	ID          string       `json:"id"`     // Unique ID from source (e.g., "gdacs_12345")
	Source      string       `json:"source"` // "usgs", "gdacs", "manual"
	Type        DisasterType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Magnitude   float64      `json:"magnitude"` // Richter scale for earthquakes, severity otherwise
	AlertLevel  AlertLevel   `json:"alert_level,omitempty"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Timestamp   time.Time    `json:"timestamp"` // when the event occurred
	Country     string       `json:"country,omitempty"`
	ReportURL   string       `json:"report_url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"` // when we ingested it
}

func (d *Disaster) Coordinates() Coordinates {
	return Coordinates{
		Lng: d.Longitude,
		Lat: d.Latitude,
	}
}
