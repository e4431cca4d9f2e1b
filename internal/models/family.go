package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

type HousingType string

const (
	HousingPermanent HousingType = "permanent"
	HousingTemporary HousingType = "temporary"
	HousingMakeshift HousingType = "makeshift"
)

func (h HousingType) Valid() bool {
	switch h {
	case HousingPermanent, HousingTemporary, HousingMakeshift:
		return true
	default:
		return false
	}
}

// Coordinates is a WGS-84 point in decimal degrees, longitude first.
type Coordinates struct {
	Lng float64 `json:"lng" yaml:"lng"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// Valid reports whether c is a finite (lng, lat) pair inside the WGS-84 range.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lng) || math.IsNaN(c.Lat) || math.IsInf(c.Lng, 0) || math.IsInf(c.Lat, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// rawCoordinates tells an absent key apart from an explicit zero.
type rawCoordinates struct {
	Lng *float64 `json:"lng" yaml:"lng"`
	Lat *float64 `json:"lat" yaml:"lat"`
}

func (r rawCoordinates) coordinates() Coordinates {
	c := Coordinates{Lng: math.NaN(), Lat: math.NaN()}
	if r.Lng != nil {
		c.Lng = *r.Lng
	}
	if r.Lat != nil {
		c.Lat = *r.Lat
	}
	return c
}

// UnmarshalJSON decodes a missing or null lng/lat as NaN, so a partial pair
// fails Valid instead of landing on the equator or the prime meridian.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var raw rawCoordinates
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = raw.coordinates()
	return nil
}

// UnmarshalYAML applies the same missing-key rule as UnmarshalJSON.
func (c *Coordinates) UnmarshalYAML(value *yaml.Node) error {
	var raw rawCoordinates
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*c = raw.coordinates()
	return nil
}

func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

type Member struct {
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Age          int    `json:"age,omitempty" yaml:"age,omitempty"`
	IsVulnerable bool   `json:"is_vulnerable" yaml:"is_vulnerable"`
}

type Medical struct {
	DependsOnEquipment       bool `json:"depends_on_equipment" yaml:"depends_on_equipment"`
	NeedsImmediateAssistance bool `json:"needs_immediate_assistance" yaml:"needs_immediate_assistance"`
}

type Housing struct {
	Type HousingType `json:"type" yaml:"type"`
}

// ProximityRisk is a nearby hazard (river, slope, ...) and how far it is from the household.
type ProximityRisk struct {
	Kind           string  `json:"kind,omitempty" yaml:"kind,omitempty"`
	DistanceMeters float64 `json:"distance_meters" yaml:"distance_meters"`
}

// FamilyRecord is a registered household. Nil Location, Members, Medical or
// Housing mean the substructure was never provided.
type FamilyRecord struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name,omitempty" yaml:"name,omitempty"`
	Address        string          `json:"address,omitempty" yaml:"address,omitempty"`
	Phone          string          `json:"phone,omitempty" yaml:"phone,omitempty"`
	Location       *Coordinates    `json:"location,omitempty" yaml:"location,omitempty"`
	Members        []Member        `json:"members" yaml:"members"`
	Medical        *Medical        `json:"medical,omitempty" yaml:"medical,omitempty"`
	Housing        *Housing        `json:"housing,omitempty" yaml:"housing,omitempty"`
	ProximityRisks []ProximityRisk `json:"proximity_risks,omitempty" yaml:"proximity_risks,omitempty"`
	CreatedAt      time.Time       `json:"created_at,omitzero" yaml:"-"`
	UpdatedAt      time.Time       `json:"updated_at,omitzero" yaml:"-"`
}

// Clone returns a deep copy so rankers never share slices or pointers with the caller.
func (f FamilyRecord) Clone() FamilyRecord {
	out := f
	if f.Location != nil {
		loc := *f.Location
		out.Location = &loc
	}
	if f.Members != nil {
		out.Members = append(make([]Member, 0, len(f.Members)), f.Members...)
	}
	if f.Medical != nil {
		med := *f.Medical
		out.Medical = &med
	}
	if f.Housing != nil {
		h := *f.Housing
		out.Housing = &h
	}
	if f.ProximityRisks != nil {
		out.ProximityRisks = append(make([]ProximityRisk, 0, len(f.ProximityRisks)), f.ProximityRisks...)
	}
	return out
}
