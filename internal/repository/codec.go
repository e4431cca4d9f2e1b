package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-evac-priority/internal/models"
	"github.com/mr1hm/go-evac-priority/internal/ranking"
)

// familyColumns is the storage form of a FamilyRecord shared by both backends.
// Nested structures are JSON documents; a JSON null keeps an absent
// substructure absent on the way back.
type familyColumns struct {
	lng, lat       sql.NullFloat64
	vulnerable     bool
	members        []byte
	medical        []byte
	housing        []byte
	proximityRisks []byte
}

func encodeFamily(f *models.FamilyRecord) (familyColumns, error) {
	var cols familyColumns
	var err error

	if f.Location != nil {
		cols.lng = sql.NullFloat64{Float64: f.Location.Lng, Valid: true}
		cols.lat = sql.NullFloat64{Float64: f.Location.Lat, Valid: true}
	}
	cols.vulnerable = ranking.IsVulnerable(*f)

	if cols.members, err = json.Marshal(f.Members); err != nil {
		return cols, eris.Wrap(err, "error encoding members")
	}
	if cols.medical, err = json.Marshal(f.Medical); err != nil {
		return cols, eris.Wrap(err, "error encoding medical")
	}
	if cols.housing, err = json.Marshal(f.Housing); err != nil {
		return cols, eris.Wrap(err, "error encoding housing")
	}
	if cols.proximityRisks, err = json.Marshal(f.ProximityRisks); err != nil {
		return cols, eris.Wrap(err, "error encoding proximity risks")
	}
	return cols, nil
}

func decodeFamily(f *models.FamilyRecord, cols familyColumns) error {
	if cols.lng.Valid && cols.lat.Valid {
		f.Location = &models.Coordinates{Lng: cols.lng.Float64, Lat: cols.lat.Float64}
	}
	for _, part := range []struct {
		raw  []byte
		dest any
		name string
	}{
		{cols.members, &f.Members, "members"},
		{cols.medical, &f.Medical, "medical"},
		{cols.housing, &f.Housing, "housing"},
		{cols.proximityRisks, &f.ProximityRisks, "proximity risks"},
	} {
		if len(part.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(part.raw, part.dest); err != nil {
			return eris.Wrapf(err, "error decoding %s of family %s", part.name, f.ID)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDisaster(row rowScanner) (*models.Disaster, error) {
	var d models.Disaster
	var typ, level string
	var description, country, reportURL sql.NullString
	var magnitude sql.NullFloat64
	if err := row.Scan(&d.ID, &d.Source, &typ, &d.Title, &description, &magnitude, &level,
		&d.Latitude, &d.Longitude, &d.Timestamp, &country, &reportURL, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Type = models.DisasterType(typ)
	d.AlertLevel = models.AlertLevel(level)
	d.Description = description.String
	d.Magnitude = magnitude.Float64
	d.Country = country.String
	d.ReportURL = reportURL.String
	return &d, nil
}

// scanFamily reads the family column list shared by both backends.
func scanFamily(row rowScanner) (*models.FamilyRecord, error) {
	var f models.FamilyRecord
	var cols familyColumns
	var name, address, phone sql.NullString
	if err := row.Scan(&f.ID, &name, &address, &phone, &cols.lng, &cols.lat, &cols.vulnerable,
		&cols.members, &cols.medical, &cols.housing, &cols.proximityRisks, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.Name, f.Address, f.Phone = name.String, address.String, phone.String
	if err := decodeFamily(&f, cols); err != nil {
		return nil, err
	}
	return &f, nil
}

type snapshotPayload struct {
	Families []models.RankedEntry `json:"families"`
	Excluded []string             `json:"excluded,omitempty"`
}

func encodeSnapshot(s *models.PrioritySnapshot) ([]byte, error) {
	payload, err := json.Marshal(snapshotPayload{Families: s.Families, Excluded: s.Excluded})
	if err != nil {
		return nil, eris.Wrap(err, "error encoding snapshot")
	}
	return payload, nil
}

func decodeSnapshot(s *models.PrioritySnapshot, raw []byte) error {
	var payload snapshotPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return eris.Wrapf(err, "error decoding snapshot %s", s.ID)
	}
	s.Families = payload.Families
	s.Excluded = payload.Excluded
	return nil
}
