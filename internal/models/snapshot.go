package models

import "time"

// RankedEntry is one family's position in a persisted ranking run.
type RankedEntry struct {
	FamilyID           string   `json:"family_id"`
	Rank               int      `json:"rank"`
	DistanceMeters     float64  `json:"distance_meters"`
	ProximityScore     float64  `json:"proximity_score"`
	VulnerabilityScore float64  `json:"vulnerability_score"`
	PriorityScore      *float64 `json:"priority_score,omitempty"`
	Vulnerable         bool     `json:"vulnerable"`
	DependsOn          string   `json:"depends_on,omitempty"`
	Dependents         []string `json:"dependents,omitempty"`
}

// PrioritySnapshot is the stored outcome of ranking every registered family
// against one disaster.
type PrioritySnapshot struct {
	ID                 string        `json:"id"`
	DisasterID         string        `json:"disaster_id"`
	Strategy           string        `json:"strategy"`
	Families           []RankedEntry `json:"families"`
	Excluded           []string      `json:"excluded,omitempty"`
	InvariantViolation bool          `json:"invariant_violation"`
	CreatedAt          time.Time     `json:"created_at"`
}
