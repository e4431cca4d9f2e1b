package ranking

import "github.com/mr1hm/go-evac-priority/internal/models"

// Point values of the vulnerability score.
const (
	pointsPerVulnerableMember = 10
	pointsEquipment           = 15
	pointsImmediateAssistance = 20

	pointsRiskUnder100m  = 25
	pointsRiskUnder500m  = 15
	pointsRiskUnder1000m = 5

	pointsMakeshiftHousing = 20
	pointsTemporaryHousing = 10
)

// VulnerabilityScore sums the evacuation-urgency points of a family
// independent of its distance to the disaster. Absent substructures
// contribute nothing; rejecting them is the caller's decision.
func VulnerabilityScore(f models.FamilyRecord) float64 {
	score := 0

	for _, m := range f.Members {
		if m.IsVulnerable {
			score += pointsPerVulnerableMember
		}
	}

	if f.Medical != nil {
		if f.Medical.DependsOnEquipment {
			score += pointsEquipment
		}
		if f.Medical.NeedsImmediateAssistance {
			score += pointsImmediateAssistance
		}
	}

	for _, risk := range f.ProximityRisks {
		score += riskPoints(risk.DistanceMeters)
	}

	if f.Housing != nil {
		switch f.Housing.Type {
		case models.HousingMakeshift:
			score += pointsMakeshiftHousing
		case models.HousingTemporary:
			score += pointsTemporaryHousing
		}
	}

	return float64(score)
}

// riskPoints puts a hazard into exactly one distance bracket.
func riskPoints(distanceMeters float64) int {
	switch {
	case distanceMeters < 100:
		return pointsRiskUnder100m
	case distanceMeters < 500:
		return pointsRiskUnder500m
	case distanceMeters < 1000:
		return pointsRiskUnder1000m
	default:
		return 0
	}
}

// IsVulnerable reports whether a family has a vulnerable member or a
// medical need that requires support during evacuation.
func IsVulnerable(f models.FamilyRecord) bool {
	for _, m := range f.Members {
		if m.IsVulnerable {
			return true
		}
	}
	if f.Medical != nil {
		return f.Medical.DependsOnEquipment || f.Medical.NeedsImmediateAssistance
	}
	return false
}
