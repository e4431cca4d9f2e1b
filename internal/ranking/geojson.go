package ranking

import (
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders the ranking as GeoJSON points in rank order.
// Collection-level members carry the strategy, exclusions and the
// invariant-violation flag.
func (r *Ranking) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range r.Families {
		if f.Family.Location == nil {
			continue
		}
		feat := geojson.NewFeature(f.Family.Location.Point())
		feat.ID = f.Family.ID
		feat.Properties["id"] = f.Family.ID
		if f.Family.Name != "" {
			feat.Properties["name"] = f.Family.Name
		}
		feat.Properties["rank"] = f.Rank
		feat.Properties["distance_meters"] = f.DistanceMeters
		feat.Properties["proximity_score"] = f.ProximityScore
		feat.Properties["vulnerability_score"] = f.VulnerabilityScore
		feat.Properties["vulnerable"] = f.Vulnerable
		switch r.Strategy {
		case StrategyWeighted:
			feat.Properties["vulnerable_neighbour_score"] = f.VulnerableNeighbourScore
			feat.Properties["priority_score"] = f.FinalPriorityScore
		case StrategyTopological:
			if f.DependsOn != "" {
				feat.Properties["depends_on"] = f.DependsOn
			}
			if len(f.Dependents) > 0 {
				feat.Properties["dependents"] = f.Dependents
			}
		}
		fc.Append(feat)
	}

	fc.ExtraMembers = geojson.Properties{
		"strategy":            string(r.Strategy),
		"invariant_violation": r.InvariantViolation,
	}
	if len(r.Excluded) > 0 {
		fc.ExtraMembers["excluded"] = r.Excluded
	}
	return fc
}
