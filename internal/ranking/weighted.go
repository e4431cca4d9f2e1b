package ranking

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/mr1hm/go-evac-priority/internal/geo"
	"github.com/mr1hm/go-evac-priority/internal/models"
)

// RankByWeightedScore orders families by
//
//	0.5*proximity + 0.3*vulnerability + 0.2*closeness-to-another-vulnerable-family
//
// highest first. Equal scores keep input order.
func (r *Ranker) RankByWeightedScore(disaster models.Coordinates, families []models.FamilyRecord) (*WeightedResult, error) {
	start := time.Now()

	scored, excluded, err := r.prepare(disaster, families)
	if err != nil {
		r.observe(StrategyWeighted, len(families), start, err)
		return nil, err
	}

	for i := range scored {
		scored[i].VulnerableNeighbourScore = r.vulnerableNeighbourScore(scored, i)
		scored[i].FinalPriorityScore = scored[i].ProximityScore*r.opts.ProximityWeight +
			scored[i].VulnerabilityScore*r.opts.VulnerabilityWeight +
			scored[i].VulnerableNeighbourScore*r.opts.VulnerableNeighbourWeight
	}

	slices.SortStableFunc(scored, func(a, b ScoredFamily) int {
		return cmp.Compare(b.FinalPriorityScore, a.FinalPriorityScore)
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}

	r.observe(StrategyWeighted, len(scored), start, nil)
	return &WeightedResult{Families: scored, Excluded: excluded}, nil
}

// vulnerableNeighbourScore scores how close family i is to the nearest other
// vulnerable family; 0 when there is none.
func (r *Ranker) vulnerableNeighbourScore(scored []ScoredFamily, i int) float64 {
	from := scored[i].Family.Location.Point()
	nearest := math.Inf(1)

	for j := range scored {
		if j == i || !scored[j].Vulnerable {
			continue
		}
		if d := geo.Distance(from, scored[j].Family.Location.Point()); d < nearest {
			nearest = d
		}
	}

	if math.IsInf(nearest, 1) {
		return 0
	}
	return geo.ProximityScore(nearest, r.opts.VulnerablePointsPerKm)
}
