// Package ranking orders families for evacuation against a disaster epicenter.
//
// Two strategies share the same per-family scores: a weighted blend of
// disaster proximity, vulnerability and closeness to other vulnerable
// families, and a dependency ordering in which every vulnerable family waits
// for its nearest non-vulnerable anchor. Both are pure functions of their
// input snapshot.
package ranking

import (
	"log/slog"
	"time"

	"github.com/mr1hm/go-evac-priority/internal/geo"
	"github.com/mr1hm/go-evac-priority/internal/models"
)

// ScoredFamily is a family together with the scores computed for one run.
type ScoredFamily struct {
	Family                   models.FamilyRecord `json:"family"`
	Rank                     int                 `json:"rank"`
	DistanceMeters           float64             `json:"distance_meters"`
	ProximityScore           float64             `json:"proximity_score"`
	VulnerabilityScore       float64             `json:"vulnerability_score"`
	VulnerableNeighbourScore float64             `json:"vulnerable_neighbour_score"`
	FinalPriorityScore       float64             `json:"final_priority_score"`
	Vulnerable               bool                `json:"vulnerable"`
}

// DependentFamily adds the dependency-graph annotations of the topological strategy.
type DependentFamily struct {
	ScoredFamily
	DependsOn  string   `json:"depends_on,omitempty"`
	Dependents []string `json:"dependents,omitempty"`
}

type WeightedResult struct {
	Families []ScoredFamily
	Excluded []string
}

type TopologicalResult struct {
	Families []DependentFamily
	Excluded []string
	// InvariantViolation is set when the dependency ordering could not cover
	// every family and the proximity fallback order was returned instead.
	InvariantViolation bool
}

// Ranking is the strategy-agnostic view used by the HTTP, CLI and ingestion hosts.
type Ranking struct {
	Strategy           Strategy          `json:"strategy"`
	Families           []DependentFamily `json:"families"`
	Excluded           []string          `json:"excluded,omitempty"`
	InvariantViolation bool              `json:"invariant_violation"`
}

// Entries flattens the ranking into the persisted snapshot representation.
func (r *Ranking) Entries() []models.RankedEntry {
	entries := make([]models.RankedEntry, len(r.Families))
	for i, f := range r.Families {
		entries[i] = models.RankedEntry{
			FamilyID:           f.Family.ID,
			Rank:               f.Rank,
			DistanceMeters:     f.DistanceMeters,
			ProximityScore:     f.ProximityScore,
			VulnerabilityScore: f.VulnerabilityScore,
			Vulnerable:         f.Vulnerable,
			DependsOn:          f.DependsOn,
			Dependents:         f.Dependents,
		}
		if r.Strategy == StrategyWeighted {
			score := f.FinalPriorityScore
			entries[i].PriorityScore = &score
		}
	}
	return entries
}

// Ranker is safe for concurrent use; it holds only immutable options.
type Ranker struct {
	opts Options
	log  *slog.Logger
}

func NewRanker(opts Options) *Ranker {
	if opts.Policy == "" {
		opts.Policy = PolicyStrict
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Ranker{opts: opts, log: log}
}

func (r *Ranker) Options() Options {
	return r.opts
}

// WithPolicy returns a ranker identical to r except for its validation policy.
func (r *Ranker) WithPolicy(p Policy) *Ranker {
	opts := r.opts
	opts.Policy = p
	return NewRanker(opts)
}

// Rank runs the requested strategy and returns its result in the common form.
func (r *Ranker) Rank(strategy Strategy, disaster models.Coordinates, families []models.FamilyRecord) (*Ranking, error) {
	switch strategy {
	case StrategyTopological:
		res, err := r.RankByTopologicalDependency(disaster, families)
		if err != nil {
			return nil, err
		}
		return &Ranking{
			Strategy:           StrategyTopological,
			Families:           res.Families,
			Excluded:           res.Excluded,
			InvariantViolation: res.InvariantViolation,
		}, nil
	default:
		res, err := r.RankByWeightedScore(disaster, families)
		if err != nil {
			return nil, err
		}
		out := make([]DependentFamily, len(res.Families))
		for i, f := range res.Families {
			out[i] = DependentFamily{ScoredFamily: f}
		}
		return &Ranking{Strategy: StrategyWeighted, Families: out, Excluded: res.Excluded}, nil
	}
}

// RankByWeightedScore ranks with DefaultOptions.
func RankByWeightedScore(disaster models.Coordinates, families []models.FamilyRecord) (*WeightedResult, error) {
	return NewRanker(DefaultOptions()).RankByWeightedScore(disaster, families)
}

// RankByTopologicalDependency ranks with DefaultOptions.
func RankByTopologicalDependency(disaster models.Coordinates, families []models.FamilyRecord) (*TopologicalResult, error) {
	return NewRanker(DefaultOptions()).RankByTopologicalDependency(disaster, families)
}

// prepare validates the snapshot, copies every usable record and computes the
// distance-to-disaster, proximity and vulnerability scores. The returned slice
// keeps input order.
func (r *Ranker) prepare(disaster models.Coordinates, families []models.FamilyRecord) ([]ScoredFamily, []string, error) {
	if !disaster.Valid() {
		return nil, nil, &InvalidInputError{Index: -1, Field: "disaster", Reason: "coordinates must be a finite (lng, lat) pair"}
	}

	seen := make(map[string]struct{}, len(families))
	scored := make([]ScoredFamily, 0, len(families))
	var excluded []string

	for i := range families {
		f := families[i].Clone()

		if f.ID == "" {
			return nil, nil, &InvalidInputError{Index: i, Field: "id", Reason: "must not be empty"}
		}
		if _, dup := seen[f.ID]; dup {
			return nil, nil, &InvalidInputError{FamilyID: f.ID, Index: i, Field: "id", Reason: "duplicate id"}
		}
		seen[f.ID] = struct{}{}

		if r.opts.Policy == PolicyStrict {
			if err := validateStrict(i, f); err != nil {
				return nil, nil, err
			}
		} else if f.Location == nil || !f.Location.Valid() {
			excluded = append(excluded, f.ID)
			continue
		}

		distance := geo.Distance(f.Location.Point(), disaster.Point())
		scored = append(scored, ScoredFamily{
			Family:             f,
			DistanceMeters:     distance,
			ProximityScore:     geo.ProximityScore(distance, r.opts.DisasterPointsPerKm),
			VulnerabilityScore: VulnerabilityScore(f),
			Vulnerable:         IsVulnerable(f),
		})
	}

	return scored, excluded, nil
}

func validateStrict(index int, f models.FamilyRecord) error {
	invalid := func(field, reason string) error {
		return &InvalidInputError{FamilyID: f.ID, Index: index, Field: field, Reason: reason}
	}

	switch {
	case f.Location == nil:
		return invalid("location", "missing")
	case !f.Location.Valid():
		return invalid("location", "coordinates must be a finite (lng, lat) pair")
	case f.Members == nil:
		return invalid("members", "missing")
	case f.Medical == nil:
		return invalid("medical", "missing")
	case f.Housing == nil:
		return invalid("housing", "missing")
	case !f.Housing.Type.Valid():
		return invalid("housing.type", "must be one of permanent, temporary, makeshift")
	}

	for _, risk := range f.ProximityRisks {
		if !(risk.DistanceMeters >= 0) {
			return invalid("proximity_risks", "distance_meters must be a non-negative number")
		}
	}
	return nil
}

func (r *Ranker) observe(strategy Strategy, families int, start time.Time, err error) {
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveRanking(string(strategy), families, time.Since(start), err)
	}
}
