package ranking

import (
	"log/slog"
	"strings"
	"time"
)

// Strategy selects how families are ordered.
type Strategy string

const (
	StrategyWeighted    Strategy = "weighted"
	StrategyTopological Strategy = "topological"
)

// ParseStrategy accepts "weighted" or "topological" (case-insensitive).
func ParseStrategy(s string) (Strategy, bool) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyWeighted, StrategyTopological:
		return st, true
	default:
		return "", false
	}
}

// Policy decides what happens to records with missing substructures.
type Policy string

const (
	// PolicyStrict rejects the whole call when any record lacks location,
	// members, medical or housing data.
	PolicyStrict Policy = "strict"
	// PolicyLenient scores absent substructures as zero and excludes records
	// without a usable location.
	PolicyLenient Policy = "lenient"
)

func ParsePolicy(s string) (Policy, bool) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyStrict, PolicyLenient:
		return p, true
	default:
		return "", false
	}
}

// Observer receives per-run measurements. metrics.Metrics implements it.
type Observer interface {
	ObserveRanking(strategy string, families int, elapsed time.Duration, err error)
	ObserveInvariantViolation(strategy string)
}

type Options struct {
	// DisasterPointsPerKm is the falloff of the disaster proximity score.
	DisasterPointsPerKm float64
	// VulnerablePointsPerKm is the falloff of the nearest-vulnerable-family score.
	// Kept separate from DisasterPointsPerKm; the two are not meant to be unified.
	VulnerablePointsPerKm float64

	ProximityWeight           float64
	VulnerabilityWeight       float64
	VulnerableNeighbourWeight float64

	Policy   Policy
	Logger   *slog.Logger
	Observer Observer
}

func DefaultOptions() Options {
	return Options{
		DisasterPointsPerKm:       10,
		VulnerablePointsPerKm:     20,
		ProximityWeight:           0.5,
		VulnerabilityWeight:       0.3,
		VulnerableNeighbourWeight: 0.2,
		Policy:                    PolicyStrict,
	}
}
