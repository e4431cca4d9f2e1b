// Package service ranks registered families against stored disasters and
// records the outcome.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-evac-priority/internal/geo"
	"github.com/mr1hm/go-evac-priority/internal/models"
	"github.com/mr1hm/go-evac-priority/internal/ranking"
	"github.com/mr1hm/go-evac-priority/internal/repository"
	"github.com/mr1hm/go-evac-priority/internal/stream"
)

// PriorityService loads the families around a disaster, ranks them, stores a
// snapshot and publishes it to live subscribers.
type PriorityService struct {
	families    repository.FamilyRepository
	snapshots   repository.SnapshotRepository
	ranker      *ranking.Ranker
	broadcaster *stream.Broadcaster
	radiusKm    float64
	log         *slog.Logger
	now         func() time.Time
}

// NewPriorityService wires the service. broadcaster may be nil. A radiusKm of
// zero ranks every registered family.
func NewPriorityService(
	families repository.FamilyRepository,
	snapshots repository.SnapshotRepository,
	ranker *ranking.Ranker,
	broadcaster *stream.Broadcaster,
	radiusKm float64,
	log *slog.Logger,
) *PriorityService {
	if log == nil {
		log = slog.Default()
	}
	return &PriorityService{
		families:    families,
		snapshots:   snapshots,
		ranker:      ranker,
		broadcaster: broadcaster,
		radiusKm:    radiusKm,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *PriorityService) Ranker() *ranking.Ranker {
	return s.ranker
}

// Prioritize ranks the families near d with strategy and persists the result.
// Ranking input errors are returned unchanged so callers can map them with
// errors.As to *ranking.InvalidInputError.
func (s *PriorityService) Prioritize(ctx context.Context, d *models.Disaster, strategy ranking.Strategy) (*models.PrioritySnapshot, error) {
	epicenter := d.Coordinates()

	filter := repository.FamilyFilter{IncludeUnlocated: true}
	if s.radiusKm > 0 {
		box := geo.BoundingBox(epicenter.Point(), s.radiusKm*1000)
		filter.Within = &box
	}
	families, err := s.families.ListFamilies(ctx, filter)
	if err != nil {
		return nil, eris.Wrapf(err, "error loading families for disaster %s", d.ID)
	}

	result, err := s.ranker.Rank(strategy, epicenter, families)
	if err != nil {
		return nil, err
	}

	snap := &models.PrioritySnapshot{
		ID:                 uuid.NewString(),
		DisasterID:         d.ID,
		Strategy:           string(result.Strategy),
		Families:           result.Entries(),
		Excluded:           result.Excluded,
		InvariantViolation: result.InvariantViolation,
		CreatedAt:          s.now(),
	}
	if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return nil, eris.Wrapf(err, "error saving priority snapshot for disaster %s", d.ID)
	}

	if s.broadcaster != nil {
		delivered := s.broadcaster.Broadcast(snap)
		s.log.DebugContext(ctx, "snapshot broadcast", "snapshot_id", snap.ID, "subscribers", delivered)
	}

	s.log.InfoContext(ctx, "families prioritized",
		"disaster_id", d.ID,
		"strategy", snap.Strategy,
		"families", len(snap.Families),
		"excluded", len(snap.Excluded),
		"invariant_violation", snap.InvariantViolation,
	)
	return snap, nil
}

// ShouldPrioritize reports whether a newly ingested disaster is severe enough
// to rank families automatically: earthquakes at or above minMagnitude, any
// other event at orange alert or higher.
func ShouldPrioritize(d *models.Disaster, minMagnitude float64) bool {
	if d.Type == models.DisasterTypeEarthquake {
		return d.Magnitude >= minMagnitude
	}
	return d.AlertLevel.Rank() >= models.AlertLevelOrange.Rank()
}
