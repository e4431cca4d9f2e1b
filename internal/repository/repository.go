package repository

import (
	"context"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-evac-priority/internal/models"
)

var (
	ErrNotFound      = eris.New("record not found")
	ErrAlreadyExists = eris.New("record already exists")
)

type Filter struct {
	Limit         int
	Offset        int
	Since         *time.Time
	Type          *models.DisasterType
	MinMagnitude  *float64
	AlertLevel    *models.AlertLevel
	MinAlertLevel *models.AlertLevel // >= this level (e.g., orange includes orange and red)
}

type FamilyFilter struct {
	Limit          int        // 0 means no limit
	Offset         int
	Within         *orb.Bound // only families located inside the box
	VulnerableOnly bool
	// IncludeUnlocated keeps families without coordinates when Within is set,
	// so the ranker's policy decides what happens to them.
	IncludeUnlocated bool
}

type FamilyRepository interface {
	AddFamily(ctx context.Context, f *models.FamilyRecord) error
	UpdateFamily(ctx context.Context, f *models.FamilyRecord) error
	GetFamily(ctx context.Context, id string) (*models.FamilyRecord, error)
	ListFamilies(ctx context.Context, opts FamilyFilter) ([]models.FamilyRecord, error)
	DeleteFamily(ctx context.Context, id string) error
}

type DisasterRepository interface {
	Add(ctx context.Context, d *models.Disaster) error
	GetByID(ctx context.Context, id string) (*models.Disaster, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListDisasters(ctx context.Context, opts Filter) ([]models.Disaster, error)
}

type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, s *models.PrioritySnapshot) error
	LatestSnapshot(ctx context.Context, disasterID, strategy string) (*models.PrioritySnapshot, error)
}

// Store is everything the service needs from a storage backend.
type Store interface {
	FamilyRepository
	DisasterRepository
	SnapshotRepository
	Ping(ctx context.Context) error
	Close() error
}

// alertLevelsAtLeast lists the stored alert levels ranked at or above min.
func alertLevelsAtLeast(min models.AlertLevel) []any {
	var levels []any
	for _, l := range []models.AlertLevel{models.AlertLevelGreen, models.AlertLevelOrange, models.AlertLevelRed} {
		if l.Rank() >= min.Rank() {
			levels = append(levels, string(l))
		}
	}
	return levels
}
