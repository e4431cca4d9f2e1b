package geocoding

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-evac-priority/internal/models"
)

const resolveConcurrency = 4

// ResolveMissing fills Location for every family that has an address but no
// location, in place. Lookups that fail are logged and leave the family
// unresolved; the ranking policy decides what happens to it. It returns the
// number of families resolved and a non-nil error only when ctx ends.
func ResolveMissing(ctx context.Context, provider Provider, families []models.FamilyRecord, log *slog.Logger) (int, error) {
	if provider == nil {
		return 0, nil
	}
	if log == nil {
		log = slog.Default()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)

	resolved := make([]bool, len(families))
	for i := range families {
		f := &families[i]
		address := strings.TrimSpace(f.Address)
		if f.Location != nil || address == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			coords, err := provider.Geocode(gctx, address)
			if err != nil {
				log.WarnContext(gctx, "geocoding failed", "family_id", f.ID, "error", err)
				return nil
			}
			f.Location = coords
			resolved[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return countTrue(resolved), err
	}
	return countTrue(resolved), ctx.Err()
}

func countTrue(v []bool) int {
	n := 0
	for _, b := range v {
		if b {
			n++
		}
	}
	return n
}
