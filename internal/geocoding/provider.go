// Package geocoding turns family addresses into coordinates.
package geocoding

import (
	"context"

	"github.com/mr1hm/go-evac-priority/internal/models"
)

// Provider geocodes a single free-form address.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}
