package geocoding

import (
	"context"
	"log/slog"

	"github.com/rotisserie/eris"
	"googlemaps.github.io/maps"

	"github.com/mr1hm/go-evac-priority/internal/models"
)

// ErrEmptyResponse is returned when the Google Maps API has no match for an address.
var ErrEmptyResponse = eris.New("empty response from Google Maps API")

type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

type GoogleProvider struct {
	client GoogleAPIClient
	log    *slog.Logger
}

func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	if log == nil {
		log = slog.Default()
	}
	return &GoogleProvider{client: client, log: log}
}

// Geocode returns the first match for address.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	gp.log.DebugContext(ctx, "geocoding using Google Maps", "address", address)

	res, err := gp.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, eris.Wrapf(err, "failed to geocode address %q", address)
	}
	if len(res) == 0 {
		return nil, ErrEmptyResponse
	}

	loc := res[0].Geometry.Location
	coords := &models.Coordinates{Lng: loc.Lng, Lat: loc.Lat}
	if !coords.Valid() {
		return nil, eris.Errorf("geocoder returned invalid coordinates (%v, %v)", loc.Lng, loc.Lat)
	}
	return coords, nil
}
