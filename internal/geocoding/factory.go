package geocoding

import (
	"log/slog"

	"github.com/rotisserie/eris"
	"googlemaps.github.io/maps"
)

type ProviderType string

const (
	ProviderTypeGoogle ProviderType = "google"
	ProviderTypeNone   ProviderType = "none"
)

// ErrGeocodingDisabled is returned by NewProvider when no provider is configured.
// Callers treat it as "run without geocoding".
var ErrGeocodingDisabled = eris.New("geocoding disabled")

type ProviderConfig struct {
	Type      ProviderType
	APIKey    string
	RateLimit int // requests per second, 0 leaves the client default
	Logger    *slog.Logger
}

func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	case ProviderTypeNone, "":
		return nil, ErrGeocodingDisabled
	default:
		return nil, eris.Errorf("unsupported provider type: %s", config.Type)
	}
}

func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, eris.New("API key is required for Google provider")
	}

	clientOpts := []maps.ClientOption{maps.WithAPIKey(config.APIKey)}
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create Google Maps client")
	}

	return NewGoogleProvider(client, config.Logger), nil
}
