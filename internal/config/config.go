package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Worker    WorkerConfig
	Sources   SourcesConfig
	DB        DatabaseConfig
	Ranking   RankingConfig
	Geocoding GeocodingConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type SourcesConfig struct {
	USGSEnabled       bool
	USGSURL           string
	USGSPollInterval  time.Duration
	GDACSEnabled      bool
	GDACSURL          string
	GDACSPollInterval time.Duration
}

type DatabaseConfig struct {
	Driver string // sqlite or postgres
	Path   string // sqlite file
	URL    string // postgres connection string
}

type RankingConfig struct {
	Strategy              string
	Policy                string
	MaxFamilies           int
	RankRadiusKm          float64 // 0 ranks every registered family
	MinMagnitude          float64
	DisasterPointsPerKm   float64
	VulnerablePointsPerKm float64
}

type GeocodingConfig struct {
	Provider  string
	APIKey    string
	RateLimit int
}

type RateLimitConfig struct {
	RPS int
}

type LoggingConfig struct {
	Level string
}

var defaults = map[string]any{
	"SERVER_HOST":                      "localhost",
	"SERVER_PORT":                      8080,
	"WORKER_COUNT":                     2,
	"WORKER_BUFFER_SIZE":               20,
	"USGS_ENABLED":                     true,
	"USGS_URL":                         "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_hour.geojson",
	"USGS_POLL_INTERVAL":               5 * time.Minute,
	"GDACS_ENABLED":                    true,
	"GDACS_URL":                        "https://www.gdacs.org/xml/rss.xml",
	"GDACS_POLL_INTERVAL":              10 * time.Minute,
	"DB_DRIVER":                        "sqlite",
	"DB_PATH":                          "./data/evac-priority.db",
	"DB_URL":                           "",
	"RANKING_STRATEGY":                 "topological",
	"RANKING_POLICY":                   "strict",
	"RANKING_MAX_FAMILIES":             5000,
	"RANKING_RADIUS_KM":                50.0,
	"RANKING_MIN_MAGNITUDE":            5.0,
	"RANKING_DISASTER_POINTS_PER_KM":   10.0,
	"RANKING_VULNERABLE_POINTS_PER_KM": 20.0,
	"GEOCODING_PROVIDER":               "none",
	"GEOCODING_API_KEY":                "",
	"GEOCODING_RATE_LIMIT":             10,
	"RATE_LIMIT_RPS":                   5,
	"LOG_LEVEL":                        "info",
}

// Load reads configuration from the environment, optionally layered over the
// YAML/JSON/TOML file named by CONFIG_FILE. Keys in the file use the same
// names as the environment variables, lower-cased.
func Load() (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, eris.Wrapf(err, "error reading config file %s", file)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Worker: WorkerConfig{
			Count:      v.GetInt("WORKER_COUNT"),
			BufferSize: v.GetInt("WORKER_BUFFER_SIZE"),
		},
		Sources: SourcesConfig{
			USGSEnabled:       v.GetBool("USGS_ENABLED"),
			USGSURL:           v.GetString("USGS_URL"),
			USGSPollInterval:  v.GetDuration("USGS_POLL_INTERVAL"),
			GDACSEnabled:      v.GetBool("GDACS_ENABLED"),
			GDACSURL:          v.GetString("GDACS_URL"),
			GDACSPollInterval: v.GetDuration("GDACS_POLL_INTERVAL"),
		},
		DB: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("DB_DRIVER")),
			Path:   v.GetString("DB_PATH"),
			URL:    v.GetString("DB_URL"),
		},
		Ranking: RankingConfig{
			Strategy:              strings.ToLower(v.GetString("RANKING_STRATEGY")),
			Policy:                strings.ToLower(v.GetString("RANKING_POLICY")),
			MaxFamilies:           v.GetInt("RANKING_MAX_FAMILIES"),
			RankRadiusKm:          v.GetFloat64("RANKING_RADIUS_KM"),
			MinMagnitude:          v.GetFloat64("RANKING_MIN_MAGNITUDE"),
			DisasterPointsPerKm:   v.GetFloat64("RANKING_DISASTER_POINTS_PER_KM"),
			VulnerablePointsPerKm: v.GetFloat64("RANKING_VULNERABLE_POINTS_PER_KM"),
		},
		Geocoding: GeocodingConfig{
			Provider:  strings.ToLower(v.GetString("GEOCODING_PROVIDER")),
			APIKey:    v.GetString("GEOCODING_API_KEY"),
			RateLimit: v.GetInt("GEOCODING_RATE_LIMIT"),
		},
		RateLimit: RateLimitConfig{
			RPS: v.GetInt("RATE_LIMIT_RPS"),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(v.GetString("LOG_LEVEL")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DB.URL == "" {
			return fmt.Errorf("DB_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s", c.DB.Driver)
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	if c.Sources.USGSPollInterval < time.Minute {
		return fmt.Errorf("USGS poll interval must be at least 1 minute")
	}
	if c.Sources.GDACSPollInterval < time.Minute {
		return fmt.Errorf("GDACS poll interval must be at least 1 minute")
	}

	if c.Ranking.Strategy != "weighted" && c.Ranking.Strategy != "topological" {
		return fmt.Errorf("invalid ranking strategy: %s", c.Ranking.Strategy)
	}
	if c.Ranking.Policy != "strict" && c.Ranking.Policy != "lenient" {
		return fmt.Errorf("invalid ranking policy: %s", c.Ranking.Policy)
	}
	if c.Ranking.MaxFamilies < 1 {
		return fmt.Errorf("ranking max families must be positive")
	}
	if c.Ranking.RankRadiusKm < 0 {
		return fmt.Errorf("ranking radius must not be negative")
	}
	if c.Ranking.DisasterPointsPerKm <= 0 || c.Ranking.VulnerablePointsPerKm <= 0 {
		return fmt.Errorf("proximity falloff must be positive")
	}

	if c.Geocoding.Provider == "google" && c.Geocoding.APIKey == "" {
		return fmt.Errorf("GEOCODING_API_KEY is required for the google provider")
	}

	if c.RateLimit.RPS < 1 {
		return fmt.Errorf("rate limit must be at least 1 request per second")
	}

	return nil
}
