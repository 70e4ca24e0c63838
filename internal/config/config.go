package config

import (
	"fmt"
	"github.com/caarlos0/env/v11"
)

type Env string

const (
	EnvProd Env = "prod"
	EnvDev  Env = "dev"
)

func (e Env) IsValid() bool {
	switch e {
	case EnvProd, EnvDev:
		return true
	}
	return false
}

type Config struct {
	APIServerHost string `env:"API_SERVER_HOST"`
	APIServerPort string `env:"API_SERVER_PORT" envDefault:"8080"`

	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort string `env:"REDIS_PORT" envDefault:"6379"`

	TileCacheDir string `env:"TILE_CACHE_DIR" envDefault:"/var/cache/routesight/tiles"`

	RoutingAPIURL  string `env:"ROUTING_API_URL,required"`
	ImageryAPIURL  string `env:"IMAGERY_API_URL,required"`
	ImageryAPIKey  string `env:"IMAGERY_API_KEY"`
	AnalysisAPIURL string `env:"ANALYSIS_API_URL"`

	SamplingIntervalMeters float64 `env:"SAMPLING_INTERVAL_METERS" envDefault:"30"`
	TileZoom               uint8   `env:"TILE_ZOOM" envDefault:"19"`
	FetchWorkers           int     `env:"FETCH_WORKERS" envDefault:"20"`
	FetchRatePerSecond     float64 `env:"FETCH_RATE_PER_SECOND" envDefault:"50"`

	Env Env `env:"ENV" envDefault:"prod"`
}

func New() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.Env.IsValid() {
		return nil, fmt.Errorf("invalid env variable (must be 'prod' or 'dev')")
	}
	if cfg.SamplingIntervalMeters <= 0 {
		return nil, fmt.Errorf("sampling interval must be > 0")
	}
	if cfg.FetchWorkers <= 0 || cfg.FetchRatePerSecond <= 0 {
		return nil, fmt.Errorf("fetch workers and rate must be > 0")
	}
	return &cfg, nil
}
