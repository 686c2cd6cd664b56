package config

import (
	"encoding/json"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Worker   *workerConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"sqlite"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"quantjobs.db"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address        string `envconfig:"QUANTJOBS_ADDRESS" default:":8000"`
	MetricsAddress string `envconfig:"QUANTJOBS_METRICS_ADDRESS" default:":8080"`
	BaseUrl        string `envconfig:"QUANTJOBS_BASE_URL" default:"http://localhost:8000"`
	LogLevel       string `envconfig:"QUANTJOBS_LOG_LEVEL" default:"info"`
	CorsOrigins    string `envconfig:"QUANTJOBS_CORS_ORIGINS" default:"http://localhost:5173"`
}

type workerConfig struct {
	ClaimIntervalMs int `envconfig:"QUANTJOBS_WORKER_CLAIM_INTERVAL_MS" default:"250"`
	Concurrency     int `envconfig:"QUANTJOBS_WORKER_CONCURRENCY" default:"2"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config with defaults only, ignoring the environment.
// Used by tests that want an in-memory sqlite store.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{Type: "sqlite", Name: ":memory:"},
		Service:  &svcConfig{Address: ":8000", LogLevel: "info"},
		Worker:   &workerConfig{ClaimIntervalMs: 250, Concurrency: 2},
	}
}

func (c *Config) String() string {
	val, err := json.Marshal(c)
	if err != nil {
		return "config unavailable"
	}
	return string(val)
}
