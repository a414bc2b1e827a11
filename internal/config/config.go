package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to run the console sync service.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Feed    FeedConfig    `yaml:"feed"`
	Actions ActionsConfig `yaml:"actions"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the local listeners.
type ServerConfig struct {
	HTTPAddress     string        `yaml:"httpAddress"`
	GRPCAddress     string        `yaml:"grpcAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// BackendConfig configures access to the FactoryOS HTTP API.
// A zero Timeout means requests are bounded only by their context.
type BackendConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// FeedConfig controls the alert polling feed.
type FeedConfig struct {
	AlertsInterval time.Duration `yaml:"alertsInterval"`
}

// ActionsConfig holds the fixed delays used by transactional actions.
type ActionsConfig struct {
	ModalCloseDelay time.Duration `yaml:"modalCloseDelay"`
	StageDelay      time.Duration `yaml:"stageDelay"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FACTORYOS_CONSOLE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the console cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.baseURL is required")
	}
	if c.Feed.AlertsInterval <= 0 {
		return fmt.Errorf("feed.alertsInterval must be positive, got %s", c.Feed.AlertsInterval)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative, got %s", c.Backend.Timeout)
	}
	if c.Actions.ModalCloseDelay < 0 || c.Actions.StageDelay < 0 {
		return errors.New("actions delays must not be negative")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddress:     "127.0.0.1:8090",
			GRPCAddress:     "127.0.0.1:50061",
			MetricsAddress:  ":2113",
			GracefulTimeout: 10 * time.Second,
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
		},
		Feed: FeedConfig{AlertsInterval: 5 * time.Second},
		Actions: ActionsConfig{
			ModalCloseDelay: 1500 * time.Millisecond,
			StageDelay:      1500 * time.Millisecond,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FACTORYOS_CONSOLE_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("FACTORYOS_CONSOLE_GRPC_ADDRESS"); v != "" {
		cfg.Server.GRPCAddress = v
	}
	if v := os.Getenv("FACTORYOS_CONSOLE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("FACTORYOS_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("FACTORYOS_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}
	if v := os.Getenv("FACTORYOS_ALERTS_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Feed.AlertsInterval = d
		}
	}
	if v := os.Getenv("FACTORYOS_MODAL_CLOSE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Actions.ModalCloseDelay = d
		}
	}
	if v := os.Getenv("FACTORYOS_STAGE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Actions.StageDelay = d
		}
	}
	if v := os.Getenv("FACTORYOS_CONSOLE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FACTORYOS_CONSOLE_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}
}
