package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SavePolicy controls what happens when persisting a result fails.
type SavePolicy string

const (
	// SaveDrop logs the failure and keeps the locally computed score;
	// the result is simply not durably recorded.
	SaveDrop SavePolicy = "drop"
	// SaveRetry retries the write a fixed number of times before dropping.
	SaveRetry SavePolicy = "retry"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Quiz struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"quiz"`
	Auth struct {
		JWTSecret  string `yaml:"jwt_secret"`
		TokenTTL   string `yaml:"token_ttl"`
		BcryptCost int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	Results struct {
		SavePolicy    string `yaml:"save_policy"`
		RetryAttempts int    `yaml:"retry_attempts"`
	} `yaml:"results"`
}

// Load reads YAML config from path. Environment variables override the
// secret-bearing fields so deployments never need them on disk.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is present: in-memory
// stores and whatever the environment provides.
func Default() Config {
	cfg := Config{}
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
}

// SaveMode normalizes the configured result-save policy; anything but
// "retry" falls back to the original drop behavior.
func (c Config) SaveMode() SavePolicy {
	if SavePolicy(c.Results.SavePolicy) == SaveRetry {
		return SaveRetry
	}
	return SaveDrop
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
