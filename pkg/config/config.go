// Package config loads storefront configuration from an optional yaml
// file with environment variable overrides. Environment always wins,
// so container deployments need no file at all.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type ServerSection struct {
	ListenAddr string `yaml:"listen_addr"`
	// SiteURL is the canonical public URL base used in page metadata.
	SiteURL string `yaml:"site_url"`
}

type BackendSection struct {
	// BaseURL is the backend API origin for server-rendered fetches.
	BaseURL string `yaml:"base_url"`
}

type CacheSection struct {
	DBPath     string `yaml:"db_path"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

type Config struct {
	Server  ServerSection  `yaml:"server"`
	Backend BackendSection `yaml:"backend"`
	Cache   CacheSection   `yaml:"cache"`
}

func defaults() *Config {
	return &Config{
		Server:  ServerSection{ListenAddr: ":9090", SiteURL: "http://localhost:9090"},
		Backend: BackendSection{BaseURL: "http://localhost:8000"},
		Cache:   CacheSection{DBPath: "./cache.db", TTLMinutes: 1440},
	}
}

// Load builds the config from defaults, the yaml file at path (skipped
// when path is empty or the file does not exist) and finally the
// environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("SITE_URL"); v != "" {
		cfg.Server.SiteURL = v
	}
	if v := os.Getenv("INTERNAL_API_BASE"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("CACHE_DB_PATH"); v != "" {
		cfg.Cache.DBPath = v
	}
	if v := os.Getenv("CACHE_TTL_MINUTES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.Cache.TTLMinutes = parsed
		}
	}
}
