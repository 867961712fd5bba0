package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Config holds user-configurable defaults and integrations.
type Config struct {
	FeedURL        string           `json:"feed_url"`
	TileHost       string           `json:"tile_host"`
	ShellCacheName string           `json:"shell_cache_name"`
	TileCacheName  string           `json:"tile_cache_name"`
	ShellAssets    []string         `json:"shell_assets,omitempty"`
	PollNormalSec  int              `json:"poll_normal_sec"`
	PollVSATSec    int              `json:"poll_vsat_sec"`
	HistorySize    int              `json:"history_size"`
	Prometheus     PrometheusConfig `json:"prometheus"`
	Alerts         AlertConfig      `json:"alerts"`
}

type PrometheusConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// AlertConfig defines notification destinations for decision transitions.
type AlertConfig struct {
	Webhook string `json:"webhook"`
	Command string `json:"command"`
}

// Default returns a config with sensible defaults. Poll intervals match the
// field deployment values: 6s on a normal link, 20s on VSAT.
func Default() Config {
	return Config{
		FeedURL:        "http://127.0.0.1:8080/data.json",
		TileHost:       "tile.openstreetmap.org",
		ShellCacheName: "lews-app-v1",
		TileCacheName:  "lews-tiles-v1",
		PollNormalSec:  6,
		PollVSATSec:    20,
		HistorySize:    300,
		Prometheus: PrometheusConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9215",
		},
		Alerts: AlertConfig{},
	}
}

// Path returns ~/.config/lewsboard/config.json (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "lewsboard", "config.json")
}

// Load loads config from disk; returns defaults on error.
func Load() Config {
	cfg := Default()
	p := Path()
	if p == "" {
		return cfg
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("lewsboard: warning: config parse error: %v", err)
	}
	return cfg
}

// Save writes the config to disk.
func Save(cfg Config) error {
	path := Path()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
