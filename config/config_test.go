package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.PollNormalSec != 6 || cfg.PollVSATSec != 20 {
		t.Errorf("poll intervals = %d/%d", cfg.PollNormalSec, cfg.PollVSATSec)
	}
	if cfg.ShellCacheName != "lews-app-v1" || cfg.TileCacheName != "lews-tiles-v1" {
		t.Errorf("cache names = %s/%s", cfg.ShellCacheName, cfg.TileCacheName)
	}
	if cfg.FeedURL == "" || cfg.HistorySize == 0 {
		t.Errorf("incomplete defaults: %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.FeedURL = "http://ops.example.org/data.json"
	cfg.PollVSATSec = 45
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := Load()
	if got.FeedURL != cfg.FeedURL || got.PollVSATSec != 45 {
		t.Errorf("round trip = %+v", got)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	got := Load()
	if got.PollNormalSec != 6 {
		t.Errorf("missing config did not yield defaults: %+v", got)
	}
}

func TestLoadCorruptFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "lewsboard", "config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	got := Load()
	if got.PollNormalSec != 6 {
		t.Errorf("corrupt config did not yield defaults: %+v", got)
	}
}
