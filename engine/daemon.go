package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/natefinch/atomic"

	"github.com/sentinelops/lewsboard/model"
)

// DaemonConfig holds daemon-specific configuration.
type DaemonConfig struct {
	DataDir string
	Session *Session
	Metrics *Metrics
	Addr    string // metrics listen address, empty disables
}

// compactSummary is a minimal per-cycle record for the rolling log.
type compactSummary struct {
	Timestamp  time.Time `json:"ts"`
	Path       string    `json:"path"`
	Decision   string    `json:"decision"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	Firing     bool      `json:"firing"`
	Err        string    `json:"err,omitempty"`
}

// RunDaemon runs the console headless: polling, event log, and a compact
// per-cycle summary under DataDir. Blocks until SIGINT/SIGTERM.
func RunDaemon(cfg DaemonConfig) error {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath := filepath.Join(cfg.DataDir, "daemon.pid")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	sess := cfg.Session
	sess.SetEventLog(NewEventLogWriter(filepath.Join(cfg.DataDir, "events.jsonl")))
	if cfg.Metrics != nil {
		sess.SetMetrics(cfg.Metrics)
		if cfg.Addr != "" {
			cfg.Metrics.Serve(cfg.Addr)
		}
	}

	summaryPath := filepath.Join(cfg.DataDir, "current.jsonl")
	statePath := filepath.Join(cfg.DataDir, "current.json")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	interval := sess.Scheduler().Interval(sess.pollMode())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("lewsboard daemon started (pid=%d, interval=%s, datadir=%s)",
		os.Getpid(), interval, cfg.DataDir)

	sess.Boot()
	sess.RunCycle(context.Background())
	writeDaemonState(statePath, summaryPath, sess)

	for {
		select {
		case <-sigCh:
			log.Printf("lewsboard daemon shutting down")
			sess.Shutdown()
			return nil
		case <-ticker.C:
			sess.RunCycle(context.Background())
			writeDaemonState(statePath, summaryPath, sess)
		}
	}
}

func writeDaemonState(statePath, summaryPath string, sess *Session) {
	cycle := sess.History().Latest()
	if cycle == nil {
		return
	}
	st := sess.Status()

	summary := compactSummary{
		Timestamp:  cycle.At,
		Path:       cycle.Path.String(),
		Decision:   string(cycle.Resolved.Decision),
		Confidence: cycle.Resolved.Confidence,
		Source:     cycle.Resolved.Source.String(),
		Firing:     st.Firing,
		Err:        cycle.Err,
	}
	writeSummaryLine(summaryPath, summary)

	// Full current state, replaced atomically so shell widgets never see a
	// torn file.
	state := struct {
		Cycle  model.Cycle `json:"cycle"`
		Status struct {
			Muted    bool `json:"muted"`
			VSAT     bool `json:"vsat"`
			Blackout bool `json:"blackout"`
			Acked    bool `json:"acked"`
			Firing   bool `json:"firing"`
		} `json:"status"`
	}{Cycle: *cycle}
	state.Status.Muted = st.Muted
	state.Status.VSAT = st.VSAT
	state.Status.Blackout = st.Blackout
	state.Status.Acked = st.Acked
	state.Status.Firing = st.Firing

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("lewsboard: marshal daemon state: %v", err)
		return
	}
	if err := atomic.WriteFile(statePath, bytes.NewReader(data)); err != nil {
		log.Printf("lewsboard: write daemon state: %v", err)
	}
}

// writeSummaryLine appends a compact JSON line to the summary file.
// Rotates at 10MB.
func writeSummaryLine(path string, s compactSummary) {
	if info, err := os.Stat(path); err == nil && info.Size() > 10*1024*1024 {
		_ = os.Rename(path, path+".old")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_ = json.NewEncoder(f).Encode(s)
}
