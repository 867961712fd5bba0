// Package cmd parses flags and wires the console's collaborators: the
// durable store, the cache router, the fetch gateway, and the session.
package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sentinelops/lewsboard/cacheproxy"
	"github.com/sentinelops/lewsboard/config"
	"github.com/sentinelops/lewsboard/engine"
	"github.com/sentinelops/lewsboard/report"
	"github.com/sentinelops/lewsboard/store"
	"github.com/sentinelops/lewsboard/ui"
)

// Version is set at build time via ldflags.
var Version = "1.0.0"

// Options holds CLI configuration.
type Options struct {
	FeedURL    string
	DataDir    string
	JSONMode   bool
	ReportMode bool
	WatchMode  bool
	WatchCount int
	DaemonMode bool
	Metrics    bool
	RecordPath string
	ReplayPath string
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `lewsboard v%s — Offline-resilient landslide early-warning console

Usage:
  lewsboard [OPTIONS] [INTERVAL]

Modes:
  (default)         Interactive TUI (bubbletea, fullscreen)
  -watch            CLI output mode — prints one line per cycle
  -json             Single acquisition cycle as JSON to stdout, then exit
  -report           Write a situation report file, then exit
  -daemon           Headless poller (event log + state files under datadir)
  -version          Print version and exit

Options:
  -feed URL         Live feed URL (default from config)
  -datadir PATH     State directory (default: ~/.lewsboard/)
  -count N          Number of iterations for -watch mode (0 = infinite)
  -metrics          Serve Prometheus metrics (addr from config)
  -record FILE      Run TUI while recording cycles to FILE
  -replay FILE      Replay a recorded file through the TUI

Positional:
  INTERVAL          First positional arg overrides the normal poll interval
                    in seconds: lewsboard 10

Examples:
  lewsboard                          Interactive console, 6s polling
  lewsboard 10                       Interactive console, 10s polling
  lewsboard -watch -count 5          Five cycles to the terminal, then exit
  lewsboard -json | jq .resolved
  lewsboard -report
  lewsboard -daemon -datadir /var/lib/lewsboard
  lewsboard -record /tmp/drill.jsonl
  lewsboard -replay /tmp/drill.jsonl
  lewsboard -version
`, Version)
}

// Run parses flags and starts the application.
func Run() error {
	var opts Options
	var showVersion bool

	flag.StringVar(&opts.FeedURL, "feed", "", "Live feed URL (overrides config)")
	flag.StringVar(&opts.DataDir, "datadir", "", "State directory (default: ~/.lewsboard/)")
	flag.BoolVar(&opts.JSONMode, "json", false, "Output a single cycle as JSON and exit")
	flag.BoolVar(&opts.ReportMode, "report", false, "Write a situation report file and exit")
	flag.BoolVar(&opts.WatchMode, "watch", false, "CLI output mode (no TUI)")
	flag.IntVar(&opts.WatchCount, "count", 0, "Number of iterations for -watch (0=infinite)")
	flag.BoolVar(&opts.DaemonMode, "daemon", false, "Run as headless poller (no TUI)")
	flag.BoolVar(&opts.Metrics, "metrics", false, "Serve Prometheus metrics")
	flag.StringVar(&opts.RecordPath, "record", "", "Record cycles to file for later replay")
	flag.StringVar(&opts.ReplayPath, "replay", "", "Replay cycles from a recorded file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = printUsage
	flag.Parse()

	if showVersion {
		fmt.Printf("lewsboard v%s\n", Version)
		return nil
	}

	cfg := config.Load()
	if opts.FeedURL != "" {
		cfg.FeedURL = opts.FeedURL
	}

	// Positional interval override: `lewsboard 10` polls every 10s.
	if args := flag.Args(); len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			cfg.PollNormalSec = n
		}
	}

	if opts.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "/tmp"
		}
		opts.DataDir = filepath.Join(home, ".lewsboard")
	}
	if err := os.MkdirAll(opts.DataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	st, err := store.Open(filepath.Join(opts.DataDir, "state.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	// Replay mode: recorded frames replace the network entirely.
	if opts.ReplayPath != "" {
		return runReplay(cfg, st, opts)
	}

	rc, err := cacheproxy.NewResponseCache(st.DB())
	if err != nil {
		return err
	}
	router, err := cacheproxy.New(rc, cacheproxy.Options{
		FeedURL:        cfg.FeedURL,
		TileHost:       cfg.TileHost,
		ShellCacheName: cfg.ShellCacheName,
		TileCacheName:  cfg.TileCacheName,
	}, nil)
	if err != nil {
		return err
	}
	if err := router.Activate(); err != nil {
		return err
	}
	// Precache in the background so a cold start is not blocked on the wire.
	go router.Install(context.Background(), append([]string{cfg.FeedURL}, cfg.ShellAssets...))

	gw := engine.NewGateway(cfg.FeedURL, router, st)
	sess := engine.NewSession(cfg, st, gw, &engine.TerminalBeeper{W: os.Stdout})

	var metrics *engine.Metrics
	if opts.Metrics || cfg.Prometheus.Enabled {
		metrics = engine.NewMetrics()
		router.OnServe = metrics.ObserveCacheServe
		sess.SetMetrics(metrics)
	}

	if opts.DaemonMode {
		addr := ""
		if metrics != nil {
			addr = cfg.Prometheus.Addr
		}
		return engine.RunDaemon(engine.DaemonConfig{
			DataDir: opts.DataDir,
			Session: sess,
			Metrics: metrics,
			Addr:    addr,
		})
	}
	if metrics != nil && cfg.Prometheus.Addr != "" {
		metrics.Serve(cfg.Prometheus.Addr)
	}

	if opts.JSONMode {
		return runJSON(sess)
	}
	if opts.ReportMode {
		return runReport(sess, opts.DataDir)
	}
	if opts.WatchMode {
		return runWatch(sess, opts.WatchCount)
	}

	if opts.RecordPath != "" {
		f, err := os.Create(opts.RecordPath)
		if err != nil {
			return fmt.Errorf("cannot create record file: %w", err)
		}
		defer f.Close()
		sess.SetRecorder(engine.NewRecorder(f))
	}

	return runTUI(sess, router, opts.DataDir)
}

func runTUI(sess *engine.Session, router *cacheproxy.Router, dataDir string) error {
	sess.Boot()
	sess.RunCycle(context.Background())
	sess.StartPolling()
	defer sess.Shutdown()

	p := tea.NewProgram(ui.NewModel(sess, router, dataDir), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// runJSON boots, runs one cycle, and prints it.
func runJSON(sess *engine.Session) error {
	sess.Boot()
	cycle := sess.RunCycle(context.Background())
	sess.Shutdown()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cycle)
}

// runReport runs one cycle and writes a situation report next to the state.
func runReport(sess *engine.Session, dataDir string) error {
	sess.Boot()
	sess.RunCycle(context.Background())
	sess.Shutdown()

	p := sess.Payload()
	if p == nil {
		return fmt.Errorf("no data available (live fetch failed and cache is empty)")
	}
	path := filepath.Join(dataDir, report.Filename(time.Now()))
	if err := report.Save(path, report.Build(p, sess.Resolved())); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// runWatch prints one summary line per cycle at the scheduler's interval.
func runWatch(sess *engine.Session, count int) error {
	sess.Boot()
	defer sess.Shutdown()

	interval := sess.Scheduler().Interval(engine.ModeNormal)
	if sess.Store().VSAT() {
		interval = sess.Scheduler().Interval(engine.ModeVSAT)
	}

	for i := 0; count == 0 || i < count; i++ {
		if i > 0 {
			time.Sleep(interval)
		}
		cycle := sess.RunCycle(context.Background())
		line := fmt.Sprintf("%s  %-20s %s %.2f",
			cycle.At.Format("15:04:05"), cycle.Path, cycle.Resolved.Decision, cycle.Resolved.Confidence)
		if cycle.Err != "" {
			line += "  " + cycle.Err
		}
		fmt.Println(line)
	}
	return nil
}

// runReplay drives the TUI from a recorded drill file instead of the network.
func runReplay(cfg config.Config, st *store.Store, opts Options) error {
	f, err := os.Open(opts.ReplayPath)
	if err != nil {
		return fmt.Errorf("cannot open replay file: %w", err)
	}
	defer f.Close()

	player, err := engine.NewPlayer(f)
	if err != nil {
		return fmt.Errorf("cannot parse replay file: %w", err)
	}
	if player.Len() == 0 {
		return fmt.Errorf("replay file %s contains no frames", opts.ReplayPath)
	}

	sess := engine.NewSession(cfg, st, player, &engine.TerminalBeeper{W: os.Stdout})
	return runTUI(sess, nil, opts.DataDir)
}
