package engine

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerIntervals(t *testing.T) {
	s := NewScheduler(6*time.Second, 20*time.Second, func() {})
	if s.Interval(ModeNormal) != 6*time.Second {
		t.Errorf("normal interval = %v", s.Interval(ModeNormal))
	}
	if s.Interval(ModeVSAT) != 20*time.Second {
		t.Errorf("vsat interval = %v", s.Interval(ModeVSAT))
	}
}

func TestSchedulerTicks(t *testing.T) {
	var ticks atomic.Int64
	s := NewScheduler(10*time.Millisecond, time.Second, func() { ticks.Add(1) })
	s.Start(ModeNormal)
	defer s.Stop()

	deadline := time.Now().Add(time.Second)
	for ticks.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ticks.Load() < 2 {
		t.Fatalf("ticks = %d, want >= 2", ticks.Load())
	}
}

func TestSchedulerRestartSingleLoop(t *testing.T) {
	var ticks atomic.Int64
	s := NewScheduler(10*time.Millisecond, 15*time.Millisecond, func() { ticks.Add(1) })

	// Rapid mode flips must leave exactly one armed loop behind.
	s.Start(ModeNormal)
	s.Restart(ModeVSAT)
	s.Restart(ModeNormal)
	if !s.Running() {
		t.Fatal("not running after restarts")
	}
	if s.Mode() != ModeNormal {
		t.Errorf("mode = %s", s.Mode())
	}

	ticks.Store(0)
	time.Sleep(105 * time.Millisecond)
	s.Stop()
	got := ticks.Load()
	// One 10ms loop yields ~10 ticks in 105ms; stacked loops would double it.
	if got > 14 {
		t.Errorf("ticks = %d in 105ms, more than one loop appears armed", got)
	}

	if s.Running() {
		t.Error("running after Stop")
	}
	s.Stop() // idempotent
}
