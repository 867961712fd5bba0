package engine

import (
	"log"
	"sync"
	"time"
)

// Mode selects the polling interval.
type Mode int

const (
	ModeNormal Mode = iota
	ModeVSAT
)

func (m Mode) String() string {
	if m == ModeVSAT {
		return "VSAT"
	}
	return "NORMAL"
}

// Scheduler runs the acquisition cycle on a fixed interval. At most one
// repeating task exists at a time; Restart cancels the previous loop before
// arming a new one, so no two acquisition loops can overlap.
type Scheduler struct {
	mu     sync.Mutex
	normal time.Duration
	vsat   time.Duration
	tick   func()

	mode   Mode
	stopCh chan struct{}
}

// NewScheduler creates a scheduler calling tick on each interval.
func NewScheduler(normal, vsat time.Duration, tick func()) *Scheduler {
	return &Scheduler{normal: normal, vsat: vsat, tick: tick}
}

// Interval returns the polling interval for a mode.
func (s *Scheduler) Interval(mode Mode) time.Duration {
	if mode == ModeVSAT {
		return s.vsat
	}
	return s.normal
}

// Start arms the repeating task. Starting an already-running scheduler
// restarts it in the given mode.
func (s *Scheduler) Start(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.mode = mode
	stop := make(chan struct{})
	s.stopCh = stop
	interval := s.Interval(mode)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Restart cancels any existing task and starts a new one in the given mode.
func (s *Scheduler) Restart(mode Mode) {
	s.Start(mode)
	log.Printf("lewsboard: polling restarted (%s mode)", mode)
}

// Stop cancels the repeating task. Stopping an already-stopped scheduler is
// a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	s.stopCh = nil
}

// Running reports whether a polling loop is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

// Mode returns the mode the scheduler was last started in.
func (s *Scheduler) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}
