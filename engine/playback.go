package engine

import (
	"log"
	"sync"
	"time"

	"github.com/sentinelops/lewsboard/model"
)

// autoplayCadence is the fixed step period for auto-advance.
const autoplayCadence = 900 * time.Millisecond

// Playback pins the decision resolver to a historical sample from the
// feed's own trend history, suspending live alarm behavior while active.
type Playback struct {
	mu      sync.Mutex
	sample  model.HistoryPoint
	active  bool
	cadence time.Duration

	autoStop chan struct{}
}

// NewPlayback creates an inactive playback controller.
func NewPlayback() *Playback {
	return &Playback{cadence: autoplayCadence}
}

// Enter pins playback to the given history sample.
func (p *Playback) Enter(sample model.HistoryPoint) {
	p.mu.Lock()
	p.sample = sample
	p.active = true
	p.mu.Unlock()
}

// Exit clears the pin and restores live resolution. Auto-advance, if
// running, keeps stepping; stopping it is an explicit operator action.
func (p *Playback) Exit() {
	p.mu.Lock()
	p.active = false
	p.mu.Unlock()
}

// Active returns the pinned sample and whether playback is engaged.
func (p *Playback) Active() (model.HistoryPoint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sample, p.active
}

// StartAuto steps through history at a fixed cadence, invoking step for
// each sample, and stops automatically at the end of the sequence. Starting
// while already running is a no-op.
func (p *Playback) StartAuto(history []model.HistoryPoint, step func(model.HistoryPoint)) {
	if len(history) == 0 {
		return
	}
	p.mu.Lock()
	if p.autoStop != nil {
		p.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	p.autoStop = stop
	p.mu.Unlock()

	log.Printf("lewsboard: autoplay started (%d samples)", len(history))
	go func() {
		ticker := time.NewTicker(p.cadence)
		defer ticker.Stop()
		idx := 0
		step(history[idx])
		idx++
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if idx >= len(history) {
					p.StopAuto()
					return
				}
				step(history[idx])
				idx++
			}
		}
	}()
}

// StopAuto cancels auto-advance. Stopping when not running is a no-op.
func (p *Playback) StopAuto() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.autoStop == nil {
		return
	}
	close(p.autoStop)
	p.autoStop = nil
	log.Printf("lewsboard: autoplay stopped")
}

// AutoRunning reports whether auto-advance is stepping.
func (p *Playback) AutoRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.autoStop != nil
}
