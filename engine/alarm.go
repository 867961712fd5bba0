package engine

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/sentinelops/lewsboard/model"
	"github.com/sentinelops/lewsboard/store"
)

// Alarm pulse timing: a triple-tone burst every pulsePeriod while firing.
const (
	pulsePeriod = 2 * time.Second
	burstGap    = 250 * time.Millisecond
	burstTones  = 3
)

// Beeper produces one audible burst. Implementations may fail (platform
// audio policy); failures are swallowed so alarm state stays consistent even
// when the audible side effect does not happen.
type Beeper interface {
	Burst() error
}

// TerminalBeeper rings the terminal bell.
type TerminalBeeper struct {
	W io.Writer
}

// Burst writes a short burst of bell characters with a fixed gap.
func (b *TerminalBeeper) Burst() error {
	for i := 0; i < burstTones; i++ {
		if i > 0 {
			time.Sleep(burstGap)
		}
		if _, err := b.W.Write([]byte("\a")); err != nil {
			return err
		}
	}
	return nil
}

// Alarm derives armed/muted, acknowledged and firing state from the resolved
// decision and operator actions, and owns the repeating audible pulse.
type Alarm struct {
	mu     sync.Mutex
	store  *store.Store
	beeper Beeper
	period time.Duration

	stopCh chan struct{}
	firing bool
}

// NewAlarm creates an alarm bound to the durable mute/ack flags in st.
func NewAlarm(st *store.Store, beeper Beeper) *Alarm {
	return &Alarm{
		store:  st,
		beeper: beeper,
		period: pulsePeriod,
	}
}

// shouldAlarm is the firing predicate: not in playback, resolved decision is
// YES, not muted, and no acknowledgment recorded. Any false condition forces
// silence.
func (a *Alarm) shouldAlarm(res model.Resolved) bool {
	if res.Source == model.SourcePlayback {
		return false
	}
	if !res.Decision.IsYes() {
		return false
	}
	if a.store.Muted() {
		return false
	}
	if _, acked := a.store.AckAt(); acked {
		return false
	}
	return true
}

// Apply re-evaluates the firing predicate against a freshly resolved
// decision and starts or cancels the audible pulse accordingly.
func (a *Alarm) Apply(res model.Resolved) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.shouldAlarm(res) {
		a.startLocked()
	} else {
		a.stopLocked()
	}
}

// Acknowledge records an acknowledgment timestamp and silences the alarm.
// It is accepted only when the current resolved decision is YES; otherwise
// it is silently ignored (operator-error protection).
func (a *Alarm) Acknowledge(res model.Resolved) bool {
	if !res.Decision.IsYes() {
		log.Printf("lewsboard: ack ignored (decision is NO)")
		return false
	}
	if err := a.store.SetAckNow(); err != nil {
		log.Printf("lewsboard: record ack: %v", err)
	}
	a.mu.Lock()
	a.stopLocked()
	a.mu.Unlock()
	return true
}

// ClearAck removes the acknowledgment timestamp; if the firing predicate is
// now true the alarm re-enters the audible state immediately.
func (a *Alarm) ClearAck(res model.Resolved) {
	if err := a.store.ClearAck(); err != nil {
		log.Printf("lewsboard: clear ack: %v", err)
	}
	a.Apply(res)
}

// Firing reports whether the audible pulse is active.
func (a *Alarm) Firing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.firing
}

// Stop cancels the audible pulse. Stopping an already-silent alarm is a
// no-op.
func (a *Alarm) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Alarm) startLocked() {
	if a.stopCh != nil {
		return
	}
	stop := make(chan struct{})
	a.stopCh = stop
	a.firing = true
	log.Printf("lewsboard: ALARM ACTIVE (YES decision not acknowledged)")

	go func() {
		a.burst()
		ticker := time.NewTicker(a.period)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				a.burst()
			}
		}
	}()
}

func (a *Alarm) stopLocked() {
	if a.stopCh == nil {
		return
	}
	close(a.stopCh)
	a.stopCh = nil
	a.firing = false
	log.Printf("lewsboard: alarm stopped")
}

// burst plays one audible burst, swallowing side-effect failures.
func (a *Alarm) burst() {
	if a.beeper == nil {
		return
	}
	if err := a.beeper.Burst(); err != nil {
		log.Printf("lewsboard: beep failed (audio unavailable): %v", err)
	}
}
