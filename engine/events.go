package engine

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelops/lewsboard/model"
)

// Event is one evacuate episode: the span during which the resolved
// decision stayed YES.
type Event struct {
	ID             string    `json:"id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time,omitempty"`
	Duration       int       `json:"duration_sec,omitempty"`
	PeakConfidence float64   `json:"peak_confidence"`
	District       string    `json:"district,omitempty"`
	Source         string    `json:"source"`
	Active         bool      `json:"active"`
}

// EventDetector tracks resolved-decision transitions and emits events.
// Playback cycles are ignored entirely; a drill replay must not open or
// close evacuate episodes.
type EventDetector struct {
	mu sync.Mutex

	active    *Event
	completed []Event

	yesStreak int
	debounce  int // consecutive YES cycles required before opening
}

// NewEventDetector creates a detector with a default debounce of 2 cycles.
func NewEventDetector() *EventDetector {
	return &EventDetector{debounce: 2}
}

// Process consumes one cycle. It returns the event that was opened or
// closed by this cycle, if any (never both).
func (d *EventDetector) Process(c model.Cycle) (opened, closed *Event) {
	if c.Resolved.Source == model.SourcePlayback {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	isYes := c.Resolved.Decision.IsYes()
	if isYes {
		d.yesStreak++
	} else {
		d.yesStreak = 0
	}

	if d.active != nil {
		if !isYes {
			d.active.Active = false
			d.active.EndTime = c.At
			d.active.Duration = int(c.At.Sub(d.active.StartTime).Seconds())
			d.completed = append(d.completed, *d.active)
			ev := *d.active
			d.active = nil
			return nil, &ev
		}
		if c.Resolved.Confidence > d.active.PeakConfidence {
			d.active.PeakConfidence = c.Resolved.Confidence
		}
		return nil, nil
	}

	if isYes && d.yesStreak >= d.debounce {
		d.active = &Event{
			ID:             uuid.NewString(),
			StartTime:      c.At,
			PeakConfidence: c.Resolved.Confidence,
			Source:         c.Resolved.Source.String(),
			Active:         true,
		}
		if c.Payload != nil {
			d.active.District = c.Payload.District
		}
		ev := *d.active
		return &ev, nil
	}
	return nil, nil
}

// ActiveEvent returns a copy of the current active event, or nil.
func (d *EventDetector) ActiveEvent() *Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return nil
	}
	cpy := *d.active
	return &cpy
}

// Events returns completed events in reverse chronological order.
func (d *EventDetector) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.completed))
	for i, e := range d.completed {
		out[len(d.completed)-1-i] = e
	}
	return out
}

// EventLogWriter appends events to a JSONL file.
type EventLogWriter struct {
	path string
	mu   sync.Mutex
}

// NewEventLogWriter creates a writer for the given path.
func NewEventLogWriter(path string) *EventLogWriter {
	return &EventLogWriter{path: path}
}

// Write appends an event to the log file.
func (w *EventLogWriter) Write(e Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(e)
}

// ReadEventLog reads all events from a JSONL file. Malformed lines are
// skipped.
func ReadEventLog(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}
