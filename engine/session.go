package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sentinelops/lewsboard/config"
	"github.com/sentinelops/lewsboard/model"
	"github.com/sentinelops/lewsboard/store"
)

// CommandKind enumerates the closed set of operator actions. Input surfaces
// (TUI keys, CLI flags) translate to these; business logic never sees a key
// press.
type CommandKind int

const (
	CmdRefresh CommandKind = iota
	CmdAcknowledge
	CmdClearAck
	CmdToggleMute
	CmdToggleVSAT
	CmdToggleBlackout
	CmdSimulateYes
	CmdSimulateNo
	CmdClearSimulated
	CmdEnterPlayback
	CmdExitPlayback
	CmdStartAutoplay
	CmdStopAutoplay
)

// Command is one operator action. Sample is set for CmdEnterPlayback.
type Command struct {
	Kind   CommandKind
	Sample model.HistoryPoint
}

// Session owns the acquisition/decision pipeline and all of its mutable
// state: the current payload, the resolved decision, the alarm, the polling
// scheduler, and the playback controller. One session per console.
type Session struct {
	mu sync.Mutex

	cfg      config.Config
	store    *store.Store
	source   Acquirer
	alarm    *Alarm
	sched    *Scheduler
	playback *Playback
	history  *History
	events   *EventDetector
	notifier *Notifier

	eventLog *EventLogWriter
	metrics  *Metrics
	recorder *Recorder

	lastPayload  *model.Payload
	lastResolved model.Resolved
	lastPath     model.DataPath
}

// NewSession wires a session from its collaborators. source is normally the
// live gateway; replay mode substitutes a Player.
func NewSession(cfg config.Config, st *store.Store, source Acquirer, beeper Beeper) *Session {
	s := &Session{
		cfg:      cfg,
		store:    st,
		source:   source,
		alarm:    NewAlarm(st, beeper),
		playback: NewPlayback(),
		history:  NewHistory(cfg.HistorySize),
		events:   NewEventDetector(),
		notifier: NewNotifier(cfg.Alerts),
	}
	normal := time.Duration(cfg.PollNormalSec) * time.Second
	vsat := time.Duration(cfg.PollVSATSec) * time.Second
	s.sched = NewScheduler(normal, vsat, func() {
		s.RunCycle(context.Background())
	})
	return s
}

// SetMetrics attaches a metrics set updated on every cycle.
func (s *Session) SetMetrics(m *Metrics) { s.metrics = m }

// SetRecorder attaches a cycle recorder.
func (s *Session) SetRecorder(r *Recorder) { s.recorder = r }

// SetEventLog attaches a durable event log for decision transitions.
func (s *Session) SetEventLog(w *EventLogWriter) { s.eventLog = w }

// Boot loads the persisted payload, if any, so the console has something to
// show before the first fetch completes.
func (s *Session) Boot() {
	p, ok := s.store.Payload()
	if !ok {
		log.Printf("lewsboard: booting fresh, no cached payload")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPayload = p
	s.lastResolved = Resolve(p, s.override())
	s.lastPath = model.PathCache
	log.Printf("lewsboard: booted from cache")
}

// override assembles the current override stack from the playback controller
// and the persisted simulation flag. Resolve applies the priority.
func (s *Session) override() Override {
	var ov Override
	if sample, ok := s.playback.Active(); ok {
		ov.Playback = &sample
	}
	if d, ok := s.store.SimDecision(); ok {
		ov.Simulated = &d
	}
	return ov
}

// RunCycle executes one acquisition cycle: acquire, resolve, drive the
// alarm, record. Cycles are serialized; an error in one cycle never
// prevents the next from running.
func (s *Session) RunCycle(ctx context.Context) model.Cycle {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, path, err := s.source.Acquire(ctx)
	cycle := model.Cycle{At: time.Now(), Path: path}
	if err != nil {
		cycle.Err = err.Error()
		log.Printf("lewsboard: %s: %v", path, err)
	}
	if payload != nil {
		// Wholesale replacement: no partial merge ever.
		s.lastPayload = payload
	}

	res := Resolve(s.lastPayload, s.override())
	s.lastResolved = res
	s.lastPath = path
	cycle.Payload = s.lastPayload
	cycle.Resolved = res

	s.alarm.Apply(res)
	s.history.Push(cycle)

	if opened, closed := s.events.Process(cycle); opened != nil || closed != nil {
		s.logEvent(opened, closed)
	}
	if s.metrics != nil {
		s.metrics.ObserveCycle(cycle, s.alarm.Firing())
	}
	if s.recorder != nil {
		if rerr := s.recorder.Record(cycle); rerr != nil {
			log.Printf("lewsboard: record cycle: %v", rerr)
		}
	}
	return cycle
}

func (s *Session) logEvent(opened, closed *Event) {
	if opened != nil {
		log.Printf("lewsboard: EVENT OPENED: %s conf=%.2f", opened.ID, opened.PeakConfidence)
		if s.eventLog != nil {
			if err := s.eventLog.Write(*opened); err != nil {
				log.Printf("lewsboard: write event: %v", err)
			}
		}
		s.notifier.Notify("decision_yes", opened)
	}
	if closed != nil {
		log.Printf("lewsboard: EVENT CLOSED: %s duration=%ds peak=%.2f",
			closed.ID, closed.Duration, closed.PeakConfidence)
		if s.eventLog != nil {
			if err := s.eventLog.Write(*closed); err != nil {
				log.Printf("lewsboard: write event: %v", err)
			}
		}
		s.notifier.Notify("decision_no", closed)
	}
}

// reapply recomputes the resolved decision after an override or flag change
// without running a new acquisition.
func (s *Session) reapply(evalAlarm bool) {
	s.mu.Lock()
	res := Resolve(s.lastPayload, s.override())
	s.lastResolved = res
	s.mu.Unlock()
	if evalAlarm {
		s.alarm.Apply(res)
	}
}

// Resolved returns the current authoritative decision.
func (s *Session) Resolved() model.Resolved {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResolved
}

// Payload returns the current payload (nil before first data).
func (s *Session) Payload() *model.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPayload
}

// Do dispatches one operator command.
func (s *Session) Do(ctx context.Context, cmd Command) {
	switch cmd.Kind {
	case CmdRefresh:
		s.RunCycle(ctx)

	case CmdAcknowledge:
		if s.alarm.Acknowledge(s.Resolved()) {
			log.Printf("lewsboard: alert acknowledged")
		}

	case CmdClearAck:
		s.alarm.ClearAck(s.Resolved())
		log.Printf("lewsboard: ack cleared")

	case CmdToggleMute:
		muted := !s.store.Muted()
		if err := s.store.SetMuted(muted); err != nil {
			log.Printf("lewsboard: set mute: %v", err)
		}
		// Audible effect only once a payload exists; the flag change alone
		// re-evaluates against the current resolution.
		if s.Payload() != nil {
			s.reapply(true)
		}
		log.Printf("lewsboard: alarm %s", map[bool]string{true: "muted", false: "unmuted"}[muted])

	case CmdToggleVSAT:
		vsat := !s.store.VSAT()
		if err := s.store.SetVSAT(vsat); err != nil {
			log.Printf("lewsboard: set vsat: %v", err)
		}
		if s.sched.Running() {
			s.sched.Restart(s.pollMode())
		}

	case CmdToggleBlackout:
		blackout := !s.store.Blackout()
		if err := s.store.SetBlackout(blackout); err != nil {
			log.Printf("lewsboard: set blackout: %v", err)
		}
		log.Printf("lewsboard: blackout %s", map[bool]string{true: "enabled", false: "disabled"}[blackout])
		s.RunCycle(ctx)

	case CmdSimulateYes:
		s.setSim(model.DecisionYes)

	case CmdSimulateNo:
		s.setSim(model.DecisionNo)

	case CmdClearSimulated:
		if err := s.store.ClearSimDecision(); err != nil {
			log.Printf("lewsboard: clear sim: %v", err)
		}
		s.reapply(true)

	case CmdEnterPlayback:
		s.enterPlayback(cmd.Sample)

	case CmdExitPlayback:
		s.playback.Exit()
		s.reapply(true)
		log.Printf("lewsboard: returned to live")

	case CmdStartAutoplay:
		p := s.Payload()
		if p == nil || len(p.History) == 0 {
			return
		}
		s.playback.StartAuto(p.History, s.enterPlayback)

	case CmdStopAutoplay:
		s.playback.StopAuto()
	}
}

func (s *Session) setSim(d model.Decision) {
	if err := s.store.SetSimDecision(d); err != nil {
		log.Printf("lewsboard: set sim: %v", err)
	}
	s.reapply(true)
	log.Printf("lewsboard: simulated decision = %s", d)
}

// enterPlayback pins a history sample; playback must never trigger a live
// alert, so the alarm is silenced before re-resolution.
func (s *Session) enterPlayback(sample model.HistoryPoint) {
	s.playback.Enter(sample)
	s.alarm.Stop()
	s.reapply(true)
}

func (s *Session) pollMode() Mode {
	if s.store.VSAT() {
		return ModeVSAT
	}
	return ModeNormal
}

// StartPolling arms the polling loop in the mode selected by the persisted
// bandwidth flag.
func (s *Session) StartPolling() {
	s.sched.Start(s.pollMode())
}

// Shutdown stops every repeating task. Safe to call more than once.
func (s *Session) Shutdown() {
	s.sched.Stop()
	s.playback.StopAuto()
	s.alarm.Stop()
}

// Scheduler exposes the polling scheduler (watch mode, tests).
func (s *Session) Scheduler() *Scheduler { return s.sched }

// History exposes the cycle ring buffer.
func (s *Session) History() *History { return s.history }

// Events exposes the decision event detector.
func (s *Session) Events() *EventDetector { return s.events }

// Store exposes the persistent store.
func (s *Session) Store() *store.Store { return s.store }

// Status is a render-ready snapshot of session state for display surfaces.
type Status struct {
	Payload  *model.Payload
	Resolved model.Resolved
	Path     model.DataPath
	Firing   bool
	Muted    bool
	VSAT     bool
	Blackout bool
	AckAt    time.Time
	Acked    bool
	Playback bool
	AutoPlay bool
}

// Status snapshots the session for rendering collaborators. Display-only;
// nothing here feeds back into the pipeline.
func (s *Session) Status() Status {
	s.mu.Lock()
	payload := s.lastPayload
	resolved := s.lastResolved
	path := s.lastPath
	s.mu.Unlock()

	ackAt, acked := s.store.AckAt()
	_, inPlayback := s.playback.Active()
	return Status{
		Payload:  payload,
		Resolved: resolved,
		Path:     path,
		Firing:   s.alarm.Firing(),
		Muted:    s.store.Muted(),
		VSAT:     s.store.VSAT(),
		Blackout: s.store.Blackout(),
		AckAt:    ackAt,
		Acked:    acked,
		Playback: inPlayback,
		AutoPlay: s.playback.AutoRunning(),
	}
}
