package engine

import (
	"path/filepath"
	"testing"

	"github.com/sentinelops/lewsboard/model"
	"github.com/sentinelops/lewsboard/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func yesLive() model.Resolved {
	return model.Resolved{Decision: model.DecisionYes, Confidence: 0.9, Source: model.SourceLive}
}

func noLive() model.Resolved {
	return model.Resolved{Decision: model.DecisionNo, Confidence: 0.2, Source: model.SourceLive}
}

func TestAlarmFiresOnYes(t *testing.T) {
	st := openTestStore(t)
	a := NewAlarm(st, nil)
	defer a.Stop()

	a.Apply(yesLive())
	if !a.Firing() {
		t.Fatal("alarm not firing on unacked YES")
	}
	a.Apply(noLive())
	if a.Firing() {
		t.Fatal("alarm still firing after NO")
	}
}

func TestAlarmMuteSilences(t *testing.T) {
	st := openTestStore(t)
	if err := st.SetMuted(true); err != nil {
		t.Fatal(err)
	}
	a := NewAlarm(st, nil)
	defer a.Stop()

	a.Apply(yesLive())
	if a.Firing() {
		t.Fatal("muted alarm fired")
	}
	if err := st.SetMuted(false); err != nil {
		t.Fatal(err)
	}
	a.Apply(yesLive())
	if !a.Firing() {
		t.Fatal("unmuted alarm stayed silent")
	}
}

func TestAlarmPlaybackNeverFires(t *testing.T) {
	st := openTestStore(t)
	a := NewAlarm(st, nil)
	defer a.Stop()

	res := model.Resolved{Decision: model.DecisionYes, Confidence: 1, Source: model.SourcePlayback}
	a.Apply(res)
	if a.Firing() {
		t.Fatal("playback sample triggered the alarm")
	}
}

func TestAcknowledgeOnlyOnYes(t *testing.T) {
	st := openTestStore(t)
	a := NewAlarm(st, nil)
	defer a.Stop()

	if a.Acknowledge(noLive()) {
		t.Fatal("ack accepted while decision is NO")
	}
	if _, ok := st.AckAt(); ok {
		t.Fatal("rejected ack still recorded a timestamp")
	}

	a.Apply(yesLive())
	if !a.Acknowledge(yesLive()) {
		t.Fatal("ack rejected while decision is YES")
	}
	if a.Firing() {
		t.Fatal("alarm still firing after ack")
	}
	if _, ok := st.AckAt(); !ok {
		t.Fatal("ack timestamp not recorded")
	}

	// Once acked, re-applying the same YES stays silent.
	a.Apply(yesLive())
	if a.Firing() {
		t.Fatal("acked alarm re-fired")
	}
}

func TestClearAckRefires(t *testing.T) {
	st := openTestStore(t)
	a := NewAlarm(st, nil)
	defer a.Stop()

	a.Apply(yesLive())
	a.Acknowledge(yesLive())
	if a.Firing() {
		t.Fatal("firing after ack")
	}
	a.ClearAck(yesLive())
	if !a.Firing() {
		t.Fatal("alarm did not re-fire after ack cleared with YES standing")
	}
	if _, ok := st.AckAt(); ok {
		t.Fatal("ack survived ClearAck")
	}
}

func TestAlarmStopIdempotent(t *testing.T) {
	st := openTestStore(t)
	a := NewAlarm(st, nil)
	a.Stop()
	a.Apply(yesLive())
	a.Stop()
	a.Stop()
	if a.Firing() {
		t.Fatal("firing after Stop")
	}
}
