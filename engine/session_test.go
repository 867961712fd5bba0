package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sentinelops/lewsboard/config"
	"github.com/sentinelops/lewsboard/model"
)

// fakeSource is a scriptable Acquirer.
type fakeSource struct {
	mu    sync.Mutex
	p     *model.Payload
	path  model.DataPath
	err   error
	calls int
}

func (f *fakeSource) set(p *model.Payload, path model.DataPath, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.p, f.path, f.err = p, path, err
}

func (f *fakeSource) Acquire(ctx context.Context) (*model.Payload, model.DataPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.p, f.path, f.err
}

func newTestSession(t *testing.T, src Acquirer) *Session {
	t.Helper()
	cfg := config.Default()
	cfg.HistorySize = 10
	st := openTestStore(t)
	sess := NewSession(cfg, st, src, nil)
	t.Cleanup(sess.Shutdown)
	return sess
}

func TestSessionRunCycle(t *testing.T) {
	src := &fakeSource{}
	src.set(&model.Payload{District: "Serra Verde", Decision: "YES", Confidence: 0.9}, model.PathLive, nil)
	sess := newTestSession(t, src)

	cycle := sess.RunCycle(context.Background())
	if cycle.Path != model.PathLive || cycle.Err != "" {
		t.Fatalf("cycle = %+v", cycle)
	}
	res := sess.Resolved()
	if res.Decision != model.DecisionYes || res.Source != model.SourceLive {
		t.Errorf("resolved = %+v", res)
	}
	if sess.History().Len() != 1 {
		t.Errorf("history len = %d", sess.History().Len())
	}
}

func TestSessionWholesaleReplacement(t *testing.T) {
	src := &fakeSource{}
	src.set(&model.Payload{
		Decision:  "YES",
		GridCells: []model.GridCell{{GridNo: "g1", Risk: 0.9}},
		SMS:       "evacuate now",
	}, model.PathLive, nil)
	sess := newTestSession(t, src)
	sess.RunCycle(context.Background())

	// The next payload omits cells and SMS; nothing may survive the swap.
	src.set(&model.Payload{Decision: "NO"}, model.PathLive, nil)
	sess.RunCycle(context.Background())

	p := sess.Payload()
	if len(p.GridCells) != 0 || p.SMS != "" {
		t.Errorf("stale fields merged into new payload: %+v", p)
	}
}

func TestSessionKeepsPayloadOnFailure(t *testing.T) {
	src := &fakeSource{}
	src.set(&model.Payload{Decision: "YES", Confidence: 0.8}, model.PathLive, nil)
	sess := newTestSession(t, src)
	sess.RunCycle(context.Background())

	src.set(nil, model.PathNone, ErrNoCache)
	cycle := sess.RunCycle(context.Background())
	if cycle.Err == "" {
		t.Error("failed cycle carries no error")
	}
	if sess.Payload() == nil {
		t.Error("failure dropped the last good payload")
	}
	// And the next good cycle proceeds normally.
	src.set(&model.Payload{Decision: "NO"}, model.PathLive, nil)
	if cycle := sess.RunCycle(context.Background()); cycle.Err != "" {
		t.Errorf("recovery cycle: %+v", cycle)
	}
}

func TestSessionBootFromCache(t *testing.T) {
	src := &fakeSource{}
	sess := newTestSession(t, src)

	if err := sess.Store().SetPayload(&model.Payload{District: "Cached", Decision: "NO"}); err != nil {
		t.Fatal(err)
	}
	sess.Boot()
	p := sess.Payload()
	if p == nil || p.District != "Cached" {
		t.Fatalf("boot payload = %+v", p)
	}
	if sess.Resolved().Decision != model.DecisionNo {
		t.Errorf("resolved = %+v", sess.Resolved())
	}
}

func TestSessionSimulateCommands(t *testing.T) {
	src := &fakeSource{}
	src.set(&model.Payload{Decision: "NO", Confidence: 0.3}, model.PathLive, nil)
	sess := newTestSession(t, src)
	ctx := context.Background()
	sess.RunCycle(ctx)

	sess.Do(ctx, Command{Kind: CmdSimulateYes})
	res := sess.Resolved()
	if res.Decision != model.DecisionYes || res.Source != model.SourceSimulated || res.Confidence != simYesConfidence {
		t.Errorf("simulated YES: %+v", res)
	}

	sess.Do(ctx, Command{Kind: CmdSimulateNo})
	if res := sess.Resolved(); res.Confidence != simNoConfidence {
		t.Errorf("simulated NO: %+v", res)
	}

	sess.Do(ctx, Command{Kind: CmdClearSimulated})
	res = sess.Resolved()
	if res.Source != model.SourceLive || res.Confidence != 0.3 {
		t.Errorf("after clear: %+v", res)
	}
}

func TestSessionSimulatedSurvivesRefresh(t *testing.T) {
	src := &fakeSource{}
	src.set(&model.Payload{Decision: "NO", Confidence: 0.3}, model.PathLive, nil)
	sess := newTestSession(t, src)
	ctx := context.Background()
	sess.RunCycle(ctx)

	sess.Do(ctx, Command{Kind: CmdSimulateYes})
	sess.Do(ctx, Command{Kind: CmdRefresh})
	if res := sess.Resolved(); res.Source != model.SourceSimulated {
		t.Errorf("refresh dropped the simulated override: %+v", res)
	}
}

func TestSessionPlaybackCommands(t *testing.T) {
	src := &fakeSource{}
	src.set(&model.Payload{Decision: "YES", Confidence: 0.9}, model.PathLive, nil)
	sess := newTestSession(t, src)
	ctx := context.Background()
	sess.RunCycle(ctx)

	if !sess.Status().Firing {
		t.Fatal("alarm not firing before playback")
	}
	sample := model.HistoryPoint{T: "14:00", Decision: "NO", Confidence: 0.2}
	sess.Do(ctx, Command{Kind: CmdEnterPlayback, Sample: sample})

	st := sess.Status()
	if !st.Playback {
		t.Fatal("playback not active")
	}
	if st.Resolved.Source != model.SourcePlayback || st.Resolved.At != "14:00" {
		t.Errorf("resolved = %+v", st.Resolved)
	}
	if st.Firing {
		t.Error("alarm firing during playback")
	}

	sess.Do(ctx, Command{Kind: CmdExitPlayback})
	st = sess.Status()
	if st.Playback {
		t.Error("playback active after exit")
	}
	if st.Resolved.Source != model.SourceLive {
		t.Errorf("resolved after exit = %+v", st.Resolved)
	}
}

func TestSessionAutoplay(t *testing.T) {
	src := &fakeSource{}
	src.set(&model.Payload{
		Decision: "NO",
		History: []model.HistoryPoint{
			{T: "1", Decision: "NO", Confidence: 0.1},
			{T: "2", Decision: "YES", Confidence: 0.9},
		},
	}, model.PathLive, nil)
	sess := newTestSession(t, src)
	ctx := context.Background()
	sess.RunCycle(ctx)

	sess.Do(ctx, Command{Kind: CmdStartAutoplay})
	deadline := time.Now().Add(time.Second)
	for !sess.Status().Playback && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	st := sess.Status()
	if !st.AutoPlay || !st.Playback {
		t.Fatalf("status = %+v", st)
	}
	sess.Do(ctx, Command{Kind: CmdStopAutoplay})
	sess.Do(ctx, Command{Kind: CmdExitPlayback})
	if sess.Status().AutoPlay {
		t.Error("autoplay still running")
	}
}

func TestSessionBlackoutToggleCycles(t *testing.T) {
	src := &fakeSource{}
	src.set(&model.Payload{Decision: "NO"}, model.PathLive, nil)
	sess := newTestSession(t, src)
	ctx := context.Background()

	before := src.calls
	sess.Do(ctx, Command{Kind: CmdToggleBlackout})
	if !sess.Store().Blackout() {
		t.Error("blackout flag not set")
	}
	if src.calls != before+1 {
		t.Error("blackout toggle did not run an immediate cycle")
	}
	sess.Do(ctx, Command{Kind: CmdToggleBlackout})
	if sess.Store().Blackout() {
		t.Error("blackout flag not cleared")
	}
}

func TestSessionVSATRestartsPolling(t *testing.T) {
	src := &fakeSource{}
	src.set(&model.Payload{Decision: "NO"}, model.PathLive, nil)
	sess := newTestSession(t, src)
	ctx := context.Background()

	sess.StartPolling()
	if sess.Scheduler().Mode() != ModeNormal {
		t.Fatalf("mode = %s", sess.Scheduler().Mode())
	}
	sess.Do(ctx, Command{Kind: CmdToggleVSAT})
	if sess.Scheduler().Mode() != ModeVSAT {
		t.Errorf("mode after toggle = %s", sess.Scheduler().Mode())
	}
	if !sess.Scheduler().Running() {
		t.Error("polling stopped by mode switch")
	}
}

func TestSessionAckCommands(t *testing.T) {
	src := &fakeSource{}
	src.set(&model.Payload{Decision: "YES", Confidence: 0.9}, model.PathLive, nil)
	sess := newTestSession(t, src)
	ctx := context.Background()
	sess.RunCycle(ctx)

	sess.Do(ctx, Command{Kind: CmdAcknowledge})
	st := sess.Status()
	if !st.Acked || st.Firing {
		t.Fatalf("status after ack = %+v", st)
	}

	sess.Do(ctx, Command{Kind: CmdClearAck})
	st = sess.Status()
	if st.Acked {
		t.Error("ack survived clear")
	}
	if !st.Firing {
		t.Error("alarm silent after ack cleared with YES standing")
	}
}
