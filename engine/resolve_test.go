package engine

import (
	"testing"

	"github.com/sentinelops/lewsboard/model"
)

func TestResolveLive(t *testing.T) {
	p := &model.Payload{Decision: "yes", Confidence: 1.3}
	res := Resolve(p, Override{})
	if res.Decision != model.DecisionYes {
		t.Errorf("decision = %s", res.Decision)
	}
	if res.Confidence != 1 {
		t.Errorf("confidence = %v, want clamped 1", res.Confidence)
	}
	if res.Source != model.SourceLive {
		t.Errorf("source = %s", res.Source)
	}
}

func TestResolveNilPayload(t *testing.T) {
	res := Resolve(nil, Override{})
	if res.Decision != model.DecisionNo || res.Confidence != 0 || res.Source != model.SourceLive {
		t.Errorf("nil payload resolved to %+v", res)
	}
}

func TestResolveSimulated(t *testing.T) {
	p := &model.Payload{Decision: "NO", Confidence: 0.1}

	yes := model.DecisionYes
	res := Resolve(p, Override{Simulated: &yes})
	if res.Decision != model.DecisionYes || res.Confidence != simYesConfidence {
		t.Errorf("simulated YES resolved to %+v", res)
	}
	if res.Source != model.SourceSimulated {
		t.Errorf("source = %s", res.Source)
	}

	no := model.DecisionNo
	res = Resolve(p, Override{Simulated: &no})
	if res.Decision != model.DecisionNo || res.Confidence != simNoConfidence {
		t.Errorf("simulated NO resolved to %+v", res)
	}
}

func TestResolvePlaybackBeatsSimulated(t *testing.T) {
	p := &model.Payload{Decision: "NO", Confidence: 0.1}
	yes := model.DecisionYes
	sample := model.HistoryPoint{T: "14:00", Decision: "no", Confidence: -0.2}

	res := Resolve(p, Override{Playback: &sample, Simulated: &yes})
	if res.Source != model.SourcePlayback {
		t.Fatalf("source = %s, want PLAYBACK", res.Source)
	}
	if res.Decision != model.DecisionNo {
		t.Errorf("decision = %s, want sample decision", res.Decision)
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %v, want clamped 0", res.Confidence)
	}
	if res.At != "14:00" {
		t.Errorf("At = %q", res.At)
	}
}
