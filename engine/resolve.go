package engine

import "github.com/sentinelops/lewsboard/model"

// Simulated-override confidence constants. These are operator-drill
// approximations, not measured certainty.
const (
	simYesConfidence = 0.92
	simNoConfidence  = 0.22
)

// Override is the layered decision-override state. At most one layer is
// honored: playback beats simulation, simulation beats live.
type Override struct {
	Playback  *model.HistoryPoint
	Simulated *model.Decision
}

// Resolve layers the override stack over the live payload and returns the
// authoritative decision/confidence pair. Pure function of its inputs; it
// can be re-derived from the persistent store plus the last payload alone.
func Resolve(p *model.Payload, ov Override) model.Resolved {
	if ov.Playback != nil {
		return model.Resolved{
			Decision:   model.NormalizeDecision(ov.Playback.Decision),
			Confidence: model.Clamp01(ov.Playback.Confidence),
			Source:     model.SourcePlayback,
			At:         ov.Playback.T,
		}
	}
	if ov.Simulated != nil {
		conf := simNoConfidence
		if ov.Simulated.IsYes() {
			conf = simYesConfidence
		}
		return model.Resolved{
			Decision:   *ov.Simulated,
			Confidence: conf,
			Source:     model.SourceSimulated,
		}
	}
	if p == nil {
		return model.Resolved{Decision: model.DecisionNo, Source: model.SourceLive}
	}
	return model.Resolved{
		Decision:   p.DecisionNorm(),
		Confidence: p.ConfidenceNorm(),
		Source:     model.SourceLive,
	}
}
