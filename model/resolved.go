package model

// Source identifies which override layer produced a resolved decision.
type Source int

const (
	SourceLive Source = iota
	SourceSimulated
	SourcePlayback
)

func (s Source) String() string {
	switch s {
	case SourcePlayback:
		return "PLAYBACK"
	case SourceSimulated:
		return "SIMULATED"
	default:
		return "LIVE"
	}
}

// Resolved is the authoritative decision/confidence pair after the override
// stack (playback > simulated > live) has been applied.
type Resolved struct {
	Decision   Decision `json:"decision"`
	Confidence float64  `json:"confidence"`
	Source     Source   `json:"source"`
	// At is the history timestamp when Source is SourcePlayback.
	At string `json:"at,omitempty"`
}

// DataPath identifies which data path supplied the current payload; it
// drives the connectivity indicator.
type DataPath int

const (
	PathNone DataPath = iota
	PathLive
	PathCache
	PathBlackoutCache
	PathBlackoutNoData
)

func (p DataPath) String() string {
	switch p {
	case PathLive:
		return "LOCAL DATA OK"
	case PathCache:
		return "OFFLINE (CACHE)"
	case PathBlackoutCache:
		return "BLACKOUT (LOCAL)"
	case PathBlackoutNoData:
		return "BLACKOUT (NO DATA)"
	default:
		return "NO DATA"
	}
}

// OK reports whether the path represents a successful live fetch.
func (p DataPath) OK() bool { return p == PathLive }
