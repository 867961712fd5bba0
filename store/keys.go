package store

import (
	"encoding/json"
	"time"

	"github.com/sentinelops/lewsboard/model"
)

// Storage keys. These match the original field deployment so an upgraded
// console inherits state in place.
const (
	KeyPayload     = "lews_payload"
	KeyAckAt       = "lews_ack_at"
	KeyMuted       = "lews_muted"
	KeyVSAT        = "lews_vsat"
	KeyBlackout    = "lews_blackout"
	KeySimDecision = "lews_sim_decision"
)

func (s *Store) flag(key string) bool {
	v, _ := s.Get(key)
	return v == "1"
}

func (s *Store) setFlag(key string, v bool) error {
	if v {
		return s.Set(key, "1")
	}
	return s.Set(key, "0")
}

// Muted reports the alarm mute flag.
func (s *Store) Muted() bool { return s.flag(KeyMuted) }

// SetMuted sets the alarm mute flag.
func (s *Store) SetMuted(v bool) error { return s.setFlag(KeyMuted, v) }

// VSAT reports the bandwidth-constrained polling flag.
func (s *Store) VSAT() bool { return s.flag(KeyVSAT) }

// SetVSAT sets the bandwidth-constrained polling flag.
func (s *Store) SetVSAT(v bool) error { return s.setFlag(KeyVSAT, v) }

// Blackout reports the network-blackout flag.
func (s *Store) Blackout() bool { return s.flag(KeyBlackout) }

// SetBlackout sets the network-blackout flag.
func (s *Store) SetBlackout(v bool) error { return s.setFlag(KeyBlackout, v) }

// AckAt returns the acknowledgment timestamp, if one is recorded.
func (s *Store) AckAt() (time.Time, bool) {
	v, ok := s.Get(KeyAckAt)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SetAckNow records an acknowledgment at the current time.
func (s *Store) SetAckNow() error {
	return s.Set(KeyAckAt, time.Now().UTC().Format(time.RFC3339))
}

// ClearAck removes the acknowledgment timestamp.
func (s *Store) ClearAck() error { return s.Delete(KeyAckAt) }

// SimDecision returns the operator-simulated decision, if one is set.
func (s *Store) SimDecision() (model.Decision, bool) {
	v, ok := s.Get(KeySimDecision)
	if !ok || v == "" {
		return "", false
	}
	return model.NormalizeDecision(v), true
}

// SetSimDecision pins the simulated decision override.
func (s *Store) SetSimDecision(d model.Decision) error {
	return s.Set(KeySimDecision, string(d))
}

// ClearSimDecision removes the simulated decision override.
func (s *Store) ClearSimDecision() error { return s.Delete(KeySimDecision) }

// Payload returns the last persisted payload, if any.
func (s *Store) Payload() (*model.Payload, bool) {
	v, ok := s.Get(KeyPayload)
	if !ok {
		return nil, false
	}
	var p model.Payload
	if err := json.Unmarshal([]byte(v), &p); err != nil {
		return nil, false
	}
	return &p, true
}

// SetPayload persists the payload verbatim as the new cache entry,
// replacing the previous one wholesale.
func (s *Store) SetPayload(p *model.Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.Set(KeyPayload, string(data))
}
