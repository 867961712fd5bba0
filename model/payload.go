package model

import (
	"strings"
	"time"
)

// Decision is the binary evacuate verdict for a district or zone.
type Decision string

const (
	DecisionYes Decision = "YES"
	DecisionNo  Decision = "NO"
)

// NormalizeDecision folds any raw decision string to YES/NO.
// Anything that is not YES (case-insensitive) is NO.
func NormalizeDecision(raw string) Decision {
	if strings.EqualFold(strings.TrimSpace(raw), "YES") {
		return DecisionYes
	}
	return DecisionNo
}

// IsYes reports whether d is the evacuate decision.
func (d Decision) IsYes() bool { return d == DecisionYes }

// Clamp01 clamps a confidence value to [0,1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// SMSLimit is the maximum length of the SMS digest.
const SMSLimit = 160

// Payload is the live feed's root object. Immutable once decoded; each
// refresh replaces the previous value wholesale.
type Payload struct {
	District      string        `json:"district"`
	UpdatedAt     string        `json:"updated_at_local"`
	Decision      string        `json:"decision"`
	Confidence    float64       `json:"confidence"`
	LeadTimeHours float64       `json:"lead_time_hours"`
	Summary       string        `json:"summary"`
	Factors       []Factor      `json:"factors,omitempty"`
	GridCells     []GridCell    `json:"grid_cells,omitempty"`
	EvacZones     []EvacZone    `json:"evacuation_zones,omitempty"`
	History       []HistoryPoint `json:"history,omitempty"`
	SMS           string        `json:"sms,omitempty"`
}

// Factor is one ordered risk-factor descriptor.
type Factor struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Level string `json:"level"`
}

// GridCell is a single 30 m grid-cell reading with its risk indicators.
type GridCell struct {
	GridNo         string  `json:"grid_no"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	SoilSaturation float64 `json:"soil_saturation"`
	RainfallMM     float64 `json:"rainfall_mm"`
	Vibration      float64 `json:"vibration"`
	Risk           float64 `json:"risk"`
}

// EvacZone is an evacuation zone with its recommended action.
type EvacZone struct {
	Name       string  `json:"name"`
	Action     string  `json:"action"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	RadiusM    float64 `json:"radius_m"`
	Shelter    string  `json:"shelter,omitempty"`
	ETAMinutes int     `json:"eta_minutes,omitempty"`
	Population int     `json:"population_est,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// HistoryPoint is one prior (timestamp, decision, confidence) sample from
// the feed's own trend history.
type HistoryPoint struct {
	T          string  `json:"t"`
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
}

// DecisionNorm returns the payload's decision folded to YES/NO.
func (p *Payload) DecisionNorm() Decision {
	return NormalizeDecision(p.Decision)
}

// ConfidenceNorm returns the payload's confidence clamped to [0,1].
func (p *Payload) ConfidenceNorm() float64 {
	return Clamp01(p.Confidence)
}

// SMSDigest returns the SMS text truncated to the 160-char limit.
func (p *Payload) SMSDigest() string {
	s := p.SMS
	if len(s) > SMSLimit {
		s = s[:SMSLimit]
	}
	return s
}

// TopCells returns up to n grid cells sorted by descending risk.
// The payload's own slice is not reordered.
func (p *Payload) TopCells(n int) []GridCell {
	cells := make([]GridCell, len(p.GridCells))
	copy(cells, p.GridCells)
	for i := 1; i < len(cells); i++ {
		for j := i; j > 0 && cells[j].Risk > cells[j-1].Risk; j-- {
			cells[j], cells[j-1] = cells[j-1], cells[j]
		}
	}
	if len(cells) > n {
		cells = cells[:n]
	}
	return cells
}

// Cycle is the outcome of one acquisition cycle: what was fetched, which
// data path supplied it, and what the resolver decided.
type Cycle struct {
	At       time.Time `json:"at"`
	Path     DataPath  `json:"path"`
	Payload  *Payload  `json:"payload,omitempty"`
	Resolved Resolved  `json:"resolved"`
	Err      string    `json:"err,omitempty"`
}
