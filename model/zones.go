package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ZoneReading is one element of the flat zone-list feed variant. The two
// feed schemas come from independently evolved dashboard builds and are not
// interchangeable; both are accepted by DecodePayload.
type ZoneReading struct {
	ID            string  `json:"id"`
	Risk          float64 `json:"risk"`
	Probability   float64 `json:"probability"`
	LeadTimeHours float64 `json:"lead_time_hours"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	RadiusM       float64 `json:"radius_m"`
	Timestamp     string  `json:"timestamp"`
	Sender        string  `json:"sender"`
}

// evacuateRisk is the risk band above which a zone alone forces a YES
// decision when normalizing the zone-list feed.
const evacuateRisk = 0.70

// DecodePayload parses a feed body in either schema variant and returns a
// normalized Payload. A truncated or malformed body (e.g. a file caught
// mid-write) is a parse error, never a silently accepted partial payload.
func DecodePayload(data []byte) (*Payload, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty feed body")
	}

	if trimmed[0] == '[' {
		var zones []ZoneReading
		if err := json.Unmarshal(data, &zones); err != nil {
			return nil, fmt.Errorf("zone feed: %w", err)
		}
		return fromZones(zones), nil
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("payload feed: %w", err)
	}
	if p.Decision == "" {
		return nil, fmt.Errorf("payload feed: missing decision field")
	}
	return &p, nil
}

// fromZones folds the zone-list variant into the payload shape: the district
// decision is YES iff any zone sits in the evacuate risk band, confidence is
// the highest zone probability, lead time the smallest zone lead time.
func fromZones(zones []ZoneReading) *Payload {
	p := &Payload{Decision: string(DecisionNo)}

	sorted := make([]ZoneReading, len(zones))
	copy(sorted, zones)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Risk > sorted[j].Risk })

	for _, z := range sorted {
		if z.Risk >= evacuateRisk {
			p.Decision = string(DecisionYes)
		}
		if prob := Clamp01(z.Probability); prob > p.Confidence {
			p.Confidence = prob
		}
		if z.LeadTimeHours > 0 && (p.LeadTimeHours == 0 || z.LeadTimeHours < p.LeadTimeHours) {
			p.LeadTimeHours = z.LeadTimeHours
		}
		if p.UpdatedAt == "" && z.Timestamp != "" {
			p.UpdatedAt = z.Timestamp
		}
		if p.District == "" && z.Sender != "" {
			p.District = z.Sender
		}
		p.GridCells = append(p.GridCells, GridCell{
			GridNo: z.ID,
			Lat:    z.Lat,
			Lon:    z.Lon,
			Risk:   Clamp01(z.Risk),
		})
	}
	return p
}
