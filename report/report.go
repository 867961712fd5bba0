// Package report formats the plain-text situation report and the compact
// VSAT sync payload. Pure formatting over already-resolved state; nothing
// here feeds back into the engine.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"

	"github.com/sentinelops/lewsboard/model"
)

// vsatLinkBps is the planning bandwidth for sync-time estimates.
const vsatLinkBps = 256000

// Build renders the situation report for the current payload and resolved
// decision.
func Build(p *model.Payload, res model.Resolved) string {
	var sb strings.Builder

	sb.WriteString("SENTINEL-LEWS SITUATION REPORT\n")
	sb.WriteString("--------------------------------\n")
	fmt.Fprintf(&sb, "District: %s\n", orDash(p.District))
	fmt.Fprintf(&sb, "Updated:  %s\n", orDash(p.UpdatedAt))
	fmt.Fprintf(&sb, "Decision: %s\n", res.Decision)
	fmt.Fprintf(&sb, "Confidence: %.2f\n", res.Confidence)
	if res.Source != model.SourceLive {
		fmt.Fprintf(&sb, "Source: %s\n", res.Source)
	}
	if p.LeadTimeHours > 0 {
		fmt.Fprintf(&sb, "Lead Time (h): %g\n", p.LeadTimeHours)
	} else {
		sb.WriteString("Lead Time (h): -\n")
	}
	sb.WriteString("\nSummary:\n")
	sb.WriteString(orDash(p.Summary))
	sb.WriteString("\n\n")

	sb.WriteString("Grid Cells (Top 10 Risk):\n")
	for _, g := range p.TopCells(10) {
		fmt.Fprintf(&sb, "- %s: risk %.2f | soil %.2f | rain %.1f | vib %g @ %g,%g\n",
			g.GridNo, g.Risk, g.SoilSaturation, g.RainfallMM, g.Vibration, g.Lat, g.Lon)
	}

	sb.WriteString("\nSMS:\n")
	sb.WriteString(p.SMSDigest())
	sb.WriteString("\n")
	return sb.String()
}

// Filename returns a timestamped report file name.
func Filename(now time.Time) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(now.UTC().Format(time.RFC3339))
	return fmt.Sprintf("LEWS_Report_%s.txt", stamp)
}

// Save writes the report atomically so a pulled USB stick never holds a
// torn file.
func Save(path, text string) error {
	return atomic.WriteFile(path, strings.NewReader(text))
}

// SyncPayload is the reduced payload synced over a constrained link: the
// decision banner fields, the five riskiest cells, and the SMS digest.
type SyncPayload struct {
	District      string           `json:"district"`
	UpdatedAt     string           `json:"updated_at_local"`
	Decision      string           `json:"decision"`
	Confidence    float64          `json:"confidence"`
	LeadTimeHours float64          `json:"lead_time_hours"`
	TopCells      []model.GridCell `json:"grid_cells_top5"`
	SMS           string           `json:"sms"`
}

// BuildSync reduces a payload for constrained-link sync.
func BuildSync(p *model.Payload) SyncPayload {
	return SyncPayload{
		District:      p.District,
		UpdatedAt:     p.UpdatedAt,
		Decision:      p.Decision,
		Confidence:    p.Confidence,
		LeadTimeHours: p.LeadTimeHours,
		TopCells:      p.TopCells(5),
		SMS:           p.SMSDigest(),
	}
}

// SyncBytes returns the encoded sync size: the reduced payload in VSAT
// mode, the full payload otherwise.
func SyncBytes(p *model.Payload, vsat bool) int {
	var (
		data []byte
		err  error
	)
	if vsat {
		data, err = json.Marshal(BuildSync(p))
	} else {
		data, err = json.Marshal(p)
	}
	if err != nil {
		return 0
	}
	return len(data)
}

// SyncSummary renders a human line for the ops console, e.g.
// "1.2 kB (VSAT), 0.04 sec @ 256kbps".
func SyncSummary(p *model.Payload, vsat bool) string {
	n := SyncBytes(p, vsat)
	mode := "FULL"
	if vsat {
		mode = "VSAT"
	}
	secs := float64(n*8) / vsatLinkBps
	return fmt.Sprintf("%s (%s), %.2f sec @ 256kbps", humanize.Bytes(uint64(n)), mode, secs)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
