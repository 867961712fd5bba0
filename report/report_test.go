package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sentinelops/lewsboard/model"
)

func samplePayload() *model.Payload {
	return &model.Payload{
		District:      "Serra Verde",
		UpdatedAt:     "2025-03-10 14:32",
		Decision:      "YES",
		Confidence:    0.87,
		LeadTimeHours: 3,
		Summary:       "Saturated slopes above BR-101.",
		GridCells: []model.GridCell{
			{GridNo: "g1", Risk: 0.91, SoilSaturation: 0.8, RainfallMM: 120},
			{GridNo: "g2", Risk: 0.44},
		},
		SMS: "LEWS: evacuate zones A and B immediately.",
	}
}

func TestBuild(t *testing.T) {
	res := model.Resolved{Decision: model.DecisionYes, Confidence: 0.87, Source: model.SourceLive}
	text := Build(samplePayload(), res)

	for _, want := range []string{
		"SENTINEL-LEWS SITUATION REPORT",
		"District: Serra Verde",
		"Decision: YES",
		"Confidence: 0.87",
		"Lead Time (h): 3",
		"g1: risk 0.91",
		"LEWS: evacuate zones A and B immediately.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(text, "Source:") {
		t.Error("live report carries a source line")
	}

	res.Source = model.SourceSimulated
	if !strings.Contains(Build(samplePayload(), res), "Source: SIMULATED") {
		t.Error("override report missing source line")
	}
}

func TestBuildEmptyPayload(t *testing.T) {
	text := Build(&model.Payload{}, model.Resolved{Decision: model.DecisionNo})
	if !strings.Contains(text, "District: -") || !strings.Contains(text, "Lead Time (h): -") {
		t.Errorf("empty fields not dashed:\n%s", text)
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 32, 5, 0, time.UTC)
	name := Filename(now)
	if !strings.HasPrefix(name, "LEWS_Report_") || !strings.HasSuffix(name, ".txt") {
		t.Errorf("filename = %q", name)
	}
	if strings.ContainsAny(name, ": ") {
		t.Errorf("filename has unsafe characters: %q", name)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	if err := Save(path, "hello"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Errorf("read back %q, %v", data, err)
	}
}

func TestSyncBytesReducedOnVSAT(t *testing.T) {
	p := samplePayload()
	// Pad the full payload so the reduction is unambiguous.
	for i := 0; i < 50; i++ {
		p.GridCells = append(p.GridCells, model.GridCell{GridNo: "pad", Risk: 0.1})
	}
	full := SyncBytes(p, false)
	vsat := SyncBytes(p, true)
	if vsat >= full {
		t.Errorf("vsat bytes %d >= full bytes %d", vsat, full)
	}
}

func TestBuildSyncTopFive(t *testing.T) {
	p := samplePayload()
	for i := 0; i < 10; i++ {
		p.GridCells = append(p.GridCells, model.GridCell{GridNo: "pad", Risk: 0.1})
	}
	sp := BuildSync(p)
	if len(sp.TopCells) != 5 {
		t.Errorf("top cells = %d, want 5", len(sp.TopCells))
	}
	if sp.TopCells[0].GridNo != "g1" {
		t.Errorf("top cell = %s", sp.TopCells[0].GridNo)
	}
	if sp.SMS == "" || sp.Decision != "YES" {
		t.Errorf("sync payload = %+v", sp)
	}
}

func TestSyncSummary(t *testing.T) {
	s := SyncSummary(samplePayload(), true)
	if !strings.Contains(s, "VSAT") || !strings.Contains(s, "256kbps") {
		t.Errorf("summary = %q", s)
	}
	if !strings.Contains(SyncSummary(samplePayload(), false), "FULL") {
		t.Error("full summary missing mode")
	}
}
