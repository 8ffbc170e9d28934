package report

import (
	"context"
	"strings"
	"testing"

	"gospike/adapters/stats/engine"
	"gospike/domain/ue"
	"gospike/internal/testkit"
)

func sampleResult(t *testing.T) *ue.AnalysisResult {
	t.Helper()
	kit := testkit.New(5)
	set, err := kit.SIPTrialSet(2, 20, 6, 15, 0, 1000)
	if err != nil {
		t.Fatalf("SIPTrialSet: %v", err)
	}
	eng, err := engine.New(set, ue.Params{
		BinSize:           5,
		WinSize:           100,
		WinStep:           50,
		PatternHashes:     []ue.PatternHash{3},
		SignificanceLevel: 0.05,
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

// TestGenerator_Markdown verifies the report structure and content
func TestGenerator_Markdown(t *testing.T) {
	md, err := NewGenerator().Markdown(sampleResult(t))
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}

	for _, want := range []string{
		"# Unitary Events Analysis",
		"## Configuration",
		"## Pattern 0b11",
		"## Firing Rates",
		"Bin 5 ms, window 100 ms, step 50 ms",
		"trial_by_trial",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q", want)
		}
	}

	// SIP at 6 Hz injected coincidences should show significant windows.
	if strings.Contains(md, "No significant windows") {
		t.Error("SIP report claims no significant windows")
	}
}

// TestGenerator_HTML verifies markdown renders to HTML with tables intact
func TestGenerator_HTML(t *testing.T) {
	html, err := NewGenerator().HTML(sampleResult(t))
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}

	out := string(html)
	for _, want := range []string{"<h1", "<h2", "<table"} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

// TestGenerator_RejectsEmptyResult verifies the guard clauses
func TestGenerator_RejectsEmptyResult(t *testing.T) {
	g := NewGenerator()
	if _, err := g.Markdown(nil); err == nil {
		t.Error("Nil result should be rejected")
	}
	if _, err := g.Markdown(&ue.AnalysisResult{}); err == nil {
		t.Error("Empty result should be rejected")
	}
}
