package excel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spikes.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// TestDataReader_CSV verifies the trial,neuron,time_ms layout round-trips
// into a dense trial set
func TestDataReader_CSV(t *testing.T) {
	path := writeCSV(t, "trial,neuron,time_ms\n"+
		"0,0,12.5\n"+
		"0,0,80\n"+
		"0,1,13\n"+
		"1,0,40\n") // trial 1 neuron 1 has no rows: silent train

	set, err := NewDataReader(path).ReadTrialSet(0, 100)
	if err != nil {
		t.Fatalf("ReadTrialSet: %v", err)
	}

	if set.NumTrials() != 2 || set.NumNeurons != 2 {
		t.Fatalf("Shape = %d trials x %d neurons, want 2x2", set.NumTrials(), set.NumNeurons)
	}
	if n := set.Train(0, 0).NumSpikes(); n != 2 {
		t.Errorf("Trial 0 neuron 0 spikes = %d, want 2", n)
	}
	if n := set.Train(1, 1).NumSpikes(); n != 0 {
		t.Errorf("Unlisted neuron should be silent, got %d spikes", n)
	}
	if set.Train(0, 0).Times[0] != 12.5 {
		t.Errorf("First spike = %v, want 12.5", set.Train(0, 0).Times[0])
	}
}

// TestDataReader_Excel verifies the xlsx path through Sheet1
func TestDataReader_Excel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spikes.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"trial", "neuron", "time_ms"},
		{0, 0, 10.0},
		{0, 1, 55.5},
		{1, 0, 90.0},
		{1, 1, 20.0},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	set, err := NewDataReader(path).ReadTrialSet(0, 100)
	if err != nil {
		t.Fatalf("ReadTrialSet: %v", err)
	}
	if set.NumTrials() != 2 || set.NumNeurons != 2 {
		t.Fatalf("Shape = %d trials x %d neurons, want 2x2", set.NumTrials(), set.NumNeurons)
	}
	if ts := set.Train(0, 1).Times; len(ts) != 1 || ts[0] != 55.5 {
		t.Errorf("Trial 0 neuron 1 times = %v, want [55.5]", ts)
	}
}

// TestDataReader_Errors verifies malformed input surfaces clearly
func TestDataReader_Errors(t *testing.T) {
	if _, err := NewDataReader("/nonexistent/spikes.csv").ReadTrialSet(0, 100); err == nil {
		t.Error("Missing file should fail")
	}

	cases := []struct {
		name    string
		content string
	}{
		{"header only", "trial,neuron,time_ms\n"},
		{"missing column", "trial,neuron,time_ms\n0,0\n"},
		{"bad trial index", "trial,neuron,time_ms\nx,0,10\n"},
		{"negative neuron", "trial,neuron,time_ms\n0,-1,10\n"},
		{"bad timestamp", "trial,neuron,time_ms\n0,0,abc\n"},
		{"spike out of span", "trial,neuron,time_ms\n0,0,500\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeCSV(t, tc.content)
			if _, err := NewDataReader(path).ReadTrialSet(0, 100); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
