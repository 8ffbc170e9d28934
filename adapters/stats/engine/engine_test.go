package engine

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"gospike/domain/core"
	"gospike/domain/spikes"
	"gospike/domain/ue"
	"gospike/internal/testkit"
)

func buildSet(t *testing.T, times [][][]core.Millis, tStart, tStop core.Millis) *spikes.TrialSet {
	t.Helper()
	trials := make([]spikes.Trial, len(times))
	for i, trial := range times {
		trains := make([]spikes.SpikeTrain, len(trial))
		for j, neuron := range trial {
			train, err := spikes.NewSpikeTrain(neuron, tStart, tStop)
			if err != nil {
				t.Fatalf("NewSpikeTrain: %v", err)
			}
			trains[j] = train
		}
		trials[i] = spikes.Trial{Trains: trains}
	}
	set, err := spikes.NewTrialSet(trials)
	if err != nil {
		t.Fatalf("NewTrialSet: %v", err)
	}
	return set
}

func defaultParams() ue.Params {
	return ue.Params{
		BinSize:           5,
		WinSize:           100,
		WinStep:           10,
		PatternHashes:     []ue.PatternHash{3},
		SignificanceLevel: 0.05,
	}
}

// TestEngine_WindowCount pins the sequence length
// floor((span-win)/step)+1 and the window start times
func TestEngine_WindowCount(t *testing.T) {
	set := buildSet(t, [][][]core.Millis{{nil, nil}}, 0, 2000)
	eng, err := New(set, defaultParams())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if eng.NumWindows() != 191 {
		t.Fatalf("NumWindows = %d, want 191", eng.NumWindows())
	}

	first := eng.Window(0)
	last := eng.Window(190)
	if first.Start != 0 {
		t.Errorf("First window start = %v, want 0", first.Start)
	}
	if last.Start != 1900 {
		t.Errorf("Last window start = %v, want 1900", last.Start)
	}
}

// TestEngine_DeterministicCoincidences runs one window over hand-placed
// spikes and checks every field of the result
func TestEngine_DeterministicCoincidences(t *testing.T) {
	// span [0,100), bin 5 -> 20 bins, one window covering everything.
	// Coincidences (both neurons in the same bin): bins 2 and 10.
	set := buildSet(t, [][][]core.Millis{{
		{12, 30, 50}, // bins 2, 6, 10
		{13, 52},     // bins 2, 10
	}}, 0, 100)

	params := ue.Params{
		BinSize:           5,
		WinSize:           100,
		WinStep:           100,
		PatternHashes:     []ue.PatternHash{3},
		SignificanceLevel: 0.05,
	}
	eng, err := New(set, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if eng.NumWindows() != 1 {
		t.Fatalf("NumWindows = %d, want 1", eng.NumWindows())
	}

	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := result.NEmp[0][0]; got != 2 {
		t.Errorf("n_emp = %g, want 2", got)
	}
	// (3/20)*(2/20)*20 = 0.3
	if got := result.NExp[0][0]; math.Abs(got-0.3) > 1e-12 {
		t.Errorf("n_exp = %g, want 0.3", got)
	}
	if want := JointSurprise(2, 0.3); result.Js[0][0] != want {
		t.Errorf("Js = %g, want %g", result.Js[0][0], want)
	}
	if got := result.Indices["trial_0"]; !reflect.DeepEqual(got, []int{2, 10}) {
		t.Errorf("indices trial_0 = %v, want [2 10]", got)
	}
	// 3 and 2 occupied bins over 100 ms
	if math.Abs(result.RateAvg[0][0]-30) > 1e-12 || math.Abs(result.RateAvg[0][1]-20) > 1e-12 {
		t.Errorf("rate_avg = %v, want [30 20]", result.RateAvg[0])
	}
}

// TestDetectPattern_FullPatternMatching verifies inactive neurons must be
// silent for a bin to count
func TestDetectPattern_FullPatternMatching(t *testing.T) {
	set := buildSet(t, [][][]core.Millis{{
		{12, 30, 50},
		{13, 52},
	}}, 0, 100)
	eng, err := New(set, ue.Params{
		BinSize: 5, WinSize: 100, WinStep: 100,
		PatternHashes: []ue.PatternHash{2}, // neuron 0 fires, neuron 1 silent
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	det := DetectPattern(eng.matrix, []bool{true, false}, 0, 20)
	// Neuron 0 alone only in bin 6; bins 2 and 10 fail the silence requirement.
	if det.NEmp != 1 {
		t.Errorf("n_emp = %g, want 1", det.NEmp)
	}
	if !reflect.DeepEqual(det.TrialIndices[0], []int{6}) {
		t.Errorf("Matched bins = %v, want [6]", det.TrialIndices[0])
	}
}

// TestEngine_SilentNeuron verifies the degenerate all-zero case stays finite
func TestEngine_SilentNeuron(t *testing.T) {
	set := buildSet(t, [][][]core.Millis{{
		{12, 30},
		nil, // never fires
	}}, 0, 2000)

	eng, err := New(set, defaultParams())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for w := range result.Js {
		if result.NEmp[w][0] != 0 || result.NExp[w][0] != 0 {
			t.Fatalf("Window %d: counts (%g, %g), want (0, 0)",
				w, result.NEmp[w][0], result.NExp[w][0])
		}
		if result.Js[w][0] != 0 {
			t.Fatalf("Window %d: Js = %g, want 0", w, result.Js[w][0])
		}
		if math.IsNaN(result.Js[w][0]) {
			t.Fatalf("Window %d: Js is NaN", w)
		}
	}
	if len(result.Indices["trial_0"]) != 0 {
		t.Errorf("No pattern should match, got indices %v", result.Indices["trial_0"])
	}
}

// TestEngine_IndependentPoissonStaysQuiet runs the null case: independent
// neurons should produce few significant windows and sane rate estimates
func TestEngine_IndependentPoissonStaysQuiet(t *testing.T) {
	kit := testkit.New(42)
	set, err := kit.IndependentTrialSet([]float64{20, 50}, 20, 0, 2000)
	if err != nil {
		t.Fatalf("IndependentTrialSet: %v", err)
	}

	eng, err := New(set, defaultParams())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.NumWindows() != 191 {
		t.Fatalf("NumWindows = %d, want 191", result.NumWindows())
	}

	// Rate recovery. Binning collapses multiple spikes per bin, so the
	// estimate sits a little under the generating rate at 50 Hz.
	mean0, mean1 := 0.0, 0.0
	for w := range result.RateAvg {
		mean0 += result.RateAvg[w][0]
		mean1 += result.RateAvg[w][1]
	}
	mean0 /= float64(result.NumWindows())
	mean1 /= float64(result.NumWindows())
	if mean0 < 14 || mean0 > 26 {
		t.Errorf("Neuron 0 mean rate = %.2f Hz, want near 20", mean0)
	}
	if mean1 < 35 || mean1 > 55 {
		t.Errorf("Neuron 1 mean rate = %.2f Hz, want near 50", mean1)
	}

	// False positive control: at alpha=0.05 only a small fraction of the
	// 191 windows should cross the threshold.
	threshold, _ := SurpriseThreshold(0.05)
	significant := result.SignificantWindows(0, threshold)
	if len(significant) > result.NumWindows()*3/10 {
		t.Errorf("Independent data produced %d/%d significant windows",
			len(significant), result.NumWindows())
	}
}

// TestEngine_SIPPositiveControl verifies injected coincidences are detected
func TestEngine_SIPPositiveControl(t *testing.T) {
	kit := testkit.New(7)
	set, err := kit.SIPTrialSet(2, 20, 5, 30, 0, 2000)
	if err != nil {
		t.Fatalf("SIPTrialSet: %v", err)
	}

	eng, err := New(set, defaultParams())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	threshold, _ := SurpriseThreshold(0.05)
	significant := result.SignificantWindows(0, threshold)
	if len(significant) < result.NumWindows()/2 {
		t.Errorf("SIP with 5 Hz injected coincidences: only %d/%d significant windows",
			len(significant), result.NumWindows())
	}

	// The matched bins must be reported for replotting.
	total := 0
	for _, idx := range result.Indices {
		total += len(idx)
	}
	if total == 0 {
		t.Error("No coincidence indices reported despite injected synchrony")
	}
}

// TestEngine_ParallelMatchesSequential verifies worker count never changes
// the result
func TestEngine_ParallelMatchesSequential(t *testing.T) {
	kit := testkit.New(99)
	set, err := kit.SIPTrialSet(3, 25, 3, 10, 0, 1000)
	if err != nil {
		t.Fatalf("SIPTrialSet: %v", err)
	}

	params := defaultParams()
	params.PatternHashes = []ue.PatternHash{7, 3}

	eng, err := New(set, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sequential, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	parallel, err := eng.RunParallel(context.Background(), 4)
	if err != nil {
		t.Fatalf("RunParallel: %v", err)
	}

	if !reflect.DeepEqual(sequential, parallel) {
		t.Error("Parallel result differs from sequential result")
	}
}

// TestEngine_Iterator verifies lazy traversal and restart
func TestEngine_Iterator(t *testing.T) {
	set := buildSet(t, [][][]core.Millis{{nil, nil}}, 0, 500)
	eng, err := New(set, defaultParams())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	it := eng.Iterator()
	count := 0
	for {
		res, ok := it.Next()
		if !ok {
			break
		}
		if res.Index != count {
			t.Fatalf("Window %d delivered out of order (index %d)", count, res.Index)
		}
		count++
	}
	if count != eng.NumWindows() {
		t.Fatalf("Iterator yielded %d windows, want %d", count, eng.NumWindows())
	}
	if _, ok := it.Next(); ok {
		t.Error("Exhausted iterator should keep returning ok=false")
	}

	it.Reset()
	if res, ok := it.Next(); !ok || res.Index != 0 {
		t.Error("Reset should rewind to window 0")
	}
}

// TestEngine_RejectsBadConfig verifies every geometry error surfaces in New,
// before any window is processed
func TestEngine_RejectsBadConfig(t *testing.T) {
	set := buildSet(t, [][][]core.Millis{{nil, nil}}, 0, 2000)

	cases := []struct {
		name   string
		mutate func(*ue.Params)
		want   error
	}{
		{"zero bin", func(p *ue.Params) { p.BinSize = 0 }, core.ErrInvalidBinSize},
		{"window misaligned", func(p *ue.Params) { p.WinSize = 103 }, core.ErrWindowNotAligned},
		{"step misaligned", func(p *ue.Params) { p.WinStep = 7 }, core.ErrStepNotAligned},
		{"span misaligned", func(p *ue.Params) { p.BinSize = 3; p.WinSize = 99; p.WinStep = 9 }, core.ErrSpanNotAligned},
		{"window longer than span", func(p *ue.Params) { p.WinSize = 2500 }, core.ErrSpanTooShort},
		{"no patterns", func(p *ue.Params) { p.PatternHashes = nil }, core.ErrNoPatterns},
		{"hash out of range", func(p *ue.Params) { p.PatternHashes = []ue.PatternHash{4} }, core.ErrHashOutOfRange},
		{"bad method", func(p *ue.Params) { p.Method = "bogus" }, core.ErrUnknownMethod},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := defaultParams()
			tc.mutate(&params)
			if _, err := New(set, params); !errors.Is(err, tc.want) {
				t.Errorf("New = %v, want %v", err, tc.want)
			}
		})
	}
}

// TestEngine_DefaultsSignificance verifies the unset level resolves to 0.05
func TestEngine_DefaultsSignificance(t *testing.T) {
	set := buildSet(t, [][][]core.Millis{{nil, nil}}, 0, 2000)
	params := defaultParams()
	params.SignificanceLevel = 0

	eng, err := New(set, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if eng.Params().SignificanceLevel != ue.DefaultSignificanceLevel {
		t.Errorf("Significance defaulted to %g, want %g",
			eng.Params().SignificanceLevel, ue.DefaultSignificanceLevel)
	}
}

// TestEngine_RunHonorsContext verifies cancellation stops the slide
func TestEngine_RunHonorsContext(t *testing.T) {
	set := buildSet(t, [][][]core.Millis{{nil, nil}}, 0, 2000)
	eng, err := New(set, defaultParams())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := eng.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run with cancelled context = %v, want context.Canceled", err)
	}
	if _, err := eng.RunParallel(ctx, 4); err == nil {
		t.Error("RunParallel with cancelled context should fail")
	}
}

// TestAnalysisResult_ContractKeys pins the JSON surface consumed downstream
func TestAnalysisResult_ContractKeys(t *testing.T) {
	set := buildSet(t, [][][]core.Millis{{
		{12, 30, 50},
		{13, 52},
	}}, 0, 100)
	eng, err := New(set, ue.Params{
		BinSize: 5, WinSize: 100, WinStep: 100,
		PatternHashes: []ue.PatternHash{3},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	for _, key := range []string{"Js", "n_emp", "n_exp", "rate_avg", "indices", "input_parameters"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Result JSON missing key %q", key)
		}
	}

	var input map[string]json.RawMessage
	if err := json.Unmarshal(decoded["input_parameters"], &input); err != nil {
		t.Fatalf("Unmarshal input_parameters: %v", err)
	}
	for _, key := range []string{"bin_size", "win_size", "win_step", "pattern_hash", "significance_level", "t_start", "t_stop"} {
		if _, ok := input[key]; !ok {
			t.Errorf("input_parameters missing key %q", key)
		}
	}
}
