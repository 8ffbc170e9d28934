package ue

import (
	"fmt"

	"gospike/domain/core"
)

// EstimationMethod selects how per-neuron activation probabilities enter the
// independence null model.
type EstimationMethod string

const (
	// MethodTrialByTrial estimates probabilities per trial and sums the
	// per-trial expectations. Default, matches the reference method.
	MethodTrialByTrial EstimationMethod = "trial_by_trial"
	// MethodTrialAverage pools spike counts across trials before forming
	// probabilities.
	MethodTrialAverage EstimationMethod = "trial_average"
)

// Params carries the full analysis configuration. All geometry is in
// milliseconds on the trial time axis.
type Params struct {
	BinSize           core.Millis      `json:"bin_size"`
	WinSize           core.Millis      `json:"win_size"`
	WinStep           core.Millis      `json:"win_step"`
	PatternHashes     []PatternHash    `json:"pattern_hash"`
	SignificanceLevel float64          `json:"significance_level"`
	Method            EstimationMethod `json:"method,omitempty"`
}

// DefaultSignificanceLevel is applied when a request leaves the level unset.
const DefaultSignificanceLevel = 0.05

// Validate performs the eager, fail-fast configuration checks for a trial
// set with numNeurons neurons over the given span. No window is processed
// unless every check passes.
func (p Params) Validate(numNeurons int, span core.Millis) error {
	if p.BinSize <= 0 {
		return core.NewConfigError(core.ErrInvalidBinSize, fmt.Sprintf("got %v", p.BinSize))
	}
	if p.WinSize <= 0 {
		return core.NewConfigError(core.ErrInvalidWindowSize, fmt.Sprintf("got %v", p.WinSize))
	}
	if p.WinStep <= 0 {
		return core.NewConfigError(core.ErrInvalidWindowStep, fmt.Sprintf("got %v", p.WinStep))
	}
	if !p.WinSize.DivisibleBy(p.BinSize) {
		return core.NewConfigError(core.ErrWindowNotAligned,
			fmt.Sprintf("win_size %v, bin_size %v", p.WinSize, p.BinSize))
	}
	if !p.WinStep.DivisibleBy(p.BinSize) {
		return core.NewConfigError(core.ErrStepNotAligned,
			fmt.Sprintf("win_step %v, bin_size %v", p.WinStep, p.BinSize))
	}
	if !span.DivisibleBy(p.BinSize) {
		return core.NewConfigError(core.ErrSpanNotAligned,
			fmt.Sprintf("span %v, bin_size %v", span, p.BinSize))
	}
	if span < p.WinSize {
		return core.NewConfigError(core.ErrSpanTooShort,
			fmt.Sprintf("span %v, win_size %v", span, p.WinSize))
	}
	if len(p.PatternHashes) == 0 {
		return core.ErrNoPatterns
	}
	for _, h := range p.PatternHashes {
		if !h.Valid(numNeurons) {
			return core.NewConfigError(core.ErrHashOutOfRange,
				fmt.Sprintf("hash %d with %d neurons", h, numNeurons))
		}
	}
	if p.SignificanceLevel <= 0 || p.SignificanceLevel >= 1 {
		return core.NewConfigError(core.ErrInvalidSignificance,
			fmt.Sprintf("got %g", p.SignificanceLevel))
	}
	switch p.Method {
	case "", MethodTrialByTrial, MethodTrialAverage:
	default:
		return core.NewConfigError(core.ErrUnknownMethod, string(p.Method))
	}
	return nil
}

// EffectiveMethod resolves the default estimation method.
func (p Params) EffectiveMethod() EstimationMethod {
	if p.Method == "" {
		return MethodTrialByTrial
	}
	return p.Method
}

// InputParameters echoes the configuration into the result record so that
// downstream consumers (plotters, reports) need no other state.
type InputParameters struct {
	BinSize           core.Millis      `json:"bin_size"`
	WinSize           core.Millis      `json:"win_size"`
	WinStep           core.Millis      `json:"win_step"`
	PatternHashes     []PatternHash    `json:"pattern_hash"`
	SignificanceLevel float64          `json:"significance_level"`
	Method            EstimationMethod `json:"method"`
	TStart            core.Millis      `json:"t_start"`
	TStop             core.Millis      `json:"t_stop"`
	NumNeurons        int              `json:"num_neurons"`
	NumTrials         int              `json:"num_trials"`
}

// WindowResult is the outcome of one analysis window. Computed fresh per
// run, never mutated after creation.
type WindowResult struct {
	// Index is the window position in the ordered sequence.
	Index int `json:"index"`
	// Start is the window's left edge; the window covers [Start, Start+WinSize).
	Start core.Millis `json:"start"`
	// Js, NEmp, NExp are indexed like Params.PatternHashes.
	Js   []float64 `json:"Js"`
	NEmp []float64 `json:"n_emp"`
	NExp []float64 `json:"n_exp"`
	// RateAvg is the trial-averaged firing rate per neuron in Hz.
	RateAvg []float64 `json:"rate_avg"`
	// Indices holds, per trial, the global bin indices whose activation
	// vector matched any requested pattern in this window.
	Indices [][]int `json:"indices"`
}

// AnalysisResult is the sole contract with downstream consumers. The JSON
// keys (Js, n_emp, n_exp, rate_avg, indices, input_parameters) are fixed.
type AnalysisResult struct {
	// Js[w][p]: joint surprise of pattern p in window w.
	Js [][]float64 `json:"Js"`
	// NEmp[w][p]: empirical coincidence count.
	NEmp [][]float64 `json:"n_emp"`
	// NExp[w][p]: expected count under independence.
	NExp [][]float64 `json:"n_exp"`
	// RateAvg[w][n]: trial-averaged firing rate of neuron n in window w, Hz.
	RateAvg [][]float64 `json:"rate_avg"`
	// Indices maps "trial_<i>" to the sorted, deduplicated global bin
	// indices where a requested pattern occurred in any analyzed window.
	Indices map[string][]int `json:"indices"`
	// Input echoes the run configuration.
	Input InputParameters `json:"input_parameters"`
}

// NumWindows returns the window count of the result sequence.
func (r *AnalysisResult) NumWindows() int {
	return len(r.Js)
}

// WindowStart returns the left edge of window w.
func (r *AnalysisResult) WindowStart(w int) core.Millis {
	return r.Input.TStart + core.Millis(w)*r.Input.WinStep
}

// SignificantWindows returns the indices of windows whose surprise for
// pattern p reaches or exceeds the threshold.
func (r *AnalysisResult) SignificantWindows(p int, threshold float64) []int {
	var out []int
	for w := range r.Js {
		if p < len(r.Js[w]) && r.Js[w][p] >= threshold {
			out = append(out, w)
		}
	}
	return out
}
