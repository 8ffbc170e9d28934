package engine

import (
	"gospike/adapters/stats/binning"
)

// Detection is the outcome of coincidence counting for one pattern in one
// analysis window.
type Detection struct {
	// NEmp is the empirical pattern count summed across trials.
	NEmp float64
	// TrialIndices holds, per trial, the global bin indices that matched.
	TrialIndices [][]int
}

// DetectPattern counts, per trial, the bins inside [startBin, startBin+winBins)
// whose activation vector equals the decoded pattern, and records their
// global bin indices. Matching is full-pattern: neurons the pattern marks
// active must fire AND neurons it marks inactive must stay silent in the bin.
func DetectPattern(m *binning.Matrix, pattern []bool, startBin, winBins int) Detection {
	det := Detection{TrialIndices: make([][]int, m.NumTrials())}

	for trial := 0; trial < m.NumTrials(); trial++ {
		for b := startBin; b < startBin+winBins; b++ {
			if matchesPattern(m, pattern, trial, b) {
				det.NEmp++
				det.TrialIndices[trial] = append(det.TrialIndices[trial], b)
			}
		}
	}
	return det
}

func matchesPattern(m *binning.Matrix, pattern []bool, trial, bin int) bool {
	for neuron, wantActive := range pattern {
		if m.Active(trial, neuron, bin) != wantActive {
			return false
		}
	}
	return true
}
