package engine

import (
	"gospike/adapters/stats/binning"
	"gospike/domain/ue"
)

// windowCounts collects per-trial per-neuron occupied-bin counts inside one
// analysis window. This is the only statistic the estimator needs from the
// binned matrix.
func windowCounts(m *binning.Matrix, startBin, winBins int) [][]int {
	counts := make([][]int, m.NumTrials())
	for trial := range counts {
		counts[trial] = make([]int, m.NumNeurons())
		for neuron := range counts[trial] {
			counts[trial][neuron] = m.CountInRange(trial, neuron, startBin, winBins)
		}
	}
	return counts
}

// ExpectedCount computes the pattern count expected under independence
// across neurons and trials. Each neuron's activation probability per bin is
// its occupied-bin fraction in the window; the pattern probability is the
// product of those probabilities for active neurons and their complements
// for inactive ones.
//
// Probabilities of exactly 0 or 1 are legitimate inputs (silent or saturated
// neurons); the products then collapse to 0 without producing NaN, and a
// zero expected count is a valid result.
func ExpectedCount(pattern []bool, counts [][]int, winBins int, method ue.EstimationMethod) float64 {
	if winBins <= 0 || len(counts) == 0 {
		return 0
	}

	switch method {
	case ue.MethodTrialAverage:
		// Pool counts across trials, then scale one pattern probability by
		// the total number of bins analyzed.
		numTrials := len(counts)
		prob := 1.0
		for neuron, wantActive := range pattern {
			total := 0
			for trial := range counts {
				total += counts[trial][neuron]
			}
			p := float64(total) / float64(numTrials*winBins)
			if wantActive {
				prob *= p
			} else {
				prob *= 1 - p
			}
		}
		return prob * float64(numTrials*winBins)

	default: // ue.MethodTrialByTrial
		nExp := 0.0
		for trial := range counts {
			prob := 1.0
			for neuron, wantActive := range pattern {
				p := float64(counts[trial][neuron]) / float64(winBins)
				if wantActive {
					prob *= p
				} else {
					prob *= 1 - p
				}
			}
			nExp += prob * float64(winBins)
		}
		return nExp
	}
}

// averageRates converts window counts into trial-averaged firing rates per
// neuron, in Hz.
func averageRates(counts [][]int, winSeconds float64) []float64 {
	if len(counts) == 0 || winSeconds <= 0 {
		return nil
	}
	numTrials := len(counts)
	rates := make([]float64, len(counts[0]))
	for neuron := range rates {
		total := 0
		for trial := range counts {
			total += counts[trial][neuron]
		}
		rates[neuron] = float64(total) / (float64(numTrials) * winSeconds)
	}
	return rates
}
