package binning

import (
	"fmt"
	"math"

	"gospike/domain/core"
	"gospike/domain/spikes"
)

// Matrix is the binned, binary view of a TrialSet: entry (trial, neuron, bin)
// records whether the neuron fired at least once in that bin. Multiple spikes
// in one bin collapse to presence — coincidences are defined at bin
// resolution, not exact-time resolution, and sub-bin timing is deliberately
// discarded. Built once per analysis and treated as read-only thereafter.
type Matrix struct {
	data    [][][]bool // [trial][neuron][bin]
	binSize core.Millis
	tStart  core.Millis
	numBins int
}

// Discretize bins a TrialSet at the given bin width. A spike at time t lands
// in bin floor((t − t_start)/bin_size); spikes exactly at t_stop fall outside
// the half-open span and are excluded. Fails if bin_size is non-positive or
// does not evenly divide the trial span.
func Discretize(set *spikes.TrialSet, binSize core.Millis) (*Matrix, error) {
	if binSize <= 0 {
		return nil, core.NewConfigError(core.ErrInvalidBinSize, fmt.Sprintf("got %v", binSize))
	}
	span := set.Span()
	if !span.DivisibleBy(binSize) {
		return nil, core.NewConfigError(core.ErrSpanNotAligned,
			fmt.Sprintf("span %v, bin_size %v", span, binSize))
	}
	numBins := span.DivideBy(binSize)

	data := make([][][]bool, set.NumTrials())
	for i := range data {
		data[i] = make([][]bool, set.NumNeurons)
		for j := range data[i] {
			bins := make([]bool, numBins)
			for _, t := range set.Train(i, j).Times {
				b := int(math.Floor(float64((t - set.TStart) / binSize)))
				if b < 0 || b >= numBins {
					// Half-open window: t == t_stop maps to numBins and is dropped.
					continue
				}
				bins[b] = true
			}
			data[i][j] = bins
		}
	}

	return &Matrix{
		data:    data,
		binSize: binSize,
		tStart:  set.TStart,
		numBins: numBins,
	}, nil
}

// NumTrials returns the trial count
func (m *Matrix) NumTrials() int { return len(m.data) }

// NumNeurons returns the neuron count
func (m *Matrix) NumNeurons() int {
	if len(m.data) == 0 {
		return 0
	}
	return len(m.data[0])
}

// NumBins returns the bin count per trial/neuron
func (m *Matrix) NumBins() int { return m.numBins }

// BinSize returns the bin width
func (m *Matrix) BinSize() core.Millis { return m.binSize }

// Active reports whether the neuron fired in the given bin
func (m *Matrix) Active(trial, neuron, bin int) bool {
	return m.data[trial][neuron][bin]
}

// CountInRange counts occupied bins for one neuron over [startBin, startBin+n)
func (m *Matrix) CountInRange(trial, neuron, startBin, n int) int {
	count := 0
	row := m.data[trial][neuron]
	for b := startBin; b < startBin+n; b++ {
		if row[b] {
			count++
		}
	}
	return count
}

// BinTime returns the left edge of a bin on the trial time axis
func (m *Matrix) BinTime(bin int) core.Millis {
	return m.tStart + core.Millis(bin)*m.binSize
}
