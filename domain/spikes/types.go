package spikes

import (
	"fmt"
	"sort"

	"gospike/domain/core"
)

// SpikeTrain holds the ordered spike timestamps of one neuron in one trial,
// together with the trial's half-open recording span [TStart, TStop).
// Trains are immutable once recorded: the constructor copies and sorts the
// input and nothing mutates Times afterwards.
type SpikeTrain struct {
	Times  []core.Millis `json:"times"`
	TStart core.Millis   `json:"t_start"`
	TStop  core.Millis   `json:"t_stop"`
}

// NewSpikeTrain validates and records a spike train. Timestamps may arrive
// unsorted; they are sorted into recording order. A timestamp equal to TStop
// is accepted here (the binning stage excludes it, half-open convention), but
// anything outside [TStart, TStop] is an input error.
func NewSpikeTrain(times []core.Millis, tStart, tStop core.Millis) (SpikeTrain, error) {
	if tStop <= tStart {
		return SpikeTrain{}, fmt.Errorf("t_stop (%v) must be greater than t_start (%v)", tStop, tStart)
	}

	recorded := make([]core.Millis, len(times))
	copy(recorded, times)
	sort.Slice(recorded, func(i, j int) bool { return recorded[i] < recorded[j] })

	for _, t := range recorded {
		if t < tStart || t > tStop {
			return SpikeTrain{}, fmt.Errorf("%w: spike at %v outside [%v, %v]",
				core.ErrSpikeOutOfRange, t, tStart, tStop)
		}
	}

	return SpikeTrain{Times: recorded, TStart: tStart, TStop: tStop}, nil
}

// NumSpikes returns the spike count
func (st SpikeTrain) NumSpikes() int {
	return len(st.Times)
}

// MeanRate returns the average firing rate over the full span, in Hz
func (st SpikeTrain) MeanRate() float64 {
	span := st.TStop - st.TStart
	if span <= 0 {
		return 0
	}
	return float64(len(st.Times)) / span.Seconds()
}

// Trial is the simultaneous recording of all neurons in one trial,
// indexed by neuron.
type Trial struct {
	Trains []SpikeTrain `json:"trains"`
}

// NumNeurons returns the neuron count of this trial
func (tr Trial) NumNeurons() int {
	return len(tr.Trains)
}

// TrialSet is a collection of trials with a fixed neuron count and a shared
// analysis span. Invariants (enforced by NewTrialSet): every trial has the
// same number of neurons and every train carries the same [TStart, TStop).
type TrialSet struct {
	Trials      []Trial     `json:"trials"`
	NumNeurons  int         `json:"num_neurons"`
	TStart      core.Millis `json:"t_start"`
	TStop       core.Millis `json:"t_stop"`
	Fingerprint core.DatasetFingerprint `json:"fingerprint,omitempty"`
}

// NewTrialSet validates trial/neuron consistency and computes the dataset
// fingerprint. All validation is eager: a TrialSet that constructs is safe
// to analyze.
func NewTrialSet(trials []Trial) (*TrialSet, error) {
	if len(trials) == 0 {
		return nil, core.ErrEmptyTrialSet
	}

	n := trials[0].NumNeurons()
	if n == 0 {
		return nil, core.NewInputError(core.ErrNeuronCountMismatch, 0, "trial has no neurons")
	}
	tStart := trials[0].Trains[0].TStart
	tStop := trials[0].Trains[0].TStop

	for i, trial := range trials {
		if trial.NumNeurons() != n {
			return nil, core.NewInputError(core.ErrNeuronCountMismatch, i,
				fmt.Sprintf("has %d neurons, expected %d", trial.NumNeurons(), n))
		}
		for j, train := range trial.Trains {
			if train.TStart != tStart || train.TStop != tStop {
				return nil, core.NewInputError(core.ErrSpanMismatch, i,
					fmt.Sprintf("neuron %d spans [%v, %v], expected [%v, %v]",
						j, train.TStart, train.TStop, tStart, tStop))
			}
		}
	}

	set := &TrialSet{
		Trials:     trials,
		NumNeurons: n,
		TStart:     tStart,
		TStop:      tStop,
	}
	set.Fingerprint = core.ComputeDatasetFingerprint(set.rawTimes())
	return set, nil
}

// NumTrials returns the trial count
func (ts *TrialSet) NumTrials() int {
	return len(ts.Trials)
}

// Span returns the shared analysis span t_stop - t_start
func (ts *TrialSet) Span() core.Millis {
	return ts.TStop - ts.TStart
}

// Train returns the spike train of one neuron in one trial
func (ts *TrialSet) Train(trial, neuron int) SpikeTrain {
	return ts.Trials[trial].Trains[neuron]
}

func (ts *TrialSet) rawTimes() [][][]core.Millis {
	raw := make([][][]core.Millis, len(ts.Trials))
	for i, trial := range ts.Trials {
		raw[i] = make([][]core.Millis, len(trial.Trains))
		for j, train := range trial.Trains {
			raw[i][j] = train.Times
		}
	}
	return raw
}
