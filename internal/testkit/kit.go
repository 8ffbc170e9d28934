package testkit

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"gospike/domain/core"
	"gospike/domain/spikes"
)

// SpikeKit generates synthetic parallel spike trains with reproducible
// seeding. It covers the two standard constructions for exercising the
// unitary-events pipeline: independent homogeneous Poisson processes (the
// null case) and the single interaction process, SIP (independent background
// plus injected exact coincidences — the positive control).
type SpikeKit struct {
	src *rand.Rand
}

// New creates a kit seeded for reproducible generation
func New(seed uint64) *SpikeKit {
	return &SpikeKit{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// HomogeneousPoissonTrain realizes a Poisson process at the given rate over
// [tStart, tStop): exponential inter-spike intervals accumulated from tStart
// and truncated at tStop. A zero rate yields an empty train.
func (k *SpikeKit) HomogeneousPoissonTrain(rateHz float64, tStart, tStop core.Millis) (spikes.SpikeTrain, error) {
	if rateHz < 0 {
		return spikes.SpikeTrain{}, fmt.Errorf("rate must be non-negative, got %g Hz", rateHz)
	}
	if tStop <= tStart {
		return spikes.SpikeTrain{}, fmt.Errorf("t_stop (%v) must exceed t_start (%v)", tStop, tStart)
	}
	if rateHz == 0 {
		return spikes.NewSpikeTrain(nil, tStart, tStop)
	}

	isi := distuv.Exponential{Rate: rateHz / 1000.0, Src: k.src} // rate per ms
	var times []core.Millis
	t := tStart
	for {
		t += core.Millis(isi.Rand())
		if t >= tStop {
			break
		}
		times = append(times, t)
	}
	return spikes.NewSpikeTrain(times, tStart, tStop)
}

// IndependentTrialSet builds nTrials trials of independent Poisson neurons,
// one rate per neuron.
func (k *SpikeKit) IndependentTrialSet(ratesHz []float64, nTrials int, tStart, tStop core.Millis) (*spikes.TrialSet, error) {
	if len(ratesHz) == 0 {
		return nil, fmt.Errorf("at least one neuron rate is required")
	}
	if nTrials <= 0 {
		return nil, fmt.Errorf("trial count must be positive, got %d", nTrials)
	}

	trials := make([]spikes.Trial, nTrials)
	for i := range trials {
		trains := make([]spikes.SpikeTrain, len(ratesHz))
		for j, rate := range ratesHz {
			train, err := k.HomogeneousPoissonTrain(rate, tStart, tStop)
			if err != nil {
				return nil, err
			}
			trains[j] = train
		}
		trials[i] = spikes.Trial{Trains: trains}
	}
	return spikes.NewTrialSet(trials)
}

// SIPTrialSet builds a single interaction process: numNeurons Poisson
// backgrounds at rateHz − coincHz plus exactly coincident events injected
// into every neuron at coincHz. The number of injected coincidences per
// trial is deterministic (round(span·coincHz)); their positions are uniform
// over the span.
func (k *SpikeKit) SIPTrialSet(numNeurons int, rateHz, coincHz float64, nTrials int, tStart, tStop core.Millis) (*spikes.TrialSet, error) {
	if numNeurons < 2 {
		return nil, fmt.Errorf("SIP needs at least 2 neurons, got %d", numNeurons)
	}
	if coincHz < 0 || coincHz > rateHz {
		return nil, fmt.Errorf("coincidence rate %g Hz must lie in [0, rate=%g Hz]", coincHz, rateHz)
	}
	if nTrials <= 0 {
		return nil, fmt.Errorf("trial count must be positive, got %d", nTrials)
	}

	span := tStop - tStart
	numCoinc := int(math.Round(span.Seconds() * coincHz))

	trials := make([]spikes.Trial, nTrials)
	for i := range trials {
		coincTimes := k.uniformTimes(numCoinc, tStart, tStop)

		trains := make([]spikes.SpikeTrain, numNeurons)
		for j := 0; j < numNeurons; j++ {
			background, err := k.HomogeneousPoissonTrain(rateHz-coincHz, tStart, tStop)
			if err != nil {
				return nil, err
			}
			merged := append(append([]core.Millis{}, background.Times...), coincTimes...)
			train, err := spikes.NewSpikeTrain(merged, tStart, tStop)
			if err != nil {
				return nil, err
			}
			trains[j] = train
		}
		trials[i] = spikes.Trial{Trains: trains}
	}
	return spikes.NewTrialSet(trials)
}

// uniformTimes draws n sorted times uniformly over [tStart, tStop)
func (k *SpikeKit) uniformTimes(n int, tStart, tStop core.Millis) []core.Millis {
	span := float64(tStop - tStart)
	times := make([]core.Millis, n)
	for i := range times {
		times[i] = tStart + core.Millis(k.src.Float64()*span)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times
}
