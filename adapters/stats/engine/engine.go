package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"gospike/adapters/stats/binning"
	"gospike/domain/core"
	"gospike/domain/spikes"
	"gospike/domain/ue"
)

// Engine orchestrates the sliding-window unitary-events analysis: it bins the
// trial set once, then advances an analysis window of WinSize by WinStep from
// t_start while the window still fits, running the coincidence detector, the
// expectation estimator and the joint-surprise evaluator at each position.
//
// All configuration errors surface in New, before any window is processed.
// After construction the engine is read-only and safe for concurrent use.
type Engine struct {
	set      *spikes.TrialSet
	params   ue.Params
	matrix   *binning.Matrix
	patterns [][]bool // decoded PatternHashes, same order as params

	winBins    int
	stepBins   int
	numWindows int
}

// New validates the configuration against the trial set and prepares the
// binned matrix. Fail fast: a constructed Engine cannot fail mid-slide.
func New(set *spikes.TrialSet, params ue.Params) (*Engine, error) {
	if params.SignificanceLevel == 0 {
		params.SignificanceLevel = ue.DefaultSignificanceLevel
	}
	if err := params.Validate(set.NumNeurons, set.Span()); err != nil {
		return nil, err
	}

	matrix, err := binning.Discretize(set, params.BinSize)
	if err != nil {
		return nil, err
	}

	patterns := make([][]bool, len(params.PatternHashes))
	for i, h := range params.PatternHashes {
		patterns[i], err = h.Pattern(set.NumNeurons)
		if err != nil {
			return nil, err
		}
	}

	winBins := params.WinSize.DivideBy(params.BinSize)
	stepBins := params.WinStep.DivideBy(params.BinSize)

	return &Engine{
		set:        set,
		params:     params,
		matrix:     matrix,
		patterns:   patterns,
		winBins:    winBins,
		stepBins:   stepBins,
		numWindows: (matrix.NumBins()-winBins)/stepBins + 1,
	}, nil
}

// NumWindows returns the length of the window sequence:
// floor((span - win_size)/win_step) + 1.
func (e *Engine) NumWindows() int {
	return e.numWindows
}

// Params returns the effective analysis parameters (defaults resolved).
func (e *Engine) Params() ue.Params {
	return e.params
}

// Window computes the result for one window position. Pure: depends only on
// the read-only matrix slice for that window, so positions can be evaluated
// in any order or in parallel.
func (e *Engine) Window(index int) ue.WindowResult {
	startBin := index * e.stepBins
	counts := windowCounts(e.matrix, startBin, e.winBins)

	res := ue.WindowResult{
		Index:   index,
		Start:   e.set.TStart + core.Millis(index)*e.params.WinStep,
		Js:      make([]float64, len(e.patterns)),
		NEmp:    make([]float64, len(e.patterns)),
		NExp:    make([]float64, len(e.patterns)),
		RateAvg: averageRates(counts, e.params.WinSize.Seconds()),
		Indices: make([][]int, e.matrix.NumTrials()),
	}

	for p, pattern := range e.patterns {
		det := DetectPattern(e.matrix, pattern, startBin, e.winBins)
		nExp := ExpectedCount(pattern, counts, e.winBins, e.params.EffectiveMethod())

		res.NEmp[p] = det.NEmp
		res.NExp[p] = nExp
		res.Js[p] = JointSurprise(det.NEmp, nExp)
		for trial, idx := range det.TrialIndices {
			res.Indices[trial] = append(res.Indices[trial], idx...)
		}
	}
	for trial := range res.Indices {
		res.Indices[trial] = dedupSorted(res.Indices[trial])
	}
	return res
}

// Iterator returns a lazy, restartable cursor over the window sequence.
// Nothing is materialized ahead of the cursor, so a caller wanting early
// termination simply stops calling Next.
func (e *Engine) Iterator() *WindowIterator {
	return &WindowIterator{engine: e}
}

// WindowIterator walks the ordered window sequence on demand.
type WindowIterator struct {
	engine *Engine
	next   int
}

// Next computes and returns the next window result. ok is false once the
// sequence is exhausted.
func (it *WindowIterator) Next() (ue.WindowResult, bool) {
	if it.next >= it.engine.numWindows {
		return ue.WindowResult{}, false
	}
	res := it.engine.Window(it.next)
	it.next++
	return res, true
}

// Reset rewinds the iterator to the first window.
func (it *WindowIterator) Reset() {
	it.next = 0
}

// Run slides through every window sequentially and aggregates the ordered
// results into the AnalysisResult contract.
func (e *Engine) Run(ctx context.Context) (*ue.AnalysisResult, error) {
	windows := make([]ue.WindowResult, e.numWindows)
	it := e.Iterator()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, ok := it.Next()
		if !ok {
			break
		}
		windows[res.Index] = res
	}
	return e.aggregate(windows), nil
}

// RunParallel fans the window positions out across a bounded worker pool.
// Windows share only read-only access to the binned matrix, and each worker
// writes to its own slot of the preallocated result slice, so no locking is
// needed beyond the semaphore.
func (e *Engine) RunParallel(ctx context.Context, workers int64) (*ue.AnalysisResult, error) {
	if workers <= 1 {
		return e.Run(ctx)
	}

	sem := semaphore.NewWeighted(workers)
	windows := make([]ue.WindowResult, e.numWindows)
	var wg sync.WaitGroup

	for w := 0; w < e.numWindows; w++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("window executor interrupted: %w", err)
		}
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			defer sem.Release(1)
			windows[index] = e.Window(index)
		}(w)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.aggregate(windows), nil
}

// aggregate folds the ordered window results into the flat result contract.
func (e *Engine) aggregate(windows []ue.WindowResult) *ue.AnalysisResult {
	result := &ue.AnalysisResult{
		Js:      make([][]float64, len(windows)),
		NEmp:    make([][]float64, len(windows)),
		NExp:    make([][]float64, len(windows)),
		RateAvg: make([][]float64, len(windows)),
		Indices: make(map[string][]int, e.matrix.NumTrials()),
		Input: ue.InputParameters{
			BinSize:           e.params.BinSize,
			WinSize:           e.params.WinSize,
			WinStep:           e.params.WinStep,
			PatternHashes:     e.params.PatternHashes,
			SignificanceLevel: e.params.SignificanceLevel,
			Method:            e.params.EffectiveMethod(),
			TStart:            e.set.TStart,
			TStop:             e.set.TStop,
			NumNeurons:        e.set.NumNeurons,
			NumTrials:         e.set.NumTrials(),
		},
	}

	merged := make([][]int, e.matrix.NumTrials())
	for w, win := range windows {
		result.Js[w] = win.Js
		result.NEmp[w] = win.NEmp
		result.NExp[w] = win.NExp
		result.RateAvg[w] = win.RateAvg
		for trial, idx := range win.Indices {
			merged[trial] = append(merged[trial], idx...)
		}
	}
	for trial, idx := range merged {
		result.Indices[fmt.Sprintf("trial_%d", trial)] = dedupSorted(idx)
	}
	return result
}

func dedupSorted(idx []int) []int {
	if len(idx) == 0 {
		return []int{}
	}
	sort.Ints(idx)
	out := idx[:1]
	for _, v := range idx[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
