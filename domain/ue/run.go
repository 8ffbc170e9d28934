package ue

import (
	"time"

	"gospike/domain/core"
)

// Run is a persisted analysis: the full result contract plus bookkeeping
// for listing and retrieval.
type Run struct {
	ID             core.RunID              `json:"id" db:"id"`
	Fingerprint    core.DatasetFingerprint `json:"dataset_fingerprint" db:"dataset_fingerprint"`
	NumWindows     int             `json:"num_windows" db:"num_windows"`
	NumSignificant int             `json:"num_significant" db:"num_significant"`
	Result         *AnalysisResult `json:"result,omitempty"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// RunSummary is the listing view of a run, without the result payload.
type RunSummary struct {
	ID             core.RunID              `json:"id"`
	Fingerprint    core.DatasetFingerprint `json:"dataset_fingerprint"`
	NumWindows     int         `json:"num_windows"`
	NumSignificant int         `json:"num_significant"`
	BinSize        core.Millis `json:"bin_size"`
	WinSize        core.Millis `json:"win_size"`
	WinStep        core.Millis `json:"win_step"`
	NumNeurons     int         `json:"num_neurons"`
	NumTrials      int         `json:"num_trials"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Summary projects a run onto its listing view.
func (r *Run) Summary() RunSummary {
	s := RunSummary{
		ID:             r.ID,
		Fingerprint:    r.Fingerprint,
		NumWindows:     r.NumWindows,
		NumSignificant: r.NumSignificant,
		CreatedAt:      r.CreatedAt,
	}
	if r.Result != nil {
		s.BinSize = r.Result.Input.BinSize
		s.WinSize = r.Result.Input.WinSize
		s.WinStep = r.Result.Input.WinStep
		s.NumNeurons = r.Result.Input.NumNeurons
		s.NumTrials = r.Result.Input.NumTrials
	}
	return s
}
