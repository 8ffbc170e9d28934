package ui

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gospike/adapters/stats/engine"
	"gospike/domain/core"
	"gospike/domain/spikes"
	"gospike/domain/ue"
	"gospike/internal/testkit"
)

// AnalyzeRequest is the submission payload. Exactly one of Trials or
// Synthetic supplies the dataset; Params configures the sliding-window
// geometry, with unset fields falling back to the server defaults.
type AnalyzeRequest struct {
	// Trials[trial][neuron] lists spike times in ms.
	Trials [][][]float64 `json:"trials,omitempty"`
	TStart float64       `json:"t_start"`
	TStop  float64       `json:"t_stop"`

	Synthetic *SyntheticSpec `json:"synthetic,omitempty"`

	Params  ue.Params `json:"params"`
	Workers int       `json:"workers,omitempty"`
	Persist bool      `json:"persist,omitempty"`
}

// SyntheticSpec requests a generated dataset instead of submitted spikes
type SyntheticSpec struct {
	Kind       string    `json:"kind"` // "independent" or "sip"
	RatesHz    []float64 `json:"rates_hz,omitempty"`
	RateHz     float64   `json:"rate_hz,omitempty"`
	CoincHz    float64   `json:"coinc_hz,omitempty"`
	NumNeurons int       `json:"num_neurons,omitempty"`
	NumTrials  int       `json:"num_trials"`
	Seed       uint64    `json:"seed"`
}

// AnalyzeResponse wraps the result contract with run bookkeeping
type AnalyzeResponse struct {
	RunID          string             `json:"run_id,omitempty"`
	NumWindows     int                `json:"num_windows"`
	NumSignificant int                `json:"num_significant"`
	Result         *ue.AnalysisResult `json:"result"`
}

// handleHealth reports service liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "gospike",
	})
}

// handleAnalyze runs the full pipeline on a submitted or synthetic dataset
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	// Step 1: assemble the trial set
	set, err := s.buildTrialSet(&req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Step 2: resolve parameters against server defaults
	params := s.applyDefaults(req.Params)

	eng, err := engine.New(set, params)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}

	// Step 3: run, parallel when requested
	workers := req.Workers
	if workers <= 0 {
		workers = s.cfg.Analysis.Workers
	}
	var result *ue.AnalysisResult
	if workers > 1 {
		result, err = eng.RunParallel(r.Context(), int64(workers))
	} else {
		result, err = eng.Run(r.Context())
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := AnalyzeResponse{
		NumWindows:     result.NumWindows(),
		NumSignificant: countSignificant(result),
		Result:         result,
	}

	// Step 4: persist when requested and a repository is configured
	if req.Persist {
		if s.runs == nil {
			s.writeError(w, http.StatusBadRequest, "persistence requested but no database is configured")
			return
		}
		run := &ue.Run{
			ID:             core.RunID(core.NewID()),
			Fingerprint:    set.Fingerprint,
			NumWindows:     resp.NumWindows,
			NumSignificant: resp.NumSignificant,
			Result:         result,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.runs.Create(r.Context(), run); err != nil {
			s.log.Error("[handleAnalyze] Failed to persist run: %v", err)
			s.writeError(w, http.StatusInternalServerError, "failed to persist run")
			return
		}
		resp.RunID = run.ID.String()
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleListRuns lists persisted runs newest-first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeError(w, http.StatusServiceUnavailable, "run persistence is not configured")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	summaries, err := s.runs.List(r.Context(), limit, offset)
	if err != nil {
		s.log.Error("[handleListRuns] %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  summaries,
		"count": len(summaries),
	})
}

// handleGetRun returns one persisted run with its full result
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// handleRunReport renders a persisted run as an HTML report
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	html, err := s.reports.HTML(run.Result)
	if err != nil {
		s.log.Error("[handleRunReport] %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(html)
}

// loadRun resolves the {id} parameter and fetches the run, writing the
// error response itself on failure
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*ue.Run, bool) {
	if s.runs == nil {
		s.writeError(w, http.StatusServiceUnavailable, "run persistence is not configured")
		return nil, false
	}

	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid run id")
		return nil, false
	}

	run, err := s.runs.GetByID(r.Context(), id)
	if err != nil {
		if core.IsNotFoundError(err) {
			s.writeError(w, http.StatusNotFound, "run not found")
		} else {
			s.log.Error("[loadRun] %v", err)
			s.writeError(w, http.StatusInternalServerError, "failed to load run")
		}
		return nil, false
	}
	return run, true
}

// buildTrialSet assembles the dataset from either submitted spikes or a
// synthetic generator spec
func (s *Server) buildTrialSet(req *AnalyzeRequest) (*spikes.TrialSet, error) {
	if req.Synthetic != nil {
		return s.buildSynthetic(req)
	}

	if len(req.Trials) == 0 {
		return nil, core.ErrEmptyTrialSet
	}
	tStart := core.Millis(req.TStart)
	tStop := core.Millis(req.TStop)

	trials := make([]spikes.Trial, len(req.Trials))
	for i, trial := range req.Trials {
		trains := make([]spikes.SpikeTrain, len(trial))
		for j, times := range trial {
			converted := make([]core.Millis, len(times))
			for k, t := range times {
				converted[k] = core.Millis(t)
			}
			train, err := spikes.NewSpikeTrain(converted, tStart, tStop)
			if err != nil {
				return nil, err
			}
			trains[j] = train
		}
		trials[i] = spikes.Trial{Trains: trains}
	}
	return spikes.NewTrialSet(trials)
}

// buildSynthetic generates a dataset from the synthetic spec
func (s *Server) buildSynthetic(req *AnalyzeRequest) (*spikes.TrialSet, error) {
	spec := req.Synthetic
	kit := testkit.New(spec.Seed)
	tStart := core.Millis(req.TStart)
	tStop := core.Millis(req.TStop)

	switch spec.Kind {
	case "sip":
		return kit.SIPTrialSet(spec.NumNeurons, spec.RateHz, spec.CoincHz, spec.NumTrials, tStart, tStop)
	case "independent", "":
		return kit.IndependentTrialSet(spec.RatesHz, spec.NumTrials, tStart, tStop)
	default:
		return nil, core.NewConfigError(core.ErrUnknownMethod, "synthetic kind "+spec.Kind)
	}
}

// applyDefaults fills unset parameters from server configuration
func (s *Server) applyDefaults(p ue.Params) ue.Params {
	if p.BinSize == 0 {
		p.BinSize = s.cfg.Analysis.BinSize
	}
	if p.WinSize == 0 {
		p.WinSize = s.cfg.Analysis.WinSize
	}
	if p.WinStep == 0 {
		p.WinStep = s.cfg.Analysis.WinStep
	}
	if p.SignificanceLevel == 0 {
		p.SignificanceLevel = s.cfg.Analysis.SignificanceLevel
	}
	return p
}

// countSignificant counts windows where any pattern crosses the threshold
func countSignificant(result *ue.AnalysisResult) int {
	threshold, err := engine.SurpriseThreshold(result.Input.SignificanceLevel)
	if err != nil {
		return 0
	}
	count := 0
	for w := range result.Js {
		for _, js := range result.Js[w] {
			if js >= threshold {
				count++
				break
			}
		}
	}
	return count
}

// statusForError maps domain error categories to HTTP statuses
func statusForError(err error) int {
	switch {
	case core.IsConfigError(err), core.IsInputError(err):
		return http.StatusBadRequest
	case core.IsNotFoundError(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Response helpers

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("[writeJSON] Encode failed: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
