package engine

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"gospike/domain/core"
)

// Sentinel surprise values. |Js| = 12 corresponds to a tail probability
// within 1e-12 of 0 or 1, past the resolution the Poisson tail computation
// delivers in float64. Degenerate counts clamp here instead of producing
// ±Inf or NaN.
const (
	SurpriseFloor = -12.0
	SurpriseCeil  = 12.0
)

// TailProbability returns P(X >= nEmp) under a Poisson null model with mean
// nExp — the probability of observing at least the empirical coincidence
// count if the neurons fired independently.
func TailProbability(nEmp, nExp float64) float64 {
	if nEmp <= 0 {
		return 1.0
	}
	if nExp <= 0 {
		// Zero expectation cannot produce any coincidence.
		return 0.0
	}
	pois := distuv.Poisson{Lambda: nExp}
	p := 1.0 - pois.CDF(nEmp-1)
	// CDF round-off can leak marginally outside [0,1].
	return math.Min(1.0, math.Max(0.0, p))
}

// JointSurprise converts the empirical/expected count pair into the
// log-odds surprise statistic Js = log10((1−p)/p) with p = P(X >= nEmp).
// Positive values mark excess synchrony, negative values deficit.
//
// Degeneracy policy (never NaN/Inf):
//   - nEmp = 0, nExp > 0  -> SurpriseFloor (maximal deficit)
//   - nEmp > 0, nExp = 0  -> SurpriseCeil  (any coincidence against zero expectation)
//   - nEmp = 0, nExp = 0  -> 0 (no evidence in either direction)
func JointSurprise(nEmp, nExp float64) float64 {
	if nExp <= 0 {
		if nEmp > 0 {
			return SurpriseCeil
		}
		return 0.0
	}
	return surpriseFromTail(TailProbability(nEmp, nExp))
}

func surpriseFromTail(p float64) float64 {
	if p <= 0 {
		return SurpriseCeil
	}
	if p >= 1 {
		return SurpriseFloor
	}
	js := math.Log10((1 - p) / p)
	return math.Min(SurpriseCeil, math.Max(SurpriseFloor, js))
}

// SurpriseThreshold maps a significance level to the fixed surprise boundary
// used to mark unitary events: windows with Js >= threshold have tail
// probability <= alpha. The mapping does not depend on n_exp, so one
// threshold draws the significance line across the whole window sequence.
func SurpriseThreshold(alpha float64) (float64, error) {
	if alpha <= 0 || alpha >= 1 {
		return 0, core.NewConfigError(core.ErrInvalidSignificance, fmt.Sprintf("got %g", alpha))
	}
	return math.Log10((1 - alpha) / alpha), nil
}

// SignificanceFromSurprise inverts SurpriseThreshold: the tail probability a
// given surprise value corresponds to. SignificanceFromSurprise(threshold(a))
// recovers a up to floating-point error.
func SignificanceFromSurprise(js float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, js))
}
