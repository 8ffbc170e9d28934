package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors (detected eagerly, before any window is processed)
	ErrInvalidBinSize      = errors.New("bin size must be positive")
	ErrInvalidWindowSize   = errors.New("window size must be positive")
	ErrInvalidWindowStep   = errors.New("window step must be positive")
	ErrWindowNotAligned    = errors.New("window size must be a multiple of bin size")
	ErrStepNotAligned      = errors.New("window step must be a multiple of bin size")
	ErrSpanNotAligned      = errors.New("trial span must be a multiple of bin size")
	ErrSpanTooShort        = errors.New("trial span is shorter than one analysis window")
	ErrHashOutOfRange      = errors.New("pattern hash not representable with this neuron count")
	ErrNoPatterns          = errors.New("no pattern hashes requested")
	ErrUnknownMethod       = errors.New("unknown estimation method")
	ErrInvalidSignificance = errors.New("significance level must lie in (0,1)")

	// Input errors (malformed spike data)
	ErrNeuronCountMismatch = errors.New("trials have inconsistent neuron counts")
	ErrSpanMismatch        = errors.New("trials have inconsistent time spans")
	ErrSpikeOutOfRange     = errors.New("spike timestamp outside trial span")
	ErrEmptyTrialSet       = errors.New("trial set contains no trials")

	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// Error constructors with context
func NewConfigError(base error, detail string) error {
	return fmt.Errorf("%w: %s", base, detail)
}

func NewInputError(base error, trial int, detail string) error {
	return fmt.Errorf("%w: trial %d: %s", base, trial, detail)
}

// IsConfigError reports whether err belongs to the fail-fast configuration
// taxonomy (invalid geometry, hash range, significance level).
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidBinSize) ||
		errors.Is(err, ErrInvalidWindowSize) ||
		errors.Is(err, ErrInvalidWindowStep) ||
		errors.Is(err, ErrWindowNotAligned) ||
		errors.Is(err, ErrStepNotAligned) ||
		errors.Is(err, ErrSpanNotAligned) ||
		errors.Is(err, ErrSpanTooShort) ||
		errors.Is(err, ErrHashOutOfRange) ||
		errors.Is(err, ErrNoPatterns) ||
		errors.Is(err, ErrUnknownMethod) ||
		errors.Is(err, ErrInvalidSignificance)
}

// IsInputError reports whether err indicates malformed spike data.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNeuronCountMismatch) ||
		errors.Is(err, ErrSpanMismatch) ||
		errors.Is(err, ErrSpikeOutOfRange) ||
		errors.Is(err, ErrEmptyTrialSet)
}

// IsNotFoundError checks if an error is a not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
