package ue

import (
	"fmt"
	"strings"

	"gospike/domain/core"
)

// MaxNeurons bounds the pattern-hash bit width. 31 neurons keeps every hash
// inside a uint32 and far exceeds any simultaneous recording this analysis
// targets.
const MaxNeurons = 31

// PatternHash is the integer encoding of a binary co-activation vector over
// N neurons: neuron 0 occupies the most significant bit, so
// hash = Σ v[i]·2^(N−1−i). The encoding is exact and invertible; decoding
// recovers both which neurons must fire and which must stay silent
// (full-pattern matching).
type PatternHash uint32

// HashFromPattern encodes a binary activation vector into its hash.
func HashFromPattern(active []bool) (PatternHash, error) {
	n := len(active)
	if n == 0 || n > MaxNeurons {
		return 0, fmt.Errorf("%w: pattern over %d neurons (max %d)",
			core.ErrHashOutOfRange, n, MaxNeurons)
	}
	var h PatternHash
	for i, a := range active {
		if a {
			h |= 1 << (n - 1 - i)
		}
	}
	return h, nil
}

// Valid reports whether the hash is representable with numNeurons neurons
// and names at least one active neuron.
func (h PatternHash) Valid(numNeurons int) bool {
	if numNeurons <= 0 || numNeurons > MaxNeurons {
		return false
	}
	return h > 0 && h < 1<<numNeurons
}

// Pattern decodes the hash into its activation vector over numNeurons.
// Exact inverse of HashFromPattern.
func (h PatternHash) Pattern(numNeurons int) ([]bool, error) {
	if !h.Valid(numNeurons) {
		return nil, fmt.Errorf("%w: hash %d with %d neurons",
			core.ErrHashOutOfRange, h, numNeurons)
	}
	active := make([]bool, numNeurons)
	for i := range active {
		active[i] = h&(1<<(numNeurons-1-i)) != 0
	}
	return active, nil
}

// ActiveNeurons lists the neuron indices the pattern requires active.
func (h PatternHash) ActiveNeurons(numNeurons int) []int {
	var idx []int
	for i := 0; i < numNeurons; i++ {
		if h&(1<<(numNeurons-1-i)) != 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

// String renders the hash with its decimal value, e.g. "pattern(3)"
func (h PatternHash) String() string {
	return fmt.Sprintf("pattern(%d)", uint32(h))
}

// PatternString renders the activation vector for logs and reports,
// e.g. "0b011" for hash 3 over 3 neurons.
func (h PatternHash) PatternString(numNeurons int) string {
	active, err := h.Pattern(numNeurons)
	if err != nil {
		return h.String()
	}
	var b strings.Builder
	b.WriteString("0b")
	for _, a := range active {
		if a {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
