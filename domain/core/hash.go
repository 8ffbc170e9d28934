package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// DatasetFingerprint identifies the exact spike content of a dataset
type DatasetFingerprint Hash

func (f DatasetFingerprint) String() string { return Hash(f).String() }

// ComputeDatasetFingerprint hashes spike timestamps in trial/neuron order so
// identical datasets map to identical fingerprints regardless of provenance.
func ComputeDatasetFingerprint(trials [][][]Millis) DatasetFingerprint {
	hasher := sha256.New()
	buf := make([]byte, 8)
	for _, trial := range trials {
		for _, train := range trial {
			binary.LittleEndian.PutUint64(buf, uint64(len(train)))
			hasher.Write(buf)
			for _, t := range train {
				binary.LittleEndian.PutUint64(buf, math.Float64bits(float64(t)))
				hasher.Write(buf)
			}
		}
	}
	return DatasetFingerprint(hex.EncodeToString(hasher.Sum(nil)))
}
