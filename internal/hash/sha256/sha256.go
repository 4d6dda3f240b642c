// Package sha256 digests downloaded pages so unchanged content can be detected.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Prefix tags every digest with its algorithm.
const Prefix = "sha256:"

// Hasher implements crawler.Hasher.
type Hasher struct{}

// New returns a Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the prefixed hex digest of data.
func (*Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return Prefix + hex.EncodeToString(sum[:]), nil
}
