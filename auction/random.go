package auction

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandSource provides random number generation for tie-breaking.
// This interface enables dependency injection for deterministic testing.
type RandSource interface {
	// Intn returns a random integer in [0, n). Panics if n <= 0.
	Intn(n int) int
}

// cryptoRandSource wraps crypto/rand for production use
type cryptoRandSource struct{}

// Intn returns a cryptographically secure random integer in [0, n).
// Panics if n <= 0 (programmer error).
func (cryptoRandSource) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("cryptoRandSource.Intn: n must be positive, got %d", n))
	}
	// rand.Int does not error when using rand.Reader
	// https://pkg.go.dev/crypto/rand#Int
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(nBig.Int64())
}

// defaultRandSource provides a cryptographically secure random source for production
var defaultRandSource RandSource = cryptoRandSource{}

// DefaultRandSource returns the production random source, for callers outside
// this package that accept an optional injected source.
func DefaultRandSource() RandSource {
	return defaultRandSource
}

// shuffle permutes entries in place with a Fisher-Yates walk driven by the
// given source.
func shuffle(entries []Bid, randSource RandSource) {
	for k := len(entries) - 1; k > 0; k-- {
		randIdx := randSource.Intn(k + 1)
		entries[k], entries[randIdx] = entries[randIdx], entries[k]
	}
}
