// Package keygen generates the opaque identifiers and license keys used
// across the lifecycle engine.
package keygen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet omits 0/O/1/I so keys survive being read aloud or retyped.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	idLength     = 10
	keyChunkSize = 4

	// LicensePrefix is the brand prefix on every license key.
	LicensePrefix = "VG"
)

// ID returns a collision-resistant identifier like "ORD-K7M2PQ84WX".
func ID(prefix string) string {
	return prefix + "-" + randomChunk(idLength)
}

// LicenseKey returns a formatted, human-enterable key: VG-XXXX-XXXX-XXXX.
func LicenseKey() string {
	return fmt.Sprintf("%s-%s-%s-%s",
		LicensePrefix, randomChunk(keyChunkSize), randomChunk(keyChunkSize), randomChunk(keyChunkSize))
}

// IsLicenseKey reports whether key matches the VG-XXXX-XXXX-XXXX format.
// The key is expected to already be normalized (trimmed, upper case).
func IsLicenseKey(key string) bool {
	parts := strings.Split(key, "-")
	if len(parts) != 4 || parts[0] != LicensePrefix {
		return false
	}
	for _, part := range parts[1:] {
		if len(part) != keyChunkSize {
			return false
		}
		for _, ch := range part {
			if !strings.ContainsRune(Alphabet, ch) {
				return false
			}
		}
	}
	return true
}

// Normalize trims and upper-cases a key the way customers type them.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func randomChunk(n int) string {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform entropy source is
			// broken; nothing sensible to do but stop.
			panic(fmt.Sprintf("keygen: entropy source unavailable: %v", err))
		}
		b.WriteByte(Alphabet[idx.Int64()])
	}
	return b.String()
}
