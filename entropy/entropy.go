// Package entropy abstracts the source of cryptographically secure random
// bytes. Callers that need reproducible output in tests inject their own
// io.Reader; everything else reads from crypto/rand.
package entropy

import (
	"crypto/rand"
	"io"
)

// GetRandom reads n bytes of randomness from the given reader and returns
// those bytes. A nil source, or a source that fails or comes up short, falls
// back to the crypto/rand generator.
func GetRandom(source io.Reader, n uint32) ([]byte, error) {
	if source == nil {
		source = rand.Reader
	}

	randomBytes := make([]byte, n)
	bytesRead, err := io.ReadFull(source, randomBytes)
	if err != nil || uint32(bytesRead) != n {
		// The provided source failed; serve bytes from the operating
		// system generator instead.
		_, err := rand.Read(randomBytes)
		return randomBytes, err
	}
	return randomBytes, nil
}
