// Package commit pins the commitment scheme shared by the ceremony, the
// shuffle and the audit verifier. Every preimage built here is an
// interoperability contract: independent implementations (server, client
// auditors) must byte-for-byte reproduce these concatenations, so the exact
// separators and the UTF-8 encoding are part of the protocol, not an
// implementation detail.
package commit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// RevealSeparator joins the revealed seed values when deriving the final
// shuffle seed.
const RevealSeparator = "||"

// Hash returns the lowercase hex SHA-256 digest of the UTF-8 bytes of s.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Seed returns the commitment a player publishes for a secret seed.
func Seed(seed string) string {
	return Hash(seed)
}

// Timestamp returns the anti-grinding commitment over the wall-clock
// timestamp string.
func Timestamp(ts string) string {
	return Hash(ts)
}

// Deck returns the commitment over a canonically serialized deck and a
// nonce.
func Deck(serializedDeck, nonce string) string {
	return Hash(serializedDeck + ":" + nonce)
}

// FinalSeed combines the revealed seed values, already ordered by player id,
// with the committed timestamp. The timestamp lands last so that it cannot be
// chosen after the reveals without breaking its own commitment.
func FinalSeed(orderedReveals []string, ts string) string {
	return Hash(strings.Join(orderedReveals, RevealSeparator) + RevealSeparator + ts)
}
