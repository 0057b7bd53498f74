package commit

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// sum recomputes the digest with crypto/sha256 directly so the tests assert
// the preimage contract rather than a stored constant.
func sum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func TestHashIsLowercaseHexSHA256(t *testing.T) {
	require.Equal(t, sum("fairdeck"), Hash("fairdeck"))
	require.Len(t, Hash(""), 64)
}

func TestSeedAndTimestampAreBareHashes(t *testing.T) {
	require.Equal(t, sum("secret-1"), Seed("secret-1"))
	require.Equal(t, sum("1712000000000"), Timestamp("1712000000000"))
}

func TestDeckBindsNonceWithColon(t *testing.T) {
	require.Equal(t, sum("spades:A|hearts:K:abcd"), Deck("spades:A|hearts:K", "abcd"))
}

func TestFinalSeedJoinsWithDoublePipe(t *testing.T) {
	reveals := []string{"s1", "s2", "s3"}
	ts := "1712000000123"
	require.Equal(t, sum("s1||s2||s3||"+ts), FinalSeed(reveals, ts))
}

func TestFinalSeedSingleReveal(t *testing.T) {
	require.Equal(t, sum("only||9"), FinalSeed([]string{"only"}, "9"))
}
