package deck

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDeckCanonicalOrder(t *testing.T) {
	d := New()
	require.Len(t, d, Size)
	require.NoError(t, d.Validate())
	require.Equal(t, Card{Suit: Spades, Rank: "2"}, d[0])
	require.Equal(t, Card{Suit: Clubs, Rank: "A"}, d[Size-1])
}

func TestSerializeContract(t *testing.T) {
	d := New()
	s := d.Serialize()
	require.True(t, strings.HasPrefix(s, "spades:2|spades:3|"), "serialization must start with the low spades")
	require.True(t, strings.HasSuffix(s, "|clubs:K|clubs:A"), "serialization must end with the high clubs")
	require.Equal(t, Size-1, strings.Count(s, "|"))
}

func TestValidateRejectsBadDecks(t *testing.T) {
	short := New()[:Size-1]
	require.ErrorIs(t, short.Validate(), ErrInvalidDeck)

	dup := New()
	dup[3] = dup[7]
	require.ErrorIs(t, dup.Validate(), ErrInvalidDeck)

	bogus := New()
	bogus[0] = Card{Suit: "stars", Rank: "2"}
	require.ErrorIs(t, bogus.Validate(), ErrInvalidDeck)
}

func TestCommitmentMatchesContract(t *testing.T) {
	d := New()
	nonce := "0badc0de"
	sum := sha256.Sum256([]byte(d.Serialize() + ":" + nonce))
	require.Equal(t, hex.EncodeToString(sum[:]), Commitment(d, nonce))
}

func TestCommitmentChangesWithNonceAndOrder(t *testing.T) {
	d := New()
	require.NotEqual(t, Commitment(d, "n1"), Commitment(d, "n2"))

	swapped := d.Clone()
	swapped[0], swapped[1] = swapped[1], swapped[0]
	require.NotEqual(t, Commitment(d, "n1"), Commitment(swapped, "n1"))
}

func TestParseCard(t *testing.T) {
	c, err := ParseCard("hearts:10")
	require.NoError(t, err)
	require.Equal(t, Card{Suit: Hearts, Rank: "10"}, c)

	_, err = ParseCard("hearts")
	require.Error(t, err)
	_, err = ParseCard("moons:7")
	require.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	d := New()
	c := d.Clone()
	c[0] = Card{Suit: Clubs, Rank: "A"}
	require.Equal(t, Card{Suit: Spades, Rank: "2"}, d[0])
	require.False(t, d.Equal(c))
	require.True(t, d.Equal(d.Clone()))
}
