package ceremony

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairdeck/fairdeck/deck"
)

func sealedTranscript(t *testing.T) *Transcript {
	t.Helper()
	c, _ := newTestCoordinator(t)
	require.NoError(t, c.CommitSeed("alice", sum("s1")))
	require.NoError(t, c.CommitSeed("bob", sum("s2")))
	_, err := c.CompleteCommitmentPhase()
	require.NoError(t, err)
	require.NoError(t, c.RevealSeed("alice", "s1"))
	require.NoError(t, c.RevealSeed("bob", "s2"))
	res, err := c.GenerateSeed()
	require.NoError(t, err)
	data, err := c.TranscriptData()
	require.NoError(t, err)

	original := deck.New()
	shuffled, permutation, err := deck.Shuffle(original, res.FinalSeed)
	require.NoError(t, err)
	nonce := "6e6f6e6365"
	tr, err := NewTranscript(data, original, shuffled, permutation,
		deck.Commitment(shuffled, nonce), nonce)
	require.NoError(t, err)
	return tr
}

func TestTranscriptHashContract(t *testing.T) {
	tr := sealedTranscript(t)

	perm := make([]string, len(tr.Permutation))
	for i, p := range tr.Permutation {
		perm[i] = strconv.Itoa(p)
	}
	canonical := strings.Join([]string{
		tr.GameID,
		"alice=" + sum("s1") + ",bob=" + sum("s2"),
		"alice=s1,bob=s2",
		tr.FinalSeed,
		tr.Timestamp,
		tr.OriginalDeck.Serialize(),
		tr.ShuffledDeck.Serialize(),
		strings.Join(perm, ","),
	}, "\n")

	require.Equal(t, sum(canonical), tr.TranscriptHash)
	require.True(t, tr.Verify())
}

func TestTranscriptVerifyDetectsMutation(t *testing.T) {
	tr := sealedTranscript(t)
	require.True(t, tr.Verify())

	tampered := *tr
	tampered.Timestamp = tr.Timestamp + "0"
	require.False(t, tampered.Verify())

	tampered = *tr
	tampered.PlayerReveals = map[string]string{"alice": "s1", "bob": "s2-forged"}
	require.False(t, tampered.Verify())

	tampered = *tr
	tampered.Permutation = append([]int{}, tr.Permutation...)
	tampered.Permutation[0], tampered.Permutation[1] = tampered.Permutation[1], tampered.Permutation[0]
	require.False(t, tampered.Verify())
}

func TestTranscriptWireShape(t *testing.T) {
	tr := sealedTranscript(t)
	buf, err := tr.Marshal()
	require.NoError(t, err)

	for _, field := range []string{
		`"gameId"`, `"playerCommitments"`, `"playerReveals"`, `"timestamp"`,
		`"finalSeed"`, `"deckCommitment"`, `"nonce"`, `"originalDeck"`,
		`"shuffledDeck"`, `"permutation"`, `"transcriptHash"`, `"suit"`, `"rank"`,
	} {
		require.Contains(t, string(buf), field)
	}

	decoded := &Transcript{}
	require.NoError(t, decoded.Unmarshal(buf))
	require.True(t, decoded.Verify())
	require.Equal(t, tr.TranscriptHash, decoded.TranscriptHash)
	require.True(t, tr.ShuffledDeck.Equal(decoded.ShuffledDeck))
}

func TestNewTranscriptRejectsBadShapes(t *testing.T) {
	tr := sealedTranscript(t)
	data := &TranscriptData{
		GameID:      tr.GameID,
		Timestamp:   tr.Timestamp,
		FinalSeed:   tr.FinalSeed,
		Commitments: tr.PlayerCommitments,
		Reveals:     tr.PlayerReveals,
	}

	_, err := NewTranscript(nil, tr.OriginalDeck, tr.ShuffledDeck, tr.Permutation, tr.DeckCommitment, tr.Nonce)
	require.Error(t, err)

	_, err = NewTranscript(data, tr.OriginalDeck, tr.ShuffledDeck, tr.Permutation[:10], tr.DeckCommitment, tr.Nonce)
	require.Error(t, err)

	_, err = NewTranscript(data, tr.OriginalDeck, tr.ShuffledDeck[:10], tr.Permutation, tr.DeckCommitment, tr.Nonce)
	require.Error(t, err)
}
