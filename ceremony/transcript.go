package ceremony

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	json "github.com/nikkolasg/hexjson"

	"github.com/fairdeck/fairdeck/commit"
	"github.com/fairdeck/fairdeck/deck"
)

// Transcript is the complete, exportable record of one ceremony and its
// shuffle: everything an independent verifier needs to replay the game's
// randomness from scratch. Once built it is immutable; the embedded hash
// covers the canonical rendering of all replayable fields.
type Transcript struct {
	GameID            string            `json:"gameId"`
	PlayerCommitments map[string]string `json:"playerCommitments"`
	PlayerReveals     map[string]string `json:"playerReveals"`
	Timestamp         string            `json:"timestamp"`
	FinalSeed         string            `json:"finalSeed"`
	DeckCommitment    string            `json:"deckCommitment"`
	Nonce             string            `json:"nonce"`
	OriginalDeck      deck.Deck         `json:"originalDeck"`
	ShuffledDeck      deck.Deck         `json:"shuffledDeck"`
	Permutation       []int             `json:"permutation"`
	TranscriptHash    string            `json:"transcriptHash"`
}

// NewTranscript assembles a transcript from a sealed ceremony's data and the
// shuffle it seeded, and computes the transcript hash.
func NewTranscript(data *TranscriptData, original, shuffled deck.Deck, permutation []int, deckCommitment, nonce string) (*Transcript, error) {
	if data == nil {
		return nil, errors.New("ceremony: transcript needs sealed ceremony data")
	}
	if len(permutation) != len(original) || len(shuffled) != len(original) {
		return nil, errors.New("ceremony: transcript deck and permutation sizes disagree")
	}
	t := &Transcript{
		GameID:            data.GameID,
		PlayerCommitments: data.Commitments,
		PlayerReveals:     data.Reveals,
		Timestamp:         data.Timestamp,
		FinalSeed:         data.FinalSeed,
		DeckCommitment:    deckCommitment,
		Nonce:             nonce,
		OriginalDeck:      original,
		ShuffledDeck:      shuffled,
		Permutation:       permutation,
	}
	t.TranscriptHash = commit.Hash(t.canonical())
	return t, nil
}

// canonical renders the replayable fields into the newline-joined form the
// transcript hash is computed over. Maps are rendered as sorted
// "key=value" pairs so the rendering is byte-identical regardless of
// insertion order or implementation language.
func (t *Transcript) canonical() string {
	lines := []string{
		t.GameID,
		renderPairs(t.PlayerCommitments),
		renderPairs(t.PlayerReveals),
		t.FinalSeed,
		t.Timestamp,
		t.OriginalDeck.Serialize(),
		t.ShuffledDeck.Serialize(),
		renderInts(t.Permutation),
	}
	return strings.Join(lines, "\n")
}

// Verify recomputes the transcript hash and compares it to the embedded
// one. False means some replayable field was altered after the transcript
// was built.
func (t *Transcript) Verify() bool {
	return commit.Hash(t.canonical()) == t.TranscriptHash
}

// Marshal encodes the transcript into its JSON wire form.
func (t *Transcript) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

// Unmarshal decodes a transcript from its JSON wire form.
func (t *Transcript) Unmarshal(buf []byte) error {
	return json.Unmarshal(buf, t)
}

func renderPairs(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + m[k]
	}
	return strings.Join(pairs, ",")
}

func renderInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}
