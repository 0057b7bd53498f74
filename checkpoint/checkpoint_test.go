package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func testState() GameState {
	return GameState{
		DeckCommitment: "a1b2c3",
		CardsDealt:     12,
		PlayerCount:    4,
		Round:          2,
	}
}

func TestGameStateHashContract(t *testing.T) {
	s := testState()
	h := sha256.Sum256([]byte("a1b2c3:12:4:2"))
	require.Equal(t, hex.EncodeToString(h[:]), s.Hash())
}

func TestCheckpointRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1712000000000))
	r := NewRecorder(clock, nil)

	cp, err := r.Create("game-1", testState())
	require.NoError(t, err)
	require.NotEmpty(t, cp.ID)
	require.Equal(t, "game-1", cp.GameID)
	require.Equal(t, testState().Hash(), cp.StateHash)
	require.Equal(t, clock.Now(), cp.Timestamp)

	res, err := r.Verify(cp.ID, testState())
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.False(t, res.Tampering)
	require.Empty(t, res.DivergentFields)
}

func TestCheckpointDetectsEachField(t *testing.T) {
	r := NewRecorder(nil, nil)
	cp, err := r.Create("game-1", testState())
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*GameState)
	}{
		{"deckCommitment", func(s *GameState) { s.DeckCommitment = "ffffff" }},
		{"cardsDealt", func(s *GameState) { s.CardsDealt++ }},
		{"playerCount", func(s *GameState) { s.PlayerCount-- }},
		{"round", func(s *GameState) { s.Round = 9 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := testState()
			tc.mutate(&state)
			res, err := r.Verify(cp.ID, state)
			require.NoError(t, err)
			require.False(t, res.Valid)
			require.True(t, res.Tampering)
			require.Equal(t, []string{tc.name}, res.DivergentFields)
		})
	}
}

func TestCheckpointUnknownID(t *testing.T) {
	r := NewRecorder(nil, nil)
	_, err := r.Verify("00000000-0000-0000-0000-000000000000", testState())
	require.ErrorIs(t, err, ErrUnknownCheckpoint)
}

func TestCheckpointsAreIndependent(t *testing.T) {
	r := NewRecorder(nil, nil)

	early, err := r.Create("game-1", testState())
	require.NoError(t, err)

	later := testState()
	later.CardsDealt = 20
	cp2, err := r.Create("game-1", later)
	require.NoError(t, err)
	require.NotEqual(t, early.ID, cp2.ID)

	// The early checkpoint still verifies against its own snapshot even
	// though the game has moved on.
	res, err := r.Verify(early.ID, testState())
	require.NoError(t, err)
	require.True(t, res.Valid)

	res, err = r.Verify(cp2.ID, later)
	require.NoError(t, err)
	require.True(t, res.Valid)

	list := r.Checkpoints("game-1")
	require.Len(t, list, 2)
	require.Equal(t, early.ID, list[0].ID)
	require.Equal(t, cp2.ID, list[1].ID)
	require.Empty(t, r.Checkpoints("game-2"))
}
