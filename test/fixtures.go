// Package test offers small helpers and fixtures shared by tests across
// packages: a configured logger and fully sealed transcripts to feed stores
// and verifiers.
package test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/fairdeck/fairdeck/ceremony"
	"github.com/fairdeck/fairdeck/commit"
	"github.com/fairdeck/fairdeck/deck"
)

// Players maps the fixture player ids to the seeds they reveal.
var Players = map[string]string{
	"alice": "fixture-seed-alice",
	"bob":   "fixture-seed-bob",
}

// FixtureTime is the instant fixture ceremonies fix their timestamp at.
var FixtureTime = time.UnixMilli(1712000000000)

// NewTranscript runs a complete two-player ceremony at a fixed clock time,
// shuffles a standard deck with the resulting seed and returns the sealed
// transcript for the given game id.
func NewTranscript(t *testing.T, gameID string) *ceremony.Transcript {
	t.Helper()

	clock := clockwork.NewFakeClockAt(FixtureTime)
	coord := ceremony.NewCoordinator(gameID, clock, Logger(t))
	for player, seed := range Players {
		require.NoError(t, coord.CommitSeed(player, commit.Seed(seed)))
	}
	_, err := coord.CompleteCommitmentPhase()
	require.NoError(t, err)
	for player, seed := range Players {
		require.NoError(t, coord.RevealSeed(player, seed))
	}
	res, err := coord.GenerateSeed()
	require.NoError(t, err)
	data, err := coord.TranscriptData()
	require.NoError(t, err)

	original := deck.New()
	shuffled, permutation, err := deck.Shuffle(original, res.FinalSeed)
	require.NoError(t, err)

	nonce := "746573746e6f6e6365"
	tr, err := ceremony.NewTranscript(data, original, shuffled, permutation,
		deck.Commitment(shuffled, nonce), nonce)
	require.NoError(t, err)
	return tr
}
