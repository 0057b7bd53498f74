// Package checkpoint provides tamper-evident snapshots of game state. A
// checkpoint hashes a fixed subset of fields at a chosen moment; comparing a
// later snapshot against the recorded hash reveals whether any of those
// fields were altered in between.
package checkpoint

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/fairdeck/fairdeck/commit"
	"github.com/fairdeck/fairdeck/log"
	"github.com/fairdeck/fairdeck/metrics"
)

// ErrUnknownCheckpoint is returned when verifying an id that was never
// created.
var ErrUnknownCheckpoint = errors.New("checkpoint: unknown checkpoint id")

// GameState is the field subset covered by a checkpoint hash.
type GameState struct {
	DeckCommitment string `json:"deckCommitment"`
	CardsDealt     int    `json:"cardsDealt"`
	PlayerCount    int    `json:"playerCount"`
	Round          int    `json:"round"`
}

// Hash renders the state into its canonical colon-joined form and hashes
// it. The field order is part of the contract.
func (s GameState) Hash() string {
	return commit.Hash(s.DeckCommitment + ":" +
		strconv.Itoa(s.CardsDealt) + ":" +
		strconv.Itoa(s.PlayerCount) + ":" +
		strconv.Itoa(s.Round))
}

// Checkpoint is one recorded snapshot. Checkpoints are independent of each
// other; verifying one never touches another.
type Checkpoint struct {
	ID        string    `json:"id"`
	GameID    string    `json:"gameId"`
	StateHash string    `json:"stateHash"`
	State     GameState `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is the outcome of a checkpoint verification. Valid and Tampering
// are always opposites; DivergentFields names what changed.
type Result struct {
	Valid           bool
	Tampering       bool
	DivergentFields []string
}

// Recorder creates and verifies checkpoints. It is safe for concurrent use;
// checkpoints of distinct games share nothing but the map itself.
type Recorder struct {
	mu    sync.RWMutex
	clock clockwork.Clock
	log   log.Logger

	checkpoints map[string]*Checkpoint
	byGame      map[string][]string
}

// NewRecorder returns an empty recorder. A nil clock falls back to the wall
// clock, a nil logger to the default logger.
func NewRecorder(clock clockwork.Clock, l log.Logger) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if l == nil {
		l = log.DefaultLogger()
	}
	return &Recorder{
		clock:       clock,
		log:         l.Named("checkpoint"),
		checkpoints: make(map[string]*Checkpoint),
		byGame:      make(map[string][]string),
	}
}

// Create records a checkpoint of the given state and returns it.
func (r *Recorder) Create(gameID string, state GameState) (*Checkpoint, error) {
	id := uuid.New().String()
	cp := &Checkpoint{
		ID:        id,
		GameID:    gameID,
		StateHash: state.Hash(),
		State:     state,
		Timestamp: r.clock.Now(),
	}
	r.mu.Lock()
	r.checkpoints[id] = cp
	r.byGame[gameID] = append(r.byGame[gameID], id)
	r.mu.Unlock()
	r.log.Debugw("checkpoint created", "game", gameID, "id", id, "stateHash", cp.StateHash)
	return cp, nil
}

// Verify compares the current state against the checkpoint. Any divergence
// in the hashed fields comes back as tampering; a mismatch is reported, not
// returned as an error.
func (r *Recorder) Verify(id string, current GameState) (*Result, error) {
	r.mu.RLock()
	cp, ok := r.checkpoints[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownCheckpoint
	}

	res := &Result{Valid: current.Hash() == cp.StateHash}
	res.Tampering = !res.Valid
	if res.Valid {
		return res, nil
	}

	if current.DeckCommitment != cp.State.DeckCommitment {
		res.DivergentFields = append(res.DivergentFields, "deckCommitment")
	}
	if current.CardsDealt != cp.State.CardsDealt {
		res.DivergentFields = append(res.DivergentFields, "cardsDealt")
	}
	if current.PlayerCount != cp.State.PlayerCount {
		res.DivergentFields = append(res.DivergentFields, "playerCount")
	}
	if current.Round != cp.State.Round {
		res.DivergentFields = append(res.DivergentFields, "round")
	}
	metrics.CheckpointTamper.Inc()
	r.log.Warnw("checkpoint divergence",
		"game", cp.GameID,
		"id", id,
		"fields", res.DivergentFields)
	return res, nil
}

// Checkpoints lists the checkpoints recorded for a game, oldest first.
func (r *Recorder) Checkpoints(gameID string) []*Checkpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byGame[gameID]
	out := make([]*Checkpoint, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.checkpoints[id])
	}
	return out
}
