package ceremony

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/fairdeck/fairdeck/deck"
	"github.com/fairdeck/fairdeck/entropy"
	"github.com/fairdeck/fairdeck/log"
	"github.com/fairdeck/fairdeck/metrics"
)

// deckNonceLength is the byte length of the random nonce bound into each
// deck commitment.
const deckNonceLength = 16

// Registry owns the live ceremonies, one coordinator per game id behind its
// own mutex. Coordinators are not internally synchronized, so every access
// goes through the handle lock; that is what makes "check all revealed" and
// "derive the seed" one atomic step and keeps a ceremony from ever
// producing two final seeds.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*handle

	store     Store
	clock     clockwork.Clock
	log       log.Logger
	random    io.Reader
	cacheSize int
}

type handle struct {
	mu    sync.Mutex
	coord *Coordinator
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the clock used to fix ceremony timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// WithLogger overrides the registry logger.
func WithLogger(l log.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// WithRandom overrides the randomness source used for deck commitment
// nonces. Tests only.
func WithRandom(rd io.Reader) Option {
	return func(r *Registry) {
		r.random = rd
	}
}

// WithCacheSize puts an LRU read cache of the given size in front of the
// transcript store. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(r *Registry) {
		r.cacheSize = n
	}
}

// NewRegistry returns a registry archiving sealed transcripts to the given
// store.
func NewRegistry(store Store, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, errors.New("ceremony: registry needs a transcript store")
	}
	r := &Registry{
		handles: make(map[string]*handle),
		store:   store,
		clock:   clockwork.NewRealClock(),
		log:     log.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cacheSize > 0 {
		cached, err := NewCachingStore(r.store, r.cacheSize, r.log)
		if err != nil {
			return nil, fmt.Errorf("ceremony: building transcript cache: %w", err)
		}
		r.store = cached
	}
	return r, nil
}

// Open starts a fresh ceremony for the game id.
func (r *Registry) Open(gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[gameID]; ok {
		return ErrCeremonyExists
	}
	r.handles[gameID] = &handle{coord: NewCoordinator(gameID, r.clock, r.log)}
	r.log.Infow("ceremony opened", "game", gameID)
	return nil
}

func (r *Registry) handle(gameID string) (*handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[gameID]
	if !ok {
		return nil, ErrUnknownCeremony
	}
	return h, nil
}

// CommitSeed records a player commitment on the game's live ceremony.
func (r *Registry) CommitSeed(gameID, playerID, commitmentHash string) error {
	h, err := r.handle(gameID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.coord.CommitSeed(playerID, commitmentHash)
}

// CompleteCommitmentPhase closes the game's commitment window and returns
// the timestamp commitment to publish.
func (r *Registry) CompleteCommitmentPhase(gameID string) (string, error) {
	h, err := r.handle(gameID)
	if err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.coord.CompleteCommitmentPhase()
}

// TimestampCommitment returns the game's fixed timestamp commitment, with
// false while the commitment phase is still open.
func (r *Registry) TimestampCommitment(gameID string) (string, bool, error) {
	h, err := r.handle(gameID)
	if err != nil {
		return "", false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.coord.TimestampCommitment()
	return c, ok, nil
}

// RevealSeed records a player reveal on the game's live ceremony.
func (r *Registry) RevealSeed(gameID, playerID, seedValue string) error {
	h, err := r.handle(gameID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	err = h.coord.RevealSeed(playerID, seedValue)
	if errors.Is(err, ErrRevealMismatch) {
		metrics.RevealMismatches.Inc()
	}
	return err
}

// GenerateSeed derives the game's final seed. Once a ceremony is sealed,
// every further call returns the same result, so concurrent callers cannot
// observe two different seeds.
func (r *Registry) GenerateSeed(gameID string) (*SeedResult, error) {
	h, err := r.handle(gameID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return r.generateSeedLocked(h)
}

func (r *Registry) generateSeedLocked(h *handle) (*SeedResult, error) {
	sealedBefore := h.coord.Status().Phase == Sealed
	res, err := h.coord.GenerateSeed()
	switch {
	case errors.Is(err, ErrTimestampNotCommitted):
		metrics.CeremonyAborted.WithLabelValues("timestamp_not_committed").Inc()
	case errors.Is(err, ErrMissingReveals):
		metrics.CeremonyAborted.WithLabelValues("missing_reveals").Inc()
	case err == nil && !sealedBefore:
		metrics.CeremonySealed.Inc()
	}
	return res, err
}

// Status reports the game's ceremony phase and progress.
func (r *Registry) Status(gameID string) (StatusReport, error) {
	h, err := r.handle(gameID)
	if err != nil {
		return StatusReport{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.coord.Status(), nil
}

// Reset discards the game's ceremony state and reopens it for commitments.
func (r *Registry) Reset(gameID string) error {
	h, err := r.handle(gameID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.coord.Reset()
	return nil
}

// Finalize seals the ceremony, shuffles the given deck with the final seed,
// commits to the shuffled order under a fresh nonce, archives the full
// transcript and drops the live ceremony. The transcript is the only thing
// that survives; everything needed for audit is inside it.
func (r *Registry) Finalize(ctx context.Context, gameID string, original deck.Deck) (*Transcript, error) {
	h, err := r.handle(gameID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := r.generateSeedLocked(h)
	if err != nil {
		return nil, err
	}
	data, err := h.coord.TranscriptData()
	if err != nil {
		return nil, err
	}
	shuffled, permutation, err := deck.Shuffle(original, res.FinalSeed)
	if err != nil {
		return nil, err
	}
	nonceBytes, err := entropy.GetRandom(r.random, deckNonceLength)
	if err != nil {
		return nil, fmt.Errorf("ceremony: reading deck nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)
	deckCommitment := deck.Commitment(shuffled, nonce)

	t, err := NewTranscript(data, original, shuffled, permutation, deckCommitment, nonce)
	if err != nil {
		return nil, err
	}
	if err := r.store.Put(ctx, t); err != nil {
		// Keep the live ceremony so finalization can be retried.
		return nil, fmt.Errorf("ceremony: archiving transcript: %w", err)
	}
	metrics.TranscriptsArchived.Inc()

	r.mu.Lock()
	delete(r.handles, gameID)
	r.mu.Unlock()
	r.log.Infow("ceremony finalized",
		"game", gameID,
		"deckCommitment", deckCommitment,
		"transcriptHash", t.TranscriptHash)
	return t, nil
}

// Transcript returns the archived transcript for a finalized game.
func (r *Registry) Transcript(ctx context.Context, gameID string) (*Transcript, error) {
	return r.store.Get(ctx, gameID)
}

// Close closes the transcript store.
func (r *Registry) Close(ctx context.Context) error {
	return r.store.Close(ctx)
}
