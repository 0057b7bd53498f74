// Package ceremony implements the commit-reveal randomness ceremony that
// seeds every shuffle. Players commit to secret seeds, the coordinator fixes
// a timestamp commitment before any reveal, and the final seed is derived
// from all reveals plus the committed timestamp, so neither the server nor
// any subset of players can steer the outcome.
package ceremony

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/fairdeck/fairdeck/commit"
	"github.com/fairdeck/fairdeck/log"
)

// Status is the phase a ceremony is in.
type Status uint32

const (
	// Collecting accepts player commitments and nothing else.
	Collecting Status = iota
	// RevealReady has the timestamp commitment fixed and accepts reveals.
	RevealReady
	// Sealed has produced its final seed and is immutable.
	Sealed
)

func (s Status) String() string {
	switch s {
	case Collecting:
		return "Collecting"
	case RevealReady:
		return "RevealReady"
	case Sealed:
		return "Sealed"
	default:
		return "Unknown"
	}
}

// SeedResult is the outcome of a sealed ceremony.
type SeedResult struct {
	FinalSeed           string
	Timestamp           string
	TimestampCommitment string
	Participants        []string
}

// TranscriptData is everything a sealed ceremony discloses for audit: the
// timestamp preimage, every commitment and every reveal.
type TranscriptData struct {
	GameID      string
	Timestamp   string
	FinalSeed   string
	Commitments map[string]string
	Reveals     map[string]string
}

// StatusReport is a point-in-time snapshot of a ceremony.
type StatusReport struct {
	GameID             string
	Phase              Status
	Commitments        int
	Reveals            int
	TimestampCommitted bool
}

// Coordinator runs a single commit-reveal ceremony. It is a plain state
// machine with no internal locking; callers that share one across
// goroutines must serialize access, which is what the Registry does.
type Coordinator struct {
	gameID string
	phase  Status
	clock  clockwork.Clock
	log    log.Logger

	commitments map[string]string
	reveals     map[string]string

	// timestamp is fixed when the commitment phase closes, strictly before
	// the first reveal can be accepted. Its hash is published immediately;
	// the preimage stays private until the ceremony seals.
	timestamp           string
	timestampCommitment string

	result *SeedResult
}

// NewCoordinator returns a ceremony in the Collecting phase. A nil clock
// falls back to the wall clock, a nil logger to the default logger.
func NewCoordinator(gameID string, clock clockwork.Clock, l log.Logger) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if l == nil {
		l = log.DefaultLogger()
	}
	return &Coordinator{
		gameID:      gameID,
		phase:       Collecting,
		clock:       clock,
		log:         l.Named("ceremony"),
		commitments: make(map[string]string),
		reveals:     make(map[string]string),
	}
}

// GameID returns the game this ceremony belongs to.
func (c *Coordinator) GameID() string {
	return c.gameID
}

// CommitSeed records a player's commitment hash. Each player commits at most
// once, and only while the ceremony is collecting.
func (c *Coordinator) CommitSeed(playerID, commitmentHash string) error {
	if c.phase != Collecting {
		return ErrCommitPhaseClosed
	}
	if _, ok := c.commitments[playerID]; ok {
		return ErrAlreadyCommitted
	}
	c.commitments[playerID] = commitmentHash
	c.log.Debugw("commitment recorded", "game", c.gameID, "player", playerID)
	return nil
}

// CompleteCommitmentPhase closes the commitment window and fixes the
// timestamp commitment. It returns the commitment hash, which must be
// published before any reveal arrives: once the timestamp is fixed, the
// server cannot grind seed outcomes by shifting it afterwards.
func (c *Coordinator) CompleteCommitmentPhase() (string, error) {
	if c.phase != Collecting {
		return "", ErrCommitPhaseClosed
	}
	c.timestamp = strconv.FormatInt(c.clock.Now().UnixMilli(), 10)
	c.timestampCommitment = commit.Timestamp(c.timestamp)
	c.phase = RevealReady
	c.log.Infow("commitment phase closed",
		"game", c.gameID,
		"commitments", len(c.commitments),
		"timestampCommitment", c.timestampCommitment)
	return c.timestampCommitment, nil
}

// TimestampCommitment returns the fixed timestamp commitment, with false
// while the ceremony is still collecting.
func (c *Coordinator) TimestampCommitment() (string, bool) {
	if c.timestampCommitment == "" {
		return "", false
	}
	return c.timestampCommitment, true
}

// RevealSeed records a player's revealed seed. The reveal must hash to the
// player's commitment and can only happen after the commitment phase closed.
func (c *Coordinator) RevealSeed(playerID, seedValue string) error {
	switch c.phase {
	case Collecting:
		return ErrCommitPhaseOpen
	case Sealed:
		return ErrCommitPhaseClosed
	}
	commitment, ok := c.commitments[playerID]
	if !ok {
		return ErrNoCommitment
	}
	if commit.Seed(seedValue) != commitment {
		c.log.Warnw("reveal does not match commitment", "game", c.gameID, "player", playerID)
		return ErrRevealMismatch
	}
	c.reveals[playerID] = seedValue
	c.log.Debugw("reveal recorded", "game", c.gameID, "player", playerID)
	return nil
}

// GenerateSeed derives the final seed once every committed player has
// revealed. On any missing input it returns an error and leaves the
// ceremony state untouched; there is deliberately no fallback randomness,
// an incomplete ceremony aborts rather than degrade.
func (c *Coordinator) GenerateSeed() (*SeedResult, error) {
	if c.phase == Sealed {
		return c.result, nil
	}
	if c.phase != RevealReady || c.timestampCommitment == "" {
		return nil, ErrTimestampNotCommitted
	}
	participants := make([]string, 0, len(c.commitments))
	for playerID := range c.commitments {
		if _, revealed := c.reveals[playerID]; !revealed {
			c.log.Warnw("seed generation aborted", "game", c.gameID, "missingReveal", playerID)
			return nil, ErrMissingReveals
		}
		participants = append(participants, playerID)
	}
	sort.Strings(participants)

	ordered := make([]string, len(participants))
	for i, playerID := range participants {
		ordered[i] = c.reveals[playerID]
	}
	c.result = &SeedResult{
		FinalSeed:           commit.FinalSeed(ordered, c.timestamp),
		Timestamp:           c.timestamp,
		TimestampCommitment: c.timestampCommitment,
		Participants:        participants,
	}
	c.phase = Sealed
	c.log.Infow("ceremony sealed",
		"game", c.gameID,
		"participants", strings.Join(participants, ","),
		"finalSeed", c.result.FinalSeed)
	return c.result, nil
}

// TranscriptData discloses the full ceremony record. Before sealing it
// returns ErrNotSealed so the timestamp preimage cannot leak early.
func (c *Coordinator) TranscriptData() (*TranscriptData, error) {
	if c.phase != Sealed {
		return nil, ErrNotSealed
	}
	data := &TranscriptData{
		GameID:      c.gameID,
		Timestamp:   c.timestamp,
		FinalSeed:   c.result.FinalSeed,
		Commitments: make(map[string]string, len(c.commitments)),
		Reveals:     make(map[string]string, len(c.reveals)),
	}
	for playerID, hash := range c.commitments {
		data.Commitments[playerID] = hash
	}
	for playerID, seed := range c.reveals {
		data.Reveals[playerID] = seed
	}
	return data, nil
}

// Status reports the current phase and progress counts.
func (c *Coordinator) Status() StatusReport {
	return StatusReport{
		GameID:             c.gameID,
		Phase:              c.phase,
		Commitments:        len(c.commitments),
		Reveals:            len(c.reveals),
		TimestampCommitted: c.timestampCommitment != "",
	}
}

// Reset discards everything and returns the ceremony to Collecting. The
// timestamp and its commitment are dropped too; a reused ceremony gets a
// fresh one when its commitment phase closes again.
func (c *Coordinator) Reset() {
	c.phase = Collecting
	c.commitments = make(map[string]string)
	c.reveals = make(map[string]string)
	c.timestamp = ""
	c.timestampCommitment = ""
	c.result = nil
	c.log.Infow("ceremony reset", "game", c.gameID)
}
