// Package verify is the zero-trust side of the fairness protocol: an
// auditor that records commitments as they are published, then checks the
// revealed values against them using nothing but local hashing. It never
// talks to a server, so it runs identically inside the game backend and on
// an untrusted client.
package verify

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	json "github.com/nikkolasg/hexjson"

	"github.com/fairdeck/fairdeck/commit"
	"github.com/fairdeck/fairdeck/deck"
	"github.com/fairdeck/fairdeck/log"
)

// Check names used in results and the verification log.
const (
	CheckDeckCommitment      = "deckCommitment"
	CheckPlayerCommitments   = "playerCommitments"
	CheckTimestampCommitment = "timestampCommitment"
	CheckFinalSeed           = "finalSeed"
	CheckShuffle             = "shuffle"
	CheckCardPosition        = "cardPosition"
	CheckDealingOrder        = "dealingOrder"
	CheckTranscriptHash      = "transcriptHash"
)

// CheckResult is the outcome of a single verification. A mismatch is never
// an error; it is a reported result. Skipped marks checks that could not
// run for lack of input, which is different from a check that ran and
// failed. Alert tags mismatches that indicate manipulation rather than a
// routine protocol failure.
type CheckResult struct {
	Check   string `json:"check"`
	Valid   bool   `json:"valid"`
	Skipped bool   `json:"skipped"`
	Alert   bool   `json:"alert"`
	Detail  string `json:"detail,omitempty"`
}

// PlayerResult is the per-player outcome of the commitment check.
type PlayerResult struct {
	PlayerID string `json:"playerId"`
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
}

// CommitmentReport is the outcome of checking every recorded player
// commitment against its reveal.
type CommitmentReport struct {
	Overall bool
	Players []PlayerResult
	// Err aggregates one error per failing player; nil when Overall holds.
	Err error
}

// Entry is one line of the append-only verification log.
type Entry struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Check  string    `json:"check"`
	Valid  bool      `json:"valid"`
	Alert  bool      `json:"alert"`
	Detail string    `json:"detail,omitempty"`
}

// Verifier records protocol values as they are published and later checks
// reveals against them. It holds only local state and is not synchronized;
// run one verifier per audit.
type Verifier struct {
	clock clockwork.Clock
	log   log.Logger

	deckCommitment      string
	timestampCommitment string
	playerCommitments   map[string]string
	playerReveals       map[string]string

	entries []Entry
}

// NewVerifier returns an empty verifier. A nil clock falls back to the wall
// clock, a nil logger to the default logger.
func NewVerifier(clock clockwork.Clock, l log.Logger) *Verifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if l == nil {
		l = log.DefaultLogger()
	}
	return &Verifier{
		clock:             clock,
		log:               l.Named("verify"),
		playerCommitments: make(map[string]string),
		playerReveals:     make(map[string]string),
	}
}

// SetDeckCommitment records the deck commitment published by the server.
func (v *Verifier) SetDeckCommitment(commitment string) {
	v.deckCommitment = commitment
}

// SetTimestampCommitment records the timestamp commitment published when
// the ceremony's commitment phase closed.
func (v *Verifier) SetTimestampCommitment(commitment string) {
	v.timestampCommitment = commitment
}

// AddPlayerCommitment records a player's seed commitment.
func (v *Verifier) AddPlayerCommitment(playerID, commitmentHash string) {
	v.playerCommitments[playerID] = commitmentHash
}

// AddPlayerReveal records a player's revealed seed.
func (v *Verifier) AddPlayerReveal(playerID, seedValue string) {
	v.playerReveals[playerID] = seedValue
}

func (v *Verifier) record(res CheckResult) CheckResult {
	v.entries = append(v.entries, Entry{
		ID:     uuid.New().String(),
		Time:   v.clock.Now(),
		Check:  res.Check,
		Valid:  res.Valid,
		Alert:  res.Alert,
		Detail: res.Detail,
	})
	if res.Alert {
		v.log.Warnw("security alert", "check", res.Check, "detail", res.Detail)
	}
	return res
}

func (v *Verifier) skip(check, detail string) CheckResult {
	return v.record(CheckResult{Check: check, Skipped: true, Detail: detail})
}

// VerifyDeckCommitment recomputes the commitment over the revealed deck and
// nonce and compares it. An empty commitment argument falls back to the
// recorded one; with neither available the check is skipped.
func (v *Verifier) VerifyDeckCommitment(revealed deck.Deck, nonce, commitment string) CheckResult {
	if commitment == "" {
		commitment = v.deckCommitment
	}
	if commitment == "" {
		return v.skip(CheckDeckCommitment, "no deck commitment recorded")
	}
	recomputed := deck.Commitment(revealed, nonce)
	if recomputed != commitment {
		return v.record(CheckResult{
			Check:  CheckDeckCommitment,
			Detail: "revealed deck does not match commitment",
		})
	}
	return v.record(CheckResult{Check: CheckDeckCommitment, Valid: true})
}

// VerifyPlayerCommitments checks that every recorded commitment has a
// reveal hashing to it, and that no reveal arrived without a commitment.
func (v *Verifier) VerifyPlayerCommitments() *CommitmentReport {
	ids := make([]string, 0, len(v.playerCommitments))
	for playerID := range v.playerCommitments {
		ids = append(ids, playerID)
	}
	for playerID := range v.playerReveals {
		if _, ok := v.playerCommitments[playerID]; !ok {
			ids = append(ids, playerID)
		}
	}
	sort.Strings(ids)

	report := &CommitmentReport{Overall: true}
	var errs *multierror.Error
	for _, playerID := range ids {
		pr := PlayerResult{PlayerID: playerID, Valid: true}
		commitment, committed := v.playerCommitments[playerID]
		seed, revealed := v.playerReveals[playerID]
		switch {
		case !committed:
			pr.Valid = false
			pr.Reason = "reveal without commitment"
		case !revealed:
			pr.Valid = false
			pr.Reason = "no reveal recorded"
		case commit.Seed(seed) != commitment:
			pr.Valid = false
			pr.Reason = "reveal does not match commitment"
		}
		if !pr.Valid {
			report.Overall = false
			errs = multierror.Append(errs, fmt.Errorf("player %s: %s", playerID, pr.Reason))
		}
		report.Players = append(report.Players, pr)
	}
	report.Err = errs.ErrorOrNil()

	detail := ""
	if report.Err != nil {
		detail = report.Err.Error()
	}
	v.record(CheckResult{
		Check:  CheckPlayerCommitments,
		Valid:  report.Overall,
		Detail: detail,
	})
	return report
}

// VerifyTimestampCommitment checks the revealed timestamp against the
// commitment fixed before reveals began. A mismatch means the server used a
// different timestamp than it committed to, which is grounds for a security
// alert, not a routine failure.
func (v *Verifier) VerifyTimestampCommitment(revealedTimestamp, commitment string) CheckResult {
	if commitment == "" {
		commitment = v.timestampCommitment
	}
	if commitment == "" {
		return v.skip(CheckTimestampCommitment, "no timestamp commitment recorded")
	}
	if commit.Timestamp(revealedTimestamp) != commitment {
		return v.record(CheckResult{
			Check:  CheckTimestampCommitment,
			Alert:  true,
			Detail: "timestamp does not match the committed hash",
		})
	}
	return v.record(CheckResult{Check: CheckTimestampCommitment, Valid: true})
}

// VerifyFinalSeed reproduces the coordinator's seed derivation from the
// recorded reveals and the given timestamp and compares it to the claimed
// final seed. The player commitments must pass first; a seed built on
// unverified reveals proves nothing.
func (v *Verifier) VerifyFinalSeed(finalSeed, timestamp string) CheckResult {
	if len(v.playerReveals) == 0 {
		return v.skip(CheckFinalSeed, "no reveals recorded")
	}
	return v.verifyFinalSeedWith(v.VerifyPlayerCommitments(), finalSeed, timestamp)
}

// verifyFinalSeedWith takes an already computed commitment report so a full
// game audit does not run (and log) the commitment check a second time.
func (v *Verifier) verifyFinalSeedWith(cr *CommitmentReport, finalSeed, timestamp string) CheckResult {
	if len(v.playerReveals) == 0 {
		return v.skip(CheckFinalSeed, "no reveals recorded")
	}
	if !cr.Overall {
		return v.record(CheckResult{
			Check:  CheckFinalSeed,
			Detail: "player commitments failed, seed not checked",
		})
	}

	ids := make([]string, 0, len(v.playerReveals))
	for playerID := range v.playerReveals {
		ids = append(ids, playerID)
	}
	sort.Strings(ids)
	ordered := make([]string, len(ids))
	for i, playerID := range ids {
		ordered[i] = v.playerReveals[playerID]
	}
	if commit.FinalSeed(ordered, timestamp) != finalSeed {
		return v.record(CheckResult{
			Check:  CheckFinalSeed,
			Alert:  true,
			Detail: "final seed does not match reveals and timestamp",
		})
	}
	return v.record(CheckResult{Check: CheckFinalSeed, Valid: true})
}

// VerifyShuffle replays the deterministic shuffle and compares it to the
// claimed result.
func (v *Verifier) VerifyShuffle(original, claimed deck.Deck, seed string) CheckResult {
	ok, err := deck.VerifyShuffle(original, claimed, seed)
	if err != nil {
		return v.skip(CheckShuffle, fmt.Sprintf("shuffle not checkable: %v", err))
	}
	if !ok {
		return v.record(CheckResult{
			Check:  CheckShuffle,
			Detail: "claimed shuffle does not match seed",
		})
	}
	return v.record(CheckResult{Check: CheckShuffle, Valid: true})
}

// VerifyCardPosition checks that the seed places the claimed card at the
// given position.
func (v *Verifier) VerifyCardPosition(original deck.Deck, seed string, position int, claimed deck.Card) CheckResult {
	c, err := deck.CardAt(original, seed, position)
	if err != nil {
		return v.skip(CheckCardPosition, fmt.Sprintf("position not checkable: %v", err))
	}
	if c != claimed {
		return v.record(CheckResult{
			Check:  CheckCardPosition,
			Detail: fmt.Sprintf("position %d holds %s, claim was %s", position, c, claimed),
		})
	}
	return v.record(CheckResult{Check: CheckCardPosition, Valid: true})
}

// VerifyDealingOrder replays the seed-driven dealing order over the given
// players and compares it to the claimed order.
func (v *Verifier) VerifyDealingOrder(seed string, playerIDs, claimed []string) CheckResult {
	expected, err := deck.DealingOrder(seed, playerIDs)
	if err != nil {
		return v.skip(CheckDealingOrder, fmt.Sprintf("dealing order not checkable: %v", err))
	}
	if len(expected) != len(claimed) {
		return v.record(CheckResult{
			Check:  CheckDealingOrder,
			Detail: "claimed dealing order has wrong length",
		})
	}
	for i := range expected {
		if expected[i] != claimed[i] {
			return v.record(CheckResult{
				Check:  CheckDealingOrder,
				Detail: fmt.Sprintf("order diverges at position %d", i),
			})
		}
	}
	return v.record(CheckResult{Check: CheckDealingOrder, Valid: true})
}

// Log returns a copy of the verification log.
func (v *Verifier) Log() []Entry {
	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	return out
}

// ExportLog encodes the verification log as JSON for hand-off to another
// auditor.
func (v *Verifier) ExportLog() ([]byte, error) {
	return json.Marshal(v.entries)
}

// Reset clears all recorded values and the verification log.
func (v *Verifier) Reset() {
	v.deckCommitment = ""
	v.timestampCommitment = ""
	v.playerCommitments = make(map[string]string)
	v.playerReveals = make(map[string]string)
	v.entries = nil
}
