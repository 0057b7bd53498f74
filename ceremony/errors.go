package ceremony

import "errors"

// ErrAlreadyCommitted is returned when a player tries to commit a second
// seed for the same ceremony.
var ErrAlreadyCommitted = errors.New("player already committed to this ceremony")

// ErrCommitPhaseClosed is returned when a commitment arrives after the
// commitment phase has been completed, or when the phase is completed twice.
var ErrCommitPhaseClosed = errors.New("commitment phase is closed")

// ErrCommitPhaseOpen is returned when a reveal arrives while the ceremony is
// still collecting commitments. The timestamp commitment must be fixed
// before the first reveal, so early reveals are rejected outright.
var ErrCommitPhaseOpen = errors.New("commitment phase still open")

// ErrNoCommitment is returned when a player reveals without having
// committed first.
var ErrNoCommitment = errors.New("no commitment recorded for player")

// ErrRevealMismatch is returned when a revealed seed does not hash to the
// player's recorded commitment.
var ErrRevealMismatch = errors.New("revealed seed does not match commitment")

// ErrTimestampNotCommitted is returned when seed generation is attempted
// before the timestamp commitment has been fixed.
var ErrTimestampNotCommitted = errors.New("timestamp commitment not fixed")

// ErrMissingReveals is returned when seed generation is attempted while at
// least one committed player has not revealed. There is no fallback seed;
// the ceremony aborts instead.
var ErrMissingReveals = errors.New("not all committed players have revealed")

// ErrNotSealed is returned when transcript data is requested before the
// ceremony produced its final seed. The timestamp preimage stays secret
// until then.
var ErrNotSealed = errors.New("ceremony is not sealed")

// ErrUnknownCeremony is returned by the registry for a game id with no live
// ceremony.
var ErrUnknownCeremony = errors.New("no ceremony for game id")

// ErrCeremonyExists is returned when opening a ceremony for a game id that
// already has a live one.
var ErrCeremonyExists = errors.New("ceremony already open for game id")

// ErrNoTranscript is returned when no sealed transcript is stored for the
// requested game id.
var ErrNoTranscript = errors.New("no transcript stored for game id")
