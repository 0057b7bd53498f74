package deck

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/fairdeck/fairdeck/commit"
)

// maxSampleAttempts caps the rejection-sampling walk for a single draw. The
// chance of a single rejection is below 52/2^32, so hitting the cap means the
// hash function is broken, not bad luck.
const maxSampleAttempts = 100

// dealingDomain separates dealing-order draws from shuffle draws made with
// the same seed.
const dealingDomain = ":dealing"

// ErrSamplingExhausted is returned when a draw rejects maxSampleAttempts
// candidates in a row. There is deliberately no modulo fallback: a biased
// draw is worse than no draw.
var ErrSamplingExhausted = errors.New("deck: rejection sampling attempts exhausted")

// sampleRange is the value range of the fixed-width integer prefix taken
// from each draw hash (first 8 hex characters, an unsigned 32-bit value).
const sampleRange = uint64(1) << 32

// UnbiasedIndex derives a uniformly distributed index in [0, i] from the
// seed. Each candidate comes from hash(seed + ":" + i + ":" + attempt); a
// candidate is accepted only if it falls below the largest multiple of i+1
// not exceeding 2^32, which removes the modulo bias of the naive reduction.
// Callers start at attempt 0; rejected candidates bump the attempt counter.
func UnbiasedIndex(seed string, i, attempt int) (int, error) {
	if i < 0 {
		return 0, fmt.Errorf("deck: negative shuffle index %d", i)
	}
	n := uint64(i) + 1
	limit := (sampleRange / n) * n
	for ; attempt < maxSampleAttempts; attempt++ {
		digest := commit.Hash(seed + ":" + strconv.Itoa(i) + ":" + strconv.Itoa(attempt))
		candidate, err := strconv.ParseUint(digest[:8], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("deck: parsing draw digest: %w", err)
		}
		if candidate < limit {
			return int(candidate % n), nil
		}
	}
	return 0, ErrSamplingExhausted
}

// Shuffle applies the seeded Fisher-Yates walk to a copy of d, from the last
// index down to one, drawing each swap partner with UnbiasedIndex. It
// returns the shuffled deck and the permutation that produced it, where
// perm[i] is the index in d of the card now at position i. The function is
// pure: identical (deck, seed) inputs always yield identical outputs.
func Shuffle(d Deck, seed string) (Deck, []int, error) {
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}
	shuffled := d.Clone()
	perm := make([]int, len(d))
	for i := range perm {
		perm[i] = i
	}
	for i := len(shuffled) - 1; i > 0; i-- {
		j, err := UnbiasedIndex(seed, i, 0)
		if err != nil {
			return nil, nil, err
		}
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		perm[i], perm[j] = perm[j], perm[i]
	}
	return shuffled, perm, nil
}

// VerifyShuffle re-runs the deterministic shuffle and compares the claimed
// result card by card. A false return means the claim does not match the
// seed; an error means the inputs could not be checked at all.
func VerifyShuffle(original, claimed Deck, seed string) (bool, error) {
	if len(claimed) != len(original) {
		return false, nil
	}
	expected, _, err := Shuffle(original, seed)
	if err != nil {
		return false, err
	}
	for i := range expected {
		if expected[i].Suit != claimed[i].Suit || expected[i].Rank != claimed[i].Rank {
			return false, nil
		}
	}
	return true, nil
}

// CardAt returns the card the seed places at the given position of the
// shuffled deck.
func CardAt(original Deck, seed string, position int) (Card, error) {
	if position < 0 || position >= len(original) {
		return Card{}, fmt.Errorf("deck: position %d out of range", position)
	}
	shuffled, _, err := Shuffle(original, seed)
	if err != nil {
		return Card{}, err
	}
	return shuffled[position], nil
}

// DealingOrder permutes the player ids with the same draw primitive as the
// card shuffle, under a dealing-specific domain so the two permutations stay
// independent. Player ids are first sorted lexicographically so that every
// implementation starts the walk from the same order.
func DealingOrder(seed string, playerIDs []string) ([]string, error) {
	order := make([]string, len(playerIDs))
	copy(order, playerIDs)
	sort.Strings(order)
	for i := 1; i < len(order); i++ {
		if order[i] == order[i-1] {
			return nil, fmt.Errorf("deck: duplicate player id %q", order[i])
		}
	}
	for i := len(order) - 1; i > 0; i-- {
		j, err := UnbiasedIndex(seed+dealingDomain, i, 0)
		if err != nil {
			return nil, err
		}
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}
