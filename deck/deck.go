// Package deck models a standard 52-card deck together with the canonical
// serialization every commitment and every hash-derived draw is computed
// over. The "suit:rank" card form and the "|" joiner are part of the audit
// wire contract and must never change silently.
package deck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fairdeck/fairdeck/commit"
)

// Suit identifies one of the four french suits.
type Suit string

const (
	Spades   Suit = "spades"
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
)

// Rank identifies a card value, two through ace.
type Rank string

// Suits lists the suits in canonical deck order.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// Ranks lists the ranks in canonical deck order.
var Ranks = []Rank{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// Size is the number of cards in a full deck.
const Size = 52

// Card is a single playing card.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// String renders the canonical "suit:rank" form used in all hash preimages.
func (c Card) String() string {
	return string(c.Suit) + ":" + string(c.Rank)
}

// Valid reports whether suit and rank are part of the standard deck.
func (c Card) Valid() bool {
	validSuit := false
	for _, s := range Suits {
		if c.Suit == s {
			validSuit = true
			break
		}
	}
	if !validSuit {
		return false
	}
	for _, r := range Ranks {
		if c.Rank == r {
			return true
		}
	}
	return false
}

// ParseCard parses the canonical "suit:rank" form.
func ParseCard(s string) (Card, error) {
	suit, rank, found := strings.Cut(s, ":")
	if !found {
		return Card{}, fmt.Errorf("deck: malformed card %q", s)
	}
	c := Card{Suit: Suit(suit), Rank: Rank(rank)}
	if !c.Valid() {
		return Card{}, fmt.Errorf("deck: unknown card %q", s)
	}
	return c, nil
}

// Deck is an ordered sequence of cards.
type Deck []Card

// ErrInvalidDeck flags a deck that is not exactly the 52 unique standard
// cards.
var ErrInvalidDeck = errors.New("deck: not a full deck of 52 unique cards")

// New returns the full deck in canonical order: suits in Suits order, each
// running from two to ace.
func New() Deck {
	d := make(Deck, 0, Size)
	for _, s := range Suits {
		for _, r := range Ranks {
			d = append(d, Card{Suit: s, Rank: r})
		}
	}
	return d
}

// Clone returns an independent copy of the deck.
func (d Deck) Clone() Deck {
	out := make(Deck, len(d))
	copy(out, d)
	return out
}

// Equal reports whether both decks hold the same cards in the same order.
func (d Deck) Equal(other Deck) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}

// Serialize renders the canonical deck form: "suit:rank" cards joined by
// "|".
func (d Deck) Serialize() string {
	parts := make([]string, len(d))
	for i, c := range d {
		parts[i] = c.String()
	}
	return strings.Join(parts, "|")
}

// Validate checks that the deck holds exactly the 52 unique standard cards.
func (d Deck) Validate() error {
	if len(d) != Size {
		return ErrInvalidDeck
	}
	seen := make(map[Card]struct{}, Size)
	for _, c := range d {
		if !c.Valid() {
			return ErrInvalidDeck
		}
		if _, dup := seen[c]; dup {
			return ErrInvalidDeck
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Commitment returns the binding commitment over the deck under the given
// nonce. The nonce keeps a known deck order from being brute-forced out of
// the bare hash.
func Commitment(d Deck, nonce string) string {
	return commit.Deck(d.Serialize(), nonce)
}
