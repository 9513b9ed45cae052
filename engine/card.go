// engine/card.go
package engine

import (
	"fmt"
	"strings"
)

type Suit string

type Rank string

// NoSuit marks an absent lead suit or an undecided trump.
const NoSuit Suit = ""

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
)

const (
	RankA  Rank = "A"
	Rank10 Rank = "10"
	RankK  Rank = "K"
	RankQ  Rank = "Q"
	RankJ  Rank = "J"
	Rank9  Rank = "9"
)

// DeckSize is the number of cards in a Tysiąc deck.
const DeckSize = 24

// DeckPoints is the total card-point value of the whole deck.
const DeckPoints = 120

// Suits in deck-building order.
var Suits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// Ranks from highest to lowest.
var Ranks = []Rank{RankA, Rank10, RankK, RankQ, RankJ, Rank9}

func (s Suit) Valid() bool {
	switch s {
	case SuitHearts, SuitDiamonds, SuitClubs, SuitSpades:
		return true
	default:
		return false
	}
}

func (r Rank) Valid() bool {
	return rankStrength(r) > 0
}

type Card struct {
	Suit Suit   `json:"suit"`
	Rank Rank   `json:"rank"`
	ID   string `json:"id"`
}

// NewCard builds a card with its deterministic rank_suit id.
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank, ID: CardID(suit, rank)}
}

func CardID(suit Suit, rank Rank) string {
	return fmt.Sprintf("%s_%s", rank, suit)
}

// ParseCardID is the inverse of CardID.
func ParseCardID(id string) (Card, error) {
	rank, suit, ok := strings.Cut(id, "_")
	if !ok {
		return Card{}, fmt.Errorf("malformed card id %q", id)
	}
	c := NewCard(Suit(suit), Rank(rank))
	if !c.Suit.Valid() || !c.Rank.Valid() {
		return Card{}, fmt.Errorf("unknown card %q", id)
	}
	return c, nil
}

func (c Card) String() string {
	return c.ID
}

func rankStrength(r Rank) int {
	switch r {
	case RankA:
		return 6
	case Rank10:
		return 5
	case RankK:
		return 4
	case RankQ:
		return 3
	case RankJ:
		return 2
	case Rank9:
		return 1
	default:
		return 0
	}
}

func rankPoints(r Rank) int {
	switch r {
	case RankA:
		return 11
	case Rank10:
		return 10
	case RankK:
		return 4
	case RankQ:
		return 3
	case RankJ:
		return 2
	default:
		return 0
	}
}

// Points is the card-point value of a single card.
func (c Card) Points() int {
	return rankPoints(c.Rank)
}

// CardPoints sums the card-point value of cards.
func CardPoints(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += c.Points()
	}
	return total
}

// BuildDeck returns the 24-card deck in suit-major order.
func BuildDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, NewCard(s, r))
		}
	}
	return deck
}

// HasSuit reports whether any card in hand is of suit.
func HasSuit(hand []Card, suit Suit) bool {
	for _, c := range hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

// IndexOf returns the position of the card with id in hand, or -1.
func IndexOf(hand []Card, id string) int {
	for i, c := range hand {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// RemoveCard returns hand without the card at index i. The input is not modified.
func RemoveCard(hand []Card, i int) []Card {
	out := make([]Card, 0, len(hand)-1)
	out = append(out, hand[:i]...)
	return append(out, hand[i+1:]...)
}
