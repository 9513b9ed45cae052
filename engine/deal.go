// engine/deal.go
package engine

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrInvalidPlayerCount = errors.New("player count must be 2, 3 or 4")

// Deal is the result of one deal: a hand per seat and the hidden musik.
type Deal struct {
	Hands [][]Card
	Musik []Card
}

// Layout returns cards per seat and musik size for a table. Four players are
// the only table where the musik is optional.
func Layout(playerCount int, withMusik bool) (handSize, musikSize int, err error) {
	switch playerCount {
	case 2:
		return 12, 0, nil
	case 3:
		return 7, 3, nil
	case 4:
		if withMusik {
			return 5, 4, nil
		}
		return 6, 0, nil
	default:
		return 0, 0, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, playerCount)
	}
}

// HasMusik reports whether a table of playerCount deals a musik.
func HasMusik(playerCount int, withMusik bool) bool {
	_, musik, err := Layout(playerCount, withMusik)
	return err == nil && musik > 0
}

// Shuffle returns a uniformly shuffled copy of deck. rand.Shuffle is a
// Fisher-Yates shuffle; a nil rng uses the goroutine-safe global source.
func Shuffle(deck []Card, rng *rand.Rand) []Card {
	shuffled := make([]Card, len(deck))
	copy(shuffled, deck)
	swap := func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	if rng == nil {
		rand.Shuffle(len(shuffled), swap)
	} else {
		rng.Shuffle(len(shuffled), swap)
	}
	return shuffled
}

// DealCards shuffles a fresh deck and deals it round-robin, seat 0 first.
// Whatever is left after the hands becomes the musik.
func DealCards(playerCount int, withMusik bool, rng *rand.Rand) (Deal, error) {
	handSize, musikSize, err := Layout(playerCount, withMusik)
	if err != nil {
		return Deal{}, err
	}
	deck := Shuffle(BuildDeck(), rng)
	if handSize*playerCount+musikSize != len(deck) {
		return Deal{}, fmt.Errorf("deal of %d x %d + %d does not exhaust deck", playerCount, handSize, musikSize)
	}

	hands := make([][]Card, playerCount)
	for p := range hands {
		hands[p] = make([]Card, 0, handSize)
	}
	idx := 0
	for i := 0; i < handSize; i++ {
		for p := 0; p < playerCount; p++ {
			hands[p] = append(hands[p], deck[idx])
			idx++
		}
	}
	var musik []Card
	if musikSize > 0 {
		musik = append([]Card(nil), deck[idx:]...)
	}
	return Deal{Hands: hands, Musik: musik}, nil
}
