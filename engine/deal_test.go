package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutPerPlayerCount(t *testing.T) {
	cases := []struct {
		players   int
		withMusik bool
		hand      int
		musik     int
	}{
		{4, true, 5, 4},
		{4, false, 6, 0},
		{3, false, 7, 3},
		{3, true, 7, 3},
		{2, true, 12, 0},
		{2, false, 12, 0},
	}
	for _, tc := range cases {
		hand, musik, err := Layout(tc.players, tc.withMusik)
		require.NoError(t, err)
		assert.Equal(t, tc.hand, hand, "players=%d musik=%v", tc.players, tc.withMusik)
		assert.Equal(t, tc.musik, musik, "players=%d musik=%v", tc.players, tc.withMusik)
	}

	_, _, err := Layout(5, false)
	assert.ErrorIs(t, err, ErrInvalidPlayerCount)
	_, _, err = Layout(1, true)
	assert.ErrorIs(t, err, ErrInvalidPlayerCount)
}

func TestDealExhaustsDeck(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, players := range []int{2, 3, 4} {
		for _, withMusik := range []bool{true, false} {
			d, err := DealCards(players, withMusik, rng)
			require.NoError(t, err)
			require.Len(t, d.Hands, players)

			seen := map[string]bool{}
			for _, hand := range d.Hands {
				for _, c := range hand {
					require.False(t, seen[c.ID], "duplicate card %s", c.ID)
					seen[c.ID] = true
				}
			}
			for _, c := range d.Musik {
				require.False(t, seen[c.ID], "duplicate musik card %s", c.ID)
				seen[c.ID] = true
			}
			assert.Len(t, seen, DeckSize)
			for _, c := range BuildDeck() {
				assert.True(t, seen[c.ID], "missing %s", c.ID)
			}
		}
	}
}

func TestDealDeterministicForSeed(t *testing.T) {
	d1, err := DealCards(3, true, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	d2, err := DealCards(3, true, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestDealRoundRobin(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	deck := Shuffle(BuildDeck(), rand.New(rand.NewSource(7)))
	d, err := DealCards(4, true, rng)
	require.NoError(t, err)

	assert.Equal(t, deck[0], d.Hands[0][0])
	assert.Equal(t, deck[1], d.Hands[1][0])
	assert.Equal(t, deck[4], d.Hands[0][1])
	assert.Equal(t, deck[20:], d.Musik)
}

func TestShuffleFairness(t *testing.T) {
	const trials = 24000
	rng := rand.New(rand.NewSource(2024))
	deck := BuildDeck()
	// counts[card][position]
	counts := make(map[string][]int, len(deck))
	for _, c := range deck {
		counts[c.ID] = make([]int, len(deck))
	}
	for i := 0; i < trials; i++ {
		for pos, c := range Shuffle(deck, rng) {
			counts[c.ID][pos]++
		}
	}

	expected := float64(trials) / float64(len(deck))
	for id, positions := range counts {
		for pos, n := range positions {
			assert.InDelta(t, expected, float64(n), expected*0.2, "card %s at position %d", id, pos)
		}
	}
}

func TestShuffleDoesNotModifyInput(t *testing.T) {
	deck := BuildDeck()
	_ = Shuffle(deck, rand.New(rand.NewSource(3)))
	assert.Equal(t, BuildDeck(), deck)
}

func TestCardIDs(t *testing.T) {
	c := NewCard(SuitHearts, RankA)
	assert.Equal(t, "A_hearts", c.ID)

	parsed, err := ParseCardID("10_spades")
	require.NoError(t, err)
	assert.Equal(t, NewCard(SuitSpades, Rank10), parsed)

	_, err = ParseCardID("7_spades")
	assert.Error(t, err)
	_, err = ParseCardID("garbage")
	assert.Error(t, err)
}

func TestDeckPointsTotal(t *testing.T) {
	assert.Equal(t, DeckPoints, CardPoints(BuildDeck()))
}
