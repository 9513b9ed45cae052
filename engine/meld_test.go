package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindMelds(t *testing.T) {
	hand := []Card{card(SuitClubs, RankK), card(SuitClubs, RankQ), card(SuitHearts, RankA)}
	assert.Equal(t, []Meld{{Suit: SuitClubs, Points: 60}}, FindMelds(hand))

	kingOnly := []Card{card(SuitClubs, RankK), card(SuitHearts, RankQ)}
	assert.Empty(t, FindMelds(kingOnly))
}

func TestFindMeldsAllSuits(t *testing.T) {
	var hand []Card
	for _, s := range Suits {
		hand = append(hand, card(s, RankK), card(s, RankQ))
	}
	melds := FindMelds(hand)
	assert.Len(t, melds, 4)
	assert.Equal(t, 280, MeldTotal(melds))
}

func TestMeldPoints(t *testing.T) {
	assert.Equal(t, 100, MeldPoints(SuitHearts))
	assert.Equal(t, 80, MeldPoints(SuitDiamonds))
	assert.Equal(t, 60, MeldPoints(SuitClubs))
	assert.Equal(t, 40, MeldPoints(SuitSpades))
	assert.Equal(t, 0, MeldPoints(NoSuit))
}

func TestIsMarriageCard(t *testing.T) {
	assert.True(t, IsMarriageCard(card(SuitSpades, RankK)))
	assert.True(t, IsMarriageCard(card(SuitSpades, RankQ)))
	assert.False(t, IsMarriageCard(card(SuitSpades, RankA)))
}
