// engine/meld.go
package engine

// Meld is a declared marriage (King and Queen of one suit).
type Meld struct {
	Suit   Suit `json:"suit"`
	Points int  `json:"points"`
}

func MeldPoints(suit Suit) int {
	switch suit {
	case SuitHearts:
		return 100
	case SuitDiamonds:
		return 80
	case SuitClubs:
		return 60
	case SuitSpades:
		return 40
	default:
		return 0
	}
}

// HasMarriage reports whether hand holds both King and Queen of suit.
func HasMarriage(hand []Card, suit Suit) bool {
	hasK, hasQ := false, false
	for _, c := range hand {
		if c.Suit != suit {
			continue
		}
		switch c.Rank {
		case RankK:
			hasK = true
		case RankQ:
			hasQ = true
		}
	}
	return hasK && hasQ
}

// FindMelds lists every marriage held in hand, in suit order.
func FindMelds(hand []Card) []Meld {
	var melds []Meld
	for _, s := range Suits {
		if HasMarriage(hand, s) {
			melds = append(melds, Meld{Suit: s, Points: MeldPoints(s)})
		}
	}
	return melds
}

// IsMarriageCard reports whether c can open a marriage.
func IsMarriageCard(c Card) bool {
	return c.Rank == RankK || c.Rank == RankQ
}

// MeldTotal sums meld points.
func MeldTotal(melds []Meld) int {
	total := 0
	for _, m := range melds {
		total += m.Points
	}
	return total
}
