// engine/trick.go
package engine

// Play is one card laid into a trick.
type Play struct {
	PlayerID string `json:"playerId"`
	Card     Card   `json:"card"`
}

// ResolveTrick returns the player id of the winning play. It scans once,
// keeping a running best that starts as the lead.
func ResolveTrick(plays []Play, trump Suit, leadSuit Suit) string {
	if len(plays) == 0 {
		return ""
	}
	best := plays[0]
	for _, p := range plays[1:] {
		c := p.Card
		b := best.Card

		if trump != NoSuit {
			if c.Suit == trump && b.Suit != trump {
				best = p
				continue
			}
			if c.Suit != trump && b.Suit == trump {
				continue
			}
		}

		if c.Suit == b.Suit {
			if rankStrength(c.Rank) > rankStrength(b.Rank) {
				best = p
			}
			continue
		}

		if c.Suit == leadSuit && b.Suit != leadSuit && b.Suit != trump {
			best = p
		}
	}
	return best.PlayerID
}

// TrickCards extracts the cards of plays.
func TrickCards(plays []Play) []Card {
	cards := make([]Card, 0, len(plays))
	for _, p := range plays {
		cards = append(cards, p.Card)
	}
	return cards
}

// CanPlayCard applies the follow-suit rule. There is no obligation to trump.
func CanPlayCard(card Card, hand []Card, leadSuit Suit, trump Suit) bool {
	if leadSuit == NoSuit {
		return true
	}
	if card.Suit == leadSuit {
		return true
	}
	return !HasSuit(hand, leadSuit)
}

// LegalCards filters hand down to the cards CanPlayCard accepts.
func LegalCards(hand []Card, leadSuit Suit, trump Suit) []Card {
	out := make([]Card, 0, len(hand))
	for _, c := range hand {
		if CanPlayCard(c, hand, leadSuit, trump) {
			out = append(out, c)
		}
	}
	return out
}
