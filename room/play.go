package room

import (
	"time"

	"github.com/wfunc/tysiac/engine"
	"github.com/wfunc/tysiac/state"
)

// GiveCard hands one card from the bid winner to another player after the
// musik grant. Each other player receives exactly one card.
func (r *Room) GiveCard(playerID, cardID, toPlayerID string) error {
	if err := r.requireInGame(state.PhasePlaying); err != nil {
		return err
	}
	giver, err := r.requireSeated(playerID)
	if err != nil {
		return err
	}
	if playerID != r.BidWinnerID {
		return ErrTurn
	}
	if len(r.PendingGives) == 0 {
		return illegalf("no cards left to give")
	}
	pending := -1
	for i, id := range r.PendingGives {
		if id == toPlayerID {
			pending = i
			break
		}
	}
	if pending < 0 {
		return illegalf("player %s is not waiting for a card", toPlayerID)
	}
	recipient, err := r.requireSeated(toPlayerID)
	if err != nil {
		return err
	}
	idx := engine.IndexOf(giver.Cards, cardID)
	if idx < 0 {
		return illegalf("card %s is not in hand", cardID)
	}

	card := giver.Cards[idx]
	giver.Cards = engine.RemoveCard(giver.Cards, idx)
	recipient.Cards = append(recipient.Cards, card)
	r.PendingGives = append(r.PendingGives[:pending:pending], r.PendingGives[pending+1:]...)
	if len(r.PendingGives) == 0 {
		r.PendingGives = nil
	}
	return nil
}

// DeclareMeld banks a marriage before leading and makes its suit trump. The
// lead that follows must be the King or Queen of that suit.
func (r *Room) DeclareMeld(playerID string, suit engine.Suit) error {
	if err := r.requireInGame(state.PhasePlaying); err != nil {
		return err
	}
	p, err := r.requireTurn(playerID)
	if err != nil {
		return err
	}
	if !suit.Valid() {
		return validationf("unknown suit %q", suit)
	}
	if len(r.PendingGives) > 0 {
		return illegalf("cards must be given out first")
	}
	if len(r.CurrentTrick) > 0 {
		return illegalf("melds can only be declared when leading")
	}
	if r.MeldLeadSuit != engine.NoSuit {
		return illegalf("a meld was already declared for this lead")
	}
	if p.hasMeld(suit) {
		return illegalf("%s marriage already declared", suit)
	}
	if !engine.HasMarriage(p.Cards, suit) {
		return illegalf("no king and queen of %s in hand", suit)
	}
	p.Melds = append(p.Melds, engine.Meld{Suit: suit, Points: engine.MeldPoints(suit)})
	r.CurrentTrump = suit
	r.MeldLeadSuit = suit
	return nil
}

func (r *Room) PlayCard(playerID, cardID string, now time.Time) error {
	if err := r.requireInGame(state.PhasePlaying); err != nil {
		return err
	}
	p, err := r.requireTurn(playerID)
	if err != nil {
		return err
	}
	if len(r.PendingGives) > 0 {
		return illegalf("cards must be given out first")
	}
	idx := engine.IndexOf(p.Cards, cardID)
	if idx < 0 {
		return illegalf("card %s is not in hand", cardID)
	}
	card := p.Cards[idx]
	leading := len(r.CurrentTrick) == 0
	var leadSuit engine.Suit
	if !leading {
		leadSuit = r.CurrentTrick[0].Card.Suit
	}
	if r.MeldLeadSuit != engine.NoSuit && (card.Suit != r.MeldLeadSuit || !engine.IsMarriageCard(card)) {
		return illegalf("must lead the king or queen of %s", r.MeldLeadSuit)
	}
	if !engine.CanPlayCard(card, p.Cards, leadSuit, r.CurrentTrump) {
		return illegalf("must follow %s", leadSuit)
	}

	if leading && engine.IsMarriageCard(card) && !p.hasMeld(card.Suit) && engine.HasMarriage(p.Cards, card.Suit) {
		p.Melds = append(p.Melds, engine.Meld{Suit: card.Suit, Points: engine.MeldPoints(card.Suit)})
		r.CurrentTrump = card.Suit
	}
	r.MeldLeadSuit = engine.NoSuit

	p.Cards = engine.RemoveCard(p.Cards, idx)
	r.CurrentTrick = append(r.CurrentTrick, TrickPlay{PlayerID: p.ID, Card: card, Position: p.Position})
	if len(r.CurrentTrick) < len(r.Players) {
		r.CurrentPlayerID = r.nextSeat(p.Position).ID
		return nil
	}
	return r.closeTrick(now)
}

// closeTrick credits the full trick to its winner, who leads next. The last
// trick of the round moves the room to scoring.
func (r *Room) closeTrick(now time.Time) error {
	plays := make([]engine.Play, len(r.CurrentTrick))
	for i, tp := range r.CurrentTrick {
		plays[i] = engine.Play{PlayerID: tp.PlayerID, Card: tp.Card}
	}
	winnerID := engine.ResolveTrick(plays, r.CurrentTrump, plays[0].Card.Suit)
	winner, err := r.requireSeated(winnerID)
	if err != nil {
		return err
	}
	winner.RoundScore += engine.CardPoints(engine.TrickCards(plays))
	winner.TricksWon = append(winner.TricksWon, r.CurrentTrick)
	r.CurrentTrick = nil
	r.CurrentPlayerID = winner.ID

	if len(winner.Cards) > 0 {
		return nil
	}
	if err := r.enter(state.PhaseScoring); err != nil {
		return err
	}
	return r.settleRound(now)
}
