package room

import (
	"time"

	"github.com/wfunc/tysiac/engine"
	"github.com/wfunc/tysiac/state"
)

// StartGame deals the first round. Only the host may start, and only from
// the lobby.
func (r *Room) StartGame(playerID string, now time.Time) error {
	if _, err := r.requireSeated(playerID); err != nil {
		return err
	}
	if playerID != r.HostID {
		return forbiddenf("only the host can start the game")
	}
	if r.Status != StatusWaiting {
		return validationf("game already %s", r.Status)
	}
	n := len(r.Players)
	if n < 2 || n > r.MaxPlayers {
		return validationf("need between 2 and %d players, have %d", r.MaxPlayers, n)
	}
	if r.GameMode == ModeTeams {
		if err := r.seatTeams(); err != nil {
			return err
		}
	}

	if err := r.enter(state.PhaseDealing); err != nil {
		return err
	}
	if r.Dealt {
		r.RoundNumber++
	}
	for _, p := range r.Players {
		p.TotalScore = 0
	}
	r.TeamAScore, r.TeamBScore = 0, 0
	r.Winner = nil
	r.LastRound = nil
	r.FirstBidderPosition = r.Players[r.intn(n)].Position
	if err := r.dealRound(); err != nil {
		return err
	}
	r.StartedAt = now
	r.Dealt = true
	return nil
}

// seatTeams checks the 2+2 split and reseats players so partners sit
// opposite each other and turns alternate between teams.
func (r *Room) seatTeams() error {
	if len(r.Players) != 4 {
		return validationf("teams mode needs exactly 4 players")
	}
	var a, b []*Player
	for _, p := range r.Players {
		switch p.Team {
		case TeamA:
			a = append(a, p)
		case TeamB:
			b = append(b, p)
		default:
			return validationf("player %s has not picked a team", p.Nickname)
		}
	}
	if len(a) != 2 || len(b) != 2 {
		return validationf("teams must have 2 players each")
	}
	first, second := a, b
	if r.Players[0].Team == TeamB {
		first, second = b, a
	}
	first[0].Position, second[0].Position = 0, 1
	first[1].Position, second[1].Position = 2, 3
	r.sortSeats()
	return nil
}

// dealRound deals fresh hands, clears per-round state and opens bidding at
// the first bidder. The caller has already placed the room in dealing or
// scoring.
func (r *Room) dealRound() error {
	deal, err := engine.DealCards(len(r.Players), r.WithMusik, r.rng)
	if err != nil {
		return validationf("%v", err)
	}
	for i, p := range r.Players {
		p.resetRound()
		p.Cards = deal.Hands[i]
	}
	r.resetRoundState()
	r.Musik = nil
	if len(deal.Musik) > 0 {
		r.Musik = &Musik{Cards: deal.Musik}
	}
	r.CurrentBid = r.Rules.BidFloor
	first := r.playerAt(r.FirstBidderPosition)
	if first == nil {
		first = r.nextSeat(r.FirstBidderPosition)
		r.FirstBidderPosition = first.Position
	}
	r.CurrentPlayerID = first.ID
	return r.enter(state.PhaseBidding)
}

func (r *Room) Bid(playerID string, amount int) error {
	if err := r.requireInGame(state.PhaseBidding); err != nil {
		return err
	}
	p, err := r.requireTurn(playerID)
	if err != nil {
		return err
	}
	if p.Passed {
		return illegalf("already passed this round")
	}
	rules := r.Rules
	switch {
	case amount < rules.BidFloor:
		return validationf("bid must be at least %d", rules.BidFloor)
	case amount > rules.MaxBid:
		return validationf("bid must be at most %d", rules.MaxBid)
	case amount%rules.BidStep != 0:
		return validationf("bid must be a multiple of %d", rules.BidStep)
	case r.BidWinnerID != "" && amount <= r.CurrentBid:
		return validationf("bid must exceed %d", r.CurrentBid)
	}

	r.CurrentBid = amount
	r.BidWinnerID = playerID
	if r.activeBidders() <= 1 {
		return r.resolveBidding()
	}
	r.CurrentPlayerID = r.nextBidder(p.Position).ID
	return nil
}

func (r *Room) Pass(playerID string) error {
	if err := r.requireInGame(state.PhaseBidding); err != nil {
		return err
	}
	p, err := r.requireTurn(playerID)
	if err != nil {
		return err
	}
	if p.Passed {
		return illegalf("already passed this round")
	}
	p.Passed = true

	active := r.activeBidders()
	if (r.BidWinnerID != "" && active <= 1) || active == 0 {
		return r.resolveBidding()
	}
	r.CurrentPlayerID = r.nextBidder(p.Position).ID
	return nil
}

func (r *Room) activeBidders() int {
	n := 0
	for _, p := range r.Players {
		if !p.Passed {
			n++
		}
	}
	return n
}

// nextBidder walks the seats after position and returns the first one still
// in the auction. Callers guarantee at least one exists.
func (r *Room) nextBidder(position int) *Player {
	p := r.nextSeat(position)
	for i := 0; i < len(r.Players) && p.Passed; i++ {
		p = r.nextSeat(p.Position)
	}
	return p
}

// resolveBidding closes the auction. With no bid on the table the first
// bidder of the round takes it at the floor.
func (r *Room) resolveBidding() error {
	if r.BidWinnerID == "" {
		first := r.playerAt(r.FirstBidderPosition)
		if first == nil {
			return validationf("first bidder seat %d is empty", r.FirstBidderPosition)
		}
		r.BidWinnerID = first.ID
		r.CurrentBid = r.Rules.BidFloor
	}
	winner, err := r.requireSeated(r.BidWinnerID)
	if err != nil {
		return err
	}
	r.PendingGives = nil
	if r.Musik != nil && len(r.Musik.Cards) > 0 {
		winner.Cards = append(winner.Cards, r.Musik.Cards...)
		r.Musik.Shown = r.Musik.Cards
		r.Musik.Cards = nil
		r.Musik.Revealed = true
		for p := r.nextSeat(winner.Position); p.ID != winner.ID; p = r.nextSeat(p.Position) {
			r.PendingGives = append(r.PendingGives, p.ID)
		}
	}
	r.CurrentPlayerID = winner.ID
	r.CurrentTrump = engine.NoSuit
	r.MeldLeadSuit = engine.NoSuit
	return r.enter(state.PhasePlaying)
}
