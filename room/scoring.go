package room

import (
	"time"

	"github.com/wfunc/tysiac/engine"
	"github.com/wfunc/tysiac/state"
)

// Contribution is what a player adds to the cumulative score for the round.
func (p *Player) Contribution() int {
	return p.RoundScore + engine.MeldTotal(p.Melds)
}

// RoundScore is one seat's result in a settled round.
type RoundScore struct {
	PlayerID     string `json:"playerId"`
	CardPoints   int    `json:"cardPoints"`
	MeldPoints   int    `json:"meldPoints"`
	Contribution int    `json:"contribution"`
}

// RoundSummary keeps the last settled round visible after the next deal.
type RoundSummary struct {
	Number    int          `json:"number"`
	BidWinner string       `json:"bidWinnerId"`
	Bid       int          `json:"bid"`
	Scores    []RoundScore `json:"scores"`
	SettledAt time.Time    `json:"settledAt"`
}

// settleRound adds the round to the cumulative scores, then either ends the
// game or deals the next round.
func (r *Room) settleRound(now time.Time) error {
	summary := &RoundSummary{Number: r.RoundNumber, BidWinner: r.BidWinnerID, Bid: r.CurrentBid, SettledAt: now}
	for _, p := range r.Players {
		c := p.Contribution()
		summary.Scores = append(summary.Scores, RoundScore{
			PlayerID:     p.ID,
			CardPoints:   p.RoundScore,
			MeldPoints:   engine.MeldTotal(p.Melds),
			Contribution: c,
		})
		if r.GameMode == ModeTeams {
			switch p.Team {
			case TeamA:
				r.TeamAScore += c
			case TeamB:
				r.TeamBScore += c
			}
			continue
		}
		p.TotalScore += c
	}
	r.LastRound = summary

	if w := r.findWinner(now); w != nil {
		if err := r.enter(state.PhaseFinished); err != nil {
			return err
		}
		r.Winner = w
		return nil
	}

	r.RoundNumber++
	r.FirstBidderPosition = r.nextSeat(r.FirstBidderPosition).Position
	return r.dealRound()
}

// findWinner applies the win rule: the single highest total at or above
// WinScore. A tie at the top plays on.
func (r *Room) findWinner(now time.Time) *Winner {
	target := r.Rules.WinScore
	if r.GameMode == ModeTeams {
		a, b := r.TeamAScore, r.TeamBScore
		if a == b || (a < target && b < target) {
			return nil
		}
		team, name, score := TeamA, r.TeamAName, a
		if b > a {
			team, name, score = TeamB, r.TeamBName, b
		}
		w := &Winner{Name: name, Team: team, Score: score, Rounds: r.RoundNumber, WonAt: now}
		for _, p := range r.Players {
			if p.Team == team {
				w.PlayerIDs = append(w.PlayerIDs, p.ID)
			}
		}
		return w
	}

	var best *Player
	tied := false
	for _, p := range r.Players {
		switch {
		case best == nil || p.TotalScore > best.TotalScore:
			best, tied = p, false
		case p.TotalScore == best.TotalScore:
			tied = true
		}
	}
	if best == nil || tied || best.TotalScore < target {
		return nil
	}
	return &Winner{
		Name:      best.Nickname,
		PlayerIDs: []string{best.ID},
		Score:     best.TotalScore,
		Rounds:    r.RoundNumber,
		WonAt:     now,
	}
}

// Standings returns the cumulative score per player id. In teams mode both
// partners report their team total.
func (r *Room) Standings() map[string]int {
	out := make(map[string]int, len(r.Players))
	for _, p := range r.Players {
		switch {
		case r.GameMode != ModeTeams:
			out[p.ID] = p.TotalScore
		case p.Team == TeamA:
			out[p.ID] = r.TeamAScore
		case p.Team == TeamB:
			out[p.ID] = r.TeamBScore
		}
	}
	return out
}
