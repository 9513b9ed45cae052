package room

import (
	"time"

	"github.com/wfunc/tysiac/engine"
	"github.com/wfunc/tysiac/state"
)

// CardView is either a visible card or a face-down placeholder.
type CardView struct {
	ID     string      `json:"id,omitempty"`
	Suit   engine.Suit `json:"suit,omitempty"`
	Rank   engine.Rank `json:"rank,omitempty"`
	Hidden bool        `json:"hidden,omitempty"`
}

type PlayerView struct {
	PlayerID      string        `json:"playerId"`
	Nickname      string        `json:"nickname"`
	Team          Team          `json:"team,omitempty"`
	IsHost        bool          `json:"isHost"`
	IsReady       bool          `json:"isReady"`
	Position      int           `json:"position"`
	Cards         []CardView    `json:"cards"`
	CardCount     int           `json:"cardCount"`
	Melds         []engine.Meld `json:"melds"`
	TricksWon     [][]TrickPlay `json:"tricksWon"`
	RoundScore    int           `json:"roundScore"`
	TotalScore    int           `json:"totalScore"`
	Passed        bool          `json:"passed"`
	IsCurrentTurn bool          `json:"isCurrentTurn"`
}

type MusikView struct {
	Count    int        `json:"count"`
	Revealed bool       `json:"revealed"`
	Cards    []CardView `json:"cards"`
}

// View is the room as one viewer is allowed to see it.
type View struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Code                string        `json:"code"`
	HostID              string        `json:"hostId"`
	MaxPlayers          int           `json:"maxPlayers"`
	GameMode            GameMode      `json:"gameMode"`
	WithMusik           bool          `json:"withMusik"`
	Status              Status        `json:"status"`
	Phase               state.Phase   `json:"phase"`
	Players             []PlayerView  `json:"players"`
	CurrentPlayerID     string        `json:"currentPlayerId"`
	CurrentBid          int           `json:"currentBid"`
	BidWinnerID         string        `json:"bidWinnerId"`
	FirstBidderPosition int           `json:"firstBidderPosition"`
	CurrentTrump        *engine.Suit  `json:"currentTrump"`
	RoundNumber         int           `json:"roundNumber"`
	TeamAName           string        `json:"teamAName"`
	TeamBName           string        `json:"teamBName"`
	TeamAScore          int           `json:"teamAScore"`
	TeamBScore          int           `json:"teamBScore"`
	Musik               *MusikView    `json:"musik"`
	CurrentTrick        []TrickPlay   `json:"currentTrick"`
	PendingGives        []string      `json:"pendingGives"`
	MeldLeadSuit        engine.Suit   `json:"meldLeadSuit,omitempty"`
	Winner              *Winner       `json:"winner"`
	LastRound           *RoundSummary `json:"lastRound"`
	Rules               Rules         `json:"rules"`
	Version             int64         `json:"version"`
	ViewerID            string        `json:"viewerId"`
	// Playable and AvailableMelds are filled only for the viewer whose turn
	// it is to play a card.
	Playable            []string      `json:"playable,omitempty"`
	AvailableMelds      []engine.Meld `json:"availableMelds,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// View redacts hidden information for viewerID. The viewer sees their own
// hand and, in teams mode, their partner's. Everyone else's cards come back
// as placeholders of the same count. It has no side effects.
func (r *Room) View(viewerID string) View {
	partnerID := ""
	if partner, ok := r.Partner(viewerID); ok {
		partnerID = partner.ID
	}

	v := View{
		ID:                  r.ID,
		Name:                r.Name,
		Code:                r.Code,
		HostID:              r.HostID,
		MaxPlayers:          r.MaxPlayers,
		GameMode:            r.GameMode,
		WithMusik:           r.WithMusik,
		Status:              r.Status,
		Phase:               r.Phase,
		Players:             make([]PlayerView, 0, len(r.Players)),
		CurrentPlayerID:     r.CurrentPlayerID,
		CurrentBid:          r.CurrentBid,
		BidWinnerID:         r.BidWinnerID,
		FirstBidderPosition: r.FirstBidderPosition,
		RoundNumber:         r.RoundNumber,
		TeamAName:           r.TeamAName,
		TeamBName:           r.TeamBName,
		TeamAScore:          r.TeamAScore,
		TeamBScore:          r.TeamBScore,
		CurrentTrick:        append([]TrickPlay{}, r.CurrentTrick...),
		PendingGives:        append([]string{}, r.PendingGives...),
		MeldLeadSuit:        r.MeldLeadSuit,
		Rules:               r.Rules,
		Version:             r.Version,
		ViewerID:            viewerID,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if r.CurrentTrump != engine.NoSuit {
		trump := r.CurrentTrump
		v.CurrentTrump = &trump
	}
	v.Playable, v.AvailableMelds = r.turnHints(viewerID)

	for _, p := range r.Players {
		visible := p.ID == viewerID || (partnerID != "" && p.ID == partnerID)
		pv := PlayerView{
			PlayerID:      p.ID,
			Nickname:      p.Nickname,
			Team:          p.Team,
			IsHost:        p.IsHost,
			IsReady:       p.IsReady,
			Position:      p.Position,
			Cards:         cardViews(p.Cards, !visible),
			CardCount:     len(p.Cards),
			Melds:         append([]engine.Meld{}, p.Melds...),
			TricksWon:     make([][]TrickPlay, 0, len(p.TricksWon)),
			RoundScore:    p.RoundScore,
			TotalScore:    p.TotalScore,
			Passed:        p.Passed,
			IsCurrentTurn: p.ID == r.CurrentPlayerID,
		}
		for _, t := range p.TricksWon {
			pv.TricksWon = append(pv.TricksWon, append([]TrickPlay{}, t...))
		}
		v.Players = append(v.Players, pv)
	}

	if r.Musik != nil {
		mv := &MusikView{Revealed: r.Musik.Revealed}
		if r.Musik.Revealed {
			mv.Count = len(r.Musik.Shown)
			mv.Cards = cardViews(r.Musik.Shown, false)
		} else {
			mv.Count = len(r.Musik.Cards)
			mv.Cards = cardViews(r.Musik.Cards, true)
		}
		v.Musik = mv
	}
	if r.Winner != nil {
		w := *r.Winner
		w.PlayerIDs = append([]string{}, r.Winner.PlayerIDs...)
		v.Winner = &w
	}
	if r.LastRound != nil {
		lr := *r.LastRound
		lr.Scores = append([]RoundScore{}, r.LastRound.Scores...)
		v.LastRound = &lr
	}
	return v
}

// turnHints lists the cards viewerID may play now and the marriages they
// could declare before leading.
func (r *Room) turnHints(viewerID string) ([]string, []engine.Meld) {
	if r.Status != StatusPlaying || r.Phase != state.PhasePlaying || r.CurrentPlayerID != viewerID || len(r.PendingGives) > 0 {
		return nil, nil
	}
	p, ok := r.Player(viewerID)
	if !ok {
		return nil, nil
	}

	var playable []string
	if r.MeldLeadSuit != engine.NoSuit {
		for _, c := range p.Cards {
			if c.Suit == r.MeldLeadSuit && engine.IsMarriageCard(c) {
				playable = append(playable, c.ID)
			}
		}
		return playable, nil
	}
	var lead engine.Suit
	if len(r.CurrentTrick) > 0 {
		lead = r.CurrentTrick[0].Card.Suit
	}
	for _, c := range engine.LegalCards(p.Cards, lead, r.CurrentTrump) {
		playable = append(playable, c.ID)
	}

	var melds []engine.Meld
	if lead == engine.NoSuit {
		for _, m := range engine.FindMelds(p.Cards) {
			if !p.hasMeld(m.Suit) {
				melds = append(melds, m)
			}
		}
	}
	return playable, melds
}

func cardViews(cards []engine.Card, hidden bool) []CardView {
	out := make([]CardView, len(cards))
	for i, c := range cards {
		if hidden {
			out[i] = CardView{Hidden: true}
			continue
		}
		out[i] = CardView{ID: c.ID, Suit: c.Suit, Rank: c.Rank}
	}
	return out
}

// Summary is the lobby listing entry for a room.
type Summary struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Code        string      `json:"code"`
	HostID      string      `json:"hostId"`
	Status      Status      `json:"status"`
	Phase       state.Phase `json:"phase"`
	GameMode    GameMode    `json:"gameMode"`
	WithMusik   bool        `json:"withMusik"`
	MaxPlayers  int         `json:"maxPlayers"`
	PlayerCount int         `json:"playerCount"`
	Nicknames   []string    `json:"nicknames"`
	RoundNumber int         `json:"roundNumber"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func (r *Room) Summary() Summary {
	s := Summary{
		ID:          r.ID,
		Name:        r.Name,
		Code:        r.Code,
		HostID:      r.HostID,
		Status:      r.Status,
		Phase:       r.Phase,
		GameMode:    r.GameMode,
		WithMusik:   r.WithMusik,
		MaxPlayers:  r.MaxPlayers,
		PlayerCount: len(r.Players),
		RoundNumber: r.RoundNumber,
		CreatedAt:   r.CreatedAt,
	}
	for _, p := range r.Players {
		s.Nicknames = append(s.Nicknames, p.Nickname)
	}
	return s
}
