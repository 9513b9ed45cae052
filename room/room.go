// room/room.go
package room

import (
	"math/rand"
	"sort"
	"time"

	"github.com/wfunc/tysiac/engine"
	"github.com/wfunc/tysiac/state"
)

// GameMode 表示对局模式
type GameMode string

const (
	ModeFFA   GameMode = "ffa"
	ModeTeams GameMode = "teams"
)

// Status 表示房间的业务状态
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type Team string

const (
	TeamNone Team = ""
	TeamA    Team = "A"
	TeamB    Team = "B"
)

func (t Team) Valid() bool { return t == TeamA || t == TeamB }

// Rules are fixed per room at creation.
type Rules struct {
	WinScore int `json:"winScore"`
	BidFloor int `json:"bidFloor"`
	BidStep  int `json:"bidStep"`
	MaxBid   int `json:"maxBid"`
}

func DefaultRules() Rules {
	return Rules{WinScore: 1000, BidFloor: 100, BidStep: 10, MaxBid: 360}
}

// withDefaults fills unset values so a zero Rules behaves like DefaultRules.
func (r Rules) withDefaults() Rules {
	d := DefaultRules()
	if r.WinScore <= 0 {
		r.WinScore = d.WinScore
	}
	if r.BidFloor <= 0 {
		r.BidFloor = d.BidFloor
	}
	if r.BidStep <= 0 {
		r.BidStep = d.BidStep
	}
	if r.MaxBid < r.BidFloor {
		r.MaxBid = d.MaxBid
	}
	return r
}

// TrickPlay is one card on the table.
type TrickPlay struct {
	PlayerID string      `json:"playerId"`
	Card     engine.Card `json:"card"`
	Position int         `json:"position"`
}

// Musik holds the face-down cards until the bid is won. Once granted the
// cards move into the winner's hand and Shown keeps them for display.
type Musik struct {
	Cards    []engine.Card `json:"cards"`
	Revealed bool          `json:"revealed"`
	Shown    []engine.Card `json:"shown,omitempty"`
}

type Player struct {
	ID         string        `json:"playerId"`
	Nickname   string        `json:"nickname"`
	Team       Team          `json:"team"`
	IsHost     bool          `json:"isHost"`
	IsReady    bool          `json:"isReady"`
	Position   int           `json:"position"`
	Cards      []engine.Card `json:"cards"`
	Melds      []engine.Meld `json:"melds"`
	TricksWon  [][]TrickPlay `json:"tricksWon"`
	RoundScore int           `json:"roundScore"`
	TotalScore int           `json:"totalScore"`
	Passed     bool          `json:"passed"`
	JoinedAt   time.Time     `json:"joinedAt"`
}

func (p *Player) hasMeld(suit engine.Suit) bool {
	for _, m := range p.Melds {
		if m.Suit == suit {
			return true
		}
	}
	return false
}

// Winner describes how a finished game ended.
type Winner struct {
	Name      string    `json:"name"`
	Team      Team      `json:"team,omitempty"`
	PlayerIDs []string  `json:"playerIds"`
	Score     int       `json:"score"`
	Rounds    int       `json:"rounds"`
	WonAt     time.Time `json:"wonAt"`
}

// Room 是一局游戏的完整权威状态。Room 本身不加锁，并发访问由 Manager 串行化。
type Room struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Code                string        `json:"code"`
	HostID              string        `json:"hostId"`
	MaxPlayers          int           `json:"maxPlayers"`
	GameMode            GameMode      `json:"gameMode"`
	WithMusik           bool          `json:"withMusik"`
	Status              Status        `json:"status"`
	Phase               state.Phase   `json:"phase"`
	Players             []*Player     `json:"players"`
	CurrentPlayerID     string        `json:"currentPlayerId"`
	CurrentBid          int           `json:"currentBid"`
	BidWinnerID         string        `json:"bidWinnerId"`
	FirstBidderPosition int           `json:"firstBidderPosition"`
	CurrentTrump        engine.Suit   `json:"currentTrump"`
	RoundNumber         int           `json:"roundNumber"`
	TeamAName           string        `json:"teamAName"`
	TeamBName           string        `json:"teamBName"`
	TeamAScore          int           `json:"teamAScore"`
	TeamBScore          int           `json:"teamBScore"`
	Musik               *Musik        `json:"musik"`
	CurrentTrick        []TrickPlay   `json:"currentTrick"`
	PendingGives        []string      `json:"pendingGives"`
	MeldLeadSuit        engine.Suit   `json:"meldLeadSuit"`
	Winner              *Winner       `json:"winner"`
	LastRound           *RoundSummary `json:"lastRound"`
	Rules               Rules         `json:"rules"`
	Version             int64         `json:"version"`
	Dealt               bool          `json:"dealt"`
	StartedAt           time.Time     `json:"startedAt"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`

	rng *rand.Rand
}

// SetRand pins the random source used for dealing and the first bidder.
// Tests use it for reproducible games; nil falls back to the global source.
func (r *Room) SetRand(rng *rand.Rand) { r.rng = rng }

func (r *Room) intn(n int) int {
	if r.rng == nil {
		return rand.Intn(n)
	}
	return r.rng.Intn(n)
}

// Clone returns a deep copy. Mutations always run on a clone so a failed
// operation never leaks partial changes.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		cp := *p
		cp.Cards = append([]engine.Card(nil), p.Cards...)
		cp.Melds = append([]engine.Meld(nil), p.Melds...)
		if p.TricksWon != nil {
			cp.TricksWon = make([][]TrickPlay, len(p.TricksWon))
			for j, t := range p.TricksWon {
				cp.TricksWon[j] = append([]TrickPlay(nil), t...)
			}
		}
		c.Players[i] = &cp
	}
	if r.Musik != nil {
		m := *r.Musik
		m.Cards = append([]engine.Card(nil), r.Musik.Cards...)
		m.Shown = append([]engine.Card(nil), r.Musik.Shown...)
		c.Musik = &m
	}
	c.CurrentTrick = append([]TrickPlay(nil), r.CurrentTrick...)
	c.PendingGives = append([]string(nil), r.PendingGives...)
	if r.LastRound != nil {
		lr := *r.LastRound
		lr.Scores = append([]RoundScore(nil), r.LastRound.Scores...)
		c.LastRound = &lr
	}
	if r.Winner != nil {
		w := *r.Winner
		w.PlayerIDs = append([]string(nil), r.Winner.PlayerIDs...)
		c.Winner = &w
	}
	return &c
}

// Player returns the seated player with id.
func (r *Room) Player(id string) (*Player, bool) {
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (r *Room) playerAt(position int) *Player {
	for _, p := range r.Players {
		if p.Position == position {
			return p
		}
	}
	return nil
}

func (r *Room) sortSeats() {
	sort.Slice(r.Players, func(i, j int) bool { return r.Players[i].Position < r.Players[j].Position })
}

// nextSeat returns the player after position in turn order, wrapping around.
// Positions may have gaps after lobby departures.
func (r *Room) nextSeat(position int) *Player {
	if len(r.Players) == 0 {
		return nil
	}
	for _, p := range r.Players {
		if p.Position > position {
			return p
		}
	}
	return r.Players[0]
}

// PlayerIDs returns seated ids in position order.
func (r *Room) PlayerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

// Partner returns the teammate of id in teams mode.
func (r *Room) Partner(id string) (*Player, bool) {
	if r.GameMode != ModeTeams {
		return nil, false
	}
	me, ok := r.Player(id)
	if !ok || me.Team == TeamNone {
		return nil, false
	}
	for _, p := range r.Players {
		if p.ID != id && p.Team == me.Team {
			return p, true
		}
	}
	return nil, false
}

// CardsInPlay counts every card the round accounts for.
func (r *Room) CardsInPlay() int {
	n := len(r.CurrentTrick)
	if r.Musik != nil {
		n += len(r.Musik.Cards)
	}
	for _, p := range r.Players {
		n += len(p.Cards)
		for _, t := range p.TricksWon {
			n += len(t)
		}
	}
	return n
}

// enter moves the room to phase along the round machine's edges. Status
// follows the phase: lobby is waiting, bidding is playing, finished ends it.
func (r *Room) enter(phase state.Phase) error {
	sm := state.NewRoundMachine(r.Phase)
	sm.OnEnter(state.PhaseLobby, func() { r.Status = StatusWaiting })
	sm.OnEnter(state.PhaseBidding, func() { r.Status = StatusPlaying })
	sm.OnEnter(state.PhaseFinished, func() {
		r.Status = StatusFinished
		r.CurrentPlayerID = ""
	})
	if err := sm.ChangeState(phase); err != nil {
		return err
	}
	r.Phase = sm.GetCurrentState()
	return nil
}

func (r *Room) requireSeated(playerID string) (*Player, error) {
	p, ok := r.Player(playerID)
	if !ok {
		return nil, notFoundf("player %s is not in room %s", playerID, r.ID)
	}
	return p, nil
}

func (r *Room) requireInGame(phase state.Phase) error {
	if r.Status != StatusPlaying {
		return validationf("game is not in progress")
	}
	if r.Phase != phase {
		return validationf("action not allowed during %s phase", r.Phase)
	}
	return nil
}

func (r *Room) requireTurn(playerID string) (*Player, error) {
	p, err := r.requireSeated(playerID)
	if err != nil {
		return nil, err
	}
	if r.CurrentPlayerID != playerID {
		return nil, ErrTurn
	}
	return p, nil
}
