package room

import (
	"strings"
	"time"

	"github.com/wfunc/tysiac/engine"
	"github.com/wfunc/tysiac/state"
)

// CreateParams carries what a host chooses when opening a room.
type CreateParams struct {
	ID         string
	Code       string
	Name       string
	HostID     string
	Nickname   string
	WithMusik  bool
	MaxPlayers int
	GameMode   GameMode
	Rules      Rules
}

// New 创建一个处于等待状态的房间，房主坐在 0 号位
func New(p CreateParams, now time.Time) (*Room, error) {
	name := strings.TrimSpace(p.Name)
	nickname := strings.TrimSpace(p.Nickname)
	switch {
	case name == "":
		return nil, validationf("room name is required")
	case nickname == "":
		return nil, validationf("nickname is required")
	case p.HostID == "":
		return nil, validationf("player id is required")
	case p.MaxPlayers < 2 || p.MaxPlayers > 4:
		return nil, validationf("maxPlayers must be 2, 3 or 4, got %d", p.MaxPlayers)
	}
	mode := p.GameMode
	if mode == "" {
		mode = ModeFFA
	}
	if mode != ModeFFA && mode != ModeTeams {
		return nil, validationf("unknown game mode %q", p.GameMode)
	}
	if mode == ModeTeams && p.MaxPlayers != 4 {
		return nil, validationf("teams mode needs exactly 4 players")
	}

	r := &Room{
		ID:          p.ID,
		Name:        name,
		Code:        p.Code,
		HostID:      p.HostID,
		MaxPlayers:  p.MaxPlayers,
		GameMode:    mode,
		WithMusik:   engine.HasMusik(p.MaxPlayers, p.WithMusik),
		Status:      StatusWaiting,
		Phase:       state.PhaseLobby,
		RoundNumber: 1,
		TeamAName:   "Team A",
		TeamBName:   "Team B",
		Rules:       p.Rules.withDefaults(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.Players = []*Player{{
		ID:       p.HostID,
		Nickname: nickname,
		IsHost:   true,
		Position: 0,
		JoinedAt: now,
	}}
	return r, nil
}

// Join seats playerID at the lowest free position. A player who is already
// seated gets their seat back unchanged.
func (r *Room) Join(playerID, nickname string, now time.Time) (*Player, error) {
	if p, ok := r.Player(playerID); ok {
		return p, nil
	}
	nickname = strings.TrimSpace(nickname)
	if playerID == "" || nickname == "" {
		return nil, validationf("player id and nickname are required")
	}
	if r.Status != StatusWaiting {
		return nil, validationf("room %s is not accepting players", r.ID)
	}
	for pos := 0; pos < r.MaxPlayers; pos++ {
		if r.playerAt(pos) != nil {
			continue
		}
		p := &Player{ID: playerID, Nickname: nickname, Position: pos, JoinedAt: now}
		r.Players = append(r.Players, p)
		r.sortSeats()
		return p, nil
	}
	return nil, ErrRoomFull
}

func (r *Room) SelectTeam(playerID string, team Team) error {
	p, err := r.requireSeated(playerID)
	if err != nil {
		return err
	}
	if r.GameMode != ModeTeams {
		return validationf("teams are only used in teams mode")
	}
	if !team.Valid() {
		return validationf("team must be A or B")
	}
	if r.Status != StatusWaiting {
		return validationf("teams can only change in the lobby")
	}
	p.Team = team
	return nil
}

func (r *Room) UpdateTeamName(playerID string, team Team, name string) error {
	if _, err := r.requireSeated(playerID); err != nil {
		return err
	}
	if !team.Valid() {
		return validationf("team must be A or B")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return validationf("team name is required")
	}
	if team == TeamA {
		r.TeamAName = name
	} else {
		r.TeamBName = name
	}
	return nil
}

func (r *Room) SetReady(playerID string, ready bool) error {
	p, err := r.requireSeated(playerID)
	if err != nil {
		return err
	}
	p.IsReady = ready
	return nil
}

// Leave removes playerID. It reports whether the room must be destroyed,
// which happens when the host leaves or nobody is left.
func (r *Room) Leave(playerID string) (bool, error) {
	p, err := r.requireSeated(playerID)
	if err != nil {
		return false, err
	}
	if p.IsHost {
		return true, nil
	}
	kept := r.Players[:0]
	for _, other := range r.Players {
		if other.ID != playerID {
			kept = append(kept, other)
		}
	}
	r.Players = kept
	if len(r.Players) == 0 {
		return true, nil
	}
	if r.Status == StatusPlaying {
		return false, r.abandon()
	}
	return false, nil
}

// AuthorizeDelete checks that playerID may delete the room.
func (r *Room) AuthorizeDelete(playerID string) error {
	if playerID != r.HostID {
		return forbiddenf("only the host can delete the room")
	}
	return nil
}

// abandon drops the running game and returns everyone to the lobby.
func (r *Room) abandon() error {
	if err := r.enter(state.PhaseLobby); err != nil {
		return err
	}
	for _, p := range r.Players {
		p.resetRound()
		p.TotalScore = 0
	}
	r.TeamAScore, r.TeamBScore = 0, 0
	r.resetRoundState()
	r.CurrentPlayerID = ""
	r.CurrentBid = 0
	r.Musik = nil
	r.LastRound = nil
	return nil
}

func (p *Player) resetRound() {
	p.Cards = nil
	p.Melds = nil
	p.TricksWon = nil
	p.RoundScore = 0
	p.Passed = false
}

func (r *Room) resetRoundState() {
	r.BidWinnerID = ""
	r.CurrentTrump = ""
	r.CurrentTrick = nil
	r.PendingGives = nil
	r.MeldLeadSuit = ""
}
