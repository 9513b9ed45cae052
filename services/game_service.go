// services/game_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/tysiac/engine"
	"github.com/wfunc/tysiac/logger"
	"github.com/wfunc/tysiac/models"
	"github.com/wfunc/tysiac/persistence"
	"github.com/wfunc/tysiac/room"
)

// Actions understood by Dispatch.
const (
	ActionCreateRoom     = "create_room"
	ActionJoinRoom       = "join_room"
	ActionSelectTeam     = "select_team"
	ActionUpdateTeamName = "update_team_name"
	ActionSetReady       = "set_ready"
	ActionStartGame      = "start_game"
	ActionBid            = "bid"
	ActionPass           = "pass"
	ActionGiveCard       = "give_card"
	ActionDeclareMeld    = "declare_meld"
	ActionPlayCard       = "play_card"
	ActionGetRoom        = "get_room"
	ActionLeaveRoom      = "leave_room"
	ActionDeleteRoom     = "delete_room"
	ActionListRooms      = "list_rooms"
	ActionLastWinner     = "last_winner"
)

// Notifier hears about every committed change. It is called after the room
// lock is released and cannot affect the result of the action.
type Notifier interface {
	RoomChanged(ctx context.Context, r *room.Room)
	RoomRemoved(ctx context.Context, r *room.Room)
}

// Recorder receives per-action metrics.
type Recorder interface {
	ObserveAction(action, code string, elapsed time.Duration)
	GameFinished(mode string)
}

type nopNotifier struct{}

func (nopNotifier) RoomChanged(context.Context, *room.Room) {}
func (nopNotifier) RoomRemoved(context.Context, *room.Room) {}

type nopRecorder struct{}

func (nopRecorder) ObserveAction(string, string, time.Duration) {}
func (nopRecorder) GameFinished(string)                         {}

// Request is one client action.
type Request struct {
	Action   string          `json:"action"`
	PlayerID string          `json:"playerId,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Response is what every action returns. Failed actions only carry Error and Code.
type Response struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error,omitempty"`
	Code    string               `json:"code,omitempty"`
	RoomID  string               `json:"roomId,omitempty"`
	Room    *room.View           `json:"room,omitempty"`
	Rooms   []room.Summary       `json:"rooms,omitempty"`
	Winner  *models.WinnerRecord `json:"winner,omitempty"`
	Deleted bool                 `json:"deleted,omitempty"`
}

// payload is the union of every action's data fields.
type payload struct {
	RoomID     string `json:"roomId"`
	Code       string `json:"code"`
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	Nickname   string `json:"nickname"`
	WithMusik  bool   `json:"withMusik"`
	MaxPlayers int    `json:"maxPlayers"`
	GameMode   string `json:"gameMode"`
	Team       string `json:"team"`
	IsReady    bool   `json:"isReady"`
	Amount     int    `json:"amount"`
	CardID     string `json:"cardId"`
	ToPlayerID string `json:"toPlayerId"`
	Suit       string `json:"suit"`
}

// Stats is a point-in-time count of rooms by status.
type Stats struct {
	Rooms    int `json:"rooms"`
	Waiting  int `json:"waiting"`
	Playing  int `json:"playing"`
	Finished int `json:"finished"`
	Players  int `json:"players"`
}

// GameService is the single entry point for client actions.
type GameService struct {
	rooms    *room.Manager
	store    persistence.Store
	notifier Notifier
	recorder Recorder
	rules    room.Rules
	codes    *codeSource
	roomRand func() *rand.Rand
}

type Option func(*GameService)

func WithNotifier(n Notifier) Option {
	return func(s *GameService) { s.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(s *GameService) { s.recorder = r }
}

// WithRules sets the rules given to newly created rooms.
func WithRules(r room.Rules) Option {
	return func(s *GameService) { s.rules = r }
}

// WithSeed makes join codes and every new room's shuffles reproducible.
func WithSeed(seed int64) Option {
	return func(s *GameService) {
		s.codes = newCodeSource(seed)
		var next atomic.Int64
		next.Store(seed)
		s.roomRand = func() *rand.Rand {
			return rand.New(rand.NewSource(next.Add(1)))
		}
	}
}

// NewGameService 创建游戏服务。store 用于记录胜者和对局，可以为 nil。
func NewGameService(rooms *room.Manager, store persistence.Store, opts ...Option) *GameService {
	s := &GameService{
		rooms:    rooms,
		store:    store,
		notifier: nopNotifier{},
		recorder: nopRecorder{},
		rules:    room.DefaultRules(),
		codes:    newCodeSource(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch runs one action and never panics on bad input.
func (s *GameService) Dispatch(ctx context.Context, req Request) Response {
	start := time.Now()
	requestID := uuid.NewString()

	var p payload
	if len(req.Data) > 0 && string(req.Data) != "null" {
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return s.finish(req, requestID, "", start, Response{}, fmt.Errorf("%w: malformed data: %v", room.ErrValidation, err))
		}
	}
	if req.PlayerID == "" {
		req.PlayerID = p.PlayerID
	}

	resp, err := s.handle(ctx, req.Action, req.PlayerID, p)
	return s.finish(req, requestID, p.RoomID, start, resp, err)
}

func (s *GameService) finish(req Request, requestID, roomID string, start time.Time, resp Response, err error) Response {
	elapsed := time.Since(start)
	code := ErrorCode(err)
	if resp.RoomID != "" {
		roomID = resp.RoomID
	}
	outcome := "ok"
	if err != nil {
		outcome = code
	}
	s.recorder.ObserveAction(req.Action, outcome, elapsed)

	if err != nil {
		if code == CodeInternal || code == CodeConflict {
			logger.Log.Errorw("action failed", "request_id", requestID, "action", req.Action,
				"room_id", roomID, "player_id", req.PlayerID, "error", err)
		} else {
			logger.Log.Infow("action rejected", "request_id", requestID, "action", req.Action,
				"room_id", roomID, "player_id", req.PlayerID, "code", code, "error", err)
		}
		return Response{Success: false, Error: err.Error(), Code: code}
	}
	logger.Log.Infow("action handled", "request_id", requestID, "action", req.Action,
		"room_id", roomID, "player_id", req.PlayerID, "elapsed", elapsed)
	resp.Success = true
	return resp
}

func (s *GameService) handle(ctx context.Context, action, playerID string, p payload) (Response, error) {
	switch action {
	case ActionListRooms:
		return s.listRooms(), nil
	case ActionLastWinner:
		return s.lastWinner(ctx)
	case ActionGetRoom:
		return s.getRoom(playerID, p.RoomID)
	case "":
		return Response{}, fmt.Errorf("%w: action is required", room.ErrValidation)
	}

	if strings.TrimSpace(playerID) == "" {
		return Response{}, fmt.Errorf("%w: playerId is required", room.ErrValidation)
	}

	switch action {
	case ActionCreateRoom:
		return s.createRoom(ctx, playerID, p)
	case ActionJoinRoom:
		return s.joinRoom(ctx, playerID, p)
	case ActionLeaveRoom:
		return s.leaveRoom(ctx, playerID, p.RoomID)
	case ActionDeleteRoom:
		return s.deleteRoom(ctx, playerID, p.RoomID)
	}

	op, err := s.operation(action, playerID, p)
	if err != nil {
		return Response{}, err
	}
	return s.mutate(ctx, playerID, p.RoomID, op)
}

// operation maps a room-scoped action to the room method it runs.
func (s *GameService) operation(action, playerID string, p payload) (func(*room.Room) error, error) {
	now := s.rooms.Now()
	switch action {
	case ActionSelectTeam:
		return func(r *room.Room) error { return r.SelectTeam(playerID, room.Team(p.Team)) }, nil
	case ActionUpdateTeamName:
		return func(r *room.Room) error { return r.UpdateTeamName(playerID, room.Team(p.Team), p.Name) }, nil
	case ActionSetReady:
		return func(r *room.Room) error { return r.SetReady(playerID, p.IsReady) }, nil
	case ActionStartGame:
		return func(r *room.Room) error { return r.StartGame(playerID, now) }, nil
	case ActionBid:
		return func(r *room.Room) error { return r.Bid(playerID, p.Amount) }, nil
	case ActionPass:
		return func(r *room.Room) error { return r.Pass(playerID) }, nil
	case ActionGiveCard:
		return func(r *room.Room) error { return r.GiveCard(playerID, p.CardID, p.ToPlayerID) }, nil
	case ActionDeclareMeld:
		return func(r *room.Room) error { return r.DeclareMeld(playerID, engine.Suit(p.Suit)) }, nil
	case ActionPlayCard:
		return func(r *room.Room) error { return r.PlayCard(playerID, p.CardID, now) }, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", room.ErrValidation, action)
	}
}

func (s *GameService) createRoom(ctx context.Context, playerID string, p payload) (Response, error) {
	maxPlayers := p.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = 4
	}
	params := room.CreateParams{
		ID:         uuid.NewString(),
		Name:       p.Name,
		HostID:     playerID,
		Nickname:   p.Nickname,
		WithMusik:  p.WithMusik,
		MaxPlayers: maxPlayers,
		GameMode:   room.GameMode(p.GameMode),
		Rules:      s.rules,
	}

	var created *room.Room
	for attempt := 0; attempt < codeAttempts; attempt++ {
		params.Code = s.codes.next()
		r, err := room.New(params, s.rooms.Now())
		if err != nil {
			return Response{}, err
		}
		if s.roomRand != nil {
			r.SetRand(s.roomRand())
		}
		created, err = s.rooms.CreateRoom(ctx, r)
		if errors.Is(err, room.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return Response{}, err
		}
		break
	}
	if created == nil {
		return Response{}, fmt.Errorf("could not allocate a room code after %d attempts", codeAttempts)
	}

	s.notifier.RoomChanged(ctx, created)
	return s.roomResponse(created, playerID), nil
}

func (s *GameService) joinRoom(ctx context.Context, playerID string, p payload) (Response, error) {
	roomID := p.RoomID
	if roomID == "" && p.Code != "" {
		id, ok := s.rooms.FindByCode(strings.ToUpper(strings.TrimSpace(p.Code)))
		if !ok {
			return Response{}, fmt.Errorf("%w: no room with code %s", room.ErrNotFound, p.Code)
		}
		roomID = id
	}
	now := s.rooms.Now()
	return s.mutate(ctx, playerID, roomID, func(r *room.Room) error {
		_, err := r.Join(playerID, p.Nickname, now)
		return err
	})
}

func (s *GameService) mutate(ctx context.Context, playerID, roomID string, op func(*room.Room) error) (Response, error) {
	if roomID == "" {
		return Response{}, fmt.Errorf("%w: roomId is required", room.ErrValidation)
	}
	var wasFinished bool
	updated, err := s.rooms.Mutate(ctx, roomID, func(r *room.Room) error {
		wasFinished = r.Status == room.StatusFinished
		return op(r)
	})
	if err != nil {
		s.resync(ctx, roomID, err)
		return Response{}, err
	}
	if !wasFinished && updated.Status == room.StatusFinished {
		s.recordFinished(ctx, updated)
	}
	s.notifier.RoomChanged(ctx, updated)
	return s.roomResponse(updated, playerID), nil
}

func (s *GameService) leaveRoom(ctx context.Context, playerID, roomID string) (Response, error) {
	if roomID == "" {
		return Response{}, fmt.Errorf("%w: roomId is required", room.ErrValidation)
	}
	updated, removed, err := s.rooms.MutateOrRemove(ctx, roomID, func(r *room.Room) (bool, error) {
		return r.Leave(playerID)
	})
	if err != nil {
		s.resync(ctx, roomID, err)
		return Response{}, err
	}
	if removed {
		s.notifier.RoomRemoved(ctx, updated)
		return Response{RoomID: roomID, Deleted: true}, nil
	}
	s.notifier.RoomChanged(ctx, updated)
	return Response{RoomID: roomID}, nil
}

func (s *GameService) deleteRoom(ctx context.Context, playerID, roomID string) (Response, error) {
	if roomID == "" {
		return Response{}, fmt.Errorf("%w: roomId is required", room.ErrValidation)
	}
	removed, err := s.rooms.RemoveRoom(ctx, roomID, func(r *room.Room) error {
		return r.AuthorizeDelete(playerID)
	})
	if err != nil {
		return Response{}, err
	}
	s.notifier.RoomRemoved(ctx, removed)
	return Response{RoomID: roomID, Deleted: true}, nil
}

func (s *GameService) getRoom(playerID, roomID string) (Response, error) {
	if roomID == "" {
		return Response{}, fmt.Errorf("%w: roomId is required", room.ErrValidation)
	}
	r, ok := s.rooms.GetRoom(roomID)
	if !ok {
		return Response{}, fmt.Errorf("%w: room %s", room.ErrNotFound, roomID)
	}
	return s.roomResponse(r, playerID), nil
}

func (s *GameService) listRooms() Response {
	rooms := s.rooms.ListRooms()
	summaries := make([]room.Summary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, r.Summary())
	}
	return Response{Rooms: summaries}
}

func (s *GameService) lastWinner(ctx context.Context) (Response, error) {
	if s.store == nil {
		return Response{}, nil
	}
	w, err := s.store.LatestWinner(ctx)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return Response{}, nil
	}
	if err != nil {
		return Response{}, err
	}
	return Response{Winner: &w}, nil
}

// resync reloads a room whose stored version moved ahead of memory, so the
// caller's retry runs against the stored state.
func (s *GameService) resync(ctx context.Context, roomID string, err error) {
	if s.store == nil || !errors.Is(err, persistence.ErrVersionConflict) {
		return
	}
	rec, err := s.store.LoadRoom(ctx, roomID)
	if err != nil {
		logger.Log.Warnw("reload room after conflict", "room_id", roomID, "error", err)
		return
	}
	stored, err := persistence.DecodeRoom(rec)
	if err != nil {
		logger.Log.Errorw("decode stored room", "room_id", roomID, "error", err)
		return
	}
	if s.rooms.Replace(stored) {
		logger.Log.Infow("room reloaded from store", "room_id", roomID, "version", stored.Version)
		s.notifier.RoomChanged(ctx, stored)
	}
}

// recordFinished stores the winner and the game record. The game is already
// committed, so failures are logged rather than returned.
func (s *GameService) recordFinished(ctx context.Context, r *room.Room) {
	s.recorder.GameFinished(string(r.GameMode))
	if s.store == nil {
		return
	}
	winner, game, err := persistence.FinishedGame(r)
	if err != nil {
		logger.Log.Errorw("build finished game", "room_id", r.ID, "error", err)
		return
	}
	if err := s.store.SaveWinner(ctx, winner); err != nil {
		logger.Log.Errorw("save winner", "room_id", r.ID, "error", err)
	}
	if err := s.store.SaveGameRecord(ctx, game); err != nil {
		logger.Log.Errorw("save game record", "room_id", r.ID, "error", err)
	}
	logger.Log.Infow("game finished", "room_id", r.ID, "winner", winner.Name, "score", winner.Score, "rounds", winner.Rounds)
}

func (s *GameService) roomResponse(r *room.Room, playerID string) Response {
	v := r.View(playerID)
	return Response{RoomID: r.ID, Room: &v}
}

// View returns the room as playerID may see it.
func (s *GameService) View(roomID, playerID string) (room.View, bool) {
	r, ok := s.rooms.GetRoom(roomID)
	if !ok {
		return room.View{}, false
	}
	return r.View(playerID), true
}

// Stats counts live rooms and seated players.
func (s *GameService) Stats() Stats {
	var st Stats
	for _, r := range s.rooms.ListRooms() {
		st.Rooms++
		st.Players += len(r.Players)
		switch r.Status {
		case room.StatusWaiting:
			st.Waiting++
		case room.StatusPlaying:
			st.Playing++
		case room.StatusFinished:
			st.Finished++
		}
	}
	return st
}

// ReapFinished removes rooms that finished more than ttl ago and returns how
// many were removed. Stored rows of finished rooms no longer held in memory,
// such as those left over from before a restart, are purged as well.
func (s *GameService) ReapFinished(ctx context.Context, ttl time.Duration) int {
	cutoff := s.rooms.Now().Add(-ttl)
	reaped := 0
	for _, r := range s.rooms.ListRooms() {
		if r.Status != room.StatusFinished || r.UpdatedAt.After(cutoff) {
			continue
		}
		removed, err := s.rooms.RemoveRoom(ctx, r.ID, func(current *room.Room) error {
			if current.Status != room.StatusFinished {
				return fmt.Errorf("%w: room %s was restarted", room.ErrValidation, current.ID)
			}
			return nil
		})
		if err != nil {
			logger.Log.Warnw("reap finished room", "room_id", r.ID, "error", err)
			continue
		}
		s.notifier.RoomRemoved(ctx, removed)
		reaped++
	}
	if s.store != nil {
		n, err := s.store.DeleteFinishedRooms(ctx, cutoff)
		if err != nil {
			logger.Log.Warnw("purge finished rooms", "error", err)
		}
		reaped += int(n)
	}
	return reaped
}

// SeatedViews returns the player's view of every room they sit in.
func (s *GameService) SeatedViews(playerID string) []room.View {
	var views []room.View
	for _, r := range s.rooms.ListRooms() {
		if _, ok := r.Player(playerID); ok {
			views = append(views, r.View(playerID))
		}
	}
	return views
}
