package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/tysiac/logger"
	"github.com/wfunc/tysiac/monitor"
	"github.com/wfunc/tysiac/network"
	"github.com/wfunc/tysiac/services"
	"github.com/wfunc/tysiac/session"
)

// Options configures the HTTP and WebSocket front end.
type Options struct {
	HTTPAddress      string
	AllowedOrigins   []string
	ActionsPerSecond float64
	Burst            int
	Heartbeat        time.Duration
}

type GameServer struct {
	opts           Options
	upgrader       websocket.Upgrader
	service        *services.GameService
	sessionManager *session.Manager
	monitor        *monitor.Monitor
	engine         *gin.Engine
	httpServer     *http.Server
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

// ErrorPacket is the body of an error packet.
type ErrorPacket struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func NewGameServer(opts Options, service *services.GameService, sessions *session.Manager, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		opts:           opts,
		service:        service,
		sessionManager: sessions,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(opts.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *GameServer) Handler() http.Handler {
	return s.engine
}

// Start blocks until the HTTP server stops. A graceful Shutdown returns nil.
func (s *GameServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.opts.HTTPAddress,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Log.Infof("Game server listening on %s", s.opts.HTTPAddress)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *GameServer) handleWebSocket(c *gin.Context) {
	playerID := c.Query("playerId")
	if playerID == "" {
		c.JSON(http.StatusBadRequest, services.Response{Error: "playerId is required", Code: services.CodeValidation})
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn, playerID)
}

func (s *GameServer) handleConnection(conn *websocket.Conn, playerID string) {
	wsConn := network.NewWSConnection(conn)
	if s.opts.Heartbeat > 0 {
		wsConn.SetHeartbeat(s.opts.Heartbeat)
	}
	sess := session.NewSession(uuid.New().String(), wsConn)
	sess.PlayerID = playerID
	sess.SetRateLimit(s.opts.ActionsPerSecond, s.opts.Burst)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infow("New connection", "remote", wsConn.RemoteAddr().String(), "session_id", sess.GetID(), "player_id", playerID)

	defer func() {
		logger.Log.Infow("Connection closed", "remote", wsConn.RemoteAddr().String(), "session_id", sess.GetID(), "player_id", playerID)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		wsConn.Close()
	}()

	s.sendSeatedRooms(sess)

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// sendSeatedRooms pushes the current view of every room the player sits in,
// so a reconnecting player picks up where they left off.
func (s *GameServer) sendSeatedRooms(sess *session.Session) {
	for _, view := range s.service.SeatedViews(sess.PlayerID) {
		data, err := json.Marshal(view)
		if err != nil {
			continue
		}
		sess.Send(network.MsgTypeRoomState, data)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	s.monitor.IncMessagesReceived(network.MsgName(packet.MsgID))
	sess.Touch()
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Send(network.MsgTypeHeartbeat, nil)
	case network.MsgTypeAction:
		s.handleAction(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
		s.sendError(sess, services.CodeValidation, "unknown message type")
	}
}

func (s *GameServer) handleAction(sess *session.Session, packet *network.Packet) {
	if !sess.Allow() {
		s.monitor.IncRateLimited()
		s.sendError(sess, "rate_limited", "too many actions")
		return
	}
	var req services.Request
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, services.CodeValidation, "malformed action")
		return
	}
	// 连接身份优先，客户端不能替别人出牌
	req.PlayerID = sess.PlayerID

	resp := s.service.Dispatch(context.Background(), req)
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Errorw("encode action result", "session_id", sess.GetID(), "error", err)
		return
	}
	if err := sess.Send(network.MsgTypeActionResult, data); err != nil {
		logger.Log.Debugw("send action result", "session_id", sess.GetID(), "error", err)
	}
}

func (s *GameServer) sendError(sess *session.Session, code, msg string) {
	data, _ := json.Marshal(ErrorPacket{Code: code, Error: msg})
	sess.Send(network.MsgTypeError, data)
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
