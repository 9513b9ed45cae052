package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/tysiac/broadcast"
	"github.com/wfunc/tysiac/monitor"
	"github.com/wfunc/tysiac/network"
	"github.com/wfunc/tysiac/persistence"
	"github.com/wfunc/tysiac/room"
	"github.com/wfunc/tysiac/services"
	"github.com/wfunc/tysiac/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts Options) *GameServer {
	t.Helper()
	store := persistence.NewMemory()
	sessions := session.NewManager()
	mon := monitor.NewMonitor("test")
	svc := services.NewGameService(
		room.NewRoomManager(persistence.NewRoomCommitter(store)),
		store,
		services.WithNotifier(broadcast.NewHub(sessions)),
		services.WithRecorder(mon),
	)
	return NewGameServer(opts, svc, sessions, mon)
}

func postAction(t *testing.T, h http.Handler, playerID string, body interface{}) (*httptest.ResponseRecorder, services.Response) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/action", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if playerID != "" {
		req.Header.Set(playerHeader, playerID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp services.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHTTP_ActionFlow(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec, created := postAction(t, h, "ann", map[string]interface{}{
		"action": "create_room",
		"data":   map[string]interface{}{"name": "evening", "nickname": "ann", "maxPlayers": 2},
	})
	require.Equal(t, http.StatusOK, rec.Code, created.Error)
	require.True(t, created.Success)

	// playerId in the body works without the header
	rec, joined := postAction(t, h, "", map[string]interface{}{
		"action":   "join_room",
		"playerId": "bob",
		"data":     map[string]interface{}{"roomId": created.RoomID, "nickname": "bob"},
	})
	require.Equal(t, http.StatusOK, rec.Code, joined.Error)

	rec, resp := postAction(t, h, "bob", map[string]interface{}{
		"action": "start_game",
		"data":   map[string]interface{}{"roomId": created.RoomID},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, services.CodeAuthorization, resp.Code)

	rec, resp = postAction(t, h, "carol", map[string]interface{}{
		"action": "join_room",
		"data":   map[string]interface{}{"roomId": created.RoomID, "nickname": "carol"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.CodeRoomFull, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/"+created.RoomID, nil)
	req.Header.Set(playerHeader, "bob")
	get := httptest.NewRecorder()
	h.ServeHTTP(get, req)
	require.Equal(t, http.StatusOK, get.Code)
	var view services.Response
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &view))
	assert.Equal(t, "bob", view.Room.ViewerID)

	list := httptest.NewRecorder()
	h.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
	var rooms services.Response
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &rooms))
	assert.Len(t, rooms.Rooms, 1)
}

func TestHTTP_StatusCodes(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	missing := httptest.NewRecorder()
	h.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/rooms/none", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)

	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, httptest.NewRequest(http.MethodPost, "/api/action", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	winner := httptest.NewRecorder()
	h.ServeHTTP(winner, httptest.NewRequest(http.MethodGet, "/api/last-winner", nil))
	assert.Equal(t, http.StatusOK, winner.Code)

	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "healthy", health.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		services.CodeValidation:    http.StatusBadRequest,
		services.CodeRoomFull:      http.StatusBadRequest,
		services.CodeTurn:          http.StatusBadRequest,
		services.CodeIllegalMove:   http.StatusBadRequest,
		services.CodeAuthorization: http.StatusForbidden,
		services.CodeNotFound:      http.StatusNotFound,
		services.CodeConflict:      http.StatusConflict,
		services.CodeInternal:      http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, StatusFor(services.Response{Code: code}), code)
	}
	assert.Equal(t, http.StatusOK, StatusFor(services.Response{Success: true}))
}

func TestHTTP_Metrics(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	postAction(t, h, "ann", map[string]interface{}{"action": "list_rooms"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_actions_total{action="list_rooms",result="ok"} 1`)
}

func dialWS(t *testing.T, srv *httptest.Server, playerID string) *network.WSConnection {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?playerId=" + playerID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	conn := network.NewWSConnection(ws)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendAction(t *testing.T, conn *network.WSConnection, action string, data map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"action": action, "data": data})
	require.NoError(t, err)
	require.NoError(t, conn.Send(network.MsgTypeAction, raw))
}

// readUntil reads packets until one with msgID arrives.
func readUntil(t *testing.T, conn *network.WSConnection, msgID uint16) []byte {
	t.Helper()
	conn.SetHeartbeat(2 * time.Second)
	for i := 0; i < 10; i++ {
		p, err := conn.ReadPacket()
		require.NoError(t, err)
		if p.MsgID == msgID {
			return p.Data
		}
	}
	t.Fatalf("no packet %d received", msgID)
	return nil
}

func TestWebSocket_ActionsAndRoomState(t *testing.T) {
	gs := newTestServer(t, Options{ActionsPerSecond: 100, Burst: 100})
	srv := httptest.NewServer(gs.Handler())
	defer srv.Close()

	ann := dialWS(t, srv, "ann")
	sendAction(t, ann, "create_room", map[string]interface{}{"name": "ws", "nickname": "ann", "maxPlayers": 2})

	var result services.Response
	require.NoError(t, json.Unmarshal(readUntil(t, ann, network.MsgTypeActionResult), &result))
	require.True(t, result.Success, result.Error)

	bob := dialWS(t, srv, "bob")
	sendAction(t, bob, "join_room", map[string]interface{}{"roomId": result.RoomID, "nickname": "bob"})
	readUntil(t, bob, network.MsgTypeActionResult)

	// ann is pushed her own view after bob joins
	var view room.View
	require.NoError(t, json.Unmarshal(readUntil(t, ann, network.MsgTypeRoomState), &view))
	assert.Equal(t, "ann", view.ViewerID)

	// a reconnecting player gets the rooms they sit in straight away
	again := dialWS(t, srv, "bob")
	require.NoError(t, json.Unmarshal(readUntil(t, again, network.MsgTypeRoomState), &view))
	assert.Equal(t, result.RoomID, view.ID)
	assert.Equal(t, "bob", view.ViewerID)
}

func TestWebSocket_IdentityComesFromConnection(t *testing.T) {
	gs := newTestServer(t, Options{})
	srv := httptest.NewServer(gs.Handler())
	defer srv.Close()

	eve := dialWS(t, srv, "eve")
	raw, _ := json.Marshal(map[string]interface{}{
		"action": "create_room", "playerId": "ann",
		"data": map[string]interface{}{"name": "x", "nickname": "eve", "maxPlayers": 2},
	})
	require.NoError(t, eve.Send(network.MsgTypeAction, raw))

	var result services.Response
	require.NoError(t, json.Unmarshal(readUntil(t, eve, network.MsgTypeActionResult), &result))
	require.True(t, result.Success)
	assert.Equal(t, "eve", result.Room.HostID)
}

func TestWebSocket_RateLimited(t *testing.T) {
	gs := newTestServer(t, Options{ActionsPerSecond: 0.001, Burst: 1})
	srv := httptest.NewServer(gs.Handler())
	defer srv.Close()

	conn := dialWS(t, srv, "ann")
	sendAction(t, conn, "list_rooms", nil)
	readUntil(t, conn, network.MsgTypeActionResult)

	sendAction(t, conn, "list_rooms", nil)
	var pkt ErrorPacket
	require.NoError(t, json.Unmarshal(readUntil(t, conn, network.MsgTypeError), &pkt))
	assert.Equal(t, "rate_limited", pkt.Code)
}

func TestWebSocket_RequiresPlayerID(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, originAllowed([]string{"*"}, "http://evil.example"))
	assert.True(t, originAllowed([]string{"http://a.example"}, "http://a.example"))
	assert.False(t, originAllowed([]string{"http://a.example"}, "http://b.example"))
	assert.True(t, originAllowed(nil, ""))
}
