package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/tysiac/logger"
	"github.com/wfunc/tysiac/network"
	"github.com/wfunc/tysiac/room"
	"github.com/wfunc/tysiac/services"
)

// tracker remembers the room the player is looking at and the newest
// version rendered per room.
type tracker struct {
	mu       sync.Mutex
	roomID   string
	versions map[string]int64
}

// fresh reports whether v is not older than what was already shown.
func (t *tracker) fresh(v room.View) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.versions == nil {
		t.versions = make(map[string]int64)
	}
	if last, ok := t.versions[v.ID]; ok && v.Version < last {
		return false
	}
	t.versions[v.ID] = v.Version
	return true
}

func (t *tracker) get() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.roomID
}

func (t *tracker) set(id string) {
	t.mu.Lock()
	t.roomID = id
	t.mu.Unlock()
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	playerID := flag.String("player", "", "player id (random when empty)")
	flag.Parse()

	logger.InitDevelopment()
	defer logger.Sync()
	log := logger.Log

	if *playerID == "" {
		*playerID = uuid.NewString()
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws", RawQuery: url.Values{"playerId": {*playerID}}.Encode()}
	log.Infof("Connecting to %s", u.String())

	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	conn := network.NewWSConnection(ws)
	defer conn.Close()

	current := &tracker{}
	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			packet, err := conn.ReadPacket()
			if err != nil {
				log.Infof("Read error: %v", err)
				return
			}
			handlePacket(packet, *playerID, current)
		}
	}()

	// 心跳
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				conn.Send(network.MsgTypeHeartbeat, nil)
			}
		}
	}()

	log.Infof("Playing as %s. Type 'help' for commands.", *playerID)

	lines := make(chan string)
	go func() {
		reader := bufio.NewScanner(os.Stdin)
		for reader.Scan() {
			lines <- reader.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Info("Interrupt received, closing connection.")
			err := ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Infof("Write close error: %v", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case text, ok := <-lines:
			if !ok {
				return
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			if text == "help" {
				os.Stdout.WriteString(usage)
				continue
			}
			req, err := parseCommand(text, current.get())
			if err != nil {
				log.Warnf("%v", err)
				continue
			}
			data, _ := json.Marshal(req)
			if err := conn.Send(network.MsgTypeAction, data); err != nil {
				log.Errorf("Write error: %v", err)
				return
			}
			log.Debugf("-> SENT: %s", data)
		}
	}
}

func handlePacket(packet *network.Packet, playerID string, current *tracker) {
	log := logger.Log
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
	case network.MsgTypeActionResult:
		var resp services.Response
		if err := json.Unmarshal(packet.Data, &resp); err != nil {
			log.Warnf("bad action result: %v", err)
			return
		}
		if !resp.Success {
			log.Warnf("<- %s: %s", resp.Code, resp.Error)
			return
		}
		if resp.RoomID != "" && !resp.Deleted {
			current.set(resp.RoomID)
		}
		if resp.Deleted {
			current.set("")
		}
		for _, s := range resp.Rooms {
			log.Infof("<- room %s code=%s %q %d/%d %s", s.ID, s.Code, s.Name, s.PlayerCount, s.MaxPlayers, s.Status)
		}
		if resp.Winner != nil {
			log.Infof("<- last winner %s with %d after %d rounds", resp.Winner.Name, resp.Winner.Score, resp.Winner.Rounds)
		}
	case network.MsgTypeRoomState:
		var v room.View
		if err := json.Unmarshal(packet.Data, &v); err != nil {
			log.Warnf("bad room state: %v", err)
			return
		}
		if !current.fresh(v) {
			log.Debugf("<- stale room state v%d dropped", v.Version)
			return
		}
		current.set(v.ID)
		os.Stdout.WriteString(render(v, playerID))
	case network.MsgTypeRoomClosed:
		current.set("")
		log.Infof("<- room closed: %s", packet.Data)
	default:
		log.Infof("<- RECV (ID: %d): %s", packet.MsgID, packet.Data)
	}
}
