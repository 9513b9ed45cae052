package network

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePacket(t *testing.T) {
	body := []byte(`{"action":"pass"}`)
	raw, err := EncodePacket(MsgTypeAction, body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 201, 0, byte(len(body))}, raw[:4])

	p, err := DecodePacket(raw)
	require.NoError(t, err)
	assert.Equal(t, uint16(MsgTypeAction), p.MsgID)
	assert.Equal(t, uint16(len(body)), p.Length)
	assert.Equal(t, body, p.Data)
}

func TestDecodePacket_Short(t *testing.T) {
	_, err := DecodePacket([]byte{0, 1})
	assert.ErrorIs(t, err, io.ErrShortBuffer)

	// 声明长度 10，实际只有 2 字节
	_, err = DecodePacket([]byte{0, 1, 0, 10, 'a', 'b'})
	assert.ErrorIs(t, err, io.ErrShortBuffer)
}

func TestEncodePacket_TooLarge(t *testing.T) {
	_, err := EncodePacket(MsgTypeRoomState, make([]byte, 1<<16))
	assert.ErrorIs(t, err, ErrPacketTooLarge)
}

func TestWSConnection_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewWSConnection(ws)
		defer conn.Close()
		p, err := conn.ReadPacket()
		if err != nil {
			return
		}
		conn.Send(MsgTypeActionResult, append([]byte("echo:"), p.Data...))
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	client := NewWSConnection(ws)
	defer client.Close()
	client.SetHeartbeat(2 * time.Second)

	require.NoError(t, client.Send(MsgTypeAction, []byte("hi")))
	p, err := client.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, uint16(MsgTypeActionResult), p.MsgID)
	assert.Equal(t, "echo:hi", string(p.Data))
}
