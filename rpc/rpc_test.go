package rpc

import (
	"encoding/json"
	"net/rpc"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/tysiac/room"
	"github.com/wfunc/tysiac/services"
)

func TestRPC_DispatchAndStats(t *testing.T) {
	svc := services.NewGameService(room.NewRoomManager(nil), nil)
	srv, err := NewServer("127.0.0.1:0", svc)
	require.NoError(t, err)
	go srv.Start()
	defer srv.Stop()

	client, err := rpc.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer client.Close()

	data, _ := json.Marshal(map[string]interface{}{"name": "ops", "nickname": "admin", "maxPlayers": 3})
	var reply DispatchReply
	require.NoError(t, client.Call("Tysiac.Dispatch", &DispatchArgs{Action: "create_room", PlayerID: "admin", Data: data}, &reply))
	require.True(t, reply.Success, string(reply.Body))

	var resp services.Response
	require.NoError(t, json.Unmarshal(reply.Body, &resp))
	assert.Equal(t, "admin", resp.Room.HostID)

	var startReply DispatchReply
	require.NoError(t, client.Call("Tysiac.Dispatch", &DispatchArgs{Action: "start_game", PlayerID: "admin", Data: []byte(`{"roomId":"` + resp.RoomID + `"}`)}, &startReply))
	assert.False(t, startReply.Success)
	assert.Equal(t, services.CodeValidation, startReply.Code)

	var stats StatsReply
	require.NoError(t, client.Call("Tysiac.Stats", &StatsArgs{IncludeRooms: true}, &stats))
	assert.Equal(t, services.Stats{Rooms: 1, Waiting: 1, Players: 1}, stats.Stats)
	require.Len(t, stats.Rooms, 1)
	assert.Equal(t, "ops", stats.Rooms[0].Name)
}
