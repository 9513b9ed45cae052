package broadcast

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// redisClient starts a throwaway redis when TYSIAC_REDIS_TESTS=1.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	if os.Getenv("TYSIAC_REDIS_TESTS") != "1" {
		t.Skip("set TYSIAC_REDIS_TESTS=1 to run against a redis container")
	}
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisPublisher(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	pub := NewRedisPublisher(client, "test")
	r := startedRoom(t)
	r.Version = 3

	sub := client.Subscribe(ctx, pub.Channel(r.ID))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	messages := sub.Channel()

	pub.RoomChanged(ctx, r)
	msg := <-messages
	var got Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, NewEvent(r, false), got)

	summary, ok, err := pub.Summary(ctx, r.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, summary.PlayerCount)

	pub.RoomRemoved(ctx, r)
	msg = <-messages
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.True(t, got.Deleted)

	_, ok, err = pub.Summary(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPublisher_Keys(t *testing.T) {
	pub := NewRedisPublisher(nil, "")
	assert.Equal(t, "tysiac:room:abc", pub.Channel("abc"))
	assert.Equal(t, "tysiac:summary:abc", pub.SummaryKey("abc"))
}
