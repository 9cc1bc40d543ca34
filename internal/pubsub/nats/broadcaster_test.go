package nats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"swapstats/internal/config"
	"swapstats/internal/pubsub"
	"swapstats/internal/testutil"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ pubsub.Broadcaster = (*Client)(nil)

func runTestNATS(t *testing.T) string {
	t.Helper()

	opts := natsserver.DefaultTestOptions
	opts.Port = -1 // random port
	s := natsserver.RunServer(&opts)
	t.Cleanup(s.Shutdown)

	return s.ClientURL()
}

// ========== Without a server ==========

func TestNew_Errors(t *testing.T) {
	_, err := New(testutil.Logger(), nil)
	assert.EqualError(t, err, "nats config is required")

	_, err = New(testutil.Logger(), &config.NATSConfig{})
	assert.EqualError(t, err, "nats url is required")
}

func TestClient_NilConnection(t *testing.T) {
	c := &Client{log: testutil.Logger()}

	assert.False(t, c.Ready())
	assert.Equal(t, nats.DISCONNECTED, c.Status())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Publish(context.Background(), "x", 1), ErrNotConnected)
	assert.ErrorIs(t, c.Health(context.Background()), ErrNotConnected)
}

func TestClient_Subject(t *testing.T) {
	assert.Equal(t, "ingest.completed", (&Client{}).Subject(pubsub.SubjectIngest))
	assert.Equal(t, "swapstats.ingest.completed", (&Client{prefix: "swapstats"}).Subject(pubsub.SubjectIngest))
}

// ========== In-memory server ==========

func TestClient_Publish(t *testing.T) {
	url := runTestNATS(t)

	c, err := New(testutil.Logger(), &config.NATSConfig{URL: url, BroadcastPrefix: "swapstats."})
	require.NoError(t, err)
	defer c.Close()
	require.True(t, c.Ready())

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	_, err = sub.ChanSubscribe("swapstats.>", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	type event struct {
		Inserted int `json:"inserted"`
	}
	require.NoError(t, c.Publish(context.Background(), pubsub.SubjectIngest, event{Inserted: 3}))
	require.NoError(t, c.Health(context.Background()))

	select {
	case m := <-msgs:
		assert.Equal(t, "swapstats.ingest.completed", m.Subject)
		var got event
		require.NoError(t, json.Unmarshal(m.Data, &got))
		assert.Equal(t, 3, got.Inserted)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	url := runTestNATS(t)

	c, err := New(testutil.Logger(), &config.NATSConfig{URL: url})
	require.NoError(t, err)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Equal(t, nats.CLOSED, c.Status())
}
