package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestNATS_PublishesJSON(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync(DefaultSubject)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	n := NewNATS(nc, "")
	require.NoError(t, n.Send(context.Background(), "Backend DOWN", "URL: http://api"))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "Backend DOWN", got.Title)
	assert.Equal(t, "URL: http://api", got.Text)
	assert.False(t, got.SentAt.IsZero())
}

func TestNATS_NilIsDisabled(t *testing.T) {
	n := NewNATS(nil, "x")
	assert.Nil(t, n)
	assert.Error(t, n.Send(context.Background(), "t", "x"))
}
