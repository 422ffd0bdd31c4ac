package notify

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	server "github.com/zishang520/socket.io/v2/socket"
)

func TestDial_InvalidURL(t *testing.T) {
	testCases := []struct {
		name string
		url  string
	}{
		{name: "relative", url: "/assets"},
		{name: "unparsable", url: "http://[::1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Dial(context.Background(), tc.url, Options{})
			assert.Error(t, err)
		})
	}
}

func TestDial_RetriesThenGivesUp(t *testing.T) {
	// Arrange: a port nobody listens on.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	// Act
	start := time.Now()
	_, err = Dial(context.Background(), "http://"+addr+"/assets", Options{
		MaxTries:        2,
		InitialInterval: 10 * time.Millisecond,
		ConnectTimeout:  2 * time.Second,
	})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}
	assert.NoError(t, p.Publish(context.Background(), &Event{OK: true}))
	assert.NoError(t, p.Close())
}

func TestConnectError(t *testing.T) {
	assert.EqualError(t, connectError(nil), "connection refused without a reason")
	assert.EqualError(t, connectError([]any{errors.New("websocket error")}), "websocket error")
	assert.EqualError(t, connectError([]any{"unauthorized"}), "unauthorized")
}

func TestPublish_ServerReceivesBuildEvent(t *testing.T) {
	// Arrange
	received := make(chan map[string]any, 1)
	io := server.NewServer(nil, nil)
	io.Of("/assets", nil).On("connection", func(clients ...any) {
		client := clients[0].(*server.Socket)
		client.On(EventName, func(args ...any) {
			if len(args) == 0 {
				return
			}
			if payload, ok := args[0].(map[string]any); ok {
				received <- payload
			}
		})
	})
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", io.ServeHandler(nil))
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		io.Close(nil)
		srv.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := Dial(ctx, srv.URL+"/assets", Options{MaxTries: 3, InitialInterval: 50 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	// Act
	err = c.Publish(ctx, &Event{
		OK:       false,
		Error:    "transform failed",
		Changed:  []string{"app.js"},
		Outputs:  []string{"app.3f2a1b.js"},
		Duration: "12ms",
	})
	require.NoError(t, err)

	// Assert
	select {
	case payload := <-received:
		assert.Equal(t, false, payload["ok"])
		assert.Equal(t, "transform failed", payload["error"])
		assert.Equal(t, []any{"app.js"}, payload["changed"])
		assert.Equal(t, []any{"app.3f2a1b.js"}, payload["outputs"])
		assert.Equal(t, "12ms", payload["duration"])
	case <-ctx.Done():
		t.Fatal("server did not receive the build event")
	}
}
