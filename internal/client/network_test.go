package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titan-battle/internal/protocol"
)

func TestWsURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"localhost:8080", "ws://localhost:8080/ws"},
		{"ws://10.0.0.2:9000", "ws://10.0.0.2:9000/ws"},
		{"ws://10.0.0.2:9000/ws", "ws://10.0.0.2:9000/ws"},
		{"wss://battles.example.com", "wss://battles.example.com/ws"},
		{"titan.onrender.com:8080", "wss://titan.onrender.com/ws"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wsURL(tt.addr), tt.addr)
	}
}

// echoServer bounces every text frame back to the sender.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestNetworkClient_RoundTrip(t *testing.T) {
	ts := echoServer(t)

	received := make(chan *protocol.Message, 1)
	connected := false
	nc := NewNetworkClient(nil)
	nc.OnConnect = func() { connected = true }
	nc.OnMessage = func(msg *protocol.Message) { received <- msg }

	require.NoError(t, nc.Connect(context.Background(), strings.TrimPrefix(ts.URL, "http://")))
	defer nc.Disconnect()
	assert.True(t, connected)
	assert.True(t, nc.IsConnected())

	id, err := nc.SendPayload(protocol.TypeMove, protocol.MovePayload{Tag: 2, Hex: "C3"})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, id, msg.ID)
		assert.Equal(t, protocol.TypeMove, msg.Type)
		var p protocol.MovePayload
		require.NoError(t, msg.ParsePayload(&p))
		assert.Equal(t, "C3", p.Hex)
	case <-time.After(5 * time.Second):
		t.Fatal("no echo received")
	}

	nc.Disconnect()
	assert.False(t, nc.IsConnected())
	_, err = nc.SendPayload(protocol.TypePing, struct{}{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestNetworkClient_DialFailure(t *testing.T) {
	nc := NewNetworkClient(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, nc.Connect(ctx, "127.0.0.1:1"))
	assert.False(t, nc.IsConnected())
}
