// Package client implements the terminal battle client.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"titan-battle/internal/protocol"
)

// ErrNotConnected is returned when sending without a connection.
var ErrNotConnected = errors.New("not connected")

// NetworkClient handles WebSocket communication with the server.
type NetworkClient struct {
	log      *zap.Logger
	conn     *websocket.Conn
	sendChan chan *protocol.Message
	done     chan struct{}
	mu       sync.Mutex

	// Callbacks
	OnMessage    func(*protocol.Message)
	OnConnect    func()
	OnDisconnect func(error)

	connected bool
}

// NewNetworkClient creates a new network client.
func NewNetworkClient(log *zap.Logger) *NetworkClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &NetworkClient{
		log:      log.Named("network"),
		sendChan: make(chan *protocol.Message, 64),
		done:     make(chan struct{}),
	}
}

// wsURL builds the WebSocket URL for a server address. Cloud hosts and
// explicit wss:// addresses use TLS on the default port.
func wsURL(serverAddr string) string {
	if strings.HasPrefix(serverAddr, "ws://") {
		return strings.TrimSuffix(serverAddr, "/ws") + "/ws"
	}
	if strings.Contains(serverAddr, ".onrender.com") ||
		strings.Contains(serverAddr, ".fly.dev") ||
		strings.HasPrefix(serverAddr, "wss://") {
		host := strings.TrimSuffix(strings.TrimPrefix(serverAddr, "wss://"), "/ws")
		if i := strings.LastIndex(host, ":"); i != -1 {
			host = host[:i]
		}
		return "wss://" + host + "/ws"
	}
	return "ws://" + serverAddr + "/ws"
}

// Connect establishes a connection to the server.
func (c *NetworkClient) Connect(ctx context.Context, serverAddr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	url := wsURL(serverAddr)
	c.log.Debug("connecting", zap.String("url", url))

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return err
	}

	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})

	go c.readPump(conn, c.done)
	go c.writePump(conn, c.done)

	if c.OnConnect != nil {
		c.OnConnect()
	}
	return nil
}

// Disconnect closes the connection.
func (c *NetworkClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}

	c.connected = false
	close(c.done)

	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "")
		c.conn = nil
	}
}

// IsConnected returns true if connected to server.
func (c *NetworkClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Send queues a message to be sent to the server.
func (c *NetworkClient) Send(msg *protocol.Message) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	select {
	case c.sendChan <- msg:
		return nil
	default:
		return errors.New("send queue full")
	}
}

// SendPayload creates and sends a message with the given type and payload.
// It returns the message ID so replies can be matched.
func (c *NetworkClient) SendPayload(msgType protocol.MessageType, payload interface{}) (string, error) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return "", err
	}
	return msg.ID, c.Send(msg)
}

// readPump reads messages from the WebSocket.
func (c *NetworkClient) readPump(conn *websocket.Conn, done chan struct{}) {
	var readErr error
	defer func() {
		c.mu.Lock()
		wasConnected := c.connected
		c.connected = false
		c.mu.Unlock()

		if wasConnected && c.OnDisconnect != nil {
			c.OnDisconnect(readErr)
		}
	}()

	conn.SetReadLimit(1 << 20)

	for {
		select {
		case <-done:
			return
		default:
		}

		// No read timeout; the write pump's pings detect dead connections.
		msgType, data, err := conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				readErr = err
				c.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("failed to unmarshal message", zap.Error(err))
			continue
		}

		if c.OnMessage != nil {
			c.OnMessage(&msg)
		}
	}
}

// writePump writes messages to the WebSocket.
func (c *NetworkClient) writePump(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case msg := <-c.sendChan:
			data, err := json.Marshal(msg)
			if err != nil {
				c.log.Error("failed to marshal message", zap.Error(err))
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.log.Warn("websocket write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
