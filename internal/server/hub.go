package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"titan-battle/internal/protocol"
	"titan-battle/pkg/variant"
)

// Hub maintains the set of connected clients and which battle each watches.
type Hub struct {
	server *Server
	log    *zap.Logger

	// Registered clients
	clients map[*Client]bool

	// Clients by player ID
	playerClients map[string]*Client

	// Clients following each battle
	battleClients map[string]map[*Client]bool

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Closed once Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(server *Server) *Hub {
	return &Hub{
		server:        server,
		log:           server.log.Named("hub"),
		clients:       make(map[*Client]bool),
		playerClients: make(map[string]*Client),
		battleClients: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		done:          make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

			// Send welcome message
			h.sendWelcome(client)

		case client := <-h.unregister:
			h.handleDisconnect(client)
		}
	}
}

// Register adds a client to the hub. It reports false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub. After the hub has stopped it
// only closes the client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.close()
	}
}

// sendWelcome sends a welcome message to a new client.
func (h *Hub) sendWelcome(client *Client) {
	lands := variant.List()
	codes := make([]string, len(lands))
	for i, l := range lands {
		codes[i] = l.Code
	}
	payload := protocol.WelcomePayload{
		ServerName:    h.server.cfg.Server.Name,
		ServerVersion: Version,
		Lands:         codes,
	}
	msg, _ := protocol.NewMessage(protocol.TypeWelcome, payload)
	client.Send(msg)
}

// handleDisconnect handles a client disconnecting.
func (h *Hub) handleDisconnect(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	if client.PlayerID != "" && h.playerClients[client.PlayerID] == client {
		delete(h.playerClients, client.PlayerID)
	}
	if client.BattleID != "" {
		if watchers, ok := h.battleClients[client.BattleID]; ok {
			delete(watchers, client)
			if len(watchers) == 0 {
				delete(h.battleClients, client.BattleID)
			}
		}
	}

	h.log.Debug("client disconnected", zap.String("player", client.PlayerID), zap.String("battle", client.BattleID))
	client.close()
}

// notifyBattle sends a message to every client following a battle.
func (h *Hub) notifyBattle(battleID string, msgType protocol.MessageType, payload interface{}) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		h.log.Error("failed to build message", zap.String("type", string(msgType)), zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.battleClients[battleID]))
	for c := range h.battleClients[battleID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.Send(msg)
	}
}

// JoinBattle makes a client follow a battle, leaving any previous one.
func (h *Hub) JoinBattle(client *Client, battleID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.BattleID != "" {
		if watchers, ok := h.battleClients[client.BattleID]; ok {
			delete(watchers, client)
		}
	}
	if h.battleClients[battleID] == nil {
		h.battleClients[battleID] = make(map[*Client]bool)
	}
	h.battleClients[battleID][client] = true
	client.BattleID = battleID
}

// battleOf returns the battle a client follows.
func (h *Hub) battleOf(client *Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return client.BattleID
}

// SetClientPlayer associates a client with a player ID.
func (h *Hub) SetClientPlayer(client *Client, playerID, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.PlayerID = playerID
	client.Name = name
	h.playerClients[playerID] = client
}

// playerOf returns the player ID of a client, or "" before authentication.
func (h *Hub) playerOf(client *Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return client.PlayerID
}

// Client represents a connected WebSocket client.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan *protocol.Message

	mu     sync.Mutex
	closed bool

	PlayerID string
	BattleID string
	Name     string
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// NewClient creates a new client.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan *protocol.Message, 256),
	}
}

// Send queues a message to be sent to the client.
func (c *Client) Send(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- msg:
	default:
		// Channel full, client too slow
		go c.hub.Unregister(c)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads messages from the WebSocket and handles them in order.
func (c *Client) ReadPump(handlers *Handlers, readLimit int64) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket error", zap.Error(err))
			}
			break
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.log.Warn("invalid message", zap.Error(err))
			continue
		}

		handlers.Handle(c, &msg)
	}
}

// WritePump pumps messages from the hub to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				c.hub.log.Error("failed to marshal message", zap.Error(err))
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
