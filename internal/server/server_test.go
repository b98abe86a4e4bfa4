package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"titan-battle/internal/battle"
	"titan-battle/internal/config"
	"titan-battle/internal/protocol"
	"titan-battle/pkg/variant"
)

// Helper to start a server on a temp database
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	require.NoError(t, variant.LoadAll())

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "battles.db")
	cfg.Battle.MaxSessions = 4

	s, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		s.Stop(context.Background())
	})
	return s, ts
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

// Helper to dial the server and swallow the welcome message
func dial(t *testing.T, ts *httptest.Server) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &wsClient{t: t, conn: conn}
	welcome := c.expect(protocol.TypeWelcome)
	var payload protocol.WelcomePayload
	require.NoError(t, welcome.ParsePayload(&payload))
	assert.Contains(t, payload.Lands, "T")
	return c
}

func (c *wsClient) send(msgType protocol.MessageType, payload interface{}) string {
	c.t.Helper()
	msg, err := protocol.NewMessage(msgType, payload)
	require.NoError(c.t, err)
	data, err := json.Marshal(msg)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, data))
	return msg.ID
}

// expect reads until a message of the given type arrives.
func (c *wsClient) expect(msgType protocol.MessageType) *protocol.Message {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", msgType)
		var msg protocol.Message
		require.NoError(c.t, json.Unmarshal(data, &msg))
		if msg.Type == msgType {
			return &msg
		}
	}
}

func (c *wsClient) expectError(code protocol.ErrorCode) {
	c.t.Helper()
	msg := c.expect(protocol.TypeError)
	var payload protocol.ErrorPayload
	require.NoError(c.t, msg.ParsePayload(&payload))
	assert.Equal(c.t, code, payload.Code, payload.Message)
}

func (c *wsClient) authenticate(name string) protocol.AuthResultPayload {
	c.t.Helper()
	c.send(protocol.TypeAuthenticate, protocol.AuthenticatePayload{Name: name})
	var result protocol.AuthResultPayload
	require.NoError(c.t, c.expect(protocol.TypeAuthResult).ParsePayload(&result))
	require.True(c.t, result.Success)
	return result
}

func (c *wsClient) createBattle() protocol.BattleStatePayload {
	c.t.Helper()
	id := c.send(protocol.TypeCreateBattle, protocol.CreateBattlePayload{
		Land:      "P",
		MasterHex: "100",
		Seed:      7,
		Attacker:  protocol.LegionPayload{MarkerID: "Rd01", Player: "red", EntrySide: 3, Creatures: []string{"Ogre"}},
		Defender:  protocol.LegionPayload{MarkerID: "Bu01", Player: "blue", Creatures: []string{"Centaur"}},
	})
	msg := c.expect(protocol.TypeBattleState)
	assert.Equal(c.t, id, msg.ID)
	var state protocol.BattleStatePayload
	require.NoError(c.t, msg.ParsePayload(&state))
	return state
}

func TestWebSocket_CreateQueryMove(t *testing.T) {
	_, ts := newTestServer(t)
	c := dial(t, ts)
	c.authenticate("red")

	state := c.createBattle()
	assert.NotEmpty(t, state.BattleID)
	assert.Equal(t, "P", state.Land)
	assert.Equal(t, battle.PhaseMove, state.State.Phase)
	assert.Equal(t, battle.Defender, state.State.ActiveSide)
	require.Len(t, state.State.Defender.Critters, 1)
	tag := state.State.Defender.Critters[0].Tag

	c.send(protocol.TypeQuery, protocol.QueryPayload{Kind: protocol.QueryLegalMoves, Tag: tag})
	var moves protocol.QueryResultPayload
	require.NoError(t, c.expect(protocol.TypeQueryResult).ParsePayload(&moves))
	require.NotEmpty(t, moves.Labels)

	target := moves.Labels[len(moves.Labels)-1]
	id := c.send(protocol.TypeMove, protocol.MovePayload{Tag: tag, Hex: target})
	var result protocol.ActionResultPayload
	require.NoError(t, c.expect(protocol.TypeActionResult).ParsePayload(&result))
	assert.Equal(t, id, result.ActionID)
	assert.True(t, result.Success)

	var after protocol.BattleStatePayload
	require.NoError(t, c.expect(protocol.TypeBattleState).ParsePayload(&after))
	assert.Equal(t, target, after.State.Defender.Critters[0].CurrentHex)
	assert.True(t, after.CanUndo)

	c.send(protocol.TypeGetHistory, protocol.GetHistoryPayload{})
	var history protocol.BattleHistoryPayload
	require.NoError(t, c.expect(protocol.TypeBattleLog).ParsePayload(&history))
	assert.Equal(t, state.BattleID, history.BattleID)
	require.NotEmpty(t, history.Events)
	assert.Equal(t, "move", history.Events[len(history.Events)-1].EventType)
}

func TestWebSocket_Errors(t *testing.T) {
	_, ts := newTestServer(t)
	c := dial(t, ts)

	c.send(protocol.TypeCreateBattle, protocol.CreateBattlePayload{Land: "P"})
	c.expectError(protocol.ErrCodeNotAuthenticated)

	c.send(protocol.TypeDoneMoves, struct{}{})
	c.expectError(protocol.ErrCodeNoBattle)

	c.send("dance", struct{}{})
	c.expectError(protocol.ErrCodeInvalidAction)

	c.authenticate("red")
	c.send(protocol.TypeCreateBattle, protocol.CreateBattlePayload{
		Land:     "Q",
		Attacker: protocol.LegionPayload{MarkerID: "Rd01", Creatures: []string{"Ogre"}},
		Defender: protocol.LegionPayload{MarkerID: "Bu01", Creatures: []string{"Ogre"}},
	})
	c.expectError(protocol.ErrCodeUnknownLand)

	c.send(protocol.TypeLoadBattle, protocol.LoadBattlePayload{BattleID: "missing"})
	c.expectError(protocol.ErrCodeBattleNotFound)

	state := c.createBattle()
	tag := state.State.Defender.Critters[0].Tag

	c.send(protocol.TypeStrike, protocol.StrikePayload{Tag: tag, Target: "D4"})
	c.expectError(protocol.ErrCodeWrongPhase)

	c.send(protocol.TypeMove, protocol.MovePayload{Tag: 99, Hex: "D4"})
	c.expectError(protocol.ErrCodeInvalidAction)

	c.send(protocol.TypeQuery, protocol.QueryPayload{Kind: "weather"})
	c.expectError(protocol.ErrCodeInvalidAction)

	c.send(protocol.TypePing, struct{}{})
	c.expect(protocol.TypePong)
}

func TestWebSocket_ConcedeFinishesBattle(t *testing.T) {
	s, ts := newTestServer(t)
	c := dial(t, ts)
	c.authenticate("blue")
	state := c.createBattle()
	assert.Equal(t, 1, s.sessions.count())

	c.send(protocol.TypeConcede, protocol.ConcedePayload{Side: battle.Defender})
	var over protocol.BattleOverPayload
	require.NoError(t, c.expect(protocol.TypeBattleOver).ParsePayload(&over))
	assert.Equal(t, state.BattleID, over.BattleID)
	assert.Equal(t, battle.Attacker, over.Result.Winner)

	require.Eventually(t, func() bool { return s.sessions.count() == 0 }, 2*time.Second, 10*time.Millisecond)

	c.send(protocol.TypeDoneMoves, struct{}{})
	c.expectError(protocol.ErrCodeNoBattle)

	// Loading a finished battle shows the final state and result.
	c.send(protocol.TypeLoadBattle, protocol.LoadBattlePayload{BattleID: state.BattleID})
	var final protocol.BattleStatePayload
	require.NoError(t, c.expect(protocol.TypeBattleState).ParsePayload(&final))
	assert.True(t, final.State.Over)
	c.expect(protocol.TypeBattleOver)

	resp, err := http.Get(ts.URL + "/api/battles/" + state.BattleID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Battle struct {
			Status string `json:"status"`
		} `json:"battle"`
		Result *battle.Result `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "finished", body.Battle.Status)
	require.NotNil(t, body.Result)
	assert.Equal(t, battle.Attacker, body.Result.Winner)
}

func TestWebSocket_ResumeAfterRestart(t *testing.T) {
	s, ts := newTestServer(t)
	c := dial(t, ts)
	auth := c.authenticate("red")
	state := c.createBattle()

	// A second player follows the same live battle.
	other := dial(t, ts)
	other.authenticate("blue")
	other.send(protocol.TypeLoadBattle, protocol.LoadBattlePayload{BattleID: state.BattleID})
	var joined protocol.BattleStatePayload
	require.NoError(t, other.expect(protocol.TypeBattleState).ParsePayload(&joined))
	assert.Equal(t, state.BattleID, joined.BattleID)

	tag := state.State.Defender.Critters[0].Tag
	c.send(protocol.TypeQuery, protocol.QueryPayload{Kind: protocol.QueryLegalMoves, Tag: tag})
	var moves protocol.QueryResultPayload
	require.NoError(t, c.expect(protocol.TypeQueryResult).ParsePayload(&moves))
	require.NotEmpty(t, moves.Labels)
	c.send(protocol.TypeMove, protocol.MovePayload{Tag: tag, Hex: moves.Labels[0]})
	c.expect(protocol.TypeActionResult)

	// The move reaches the follower too.
	var seen protocol.BattleStatePayload
	require.NoError(t, other.expect(protocol.TypeBattleState).ParsePayload(&seen))
	assert.Equal(t, moves.Labels[0], seen.State.Defender.Critters[0].CurrentHex)

	// Drop the live session as a restart would; the stored snapshot remains.
	live := s.sessions.get(state.BattleID)
	require.NotNil(t, live)
	live.stop()
	require.Nil(t, s.sessions.get(state.BattleID))

	reconnect := dial(t, ts)
	reconnect.send(protocol.TypeAuthenticate, protocol.AuthenticatePayload{Token: auth.Token})
	var again protocol.AuthResultPayload
	require.NoError(t, reconnect.expect(protocol.TypeAuthResult).ParsePayload(&again))
	assert.Equal(t, auth.PlayerID, again.PlayerID)

	var mine protocol.BattleListPayload
	require.NoError(t, reconnect.expect(protocol.TypeBattleList).ParsePayload(&mine))
	require.Len(t, mine.Battles, 1)
	assert.Equal(t, state.BattleID, mine.Battles[0].ID)

	reconnect.send(protocol.TypeLoadBattle, protocol.LoadBattlePayload{BattleID: state.BattleID})
	var restored protocol.BattleStatePayload
	require.NoError(t, reconnect.expect(protocol.TypeBattleState).ParsePayload(&restored))
	assert.Equal(t, moves.Labels[0], restored.State.Defender.Critters[0].CurrentHex)
	assert.False(t, restored.CanUndo, "move history is not restored")
	assert.NotNil(t, s.sessions.get(state.BattleID))
}

func TestHTTP_API(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/lands")
	require.NoError(t, err)
	var lands []variant.LandInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lands))
	resp.Body.Close()
	assert.Len(t, lands, 11)

	resp, err = http.Get(ts.URL + "/api/battles/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/pool/Angel", strings.NewReader(`{"available": 0}`))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/pool")
	require.NoError(t, err)
	var pool struct {
		Available map[string]int `json:"available"`
		Exhausted []string       `json:"exhausted"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pool))
	resp.Body.Close()
	assert.Equal(t, 0, pool.Available["Angel"])
	assert.Contains(t, pool.Exhausted, "Angel")

	req, err = http.NewRequest(http.MethodPut, ts.URL+"/api/pool/Phoenix", strings.NewReader(`{"available": 1}`))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTP_DeleteBattle(t *testing.T) {
	s, ts := newTestServer(t)
	c := dial(t, ts)
	c.authenticate("red")
	state := c.createBattle()

	del := func() int {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/battles/"+state.BattleID, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusConflict, del())
	s.sessions.get(state.BattleID).stop()
	assert.Equal(t, http.StatusNoContent, del())
	assert.Equal(t, http.StatusNotFound, del())
}

func TestSessionManager_Limit(t *testing.T) {
	s, _ := newTestServer(t)
	m := newSessionManager(1)

	a := newSession(s, "a", "P")
	got, err := m.add(a)
	require.NoError(t, err)
	assert.Same(t, a, got)

	again, err := m.add(newSession(s, "a", "P"))
	require.NoError(t, err)
	assert.Same(t, a, again, "an id already live returns the live session")

	_, err = m.add(newSession(s, "b", "P"))
	assert.ErrorIs(t, err, ErrServerBusy)

	m.remove("a")
	assert.Equal(t, 0, m.count())
}

func TestHub_StoppedDoesNotBlock(t *testing.T) {
	s, _ := newTestServer(t)
	hub := NewHub(s)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()

	select {
	case <-hub.done:
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not stop")
	}

	client := NewClient(hub, nil)
	finished := make(chan bool)
	go func() {
		registered := hub.Register(client)
		hub.Unregister(client)
		finished <- registered
	}()

	select {
	case registered := <-finished:
		assert.False(t, registered)
	case <-time.After(5 * time.Second):
		t.Fatal("register/unregister blocked on a stopped hub")
	}
	client.mu.Lock()
	assert.True(t, client.closed)
	client.mu.Unlock()
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		code protocol.ErrorCode
	}{
		{battle.ErrIllegalMove, protocol.ErrCodeIllegalMove},
		{battle.ErrNotCarryTarget, protocol.ErrCodeIllegalTarget},
		{battle.ErrForcedStrikesRemain, protocol.ErrCodeForcedStrikes},
		{battle.ErrCannotRecruit, protocol.ErrCodeWrongPhase},
		{ErrSessionBusy, protocol.ErrCodeServerBusy},
		{errInvalidPayload(assert.AnError), protocol.ErrCodeInvalidAction},
		{assert.AnError, protocol.ErrCodeInternalError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, errorCode(tt.err), tt.err.Error())
	}
}
