package server

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"titan-battle/internal/battle"
	"titan-battle/internal/database"
	"titan-battle/internal/protocol"
)

var (
	errInvalidAction    = errors.New("invalid action")
	errNotAuthenticated = errors.New("not authenticated")
)

func errInvalidPayload(err error) error {
	return fmt.Errorf("%w: bad payload: %v", errInvalidAction, err)
}

// Handlers processes incoming messages.
type Handlers struct {
	hub *Hub
	log *zap.Logger
}

// NewHandlers creates a new handler set.
func NewHandlers(hub *Hub) *Handlers {
	return &Handlers{hub: hub, log: hub.server.log.Named("handlers")}
}

// Handle routes a message to the appropriate handler.
func (h *Handlers) Handle(client *Client, msg *protocol.Message) {
	var err error

	switch msg.Type {
	case protocol.TypeAuthenticate:
		err = h.handleAuthenticate(client, msg)
	case protocol.TypeCreateBattle:
		err = h.handleCreateBattle(client, msg)
	case protocol.TypeLoadBattle:
		err = h.handleLoadBattle(client, msg)
	case protocol.TypeListBattles:
		err = h.handleListBattles(client, msg)
	case protocol.TypeGetHistory:
		err = h.handleGetHistory(client, msg)
	case protocol.TypePing:
		pong, _ := protocol.NewMessage(protocol.TypePong, struct{}{})
		pong.ID = msg.ID
		client.Send(pong)
	default:
		if msg.Type.IsBattleCommand() {
			err = h.handleBattleCommand(client, msg)
		} else {
			err = fmt.Errorf("%w: unknown message type %q", errInvalidAction, msg.Type)
		}
	}

	if err != nil {
		h.sendError(client, msg.ID, err)
	}
}

// handleAuthenticate handles player authentication/registration.
func (h *Handlers) handleAuthenticate(client *Client, msg *protocol.Message) error {
	var payload protocol.AuthenticatePayload
	if err := msg.ParsePayload(&payload); err != nil {
		return errInvalidPayload(err)
	}

	ctx := h.hub.server.ctx
	db := h.hub.server.db
	var player *database.Player
	var err error

	// Try to find existing player by token
	if payload.Token != "" {
		player, err = db.GetPlayerByToken(ctx, payload.Token)
		if err != nil && !errors.Is(err, database.ErrPlayerNotFound) {
			return err
		}
	}

	// Create new player if not found
	if player == nil {
		name := payload.Name
		if name == "" {
			name = "Player"
		}
		player, err = db.CreatePlayer(ctx, name)
		if err != nil {
			return err
		}
		h.log.Info("created player", zap.String("name", player.Name), zap.String("id", player.ID))
	} else {
		if payload.Name != "" && payload.Name != player.Name {
			if err := db.UpdatePlayerName(ctx, player.ID, payload.Name); err != nil {
				return err
			}
			player.Name = payload.Name
		}
		if err := db.UpdatePlayerLastSeen(ctx, player.ID); err != nil {
			h.log.Warn("failed to update last seen", zap.String("id", player.ID), zap.Error(err))
		}
		h.log.Info("player reconnected", zap.String("name", player.Name), zap.String("id", player.ID))
	}

	h.hub.SetClientPlayer(client, player.ID, player.Name)

	response := protocol.AuthResultPayload{
		Success:  true,
		PlayerID: player.ID,
		Token:    player.Token,
		Name:     player.Name,
	}
	respMsg, _ := protocol.NewMessage(protocol.TypeAuthResult, response)
	respMsg.ID = msg.ID
	client.Send(respMsg)

	// Remind returning players of their battles
	battles, err := db.GetPlayerBattles(ctx, player.ID)
	if err != nil {
		h.log.Warn("failed to list player battles", zap.String("id", player.ID), zap.Error(err))
		return nil
	}
	if len(battles) > 0 {
		listMsg, _ := protocol.NewMessage(protocol.TypeBattleList, battleList(battles))
		client.Send(listMsg)
	}
	return nil
}

// handleCreateBattle starts a new battle and makes the client follow it.
func (h *Handlers) handleCreateBattle(client *Client, msg *protocol.Message) error {
	playerID := h.hub.playerOf(client)
	if playerID == "" {
		return errNotAuthenticated
	}

	var payload protocol.CreateBattlePayload
	if err := msg.ParsePayload(&payload); err != nil {
		return errInvalidPayload(err)
	}

	sess, err := h.hub.server.createBattle(h.hub.server.ctx, playerID, payload)
	if err != nil {
		return err
	}
	h.hub.JoinBattle(client, sess.id)
	state := sess.State()
	go sess.run(h.hub.server.ctx)

	h.sendState(client, msg.ID, state)
	return nil
}

// handleLoadBattle resumes a stored battle, or joins it if it is live.
func (h *Handlers) handleLoadBattle(client *Client, msg *protocol.Message) error {
	if h.hub.playerOf(client) == "" {
		return errNotAuthenticated
	}

	var payload protocol.LoadBattlePayload
	if err := msg.ParsePayload(&payload); err != nil {
		return errInvalidPayload(err)
	}
	if payload.BattleID == "" {
		return fmt.Errorf("%w: battle_id is required", errInvalidAction)
	}

	s := h.hub.server
	if live := s.sessions.get(payload.BattleID); live != nil {
		h.hub.JoinBattle(client, live.id)
		return live.Submit(client, msg)
	}

	sess, live, err := s.restoreBattle(s.ctx, payload.BattleID)
	if err != nil {
		return err
	}
	h.hub.JoinBattle(client, sess.id)
	if live {
		return sess.Submit(client, msg)
	}

	state := sess.State()
	if !sess.battle.IsOver() {
		go sess.run(s.ctx)
	}
	h.sendState(client, msg.ID, state)

	if r, ok := sess.battle.Result(); ok {
		overMsg, _ := protocol.NewMessage(protocol.TypeBattleOver, protocol.BattleOverPayload{BattleID: sess.id, Result: r})
		client.Send(overMsg)
	}
	return nil
}

// handleListBattles sends the stored battles.
func (h *Handlers) handleListBattles(client *Client, msg *protocol.Message) error {
	var payload protocol.ListBattlesPayload
	if err := msg.ParsePayload(&payload); err != nil {
		return errInvalidPayload(err)
	}

	battles, err := h.hub.server.db.ListBattles(h.hub.server.ctx, database.BattleStatus(payload.Status))
	if err != nil {
		return err
	}

	respMsg, _ := protocol.NewMessage(protocol.TypeBattleList, battleList(battles))
	respMsg.ID = msg.ID
	client.Send(respMsg)
	return nil
}

// handleGetHistory sends the event log of the followed battle.
func (h *Handlers) handleGetHistory(client *Client, msg *protocol.Message) error {
	battleID := h.hub.battleOf(client)
	if battleID == "" {
		return ErrNoBattle
	}

	var payload protocol.GetHistoryPayload
	if err := msg.ParsePayload(&payload); err != nil {
		return errInvalidPayload(err)
	}

	events, err := h.hub.server.db.GetBattleHistorySince(h.hub.server.ctx, battleID, payload.AfterID)
	if err != nil {
		return err
	}

	history := protocol.BattleHistoryPayload{
		BattleID: battleID,
		Events:   make([]protocol.HistoryEvent, len(events)),
	}
	for i, e := range events {
		history.Events[i] = protocol.HistoryEvent{
			ID:        e.ID,
			Turn:      e.Turn,
			Phase:     e.Phase,
			Side:      e.Side,
			EventType: e.EventType,
			Message:   e.Message,
		}
	}

	respMsg, _ := protocol.NewMessage(protocol.TypeBattleLog, history)
	respMsg.ID = msg.ID
	client.Send(respMsg)
	return nil
}

// handleBattleCommand queues a command on the followed battle's session.
func (h *Handlers) handleBattleCommand(client *Client, msg *protocol.Message) error {
	battleID := h.hub.battleOf(client)
	if battleID == "" {
		return ErrNoBattle
	}
	sess := h.hub.server.sessions.get(battleID)
	if sess == nil {
		return ErrNoBattle
	}
	return sess.Submit(client, msg)
}

func (h *Handlers) sendState(client *Client, msgID string, state protocol.BattleStatePayload) {
	msg, _ := protocol.NewMessage(protocol.TypeBattleState, state)
	msg.ID = msgID
	client.Send(msg)
}

// sendError sends an error response.
func (h *Handlers) sendError(client *Client, msgID string, err error) {
	code := errorCode(err)
	if code == protocol.ErrCodeInternalError {
		h.log.Error("request failed", zap.String("id", msgID), zap.Error(err))
	}
	payload := protocol.ErrorPayload{
		Code:    code,
		Message: err.Error(),
	}
	msg, _ := protocol.NewMessage(protocol.TypeError, payload)
	msg.ID = msgID
	client.Send(msg)
}

// errorCode classifies an error for clients.
func errorCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, battle.ErrBattleOver):
		return protocol.ErrCodeBattleOver
	case errors.Is(err, battle.ErrWrongPhase),
		errors.Is(err, battle.ErrCannotSummon),
		errors.Is(err, battle.ErrCannotRecruit):
		return protocol.ErrCodeWrongPhase
	case errors.Is(err, battle.ErrIllegalMove):
		return protocol.ErrCodeIllegalMove
	case errors.Is(err, battle.ErrIllegalTarget),
		errors.Is(err, battle.ErrNotCarryTarget),
		errors.Is(err, battle.ErrAlreadyStruck):
		return protocol.ErrCodeIllegalTarget
	case errors.Is(err, battle.ErrForcedStrikesRemain):
		return protocol.ErrCodeForcedStrikes
	case errors.Is(err, battle.ErrNoSuchCritter),
		errors.Is(err, battle.ErrNoSuchHex),
		errors.Is(err, battle.ErrNotActive),
		errors.Is(err, battle.ErrNoPenaltyOption),
		errors.Is(err, battle.ErrUnknownCreature),
		errors.Is(err, battle.ErrBadRolls),
		errors.Is(err, battle.ErrInvalidState),
		errors.Is(err, errInvalidAction):
		return protocol.ErrCodeInvalidAction
	case errors.Is(err, database.ErrBattleNotFound):
		return protocol.ErrCodeBattleNotFound
	case errors.Is(err, ErrNoBattle):
		return protocol.ErrCodeNoBattle
	case errors.Is(err, ErrUnknownLand):
		return protocol.ErrCodeUnknownLand
	case errors.Is(err, ErrServerBusy), errors.Is(err, ErrSessionBusy):
		return protocol.ErrCodeServerBusy
	case errors.Is(err, errNotAuthenticated):
		return protocol.ErrCodeNotAuthenticated
	}
	return protocol.ErrCodeInternalError
}

func battleList(battles []*database.BattleInfo) protocol.BattleListPayload {
	list := protocol.BattleListPayload{Battles: make([]protocol.BattleListItem, len(battles))}
	for i, b := range battles {
		list.Battles[i] = protocol.BattleListItem{
			ID:        b.ID,
			Name:      b.Name,
			Land:      b.Land,
			Status:    string(b.Status),
			Turn:      b.Turn,
			Phase:     b.Phase,
			CreatedAt: b.CreatedAt,
		}
	}
	return list
}
