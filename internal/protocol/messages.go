// Package protocol defines the network message types for client-server communication.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the type of message.
type MessageType string

// Authentication message types
const (
	TypeAuthenticate MessageType = "authenticate"
	TypeAuthResult   MessageType = "auth_result"
)

// Session message types
const (
	TypeCreateBattle MessageType = "create_battle"
	TypeLoadBattle   MessageType = "load_battle"
	TypeListBattles  MessageType = "list_battles"
	TypeBattleList   MessageType = "battle_list"
	TypeGetHistory   MessageType = "get_history"
	TypeBattleLog    MessageType = "battle_history"
)

// Battle command message types
const (
	TypeMove          MessageType = "move"
	TypeUndoMove      MessageType = "undo_move"
	TypeUndoAllMoves  MessageType = "undo_all_moves"
	TypeDoneMoves     MessageType = "done_moves"
	TypeStrike        MessageType = "strike"
	TypeChoosePenalty MessageType = "choose_penalty"
	TypeApplyCarry    MessageType = "apply_carry"
	TypeDoneStrikes   MessageType = "done_strikes"
	TypeForcedStrikes MessageType = "forced_strikes"
	TypeConcede       MessageType = "concede"
	TypeSummon        MessageType = "summon"
	TypeSkipSummon    MessageType = "skip_summon"
	TypeReinforce     MessageType = "reinforce"
	TypeSkipReinforce MessageType = "skip_reinforce"
	TypeQuery         MessageType = "query"
)

// Battle reply message types
const (
	TypeBattleState  MessageType = "battle_state"
	TypeActionResult MessageType = "action_result"
	TypeQueryResult  MessageType = "query_result"
	TypeBattleOver   MessageType = "battle_over"
)

// System message types
const (
	TypeWelcome MessageType = "welcome"
	TypeError   MessageType = "error"
	TypePing    MessageType = "ping"
	TypePong    MessageType = "pong"
)

// IsBattleCommand reports whether t is routed to a battle session.
func (t MessageType) IsBattleCommand() bool {
	switch t {
	case TypeMove, TypeUndoMove, TypeUndoAllMoves, TypeDoneMoves,
		TypeStrike, TypeChoosePenalty, TypeApplyCarry, TypeDoneStrikes, TypeForcedStrikes,
		TypeConcede, TypeSummon, TypeSkipSummon, TypeReinforce, TypeSkipReinforce, TypeQuery:
		return true
	}
	return false
}

// Message is the envelope for all messages.
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewMessage creates a new message with the given type and payload.
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UnixMilli(),
		Payload:   data,
	}, nil
}

// ParsePayload unmarshals the payload into the given type.
func (m *Message) ParsePayload(v interface{}) error {
	if len(m.Payload) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(m.Payload, v)
}

// ErrorCode represents an error type.
type ErrorCode string

const (
	ErrCodeInvalidAction    ErrorCode = "invalid_action"
	ErrCodeWrongPhase       ErrorCode = "wrong_phase"
	ErrCodeIllegalMove      ErrorCode = "illegal_move"
	ErrCodeIllegalTarget    ErrorCode = "illegal_target"
	ErrCodeForcedStrikes    ErrorCode = "forced_strikes_remain"
	ErrCodeBattleOver       ErrorCode = "battle_over"
	ErrCodeBattleNotFound   ErrorCode = "battle_not_found"
	ErrCodeNoBattle         ErrorCode = "no_battle"
	ErrCodeUnknownLand      ErrorCode = "unknown_land"
	ErrCodeServerBusy       ErrorCode = "server_busy"
	ErrCodeNotAuthenticated ErrorCode = "not_authenticated"
	ErrCodeInternalError    ErrorCode = "internal_error"
)

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
