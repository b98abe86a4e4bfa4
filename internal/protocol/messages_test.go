package protocol

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titan-battle/internal/battle"
)

func TestNewMessage_Envelope(t *testing.T) {
	msg, err := NewMessage(TypeMove, MovePayload{Tag: 3, Hex: "D4"})
	require.NoError(t, err)

	assert.Equal(t, TypeMove, msg.Type)
	_, err = uuid.Parse(msg.ID)
	assert.NoError(t, err)
	assert.Positive(t, msg.Timestamp)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"move"`)
	assert.Contains(t, string(data), `"payload":{"tag":3,"hex":"D4"}`)

	var back Message
	require.NoError(t, json.Unmarshal(data, &back))
	var move MovePayload
	require.NoError(t, back.ParsePayload(&move))
	assert.Equal(t, MovePayload{Tag: 3, Hex: "D4"}, move)
}

func TestParsePayload_Empty(t *testing.T) {
	msg := &Message{Type: TypeDoneMoves}
	var q QueryPayload
	assert.NoError(t, msg.ParsePayload(&q))
	assert.Zero(t, q)
}

func TestConcedePayload_SideByName(t *testing.T) {
	var p ConcedePayload
	require.NoError(t, json.Unmarshal([]byte(`{"side":"attacker"}`), &p))
	assert.Equal(t, battle.Attacker, p.Side)
	assert.Error(t, json.Unmarshal([]byte(`{"side":"umpire"}`), &p))
}

func TestActionResultPayload_Strike(t *testing.T) {
	msg, err := NewMessage(TypeActionResult, ActionResultPayload{
		ActionID: "a1",
		Action:   TypeStrike,
		Success:  true,
		Strike:   &battle.StrikeResult{Striker: 1, Target: "D4", Dice: 4, StrikeNumber: 4, Rolls: []int{4, 5, 6, 2}, Hits: 3},
	})
	require.NoError(t, err)

	var got ActionResultPayload
	require.NoError(t, msg.ParsePayload(&got))
	require.NotNil(t, got.Strike)
	assert.Equal(t, 3, got.Strike.Hits)
	assert.Equal(t, TypeStrike, got.Action)
}

func TestIsBattleCommand(t *testing.T) {
	for _, mt := range []MessageType{TypeMove, TypeStrike, TypeConcede, TypeQuery, TypeSkipReinforce, TypeForcedStrikes} {
		assert.True(t, mt.IsBattleCommand(), mt)
	}
	for _, mt := range []MessageType{TypeCreateBattle, TypeLoadBattle, TypeAuthenticate, TypePing, TypeBattleState} {
		assert.False(t, mt.IsBattleCommand(), mt)
	}
}
