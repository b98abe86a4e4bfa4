package protocol

import (
	"time"

	"titan-battle/internal/battle"
)

// ==================== Authentication Payloads ====================

// AuthenticatePayload is sent to authenticate/register a player.
type AuthenticatePayload struct {
	Token string `json:"token,omitempty"` // Existing token for returning players
	Name  string `json:"name"`            // Display name
}

// AuthResultPayload is the response to authentication.
type AuthResultPayload struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"player_id"`
	Token    string `json:"token"` // Save this for reconnecting
	Name     string `json:"name"`
	Error    string `json:"error,omitempty"`
}

// ==================== Session Payloads ====================

// LegionPayload describes one side of a new battle.
type LegionPayload struct {
	MarkerID  string   `json:"marker_id"`
	Player    string   `json:"player"`
	Score     int      `json:"score,omitempty"`
	EntrySide int      `json:"entry_side,omitempty"` // Attacker only: 1, 3 or 5
	Creatures []string `json:"creatures"`
}

// CreateBattlePayload is sent to start a new battle.
type CreateBattlePayload struct {
	Land      string        `json:"land"` // Battleland terrain code
	MasterHex string        `json:"master_hex,omitempty"`
	Attacker  LegionPayload `json:"attacker"`
	Defender  LegionPayload `json:"defender"`
	Seed      int64         `json:"seed,omitempty"` // Dice seed, 0 for random
}

// LoadBattlePayload is sent to resume a stored battle.
type LoadBattlePayload struct {
	BattleID string `json:"battle_id"`
}

// ListBattlesPayload filters the stored battle list.
type ListBattlesPayload struct {
	Status string `json:"status,omitempty"` // "active", "finished" or empty for all
}

// BattleListPayload lists stored battles.
type BattleListPayload struct {
	Battles []BattleListItem `json:"battles"`
}

// BattleListItem is one stored battle.
type BattleListItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Land      string    `json:"land"`
	Status    string    `json:"status"`
	Turn      int       `json:"turn"`
	Phase     string    `json:"phase"`
	CreatedAt time.Time `json:"created_at"`
}

// GetHistoryPayload requests the event log of the current battle.
type GetHistoryPayload struct {
	AfterID int64 `json:"after_id,omitempty"`
}

// BattleHistoryPayload contains battle history events.
type BattleHistoryPayload struct {
	BattleID string         `json:"battle_id"`
	Events   []HistoryEvent `json:"events"`
}

// HistoryEvent is a single event in the battle history log.
type HistoryEvent struct {
	ID        int64  `json:"id"`
	Turn      int    `json:"turn"`
	Phase     string `json:"phase"`
	Side      string `json:"side"`
	EventType string `json:"event_type"`
	Message   string `json:"message"`
}

// ==================== Battle Command Payloads ====================

// MovePayload moves one critter.
type MovePayload struct {
	Tag int    `json:"tag"`
	Hex string `json:"hex"`
}

// UndoMovePayload takes back one critter's move.
type UndoMovePayload struct {
	Tag int `json:"tag"`
}

// StrikePayload strikes a target. Rolls are optional fixed dice.
type StrikePayload struct {
	Tag    int    `json:"tag"`
	Target string `json:"target"`
	Rolls  []int  `json:"rolls,omitempty"`
}

// ChoosePenaltyPayload resolves a strike with a chosen penalty option.
type ChoosePenaltyPayload struct {
	Tag          int    `json:"tag"`
	Target       string `json:"target"`
	Dice         int    `json:"dice"`
	StrikeNumber int    `json:"strike_number"`
	Rolls        []int  `json:"rolls,omitempty"`
}

// ApplyCarryPayload sends pending carry damage to a hex.
type ApplyCarryPayload struct {
	Hex string `json:"hex"`
}

// ForcedStrikesPayload resolves all forced strikes of the active legion.
type ForcedStrikesPayload struct {
	AllowRangestrike bool `json:"allow_rangestrike"`
}

// ConcedePayload concedes the battle for one side.
type ConcedePayload struct {
	Side battle.Side `json:"side"`
}

// SummonPayload summons an angel from a donor legion.
type SummonPayload struct {
	Creature string `json:"creature"`
	Donor    string `json:"donor"`
}

// ReinforcePayload recruits a reinforcement for the defender.
type ReinforcePayload struct {
	Creature string `json:"creature"`
}

// Query kinds
const (
	QueryLegalMoves    = "legal_moves"
	QueryStrikeTargets = "strike_targets"
	QueryCarryTargets  = "carry_targets"
	QueryMobile        = "mobile"
	QueryWithTargets   = "with_targets"
)

// QueryPayload asks the engine a read-only question.
type QueryPayload struct {
	Kind string `json:"kind"`
	Tag  int    `json:"tag,omitempty"`
}

// QueryResultPayload answers a query with hex labels.
type QueryResultPayload struct {
	Kind   string   `json:"kind"`
	Tag    int      `json:"tag,omitempty"`
	Labels []string `json:"labels"`
}

// ==================== Battle Reply Payloads ====================

// BattleStatePayload contains the full battle state.
type BattleStatePayload struct {
	BattleID            string          `json:"battle_id"`
	Land                string          `json:"land"`
	State               battle.Snapshot `json:"state"`
	MobileCritters      []string        `json:"mobile_critters,omitempty"`
	CrittersWithTargets []string        `json:"critters_with_targets,omitempty"`
	CanUndo             bool            `json:"can_undo"`
}

// ActionResultPayload is the result of a battle command.
type ActionResultPayload struct {
	ActionID string               `json:"action_id"`
	Action   MessageType          `json:"action"`
	Success  bool                 `json:"success"`
	Error    string               `json:"error,omitempty"`
	Strike   *battle.StrikeResult `json:"strike,omitempty"`
}

// BattleOverPayload is sent when the battle concludes.
type BattleOverPayload struct {
	BattleID string        `json:"battle_id"`
	Result   battle.Result `json:"result"`
}

// ==================== System Payloads ====================

// WelcomePayload is sent on connection.
type WelcomePayload struct {
	ServerName    string   `json:"server_name"`
	ServerVersion string   `json:"server_version"`
	Lands         []string `json:"lands"`
}
