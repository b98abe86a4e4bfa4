package database

import (
	"context"
	"database/sql"
	"time"

	"titan-battle/internal/battle"
)

// HistoryEvent represents a single battle event in the history log.
type HistoryEvent struct {
	ID        int64     `json:"id"`
	BattleID  string    `json:"battleId"`
	Turn      int       `json:"turn"`
	Phase     string    `json:"phase"`
	Side      string    `json:"side"`
	EventType string    `json:"eventType"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// AddHistoryEvent appends an engine event to the battle history.
func (db *DB) AddHistoryEvent(ctx context.Context, battleID string, e battle.Event) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO battle_history (battle_id, turn, phase, side, event_type, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, battleID, e.Turn, e.Phase.String(), e.Side.String(), string(e.Kind), e.Message, time.Now())
	return err
}

// GetBattleHistory retrieves all history events for a battle, ordered chronologically.
func (db *DB) GetBattleHistory(ctx context.Context, battleID string) ([]*HistoryEvent, error) {
	return db.GetBattleHistorySince(ctx, battleID, 0)
}

// GetBattleHistorySince retrieves history events after a given ID (for incremental updates).
func (db *DB) GetBattleHistorySince(ctx context.Context, battleID string, afterID int64) ([]*HistoryEvent, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, battle_id, turn, phase, side, event_type, message, created_at
		FROM battle_history
		WHERE battle_id = ? AND id > ?
		ORDER BY id ASC
	`, battleID, afterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func scanHistory(rows *sql.Rows) ([]*HistoryEvent, error) {
	var events []*HistoryEvent
	for rows.Next() {
		e := &HistoryEvent{}
		if err := rows.Scan(&e.ID, &e.BattleID, &e.Turn, &e.Phase, &e.Side, &e.EventType, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
