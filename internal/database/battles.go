package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"titan-battle/internal/battle"
)

// BattleStatus represents the current status of a stored battle.
type BattleStatus string

const (
	BattleStatusActive   BattleStatus = "active"   // Still being fought
	BattleStatusFinished BattleStatus = "finished" // Result recorded
)

// BattleInfo contains basic battle information for listings.
type BattleInfo struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Land      string       `json:"land"`
	MasterHex string       `json:"masterHex"`
	Attacker  string       `json:"attacker"`
	Defender  string       `json:"defender"`
	CreatedBy string       `json:"createdBy,omitempty"`
	Status    BattleStatus `json:"status"`
	Turn      int          `json:"turn"`
	Phase     string       `json:"phase"`
	CreatedAt time.Time    `json:"createdAt"`
	EndedAt   *time.Time   `json:"endedAt,omitempty"`
}

// ErrBattleNotFound is returned when a battle is not found.
var ErrBattleNotFound = errors.New("battle not found")

// CreateBattle stores a new battle. An empty ID gets a fresh uuid.
func (db *DB) CreateBattle(ctx context.Context, info BattleInfo) (*BattleInfo, error) {
	if info.ID == "" {
		info.ID = uuid.New().String()
	}
	if info.Name == "" {
		info.Name = fmt.Sprintf("%s vs %s", info.Attacker, info.Defender)
	}
	info.Status = BattleStatusActive
	info.CreatedAt = time.Now()
	info.EndedAt = nil

	var createdBy sql.NullString
	if info.CreatedBy != "" {
		createdBy = sql.NullString{String: info.CreatedBy, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO battles (id, name, land, master_hex, attacker, defender, created_by, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, info.ID, info.Name, info.Land, info.MasterHex, info.Attacker, info.Defender, createdBy, info.Status, info.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create battle: %w", err)
	}
	return &info, nil
}

const battleColumns = `
	b.id, b.name, b.land, b.master_hex, b.attacker, b.defender, b.created_by,
	b.status, COALESCE(s.turn, 1), COALESCE(s.phase, ''), b.created_at, b.ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBattle(row rowScanner) (*BattleInfo, error) {
	var b BattleInfo
	var createdBy sql.NullString
	var endedAt sql.NullTime
	if err := row.Scan(&b.ID, &b.Name, &b.Land, &b.MasterHex, &b.Attacker, &b.Defender, &createdBy,
		&b.Status, &b.Turn, &b.Phase, &b.CreatedAt, &endedAt); err != nil {
		return nil, err
	}
	if createdBy.Valid {
		b.CreatedBy = createdBy.String
	}
	if endedAt.Valid {
		b.EndedAt = &endedAt.Time
	}
	return &b, nil
}

// GetBattle retrieves a battle by ID.
func (db *DB) GetBattle(ctx context.Context, id string) (*BattleInfo, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+battleColumns+`
		FROM battles b
		LEFT JOIN battle_state s ON s.battle_id = b.id
		WHERE b.id = ?
	`, id)
	b, err := scanBattle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBattleNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBattles returns stored battles, newest first. An empty status lists all.
func (db *DB) ListBattles(ctx context.Context, status BattleStatus) ([]*BattleInfo, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+battleColumns+`
		FROM battles b
		LEFT JOIN battle_state s ON s.battle_id = b.id
		WHERE ? = '' OR b.status = ?
		ORDER BY b.created_at DESC, b.id
	`, status, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var battles []*BattleInfo
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, err
		}
		battles = append(battles, b)
	}
	return battles, rows.Err()
}

// SaveSnapshot stores the latest engine state of a battle.
func (db *DB) SaveSnapshot(ctx context.Context, id string, snap battle.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var exists int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM battles WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrBattleNotFound
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO battle_state (battle_id, snapshot_json, turn, phase, active_side, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(battle_id) DO UPDATE SET
			snapshot_json = excluded.snapshot_json,
			turn = excluded.turn,
			phase = excluded.phase,
			active_side = excluded.active_side,
			updated_at = excluded.updated_at
	`, id, string(data), snap.Turn, snap.Phase.String(), snap.ActiveSide.String(), time.Now())
	return err
}

// LoadSnapshot retrieves the latest engine state of a battle.
func (db *DB) LoadSnapshot(ctx context.Context, id string) (battle.Snapshot, error) {
	var data string
	err := db.conn.QueryRowContext(ctx, `
		SELECT snapshot_json FROM battle_state WHERE battle_id = ?
	`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return battle.Snapshot{}, ErrBattleNotFound
	}
	if err != nil {
		return battle.Snapshot{}, err
	}

	var snap battle.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return battle.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// FinishBattle marks a battle as finished and records its result.
func (db *DB) FinishBattle(ctx context.Context, id string, result battle.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, `
		UPDATE battles SET status = ?, result_json = ?, ended_at = ? WHERE id = ?
	`, BattleStatusFinished, string(data), time.Now(), id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBattleNotFound
	}
	return nil
}

// GetResult returns the recorded result, or nil while the battle is active.
func (db *DB) GetResult(ctx context.Context, id string) (*battle.Result, error) {
	var data sql.NullString
	err := db.conn.QueryRowContext(ctx, `SELECT result_json FROM battles WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBattleNotFound
	}
	if err != nil {
		return nil, err
	}
	if !data.Valid {
		return nil, nil
	}

	var r battle.Result
	if err := json.Unmarshal([]byte(data.String), &r); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &r, nil
}

// DeleteBattle permanently deletes a battle and all associated data.
func (db *DB) DeleteBattle(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Delete in order of dependencies
	if _, err := tx.ExecContext(ctx, `DELETE FROM battle_history WHERE battle_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM battle_state WHERE battle_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM battles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrBattleNotFound
	}

	return tx.Commit()
}
