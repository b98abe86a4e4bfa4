package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Player is a client identity. Battles record who created them.
type Player struct {
	ID         string
	Token      string
	Name       string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// ErrPlayerNotFound is returned when a player is not found.
var ErrPlayerNotFound = errors.New("player not found")

// CreatePlayer creates a new player with a generated token.
func (db *DB) CreatePlayer(ctx context.Context, name string) (*Player, error) {
	id := uuid.New().String()
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO players (id, token, name, created_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, token, name, now, now)
	if err != nil {
		return nil, err
	}

	return &Player{
		ID:         id,
		Token:      token,
		Name:       name,
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// GetPlayerByToken retrieves a player by their token.
func (db *DB) GetPlayerByToken(ctx context.Context, token string) (*Player, error) {
	var p Player
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, token, name, created_at, last_seen_at
		FROM players WHERE token = ?
	`, token).Scan(&p.ID, &p.Token, &p.Name, &p.CreatedAt, &p.LastSeenAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePlayerName updates a player's display name.
func (db *DB) UpdatePlayerName(ctx context.Context, id, name string) error {
	result, err := db.conn.ExecContext(ctx, `
		UPDATE players SET name = ? WHERE id = ?
	`, name, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// UpdatePlayerLastSeen updates the last seen timestamp.
func (db *DB) UpdatePlayerLastSeen(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE players SET last_seen_at = ? WHERE id = ?
	`, time.Now(), id)
	return err
}

// GetPlayerBattles returns the battles a player created, newest first.
func (db *DB) GetPlayerBattles(ctx context.Context, playerID string) ([]*BattleInfo, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+battleColumns+`
		FROM battles b
		LEFT JOIN battle_state s ON s.battle_id = b.id
		WHERE b.created_by = ?
		ORDER BY b.created_at DESC, b.id
	`, playerID)
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

// generateToken creates a secure random token.
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

