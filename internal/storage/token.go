package storage

import (
	"database/sql"
	"time"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

// ValidateToken returns domain.ErrTokenInvalid unless token matches an
// enabled, non-expired ApiToken (spec §6: "403 on any compat API call"
// for an expired or disabled token).
func (db *DB) ValidateToken(token string) error {
	var enabled bool
	var expiresAt sql.NullTime
	err := db.QueryRow(`SELECT enabled, expires_at FROM api_tokens WHERE token = ?`, token).
		Scan(&enabled, &expiresAt)
	if err == sql.ErrNoRows {
		return domain.ErrTokenInvalid
	}
	if err != nil {
		return err
	}
	if !enabled {
		return domain.ErrTokenInvalid
	}
	if expiresAt.Valid && expiresAt.Time.Before(time.Now()) {
		return domain.ErrTokenInvalid
	}
	return nil
}

func (db *DB) CreateToken(token, label string, expiresAt *time.Time) error {
	_, err := db.Exec(`INSERT INTO api_tokens (token, label, enabled, expires_at) VALUES (?, ?, TRUE, ?)`,
		token, label, expiresAt)
	return err
}

func (db *DB) ListTokens() ([]domain.ApiToken, error) {
	rows, err := db.Query(`SELECT id, token, label, enabled, expires_at FROM api_tokens ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ApiToken
	for rows.Next() {
		var t domain.ApiToken
		var expiresAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.Token, &t.Label, &t.Enabled, &expiresAt); err != nil {
			return nil, err
		}
		if expiresAt.Valid {
			t.ExpiresAt = &expiresAt.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
