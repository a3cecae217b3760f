package storage

import (
	"database/sql"
	"time"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

// UpsertCacheEntry persists a CacheEntry row, the durable counterpart to
// internal/cache's fast-path Redis/memory store.
func (db *DB) UpsertCacheEntry(provider, key, valueJSON string, expiresAt time.Time) error {
	_, err := db.Exec(`
		INSERT INTO cache_entries (provider, key, value_json, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(provider, key) DO UPDATE SET value_json = excluded.value_json, expires_at = excluded.expires_at`,
		provider, key, valueJSON, expiresAt)
	return err
}

func (db *DB) GetCacheEntry(provider, key string) (*domain.CacheEntry, error) {
	var c domain.CacheEntry
	c.Provider, c.Key = provider, key
	err := db.QueryRow(`
		SELECT value_json, expires_at FROM cache_entries WHERE provider = ? AND key = ?`,
		provider, key,
	).Scan(&c.ValueJSON, &c.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.ExpiresAt.Before(time.Now()) {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// SweepExpiredCacheEntries deletes every cache_entries row past its TTL;
// called hourly (spec §6: "Cache entries ... are TTL-swept hourly by a
// background loop").
func (db *DB) SweepExpiredCacheEntries() (int64, error) {
	res, err := db.Exec(`DELETE FROM cache_entries WHERE expires_at < ?`, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
