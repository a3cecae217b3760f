package storage

import (
	"database/sql"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

// LinkSource attaches (provider, providerMediaID) to a Work using
// insert-ignore semantics (spec §4.3 step 2).
func (db *DB) LinkSource(workID int64, provider, providerMediaID string) (*domain.Source, error) {
	_, err := db.Exec(
		`INSERT OR IGNORE INTO sources (work_id, provider, provider_media_id) VALUES (?, ?, ?)`,
		workID, provider, providerMediaID,
	)
	if err != nil {
		return nil, err
	}
	return db.GetSourceByProviderMediaID(provider, providerMediaID)
}

func (db *DB) GetSourceByProviderMediaID(provider, providerMediaID string) (*domain.Source, error) {
	var s domain.Source
	err := db.QueryRow(`
		SELECT id, work_id, provider, provider_media_id, favorited, created_at
		FROM sources WHERE provider = ? AND provider_media_id = ?`,
		provider, providerMediaID,
	).Scan(&s.ID, &s.WorkID, &s.Provider, &s.ProviderMediaID, &s.Favorited, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return &s, err
}

func (db *DB) GetSource(id int64) (*domain.Source, error) {
	var s domain.Source
	err := db.QueryRow(`
		SELECT id, work_id, provider, provider_media_id, favorited, created_at
		FROM sources WHERE id = ?`, id,
	).Scan(&s.ID, &s.WorkID, &s.Provider, &s.ProviderMediaID, &s.Favorited, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return &s, err
}

// FavoritedSourceForWork returns the Source with favorited=true for a
// (title, season) pair, or domain.ErrNotFound if none — backs the
// webhook favorited-source shortcut (spec §4.6 step 1).
func (db *DB) FavoritedSourceForWork(title string, season int) (*domain.Source, error) {
	var s domain.Source
	err := db.QueryRow(`
		SELECT s.id, s.work_id, s.provider, s.provider_media_id, s.favorited, s.created_at
		FROM sources s
		JOIN works w ON w.id = s.work_id
		WHERE w.title = ? AND w.season = ? AND s.favorited = TRUE`,
		title, season,
	).Scan(&s.ID, &s.WorkID, &s.Provider, &s.ProviderMediaID, &s.Favorited, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return &s, err
}

// SourcesForWork lists all Sources attached to a Work.
func (db *DB) SourcesForWork(workID int64) ([]domain.Source, error) {
	rows, err := db.Query(`
		SELECT id, work_id, provider, provider_media_id, favorited, created_at
		FROM sources WHERE work_id = ? ORDER BY id`, workID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Source
	for rows.Next() {
		var s domain.Source
		if err := rows.Scan(&s.ID, &s.WorkID, &s.Provider, &s.ProviderMediaID, &s.Favorited, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ToggleFavorited implements the read-modify-write transaction of spec
// §5: clear favorited on every other Source of the same Work, then flip
// this Source's flag. Using NOT favorited (rather than forcing true)
// matches the spec's literal statement and lets a second call on the
// same source un-favorite it.
func (db *DB) ToggleFavorited(sourceID int64) error {
	s, err := db.GetSource(sourceID)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE sources SET favorited = FALSE WHERE work_id = ? AND id != ?`, s.WorkID, sourceID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE sources SET favorited = NOT favorited WHERE id = ?`, sourceID); err != nil {
		return err
	}

	return tx.Commit()
}

// ClearSourceEpisodes deletes all Episodes (and, via cascade, their
// Comments) for a Source, transactionally — used by the full-refresh
// path of spec §4.3 ("clear all Episodes ... for the Source
// transactionally").
func (db *DB) ClearSourceEpisodes(sourceID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM comments WHERE episode_id IN (SELECT id FROM episodes WHERE source_id = ?)`, sourceID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM episodes WHERE source_id = ?`, sourceID); err != nil {
		return err
	}

	return tx.Commit()
}

// ReassociateSources moves every Source owned by sourceWorkID onto
// targetWorkID and deletes the now-empty source Work, transactionally
// (spec §5's "reassociate-sources"). A Source that would collide with
// one targetWorkID already owns (same provider + provider_media_id) is
// deleted — along with its Episodes/Comments — instead of moved,
// mirroring the original implementation's duplicate-source handling
// (crud.py's reassociate_anime_sources / delete_anime_source).
func (db *DB) ReassociateSources(sourceWorkID, targetWorkID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT 1 FROM works WHERE id = ?`, sourceWorkID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		return err
	}
	if err := tx.QueryRow(`SELECT 1 FROM works WHERE id = ?`, targetWorkID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		return err
	}

	rows, err := tx.Query(`SELECT id, provider, provider_media_id FROM sources WHERE work_id = ?`, sourceWorkID)
	if err != nil {
		return err
	}
	type sourceRow struct {
		id                          int64
		provider, providerMediaID string
	}
	var sources []sourceRow
	for rows.Next() {
		var s sourceRow
		if err := rows.Scan(&s.id, &s.provider, &s.providerMediaID); err != nil {
			rows.Close()
			return err
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, s := range sources {
		var dupID int64
		err := tx.QueryRow(`
			SELECT id FROM sources WHERE work_id = ? AND provider = ? AND provider_media_id = ?`,
			targetWorkID, s.provider, s.providerMediaID,
		).Scan(&dupID)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.Exec(`UPDATE sources SET work_id = ? WHERE id = ?`, targetWorkID, s.id); err != nil {
				return err
			}
		case err == nil:
			if _, err := tx.Exec(`
				DELETE FROM comments WHERE episode_id IN (SELECT id FROM episodes WHERE source_id = ?)`, s.id); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM episodes WHERE source_id = ?`, s.id); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM sources WHERE id = ?`, s.id); err != nil {
				return err
			}
		default:
			return err
		}
	}

	if _, err := tx.Exec(`DELETE FROM works WHERE id = ?`, sourceWorkID); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteSource removes a Source and (transactionally) its Episodes and
// Comments — the cascade named in spec §3 ("Ownership ... deletion
// cascades along that spine").
func (db *DB) DeleteSource(sourceID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM comments WHERE episode_id IN (SELECT id FROM episodes WHERE source_id = ?)`, sourceID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM episodes WHERE source_id = ?`, sourceID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sources WHERE id = ?`, sourceID); err != nil {
		return err
	}

	return tx.Commit()
}
