package storage

import (
	"database/sql"
	"time"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

// GetOrCreateEpisode resolves an Episode by (sourceID, index), creating
// an empty row if absent (spec §4.3 step 4: "Create Episode row if
// absent (keyed by (source, episode_index))").
func (db *DB) GetOrCreateEpisode(sourceID int64, index int, title, playbackURL, providerEpisodeID string) (*domain.Episode, error) {
	ep, err := db.getEpisode(sourceID, index)
	if err != nil && err != domain.ErrNotFound {
		return nil, err
	}
	if ep != nil {
		return ep, nil
	}

	_, err = db.Exec(`
		INSERT INTO episodes (source_id, episode_index, title, playback_url, provider_episode_id)
		VALUES (?, ?, ?, ?, ?)`,
		sourceID, index, title, playbackURL, providerEpisodeID,
	)
	if err != nil {
		return nil, err
	}
	return db.getEpisode(sourceID, index)
}

func (db *DB) getEpisode(sourceID int64, index int) (*domain.Episode, error) {
	var e domain.Episode
	var fetchedAt sql.NullTime
	err := db.QueryRow(`
		SELECT id, source_id, episode_index, title, playback_url, provider_episode_id, fetched_at, comment_count
		FROM episodes WHERE source_id = ? AND episode_index = ?`, sourceID, index,
	).Scan(&e.ID, &e.SourceID, &e.Index, &e.Title, &e.PlaybackURL, &e.ProviderEpisodeID, &fetchedAt, &e.CommentCount)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if fetchedAt.Valid {
		e.FetchedAt = fetchedAt.Time
	}
	return &e, nil
}

// GetEpisodeByProviderID looks up an Episode by (provider, providerEpisodeID)
// — backs the single-episode refresh path of spec §4.3.
func (db *DB) GetEpisodeByProviderID(provider, providerEpisodeID string) (*domain.Episode, error) {
	var e domain.Episode
	var fetchedAt sql.NullTime
	err := db.QueryRow(`
		SELECT e.id, e.source_id, e.episode_index, e.title, e.playback_url, e.provider_episode_id, e.fetched_at, e.comment_count
		FROM episodes e
		JOIN sources s ON s.id = e.source_id
		WHERE s.provider = ? AND e.provider_episode_id = ?`, provider, providerEpisodeID,
	).Scan(&e.ID, &e.SourceID, &e.Index, &e.Title, &e.PlaybackURL, &e.ProviderEpisodeID, &fetchedAt, &e.CommentCount)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if fetchedAt.Valid {
		e.FetchedAt = fetchedAt.Time
	}
	return &e, nil
}

// GetEpisode fetches an Episode by id.
func (db *DB) GetEpisode(id int64) (*domain.Episode, error) {
	var e domain.Episode
	var fetchedAt sql.NullTime
	err := db.QueryRow(`
		SELECT id, source_id, episode_index, title, playback_url, provider_episode_id, fetched_at, comment_count
		FROM episodes WHERE id = ?`, id,
	).Scan(&e.ID, &e.SourceID, &e.Index, &e.Title, &e.PlaybackURL, &e.ProviderEpisodeID, &fetchedAt, &e.CommentCount)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if fetchedAt.Valid {
		e.FetchedAt = fetchedAt.Time
	}
	return &e, nil
}

// EpisodesForSource lists Episodes in ascending index order.
func (db *DB) EpisodesForSource(sourceID int64) ([]domain.Episode, error) {
	rows, err := db.Query(`
		SELECT id, source_id, episode_index, title, playback_url, provider_episode_id, fetched_at, comment_count
		FROM episodes WHERE source_id = ? ORDER BY episode_index`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Episode
	for rows.Next() {
		var e domain.Episode
		var fetchedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.SourceID, &e.Index, &e.Title, &e.PlaybackURL, &e.ProviderEpisodeID, &fetchedAt, &e.CommentCount); err != nil {
			return nil, err
		}
		if fetchedAt.Valid {
			e.FetchedAt = fetchedAt.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertComments inserts comments for an episode with insert-ignore
// semantics on (episode, cid), and atomically bumps comment_count by the
// number of rows actually inserted (spec §3, §4.3 step 4, §5). Returns
// the number of rows inserted.
func (db *DB) InsertComments(episodeID int64, comments []domain.NormalizedComment) (int, error) {
	if len(comments) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO comments (episode_id, cid, p, m, t) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range comments {
		res, err := stmt.Exec(episodeID, c.CID, c.P, c.M, c.T)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if inserted > 0 {
		if _, err := tx.Exec(`
			UPDATE episodes SET comment_count = comment_count + ?, fetched_at = ?
			WHERE id = ?`, inserted, time.Now(), episodeID); err != nil {
			return 0, err
		}
	} else {
		if _, err := tx.Exec(`UPDATE episodes SET fetched_at = ? WHERE id = ?`, time.Now(), episodeID); err != nil {
			return 0, err
		}
	}

	return inserted, tx.Commit()
}

// ClearEpisodeComments deletes all Comments for an Episode and resets
// comment_count to 0 — the single-episode refresh path of spec §4.3.
func (db *DB) ClearEpisodeComments(episodeID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM comments WHERE episode_id = ?`, episodeID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE episodes SET comment_count = 0 WHERE id = ?`, episodeID); err != nil {
		return err
	}

	return tx.Commit()
}

// CommentsForEpisode returns all Comments of an Episode for the
// compatibility API's GET /comment/{episode_id}.
func (db *DB) CommentsForEpisode(episodeID int64) ([]domain.Comment, error) {
	rows, err := db.Query(`SELECT id, episode_id, cid, p, m, t FROM comments WHERE episode_id = ?`, episodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.EpisodeID, &c.CID, &c.P, &c.M, &c.T); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
