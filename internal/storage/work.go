package storage

import (
	"database/sql"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

// GetOrCreateWork resolves a Work by (title, season), creating it if
// absent. poster is only written if the Work is newly created or its
// existing poster is empty (fill-if-absent, spec §4.3 step 1). This is
// the 4-arg get_or_create_anime form named in spec.md's Open Questions.
func (db *DB) GetOrCreateWork(title string, kind domain.MediaKind, season int, poster string) (*domain.Work, error) {
	if season <= 0 {
		season = 1
	}

	w, err := db.findWork(title, season)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if w != nil {
		if poster != "" && w.PosterURL == "" {
			if _, err := db.Exec(`UPDATE works SET poster_url = ? WHERE id = ?`, poster, w.ID); err != nil {
				return nil, err
			}
			w.PosterURL = poster
		}
		return w, nil
	}

	res, err := db.Exec(
		`INSERT INTO works (title, kind, season, poster_url) VALUES (?, ?, ?, ?)`,
		title, string(kind), season, poster,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`INSERT INTO work_metadata (work_id) VALUES (?)`, id); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`INSERT INTO work_aliases (work_id) VALUES (?)`, id); err != nil {
		return nil, err
	}

	return db.findWork(title, season)
}

func (db *DB) findWork(title string, season int) (*domain.Work, error) {
	var w domain.Work
	var kind string
	var poster sql.NullString
	err := db.QueryRow(
		`SELECT id, title, kind, season, poster_url, created_at FROM works WHERE title = ? AND season = ?`,
		title, season,
	).Scan(&w.ID, &w.Title, &kind, &w.Season, &poster, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w.Kind = domain.MediaKind(kind)
	w.PosterURL = poster.String
	return &w, nil
}

// GetWork fetches a Work by id.
func (db *DB) GetWork(id int64) (*domain.Work, error) {
	var w domain.Work
	var kind string
	var poster sql.NullString
	err := db.QueryRow(
		`SELECT id, title, kind, season, poster_url, created_at FROM works WHERE id = ?`, id,
	).Scan(&w.ID, &w.Title, &kind, &w.Season, &poster, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.Kind = domain.MediaKind(kind)
	w.PosterURL = poster.String
	return &w, nil
}

// FillWorkMetadata writes any of the given external IDs that are
// currently empty (fill-if-absent, spec §3).
func (db *DB) FillWorkMetadata(workID int64, m domain.WorkMetadata) error {
	_, err := db.Exec(`
		UPDATE work_metadata SET
			tmdb_id = CASE WHEN tmdb_id = '' OR tmdb_id IS NULL THEN ? ELSE tmdb_id END,
			tmdb_episode_group_id = CASE WHEN tmdb_episode_group_id = '' OR tmdb_episode_group_id IS NULL THEN ? ELSE tmdb_episode_group_id END,
			bangumi_id = CASE WHEN bangumi_id = '' OR bangumi_id IS NULL THEN ? ELSE bangumi_id END,
			tvdb_id = CASE WHEN tvdb_id = '' OR tvdb_id IS NULL THEN ? ELSE tvdb_id END,
			douban_id = CASE WHEN douban_id = '' OR douban_id IS NULL THEN ? ELSE douban_id END,
			imdb_id = CASE WHEN imdb_id = '' OR imdb_id IS NULL THEN ? ELSE imdb_id END
		WHERE work_id = ?`,
		m.TmdbID, m.TmdbEpisodeGroupID, m.BangumiID, m.TvdbID, m.DoubanID, m.ImdbID, workID,
	)
	return err
}

// SetWorkTmdbEpisodeGroup persists the chosen episode group id for a Work
// (spec §4.5.1 step 2). Unlike FillWorkMetadata this always overwrites,
// since the auto-map job owns this field exclusively.
func (db *DB) SetWorkTmdbEpisodeGroup(workID int64, groupID string) error {
	_, err := db.Exec(`UPDATE work_metadata SET tmdb_episode_group_id = ? WHERE work_id = ?`, groupID, workID)
	return err
}

// GetWorkMetadata returns the metadata row for a Work.
func (db *DB) GetWorkMetadata(workID int64) (*domain.WorkMetadata, error) {
	var m domain.WorkMetadata
	m.WorkID = workID
	err := db.QueryRow(`
		SELECT tmdb_id, tmdb_episode_group_id, bangumi_id, tvdb_id, douban_id, imdb_id
		FROM work_metadata WHERE work_id = ?`, workID,
	).Scan(&m.TmdbID, &m.TmdbEpisodeGroupID, &m.BangumiID, &m.TvdbID, &m.DoubanID, &m.ImdbID)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return &m, err
}

// WorksWithTmdbIDButNoGroup lists Works eligible for the TMDB auto-map job
// (spec §4.5.1: "For each Work with a TMDB ID but no
// tmdb_episode_group_id").
func (db *DB) WorksWithTmdbIDButNoGroup() ([]domain.Work, error) {
	rows, err := db.Query(`
		SELECT w.id, w.title, w.kind, w.season, w.poster_url, w.created_at
		FROM works w
		JOIN work_metadata m ON m.work_id = w.id
		WHERE m.tmdb_id IS NOT NULL AND m.tmdb_id != ''
		  AND (m.tmdb_episode_group_id IS NULL OR m.tmdb_episode_group_id = '')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Work
	for rows.Next() {
		var w domain.Work
		var kind string
		var poster sql.NullString
		if err := rows.Scan(&w.ID, &w.Title, &kind, &w.Season, &poster, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.Kind = domain.MediaKind(kind)
		w.PosterURL = poster.String
		out = append(out, w)
	}
	return out, rows.Err()
}

// FillWorkAliases writes any alias slots that are currently empty.
func (db *DB) FillWorkAliases(workID int64, a domain.WorkAliases) error {
	_, err := db.Exec(`
		UPDATE work_aliases SET
			alias_en = CASE WHEN alias_en = '' OR alias_en IS NULL THEN ? ELSE alias_en END,
			alias_jp = CASE WHEN alias_jp = '' OR alias_jp IS NULL THEN ? ELSE alias_jp END,
			alias_romaji = CASE WHEN alias_romaji = '' OR alias_romaji IS NULL THEN ? ELSE alias_romaji END,
			alias_cn_1 = CASE WHEN alias_cn_1 = '' OR alias_cn_1 IS NULL THEN ? ELSE alias_cn_1 END,
			alias_cn_2 = CASE WHEN alias_cn_2 = '' OR alias_cn_2 IS NULL THEN ? ELSE alias_cn_2 END,
			alias_cn_3 = CASE WHEN alias_cn_3 = '' OR alias_cn_3 IS NULL THEN ? ELSE alias_cn_3 END
		WHERE work_id = ?`,
		a.EN, a.JP, a.Romaji, a.CN1, a.CN2, a.CN3, workID,
	)
	return err
}

// SearchWorksByTitle performs the LIKE-based fallback lookup across title
// and the fixed alias slots (spec.md Open Questions: "Treat the alias
// slots as fixed and use them consistently").
func (db *DB) SearchWorksByTitle(keyword string) ([]domain.Work, error) {
	like := "%" + keyword + "%"
	rows, err := db.Query(`
		SELECT DISTINCT w.id, w.title, w.kind, w.season, w.poster_url, w.created_at
		FROM works w
		LEFT JOIN work_aliases a ON a.work_id = w.id
		WHERE w.title LIKE ?
		   OR a.alias_en LIKE ? OR a.alias_jp LIKE ? OR a.alias_romaji LIKE ?
		   OR a.alias_cn_1 LIKE ? OR a.alias_cn_2 LIKE ? OR a.alias_cn_3 LIKE ?
		ORDER BY w.title`,
		like, like, like, like, like, like, like,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Work
	for rows.Next() {
		var w domain.Work
		var kind string
		var poster sql.NullString
		if err := rows.Scan(&w.ID, &w.Title, &kind, &w.Season, &poster, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.Kind = domain.MediaKind(kind)
		w.PosterURL = poster.String
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetWorkByBangumiID resolves a Work via its external bangumi id,
// backing the third id form of `GET /bangumi/{id}` (spec §6).
func (db *DB) GetWorkByBangumiID(bangumiID string) (*domain.Work, error) {
	var w domain.Work
	var kind string
	var poster sql.NullString
	err := db.QueryRow(`
		SELECT w.id, w.title, w.kind, w.season, w.poster_url, w.created_at
		FROM works w
		JOIN work_metadata m ON m.work_id = w.id
		WHERE m.bangumi_id = ?`, bangumiID,
	).Scan(&w.ID, &w.Title, &kind, &w.Season, &poster, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.Kind = domain.MediaKind(kind)
	w.PosterURL = poster.String
	return &w, nil
}
