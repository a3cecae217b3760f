package storage

import "github.com/danmaku-hub/aggregator/internal/domain"

// SaveTmdbEpisodeGroupMappings replaces all mapping rows for a group
// atomically — the resulting row set is a pure function of mappings
// (spec §8: "replacement-idempotent").
func (db *DB) SaveTmdbEpisodeGroupMappings(groupID string, mappings []domain.TmdbEpisodeMapping) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tmdb_episode_mappings WHERE group_id = ?`, groupID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO tmdb_episode_mappings (
			tmdb_tv_id, group_id, tmdb_episode_id, tmdb_season_number, tmdb_episode_number,
			custom_season_number, custom_episode_number, absolute_episode_number
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range mappings {
		if _, err := stmt.Exec(
			m.TmdbTVID, groupID, m.TmdbEpisodeID, m.TmdbSeasonNumber, m.TmdbEpisodeNumber,
			m.CustomSeasonNumber, m.CustomEpisodeNumber, m.AbsoluteEpisodeNumber,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// TmdbEpisodeGroupMappings lists all mapping rows for a group.
func (db *DB) TmdbEpisodeGroupMappings(groupID string) ([]domain.TmdbEpisodeMapping, error) {
	rows, err := db.Query(`
		SELECT tmdb_tv_id, group_id, tmdb_episode_id, tmdb_season_number, tmdb_episode_number,
		       custom_season_number, custom_episode_number, absolute_episode_number
		FROM tmdb_episode_mappings WHERE group_id = ?`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TmdbEpisodeMapping
	for rows.Next() {
		var m domain.TmdbEpisodeMapping
		if err := rows.Scan(
			&m.TmdbTVID, &m.GroupID, &m.TmdbEpisodeID, &m.TmdbSeasonNumber, &m.TmdbEpisodeNumber,
			&m.CustomSeasonNumber, &m.CustomEpisodeNumber, &m.AbsoluteEpisodeNumber,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
