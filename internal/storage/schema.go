package storage

func (db *DB) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS works (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			kind TEXT NOT NULL,
			season INTEGER NOT NULL DEFAULT 1,
			poster_url TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(title, season)
		)`,
		`CREATE TABLE IF NOT EXISTS work_metadata (
			work_id INTEGER PRIMARY KEY,
			tmdb_id TEXT,
			tmdb_episode_group_id TEXT,
			bangumi_id TEXT,
			tvdb_id TEXT,
			douban_id TEXT,
			imdb_id TEXT,
			FOREIGN KEY (work_id) REFERENCES works (id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS work_aliases (
			work_id INTEGER PRIMARY KEY,
			alias_en TEXT,
			alias_jp TEXT,
			alias_romaji TEXT,
			alias_cn_1 TEXT,
			alias_cn_2 TEXT,
			alias_cn_3 TEXT,
			FOREIGN KEY (work_id) REFERENCES works (id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			work_id INTEGER NOT NULL,
			provider TEXT NOT NULL,
			provider_media_id TEXT NOT NULL,
			favorited BOOLEAN DEFAULT FALSE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (work_id) REFERENCES works (id) ON DELETE CASCADE,
			UNIQUE(provider, provider_media_id)
		)`,
		`CREATE TABLE IF NOT EXISTS episodes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id INTEGER NOT NULL,
			episode_index INTEGER NOT NULL,
			title TEXT,
			playback_url TEXT,
			provider_episode_id TEXT,
			fetched_at DATETIME,
			comment_count INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (source_id) REFERENCES sources (id) ON DELETE CASCADE,
			UNIQUE(source_id, episode_index)
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			episode_id INTEGER NOT NULL,
			cid TEXT NOT NULL,
			p TEXT NOT NULL,
			m TEXT NOT NULL,
			t REAL NOT NULL,
			FOREIGN KEY (episode_id) REFERENCES episodes (id) ON DELETE CASCADE,
			UNIQUE(episode_id, cid)
		)`,
		`CREATE TABLE IF NOT EXISTS tmdb_episode_mappings (
			tmdb_tv_id TEXT NOT NULL,
			group_id TEXT NOT NULL,
			tmdb_episode_id TEXT NOT NULL,
			tmdb_season_number INTEGER NOT NULL,
			tmdb_episode_number INTEGER NOT NULL,
			custom_season_number INTEGER NOT NULL,
			custom_episode_number INTEGER NOT NULL,
			absolute_episode_number INTEGER NOT NULL,
			PRIMARY KEY (group_id, tmdb_episode_id)
		)`,
		`CREATE TABLE IF NOT EXISTS scraper_settings (
			provider TEXT PRIMARY KEY,
			is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			display_order INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS api_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			token TEXT UNIQUE NOT NULL,
			label TEXT,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			expires_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS scheduled_tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			job_type TEXT NOT NULL,
			cron_expression TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			last_run DATETIME,
			next_run DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS task_history (
			task_id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			description TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS cache_entries (
			provider TEXT NOT NULL,
			key TEXT NOT NULL,
			value_json TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			PRIMARY KEY (provider, key)
		)`,
		`CREATE TABLE IF NOT EXISTS config_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_work_id ON sources(work_id)`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_source_id ON episodes(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_episode_id ON comments(episode_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// sqlite doesn't enforce FK constraints unless enabled per-connection.
	_, err := db.Exec(`PRAGMA foreign_keys = ON`)
	return err
}
