package storage

import "github.com/danmaku-hub/aggregator/internal/domain"

// UpsertScraperSetting creates a row for a newly-discovered provider,
// preserving any existing enable/order values (spec §4.2: "Discovery &
// sync: ... upsert a ScraperSetting row for each new provider; preserve
// existing enable/order values").
func (db *DB) UpsertScraperSetting(provider string, defaultOrder int) error {
	_, err := db.Exec(`
		INSERT INTO scraper_settings (provider, is_enabled, display_order)
		VALUES (?, TRUE, ?)
		ON CONFLICT(provider) DO NOTHING`, provider, defaultOrder)
	return err
}

func (db *DB) ScraperSettings() ([]domain.ScraperSetting, error) {
	rows, err := db.Query(`SELECT provider, is_enabled, display_order FROM scraper_settings ORDER BY display_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScraperSetting
	for rows.Next() {
		var s domain.ScraperSetting
		if err := rows.Scan(&s.Provider, &s.IsEnabled, &s.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) SetScraperSetting(provider string, enabled bool, order int) error {
	_, err := db.Exec(`
		UPDATE scraper_settings SET is_enabled = ?, display_order = ? WHERE provider = ?`,
		enabled, order, provider)
	return err
}
