package storage

import "database/sql"

// GetConfigValue reads one runtime-tunable value from config_kv (spec §6:
// "Runtime-tunable values ... live in the config KV table"). Returns
// ("", false) if unset.
func (db *DB) GetConfigValue(key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM config_kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (db *DB) SetConfigValue(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO config_kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	return err
}

func (db *DB) AllConfigValues() (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM config_kv`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
