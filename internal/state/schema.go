package state

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS sessions (
			tag TEXT PRIMARY KEY,
			media_uri TEXT NOT NULL,
			media_id TEXT NOT NULL,
			repeat_mode INTEGER NOT NULL DEFAULT 0,
			autoplay INTEGER NOT NULL DEFAULT 1,
			saved_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_saved_at ON sessions(saved_at);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, currentSchemaVersion)
	return err
}
