package storage

import "fmt"

// migrations are applied in order; the schema version is tracked with the
// user_version pragma.
var migrations = []string{
	`CREATE TABLE services (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		account_name  TEXT NOT NULL,
		type          TEXT NOT NULL CHECK (type IN ('addressbook', 'calendar')),
		principal_url TEXT,
		UNIQUE (account_name, type)
	);
	CREATE TABLE home_sets (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		service_id INTEGER NOT NULL REFERENCES services(id) ON DELETE CASCADE,
		url        TEXT NOT NULL,
		UNIQUE (service_id, url)
	);
	CREATE TABLE collections (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		service_id   INTEGER NOT NULL REFERENCES services(id) ON DELETE CASCADE,
		url          TEXT NOT NULL,
		type         TEXT NOT NULL CHECK (type IN ('addressbook', 'calendar', 'webcal')),
		display_name TEXT,
		description  TEXT,
		color        TEXT,
		source       TEXT,
		sync_enabled INTEGER NOT NULL DEFAULT 0,
		UNIQUE (service_id, url)
	);`,
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("bumping schema version: %w", err)
		}
	}

	return nil
}
