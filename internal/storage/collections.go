package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// GetCollections retrieves all collections of a service ordered by URL.
func (s *Store) GetCollections(ctx context.Context, serviceID int64) ([]Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, url, type, display_name, description, color, source, sync_enabled
		FROM collections WHERE service_id = ? ORDER BY url
	`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var collections []Collection
	for rows.Next() {
		var col Collection
		var typ string
		var displayName, description, color, source sql.NullString
		if err := rows.Scan(&col.ID, &col.ServiceID, &col.URL, &typ,
			&displayName, &description, &color, &source, &col.SyncEnabled); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		col.Type = CollectionType(typ)
		col.DisplayName = optionString(displayName)
		col.Description = optionString(description)
		col.Color = optionString(color)
		col.Source = optionString(source)
		collections = append(collections, col)
	}

	return collections, rows.Err()
}

// UpdateCollections applies one reconciliation diff atomically: inserts,
// field updates and deletes commit together or not at all.
func (s *Store) UpdateCollections(ctx context.Context, serviceID int64, insert, update []Collection, deleteIDs []int64) error {
	return s.Transaction(func(tx *sql.Tx) error {
		for _, id := range deleteIDs {
			if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id); err != nil {
				return fmt.Errorf("deleting collection %d: %w", id, err)
			}
		}
		for _, col := range update {
			if _, err := tx.ExecContext(ctx, `
				UPDATE collections SET
					url = ?, type = ?, display_name = ?, description = ?,
					color = ?, source = ?, sync_enabled = ?
				WHERE id = ?
			`, col.URL, string(col.Type), nullString(col.DisplayName), nullString(col.Description),
				nullString(col.Color), nullString(col.Source), col.SyncEnabled, col.ID); err != nil {
				return fmt.Errorf("updating collection %q: %w", col.URL, err)
			}
		}
		for _, col := range insert {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO collections (service_id, url, type, display_name, description, color, source, sync_enabled)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, serviceID, col.URL, string(col.Type), nullString(col.DisplayName), nullString(col.Description),
				nullString(col.Color), nullString(col.Source), col.SyncEnabled); err != nil {
				return fmt.Errorf("inserting collection %q: %w", col.URL, err)
			}
		}
		return nil
	})
}

// SetCollectionSync flips the user's sync selection for one collection.
func (s *Store) SetCollectionSync(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE collections SET sync_enabled = ? WHERE id = ?
	`, enabled, id)
	if err != nil {
		return fmt.Errorf("updating sync selection: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
