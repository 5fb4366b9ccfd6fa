package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// GetHomeSets retrieves all home sets of a service ordered by URL.
func (s *Store) GetHomeSets(ctx context.Context, serviceID int64) ([]HomeSet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, url FROM home_sets WHERE service_id = ? ORDER BY url
	`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("querying home sets: %w", err)
	}
	defer rows.Close()

	var homeSets []HomeSet
	for rows.Next() {
		var hs HomeSet
		if err := rows.Scan(&hs.ID, &hs.ServiceID, &hs.URL); err != nil {
			return nil, fmt.Errorf("scanning home set: %w", err)
		}
		homeSets = append(homeSets, hs)
	}

	return homeSets, rows.Err()
}

// UpdateHomeSets applies one reconciliation diff atomically: all inserts and
// deletes commit together or not at all.
func (s *Store) UpdateHomeSets(ctx context.Context, serviceID int64, insertURLs []string, deleteIDs []int64) error {
	return s.Transaction(func(tx *sql.Tx) error {
		for _, id := range deleteIDs {
			if _, err := tx.ExecContext(ctx, "DELETE FROM home_sets WHERE id = ?", id); err != nil {
				return fmt.Errorf("deleting home set %d: %w", id, err)
			}
		}
		for _, url := range insertURLs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO home_sets (service_id, url) VALUES (?, ?)
			`, serviceID, url); err != nil {
				return fmt.Errorf("inserting home set %q: %w", url, err)
			}
		}
		return nil
	})
}
