package db

import (
	"context"
	"fmt"
)

// NormalizeDateKeys trims check-in date keys that were written as full
// timestamps ("2025-01-02T00:00:00Z" or "2025-01-02 00:00:00") down to the
// calendar day.
func (db *DB) NormalizeDateKeys() error {
	queries := []string{
		`UPDATE OR IGNORE checkins
		 SET date_key = SUBSTR(date_key, 1, 10)
		 WHERE length(date_key) > 10`,

		// Rows that collided with an existing day are duplicates.
		`DELETE FROM checkins WHERE length(date_key) > 10`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(context.Background(), query); err != nil {
			return fmt.Errorf("failed to normalize date keys: %w", err)
		}
	}

	return nil
}
