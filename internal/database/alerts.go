package database

import (
	"coinpaprika-alert-bot/internal/types"
	"fmt"
	"sort"
)

// WatchTable stores the watch registry in the watches table.
type WatchTable struct {
	db *DB
}

func (d *DB) Watches() *WatchTable {
	return &WatchTable{db: d}
}

// Load fetches all watches grouped by user. Each user's watches keep the order
// they had when saved.
func (w *WatchTable) Load() (map[string][]types.Watch, error) {
	query := `SELECT user_id, coin, price FROM watches ORDER BY rowid;`

	rows, err := w.db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query watches: %w", err)
	}
	defer rows.Close()

	watches := make(map[string][]types.Watch)
	for rows.Next() {
		var userID string
		var watch types.Watch
		if err := rows.Scan(&userID, &watch.Coin, &watch.Price); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		watches[userID] = append(watches[userID], watch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read watches: %w", err)
	}

	return watches, nil
}

// Save replaces the table contents in a single transaction.
func (w *WatchTable) Save(watches map[string][]types.Watch) error {
	tx, err := w.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM watches;`); err != nil {
		return fmt.Errorf("failed to clear watches: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO watches (user_id, coin, price) VALUES (?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	userIDs := make([]string, 0, len(watches))
	for userID := range watches {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	for _, userID := range userIDs {
		for _, watch := range watches[userID] {
			if _, err := stmt.Exec(userID, watch.Coin, watch.Price); err != nil {
				return fmt.Errorf("failed to insert watch: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit watches: %w", err)
	}
	return nil
}
