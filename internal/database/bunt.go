package database

import (
	"coinpaprika-alert-bot/internal/types"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/buntdb"
)

const buntWatchPrefix = "watches:"

// BuntBackend keeps one JSON array of watches per user in a buntdb file.
type BuntBackend struct {
	db *buntdb.DB
}

// OpenBunt opens (or creates) a buntdb file; ":memory:" keeps it in memory.
func OpenBunt(path string) (*BuntBackend, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}
	return &BuntBackend{db: db}, nil
}

func (b *BuntBackend) Load() (map[string][]types.Watch, error) {
	watches := make(map[string][]types.Watch)

	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(buntWatchPrefix+"*", func(key, value string) bool {
			var set []types.Watch
			if err := json.Unmarshal([]byte(value), &set); err != nil {
				log.Warnf("Failed to unmarshal watches at %s: %v", key, err)
				return true
			}
			if len(set) > 0 {
				watches[key[len(buntWatchPrefix):]] = set
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over watches: %w", err)
	}

	return watches, nil
}

// Save rewrites every user key inside one update transaction.
func (b *BuntBackend) Save(watches map[string][]types.Watch) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		var stale []string
		err := tx.AscendKeys(buntWatchPrefix+"*", func(key, _ string) bool {
			stale = append(stale, key)
			return true
		})
		if err != nil {
			return fmt.Errorf("failed to list watches: %w", err)
		}
		for _, key := range stale {
			if _, err := tx.Delete(key); err != nil && err != buntdb.ErrNotFound {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
		}

		for userID, set := range watches {
			if len(set) == 0 {
				continue
			}
			content, err := json.Marshal(set)
			if err != nil {
				return fmt.Errorf("failed to marshal watches: %w", err)
			}
			if _, _, err := tx.Set(buntWatchPrefix+userID, string(content), nil); err != nil {
				return fmt.Errorf("failed to store watches: %w", err)
			}
		}
		return nil
	})
}

func (b *BuntBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
