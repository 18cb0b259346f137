package alert

import (
	"coinpaprika-alert-bot/internal/types"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"strings"
	"sync"
)

// Backend persists the whole watch registry at once.
type Backend interface {
	Load() (map[string][]types.Watch, error)
	Save(watches map[string][]types.Watch) error
}

// Store is the authoritative registry of active watches, keyed by user ID.
// Every mutation is persisted to the backend before the call returns.
type Store struct {
	mu      sync.Mutex
	backend Backend
	watches map[string][]types.Watch
	dirty   bool
}

// NewStore creates an empty store. Call Load to read the persisted state.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		watches: make(map[string][]types.Watch),
	}
}

// NormalizeCoin returns the canonical form of a coin symbol.
func NormalizeCoin(coin string) string {
	return strings.ToUpper(strings.TrimSpace(coin))
}

// Load replaces the in-memory registry with the backend contents.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.backend.Load()
	if err != nil {
		return err
	}

	watches := make(map[string][]types.Watch, len(loaded))
	for userID, set := range loaded {
		for _, w := range set {
			w.Coin = NormalizeCoin(w.Coin)
			if w.Coin == "" || w.Price <= 0 {
				log.Warnf("Dropping invalid watch for user %s: %+v", userID, w)
				continue
			}
			if lo.Contains(watches[userID], w) {
				continue
			}
			watches[userID] = append(watches[userID], w)
		}
	}

	s.watches = watches
	s.dirty = false
	log.Infof("Loaded %d watches for %d users", countWatches(watches), len(watches))
	return nil
}

// Add appends a watch for the user. An identical watch is not stored twice,
// in which case Add returns false.
func (s *Store) Add(userID, coin string, price float64) bool {
	w := types.Watch{Coin: NormalizeCoin(coin), Price: price}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lo.Contains(s.watches[userID], w) {
		return false
	}
	s.watches[userID] = append(s.watches[userID], w)
	s.persistLocked()

	log.WithFields(log.Fields{"user": userID, "coin": w.Coin, "price": w.Price}).Debug("Watch added")
	return true
}

// Remove deletes every watch of the user matching coin and price exactly.
func (s *Store) Remove(userID, coin string, price float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.removeLocked(userID, NormalizeCoin(coin), price) {
		return false
	}
	s.persistLocked()
	return true
}

// RemoveTriggered deletes the watches behind the given triggers and persists
// once. It returns the triggers whose watch was still present.
func (s *Store) RemoveTriggered(triggers []types.Trigger) []types.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []types.Trigger
	for _, t := range triggers {
		if s.removeLocked(t.UserID, NormalizeCoin(t.Coin), t.Target) {
			removed = append(removed, t)
		}
	}
	if len(removed) > 0 {
		s.persistLocked()
	}
	return removed
}

// List returns a copy of the user's watches.
func (s *Store) List(userID string) []types.Watch {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]types.Watch{}, s.watches[userID]...)
}

// All returns a deep copy of the registry.
func (s *Store) All() map[string][]types.Watch {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyWatches(s.watches)
}

// Flush retries persistence if the last attempt failed.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := s.backend.Save(copyWatches(s.watches)); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *Store) removeLocked(userID, coin string, price float64) bool {
	set, ok := s.watches[userID]
	if !ok {
		return false
	}

	kept := lo.Reject(set, func(w types.Watch, _ int) bool {
		return w.Coin == coin && w.Price == price
	})
	if len(kept) == len(set) {
		return false
	}

	if len(kept) == 0 {
		delete(s.watches, userID)
	} else {
		s.watches[userID] = kept
	}
	return true
}

// persistLocked writes the registry through the backend. Failures leave the
// store dirty so the next mutation or Flush tries again.
func (s *Store) persistLocked() {
	if err := s.backend.Save(copyWatches(s.watches)); err != nil {
		s.dirty = true
		log.Errorf("Failed to persist watches: %v", err)
		return
	}
	s.dirty = false
}

func copyWatches(src map[string][]types.Watch) map[string][]types.Watch {
	dst := make(map[string][]types.Watch, len(src))
	for userID, set := range src {
		dst[userID] = append([]types.Watch(nil), set...)
	}
	return dst
}

func countWatches(watches map[string][]types.Watch) int {
	n := 0
	for _, set := range watches {
		n += len(set)
	}
	return n
}
