package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/livability/internal/livability"
)

var (
	// ErrNotLoaded is returned before the first snapshot has been stored.
	ErrNotLoaded = errors.New("reference data not loaded")
)

// LoadRecord describes one load attempt.
type LoadRecord struct {
	At    time.Time         `json:"at"`
	Stats *livability.Stats `json:"stats,omitempty"`
	Error string            `json:"error,omitempty"`
}

// ReferenceStore is a concurrency-safe holder of the current reference
// snapshot. Snapshots are immutable; a reload swaps the pointer.
type ReferenceStore struct {
	mu sync.RWMutex

	current *livability.Reference
	history []LoadRecord

	// retention configuration
	maxHistory int           // max number of load records kept
	maxAge     time.Duration // optional max age for load records
}

// NewReferenceStore creates a new ReferenceStore with optional history limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewReferenceStore(maxHistory int, maxAge time.Duration) *ReferenceStore {
	return &ReferenceStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Current returns the active snapshot.
func (s *ReferenceStore) Current() (*livability.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, ErrNotLoaded
	}
	return s.current, nil
}

// Swap installs ref as the active snapshot and records the load.
func (s *ReferenceStore) Swap(ref *livability.Reference) {
	if ref == nil {
		return
	}
	stats := ref.Stats()
	at := ref.LoadedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = ref
	s.record(LoadRecord{At: at, Stats: &stats})
}

// RecordFailure notes a failed load; the active snapshot is kept.
func (s *ReferenceStore) RecordFailure(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record(LoadRecord{At: time.Now().UTC(), Error: err.Error()})
}

// History returns the retained load records, oldest first.
func (s *ReferenceStore) History() []LoadRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]LoadRecord, len(s.history))
	copy(out, s.history)
	return out
}

// record appends and enforces retention. Callers hold the write lock.
func (s *ReferenceStore) record(r LoadRecord) {
	s.history = append(s.history, r)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		over := len(s.history) - s.maxHistory
		s.history = s.history[over:]
	}

	// Enforce retention by age, always keeping the newest record.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.history)-1; i++ {
			if !s.history[i].At.Before(cutoff) {
				break
			}
		}
		s.history = s.history[i:]
	}
}
