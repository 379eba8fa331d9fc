package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Provider supplies voice candidates from an upstream source.
//
// Implementations live in subpackages (catalog/elevenlabs) or in this
// package ([FileProvider]). A provider should skip records that fail
// [Voice.Validate] rather than fail the whole fetch.
type Provider interface {
	// FetchVoices returns the current candidate set. The returned slice is
	// owned by the caller.
	FetchVoices(ctx context.Context) ([]Voice, error)
}

// Snapshot is one immutable, versioned view of the catalog. Snapshots are
// never mutated after construction; a refresh builds a new one and installs
// it with [Store.Swap].
type Snapshot struct {
	// Voices is the candidate set. Treat as read-only.
	Voices []Voice

	// Version increases by one per installed snapshot. The matching engine
	// keys its vocabulary-index cache on it.
	Version int64

	// FetchedAt records when the snapshot's data was obtained.
	FetchedAt time.Time
}

// Store holds the current catalog snapshot and swaps in replacements
// atomically. The zero value is not usable; use [NewStore].
type Store struct {
	mu   sync.RWMutex
	cur  *Snapshot
	next int64
}

// NewStore returns an empty store. [Store.Snapshot] returns nil until the
// first [Store.Swap].
func NewStore() *Store {
	return &Store{next: 1}
}

// Swap validates the given voices, drops invalid records with a diagnostic,
// and installs the remainder as the new current snapshot. It returns the
// installed snapshot. Readers holding the previous snapshot are unaffected.
func (s *Store) Swap(voices []Voice) *Snapshot {
	kept := make([]Voice, 0, len(voices))
	for _, v := range voices {
		if err := v.Validate(); err != nil {
			slog.Warn("catalog: dropping invalid voice record",
				slog.String("id", v.ID),
				slog.String("name", v.DisplayName),
				slog.String("error", err.Error()))
			continue
		}
		kept = append(kept, v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &Snapshot{
		Voices:    kept,
		Version:   s.next,
		FetchedAt: time.Now(),
	}
	s.next++
	s.cur = snap
	return snap
}

// Snapshot returns the current snapshot, or nil when no catalog has been
// loaded yet. The returned snapshot must be treated as read-only.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Len returns the number of voices in the current snapshot, or 0 when no
// snapshot is installed.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return 0
	}
	return len(s.cur.Voices)
}

// Ready reports whether a snapshot has been installed. Used by the
// readiness probe.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur != nil
}
