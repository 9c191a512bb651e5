// Package state persists what the radar has already seen: the known-company
// ID set and the queue of deliveries awaiting retry, as two JSON documents
// under the data directory.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ycradar/internal/domain"
)

const (
	knownFile   = "known_companies.json"
	pendingFile = "pending_webhook.json"

	// Version is bumped when the known-companies document changes shape.
	Version = 1
)

// ErrCorrupt marks persisted state that exists but cannot be read. The run
// must abort rather than reset to empty: a silent reset would re-notify on
// every company in the directory.
var ErrCorrupt = errors.New("corrupt state file")

// Snapshot is the known-companies document.
type Snapshot struct {
	Version          int       `json:"version"`
	LastRunAt        time.Time `json:"last_run_at"`
	LastRunTimestamp int64     `json:"last_run_timestamp"`
	LastRunID        string    `json:"last_run_id,omitempty"`
	TotalCount       int       `json:"total_count"`
	KnownIDs         []string  `json:"known_ids"`
}

// KnownSet returns the snapshot's IDs as a lookup set.
func (s *Snapshot) KnownSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.KnownIDs))
	for _, id := range s.KnownIDs {
		set[id] = struct{}{}
	}
	return set
}

type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) knownPath() string   { return filepath.Join(s.dir, knownFile) }
func (s *Store) pendingPath() string { return filepath.Join(s.dir, pendingFile) }

// Load reads both documents. A missing known-companies file means first run
// and returns a nil snapshot; a missing pending file means an empty queue.
// Anything unreadable or malformed wraps ErrCorrupt.
func (s *Store) Load() (*Snapshot, map[string]domain.PendingDelivery, error) {
	var snap *Snapshot

	b, err := os.ReadFile(s.knownPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
		// first run
	case err != nil:
		return nil, nil, fmt.Errorf("%w: read %s: %v", ErrCorrupt, s.knownPath(), err)
	default:
		snap = &Snapshot{}
		if err := json.Unmarshal(b, snap); err != nil {
			return nil, nil, fmt.Errorf("%w: parse %s: %v", ErrCorrupt, s.knownPath(), err)
		}
		if snap.Version > Version {
			return nil, nil, fmt.Errorf("%w: %s has version %d, this build understands %d",
				ErrCorrupt, s.knownPath(), snap.Version, Version)
		}
	}

	pending := make(map[string]domain.PendingDelivery)
	b, err = os.ReadFile(s.pendingPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
		// empty queue
	case err != nil:
		return nil, nil, fmt.Errorf("%w: read %s: %v", ErrCorrupt, s.pendingPath(), err)
	default:
		if err := json.Unmarshal(b, &pending); err != nil {
			return nil, nil, fmt.Errorf("%w: parse %s: %v", ErrCorrupt, s.pendingPath(), err)
		}
	}

	return snap, pending, nil
}

// Save persists both documents via write-to-temp-then-rename so a crash
// mid-save never leaves a half-written file behind. Both temp files are
// written before either rename happens. An empty pending queue removes the
// pending file instead of writing an empty document.
func (s *Store) Save(snap *Snapshot, pending map[string]domain.PendingDelivery) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}

	snap.Version = Version
	sort.Strings(snap.KnownIDs)

	knownB, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal known state: %w", err)
	}

	knownTmp := s.knownPath() + ".tmp"
	if err := os.WriteFile(knownTmp, knownB, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", knownTmp, err)
	}

	var pendingTmp string
	if len(pending) > 0 {
		pendingB, err := json.MarshalIndent(pending, "", "  ")
		if err != nil {
			_ = os.Remove(knownTmp)
			return fmt.Errorf("marshal pending queue: %w", err)
		}
		pendingTmp = s.pendingPath() + ".tmp"
		if err := os.WriteFile(pendingTmp, pendingB, 0o644); err != nil {
			_ = os.Remove(knownTmp)
			return fmt.Errorf("write %s: %w", pendingTmp, err)
		}
	}

	if err := os.Rename(knownTmp, s.knownPath()); err != nil {
		_ = os.Remove(knownTmp)
		if pendingTmp != "" {
			_ = os.Remove(pendingTmp)
		}
		return fmt.Errorf("rename %s: %w", knownTmp, err)
	}

	if pendingTmp != "" {
		if err := os.Rename(pendingTmp, s.pendingPath()); err != nil {
			_ = os.Remove(pendingTmp)
			return fmt.Errorf("rename %s: %w", pendingTmp, err)
		}
	} else if err := os.Remove(s.pendingPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear pending queue: %w", err)
	}

	return nil
}
