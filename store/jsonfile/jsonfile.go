/*
Package jsonfile persists the three record collections as JSON array
files in a single data directory:

	inventory.json    items
	activityLog.json  activity ledger entries
	users.json        users

PURPOSE:
  The original deployment model for this tracker: one desk, one local
  process, one data directory a staff member can open in a text editor.
  Every mutation rewrites the affected file (write-through), so a crash
  loses at most the in-flight operation.

FILE HANDLING:
  A missing or empty file loads as an empty collection - first run needs
  no setup. Files are written indented for hand inspection, to a temp
  file first and then renamed so a crash mid-write never truncates
  committed history.

CONCURRENCY:
  Guarded by one RWMutex. The coordinator already serializes all
  transactions, so this only protects concurrent reads from the API
  against an in-flight import.

SEE ALSO:
  - inventory/store.go: The interfaces implemented here
  - store/sqlite: The embedded-database alternative
*/
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/warp/stockroom/inventory"
)

const (
	itemsFile      = "inventory.json"
	activitiesFile = "activityLog.json"
	usersFile      = "users.json"
)

// Store implements inventory.Store over JSON files in dir.
type Store struct {
	mu  sync.RWMutex
	dir string

	// Cached collections; the files are rewritten from these on every
	// mutation so AppendEntry does not have to re-read the log.
	entries []inventory.ActivityEntry
	items   []inventory.Item
	users   []inventory.User
}

// New opens (or initializes) a JSON-file store in dir. The directory is
// created if missing; absent collection files load as empty.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{dir: dir}
	if err := readCollection(filepath.Join(dir, activitiesFile), &s.entries); err != nil {
		return nil, err
	}
	if err := readCollection(filepath.Join(dir, itemsFile), &s.items); err != nil {
		return nil, err
	}
	if err := readCollection(filepath.Join(dir, usersFile), &s.users); err != nil {
		return nil, err
	}
	return s, nil
}

// readCollection loads one JSON array file into dst. Missing and empty
// files are treated as empty collections, not errors.
func readCollection(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeCollection writes one collection atomically: temp file + rename.
func (s *Store) writeCollection(name string, data any) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// =============================================================================
// LEDGER STORE
// =============================================================================

func (s *Store) LoadEntries(context.Context) ([]inventory.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]inventory.ActivityEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *Store) AppendEntry(_ context.Context, e inventory.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	if err := s.writeCollection(activitiesFile, s.entries); err != nil {
		// Keep the cache consistent with the file we failed to write:
		// the caller's ledger owns the in-memory truth.
		s.entries = s.entries[:len(s.entries)-1]
		return err
	}
	return nil
}

// =============================================================================
// CATALOG STORE
// =============================================================================

func (s *Store) LoadItems(context.Context) ([]inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]inventory.Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) SaveItems(_ context.Context, items []inventory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append([]inventory.Item(nil), items...)
	return s.writeCollection(itemsFile, s.items)
}

func (s *Store) UpdateItemState(_ context.Context, itemID, actualStock, qtyRemaining int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ItemID == itemID {
			s.items[i].ActualStock = actualStock
			s.items[i].QtyRemaining = qtyRemaining
			return s.writeCollection(itemsFile, s.items)
		}
	}
	return inventory.ErrItemNotFound
}

// =============================================================================
// USER STORE
// =============================================================================

func (s *Store) LoadUsers(context.Context) ([]inventory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]inventory.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

func (s *Store) SaveUsers(_ context.Context, users []inventory.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = append([]inventory.User(nil), users...)
	return s.writeCollection(usersFile, s.users)
}
