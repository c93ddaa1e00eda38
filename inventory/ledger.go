/*
ledger.go - Append-only activity ledger

PURPOSE:
  The ActivityLedger is the immutable source of truth for every
  transaction. Catalog stock figures are a materialized view recomputed
  from it; if the two ever disagree, the ledger wins.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: no update, no delete. Ever.
  2. MONOTONIC IDS: ActivityIDs are unique and strictly increasing in
     assignment order. On reload, the next ID is max existing + 1, so IDs
     are never reused across restarts.
  3. DURABILITY-AT-BEST-EFFORT: the in-memory append succeeds even when
     the storage write fails; the failure is surfaced as a
     PersistenceError and logged, never silently swallowed. Once an entry
     is in the ledger it is committed for audit purposes.

SEE ALSO:
  - store.go: LedgerStore persistence interface
  - coordinator.go: The only component that appends entries
*/
package inventory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// ActivityLedger is the durable, ordered, append-only record of all
// transactions. It owns ActivityID assignment and nothing else: business
// rules live in the TransactionCoordinator.
type ActivityLedger struct {
	mu      sync.RWMutex
	store   LedgerStore
	entries []ActivityEntry
	nextID  int
	log     zerolog.Logger
}

// NewActivityLedger loads all persisted entries and resumes ID
// assignment at max existing + 1 (1 when the ledger is empty).
func NewActivityLedger(ctx context.Context, store LedgerStore, log zerolog.Logger) (*ActivityLedger, error) {
	entries, err := store.LoadEntries(ctx)
	if err != nil {
		return nil, err
	}

	nextID := 1
	for _, e := range entries {
		if e.ActivityID >= nextID {
			nextID = e.ActivityID + 1
		}
	}

	log.Info().Int("entries", len(entries)).Int("next_id", nextID).Msg("activity ledger loaded")

	return &ActivityLedger{
		store:   store,
		entries: entries,
		nextID:  nextID,
		log:     log,
	}, nil
}

// Append assigns the next sequential ActivityID, stores the entry, and
// persists it. The returned entry carries the assigned ID.
//
// If the storage write fails, the entry REMAINS in the in-memory ledger
// and a *PersistenceError is returned alongside it: callers treat the
// transaction as committed for audit purposes and surface the warning.
func (l *ActivityLedger) Append(ctx context.Context, e ActivityEntry) (ActivityEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.ActivityID = l.nextID
	l.nextID++
	l.entries = append(l.entries, e)

	if err := l.store.AppendEntry(ctx, e); err != nil {
		l.log.Warn().Err(err).Int("activity_id", e.ActivityID).
			Msg("ledger entry kept in memory but not persisted")
		return e, &PersistenceError{Op: "ledger append", Err: err}
	}
	return e, nil
}

// GetAll returns every entry in original append order (ID ascending).
func (l *ActivityLedger) GetAll() []ActivityEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]ActivityEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// FindByID returns the entry with the given ActivityID.
func (l *ActivityLedger) FindByID(activityID int) (ActivityEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, e := range l.entries {
		if e.ActivityID == activityID {
			return e, nil
		}
	}
	return ActivityEntry{}, ErrBorrowNotFound
}

// EntriesForItem returns all entries referencing the item, order preserved.
func (l *ActivityLedger) EntriesForItem(itemID int) []ActivityEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []ActivityEntry
	for _, e := range l.entries {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}
	return out
}

// EntriesSettling returns all settlement entries referencing the given
// Borrowed entry, order preserved.
func (l *ActivityLedger) EntriesSettling(borrowActivityID int) []ActivityEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []ActivityEntry
	for _, e := range l.entries {
		if e.SettlesBorrow(borrowActivityID) {
			out = append(out, e)
		}
	}
	return out
}

// SettledQuantity sums Qty across all settlements of the given borrow.
// Returned, Used and Lost share this one running total: a unit can only
// be settled once regardless of which disposition applies.
func (l *ActivityLedger) SettledQuantity(borrowActivityID int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := 0
	for _, e := range l.entries {
		if e.SettlesBorrow(borrowActivityID) {
			total += absQty(e.Qty)
		}
	}
	return total
}

// Len returns the number of entries in the ledger.
func (l *ActivityLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
