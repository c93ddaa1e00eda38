// Package store provides an in-memory Store implementation for tests
// and development.
package store

import (
	"context"

	"github.com/warp/stockroom/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps all three collections in slices. No durability; callers
// that need crash safety use the jsonfile or sqlite backends.
//
// The error hooks let tests exercise the durability-over-atomicity
// paths: set AppendErr and the next AppendEntry fails while the caller's
// in-memory ledger keeps the entry.
type Memory struct {
	entries []inventory.ActivityEntry
	items   []inventory.Item
	users   []inventory.User

	// Failure injection for tests. When non-nil, the matching write
	// operation returns the error instead of applying.
	AppendErr    error
	SaveItemsErr error
	UpdateErr    error
	SaveUsersErr error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Seed pre-populates the store before the ledger/catalog load it.
func (m *Memory) Seed(items []inventory.Item, entries []inventory.ActivityEntry, users []inventory.User) *Memory {
	m.items = append(m.items, items...)
	m.entries = append(m.entries, entries...)
	m.users = append(m.users, users...)
	return m
}

func (m *Memory) LoadEntries(context.Context) ([]inventory.ActivityEntry, error) {
	out := make([]inventory.ActivityEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *Memory) AppendEntry(_ context.Context, e inventory.ActivityEntry) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) LoadItems(context.Context) ([]inventory.Item, error) {
	out := make([]inventory.Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *Memory) SaveItems(_ context.Context, items []inventory.Item) error {
	if m.SaveItemsErr != nil {
		return m.SaveItemsErr
	}
	m.items = append([]inventory.Item(nil), items...)
	return nil
}

func (m *Memory) UpdateItemState(_ context.Context, itemID, actualStock, qtyRemaining int) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	for i := range m.items {
		if m.items[i].ItemID == itemID {
			m.items[i].ActualStock = actualStock
			m.items[i].QtyRemaining = qtyRemaining
			return nil
		}
	}
	return inventory.ErrItemNotFound
}

func (m *Memory) LoadUsers(context.Context) ([]inventory.User, error) {
	out := make([]inventory.User, len(m.users))
	copy(out, m.users)
	return out, nil
}

func (m *Memory) SaveUsers(_ context.Context, users []inventory.User) error {
	if m.SaveUsersErr != nil {
		return m.SaveUsersErr
	}
	m.users = append([]inventory.User(nil), users...)
	return nil
}

// Entries exposes the raw persisted entries. For test assertions.
func (m *Memory) Entries() []inventory.ActivityEntry {
	return m.entries
}
