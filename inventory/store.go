/*
store.go - Persistence interfaces for the inventory core

PURPOSE:
  The ledger, catalog and user directory hold all records in memory and
  write through to a Store on every mutation. The interfaces here are the
  whole persistence contract; implementations decide the medium:

    inventory/store:  in-memory (tests, dev)
    store/jsonfile:   one JSON array file per collection
    store/sqlite:     embedded single-file database

LIFECYCLE:
  Load* methods are called once at startup. After that, mutations are
  written through immediately so a crash loses at most the in-flight
  operation, never previously committed history.

DURABILITY CONTRACT:
  AppendEntry failures are surfaced to callers but never roll back the
  in-memory append - durability-at-best-effort for the activity ledger.
*/
package inventory

import "context"

// LedgerStore persists the append-only activity collection.
type LedgerStore interface {
	// LoadEntries returns all entries in append order (ActivityID ascending).
	LoadEntries(ctx context.Context) ([]ActivityEntry, error)

	// AppendEntry durably adds one entry. The entry already carries its
	// assigned ActivityID. This is the only ledger write operation.
	AppendEntry(ctx context.Context, e ActivityEntry) error
}

// CatalogStore persists the item collection.
type CatalogStore interface {
	LoadItems(ctx context.Context) ([]Item, error)

	// SaveItems replaces the whole collection (catalog import).
	SaveItems(ctx context.Context, items []Item) error

	// UpdateItemState overwrites only the two derived fields of one item.
	UpdateItemState(ctx context.Context, itemID, actualStock, qtyRemaining int) error
}

// UserStore persists the user collection.
type UserStore interface {
	LoadUsers(ctx context.Context) ([]User, error)

	// SaveUsers replaces the whole collection (user import).
	SaveUsers(ctx context.Context, users []User) error
}

// Store combines all three collections behind one backend.
type Store interface {
	LedgerStore
	CatalogStore
	UserStore
}
