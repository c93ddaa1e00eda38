/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Same contract as store/jsonfile, different medium: one embedded
  database file instead of three JSON files. For installations that want
  transactional writes and indexed history queries without giving up the
  single-local-file deployment model.

INTERFACES IMPLEMENTED:
  inventory.LedgerStore:  Activity entry persistence (append-only)
  inventory.CatalogStore: Item collection
  inventory.UserStore:    User collection

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements touch the activities table. The only
  item mutation outside a full re-import is the two derived stock
  columns.

WAL MODE:
  Opened with WAL (Write-Ahead Logging): readers don't block the single
  writer, and crash recovery is better than rollback-journal mode.

MIGRATION:
  Schema is auto-migrated on New(). Use ":memory:" for tests.

SEE ALSO:
  - inventory/store.go: Interface definitions
  - store/jsonfile: The plain-file alternative
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/stockroom/inventory"
)

// Store implements inventory.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Activities (append-only ledger)
	CREATE TABLE IF NOT EXISTS activities (
		activity_id INTEGER PRIMARY KEY,
		timestamp TEXT NOT NULL,
		action TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		user_name TEXT NOT NULL,
		user_specs TEXT,
		item_id INTEGER NOT NULL,
		item_name TEXT NOT NULL,
		item_specs TEXT,
		qty INTEGER NOT NULL,
		notes TEXT,
		original_borrow_activity_id INTEGER,
		qty_remaining_after INTEGER NOT NULL
	);

	-- Per-item replay (hot path: every transaction re-reads one item's history)
	CREATE INDEX IF NOT EXISTS idx_activities_item
		ON activities(item_id);

	-- Settlement-cap checks sum entries referencing one borrow
	CREATE INDEX IF NOT EXISTS idx_activities_original_borrow
		ON activities(original_borrow_activity_id)
		WHERE original_borrow_activity_id IS NOT NULL;

	-- Items (catalog, replaced wholesale on import)
	CREATE TABLE IF NOT EXISTS items (
		item_id INTEGER PRIMARY KEY,
		item_name TEXT NOT NULL,
		item_specs TEXT,
		category TEXT,
		initial_stock INTEGER NOT NULL,
		actual_stock INTEGER NOT NULL,
		qty_remaining INTEGER NOT NULL
	);

	-- Users (read by login, replaced wholesale on import)
	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		user_name TEXT NOT NULL,
		role TEXT NOT NULL,
		user_specs TEXT,
		passcode TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (inventory.LedgerStore interface)
// =============================================================================

// LoadEntries returns all activity entries in ID order.
func (s *Store) LoadEntries(ctx context.Context) ([]inventory.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT activity_id, timestamp, action, user_id, user_name, user_specs,
		       item_id, item_name, item_specs, qty, notes,
		       original_borrow_activity_id, qty_remaining_after
		FROM activities
		ORDER BY activity_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var entries []inventory.ActivityEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AppendEntry inserts one ledger entry. The ActivityID is assigned by
// the ledger, not by SQLite autoincrement, so IDs survive a move between
// backends unchanged.
func (s *Store) AppendEntry(ctx context.Context, e inventory.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO activities
		(activity_id, timestamp, action, user_id, user_name, user_specs,
		 item_id, item_name, item_specs, qty, notes,
		 original_borrow_activity_id, qty_remaining_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var borrowID any
	if e.OriginalBorrowActivityID != nil {
		borrowID = *e.OriginalBorrowActivityID
	}

	_, err := s.db.ExecContext(ctx, query,
		e.ActivityID,
		e.Timestamp.UTC().Format(time.RFC3339),
		string(e.Action),
		e.UserID,
		e.UserName,
		e.UserSpecs,
		e.ItemID,
		e.ItemName,
		e.ItemSpecs,
		e.Qty,
		e.Notes,
		borrowID,
		e.ItemQtyRemainingAfterThisAction,
	)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

func scanEntry(rows *sql.Rows) (inventory.ActivityEntry, error) {
	var (
		e         inventory.ActivityEntry
		timestamp string
		action    string
		userSpecs sql.NullString
		itemSpecs sql.NullString
		notes     sql.NullString
		borrowID  sql.NullInt64
	)

	err := rows.Scan(
		&e.ActivityID, &timestamp, &action, &e.UserID, &e.UserName, &userSpecs,
		&e.ItemID, &e.ItemName, &itemSpecs, &e.Qty, &notes,
		&borrowID, &e.ItemQtyRemainingAfterThisAction,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan activity: %w", err)
	}

	e.Timestamp, err = time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return e, fmt.Errorf("failed to parse activity %d timestamp %q: %w", e.ActivityID, timestamp, err)
	}
	e.Action = inventory.Action(action)
	e.UserSpecs = userSpecs.String
	e.ItemSpecs = itemSpecs.String
	e.Notes = notes.String
	if borrowID.Valid {
		id := int(borrowID.Int64)
		e.OriginalBorrowActivityID = &id
	}
	return e, nil
}

// =============================================================================
// CATALOG STORE (inventory.CatalogStore interface)
// =============================================================================

// LoadItems returns all items.
func (s *Store) LoadItems(ctx context.Context) ([]inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, item_name, item_specs, category, initial_stock, actual_stock, qty_remaining
		 FROM items ORDER BY item_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []inventory.Item
	for rows.Next() {
		var (
			it       inventory.Item
			specs    sql.NullString
			category sql.NullString
		)
		if err := rows.Scan(&it.ItemID, &it.ItemName, &specs, &category,
			&it.InitialStock, &it.ActualStock, &it.QtyRemaining); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.ItemSpecs = specs.String
		it.Category = category.String
		items = append(items, it)
	}
	return items, rows.Err()
}

// SaveItems replaces the whole item collection in one transaction.
func (s *Store) SaveItems(ctx context.Context, items []inventory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM items"); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	for _, it := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO items (item_id, item_name, item_specs, category, initial_stock, actual_stock, qty_remaining)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.ItemID, it.ItemName, it.ItemSpecs, it.Category,
			it.InitialStock, it.ActualStock, it.QtyRemaining,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item %d: %w", it.ItemID, err)
		}
	}
	return tx.Commit()
}

// UpdateItemState overwrites the two derived stock columns of one item.
func (s *Store) UpdateItemState(ctx context.Context, itemID, actualStock, qtyRemaining int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET actual_stock = ?, qty_remaining = ? WHERE item_id = ?",
		actualStock, qtyRemaining, itemID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return inventory.ErrItemNotFound
	}
	return nil
}

// =============================================================================
// USER STORE (inventory.UserStore interface)
// =============================================================================

// LoadUsers returns all users.
func (s *Store) LoadUsers(ctx context.Context) ([]inventory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, user_name, role, user_specs, passcode FROM users ORDER BY user_id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []inventory.User
	for rows.Next() {
		var (
			u     inventory.User
			role  string
			specs sql.NullString
		)
		if err := rows.Scan(&u.UserID, &u.UserName, &role, &specs, &u.Passcode); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Role = inventory.Role(role)
		u.UserSpecs = specs.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// SaveUsers replaces the whole user collection in one transaction.
func (s *Store) SaveUsers(ctx context.Context, users []inventory.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM users"); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}

	for _, u := range users {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO users (user_id, user_name, role, user_specs, passcode) VALUES (?, ?, ?, ?, ?)",
			u.UserID, u.UserName, string(u.Role), u.UserSpecs, u.Passcode,
		)
		if err != nil {
			return fmt.Errorf("failed to insert user %d: %w", u.UserID, err)
		}
	}
	return tx.Commit()
}
