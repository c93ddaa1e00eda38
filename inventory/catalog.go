/*
catalog.go - Item catalog with derived stock fields

PURPOSE:
  Holds the current item records: static fields set at import time
  (name, specs, category, initial stock) and the two derived fields
  (actual stock, quantity remaining) that the reconciliation writes back
  after every transaction.

  The catalog is a cache over the ledger. It never computes stock itself;
  it only accepts recalculated state via ApplyRecalculatedState.

IMPORT SEMANTICS:
  ReplaceAll swaps the whole collection. Invalid rows (missing ID,
  missing name, negative stock) are skipped individually with a reason;
  valid rows commit. Items are never deleted mid-session outside of a
  full re-import.
*/
package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// SkippedRow reports one import row that failed validation. Row is the
// caller's 1-based row number (spreadsheet importers count the header as
// row 1, so data starts at 2).
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// InventoryCatalog holds current item records and exposes lookup.
type InventoryCatalog struct {
	mu    sync.RWMutex
	store CatalogStore
	items []Item
	index map[int]int // ItemID -> position in items
	log   zerolog.Logger
}

// NewInventoryCatalog loads all persisted items.
func NewInventoryCatalog(ctx context.Context, store CatalogStore, log zerolog.Logger) (*InventoryCatalog, error) {
	items, err := store.LoadItems(ctx)
	if err != nil {
		return nil, err
	}

	c := &InventoryCatalog{store: store, log: log}
	c.reset(items)
	log.Info().Int("items", len(items)).Msg("inventory catalog loaded")
	return c, nil
}

func (c *InventoryCatalog) reset(items []Item) {
	c.items = items
	c.index = make(map[int]int, len(items))
	for i, it := range items {
		c.index[it.ItemID] = i
	}
}

// GetAll returns all items in catalog order.
func (c *InventoryCatalog) GetAll() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// GetByID returns the item with the given ID, or ErrItemNotFound.
func (c *InventoryCatalog) GetByID(itemID int) (Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[itemID]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return c.items[i], nil
}

// ReplaceAll replaces the whole catalog with the given rows. Each row is
// validated independently: invalid rows are skipped and reported with a
// reason, valid rows are committed. Derived fields default to
// InitialStock when the row does not provide them.
//
// Row numbers in the skip report come from each row's Row field when
// set (spreadsheet imports stamp the source row there), falling back to
// slice position + 2 for programmatic callers.
func (c *InventoryCatalog) ReplaceAll(ctx context.Context, rows []ItemRow) ([]SkippedRow, error) {
	var (
		items   []Item
		skipped []SkippedRow
	)

	seen := make(map[int]bool, len(rows))
	for i, row := range rows {
		rowNum := row.Row
		if rowNum == 0 {
			rowNum = i + 2
		}
		if reason := validateItemRow(row); reason != "" {
			skipped = append(skipped, SkippedRow{Row: rowNum, Reason: reason})
			continue
		}
		if seen[row.ItemID] {
			skipped = append(skipped, SkippedRow{Row: rowNum, Reason: fmt.Sprintf("duplicate ItemID %d", row.ItemID)})
			continue
		}
		seen[row.ItemID] = true

		item := Item{
			ItemID:       row.ItemID,
			ItemName:     row.ItemName,
			ItemSpecs:    row.ItemSpecs,
			Category:     row.Category,
			InitialStock: row.InitialStock,
			ActualStock:  row.InitialStock,
			QtyRemaining: row.InitialStock,
		}
		if row.ActualStock != nil {
			item.ActualStock = *row.ActualStock
		}
		if row.QtyRemaining != nil {
			item.QtyRemaining = *row.QtyRemaining
		}
		items = append(items, item)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.SaveItems(ctx, items); err != nil {
		return skipped, &PersistenceError{Op: "catalog replace", Err: err}
	}
	c.reset(items)

	c.log.Info().Int("imported", len(items)).Int("skipped", len(skipped)).Msg("catalog replaced")
	return skipped, nil
}

func validateItemRow(row ItemRow) string {
	if row.ItemID <= 0 {
		return "ItemID is missing or not a positive number"
	}
	if row.ItemName == "" {
		return "ItemName is missing"
	}
	if row.InitialStock < 0 {
		return "Stock must be a non-negative number"
	}
	return ""
}

// ApplyRecalculatedState overwrites only the two derived fields of one
// item and persists the change. Fails with ErrItemNotFound if the item
// does not exist.
func (c *InventoryCatalog) ApplyRecalculatedState(ctx context.Context, itemID, actualStock, qtyRemaining int) (Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[itemID]
	if !ok {
		return Item{}, ErrItemNotFound
	}

	c.items[i].ActualStock = actualStock
	c.items[i].QtyRemaining = qtyRemaining
	updated := c.items[i]

	if err := c.store.UpdateItemState(ctx, itemID, actualStock, qtyRemaining); err != nil {
		return updated, &PersistenceError{Op: "item state update", Err: err}
	}
	return updated, nil
}
