package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stockroom/inventory"
	"github.com/warp/stockroom/inventory/store"
)

func newCatalogOver(t *testing.T, mem *store.Memory) *inventory.InventoryCatalog {
	t.Helper()
	catalog, err := inventory.NewInventoryCatalog(context.Background(), mem, zerolog.Nop())
	require.NoError(t, err)
	return catalog
}

func itemRow(id int, name string, stock int) inventory.ItemRow {
	return inventory.ItemRow{ItemID: id, ItemName: name, InitialStock: stock}
}

// =============================================================================
// IMPORT / REPLACE
// =============================================================================

func TestCatalogReplaceAll_ValidRows_DerivedFieldsDefaultToInitial(t *testing.T) {
	catalog := newCatalogOver(t, store.NewMemory())

	skipped, err := catalog.ReplaceAll(context.Background(), []inventory.ItemRow{
		itemRow(1, "Beaker 250ml", 10),
		itemRow(2, "Tripod stand", 4),
	})
	require.NoError(t, err)
	assert.Empty(t, skipped)

	item, err := catalog.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, 10, item.InitialStock)
	assert.Equal(t, 10, item.ActualStock)
	assert.Equal(t, 10, item.QtyRemaining)
}

func TestCatalogReplaceAll_ExplicitDerivedFields_Preserved(t *testing.T) {
	// A re-import of a previously exported catalog carries the derived
	// fields; they must round-trip rather than reset to InitialStock.

	catalog := newCatalogOver(t, store.NewMemory())
	actual, remaining := 8, 5

	row := itemRow(1, "Beaker 250ml", 10)
	row.ActualStock = &actual
	row.QtyRemaining = &remaining

	_, err := catalog.ReplaceAll(context.Background(), []inventory.ItemRow{row})
	require.NoError(t, err)

	item, _ := catalog.GetByID(1)
	assert.Equal(t, 8, item.ActualStock)
	assert.Equal(t, 5, item.QtyRemaining)
}

func TestCatalogReplaceAll_InvalidRows_SkippedWithRowNumbers(t *testing.T) {
	// GIVEN: A mix of good and bad rows
	// THEN: Bad rows are skipped with 1-based spreadsheet row numbers
	//       (header = row 1, first data row = 2), good rows commit

	catalog := newCatalogOver(t, store.NewMemory())

	skipped, err := catalog.ReplaceAll(context.Background(), []inventory.ItemRow{
		itemRow(1, "Beaker 250ml", 10), // row 2, fine
		itemRow(0, "No ID", 3),         // row 3
		itemRow(2, "", 3),              // row 4
		itemRow(3, "Negative", -1),     // row 5
		itemRow(1, "Duplicate", 2),     // row 6
	})
	require.NoError(t, err)

	require.Len(t, skipped, 4)
	assert.Equal(t, 3, skipped[0].Row)
	assert.Equal(t, 4, skipped[1].Row)
	assert.Equal(t, 5, skipped[2].Row)
	assert.Equal(t, 6, skipped[3].Row)
	assert.Contains(t, skipped[3].Reason, "duplicate ItemID")

	assert.Len(t, catalog.GetAll(), 1)
}

func TestCatalogReplaceAll_StampedRows_SkipReportUsesSourceRows(t *testing.T) {
	// GIVEN: Rows stamped with their source spreadsheet rows, with a gap
	//        where the reader already dropped an unparseable row 3
	// THEN: The skip report names the row the user sees in the sheet,
	//       not the row's position in the surviving slice

	catalog := newCatalogOver(t, store.NewMemory())

	good := itemRow(1, "Beaker 250ml", 10)
	good.Row = 2
	dup := itemRow(1, "Duplicate", 2)
	dup.Row = 5 // slice index 1, so the old positional scheme said row 3

	skipped, err := catalog.ReplaceAll(context.Background(), []inventory.ItemRow{good, dup})
	require.NoError(t, err)

	require.Len(t, skipped, 1)
	assert.Equal(t, 5, skipped[0].Row)
	assert.Contains(t, skipped[0].Reason, "duplicate ItemID")
}

func TestCatalogReplaceAll_StoreFailure_KeepsOldCatalog(t *testing.T) {
	mem := store.NewMemory().Seed([]inventory.Item{beakers(10)}, nil, nil)
	catalog := newCatalogOver(t, mem)
	mem.SaveItemsErr = errors.New("disk full")

	_, err := catalog.ReplaceAll(context.Background(), []inventory.ItemRow{
		itemRow(9, "New thing", 1),
	})

	assert.ErrorIs(t, err, inventory.ErrPersistence)
	_, getErr := catalog.GetByID(1)
	assert.NoError(t, getErr, "failed replace must not clobber the loaded catalog")
}

// =============================================================================
// STATE UPDATES
// =============================================================================

func TestCatalogApplyRecalculatedState_TouchesOnlyDerivedFields(t *testing.T) {
	mem := store.NewMemory().Seed([]inventory.Item{beakers(10)}, nil, nil)
	catalog := newCatalogOver(t, mem)

	updated, err := catalog.ApplyRecalculatedState(context.Background(), 1, 7, 4)
	require.NoError(t, err)

	assert.Equal(t, 10, updated.InitialStock, "initial stock is immutable")
	assert.Equal(t, 7, updated.ActualStock)
	assert.Equal(t, 4, updated.QtyRemaining)
}

func TestCatalogApplyRecalculatedState_UnknownItem(t *testing.T) {
	catalog := newCatalogOver(t, store.NewMemory())

	_, err := catalog.ApplyRecalculatedState(context.Background(), 99, 1, 1)
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
}
