package excel_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/stockroom/excel"
	"github.com/warp/stockroom/inventory"
)

// writeSheet builds a throwaway workbook whose first sheet holds the
// given rows.
func writeSheet(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, addr, &rows[i]))
	}

	path := filepath.Join(t.TempDir(), "import.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// =============================================================================
// INVENTORY IMPORT
// =============================================================================

func TestImportInventory_AliasedHeaders(t *testing.T) {
	// GIVEN: A spreadsheet using the common alias spellings
	// THEN: Columns resolve case-insensitively and rows parse

	path := writeSheet(t, [][]any{
		{"item id", "Name", "SPECS", "category", "Initial Stock"},
		{1, "Beaker 250ml", "borosilicate", "Glassware", 10},
		{2, "Tripod stand", "", "Hardware", 4},
	})

	items, skipped, err := excel.ImportInventory(path)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, items, 2)

	assert.Equal(t, 1, items[0].ItemID)
	assert.Equal(t, 2, items[0].Row, "source spreadsheet row travels with the parsed row")
	assert.Equal(t, "Beaker 250ml", items[0].ItemName)
	assert.Equal(t, "borosilicate", items[0].ItemSpecs)
	assert.Equal(t, 10, items[0].InitialStock)
}

func TestImportInventory_BadRowsSkippedWithSpreadsheetRowNumbers(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"ItemID", "ItemName", "Stock"},
		{1, "Beaker 250ml", 10},  // row 2
		{"", "No id", 3},         // row 3
		{"abc", "Bad id", 3},     // row 4
		{3, "", 3},               // row 5
		{4, "Bad stock", "lots"}, // row 6
		{5, "Negative", -2},      // row 7
	})

	items, skipped, err := excel.ImportInventory(path)
	require.NoError(t, err)

	require.Len(t, items, 1)
	require.Len(t, skipped, 5)
	for i, wantRow := range []int{3, 4, 5, 6, 7} {
		assert.Equal(t, wantRow, skipped[i].Row)
		assert.NotEmpty(t, skipped[i].Reason)
	}
}

func TestImportInventory_MissingRequiredColumn_Fails(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"ItemID", "Specs"}, // no name, no stock
		{1, "whatever"},
	})

	_, _, err := excel.ImportInventory(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
}

func TestImportInventory_UnreadableFile_Fails(t *testing.T) {
	_, _, err := excel.ImportInventory(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}

// =============================================================================
// USER IMPORT
// =============================================================================

func TestImportUsers_ParsesRowsVerbatim(t *testing.T) {
	// Role normalization and passcode rules live in the user directory;
	// the reader only enforces spreadsheet structure.

	path := writeSheet(t, [][]any{
		{"UserID", "Name", "Role", "Specs", "PIN"},
		{1, "Dana", "student", "Year 11", "0412"},
		{"", "Missing id", "Staff", "", "ab12CD"}, // row 3, skipped
		{2, "Morgan", "Staff", "", "ab12CD"},
	})

	users, skipped, err := excel.ImportUsers(path)
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, "Dana", users[0].UserName)
	assert.Equal(t, "student", users[0].Role, "raw role text passes through")
	assert.Equal(t, "0412", users[0].Passcode)

	require.Len(t, skipped, 1)
	assert.Equal(t, 3, skipped[0].Row)
}

// =============================================================================
// ACTIVITY EXPORT
// =============================================================================

func TestExportActivityLog_WritesOneRowPerEntry(t *testing.T) {
	borrowID := 1
	entries := []inventory.ActivityEntry{
		{
			ActivityID: 1,
			Timestamp:  time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
			Action:     inventory.ActionBorrowed,
			UserID:     101, UserName: "Dana",
			ItemID: 1, ItemName: "Beaker 250ml",
			Qty:                             4,
			ItemQtyRemainingAfterThisAction: 6,
		},
		{
			ActivityID: 2,
			Timestamp:  time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC),
			Action:     inventory.ActionReturned,
			UserID:     201, UserName: "Morgan",
			ItemID: 1, ItemName: "Beaker 250ml",
			Qty:                             4,
			OriginalBorrowActivityID:        &borrowID,
			ItemQtyRemainingAfterThisAction: 10,
		},
	}

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, excel.ExportActivityLog(path, entries))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("ActivityLog")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per entry")

	assert.Equal(t, "ActivityID", rows[0][0])
	assert.Equal(t, "OriginalBorrowActivityID", rows[0][12])

	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "Borrowed", rows[1][2])
	assert.Equal(t, "Dana", rows[1][8])

	assert.Equal(t, "Returned", rows[2][2])
	assert.Equal(t, "1", rows[2][12], "settlement rows carry the borrow reference")
}

func TestExportActivityLog_NoEntries_Fails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	err := excel.ExportActivityLog(path, nil)
	assert.ErrorIs(t, err, excel.ErrNoData)
}

func TestFilterSettlements(t *testing.T) {
	borrowID := 1
	entries := []inventory.ActivityEntry{
		{ActivityID: 1, Action: inventory.ActionBorrowed},
		{ActivityID: 2, Action: inventory.ActionReturned, OriginalBorrowActivityID: &borrowID},
		{ActivityID: 3, Action: inventory.ActionLost, OriginalBorrowActivityID: &borrowID},
	}

	got := excel.FilterSettlements(entries)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].ActivityID)
	assert.Equal(t, 3, got[1].ActivityID)
}
