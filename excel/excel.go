/*
Package excel reads catalog and user imports from spreadsheets and
writes activity-log exports.

PURPOSE:
  The stockroom's data arrives and leaves as .xlsx files: staff maintain
  the item catalog and user roster in a spreadsheet, import them
  wholesale, and periodically export the activity ledger for records.

IMPORT CONTRACT:
  - First sheet only; first row is the header.
  - Columns are matched case-insensitively against a documented alias
    table (see columns.go).
  - Rows are validated independently: a malformed row is skipped with a
    1-based row-number reason (header = row 1), the rest of the file
    still imports. Parsing stops nothing short of an unreadable file or
    a missing required column.
  - Stock seeds InitialStock, ActualStock and QtyRemaining identically.

EXPORT CONTRACT:
  One row per ledger entry in a fixed column order, sheet "ActivityLog".
  Callers choose what to export (full history or settlements only).

SEE ALSO:
  - inventory/catalog.go: ReplaceAll consumes the imported rows
  - inventory/users.go:   Role/passcode validation shared with imports
*/
package excel

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/warp/stockroom/inventory"
)

// ErrNoData is returned when an export is asked to write zero entries.
var ErrNoData = errors.New("no activity data to export")

// =============================================================================
// INVENTORY IMPORT
// =============================================================================

// ImportInventory parses an item catalog spreadsheet into import rows.
// Structural row problems (unparseable ID, bad stock number) are
// reported here; the catalog's ReplaceAll revalidates domain rules.
func ImportInventory(path string) ([]inventory.ItemRow, []inventory.SkippedRow, error) {
	rows, err := sheetRows(path)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	positions, missing := resolveColumns(rows[0], itemColumns)
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required columns: %v", missing)
	}

	var (
		items   []inventory.ItemRow
		skipped []inventory.SkippedRow
	)
	for i, row := range rows[1:] {
		rowNum := i + 2

		rawID := cell(row, positions, "ItemID")
		rawStock := cell(row, positions, "Stock")

		if rawID == "" {
			skipped = append(skipped, inventory.SkippedRow{Row: rowNum, Reason: "ItemID is missing"})
			continue
		}
		id, err := strconv.Atoi(rawID)
		if err != nil {
			skipped = append(skipped, inventory.SkippedRow{Row: rowNum, Reason: "ItemID must be a number"})
			continue
		}

		name := cell(row, positions, "ItemName")
		if name == "" {
			skipped = append(skipped, inventory.SkippedRow{Row: rowNum, Reason: "ItemName is missing"})
			continue
		}

		if rawStock == "" {
			skipped = append(skipped, inventory.SkippedRow{Row: rowNum, Reason: "Stock is missing"})
			continue
		}
		stock, err := strconv.Atoi(rawStock)
		if err != nil || stock < 0 {
			skipped = append(skipped, inventory.SkippedRow{Row: rowNum, Reason: "Stock must be a non-negative number"})
			continue
		}

		items = append(items, inventory.ItemRow{
			Row:          rowNum,
			ItemID:       id,
			ItemName:     name,
			ItemSpecs:    cell(row, positions, "ItemSpecs"),
			Category:     cell(row, positions, "Category"),
			InitialStock: stock,
		})
	}
	return items, skipped, nil
}

// =============================================================================
// USER IMPORT
// =============================================================================

// ImportUsers parses a user roster spreadsheet into import rows. Role
// normalization and passcode format checks happen in the directory's
// ReplaceAll so the rules hold for every import path, not just Excel.
func ImportUsers(path string) ([]inventory.UserRow, []inventory.SkippedRow, error) {
	rows, err := sheetRows(path)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	positions, missing := resolveColumns(rows[0], userColumns)
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required columns: %v", missing)
	}

	var (
		users   []inventory.UserRow
		skipped []inventory.SkippedRow
	)
	for i, row := range rows[1:] {
		rowNum := i + 2

		rawID := cell(row, positions, "UserID")
		if rawID == "" {
			skipped = append(skipped, inventory.SkippedRow{Row: rowNum, Reason: "UserID is missing"})
			continue
		}
		id, err := strconv.Atoi(rawID)
		if err != nil {
			skipped = append(skipped, inventory.SkippedRow{Row: rowNum, Reason: "UserID must be a number"})
			continue
		}

		users = append(users, inventory.UserRow{
			Row:       rowNum,
			UserID:    id,
			UserName:  cell(row, positions, "UserName"),
			Role:      cell(row, positions, "Role"),
			UserSpecs: cell(row, positions, "UserSpecs"),
			Passcode:  cell(row, positions, "Passcode"),
		})
	}
	return users, skipped, nil
}

// =============================================================================
// ACTIVITY EXPORT
// =============================================================================

var exportHeader = []any{
	"ActivityID", "Timestamp", "Action", "ItemID", "ItemName", "ItemSpecs",
	"Qty", "UserID", "UserName", "UserSpecs", "Notes",
	"ItemQtyRemainingAfterThisAction", "OriginalBorrowActivityID",
}

// ExportActivityLog writes the given ledger entries to an .xlsx file,
// one row per entry, on a sheet named "ActivityLog". Fails with
// ErrNoData when there is nothing to write.
func ExportActivityLog(path string, entries []inventory.ActivityEntry) error {
	if len(entries) == 0 {
		return ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "ActivityLog"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, e := range entries {
		borrowRef := ""
		if e.OriginalBorrowActivityID != nil {
			borrowRef = strconv.Itoa(*e.OriginalBorrowActivityID)
		}
		row := []any{
			e.ActivityID,
			e.Timestamp.Format("2006-01-02 15:04:05"),
			string(e.Action),
			e.ItemID,
			e.ItemName,
			e.ItemSpecs,
			absInt(e.Qty),
			e.UserID,
			e.UserName,
			e.UserSpecs,
			e.Notes,
			e.ItemQtyRemainingAfterThisAction,
			borrowRef,
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// FilterSettlements keeps only Returned/Used/Lost entries, the subset
// staff export for record-keeping.
func FilterSettlements(entries []inventory.ActivityEntry) []inventory.ActivityEntry {
	var out []inventory.ActivityEntry
	for _, e := range entries {
		if e.Action.IsSettlement() {
			out = append(out, e)
		}
	}
	return out
}

func sheetRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func absInt(q int) int {
	if q < 0 {
		return -q
	}
	return q
}
