/*
Package inventory is the core of the stockroom lending tracker.

PURPOSE:
  Tracks physical items lent out of a single stockroom. Students borrow
  items; staff settle each borrow as Returned, Used, or Lost. Every
  transaction is recorded in an append-only activity ledger, and the
  per-item stock figures shown to users are always recomputed from that
  ledger - there is no free-standing mutable counter that can drift.

KEY CONCEPTS IN THIS FILE (types.go):
  - Item: catalog record with static fields (name, specs, initial stock)
    and derived fields (actual stock, quantity remaining)
  - ActivityEntry: an immutable ledger record of one transaction
  - Action: the closed set Borrowed | Returned | Used | Lost
  - User: a student or staff member from the user collection

TWO DERIVED NUMBERS:
  ActualStock   "how many physical units still exist" - initial stock
                minus everything consumed or lost, regardless of custody.
  QtyRemaining  "how many units are free to lend right now" - actual
                stock minus units currently checked out.

SEE ALSO:
  - reconcile.go: Derivation of the two numbers from the ledger
  - ledger.go:    Append-only activity ledger
  - catalog.go:   Item catalog holding the derived fields
  - coordinator.go: The only writer path into the ledger
*/
package inventory

import "time"

// =============================================================================
// ACTION - Closed set of ledger actions
// =============================================================================

type Action string

const (
	ActionBorrowed Action = "Borrowed"
	ActionReturned Action = "Returned"
	ActionUsed     Action = "Used"
	ActionLost     Action = "Lost"
)

// IsSettlement reports whether the action settles a prior borrow.
// Returned, Used and Lost all count against the same borrow cap.
func (a Action) IsSettlement() bool {
	return a == ActionReturned || a == ActionUsed || a == ActionLost
}

// Valid reports whether the action is one of the four known values.
func (a Action) Valid() bool {
	return a == ActionBorrowed || a.IsSettlement()
}

// =============================================================================
// ITEM - Catalog record
// =============================================================================

// Item is a catalog record. InitialStock is set at import time and
// immutable thereafter; ActualStock and QtyRemaining are derived from the
// activity ledger and overwritten on every recalculation.
//
// INVARIANTS (after reconciliation):
//	0 <= ActualStock <= InitialStock
//	0 <= QtyRemaining <= ActualStock
type Item struct {
	ItemID       int    `json:"ItemID"`
	ItemName     string `json:"ItemName"`
	ItemSpecs    string `json:"ItemSpecs"`
	Category     string `json:"Category"`
	InitialStock int    `json:"InitialStock"`
	ActualStock  int    `json:"ActualStock"`
	QtyRemaining int    `json:"QtyRemaining"`
}

// ItemRow is one incoming row of a catalog import. ActualStock and
// QtyRemaining are optional; when absent both default to InitialStock.
//
// Row is the 1-based source spreadsheet row (header = row 1) carried
// through so validation skips report the row the user actually sees,
// even after the reader has dropped unparseable rows. Zero for rows
// that did not come from a spreadsheet.
type ItemRow struct {
	Row          int
	ItemID       int
	ItemName     string
	ItemSpecs    string
	Category     string
	InitialStock int
	ActualStock  *int
	QtyRemaining *int
}

// =============================================================================
// ACTIVITY ENTRY - Immutable ledger record
// =============================================================================

// ActivityEntry records one transaction. Entries are never mutated or
// deleted once appended; the JSON field names match the persisted
// activity collection.
//
// Item identity (name, specs) is denormalized onto the entry so history
// stays readable even if the catalog is re-imported later.
//
// Qty is always stored positive; its direction is implied by Action.
// OriginalBorrowActivityID is set only on settlement entries and points
// at the Borrowed entry being settled.
type ActivityEntry struct {
	ActivityID int       `json:"ActivityID"`
	Timestamp  time.Time `json:"Timestamp"`
	Action     Action    `json:"Action"`
	UserID     int       `json:"UserID"`
	UserName   string    `json:"UserName"`
	UserSpecs  string    `json:"UserSpecs"`
	ItemID     int       `json:"ItemID"`
	ItemName   string    `json:"ItemName"`
	ItemSpecs  string    `json:"ItemSpecs"`
	Qty        int       `json:"Qty"`
	Notes      string    `json:"Notes"`

	// OriginalBorrowActivityID references the Borrowed entry this
	// settlement applies to. Nil on Borrowed entries.
	OriginalBorrowActivityID *int `json:"originalBorrowActivityID,omitempty"`

	// ItemQtyRemainingAfterThisAction snapshots the item's QtyRemaining
	// immediately after this entry was applied. Audit convenience only;
	// reconciliation never reads it.
	ItemQtyRemainingAfterThisAction int `json:"ItemQtyRemainingAfterThisAction"`
}

// SettlesBorrow reports whether the entry settles the given borrow.
func (e ActivityEntry) SettlesBorrow(borrowActivityID int) bool {
	return e.Action.IsSettlement() &&
		e.OriginalBorrowActivityID != nil &&
		*e.OriginalBorrowActivityID == borrowActivityID
}

// =============================================================================
// BORROW STATE - Lifecycle of a single borrow
// =============================================================================

type BorrowState string

const (
	BorrowOpen             BorrowState = "Open"
	BorrowPartiallySettled BorrowState = "PartiallySettled"
	BorrowFullySettled     BorrowState = "FullySettled"
)

// StateOfBorrow derives the lifecycle state from the borrowed quantity
// and the combined settled total (Returned + Used + Lost).
func StateOfBorrow(borrowedQty, settledQty int) BorrowState {
	switch {
	case settledQty <= 0:
		return BorrowOpen
	case settledQty < borrowedQty:
		return BorrowPartiallySettled
	default:
		return BorrowFullySettled
	}
}

// BorrowStatus summarizes one borrow and its settlement progress.
type BorrowStatus struct {
	Borrow    ActivityEntry
	Settled   int
	Remaining int
	State     BorrowState
}

// =============================================================================
// USER - Actor from the user collection
// =============================================================================

type Role string

const (
	RoleStudent Role = "Student"
	RoleStaff   Role = "Staff"
)

// User is a record from the user collection. Consumed read-only by login;
// replaced wholesale on import.
type User struct {
	UserID    int    `json:"UserID"`
	UserName  string `json:"UserName"`
	Role      Role   `json:"Role"`
	UserSpecs string `json:"UserSpecs"`
	Passcode  string `json:"Passcode"`
}

// UserRow is one incoming row of a user import, before role
// normalization and passcode validation. Row carries the source
// spreadsheet row, as on ItemRow.
type UserRow struct {
	Row       int
	UserID    int
	UserName  string
	Role      string
	UserSpecs string
	Passcode  string
}
