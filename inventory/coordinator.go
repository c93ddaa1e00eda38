/*
coordinator.go - The only writer path into the ledger

PURPOSE:
  Orchestrates a borrow or a staff settlement: validates the request
  against current derived state, builds the ledger entry, appends it,
  re-runs reconciliation over the item's full (now-updated) entry set,
  and writes the derived state back to the catalog.

STATE MACHINE PER BORROW:
  Open -> PartiallySettled -> FullySettled, driven by one running total
  of settled quantity shared across Returned, Used and Lost. A unit can
  only be settled once regardless of which disposition applies, so the
  cap check always sums all three actions against the borrow.

CONCURRENCY:
  All transactions are serialized behind one mutex - a single global
  transaction queue. Request rate is human-driven (one desk, one click
  at a time); a per-item lock table would buy nothing here. Each call
  runs to completion (append + recalculation + persistence) before the
  next begins, and the cap check re-reads the ledger total every time,
  so concurrent settlement attempts against the same borrow serialize
  correctly.

FAILURE SEMANTICS:
  Validation failures never touch the ledger or catalog. The only
  partial-failure window is between ledger append and catalog
  recalculation: once the append succeeds the transaction is committed
  for audit purposes, and a later failure is surfaced alongside the new
  entry so staff can reconcile manually. Ledger durability is
  prioritized over strict atomicity, deliberately and loudly.

SEE ALSO:
  - reconcile.go: The derivation invoked after every append
  - ledger.go:    Append and settlement-total queries
*/
package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// BorrowRequest is a student taking custody of Qty units of an item.
type BorrowRequest struct {
	UserID    int
	UserName  string
	UserSpecs string
	ItemID    int
	Qty       int
	Notes     string
}

// SettlementRequest is a staff member settling part of a prior borrow as
// Returned, Used or Lost.
//
// MarkShortfallLost is an explicit convenience policy: when set on a
// Returned action, the still-outstanding remainder of the borrow is
// recorded as a second Lost entry in the same operation. Off by default;
// staff who want three separate calls keep three separate calls.
type SettlementRequest struct {
	StaffUserID              int
	StaffUserName            string
	StaffUserSpecs           string
	OriginalBorrowActivityID int
	ItemID                   int
	Action                   Action
	Qty                      int
	Notes                    string
	MarkShortfallLost        bool
}

// TransactionResult is the outcome of a successful borrow or settlement:
// the new ledger entry (or entries) and the item's recalculated state.
type TransactionResult struct {
	Entry ActivityEntry

	// ShortfallEntry is the auto-appended Lost entry when
	// MarkShortfallLost applied. Nil otherwise.
	ShortfallEntry *ActivityEntry

	Item Item
}

// TransactionCoordinator validates and executes borrow and settlement
// requests. It is the only component that appends to the ledger.
type TransactionCoordinator struct {
	mu      sync.Mutex
	catalog *InventoryCatalog
	ledger  *ActivityLedger
	clock   Clock
	log     zerolog.Logger
}

// NewTransactionCoordinator wires the coordinator over a catalog and ledger.
func NewTransactionCoordinator(catalog *InventoryCatalog, ledger *ActivityLedger, log zerolog.Logger) *TransactionCoordinator {
	return &TransactionCoordinator{
		catalog: catalog,
		ledger:  ledger,
		clock:   realClock{},
		log:     log,
	}
}

// WithClock replaces the coordinator's time source. For tests.
func (tc *TransactionCoordinator) WithClock(c Clock) *TransactionCoordinator {
	tc.clock = c
	return tc
}

// RecordBorrow validates and executes a borrow. On success the Borrowed
// entry is in the ledger and the item's derived state is recalculated.
//
// A non-nil result can accompany a non-nil error: when the ledger append
// succeeded but persistence or recalculation failed afterwards, the
// entry is committed for audit purposes and the error describes what
// still needs attention.
func (tc *TransactionCoordinator) RecordBorrow(ctx context.Context, req BorrowRequest) (*TransactionResult, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	item, err := tc.catalog.GetByID(req.ItemID)
	if err != nil {
		return nil, err
	}
	if req.Qty <= 0 {
		return nil, &ValidationError{Field: "qty", Reason: "borrow quantity must be a positive number"}
	}
	if req.Qty > item.QtyRemaining {
		return nil, &InsufficientStockError{
			ItemID:    item.ItemID,
			Requested: req.Qty,
			Available: item.QtyRemaining,
		}
	}

	entry := ActivityEntry{
		Timestamp: tc.clock.Now(),
		Action:    ActionBorrowed,
		UserID:    req.UserID,
		UserName:  req.UserName,
		UserSpecs: req.UserSpecs,
		ItemID:    item.ItemID,
		ItemName:  item.ItemName,
		ItemSpecs: item.ItemSpecs,
		Qty:       req.Qty,
		Notes:     req.Notes,
	}

	return tc.commit(ctx, item, entry, nil)
}

// RecordSettlement validates and executes a staff settlement against a
// prior borrow. The cap check sums existing Returned+Used+Lost entries
// for the borrow from the full current ledger.
func (tc *TransactionCoordinator) RecordSettlement(ctx context.Context, req SettlementRequest) (*TransactionResult, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	item, err := tc.catalog.GetByID(req.ItemID)
	if err != nil {
		return nil, err
	}
	if !req.Action.IsSettlement() {
		return nil, &ValidationError{Field: "action", Reason: `action must be "Returned", "Used" or "Lost"`}
	}
	if req.Qty <= 0 {
		return nil, &ValidationError{Field: "qty", Reason: "processed quantity must be a positive number"}
	}

	borrow, err := tc.ledger.FindByID(req.OriginalBorrowActivityID)
	if err != nil || borrow.Action != ActionBorrowed || borrow.ItemID != item.ItemID {
		return nil, ErrBorrowNotFound
	}

	alreadySettled := tc.ledger.SettledQuantity(borrow.ActivityID)
	remaining := absQty(borrow.Qty) - alreadySettled
	if req.Qty > remaining {
		return nil, &OverSettlementError{
			BorrowActivityID: borrow.ActivityID,
			Requested:        req.Qty,
			Remaining:        remaining,
		}
	}

	borrowID := borrow.ActivityID
	entry := ActivityEntry{
		Timestamp:                tc.clock.Now(),
		Action:                   req.Action,
		UserID:                   req.StaffUserID,
		UserName:                 req.StaffUserName,
		UserSpecs:                req.StaffUserSpecs,
		ItemID:                   item.ItemID,
		ItemName:                 item.ItemName,
		ItemSpecs:                item.ItemSpecs,
		Qty:                      req.Qty,
		Notes:                    req.Notes,
		OriginalBorrowActivityID: &borrowID,
	}

	var shortfall *ActivityEntry
	if req.MarkShortfallLost && req.Action == ActionReturned {
		if gap := remaining - req.Qty; gap > 0 {
			shortfall = &ActivityEntry{
				Timestamp:                tc.clock.Now(),
				Action:                   ActionLost,
				UserID:                   req.StaffUserID,
				UserName:                 req.StaffUserName,
				UserSpecs:                req.StaffUserSpecs,
				ItemID:                   item.ItemID,
				ItemName:                 item.ItemName,
				ItemSpecs:                item.ItemSpecs,
				Qty:                      gap,
				Notes:                    "shortfall on return of borrow, auto-marked lost",
				OriginalBorrowActivityID: &borrowID,
			}
		}
	}

	return tc.commit(ctx, item, entry, shortfall)
}

// commit appends the entry (and optional shortfall entry), recalculates
// the item from its full updated entry set, and writes the derived state
// back to the catalog. Persistence failures after the in-memory append
// are collected and returned alongside the result.
func (tc *TransactionCoordinator) commit(ctx context.Context, item Item, entry ActivityEntry, shortfall *ActivityEntry) (*TransactionResult, error) {
	// Snapshot what the item will look like after this entry so the
	// audit field can be stamped before the append.
	projected := append(tc.ledger.EntriesForItem(item.ItemID), entry)
	state, notes := Reconcile(item.InitialStock, projected)
	tc.logClamps(item.ItemID, notes)
	entry.ItemQtyRemainingAfterThisAction = state.QtyRemaining

	var deferred error

	stored, err := tc.ledger.Append(ctx, entry)
	if err != nil {
		// In-memory append succeeded; keep going but surface it.
		deferred = err
	}
	result := &TransactionResult{Entry: stored}

	if shortfall != nil {
		projected = append(projected, *shortfall)
		state, notes = Reconcile(item.InitialStock, projected)
		tc.logClamps(item.ItemID, notes)
		shortfall.ItemQtyRemainingAfterThisAction = state.QtyRemaining

		storedShortfall, err := tc.ledger.Append(ctx, *shortfall)
		if err != nil && deferred == nil {
			deferred = err
		}
		result.ShortfallEntry = &storedShortfall
	}

	updated, err := tc.catalog.ApplyRecalculatedState(ctx, item.ItemID, state.ActualStock, state.QtyRemaining)
	if err != nil && deferred == nil {
		deferred = err
	}
	result.Item = updated

	tc.log.Info().
		Str("action", string(result.Entry.Action)).
		Int("activity_id", result.Entry.ActivityID).
		Int("item_id", item.ItemID).
		Int("qty", result.Entry.Qty).
		Int("qty_remaining", updated.QtyRemaining).
		Msg("transaction recorded")

	return result, deferred
}

func (tc *TransactionCoordinator) logClamps(itemID int, notes []ClampNote) {
	for _, n := range notes {
		tc.log.Warn().
			Int("item_id", itemID).
			Str("field", n.Field).
			Int("raw", n.Raw).
			Int("clamped", n.Clamped).
			Str("reason", n.Reason).
			Msg("data quality: derived value clamped")
	}
}

// BorrowStatus reports the settlement progress of one borrow.
func (tc *TransactionCoordinator) BorrowStatus(borrowActivityID int) (*BorrowStatus, error) {
	borrow, err := tc.ledger.FindByID(borrowActivityID)
	if err != nil || borrow.Action != ActionBorrowed {
		return nil, ErrBorrowNotFound
	}

	settled := tc.ledger.SettledQuantity(borrow.ActivityID)
	qty := absQty(borrow.Qty)
	return &BorrowStatus{
		Borrow:    borrow,
		Settled:   settled,
		Remaining: qty - settled,
		State:     StateOfBorrow(qty, settled),
	}, nil
}

// ReconcileItem re-derives and persists one item's stock state from the
// current ledger. Used after a catalog re-import to bring the derived
// fields back in line with surviving history.
func (tc *TransactionCoordinator) ReconcileItem(ctx context.Context, itemID int) (Item, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	item, err := tc.catalog.GetByID(itemID)
	if err != nil {
		return Item{}, err
	}

	state, notes := Reconcile(item.InitialStock, tc.ledger.EntriesForItem(itemID))
	tc.logClamps(itemID, notes)
	return tc.catalog.ApplyRecalculatedState(ctx, itemID, state.ActualStock, state.QtyRemaining)
}
