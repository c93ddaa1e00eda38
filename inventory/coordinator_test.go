package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stockroom/inventory"
	"github.com/warp/stockroom/inventory/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestCoordinator(t *testing.T, items ...inventory.Item) (*inventory.TransactionCoordinator, *inventory.ActivityLedger, *inventory.InventoryCatalog, *store.Memory) {
	t.Helper()

	mem := store.NewMemory().Seed(items, nil, nil)
	log := zerolog.Nop()
	ctx := context.Background()

	ledger, err := inventory.NewActivityLedger(ctx, mem, log)
	require.NoError(t, err)
	catalog, err := inventory.NewInventoryCatalog(ctx, mem, log)
	require.NoError(t, err)

	tc := inventory.NewTransactionCoordinator(catalog, ledger, log).
		WithClock(fixedClock{t: time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)})
	return tc, ledger, catalog, mem
}

func beakers(qty int) inventory.Item {
	return inventory.Item{
		ItemID:       1,
		ItemName:     "Beaker 250ml",
		ItemSpecs:    "borosilicate",
		Category:     "Glassware",
		InitialStock: qty,
		ActualStock:  qty,
		QtyRemaining: qty,
	}
}

func borrow(tc *inventory.TransactionCoordinator, qty int) (*inventory.TransactionResult, error) {
	return tc.RecordBorrow(context.Background(), inventory.BorrowRequest{
		UserID: 101, UserName: "Dana", ItemID: 1, Qty: qty,
	})
}

// =============================================================================
// BORROW TESTS
// =============================================================================

func TestRecordBorrow_HappyPath(t *testing.T) {
	// GIVEN: 10 beakers on the shelf
	// WHEN: A student borrows 4
	// THEN: Entry appended, QtyRemaining drops to 6, ActualStock untouched

	tc, ledger, _, _ := newTestCoordinator(t, beakers(10))

	result, err := borrow(tc, 4)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Entry.ActivityID)
	assert.Equal(t, inventory.ActionBorrowed, result.Entry.Action)
	assert.Equal(t, "Beaker 250ml", result.Entry.ItemName, "item identity is denormalized onto the entry")
	assert.Equal(t, 6, result.Entry.ItemQtyRemainingAfterThisAction)
	assert.Nil(t, result.Entry.OriginalBorrowActivityID)

	assert.Equal(t, 10, result.Item.ActualStock)
	assert.Equal(t, 6, result.Item.QtyRemaining)
	assert.Equal(t, 1, ledger.Len())
}

func TestRecordBorrow_InsufficientStock_NothingMutates(t *testing.T) {
	// GIVEN: Only 3 remaining
	// WHEN: Borrowing 4
	// THEN: InsufficientStockError with the available quantity, and
	//       neither ledger nor catalog changed

	tc, ledger, catalog, _ := newTestCoordinator(t, beakers(3))

	_, err := borrow(tc, 4)

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)
	assert.True(t, inventory.IsClientError(err))

	assert.Equal(t, 0, ledger.Len(), "rejected borrow must not append")
	item, _ := catalog.GetByID(1)
	assert.Equal(t, 3, item.QtyRemaining)
}

func TestRecordBorrow_ExactRemaining_Allowed(t *testing.T) {
	tc, _, _, _ := newTestCoordinator(t, beakers(3))

	result, err := borrow(tc, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Item.QtyRemaining)
}

func TestRecordBorrow_NonPositiveQty_Rejected(t *testing.T) {
	tc, ledger, _, _ := newTestCoordinator(t, beakers(10))

	for _, qty := range []int{0, -2} {
		_, err := borrow(tc, qty)
		assert.ErrorIs(t, err, inventory.ErrValidation, "qty %d", qty)
	}
	assert.Equal(t, 0, ledger.Len())
}

func TestRecordBorrow_UnknownItem_NotFound(t *testing.T) {
	tc, _, _, _ := newTestCoordinator(t, beakers(10))

	_, err := tc.RecordBorrow(context.Background(), inventory.BorrowRequest{
		UserID: 101, ItemID: 999, Qty: 1,
	})
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
	assert.True(t, inventory.IsNotFound(err))
}

// =============================================================================
// SETTLEMENT TESTS
// =============================================================================

func settle(tc *inventory.TransactionCoordinator, borrowID int, action inventory.Action, qty int) (*inventory.TransactionResult, error) {
	return tc.RecordSettlement(context.Background(), inventory.SettlementRequest{
		StaffUserID: 201, StaffUserName: "Morgan",
		OriginalBorrowActivityID: borrowID,
		ItemID:                   1,
		Action:                   action,
		Qty:                      qty,
	})
}

func TestRecordSettlement_FullReturn_ClosesBorrow(t *testing.T) {
	tc, _, _, _ := newTestCoordinator(t, beakers(10))

	b, err := borrow(tc, 4)
	require.NoError(t, err)

	result, err := settle(tc, b.Entry.ActivityID, inventory.ActionReturned, 4)
	require.NoError(t, err)

	require.NotNil(t, result.Entry.OriginalBorrowActivityID)
	assert.Equal(t, b.Entry.ActivityID, *result.Entry.OriginalBorrowActivityID)
	assert.Equal(t, 10, result.Item.QtyRemaining)

	status, err := tc.BorrowStatus(b.Entry.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, inventory.BorrowFullySettled, status.State)
	assert.Equal(t, 0, status.Remaining)
}

func TestRecordSettlement_MixedActions_ShareOneCap(t *testing.T) {
	// GIVEN: Borrow of 5; 2 returned and 2 used
	// WHEN: Staff tries to mark 2 lost
	// THEN: Rejected: only 1 of the borrow is still unaccounted for

	tc, _, _, _ := newTestCoordinator(t, beakers(10))

	b, err := borrow(tc, 5)
	require.NoError(t, err)

	_, err = settle(tc, b.Entry.ActivityID, inventory.ActionReturned, 2)
	require.NoError(t, err)
	_, err = settle(tc, b.Entry.ActivityID, inventory.ActionUsed, 2)
	require.NoError(t, err)

	_, err = settle(tc, b.Entry.ActivityID, inventory.ActionLost, 2)

	var overErr *inventory.OverSettlementError
	require.ErrorAs(t, err, &overErr)
	assert.Equal(t, 1, overErr.Remaining)
	assert.Equal(t, 2, overErr.Requested)

	// The final unit still settles fine.
	_, err = settle(tc, b.Entry.ActivityID, inventory.ActionLost, 1)
	require.NoError(t, err)

	status, _ := tc.BorrowStatus(b.Entry.ActivityID)
	assert.Equal(t, inventory.BorrowFullySettled, status.State)
}

func TestRecordSettlement_UsedAndLost_ReduceActualStock(t *testing.T) {
	tc, _, _, _ := newTestCoordinator(t, beakers(10))

	b, err := borrow(tc, 5)
	require.NoError(t, err)

	result, err := settle(tc, b.Entry.ActivityID, inventory.ActionUsed, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, result.Item.ActualStock)

	result, err = settle(tc, b.Entry.ActivityID, inventory.ActionLost, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, result.Item.ActualStock)
	assert.Equal(t, 2, result.Item.QtyRemaining, "only returns reduce the net-borrowed count")
}

func TestRecordSettlement_AgainstNonBorrowEntry_NotFound(t *testing.T) {
	// A settlement's activity ID must reference a Borrowed entry, not
	// another settlement.

	tc, _, _, _ := newTestCoordinator(t, beakers(10))

	b, err := borrow(tc, 4)
	require.NoError(t, err)
	ret, err := settle(tc, b.Entry.ActivityID, inventory.ActionReturned, 2)
	require.NoError(t, err)

	_, err = settle(tc, ret.Entry.ActivityID, inventory.ActionReturned, 1)
	assert.ErrorIs(t, err, inventory.ErrBorrowNotFound)
}

func TestRecordSettlement_BorrowedAction_Rejected(t *testing.T) {
	tc, _, _, _ := newTestCoordinator(t, beakers(10))

	b, err := borrow(tc, 4)
	require.NoError(t, err)

	_, err = settle(tc, b.Entry.ActivityID, inventory.ActionBorrowed, 1)
	assert.ErrorIs(t, err, inventory.ErrValidation)
}

func TestRecordSettlement_PartialState_Reported(t *testing.T) {
	tc, _, _, _ := newTestCoordinator(t, beakers(10))

	b, err := borrow(tc, 4)
	require.NoError(t, err)
	_, err = settle(tc, b.Entry.ActivityID, inventory.ActionReturned, 1)
	require.NoError(t, err)

	status, err := tc.BorrowStatus(b.Entry.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, inventory.BorrowPartiallySettled, status.State)
	assert.Equal(t, 1, status.Settled)
	assert.Equal(t, 3, status.Remaining)
}

// =============================================================================
// SHORTFALL POLICY
// =============================================================================

func TestRecordSettlement_MarkShortfallLost_AppendsLostEntry(t *testing.T) {
	// GIVEN: Borrow of 5, staff receives 3 back and flags the rest lost
	// THEN: One Returned(3) and one Lost(2) entry, borrow fully settled,
	//       actual stock down by the 2 lost

	tc, ledger, _, _ := newTestCoordinator(t, beakers(10))

	b, err := borrow(tc, 5)
	require.NoError(t, err)

	result, err := tc.RecordSettlement(context.Background(), inventory.SettlementRequest{
		StaffUserID:              201,
		OriginalBorrowActivityID: b.Entry.ActivityID,
		ItemID:                   1,
		Action:                   inventory.ActionReturned,
		Qty:                      3,
		MarkShortfallLost:        true,
	})
	require.NoError(t, err)

	require.NotNil(t, result.ShortfallEntry)
	assert.Equal(t, inventory.ActionLost, result.ShortfallEntry.Action)
	assert.Equal(t, 2, result.ShortfallEntry.Qty)
	assert.True(t, result.ShortfallEntry.SettlesBorrow(b.Entry.ActivityID))

	assert.Equal(t, 8, result.Item.ActualStock)
	assert.Equal(t, 6, result.Item.QtyRemaining, "the 2 lost stay on the net-borrowed count")
	assert.Equal(t, 3, ledger.Len())

	status, _ := tc.BorrowStatus(b.Entry.ActivityID)
	assert.Equal(t, inventory.BorrowFullySettled, status.State)
}

func TestRecordSettlement_MarkShortfallLost_NoGap_NoExtraEntry(t *testing.T) {
	tc, ledger, _, _ := newTestCoordinator(t, beakers(10))

	b, err := borrow(tc, 4)
	require.NoError(t, err)

	result, err := tc.RecordSettlement(context.Background(), inventory.SettlementRequest{
		StaffUserID:              201,
		OriginalBorrowActivityID: b.Entry.ActivityID,
		ItemID:                   1,
		Action:                   inventory.ActionReturned,
		Qty:                      4,
		MarkShortfallLost:        true,
	})
	require.NoError(t, err)
	assert.Nil(t, result.ShortfallEntry)
	assert.Equal(t, 2, ledger.Len())
}

// =============================================================================
// PERSISTENCE FAILURE
// =============================================================================

func TestRecordBorrow_PersistenceFails_EntryStillCommitted(t *testing.T) {
	// GIVEN: The backing store rejects writes
	// WHEN: A borrow passes validation
	// THEN: The entry lives in the in-memory ledger for audit, and the
	//       caller gets both the result and a persistence error

	tc, ledger, _, mem := newTestCoordinator(t, beakers(10))
	mem.AppendErr = errors.New("disk full")

	result, err := borrow(tc, 4)

	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrPersistence)
	require.NotNil(t, result, "committed entry must be returned alongside the error")
	assert.Equal(t, 1, result.Entry.ActivityID)

	assert.Equal(t, 1, ledger.Len(), "in-memory append survives the store failure")
	assert.Empty(t, mem.Entries(), "store saw nothing durable")
}

// =============================================================================
// AUDIT FIELD
// =============================================================================

func TestTransactions_AuditSnapshotTracksRemaining(t *testing.T) {
	tc, ledger, _, _ := newTestCoordinator(t, beakers(10))

	b, err := borrow(tc, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, b.Entry.ItemQtyRemainingAfterThisAction)

	r1, err := settle(tc, b.Entry.ActivityID, inventory.ActionReturned, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, r1.Entry.ItemQtyRemainingAfterThisAction)

	r2, err := settle(tc, b.Entry.ActivityID, inventory.ActionLost, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, r2.Entry.ItemQtyRemainingAfterThisAction,
		"3 lost: actual drops to 7, net borrowed stays at 3")

	entries := ledger.GetAll()
	require.Len(t, entries, 3)
	for i, want := range []int{6, 7, 4} {
		assert.Equal(t, want, entries[i].ItemQtyRemainingAfterThisAction, "entry %d", i)
	}
}
