/*
reconcile.go - Derivation of stock figures from the activity ledger

PURPOSE:
  The single place where an item's ActualStock and QtyRemaining are
  computed. Pure and deterministic: same initial stock + same entries in,
  same numbers out. No hidden state, no side effects.

THE ALGORITHM:
  totalUsedOrLost = sum(Qty where Action in {Used, Lost})
  actualStock     = max(0, initialStock - totalUsedOrLost)

  netBorrowed  = sum(Qty where Borrowed) - sum(Qty where Returned)
  qtyRemaining = clamp(actualStock - netBorrowed, 0, actualStock)

WHY FULL REPLAY?
  Recomputing from the complete per-item history on every transaction,
  instead of incrementally mutating counters, means the derived numbers
  can never drift from the ledger: no lost updates, no double-decrements,
  no crash-mid-mutation inconsistency. The O(entries-for-item) cost is
  irrelevant at stockroom scale.

CLAMP POLICY:
  If anomalous data pushes a raw value outside its range (a duplicate
  return, more consumed than ever existed), the value is clamped rather
  than rejected, and the observation is reported back so the caller can
  log a data-quality warning. A sane-looking number beats a halted desk.
*/
package inventory

// DerivedState is the result of reconciling one item against its entries.
type DerivedState struct {
	ActualStock  int
	QtyRemaining int
}

// ClampNote records a raw derived value that fell outside its valid
// range and was clamped. Non-fatal; callers log these as data-quality
// warnings and continue with the clamped state.
type ClampNote struct {
	Field   string
	Raw     int
	Clamped int
	Reason  string
}

// Reconcile derives the current stock state of one item from its initial
// stock and every ledger entry referencing it. Entries for other items
// must be filtered out by the caller (see ActivityLedger.EntriesForItem).
//
// Entry order does not affect the result: the derivation sums totals per
// action, so replays and out-of-order histories reconcile identically.
func Reconcile(initialStock int, entries []ActivityEntry) (DerivedState, []ClampNote) {
	var notes []ClampNote

	var usedOrLost, borrowed, returned int
	for _, e := range entries {
		qty := absQty(e.Qty)
		switch e.Action {
		case ActionUsed, ActionLost:
			usedOrLost += qty
		case ActionBorrowed:
			borrowed += qty
		case ActionReturned:
			returned += qty
		}
	}

	actual := initialStock - usedOrLost
	if actual < 0 {
		notes = append(notes, ClampNote{
			Field:   "ActualStock",
			Raw:     actual,
			Clamped: 0,
			Reason:  "used/lost total exceeds initial stock",
		})
		actual = 0
	}

	remaining := actual - (borrowed - returned)
	switch {
	case remaining < 0:
		notes = append(notes, ClampNote{
			Field:   "QtyRemaining",
			Raw:     remaining,
			Clamped: 0,
			Reason:  "outstanding borrows exceed actual stock",
		})
		remaining = 0
	case remaining > actual:
		notes = append(notes, ClampNote{
			Field:   "QtyRemaining",
			Raw:     remaining,
			Clamped: actual,
			Reason:  "returned total exceeds borrowed total",
		})
		remaining = actual
	}

	return DerivedState{ActualStock: actual, QtyRemaining: remaining}, notes
}

// Qty is stored positive, but imported histories have carried signed
// values before. Summing magnitudes keeps the derivation stable either way.
func absQty(q int) int {
	if q < 0 {
		return -q
	}
	return q
}
