/*
dto.go - Request and response shapes for the HTTP API

PURPOSE:
  Keeps the wire format in one place. Domain types from the inventory
  package carry their own JSON tags matching the persisted layout, so
  most responses embed them directly; the structs here exist for
  request parsing and for envelopes the domain does not know about.

SEE ALSO:
  - handlers.go: where these are consumed
*/
package api

import "github.com/warp/stockroom/inventory"

// =============================================================================
// REQUESTS
// =============================================================================

// LoginRequest carries the typed passcode.
type LoginRequest struct {
	Passcode string `json:"passcode"`
}

// BorrowRequestDTO creates a Borrowed entry.
type BorrowRequestDTO struct {
	UserID    int    `json:"userId"`
	UserName  string `json:"userName"`
	UserSpecs string `json:"userSpecs"`
	ItemID    int    `json:"itemId"`
	Qty       int    `json:"qty"`
	Notes     string `json:"notes"`
}

// SettlementRequestDTO settles part of a prior borrow.
type SettlementRequestDTO struct {
	StaffUserID              int    `json:"staffUserId"`
	StaffUserName            string `json:"staffUserName"`
	StaffUserSpecs           string `json:"staffUserSpecs"`
	OriginalBorrowActivityID int    `json:"originalBorrowActivityId"`
	ItemID                   int    `json:"itemId"`
	Action                   string `json:"action"`
	Qty                      int    `json:"qty"`
	Notes                    string `json:"notes"`
	MarkShortfallLost        bool   `json:"markShortfallLost"`
}

// ImportRequest points at a server-local spreadsheet. The terminal UI
// runs on the same machine as the server, so uploads are just paths.
type ImportRequest struct {
	Path string `json:"path"`
}

// ExportRequest selects what to export and where to write it.
type ExportRequest struct {
	Path   string `json:"path,omitempty"`
	Filter string `json:"filter,omitempty"` // "" or "settlements"
}

// =============================================================================
// RESPONSES
// =============================================================================

// TransactionResponse is the outcome of a borrow or settlement.
type TransactionResponse struct {
	Entry          inventory.ActivityEntry  `json:"entry"`
	ShortfallEntry *inventory.ActivityEntry `json:"shortfallEntry,omitempty"`
	Item           inventory.Item           `json:"item"`
}

// BorrowStatusResponse reports how much of a borrow is still out.
type BorrowStatusResponse struct {
	Borrow    inventory.ActivityEntry `json:"borrow"`
	Settled   int                     `json:"settled"`
	Remaining int                     `json:"remaining"`
	State     string                  `json:"state"`
}

// ImportResponse reports counts and per-row skip reasons from an import.
type ImportResponse struct {
	Imported int                    `json:"imported"`
	Skipped  []inventory.SkippedRow `json:"skipped,omitempty"`
}

// ExportResponse names the written file.
type ExportResponse struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
}

// ErrorResponse is the JSON error envelope. Conflict errors carry the
// quantity that would have satisfied the request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Available *int   `json:"available,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`

	// CommittedEntry is set when the ledger append succeeded but a
	// follow-up persistence step failed. The entry is real and audit
	// holds it; the caller should not retry the whole operation.
	CommittedEntry *inventory.ActivityEntry `json:"committedEntry,omitempty"`
}
