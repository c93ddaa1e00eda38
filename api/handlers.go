/*
handlers.go - HTTP handlers for the stockroom lending API

PURPOSE:
  Exposes the lending engine over REST. Handlers parse and validate the
  HTTP shape of a request, delegate to the coordinator / catalog /
  ledger / directory, and map domain errors to status codes.

ENDPOINTS:
  POST /api/login                    Passcode login
  GET  /api/inventory                Item catalog with derived stock
  GET  /api/activity                 Activity log (?filter=settlements, ?item_id=N)
  GET  /api/borrows/{id}             Settlement status of one borrow
  POST /api/borrows                  Record a borrow
  POST /api/settlements              Record a return / used / lost settlement
  POST /api/import/inventory         Replace catalog from a spreadsheet
  POST /api/import/users             Replace user roster from a spreadsheet
  POST /api/export/activity          Write the activity log to a spreadsheet

ERROR HANDLING:
  - 400: malformed body, validation failures
  - 404: unknown item / borrow / user
  - 409: insufficient stock or over-settlement, with the quantity that
         was actually available in the body
  - 500: persistence failures; when the in-memory ledger append itself
         succeeded the committed entry rides along in the error body

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router and middleware
  - inventory/coordinator.go: the transaction rules enforced here
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/stockroom/auth"
	"github.com/warp/stockroom/excel"
	"github.com/warp/stockroom/inventory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Coordinator *inventory.TransactionCoordinator
	Catalog     *inventory.InventoryCatalog
	Ledger      *inventory.ActivityLedger
	Directory   *inventory.UserDirectory
	Auth        *auth.Authenticator

	// ExportDir is where export files land when the request does not
	// name a path.
	ExportDir string

	Log zerolog.Logger
}

// NewHandler wires a handler over the domain components.
func NewHandler(
	coordinator *inventory.TransactionCoordinator,
	catalog *inventory.InventoryCatalog,
	ledger *inventory.ActivityLedger,
	directory *inventory.UserDirectory,
	authn *auth.Authenticator,
	exportDir string,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		Coordinator: coordinator,
		Catalog:     catalog,
		Ledger:      ledger,
		Directory:   directory,
		Auth:        authn,
		ExportDir:   exportDir,
		Log:         log.With().Str("component", "api").Logger(),
	}
}

// =============================================================================
// AUTH
// =============================================================================

// Login resolves a passcode to a user.
// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.Auth.Login(req.Passcode)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRoleMismatch):
			writeError(w, http.StatusForbidden, "Passcode format incorrect for assigned role", nil)
		default:
			writeError(w, http.StatusUnauthorized, "Invalid passcode", nil)
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// =============================================================================
// CATALOG AND LEDGER READS
// =============================================================================

// ListInventory returns every item with its derived stock fields.
// GET /api/inventory
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.GetAll())
}

// ListActivity returns the activity log, optionally filtered.
// GET /api/activity?filter=settlements&item_id=N
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	entries := h.Ledger.GetAll()

	if raw := r.URL.Query().Get("item_id"); raw != "" {
		itemID, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "item_id must be a number", err)
			return
		}
		entries = h.Ledger.EntriesForItem(itemID)
	}

	switch filter := r.URL.Query().Get("filter"); filter {
	case "":
	case "settlements":
		entries = excel.FilterSettlements(entries)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown filter %q", filter), nil)
		return
	}

	if entries == nil {
		entries = []inventory.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetBorrowStatus reports how much of one borrow has been settled.
// GET /api/borrows/{id}
func (h *Handler) GetBorrowStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Borrow id must be a number", err)
		return
	}

	status, err := h.Coordinator.BorrowStatus(id)
	if err != nil {
		h.writeDomainError(w, "Failed to get borrow status", err, nil)
		return
	}

	writeJSON(w, http.StatusOK, BorrowStatusResponse{
		Borrow:    status.Borrow,
		Settled:   status.Settled,
		Remaining: status.Remaining,
		State:     string(status.State),
	})
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// CreateBorrow records a student taking custody of units.
// POST /api/borrows
func (h *Handler) CreateBorrow(w http.ResponseWriter, r *http.Request) {
	var req BorrowRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Coordinator.RecordBorrow(r.Context(), inventory.BorrowRequest{
		UserID:    req.UserID,
		UserName:  req.UserName,
		UserSpecs: req.UserSpecs,
		ItemID:    req.ItemID,
		Qty:       req.Qty,
		Notes:     req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to record borrow", err, result)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(result))
}

// CreateSettlement records a return, consumption or loss against a borrow.
// POST /api/settlements
func (h *Handler) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	var req SettlementRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	action := inventory.Action(req.Action)
	if !action.IsSettlement() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("action must be Returned, Used or Lost, got %q", req.Action), nil)
		return
	}

	result, err := h.Coordinator.RecordSettlement(r.Context(), inventory.SettlementRequest{
		StaffUserID:              req.StaffUserID,
		StaffUserName:            req.StaffUserName,
		StaffUserSpecs:           req.StaffUserSpecs,
		OriginalBorrowActivityID: req.OriginalBorrowActivityID,
		ItemID:                   req.ItemID,
		Action:                   action,
		Qty:                      req.Qty,
		Notes:                    req.Notes,
		MarkShortfallLost:        req.MarkShortfallLost,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to record settlement", err, result)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(result))
}

// =============================================================================
// IMPORT / EXPORT
// =============================================================================

// ImportInventory replaces the catalog from a server-local spreadsheet.
// POST /api/import/inventory
func (h *Handler) ImportInventory(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "Request must include a spreadsheet path", err)
		return
	}

	rows, parseSkips, err := excel.ImportInventory(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read spreadsheet", err)
		return
	}

	storeSkips, err := h.Catalog.ReplaceAll(r.Context(), rows)
	if err != nil {
		h.writeDomainError(w, "Failed to import inventory", err, nil)
		return
	}

	// The import reset the derived fields to InitialStock; the ledger
	// still holds the borrow history, so re-derive every item before
	// anyone transacts against the fresh numbers.
	for _, item := range h.Catalog.GetAll() {
		if _, err := h.Coordinator.ReconcileItem(r.Context(), item.ItemID); err != nil {
			h.writeDomainError(w, "Failed to reconcile imported inventory", err, nil)
			return
		}
	}

	skipped := append(parseSkips, storeSkips...)
	h.Log.Info().
		Int("imported", len(rows)-len(storeSkips)).
		Int("skipped", len(skipped)).
		Msg("inventory import complete")

	writeJSON(w, http.StatusOK, ImportResponse{
		Imported: len(rows) - len(storeSkips),
		Skipped:  skipped,
	})
}

// ImportUsers replaces the user roster from a server-local spreadsheet.
// POST /api/import/users
func (h *Handler) ImportUsers(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "Request must include a spreadsheet path", err)
		return
	}

	rows, parseSkips, err := excel.ImportUsers(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read spreadsheet", err)
		return
	}

	storeSkips, err := h.Directory.ReplaceAll(r.Context(), rows)
	if err != nil {
		h.writeDomainError(w, "Failed to import users", err, nil)
		return
	}

	skipped := append(parseSkips, storeSkips...)
	h.Log.Info().
		Int("imported", len(rows)-len(storeSkips)).
		Int("skipped", len(skipped)).
		Msg("user import complete")

	writeJSON(w, http.StatusOK, ImportResponse{
		Imported: len(rows) - len(storeSkips),
		Skipped:  skipped,
	})
}

// ExportActivity writes the activity log to a spreadsheet.
// POST /api/export/activity
func (h *Handler) ExportActivity(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if r.Body != nil {
		// An empty body means "everything, default location".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	entries := h.Ledger.GetAll()
	switch req.Filter {
	case "":
	case "settlements":
		entries = excel.FilterSettlements(entries)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown filter %q", req.Filter), nil)
		return
	}

	path := req.Path
	if path == "" {
		name := fmt.Sprintf("activity-log-%s.xlsx", time.Now().Format("20060102-150405"))
		path = filepath.Join(h.ExportDir, name)
	}

	if err := excel.ExportActivityLog(path, entries); err != nil {
		if errors.Is(err, excel.ErrNoData) {
			writeError(w, http.StatusConflict, "No activity data to export", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to export activity log", err)
		return
	}

	h.Log.Info().Str("path", path).Int("entries", len(entries)).Msg("activity log exported")
	writeJSON(w, http.StatusOK, ExportResponse{Path: path, Entries: len(entries)})
}

// =============================================================================
// ERROR MAPPING AND HELPERS
// =============================================================================

// writeDomainError maps inventory errors to HTTP statuses. When a
// persistence failure follows a successful ledger append the committed
// entry is included so callers do not retry a transaction that already
// happened.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error, result *inventory.TransactionResult) {
	var (
		stockErr  *inventory.InsufficientStockError
		settleErr *inventory.OverSettlementError
	)

	switch {
	case errors.As(err, &stockErr):
		resp := ErrorResponse{Error: message, Details: err.Error()}
		resp.Available = &stockErr.Available
		writeJSON(w, http.StatusConflict, resp)

	case errors.As(err, &settleErr):
		resp := ErrorResponse{Error: message, Details: err.Error()}
		resp.Remaining = &settleErr.Remaining
		writeJSON(w, http.StatusConflict, resp)

	case inventory.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)

	case inventory.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)

	case errors.Is(err, inventory.ErrPersistence):
		resp := ErrorResponse{Error: message, Details: err.Error()}
		if result != nil {
			resp.CommittedEntry = &result.Entry
		}
		writeJSON(w, http.StatusInternalServerError, resp)

	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func toTransactionResponse(result *inventory.TransactionResult) TransactionResponse {
	return TransactionResponse{
		Entry:          result.Entry,
		ShortfallEntry: result.ShortfallEntry,
		Item:           result.Item,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
