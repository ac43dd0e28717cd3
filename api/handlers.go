/*
handlers.go - HTTP API handlers for the books engine

PURPOSE:
  Exposes the bookkeeping engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Accounts:
    GET    /api/accounts               List/search accounts
    POST   /api/accounts               Create account
    GET    /api/accounts/{id}          Get account
    PUT    /api/accounts/{id}          Update account
    DELETE /api/accounts/{id}          Delete account (blocked if referenced)
    GET    /api/accounts/{id}/ledger   Per-account ledger walk

  Entries:
    GET    /api/entries                List journal entries
    POST   /api/entries                Post manual entry
    GET    /api/entries/{id}           Get entry
    POST   /api/entries/{id}/reverse   Reverse posted entry

  Events:
    POST   /api/events                 Auto-post a business event

  Reports:
    GET    /api/reports/trial-balance?as_of=
    GET    /api/reports/income-statement?from=&to=
    GET    /api/reports/balance-sheet?as_of=
    GET    /api/reports/cash-flow?from=&to=

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Account or entry not found
  - 409: Duplicate code, dependent entries, double reversal
  - 422: Unbalanced entry, unresolvable posting rule
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/books-engine/autopost"
	"github.com/warp/books-engine/books"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Chart      *books.Chart
	Poster     *books.Poster
	Rules      *autopost.Rules
	Query      *books.Query
	Statements *books.Statements
}

// NewHandler wires a handler over one store.
func NewHandler(store books.TxStore, roles autopost.RoleMap) *Handler {
	chart := books.NewChart(store)
	poster := books.NewPoster(store)
	return &Handler{
		Chart:      chart,
		Poster:     poster,
		Rules:      autopost.New(chart, poster, roles),
		Query:      books.NewQuery(store),
		Statements: books.NewStatements(store),
	}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns accounts, optionally filtered.
// GET /api/accounts?type=&active=&q=
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		accounts, err := h.Chart.SearchAccounts(r.Context(), q)
		if err != nil {
			writeDomainError(w, "Failed to search accounts", err)
			return
		}
		writeJSON(w, http.StatusOK, accounts)
		return
	}

	filter := books.ListFilter{
		Type:       books.AccountType(r.URL.Query().Get("type")),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	accounts, err := h.Chart.ListAccounts(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "Failed to list accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// CreateAccount adds an account to the chart.
// POST /api/accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Chart.AddAccount(r.Context(), books.AccountSpec{
		Code:     req.Code,
		Name:     req.Name,
		Type:     books.AccountType(req.Type),
		Subtype:  req.Subtype,
		ParentID: req.ParentID,
	})
	if err != nil {
		writeDomainError(w, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// GetAccount returns a single account.
// GET /api/accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.Chart.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// UpdateAccount applies a partial update.
// PUT /api/accounts/{id}
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Chart.UpdateAccount(r.Context(), chi.URLParam(r, "id"), books.AccountPatch{
		Code:     req.Code,
		Name:     req.Name,
		Subtype:  req.Subtype,
		ParentID: req.ParentID,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeDomainError(w, "Failed to update account", err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// DeleteAccount removes an account unless journal entries reference it.
// DELETE /api/accounts/{id}
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Chart.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAccountLedger returns the chronological ledger walk for an account.
// GET /api/accounts/{id}/ledger?from=&to=
func (h *Handler) GetAccountLedger(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	report, err := h.Query.AccountLedger(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		writeDomainError(w, "Failed to build account ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// ListEntries returns journal entries, optionally restricted to a range.
// GET /api/entries?from=&to=
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	entries, err := h.Poster.List(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, "Failed to list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// CreateEntry posts a manual journal entry.
// POST /api/entries
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	entry, err := h.Poster.Post(r.Context(), books.EntryDraft{
		Date:          date,
		Description:   req.Description,
		ReferenceType: books.RefManual,
		ReferenceID:   req.ReferenceID,
		Lines:         req.lines(),
	})
	if err != nil {
		writeDomainError(w, "Failed to post entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// GetEntry returns a single journal entry.
// GET /api/entries/{id}
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Poster.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ReverseEntry undoes a posted entry's balance effects and flags it.
// POST /api/entries/{id}/reverse
func (h *Handler) ReverseEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Poster.Reverse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to reverse entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// PostEvent auto-posts a business event.
// POST /api/events
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var req PostEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	event, err := autopost.DecodeEvent(req.Kind, req.Payload)
	if err != nil {
		writeDomainError(w, "Invalid event", err)
		return
	}
	entry, err := h.Rules.Post(r.Context(), event)
	if err != nil {
		writeDomainError(w, "Failed to post event", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// TrialBalance returns the trial balance as of a date.
// GET /api/reports/trial-balance?as_of=
func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDate(r, "as_of", time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	report, err := h.Statements.TrialBalance(r.Context(), asOf)
	if err != nil {
		writeDomainError(w, "Failed to build trial balance", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// IncomeStatement returns the income statement for a period.
// GET /api/reports/income-statement?from=&to=
func (h *Handler) IncomeStatement(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	report, err := h.Statements.IncomeStatement(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, "Failed to build income statement", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// BalanceSheet returns the balance sheet as of a date.
// GET /api/reports/balance-sheet?as_of=
func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDate(r, "as_of", time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	report, err := h.Statements.BalanceSheet(r.Context(), asOf)
	if err != nil {
		writeDomainError(w, "Failed to build balance sheet", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// CashFlow returns the cash flow statement for a period.
// GET /api/reports/cash-flow?from=&to=
func (h *Handler) CashFlow(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	report, err := h.Statements.CashFlow(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, "Failed to build cash flow statement", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// HELPERS
// =============================================================================

// parseDate reads a YYYY-MM-DD query param, falling back to def when absent.
func parseDate(r *http.Request, key string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return time.Parse("2006-01-02", raw)
}

// parseRange reads optional from/to query params; zero times mean unbounded.
func parseRange(r *http.Request) (from, to time.Time, err error) {
	if from, err = parseDate(r, "from", time.Time{}); err != nil {
		return
	}
	to, err = parseDate(r, "to", time.Time{})
	return
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

// writeDomainError maps domain errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case books.IsNotFound(err):
		return http.StatusNotFound
	case books.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, books.ErrUnbalancedEntry), errors.Is(err, books.ErrRuleResolution):
		return http.StatusUnprocessableEntity
	case errors.Is(err, books.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
