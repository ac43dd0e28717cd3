package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/books-engine/api"
	"github.com/warp/books-engine/books"
	"github.com/warp/books-engine/books/store"
	"github.com/warp/books-engine/factory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *api.Handler) {
	t.Helper()
	h := api.NewHandler(store.NewMemory(), nil)
	require.NoError(t, factory.NewChartFactory().Seed(context.Background(), h.Chart, factory.DefaultChart()))

	srv := httptest.NewServer(api.NewRouter(h, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv, h
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func accountID(t *testing.T, h *api.Handler, code string) string {
	t.Helper()
	a, err := h.Chart.GetAccountByCode(context.Background(), code)
	require.NoError(t, err)
	return a.ID
}

func postManualEntry(t *testing.T, srv *httptest.Server, h *api.Handler, debitCode, creditCode, amount string) books.JournalEntry {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/entries", map[string]any{
		"date":        "2026-08-01",
		"description": "test entry",
		"lines": []map[string]any{
			{"account_id": accountID(t, h, debitCode), "debit": amount},
			{"account_id": accountID(t, h, creditCode), "credit": amount},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var entry books.JournalEntry
	decode(t, resp, &entry)
	return entry
}

// =============================================================================
// ACCOUNT ENDPOINT TESTS
// =============================================================================

func TestAPI_CreateAccount_Created(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts", map[string]any{
		"code": "5500", "name": "Insurance Expense", "type": "expense",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created books.Account
	decode(t, resp, &created)
	assert.Equal(t, "5500", created.Code)
	assert.NotEmpty(t, created.ID)
}

func TestAPI_CreateAccount_DuplicateCode_Conflict(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts", map[string]any{
		"code": "1000", "name": "Second Cash", "type": "asset",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_CreateAccount_BadType_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts", map[string]any{
		"code": "9000", "name": "Weird", "type": "contra",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetAccount_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_DeleteAccount_Referenced_Conflict(t *testing.T) {
	srv, h := newTestServer(t)

	postManualEntry(t, srv, h, "1000", "4000", "100")

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/accounts/"+accountID(t, h, "1000"), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_SearchAccounts(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/accounts?q=payable", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var accounts []books.Account
	decode(t, resp, &accounts)
	// AP, Tax Payable, Payroll Deductions Payable, Loans Payable.
	assert.Len(t, accounts, 4)
}

// =============================================================================
// ENTRY ENDPOINT TESTS
// =============================================================================

func TestAPI_CreateEntry_Balanced_Created(t *testing.T) {
	srv, h := newTestServer(t)

	entry := postManualEntry(t, srv, h, "1000", "4000", "250.00")
	assert.Equal(t, books.StatusPosted, entry.Status)
	assert.Equal(t, books.RefManual, entry.ReferenceType)
	assert.Equal(t, "JE-000001", entry.EntryNumber)
}

func TestAPI_CreateEntry_Unbalanced_UnprocessableEntity(t *testing.T) {
	srv, h := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/entries", map[string]any{
		"date": "2026-08-01",
		"lines": []map[string]any{
			{"account_id": accountID(t, h, "1000"), "debit": "100"},
			{"account_id": accountID(t, h, "4000"), "credit": "90"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAPI_CreateEntry_BadDate_BadRequest(t *testing.T) {
	srv, h := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/entries", map[string]any{
		"date": "08/01/2026",
		"lines": []map[string]any{
			{"account_id": accountID(t, h, "1000"), "debit": "100"},
			{"account_id": accountID(t, h, "4000"), "credit": "100"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ReverseEntry_ThenAgain_Conflict(t *testing.T) {
	srv, h := newTestServer(t)

	entry := postManualEntry(t, srv, h, "1000", "4000", "100")

	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/entries/%s/reverse", srv.URL, entry.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reversed books.JournalEntry
	decode(t, resp, &reversed)
	assert.Equal(t, books.StatusReversed, reversed.Status)

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/entries/%s/reverse", srv.URL, entry.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// =============================================================================
// EVENT ENDPOINT TESTS
// =============================================================================

func TestAPI_PostEvent_Sale_Created(t *testing.T) {
	srv, h := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events", map[string]any{
		"kind": "sale",
		"payload": map[string]any{
			"date":      "2026-08-01T00:00:00Z",
			"subtotal":  "1000",
			"tax":       "120",
			"on_credit": true,
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var entry books.JournalEntry
	decode(t, resp, &entry)
	assert.Equal(t, books.RefSale, entry.ReferenceType)
	assert.Len(t, entry.Lines, 3)

	ar, err := h.Chart.GetAccountByCode(context.Background(), "1100")
	require.NoError(t, err)
	assert.Equal(t, "1120", ar.Balance.String())
}

func TestAPI_PostEvent_UnknownKind_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events", map[string]any{
		"kind": "refund", "payload": map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_PostEvent_MissingRole_UnprocessableEntity(t *testing.T) {
	// Deactivate Sales Revenue so the sale rule cannot resolve it.

	srv, h := newTestServer(t)
	ctx := context.Background()

	off := false
	_, err := h.Chart.UpdateAccount(ctx, accountID(t, h, "4000"), books.AccountPatch{IsActive: &off})
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events", map[string]any{
		"kind":    "sale",
		"payload": map[string]any{"date": "2026-08-01T00:00:00Z", "subtotal": "100"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// =============================================================================
// REPORT ENDPOINT TESTS
// =============================================================================

func TestAPI_Reports_EndToEnd(t *testing.T) {
	srv, h := newTestServer(t)

	postManualEntry(t, srv, h, "1000", "4000", "1000")
	postManualEntry(t, srv, h, "5300", "1000", "200")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/reports/trial-balance?as_of=2026-12-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tb books.TrialBalanceReport
	decode(t, resp, &tb)
	assert.True(t, tb.Totals.Difference.IsZero())

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/reports/income-statement?from=2026-01-01&to=2026-12-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var is books.IncomeStatementReport
	decode(t, resp, &is)
	assert.Equal(t, "800", is.NetProfit.String())

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/reports/balance-sheet?as_of=2026-12-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bs books.BalanceSheetReport
	decode(t, resp, &bs)
	assert.True(t, bs.Check.IsBalanced)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/reports/cash-flow?from=2026-01-01&to=2026-12-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cf books.CashFlowReport
	decode(t, resp, &cf)
	assert.Equal(t, "800", cf.CashAtEnd.String())
}

func TestAPI_AccountLedger(t *testing.T) {
	srv, h := newTestServer(t)

	postManualEntry(t, srv, h, "1000", "4000", "500")

	url := fmt.Sprintf("%s/api/accounts/%s/ledger", srv.URL, accountID(t, h, "1000"))
	resp := doJSON(t, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report books.AccountLedgerReport
	decode(t, resp, &report)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "500", report.Rows[0].RunningBalance.String())
}
