package books_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/books-engine/books"
	"github.com/warp/books-engine/books/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// Shared by the other test files in this package.

func newTestBooks() (*store.Memory, *books.Chart, *books.Poster) {
	s := store.NewMemory()
	return s, books.NewChart(s), books.NewPoster(s)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustAdd(t *testing.T, chart *books.Chart, spec books.AccountSpec) books.Account {
	t.Helper()
	a, err := chart.AddAccount(context.Background(), spec)
	require.NoError(t, err)
	return a
}

// =============================================================================
// ACCOUNT CREATION TESTS
// =============================================================================

func TestChart_AddAccount_DuplicateCode_Rejected(t *testing.T) {
	// GIVEN: An account with code 1000 exists
	// WHEN: Adding a second account with code 1000
	// THEN: Rejected with DuplicateCodeError; first account untouched

	_, chart, _ := newTestBooks()
	ctx := context.Background()

	first := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset})

	_, err := chart.AddAccount(ctx, books.AccountSpec{Code: "1000", Name: "Petty Cash", Type: books.TypeAsset})
	assert.Error(t, err)
	var dup *books.DuplicateCodeError
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, "1000", dup.Code)

	got, err := chart.GetAccountByCode(ctx, "1000")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "Cash", got.Name)
}

func TestChart_AddAccount_GeneratesCodeByType(t *testing.T) {
	// GIVEN: An account spec without a code
	// WHEN: Adding it
	// THEN: A code is generated with the type's prefix digit

	_, chart, _ := newTestBooks()

	a := mustAdd(t, chart, books.AccountSpec{Name: "Misc Liability", Type: books.TypeLiability})
	assert.NotEmpty(t, a.Code)
	assert.Equal(t, byte('2'), a.Code[0])
}

func TestChart_AddAccount_RejectsUnknownType(t *testing.T) {
	_, chart, _ := newTestBooks()

	_, err := chart.AddAccount(context.Background(), books.AccountSpec{Name: "Bad", Type: "contra"})
	assert.ErrorIs(t, err, books.ErrValidation)
}

func TestChart_AddAccount_MissingParent_Rejected(t *testing.T) {
	// GIVEN: No account with the given parent ID
	// WHEN: Adding a child referencing it
	// THEN: NotFound, and the child is not created

	_, chart, _ := newTestBooks()
	ctx := context.Background()

	_, err := chart.AddAccount(ctx, books.AccountSpec{
		Code: "1590", Name: "Accumulated Depreciation", Type: books.TypeAsset, ParentID: "missing",
	})
	assert.True(t, books.IsNotFound(err))

	_, err = chart.GetAccountByCode(ctx, "1590")
	assert.True(t, books.IsNotFound(err))
}

// =============================================================================
// UPDATE / DELETE TESTS
// =============================================================================

func TestChart_UpdateAccount_PatchesOnlyGivenFields(t *testing.T) {
	// GIVEN: An existing account
	// WHEN: Patching only the name
	// THEN: Name changes, everything else survives

	_, chart, _ := newTestBooks()
	ctx := context.Background()

	a := mustAdd(t, chart, books.AccountSpec{Code: "5300", Name: "Rent", Type: books.TypeExpense, Subtype: books.SubtypeOperatingExpense})

	name := "Rent Expense"
	updated, err := chart.UpdateAccount(ctx, a.ID, books.AccountPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Rent Expense", updated.Name)
	assert.Equal(t, "5300", updated.Code)
	assert.Equal(t, books.SubtypeOperatingExpense, updated.Subtype)
	assert.True(t, updated.IsActive)
}

func TestChart_UpdateAccount_CodeCollision_Rejected(t *testing.T) {
	_, chart, _ := newTestBooks()
	ctx := context.Background()

	mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset})
	b := mustAdd(t, chart, books.AccountSpec{Code: "1010", Name: "Bank", Type: books.TypeAsset})

	code := "1000"
	_, err := chart.UpdateAccount(ctx, b.ID, books.AccountPatch{Code: &code})
	assert.ErrorIs(t, err, books.ErrDuplicateCode)
}

func TestChart_DeleteAccount_BlockedByJournalEntries(t *testing.T) {
	// GIVEN: An account referenced by a posted entry
	// WHEN: Deleting it
	// THEN: Rejected with HasDependentEntriesError, account still present

	_, chart, poster := newTestBooks()
	ctx := context.Background()

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset, Subtype: books.SubtypeCash})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	_, err := poster.Post(ctx, books.EntryDraft{
		Date:        date(2026, time.March, 1),
		Description: "Cash sale",
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("100")},
			{AccountID: sales.ID, Credit: dec("100")},
		},
	})
	require.NoError(t, err)

	err = chart.DeleteAccount(ctx, cash.ID)
	var dep *books.HasDependentEntriesError
	assert.ErrorAs(t, err, &dep)
	assert.Equal(t, cash.ID, dep.AccountID)
	assert.Equal(t, 1, dep.Entries)

	_, err = chart.GetAccount(ctx, cash.ID)
	assert.NoError(t, err)
}

func TestChart_DeleteAccount_BlockedByReversedEntries(t *testing.T) {
	// GIVEN: An account referenced only by a reversed entry
	// WHEN: Deleting it
	// THEN: Still blocked; the audit trail references it

	_, chart, poster := newTestBooks()
	ctx := context.Background()

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset, Subtype: books.SubtypeCash})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	entry, err := poster.Post(ctx, books.EntryDraft{
		Date: date(2026, time.March, 1),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("100")},
			{AccountID: sales.ID, Credit: dec("100")},
		},
	})
	require.NoError(t, err)
	_, err = poster.Reverse(ctx, entry.ID)
	require.NoError(t, err)

	err = chart.DeleteAccount(ctx, cash.ID)
	assert.ErrorIs(t, err, books.ErrHasDependentEntries)
}

func TestChart_DeleteAccount_Unreferenced_Succeeds(t *testing.T) {
	_, chart, _ := newTestBooks()
	ctx := context.Background()

	a := mustAdd(t, chart, books.AccountSpec{Code: "5400", Name: "Utilities", Type: books.TypeExpense})
	require.NoError(t, chart.DeleteAccount(ctx, a.ID))

	_, err := chart.GetAccount(ctx, a.ID)
	assert.True(t, books.IsNotFound(err))
}

// =============================================================================
// SEARCH / LIST TESTS
// =============================================================================

func TestChart_SearchAccounts_CaseInsensitive_ActiveOnly(t *testing.T) {
	// GIVEN: Active and inactive accounts
	// WHEN: Searching by a lowercase fragment of the name
	// THEN: Only the active match is returned

	_, chart, _ := newTestBooks()
	ctx := context.Background()

	mustAdd(t, chart, books.AccountSpec{Code: "1100", Name: "Accounts Receivable", Type: books.TypeAsset})
	inactive := mustAdd(t, chart, books.AccountSpec{Code: "1110", Name: "Old Receivable", Type: books.TypeAsset})

	off := false
	_, err := chart.UpdateAccount(ctx, inactive.ID, books.AccountPatch{IsActive: &off})
	require.NoError(t, err)

	matches, err := chart.SearchAccounts(ctx, "receivable")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "1100", matches[0].Code)
}

func TestChart_SearchAccounts_MatchesCode(t *testing.T) {
	_, chart, _ := newTestBooks()

	mustAdd(t, chart, books.AccountSpec{Code: "2500", Name: "Loans Payable", Type: books.TypeLiability})

	matches, err := chart.SearchAccounts(context.Background(), "25")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Loans Payable", matches[0].Name)
}

func TestChart_ListAccounts_FilterByType_SortedByCode(t *testing.T) {
	_, chart, _ := newTestBooks()

	mustAdd(t, chart, books.AccountSpec{Code: "1200", Name: "Inventory", Type: books.TypeAsset})
	mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset})
	mustAdd(t, chart, books.AccountSpec{Code: "2000", Name: "AP", Type: books.TypeLiability})

	assets, err := chart.ListAccounts(context.Background(), books.ListFilter{Type: books.TypeAsset})
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "1000", assets[0].Code)
	assert.Equal(t, "1200", assets[1].Code)
}
