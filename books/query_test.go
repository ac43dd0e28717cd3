package books_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/books-engine/books"
)

// =============================================================================
// ACCOUNT LEDGER WALK TESTS
// =============================================================================

func TestQuery_AccountLedger_RunningBalance(t *testing.T) {
	// GIVEN: Three entries touching Cash on different days
	// WHEN: Walking the full range
	// THEN: Rows are chronological with a correctly folded running balance

	s, chart, poster := newTestBooks()
	ctx := context.Background()
	query := books.NewQuery(s)

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset, Subtype: books.SubtypeCash})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})
	rent := mustAdd(t, chart, books.AccountSpec{Code: "5300", Name: "Rent", Type: books.TypeExpense})

	post := func(day int, lines []books.JournalLine) {
		_, err := poster.Post(ctx, books.EntryDraft{Date: date(2026, time.April, day), Lines: lines})
		require.NoError(t, err)
	}

	post(1, []books.JournalLine{
		{AccountID: cash.ID, Debit: dec("500")},
		{AccountID: sales.ID, Credit: dec("500")},
	})
	post(3, []books.JournalLine{
		{AccountID: rent.ID, Debit: dec("200")},
		{AccountID: cash.ID, Credit: dec("200")},
	})
	post(5, []books.JournalLine{
		{AccountID: cash.ID, Debit: dec("100")},
		{AccountID: sales.ID, Credit: dec("100")},
	})

	report, err := query.AccountLedger(ctx, cash.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)

	assert.True(t, report.Rows[0].RunningBalance.Equal(dec("500")))
	assert.True(t, report.Rows[1].RunningBalance.Equal(dec("300")))
	assert.True(t, report.Rows[2].RunningBalance.Equal(dec("400")))
	assert.True(t, report.ClosingBalance.Equal(dec("400")))
}

func TestQuery_AccountLedger_OpeningBalanceBeforeRange(t *testing.T) {
	// GIVEN: Activity before and inside the requested range
	// WHEN: Walking from April 2
	// THEN: Pre-range activity lands in the opening balance, not in rows

	s, chart, poster := newTestBooks()
	ctx := context.Background()
	query := books.NewQuery(s)

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset, Subtype: books.SubtypeCash})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	post := func(day int, amount string) {
		_, err := poster.Post(ctx, books.EntryDraft{
			Date: date(2026, time.April, day),
			Lines: []books.JournalLine{
				{AccountID: cash.ID, Debit: dec(amount)},
				{AccountID: sales.ID, Credit: dec(amount)},
			},
		})
		require.NoError(t, err)
	}

	post(1, "500")
	post(10, "100")

	report, err := query.AccountLedger(ctx, cash.ID, date(2026, time.April, 2), date(2026, time.April, 30))
	require.NoError(t, err)

	assert.True(t, report.OpeningBalance.Equal(dec("500")))
	require.Len(t, report.Rows, 1)
	assert.True(t, report.Rows[0].RunningBalance.Equal(dec("600")))
	assert.True(t, report.ClosingBalance.Equal(dec("600")))
}

func TestQuery_AccountLedger_SkipsReversedEntries(t *testing.T) {
	s, chart, poster := newTestBooks()
	ctx := context.Background()
	query := books.NewQuery(s)

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset, Subtype: books.SubtypeCash})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	entry, err := poster.Post(ctx, books.EntryDraft{
		Date: date(2026, time.April, 1),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("500")},
			{AccountID: sales.ID, Credit: dec("500")},
		},
	})
	require.NoError(t, err)
	_, err = poster.Reverse(ctx, entry.ID)
	require.NoError(t, err)

	report, err := query.AccountLedger(ctx, cash.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	assert.True(t, report.ClosingBalance.IsZero())
}

func TestQuery_AccountLedger_CreditNormalAccount(t *testing.T) {
	// Running balance for a revenue account grows on the credit side.

	s, chart, poster := newTestBooks()
	ctx := context.Background()
	query := books.NewQuery(s)

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	_, err := poster.Post(ctx, books.EntryDraft{
		Date: date(2026, time.April, 1),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("750")},
			{AccountID: sales.ID, Credit: dec("750")},
		},
	})
	require.NoError(t, err)

	report, err := query.AccountLedger(ctx, sales.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.True(t, report.Rows[0].Credit.Equal(dec("750")))
	assert.True(t, report.Rows[0].RunningBalance.Equal(dec("750")))
}

func TestQuery_AccountLedger_UnknownAccount_NotFound(t *testing.T) {
	s, _, _ := newTestBooks()
	query := books.NewQuery(s)

	_, err := query.AccountLedger(context.Background(), "ghost", time.Time{}, time.Time{})
	assert.True(t, books.IsNotFound(err))
}
