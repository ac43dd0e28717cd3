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
// POSTING TESTS
// =============================================================================

func TestPoster_Post_BalancedEntry_UpdatesBothSides(t *testing.T) {
	// GIVEN: Cash (asset) and Sales (revenue) accounts at zero
	// WHEN: Posting debit Cash 1000 / credit Sales 1000
	// THEN: Cash balance +1000, Sales balance +1000, entry is posted

	_, chart, poster := newTestBooks()
	ctx := context.Background()

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset, Subtype: books.SubtypeCash})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	entry, err := poster.Post(ctx, books.EntryDraft{
		Date:        date(2026, time.January, 15),
		Description: "Cash sale",
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("1000")},
			{AccountID: sales.ID, Credit: dec("1000")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, books.StatusPosted, entry.Status)
	assert.True(t, entry.TotalDebit.Equal(dec("1000")))
	assert.True(t, entry.TotalCredit.Equal(dec("1000")))

	gotCash, err := chart.GetAccount(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, gotCash.Balance.Equal(dec("1000")), "cash balance %s", gotCash.Balance)

	gotSales, err := chart.GetAccount(ctx, sales.ID)
	require.NoError(t, err)
	assert.True(t, gotSales.Balance.Equal(dec("1000")), "sales balance %s", gotSales.Balance)
}

func TestPoster_Post_Unbalanced_NothingPersisted(t *testing.T) {
	// GIVEN: Two accounts
	// WHEN: Posting debit 100 / credit 90
	// THEN: UnbalancedEntryError; no entry exists and balances stay zero

	_, chart, poster := newTestBooks()
	ctx := context.Background()

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	_, err := poster.Post(ctx, books.EntryDraft{
		Date: date(2026, time.January, 15),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("100")},
			{AccountID: sales.ID, Credit: dec("90")},
		},
	})
	var unbalanced *books.UnbalancedEntryError
	require.ErrorAs(t, err, &unbalanced)
	assert.True(t, unbalanced.Difference().Equal(dec("10")))

	entries, err := poster.List(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	gotCash, err := chart.GetAccount(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, gotCash.Balance.IsZero())
}

func TestPoster_Post_WithinTolerance_Accepted(t *testing.T) {
	// Sub-cent rounding residue must not block posting.

	_, chart, poster := newTestBooks()

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	_, err := poster.Post(context.Background(), books.EntryDraft{
		Date: date(2026, time.January, 15),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("100.005")},
			{AccountID: sales.ID, Credit: dec("100.00")},
		},
	})
	assert.NoError(t, err)
}

func TestPoster_Post_UnknownAccount_NothingPersisted(t *testing.T) {
	// GIVEN: One real account, one bogus account ID
	// WHEN: Posting an otherwise balanced entry
	// THEN: NotFound; the entry log stays empty and the real account is untouched

	_, chart, poster := newTestBooks()
	ctx := context.Background()

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset})

	_, err := poster.Post(ctx, books.EntryDraft{
		Date: date(2026, time.January, 15),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("50")},
			{AccountID: "ghost", Credit: dec("50")},
		},
	})
	assert.True(t, books.IsNotFound(err))

	entries, err := poster.List(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	gotCash, err := chart.GetAccount(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, gotCash.DebitBalance.IsZero())
}

func TestPoster_Post_AssignsSequentialEntryNumbers(t *testing.T) {
	_, chart, poster := newTestBooks()
	ctx := context.Background()

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	draft := books.EntryDraft{
		Date: date(2026, time.January, 15),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("10")},
			{AccountID: sales.ID, Credit: dec("10")},
		},
	}

	first, err := poster.Post(ctx, draft)
	require.NoError(t, err)
	second, err := poster.Post(ctx, draft)
	require.NoError(t, err)

	assert.Equal(t, "JE-000001", first.EntryNumber)
	assert.Equal(t, "JE-000002", second.EntryNumber)
}

func TestPoster_Post_EmptyLines_Rejected(t *testing.T) {
	_, _, poster := newTestBooks()

	_, err := poster.Post(context.Background(), books.EntryDraft{Date: date(2026, time.January, 1)})
	assert.ErrorIs(t, err, books.ErrValidation)
}

func TestPoster_Post_NegativeAmount_Rejected(t *testing.T) {
	_, chart, poster := newTestBooks()

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset})

	_, err := poster.Post(context.Background(), books.EntryDraft{
		Date: date(2026, time.January, 1),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("-5")},
			{AccountID: cash.ID, Credit: dec("-5")},
		},
	})
	assert.ErrorIs(t, err, books.ErrValidation)
}

func TestPoster_Post_ZeroAmountLine_Rejected(t *testing.T) {
	// A line carrying neither a debit nor a credit is dead weight and
	// must not post, even inside an otherwise balanced entry.

	_, chart, poster := newTestBooks()
	ctx := context.Background()

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	_, err := poster.Post(ctx, books.EntryDraft{
		Date: date(2026, time.January, 1),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("100")},
			{AccountID: sales.ID, Credit: dec("100")},
			{AccountID: cash.ID},
		},
	})
	assert.ErrorIs(t, err, books.ErrValidation)

	entries, err := poster.List(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// REVERSAL TESTS
// =============================================================================

func TestPoster_Reverse_RestoresAccountsExactly(t *testing.T) {
	// GIVEN: An account with prior activity, then another posted entry
	// WHEN: Reversing the later entry
	// THEN: Every touched account returns to its exact pre-post accumulators

	_, chart, poster := newTestBooks()
	ctx := context.Background()

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset, Subtype: books.SubtypeCash})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	_, err := poster.Post(ctx, books.EntryDraft{
		Date: date(2026, time.February, 1),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("300")},
			{AccountID: sales.ID, Credit: dec("300")},
		},
	})
	require.NoError(t, err)

	before, err := chart.GetAccount(ctx, cash.ID)
	require.NoError(t, err)

	entry, err := poster.Post(ctx, books.EntryDraft{
		Date: date(2026, time.February, 2),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("450.25")},
			{AccountID: sales.ID, Credit: dec("450.25")},
		},
	})
	require.NoError(t, err)

	reversed, err := poster.Reverse(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, books.StatusReversed, reversed.Status)

	after, err := chart.GetAccount(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, after.DebitBalance.Equal(before.DebitBalance))
	assert.True(t, after.CreditBalance.Equal(before.CreditBalance))
	assert.True(t, after.Balance.Equal(before.Balance))
}

func TestPoster_Reverse_KeepsEntryInLog(t *testing.T) {
	// Reversal flags the entry; it is never removed from the log.

	_, chart, poster := newTestBooks()
	ctx := context.Background()

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	entry, err := poster.Post(ctx, books.EntryDraft{
		Date: date(2026, time.February, 1),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("100")},
			{AccountID: sales.ID, Credit: dec("100")},
		},
	})
	require.NoError(t, err)

	_, err = poster.Reverse(ctx, entry.ID)
	require.NoError(t, err)

	got, err := poster.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, books.StatusReversed, got.Status)
	assert.Len(t, got.Lines, 2)
}

func TestPoster_Reverse_Twice_Rejected(t *testing.T) {
	_, chart, poster := newTestBooks()
	ctx := context.Background()

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})

	entry, err := poster.Post(ctx, books.EntryDraft{
		Date: date(2026, time.February, 1),
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: dec("100")},
			{AccountID: sales.ID, Credit: dec("100")},
		},
	})
	require.NoError(t, err)

	_, err = poster.Reverse(ctx, entry.ID)
	require.NoError(t, err)

	_, err = poster.Reverse(ctx, entry.ID)
	assert.ErrorIs(t, err, books.ErrEntryReversed)

	// Balances must not have been touched by the failed second reversal.
	gotCash, err := chart.GetAccount(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, gotCash.Balance.IsZero())
}

func TestPoster_Reverse_UnknownEntry_NotFound(t *testing.T) {
	_, _, poster := newTestBooks()

	_, err := poster.Reverse(context.Background(), "missing")
	assert.True(t, books.IsNotFound(err))
}

// =============================================================================
// REPLAY ROUND-TRIP
// =============================================================================

func TestPoster_ReplayMatchesIncrementalBalances(t *testing.T) {
	// GIVEN: A mix of posts and a reversal
	// WHEN: Replaying the log for each account
	// THEN: Replayed accumulators equal the incrementally maintained ones

	s, chart, poster := newTestBooks()
	ctx := context.Background()
	query := books.NewQuery(s)

	cash := mustAdd(t, chart, books.AccountSpec{Code: "1000", Name: "Cash", Type: books.TypeAsset, Subtype: books.SubtypeCash})
	sales := mustAdd(t, chart, books.AccountSpec{Code: "4000", Name: "Sales", Type: books.TypeRevenue})
	rent := mustAdd(t, chart, books.AccountSpec{Code: "5300", Name: "Rent", Type: books.TypeExpense})

	post := func(day int, lines []books.JournalLine) books.JournalEntry {
		e, err := poster.Post(ctx, books.EntryDraft{Date: date(2026, time.March, day), Lines: lines})
		require.NoError(t, err)
		return e
	}

	post(1, []books.JournalLine{
		{AccountID: cash.ID, Debit: dec("1000")},
		{AccountID: sales.ID, Credit: dec("1000")},
	})
	toReverse := post(2, []books.JournalLine{
		{AccountID: rent.ID, Debit: dec("250")},
		{AccountID: cash.ID, Credit: dec("250")},
	})
	post(3, []books.JournalLine{
		{AccountID: rent.ID, Debit: dec("400")},
		{AccountID: cash.ID, Credit: dec("400")},
	})
	_, err := poster.Reverse(ctx, toReverse.ID)
	require.NoError(t, err)

	for _, id := range []string{cash.ID, sales.ID, rent.ID} {
		account, err := chart.GetAccount(ctx, id)
		require.NoError(t, err)

		debit, credit, err := query.ReplayBalance(ctx, id)
		require.NoError(t, err)
		assert.True(t, debit.Equal(account.DebitBalance), "%s debit: replay %s vs stored %s", account.Code, debit, account.DebitBalance)
		assert.True(t, credit.Equal(account.CreditBalance), "%s credit: replay %s vs stored %s", account.Code, credit, account.CreditBalance)
	}
}
