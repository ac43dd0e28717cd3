/*
query.go - Per-account ledger walk

PURPOSE:
  Answers "show me this account's activity": every posted entry touching
  the account within a date range, chronologically ordered, each row
  annotated with the running balance after that entry.

ORDERING:
  Chronological by entry date; ties broken by original insertion order.
  The Store guarantees this ordering, the walk just folds in sequence.

RUNNING BALANCE:
  The walk folds debit/credit per the account's sign convention. The
  opening balance is computed the same way from all entries dated before
  the range, so the final running balance equals the account's replayed
  balance as of the range end.
*/
package books

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNT LEDGER - Chronological balance walk
// =============================================================================

// LedgerRow is one entry's effect on a single account.
type LedgerRow struct {
	EntryID        string          `json:"entry_id"`
	EntryNumber    string          `json:"entry_number"`
	Date           time.Time       `json:"date"`
	Description    string          `json:"description"`
	ReferenceType  ReferenceType   `json:"reference_type"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// AccountLedgerReport is the result of an account ledger walk.
type AccountLedgerReport struct {
	Account        Account         `json:"account"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Rows           []LedgerRow     `json:"rows"`
}

// Query provides read-only ledger walks over the entry log.
type Query struct {
	store Store
}

// NewQuery creates a Query over the given store.
func NewQuery(store Store) *Query {
	return &Query{store: store}
}

// AccountLedger walks the account's activity within [from, to].
func (q *Query) AccountLedger(ctx context.Context, accountID string, from, to time.Time) (AccountLedgerReport, error) {
	account, err := q.store.GetAccount(ctx, accountID)
	if err != nil {
		return AccountLedgerReport{}, err
	}

	entries, err := q.store.ListEntriesInRange(ctx, time.Time{}, to)
	if err != nil {
		return AccountLedgerReport{}, err
	}

	report := AccountLedgerReport{
		Account: account,
		From:    from,
		To:      to,
		Rows:    []LedgerRow{},
	}

	balance := decimal.Zero
	for _, e := range entries {
		if e.Status != StatusPosted {
			continue
		}
		debit, credit := decimal.Zero, decimal.Zero
		for _, l := range e.Lines {
			if l.AccountID != accountID {
				continue
			}
			debit = debit.Add(l.Debit)
			credit = credit.Add(l.Credit)
		}
		if debit.IsZero() && credit.IsZero() {
			continue
		}
		balance = balance.Add(NetBalance(account.Type, debit, credit))

		if e.Date.Before(from) {
			report.OpeningBalance = balance
			continue
		}
		report.Rows = append(report.Rows, LedgerRow{
			EntryID:        e.ID,
			EntryNumber:    e.EntryNumber,
			Date:           e.Date,
			Description:    e.Description,
			ReferenceType:  e.ReferenceType,
			Debit:          debit,
			Credit:         credit,
			RunningBalance: balance,
		})
	}
	report.ClosingBalance = balance
	return report, nil
}

// ReplayBalance reconstructs an account's debit/credit accumulators from
// the full entry log. The round-trip law says this must equal the
// incrementally maintained balances for any sequence of posts/reversals.
func (q *Query) ReplayBalance(ctx context.Context, accountID string) (debit, credit decimal.Decimal, err error) {
	entries, err := q.store.ListEntries(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.Status != StatusPosted {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountID != accountID {
				continue
			}
			debit = debit.Add(l.Debit)
			credit = credit.Add(l.Credit)
		}
	}
	return debit, credit, nil
}
