/*
Package books provides the core double-entry bookkeeping engine.

PURPOSE:
  This package contains the domain types and services for a double-entry
  ledger: the chart of accounts, balanced journal-entry posting, entry
  reversal, per-account ledger walks, and financial statement generation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: A typed node in the chart of accounts with running balances
  - JournalEntry: A balanced set of debit/credit lines, the unit of posting
  - JournalLine: One leg of an entry, referencing an account
  - ReferenceType: Closed set of originating-event kinds

DESIGN PRINCIPLES:
  1. Precision: All monetary amounts use decimal.Decimal, never float64
  2. Append-mostly: Posted entries are never edited; corrections happen
     via reversal, which flags the entry and applies inverse deltas
  3. Derivability: Statements are computed by replaying the entry log,
     so the denormalized balance fields can always be cross-checked

THE CORE INVARIANT:
  For every entry that reaches StatusPosted:

    |TotalDebit - TotalCredit| < 0.01

  The Poster enforces this before anything is persisted.

SEE ALSO:
  - chart.go: Chart of accounts service
  - poster.go: Entry validation, posting, reversal
  - statements.go: Trial balance, income statement, balance sheet, cash flow
*/
package books

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNT - Typed node in the chart of accounts
// =============================================================================

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeEquity    AccountType = "equity"
	TypeRevenue   AccountType = "revenue"
	TypeExpense   AccountType = "expense"
)

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case TypeAsset, TypeLiability, TypeEquity, TypeRevenue, TypeExpense:
		return true
	}
	return false
}

// CodePrefix returns the leading digit used when generating account codes.
func (t AccountType) CodePrefix() string {
	switch t {
	case TypeAsset:
		return "1"
	case TypeLiability:
		return "2"
	case TypeEquity:
		return "3"
	case TypeRevenue:
		return "4"
	case TypeExpense:
		return "5"
	default:
		return "9"
	}
}

// NormalSide returns the side (debit or credit) that increases balances
// for this account type.
func (t AccountType) NormalSide() Side {
	switch t {
	case TypeAsset, TypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Side is one of the two columns of a double-entry ledger.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Subtype conventions. Subtype is a free-form classifier; statement
// generation only gives meaning to the values below. Anything else falls
// back to type-level classification.
const (
	SubtypeCash              = "cash"
	SubtypeBank              = "bank"
	SubtypeCurrentAsset      = "current_asset"
	SubtypeFixedAsset        = "fixed_asset"
	SubtypeAccumDepreciation = "accumulated_depreciation"
	SubtypeCurrentLiability  = "current_liability"
	SubtypeLongTermLiability = "long_term_liability"
	SubtypeCostOfSales       = "cost_of_sales"
	SubtypeOperatingExpense  = "operating_expense"
	SubtypeOtherIncome       = "other_income"
)

// Account is a node in the chart of accounts.
//
// DebitBalance and CreditBalance accumulate monotonically as entries are
// posted (reversal subtracts the reversed entry's own amounts, restoring
// the pre-post values exactly). Balance is derived per the sign convention
// and is denormalized for cheap reads; statements never trust it.
//
// ParentID is a weak back-reference into the same registry. The registry
// checks that the parent exists but deliberately does NOT validate type
// compatibility between parent and child (a contra-asset parented under a
// plain asset is accepted).
type Account struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Type          AccountType     `json:"type"`
	Subtype       string          `json:"subtype,omitempty"`
	ParentID      string          `json:"parent_id,omitempty"`
	DebitBalance  decimal.Decimal `json:"debit_balance"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	Balance       decimal.Decimal `json:"balance"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NetBalance computes the signed balance for an account type from raw
// debit/credit accumulators:
//
//	asset, expense:             debit - credit
//	liability, equity, revenue: credit - debit
//
// This is THE sign convention. Every place that interprets balances
// (trial balance presentation, statement totals, running ledger balances)
// goes through it.
func NetBalance(t AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if t.NormalSide() == SideDebit {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// Recompute refreshes the derived Balance field from the accumulators.
func (a *Account) Recompute() {
	a.Balance = NetBalance(a.Type, a.DebitBalance, a.CreditBalance)
}

// =============================================================================
// JOURNAL ENTRY - The unit of posting
// =============================================================================

// EntryStatus is the lifecycle state of a journal entry.
type EntryStatus string

const (
	StatusDraft    EntryStatus = "draft"
	StatusPosted   EntryStatus = "posted"
	StatusReversed EntryStatus = "reversed"
)

// ReferenceType identifies the kind of business event an entry originated
// from. Closed set; dispatch happens on these values, never on free-form
// strings.
type ReferenceType string

const (
	RefManual           ReferenceType = "manual"
	RefSale             ReferenceType = "sale"
	RefPurchase         ReferenceType = "purchase"
	RefCashReceipt      ReferenceType = "cash_receipt"
	RefCashDisbursement ReferenceType = "cash_disbursement"
	RefPayroll          ReferenceType = "payroll"
	RefDepreciation     ReferenceType = "depreciation"
	RefAssetDisposal    ReferenceType = "asset_disposal"
	RefOpeningBalance   ReferenceType = "opening_balance"
)

// Activity classifies a cash movement for the cash flow statement.
// Classification is a tag on the entry (set by auto-posting rules), not
// something derived from account postings; entries without a tag fall back
// to a ReferenceType-based default.
type Activity string

const (
	ActivityOperating Activity = "operating"
	ActivityInvesting Activity = "investing"
	ActivityFinancing Activity = "financing"
)

// JournalLine is one leg of a journal entry. AccountID is a weak reference;
// read paths skip lines whose account has since been deleted.
//
// Exactly-one-of-debit-or-credit is NOT enforced: a line may legally carry
// both (rare, but accepted).
type JournalLine struct {
	AccountID   string          `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// JournalEntry is a balanced set of lines recorded against accounts.
// Line order is insertion order and is significant for tie-breaking in
// ledger walks.
type JournalEntry struct {
	ID            string          `json:"id"`
	EntryNumber   string          `json:"entry_number"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	ReferenceType ReferenceType   `json:"reference_type"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	Lines         []JournalLine   `json:"lines"`
	TotalDebit    decimal.Decimal `json:"total_debit"`
	TotalCredit   decimal.Decimal `json:"total_credit"`
	Status        EntryStatus     `json:"status"`
	Activity      Activity        `json:"activity,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Totals sums the entry's lines.
func (e *JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// BalanceTolerance is the maximum allowed |TotalDebit - TotalCredit| for a
// posted entry.
var BalanceTolerance = decimal.RequireFromString("0.01")

// Balanced reports whether the entry's lines balance within tolerance.
func (e *JournalEntry) Balanced() bool {
	debit, credit := e.Totals()
	return debit.Sub(credit).Abs().LessThan(BalanceTolerance)
}

// Touches reports whether any line of the entry references the account.
func (e *JournalEntry) Touches(accountID string) bool {
	for _, l := range e.Lines {
		if l.AccountID == accountID {
			return true
		}
	}
	return false
}

// EntryDraft is the caller-supplied input to Poster.Post. ID, entry number,
// totals, and status are assigned by the Poster.
type EntryDraft struct {
	Date          time.Time     `json:"date"`
	Description   string        `json:"description"`
	ReferenceType ReferenceType `json:"reference_type"`
	ReferenceID   string        `json:"reference_id,omitempty"`
	EntryNumber   string        `json:"entry_number,omitempty"`
	Activity      Activity      `json:"activity,omitempty"`
	Lines         []JournalLine `json:"lines"`
}
