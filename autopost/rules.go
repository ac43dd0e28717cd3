/*
rules.go - Account resolution and leg construction for auto-posting

PURPOSE:
  Turns each business event into a set of (account, debit, credit) legs
  that balance exactly, then delegates to the Poster. The tables here are
  the bookkeeping rules of the whole system:

    Sale invoice        Dr Cash|AR total          Cr Sales subtotal, Tax Payable tax
    Purchase invoice    Dr Inventory subtotal,    Cr Cash|AP total
                        Dr Input Tax tax
    Cash receipt        Dr Cash                   Cr counter (by source)
    Cash disbursement   Dr counter (by purpose)   Cr Cash
    Payroll run         Dr Salaries gross         Cr Cash net, Deductions payable
    Depreciation run    Dr Depreciation expense   Cr Accumulated depreciation
    Asset disposal      Dr Accum. depr., Cash     Cr Asset at cost, gain/loss leg
                                                  on whichever side balances

ROLE RESOLUTION:
  Legs name logical roles (cash, sales_revenue, tax_payable, ...), not
  account IDs. A RoleMap binds each role to an account code; the default
  map matches the built-in chart. A role that maps to no active account
  fails the WHOLE event with RuleResolutionError - nothing is posted, so
  the originating business mutation can abort with it.

SEE ALSO:
  - events.go: The payload types
  - factory/chart.go: The default chart the default RoleMap points into
*/
package autopost

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/books-engine/books"
)

// =============================================================================
// ROLES - Logical account slots the rules post into
// =============================================================================

// Role is a logical account slot referenced by posting rules.
type Role string

const (
	RoleCash                Role = "cash"
	RoleAccountsReceivable  Role = "accounts_receivable"
	RoleInventory           Role = "inventory"
	RoleInputTax            Role = "input_tax"
	RoleFixedAsset          Role = "fixed_asset"
	RoleAccumDepreciation   Role = "accumulated_depreciation"
	RoleAccountsPayable     Role = "accounts_payable"
	RoleTaxPayable          Role = "tax_payable"
	RoleDeductionsPayable   Role = "deductions_payable"
	RoleLoansPayable        Role = "loans_payable"
	RoleOwnerCapital        Role = "owner_capital"
	RoleOwnerDrawings       Role = "owner_drawings"
	RoleSalesRevenue        Role = "sales_revenue"
	RoleOtherIncome         Role = "other_income"
	RoleDisposalGainLoss    Role = "disposal_gain_loss"
	RoleSalariesExpense     Role = "salaries_expense"
	RoleDepreciationExpense Role = "depreciation_expense"
)

// RoleMap binds each role to an account code in the chart.
type RoleMap map[Role]string

// DefaultRoles matches the built-in chart (factory.DefaultChart).
func DefaultRoles() RoleMap {
	return RoleMap{
		RoleCash:                "1000",
		RoleAccountsReceivable:  "1100",
		RoleInventory:           "1200",
		RoleInputTax:            "1300",
		RoleFixedAsset:          "1500",
		RoleAccumDepreciation:   "1590",
		RoleAccountsPayable:     "2000",
		RoleTaxPayable:          "2100",
		RoleDeductionsPayable:   "2110",
		RoleLoansPayable:        "2500",
		RoleOwnerCapital:        "3000",
		RoleOwnerDrawings:       "3100",
		RoleSalesRevenue:        "4000",
		RoleOtherIncome:         "4100",
		RoleDisposalGainLoss:    "4900",
		RoleSalariesExpense:     "5100",
		RoleDepreciationExpense: "5200",
	}
}

// =============================================================================
// RULES - Event -> balanced entry
// =============================================================================

// Rules resolves events into balanced journal entries.
type Rules struct {
	chart  *books.Chart
	poster *books.Poster
	roles  RoleMap
}

// New creates a rule set. A nil roles map falls back to DefaultRoles.
func New(chart *books.Chart, poster *books.Poster, roles RoleMap) *Rules {
	if roles == nil {
		roles = DefaultRoles()
	}
	return &Rules{chart: chart, poster: poster, roles: roles}
}

// Post translates the event into a balanced draft and posts it.
// On RuleResolutionError nothing has been posted; the caller owning the
// originating business record must treat that as its own failure too.
func (r *Rules) Post(ctx context.Context, ev Event) (books.JournalEntry, error) {
	switch e := ev.(type) {
	case SaleInvoice:
		return r.postSale(ctx, e)
	case PurchaseInvoice:
		return r.postPurchase(ctx, e)
	case CashReceipt:
		return r.postReceipt(ctx, e)
	case CashDisbursement:
		return r.postDisbursement(ctx, e)
	case PayrollRun:
		return r.postPayroll(ctx, e)
	case DepreciationRun:
		return r.postDepreciation(ctx, e)
	case AssetDisposal:
		return r.postDisposal(ctx, e)
	default:
		return books.JournalEntry{}, &books.ValidationError{
			Field:   "event",
			Message: fmt.Sprintf("unsupported event type %T", ev),
		}
	}
}

// resolve maps a role to an active account via the RoleMap and chart.
func (r *Rules) resolve(ctx context.Context, role Role) (books.Account, error) {
	code, ok := r.roles[role]
	if !ok {
		return books.Account{}, &books.RuleResolutionError{Role: string(role)}
	}
	account, err := r.chart.GetAccountByCode(ctx, code)
	if err != nil {
		if books.IsNotFound(err) {
			return books.Account{}, &books.RuleResolutionError{Role: string(role), Code: code}
		}
		return books.Account{}, err
	}
	if !account.IsActive {
		return books.Account{}, &books.RuleResolutionError{Role: string(role), Code: code}
	}
	return account, nil
}

func requirePositive(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return &books.ValidationError{Field: field, Message: "must not be negative"}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Sale invoice
// -----------------------------------------------------------------------------

func (r *Rules) postSale(ctx context.Context, e SaleInvoice) (books.JournalEntry, error) {
	if err := requirePositive("subtotal", e.Subtotal); err != nil {
		return books.JournalEntry{}, err
	}
	if err := requirePositive("tax", e.Tax); err != nil {
		return books.JournalEntry{}, err
	}

	debitRole := RoleCash
	if e.OnCredit {
		debitRole = RoleAccountsReceivable
	}
	receivable, err := r.resolve(ctx, debitRole)
	if err != nil {
		return books.JournalEntry{}, err
	}
	revenue, err := r.resolve(ctx, RoleSalesRevenue)
	if err != nil {
		return books.JournalEntry{}, err
	}

	lines := []books.JournalLine{
		{AccountID: receivable.ID, Debit: e.Total(), Description: "Invoice total"},
		{AccountID: revenue.ID, Credit: e.Subtotal, Description: "Sales revenue"},
	}
	if e.Tax.IsPositive() {
		tax, err := r.resolve(ctx, RoleTaxPayable)
		if err != nil {
			return books.JournalEntry{}, err
		}
		lines = append(lines, books.JournalLine{AccountID: tax.ID, Credit: e.Tax, Description: "Sales tax collected"})
	}

	return r.poster.Post(ctx, books.EntryDraft{
		Date:          e.Date,
		Description:   fallback(e.Description, "Sale invoice"),
		ReferenceType: books.RefSale,
		ReferenceID:   e.InvoiceID,
		Activity:      books.ActivityOperating,
		Lines:         lines,
	})
}

// -----------------------------------------------------------------------------
// Purchase invoice
// -----------------------------------------------------------------------------

func (r *Rules) postPurchase(ctx context.Context, e PurchaseInvoice) (books.JournalEntry, error) {
	if err := requirePositive("subtotal", e.Subtotal); err != nil {
		return books.JournalEntry{}, err
	}
	if err := requirePositive("tax", e.Tax); err != nil {
		return books.JournalEntry{}, err
	}

	inventory, err := r.resolve(ctx, RoleInventory)
	if err != nil {
		return books.JournalEntry{}, err
	}
	creditRole := RoleCash
	if e.OnCredit {
		creditRole = RoleAccountsPayable
	}
	payable, err := r.resolve(ctx, creditRole)
	if err != nil {
		return books.JournalEntry{}, err
	}

	lines := []books.JournalLine{
		{AccountID: inventory.ID, Debit: e.Subtotal, Description: "Goods received"},
	}
	if e.Tax.IsPositive() {
		inputTax, err := r.resolve(ctx, RoleInputTax)
		if err != nil {
			return books.JournalEntry{}, err
		}
		lines = append(lines, books.JournalLine{AccountID: inputTax.ID, Debit: e.Tax, Description: "Input tax"})
	}
	lines = append(lines, books.JournalLine{AccountID: payable.ID, Credit: e.Total(), Description: "Invoice total"})

	return r.poster.Post(ctx, books.EntryDraft{
		Date:          e.Date,
		Description:   fallback(e.Description, "Purchase invoice"),
		ReferenceType: books.RefPurchase,
		ReferenceID:   e.InvoiceID,
		Activity:      books.ActivityOperating,
		Lines:         lines,
	})
}

// -----------------------------------------------------------------------------
// Cash receipt / disbursement
// -----------------------------------------------------------------------------

func (r *Rules) postReceipt(ctx context.Context, e CashReceipt) (books.JournalEntry, error) {
	if err := requirePositive("amount", e.Amount); err != nil {
		return books.JournalEntry{}, err
	}

	var (
		counterRole Role
		activity    books.Activity
	)
	switch e.Source {
	case ReceiptCustomerPayment:
		counterRole, activity = RoleAccountsReceivable, books.ActivityOperating
	case ReceiptLoanProceeds:
		counterRole, activity = RoleLoansPayable, books.ActivityFinancing
	case ReceiptOwnerContribution:
		counterRole, activity = RoleOwnerCapital, books.ActivityFinancing
	case ReceiptOtherIncome:
		counterRole, activity = RoleOtherIncome, books.ActivityOperating
	default:
		return books.JournalEntry{}, &books.ValidationError{
			Field:   "source",
			Message: fmt.Sprintf("unknown receipt source %q", e.Source),
		}
	}

	cash, err := r.resolve(ctx, RoleCash)
	if err != nil {
		return books.JournalEntry{}, err
	}
	counter, err := r.resolve(ctx, counterRole)
	if err != nil {
		return books.JournalEntry{}, err
	}

	return r.poster.Post(ctx, books.EntryDraft{
		Date:          e.Date,
		Description:   fallback(e.Description, "Cash receipt: "+string(e.Source)),
		ReferenceType: books.RefCashReceipt,
		ReferenceID:   e.ReferenceID,
		Activity:      activity,
		Lines: []books.JournalLine{
			{AccountID: cash.ID, Debit: e.Amount},
			{AccountID: counter.ID, Credit: e.Amount},
		},
	})
}

func (r *Rules) postDisbursement(ctx context.Context, e CashDisbursement) (books.JournalEntry, error) {
	if err := requirePositive("amount", e.Amount); err != nil {
		return books.JournalEntry{}, err
	}

	var (
		counter  books.Account
		activity books.Activity
		err      error
	)
	switch e.Purpose {
	case DisbursementSupplierPayment:
		counter, err = r.resolve(ctx, RoleAccountsPayable)
		activity = books.ActivityOperating
	case DisbursementLoanRepayment:
		counter, err = r.resolve(ctx, RoleLoansPayable)
		activity = books.ActivityFinancing
	case DisbursementOwnerDrawing:
		counter, err = r.resolve(ctx, RoleOwnerDrawings)
		activity = books.ActivityFinancing
	case DisbursementAssetPurchase:
		counter, err = r.resolve(ctx, RoleFixedAsset)
		activity = books.ActivityInvesting
	case DisbursementExpense:
		if e.ExpenseAccountID == "" {
			return books.JournalEntry{}, &books.ValidationError{
				Field:   "expense_account_id",
				Message: "required for expense disbursements",
			}
		}
		counter, err = r.chart.GetAccount(ctx, e.ExpenseAccountID)
		if books.IsNotFound(err) {
			err = &books.RuleResolutionError{Role: string(DisbursementExpense), Code: e.ExpenseAccountID}
		}
		activity = books.ActivityOperating
	default:
		return books.JournalEntry{}, &books.ValidationError{
			Field:   "purpose",
			Message: fmt.Sprintf("unknown disbursement purpose %q", e.Purpose),
		}
	}
	if err != nil {
		return books.JournalEntry{}, err
	}

	cash, err := r.resolve(ctx, RoleCash)
	if err != nil {
		return books.JournalEntry{}, err
	}

	return r.poster.Post(ctx, books.EntryDraft{
		Date:          e.Date,
		Description:   fallback(e.Description, "Cash disbursement: "+string(e.Purpose)),
		ReferenceType: books.RefCashDisbursement,
		ReferenceID:   e.ReferenceID,
		Activity:      activity,
		Lines: []books.JournalLine{
			{AccountID: counter.ID, Debit: e.Amount},
			{AccountID: cash.ID, Credit: e.Amount},
		},
	})
}

// -----------------------------------------------------------------------------
// Payroll
// -----------------------------------------------------------------------------

func (r *Rules) postPayroll(ctx context.Context, e PayrollRun) (books.JournalEntry, error) {
	for field, amount := range map[string]decimal.Decimal{
		"gross": e.Gross, "deductions": e.Deductions, "net": e.Net,
	} {
		if err := requirePositive(field, amount); err != nil {
			return books.JournalEntry{}, err
		}
	}
	if !e.Gross.Equal(e.Net.Add(e.Deductions)) {
		return books.JournalEntry{}, &books.ValidationError{
			Field:   "gross",
			Message: "gross must equal net + deductions",
		}
	}

	salaries, err := r.resolve(ctx, RoleSalariesExpense)
	if err != nil {
		return books.JournalEntry{}, err
	}
	cash, err := r.resolve(ctx, RoleCash)
	if err != nil {
		return books.JournalEntry{}, err
	}

	lines := []books.JournalLine{
		{AccountID: salaries.ID, Debit: e.Gross, Description: "Gross salaries"},
		{AccountID: cash.ID, Credit: e.Net, Description: "Net pay"},
	}
	if e.Deductions.IsPositive() {
		deductions, err := r.resolve(ctx, RoleDeductionsPayable)
		if err != nil {
			return books.JournalEntry{}, err
		}
		lines = append(lines, books.JournalLine{AccountID: deductions.ID, Credit: e.Deductions, Description: "Withheld deductions"})
	}

	description := "Payroll run"
	if e.Period != "" {
		description = "Payroll run " + e.Period
	}
	return r.poster.Post(ctx, books.EntryDraft{
		Date:          e.Date,
		Description:   description,
		ReferenceType: books.RefPayroll,
		ReferenceID:   e.ReferenceID,
		Activity:      books.ActivityOperating,
		Lines:         lines,
	})
}

// -----------------------------------------------------------------------------
// Depreciation and disposal
// -----------------------------------------------------------------------------

func (r *Rules) postDepreciation(ctx context.Context, e DepreciationRun) (books.JournalEntry, error) {
	if len(e.Assets) == 0 {
		return books.JournalEntry{}, &books.ValidationError{Field: "assets", Message: "run must cover at least one asset"}
	}
	for i, a := range e.Assets {
		if err := requirePositive(fmt.Sprintf("assets[%d].amount", i), a.Amount); err != nil {
			return books.JournalEntry{}, err
		}
	}

	expense, err := r.resolve(ctx, RoleDepreciationExpense)
	if err != nil {
		return books.JournalEntry{}, err
	}
	accum, err := r.resolve(ctx, RoleAccumDepreciation)
	if err != nil {
		return books.JournalEntry{}, err
	}

	total := e.Total()
	description := "Depreciation run"
	if e.Period != "" {
		description = "Depreciation " + e.Period
	}
	return r.poster.Post(ctx, books.EntryDraft{
		Date:          e.Date,
		Description:   description,
		ReferenceType: books.RefDepreciation,
		Activity:      books.ActivityOperating, // non-cash, never reaches the cash flow statement
		Lines: []books.JournalLine{
			{AccountID: expense.ID, Debit: total, Description: fmt.Sprintf("Period depreciation, %d assets", len(e.Assets))},
			{AccountID: accum.ID, Credit: total},
		},
	})
}

func (r *Rules) postDisposal(ctx context.Context, e AssetDisposal) (books.JournalEntry, error) {
	for field, amount := range map[string]decimal.Decimal{
		"cost": e.Cost, "accumulated_depreciation": e.AccumulatedDepreciation, "proceeds": e.Proceeds,
	} {
		if err := requirePositive(field, amount); err != nil {
			return books.JournalEntry{}, err
		}
	}
	if e.Cost.IsZero() {
		return books.JournalEntry{}, &books.ValidationError{Field: "cost", Message: "must be positive"}
	}

	accum, err := r.resolve(ctx, RoleAccumDepreciation)
	if err != nil {
		return books.JournalEntry{}, err
	}
	asset, err := r.resolve(ctx, RoleFixedAsset)
	if err != nil {
		return books.JournalEntry{}, err
	}

	lines := []books.JournalLine{}
	if e.AccumulatedDepreciation.IsPositive() {
		lines = append(lines, books.JournalLine{AccountID: accum.ID, Debit: e.AccumulatedDepreciation, Description: "Remove accumulated depreciation"})
	}
	if e.Proceeds.IsPositive() {
		cash, err := r.resolve(ctx, RoleCash)
		if err != nil {
			return books.JournalEntry{}, err
		}
		lines = append(lines, books.JournalLine{AccountID: cash.ID, Debit: e.Proceeds, Description: "Sale proceeds"})
	}
	lines = append(lines, books.JournalLine{AccountID: asset.ID, Credit: e.Cost, Description: "Remove asset at cost"})

	// Balancing leg: positive = gain (credit), negative = loss (debit).
	gainLoss := e.AccumulatedDepreciation.Add(e.Proceeds).Sub(e.Cost)
	if !gainLoss.IsZero() {
		gl, err := r.resolve(ctx, RoleDisposalGainLoss)
		if err != nil {
			return books.JournalEntry{}, err
		}
		if gainLoss.IsPositive() {
			lines = append(lines, books.JournalLine{AccountID: gl.ID, Credit: gainLoss, Description: "Gain on disposal"})
		} else {
			lines = append(lines, books.JournalLine{AccountID: gl.ID, Debit: gainLoss.Neg(), Description: "Loss on disposal"})
		}
	}

	return r.poster.Post(ctx, books.EntryDraft{
		Date:          e.Date,
		Description:   fallback(e.Description, "Asset disposal"),
		ReferenceType: books.RefAssetDisposal,
		ReferenceID:   e.AssetID,
		Activity:      books.ActivityInvesting,
		Lines:         lines,
	})
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
