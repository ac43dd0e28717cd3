/*
Package autopost translates business events into balanced journal entries.

PURPOSE:
  Non-ledger subsystems (sales, purchasing, payroll, fixed assets) don't
  build journal entries themselves. They raise one of the event types in
  this file; the rule set resolves the accounts each leg needs and
  delegates to the Poster. If any required account cannot be resolved,
  the whole event fails with RuleResolutionError and nothing is posted.

CLOSED UNION:
  Event is a closed tagged union - dispatch is a type switch over the
  concrete payload types below, never over free-form strings. Each event
  kind maps one-to-one onto a books.ReferenceType.

KEY CONCEPTS IN THIS FILE (events.go):
  - Event: The union interface plus one payload struct per business event
  - ReceiptSource / DisbursementPurpose: Closed sets that imply the
    counter-account for plain cash movements
  - DecodeEvent: kind + raw JSON -> typed payload (for the HTTP surface)

SEE ALSO:
  - rules.go: Account resolution and leg construction
  - depreciation.go: Straight-line amounts feeding DepreciationRun
*/
package autopost

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/books-engine/books"
)

// =============================================================================
// EVENT - Closed union of business events the ledger understands
// =============================================================================

// Event is a business event that auto-posting can turn into a journal
// entry. Implementations are exactly the payload structs in this file.
type Event interface {
	// Kind returns the reference type stamped on the resulting entry.
	Kind() books.ReferenceType
}

// SaleInvoice posts: debit Cash or Accounts Receivable for the total;
// credit Sales Revenue for the subtotal and Tax Payable for the tax.
// Tax arrives pre-computed; the ledger never calculates it.
type SaleInvoice struct {
	Date        time.Time       `json:"date"`
	InvoiceID   string          `json:"invoice_id,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	OnCredit    bool            `json:"on_credit"`
	Description string          `json:"description,omitempty"`
}

func (SaleInvoice) Kind() books.ReferenceType { return books.RefSale }

// Total is subtotal plus tax.
func (e SaleInvoice) Total() decimal.Decimal { return e.Subtotal.Add(e.Tax) }

// PurchaseInvoice posts: debit Inventory for the subtotal (plus Input Tax
// Receivable for any tax), credit Cash or Accounts Payable for the total.
type PurchaseInvoice struct {
	Date        time.Time       `json:"date"`
	InvoiceID   string          `json:"invoice_id,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	OnCredit    bool            `json:"on_credit"`
	Description string          `json:"description,omitempty"`
}

func (PurchaseInvoice) Kind() books.ReferenceType { return books.RefPurchase }

// Total is subtotal plus tax.
func (e PurchaseInvoice) Total() decimal.Decimal { return e.Subtotal.Add(e.Tax) }

// ReceiptSource implies the counter-account credited by a cash receipt.
type ReceiptSource string

const (
	ReceiptCustomerPayment   ReceiptSource = "customer_payment"
	ReceiptLoanProceeds      ReceiptSource = "loan_proceeds"
	ReceiptOwnerContribution ReceiptSource = "owner_contribution"
	ReceiptOtherIncome       ReceiptSource = "other_income"
)

// CashReceipt posts: debit Cash, credit the counter-account implied by
// Source.
type CashReceipt struct {
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Source      ReceiptSource   `json:"source"`
	ReferenceID string          `json:"reference_id,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (CashReceipt) Kind() books.ReferenceType { return books.RefCashReceipt }

// DisbursementPurpose implies the counter-account debited by a cash
// disbursement.
type DisbursementPurpose string

const (
	DisbursementSupplierPayment DisbursementPurpose = "supplier_payment"
	DisbursementLoanRepayment   DisbursementPurpose = "loan_repayment"
	DisbursementOwnerDrawing    DisbursementPurpose = "owner_drawing"
	DisbursementExpense         DisbursementPurpose = "expense"
	DisbursementAssetPurchase   DisbursementPurpose = "asset_purchase"
)

// CashDisbursement posts: debit the counter-account implied by Purpose,
// credit Cash. DisbursementExpense requires ExpenseAccountID since "an
// expense" doesn't name a single account.
type CashDisbursement struct {
	Date             time.Time           `json:"date"`
	Amount           decimal.Decimal     `json:"amount"`
	Purpose          DisbursementPurpose `json:"purpose"`
	ExpenseAccountID string              `json:"expense_account_id,omitempty"`
	ReferenceID      string              `json:"reference_id,omitempty"`
	Description      string              `json:"description,omitempty"`
}

func (CashDisbursement) Kind() books.ReferenceType { return books.RefCashDisbursement }

// PayrollRun posts: debit Salaries Expense for the gross total; credit
// Cash for the net total and Deductions Payable for the withheld amount.
// Gross must equal net + deductions.
type PayrollRun struct {
	Date        time.Time       `json:"date"`
	Period      string          `json:"period,omitempty"` // e.g. "2026-08"
	Gross       decimal.Decimal `json:"gross"`
	Deductions  decimal.Decimal `json:"deductions"`
	Net         decimal.Decimal `json:"net"`
	ReferenceID string          `json:"reference_id,omitempty"`
}

func (PayrollRun) Kind() books.ReferenceType { return books.RefPayroll }

// AssetDepreciation is one asset's share of a depreciation run.
type AssetDepreciation struct {
	AssetID string          `json:"asset_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// DepreciationRun aggregates one period's depreciation across assets into
// a single entry: debit Depreciation Expense, credit Accumulated
// Depreciation for the sum.
type DepreciationRun struct {
	Date   time.Time           `json:"date"`
	Period string              `json:"period,omitempty"`
	Assets []AssetDepreciation `json:"assets"`
}

func (DepreciationRun) Kind() books.ReferenceType { return books.RefDepreciation }

// Total sums the per-asset amounts.
func (e DepreciationRun) Total() decimal.Decimal {
	total := decimal.Zero
	for _, a := range e.Assets {
		total = total.Add(a.Amount)
	}
	return total
}

// AssetDisposal posts the retirement of a fixed asset: debit Accumulated
// Depreciation (and Cash, if sold); credit the asset at cost; the
// balancing gain/loss leg lands on whichever side makes the entry
// balance.
type AssetDisposal struct {
	Date                    time.Time       `json:"date"`
	AssetID                 string          `json:"asset_id,omitempty"`
	Cost                    decimal.Decimal `json:"cost"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	Proceeds                decimal.Decimal `json:"proceeds"`
	Description             string          `json:"description,omitempty"`
}

func (AssetDisposal) Kind() books.ReferenceType { return books.RefAssetDisposal }

// =============================================================================
// DECODING - kind + raw JSON -> typed payload
// =============================================================================

// DecodeEvent turns a kind string and a raw JSON payload into the typed
// event. Unknown kinds are a validation error - the set is closed.
func DecodeEvent(kind string, payload json.RawMessage) (Event, error) {
	switch books.ReferenceType(kind) {
	case books.RefSale:
		var e SaleInvoice
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, &books.ValidationError{Field: "payload", Message: err.Error()}
		}
		return e, nil
	case books.RefPurchase:
		var e PurchaseInvoice
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, &books.ValidationError{Field: "payload", Message: err.Error()}
		}
		return e, nil
	case books.RefCashReceipt:
		var e CashReceipt
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, &books.ValidationError{Field: "payload", Message: err.Error()}
		}
		return e, nil
	case books.RefCashDisbursement:
		var e CashDisbursement
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, &books.ValidationError{Field: "payload", Message: err.Error()}
		}
		return e, nil
	case books.RefPayroll:
		var e PayrollRun
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, &books.ValidationError{Field: "payload", Message: err.Error()}
		}
		return e, nil
	case books.RefDepreciation:
		var e DepreciationRun
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, &books.ValidationError{Field: "payload", Message: err.Error()}
		}
		return e, nil
	case books.RefAssetDisposal:
		var e AssetDisposal
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, &books.ValidationError{Field: "payload", Message: err.Error()}
		}
		return e, nil
	default:
		return nil, &books.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown event kind %q", kind)}
	}
}
