/*
statements.go - Financial statement generation

PURPOSE:
  Derives the Trial Balance, Income Statement, Balance Sheet, and Cash
  Flow Statement from the entry log and the chart of accounts.

KEY INSIGHT:
  Statements NEVER read the denormalized balance fields on accounts.
  They fold the immutable entry log, so a snapshot of the log is a
  consistent snapshot - statement generation can run concurrently with
  posting without observing a half-applied entry.

LENIENT READS:
  A line whose account has since been deleted is skipped, never an
  error. This asymmetry (strict writes, lenient reads) is deliberate.

YEAR-END:
  The balance sheet derives "current year earnings" by re-running the
  income statement from January 1 of the as-of year. Income is never
  closed into retained earnings.

SEE ALSO:
  - types.go: NetBalance, the sign convention every fold goes through
  - query.go: Per-account walks over the same log
*/
package books

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Statements generates financial reports from the entry log.
type Statements struct {
	store Store
}

// NewStatements creates a Statements generator over the given store.
func NewStatements(store Store) *Statements {
	return &Statements{store: store}
}

// =============================================================================
// FOLDING - Shared accumulation over the entry log
// =============================================================================

// accountTotals is the fold state for one account.
type accountTotals struct {
	debit  decimal.Decimal
	credit decimal.Decimal
}

// foldEntries accumulates per-account debit/credit totals over posted
// entries with from <= date <= to. Lines referencing unknown accounts are
// skipped.
func foldEntries(entries []JournalEntry, accounts map[string]Account, from, to time.Time) map[string]accountTotals {
	totals := make(map[string]accountTotals)
	for _, e := range entries {
		if e.Status != StatusPosted {
			continue
		}
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !to.IsZero() && e.Date.After(to) {
			continue
		}
		for _, l := range e.Lines {
			if _, ok := accounts[l.AccountID]; !ok {
				continue
			}
			t := totals[l.AccountID]
			t.debit = t.debit.Add(l.Debit)
			t.credit = t.credit.Add(l.Credit)
			totals[l.AccountID] = t
		}
	}
	return totals
}

func (g *Statements) load(ctx context.Context) ([]JournalEntry, map[string]Account, []Account, error) {
	entries, err := g.store.ListEntries(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	list, err := g.store.ListAccounts(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	byID := make(map[string]Account, len(list))
	for _, a := range list {
		byID[a.ID] = a
	}
	return entries, byID, list, nil
}

// =============================================================================
// TRIAL BALANCE
// =============================================================================

// TrialBalanceRow presents one account's balance on its normal side.
type TrialBalanceRow struct {
	AccountID   string          `json:"account_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        AccountType     `json:"type"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// TrialBalanceTotals carries the column sums and their difference,
// expected ~0 for any sequence of valid posted entries.
type TrialBalanceTotals struct {
	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
	Difference decimal.Decimal `json:"difference"`
}

// TrialBalanceReport is a snapshot of every nonzero account balance.
type TrialBalanceReport struct {
	AsOf   time.Time          `json:"as_of"`
	Rows   []TrialBalanceRow  `json:"rows"`
	Totals TrialBalanceTotals `json:"totals"`
}

// TrialBalance folds all entries dated on or before asOf. Zero-balance
// and inactive accounts are omitted. A positive balance for an
// asset/expense account is presented in the debit column; for
// liability/equity/revenue, in the credit column. Negative balances flip
// to the opposite column.
func (g *Statements) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalanceReport, error) {
	entries, byID, list, err := g.load(ctx)
	if err != nil {
		return TrialBalanceReport{}, err
	}
	totals := foldEntries(entries, byID, time.Time{}, asOf)

	report := TrialBalanceReport{AsOf: asOf, Rows: []TrialBalanceRow{}}
	for _, a := range list {
		if !a.IsActive {
			continue
		}
		t := totals[a.ID]
		net := NetBalance(a.Type, t.debit, t.credit)
		if net.IsZero() {
			continue
		}
		row := TrialBalanceRow{
			AccountID: a.ID,
			Code:      a.Code,
			Name:      a.Name,
			Type:      a.Type,
		}
		side := a.Type.NormalSide()
		if net.IsNegative() {
			net = net.Neg()
			if side == SideDebit {
				side = SideCredit
			} else {
				side = SideDebit
			}
		}
		if side == SideDebit {
			row.Debit = net
		} else {
			row.Credit = net
		}
		report.Rows = append(report.Rows, row)
		report.Totals.Debit = report.Totals.Debit.Add(row.Debit)
		report.Totals.Credit = report.Totals.Credit.Add(row.Credit)
	}
	report.Totals.Difference = report.Totals.Debit.Sub(report.Totals.Credit).Abs()
	return report, nil
}

// =============================================================================
// INCOME STATEMENT
// =============================================================================

// StatementLine is one account's contribution to a statement section.
type StatementLine struct {
	AccountID string          `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// IncomeStatementReport covers a period: revenue, cost of sales, operating
// expenses, and the derived profit figures.
type IncomeStatementReport struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	Revenue           []StatementLine `json:"revenue"`
	CostOfSales       []StatementLine `json:"cost_of_sales"`
	OperatingExpenses []StatementLine `json:"operating_expenses"`

	TotalRevenue           decimal.Decimal `json:"total_revenue"`
	TotalCostOfSales       decimal.Decimal `json:"total_cost_of_sales"`
	TotalOperatingExpenses decimal.Decimal `json:"total_operating_expenses"`

	GrossProfit decimal.Decimal `json:"gross_profit"`
	NetProfit   decimal.Decimal `json:"net_profit"`

	// Margins are percentages (profit / revenue * 100), 0 when revenue is 0.
	GrossMargin decimal.Decimal `json:"gross_margin"`
	NetMargin   decimal.Decimal `json:"net_margin"`
}

var hundred = decimal.NewFromInt(100)

// IncomeStatement folds entries within [from, to]. Expense accounts with
// subtype cost_of_sales (or a code starting with "50") count as cost of
// sales; every other expense is operating.
func (g *Statements) IncomeStatement(ctx context.Context, from, to time.Time) (IncomeStatementReport, error) {
	entries, byID, list, err := g.load(ctx)
	if err != nil {
		return IncomeStatementReport{}, err
	}
	totals := foldEntries(entries, byID, from, to)

	report := IncomeStatementReport{
		From:              from,
		To:                to,
		Revenue:           []StatementLine{},
		CostOfSales:       []StatementLine{},
		OperatingExpenses: []StatementLine{},
	}

	for _, a := range list {
		t, ok := totals[a.ID]
		if !ok {
			continue
		}
		net := NetBalance(a.Type, t.debit, t.credit)
		if net.IsZero() {
			continue
		}
		line := StatementLine{AccountID: a.ID, Code: a.Code, Name: a.Name, Amount: net}
		switch a.Type {
		case TypeRevenue:
			report.Revenue = append(report.Revenue, line)
			report.TotalRevenue = report.TotalRevenue.Add(net)
		case TypeExpense:
			if isCostOfSales(a) {
				report.CostOfSales = append(report.CostOfSales, line)
				report.TotalCostOfSales = report.TotalCostOfSales.Add(net)
			} else {
				report.OperatingExpenses = append(report.OperatingExpenses, line)
				report.TotalOperatingExpenses = report.TotalOperatingExpenses.Add(net)
			}
		}
	}

	report.GrossProfit = report.TotalRevenue.Sub(report.TotalCostOfSales)
	report.NetProfit = report.GrossProfit.Sub(report.TotalOperatingExpenses)
	if !report.TotalRevenue.IsZero() {
		report.GrossMargin = report.GrossProfit.Div(report.TotalRevenue).Mul(hundred).Round(2)
		report.NetMargin = report.NetProfit.Div(report.TotalRevenue).Mul(hundred).Round(2)
	}
	return report, nil
}

func isCostOfSales(a Account) bool {
	if a.Subtype == SubtypeCostOfSales {
		return true
	}
	return len(a.Code) >= 2 && a.Code[:2] == "50"
}

// =============================================================================
// BALANCE SHEET
// =============================================================================

// BalanceCheck reports whether the balance sheet equation holds.
type BalanceCheck struct {
	IsBalanced bool            `json:"is_balanced"`
	Difference decimal.Decimal `json:"difference"`
}

// BalanceSheetReport is assets vs liabilities + equity + period earnings.
type BalanceSheetReport struct {
	AsOf time.Time `json:"as_of"`

	CurrentAssets           []StatementLine `json:"current_assets"`
	FixedAssets             []StatementLine `json:"fixed_assets"`
	AccumulatedDepreciation []StatementLine `json:"accumulated_depreciation"`
	Liabilities             []StatementLine `json:"liabilities"`
	Equity                  []StatementLine `json:"equity"`

	TotalCurrentAssets            decimal.Decimal `json:"total_current_assets"`
	TotalFixedAssets              decimal.Decimal `json:"total_fixed_assets"`
	TotalAccumulatedDepreciation  decimal.Decimal `json:"total_accumulated_depreciation"`
	TotalAssets                   decimal.Decimal `json:"total_assets"`
	TotalLiabilities              decimal.Decimal `json:"total_liabilities"`
	TotalEquity                   decimal.Decimal `json:"total_equity"`
	CurrentYearEarnings           decimal.Decimal `json:"current_year_earnings"`
	TotalLiabilitiesAndEquity     decimal.Decimal `json:"total_liabilities_and_equity"`

	Check BalanceCheck `json:"balance_check"`
}

// BalanceSheet folds entries dated on or before asOf. Fixed assets are
// reported net of accumulated-depreciation contra accounts. Current-year
// earnings re-run the income statement from January 1 of asOf's year;
// income is never closed into retained earnings.
func (g *Statements) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheetReport, error) {
	entries, byID, list, err := g.load(ctx)
	if err != nil {
		return BalanceSheetReport{}, err
	}
	totals := foldEntries(entries, byID, time.Time{}, asOf)

	report := BalanceSheetReport{
		AsOf:                    asOf,
		CurrentAssets:           []StatementLine{},
		FixedAssets:             []StatementLine{},
		AccumulatedDepreciation: []StatementLine{},
		Liabilities:             []StatementLine{},
		Equity:                  []StatementLine{},
	}

	for _, a := range list {
		t, ok := totals[a.ID]
		if !ok {
			continue
		}
		net := NetBalance(a.Type, t.debit, t.credit)
		if net.IsZero() {
			continue
		}
		line := StatementLine{AccountID: a.ID, Code: a.Code, Name: a.Name, Amount: net}
		switch a.Type {
		case TypeAsset:
			report.TotalAssets = report.TotalAssets.Add(net)
			switch a.Subtype {
			case SubtypeFixedAsset:
				report.FixedAssets = append(report.FixedAssets, line)
				report.TotalFixedAssets = report.TotalFixedAssets.Add(net)
			case SubtypeAccumDepreciation:
				// Contra-asset: present as a positive reduction.
				line.Amount = net.Neg()
				report.AccumulatedDepreciation = append(report.AccumulatedDepreciation, line)
				report.TotalAccumulatedDepreciation = report.TotalAccumulatedDepreciation.Add(line.Amount)
			default:
				report.CurrentAssets = append(report.CurrentAssets, line)
				report.TotalCurrentAssets = report.TotalCurrentAssets.Add(net)
			}
		case TypeLiability:
			report.Liabilities = append(report.Liabilities, line)
			report.TotalLiabilities = report.TotalLiabilities.Add(net)
		case TypeEquity:
			report.Equity = append(report.Equity, line)
			report.TotalEquity = report.TotalEquity.Add(net)
		}
	}

	yearStart := time.Date(asOf.Year(), time.January, 1, 0, 0, 0, 0, asOf.Location())
	income, err := g.IncomeStatement(ctx, yearStart, asOf)
	if err != nil {
		return BalanceSheetReport{}, err
	}
	report.CurrentYearEarnings = income.NetProfit
	report.TotalLiabilitiesAndEquity = report.TotalLiabilities.
		Add(report.TotalEquity).
		Add(report.CurrentYearEarnings)

	diff := report.TotalAssets.Sub(report.TotalLiabilitiesAndEquity).Abs()
	report.Check = BalanceCheck{
		IsBalanced: diff.LessThan(BalanceTolerance),
		Difference: diff,
	}
	return report, nil
}

// =============================================================================
// CASH FLOW STATEMENT
// =============================================================================

// CashFlowItem is one entry's cash effect (positive = inflow).
type CashFlowItem struct {
	EntryID     string          `json:"entry_id"`
	EntryNumber string          `json:"entry_number"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// CashFlowSection groups items for one activity class.
type CashFlowSection struct {
	Items []CashFlowItem  `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// CashFlowReport reconciles cash movement over a period.
type CashFlowReport struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	Operating CashFlowSection `json:"operating"`
	Investing CashFlowSection `json:"investing"`
	Financing CashFlowSection `json:"financing"`

	NetChange   decimal.Decimal `json:"net_change"`
	CashAtStart decimal.Decimal `json:"cash_at_start"`
	CashAtEnd   decimal.Decimal `json:"cash_at_end"`
}

// CashFlow classifies every cash movement in [from, to] into operating,
// investing, or financing activity. Cash accounts are those with subtype
// cash or bank. Classification comes from the entry's activity tag when
// present, otherwise from its reference type. Reconciles
// CashAtEnd = CashAtStart + NetChange.
func (g *Statements) CashFlow(ctx context.Context, from, to time.Time) (CashFlowReport, error) {
	entries, byID, list, err := g.load(ctx)
	if err != nil {
		return CashFlowReport{}, err
	}

	cashIDs := make(map[string]bool)
	for _, a := range list {
		if a.Type == TypeAsset && (a.Subtype == SubtypeCash || a.Subtype == SubtypeBank) {
			cashIDs[a.ID] = true
		}
	}

	report := CashFlowReport{
		From:      from,
		To:        to,
		Operating: CashFlowSection{Items: []CashFlowItem{}},
		Investing: CashFlowSection{Items: []CashFlowItem{}},
		Financing: CashFlowSection{Items: []CashFlowItem{}},
	}

	for _, e := range entries {
		if e.Status != StatusPosted {
			continue
		}
		flow := decimal.Zero
		for _, l := range e.Lines {
			if !cashIDs[l.AccountID] {
				continue
			}
			if _, ok := byID[l.AccountID]; !ok {
				continue
			}
			flow = flow.Add(l.Debit).Sub(l.Credit)
		}
		if flow.IsZero() {
			continue
		}
		if e.Date.Before(from) {
			report.CashAtStart = report.CashAtStart.Add(flow)
			continue
		}
		if !to.IsZero() && e.Date.After(to) {
			continue
		}

		item := CashFlowItem{
			EntryID:     e.ID,
			EntryNumber: e.EntryNumber,
			Date:        e.Date,
			Description: e.Description,
			Amount:      flow,
		}
		section := &report.Operating
		switch classifyActivity(e) {
		case ActivityInvesting:
			section = &report.Investing
		case ActivityFinancing:
			section = &report.Financing
		}
		section.Items = append(section.Items, item)
		section.Total = section.Total.Add(flow)
	}

	report.NetChange = report.Operating.Total.
		Add(report.Investing.Total).
		Add(report.Financing.Total)
	report.CashAtEnd = report.CashAtStart.Add(report.NetChange)
	return report, nil
}

// classifyActivity maps an entry to an activity class: the explicit tag
// wins, then the reference type.
func classifyActivity(e JournalEntry) Activity {
	if e.Activity != "" {
		return e.Activity
	}
	switch e.ReferenceType {
	case RefAssetDisposal:
		return ActivityInvesting
	case RefOpeningBalance:
		return ActivityFinancing
	default:
		return ActivityOperating
	}
}
