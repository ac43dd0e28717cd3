/*
Package factory provides JSON to Go chart-of-accounts conversion.

PURPOSE:
  Converts JSON chart definitions into books.AccountSpec lists and seeds
  them into a Chart. This enables chart configuration without code
  changes - accountants can define account structures in JSON, and the
  factory creates the proper Go structs.

WHY JSON?
  - Non-developers can modify the chart
  - Easy integration with admin UI
  - Version control for chart definitions
  - Per-tenant chart customization

JSON SCHEMA:
  {
    "name": "Retail chart",
    "accounts": [
      {"code": "1000", "name": "Cash on Hand", "type": "asset", "subtype": "cash"},
      {"code": "1590", "name": "Accumulated Depreciation", "type": "asset",
       "subtype": "accumulated_depreciation", "parent_code": "1590's parent code"}
    ]
  }

KEY FEATURES:
  - Validates JSON structure and account types
  - Resolves parent_code references to parent IDs at seed time
  - Idempotent seeding: codes already in the chart are skipped
  - Ships a default small-business chart as a preset

USAGE:
  f := factory.NewChartFactory()

  // From JSON string
  def, err := f.ParseChart(jsonString)
  err = f.Seed(ctx, chart, def)

  // Built-in preset (recommended starting point)
  err = f.Seed(ctx, chart, factory.DefaultChart())

SEE ALSO:
  - books/chart.go: The Chart service the factory seeds into
  - autopost/rules.go: DefaultRoles, keyed to the default chart's codes
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/warp/books-engine/books"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ChartJSON is the JSON representation of a chart of accounts.
type ChartJSON struct {
	Name     string        `json:"name,omitempty"`
	Accounts []AccountJSON `json:"accounts"`
}

// AccountJSON is one account definition inside a chart.
type AccountJSON struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Subtype    string `json:"subtype,omitempty"`
	ParentCode string `json:"parent_code,omitempty"`
}

// =============================================================================
// CHART FACTORY
// =============================================================================

// ChartFactory converts JSON chart definitions into seeded accounts.
type ChartFactory struct{}

// NewChartFactory creates a new chart factory.
func NewChartFactory() *ChartFactory {
	return &ChartFactory{}
}

// ParseChart parses a JSON string into a validated ChartJSON.
func (f *ChartFactory) ParseChart(jsonStr string) (ChartJSON, error) {
	var cj ChartJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return ChartJSON{}, fmt.Errorf("failed to parse chart JSON: %w", err)
	}
	if err := f.Validate(cj); err != nil {
		return ChartJSON{}, err
	}
	return cj, nil
}

// Validate checks the definition before any account is created.
func (f *ChartFactory) Validate(cj ChartJSON) error {
	if len(cj.Accounts) == 0 {
		return &books.ValidationError{Field: "accounts", Message: "chart must define at least one account"}
	}
	codes := make(map[string]bool, len(cj.Accounts))
	for i, aj := range cj.Accounts {
		if aj.Code == "" {
			return &books.ValidationError{Field: fmt.Sprintf("accounts[%d].code", i), Message: "must not be empty"}
		}
		if aj.Name == "" {
			return &books.ValidationError{Field: fmt.Sprintf("accounts[%d].name", i), Message: "must not be empty"}
		}
		if !books.AccountType(aj.Type).Valid() {
			return &books.ValidationError{
				Field:   fmt.Sprintf("accounts[%d].type", i),
				Message: fmt.Sprintf("unknown account type %q", aj.Type),
			}
		}
		if codes[aj.Code] {
			return &books.DuplicateCodeError{Code: aj.Code}
		}
		codes[aj.Code] = true
	}
	// Parents must be defined earlier in the list so Seed can resolve them
	// in a single pass.
	seen := make(map[string]bool, len(cj.Accounts))
	for i, aj := range cj.Accounts {
		if aj.ParentCode != "" && !seen[aj.ParentCode] {
			return &books.ValidationError{
				Field:   fmt.Sprintf("accounts[%d].parent_code", i),
				Message: fmt.Sprintf("parent %q must be defined before its children", aj.ParentCode),
			}
		}
		seen[aj.Code] = true
	}
	return nil
}

// Seed creates every account in the definition that doesn't already exist.
// Codes already present in the chart are left untouched, so seeding the
// same definition twice is a no-op.
func (f *ChartFactory) Seed(ctx context.Context, chart *books.Chart, cj ChartJSON) error {
	if err := f.Validate(cj); err != nil {
		return err
	}
	idByCode := make(map[string]string, len(cj.Accounts))
	for _, aj := range cj.Accounts {
		if existing, err := chart.GetAccountByCode(ctx, aj.Code); err == nil {
			idByCode[aj.Code] = existing.ID
			continue
		} else if !books.IsNotFound(err) {
			return err
		}

		spec := books.AccountSpec{
			Code:    aj.Code,
			Name:    aj.Name,
			Type:    books.AccountType(aj.Type),
			Subtype: aj.Subtype,
		}
		if aj.ParentCode != "" {
			spec.ParentID = idByCode[aj.ParentCode]
		}
		created, err := chart.AddAccount(ctx, spec)
		if err != nil {
			return fmt.Errorf("seeding account %s: %w", aj.Code, err)
		}
		idByCode[aj.Code] = created.ID
	}
	return nil
}

// =============================================================================
// PRESET CHARTS
// =============================================================================

// DefaultChart is a small-business chart of accounts. Its codes match
// autopost.DefaultRoles, so auto-posting works out of the box.
func DefaultChart() ChartJSON {
	return ChartJSON{
		Name: "Default small-business chart",
		Accounts: []AccountJSON{
			{Code: "1000", Name: "Cash on Hand", Type: "asset", Subtype: books.SubtypeCash},
			{Code: "1010", Name: "Bank Account", Type: "asset", Subtype: books.SubtypeBank},
			{Code: "1100", Name: "Accounts Receivable", Type: "asset", Subtype: books.SubtypeCurrentAsset},
			{Code: "1200", Name: "Inventory", Type: "asset", Subtype: books.SubtypeCurrentAsset},
			{Code: "1300", Name: "Input Tax Receivable", Type: "asset", Subtype: books.SubtypeCurrentAsset},
			{Code: "1500", Name: "Equipment", Type: "asset", Subtype: books.SubtypeFixedAsset},
			{Code: "1590", Name: "Accumulated Depreciation", Type: "asset", Subtype: books.SubtypeAccumDepreciation, ParentCode: "1500"},
			{Code: "2000", Name: "Accounts Payable", Type: "liability", Subtype: books.SubtypeCurrentLiability},
			{Code: "2100", Name: "Tax Payable", Type: "liability", Subtype: books.SubtypeCurrentLiability},
			{Code: "2110", Name: "Payroll Deductions Payable", Type: "liability", Subtype: books.SubtypeCurrentLiability},
			{Code: "2500", Name: "Loans Payable", Type: "liability", Subtype: books.SubtypeLongTermLiability},
			{Code: "3000", Name: "Owner's Capital", Type: "equity"},
			{Code: "3100", Name: "Owner's Drawings", Type: "equity"},
			{Code: "4000", Name: "Sales Revenue", Type: "revenue"},
			{Code: "4100", Name: "Other Income", Type: "revenue", Subtype: books.SubtypeOtherIncome},
			{Code: "4900", Name: "Gain/Loss on Asset Disposal", Type: "revenue", Subtype: books.SubtypeOtherIncome},
			{Code: "5000", Name: "Cost of Goods Sold", Type: "expense", Subtype: books.SubtypeCostOfSales},
			{Code: "5100", Name: "Salaries Expense", Type: "expense", Subtype: books.SubtypeOperatingExpense},
			{Code: "5200", Name: "Depreciation Expense", Type: "expense", Subtype: books.SubtypeOperatingExpense},
			{Code: "5300", Name: "Rent Expense", Type: "expense", Subtype: books.SubtypeOperatingExpense},
			{Code: "5400", Name: "Utilities Expense", Type: "expense", Subtype: books.SubtypeOperatingExpense},
		},
	}
}
