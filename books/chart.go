/*
chart.go - Chart of accounts service

PURPOSE:
  The account registry: create, update, delete, search, and list accounts.
  Owns code uniqueness and code generation; delegates persistence to the
  Store.

CODE GENERATION:
  When no code is supplied, one is generated as <type-prefix><timestamp>:
  1=asset, 2=liability, 3=equity, 4=revenue, 5=expense, else 9. The
  timestamp suffix keeps generated codes unique enough for interactive
  use; callers that care about code schemes supply their own.

DELETE PROTECTION:
  DeleteAccount scans every journal entry (reversed ones included - they
  still reference the account in the audit trail) and refuses with
  HasDependentEntriesError if any line references the account.

HIERARCHY:
  ParentID must reference an existing account. Type compatibility between
  parent and child is NOT validated; a contra-asset under a plain asset
  is accepted.

SEE ALSO:
  - poster.go: Mutates account balances when entries post
  - factory/chart.go: Builds whole charts from JSON definitions
*/
package books

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CHART - Account registry service
// =============================================================================

// Chart is the chart-of-accounts service.
type Chart struct {
	store TxStore
	now   func() time.Time
}

// NewChart creates a Chart backed by the given store.
func NewChart(store TxStore) *Chart {
	return &Chart{store: store, now: time.Now}
}

// AccountSpec is the input to AddAccount.
type AccountSpec struct {
	Code     string      `json:"code,omitempty"`
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	Subtype  string      `json:"subtype,omitempty"`
	ParentID string      `json:"parent_id,omitempty"`
}

// AddAccount registers a new account. Fails with DuplicateCodeError if the
// code collides; generates a code when none is supplied.
func (c *Chart) AddAccount(ctx context.Context, spec AccountSpec) (Account, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return Account{}, &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if !spec.Type.Valid() {
		return Account{}, &ValidationError{Field: "type", Message: fmt.Sprintf("unknown account type %q", spec.Type)}
	}

	code := strings.TrimSpace(spec.Code)
	if code == "" {
		code = c.generateCode(spec.Type)
	}

	now := c.now().UTC()
	account := Account{
		ID:            uuid.NewString(),
		Code:          code,
		Name:          strings.TrimSpace(spec.Name),
		Type:          spec.Type,
		Subtype:       spec.Subtype,
		ParentID:      spec.ParentID,
		DebitBalance:  decimal.Zero,
		CreditBalance: decimal.Zero,
		Balance:       decimal.Zero,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := c.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetAccountByCode(ctx, code); err == nil {
			return &DuplicateCodeError{Code: code}
		} else if !IsNotFound(err) {
			return err
		}
		if account.ParentID != "" {
			if _, err := s.GetAccount(ctx, account.ParentID); err != nil {
				return err
			}
		}
		return s.InsertAccount(ctx, account)
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// generateCode builds <type-prefix><timestamp-suffix>.
func (c *Chart) generateCode(t AccountType) string {
	return fmt.Sprintf("%s%d", t.CodePrefix(), c.now().Unix()%1_000_000)
}

// AccountPatch holds optional updates for UpdateAccount. Nil fields are
// left unchanged. Balances are never patchable; only posting moves them.
type AccountPatch struct {
	Code     *string `json:"code,omitempty"`
	Name     *string `json:"name,omitempty"`
	Subtype  *string `json:"subtype,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UpdateAccount applies a patch. Fails with NotFoundError when the account
// is missing and DuplicateCodeError when a code change collides.
func (c *Chart) UpdateAccount(ctx context.Context, id string, patch AccountPatch) (Account, error) {
	var updated Account
	err := c.store.WithTx(ctx, func(s Store) error {
		account, err := s.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if patch.Code != nil && *patch.Code != account.Code {
			if _, err := s.GetAccountByCode(ctx, *patch.Code); err == nil {
				return &DuplicateCodeError{Code: *patch.Code}
			} else if !IsNotFound(err) {
				return err
			}
			account.Code = *patch.Code
		}
		if patch.Name != nil {
			if strings.TrimSpace(*patch.Name) == "" {
				return &ValidationError{Field: "name", Message: "must not be empty"}
			}
			account.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Subtype != nil {
			account.Subtype = *patch.Subtype
		}
		if patch.ParentID != nil {
			if *patch.ParentID != "" {
				if _, err := s.GetAccount(ctx, *patch.ParentID); err != nil {
					return err
				}
			}
			account.ParentID = *patch.ParentID
		}
		if patch.IsActive != nil {
			account.IsActive = *patch.IsActive
		}
		account.UpdatedAt = c.now().UTC()
		updated = account
		return s.UpdateAccount(ctx, account)
	})
	if err != nil {
		return Account{}, err
	}
	return updated, nil
}

// DeleteAccount removes an account unless any journal entry line still
// references it.
func (c *Chart) DeleteAccount(ctx context.Context, id string) error {
	return c.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetAccount(ctx, id); err != nil {
			return err
		}
		entries, err := s.ListEntries(ctx)
		if err != nil {
			return err
		}
		dependents := 0
		for i := range entries {
			if entries[i].Touches(id) {
				dependents++
			}
		}
		if dependents > 0 {
			return &HasDependentEntriesError{AccountID: id, Entries: dependents}
		}
		return s.DeleteAccount(ctx, id)
	})
}

// GetAccount fetches a single account.
func (c *Chart) GetAccount(ctx context.Context, id string) (Account, error) {
	return c.store.GetAccount(ctx, id)
}

// GetAccountByCode fetches a single account by code.
func (c *Chart) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	return c.store.GetAccountByCode(ctx, code)
}

// SearchAccounts returns active accounts whose name or code contains the
// term, case-insensitively. An empty term matches every active account.
func (c *Chart) SearchAccounts(ctx context.Context, term string) ([]Account, error) {
	accounts, err := c.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	matches := []Account{}
	for _, a := range accounts {
		if !a.IsActive {
			continue
		}
		if term == "" ||
			strings.Contains(strings.ToLower(a.Name), term) ||
			strings.Contains(strings.ToLower(a.Code), term) {
			matches = append(matches, a)
		}
	}
	return matches, nil
}

// ListFilter narrows ListAccounts. Zero values mean "no filter".
type ListFilter struct {
	Type       AccountType
	ActiveOnly bool
}

// ListAccounts returns accounts matching the filter, sorted by code.
func (c *Chart) ListAccounts(ctx context.Context, filter ListFilter) ([]Account, error) {
	accounts, err := c.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	result := []Account{}
	for _, a := range accounts {
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.ActiveOnly && !a.IsActive {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}
