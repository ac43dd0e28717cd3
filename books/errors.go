/*
errors.go - Centralized error types for the books engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Sentinel errors support errors.Is; structured errors carry context and
  unwrap to their sentinel.

ERROR CATEGORIES:
  1. Validation errors - Malformed drafts, missing fields
  2. Posting errors    - Unbalanced entries, unknown accounts
  3. Registry errors   - Duplicate codes, blocked deletes
  4. Rule errors       - Auto-posting account resolution failures

CONTRACT:
  Every ledger-mutating operation fails fast with one of these errors and
  persists NOTHING. Read paths are lenient instead: a line whose account
  has been deleted is skipped, and missing numerics default to zero.

USAGE:
  if errors.Is(err, books.ErrUnbalancedEntry) { ... }

  var dup *books.DuplicateCodeError
  if errors.As(err, &dup) { log.Println(dup.Code) }
*/
package books

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when a draft or account spec is malformed.
	ErrValidation = errors.New("validation failed")

	// ErrUnbalancedEntry is returned when an entry's debits and credits
	// differ by 0.01 or more. Nothing is persisted.
	ErrUnbalancedEntry = errors.New("entry does not balance")

	// ErrNotFound is returned when a referenced account or entry doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateCode is returned when an account code collides with an
	// existing account.
	ErrDuplicateCode = errors.New("duplicate account code")

	// ErrHasDependentEntries is returned when deleting an account that is
	// still referenced by journal entry lines.
	ErrHasDependentEntries = errors.New("account has dependent journal entries")

	// ErrRuleResolution is returned when auto-posting cannot resolve a
	// required account. No entry is posted.
	ErrRuleResolution = errors.New("cannot resolve account for posting rule")

	// ErrEntryReversed is returned when reversing an entry that has already
	// been reversed.
	ErrEntryReversed = errors.New("entry already reversed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UnbalancedEntryError reports the totals of a rejected entry.
type UnbalancedEntryError struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("entry does not balance: debits %s, credits %s (difference %s)",
		e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2), e.Difference().StringFixed(2))
}

func (e *UnbalancedEntryError) Unwrap() error { return ErrUnbalancedEntry }

// Difference returns |debits - credits|.
func (e *UnbalancedEntryError) Difference() decimal.Decimal {
	return e.TotalDebit.Sub(e.TotalCredit).Abs()
}

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string // "account" or "entry"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DuplicateCodeError reports the colliding account code.
type DuplicateCodeError struct {
	Code string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("account code %q already exists", e.Code)
}

func (e *DuplicateCodeError) Unwrap() error { return ErrDuplicateCode }

// HasDependentEntriesError reports how many entries block an account delete.
type HasDependentEntriesError struct {
	AccountID string
	Entries   int
}

func (e *HasDependentEntriesError) Error() string {
	return fmt.Sprintf("account %s is referenced by %d journal entries", e.AccountID, e.Entries)
}

func (e *HasDependentEntriesError) Unwrap() error { return ErrHasDependentEntries }

// RuleResolutionError reports which role could not be resolved during
// auto-posting.
type RuleResolutionError struct {
	Role string // logical role, e.g. "sales_revenue"
	Code string // the account code the role mapped to, if any
}

func (e *RuleResolutionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("no account with code %s for role %s", e.Code, e.Role)
	}
	return fmt.Sprintf("no account mapped for role %s", e.Role)
}

func (e *RuleResolutionError) Unwrap() error { return ErrRuleResolution }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing account or entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a uniqueness or dependency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateCode) ||
		errors.Is(err, ErrHasDependentEntries) ||
		errors.Is(err, ErrEntryReversed)
}

// IsClientError reports whether err is due to invalid client input rather
// than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnbalancedEntry) ||
		errors.Is(err, ErrRuleResolution) ||
		IsConflict(err) ||
		IsNotFound(err)
}
