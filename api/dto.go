/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO: Response types returned to clients
  Report types (trial balance, statements) already carry JSON tags in the
  domain package and are returned directly.

DATES:
  Request dates arrive as "YYYY-MM-DD" strings and are parsed in the
  handlers; responses use RFC3339 via the domain types' time.Time fields.

VALIDATION:
  Structural validation (parse errors, bad dates) happens in handlers.
  Domain validation (balance, account resolution) happens in the books
  and autopost packages.

SEE ALSO:
  - handlers.go: Uses these types
  - books/types.go: The domain types these map onto
*/
package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/warp/books-engine/books"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// CreateAccountRequest is the request to add an account to the chart.
type CreateAccountRequest struct {
	Code     string `json:"code,omitempty"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Subtype  string `json:"subtype,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// UpdateAccountRequest is a partial account update. Absent fields are left
// unchanged; balances are never updatable through the API.
type UpdateAccountRequest struct {
	Code     *string `json:"code,omitempty"`
	Name     *string `json:"name,omitempty"`
	Subtype  *string `json:"subtype,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// LineRequest is one leg of a manual journal entry.
type LineRequest struct {
	AccountID   string          `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// CreateEntryRequest is the request to post a manual journal entry.
type CreateEntryRequest struct {
	Date        string        `json:"date"` // YYYY-MM-DD
	Description string        `json:"description"`
	ReferenceID string        `json:"reference_id,omitempty"`
	Lines       []LineRequest `json:"lines"`
}

// PostEventRequest is the request to auto-post a business event: a kind
// discriminator plus the kind-specific payload.
type PostEventRequest struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (r CreateEntryRequest) lines() []books.JournalLine {
	lines := make([]books.JournalLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = books.JournalLine{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	return lines
}
