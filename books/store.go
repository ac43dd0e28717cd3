/*
store.go - Persistence interface for accounts and journal entries

PURPOSE:
  Defines the interface between the domain services and the database.
  Two logical collections: accounts and journal entries (entries embed
  their line array). Different implementations can use SQLite or
  in-memory storage.

KEY INTERFACES:
  Store:   Account CRUD + entry append/load/flag
  TxStore: Store plus WithTx for atomic multi-record writes

ENTRY SEMANTICS:
  Entries are append-mostly. The ONLY mutation after AppendEntry is
  MarkEntryReversed, which flags the entry; the log itself is never
  rewritten. Posting an entry and applying its balance deltas to accounts
  happens inside a single WithTx unit - a crash can never leave the entry
  persisted with the account updates missing.

ORDERING:
  ListEntries and ListEntriesInRange return entries ordered by date, with
  ties broken by insertion order. Ledger walks and statement generation
  rely on this.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - books/store/memory.go:  In-memory for testing/dev

SEE ALSO:
  - poster.go: Uses WithTx for atomic posting
  - statements.go: Read-only consumer of the entry log
*/
package books

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Persistence for the two collections
// =============================================================================

// Store handles persistence of accounts and journal entries.
type Store interface {
	// InsertAccount persists a new account. Fails if the ID exists.
	InsertAccount(ctx context.Context, a Account) error

	// UpdateAccount overwrites an existing account. Fails with ErrNotFound
	// if the ID is unknown.
	UpdateAccount(ctx context.Context, a Account) error

	// DeleteAccount removes an account. The caller is responsible for the
	// dependent-entries check; the store just deletes.
	DeleteAccount(ctx context.Context, id string) error

	// GetAccount fetches an account by ID.
	GetAccount(ctx context.Context, id string) (Account, error)

	// GetAccountByCode fetches an account by its unique code.
	GetAccountByCode(ctx context.Context, code string) (Account, error)

	// ListAccounts returns all accounts, sorted by code.
	ListAccounts(ctx context.Context) ([]Account, error)

	// AppendEntry persists a journal entry with its embedded lines.
	AppendEntry(ctx context.Context, e JournalEntry) error

	// MarkEntryReversed flags an entry as reversed. This is the only
	// permitted mutation of a persisted entry.
	MarkEntryReversed(ctx context.Context, id string) error

	// GetEntry fetches an entry by ID.
	GetEntry(ctx context.Context, id string) (JournalEntry, error)

	// ListEntries returns all entries ordered by date, insertion order
	// breaking ties.
	ListEntries(ctx context.Context) ([]JournalEntry, error)

	// ListEntriesInRange returns entries with from <= date <= to, same
	// ordering as ListEntries. Zero time bounds mean unbounded.
	ListEntriesInRange(ctx context.Context, from, to time.Time) ([]JournalEntry, error)

	// CountEntries returns the total number of persisted entries,
	// reversed ones included. Used for entry-number assignment.
	CountEntries(ctx context.Context) (int, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
// Posting and reversal each run entirely inside one WithTx call.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns an error, every write made inside it is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
