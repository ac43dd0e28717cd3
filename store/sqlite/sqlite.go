/*
Package sqlite provides a SQLite-backed implementation of books.TxStore.

PURPOSE:
  Production persistence for the two logical collections: accounts and
  journal entries. Entries embed their line array as JSON - lines are
  never queried independently of their entry, so a document column keeps
  the schema honest about the ownership.

ATOMICITY:
  WithTx wraps a SQL transaction. The Poster runs entry append + every
  account balance update inside one WithTx call, so a failure anywhere
  rolls back everything.

ORDERING:
  Entry reads are ORDER BY date, rowid - chronological with insertion
  order breaking ties, which is what ledger walks and statement
  generation rely on.

WAL MODE:
  Opened with WAL so statement reads don't block posting.

CONCURRENCY:
  sync.RWMutex on top of SQLite's own locking, plus a single connection
  so ":memory:" databases stay coherent. A single "books" instance is
  the scaling unit.

SEE ALSO:
  - books/store.go: Interface definitions
  - books/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/books-engine/books"
)

// Store implements books.TxStore on SQLite.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id             TEXT PRIMARY KEY,
		code           TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		type           TEXT NOT NULL,
		subtype        TEXT NOT NULL DEFAULT '',
		parent_id      TEXT NOT NULL DEFAULT '',
		debit_balance  TEXT NOT NULL DEFAULT '0',
		credit_balance TEXT NOT NULL DEFAULT '0',
		balance        TEXT NOT NULL DEFAULT '0',
		is_active      INTEGER NOT NULL DEFAULT 1,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_type ON accounts(type);

	CREATE TABLE IF NOT EXISTS journal_entries (
		id             TEXT PRIMARY KEY,
		entry_number   TEXT NOT NULL UNIQUE,
		entry_date     TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		reference_type TEXT NOT NULL,
		reference_id   TEXT NOT NULL DEFAULT '',
		activity       TEXT NOT NULL DEFAULT '',
		lines_json     TEXT NOT NULL,
		total_debit    TEXT NOT NULL DEFAULT '0',
		total_credit   TEXT NOT NULL DEFAULT '0',
		status         TEXT NOT NULL,
		created_at     TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_date ON journal_entries(entry_date);
	CREATE INDEX IF NOT EXISTS idx_entries_reference ON journal_entries(reference_type, reference_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// timeLayout is fixed-width (zero-padded nanoseconds, always UTC), so
// lexical ORDER BY and range comparisons on timestamp columns match
// chronological order. RFC3339Nano drops trailing zeros and would not.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) InsertAccount(ctx context.Context, a books.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertAccount(ctx, s.db, a)
}

func insertAccount(ctx context.Context, db dbtx, a books.Account) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts
		(id, code, name, type, subtype, parent_id, debit_balance, credit_balance, balance, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Code, a.Name, string(a.Type), a.Subtype, a.ParentID,
		a.DebitBalance.String(), a.CreditBalance.String(), a.Balance.String(),
		boolToInt(a.IsActive),
		formatTime(a.CreatedAt),
		formatTime(a.UpdatedAt),
	)
	if err != nil && isUniqueViolation(err) {
		return &books.DuplicateCodeError{Code: a.Code}
	}
	return err
}

func (s *Store) UpdateAccount(ctx context.Context, a books.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateAccount(ctx, s.db, a)
}

func updateAccount(ctx context.Context, db dbtx, a books.Account) error {
	res, err := db.ExecContext(ctx, `
		UPDATE accounts
		SET code = ?, name = ?, type = ?, subtype = ?, parent_id = ?,
		    debit_balance = ?, credit_balance = ?, balance = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		a.Code, a.Name, string(a.Type), a.Subtype, a.ParentID,
		a.DebitBalance.String(), a.CreditBalance.String(), a.Balance.String(),
		boolToInt(a.IsActive),
		formatTime(a.UpdatedAt),
		a.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &books.DuplicateCodeError{Code: a.Code}
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &books.NotFoundError{Kind: "account", ID: a.ID}
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAccount(ctx, s.db, id)
}

func deleteAccount(ctx context.Context, db dbtx, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &books.NotFoundError{Kind: "account", ID: id}
	}
	return nil
}

const accountColumns = `id, code, name, type, subtype, parent_id, debit_balance, credit_balance, balance, is_active, created_at, updated_at`

func (s *Store) GetAccount(ctx context.Context, id string) (books.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccountBy(ctx, s.db, "id", id)
}

func (s *Store) GetAccountByCode(ctx context.Context, code string) (books.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccountBy(ctx, s.db, "code", code)
}

func getAccountBy(ctx context.Context, db dbtx, column, value string) (books.Account, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+column+` = ?`, value)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return books.Account{}, &books.NotFoundError{Kind: "account", ID: value}
	}
	return a, err
}

func (s *Store) ListAccounts(ctx context.Context) ([]books.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAccounts(ctx, s.db)
}

func listAccounts(ctx context.Context, db dbtx) ([]books.Account, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []books.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (books.Account, error) {
	var (
		a                    books.Account
		typ                  string
		debit, credit, bal   string
		active               int
		createdAt, updatedAt string
	)
	err := row.Scan(&a.ID, &a.Code, &a.Name, &typ, &a.Subtype, &a.ParentID,
		&debit, &credit, &bal, &active, &createdAt, &updatedAt)
	if err != nil {
		return a, err
	}
	a.Type = books.AccountType(typ)
	a.DebitBalance = parseDecimal(debit)
	a.CreditBalance = parseDecimal(credit)
	a.Balance = parseDecimal(bal)
	a.IsActive = active != 0
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

// =============================================================================
// JOURNAL ENTRIES
// =============================================================================

func (s *Store) AppendEntry(ctx context.Context, e books.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEntry(ctx, s.db, e)
}

func appendEntry(ctx context.Context, db dbtx, e books.JournalEntry) error {
	linesJSON, err := json.Marshal(e.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode lines: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO journal_entries
		(id, entry_number, entry_date, description, reference_type, reference_id, activity, lines_json, total_debit, total_credit, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EntryNumber,
		formatTime(e.Date),
		e.Description, string(e.ReferenceType), e.ReferenceID, string(e.Activity),
		string(linesJSON),
		e.TotalDebit.String(), e.TotalCredit.String(),
		string(e.Status),
		formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

func (s *Store) MarkEntryReversed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markEntryReversed(ctx, s.db, id)
}

func markEntryReversed(ctx context.Context, db dbtx, id string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE journal_entries SET status = ? WHERE id = ?`,
		string(books.StatusReversed), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &books.NotFoundError{Kind: "entry", ID: id}
	}
	return nil
}

const entryColumns = `id, entry_number, entry_date, description, reference_type, reference_id, activity, lines_json, total_debit, total_credit, status, created_at`

func (s *Store) GetEntry(ctx context.Context, id string) (books.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEntry(ctx, s.db, id)
}

func getEntry(ctx context.Context, db dbtx, id string) (books.JournalEntry, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM journal_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return books.JournalEntry{}, &books.NotFoundError{Kind: "entry", ID: id}
	}
	return e, err
}

func (s *Store) ListEntries(ctx context.Context) ([]books.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryEntries(ctx, s.db,
		`SELECT `+entryColumns+` FROM journal_entries ORDER BY entry_date ASC, rowid ASC`)
}

func (s *Store) ListEntriesInRange(ctx context.Context, from, to time.Time) ([]books.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEntriesInRange(ctx, s.db, from, to)
}

func listEntriesInRange(ctx context.Context, db dbtx, from, to time.Time) ([]books.JournalEntry, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "entry_date >= ?")
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		conds = append(conds, "entry_date <= ?")
		args = append(args, formatTime(to))
	}
	query := `SELECT ` + entryColumns + ` FROM journal_entries`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY entry_date ASC, rowid ASC`
	return queryEntries(ctx, db, query, args...)
}

func (s *Store) CountEntries(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countEntries(ctx, s.db)
}

func countEntries(ctx context.Context, db dbtx) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal_entries`).Scan(&n)
	return n, err
}

func queryEntries(ctx context.Context, db dbtx, query string, args ...any) ([]books.JournalEntry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []books.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row scanner) (books.JournalEntry, error) {
	var (
		e                         books.JournalEntry
		entryDate, createdAt      string
		refType, activity, status string
		linesJSON                 string
		totalDebit, totalCredit   string
	)
	err := row.Scan(&e.ID, &e.EntryNumber, &entryDate, &e.Description,
		&refType, &e.ReferenceID, &activity, &linesJSON,
		&totalDebit, &totalCredit, &status, &createdAt)
	if err != nil {
		return e, err
	}
	e.ReferenceType = books.ReferenceType(refType)
	e.Activity = books.Activity(activity)
	e.Status = books.EntryStatus(status)
	e.Date = parseTime(entryDate)
	e.CreatedAt = parseTime(createdAt)
	e.TotalDebit = parseDecimal(totalDebit)
	e.TotalCredit = parseDecimal(totalCredit)
	if err := json.Unmarshal([]byte(linesJSON), &e.Lines); err != nil {
		return e, fmt.Errorf("failed to decode lines for entry %s: %w", e.ID, err)
	}
	return e, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. On error every write
// is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(store books.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes Store calls through the open SQL transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) InsertAccount(ctx context.Context, a books.Account) error {
	return insertAccount(ctx, ts.tx, a)
}

func (ts *txStore) UpdateAccount(ctx context.Context, a books.Account) error {
	return updateAccount(ctx, ts.tx, a)
}

func (ts *txStore) DeleteAccount(ctx context.Context, id string) error {
	return deleteAccount(ctx, ts.tx, id)
}

func (ts *txStore) GetAccount(ctx context.Context, id string) (books.Account, error) {
	return getAccountBy(ctx, ts.tx, "id", id)
}

func (ts *txStore) GetAccountByCode(ctx context.Context, code string) (books.Account, error) {
	return getAccountBy(ctx, ts.tx, "code", code)
}

func (ts *txStore) ListAccounts(ctx context.Context) ([]books.Account, error) {
	return listAccounts(ctx, ts.tx)
}

func (ts *txStore) AppendEntry(ctx context.Context, e books.JournalEntry) error {
	return appendEntry(ctx, ts.tx, e)
}

func (ts *txStore) MarkEntryReversed(ctx context.Context, id string) error {
	return markEntryReversed(ctx, ts.tx, id)
}

func (ts *txStore) GetEntry(ctx context.Context, id string) (books.JournalEntry, error) {
	return getEntry(ctx, ts.tx, id)
}

func (ts *txStore) ListEntries(ctx context.Context) ([]books.JournalEntry, error) {
	return queryEntries(ctx, ts.tx,
		`SELECT `+entryColumns+` FROM journal_entries ORDER BY entry_date ASC, rowid ASC`)
}

func (ts *txStore) ListEntriesInRange(ctx context.Context, from, to time.Time) ([]books.JournalEntry, error) {
	return listEntriesInRange(ctx, ts.tx, from, to)
}

func (ts *txStore) CountEntries(ctx context.Context) (int, error) {
	return countEntries(ctx, ts.tx)
}

// =============================================================================
// HELPERS
// =============================================================================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseDecimal is lenient: anything unparseable reads as zero.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
