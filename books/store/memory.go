// Package store provides books.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/books-engine/books"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a mutex-guarded in-memory TxStore. Entries keep their
// insertion order; reads return date-ordered copies with insertion order
// breaking ties.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]books.Account
	byCode   map[string]string // code -> account ID
	entries  []books.JournalEntry
	entryIdx map[string]int      // entry ID -> position in entries
	byNumber map[string]struct{} // entry numbers already taken
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]books.Account),
		byCode:   make(map[string]string),
		entryIdx: make(map[string]int),
		byNumber: make(map[string]struct{}),
	}
}

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

func (m *Memory) InsertAccount(_ context.Context, a books.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertAccountLocked(a)
}

func (m *Memory) insertAccountLocked(a books.Account) error {
	if _, ok := m.accounts[a.ID]; ok {
		return &books.ValidationError{Field: "id", Message: "account ID already exists"}
	}
	if _, ok := m.byCode[a.Code]; ok {
		return &books.DuplicateCodeError{Code: a.Code}
	}
	m.accounts[a.ID] = a
	m.byCode[a.Code] = a.ID
	return nil
}

func (m *Memory) UpdateAccount(_ context.Context, a books.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateAccountLocked(a)
}

func (m *Memory) updateAccountLocked(a books.Account) error {
	old, ok := m.accounts[a.ID]
	if !ok {
		return &books.NotFoundError{Kind: "account", ID: a.ID}
	}
	if old.Code != a.Code {
		if _, taken := m.byCode[a.Code]; taken {
			return &books.DuplicateCodeError{Code: a.Code}
		}
		delete(m.byCode, old.Code)
		m.byCode[a.Code] = a.ID
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) DeleteAccount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteAccountLocked(id)
}

func (m *Memory) deleteAccountLocked(id string) error {
	a, ok := m.accounts[id]
	if !ok {
		return &books.NotFoundError{Kind: "account", ID: id}
	}
	delete(m.accounts, id)
	delete(m.byCode, a.Code)
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id string) (books.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAccountLocked(id)
}

func (m *Memory) getAccountLocked(id string) (books.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return books.Account{}, &books.NotFoundError{Kind: "account", ID: id}
	}
	return a, nil
}

func (m *Memory) GetAccountByCode(_ context.Context, code string) (books.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAccountByCodeLocked(code)
}

func (m *Memory) getAccountByCodeLocked(code string) (books.Account, error) {
	id, ok := m.byCode[code]
	if !ok {
		return books.Account{}, &books.NotFoundError{Kind: "account", ID: code}
	}
	return m.accounts[id], nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]books.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAccountsLocked(), nil
}

func (m *Memory) listAccountsLocked() []books.Account {
	result := make([]books.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result
}

// -----------------------------------------------------------------------------
// Entries
// -----------------------------------------------------------------------------

func (m *Memory) AppendEntry(_ context.Context, e books.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEntryLocked(e)
}

func (m *Memory) appendEntryLocked(e books.JournalEntry) error {
	if _, ok := m.entryIdx[e.ID]; ok {
		return &books.ValidationError{Field: "id", Message: "entry ID already exists"}
	}
	// Entry numbers are unique, same as the database schema enforces.
	if _, ok := m.byNumber[e.EntryNumber]; ok {
		return &books.ValidationError{Field: "entry_number", Message: "entry number already exists"}
	}
	e.Lines = append([]books.JournalLine(nil), e.Lines...)
	m.entryIdx[e.ID] = len(m.entries)
	m.byNumber[e.EntryNumber] = struct{}{}
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) MarkEntryReversed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markEntryReversedLocked(id)
}

func (m *Memory) markEntryReversedLocked(id string) error {
	i, ok := m.entryIdx[id]
	if !ok {
		return &books.NotFoundError{Kind: "entry", ID: id}
	}
	m.entries[i].Status = books.StatusReversed
	return nil
}

func (m *Memory) GetEntry(_ context.Context, id string) (books.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEntryLocked(id)
}

func (m *Memory) getEntryLocked(id string) (books.JournalEntry, error) {
	i, ok := m.entryIdx[id]
	if !ok {
		return books.JournalEntry{}, &books.NotFoundError{Kind: "entry", ID: id}
	}
	return copyEntry(m.entries[i]), nil
}

func (m *Memory) ListEntries(_ context.Context) ([]books.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEntriesLocked(time.Time{}, time.Time{}), nil
}

func (m *Memory) ListEntriesInRange(_ context.Context, from, to time.Time) ([]books.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEntriesLocked(from, to), nil
}

func (m *Memory) listEntriesLocked(from, to time.Time) []books.JournalEntry {
	var result []books.JournalEntry
	for _, e := range m.entries {
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !to.IsZero() && e.Date.After(to) {
			continue
		}
		result = append(result, copyEntry(e))
	}
	// Stable sort keeps insertion order within a date.
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}

func (m *Memory) CountEntries(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func copyEntry(e books.JournalEntry) books.JournalEntry {
	e.Lines = append([]books.JournalLine(nil), e.Lines...)
	return e
}

// =============================================================================
// TRANSACTIONS - Snapshot + rollback on error
// =============================================================================

// WithTx executes fn against the live state under the write lock. On error
// the pre-transaction snapshot is restored, so partial writes never become
// visible.
func (m *Memory) WithTx(ctx context.Context, fn func(books.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts map[string]books.Account
	byCode   map[string]string
	entries  []books.JournalEntry
	entryIdx map[string]int
	byNumber map[string]struct{}
}

func (m *Memory) snapshot() memorySnapshot {
	accounts := make(map[string]books.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	byCode := make(map[string]string, len(m.byCode))
	for k, v := range m.byCode {
		byCode[k] = v
	}
	entries := make([]books.JournalEntry, len(m.entries))
	for i, e := range m.entries {
		entries[i] = copyEntry(e)
	}
	entryIdx := make(map[string]int, len(m.entryIdx))
	for k, v := range m.entryIdx {
		entryIdx[k] = v
	}
	byNumber := make(map[string]struct{}, len(m.byNumber))
	for k := range m.byNumber {
		byNumber[k] = struct{}{}
	}
	return memorySnapshot{accounts: accounts, byCode: byCode, entries: entries, entryIdx: entryIdx, byNumber: byNumber}
}

func (m *Memory) restore(s memorySnapshot) {
	m.accounts = s.accounts
	m.byCode = s.byCode
	m.entries = s.entries
	m.entryIdx = s.entryIdx
	m.byNumber = s.byNumber
}

// txView routes Store calls back to the parent's *Locked methods. The
// parent already holds the write lock for the duration of WithTx.
type txView struct {
	parent *Memory
}

func (tv *txView) InsertAccount(_ context.Context, a books.Account) error {
	return tv.parent.insertAccountLocked(a)
}

func (tv *txView) UpdateAccount(_ context.Context, a books.Account) error {
	return tv.parent.updateAccountLocked(a)
}

func (tv *txView) DeleteAccount(_ context.Context, id string) error {
	return tv.parent.deleteAccountLocked(id)
}

func (tv *txView) GetAccount(_ context.Context, id string) (books.Account, error) {
	return tv.parent.getAccountLocked(id)
}

func (tv *txView) GetAccountByCode(_ context.Context, code string) (books.Account, error) {
	return tv.parent.getAccountByCodeLocked(code)
}

func (tv *txView) ListAccounts(_ context.Context) ([]books.Account, error) {
	return tv.parent.listAccountsLocked(), nil
}

func (tv *txView) AppendEntry(_ context.Context, e books.JournalEntry) error {
	return tv.parent.appendEntryLocked(e)
}

func (tv *txView) MarkEntryReversed(_ context.Context, id string) error {
	return tv.parent.markEntryReversedLocked(id)
}

func (tv *txView) GetEntry(_ context.Context, id string) (books.JournalEntry, error) {
	return tv.parent.getEntryLocked(id)
}

func (tv *txView) ListEntries(_ context.Context) ([]books.JournalEntry, error) {
	return tv.parent.listEntriesLocked(time.Time{}, time.Time{}), nil
}

func (tv *txView) ListEntriesInRange(_ context.Context, from, to time.Time) ([]books.JournalEntry, error) {
	return tv.parent.listEntriesLocked(from, to), nil
}

func (tv *txView) CountEntries(_ context.Context) (int, error) {
	return len(tv.parent.entries), nil
}
