/*
poster.go - Journal entry posting and reversal

PURPOSE:
  The Poster is the ONLY way entries enter or leave the ledger. It
  validates drafts, enforces the balance invariant, and applies the
  entry write plus every account balance delta as one atomic unit.

CRITICAL INVARIANTS:
  1. BALANCED: |total debits - total credits| < 0.01 or nothing persists
  2. ATOMIC: Entry write + all account deltas commit together or not at all
  3. SERIALIZED: Post/Reverse are read-modify-write on shared account
     state; a mutex per Poster serializes them (statements read the
     immutable log and may run concurrently)
  4. REVERSAL RESTORES: Reverse(Post(e)) returns every touched account's
     debit/credit/balance to its exact pre-post values

CORRECTIONS:
  Posted entries are never edited. A correction is Reverse followed by a
  fresh Post. Reversal flags the entry StatusReversed and applies inverse
  deltas; the log keeps the reversed entry for the audit trail, and every
  reader of the log skips reversed entries.

SEE ALSO:
  - store.go: WithTx supplies the atomic unit
  - autopost/rules.go: Builds drafts from business events, then calls Post
*/
package books

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// POSTER - Validates and atomically posts balanced entries
// =============================================================================

// Poster validates and posts journal entries, maintaining account balances
// incrementally.
type Poster struct {
	mu    sync.Mutex
	store TxStore
	now   func() time.Time
}

// NewPoster creates a Poster backed by the given store.
func NewPoster(store TxStore) *Poster {
	return &Poster{store: store, now: time.Now}
}

// Post validates the draft, assigns identity, and persists the entry
// together with all account balance updates in one transaction.
func (p *Poster) Post(ctx context.Context, draft EntryDraft) (JournalEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := validateDraft(draft); err != nil {
		return JournalEntry{}, err
	}

	entry := JournalEntry{
		ID:            uuid.NewString(),
		EntryNumber:   draft.EntryNumber,
		Date:          draft.Date.UTC(),
		Description:   draft.Description,
		ReferenceType: draft.ReferenceType,
		ReferenceID:   draft.ReferenceID,
		Activity:      draft.Activity,
		Lines:         append([]JournalLine(nil), draft.Lines...),
		Status:        StatusPosted,
		CreatedAt:     p.now().UTC(),
	}
	if entry.ReferenceType == "" {
		entry.ReferenceType = RefManual
	}
	entry.TotalDebit, entry.TotalCredit = entry.Totals()

	if !entry.Balanced() {
		return JournalEntry{}, &UnbalancedEntryError{
			TotalDebit:  entry.TotalDebit,
			TotalCredit: entry.TotalCredit,
		}
	}

	err := p.store.WithTx(ctx, func(s Store) error {
		// Resolve every referenced account before writing anything.
		accounts, err := resolveAccounts(ctx, s, entry.Lines)
		if err != nil {
			return err
		}

		if entry.EntryNumber == "" {
			count, err := s.CountEntries(ctx)
			if err != nil {
				return err
			}
			entry.EntryNumber = fmt.Sprintf("JE-%06d", count+1)
		}

		if err := s.AppendEntry(ctx, entry); err != nil {
			return err
		}

		return applyDeltas(ctx, s, accounts, entry.Lines, false, p.now().UTC())
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// Reverse undoes a posted entry: inverse balance deltas on every touched
// account, then the entry is flagged reversed. Atomic, same as Post.
func (p *Poster) Reverse(ctx context.Context, entryID string) (JournalEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var reversed JournalEntry
	err := p.store.WithTx(ctx, func(s Store) error {
		entry, err := s.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Status == StatusReversed {
			return ErrEntryReversed
		}

		accounts, err := resolveAccounts(ctx, s, entry.Lines)
		if err != nil {
			return err
		}
		if err := applyDeltas(ctx, s, accounts, entry.Lines, true, p.now().UTC()); err != nil {
			return err
		}
		if err := s.MarkEntryReversed(ctx, entry.ID); err != nil {
			return err
		}
		entry.Status = StatusReversed
		reversed = entry
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return reversed, nil
}

// Get fetches a single journal entry.
func (p *Poster) Get(ctx context.Context, entryID string) (JournalEntry, error) {
	return p.store.GetEntry(ctx, entryID)
}

// List returns entries in chronological order. Zero bounds are unbounded.
func (p *Poster) List(ctx context.Context, from, to time.Time) ([]JournalEntry, error) {
	return p.store.ListEntriesInRange(ctx, from, to)
}

// =============================================================================
// VALIDATION & DELTA APPLICATION
// =============================================================================

func validateDraft(draft EntryDraft) error {
	if len(draft.Lines) == 0 {
		return &ValidationError{Field: "lines", Message: "entry must have at least one line"}
	}
	if draft.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "must be set"}
	}
	for i, l := range draft.Lines {
		if l.AccountID == "" {
			return &ValidationError{Field: fmt.Sprintf("lines[%d].account_id", i), Message: "must be set"}
		}
		if l.Debit.IsNegative() {
			return &ValidationError{Field: fmt.Sprintf("lines[%d].debit", i), Message: "must not be negative"}
		}
		if l.Credit.IsNegative() {
			return &ValidationError{Field: fmt.Sprintf("lines[%d].credit", i), Message: "must not be negative"}
		}
		if l.Debit.IsZero() && l.Credit.IsZero() {
			return &ValidationError{Field: fmt.Sprintf("lines[%d]", i), Message: "must carry a debit or a credit"}
		}
	}
	return nil
}

// resolveAccounts loads every distinct account referenced by the lines.
// A single unknown reference fails the whole operation.
func resolveAccounts(ctx context.Context, s Store, lines []JournalLine) (map[string]Account, error) {
	accounts := make(map[string]Account)
	for _, l := range lines {
		if _, ok := accounts[l.AccountID]; ok {
			continue
		}
		a, err := s.GetAccount(ctx, l.AccountID)
		if err != nil {
			return nil, err
		}
		accounts[l.AccountID] = a
	}
	return accounts, nil
}

// applyDeltas folds the lines into the account accumulators and writes
// each touched account back. With invert=true the deltas are subtracted,
// which is exactly a reversal.
func applyDeltas(ctx context.Context, s Store, accounts map[string]Account, lines []JournalLine, invert bool, at time.Time) error {
	for _, l := range lines {
		a := accounts[l.AccountID]
		if invert {
			a.DebitBalance = a.DebitBalance.Sub(l.Debit)
			a.CreditBalance = a.CreditBalance.Sub(l.Credit)
		} else {
			a.DebitBalance = a.DebitBalance.Add(l.Debit)
			a.CreditBalance = a.CreditBalance.Add(l.Credit)
		}
		a.Recompute()
		a.UpdatedAt = at
		accounts[l.AccountID] = a
	}
	for _, a := range accounts {
		if err := s.UpdateAccount(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
