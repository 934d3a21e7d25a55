// Package memory is an in-process store.Store used by tests and local runs.
//
// A unit of work holds the store-wide mutex for its whole duration, which gives it the same
// serializable view a row-locking database transaction would. Writes made inside WithTx are
// recorded in an undo log and reverted if the function returns an error.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
)

type accountKey struct {
	businessID uuid.UUID
	typ        models.AccountType
	ownerID    uuid.UUID
	currency   models.Currency
}

type transactionLimitKey struct {
	businessID uuid.UUID
	typ        models.TransactionLimitType
	ownerID    uuid.UUID
}

type tables struct {
	ledgerAccounts    map[uuid.UUID]models.LedgerAccount
	journalEntries    map[uuid.UUID]models.JournalEntry
	accounts          map[uuid.UUID]models.Account
	accountsByOwner   map[accountKey]uuid.UUID
	adjustments       []models.Adjustment
	holds             map[uuid.UUID]models.Hold
	businessLimits    map[uuid.UUID]models.BusinessLimit
	transactionLimits map[transactionLimitKey]models.TransactionLimit
	cards             map[string]models.Card
	networkMessages   map[uuid.UUID]models.NetworkMessage
	activity          []models.AccountActivity
}

// MemoryStore implements store.Store in memory
type MemoryStore struct {
	*view
	mu sync.Mutex
	t  *tables
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		t: &tables{
			ledgerAccounts:    make(map[uuid.UUID]models.LedgerAccount),
			journalEntries:    make(map[uuid.UUID]models.JournalEntry),
			accounts:          make(map[uuid.UUID]models.Account),
			accountsByOwner:   make(map[accountKey]uuid.UUID),
			holds:             make(map[uuid.UUID]models.Hold),
			businessLimits:    make(map[uuid.UUID]models.BusinessLimit),
			transactionLimits: make(map[transactionLimitKey]models.TransactionLimit),
			cards:             make(map[string]models.Card),
			networkMessages:   make(map[uuid.UUID]models.NetworkMessage),
		},
	}
	s.view = &view{s: s, autocommit: true}
	return s
}

// WithTx runs fn with exclusive access to the store, reverting its writes if it fails
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &view{s: s}
	err := fn(tx)
	tx.done = true
	if err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
	}
	return err
}

// view runs operations against the tables. Outside a unit of work every call locks
// the store on its own and is committed immediately.
type view struct {
	s          *MemoryStore
	autocommit bool
	done       bool
	undo       []func()
}

func (v *view) enter() (*tables, func(), error) {
	if v.autocommit {
		v.s.mu.Lock()
		return v.s.t, v.s.mu.Unlock, nil
	}
	if v.done {
		return nil, nil, fmt.Errorf("memory store: transaction already finished")
	}
	return v.s.t, func() {}, nil
}

func (v *view) onRollback(fn func()) {
	if !v.autocommit {
		v.undo = append(v.undo, fn)
	}
}

func duplicate(what string) error {
	return fmt.Errorf("%w: %s", store.ErrDuplicate, what)
}

func (v *view) InsertLedgerAccount(ctx context.Context, la *models.LedgerAccount) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	if _, ok := t.ledgerAccounts[la.ID]; ok {
		return duplicate("ledger_account_pkey")
	}
	t.ledgerAccounts[la.ID] = *la
	v.onRollback(func() { delete(t.ledgerAccounts, la.ID) })
	return nil
}

func (v *view) EnsureLedgerAccount(ctx context.Context, la *models.LedgerAccount) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	if _, ok := t.ledgerAccounts[la.ID]; ok {
		return nil
	}
	t.ledgerAccounts[la.ID] = *la
	v.onRollback(func() { delete(t.ledgerAccounts, la.ID) })
	return nil
}

func (v *view) GetLedgerAccount(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	la, ok := t.ledgerAccounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &la, nil
}

func (v *view) InsertJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	if _, ok := t.journalEntries[entry.ID]; ok {
		return duplicate("journal_entry_pkey")
	}
	for _, p := range entry.Postings {
		if _, ok := t.ledgerAccounts[p.LedgerAccountID]; !ok {
			return fmt.Errorf("posting %s: ledger account %s does not exist", p.ID, p.LedgerAccountID)
		}
	}
	stored := *entry
	stored.Postings = append([]models.Posting(nil), entry.Postings...)
	t.journalEntries[entry.ID] = stored
	v.onRollback(func() { delete(t.journalEntries, entry.ID) })
	return nil
}

func (v *view) GetJournalEntry(ctx context.Context, id uuid.UUID) (*models.JournalEntry, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	entry, ok := t.journalEntries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	entry.Postings = append([]models.Posting(nil), entry.Postings...)
	return &entry, nil
}

func keyOf(a *models.Account) accountKey {
	return accountKey{businessID: a.BusinessID, typ: a.Type, ownerID: a.OwnerID, currency: a.Currency()}
}

func readAccount(a models.Account) *models.Account {
	a.AvailableBalance = a.LedgerBalance
	a.Holds = nil
	return &a
}

func (v *view) InsertAccount(ctx context.Context, account *models.Account) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	key := keyOf(account)
	if _, ok := t.accounts[account.ID]; ok {
		return duplicate("account_pkey")
	}
	if _, ok := t.accountsByOwner[key]; ok {
		return duplicate("account_business_id_type_owner_id_currency_key")
	}
	stored := *account
	stored.Holds = nil
	t.accounts[account.ID] = stored
	t.accountsByOwner[key] = account.ID
	v.onRollback(func() {
		delete(t.accounts, account.ID)
		delete(t.accountsByOwner, key)
	})
	return nil
}

func (v *view) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	a, ok := t.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return readAccount(a), nil
}

func (v *view) GetAccountByOwner(ctx context.Context, businessID uuid.UUID, typ models.AccountType, ownerID uuid.UUID, currency models.Currency) (*models.Account, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	id, ok := t.accountsByOwner[accountKey{businessID: businessID, typ: typ, ownerID: ownerID, currency: currency}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return readAccount(t.accounts[id]), nil
}

// LockAccount is GetAccount: the unit of work already owns the whole store
func (v *view) LockAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return v.GetAccount(ctx, id)
}

func (v *view) UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance models.Amount, version int) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	a, ok := t.accounts[id]
	if !ok || a.Version != version {
		return fmt.Errorf("account %s: %w", id, store.ErrOptimisticLock)
	}
	previous := a
	a.LedgerBalance = balance
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	t.accounts[id] = a
	v.onRollback(func() { t.accounts[id] = previous })
	return nil
}

func (v *view) InsertAdjustment(ctx context.Context, adjustment *models.Adjustment) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	for _, a := range t.adjustments {
		if a.ID == adjustment.ID {
			return duplicate("adjustment_pkey")
		}
	}
	n := len(t.adjustments)
	t.adjustments = append(t.adjustments, *adjustment)
	v.onRollback(func() { t.adjustments = t.adjustments[:n] })
	return nil
}

func (v *view) GetAdjustment(ctx context.Context, id uuid.UUID) (*models.Adjustment, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	for _, a := range t.adjustments {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v *view) ListAdjustments(ctx context.Context, q store.AdjustmentQuery) ([]models.Adjustment, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	var result []models.Adjustment
	for _, a := range t.adjustments {
		if q.BusinessID != nil && a.BusinessID != *q.BusinessID {
			continue
		}
		if q.AccountID != nil && a.AccountID != *q.AccountID {
			continue
		}
		if len(q.Types) > 0 && !containsType(q.Types, a.Type) {
			continue
		}
		if q.From != nil && !a.EffectiveDate.After(*q.From) {
			continue
		}
		if q.To != nil && a.EffectiveDate.After(*q.To) {
			continue
		}
		result = append(result, a)
	}
	sortStable(result, func(a, b models.Adjustment) bool { return a.EffectiveDate.Before(b.EffectiveDate) })
	return result, nil
}

func containsType(types []models.AdjustmentType, typ models.AdjustmentType) bool {
	for _, t := range types {
		if t == typ {
			return true
		}
	}
	return false
}
