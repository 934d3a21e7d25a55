package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
	"github.com/shopspring/decimal"
)

// systemNamespace seeds the deterministic ids of system ledger accounts
var systemNamespace = uuid.MustParse("6f1c2a8e-54b3-4d4e-9a57-0c3c8e7b2d10")

// SystemLedgerAccountID is the id of the single system ledger account of typ in currency
func SystemLedgerAccountID(typ models.LedgerAccountType, currency models.Currency) uuid.UUID {
	return uuid.NewSHA1(systemNamespace, []byte(string(typ)+":"+string(currency)))
}

// LedgerService is the double-entry journal. Record is the only code path that writes postings.
type LedgerService struct {
	clock func() time.Time
}

func NewLedgerService(clock func() time.Time) *LedgerService {
	if clock == nil {
		clock = time.Now
	}
	return &LedgerService{clock: clock}
}

// Record validates and writes one balanced journal entry inside tx
func (s *LedgerService) Record(ctx context.Context, tx store.Tx, postings []models.PostingRequest) (*models.JournalEntry, error) {
	if err := validatePostings(postings); err != nil {
		return nil, err
	}

	entry := &models.JournalEntry{
		ID:        uuid.New(),
		CreatedAt: s.clock(),
	}
	for _, p := range postings {
		entry.Postings = append(entry.Postings, models.Posting{
			ID:              uuid.New(),
			JournalEntryID:  entry.ID,
			LedgerAccountID: p.LedgerAccountID,
			Amount:          p.Amount,
		})
	}

	if err := tx.InsertJournalEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}
	return entry, nil
}

func validatePostings(postings []models.PostingRequest) error {
	if len(postings) < 2 {
		return &UnbalancedEntryError{Reason: fmt.Sprintf("%d postings, need at least two", len(postings))}
	}

	currency := postings[0].Amount.Currency
	seen := make(map[uuid.UUID]bool, len(postings))
	sum := decimal.Zero
	for _, p := range postings {
		if p.Amount.Currency != currency {
			return &UnbalancedEntryError{Reason: fmt.Sprintf("mixed currencies %s and %s", currency, p.Amount.Currency)}
		}
		if err := p.Amount.EnsureScale(); err != nil {
			return err
		}
		if p.Amount.IsZero() {
			return &UnbalancedEntryError{Reason: fmt.Sprintf("zero posting to %s", p.LedgerAccountID)}
		}
		if seen[p.LedgerAccountID] {
			return &UnbalancedEntryError{Reason: fmt.Sprintf("ledger account %s posted twice", p.LedgerAccountID)}
		}
		seen[p.LedgerAccountID] = true
		sum = sum.Add(p.Amount.Amount)
	}

	if !sum.IsZero() {
		return &UnbalancedEntryError{Reason: fmt.Sprintf("postings sum to %s", sum)}
	}
	return nil
}

// SystemLedgerAccount returns the bank, network, fee or manual ledger account for currency,
// creating it on first use.
func (s *LedgerService) SystemLedgerAccount(ctx context.Context, tx store.Tx, typ models.LedgerAccountType, currency models.Currency) (*models.LedgerAccount, error) {
	if typ.IsOwnerType() {
		return nil, fmt.Errorf("%w: %s is not a system type", ErrInvalidLedgerAccountType, typ)
	}

	la := &models.LedgerAccount{
		ID:        SystemLedgerAccountID(typ, currency),
		Type:      typ,
		Currency:  currency,
		CreatedAt: s.clock(),
	}
	if err := tx.EnsureLedgerAccount(ctx, la); err != nil {
		return nil, fmt.Errorf("ensure %s ledger account: %w", typ, err)
	}
	return la, nil
}

// recordAgainst posts amount to ledgerAccountID and its negation to the system account
func (s *LedgerService) recordAgainst(ctx context.Context, tx store.Tx, system models.LedgerAccountType, ledgerAccountID uuid.UUID, amount models.Amount) (*models.JournalEntry, error) {
	counter, err := s.SystemLedgerAccount(ctx, tx, system, amount.Currency)
	if err != nil {
		return nil, err
	}
	return s.Record(ctx, tx, []models.PostingRequest{
		{LedgerAccountID: counter.ID, Amount: amount.Negate()},
		{LedgerAccountID: ledgerAccountID, Amount: amount},
	})
}

// RecordBankFunds moves funds between the bank clearing account and an account.
// A positive amount is a deposit.
func (s *LedgerService) RecordBankFunds(ctx context.Context, tx store.Tx, ledgerAccountID uuid.UUID, amount models.Amount) (*models.JournalEntry, error) {
	return s.recordAgainst(ctx, tx, models.LedgerAccountBank, ledgerAccountID, amount)
}

// RecordNetworkAdjustment settles a card-network movement; negative amounts are spend
func (s *LedgerService) RecordNetworkAdjustment(ctx context.Context, tx store.Tx, ledgerAccountID uuid.UUID, amount models.Amount) (*models.JournalEntry, error) {
	return s.recordAgainst(ctx, tx, models.LedgerAccountNetwork, ledgerAccountID, amount)
}

// RecordFee debits fee from the account into the fee ledger account
func (s *LedgerService) RecordFee(ctx context.Context, tx store.Tx, ledgerAccountID uuid.UUID, fee models.Amount) (*models.JournalEntry, error) {
	return s.recordAgainst(ctx, tx, models.LedgerAccountFee, ledgerAccountID, fee.Abs().Negate())
}

func (s *LedgerService) RecordManualAdjustment(ctx context.Context, tx store.Tx, ledgerAccountID uuid.UUID, amount models.Amount) (*models.JournalEntry, error) {
	return s.recordAgainst(ctx, tx, models.LedgerAccountManual, ledgerAccountID, amount)
}

// RecordReallocation moves a positive amount from one owner ledger account to another
func (s *LedgerService) RecordReallocation(ctx context.Context, tx store.Tx, fromLedgerAccountID, toLedgerAccountID uuid.UUID, amount models.Amount) (*models.JournalEntry, error) {
	return s.Record(ctx, tx, []models.PostingRequest{
		{LedgerAccountID: fromLedgerAccountID, Amount: amount.Abs().Negate()},
		{LedgerAccountID: toLedgerAccountID, Amount: amount.Abs()},
	})
}
