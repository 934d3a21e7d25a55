package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
)

// AccountService is the registry of business, allocation and card accounts
type AccountService struct {
	*core
	limits *LimitService
}

// CreateLedgerAccount creates an owner ledger account inside tx. System ledger accounts
// are never created here; see LedgerService.SystemLedgerAccount.
func (s *AccountService) CreateLedgerAccount(ctx context.Context, tx store.Tx, typ models.LedgerAccountType, currency models.Currency) (*models.LedgerAccount, error) {
	if !typ.IsOwnerType() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLedgerAccountType, typ)
	}

	la := &models.LedgerAccount{
		ID:        uuid.New(),
		Type:      typ,
		Currency:  currency,
		CreatedAt: s.now(),
	}
	if err := tx.InsertLedgerAccount(ctx, la); err != nil {
		return nil, fmt.Errorf("insert ledger account: %w", err)
	}
	return la, nil
}

func (s *AccountService) createAccountTx(ctx context.Context, tx store.Tx, businessID uuid.UUID, typ models.AccountType, ownerID uuid.UUID, currency models.Currency) (*models.Account, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: account type %q", ErrInvalidLedgerAccountType, typ)
	}

	la, err := s.CreateLedgerAccount(ctx, tx, typ.LedgerAccountType(), currency)
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &models.Account{
		ID:              uuid.New(),
		BusinessID:      businessID,
		Type:            typ,
		OwnerID:         ownerID,
		LedgerAccountID: la.ID,
		LedgerBalance:   models.ZeroAmount(currency),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.InsertAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("insert %s account: %w", typ, err)
	}
	account.AvailableBalance = account.LedgerBalance
	return account, nil
}

// CreateAccount creates a zero-balance account and its ledger account together.
// Allocation accounts also get an empty spend limit.
func (s *AccountService) CreateAccount(ctx context.Context, businessID uuid.UUID, typ models.AccountType, ownerID uuid.UUID, currency models.Currency) (*models.Account, error) {
	var account *models.Account
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if account, err = s.createAccountTx(ctx, tx, businessID, typ, ownerID, currency); err != nil {
			return err
		}
		if typ == models.AccountTypeAllocation {
			_, err = s.limits.initializeAllocationSpendLimitTx(ctx, tx, businessID, ownerID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Created %s account %s for owner %s", typ, account.ID, ownerID)
	return account, nil
}

// CreateBusiness onboards a business: its BUSINESS account and default bank-transfer limits
func (s *AccountService) CreateBusiness(ctx context.Context, businessID uuid.UUID, currency models.Currency) (*models.Account, error) {
	var account *models.Account
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		account, err = s.createAccountTx(ctx, tx, businessID, models.AccountTypeBusiness, businessID, currency)
		if err != nil {
			return err
		}
		// limits are per business, shared by every currency it is onboarded in
		if _, err := tx.GetBusinessLimit(ctx, businessID); !errors.Is(err, store.ErrNotFound) {
			return err
		}
		_, err = s.limits.initializeBusinessLimitTx(ctx, tx, businessID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Onboarded business %s with account %s", businessID, account.ID)
	return account, nil
}

// IssueCard creates a card, its CARD account and a spend limit copied from its allocation
func (s *AccountService) IssueCard(ctx context.Context, businessID, allocationID uuid.UUID, cardNumber string, currency models.Currency) (*models.Card, *models.Account, error) {
	if len(cardNumber) < 4 {
		return nil, nil, fmt.Errorf("card number too short")
	}

	var card *models.Card
	var account *models.Account
	err := s.inTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetAccountByOwner(ctx, businessID, models.AccountTypeAllocation, allocationID, currency); err != nil {
			return notFound(err, "allocation", allocationID)
		}

		cardID := uuid.New()
		var err error
		account, err = s.createAccountTx(ctx, tx, businessID, models.AccountTypeCard, cardID, currency)
		if err != nil {
			return err
		}

		card = &models.Card{
			ID:           cardID,
			BusinessID:   businessID,
			AllocationID: allocationID,
			AccountID:    account.ID,
			CardNumber:   cardNumber,
			LastFour:     cardNumber[len(cardNumber)-4:],
			Status:       models.CardStatusActive,
			CreatedAt:    s.now(),
		}
		if err := tx.InsertCard(ctx, card); err != nil {
			return fmt.Errorf("insert card: %w", err)
		}

		_, err = s.limits.initializeCardSpendLimitTx(ctx, tx, businessID, allocationID, cardID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("[LEDGER] Issued card %s (****%s) on allocation %s", card.ID, card.LastFour, allocationID)
	return card, account, nil
}

// RetrieveAccount returns the account with its available balance at now
func (s *AccountService) RetrieveAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, notFound(err, "account", accountID)
	}
	return s.withHolds(ctx, s.store, account)
}

func (s *AccountService) RetrieveAccountByOwner(ctx context.Context, businessID uuid.UUID, typ models.AccountType, ownerID uuid.UUID, currency models.Currency) (*models.Account, error) {
	account, err := s.store.GetAccountByOwner(ctx, businessID, typ, ownerID, currency)
	if err != nil {
		return nil, notFound(err, string(typ)+" account", ownerID)
	}
	return s.withHolds(ctx, s.store, account)
}

// lockAccount takes the account row lock for the rest of tx and loads its active holds
func (s *AccountService) lockAccount(ctx context.Context, tx store.Tx, accountID uuid.UUID) (*models.Account, error) {
	account, err := tx.LockAccount(ctx, accountID)
	if err != nil {
		return nil, notFound(err, "account", accountID)
	}
	return s.withHolds(ctx, tx, account)
}

func (s *AccountService) withHolds(ctx context.Context, tx store.Tx, account *models.Account) (*models.Account, error) {
	now := s.now()
	holds, err := tx.ListPlacedHolds(ctx, account.ID, now)
	if err != nil {
		return nil, fmt.Errorf("list holds for account %s: %w", account.ID, err)
	}
	account.ApplyHolds(holds, now)
	return account, nil
}

// lockPair locks two accounts in ascending id order and returns them in argument order
func (s *AccountService) lockPair(ctx context.Context, tx store.Tx, firstID, secondID uuid.UUID) (*models.Account, *models.Account, error) {
	lo, hi := firstID, secondID
	swapped := lo.String() > hi.String()
	if swapped {
		lo, hi = hi, lo
	}

	a, err := s.lockAccount(ctx, tx, lo)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.lockAccount(ctx, tx, hi)
	if err != nil {
		return nil, nil, err
	}

	if swapped {
		return b, a, nil
	}
	return a, b, nil
}

// ensureBusiness checks that the account belongs to businessID
func ensureBusiness(account *models.Account, businessID uuid.UUID) error {
	if account.BusinessID != businessID {
		return &IdMismatchError{Field: "businessId", Expected: businessID, Actual: account.BusinessID}
	}
	return nil
}

// ensureAvailable fails with InsufficientFundsError unless account can cover amount
func ensureAvailable(account *models.Account, amount models.Amount) error {
	greater, err := amount.IsGreaterThan(account.AvailableBalance)
	if err != nil {
		return err
	}
	if greater {
		return &InsufficientFundsError{AccountID: account.ID, Available: account.AvailableBalance, Requested: amount}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrRecordNotFound)
}
