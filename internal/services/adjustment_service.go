package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/events"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
)

// AdjustmentService posts settled money movements. Each public operation is one unit of
// work: journal entry, adjustments, balance write, hold transition and activity rows commit
// together.
type AdjustmentService struct {
	*core
	accounts *AccountService
	holds    *HoldService
	limits   *LimitService
	activity *ActivityService
}

// AdjustmentResult is what a posting operation produced
type AdjustmentResult struct {
	Adjustment *models.Adjustment `json:"adjustment"`
	Hold       *models.Hold       `json:"hold,omitempty"`
}

// postAdjustment records the account's side of entry as an adjustment and writes the new
// ledger balance. A debit that would leave the available balance negative is refused.
func (s *AdjustmentService) postAdjustment(ctx context.Context, tx store.Tx, account *models.Account, entry *models.JournalEntry, typ models.AdjustmentType) (*models.Adjustment, error) {
	posting, ok := entry.PostingFor(account.LedgerAccountID)
	if !ok {
		return nil, fmt.Errorf("journal entry %s has no posting for account %s", entry.ID, account.ID)
	}

	now := s.now()
	balance, err := account.LedgerBalance.Add(posting.Amount)
	if err != nil {
		return nil, err
	}
	available, err := account.AvailableBalance.Add(posting.Amount)
	if err != nil {
		return nil, err
	}
	if posting.Amount.IsNegative() && available.IsNegative() {
		return nil, &InsufficientFundsError{AccountID: account.ID, Available: account.AvailableBalance, Requested: posting.Amount.Abs()}
	}

	adj := &models.Adjustment{
		ID:              uuid.New(),
		BusinessID:      account.BusinessID,
		AccountID:       account.ID,
		LedgerAccountID: account.LedgerAccountID,
		JournalEntryID:  entry.ID,
		PostingID:       posting.ID,
		Type:            typ,
		EffectiveDate:   now,
		Amount:          posting.Amount,
		CreatedAt:       now,
	}
	if err := tx.InsertAdjustment(ctx, adj); err != nil {
		return nil, fmt.Errorf("insert adjustment: %w", err)
	}
	if err := tx.UpdateAccountBalance(ctx, account.ID, balance, account.Version); err != nil {
		return nil, err
	}

	account.LedgerBalance = balance
	account.Version++
	account.UpdatedAt = now
	account.ApplyHolds(account.Holds, now)
	return adj, nil
}

func (s *AdjustmentService) committed(ctx context.Context, result *AdjustmentResult, extra ...*models.Adjustment) {
	var evts []events.Event
	for _, adj := range append([]*models.Adjustment{result.Adjustment}, extra...) {
		s.audit.LogAdjustment(adj)
		evts = append(evts, events.ForAdjustment(adj))
	}
	if result.Hold != nil {
		s.audit.LogHold(result.Hold)
		evts = append(evts, events.ForHold(result.Hold))
	}
	s.publish(ctx, evts...)
}

// DepositFunds credits an account from the bank. With placeHold the funds are held until
// the deposit clears, so the available balance does not change yet.
func (s *AdjustmentService) DepositFunds(ctx context.Context, businessID, accountID uuid.UUID, amount models.Amount, placeHold bool) (*AdjustmentResult, error) {
	if err := amount.EnsurePositive(); err != nil {
		return nil, err
	}

	var result *AdjustmentResult
	err := s.inTx(ctx, func(tx store.Tx) error {
		account, err := s.accounts.lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if err := ensureBusiness(account, businessID); err != nil {
			return err
		}
		if err := s.limits.ensureBusinessLimitTx(ctx, tx, businessID, models.LimitDeposit, amount); err != nil {
			return err
		}

		entry, err := s.ledger.RecordBankFunds(ctx, tx, account.LedgerAccountID, amount)
		if err != nil {
			return err
		}
		result = &AdjustmentResult{}
		if result.Adjustment, err = s.postAdjustment(ctx, tx, account, entry, models.AdjustmentDeposit); err != nil {
			return err
		}
		if placeHold {
			expiration := s.now().Add(s.cfg.DepositHoldTTL)
			if result.Hold, err = s.holds.placeTx(ctx, tx, account, amount, expiration, ""); err != nil {
				return err
			}
		}
		return s.activity.record(ctx, tx, ProjectAdjustment(account, result.Adjustment, result.Hold, ActivityDetail{})...)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Deposited %s to account %s (hold: %t)", amount, accountID, placeHold)
	s.committed(ctx, result)
	return result, nil
}

// WithdrawFunds debits an account to the bank
func (s *AdjustmentService) WithdrawFunds(ctx context.Context, businessID, accountID uuid.UUID, amount models.Amount) (*AdjustmentResult, error) {
	if err := amount.EnsurePositive(); err != nil {
		return nil, err
	}

	var result *AdjustmentResult
	err := s.inTx(ctx, func(tx store.Tx) error {
		account, err := s.accounts.lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if err := ensureBusiness(account, businessID); err != nil {
			return err
		}
		if err := ensureAvailable(account, amount); err != nil {
			return err
		}
		if err := s.limits.ensureBusinessLimitTx(ctx, tx, businessID, models.LimitWithdraw, amount); err != nil {
			return err
		}

		entry, err := s.ledger.RecordBankFunds(ctx, tx, account.LedgerAccountID, amount.Negate())
		if err != nil {
			return err
		}
		result = &AdjustmentResult{}
		if result.Adjustment, err = s.postAdjustment(ctx, tx, account, entry, models.AdjustmentWithdraw); err != nil {
			return err
		}
		return s.activity.record(ctx, tx, ProjectAdjustment(account, result.Adjustment, nil, ActivityDetail{})...)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Withdrew %s from account %s", amount, accountID)
	s.committed(ctx, result)
	return result, nil
}

// ReallocationResult holds the two sides of a reallocation, which share one journal entry
type ReallocationResult struct {
	From *models.Adjustment `json:"from"`
	To   *models.Adjustment `json:"to"`
}

// ReallocateFunds moves amount between two accounts of the same business
func (s *AdjustmentService) ReallocateFunds(ctx context.Context, businessID, fromAccountID, toAccountID uuid.UUID, amount models.Amount) (*ReallocationResult, error) {
	if err := amount.EnsurePositive(); err != nil {
		return nil, err
	}
	if fromAccountID == toAccountID {
		return nil, &UnbalancedEntryError{Reason: "reallocation source and destination are the same account"}
	}

	var result *ReallocationResult
	err := s.inTx(ctx, func(tx store.Tx) error {
		from, to, err := s.accounts.lockPair(ctx, tx, fromAccountID, toAccountID)
		if err != nil {
			return err
		}
		if err := ensureBusiness(from, businessID); err != nil {
			return err
		}
		if err := ensureBusiness(to, businessID); err != nil {
			return err
		}
		if from.Currency() != to.Currency() {
			return fmt.Errorf("%w: %s to %s", ErrCurrencyMismatch, from.Currency(), to.Currency())
		}
		if err := ensureAvailable(from, amount); err != nil {
			return err
		}

		entry, err := s.ledger.RecordReallocation(ctx, tx, from.LedgerAccountID, to.LedgerAccountID, amount)
		if err != nil {
			return err
		}
		result = &ReallocationResult{}
		if result.From, err = s.postAdjustment(ctx, tx, from, entry, models.AdjustmentReallocate); err != nil {
			return err
		}
		if result.To, err = s.postAdjustment(ctx, tx, to, entry, models.AdjustmentReallocate); err != nil {
			return err
		}

		fromID, toID := from.ID, to.ID
		rows := ProjectAdjustment(from, result.From, nil, ActivityDetail{CounterpartyID: &toID})
		rows = append(rows, ProjectAdjustment(to, result.To, nil, ActivityDetail{CounterpartyID: &fromID})...)
		return s.activity.record(ctx, tx, rows...)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Reallocated %s from %s to %s", amount, fromAccountID, toAccountID)
	s.committed(ctx, &AdjustmentResult{Adjustment: result.From}, result.To)
	return result, nil
}

// NetworkAdjustment is a settled card-network movement
type NetworkAdjustment struct {
	AccountID     uuid.UUID
	Direction     models.CreditOrDebit
	Amount        models.Amount
	Type          models.AdjustmentType
	CaptureHoldID *uuid.UUID
	Detail        ActivityDetail
}

// networkAdjustmentTx captures the hold, if any, before posting so the held amount is
// available to the debit that replaces it.
func (s *AdjustmentService) networkAdjustmentTx(ctx context.Context, tx store.Tx, account *models.Account, req NetworkAdjustment) (*AdjustmentResult, error) {
	if err := req.Amount.EnsurePositive(); err != nil {
		return nil, err
	}

	result := &AdjustmentResult{}
	if req.CaptureHoldID != nil {
		hold, err := tx.GetHold(ctx, *req.CaptureHoldID)
		if err != nil {
			return nil, notFound(err, "hold", *req.CaptureHoldID)
		}
		if hold.AccountID != account.ID {
			return nil, &IdMismatchError{Field: "hold.accountId", Expected: account.ID, Actual: hold.AccountID}
		}
		if err := s.holds.transitionTx(ctx, tx, hold, models.HoldCaptured); err != nil {
			return nil, err
		}
		remaining := account.Holds[:0:0]
		for _, h := range account.Holds {
			if h.ID != hold.ID {
				remaining = append(remaining, h)
			}
		}
		account.ApplyHolds(remaining, s.now())
		result.Hold = hold
	}

	entry, err := s.ledger.RecordNetworkAdjustment(ctx, tx, account.LedgerAccountID, req.Direction.Signed(req.Amount))
	if err != nil {
		return nil, err
	}
	if result.Adjustment, err = s.postAdjustment(ctx, tx, account, entry, req.Type); err != nil {
		return nil, err
	}

	row := ProjectAdjustment(account, result.Adjustment, nil, req.Detail)
	if result.Hold != nil {
		holdID := result.Hold.ID
		row[0].HoldID = &holdID
	}
	return result, s.activity.record(ctx, tx, row...)
}

// RecordNetworkAdjustment posts a settled network movement, optionally capturing the hold
// that reserved it. Capturing a hold that is no longer PLACED fails with ErrHoldNotPlaced
// and posts nothing.
func (s *AdjustmentService) RecordNetworkAdjustment(ctx context.Context, req NetworkAdjustment) (*AdjustmentResult, error) {
	var result *AdjustmentResult
	err := s.inTx(ctx, func(tx store.Tx) error {
		account, err := s.accounts.lockAccount(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		result, err = s.networkAdjustmentTx(ctx, tx, account, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, result)
	return result, nil
}

// ApplyFee debits a fee from an account into the fee ledger account
func (s *AdjustmentService) ApplyFee(ctx context.Context, accountID uuid.UUID, fee models.Amount, notes string) (*AdjustmentResult, error) {
	if err := fee.EnsurePositive(); err != nil {
		return nil, err
	}

	var result *AdjustmentResult
	err := s.inTx(ctx, func(tx store.Tx) error {
		account, err := s.accounts.lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		entry, err := s.ledger.RecordFee(ctx, tx, account.LedgerAccountID, fee)
		if err != nil {
			return err
		}
		result = &AdjustmentResult{}
		if result.Adjustment, err = s.postAdjustment(ctx, tx, account, entry, models.AdjustmentFee); err != nil {
			return err
		}
		return s.activity.record(ctx, tx, ProjectAdjustment(account, result.Adjustment, nil, ActivityDetail{Notes: notes})...)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Applied fee %s to account %s", fee, accountID)
	s.committed(ctx, result)
	return result, nil
}

// ManualAdjustment posts a signed correction against the manual ledger account
func (s *AdjustmentService) ManualAdjustment(ctx context.Context, accountID uuid.UUID, amount models.Amount, notes string) (*AdjustmentResult, error) {
	if err := amount.EnsureScale(); err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, &InvalidAmountError{Expected: "non-zero", Amount: amount}
	}

	var result *AdjustmentResult
	err := s.inTx(ctx, func(tx store.Tx) error {
		account, err := s.accounts.lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		entry, err := s.ledger.RecordManualAdjustment(ctx, tx, account.LedgerAccountID, amount)
		if err != nil {
			return err
		}
		result = &AdjustmentResult{}
		if result.Adjustment, err = s.postAdjustment(ctx, tx, account, entry, models.AdjustmentManual); err != nil {
			return err
		}
		return s.activity.record(ctx, tx, ProjectAdjustment(account, result.Adjustment, nil, ActivityDetail{Notes: notes})...)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Manual adjustment %s on account %s: %s", amount, accountID, notes)
	s.committed(ctx, result)
	return result, nil
}
