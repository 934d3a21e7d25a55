package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/events"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
)

// HoldService places holds and moves them out of PLACED. Every transition is a
// compare-and-swap on the PLACED status, so at most one of capture, release and
// expiry ever wins for a hold.
type HoldService struct {
	*core
	accounts *AccountService
	activity *ActivityService
}

// placeTx reserves amount on a locked account and updates its available balance
func (s *HoldService) placeTx(ctx context.Context, tx store.Tx, account *models.Account, amount models.Amount, expiration time.Time, networkRef string) (*models.Hold, error) {
	if err := amount.EnsurePositive(); err != nil {
		return nil, err
	}

	now := s.now()
	if !expiration.After(now) {
		return nil, fmt.Errorf("hold expiration %s is not in the future", expiration.Format(time.RFC3339))
	}

	hold := &models.Hold{
		ID:             uuid.New(),
		BusinessID:     account.BusinessID,
		AccountID:      account.ID,
		Amount:         amount,
		Status:         models.HoldPlaced,
		NetworkRef:     networkRef,
		CreatedAt:      now,
		ExpirationDate: expiration,
		UpdatedAt:      now,
	}
	if err := tx.InsertHold(ctx, hold); err != nil {
		return nil, fmt.Errorf("insert hold: %w", err)
	}

	account.ApplyHolds(append(account.Holds, *hold), now)
	return hold, nil
}

// RecordNetworkHold reserves funds for a card authorization. Only debits can be held.
func (s *HoldService) RecordNetworkHold(ctx context.Context, accountID uuid.UUID, direction models.CreditOrDebit, amount models.Amount, expiration time.Time, networkRef string) (*models.Hold, error) {
	if direction != models.Debit {
		return nil, &InvalidAmountError{Expected: "a debit to be held", Amount: amount}
	}
	if err := amount.EnsurePositive(); err != nil {
		return nil, err
	}

	var hold *models.Hold
	err := s.inTx(ctx, func(tx store.Tx) error {
		account, err := s.accounts.lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if err := ensureAvailable(account, amount); err != nil {
			return err
		}
		if hold, err = s.placeTx(ctx, tx, account, amount, expiration, networkRef); err != nil {
			return err
		}
		return s.activity.record(ctx, tx, ProjectHold(account, hold, ActivityDetail{}))
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogHold(hold)
	s.publish(ctx, events.ForHold(hold))
	return hold, nil
}

// transitionTx moves hold out of PLACED, failing with ErrHoldNotPlaced if it already left
func (s *HoldService) transitionTx(ctx context.Context, tx store.Tx, hold *models.Hold, to models.HoldStatus) error {
	now := s.now()
	ok, err := tx.TransitionHold(ctx, hold.ID, models.HoldPlaced, to, now)
	if err != nil {
		return fmt.Errorf("transition hold %s: %w", hold.ID, err)
	}
	if !ok {
		return fmt.Errorf("hold %s to %s: %w", hold.ID, to, ErrHoldNotPlaced)
	}

	hold.Status = to
	hold.UpdatedAt = now
	if to != models.HoldExpired {
		if err := tx.ResolveHoldActivity(ctx, hold.ID, now); err != nil {
			return fmt.Errorf("resolve hold activity: %w", err)
		}
	}
	return nil
}

// ReleaseHold returns the reserved amount to the available balance
func (s *HoldService) ReleaseHold(ctx context.Context, holdID uuid.UUID) (*models.Hold, error) {
	var hold *models.Hold
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if hold, err = tx.GetHold(ctx, holdID); err != nil {
			return notFound(err, "hold", holdID)
		}
		return s.transitionTx(ctx, tx, hold, models.HoldReleased)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogHold(hold)
	s.publish(ctx, events.ForHold(hold))
	return hold, nil
}

// ExpireHolds moves up to limit PLACED holds whose expiration has passed to EXPIRED.
// Holds captured or released concurrently are skipped.
func (s *HoldService) ExpireHolds(ctx context.Context, limit int) (int, error) {
	now := s.now()
	holds, err := s.store.ListExpiredHolds(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("list expired holds: %w", err)
	}

	expired := 0
	for i := range holds {
		hold := &holds[i]
		err := s.inTx(ctx, func(tx store.Tx) error {
			return s.transitionTx(ctx, tx, hold, models.HoldExpired)
		})
		if errors.Is(err, ErrHoldNotPlaced) {
			continue
		}
		if err != nil {
			return expired, err
		}

		expired++
		s.audit.LogHold(hold)
		s.publish(ctx, events.ForHold(hold))
	}

	if expired > 0 {
		log.Printf("[HOLD_SWEEP] Expired %d of %d candidate holds", expired, len(holds))
	}
	return expired, nil
}
