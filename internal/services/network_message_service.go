package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/events"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
)

// CardResolver maps a card number from the network to its ledger coordinates
type CardResolver interface {
	ResolveCard(ctx context.Context, cardNumber string) (*models.CardRecord, error)
}

// StoreCardResolver reads the card table
type StoreCardResolver struct {
	store store.Tx
}

func NewStoreCardResolver(st store.Tx) *StoreCardResolver {
	return &StoreCardResolver{store: st}
}

func (r *StoreCardResolver) ResolveCard(ctx context.Context, cardNumber string) (*models.CardRecord, error) {
	card, err := r.store.GetCardByNumber(ctx, cardNumber)
	if err != nil {
		return nil, notFound(err, "card", maskCardNumber(cardNumber))
	}
	return &models.CardRecord{
		CardID:       card.ID,
		BusinessID:   card.BusinessID,
		AllocationID: card.AllocationID,
		AccountID:    card.AccountID,
	}, nil
}

func maskCardNumber(cardNumber string) string {
	if len(cardNumber) <= 4 {
		return "****"
	}
	return "****" + cardNumber[len(cardNumber)-4:]
}

// NetworkMessageResult is returned to the card network. A decline is an outcome, not an error.
type NetworkMessageResult struct {
	NetworkMessageID uuid.UUID             `json:"networkMessageId"`
	Outcome          models.NetworkOutcome `json:"outcome"`
	DeclineReason    models.DeclineReason  `json:"declineReason,omitempty"`
	HoldID           *uuid.UUID            `json:"holdId,omitempty"`
	AdjustmentID     *uuid.UUID            `json:"adjustmentId,omitempty"`
}

// NetworkMessageService drives the ledger from card-network authorization traffic
type NetworkMessageService struct {
	*core
	cards       CardResolver
	accounts    *AccountService
	adjustments *AdjustmentService
	holds       *HoldService
	limits      *LimitService
	activity    *ActivityService
	validator   *ValidationHelper
}

// networkTx is the state of one message being processed inside a unit of work
type networkTx struct {
	tx      store.Tx
	common  *models.NetworkCommon
	card    *models.CardRecord
	account *models.Account
	msg     *models.NetworkMessage
	detail  ActivityDetail

	hold       *models.Hold
	adjustment *models.Adjustment
}

func (n *networkTx) decline(reason models.DeclineReason) {
	n.msg.Outcome = models.OutcomeDeclined
	n.msg.DeclineReason = reason
}

// declineReasonFor maps a check failure to a decline, or reports false for a real error
func declineReasonFor(err error) (models.DeclineReason, bool) {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return models.DeclineInsufficientFunds, true
	case errors.Is(err, ErrLimitExceeded):
		return models.DeclineLimitExceeded, true
	case errors.Is(err, ErrMccGroupDisabled):
		return models.DeclineMccGroupDisabled, true
	case errors.Is(err, ErrChannelDisabled):
		return models.DeclineChannelDisabled, true
	}
	return "", false
}

// ProcessNetworkMessage applies one network message to the ledger
func (s *NetworkMessageService) ProcessNetworkMessage(ctx context.Context, common *models.NetworkCommon) (*NetworkMessageResult, error) {
	return s.process(ctx, common, nil)
}

// ProcessBusinessNetworkMessage is ProcessNetworkMessage for a caller acting for businessID.
// A card of any other business is reported as not found and the ledger is left untouched.
func (s *NetworkMessageService) ProcessBusinessNetworkMessage(ctx context.Context, businessID uuid.UUID, common *models.NetworkCommon) (*NetworkMessageResult, error) {
	return s.process(ctx, common, &businessID)
}

func (s *NetworkMessageService) process(ctx context.Context, common *models.NetworkCommon, businessID *uuid.UUID) (*NetworkMessageResult, error) {
	if err := s.validator.ValidateStruct(common); err != nil {
		return nil, err
	}
	if err := common.RequestedAmount.EnsurePositive(); err != nil && common.NetworkMessageType != models.ServiceFeeTransaction {
		return nil, err
	}
	if common.CreditOrDebit == "" {
		common.CreditOrDebit = models.Debit
	}

	card, err := s.cards.ResolveCard(ctx, common.CardNumber)
	if err != nil {
		return nil, err
	}
	if businessID != nil && card.BusinessID != *businessID {
		log.Printf("[NETWORK] Business %s sent a message for card %s of another business", *businessID, card.CardID)
		return nil, &RecordNotFoundError{Table: "card", ID: maskCardNumber(common.CardNumber)}
	}

	var state *networkTx
	err = s.inTx(ctx, func(tx store.Tx) error {
		account, err := s.accounts.lockAccount(ctx, tx, card.AccountID)
		if err != nil {
			return err
		}
		if account.Currency() != common.RequestedAmount.Currency {
			return fmt.Errorf("%w: card account is %s, message is %s", ErrCurrencyMismatch, account.Currency(), common.RequestedAmount.Currency)
		}

		allocationID, cardID := card.AllocationID, card.CardID
		state = &networkTx{
			tx:      tx,
			common:  common,
			card:    card,
			account: account,
			detail: ActivityDetail{
				AllocationID: &allocationID,
				CardID:       &cardID,
				MerchantName: common.MerchantName,
			},
			msg: &models.NetworkMessage{
				ID:                   uuid.New(),
				BusinessID:           card.BusinessID,
				AllocationID:         card.AllocationID,
				AccountID:            card.AccountID,
				CardID:               card.CardID,
				NetworkRef:           common.NetworkRef,
				Type:                 common.NetworkMessageType,
				Amount:               common.RequestedAmount,
				MerchantName:         common.MerchantName,
				MerchantAddress:      common.MerchantAddress,
				MerchantNumber:       common.MerchantNumber,
				MerchantCategoryCode: common.MerchantCategoryCode,
				Request:              common.Request,
				CreatedAt:            s.now(),
			},
		}

		switch common.NetworkMessageType {
		case models.PreAuthTransaction, models.PreAuthTransactionAdvice:
			err = s.processPreAuth(ctx, state)
		case models.FinancialTransaction, models.FinancialTransactionAdvice:
			err = s.processFinancial(ctx, state)
		case models.ReversalTransaction, models.ReversalTransactionAdvice:
			err = s.processReversal(ctx, state)
		case models.ServiceFeeTransaction:
			state.msg.Outcome = models.OutcomeNoAction
		default:
			return &UnsupportedMessageTypeError{Type: common.NetworkMessageType}
		}
		if err != nil {
			return err
		}

		if state.hold != nil {
			holdID := state.hold.ID
			state.msg.HoldID = &holdID
		}
		if state.adjustment != nil {
			adjustmentID := state.adjustment.ID
			state.msg.AdjustmentID = &adjustmentID
		}
		if state.msg.Outcome == models.OutcomeDeclined {
			if err := s.activity.record(ctx, tx, ProjectDecline(account, state.msg, state.detail)); err != nil {
				return err
			}
		}
		if err := tx.InsertNetworkMessage(ctx, state.msg); err != nil {
			return fmt.Errorf("insert network message: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Printf("[NETWORK] Failed to process %s for card %s: %v", common.NetworkMessageType, card.CardID, err)
		return nil, err
	}

	s.committed(ctx, state)
	return &NetworkMessageResult{
		NetworkMessageID: state.msg.ID,
		Outcome:          state.msg.Outcome,
		DeclineReason:    state.msg.DeclineReason,
		HoldID:           state.msg.HoldID,
		AdjustmentID:     state.msg.AdjustmentID,
	}, nil
}

func (s *NetworkMessageService) committed(ctx context.Context, state *networkTx) {
	msg := state.msg
	log.Printf("[NETWORK] %s %s on card %s: %s %s", msg.Type, msg.Amount, msg.CardID, msg.Outcome, msg.DeclineReason)
	s.audit.LogNetworkMessage(msg)

	evts := []events.Event{events.ForNetworkMessage(msg)}
	if state.hold != nil {
		evts = append(evts, events.ForHold(state.hold))
	}
	if state.adjustment != nil {
		s.audit.LogAdjustment(state.adjustment)
		evts = append(evts, events.ForAdjustment(state.adjustment))
	}
	s.publish(ctx, evts...)
}

// checkSpend runs the funds and card-limit checks. A failed check declines the message and
// returns nil; only unexpected errors are returned.
func (s *NetworkMessageService) checkSpend(ctx context.Context, n *networkTx, available models.Amount, excludeHoldID *uuid.UUID) (bool, error) {
	amount := n.common.RequestedAmount
	err := s.limits.ensureSpendLimitTx(ctx, n.tx, SpendRequest{
		Card:               *n.card,
		Account:            n.account,
		Amount:             amount,
		MccGroup:           n.common.MccGroup,
		TransactionChannel: n.common.TransactionChannel,
		ExcludeHoldID:      excludeHoldID,
	})
	reason, declined := declineReasonFor(err)
	if err != nil && !declined {
		return false, err
	}
	if errors.Is(err, ErrMccGroupDisabled) || errors.Is(err, ErrChannelDisabled) {
		n.decline(reason)
		return false, nil
	}

	greater, cmpErr := amount.IsGreaterThan(available)
	if cmpErr != nil {
		return false, cmpErr
	}
	if greater {
		n.decline(models.DeclineInsufficientFunds)
		return false, nil
	}

	if declined {
		n.decline(reason)
		return false, nil
	}
	return true, nil
}

func (s *NetworkMessageService) processPreAuth(ctx context.Context, n *networkTx) error {
	if n.common.CreditOrDebit == models.Credit {
		// Credit authorizations reserve nothing; the refund arrives as a financial message.
		n.msg.Outcome = models.OutcomeNoAction
		return nil
	}

	ok, err := s.checkSpend(ctx, n, n.account.AvailableBalance, nil)
	if err != nil || !ok {
		return err
	}

	expiration := s.now().Add(s.cfg.NetworkHoldTTL)
	if n.hold, err = s.holds.placeTx(ctx, n.tx, n.account, n.common.RequestedAmount, expiration, n.common.NetworkRef); err != nil {
		return err
	}
	n.msg.Outcome = models.OutcomeHoldPlaced
	return s.activity.record(ctx, n.tx, ProjectHold(n.account, n.hold, n.detail))
}

func (s *NetworkMessageService) findHold(ctx context.Context, n *networkTx) (*models.Hold, error) {
	if n.common.NetworkRef == "" {
		return nil, nil
	}
	hold, err := n.tx.FindPlacedHoldByRef(ctx, n.account.ID, n.common.NetworkRef)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return hold, err
}

func (s *NetworkMessageService) processFinancial(ctx context.Context, n *networkTx) error {
	amount := n.common.RequestedAmount
	req := NetworkAdjustment{
		AccountID: n.account.ID,
		Direction: n.common.CreditOrDebit,
		Amount:    amount,
		Type:      models.AdjustmentNetworkAuth,
		Detail:    n.detail,
	}

	if n.common.CreditOrDebit == models.Debit {
		hold, err := s.findHold(ctx, n)
		if err != nil {
			return err
		}

		available := n.account.AvailableBalance
		var excludeHoldID *uuid.UUID
		if hold != nil && hold.IsActive(s.now()) {
			available = available.MustAdd(hold.Amount)
			excludeHoldID = &hold.ID
		}
		ok, err := s.checkSpend(ctx, n, available, excludeHoldID)
		if err != nil || !ok {
			return err
		}
		if hold != nil {
			req.CaptureHoldID = &hold.ID
		}
	}

	result, err := s.adjustments.networkAdjustmentTx(ctx, n.tx, n.account, req)
	if err != nil {
		return err
	}
	n.adjustment, n.hold = result.Adjustment, result.Hold
	n.msg.Outcome = models.OutcomeSettled
	return nil
}

func (s *NetworkMessageService) processReversal(ctx context.Context, n *networkTx) error {
	hold, err := s.findHold(ctx, n)
	if err != nil {
		return err
	}

	n.msg.Outcome = models.OutcomeReversed
	if hold != nil {
		n.hold = hold
		if err := s.holds.transitionTx(ctx, n.tx, hold, models.HoldReleased); err != nil {
			return err
		}
		return s.activity.record(ctx, n.tx, ProjectReversal(n.account, hold, n.msg, n.detail))
	}

	result, err := s.adjustments.networkAdjustmentTx(ctx, n.tx, n.account, NetworkAdjustment{
		AccountID: n.account.ID,
		Direction: models.Credit,
		Amount:    n.common.RequestedAmount,
		Type:      models.AdjustmentNetworkReversal,
		Detail:    n.detail,
	})
	if err != nil {
		return err
	}
	n.adjustment = result.Adjustment
	return nil
}
