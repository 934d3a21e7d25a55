package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
)

var (
	ErrMccGroupDisabled   = errors.New("merchant category group disabled")
	ErrChannelDisabled    = errors.New("transaction channel disabled")
	ErrInvalidLimitConfig = errors.New("invalid limit configuration")
)

// Usage is one prior movement counted against a limit window
type Usage struct {
	Amount models.Amount
	At     time.Time
}

// EnsureWithinLimit checks candidate against every period ceiling. Usage in a window is the
// magnitude of history inside (now-period, now] plus the candidate; equal to the ceiling passes.
func EnsureWithinLimit(ownerID uuid.UUID, limitType models.LimitType, candidate models.Amount, ceilings models.PeriodCeilings, history []Usage, now time.Time) error {
	periods := make([]models.LimitPeriod, 0, len(ceilings))
	for p := range ceilings {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Duration() < periods[j].Duration() })

	for _, period := range periods {
		ceiling := ceilings[period]
		usage := candidate.Amount.Abs()

		if window := period.Duration(); window > 0 {
			from := now.Add(-window)
			for _, h := range history {
				if h.Amount.Currency != candidate.Currency {
					continue
				}
				if h.At.After(from) && !h.At.After(now) {
					usage = usage.Add(h.Amount.Amount.Abs())
				}
			}
		}

		if usage.GreaterThan(ceiling) {
			return &LimitExceededError{
				OwnerID:   ownerID,
				LimitType: limitType,
				Period:    period,
				Ceiling:   ceiling,
				Usage:     usage,
			}
		}
	}
	return nil
}

func longestWindow(ceilings models.PeriodCeilings) time.Duration {
	var longest time.Duration
	for p := range ceilings {
		if d := p.Duration(); d > longest {
			longest = d
		}
	}
	return longest
}

// LimitService enforces and configures business and spend limits
type LimitService struct {
	*core
}

var bankAdjustmentTypes = map[models.LimitType]models.AdjustmentType{
	models.LimitDeposit:  models.AdjustmentDeposit,
	models.LimitWithdraw: models.AdjustmentWithdraw,
}

// ensureBusinessLimitTx locks the business limit row, so bank transfers of one business are
// checked and posted one at a time, then checks amount against the configured ceilings.
func (s *LimitService) ensureBusinessLimitTx(ctx context.Context, tx store.Tx, businessID uuid.UUID, limitType models.LimitType, amount models.Amount) error {
	limit, err := tx.LockBusinessLimit(ctx, businessID)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("[LEDGER] No business limit for %s, skipping %s check", businessID, limitType)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock business limit: %w", err)
	}

	ceilings := limit.Limits.For(amount.Currency, limitType)
	if len(ceilings) == 0 {
		return nil
	}

	now := s.now()
	history, err := s.adjustmentUsage(ctx, tx, store.AdjustmentQuery{
		BusinessID: &businessID,
		Types:      []models.AdjustmentType{bankAdjustmentTypes[limitType]},
	}, ceilings, now)
	if err != nil {
		return err
	}
	return EnsureWithinLimit(businessID, limitType, amount, ceilings, history, now)
}

func (s *LimitService) adjustmentUsage(ctx context.Context, tx store.Tx, q store.AdjustmentQuery, ceilings models.PeriodCeilings, now time.Time) ([]Usage, error) {
	window := longestWindow(ceilings)
	if window == 0 {
		return nil, nil
	}
	from := now.Add(-window)
	q.From, q.To = &from, &now

	adjustments, err := tx.ListAdjustments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load limit history: %w", err)
	}
	history := make([]Usage, 0, len(adjustments))
	for _, a := range adjustments {
		history = append(history, Usage{Amount: a.Amount, At: a.EffectiveDate})
	}
	return history, nil
}

// SpendRequest describes a card purchase being authorized or settled
type SpendRequest struct {
	Card               models.CardRecord
	Account            *models.Account
	Amount             models.Amount
	MccGroup           string
	TransactionChannel string
	// ExcludeHoldID is the hold being captured, already counted by the candidate amount
	ExcludeHoldID *uuid.UUID
}

// ensureSpendLimitTx applies the card's controls and PURCHASE ceilings. The caller holds the
// card account lock, which serializes purchases on the card.
func (s *LimitService) ensureSpendLimitTx(ctx context.Context, tx store.Tx, req SpendRequest) error {
	limit, err := tx.GetTransactionLimit(ctx, req.Card.BusinessID, models.TransactionLimitCard, req.Card.CardID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load card limit: %w", err)
	}

	if req.MccGroup != "" && limit.DisabledMccGroups.Contains(req.MccGroup) {
		return fmt.Errorf("%w: %s", ErrMccGroupDisabled, req.MccGroup)
	}
	if req.TransactionChannel != "" && limit.DisabledTransactionChannels.Contains(req.TransactionChannel) {
		return fmt.Errorf("%w: %s", ErrChannelDisabled, req.TransactionChannel)
	}

	ceilings := limit.Limits.For(req.Amount.Currency, models.LimitPurchase)
	if len(ceilings) == 0 {
		return nil
	}

	now := s.now()
	history, err := s.adjustmentUsage(ctx, tx, store.AdjustmentQuery{
		AccountID: &req.Account.ID,
		Types:     []models.AdjustmentType{models.AdjustmentNetworkAuth},
	}, ceilings, now)
	if err != nil {
		return err
	}

	spend := history[:0]
	for _, h := range history {
		if h.Amount.IsNegative() {
			spend = append(spend, h)
		}
	}
	for _, h := range req.Account.Holds {
		if req.ExcludeHoldID != nil && h.ID == *req.ExcludeHoldID {
			continue
		}
		if h.IsActive(now) {
			spend = append(spend, Usage{Amount: h.Amount, At: h.CreatedAt})
		}
	}
	return EnsureWithinLimit(req.Card.CardID, models.LimitPurchase, req.Amount, ceilings, spend, now)
}

func validateLimits(limits models.Limits, allowed ...models.LimitType) error {
	for currency, byType := range limits {
		for limitType, ceilings := range byType {
			if !containsLimitType(allowed, limitType) {
				return fmt.Errorf("%w: %s limits are not configurable here", ErrInvalidLimitConfig, limitType)
			}
			for period, ceiling := range ceilings {
				if !period.Valid() {
					return fmt.Errorf("%w: unknown period %q", ErrInvalidLimitConfig, period)
				}
				if ceiling.IsNegative() {
					return fmt.Errorf("%w: %s %s %s ceiling is negative", ErrInvalidLimitConfig, currency, limitType, period)
				}
			}
		}
	}
	return nil
}

func containsLimitType(types []models.LimitType, t models.LimitType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func (s *LimitService) initializeBusinessLimitTx(ctx context.Context, tx store.Tx, businessID uuid.UUID) (*models.BusinessLimit, error) {
	now := s.now()
	limit := &models.BusinessLimit{
		ID:         uuid.New(),
		BusinessID: businessID,
		Limits:     models.DefaultBusinessLimits(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.InsertBusinessLimit(ctx, limit); err != nil {
		return nil, fmt.Errorf("insert business limit: %w", err)
	}
	return limit, nil
}

// InitializeBusinessLimit writes the default limits for a business that has none
func (s *LimitService) InitializeBusinessLimit(ctx context.Context, businessID uuid.UUID) (*models.BusinessLimit, error) {
	var limit *models.BusinessLimit
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		limit, err = s.initializeBusinessLimitTx(ctx, tx, businessID)
		return err
	})
	return limit, err
}

func (s *LimitService) RetrieveBusinessLimit(ctx context.Context, businessID uuid.UUID) (*models.BusinessLimit, error) {
	limit, err := s.store.GetBusinessLimit(ctx, businessID)
	if err != nil {
		return nil, notFound(err, "business limit", businessID)
	}
	return limit, nil
}

// UpdateBusinessLimit replaces the DEPOSIT/WITHDRAW ceilings of a business
func (s *LimitService) UpdateBusinessLimit(ctx context.Context, businessID uuid.UUID, limits models.Limits) (*models.BusinessLimit, error) {
	if err := validateLimits(limits, models.LimitDeposit, models.LimitWithdraw); err != nil {
		return nil, err
	}

	var limit *models.BusinessLimit
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if limit, err = tx.LockBusinessLimit(ctx, businessID); err != nil {
			return notFound(err, "business limit", businessID)
		}
		limit.Limits = limits
		limit.UpdatedAt = s.now()
		return tx.UpdateBusinessLimit(ctx, limit)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Updated business limit for %s", businessID)
	return limit, nil
}

func (s *LimitService) initializeAllocationSpendLimitTx(ctx context.Context, tx store.Tx, businessID, allocationID uuid.UUID) (*models.TransactionLimit, error) {
	now := s.now()
	limit := &models.TransactionLimit{
		ID:         uuid.New(),
		BusinessID: businessID,
		Type:       models.TransactionLimitAllocation,
		OwnerID:    allocationID,
		Limits:     models.Limits{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.InsertTransactionLimit(ctx, limit); err != nil {
		return nil, fmt.Errorf("insert allocation limit: %w", err)
	}
	return limit, nil
}

// initializeCardSpendLimitTx starts a card with a copy of its allocation's limit
func (s *LimitService) initializeCardSpendLimitTx(ctx context.Context, tx store.Tx, businessID, allocationID, cardID uuid.UUID) (*models.TransactionLimit, error) {
	template, err := tx.GetTransactionLimit(ctx, businessID, models.TransactionLimitAllocation, allocationID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load allocation limit: %w", err)
	}

	now := s.now()
	limit := &models.TransactionLimit{
		ID:         uuid.New(),
		BusinessID: businessID,
		Type:       models.TransactionLimitCard,
		OwnerID:    cardID,
		Limits:     models.Limits{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if template != nil {
		limit.Limits = template.Limits
		limit.DisabledMccGroups = template.DisabledMccGroups
		limit.DisabledTransactionChannels = template.DisabledTransactionChannels
	}
	if err := tx.InsertTransactionLimit(ctx, limit); err != nil {
		return nil, fmt.Errorf("insert card limit: %w", err)
	}
	return limit, nil
}

func (s *LimitService) RetrieveTransactionLimit(ctx context.Context, businessID uuid.UUID, typ models.TransactionLimitType, ownerID uuid.UUID) (*models.TransactionLimit, error) {
	limit, err := s.store.GetTransactionLimit(ctx, businessID, typ, ownerID)
	if err != nil {
		return nil, notFound(err, string(typ)+" limit", ownerID)
	}
	return limit, nil
}

// TransactionLimitUpdate replaces every configurable field of a spend limit
type TransactionLimitUpdate struct {
	Limits                      models.Limits    `json:"limits"`
	DisabledMccGroups           models.StringSet `json:"disabled_mcc_groups"`
	DisabledTransactionChannels models.StringSet `json:"disabled_transaction_channels"`
}

func (s *LimitService) UpdateTransactionLimit(ctx context.Context, businessID uuid.UUID, typ models.TransactionLimitType, ownerID uuid.UUID, update TransactionLimitUpdate) (*models.TransactionLimit, error) {
	if err := validateLimits(update.Limits, models.LimitPurchase); err != nil {
		return nil, err
	}

	var limit *models.TransactionLimit
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if limit, err = tx.GetTransactionLimit(ctx, businessID, typ, ownerID); err != nil {
			return notFound(err, string(typ)+" limit", ownerID)
		}
		limit.Limits = update.Limits
		limit.DisabledMccGroups = update.DisabledMccGroups
		limit.DisabledTransactionChannels = update.DisabledTransactionChannels
		limit.UpdatedAt = s.now()
		return tx.UpdateTransactionLimit(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return limit, nil
}
