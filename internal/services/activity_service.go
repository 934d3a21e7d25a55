package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
)

const (
	defaultActivityPageSize = 20
	maxActivityPageSize     = 200
)

// ActivityService maintains the account activity feed. Rows never affect balances.
type ActivityService struct {
	*core
}

// ActivityDetail carries the context a projection cannot read from the ledger rows
type ActivityDetail struct {
	AllocationID   *uuid.UUID
	CardID         *uuid.UUID
	CounterpartyID *uuid.UUID
	MerchantName   string
	Notes          string
}

var activityTypes = map[models.AdjustmentType]models.ActivityType{
	models.AdjustmentDeposit:         models.ActivityBankDeposit,
	models.AdjustmentWithdraw:        models.ActivityBankWithdraw,
	models.AdjustmentReallocate:      models.ActivityReallocate,
	models.AdjustmentNetworkAuth:     models.ActivityNetworkSettle,
	models.AdjustmentNetworkReversal: models.ActivityNetworkRefund,
	models.AdjustmentServiceFee:      models.ActivityFee,
	models.AdjustmentFee:             models.ActivityFee,
	models.AdjustmentManual:          models.ActivityManual,
}

func ownerRefs(account *models.Account, detail ActivityDetail) ActivityDetail {
	owner := account.OwnerID
	switch account.Type {
	case models.AccountTypeAllocation:
		if detail.AllocationID == nil {
			detail.AllocationID = &owner
		}
	case models.AccountTypeCard:
		if detail.CardID == nil {
			detail.CardID = &owner
		}
	}
	return detail
}

func newActivity(account *models.Account, typ models.ActivityType, status models.ActivityStatus, amount models.Amount, at time.Time, detail ActivityDetail) models.AccountActivity {
	detail = ownerRefs(account, detail)
	return models.AccountActivity{
		ID:             uuid.New(),
		BusinessID:     account.BusinessID,
		AccountID:      account.ID,
		AllocationID:   detail.AllocationID,
		CardID:         detail.CardID,
		CounterpartyID: detail.CounterpartyID,
		Type:           typ,
		Status:         status,
		ActivityTime:   at,
		Amount:         amount,
		MerchantName:   detail.MerchantName,
		Notes:          detail.Notes,
		CreatedAt:      at,
	}
}

// ProjectAdjustment renders a settled adjustment. When hold is set the adjustment is a
// deposit still under review: a PENDING row shows until the hold expires and the PROCESSED
// row appears from then on.
func ProjectAdjustment(account *models.Account, adj *models.Adjustment, hold *models.Hold, detail ActivityDetail) []models.AccountActivity {
	typ, ok := activityTypes[adj.Type]
	if !ok {
		typ = models.ActivityManual
	}

	processed := newActivity(account, typ, models.ActivityProcessed, adj.Amount, adj.EffectiveDate, detail)
	adjustmentID := adj.ID
	processed.AdjustmentID = &adjustmentID
	if hold == nil {
		return []models.AccountActivity{processed}
	}

	holdID := hold.ID
	expiration := hold.ExpirationDate
	pending := newActivity(account, typ, models.ActivityPending, adj.Amount, adj.EffectiveDate, detail)
	pending.AdjustmentID = &adjustmentID
	pending.HoldID = &holdID
	pending.HideAfter = &expiration

	processed.HoldID = &holdID
	processed.VisibleAfter = &expiration
	return []models.AccountActivity{pending, processed}
}

// ProjectHold renders a network authorization hold, shown until it expires
func ProjectHold(account *models.Account, hold *models.Hold, detail ActivityDetail) models.AccountActivity {
	row := newActivity(account, models.ActivityNetworkAuth, models.ActivityPending, hold.Amount.Negate(), hold.CreatedAt, detail)
	holdID := hold.ID
	expiration := hold.ExpirationDate
	row.HoldID = &holdID
	row.HideAfter = &expiration
	return row
}

// ProjectReversal renders a network reversal that released hold. Nothing settles, so the row
// carries the released amount back to the card.
func ProjectReversal(account *models.Account, hold *models.Hold, msg *models.NetworkMessage, detail ActivityDetail) models.AccountActivity {
	row := newActivity(account, models.ActivityNetworkAuth, models.ActivityReversed, hold.Amount, msg.CreatedAt, detail)
	holdID := hold.ID
	row.HoldID = &holdID
	return row
}

// ProjectDecline renders a declined network message
func ProjectDecline(account *models.Account, msg *models.NetworkMessage, detail ActivityDetail) models.AccountActivity {
	row := newActivity(account, models.ActivityNetworkAuth, models.ActivityDeclined, msg.Amount.Negate(), msg.CreatedAt, detail)
	row.DeclineReason = msg.DeclineReason
	return row
}

// Visible reports whether row is shown at now
func Visible(row *models.AccountActivity, now time.Time) bool {
	return row.IsVisible(now)
}

func (s *ActivityService) record(ctx context.Context, tx store.Tx, rows ...models.AccountActivity) error {
	for i := range rows {
		if err := tx.InsertActivity(ctx, &rows[i]); err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}
	}
	return nil
}

// FindActivity returns visible rows for a business, newest first
func (s *ActivityService) FindActivity(ctx context.Context, businessID uuid.UUID, filter models.ActivityFilter) ([]models.AccountActivity, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = defaultActivityPageSize
	}
	if filter.PageSize > maxActivityPageSize {
		filter.PageSize = maxActivityPageSize
	}
	if filter.PageNumber < 0 {
		filter.PageNumber = 0
	}

	rows, err := s.store.FindActivity(ctx, businessID, filter, s.now())
	if err != nil {
		return nil, fmt.Errorf("find activity: %w", err)
	}
	return rows, nil
}
