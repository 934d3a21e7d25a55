package memory

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
)

func sortStable[T any](items []T, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func (v *view) InsertHold(ctx context.Context, hold *models.Hold) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	if _, ok := t.holds[hold.ID]; ok {
		return duplicate("hold_pkey")
	}
	t.holds[hold.ID] = *hold
	v.onRollback(func() { delete(t.holds, hold.ID) })
	return nil
}

func (v *view) GetHold(ctx context.Context, id uuid.UUID) (*models.Hold, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	h, ok := t.holds[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &h, nil
}

func (v *view) ListPlacedHolds(ctx context.Context, accountID uuid.UUID, now time.Time) ([]models.Hold, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	var holds []models.Hold
	for _, h := range t.holds {
		if h.AccountID == accountID && h.IsActive(now) {
			holds = append(holds, h)
		}
	}
	sortStable(holds, func(a, b models.Hold) bool { return a.CreatedAt.Before(b.CreatedAt) })
	return holds, nil
}

func (v *view) FindPlacedHoldByRef(ctx context.Context, accountID uuid.UUID, networkRef string) (*models.Hold, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	var found *models.Hold
	for _, h := range t.holds {
		if h.AccountID != accountID || h.NetworkRef != networkRef || h.Status != models.HoldPlaced {
			continue
		}
		if found == nil || h.CreatedAt.After(found.CreatedAt) {
			h := h
			found = &h
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

func (v *view) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]models.Hold, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	var holds []models.Hold
	for _, h := range t.holds {
		if h.Status == models.HoldPlaced && !h.ExpirationDate.After(now) {
			holds = append(holds, h)
		}
	}
	sortStable(holds, func(a, b models.Hold) bool { return a.ExpirationDate.Before(b.ExpirationDate) })
	if limit > 0 && len(holds) > limit {
		holds = holds[:limit]
	}
	return holds, nil
}

func (v *view) TransitionHold(ctx context.Context, id uuid.UUID, from, to models.HoldStatus, at time.Time) (bool, error) {
	t, exit, err := v.enter()
	if err != nil {
		return false, err
	}
	defer exit()

	h, ok := t.holds[id]
	if !ok || h.Status != from {
		return false, nil
	}
	previous := h
	h.Status = to
	h.UpdatedAt = at
	t.holds[id] = h
	v.onRollback(func() { t.holds[id] = previous })
	return true, nil
}

// cloneLimits deep-copies the nested maps so stored rows never alias caller values
func cloneLimits(l models.Limits) models.Limits {
	if l == nil {
		return models.Limits{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return models.Limits{}
	}
	var out models.Limits
	if err := json.Unmarshal(b, &out); err != nil {
		return models.Limits{}
	}
	return out
}

func cloneBusinessLimit(l models.BusinessLimit) *models.BusinessLimit {
	l.Limits = cloneLimits(l.Limits)
	return &l
}

func cloneTransactionLimit(l models.TransactionLimit) *models.TransactionLimit {
	l.Limits = cloneLimits(l.Limits)
	l.DisabledMccGroups = append(models.StringSet(nil), l.DisabledMccGroups...)
	l.DisabledTransactionChannels = append(models.StringSet(nil), l.DisabledTransactionChannels...)
	return &l
}

func (v *view) InsertBusinessLimit(ctx context.Context, limit *models.BusinessLimit) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	if _, ok := t.businessLimits[limit.BusinessID]; ok {
		return duplicate("business_limit_business_id_key")
	}
	t.businessLimits[limit.BusinessID] = *cloneBusinessLimit(*limit)
	v.onRollback(func() { delete(t.businessLimits, limit.BusinessID) })
	return nil
}

func (v *view) GetBusinessLimit(ctx context.Context, businessID uuid.UUID) (*models.BusinessLimit, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	l, ok := t.businessLimits[businessID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneBusinessLimit(l), nil
}

func (v *view) LockBusinessLimit(ctx context.Context, businessID uuid.UUID) (*models.BusinessLimit, error) {
	return v.GetBusinessLimit(ctx, businessID)
}

func (v *view) UpdateBusinessLimit(ctx context.Context, limit *models.BusinessLimit) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	previous, ok := t.businessLimits[limit.BusinessID]
	if !ok {
		return store.ErrNotFound
	}
	updated := previous
	updated.Limits = cloneLimits(limit.Limits)
	updated.UpdatedAt = limit.UpdatedAt
	t.businessLimits[limit.BusinessID] = updated
	v.onRollback(func() { t.businessLimits[limit.BusinessID] = previous })
	return nil
}

func (v *view) InsertTransactionLimit(ctx context.Context, limit *models.TransactionLimit) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	key := transactionLimitKey{businessID: limit.BusinessID, typ: limit.Type, ownerID: limit.OwnerID}
	if _, ok := t.transactionLimits[key]; ok {
		return duplicate("transaction_limit_business_id_type_owner_id_key")
	}
	t.transactionLimits[key] = *cloneTransactionLimit(*limit)
	v.onRollback(func() { delete(t.transactionLimits, key) })
	return nil
}

func (v *view) GetTransactionLimit(ctx context.Context, businessID uuid.UUID, typ models.TransactionLimitType, ownerID uuid.UUID) (*models.TransactionLimit, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	l, ok := t.transactionLimits[transactionLimitKey{businessID: businessID, typ: typ, ownerID: ownerID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTransactionLimit(l), nil
}

func (v *view) UpdateTransactionLimit(ctx context.Context, limit *models.TransactionLimit) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	for key, previous := range t.transactionLimits {
		if previous.ID != limit.ID {
			continue
		}
		updated := *cloneTransactionLimit(*limit)
		updated.BusinessID, updated.Type, updated.OwnerID = previous.BusinessID, previous.Type, previous.OwnerID
		updated.CreatedAt = previous.CreatedAt
		t.transactionLimits[key] = updated
		v.onRollback(func() { t.transactionLimits[key] = previous })
		return nil
	}
	return store.ErrNotFound
}
