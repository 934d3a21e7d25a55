package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
)

func (v *view) InsertCard(ctx context.Context, card *models.Card) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	if _, ok := t.cards[card.CardNumber]; ok {
		return duplicate("card_card_number_key")
	}
	t.cards[card.CardNumber] = *card
	v.onRollback(func() { delete(t.cards, card.CardNumber) })
	return nil
}

func (v *view) GetCardByNumber(ctx context.Context, cardNumber string) (*models.Card, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	c, ok := t.cards[cardNumber]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (v *view) InsertNetworkMessage(ctx context.Context, msg *models.NetworkMessage) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	if _, ok := t.networkMessages[msg.ID]; ok {
		return duplicate("network_message_pkey")
	}
	t.networkMessages[msg.ID] = *msg
	v.onRollback(func() { delete(t.networkMessages, msg.ID) })
	return nil
}

func (v *view) GetNetworkMessage(ctx context.Context, id uuid.UUID) (*models.NetworkMessage, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	m, ok := t.networkMessages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (v *view) InsertActivity(ctx context.Context, activity *models.AccountActivity) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	n := len(t.activity)
	t.activity = append(t.activity, *activity)
	v.onRollback(func() { t.activity = t.activity[:n] })
	return nil
}

func (v *view) ResolveHoldActivity(ctx context.Context, holdID uuid.UUID, at time.Time) error {
	t, exit, err := v.enter()
	if err != nil {
		return err
	}
	defer exit()

	for i := range t.activity {
		a := &t.activity[i]
		if a.HoldID == nil || *a.HoldID != holdID {
			continue
		}
		previous := *a
		idx := i
		switch {
		case a.Status == models.ActivityPending && (a.HideAfter == nil || a.HideAfter.After(at)):
			hideAfter := at
			a.HideAfter = &hideAfter
		case a.Status == models.ActivityProcessed && a.VisibleAfter != nil && a.VisibleAfter.After(at):
			visibleAfter := at
			a.VisibleAfter = &visibleAfter
		default:
			continue
		}
		v.onRollback(func() { t.activity[idx] = previous })
	}
	return nil
}

func matchesID(want *uuid.UUID, got *uuid.UUID) bool {
	if want == nil {
		return true
	}
	return got != nil && *got == *want
}

func (v *view) FindActivity(ctx context.Context, businessID uuid.UUID, filter models.ActivityFilter, now time.Time) ([]models.AccountActivity, error) {
	t, exit, err := v.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	var rows []models.AccountActivity
	for _, a := range t.activity {
		if a.BusinessID != businessID || !a.IsVisible(now) {
			continue
		}
		if filter.AccountID != nil && a.AccountID != *filter.AccountID {
			continue
		}
		if !matchesID(filter.AllocationID, a.AllocationID) || !matchesID(filter.CardID, a.CardID) {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.From != nil && a.ActivityTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.ActivityTime.After(*filter.To) {
			continue
		}
		rows = append(rows, a)
	}
	sortStable(rows, func(a, b models.AccountActivity) bool { return a.ActivityTime.After(b.ActivityTime) })

	start := filter.PageNumber * filter.PageSize
	if start >= len(rows) {
		return nil, nil
	}
	end := len(rows)
	if filter.PageSize > 0 && start+filter.PageSize < end {
		end = start + filter.PageSize
	}
	return rows[start:end], nil
}

var _ store.Store = (*MemoryStore)(nil)
