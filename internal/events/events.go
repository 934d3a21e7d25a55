// Package events carries ledger domain events to downstream consumers.
// Events are published after the unit of work that produced them has committed.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
)

const (
	AdjustmentPosted        = "adjustment.posted"
	HoldPlaced              = "hold.placed"
	HoldReleased            = "hold.released"
	HoldCaptured            = "hold.captured"
	HoldExpired             = "hold.expired"
	NetworkMessageProcessed = "network_message.processed"
	defaultTopic            = "ledger.events"
)

// Event is the envelope written to the ledger topic
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	BusinessID uuid.UUID `json:"business_id"`
	AccountID  uuid.UUID `json:"account_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Publisher delivers events; implementations must be safe for concurrent use
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }

func newEvent(typ string, businessID, accountID uuid.UUID, at time.Time, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       typ,
		BusinessID: businessID,
		AccountID:  accountID,
		OccurredAt: at,
		Payload:    payload,
	}
}

func ForAdjustment(a *models.Adjustment) Event {
	return newEvent(AdjustmentPosted, a.BusinessID, a.AccountID, a.CreatedAt, a)
}

// ForHold maps the hold's current status to its event type
func ForHold(h *models.Hold) Event {
	typ := HoldPlaced
	switch h.Status {
	case models.HoldReleased:
		typ = HoldReleased
	case models.HoldCaptured:
		typ = HoldCaptured
	case models.HoldExpired:
		typ = HoldExpired
	}
	return newEvent(typ, h.BusinessID, h.AccountID, h.UpdatedAt, h)
}

func ForNetworkMessage(m *models.NetworkMessage) Event {
	return newEvent(NetworkMessageProcessed, m.BusinessID, m.AccountID, m.CreatedAt, m)
}
