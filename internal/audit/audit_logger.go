// Package audit writes one JSON line per ledger mutation, prefixed with AUDIT:
package audit

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
)

type AuditEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"event_type"`
	BusinessID  string    `json:"business_id,omitempty"`
	AccountID   string    `json:"account_id,omitempty"`
	ReferenceID string    `json:"reference_id,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Status      string    `json:"status"`
	Details     any       `json:"details,omitempty"`
}

type Logger struct {
	out *log.Logger
}

func NewLogger() *Logger {
	return NewLoggerTo(os.Stderr)
}

// NewLoggerTo writes audit lines to w
func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{out: log.New(w, "", log.LstdFlags)}
}

func (a *Logger) LogAdjustment(adj *models.Adjustment) {
	a.log(AuditEvent{
		Timestamp:   time.Now(),
		EventType:   string(adj.Type),
		BusinessID:  adj.BusinessID.String(),
		AccountID:   adj.AccountID.String(),
		ReferenceID: adj.JournalEntryID.String(),
		Amount:      adj.Amount.String(),
		Status:      "POSTED",
		Details:     map[string]string{"adjustment_id": adj.ID.String()},
	})
}

func (a *Logger) LogHold(hold *models.Hold) {
	a.log(AuditEvent{
		Timestamp:   time.Now(),
		EventType:   "HOLD",
		BusinessID:  hold.BusinessID.String(),
		AccountID:   hold.AccountID.String(),
		ReferenceID: hold.ID.String(),
		Amount:      hold.Amount.String(),
		Status:      string(hold.Status),
		Details:     map[string]string{"expiration_date": hold.ExpirationDate.Format(time.RFC3339)},
	})
}

func (a *Logger) LogNetworkMessage(msg *models.NetworkMessage) {
	details := map[string]string{
		"type":        string(msg.Type),
		"network_ref": msg.NetworkRef,
	}
	if msg.DeclineReason != "" {
		details["decline_reason"] = string(msg.DeclineReason)
	}
	a.log(AuditEvent{
		Timestamp:   time.Now(),
		EventType:   "NETWORK_MESSAGE",
		BusinessID:  msg.BusinessID.String(),
		AccountID:   msg.AccountID.String(),
		ReferenceID: msg.ID.String(),
		Amount:      msg.Amount.String(),
		Status:      string(msg.Outcome),
		Details:     details,
	})
}

func (a *Logger) LogError(operation string, accountID uuid.UUID, err error) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: operation,
		AccountID: accountID.String(),
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	a.out.Printf("AUDIT: %s", string(data))
}
