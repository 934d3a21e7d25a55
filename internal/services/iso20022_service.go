package services

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/ruralpay/ledger/internal/models"
)

const (
	SettlementQueue    = "settlement_queue"
	pacs008MessageType = "pacs.008.001.08"
	debtorAgentBIC     = "RURALPAY"
)

// ErrSettlementUnavailable is returned when there is no queue to hand an instruction to
var ErrSettlementUnavailable = errors.New("settlement queue unavailable")

// WithdrawalInstruction is the outbound credit transfer for a committed withdrawal
type WithdrawalInstruction struct {
	InstructionID uuid.UUID     `json:"instruction_id"`
	BusinessID    uuid.UUID     `json:"business_id"`
	BankAccountID uuid.UUID     `json:"bank_account_id"`
	AdjustmentID  uuid.UUID     `json:"adjustment_id"`
	Amount        models.Amount `json:"amount"`
	CreatedAt     time.Time     `json:"created_at"`
}

// settlementMessage is what settlement workers pop from the queue
type settlementMessage struct {
	MessageType string                 `json:"messageType"`
	Instruction *WithdrawalInstruction `json:"instruction"`
	XML         string                 `json:"xml"`
}

// ISO20022Service builds pacs.008 instructions for bank withdrawals and queues them for settlement
type ISO20022Service struct {
	redis *redis.Client
}

func NewISO20022Service(rdb *redis.Client) *ISO20022Service {
	return &ISO20022Service{redis: rdb}
}

func NewWithdrawalInstruction(businessID, bankAccountID uuid.UUID, adj *models.Adjustment) *WithdrawalInstruction {
	return &WithdrawalInstruction{
		InstructionID: uuid.New(),
		BusinessID:    businessID,
		BankAccountID: bankAccountID,
		AdjustmentID:  adj.ID,
		Amount:        adj.Amount.Abs(),
		CreatedAt:     adj.EffectiveDate,
	}
}

// CreatePacs008 creates a pacs.008 FIToFICustomerCreditTransfer for a withdrawal
func (iso *ISO20022Service) CreatePacs008(in *WithdrawalInstruction) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	if err := in.Amount.EnsurePositive(); err != nil {
		return nil, err
	}

	settlementDate := in.CreatedAt
	value := in.Amount.Amount.InexactFloat64()
	currency := common.ActiveCurrencyCode(in.Amount.Currency)
	instructionID := common.Max35Text(in.InstructionID.String())
	txID := common.Max35Text(in.AdjustmentID.String())

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   instructionID,
			CreDtTm: common.ISODateTime(in.CreatedAt),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   currency,
				Value: value,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG",
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &instructionID,
					EndToEndId: common.Max35Text(in.AdjustmentID.String()),
					TxId:       &txID,
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   currency,
					Value: value,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(debtorAgentBIC)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(in.BusinessID.String())}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
							MmbId: common.Max35Text(in.BankAccountID.String()),
						},
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(in.BankAccountID.String())}[0],
				},
			},
		},
	}

	return doc, nil
}

// ConvertToXML converts ISO20022 document to XML string
func (iso *ISO20022Service) ConvertToXML(doc any) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}

// QueueWithdrawal pushes the pacs.008 for a committed withdrawal onto the settlement queue
func (iso *ISO20022Service) QueueWithdrawal(ctx context.Context, in *WithdrawalInstruction) error {
	if iso.redis == nil {
		return fmt.Errorf("instruction %s: %w", in.InstructionID, ErrSettlementUnavailable)
	}

	data, err := iso.settlementPayload(in)
	if err != nil {
		return err
	}
	return iso.redis.RPush(ctx, SettlementQueue, data).Err()
}

func (iso *ISO20022Service) settlementPayload(in *WithdrawalInstruction) ([]byte, error) {
	doc, err := iso.CreatePacs008(in)
	if err != nil {
		return nil, err
	}
	xmlData, err := iso.ConvertToXML(doc)
	if err != nil {
		return nil, err
	}

	return json.Marshal(settlementMessage{
		MessageType: pacs008MessageType,
		Instruction: in,
		XML:         xmlData,
	})
}
