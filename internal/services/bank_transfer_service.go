package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
)

type BankTransactionType string

const (
	BankTransactionDeposit  BankTransactionType = "DEPOSIT"
	BankTransactionWithdraw BankTransactionType = "WITHDRAW"
)

// BankTransactionRequest moves funds between a linked bank account and the business account
type BankTransactionRequest struct {
	BusinessID    uuid.UUID           `json:"-"`
	BankAccountID uuid.UUID           `json:"bankAccountId" validate:"required"`
	Type          BankTransactionType `json:"bankAccountTransactType" validate:"required,oneof=DEPOSIT WITHDRAW"`
	Amount        models.Amount       `json:"amount"`
	PlaceHold     bool                `json:"placeHold"`
}

type BankTransactionResult struct {
	AdjustmentResult
	InstructionID *uuid.UUID `json:"instructionId,omitempty"`
}

// WithdrawalQueue hands committed withdrawals to settlement
type WithdrawalQueue interface {
	QueueWithdrawal(ctx context.Context, in *WithdrawalInstruction) error
}

// BankTransferService is the bank-transfer boundary. Bank account linking lives elsewhere;
// bankAccountId is opaque here.
type BankTransferService struct {
	accounts    *AccountService
	adjustments *AdjustmentService
	settlement  WithdrawalQueue
}

func NewBankTransferService(s *Services, settlement WithdrawalQueue) *BankTransferService {
	return &BankTransferService{
		accounts:    s.Accounts,
		adjustments: s.Adjustments,
		settlement:  settlement,
	}
}

// TransactBankAccount deposits to or withdraws from the business account. A committed
// withdrawal is queued for settlement; a queueing failure is logged and never undoes it.
func (s *BankTransferService) TransactBankAccount(ctx context.Context, req BankTransactionRequest) (*BankTransactionResult, error) {
	account, err := s.accounts.RetrieveAccountByOwner(ctx, req.BusinessID, models.AccountTypeBusiness, req.BusinessID, req.Amount.Currency)
	if err != nil {
		return nil, err
	}

	switch req.Type {
	case BankTransactionDeposit:
		result, err := s.adjustments.DepositFunds(ctx, req.BusinessID, account.ID, req.Amount, req.PlaceHold)
		if err != nil {
			return nil, err
		}
		return &BankTransactionResult{AdjustmentResult: *result}, nil

	case BankTransactionWithdraw:
		result, err := s.adjustments.WithdrawFunds(ctx, req.BusinessID, account.ID, req.Amount)
		if err != nil {
			return nil, err
		}

		instruction := NewWithdrawalInstruction(req.BusinessID, req.BankAccountID, result.Adjustment)
		if err := s.settlement.QueueWithdrawal(ctx, instruction); err != nil {
			log.Printf("[SETTLEMENT] Failed to queue withdrawal %s: %v", result.Adjustment.ID, err)
			return &BankTransactionResult{AdjustmentResult: *result}, nil
		}
		return &BankTransactionResult{AdjustmentResult: *result, InstructionID: &instruction.InstructionID}, nil

	default:
		return nil, fmt.Errorf("unsupported bank transaction type %q", req.Type)
	}
}
