package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/services"
)

// LedgerHandler exposes the engine to businesses. Every route expects the auth middleware
// to have placed the caller's business id on the request context.
type LedgerHandler struct {
	svc       *services.Services
	transfers *services.BankTransferService
	validator *services.ValidationHelper
}

func NewLedgerHandler(svc *services.Services, transfers *services.BankTransferService) *LedgerHandler {
	return &LedgerHandler{
		svc:       svc,
		transfers: transfers,
		validator: services.NewValidationHelper(),
	}
}

// Routes mounts the handler under the router it is given
func (h *LedgerHandler) Routes(r chi.Router) {
	r.Post("/businesses", h.CreateBusiness)
	r.Post("/accounts", h.CreateAccount)
	r.Get("/accounts/{accountId}", h.GetAccount)
	r.Post("/cards", h.IssueCard)
	r.Post("/bank-transactions", h.TransactBankAccount)
	r.Post("/reallocations", h.ReallocateFunds)
	r.Get("/activity", h.FindActivity)
	r.Put("/limits/business", h.UpdateBusinessLimit)
	r.Put("/limits/{limitType}/{ownerId}", h.UpdateTransactionLimit)
}

// decode reads and validates a request body, answering 400 itself on failure
func (h *LedgerHandler) decode(w http.ResponseWriter, r *http.Request, tag string, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		log.Printf("[%s] Decode error: %v", tag, err)
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := h.validator.ValidateStruct(dst); err != nil {
		log.Printf("[%s] Validation error: %v", tag, err)
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

type createBusinessRequest struct {
	Currency models.Currency `json:"currency" validate:"required,currency"`
}

func (h *LedgerHandler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessID(w, r)
	if !ok {
		return
	}
	var req createBusinessRequest
	if !h.decode(w, r, "BUSINESS", &req) {
		return
	}

	account, err := h.svc.Accounts.CreateBusiness(r.Context(), businessID, req.Currency)
	if err != nil {
		writeError(w, "BUSINESS", err)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

type createAccountRequest struct {
	Type     models.AccountType `json:"type" validate:"required,oneof=ALLOCATION CARD"`
	OwnerID  uuid.UUID          `json:"ownerId" validate:"required"`
	Currency models.Currency    `json:"currency" validate:"required,currency"`
}

func (h *LedgerHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessID(w, r)
	if !ok {
		return
	}
	var req createAccountRequest
	if !h.decode(w, r, "ACCOUNT", &req) {
		return
	}

	account, err := h.svc.Accounts.CreateAccount(r.Context(), businessID, req.Type, req.OwnerID, req.Currency)
	if err != nil {
		writeError(w, "ACCOUNT", err)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

func (h *LedgerHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessID(w, r)
	if !ok {
		return
	}
	accountID, err := uuid.Parse(chi.URLParam(r, "accountId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	account, err := h.svc.Accounts.RetrieveAccount(r.Context(), accountID)
	if err == nil && account.BusinessID != businessID {
		err = &services.RecordNotFoundError{Table: "account", ID: accountID}
	}
	if err != nil {
		writeError(w, "ACCOUNT", err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

type issueCardRequest struct {
	AllocationID uuid.UUID       `json:"allocationId" validate:"required"`
	CardNumber   string          `json:"cardNumber" validate:"required,numeric,min=12,max=19"`
	Currency     models.Currency `json:"currency" validate:"required,currency"`
}

type issueCardResponse struct {
	Card    *models.Card    `json:"card"`
	Account *models.Account `json:"account"`
}

func (h *LedgerHandler) IssueCard(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessID(w, r)
	if !ok {
		return
	}
	var req issueCardRequest
	if !h.decode(w, r, "CARD", &req) {
		return
	}

	card, account, err := h.svc.Accounts.IssueCard(r.Context(), businessID, req.AllocationID, req.CardNumber, req.Currency)
	if err != nil {
		writeError(w, "CARD", err)
		return
	}
	respondJSON(w, http.StatusCreated, issueCardResponse{Card: card, Account: account})
}

func (h *LedgerHandler) TransactBankAccount(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessID(w, r)
	if !ok {
		return
	}
	var req services.BankTransactionRequest
	if !h.decode(w, r, "BANK", &req) {
		return
	}
	req.BusinessID = businessID

	result, err := h.transfers.TransactBankAccount(r.Context(), req)
	if err != nil {
		writeError(w, "BANK", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type reallocationRequest struct {
	FromAccountID uuid.UUID     `json:"fromAccountId" validate:"required"`
	ToAccountID   uuid.UUID     `json:"toAccountId" validate:"required"`
	Amount        models.Amount `json:"amount"`
}

func (h *LedgerHandler) ReallocateFunds(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessID(w, r)
	if !ok {
		return
	}
	var req reallocationRequest
	if !h.decode(w, r, "REALLOCATE", &req) {
		return
	}

	result, err := h.svc.Adjustments.ReallocateFunds(r.Context(), businessID, req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		writeError(w, "REALLOCATE", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// parseActivityFilter reads the activity query string
func parseActivityFilter(r *http.Request) (models.ActivityFilter, error) {
	q := r.URL.Query()
	var filter models.ActivityFilter

	ids := map[string]**uuid.UUID{
		"accountId":    &filter.AccountID,
		"allocationId": &filter.AllocationID,
		"cardId":       &filter.CardID,
	}
	for name, dst := range ids {
		if v := q.Get(name); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return filter, err
			}
			*dst = &id
		}
	}

	times := map[string]**time.Time{"from": &filter.From, "to": &filter.To}
	for name, dst := range times {
		if v := q.Get(name); v != "" {
			at, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return filter, err
			}
			*dst = &at
		}
	}

	ints := map[string]*int{"pageNumber": &filter.PageNumber, "pageSize": &filter.PageSize}
	for name, dst := range ints {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return filter, err
			}
			*dst = n
		}
	}

	filter.Type = models.ActivityType(q.Get("type"))
	return filter, nil
}

func (h *LedgerHandler) FindActivity(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessID(w, r)
	if !ok {
		return
	}
	filter, err := parseActivityFilter(r)
	if err != nil {
		services.SendErrorResponse(w, "Invalid query: "+err.Error(), http.StatusBadRequest, nil)
		return
	}

	rows, err := h.svc.Activity.FindActivity(r.Context(), businessID, filter)
	if err != nil {
		writeError(w, "ACTIVITY", err)
		return
	}
	if rows == nil {
		rows = []models.AccountActivity{}
	}
	respondJSON(w, http.StatusOK, rows)
}

type businessLimitRequest struct {
	Limits models.Limits `json:"limits" validate:"required"`
}

func (h *LedgerHandler) UpdateBusinessLimit(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessID(w, r)
	if !ok {
		return
	}
	var req businessLimitRequest
	if !h.decode(w, r, "LIMIT", &req) {
		return
	}

	limit, err := h.svc.Limits.UpdateBusinessLimit(r.Context(), businessID, req.Limits)
	if err != nil {
		writeError(w, "LIMIT", err)
		return
	}
	respondJSON(w, http.StatusOK, limit)
}

func (h *LedgerHandler) UpdateTransactionLimit(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessID(w, r)
	if !ok {
		return
	}

	var typ models.TransactionLimitType
	switch chi.URLParam(r, "limitType") {
	case "allocations":
		typ = models.TransactionLimitAllocation
	case "cards":
		typ = models.TransactionLimitCard
	default:
		services.SendErrorResponse(w, "Unknown limit type", http.StatusNotFound, nil)
		return
	}
	ownerID, err := uuid.Parse(chi.URLParam(r, "ownerId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid owner id", http.StatusBadRequest, nil)
		return
	}

	var req services.TransactionLimitUpdate
	if !h.decode(w, r, "LIMIT", &req) {
		return
	}

	limit, err := h.svc.Limits.UpdateTransactionLimit(r.Context(), businessID, typ, ownerID, req)
	if err != nil {
		writeError(w, "LIMIT", err)
		return
	}
	respondJSON(w, http.StatusOK, limit)
}
