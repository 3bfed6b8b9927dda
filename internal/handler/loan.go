package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/lendwell/ledger-engine/internal/domain"
	"github.com/lendwell/ledger-engine/internal/service"
	"github.com/lendwell/ledger-engine/pkg/response"
)

// Identity headers supplied by the authenticating front end. The core does no
// authentication itself, but every write carries a scope for audit.
const (
	headerCompany = "X-Company-ID"
	headerBranch  = "X-Branch-ID"
	headerActor   = "X-Actor-ID"
)

type LoanHandler struct {
	service   *service.LedgerService
	validator *validator.Validate
}

func NewLoanHandler(service *service.LedgerService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
	}
}

// scopeFromRequest reads the tenant/branch/actor identity headers.
func scopeFromRequest(r *http.Request) (domain.Scope, error) {
	var scope domain.Scope
	var err error

	if scope.CompanyID, err = uuid.Parse(r.Header.Get(headerCompany)); err != nil {
		return scope, err
	}
	if scope.BranchID, err = uuid.Parse(r.Header.Get(headerBranch)); err != nil {
		return scope, err
	}
	if scope.ActorID, err = uuid.Parse(r.Header.Get(headerActor)); err != nil {
		return scope, err
	}

	return scope, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[name])
}

func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		response.BadRequest(w, "missing or invalid identity headers", err)
		return
	}

	var req domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), scope, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, loan)
}

func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		response.BadRequest(w, "missing or invalid identity headers", err)
		return
	}

	loans, err := h.service.ListLoans(r.Context(), scope)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, loans)
}

func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	loan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, loan)
}

func (h *LoanHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ApproveLoan)
}

func (h *LoanHandler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.DisburseLoan)
}

func (h *LoanHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (*domain.Loan, error)) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	loan, err := op(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, loan)
}

func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	if err := h.service.DeleteLoan(r.Context(), loanID); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.NoContent(w)
}

func (h *LoanHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	ledger, err := h.service.GetLedger(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, ledger)
}

func (h *LoanHandler) AppendRepayment(w http.ResponseWriter, r *http.Request) {
	h.appendEntry(w, r, h.service.AppendRepayment)
}

func (h *LoanHandler) AppendCumulativeInterest(w http.ResponseWriter, r *http.Request) {
	h.appendEntry(w, r, h.service.AppendCumulativeInterest)
}

func (h *LoanHandler) appendEntry(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, decimal.Decimal, time.Time) (*domain.LedgerEntry, error)) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	var req domain.AppendEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	entry, err := op(r.Context(), loanID, req.Amount, req.Date)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, entry)
}

func (h *LoanHandler) EditEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := pathUUID(r, "entryId")
	if err != nil {
		response.BadRequest(w, "invalid entry id", err)
		return
	}

	var req domain.EditEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	entry, err := h.service.EditEntry(r.Context(), entryID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, entry)
}

func (h *LoanHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := pathUUID(r, "entryId")
	if err != nil {
		response.BadRequest(w, "invalid entry id", err)
		return
	}

	if err := h.service.DeleteEntry(r.Context(), entryID); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.NoContent(w)
}
