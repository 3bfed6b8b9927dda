package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lendwell/ledger-engine/internal/domain"
	"github.com/lendwell/ledger-engine/internal/service"
	"github.com/lendwell/ledger-engine/pkg/response"
)

type CashbookHandler struct {
	service   *service.CashbookService
	validator *validator.Validate
}

func NewCashbookHandler(service *service.CashbookService) *CashbookHandler {
	return &CashbookHandler{
		service:   service,
		validator: validator.New(),
	}
}

func (h *CashbookHandler) GetCashbook(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		response.BadRequest(w, "missing or invalid identity headers", err)
		return
	}

	from, err := queryDate(r, "from")
	if err != nil {
		response.BadRequest(w, "invalid from date", err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		response.BadRequest(w, "invalid to date", err)
		return
	}

	book, err := h.service.GetCashbook(r.Context(), scope, from, to)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, book)
}

func (h *CashbookHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		response.BadRequest(w, "missing or invalid identity headers", err)
		return
	}

	if err := h.service.Rebuild(r.Context(), scope); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.NoContent(w)
}

func (h *CashbookHandler) AddManualEntry(w http.ResponseWriter, r *http.Request) {
	var req domain.ManualEntryRequest
	h.record(w, r, &req, func(scope domain.Scope) (interface{}, error) {
		return h.service.AddManualEntry(r.Context(), scope, &req)
	})
}

func (h *CashbookHandler) RecordTransfer(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferRequest
	h.record(w, r, &req, func(scope domain.Scope) (interface{}, error) {
		return h.service.RecordTransfer(r.Context(), scope, &req)
	})
}

func (h *CashbookHandler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	var req domain.ExpenseRequest
	h.record(w, r, &req, func(scope domain.Scope) (interface{}, error) {
		return h.service.RecordExpense(r.Context(), scope, &req)
	})
}

func (h *CashbookHandler) RecordOtherIncome(w http.ResponseWriter, r *http.Request) {
	var req domain.OtherIncomeRequest
	h.record(w, r, &req, func(scope domain.Scope) (interface{}, error) {
		return h.service.RecordOtherIncome(r.Context(), scope, &req)
	})
}

func (h *CashbookHandler) RecordSavingsTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.SavingsTransactionRequest
	h.record(w, r, &req, func(scope domain.Scope) (interface{}, error) {
		return h.service.RecordSavingsTransaction(r.Context(), scope, &req)
	})
}

// record decodes and validates a source-record request, then runs op under
// the caller's scope.
func (h *CashbookHandler) record(w http.ResponseWriter, r *http.Request, req interface{}, op func(domain.Scope) (interface{}, error)) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		response.BadRequest(w, "missing or invalid identity headers", err)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	created, err := op(scope)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, created)
}

func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
