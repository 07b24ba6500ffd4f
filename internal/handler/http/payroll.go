package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/buildcrew/workforce-engine/internal/handler/http/response"
	"github.com/buildcrew/workforce-engine/internal/pkg/clock"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	Run(w http.ResponseWriter, r *http.Request)
	ListPayments(w http.ResponseWriter, r *http.Request)
	GetPayment(w http.ResponseWriter, r *http.Request)
	RecordPayment(w http.ResponseWriter, r *http.Request)
	MarkOverdue(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.Service
	clock          clock.Clock
	location       *time.Location
}

func (h *payrollHandlerImpl) Run(w http.ResponseWriter, r *http.Request) {
	var req payroll.RunPayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.RunPayroll(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	message := fmt.Sprintf("Payroll derived for %d workers, %d failed", len(result.Succeeded), len(result.Failed))
	response.SuccessWithMessage(w, message, payroll.NewBatchResponse(result))
}

func (h *payrollHandlerImpl) ListPayments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := payroll.PaymentFilter{}

	if workerID := query.Get("worker_id"); workerID != "" {
		filter.WorkerID = &workerID
	}
	if status := query.Get("status"); status != "" {
		filter.Status = &status
	}
	if periodStart := query.Get("period_start"); periodStart != "" {
		filter.PeriodStart = &periodStart
	}
	if periodEnd := query.Get("period_end"); periodEnd != "" {
		filter.PeriodEnd = &periodEnd
	}

	filter.Page = 1
	if p := query.Get("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			filter.Page = pageNum
		}
	}
	filter.Limit = 20
	if l := query.Get("limit"); l != "" {
		if limitNum, err := strconv.Atoi(l); err == nil && limitNum > 0 {
			filter.Limit = limitNum
		}
	}

	filter.SortBy = query.Get("sort_by")
	filter.SortOrder = query.Get("sort_order")

	payments, total, err := h.payrollService.ListPayments(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, payroll.NewPaymentResponses(payments), response.NewMeta(filter.Page, filter.Limit, total))
}

func (h *payrollHandlerImpl) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payment ID is required", nil)
		return
	}

	payment, err := h.payrollService.GetPayment(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.NewPaymentResponse(payment))
}

func (h *payrollHandlerImpl) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payment ID is required", nil)
		return
	}

	var req payroll.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = id

	payment, err := h.payrollService.RecordPayment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payment recorded", payroll.NewPaymentResponse(payment))
}

func (h *payrollHandlerImpl) MarkOverdue(w http.ResponseWriter, r *http.Request) {
	var req payroll.MarkOverdueRequest
	// The body is optional.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	asOf := h.clock.Now().In(h.location)
	if req.AsOf != nil {
		asOf, _ = time.ParseInLocation(attendance.DateLayout, *req.AsOf, h.location)
	}

	n, err := h.payrollService.MarkOverdue(r.Context(), asOf)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.MarkOverdueResponse{
		AsOf:    asOf.Format(attendance.DateLayout),
		Updated: n,
	})
}

func NewPayrollHandler(payrollService payroll.Service, clk clock.Clock, location *time.Location) PayrollHandler {
	if clk == nil {
		clk = clock.System()
	}
	if location == nil {
		location = time.UTC
	}
	return &payrollHandlerImpl{
		payrollService: payrollService,
		clock:          clk,
		location:       location,
	}
}
