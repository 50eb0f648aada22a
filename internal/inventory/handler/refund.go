package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/service"
	"github.com/pharmaflow/pharmaflow-backend/pkg/errors"
	"github.com/pharmaflow/pharmaflow-backend/pkg/httputil"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// RefundHandler handles refund endpoints
type RefundHandler struct {
	service *service.RefundService
	logger  *logger.Logger
}

// NewRefundHandler creates a new refund handler
func NewRefundHandler(svc *service.RefundService, log *logger.Logger) *RefundHandler {
	return &RefundHandler{
		service: svc,
		logger:  log,
	}
}

// List lists refund requests
func (h *RefundHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	requests, err := h.service.List(r.Context(), status)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, requests)
}

// Get gets a refund request by ID, with the order lines an approval
// would restore
func (h *RefundHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	request, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, request)
}

// Create files a refund request against an order
func (h *RefundHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID string `json:"order_id" validate:"required,uuid"`
		UserID  string `json:"user_id" validate:"required,uuid"`
		Amount  string `json:"amount" validate:"required"`
		Reason  string `json:"reason" validate:"required"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httputil.Error(w, invalidField("amount", "must be a decimal number"))
		return
	}

	request := repository.RefundRequest{
		OrderID: req.OrderID,
		UserID:  req.UserID,
		Amount:  amount,
		Reason:  req.Reason,
	}

	if err := h.service.Create(r.Context(), &request); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, request)
}

// Approve approves a refund and restores stock to the originating
// batches
func (h *RefundHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		RefundMethod *string `json:"refund_method"`
		Notes        *string `json:"notes"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	adminID := httputil.GetUserID(r.Context())
	if adminID == "" {
		httputil.Error(w, errors.Unauthorized("approver identity missing"))
		return
	}

	if err := h.service.Approve(r.Context(), id, adminID, req.RefundMethod, req.Notes); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "refund approved"})
}

// Reject closes a pending refund request
func (h *RefundHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Notes *string `json:"notes"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	adminID := httputil.GetUserID(r.Context())
	if adminID == "" {
		httputil.Error(w, errors.Unauthorized("approver identity missing"))
		return
	}

	if err := h.service.Reject(r.Context(), id, adminID, req.Notes); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "refund rejected"})
}

// UpdateStatus moves an approved refund through payout processing
func (h *RefundHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status       string  `json:"status" validate:"required,oneof=processing completed"`
		RefundMethod *string `json:"refund_method"`
		Notes        *string `json:"notes"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.UpdateStatus(r.Context(), id, req.Status, req.RefundMethod, req.Notes); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "refund status updated"})
}
