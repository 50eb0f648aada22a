package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/service"
	"github.com/pharmaflow/pharmaflow-backend/pkg/httputil"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
)

// SupplierReturnHandler handles supplier return endpoints
type SupplierReturnHandler struct {
	service *service.SupplierReturnService
	logger  *logger.Logger
}

// NewSupplierReturnHandler creates a new supplier return handler
func NewSupplierReturnHandler(svc *service.SupplierReturnService, log *logger.Logger) *SupplierReturnHandler {
	return &SupplierReturnHandler{
		service: svc,
		logger:  log,
	}
}

// List lists supplier return requests
func (h *SupplierReturnHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	requests, err := h.service.List(r.Context(), status)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, requests)
}

// Get gets a supplier return request by ID
func (h *SupplierReturnHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	request, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, request)
}

// Create files a new supplier return request
func (h *SupplierReturnHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchID    string  `json:"batch_id" validate:"required,uuid"`
		SupplierID *string `json:"supplier_id" validate:"omitempty,uuid"`
		Quantity   int     `json:"quantity" validate:"required,gt=0"`
		Reason     string  `json:"reason" validate:"required"`
		Notes      *string `json:"notes"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	request := repository.SupplierReturnRequest{
		BatchID:    req.BatchID,
		SupplierID: req.SupplierID,
		Quantity:   req.Quantity,
		Reason:     req.Reason,
		Notes:      req.Notes,
	}

	if err := h.service.Create(r.Context(), &request); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, request)
}

// Approve applies the supplier's replacement batch
func (h *SupplierReturnHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		NewBatchNumber string  `json:"new_batch_number" validate:"required"`
		NewExpiryDate  string  `json:"new_expiry_date" validate:"required"`
		NewQuantity    int     `json:"new_quantity" validate:"required,gt=0"`
		Notes          *string `json:"notes"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	newExpiry, err := parseDate(req.NewExpiryDate)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var performedBy *string
	if userID := httputil.GetUserID(r.Context()); userID != "" {
		performedBy = &userID
	}

	if err := h.service.Approve(r.Context(), id, req.NewBatchNumber, newExpiry, req.NewQuantity, req.Notes, performedBy); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "supplier return approved"})
}

// Reject closes a pending request without replacing the batch
func (h *SupplierReturnHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Notes *string `json:"notes"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.Reject(r.Context(), id, req.Notes); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "supplier return rejected"})
}
