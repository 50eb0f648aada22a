package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/service"
	"github.com/pharmaflow/pharmaflow-backend/pkg/httputil"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// BatchHandler handles batch endpoints
type BatchHandler struct {
	service *service.BatchService
	logger  *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(svc *service.BatchService, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		service: svc,
		logger:  log,
	}
}

// ListByMedicine lists batches for a medicine
func (h *BatchHandler) ListByMedicine(w http.ResponseWriter, r *http.Request) {
	medicineID := chi.URLParam(r, "id")

	batches, err := h.service.ListByMedicine(r.Context(), medicineID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// Receive records a newly delivered batch for a medicine
func (h *BatchHandler) Receive(w http.ResponseWriter, r *http.Request) {
	medicineID := chi.URLParam(r, "id")

	var req struct {
		BatchNumber  string  `json:"batch_number" validate:"required"`
		ExpiryDate   string  `json:"expiry_date" validate:"required"`
		Quantity     int     `json:"quantity" validate:"required,gt=0"`
		SupplierID   *string `json:"supplier_id" validate:"omitempty,uuid"`
		PurchaseDate *string `json:"purchase_date"`
		UnitCost     *string `json:"unit_cost"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	batch := repository.Batch{
		MedicineID:   medicineID,
		BatchNumber:  req.BatchNumber,
		ExpiryDate:   expiry,
		Quantity:     req.Quantity,
		SupplierID:   req.SupplierID,
		PurchaseDate: time.Now(),
	}

	if req.PurchaseDate != nil {
		purchase, err := parseDate(*req.PurchaseDate)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		batch.PurchaseDate = purchase
	}

	if req.UnitCost != nil {
		cost, err := decimal.NewFromString(*req.UnitCost)
		if err != nil {
			httputil.Error(w, invalidField("unit_cost", "must be a decimal number"))
			return
		}
		batch.UnitCost = decimal.NewNullDecimal(cost)
	}

	var performedBy *string
	if userID := httputil.GetUserID(r.Context()); userID != "" {
		performedBy = &userID
	}

	if err := h.service.Receive(r.Context(), &batch, performedBy); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

// Get gets a batch by ID
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	batch, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Delete removes a batch
func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// SetVisibility hides a batch from sale or restores it
func (h *BatchHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Hidden *bool `json:"hidden" validate:"required"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.SetVisibility(r.Context(), id, *req.Hidden)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}
