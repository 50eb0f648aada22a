package handler

import (
	"net/http"

	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/service"
	"github.com/pharmaflow/pharmaflow-backend/pkg/httputil"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
)

// StockHandler handles stock ledger endpoints
type StockHandler struct {
	ledger *service.StockLedgerService
	logger *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(ledger *service.StockLedgerService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		ledger: ledger,
		logger: log,
	}
}

// Reserve draws stock down across a medicine's batches, soonest expiry
// first
func (h *StockHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MedicineID string  `json:"medicine_id" validate:"required,uuid"`
		Quantity   int     `json:"quantity" validate:"required,gt=0"`
		Reference  *string `json:"reference"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	var performedBy *string
	if userID := httputil.GetUserID(r.Context()); userID != "" {
		performedBy = &userID
	}

	allocations, err := h.ledger.ReserveFEFO(r.Context(), req.MedicineID, req.Quantity, req.Reference, performedBy)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"medicine_id": req.MedicineID,
		"quantity":    req.Quantity,
		"allocations": allocations,
	})
}

// Restore returns a quantity to a single batch
func (h *StockHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchID   string  `json:"batch_id" validate:"required,uuid"`
		Quantity  int     `json:"quantity" validate:"required,gt=0"`
		Reference *string `json:"reference"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	var performedBy *string
	if userID := httputil.GetUserID(r.Context()); userID != "" {
		performedBy = &userID
	}

	if err := h.ledger.Restore(r.Context(), req.BatchID, req.Quantity, req.Reference, performedBy); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "stock restored"})
}
