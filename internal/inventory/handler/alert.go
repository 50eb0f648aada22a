package handler

import (
	"net/http"

	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/domain"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/service"
	"github.com/pharmaflow/pharmaflow-backend/pkg/httputil"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
)

// AlertHandler handles expiry alert endpoints
type AlertHandler struct {
	alerts      *service.AlertService
	resolutions *service.ResolutionService
	logger      *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alerts *service.AlertService, resolutions *service.ResolutionService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		alerts:      alerts,
		resolutions: resolutions,
		logger:      log,
	}
}

// List lists current expiry alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := service.AlertFilter{
		Type: domain.AlertType(r.URL.Query().Get("type")),
	}

	if v := r.URL.Query().Get("resolved"); v != "" {
		resolved := v == "true"
		filter.Resolved = &resolved
	}

	alerts, err := h.alerts.ListAlerts(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, alerts)
}

// Resolve flips the resolution flag of an alert and applies the
// corresponding commerce rule
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchID   string `json:"batch_id" validate:"required,uuid"`
		AlertType string `json:"alert_type" validate:"required,oneof=near_expiry expired"`
		Resolved  *bool  `json:"resolved" validate:"required"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	var resolvedBy *string
	if userID := httputil.GetUserID(r.Context()); userID != "" {
		resolvedBy = &userID
	}

	message, err := h.resolutions.Resolve(r.Context(), req.BatchID, domain.AlertType(req.AlertType), *req.Resolved, resolvedBy)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": message})
}
