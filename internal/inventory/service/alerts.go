package service

import (
	"context"
	"time"

	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/domain"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/pkg/config"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
)

// AlertService projects expiry alerts from batch state. Alerts are not
// stored; only resolution flags are durable.
type AlertService struct {
	batchRepo      *repository.BatchRepository
	resolutionRepo *repository.ResolutionRepository
	policy         *config.PolicyConfig
	logger         *logger.Logger
	now            func() time.Time
}

// NewAlertService creates a new alert service
func NewAlertService(
	batchRepo *repository.BatchRepository,
	resolutionRepo *repository.ResolutionRepository,
	policy *config.PolicyConfig,
	log *logger.Logger,
) *AlertService {
	return &AlertService{
		batchRepo:      batchRepo,
		resolutionRepo: resolutionRepo,
		policy:         policy,
		logger:         log,
		now:            time.Now,
	}
}

// AlertView is one actionable expiry alert
type AlertView struct {
	BatchID         string           `json:"batch_id"`
	MedicineID      string           `json:"medicine_id"`
	MedicineName    string           `json:"medicine_name"`
	BatchNumber     string           `json:"batch_number"`
	ExpiryDate      time.Time        `json:"expiry_date"`
	Quantity        int              `json:"quantity"`
	AlertType       domain.AlertType `json:"alert_type"`
	DaysUntilExpiry int              `json:"days_until_expiry"`
	Resolved        bool             `json:"resolved"`
}

// AlertFilter narrows the alert listing
type AlertFilter struct {
	Type     domain.AlertType
	Resolved *bool
}

// ListAlerts classifies every visible batch at the current time and
// joins the persisted resolution flags
func (s *AlertService) ListAlerts(ctx context.Context, filter AlertFilter) ([]*AlertView, error) {
	now := s.now()

	batches, err := s.batchRepo.ListVisibleWithMedicine(ctx)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolutionRepo.ListResolved(ctx)
	if err != nil {
		return nil, err
	}

	window := s.policy.NearExpiryWindow()
	alerts := make([]*AlertView, 0)

	for _, b := range batches {
		alertType := domain.Classify(now, b.ExpiryDate, b.Quantity, b.Hidden, window)
		if alertType == domain.AlertNone {
			continue
		}

		if filter.Type != domain.AlertNone && alertType != filter.Type {
			continue
		}

		isResolved := resolved[b.ID+"/"+string(alertType)]
		if filter.Resolved != nil && isResolved != *filter.Resolved {
			continue
		}

		alerts = append(alerts, &AlertView{
			BatchID:         b.ID,
			MedicineID:      b.MedicineID,
			MedicineName:    b.MedicineName,
			BatchNumber:     b.BatchNumber,
			ExpiryDate:      b.ExpiryDate,
			Quantity:        b.Quantity,
			AlertType:       alertType,
			DaysUntilExpiry: domain.DaysUntilExpiry(now, b.ExpiryDate),
			Resolved:        isResolved,
		})
	}

	return alerts, nil
}
