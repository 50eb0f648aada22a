package service

import (
	"context"

	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/domain"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
)

// DashboardService aggregates counters for the operator dashboard
type DashboardService struct {
	alerts     *AlertService
	batchRepo  *repository.BatchRepository
	returnRepo *repository.SupplierReturnRepository
	refundRepo *repository.RefundRepository
	logger     *logger.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	alerts *AlertService,
	batchRepo *repository.BatchRepository,
	returnRepo *repository.SupplierReturnRepository,
	refundRepo *repository.RefundRepository,
	log *logger.Logger,
) *DashboardService {
	return &DashboardService{
		alerts:     alerts,
		batchRepo:  batchRepo,
		returnRepo: returnRepo,
		refundRepo: refundRepo,
		logger:     log,
	}
}

// DashboardStats represents the dashboard counters
type DashboardStats struct {
	NearExpiryBatches   int `json:"near_expiry_batches"`
	ExpiredBatches      int `json:"expired_batches"`
	UnresolvedAlerts    int `json:"unresolved_alerts"`
	OpenSupplierReturns int `json:"open_supplier_returns"`
	OpenRefunds         int `json:"open_refunds"`
	TotalSellableStock  int `json:"total_sellable_stock"`
}

// Stats computes the dashboard counters
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	alerts, err := s.alerts.ListAlerts(ctx, AlertFilter{})
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{}
	for _, a := range alerts {
		switch a.AlertType {
		case domain.AlertNearExpiry:
			stats.NearExpiryBatches++
		case domain.AlertExpired:
			stats.ExpiredBatches++
		}
		if !a.Resolved {
			stats.UnresolvedAlerts++
		}
	}

	stats.OpenSupplierReturns, err = s.returnRepo.CountByStatus(ctx, repository.ReturnStatusPending)
	if err != nil {
		return nil, err
	}

	stats.OpenRefunds, err = s.refundRepo.CountByStatus(ctx, repository.RefundStatusPending)
	if err != nil {
		return nil, err
	}

	stats.TotalSellableStock, err = s.batchRepo.TotalSellableStock(ctx)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
