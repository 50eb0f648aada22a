package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/events"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/pkg/database"
	"github.com/pharmaflow/pharmaflow-backend/pkg/errors"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
	"github.com/pharmaflow/pharmaflow-backend/pkg/messaging"
	"github.com/shopspring/decimal"
)

// RefundService runs the refund workflow. Approval restores every
// order line to its originating batch; if any of those batches was
// cascaded away the whole approval fails with BatchGone and the
// operator must reassign stock manually first.
type RefundService struct {
	db         *database.DB
	refundRepo *repository.RefundRepository
	orderRepo  *repository.OrderRepository
	ledger     *StockLedgerService
	publisher  *events.PharmacyEventPublisher
	logger     *logger.Logger
}

// NewRefundService creates a new refund service
func NewRefundService(
	db *database.DB,
	refundRepo *repository.RefundRepository,
	orderRepo *repository.OrderRepository,
	ledger *StockLedgerService,
	publisher *events.PharmacyEventPublisher,
	log *logger.Logger,
) *RefundService {
	return &RefundService{
		db:         db,
		refundRepo: refundRepo,
		orderRepo:  orderRepo,
		ledger:     ledger,
		publisher:  publisher,
		logger:     log,
	}
}

// Create files a refund request against an order. The amount may equal
// the order total but never exceed it.
func (s *RefundService) Create(ctx context.Context, req *repository.RefundRequest) error {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.BadRequest("refund amount must be positive")
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return err
	}
	if order.Refunded {
		return errors.InvalidState("order has already been refunded")
	}
	if req.Amount.GreaterThan(order.TotalAmount) {
		return errors.RefundExceedsOrder("refund amount exceeds order total")
	}

	if err := s.refundRepo.Create(ctx, req); err != nil {
		return err
	}

	s.logger.Info().
		Str("refund_id", req.ID).
		Str("order_id", req.OrderID).
		Str("amount", req.Amount.String()).
		Msg("refund requested")

	return nil
}

// RefundDetail is a refund request joined with its order's lines
type RefundDetail struct {
	*repository.RefundRequest
	OrderLines []*repository.OrderLine `json:"order_lines"`
}

// Get returns a refund request together with the order lines an
// approval would restore, so the operator can see which batches get
// the stock back (and which lines have lost theirs)
func (s *RefundService) Get(ctx context.Context, id string) (*RefundDetail, error) {
	req, err := s.refundRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	lines, err := s.orderRepo.ListLines(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	return &RefundDetail{RefundRequest: req, OrderLines: lines}, nil
}

// List lists refund requests, optionally filtered by status
func (s *RefundService) List(ctx context.Context, status string) ([]*repository.RefundRequest, error) {
	return s.refundRepo.List(ctx, status)
}

// Approve restores each order line's quantity to its originating batch
// and marks the order refunded, all in one transaction
func (s *RefundService) Approve(ctx context.Context, id, adminID string, refundMethod, notes *string) error {
	var (
		orderID  string
		amount   decimal.Decimal
		restored int
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		req, err := s.refundRepo.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != repository.RefundStatusPending {
			return errors.InvalidState("refund request is not pending")
		}
		orderID = req.OrderID
		amount = req.Amount

		lines, err := s.orderRepo.ListLinesTx(ctx, tx, req.OrderID)
		if err != nil {
			return err
		}

		reference := "refund:" + id
		for _, line := range lines {
			if line.BatchID == nil {
				return errors.BatchGone("order line has no surviving batch to restore")
			}
			if _, err := s.ledger.RestoreTx(ctx, tx, *line.BatchID, line.Quantity, &reference, &adminID); err != nil {
				return err
			}
			restored++
		}

		if err := s.orderRepo.MarkRefundedTx(ctx, tx, req.OrderID); err != nil {
			return err
		}

		return s.refundRepo.SetDecisionTx(ctx, tx, id, repository.RefundStatusApproved, adminID, refundMethod, notes)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("refund_id", id).
		Str("order_id", orderID).
		Int("lines_restored", restored).
		Msg("refund approved")

	s.publisher.PublishRefundApproved(ctx, messaging.RefundApprovedEvent{
		RefundID:      id,
		OrderID:       orderID,
		Amount:        amount,
		LinesRestored: restored,
		ApprovedBy:    adminID,
	})

	return nil
}

// Reject closes a pending refund request without restoring stock
func (s *RefundService) Reject(ctx context.Context, id, adminID string, notes *string) error {
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		req, err := s.refundRepo.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != repository.RefundStatusPending {
			return errors.InvalidState("refund request is not pending")
		}

		return s.refundRepo.SetDecisionTx(ctx, tx, id, repository.RefundStatusRejected, adminID, nil, notes)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("refund_id", id).Msg("refund rejected")
	return nil
}

// UpdateStatus moves an approved refund through payout processing.
// Only approved -> processing|completed and processing -> completed
// are legal moves.
func (s *RefundService) UpdateStatus(ctx context.Context, id, status string, refundMethod, notes *string) error {
	if status != repository.RefundStatusProcessing && status != repository.RefundStatusCompleted {
		return errors.BadRequest("status must be processing or completed")
	}

	req, err := s.refundRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	switch req.Status {
	case repository.RefundStatusApproved:
	case repository.RefundStatusProcessing:
		if status == repository.RefundStatusProcessing {
			return errors.InvalidState("refund is already processing")
		}
	default:
		return errors.InvalidState("refund is not in a payout state")
	}

	if err := s.refundRepo.SetStatus(ctx, id, status, refundMethod, notes); err != nil {
		return err
	}

	s.logger.Info().
		Str("refund_id", id).
		Str("status", status).
		Msg("refund status updated")

	return nil
}
