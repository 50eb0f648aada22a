package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/events"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/pkg/database"
	"github.com/pharmaflow/pharmaflow-backend/pkg/errors"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
	"github.com/pharmaflow/pharmaflow-backend/pkg/messaging"
)

// SupplierReturnService runs the supplier return workflow: Pending
// requests either get rejected or approved, and approval atomically
// swaps the old batch for the supplier's replacement.
type SupplierReturnService struct {
	db             *database.DB
	returnRepo     *repository.SupplierReturnRepository
	batchRepo      *repository.BatchRepository
	resolutionRepo *repository.ResolutionRepository
	publisher      *events.PharmacyEventPublisher
	logger         *logger.Logger
}

// NewSupplierReturnService creates a new supplier return service
func NewSupplierReturnService(
	db *database.DB,
	returnRepo *repository.SupplierReturnRepository,
	batchRepo *repository.BatchRepository,
	resolutionRepo *repository.ResolutionRepository,
	publisher *events.PharmacyEventPublisher,
	log *logger.Logger,
) *SupplierReturnService {
	return &SupplierReturnService{
		db:             db,
		returnRepo:     returnRepo,
		batchRepo:      batchRepo,
		resolutionRepo: resolutionRepo,
		publisher:      publisher,
		logger:         log,
	}
}

// Create files a new return request for a batch
func (s *SupplierReturnService) Create(ctx context.Context, req *repository.SupplierReturnRequest) error {
	if req.Quantity <= 0 {
		return errors.InvalidQuantity("return quantity must be positive")
	}

	batch, err := s.batchRepo.GetByID(ctx, req.BatchID)
	if err != nil {
		return err
	}
	if req.Quantity > batch.Quantity {
		return errors.InvalidQuantity("return quantity exceeds the batch's stock")
	}

	req.MedicineID = batch.MedicineID
	if req.SupplierID == nil {
		req.SupplierID = batch.SupplierID
	}

	if err := s.returnRepo.Create(ctx, req); err != nil {
		return err
	}

	s.logger.Info().
		Str("request_id", req.ID).
		Str("batch_id", req.BatchID).
		Msg("supplier return requested")

	return nil
}

// Get gets a supplier return request by ID
func (s *SupplierReturnService) Get(ctx context.Context, id string) (*repository.SupplierReturnRequest, error) {
	return s.returnRepo.GetByID(ctx, id)
}

// List lists supplier return requests, optionally filtered by status
func (s *SupplierReturnService) List(ctx context.Context, status string) ([]*repository.SupplierReturnRequest, error) {
	return s.returnRepo.List(ctx, status)
}

// Approve applies the supplier's replacement to the returned batch.
// The replacement must carry a strictly later expiry date; an equal
// date means the supplier sent the same stock back.
func (s *SupplierReturnService) Approve(ctx context.Context, id, newBatchNumber string, newExpiryDate time.Time, newQuantity int, responseNotes, performedBy *string) error {
	if newQuantity <= 0 {
		return errors.InvalidQuantity("replacement quantity must be positive")
	}

	var (
		batchID    string
		medicineID string
		oldExpiry  time.Time
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		req, err := s.returnRepo.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != repository.ReturnStatusPending {
			return errors.InvalidState("supplier return request is not pending")
		}

		batch, err := s.batchRepo.GetForUpdateTx(ctx, tx, req.BatchID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.BatchGone("returned batch no longer exists")
			}
			return err
		}

		if !newExpiryDate.After(batch.ExpiryDate) {
			return errors.ExpiryNotImproved("replacement expiry must be later than the returned batch's")
		}

		if err := s.batchRepo.ReplaceTx(ctx, tx, batch.ID, newBatchNumber, newExpiryDate, newQuantity); err != nil {
			return err
		}

		// The replacement is a fresh lot; alert state recorded against
		// the returned lot does not carry over to it.
		if err := s.resolutionRepo.DeleteByBatchTx(ctx, tx, batch.ID); err != nil {
			return err
		}

		mv := &repository.StockMovement{
			BatchID:          batch.ID,
			MedicineID:       batch.MedicineID,
			MovementType:     repository.MovementReplace,
			Quantity:         newQuantity,
			PreviousQuantity: batch.Quantity,
			NewQuantity:      newQuantity,
			Reference:        &id,
			PerformedBy:      performedBy,
		}
		if err := s.batchRepo.RecordMovementTx(ctx, tx, mv); err != nil {
			return err
		}

		if err := s.returnRepo.ApproveTx(ctx, tx, id, newBatchNumber, newExpiryDate, newQuantity, responseNotes); err != nil {
			return err
		}

		batchID = batch.ID
		medicineID = batch.MedicineID
		oldExpiry = batch.ExpiryDate
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("request_id", id).
		Str("batch_id", batchID).
		Time("new_expiry", newExpiryDate).
		Msg("supplier return approved")

	by := ""
	if performedBy != nil {
		by = *performedBy
	}
	s.publisher.PublishSupplierReturnApproved(ctx, messaging.SupplierReturnApprovedEvent{
		RequestID:     id,
		BatchID:       batchID,
		MedicineID:    medicineID,
		OldExpiryDate: oldExpiry,
		NewExpiryDate: newExpiryDate,
		NewQuantity:   newQuantity,
		ApprovedBy:    by,
	})

	return nil
}

// Reject closes a pending request without touching the batch
func (s *SupplierReturnService) Reject(ctx context.Context, id string, responseNotes *string) error {
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		req, err := s.returnRepo.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != repository.ReturnStatusPending {
			return errors.InvalidState("supplier return request is not pending")
		}

		return s.returnRepo.RejectTx(ctx, tx, id, responseNotes)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("request_id", id).Msg("supplier return rejected")
	return nil
}
