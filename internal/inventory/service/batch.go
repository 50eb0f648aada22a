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
)

// BatchService handles batch lifecycle outside the ledger: receiving
// stock, visibility, and removal of individual batches
type BatchService struct {
	db             *database.DB
	medicineRepo   *repository.MedicineRepository
	batchRepo      *repository.BatchRepository
	resolutionRepo *repository.ResolutionRepository
	publisher      *events.PharmacyEventPublisher
	logger         *logger.Logger
}

// NewBatchService creates a new batch service
func NewBatchService(
	db *database.DB,
	medicineRepo *repository.MedicineRepository,
	batchRepo *repository.BatchRepository,
	resolutionRepo *repository.ResolutionRepository,
	publisher *events.PharmacyEventPublisher,
	log *logger.Logger,
) *BatchService {
	return &BatchService{
		db:             db,
		medicineRepo:   medicineRepo,
		batchRepo:      batchRepo,
		resolutionRepo: resolutionRepo,
		publisher:      publisher,
		logger:         log,
	}
}

// Receive records a newly delivered batch and its receive movement
func (s *BatchService) Receive(ctx context.Context, batch *repository.Batch, performedBy *string) error {
	if batch.Quantity <= 0 {
		return errors.InvalidQuantity("received quantity must be positive")
	}

	// Confirm the medicine exists before accepting stock for it
	if _, err := s.medicineRepo.GetByID(ctx, batch.MedicineID); err != nil {
		return err
	}

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.batchRepo.CreateTx(ctx, tx, batch); err != nil {
			return err
		}

		mv := &repository.StockMovement{
			BatchID:          batch.ID,
			MedicineID:       batch.MedicineID,
			MovementType:     repository.MovementReceive,
			Quantity:         batch.Quantity,
			PreviousQuantity: 0,
			NewQuantity:      batch.Quantity,
			PerformedBy:      performedBy,
		}
		return s.batchRepo.RecordMovementTx(ctx, tx, mv)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("batch_id", batch.ID).
		Str("medicine_id", batch.MedicineID).
		Int("quantity", batch.Quantity).
		Msg("batch received")

	s.publisher.PublishBatchReceived(ctx, messaging.BatchReceivedEvent{
		BatchID:     batch.ID,
		MedicineID:  batch.MedicineID,
		BatchNumber: batch.BatchNumber,
		ExpiryDate:  batch.ExpiryDate,
		Quantity:    batch.Quantity,
	})

	return nil
}

// Get gets a batch by ID
func (s *BatchService) Get(ctx context.Context, id string) (*repository.Batch, error) {
	return s.batchRepo.GetByID(ctx, id)
}

// ListByMedicine lists the batches of a medicine, soonest expiry first
func (s *BatchService) ListByMedicine(ctx context.Context, medicineID string) ([]*repository.Batch, error) {
	if _, err := s.medicineRepo.GetByID(ctx, medicineID); err != nil {
		return nil, err
	}
	return s.batchRepo.ListByMedicine(ctx, medicineID)
}

// SetVisibility hides a batch from sale or restores it
func (s *BatchService) SetVisibility(ctx context.Context, id string, hidden bool) (*repository.Batch, error) {
	batch, err := s.batchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if batch.Hidden == hidden {
		return batch, nil
	}

	if err := s.batchRepo.SetHidden(ctx, id, hidden); err != nil {
		return nil, err
	}
	batch.Hidden = hidden

	s.logger.Info().
		Str("batch_id", id).
		Bool("hidden", hidden).
		Msg("batch visibility changed")

	s.publisher.PublishBatchHidden(ctx, messaging.BatchHiddenEvent{
		BatchID:    id,
		MedicineID: batch.MedicineID,
		Hidden:     hidden,
	})

	return batch, nil
}

// Delete removes a single batch together with its resolution flags
func (s *BatchService) Delete(ctx context.Context, id string) error {
	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.batchRepo.GetForUpdateTx(ctx, tx, id); err != nil {
			return err
		}

		if err := s.resolutionRepo.DeleteByBatchTx(ctx, tx, id); err != nil {
			return err
		}

		return s.batchRepo.DeleteTx(ctx, tx, id)
	})
}
