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

// StockLedgerService owns all batch quantity mutations. Every mutation
// runs in one transaction, locks the rows it touches, and writes a
// stock movement audit row.
type StockLedgerService struct {
	db        *database.DB
	batchRepo *repository.BatchRepository
	publisher *events.PharmacyEventPublisher
	logger    *logger.Logger
}

// NewStockLedgerService creates a new stock ledger service
func NewStockLedgerService(
	db *database.DB,
	batchRepo *repository.BatchRepository,
	publisher *events.PharmacyEventPublisher,
	log *logger.Logger,
) *StockLedgerService {
	return &StockLedgerService{
		db:        db,
		batchRepo: batchRepo,
		publisher: publisher,
		logger:    log,
	}
}

// Allocation is one batch's share of a composite draw-down
type Allocation struct {
	BatchID  string `json:"batch_id"`
	Quantity int    `json:"quantity"`
}

// ReserveFEFO draws the requested quantity down across the sellable
// batches of a medicine, soonest expiry first. The draw-down is
// all-or-nothing: if total sellable stock cannot cover the request, no
// batch is touched and InsufficientStock is returned.
func (s *StockLedgerService) ReserveFEFO(ctx context.Context, medicineID string, quantity int, reference, performedBy *string) ([]Allocation, error) {
	if quantity <= 0 {
		return nil, errors.InvalidQuantity("quantity must be positive")
	}

	var allocations []Allocation
	var eventLines []messaging.StockEventLine

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		batches, err := s.batchRepo.ListSellableForUpdateTx(ctx, tx, medicineID)
		if err != nil {
			return err
		}

		total := 0
		for _, b := range batches {
			total += b.Quantity
		}
		if total < quantity {
			return errors.InsufficientStock("not enough sellable stock for medicine")
		}

		remaining := quantity
		for _, b := range batches {
			if remaining == 0 {
				break
			}

			take := b.Quantity
			if take > remaining {
				take = remaining
			}

			newQty := b.Quantity - take
			if err := s.batchRepo.SetQuantityTx(ctx, tx, b.ID, newQty); err != nil {
				return err
			}

			mv := &repository.StockMovement{
				BatchID:          b.ID,
				MedicineID:       medicineID,
				MovementType:     repository.MovementReserve,
				Quantity:         take,
				PreviousQuantity: b.Quantity,
				NewQuantity:      newQty,
				Reference:        reference,
				PerformedBy:      performedBy,
			}
			if err := s.batchRepo.RecordMovementTx(ctx, tx, mv); err != nil {
				return err
			}

			allocations = append(allocations, Allocation{BatchID: b.ID, Quantity: take})
			eventLines = append(eventLines, messaging.StockEventLine{
				BatchID:     b.ID,
				Quantity:    take,
				NewQuantity: newQty,
			})
			remaining -= take
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("medicine_id", medicineID).
		Int("quantity", quantity).
		Int("batches", len(allocations)).
		Msg("stock reserved")

	ref := ""
	if reference != nil {
		ref = *reference
	}
	s.publisher.PublishStockReserved(ctx, messaging.StockReservedEvent{
		MedicineID: medicineID,
		Quantity:   quantity,
		Reference:  ref,
		Lines:      eventLines,
	})

	return allocations, nil
}

// Restore returns a quantity to a single batch
func (s *StockLedgerService) Restore(ctx context.Context, batchID string, quantity int, reference, performedBy *string) error {
	if quantity <= 0 {
		return errors.InvalidQuantity("quantity must be positive")
	}

	var mv *repository.StockMovement

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		mv, err = s.RestoreTx(ctx, tx, batchID, quantity, reference, performedBy)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("batch_id", batchID).
		Int("quantity", quantity).
		Msg("stock restored")

	ref := ""
	if reference != nil {
		ref = *reference
	}
	s.publisher.PublishStockRestored(ctx, messaging.StockRestoredEvent{
		MedicineID: mv.MedicineID,
		Quantity:   quantity,
		Reference:  ref,
		Lines: []messaging.StockEventLine{
			{BatchID: batchID, Quantity: quantity, NewQuantity: mv.NewQuantity},
		},
	})

	return nil
}

// RestoreTx returns a quantity to a batch inside an existing
// transaction. The refund workflow composes this per order line so the
// whole approval commits or rolls back together. A vanished batch is
// reported as BatchGone, not NotFound: the caller asked about stock
// that once existed.
func (s *StockLedgerService) RestoreTx(ctx context.Context, tx *sqlx.Tx, batchID string, quantity int, reference, performedBy *string) (*repository.StockMovement, error) {
	batch, err := s.batchRepo.GetForUpdateTx(ctx, tx, batchID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.BatchGone("batch no longer exists")
		}
		return nil, err
	}

	newQty := batch.Quantity + quantity
	if err := s.batchRepo.SetQuantityTx(ctx, tx, batch.ID, newQty); err != nil {
		return nil, err
	}

	mv := &repository.StockMovement{
		BatchID:          batch.ID,
		MedicineID:       batch.MedicineID,
		MovementType:     repository.MovementRestore,
		Quantity:         quantity,
		PreviousQuantity: batch.Quantity,
		NewQuantity:      newQty,
		Reference:        reference,
		PerformedBy:      performedBy,
	}
	if err := s.batchRepo.RecordMovementTx(ctx, tx, mv); err != nil {
		return nil, err
	}

	return mv, nil
}
