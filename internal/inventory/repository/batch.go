package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pharmaflow/pharmaflow-backend/pkg/database"
	"github.com/pharmaflow/pharmaflow-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Batch represents a stock batch of a medicine
type Batch struct {
	ID           string              `db:"id" json:"id"`
	MedicineID   string              `db:"medicine_id" json:"medicine_id"`
	BatchNumber  string              `db:"batch_number" json:"batch_number"`
	ExpiryDate   time.Time           `db:"expiry_date" json:"expiry_date"`
	Quantity     int                 `db:"quantity" json:"quantity"`
	SupplierID   *string             `db:"supplier_id" json:"supplier_id,omitempty"`
	PurchaseDate time.Time           `db:"purchase_date" json:"purchase_date"`
	UnitCost     decimal.NullDecimal `db:"unit_cost" json:"unit_cost,omitempty"`
	Hidden       bool                `db:"hidden" json:"hidden"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updated_at"`
}

// BatchWithMedicine is a batch joined with its medicine's name for
// alert views
type BatchWithMedicine struct {
	Batch
	MedicineName string `db:"medicine_name" json:"medicine_name"`
}

// StockMovement is one row of the ledger audit trail
type StockMovement struct {
	ID               string    `db:"id" json:"id"`
	BatchID          string    `db:"batch_id" json:"batch_id"`
	MedicineID       string    `db:"medicine_id" json:"medicine_id"`
	MovementType     string    `db:"movement_type" json:"movement_type"`
	Quantity         int       `db:"quantity" json:"quantity"`
	PreviousQuantity int       `db:"previous_quantity" json:"previous_quantity"`
	NewQuantity      int       `db:"new_quantity" json:"new_quantity"`
	Reference        *string   `db:"reference" json:"reference,omitempty"`
	PerformedBy      *string   `db:"performed_by" json:"performed_by,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Movement types
const (
	MovementReserve = "reserve"
	MovementRestore = "restore"
	MovementReplace = "replace"
	MovementReceive = "receive"
)

// BatchRepository handles batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create creates a new batch
func (r *BatchRepository) Create(ctx context.Context, batch *Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}

	query := `
		INSERT INTO batches (
			id, medicine_id, batch_number, expiry_date, quantity,
			supplier_id, purchase_date, unit_cost, hidden
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	return r.db.QueryRowxContext(ctx, query,
		batch.ID, batch.MedicineID, batch.BatchNumber, batch.ExpiryDate,
		batch.Quantity, batch.SupplierID, batch.PurchaseDate, batch.UnitCost,
		batch.Hidden,
	).Scan(&batch.CreatedAt, &batch.UpdatedAt)
}

// CreateTx creates a new batch inside a transaction
func (r *BatchRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, batch *Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}

	query := `
		INSERT INTO batches (
			id, medicine_id, batch_number, expiry_date, quantity,
			supplier_id, purchase_date, unit_cost, hidden
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRowxContext(ctx, query,
		batch.ID, batch.MedicineID, batch.BatchNumber, batch.ExpiryDate,
		batch.Quantity, batch.SupplierID, batch.PurchaseDate, batch.UnitCost,
		batch.Hidden,
	).Scan(&batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}
	return nil
}

// GetByID gets a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*Batch, error) {
	var batch Batch
	query := `SELECT * FROM batches WHERE id = $1`
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// GetForUpdateTx locks and returns a batch row inside a transaction
func (r *BatchRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*Batch, error) {
	var batch Batch
	query := `SELECT * FROM batches WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// ListByMedicine lists batches for a medicine, soonest expiry first
func (r *BatchRepository) ListByMedicine(ctx context.Context, medicineID string) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT * FROM batches
		WHERE medicine_id = $1
		ORDER BY expiry_date, batch_number
	`
	if err := r.db.SelectContext(ctx, &batches, query, medicineID); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListSellableForUpdateTx locks and returns the sellable batches of a
// medicine in draw-down order: soonest expiry first. Hidden and empty
// batches are skipped.
func (r *BatchRepository) ListSellableForUpdateTx(ctx context.Context, tx *sqlx.Tx, medicineID string) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT * FROM batches
		WHERE medicine_id = $1 AND hidden = false AND quantity > 0
		ORDER BY expiry_date, batch_number
		FOR UPDATE
	`
	if err := tx.SelectContext(ctx, &batches, query, medicineID); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListVisibleWithMedicine returns all non-hidden batches joined with
// their medicine name, for alert classification
func (r *BatchRepository) ListVisibleWithMedicine(ctx context.Context) ([]*BatchWithMedicine, error) {
	var batches []*BatchWithMedicine
	query := `
		SELECT b.*, m.name AS medicine_name
		FROM batches b
		JOIN medicines m ON m.id = b.medicine_id
		WHERE b.hidden = false
		ORDER BY b.expiry_date, b.batch_number
	`
	if err := r.db.SelectContext(ctx, &batches, query); err != nil {
		return nil, err
	}
	return batches, nil
}

// SetHidden updates the hidden flag of a batch
func (r *BatchRepository) SetHidden(ctx context.Context, id string, hidden bool) error {
	query := `UPDATE batches SET hidden = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, hidden)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}

	return nil
}

// SetQuantityTx sets the quantity of a batch inside a transaction
func (r *BatchRepository) SetQuantityTx(ctx context.Context, tx *sqlx.Tx, id string, quantity int) error {
	query := `UPDATE batches SET quantity = $2, updated_at = NOW() WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, id, quantity)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}

	return nil
}

// ReplaceTx swaps the identity of a batch for its replacement from the
// supplier: new batch number, new expiry, new quantity. Purchase
// metadata restarts with the replacement delivery.
func (r *BatchRepository) ReplaceTx(ctx context.Context, tx *sqlx.Tx, id, batchNumber string, expiryDate time.Time, quantity int) error {
	query := `
		UPDATE batches SET
			batch_number = $2, expiry_date = $3, quantity = $4,
			purchase_date = NOW(), unit_cost = NULL, updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query, id, batchNumber, expiryDate, quantity)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}

	return nil
}

// DeleteTx deletes a batch inside a transaction
func (r *BatchRepository) DeleteTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	query := `DELETE FROM batches WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}

	return nil
}

// DeleteByMedicineTx deletes all batches of a medicine inside a
// transaction, returning how many were removed
func (r *BatchRepository) DeleteByMedicineTx(ctx context.Context, tx *sqlx.Tx, medicineID string) (int, error) {
	query := `DELETE FROM batches WHERE medicine_id = $1`
	result, err := tx.ExecContext(ctx, query, medicineID)
	if err != nil {
		return 0, err
	}

	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// TotalSellableStock sums quantity across all sellable batches
func (r *BatchRepository) TotalSellableStock(ctx context.Context) (int, error) {
	var total sql.NullInt64
	query := `SELECT SUM(quantity) FROM batches WHERE hidden = false AND quantity > 0`
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, nil
	}
	return int(total.Int64), nil
}

// RecordMovementTx writes one ledger audit row inside a transaction
func (r *BatchRepository) RecordMovementTx(ctx context.Context, tx *sqlx.Tx, mv *StockMovement) error {
	if mv.ID == "" {
		mv.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_movements (
			id, batch_id, medicine_id, movement_type, quantity,
			previous_quantity, new_quantity, reference, performed_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	return tx.QueryRowxContext(ctx, query,
		mv.ID, mv.BatchID, mv.MedicineID, mv.MovementType, mv.Quantity,
		mv.PreviousQuantity, mv.NewQuantity, mv.Reference, mv.PerformedBy,
	).Scan(&mv.CreatedAt)
}
