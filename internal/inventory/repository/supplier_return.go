package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pharmaflow/pharmaflow-backend/pkg/database"
	"github.com/pharmaflow/pharmaflow-backend/pkg/errors"
)

// Supplier return statuses
const (
	ReturnStatusPending  = "pending"
	ReturnStatusApproved = "approved"
	ReturnStatusRejected = "rejected"
)

// SupplierReturnRequest represents a request to return a batch to its
// supplier in exchange for fresher stock
type SupplierReturnRequest struct {
	ID             string     `db:"id" json:"id"`
	BatchID        string     `db:"batch_id" json:"batch_id"`
	MedicineID     string     `db:"medicine_id" json:"medicine_id"`
	SupplierID     *string    `db:"supplier_id" json:"supplier_id,omitempty"`
	Quantity       int        `db:"quantity" json:"quantity"`
	Reason         string     `db:"reason" json:"reason"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	Status         string     `db:"status" json:"status"`
	NewBatchNumber *string    `db:"new_batch_number" json:"new_batch_number,omitempty"`
	NewExpiryDate  *time.Time `db:"new_expiry_date" json:"new_expiry_date,omitempty"`
	NewQuantity    *int       `db:"new_quantity" json:"new_quantity,omitempty"`
	RequestedAt    time.Time  `db:"requested_at" json:"requested_at"`
	RespondedAt    *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	ResponseNotes  *string    `db:"response_notes" json:"response_notes,omitempty"`
}

// SupplierReturnRepository handles supplier return request persistence
type SupplierReturnRepository struct {
	db *database.DB
}

// NewSupplierReturnRepository creates a new supplier return repository
func NewSupplierReturnRepository(db *database.DB) *SupplierReturnRepository {
	return &SupplierReturnRepository{db: db}
}

// Create creates a new supplier return request
func (r *SupplierReturnRepository) Create(ctx context.Context, req *SupplierReturnRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = ReturnStatusPending
	}

	query := `
		INSERT INTO supplier_return_requests (
			id, batch_id, medicine_id, supplier_id, quantity, reason, notes, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING requested_at
	`

	return r.db.QueryRowxContext(ctx, query,
		req.ID, req.BatchID, req.MedicineID, req.SupplierID, req.Quantity,
		req.Reason, req.Notes, req.Status,
	).Scan(&req.RequestedAt)
}

// GetByID gets a supplier return request by ID
func (r *SupplierReturnRepository) GetByID(ctx context.Context, id string) (*SupplierReturnRequest, error) {
	var req SupplierReturnRequest
	query := `SELECT * FROM supplier_return_requests WHERE id = $1`
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("supplier return request")
		}
		return nil, err
	}
	return &req, nil
}

// GetForUpdateTx locks and returns a supplier return request inside a
// transaction. The lock makes the Pending transition single-shot under
// concurrent approvals.
func (r *SupplierReturnRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*SupplierReturnRequest, error) {
	var req SupplierReturnRequest
	query := `SELECT * FROM supplier_return_requests WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("supplier return request")
		}
		return nil, err
	}
	return &req, nil
}

// List lists supplier return requests, newest first, optionally
// filtered by status
func (r *SupplierReturnRepository) List(ctx context.Context, status string) ([]*SupplierReturnRequest, error) {
	var reqs []*SupplierReturnRequest

	if status != "" {
		query := `SELECT * FROM supplier_return_requests WHERE status = $1 ORDER BY requested_at DESC`
		if err := r.db.SelectContext(ctx, &reqs, query, status); err != nil {
			return nil, err
		}
		return reqs, nil
	}

	query := `SELECT * FROM supplier_return_requests ORDER BY requested_at DESC`
	if err := r.db.SelectContext(ctx, &reqs, query); err != nil {
		return nil, err
	}
	return reqs, nil
}

// ApproveTx records the approval and the replacement batch details
// inside a transaction
func (r *SupplierReturnRepository) ApproveTx(ctx context.Context, tx *sqlx.Tx, id, newBatchNumber string, newExpiryDate time.Time, newQuantity int, responseNotes *string) error {
	query := `
		UPDATE supplier_return_requests SET
			status = $2, new_batch_number = $3, new_expiry_date = $4,
			new_quantity = $5, response_notes = $6, responded_at = NOW()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query,
		id, ReturnStatusApproved, newBatchNumber, newExpiryDate, newQuantity, responseNotes,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("supplier return request")
	}

	return nil
}

// RejectTx records the rejection inside a transaction
func (r *SupplierReturnRepository) RejectTx(ctx context.Context, tx *sqlx.Tx, id string, responseNotes *string) error {
	query := `
		UPDATE supplier_return_requests SET
			status = $2, response_notes = $3, responded_at = NOW()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query, id, ReturnStatusRejected, responseNotes)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("supplier return request")
	}

	return nil
}

// CountByStatus counts supplier return requests in the given status
func (r *SupplierReturnRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM supplier_return_requests WHERE status = $1`
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, err
	}
	return count, nil
}
