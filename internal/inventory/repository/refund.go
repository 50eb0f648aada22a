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

// Refund statuses
const (
	RefundStatusPending    = "pending"
	RefundStatusApproved   = "approved"
	RefundStatusRejected   = "rejected"
	RefundStatusProcessing = "processing"
	RefundStatusCompleted  = "completed"
)

// RefundRequest represents a customer refund request against an order
type RefundRequest struct {
	ID           string          `db:"id" json:"id"`
	OrderID      string          `db:"order_id" json:"order_id"`
	UserID       string          `db:"user_id" json:"user_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Reason       string          `db:"reason" json:"reason"`
	Status       string          `db:"status" json:"status"`
	RefundMethod *string         `db:"refund_method" json:"refund_method,omitempty"`
	AdminID      *string         `db:"admin_id" json:"admin_id,omitempty"`
	Notes        *string         `db:"notes" json:"notes,omitempty"`
	RequestedAt  time.Time       `db:"requested_at" json:"requested_at"`
	RespondedAt  *time.Time      `db:"responded_at" json:"responded_at,omitempty"`
}

// RefundRepository handles refund request persistence
type RefundRepository struct {
	db *database.DB
}

// NewRefundRepository creates a new refund repository
func NewRefundRepository(db *database.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// Create creates a new refund request
func (r *RefundRepository) Create(ctx context.Context, req *RefundRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = RefundStatusPending
	}

	query := `
		INSERT INTO refund_requests (
			id, order_id, user_id, amount, reason, status
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING requested_at
	`

	return r.db.QueryRowxContext(ctx, query,
		req.ID, req.OrderID, req.UserID, req.Amount, req.Reason, req.Status,
	).Scan(&req.RequestedAt)
}

// GetByID gets a refund request by ID
func (r *RefundRepository) GetByID(ctx context.Context, id string) (*RefundRequest, error) {
	var req RefundRequest
	query := `SELECT * FROM refund_requests WHERE id = $1`
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("refund request")
		}
		return nil, err
	}
	return &req, nil
}

// GetForUpdateTx locks and returns a refund request inside a transaction
func (r *RefundRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*RefundRequest, error) {
	var req RefundRequest
	query := `SELECT * FROM refund_requests WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("refund request")
		}
		return nil, err
	}
	return &req, nil
}

// List lists refund requests, newest first, optionally filtered by status
func (r *RefundRepository) List(ctx context.Context, status string) ([]*RefundRequest, error) {
	var reqs []*RefundRequest

	if status != "" {
		query := `SELECT * FROM refund_requests WHERE status = $1 ORDER BY requested_at DESC`
		if err := r.db.SelectContext(ctx, &reqs, query, status); err != nil {
			return nil, err
		}
		return reqs, nil
	}

	query := `SELECT * FROM refund_requests ORDER BY requested_at DESC`
	if err := r.db.SelectContext(ctx, &reqs, query); err != nil {
		return nil, err
	}
	return reqs, nil
}

// SetDecisionTx records the approve/reject decision inside a transaction
func (r *RefundRepository) SetDecisionTx(ctx context.Context, tx *sqlx.Tx, id, status, adminID string, refundMethod, notes *string) error {
	query := `
		UPDATE refund_requests SET
			status = $2, admin_id = $3, refund_method = $4, notes = $5, responded_at = NOW()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query, id, status, adminID, refundMethod, notes)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("refund request")
	}

	return nil
}

// SetStatus moves an approved refund between processing states
func (r *RefundRepository) SetStatus(ctx context.Context, id, status string, refundMethod, notes *string) error {
	query := `
		UPDATE refund_requests SET
			status = $2,
			refund_method = COALESCE($3, refund_method),
			notes = COALESCE($4, notes)
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, refundMethod, notes)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("refund request")
	}

	return nil
}

// CountByStatus counts refund requests in the given status
func (r *RefundRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM refund_requests WHERE status = $1`
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, err
	}
	return count, nil
}
