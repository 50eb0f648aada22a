package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pharmaflow/pharmaflow-backend/pkg/database"
	"github.com/pharmaflow/pharmaflow-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Order is a read-mostly view of an order; this service only flips the
// refunded flag when a refund is approved
type Order struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status      string          `db:"status" json:"status"`
	Refunded    bool            `db:"refunded" json:"refunded"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// OrderLine carries the durable reference to the batch that fulfilled
// it. BatchID is nil when the batch has since been cascaded away.
type OrderLine struct {
	ID         string          `db:"id" json:"id"`
	OrderID    string          `db:"order_id" json:"order_id"`
	MedicineID string          `db:"medicine_id" json:"medicine_id"`
	BatchID    *string         `db:"batch_id" json:"batch_id,omitempty"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// OrderRepository reads orders and their lines
type OrderRepository struct {
	db *database.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetByID gets an order by ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*Order, error) {
	var order Order
	query := `SELECT * FROM orders WHERE id = $1`
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("order")
		}
		return nil, err
	}
	return &order, nil
}

// ListLines lists the lines of an order
func (r *OrderRepository) ListLines(ctx context.Context, orderID string) ([]*OrderLine, error) {
	var lines []*OrderLine
	query := `SELECT * FROM order_lines WHERE order_id = $1`
	if err := r.db.SelectContext(ctx, &lines, query, orderID); err != nil {
		return nil, err
	}
	return lines, nil
}

// ListLinesTx lists the lines of an order inside a transaction
func (r *OrderRepository) ListLinesTx(ctx context.Context, tx *sqlx.Tx, orderID string) ([]*OrderLine, error) {
	var lines []*OrderLine
	query := `SELECT * FROM order_lines WHERE order_id = $1`
	if err := tx.SelectContext(ctx, &lines, query, orderID); err != nil {
		return nil, err
	}
	return lines, nil
}

// MarkRefundedTx flips the refunded flag on an order inside a transaction
func (r *OrderRepository) MarkRefundedTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	query := `UPDATE orders SET refunded = true WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("order")
	}

	return nil
}
