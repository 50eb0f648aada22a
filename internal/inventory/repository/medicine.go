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

// Medicine represents a catalog entry with its pricing state.
// original_price is only set while a near-expiry discount is active;
// restoring the price clears it again.
type Medicine struct {
	ID              string              `db:"id" json:"id"`
	Name            string              `db:"name" json:"name"`
	CategoryID      *string             `db:"category_id" json:"category_id,omitempty"`
	BrandID         *string             `db:"brand_id" json:"brand_id,omitempty"`
	UnitPrice       decimal.Decimal     `db:"unit_price" json:"unit_price"`
	OriginalPrice   decimal.NullDecimal `db:"original_price" json:"original_price,omitempty"`
	DiscountFlag    bool                `db:"discount_flag" json:"discount_flag"`
	DiscountPercent *int                `db:"discount_percent" json:"discount_percent,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
}

// MedicineRepository handles medicine persistence
type MedicineRepository struct {
	db *database.DB
}

// NewMedicineRepository creates a new medicine repository
func NewMedicineRepository(db *database.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

// Create creates a new medicine
func (r *MedicineRepository) Create(ctx context.Context, med *Medicine) error {
	if med.ID == "" {
		med.ID = uuid.New().String()
	}

	query := `
		INSERT INTO medicines (
			id, name, category_id, brand_id, unit_price, original_price,
			discount_flag, discount_percent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		med.ID, med.Name, med.CategoryID, med.BrandID, med.UnitPrice,
		med.OriginalPrice, med.DiscountFlag, med.DiscountPercent,
	).Scan(&med.CreatedAt)
}

// GetByID gets a medicine by ID
func (r *MedicineRepository) GetByID(ctx context.Context, id string) (*Medicine, error) {
	var med Medicine
	query := `SELECT * FROM medicines WHERE id = $1`
	if err := r.db.GetContext(ctx, &med, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("medicine")
		}
		return nil, err
	}
	return &med, nil
}

// GetForUpdateTx locks and returns a medicine row inside a transaction.
// Serializes concurrent discount capture and cascade removal on the
// same medicine.
func (r *MedicineRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*Medicine, error) {
	var med Medicine
	query := `SELECT * FROM medicines WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &med, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("medicine")
		}
		return nil, err
	}
	return &med, nil
}

// ApplyDiscountTx records the captured original price and the discounted
// unit price on the medicine
func (r *MedicineRepository) ApplyDiscountTx(ctx context.Context, tx *sqlx.Tx, id string, originalPrice, discountedPrice decimal.Decimal, percent int) error {
	query := `
		UPDATE medicines SET
			original_price = $2, unit_price = $3, discount_flag = true, discount_percent = $4
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query, id, originalPrice, discountedPrice, percent)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("medicine")
	}

	return nil
}

// ClearDiscountTx restores the captured original price and clears the
// discount state
func (r *MedicineRepository) ClearDiscountTx(ctx context.Context, tx *sqlx.Tx, id string, restoredPrice decimal.Decimal) error {
	query := `
		UPDATE medicines SET
			unit_price = $2, original_price = NULL, discount_flag = false, discount_percent = NULL
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query, id, restoredPrice)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("medicine")
	}

	return nil
}

// DeleteTx deletes a medicine inside a transaction
func (r *MedicineRepository) DeleteTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	query := `DELETE FROM medicines WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("medicine")
	}

	return nil
}
