package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pharmaflow/pharmaflow-backend/pkg/database"
)

// AlertResolution is the only durable piece of alert state; the alerts
// themselves are recomputed projections over batches.
type AlertResolution struct {
	BatchID    string     `db:"batch_id" json:"batch_id"`
	AlertType  string     `db:"alert_type" json:"alert_type"`
	Resolved   bool       `db:"resolved" json:"resolved"`
	ResolvedBy *string    `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// ResolutionRepository handles alert resolution flags
type ResolutionRepository struct {
	db *database.DB
}

// NewResolutionRepository creates a new resolution repository
func NewResolutionRepository(db *database.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

// SetResolvedTx upserts the resolution flag for (batch, alertType)
// inside a transaction. Replaying the same resolution is a no-op at the
// storage level.
func (r *ResolutionRepository) SetResolvedTx(ctx context.Context, tx *sqlx.Tx, batchID, alertType string, resolved bool, resolvedBy *string) error {
	query := `
		INSERT INTO alert_resolutions (batch_id, alert_type, resolved, resolved_by, resolved_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (batch_id, alert_type)
		DO UPDATE SET resolved = $3, resolved_by = $4, resolved_at = NOW()
	`

	_, err := tx.ExecContext(ctx, query, batchID, alertType, resolved, resolvedBy)
	return err
}

// Get returns the resolution flag for (batch, alertType), or nil when
// none has been recorded
func (r *ResolutionRepository) Get(ctx context.Context, batchID, alertType string) (*AlertResolution, error) {
	var res []AlertResolution
	query := `SELECT * FROM alert_resolutions WHERE batch_id = $1 AND alert_type = $2`
	if err := r.db.SelectContext(ctx, &res, query, batchID, alertType); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, nil
	}
	return &res[0], nil
}

// ListResolved returns the set of resolved (batch, alertType) pairs,
// keyed "batchID/alertType"
func (r *ResolutionRepository) ListResolved(ctx context.Context) (map[string]bool, error) {
	var rows []AlertResolution
	query := `SELECT * FROM alert_resolutions WHERE resolved = true`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	resolved := make(map[string]bool, len(rows))
	for _, row := range rows {
		resolved[row.BatchID+"/"+row.AlertType] = true
	}
	return resolved, nil
}

// DeleteByBatchTx removes all resolution flags of a batch inside a
// transaction
func (r *ResolutionRepository) DeleteByBatchTx(ctx context.Context, tx *sqlx.Tx, batchID string) error {
	query := `DELETE FROM alert_resolutions WHERE batch_id = $1`
	_, err := tx.ExecContext(ctx, query, batchID)
	return err
}

// DeleteByMedicineTx removes the resolution flags of every batch of a
// medicine inside a transaction. Runs before the batches themselves go.
func (r *ResolutionRepository) DeleteByMedicineTx(ctx context.Context, tx *sqlx.Tx, medicineID string) error {
	query := `
		DELETE FROM alert_resolutions
		WHERE batch_id IN (SELECT id FROM batches WHERE medicine_id = $1)
	`
	_, err := tx.ExecContext(ctx, query, medicineID)
	return err
}
