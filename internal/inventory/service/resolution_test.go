package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/domain"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/service"
	"github.com/pharmaflow/pharmaflow-backend/pkg/config"
	"github.com/pharmaflow/pharmaflow-backend/pkg/database"
	"github.com/pharmaflow/pharmaflow-backend/pkg/errors"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
	"github.com/pharmaflow/pharmaflow-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var medicineColumns = []string{
	"id", "name", "category_id", "brand_id", "unit_price",
	"original_price", "discount_flag", "discount_percent", "created_at",
}

func newResolutionService(db *database.DB) *service.ResolutionService {
	policy := &config.PolicyConfig{NearExpiryWindowDays: 30, DiscountPercent: 50}
	return service.NewResolutionService(
		db,
		repository.NewMedicineRepository(db),
		repository.NewBatchRepository(db),
		repository.NewResolutionRepository(db),
		policy,
		nil,
		logger.New("inventory-service", "test"),
	)
}

func TestResolveNearExpiryAppliesDiscountOnce(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newResolutionService(db)

	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"
	batchID := "11111111-1111-1111-1111-111111111111"

	batches := testutil.MockRows(batchColumns...)
	batchRow(batches, batchID, medicineID, "LOT-A", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), 10)
	medicines := testutil.MockRows(medicineColumns...).
		AddRow(medicineID, "Paracetamol 500mg", nil, nil, "100.00", nil, false, nil, time.Now())

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(batchID).WillReturnRows(batches)
	mockDB.ExpectQuery("SELECT * FROM medicines").WithArgs(medicineID).WillReturnRows(medicines)
	mockDB.ExpectExec("INSERT INTO alert_resolutions").
		WithArgs(batchID, "near_expiry", true, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("UPDATE medicines SET").
		WithArgs(medicineID, sqlmock.AnyArg(), sqlmock.AnyArg(), 50).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	message, err := svc.Resolve(context.Background(), batchID, domain.AlertNearExpiry, true, nil)
	require.NoError(t, err)
	assert.Equal(t, service.MsgDiscountApplied, message)

	mockDB.ExpectationsWereMet(t)
}

func TestResolveNearExpiryWithActiveDiscountDoesNotRecapture(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newResolutionService(db)

	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"
	batchID := "11111111-1111-1111-1111-111111111111"

	batches := testutil.MockRows(batchColumns...)
	batchRow(batches, batchID, medicineID, "LOT-A", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), 10)
	// Discount already active: original price captured from the first resolution.
	medicines := testutil.MockRows(medicineColumns...).
		AddRow(medicineID, "Paracetamol 500mg", nil, nil, "50.00", "100.00", true, 50, time.Now())

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(batchID).WillReturnRows(batches)
	mockDB.ExpectQuery("SELECT * FROM medicines").WithArgs(medicineID).WillReturnRows(medicines)
	mockDB.ExpectExec("INSERT INTO alert_resolutions").
		WithArgs(batchID, "near_expiry", true, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	message, err := svc.Resolve(context.Background(), batchID, domain.AlertNearExpiry, true, nil)
	require.NoError(t, err)
	assert.Equal(t, service.MsgAlreadyResolved, message)

	mockDB.ExpectationsWereMet(t)
}

func TestUnresolveNearExpiryRestoresOriginalPrice(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newResolutionService(db)

	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"
	batchID := "11111111-1111-1111-1111-111111111111"

	batches := testutil.MockRows(batchColumns...)
	batchRow(batches, batchID, medicineID, "LOT-A", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), 10)
	medicines := testutil.MockRows(medicineColumns...).
		AddRow(medicineID, "Paracetamol 500mg", nil, nil, "50.00", "100.00", true, 50, time.Now())

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(batchID).WillReturnRows(batches)
	mockDB.ExpectQuery("SELECT * FROM medicines").WithArgs(medicineID).WillReturnRows(medicines)
	mockDB.ExpectExec("INSERT INTO alert_resolutions").
		WithArgs(batchID, "near_expiry", false, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("UPDATE medicines SET").
		WithArgs(medicineID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	message, err := svc.Resolve(context.Background(), batchID, domain.AlertNearExpiry, false, nil)
	require.NoError(t, err)
	assert.Equal(t, service.MsgPriceRestored, message)

	mockDB.ExpectationsWereMet(t)
}

func TestUnresolveNearExpiryWithoutDiscountOnlyFlipsFlag(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newResolutionService(db)

	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"
	batchID := "11111111-1111-1111-1111-111111111111"

	batches := testutil.MockRows(batchColumns...)
	batchRow(batches, batchID, medicineID, "LOT-A", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), 10)
	medicines := testutil.MockRows(medicineColumns...).
		AddRow(medicineID, "Paracetamol 500mg", nil, nil, "100.00", nil, false, nil, time.Now())

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(batchID).WillReturnRows(batches)
	mockDB.ExpectQuery("SELECT * FROM medicines").WithArgs(medicineID).WillReturnRows(medicines)
	mockDB.ExpectExec("INSERT INTO alert_resolutions").
		WithArgs(batchID, "near_expiry", false, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	message, err := svc.Resolve(context.Background(), batchID, domain.AlertNearExpiry, false, nil)
	require.NoError(t, err)
	assert.Equal(t, service.MsgUnresolved, message)

	mockDB.ExpectationsWereMet(t)
}

func TestUnresolveWithFlagButNoCapturedPriceFails(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newResolutionService(db)

	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"
	batchID := "11111111-1111-1111-1111-111111111111"

	batches := testutil.MockRows(batchColumns...)
	batchRow(batches, batchID, medicineID, "LOT-A", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), 10)
	medicines := testutil.MockRows(medicineColumns...).
		AddRow(medicineID, "Paracetamol 500mg", nil, nil, "50.00", nil, true, 50, time.Now())

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(batchID).WillReturnRows(batches)
	mockDB.ExpectQuery("SELECT * FROM medicines").WithArgs(medicineID).WillReturnRows(medicines)
	mockDB.ExpectExec("INSERT INTO alert_resolutions").
		WithArgs(batchID, "near_expiry", false, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectRollback()

	_, err := svc.Resolve(context.Background(), batchID, domain.AlertNearExpiry, false, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoOriginalPriceRecorded))

	mockDB.ExpectationsWereMet(t)
}

func TestResolveExpiredCascadesMedicineRemoval(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newResolutionService(db)

	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"
	batchID := "11111111-1111-1111-1111-111111111111"

	batches := testutil.MockRows(batchColumns...)
	batchRow(batches, batchID, medicineID, "LOT-A", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	medicines := testutil.MockRows(medicineColumns...).
		AddRow(medicineID, "Paracetamol 500mg", nil, nil, "100.00", nil, false, nil, time.Now())

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(batchID).WillReturnRows(batches)
	mockDB.ExpectQuery("SELECT * FROM medicines").WithArgs(medicineID).WillReturnRows(medicines)

	// Resolution flags go first, then the batches, then the medicine itself.
	mockDB.ExpectExec("DELETE FROM alert_resolutions").
		WithArgs(medicineID).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mockDB.ExpectExec("DELETE FROM batches").
		WithArgs(medicineID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mockDB.ExpectExec("DELETE FROM medicines").
		WithArgs(medicineID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	message, err := svc.Resolve(context.Background(), batchID, domain.AlertExpired, true, nil)
	require.NoError(t, err)
	assert.Equal(t, service.MsgMedicineRemoved, message)

	mockDB.ExpectationsWereMet(t)
}

func TestResolveVanishedBatchReportsAlreadyGone(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newResolutionService(db)

	batchID := "11111111-1111-1111-1111-111111111111"

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(batchID).WillReturnError(sql.ErrNoRows)
	mockDB.ExpectRollback()

	// Replaying a resolution after the cascade is not an error for the caller.
	message, err := svc.Resolve(context.Background(), batchID, domain.AlertExpired, true, nil)
	require.NoError(t, err)
	assert.Equal(t, service.MsgReferentGone, message)

	mockDB.ExpectationsWereMet(t)
}

func TestResolveRejectsUnknownAlertType(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newResolutionService(db)

	_, err := svc.Resolve(context.Background(), "11111111-1111-1111-1111-111111111111", domain.AlertType("bogus"), true, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	mockDB.ExpectationsWereMet(t)
}
