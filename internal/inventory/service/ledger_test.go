package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/service"
	"github.com/pharmaflow/pharmaflow-backend/pkg/database"
	"github.com/pharmaflow/pharmaflow-backend/pkg/errors"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
	"github.com/pharmaflow/pharmaflow-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*testutil.MockDB, *database.DB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })
	return mockDB, database.NewFromDB(mockDB.DB, logger.New("inventory-service", "test"))
}

var batchColumns = []string{
	"id", "medicine_id", "batch_number", "expiry_date", "quantity",
	"supplier_id", "purchase_date", "unit_cost", "hidden",
	"created_at", "updated_at",
}

func batchRow(rows *sqlmock.Rows, id, medicineID, batchNumber string, expiry time.Time, quantity int) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, medicineID, batchNumber, expiry, quantity, nil, now, nil, false, now, now)
}

func TestReserveFEFODrawsDownSoonestExpiryFirst(t *testing.T) {
	mockDB, db := newTestDB(t)
	ledger := service.NewStockLedgerService(db, repository.NewBatchRepository(db), nil, logger.New("inventory-service", "test"))

	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"
	soonID := "11111111-1111-1111-1111-111111111111"
	laterID := "22222222-2222-2222-2222-222222222222"
	soonExpiry := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	laterExpiry := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	rows := testutil.MockRows(batchColumns...)
	batchRow(rows, soonID, medicineID, "LOT-A", soonExpiry, 4)
	batchRow(rows, laterID, medicineID, "LOT-B", laterExpiry, 10)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(medicineID).WillReturnRows(rows)

	// Soonest batch is drained first, the remainder comes from the next one.
	mockDB.ExpectExec("UPDATE batches SET quantity").
		WithArgs(soonID, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WithArgs(testutil.AnyUUID{}, soonID, medicineID, repository.MovementReserve, 4, 4, 0, nil, nil).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.ExpectExec("UPDATE batches SET quantity").
		WithArgs(laterID, 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WithArgs(testutil.AnyUUID{}, laterID, medicineID, repository.MovementReserve, 2, 10, 8, nil, nil).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.ExpectCommit()

	allocations, err := ledger.ReserveFEFO(context.Background(), medicineID, 6, nil, nil)
	require.NoError(t, err)

	require.Len(t, allocations, 2)
	assert.Equal(t, service.Allocation{BatchID: soonID, Quantity: 4}, allocations[0])
	assert.Equal(t, service.Allocation{BatchID: laterID, Quantity: 2}, allocations[1])

	mockDB.ExpectationsWereMet(t)
}

func TestReserveFEFOInsufficientStockTouchesNothing(t *testing.T) {
	mockDB, db := newTestDB(t)
	ledger := service.NewStockLedgerService(db, repository.NewBatchRepository(db), nil, logger.New("inventory-service", "test"))

	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"

	rows := testutil.MockRows(batchColumns...)
	batchRow(rows, "11111111-1111-1111-1111-111111111111", medicineID, "LOT-A",
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), 3)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(medicineID).WillReturnRows(rows)
	mockDB.ExpectRollback()

	allocations, err := ledger.ReserveFEFO(context.Background(), medicineID, 5, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
	assert.Nil(t, allocations)

	// No UPDATE or INSERT was expected: a short draw-down leaves every batch alone.
	mockDB.ExpectationsWereMet(t)
}

func TestReserveFEFORejectsNonPositiveQuantity(t *testing.T) {
	mockDB, db := newTestDB(t)
	ledger := service.NewStockLedgerService(db, repository.NewBatchRepository(db), nil, logger.New("inventory-service", "test"))

	for _, qty := range []int{0, -3} {
		_, err := ledger.ReserveFEFO(context.Background(), "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f", qty, nil, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))
	}

	mockDB.ExpectationsWereMet(t)
}

func TestRestoreAddsQuantityBack(t *testing.T) {
	mockDB, db := newTestDB(t)
	ledger := service.NewStockLedgerService(db, repository.NewBatchRepository(db), nil, logger.New("inventory-service", "test"))

	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"
	batchID := "11111111-1111-1111-1111-111111111111"

	rows := testutil.MockRows(batchColumns...)
	batchRow(rows, batchID, medicineID, "LOT-A", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), 2)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(batchID).WillReturnRows(rows)
	mockDB.ExpectExec("UPDATE batches SET quantity").
		WithArgs(batchID, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WithArgs(testutil.AnyUUID{}, batchID, medicineID, repository.MovementRestore, 5, 2, 7, nil, nil).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.ExpectCommit()

	err := ledger.Restore(context.Background(), batchID, 5, nil, nil)
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestRestoreVanishedBatchIsBatchGone(t *testing.T) {
	mockDB, db := newTestDB(t)
	ledger := service.NewStockLedgerService(db, repository.NewBatchRepository(db), nil, logger.New("inventory-service", "test"))

	batchID := "11111111-1111-1111-1111-111111111111"

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(batchID).WillReturnError(sql.ErrNoRows)
	mockDB.ExpectRollback()

	err := ledger.Restore(context.Background(), batchID, 5, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBatchGone))

	mockDB.ExpectationsWereMet(t)
}
