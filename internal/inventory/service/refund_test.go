package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/service"
	"github.com/pharmaflow/pharmaflow-backend/pkg/database"
	"github.com/pharmaflow/pharmaflow-backend/pkg/errors"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
	"github.com/pharmaflow/pharmaflow-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refundColumns = []string{
	"id", "order_id", "user_id", "amount", "reason", "status",
	"refund_method", "admin_id", "notes", "requested_at", "responded_at",
}

var orderColumns = []string{
	"id", "user_id", "total_amount", "status", "refunded", "created_at",
}

var orderLineColumns = []string{
	"id", "order_id", "medicine_id", "batch_id", "quantity", "unit_price",
}

func refundRow(rows *sqlmock.Rows, id, orderID, status, amount string) *sqlmock.Rows {
	return rows.AddRow(id, orderID, "44444444-4444-4444-4444-444444444444",
		amount, "changed my mind", status, nil, nil, nil, time.Now(), nil)
}

func newRefundService(db *database.DB) *service.RefundService {
	log := logger.New("inventory-service", "test")
	ledger := service.NewStockLedgerService(db, repository.NewBatchRepository(db), nil, log)
	return service.NewRefundService(
		db,
		repository.NewRefundRepository(db),
		repository.NewOrderRepository(db),
		ledger,
		nil,
		log,
	)
}

func TestGetReturnsRefundWithOrderLines(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newRefundService(db)

	refundID := "66666666-6666-6666-6666-666666666666"
	orderID := "55555555-5555-5555-5555-555555555555"
	batchID := "11111111-1111-1111-1111-111111111111"

	refunds := testutil.MockRows(refundColumns...)
	refundRow(refunds, refundID, orderID, repository.RefundStatusPending, "40.00")
	mockDB.ExpectQuery("SELECT * FROM refund_requests").WithArgs(refundID).WillReturnRows(refunds)

	lines := testutil.MockRows(orderLineColumns...).
		AddRow("aaaa1111-1111-1111-1111-111111111111", orderID, "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f", batchID, 2, "20.00").
		AddRow("aaaa2222-2222-2222-2222-222222222222", orderID, "6a4c1daf-3d6e-4b6c-8e7f-2b3c4d5e6f70", nil, 1, "10.00")
	mockDB.ExpectQuery("SELECT * FROM order_lines").WithArgs(orderID).WillReturnRows(lines)

	detail, err := svc.Get(context.Background(), refundID)
	require.NoError(t, err)
	assert.Equal(t, refundID, detail.ID)
	require.Len(t, detail.OrderLines, 2)
	require.NotNil(t, detail.OrderLines[0].BatchID)
	assert.Equal(t, batchID, *detail.OrderLines[0].BatchID)
	assert.Nil(t, detail.OrderLines[1].BatchID)

	mockDB.ExpectationsWereMet(t)
}

func TestCreateRefundRejectsAmountOverOrderTotal(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newRefundService(db)

	orderID := "55555555-5555-5555-5555-555555555555"

	orders := testutil.MockRows(orderColumns...).
		AddRow(orderID, "44444444-4444-4444-4444-444444444444", "100.00", "delivered", false, time.Now())
	mockDB.ExpectQuery("SELECT * FROM orders").WithArgs(orderID).WillReturnRows(orders)

	err := svc.Create(context.Background(), &repository.RefundRequest{
		OrderID: orderID,
		UserID:  "44444444-4444-4444-4444-444444444444",
		Amount:  decimal.RequireFromString("150.00"),
		Reason:  "changed my mind",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRefundExceedsOrder))

	mockDB.ExpectationsWereMet(t)
}

func TestCreateRefundAllowsFullOrderTotal(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newRefundService(db)

	orderID := "55555555-5555-5555-5555-555555555555"

	orders := testutil.MockRows(orderColumns...).
		AddRow(orderID, "44444444-4444-4444-4444-444444444444", "100.00", "delivered", false, time.Now())
	mockDB.ExpectQuery("SELECT * FROM orders").WithArgs(orderID).WillReturnRows(orders)
	mockDB.ExpectQuery("INSERT INTO refund_requests").
		WithArgs(testutil.AnyUUID{}, orderID, "44444444-4444-4444-4444-444444444444",
			sqlmock.AnyArg(), "changed my mind", repository.RefundStatusPending).
		WillReturnRows(testutil.MockRows("requested_at").AddRow(time.Now()))

	req := &repository.RefundRequest{
		OrderID: orderID,
		UserID:  "44444444-4444-4444-4444-444444444444",
		Amount:  decimal.RequireFromString("100.00"),
		Reason:  "changed my mind",
	}
	err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, repository.RefundStatusPending, req.Status)

	mockDB.ExpectationsWereMet(t)
}

func TestCreateRefundOnAlreadyRefundedOrderFails(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newRefundService(db)

	orderID := "55555555-5555-5555-5555-555555555555"

	orders := testutil.MockRows(orderColumns...).
		AddRow(orderID, "44444444-4444-4444-4444-444444444444", "100.00", "delivered", true, time.Now())
	mockDB.ExpectQuery("SELECT * FROM orders").WithArgs(orderID).WillReturnRows(orders)

	err := svc.Create(context.Background(), &repository.RefundRequest{
		OrderID: orderID,
		UserID:  "44444444-4444-4444-4444-444444444444",
		Amount:  decimal.RequireFromString("50.00"),
		Reason:  "changed my mind",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	mockDB.ExpectationsWereMet(t)
}

func TestApproveRefundRestoresEveryOrderLine(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newRefundService(db)

	refundID := "66666666-6666-6666-6666-666666666666"
	orderID := "55555555-5555-5555-5555-555555555555"
	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"
	batchA := "11111111-1111-1111-1111-111111111111"
	batchB := "22222222-2222-2222-2222-222222222222"
	adminID := "77777777-7777-7777-7777-777777777777"
	reference := "refund:" + refundID

	refunds := testutil.MockRows(refundColumns...)
	refundRow(refunds, refundID, orderID, repository.RefundStatusPending, "100.00")
	lines := testutil.MockRows(orderLineColumns...).
		AddRow("l1", orderID, medicineID, batchA, 3, "20.00").
		AddRow("l2", orderID, medicineID, batchB, 2, "20.00")

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM refund_requests").WithArgs(refundID).WillReturnRows(refunds)
	mockDB.ExpectQuery("SELECT * FROM order_lines").WithArgs(orderID).WillReturnRows(lines)

	batchesA := testutil.MockRows(batchColumns...)
	batchRow(batchesA, batchA, medicineID, "LOT-A", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), 5)
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(batchA).WillReturnRows(batchesA)
	mockDB.ExpectExec("UPDATE batches SET quantity").
		WithArgs(batchA, 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WithArgs(testutil.AnyUUID{}, batchA, medicineID, repository.MovementRestore, 3, 5, 8, reference, adminID).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))

	batchesB := testutil.MockRows(batchColumns...)
	batchRow(batchesB, batchB, medicineID, "LOT-B", time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), 0)
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(batchB).WillReturnRows(batchesB)
	mockDB.ExpectExec("UPDATE batches SET quantity").
		WithArgs(batchB, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WithArgs(testutil.AnyUUID{}, batchB, medicineID, repository.MovementRestore, 2, 0, 2, reference, adminID).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))

	mockDB.ExpectExec("UPDATE orders SET refunded").
		WithArgs(orderID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("UPDATE refund_requests SET").
		WithArgs(refundID, repository.RefundStatusApproved, adminID, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	err := svc.Approve(context.Background(), refundID, adminID, nil, nil)
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestApproveRefundFailsWhenLineBatchIsGone(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newRefundService(db)

	refundID := "66666666-6666-6666-6666-666666666666"
	orderID := "55555555-5555-5555-5555-555555555555"
	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"
	batchA := "11111111-1111-1111-1111-111111111111"
	adminID := "77777777-7777-7777-7777-777777777777"

	refunds := testutil.MockRows(refundColumns...)
	refundRow(refunds, refundID, orderID, repository.RefundStatusPending, "100.00")
	// The second line lost its batch to an expired-alert cascade.
	lines := testutil.MockRows(orderLineColumns...).
		AddRow("l1", orderID, medicineID, batchA, 3, "20.00").
		AddRow("l2", orderID, medicineID, nil, 2, "20.00")

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM refund_requests").WithArgs(refundID).WillReturnRows(refunds)
	mockDB.ExpectQuery("SELECT * FROM order_lines").WithArgs(orderID).WillReturnRows(lines)

	batchesA := testutil.MockRows(batchColumns...)
	batchRow(batchesA, batchA, medicineID, "LOT-A", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), 5)
	mockDB.ExpectQuery("SELECT * FROM batches").WithArgs(batchA).WillReturnRows(batchesA)
	mockDB.ExpectExec("UPDATE batches SET quantity").
		WithArgs(batchA, 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WithArgs(testutil.AnyUUID{}, batchA, medicineID, repository.MovementRestore, 3, 5, 8, "refund:"+refundID, adminID).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.ExpectRollback()

	// The first line's restoration rolls back with everything else.
	err := svc.Approve(context.Background(), refundID, adminID, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBatchGone))

	mockDB.ExpectationsWereMet(t)
}

func TestApproveNonPendingRefundFails(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newRefundService(db)

	refundID := "66666666-6666-6666-6666-666666666666"

	refunds := testutil.MockRows(refundColumns...)
	refundRow(refunds, refundID, "55555555-5555-5555-5555-555555555555",
		repository.RefundStatusRejected, "100.00")

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM refund_requests").WithArgs(refundID).WillReturnRows(refunds)
	mockDB.ExpectRollback()

	err := svc.Approve(context.Background(), refundID, "77777777-7777-7777-7777-777777777777", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	mockDB.ExpectationsWereMet(t)
}

func TestRejectRefundClosesPendingRequest(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newRefundService(db)

	refundID := "66666666-6666-6666-6666-666666666666"
	adminID := "77777777-7777-7777-7777-777777777777"

	refunds := testutil.MockRows(refundColumns...)
	refundRow(refunds, refundID, "55555555-5555-5555-5555-555555555555",
		repository.RefundStatusPending, "100.00")

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM refund_requests").WithArgs(refundID).WillReturnRows(refunds)
	mockDB.ExpectExec("UPDATE refund_requests SET").
		WithArgs(refundID, repository.RefundStatusRejected, adminID, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	err := svc.Reject(context.Background(), refundID, adminID, nil)
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestUpdateStatusMovesApprovedRefundIntoProcessing(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newRefundService(db)

	refundID := "66666666-6666-6666-6666-666666666666"

	refunds := testutil.MockRows(refundColumns...)
	refundRow(refunds, refundID, "55555555-5555-5555-5555-555555555555",
		repository.RefundStatusApproved, "100.00")

	mockDB.ExpectQuery("SELECT * FROM refund_requests").WithArgs(refundID).WillReturnRows(refunds)
	mockDB.ExpectExec("UPDATE refund_requests SET").
		WithArgs(refundID, repository.RefundStatusProcessing, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.UpdateStatus(context.Background(), refundID, repository.RefundStatusProcessing, nil, nil)
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestUpdateStatusCompletesProcessingRefund(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newRefundService(db)

	refundID := "66666666-6666-6666-6666-666666666666"

	refunds := testutil.MockRows(refundColumns...)
	refundRow(refunds, refundID, "55555555-5555-5555-5555-555555555555",
		repository.RefundStatusProcessing, "100.00")

	mockDB.ExpectQuery("SELECT * FROM refund_requests").WithArgs(refundID).WillReturnRows(refunds)
	mockDB.ExpectExec("UPDATE refund_requests SET").
		WithArgs(refundID, repository.RefundStatusCompleted, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.UpdateStatus(context.Background(), refundID, repository.RefundStatusCompleted, nil, nil)
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestUpdateStatusRejectsIllegalTransitions(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newRefundService(db)

	refundID := "66666666-6666-6666-6666-666666666666"

	// A pending refund has not been approved yet; there is nothing to pay out.
	refunds := testutil.MockRows(refundColumns...)
	refundRow(refunds, refundID, "55555555-5555-5555-5555-555555555555",
		repository.RefundStatusPending, "100.00")
	mockDB.ExpectQuery("SELECT * FROM refund_requests").WithArgs(refundID).WillReturnRows(refunds)

	err := svc.UpdateStatus(context.Background(), refundID, repository.RefundStatusProcessing, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	// Processing cannot re-enter processing.
	refunds = testutil.MockRows(refundColumns...)
	refundRow(refunds, refundID, "55555555-5555-5555-5555-555555555555",
		repository.RefundStatusProcessing, "100.00")
	mockDB.ExpectQuery("SELECT * FROM refund_requests").WithArgs(refundID).WillReturnRows(refunds)

	err = svc.UpdateStatus(context.Background(), refundID, repository.RefundStatusProcessing, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	// Targets other than processing/completed never reach the database.
	err = svc.UpdateStatus(context.Background(), refundID, repository.RefundStatusRejected, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	mockDB.ExpectationsWereMet(t)
}
