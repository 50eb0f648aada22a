package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/domain"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/repository"
	"github.com/pharmaflow/pharmaflow-backend/internal/inventory/service"
	"github.com/pharmaflow/pharmaflow-backend/pkg/config"
	"github.com/pharmaflow/pharmaflow-backend/pkg/database"
	"github.com/pharmaflow/pharmaflow-backend/pkg/logger"
	"github.com/pharmaflow/pharmaflow-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alertBatchColumns = append(append([]string{}, batchColumns...), "medicine_name")

var resolutionColumns = []string{"batch_id", "alert_type", "resolved", "resolved_by", "resolved_at"}

func alertBatchRow(rows *sqlmock.Rows, id, medicineID, name, batchNumber string, expiry time.Time, quantity int) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, medicineID, batchNumber, expiry, quantity, nil, now, nil, false, now, now, name)
}

func newAlertService(db *database.DB) *service.AlertService {
	policy := &config.PolicyConfig{NearExpiryWindowDays: 30, DiscountPercent: 50}
	return service.NewAlertService(
		repository.NewBatchRepository(db),
		repository.NewResolutionRepository(db),
		policy,
		logger.New("inventory-service", "test"),
	)
}

func TestListAlertsClassifiesVisibleBatches(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newAlertService(db)

	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"
	nearID := "11111111-1111-1111-1111-111111111111"
	expiredID := "22222222-2222-2222-2222-222222222222"
	freshID := "33333333-3333-3333-3333-333333333333"

	batches := testutil.MockRows(alertBatchColumns...)
	alertBatchRow(batches, nearID, medicineID, "Paracetamol 500mg", "LOT-A", time.Now().AddDate(0, 0, 5), 10)
	alertBatchRow(batches, expiredID, medicineID, "Paracetamol 500mg", "LOT-B", time.Now().AddDate(0, 0, -3), 4)
	alertBatchRow(batches, freshID, medicineID, "Paracetamol 500mg", "LOT-C", time.Now().AddDate(1, 0, 0), 100)

	resolutions := testutil.MockRows(resolutionColumns...).
		AddRow(expiredID, "expired", true, nil, time.Now())

	mockDB.ExpectQuery("SELECT b.*, m.name AS medicine_name").WillReturnRows(batches)
	mockDB.ExpectQuery("SELECT * FROM alert_resolutions").WillReturnRows(resolutions)

	alerts, err := svc.ListAlerts(context.Background(), service.AlertFilter{})
	require.NoError(t, err)

	// The fresh batch raises no alert.
	require.Len(t, alerts, 2)
	assert.Equal(t, nearID, alerts[0].BatchID)
	assert.Equal(t, domain.AlertNearExpiry, alerts[0].AlertType)
	assert.False(t, alerts[0].Resolved)
	assert.Equal(t, expiredID, alerts[1].BatchID)
	assert.Equal(t, domain.AlertExpired, alerts[1].AlertType)
	assert.True(t, alerts[1].Resolved)
	assert.Negative(t, alerts[1].DaysUntilExpiry)

	mockDB.ExpectationsWereMet(t)
}

func TestListAlertsFiltersByTypeAndResolution(t *testing.T) {
	mockDB, db := newTestDB(t)
	svc := newAlertService(db)

	medicineID := "5f3b0c9e-2c5d-4a5b-9d6e-1a2b3c4d5e6f"
	nearID := "11111111-1111-1111-1111-111111111111"
	expiredID := "22222222-2222-2222-2222-222222222222"

	batches := testutil.MockRows(alertBatchColumns...)
	alertBatchRow(batches, nearID, medicineID, "Paracetamol 500mg", "LOT-A", time.Now().AddDate(0, 0, 5), 10)
	alertBatchRow(batches, expiredID, medicineID, "Paracetamol 500mg", "LOT-B", time.Now().AddDate(0, 0, -3), 4)

	resolutions := testutil.MockRows(resolutionColumns...).
		AddRow(expiredID, "expired", true, nil, time.Now())

	mockDB.ExpectQuery("SELECT b.*, m.name AS medicine_name").WillReturnRows(batches)
	mockDB.ExpectQuery("SELECT * FROM alert_resolutions").WillReturnRows(resolutions)

	unresolved := false
	alerts, err := svc.ListAlerts(context.Background(), service.AlertFilter{
		Type:     domain.AlertNearExpiry,
		Resolved: &unresolved,
	})
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	assert.Equal(t, nearID, alerts[0].BatchID)

	mockDB.ExpectationsWereMet(t)
}
