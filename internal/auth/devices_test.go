// AngelaMos | 2026
// devices_test.go

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertynext/backend/internal/core"
)

func newMockDeviceRepo(t *testing.T) (DeviceRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewDeviceRepository(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestDeviceUpsertReactivates(t *testing.T) {
	repo, mock := newMockDeviceRepo(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO user_devices(.|\n)+ON CONFLICT \(user_id, device_id\) DO UPDATE`).
		WithArgs(
			sqlmock.AnyArg(),
			"user-1",
			"fp-1",
			"Mozilla/5.0",
			"203.0.113.7",
		).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "last_active", "created_at",
		}).AddRow("existing-row-id", now, now.Add(-time.Hour)))

	device := &UserDevice{
		UserID:    "user-1",
		DeviceID:  "fp-1",
		UserAgent: "Mozilla/5.0",
		IPAddress: "203.0.113.7",
	}
	require.NoError(t, repo.Upsert(context.Background(), device))

	assert.Equal(t, "existing-row-id", device.ID,
		"conflicting fingerprint keeps its original row")
	assert.True(t, device.IsActive)
	assert.WithinDuration(t, now, device.LastActive, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateLeastRecentlyActive(t *testing.T) {
	repo, mock := newMockDeviceRepo(t)

	mock.ExpectQuery(`UPDATE user_devices(.|\n)+ORDER BY last_active ASC(.|\n)+RETURNING device_id`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}).
			AddRow("oldest-fp"))

	evicted, err := repo.DeactivateLeastRecentlyActive(
		context.Background(),
		"user-1",
	)
	require.NoError(t, err)
	assert.Equal(t, "oldest-fp", evicted)
}

func TestDeactivateLeastRecentlyActiveNoDevices(t *testing.T) {
	repo, mock := newMockDeviceRepo(t)

	mock.ExpectQuery("UPDATE user_devices").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}))

	_, err := repo.DeactivateLeastRecentlyActive(
		context.Background(),
		"user-1",
	)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeactivateUnknownDevice(t *testing.T) {
	repo, mock := newMockDeviceRepo(t)

	mock.ExpectExec("UPDATE user_devices").
		WithArgs("user-1", "ghost-fp").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), "user-1", "ghost-fp")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestActiveForUser(t *testing.T) {
	repo, mock := newMockDeviceRepo(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT(.|\n)+FROM user_devices(.|\n)+is_active = true`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "device_id", "user_agent", "ip_address",
			"is_active", "last_active", "created_at",
		}).
			AddRow("d1", "user-1", "fp-1", "ua-1", "ip-1", true, now, now).
			AddRow("d2", "user-1", "fp-2", "ua-2", "ip-2", true, now, now))

	devices, err := repo.ActiveForUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, devices, 2)
	assert.Equal(t, "fp-1", devices[0].DeviceID)
}
