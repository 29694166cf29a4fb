// AngelaMos | 2026
// repository_test.go

package user

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

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewRepository(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestRecordFailedLoginBelowThreshold(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE users(.|\n)+failed_attempts \+ 1(.|\n)+make_interval`).
		WithArgs("user-1", 5, float64(1800)).
		WillReturnRows(sqlmock.NewRows([]string{
			"failed_attempts", "locked_until",
		}).AddRow(3, nil))

	state, err := repo.RecordFailedLogin(
		context.Background(),
		"user-1",
		5,
		30*time.Minute,
	)
	require.NoError(t, err)
	assert.Equal(t, 3, state.FailedAttempts)
	assert.Nil(t, state.LockedUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFailedLoginOpensLockout(t *testing.T) {
	repo, mock := newMockRepo(t)
	lockedUntil := time.Now().Add(30 * time.Minute)

	mock.ExpectQuery("UPDATE users").
		WithArgs("user-1", 5, float64(1800)).
		WillReturnRows(sqlmock.NewRows([]string{
			"failed_attempts", "locked_until",
		}).AddRow(5, lockedUntil))

	state, err := repo.RecordFailedLogin(
		context.Background(),
		"user-1",
		5,
		30*time.Minute,
	)
	require.NoError(t, err)
	assert.Equal(t, 5, state.FailedAttempts)
	require.NotNil(t, state.LockedUntil)
	assert.WithinDuration(t, lockedUntil, *state.LockedUntil, time.Second)
}

func TestRecordFailedLoginUnknownUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE users").
		WithArgs("ghost", 5, float64(1800)).
		WillReturnRows(sqlmock.NewRows([]string{
			"failed_attempts", "locked_until",
		}))

	_, err := repo.RecordFailedLogin(
		context.Background(),
		"ghost",
		5,
		30*time.Minute,
	)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestResetLoginFailures(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE users(.|\n)+failed_attempts = 0, locked_until = NULL`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ResetLoginFailures(context.Background(), "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmailNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM users(.|\n)+WHERE email = \\$1").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT(.|\n)+FROM users(.|\n)+WHERE id = \\$1").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "password_hash", "name", "role",
			"failed_attempts", "locked_until", "token_version",
			"created_at", "updated_at", "deleted_at",
		}).AddRow(
			"user-1", "alice@example.com", "hash", "Alice", "customer",
			0, nil, 0, now, now, nil,
		))

	user, err := repo.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.IsLocked(time.Now()))
}

func TestUserIsLocked(t *testing.T) {
	now := time.Now()
	future := now.Add(10 * time.Minute)
	past := now.Add(-10 * time.Minute)

	locked := &User{LockedUntil: &future}
	assert.True(t, locked.IsLocked(now))
	assert.Equal(t, 10*time.Minute, locked.LockRemaining(now).Round(time.Minute))

	expired := &User{LockedUntil: &past}
	assert.False(t, expired.IsLocked(now))

	clean := &User{}
	assert.False(t, clean.IsLocked(now))
	assert.Zero(t, clean.LockRemaining(now))
}
