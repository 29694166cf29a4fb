// AngelaMos | 2026
// repository_test.go

package property

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertynext/backend/internal/core"
)

func newMockRepo(t *testing.T) (Repository, *sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	return NewRepository(db), db, mock
}

func propertyRows(p *Property) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "description", "price", "property_type", "bedrooms",
		"bathrooms", "area", "address", "city", "state", "zip_code",
		"owner_id", "status", "approval_status", "rejection_reason",
		"approved_by", "approved_at", "created_at", "updated_at",
	}).AddRow(
		p.ID, p.Title, p.Description, p.Price, p.PropertyType, p.Bedrooms,
		p.Bathrooms, p.Area, p.Address, p.City, p.State, p.ZipCode,
		p.OwnerID, p.Status, p.ApprovalStatus, p.RejectionReason,
		p.ApprovedBy, p.ApprovedAt, p.CreatedAt, p.UpdatedAt,
	)
}

func sampleProperty() *Property {
	now := time.Now()
	return &Property{
		ID:             "prop-1",
		Title:          "Sunny Loft",
		Description:    "Bright two-bedroom loft near the river.",
		Price:          425000,
		PropertyType:   "apartment",
		Bedrooms:       2,
		Bathrooms:      1,
		Area:           85.5,
		Address:        "12 Riverside Way",
		City:           "Portland",
		State:          "OR",
		ZipCode:        "97201",
		OwnerID:        "owner-1",
		Status:         StatusPending,
		ApprovalStatus: ApprovalPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestRepositoryGetByID(t *testing.T) {
	repo, _, mock := newMockRepo(t)
	want := sampleProperty()

	mock.ExpectQuery("SELECT(.|\n)+FROM properties(.|\n)+WHERE id = \\$1").
		WithArgs("prop-1").
		WillReturnRows(propertyRows(want))

	got, err := repo.GetByID(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, ApprovalPending, got.ApprovalStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByIDNotFound(t *testing.T) {
	repo, _, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM properties").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepositoryReviewTxApprove(t *testing.T) {
	repo, db, mock := newMockRepo(t)
	want := sampleProperty()
	want.ApprovalStatus = ApprovalApproved
	want.Status = StatusActive

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE properties(.|\n)+NOT \(approval_status = 'APPROVED' AND \$2 = 'APPROVED'\)`).
		WithArgs("prop-1", ApprovalApproved, nil, "admin-1").
		WillReturnRows(propertyRows(want))
	mock.ExpectCommit()

	err := core.InTx(context.Background(), db, func(tx *sqlx.Tx) error {
		p, reviewErr := repo.ReviewTx(context.Background(), tx, ReviewParams{
			PropertyID: "prop-1",
			ReviewerID: "admin-1",
			Decision:   ApprovalApproved,
		})
		require.NoError(t, reviewErr)
		assert.Equal(t, StatusActive, p.Status)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryReviewTxAlreadyApproved(t *testing.T) {
	repo, db, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE properties").
		WithArgs("prop-1", ApprovalApproved, nil, "admin-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT approval_status FROM properties WHERE id = $1")).
		WithArgs("prop-1").
		WillReturnRows(sqlmock.NewRows([]string{"approval_status"}).
			AddRow(ApprovalApproved))
	mock.ExpectRollback()

	err := core.InTx(context.Background(), db, func(tx *sqlx.Tx) error {
		_, reviewErr := repo.ReviewTx(context.Background(), tx, ReviewParams{
			PropertyID: "prop-1",
			ReviewerID: "admin-1",
			Decision:   ApprovalApproved,
		})
		return reviewErr
	})
	assert.ErrorIs(t, err, ErrAlreadyApproved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryReviewTxNotFound(t *testing.T) {
	repo, db, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE properties").
		WithArgs("missing", ApprovalRejected, "too blurry", "admin-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT approval_status FROM properties WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"approval_status"}))
	mock.ExpectRollback()

	reason := "too blurry"
	err := core.InTx(context.Background(), db, func(tx *sqlx.Tx) error {
		_, reviewErr := repo.ReviewTx(context.Background(), tx, ReviewParams{
			PropertyID:      "missing",
			ReviewerID:      "admin-1",
			Decision:        ApprovalRejected,
			RejectionReason: &reason,
		})
		return reviewErr
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListFilters(t *testing.T) {
	repo, _, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM properties").
		WithArgs(StatusActive, ApprovalApproved, float64(100000)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT(.|\n)+FROM properties(.|\n)+ORDER BY created_at DESC").
		WithArgs(StatusActive, ApprovalApproved, float64(100000), 20, 0).
		WillReturnRows(propertyRows(sampleProperty()))

	properties, total, err := repo.List(context.Background(), ListPropertiesParams{
		Status:         StatusActive,
		ApprovalStatus: ApprovalApproved,
		MinPrice:       100000,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, properties, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDeleteNotFound(t *testing.T) {
	repo, _, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM properties WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
