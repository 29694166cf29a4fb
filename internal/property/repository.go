// AngelaMos | 2026
// repository.go

package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/propertynext/backend/internal/core"
)

// ErrAlreadyApproved marks the one review transition that is refused:
// re-approving an already approved listing.
var ErrAlreadyApproved = errors.New("property already approved")

const propertyColumns = `
	id, title, description, price, property_type, bedrooms, bathrooms, area,
	address, city, state, zip_code, owner_id, status, approval_status,
	rejection_reason, approved_by, approved_at, created_at, updated_at`

type ReviewParams struct {
	PropertyID      string
	ReviewerID      string
	Decision        string
	RejectionReason *string
}

type Repository interface {
	Create(ctx context.Context, p *Property) error
	GetByID(ctx context.Context, id string) (*Property, error)
	List(
		ctx context.Context,
		params ListPropertiesParams,
	) ([]Property, int, error)
	Update(ctx context.Context, p *Property) error
	Delete(ctx context.Context, id string) error
	// ReviewTx applies a review decision inside a caller-owned transaction.
	// The UPDATE itself refuses APPROVED -> APPROVED, so concurrent
	// reviewers cannot both win.
	ReviewTx(
		ctx context.Context,
		tx *sqlx.Tx,
		params ReviewParams,
	) (*Property, error)
	InsertSubmissionTx(
		ctx context.Context,
		tx *sqlx.Tx,
		sub *Submission,
	) error
	ModerationCounts(ctx context.Context) (*ModerationCounts, error)
}

type ModerationCounts struct {
	PendingReview int `db:"pending_review"`
	ApprovedToday int `db:"approved_today"`
	RejectedToday int `db:"rejected_today"`
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Property) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.Status = StatusPending
	p.ApprovalStatus = ApprovalPending

	query := `
		INSERT INTO properties (
			id, title, description, price, property_type, bedrooms,
			bathrooms, area, address, city, state, zip_code, owner_id,
			status, approval_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.ID, p.Title, p.Description, p.Price, p.PropertyType,
		p.Bedrooms, p.Bathrooms, p.Area, p.Address, p.City, p.State,
		p.ZipCode, p.OwnerID, p.Status, p.ApprovalStatus,
	)
	if err != nil {
		return fmt.Errorf("create property: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Property, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM properties WHERE id = $1",
		propertyColumns,
	)

	var p Property
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get property: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}

	return &p, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListPropertiesParams,
) ([]Property, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "TRUE")

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	if params.ApprovalStatus != "" {
		conditions = append(conditions,
			fmt.Sprintf("approval_status = $%d", argIdx))
		args = append(args, params.ApprovalStatus)
		argIdx++
	}

	if params.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argIdx))
		args = append(args, params.OwnerID)
		argIdx++
	}

	if params.City != "" {
		conditions = append(conditions, fmt.Sprintf("city ILIKE $%d", argIdx))
		args = append(args, params.City)
		argIdx++
	}

	if params.MinPrice > 0 {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIdx))
		args = append(args, params.MinPrice)
		argIdx++
	}

	if params.MaxPrice > 0 {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIdx))
		args = append(args, params.MaxPrice)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM properties WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count properties: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM properties
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		propertyColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var properties []Property
	if err := r.db.SelectContext(ctx, &properties, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}

	return properties, total, nil
}

func (r *repository) Update(ctx context.Context, p *Property) error {
	query := `
		UPDATE properties
		SET title = $2, description = $3, price = $4, status = $5,
		    bedrooms = $6, bathrooms = $7, area = $8, address = $9,
		    city = $10, state = $11, zip_code = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &p.UpdatedAt, query,
		p.ID, p.Title, p.Description, p.Price, p.Status,
		p.Bedrooms, p.Bathrooms, p.Area, p.Address, p.City, p.State,
		p.ZipCode,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update property: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update property: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM properties WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete property: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ReviewTx(
	ctx context.Context,
	tx *sqlx.Tx,
	params ReviewParams,
) (*Property, error) {
	query := fmt.Sprintf(`
		UPDATE properties
		SET approval_status = $2,
		    status = CASE WHEN $2 = 'APPROVED' THEN 'ACTIVE' ELSE status END,
		    rejection_reason = CASE WHEN $2 = 'REJECTED' THEN $3 ELSE NULL END,
		    approved_by = $4,
		    approved_at = CASE WHEN $2 = 'APPROVED' THEN NOW() ELSE approved_at END,
		    updated_at = NOW()
		WHERE id = $1
		  AND NOT (approval_status = 'APPROVED' AND $2 = 'APPROVED')
		RETURNING %s`, propertyColumns)

	var p Property
	err := tx.GetContext(ctx, &p, query,
		params.PropertyID,
		params.Decision,
		params.RejectionReason,
		params.ReviewerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// zero rows is either a missing property or a repeat approval;
		// look again inside the same transaction to tell them apart
		var current string
		lookupErr := tx.GetContext(ctx, &current,
			"SELECT approval_status FROM properties WHERE id = $1",
			params.PropertyID)
		if errors.Is(lookupErr, sql.ErrNoRows) {
			return nil, fmt.Errorf("review property: %w", core.ErrNotFound)
		}
		if lookupErr != nil {
			return nil, fmt.Errorf("review property: %w", lookupErr)
		}
		return nil, fmt.Errorf("review property: %w", ErrAlreadyApproved)
	}
	if err != nil {
		return nil, fmt.Errorf("review property: %w", err)
	}

	return &p, nil
}

func (r *repository) ModerationCounts(
	ctx context.Context,
) (*ModerationCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE approval_status = 'PENDING') AS pending_review,
			COUNT(*) FILTER (WHERE approval_status = 'APPROVED'
				AND approved_at >= date_trunc('day', NOW())) AS approved_today,
			COUNT(*) FILTER (WHERE approval_status = 'REJECTED'
				AND updated_at >= date_trunc('day', NOW())) AS rejected_today
		FROM properties`

	var counts ModerationCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("moderation counts: %w", err)
	}

	return &counts, nil
}

func (r *repository) InsertSubmissionTx(
	ctx context.Context,
	tx *sqlx.Tx,
	sub *Submission,
) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}

	query := `
		INSERT INTO property_submissions (
			id, property_id, reviewer_id, decision, notes
		)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := tx.GetContext(ctx, &sub.CreatedAt, query,
		sub.ID, sub.PropertyID, sub.ReviewerID, sub.Decision, sub.Notes)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	return nil
}
