// AngelaMos | 2026
// repository.go

package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/propertynext/backend/internal/core"
)

type Repository interface {
	Insert(ctx context.Context, n *Notification) error
	// InsertTx participates in a caller-owned transaction so notification
	// writes can be atomic with the events that cause them.
	InsertTx(ctx context.Context, tx *sqlx.Tx, n *Notification) error
	ListForUser(
		ctx context.Context,
		userID string,
		unreadOnly bool,
		limit, offset int,
	) ([]Notification, int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const insertQuery = `
	INSERT INTO notifications (id, user_id, type, title, message)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at`

func (r *repository) Insert(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	err := r.db.GetContext(ctx, &n.CreatedAt, insertQuery,
		n.ID, n.UserID, n.Type, n.Title, n.Message)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

func (r *repository) InsertTx(
	ctx context.Context,
	tx *sqlx.Tx,
	n *Notification,
) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	err := tx.GetContext(ctx, &n.CreatedAt, insertQuery,
		n.ID, n.UserID, n.Type, n.Title, n.Message)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

func (r *repository) ListForUser(
	ctx context.Context,
	userID string,
	unreadOnly bool,
	limit, offset int,
) ([]Notification, int, error) {
	where := "user_id = $1"
	if unreadOnly {
		where += " AND is_read = FALSE"
	}

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM notifications WHERE %s",
		where,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, type, title, message, is_read, created_at
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, where)

	var notifications []Notification
	err := r.db.SelectContext(ctx, &notifications, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	return notifications, total, nil
}

func (r *repository) MarkRead(
	ctx context.Context,
	userID, notificationID string,
) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("mark notification read: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) MarkAllRead(
	ctx context.Context,
	userID string,
) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE user_id = $1 AND is_read = FALSE`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}

	return rows, nil
}

func (r *repository) CountUnread(
	ctx context.Context,
	userID string,
) (int, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND is_read = FALSE`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}

	return count, nil
}
