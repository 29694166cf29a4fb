// AngelaMos | 2026
// entity.go

package notification

import "time"

const (
	TypePropertyApproved = "PROPERTY_APPROVED"
	TypePropertyRejected = "PROPERTY_REJECTED"
	TypeSystem           = "SYSTEM"
)

type Notification struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}
