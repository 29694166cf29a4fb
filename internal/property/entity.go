// AngelaMos | 2026
// entity.go

package property

import "time"

const (
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

const (
	StatusPending  = "PENDING"
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
	StatusSold     = "SOLD"
)

type Property struct {
	ID              string     `db:"id"`
	Title           string     `db:"title"`
	Description     string     `db:"description"`
	Price           float64    `db:"price"`
	PropertyType    string     `db:"property_type"`
	Bedrooms        int        `db:"bedrooms"`
	Bathrooms       int        `db:"bathrooms"`
	Area            float64    `db:"area"`
	Address         string     `db:"address"`
	City            string     `db:"city"`
	State           string     `db:"state"`
	ZipCode         string     `db:"zip_code"`
	OwnerID         string     `db:"owner_id"`
	Status          string     `db:"status"`
	ApprovalStatus  string     `db:"approval_status"`
	RejectionReason *string    `db:"rejection_reason"`
	ApprovedBy      *string    `db:"approved_by"`
	ApprovedAt      *time.Time `db:"approved_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Submission is the immutable audit record for one review decision.
type Submission struct {
	ID         string    `db:"id"`
	PropertyID string    `db:"property_id"`
	ReviewerID string    `db:"reviewer_id"`
	Decision   string    `db:"decision"`
	Notes      *string   `db:"notes"`
	CreatedAt  time.Time `db:"created_at"`
}

func ValidDecision(decision string) bool {
	return decision == ApprovalApproved || decision == ApprovalRejected
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusActive, StatusInactive, StatusSold:
		return true
	}
	return false
}
