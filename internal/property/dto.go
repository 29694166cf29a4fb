// AngelaMos | 2026
// dto.go

package property

import "time"

type CreatePropertyRequest struct {
	Title        string  `json:"title"         validate:"required,min=3,max=200"`
	Description  string  `json:"description"   validate:"required,min=10,max=5000"`
	Price        float64 `json:"price"         validate:"required,gt=0"`
	PropertyType string  `json:"property_type" validate:"required,oneof=house apartment condo townhouse land commercial"`
	Bedrooms     int     `json:"bedrooms"      validate:"gte=0,lte=50"`
	Bathrooms    int     `json:"bathrooms"     validate:"gte=0,lte=50"`
	Area         float64 `json:"area"          validate:"gte=0"`
	Address      string  `json:"address"       validate:"required,max=300"`
	City         string  `json:"city"          validate:"required,max=100"`
	State        string  `json:"state"         validate:"required,max=100"`
	ZipCode      string  `json:"zip_code"      validate:"required,max=20"`
}

type UpdatePropertyRequest struct {
	Title       *string  `json:"title"       validate:"omitempty,min=3,max=200"`
	Description *string  `json:"description" validate:"omitempty,min=10,max=5000"`
	Price       *float64 `json:"price"       validate:"omitempty,gt=0"`
	Status      *string  `json:"status"      validate:"omitempty,oneof=PENDING ACTIVE INACTIVE SOLD"`
	Bedrooms    *int     `json:"bedrooms"    validate:"omitempty,gte=0,lte=50"`
	Bathrooms   *int     `json:"bathrooms"   validate:"omitempty,gte=0,lte=50"`
	Area        *float64 `json:"area"        validate:"omitempty,gte=0"`
	Address     *string  `json:"address"     validate:"omitempty,max=300"`
	City        *string  `json:"city"        validate:"omitempty,max=100"`
	State       *string  `json:"state"       validate:"omitempty,max=100"`
	ZipCode     *string  `json:"zip_code"    validate:"omitempty,max=20"`
}

type ReviewRequest struct {
	Decision        string  `json:"decision"         validate:"required,oneof=APPROVED REJECTED"`
	RejectionReason *string `json:"rejection_reason" validate:"omitempty,max=1000"`
	Notes           *string `json:"notes"            validate:"omitempty,max=2000"`
}

type ListPropertiesParams struct {
	Page           int
	PageSize       int
	Status         string
	ApprovalStatus string
	OwnerID        string
	City           string
	MinPrice       float64
	MaxPrice       float64
}

func (p *ListPropertiesParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

func (p *ListPropertiesParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type PropertyResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Price           float64    `json:"price"`
	PropertyType    string     `json:"property_type"`
	Bedrooms        int        `json:"bedrooms"`
	Bathrooms       int        `json:"bathrooms"`
	Area            float64    `json:"area"`
	Address         string     `json:"address"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	ZipCode         string     `json:"zip_code"`
	OwnerID         string     `json:"owner_id"`
	Status          string     `json:"status"`
	ApprovalStatus  string     `json:"approval_status"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func ToPropertyResponse(p *Property) PropertyResponse {
	return PropertyResponse{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		Price:           p.Price,
		PropertyType:    p.PropertyType,
		Bedrooms:        p.Bedrooms,
		Bathrooms:       p.Bathrooms,
		Area:            p.Area,
		Address:         p.Address,
		City:            p.City,
		State:           p.State,
		ZipCode:         p.ZipCode,
		OwnerID:         p.OwnerID,
		Status:          p.Status,
		ApprovalStatus:  p.ApprovalStatus,
		RejectionReason: p.RejectionReason,
		ApprovedBy:      p.ApprovedBy,
		ApprovedAt:      p.ApprovedAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func ToPropertyResponseList(properties []Property) []PropertyResponse {
	responses := make([]PropertyResponse, 0, len(properties))
	for i := range properties {
		responses = append(responses, ToPropertyResponse(&properties[i]))
	}
	return responses
}
