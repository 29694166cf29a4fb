// AngelaMos | 2026
// service.go

package property

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/propertynext/backend/internal/core"
	"github.com/propertynext/backend/internal/notification"
)

var (
	ErrNotOwner              = errors.New("not the property owner")
	ErrRejectionReasonNeeded = errors.New("rejection requires a reason")
)

type Service struct {
	db            *sqlx.DB
	repo          Repository
	notifications notification.Repository
}

func NewService(
	db *sqlx.DB,
	repo Repository,
	notifications notification.Repository,
) *Service {
	return &Service{
		db:            db,
		repo:          repo,
		notifications: notifications,
	}
}

func (s *Service) Create(
	ctx context.Context,
	ownerID string,
	req CreatePropertyRequest,
) (*PropertyResponse, error) {
	p := &Property{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		PropertyType: req.PropertyType,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		Area:         req.Area,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		OwnerID:      ownerID,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	resp := ToPropertyResponse(p)
	return &resp, nil
}

func (s *Service) Get(
	ctx context.Context,
	id string,
) (*PropertyResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := ToPropertyResponse(p)
	return &resp, nil
}

func (s *Service) List(
	ctx context.Context,
	params ListPropertiesParams,
) ([]PropertyResponse, int, error) {
	properties, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	return ToPropertyResponseList(properties), total, nil
}

// Update lets the owner or an admin change listing details. Approval fields
// only move through Review.
func (s *Service) Update(
	ctx context.Context,
	id, callerID string,
	isAdmin bool,
	req UpdatePropertyRequest,
) (*PropertyResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.OwnerID != callerID && !isAdmin {
		return nil, fmt.Errorf("update property: %w", ErrNotOwner)
	}

	applyUpdate(p, req)

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	resp := ToPropertyResponse(p)
	return &resp, nil
}

func applyUpdate(p *Property, req UpdatePropertyRequest) {
	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if req.Bedrooms != nil {
		p.Bedrooms = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		p.Bathrooms = *req.Bathrooms
	}
	if req.Area != nil {
		p.Area = *req.Area
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.City != nil {
		p.City = *req.City
	}
	if req.State != nil {
		p.State = *req.State
	}
	if req.ZipCode != nil {
		p.ZipCode = *req.ZipCode
	}
}

func (s *Service) Delete(
	ctx context.Context,
	id, callerID string,
	isAdmin bool,
) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if p.OwnerID != callerID && !isAdmin {
		return fmt.Errorf("delete property: %w", ErrNotOwner)
	}

	return s.repo.Delete(ctx, id)
}

func (s *Service) ModerationCounts(
	ctx context.Context,
) (*ModerationCounts, error) {
	return s.repo.ModerationCounts(ctx)
}

// Review applies an admin decision. The status flip, the audit row, and the
// owner notification commit together or not at all.
func (s *Service) Review(
	ctx context.Context,
	reviewerID string,
	propertyID string,
	req ReviewRequest,
) (*PropertyResponse, error) {
	if !ValidDecision(req.Decision) {
		return nil, fmt.Errorf("review property: %w", core.ErrInvalidInput)
	}

	if req.Decision == ApprovalRejected &&
		(req.RejectionReason == nil || *req.RejectionReason == "") {
		return nil, fmt.Errorf(
			"review property: %w",
			ErrRejectionReasonNeeded,
		)
	}

	var reviewed *Property

	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := s.repo.ReviewTx(ctx, tx, ReviewParams{
			PropertyID:      propertyID,
			ReviewerID:      reviewerID,
			Decision:        req.Decision,
			RejectionReason: req.RejectionReason,
		})
		if err != nil {
			return err
		}

		sub := &Submission{
			PropertyID: propertyID,
			ReviewerID: reviewerID,
			Decision:   req.Decision,
			Notes:      req.Notes,
		}
		if err := s.repo.InsertSubmissionTx(ctx, tx, sub); err != nil {
			return err
		}

		n := ownerNotification(p, req)
		if err := s.notifications.InsertTx(ctx, tx, n); err != nil {
			return err
		}

		reviewed = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := ToPropertyResponse(reviewed)
	return &resp, nil
}

func ownerNotification(
	p *Property,
	req ReviewRequest,
) *notification.Notification {
	if req.Decision == ApprovalApproved {
		return &notification.Notification{
			UserID: p.OwnerID,
			Type:   notification.TypePropertyApproved,
			Title:  "Property Approved!",
			Message: fmt.Sprintf(
				"Your property %q has been approved and is now live.",
				p.Title,
			),
		}
	}

	reason := ""
	if req.RejectionReason != nil {
		reason = *req.RejectionReason
	}

	return &notification.Notification{
		UserID: p.OwnerID,
		Type:   notification.TypePropertyRejected,
		Title:  "Property Rejected",
		Message: fmt.Sprintf(
			"Your property %q was rejected. Reason: %s",
			p.Title,
			reason,
		),
	}
}
