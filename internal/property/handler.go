// AngelaMos | 2026
// handler.go

package property

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/propertynext/backend/internal/core"
	"github.com/propertynext/backend/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, optionalAuth, requireAdmin func(http.Handler) http.Handler,
) {
	r.Route("/properties", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/", h.List)
			r.Get("/{propertyID}", h.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/", h.Create)
			r.Put("/{propertyID}", h.Update)
			r.Delete("/{propertyID}", h.Delete)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/{propertyID}/approve", h.Review)
			})
		})
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	var req CreatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, resp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "propertyID")

	resp, err := h.service.Get(r.Context(), propertyID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "property")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	// unapproved listings are visible to their owner and to admins only
	if resp.ApprovalStatus != ApprovalApproved {
		userID := middleware.GetUserID(r.Context())
		if userID != resp.OwnerID && !middleware.IsAdmin(r.Context()) {
			core.NotFound(w, "property")
			return
		}
	}

	core.OK(w, resp)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := listParamsFromQuery(r)

	// the public catalog only ever shows approved listings; owners see
	// their own pending ones, admins see everything
	isAdmin := middleware.IsAdmin(r.Context())
	userID := middleware.GetUserID(r.Context())
	ownListing := params.OwnerID != "" && params.OwnerID == userID

	if !isAdmin && !ownListing {
		params.ApprovalStatus = ApprovalApproved
	}

	params.Normalize()

	properties, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, properties, params.Page, params.PageSize, total)
}

func listParamsFromQuery(r *http.Request) ListPropertiesParams {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	minPrice, _ := strconv.ParseFloat(q.Get("min_price"), 64)
	maxPrice, _ := strconv.ParseFloat(q.Get("max_price"), 64)

	return ListPropertiesParams{
		Page:           page,
		PageSize:       pageSize,
		Status:         q.Get("status"),
		ApprovalStatus: q.Get("approval_status"),
		OwnerID:        q.Get("owner_id"),
		City:           q.Get("city"),
		MinPrice:       minPrice,
		MaxPrice:       maxPrice,
	}
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	propertyID := chi.URLParam(r, "propertyID")

	var req UpdatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Update(
		r.Context(),
		propertyID,
		userID,
		middleware.IsAdmin(r.Context()),
		req,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "property")
			return
		}
		if errors.Is(err, ErrNotOwner) {
			core.Forbidden(w, "only the owner or an admin can modify a property")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	propertyID := chi.URLParam(r, "propertyID")

	err := h.service.Delete(
		r.Context(),
		propertyID,
		userID,
		middleware.IsAdmin(r.Context()),
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "property")
			return
		}
		if errors.Is(err, ErrNotOwner) {
			core.Forbidden(w, "only the owner or an admin can delete a property")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	reviewerID := middleware.GetUserID(r.Context())
	if reviewerID == "" {
		core.Unauthorized(w, "")
		return
	}

	propertyID := chi.URLParam(r, "propertyID")

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Review(r.Context(), reviewerID, propertyID, req)
	if err != nil {
		if errors.Is(err, ErrRejectionReasonNeeded) {
			core.BadRequest(w, "rejection_reason is required when rejecting")
			return
		}
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, "decision must be APPROVED or REJECTED")
			return
		}
		if errors.Is(err, ErrAlreadyApproved) {
			core.BadRequest(w, "property is already approved")
			return
		}
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "property")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}
