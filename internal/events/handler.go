package events

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gowra/backend/internal/auth"
	"github.com/gowra/backend/internal/models"
	"github.com/gowra/backend/pkg/response"
	"github.com/gowra/backend/pkg/storage"
)

// Store is the event persistence needed by the handler.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, f ListFilter) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	SetBannerKey(ctx context.Context, id uuid.UUID, key string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BannerStorage presigns banner object URLs. Nil when S3 is not configured.
type BannerStorage interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// CreateRequest is the body for POST /api/events.
type CreateRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Venue       string  `json:"venue"`
	StartsAt    string  `json:"starts_at" binding:"required"`
	EndsAt      *string `json:"ends_at"`
	Capacity    int     `json:"capacity"`
	PriceCents  int     `json:"price_cents"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"` // draft or published; defaults to published
}

// UpdateRequest is the body for PATCH /api/events/:id. Nil fields are left as-is.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Venue       *string `json:"venue"`
	StartsAt    *string `json:"starts_at"`
	EndsAt      *string `json:"ends_at"`
	Capacity    *int    `json:"capacity"`
	PriceCents  *int    `json:"price_cents"`
	Currency    *string `json:"currency"`
	Status      *string `json:"status"`
}

// BannerUploadRequest is the body for POST /api/events/:id/banner-upload-url.
type BannerUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	store   Store
	banners BannerStorage
	logger  *zap.Logger
}

// NewHandler creates an events handler. banners may be nil when S3 is disabled.
func NewHandler(store Store, banners BannerStorage, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, banners: banners, logger: logger}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// decorate fills BannerURL from the stored key when S3 is configured.
func (h *Handler) decorate(ctx context.Context, e *models.Event) {
	if h.banners == nil || e.BannerKey == "" {
		return
	}
	url, err := h.banners.PresignDownload(ctx, e.BannerKey)
	if err != nil {
		h.logger.Warn("presign banner failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		return
	}
	e.BannerURL = url
}

// Create handles POST /api/events (organizer only; the RequireOrganizer
// middleware answers 403 + needsUpgrade for regular role claims).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	startsAt, err := parseTime(req.StartsAt)
	if err != nil {
		response.BadRequest(c, "invalid starts_at")
		return
	}
	var endsAt *time.Time
	if req.EndsAt != nil {
		t, err := parseTime(*req.EndsAt)
		if err != nil {
			response.BadRequest(c, "invalid ends_at")
			return
		}
		endsAt = &t
	}
	status := req.Status
	switch status {
	case "":
		status = models.EventStatusPublished
	case models.EventStatusDraft, models.EventStatusPublished:
	default:
		response.BadRequest(c, "status must be draft or published")
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	if req.Capacity < 0 || req.PriceCents < 0 {
		response.BadRequest(c, "capacity and price_cents must not be negative")
		return
	}

	e := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Venue:       req.Venue,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Capacity:    req.Capacity,
		PriceCents:  req.PriceCents,
		Currency:    currency,
		Status:      status,
		OrganizerID: c.MustGet(auth.ContextUserID).(uuid.UUID),
	}
	if err := h.store.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// GetByID handles GET /api/events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	h.decorate(c.Request.Context(), e)
	response.OK(c, e)
}

// List handles GET /api/events. Published events only; filters: category, upcoming=1.
func (h *Handler) List(c *gin.Context) {
	f := ListFilter{
		Category: c.Query("category"),
		Upcoming: c.Query("upcoming") == "1",
	}
	list, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	for i := range list {
		h.decorate(c.Request.Context(), &list[i])
	}
	response.OK(c, list)
}

// ListMine handles GET /api/events/mine (organizer only). Includes drafts.
func (h *Handler) ListMine(c *gin.Context) {
	uid := c.MustGet(auth.ContextUserID).(uuid.UUID)
	list, err := h.store.List(c.Request.Context(), ListFilter{OrganizerID: &uid})
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	for i := range list {
		h.decorate(c.Request.Context(), &list[i])
	}
	response.OK(c, list)
}

// ownedEvent loads the event and checks the caller owns it (or is admin).
func (h *Handler) ownedEvent(c *gin.Context) (*models.Event, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, false
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
		} else {
			response.Internal(c, "failed to load event")
		}
		return nil, false
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	role := models.Role(c.MustGet(auth.ContextUserRole).(string))
	if e.OrganizerID != userID && role != models.RoleAdmin {
		response.Forbidden(c, "only the event organizer can do this")
		return nil, false
	}
	return e, true
}

// Update handles PATCH /api/events/:id (owner or admin).
func (h *Handler) Update(c *gin.Context) {
	e, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Category != nil {
		e.Category = *req.Category
	}
	if req.Venue != nil {
		e.Venue = *req.Venue
	}
	if req.StartsAt != nil {
		t, err := parseTime(*req.StartsAt)
		if err != nil {
			response.BadRequest(c, "invalid starts_at")
			return
		}
		e.StartsAt = t
	}
	if req.EndsAt != nil {
		t, err := parseTime(*req.EndsAt)
		if err != nil {
			response.BadRequest(c, "invalid ends_at")
			return
		}
		e.EndsAt = &t
	}
	if req.Capacity != nil {
		if *req.Capacity < 0 {
			response.BadRequest(c, "capacity must not be negative")
			return
		}
		e.Capacity = *req.Capacity
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			response.BadRequest(c, "price_cents must not be negative")
			return
		}
		e.PriceCents = *req.PriceCents
	}
	if req.Currency != nil {
		e.Currency = *req.Currency
	}
	if req.Status != nil {
		switch *req.Status {
		case models.EventStatusDraft, models.EventStatusPublished, models.EventStatusCancelled:
			e.Status = *req.Status
		default:
			response.BadRequest(c, "invalid status")
			return
		}
	}

	if err := h.store.Update(c.Request.Context(), e); err != nil {
		h.logger.Error("update event failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to update event")
		return
	}
	h.decorate(c.Request.Context(), e)
	response.OK(c, e)
}

// Delete handles DELETE /api/events/:id (owner or admin).
func (h *Handler) Delete(c *gin.Context) {
	e, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), e.ID); err != nil {
		h.logger.Error("delete event failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to delete event")
		return
	}
	response.NoContent(c)
}

// BannerUploadURL handles POST /api/events/:id/banner-upload-url (owner).
// Returns a pre-signed PUT URL the client uploads the banner to directly.
func (h *Handler) BannerUploadURL(c *gin.Context) {
	if h.banners == nil {
		response.ServiceUnavailable(c, "object storage not configured")
		return
	}
	e, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	var req BannerUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "filename is required")
		return
	}
	if !storage.ValidateBannerFileType(req.ContentType, req.Filename) {
		response.BadRequest(c, "banner must be a jpeg, png or webp image")
		return
	}

	key := storage.BannerKey(e.ID.String(), req.Filename)
	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(req.Filename)
	}
	uploadURL, err := h.banners.PresignUpload(c.Request.Context(), key, contentType)
	if err != nil {
		h.logger.Error("presign upload failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to create upload url")
		return
	}
	if err := h.store.SetBannerKey(c.Request.Context(), e.ID, key); err != nil {
		h.logger.Error("store banner key failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to save banner")
		return
	}
	response.OK(c, gin.H{"upload_url": uploadURL, "key": key})
}
