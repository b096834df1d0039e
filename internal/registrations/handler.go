package registrations

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gowra/backend/internal/auth"
	"github.com/gowra/backend/internal/models"
	"github.com/gowra/backend/pkg/queue"
	"github.com/gowra/backend/pkg/response"
)

// Store is the registration persistence needed by the handler.
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error)
	CountConfirmedByEvent(ctx context.Context, eventID uuid.UUID) (int, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
}

// EventStore is the event lookup needed by the handler.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// PaymentStore records payment bookkeeping for paid events.
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	MarkRefunded(ctx context.Context, registrationID uuid.UUID) error
}

// Enqueuer pushes confirmation email jobs for the background worker.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Handler handles ticket registration HTTP endpoints.
type Handler struct {
	store    Store
	events   EventStore
	payments PaymentStore
	queue    Enqueuer
	logger   *zap.Logger
}

// NewHandler creates a registrations handler. queue may be nil (emails skipped).
func NewHandler(store Store, events EventStore, payments PaymentStore, q Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, events: events, payments: payments, queue: q, logger: logger}
}

// ticketCode generates an opaque ticket code, e.g. "GWR-K7Q2M3XZ4A".
func ticketCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "GWR-" + base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// Register handles POST /api/events/:id/register (bearer token required).
func (h *Handler) Register(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ctx := c.Request.Context()
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	email := c.MustGet(auth.ContextUserEmail).(string)

	event, err := h.events.GetByID(ctx, eventID)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	if event.Status != models.EventStatusPublished {
		response.BadRequest(c, "event is not open for registration")
		return
	}
	if time.Now().After(event.StartsAt) {
		response.BadRequest(c, "event has already started")
		return
	}
	if event.Capacity > 0 {
		confirmed, err := h.store.CountConfirmedByEvent(ctx, eventID)
		if err != nil {
			response.Internal(c, "failed to check capacity")
			return
		}
		if confirmed >= event.Capacity {
			response.Conflict(c, "event is sold out")
			return
		}
	}

	code, err := ticketCode()
	if err != nil {
		response.Internal(c, "failed to generate ticket")
		return
	}
	reg := &models.Registration{
		EventID:     eventID,
		UserID:      userID,
		TicketCode:  code,
		AmountCents: event.PriceCents,
	}
	if err := h.store.Create(ctx, reg); err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			response.Conflict(c, "already registered for this event")
			return
		}
		h.logger.Error("create registration failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to register")
		return
	}

	if !event.IsFree() && h.payments != nil {
		p := &models.Payment{
			RegistrationID: reg.ID,
			UserID:         userID,
			EventID:        eventID,
			Provider:       "manual",
			AmountCents:    event.PriceCents,
			Currency:       event.Currency,
			Status:         models.PaymentStatusCompleted,
		}
		if err := h.payments.Create(ctx, p); err != nil {
			h.logger.Error("record payment failed", zap.Error(err), zap.String("registration_id", reg.ID.String()))
		}
	}

	if h.queue != nil {
		payload := queue.EmailPayload{
			EventID:        eventID,
			RegistrationID: reg.ID,
			RecipientEmail: email,
			Subject:        "You're registered: " + event.Title,
			BodyText: fmt.Sprintf("Your ticket for %s is confirmed.\nTicket code: %s\nStarts: %s",
				event.Title, reg.TicketCode, event.StartsAt.Format(time.RFC1123)),
		}
		if err := h.queue.EnqueueEmail(ctx, payload); err != nil {
			h.logger.Warn("enqueue confirmation email failed", zap.Error(err), zap.String("registration_id", reg.ID.String()))
		}
	}

	response.Created(c, reg)
}

// ListMine handles GET /api/registrations/mine.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	list, err := h.store.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// ListByEvent handles GET /api/events/:id/registrations (event owner or admin).
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ctx := c.Request.Context()
	event, err := h.events.GetByID(ctx, eventID)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	role := models.Role(c.MustGet(auth.ContextUserRole).(string))
	if event.OrganizerID != userID && role != models.RoleAdmin {
		response.Forbidden(c, "only the event organizer can list registrations")
		return
	}
	list, err := h.store.ListByEvent(ctx, eventID)
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// Cancel handles DELETE /api/registrations/:id (ticket holder only). Cancelling
// a paid ticket records a refund bookkeeping row.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	ctx := c.Request.Context()
	reg, err := h.store.GetByID(ctx, id)
	if err != nil {
		response.NotFound(c, "registration not found")
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	if reg.UserID != userID {
		response.Forbidden(c, "not your registration")
		return
	}

	cancelled, err := h.store.Cancel(ctx, id)
	if err != nil {
		h.logger.Error("cancel registration failed", zap.Error(err), zap.String("registration_id", id.String()))
		response.Internal(c, "failed to cancel registration")
		return
	}
	if cancelled && reg.AmountCents > 0 && h.payments != nil {
		if err := h.payments.MarkRefunded(ctx, reg.ID); err != nil {
			h.logger.Error("record refund failed", zap.Error(err), zap.String("registration_id", reg.ID.String()))
		}
	}
	response.NoContent(c)
}
