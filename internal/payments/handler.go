package payments

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gowra/backend/internal/auth"
	"github.com/gowra/backend/internal/models"
	"github.com/gowra/backend/pkg/response"
)

// Store is the payment persistence needed by the handler.
type Store interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
}

// Handler handles payment history HTTP endpoints.
type Handler struct {
	store Store
}

// NewHandler creates a payments handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// ListMine handles GET /api/payments/mine.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	list, err := h.store.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list payments")
		return
	}
	response.OK(c, list)
}
