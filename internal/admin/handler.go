package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gowra/backend/internal/models"
	"github.com/gowra/backend/pkg/response"
)

// Handler handles admin dashboard endpoints. Routes are gated by
// RequireRole(admin) at registration time.
type Handler struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(pool *pgxpool.Pool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pool: pool, logger: logger}
}

// StatsResponse is the JSON shape for GET /api/admin/stats.
type StatsResponse struct {
	TotalUsers         int   `json:"total_users"`
	TotalOrganizers    int   `json:"total_organizers"`
	PublishedEvents    int   `json:"published_events"`
	TotalRegistrations int   `json:"total_registrations"`
	RevenueCents       int64 `json:"revenue_cents"`
	SignupsLast7Days   int   `json:"signups_last_7_days"`
}

// Stats handles GET /api/admin/stats.
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	var s StatsResponse

	const q = `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM users WHERE role = 'organizer'),
		(SELECT COUNT(*) FROM events WHERE status = 'published'),
		(SELECT COUNT(*) FROM registrations WHERE status = 'confirmed'),
		(SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE status = 'completed'),
		(SELECT COUNT(*) FROM users WHERE created_at > NOW() - INTERVAL '7 days')`
	err := h.pool.QueryRow(ctx, q).Scan(&s.TotalUsers, &s.TotalOrganizers, &s.PublishedEvents,
		&s.TotalRegistrations, &s.RevenueCents, &s.SignupsLast7Days)
	if err != nil {
		h.logger.Error("load admin stats failed", zap.Error(err))
		response.Internal(c, "failed to load stats")
		return
	}
	response.OK(c, s)
}

// ListUsers handles GET /api/admin/users.
func (h *Handler) ListUsers(c *gin.Context) {
	const q = `SELECT id, email, name, role,
		COALESCE(organization_name,''), COALESCE(organization_type,''), COALESCE(organization_description,''), COALESCE(organization_website,''),
		COALESCE(event_types,'{}'), created_at
		FROM users ORDER BY created_at DESC`
	rows, err := h.pool.Query(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	defer rows.Close()

	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role,
			&u.OrgName, &u.OrgType, &u.OrgDesc, &u.OrgWebsite, &u.EventTypes, &u.CreatedAt); err != nil {
			h.logger.Error("scan user failed", zap.Error(err))
			response.Internal(c, "failed to list users")
			return
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}
