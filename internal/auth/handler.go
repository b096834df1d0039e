package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gowra/backend/internal/models"
	"github.com/gowra/backend/pkg/response"
	"github.com/gowra/backend/pkg/utils"
)

// UserStore is the user persistence needed by the auth handler.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, name string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpgradeToOrganizer(ctx context.Context, id uuid.UUID, p OrganizerProfile) (*models.User, error)
}

// TokenStore is the refresh token persistence needed by the auth handler.
type TokenStore interface {
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, tokenHash string) (bool, error)
}

// RegisterRequest is the body for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpgradeRequest is the body for POST /api/auth/upgrade-to-organizer.
type UpgradeRequest struct {
	OrganizationName        string   `json:"organization_name" binding:"required"`
	OrganizationType        string   `json:"organization_type"`
	EventTypes              []string `json:"event_types"`
	OrganizationDescription string   `json:"organization_description"`
	OrganizationWebsite     string   `json:"organization_website"`
}

// RefreshRequest is the body for POST /api/auth/refresh and /api/auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is the auth response with the access token, and where a new
// session is established, the one-time refresh token plaintext.
type TokenResponse struct {
	Token        string            `json:"token"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	User         models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users      UserStore
	tokens     TokenStore
	jwt        *JWTService
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewHandler creates an auth handler. refreshTTL bounds refresh token validity.
func NewHandler(users UserStore, tokens TokenStore, jwt *JWTService, refreshTTL time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, tokens: tokens, jwt: jwt, refreshTTL: refreshTTL, logger: logger}
}

// issueTokens mints an access token embedding the user's current role and a
// fresh refresh token whose hash is persisted. Prior refresh tokens stay valid.
func (h *Handler) issueTokens(ctx context.Context, user *models.User) (access, refresh string, err error) {
	access, err = h.jwt.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	plaintext, hash, err := NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	if err := h.tokens.CreateRefreshToken(ctx, user.ID, hash, time.Now().Add(h.refreshTTL)); err != nil {
		return "", "", err
	}
	return access, plaintext, nil
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.users.Create(c.Request.Context(), req.Email, hash, req.Name)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			response.Conflict(c, "email already registered")
			return
		}
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	access, refresh, err := h.issueTokens(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("issue tokens failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		response.Internal(c, "failed to generate tokens")
		return
	}
	response.Created(c, TokenResponse{Token: access, RefreshToken: refresh, User: user.ToPublic()})
}

// Login handles POST /api/auth/login. The token role reflects the persisted
// role at login time.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	access, refresh, err := h.issueTokens(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("issue tokens failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		response.Internal(c, "failed to generate tokens")
		return
	}
	response.OK(c, TokenResponse{Token: access, RefreshToken: refresh, User: user.ToPublic()})
}

// Me handles GET /api/auth/me. Always a fresh database read, unlike the role
// claim embedded in the bearer token.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(ContextUserID).(uuid.UUID)
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Unauthorized(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// UpgradeToOrganizer handles POST /api/auth/upgrade-to-organizer. Persists the
// organizer role and profile, then returns a freshly minted token carrying the
// organizer claim. The caller's old token is not revoked; it keeps its stale
// regular claim until it expires.
func (h *Handler) UpgradeToOrganizer(c *gin.Context) {
	var req UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "organization_name is required")
		return
	}

	userID := c.MustGet(ContextUserID).(uuid.UUID)
	user, err := h.users.UpgradeToOrganizer(c.Request.Context(), userID, OrganizerProfile{
		OrgName:    req.OrganizationName,
		OrgType:    req.OrganizationType,
		OrgDesc:    req.OrganizationDescription,
		OrgWebsite: req.OrganizationWebsite,
		EventTypes: req.EventTypes,
	})
	if err != nil {
		h.logger.Error("upgrade failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to upgrade account")
		return
	}

	access, refresh, err := h.issueTokens(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("issue tokens failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		response.Internal(c, "failed to generate tokens")
		return
	}
	response.OK(c, TokenResponse{Token: access, RefreshToken: refresh, User: user.ToPublic()})
}

// Refresh handles POST /api/auth/refresh. This is the stateful path: the user
// row is re-read so the new access token always carries the current persisted
// role, healing any stale claim without a password. The refresh token is
// rotated; the presented plaintext is dead after this call.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "refresh_token is required")
		return
	}

	ctx := c.Request.Context()
	row, err := h.tokens.GetRefreshToken(ctx, HashRefreshToken(req.RefreshToken))
	if err != nil {
		response.Unauthorized(c, "invalid or expired refresh token")
		return
	}
	user, err := h.users.GetByID(ctx, row.UserID)
	if err != nil {
		response.Unauthorized(c, "invalid or expired refresh token")
		return
	}

	if _, err := h.tokens.DeleteRefreshToken(ctx, row.TokenHash); err != nil {
		h.logger.Error("rotate refresh token failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		response.Internal(c, "failed to refresh session")
		return
	}
	access, refresh, err := h.issueTokens(ctx, user)
	if err != nil {
		h.logger.Error("issue tokens failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		response.Internal(c, "failed to refresh session")
		return
	}
	response.OK(c, TokenResponse{Token: access, RefreshToken: refresh, User: user.ToPublic()})
}

// Logout handles POST /api/auth/logout. Revokes the presented refresh token
// only; sessions on other devices keep their own tokens.
func (h *Handler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "refresh_token is required")
		return
	}
	deleted, err := h.tokens.DeleteRefreshToken(c.Request.Context(), HashRefreshToken(req.RefreshToken))
	if err != nil {
		response.Internal(c, "failed to log out")
		return
	}
	if !deleted {
		response.Unauthorized(c, "invalid refresh token")
		return
	}
	c.JSON(http.StatusOK, response.Body{Success: true})
}
