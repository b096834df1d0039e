package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gowra/backend/internal/models"
)

var (
	// ErrDuplicateEmail is returned by Create when the email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound is returned when no matching user or token row exists.
	ErrNotFound = errors.New("not found")
)

const userColumns = `id, email, password_hash, name, role,
	COALESCE(organization_name,''), COALESCE(organization_type,''), COALESCE(organization_description,''), COALESCE(organization_website,''),
	COALESCE(event_types,'{}'), created_at, updated_at`

// Repository handles user and refresh token persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Role,
		&u.OrgName, &u.OrgType, &u.OrgDesc, &u.OrgWebsite, &u.EventTypes, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// Create inserts a new user with role "regular".
func (r *Repository) Create(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	const q = `INSERT INTO users (id, email, password_hash, name, role)
		VALUES (gen_random_uuid(), $1, $2, $3, 'regular')
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, name))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

// OrganizerProfile holds the upgrade payload persisted alongside the role.
type OrganizerProfile struct {
	OrgName    string
	OrgType    string
	OrgDesc    string
	OrgWebsite string
	EventTypes []string
}

// UpgradeToOrganizer sets role = organizer and stores the organizer profile.
// The role transition only fires for regular users; re-upgrading an organizer
// (or admin) updates profile fields and leaves the role untouched.
func (r *Repository) UpgradeToOrganizer(ctx context.Context, id uuid.UUID, p OrganizerProfile) (*models.User, error) {
	const q = `UPDATE users SET
		role = CASE WHEN role = 'regular' THEN 'organizer' ELSE role END,
		organization_name = $2,
		organization_type = NULLIF($3,''),
		organization_description = NULLIF($4,''),
		organization_website = NULLIF($5,''),
		event_types = $6,
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	eventTypes := p.EventTypes
	if eventTypes == nil {
		eventTypes = []string{}
	}
	return scanUser(r.pool.QueryRow(ctx, q, id, p.OrgName, p.OrgType, p.OrgDesc, p.OrgWebsite, eventTypes))
}

// CreateRefreshToken inserts a refresh token hash row. Existing rows for the
// user are left alone so multiple devices stay logged in.
func (r *Repository) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		VALUES (gen_random_uuid(), $1, $2, $3)`
	_, err := r.pool.Exec(ctx, q, userID, tokenHash, expiresAt)
	return err
}

// GetRefreshToken returns the unexpired refresh token row for a hash.
func (r *Repository) GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	const q = `SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens WHERE token_hash = $1 AND expires_at > NOW()`
	var t models.RefreshToken
	err := r.pool.QueryRow(ctx, q, tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteRefreshToken revokes one refresh token by hash. Other tokens for the
// same user are unaffected.
func (r *Repository) DeleteRefreshToken(ctx context.Context, tokenHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteExpiredRefreshTokens prunes rows past their expiry. Run periodically by
// the background worker.
func (r *Repository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
