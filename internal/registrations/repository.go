package registrations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gowra/backend/internal/models"
)

var (
	// ErrAlreadyRegistered is returned when the user already holds a ticket.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	// ErrNotFound is returned when no matching registration exists.
	ErrNotFound = errors.New("registration not found")
)

const registrationColumns = `id, event_id, user_id, ticket_code, status, amount_cents, cancelled_at, created_at, updated_at`

// Repository handles ticket registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.TicketCode, &reg.Status,
		&reg.AmountCents, &reg.CancelledAt, &reg.CreatedAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Create inserts a registration. Unique per (event, user).
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (id, event_id, user_id, ticket_code, status, amount_cents)
		VALUES (gen_random_uuid(), $1, $2, $3, 'confirmed', $4)
		RETURNING id, status, cancelled_at, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, reg.EventID, reg.UserID, reg.TicketCode, reg.AmountCents).
		Scan(&reg.ID, &reg.Status, &reg.CancelledAt, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyRegistered
		}
		return err
	}
	return nil
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	return scanRegistration(r.pool.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
}

// ListByUser returns a user's registrations, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error) {
	return r.list(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListByEvent returns all registrations for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	return r.list(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
}

func (r *Repository) list(ctx context.Context, q string, arg interface{}) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.TicketCode, &reg.Status,
			&reg.AmountCents, &reg.CancelledAt, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// CountConfirmedByEvent returns the number of confirmed tickets for capacity checks.
func (r *Repository) CountConfirmedByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = 'confirmed'`, eventID).Scan(&n)
	return n, err
}

// Cancel marks a confirmed registration cancelled. Returns false when it was
// not confirmed (already cancelled or missing).
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registrations SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'confirmed'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
