package events

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gowra/backend/internal/models"
)

// ErrNotFound is returned when no matching event exists.
var ErrNotFound = errors.New("event not found")

const eventColumns = `id, title, description, category, venue, starts_at, ends_at,
	capacity, price_cents, currency, COALESCE(banner_key,''), status, organizer_id, created_at, updated_at`

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Category, &e.Venue, &e.StartsAt, &e.EndsAt,
		&e.Capacity, &e.PriceCents, &e.Currency, &e.BannerKey, &e.Status, &e.OrganizerID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, title, description, category, venue, starts_at, ends_at, capacity, price_cents, currency, status, organizer_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.Category, e.Venue, e.StartsAt, e.EndsAt,
		e.Capacity, e.PriceCents, e.Currency, e.Status, e.OrganizerID).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// ListFilter narrows List results.
type ListFilter struct {
	Category    string
	Upcoming    bool
	OrganizerID *uuid.UUID // nil = all organizers; set also includes drafts
}

// List returns published events (plus drafts when filtering by organizer),
// soonest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	var args []interface{}
	if f.OrganizerID != nil {
		args = append(args, *f.OrganizerID)
		q += ` AND organizer_id = $1`
	} else {
		q += ` AND status = 'published'`
	}
	if f.Category != "" {
		args = append(args, f.Category)
		q += ` AND category = $` + strconv.Itoa(len(args))
	}
	if f.Upcoming {
		q += ` AND starts_at > NOW()`
	}
	q += ` ORDER BY starts_at ASC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Category, &e.Venue, &e.StartsAt, &e.EndsAt,
			&e.Capacity, &e.PriceCents, &e.Currency, &e.BannerKey, &e.Status, &e.OrganizerID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update persists mutable event fields.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $1, description = $2, category = $3, venue = $4,
		starts_at = $5, ends_at = $6, capacity = $7, price_cents = $8, currency = $9, status = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.Category, e.Venue, e.StartsAt, e.EndsAt,
		e.Capacity, e.PriceCents, e.Currency, e.Status, e.ID).Scan(&e.UpdatedAt)
}

// SetBannerKey stores the S3 object key for the event banner.
func (r *Repository) SetBannerKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := r.pool.Exec(ctx, `UPDATE events SET banner_key = $1, updated_at = NOW() WHERE id = $2`, key, id)
	return err
}

// Delete removes an event by ID. Registrations cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}
