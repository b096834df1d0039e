package emails

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gowra/backend/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create records a confirmation email attempt.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) error {
	const q = `INSERT INTO email_logs (id, event_id, registration_id, recipient_email, subject, status, sent_at, error_message)
		VALUES (gen_random_uuid(), $1, $2, $3, NULLIF($4,''), $5, $6, NULLIF($7,''))
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, el.EventID, el.RegistrationID, el.RecipientEmail,
		el.Subject, el.Status, el.SentAt, el.ErrorMessage).Scan(&el.ID, &el.CreatedAt)
}
