package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gowra/backend/internal/models"
)

// Repository handles payment history persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a payments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a payment bookkeeping row.
func (r *Repository) Create(ctx context.Context, p *models.Payment) error {
	const q = `INSERT INTO payments (id, registration_id, user_id, event_id, provider, amount_cents, currency, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, p.RegistrationID, p.UserID, p.EventID, p.Provider, p.AmountCents, p.Currency, p.Status).
		Scan(&p.ID, &p.CreatedAt)
}

// MarkRefunded flips the completed payment for a registration to refunded.
func (r *Repository) MarkRefunded(ctx context.Context, registrationID uuid.UUID) error {
	const q = `UPDATE payments SET status = 'refunded', refunded_at = NOW()
		WHERE registration_id = $1 AND status = 'completed'`
	_, err := r.pool.Exec(ctx, q, registrationID)
	return err
}

// ListByUser returns a user's payment history, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	const q = `SELECT id, registration_id, user_id, event_id, provider, amount_cents, currency, status, refunded_at, created_at
		FROM payments WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.RegistrationID, &p.UserID, &p.EventID, &p.Provider,
			&p.AmountCents, &p.Currency, &p.Status, &p.RefundedAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
