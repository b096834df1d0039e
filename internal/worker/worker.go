package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gowra/backend/internal/auth"
	"github.com/gowra/backend/internal/emails"
	"github.com/gowra/backend/internal/models"
	"github.com/gowra/backend/pkg/mailer"
	"github.com/gowra/backend/pkg/queue"
)

// EmailProcessor processes confirmation email jobs: send via the mailer and
// record the attempt in email_logs.
type EmailProcessor struct {
	emailRepo *emails.Repository
	mailer    mailer.Mailer
	queue     *queue.Queue
	logger    *zap.Logger
}

// NewEmailProcessor creates a confirmation email processor.
func NewEmailProcessor(emailRepo *emails.Repository, m mailer.Mailer, q *queue.Queue, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{emailRepo: emailRepo, mailer: m, queue: q, logger: logger}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	sendErr := p.mailer.Send(payload.RecipientEmail, payload.Subject, payload.BodyText)

	log := &models.EmailLog{
		EventID:        payload.EventID,
		RegistrationID: payload.RegistrationID,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
	}
	if sendErr != nil {
		log.Status = models.EmailStatusFailed
		log.ErrorMessage = sendErr.Error()
	} else {
		now := time.Now()
		log.Status = models.EmailStatusSent
		log.SentAt = &now
	}
	if err := p.emailRepo.Create(ctx, log); err != nil {
		p.logger.Error("record email log failed", zap.Error(err), zap.String("registration_id", payload.RegistrationID.String()))
	}
	if sendErr != nil {
		return fmt.Errorf("send email: %w", sendErr)
	}

	p.logger.Info("confirmation email sent",
		zap.String("registration_id", payload.RegistrationID.String()),
		zap.String("recipient", payload.RecipientEmail))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.Error(err), zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
			time.Sleep(queue.RetryBackoff)
			if err := p.queue.Retry(ctx, job); err != nil {
				p.logger.Error("retry failed", zap.Error(err), zap.String("job_id", job.ID))
			}
		}
	}
}

// TokenPruner periodically deletes expired refresh token rows. Expired tokens
// are already rejected on lookup; this only keeps the table from growing.
type TokenPruner struct {
	repo     *auth.Repository
	interval time.Duration
	logger   *zap.Logger
}

// NewTokenPruner creates a refresh token pruner.
func NewTokenPruner(repo *auth.Repository, interval time.Duration, logger *zap.Logger) *TokenPruner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &TokenPruner{repo: repo, interval: interval, logger: logger}
}

// Run prunes on a ticker until ctx is done.
func (t *TokenPruner) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := t.repo.DeleteExpiredRefreshTokens(ctx)
			if err != nil {
				t.logger.Warn("prune refresh tokens failed", zap.Error(err))
				continue
			}
			if n > 0 {
				t.logger.Info("pruned expired refresh tokens", zap.Int64("count", n))
			}
		}
	}
}
