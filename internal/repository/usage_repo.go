package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"newsletterai-backend/internal/models"
)

type UsageRepo struct {
	pool *pgxpool.Pool
}

func NewUsageRepo(pool *pgxpool.Pool) *UsageRepo {
	return &UsageRepo{pool: pool}
}

func (r *UsageRepo) InsertEvent(ctx context.Context, userID uuid.UUID, eventType string, metadata map[string]interface{}) error {
	payload, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO usage_events (id, user_id, event_type, metadata)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), userID, eventType, payload)
	return err
}

func (r *UsageRepo) InsertTestEmail(ctx context.Context, te *models.TestEmail) error {
	te.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO test_emails (id, newsletter_id, user_id, recipient_email, subject_line)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING sent_at
	`, te.ID, te.NewsletterID, te.UserID, te.RecipientEmail, te.SubjectLine).Scan(&te.SentAt)
}

func (r *UsageRepo) CountTestEmailsSince(ctx context.Context, userID uuid.UUID, windowMinutes int) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM test_emails
		WHERE user_id = $1 AND sent_at >= NOW() - ($2 || ' minutes')::interval
	`, userID, windowMinutes).Scan(&count)
	return count, err
}

func (r *UsageRepo) CountEventsByType(ctx context.Context, userID uuid.UUID, eventType string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM usage_events WHERE user_id = $1 AND event_type = $2",
		userID, eventType,
	).Scan(&count)
	return count, err
}
