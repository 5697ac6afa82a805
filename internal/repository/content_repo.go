package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"newsletterai-backend/internal/models"
)

type ContentRepo struct {
	pool *pgxpool.Pool
}

func NewContentRepo(pool *pgxpool.Pool) *ContentRepo {
	return &ContentRepo{pool: pool}
}

func (r *ContentRepo) Create(ctx context.Context, content *models.ContentSource) error {
	query := `
		INSERT INTO content_sources (id, user_id, type, url, title, transcript, metadata, word_count, duration_minutes, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING processed_at, created_at`

	content.ID = uuid.New()

	return r.pool.QueryRow(ctx, query,
		content.ID, content.UserID, content.Type, content.URL, content.Title,
		content.Transcript, content.Metadata, content.WordCount, content.DurationMinutes,
	).Scan(&content.ProcessedAt, &content.CreatedAt)
}

func (r *ContentRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ContentSource, error) {
	content := &models.ContentSource{}
	query := `SELECT id, user_id, type, url, title, transcript, metadata, word_count, duration_minutes, processed_at, created_at
		FROM content_sources WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&content.ID, &content.UserID, &content.Type, &content.URL, &content.Title,
		&content.Transcript, &content.Metadata, &content.WordCount, &content.DurationMinutes,
		&content.ProcessedAt, &content.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (r *ContentRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ContentSource, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, type, url, title, transcript, metadata, word_count, duration_minutes, processed_at, created_at
		FROM content_sources
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := make([]models.ContentSource, 0)
	for rows.Next() {
		var c models.ContentSource
		if scanErr := rows.Scan(
			&c.ID, &c.UserID, &c.Type, &c.URL, &c.Title,
			&c.Transcript, &c.Metadata, &c.WordCount, &c.DurationMinutes,
			&c.ProcessedAt, &c.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		sources = append(sources, c)
	}

	return sources, rows.Err()
}

func (r *ContentRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM content_sources WHERE user_id = $1", userID).Scan(&count)
	return count, err
}
