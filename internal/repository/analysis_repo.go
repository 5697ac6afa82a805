package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"newsletterai-backend/internal/models"
)

type AnalysisRepo struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepo(pool *pgxpool.Pool) *AnalysisRepo {
	return &AnalysisRepo{pool: pool}
}

func (r *AnalysisRepo) Create(ctx context.Context, a *models.ContentAnalysis) error {
	query := `
		INSERT INTO content_analyses (id, content_source_id, main_topic, sub_topics, key_takeaways, quotes,
			target_audience, pain_points, suggested_ctas, sentiment, difficulty, full_analysis)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	a.ID = uuid.New()

	return r.pool.QueryRow(ctx, query,
		a.ID, a.ContentSourceID, a.MainTopic, a.SubTopics, a.KeyTakeaways, a.Quotes,
		a.TargetAudience, a.PainPoints, a.SuggestedCTAs, a.Sentiment, a.Difficulty, a.FullAnalysis,
	).Scan(&a.CreatedAt)
}

// GetByID scopes through content_sources so a user can only read
// analyses of their own imports.
func (r *AnalysisRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ContentAnalysis, error) {
	a := &models.ContentAnalysis{}
	query := `SELECT a.id, a.content_source_id, a.main_topic, a.sub_topics, a.key_takeaways, a.quotes,
			a.target_audience, a.pain_points, a.suggested_ctas, a.sentiment, a.difficulty, a.full_analysis, a.created_at
		FROM content_analyses a
		JOIN content_sources c ON c.id = a.content_source_id
		WHERE a.id = $1 AND c.user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&a.ID, &a.ContentSourceID, &a.MainTopic, &a.SubTopics, &a.KeyTakeaways, &a.Quotes,
		&a.TargetAudience, &a.PainPoints, &a.SuggestedCTAs, &a.Sentiment, &a.Difficulty,
		&a.FullAnalysis, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AnalysisRepo) GetByContentSourceID(ctx context.Context, contentSourceID, userID uuid.UUID) (*models.ContentAnalysis, error) {
	a := &models.ContentAnalysis{}
	query := `SELECT a.id, a.content_source_id, a.main_topic, a.sub_topics, a.key_takeaways, a.quotes,
			a.target_audience, a.pain_points, a.suggested_ctas, a.sentiment, a.difficulty, a.full_analysis, a.created_at
		FROM content_analyses a
		JOIN content_sources c ON c.id = a.content_source_id
		WHERE a.content_source_id = $1 AND c.user_id = $2
		ORDER BY a.created_at DESC
		LIMIT 1`

	err := r.pool.QueryRow(ctx, query, contentSourceID, userID).Scan(
		&a.ID, &a.ContentSourceID, &a.MainTopic, &a.SubTopics, &a.KeyTakeaways, &a.Quotes,
		&a.TargetAudience, &a.PainPoints, &a.SuggestedCTAs, &a.Sentiment, &a.Difficulty,
		&a.FullAnalysis, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
