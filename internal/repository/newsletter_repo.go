package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"newsletterai-backend/internal/models"
)

type NewsletterRepo struct {
	pool *pgxpool.Pool
}

func NewNewsletterRepo(pool *pgxpool.Pool) *NewsletterRepo {
	return &NewsletterRepo{pool: pool}
}

func (r *NewsletterRepo) Create(ctx context.Context, n *models.Newsletter) error {
	subjectLines, err := json.Marshal(n.SubjectLines)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO newsletters (id, user_id, content_source_id, analysis_id, title, subject_lines,
			selected_subject_line, content_markdown, content_html, tone, length, structure,
			word_count, reading_time_minutes, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at`

	n.ID = uuid.New()
	if n.Status == "" {
		n.Status = "draft"
	}

	return r.pool.QueryRow(ctx, query,
		n.ID, n.UserID, n.ContentSourceID, n.AnalysisID, n.Title, subjectLines,
		n.SelectedSubjectLine, n.ContentMarkdown, n.ContentHTML, n.Tone, n.Length, n.Structure,
		n.WordCount, n.ReadingTimeMinutes, n.Status, n.Metadata,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
}

const newsletterColumns = `id, user_id, content_source_id, analysis_id, title, subject_lines,
	selected_subject_line, content_markdown, content_html, tone, length, structure,
	word_count, reading_time_minutes, status, metadata, created_at, updated_at`

func (r *NewsletterRepo) scanNewsletter(row interface{ Scan(...any) error }) (*models.Newsletter, error) {
	n := &models.Newsletter{}
	var subjectLines []byte

	err := row.Scan(
		&n.ID, &n.UserID, &n.ContentSourceID, &n.AnalysisID, &n.Title, &subjectLines,
		&n.SelectedSubjectLine, &n.ContentMarkdown, &n.ContentHTML, &n.Tone, &n.Length, &n.Structure,
		&n.WordCount, &n.ReadingTimeMinutes, &n.Status, &n.Metadata, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(subjectLines) > 0 {
		if err := json.Unmarshal(subjectLines, &n.SubjectLines); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (r *NewsletterRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Newsletter, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+newsletterColumns+" FROM newsletters WHERE id = $1 AND user_id = $2",
		id, userID,
	)
	return r.scanNewsletter(row)
}

func (r *NewsletterRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Newsletter, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+newsletterColumns+" FROM newsletters WHERE user_id = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3",
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	newsletters := make([]models.Newsletter, 0)
	for rows.Next() {
		n, scanErr := r.scanNewsletter(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		newsletters = append(newsletters, *n)
	}

	return newsletters, rows.Err()
}

// UpdateDraft applies editor autosave fields. Nil pointers leave the
// column untouched; contentHTML rides along with the markdown so the two
// never diverge.
func (r *NewsletterRepo) UpdateDraft(ctx context.Context, id, userID uuid.UUID, req *models.UpdateNewsletterRequest, contentHTML *string, wordCount, readingTime int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE newsletters
		SET content_markdown = COALESCE($1, content_markdown),
			content_html = COALESCE($2, content_html),
			selected_subject_line = COALESCE($3, selected_subject_line),
			title = COALESCE($4, title),
			word_count = CASE WHEN $1 IS NULL THEN word_count ELSE $5 END,
			reading_time_minutes = CASE WHEN $1 IS NULL THEN reading_time_minutes ELSE $6 END,
			updated_at = NOW()
		WHERE id = $7 AND user_id = $8
	`, req.ContentMarkdown, contentHTML, req.SelectedSubjectLine, req.Title, wordCount, readingTime, id, userID)
	return err
}

func (r *NewsletterRepo) UpdateSubjectLines(ctx context.Context, id, userID uuid.UUID, lines []models.SubjectLine) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		"UPDATE newsletters SET subject_lines = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3",
		payload, id, userID,
	)
	return err
}

func (r *NewsletterRepo) UpdateStatus(ctx context.Context, id, userID uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE newsletters SET status = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3",
		status, id, userID,
	)
	return err
}

func (r *NewsletterRepo) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM newsletters WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *NewsletterRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM newsletters WHERE user_id = $1", userID).Scan(&count)
	return count, err
}

func (r *NewsletterRepo) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM newsletters WHERE user_id = $1 AND created_at >= $2",
		userID, since,
	).Scan(&count)
	return count, err
}
