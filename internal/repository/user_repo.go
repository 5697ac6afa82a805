package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"newsletterai-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.UserProfile) error {
	query := `
		INSERT INTO user_profiles (id, email, password_hash, full_name, company, plan_tier, usage_count, usage_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	user.ID = uuid.New()
	user.PlanTier = "free"
	user.UsageCount = 0
	user.UsageLimit = 2
	user.IsActive = true

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.Company,
		user.PlanTier, user.UsageCount, user.UsageLimit,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	user := &models.UserProfile{}
	query := `SELECT id, email, password_hash, full_name, company, plan_tier, stripe_customer_id,
			usage_count, usage_limit, is_active, created_at, updated_at, last_login_at
		FROM user_profiles WHERE email = $1`

	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Company,
		&user.PlanTier, &user.StripeCustomerID, &user.UsageCount, &user.UsageLimit,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	user := &models.UserProfile{}
	query := `SELECT id, email, password_hash, full_name, company, plan_tier, stripe_customer_id,
			usage_count, usage_limit, is_active, created_at, updated_at, last_login_at
		FROM user_profiles WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Company,
		&user.PlanTier, &user.StripeCustomerID, &user.UsageCount, &user.UsageLimit,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ConsumeQuota atomically claims one usage unit. The WHERE clause keeps
// concurrent requests from ever pushing usage_count past usage_limit.
// Returns false when the limit is already spent.
func (r *UserRepo) ConsumeQuota(ctx context.Context, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_profiles
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1 AND usage_count < usage_limit
	`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseQuota returns a unit claimed by ConsumeQuota when the work that
// consumed it failed before anything was persisted.
func (r *UserRepo) ReleaseQuota(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_profiles
		SET usage_count = GREATEST(usage_count - 1, 0), updated_at = NOW()
		WHERE id = $1
	`, userID)
	return err
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE user_profiles SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

func (r *UserRepo) UpdateProfile(ctx context.Context, user *models.UserProfile) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE user_profiles SET full_name = $1, company = $2, updated_at = NOW() WHERE id = $3",
		user.FullName, user.Company, user.ID,
	)
	return err
}

func (r *UserRepo) SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE user_profiles SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2",
		customerID, userID,
	)
	return err
}

// UpdatePlan moves a user onto a plan and resets the limit; usage_count
// is left alone so a mid-cycle upgrade keeps the month's spend.
func (r *UserRepo) UpdatePlan(ctx context.Context, userID uuid.UUID, planTier string, usageLimit int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_profiles
		SET plan_tier = $1, usage_limit = $2, updated_at = NOW()
		WHERE id = $3
	`, planTier, usageLimit, userID)
	return err
}

func (r *UserRepo) UpdatePlanByStripeCustomer(ctx context.Context, customerID, planTier string, usageLimit int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_profiles
		SET plan_tier = $1, usage_limit = $2, updated_at = NOW()
		WHERE stripe_customer_id = $3
	`, planTier, usageLimit, customerID)
	return err
}
