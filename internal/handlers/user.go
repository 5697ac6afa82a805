package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"newsletterai-backend/internal/middleware"
	"newsletterai-backend/internal/models"
)

type dashboardNewsletterRepo interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type dashboardContentRepo interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type profileRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
}

type UserHandler struct {
	userRepo       profileRepo
	newsletterRepo dashboardNewsletterRepo
	contentRepo    dashboardContentRepo
}

func NewUserHandler(userRepo profileRepo, newsletterRepo dashboardNewsletterRepo, contentRepo dashboardContentRepo) *UserHandler {
	return &UserHandler{
		userRepo:       userRepo,
		newsletterRepo: newsletterRepo,
		contentRepo:    contentRepo,
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Stats summarizes the account for the dashboard header.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	newsletterCount, err := h.newsletterRepo.CountByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	contentCount, err := h.contentRepo.CountByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	remaining := user.UsageLimit - user.UsageCount
	if remaining < 0 {
		remaining = 0
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"planTier":        user.PlanTier,
		"usageCount":      user.UsageCount,
		"usageLimit":      user.UsageLimit,
		"usageRemaining":  remaining,
		"newsletterCount": newsletterCount,
		"contentCount":    contentCount,
	})
}
