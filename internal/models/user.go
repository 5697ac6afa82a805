package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the account row: auth credentials plus plan state. The
// usage counter is only ever moved through UserRepo.ConsumeQuota /
// ReleaseQuota so that usage_count <= usage_limit holds under concurrent
// imports.
type UserProfile struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	FullName         string     `json:"fullName"`
	Company          *string    `json:"company"`
	PlanTier         string     `json:"planTier"` // "free" | "basic" | "pro" | "agency"
	StripeCustomerID *string    `json:"-"`
	UsageCount       int        `json:"usageCount"`
	UsageLimit       int        `json:"usageLimit"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	LastLoginAt      *time.Time `json:"lastLoginAt"`
}

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
