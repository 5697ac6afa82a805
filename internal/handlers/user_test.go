package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type stubCounter struct{ count int }

func (s *stubCounter) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.count, nil
}

func TestStatsFloorsRemainingAtZero(t *testing.T) {
	// A downgrade can leave usage_count above the new limit.
	user := freeUser(5, 2)
	h := NewUserHandler(&stubQuotaRepo{user: user}, &stubCounter{count: 7}, &stubCounter{count: 4})

	rec := httptest.NewRecorder()
	h.Stats(rec, authedRequest(http.MethodGet, "/api/dashboard/stats", nil, user.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["usageRemaining"].(float64) != 0 {
		t.Errorf("expected usageRemaining 0, got %v", resp["usageRemaining"])
	}
	if resp["newsletterCount"].(float64) != 7 || resp["contentCount"].(float64) != 4 {
		t.Errorf("unexpected counts: %v", resp)
	}
}

func TestGetMeOmitsSensitiveFields(t *testing.T) {
	user := freeUser(0, 2)
	hash := "bcrypt-hash"
	cus := "cus_123"
	user.PasswordHash = hash
	user.StripeCustomerID = &cus

	h := NewUserHandler(&stubQuotaRepo{user: user}, &stubCounter{}, &stubCounter{})

	rec := httptest.NewRecorder()
	h.GetMe(rec, authedRequest(http.MethodGet, "/api/user/me", nil, user.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, secret := range []string{hash, cus} {
		if strings.Contains(body, secret) {
			t.Errorf("response must not expose %q: %s", secret, body)
		}
	}
}
