package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"newsletterai-backend/internal/services"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", services.NewValidationError("bad input", map[string]string{"email": "required"}), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", services.NewConflictError("email already registered"), http.StatusConflict, "CONFLICT"},
		{"not found", services.NewNotFoundError("newsletter"), http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", services.NewUnauthorizedError("invalid credentials"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", services.NewForbiddenError("account disabled"), http.StatusForbidden, "FORBIDDEN"},
		{"quota", services.NewQuotaExceededError(2, 2), http.StatusForbidden, "QUOTA_EXCEEDED"},
		{"rate limited", services.NewRateLimitError("slow down"), http.StatusTooManyRequests, "RATE_LIMITED"},
		{"extraction", services.NewExtractionError("youtube", "no captions"), http.StatusUnprocessableEntity, "EXTRACTION_FAILED"},
		{"vendor", services.NewVendorError("gemini", errors.New("timeout")), http.StatusBadGateway, "VENDOR_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", "req-123")
			rec := httptest.NewRecorder()

			handleServiceError(rec, req, tt.err)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			apiErr := decodeError(t, rec)
			if apiErr.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, apiErr.Code)
			}
			if apiErr.RequestID != "req-123" {
				t.Errorf("expected the request id to be echoed, got %q", apiErr.RequestID)
			}
		})
	}
}

func TestVendorErrorHidesUpstreamDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handleServiceError(rec, req, services.NewVendorError("gemini", errors.New("api key sk-secret leaked")))

	apiErr := decodeError(t, rec)
	if apiErr.Message != "An upstream provider failed. Please try again." {
		t.Errorf("upstream detail must not leak, got %q", apiErr.Message)
	}
}
