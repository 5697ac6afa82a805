package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UsageEvent is an append-only audit record of a billable action.
type UsageEvent struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	EventType string          `json:"eventType"` // "content_imported" | "newsletter_generated"
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TestEmail is an append-only log row for one test send.
type TestEmail struct {
	ID             uuid.UUID `json:"id"`
	NewsletterID   uuid.UUID `json:"newsletterId"`
	UserID         uuid.UUID `json:"userId"`
	RecipientEmail string    `json:"recipientEmail"`
	SubjectLine    *string   `json:"subjectLine"`
	SentAt         time.Time `json:"sentAt"`
}

// API error envelope shared by every route.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
