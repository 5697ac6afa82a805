package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ContentSource is one imported piece of raw material. Immutable after
// creation; analyses and newsletters reference it by id.
type ContentSource struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	Type            string          `json:"type"` // "youtube" | "podcast" | "blog" | "text"
	URL             *string         `json:"url"`
	Title           string          `json:"title"`
	Transcript      string          `json:"transcript"`
	Metadata        json.RawMessage `json:"metadata"`
	WordCount       int             `json:"wordCount"`
	DurationMinutes int             `json:"durationMinutes"`
	ProcessedAt     time.Time       `json:"processedAt"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ImportSource is the tagged union of the four acquisition kinds. Each arm
// carries only the fields its adapter needs; the Acquirer type-switches over
// it, so a new source kind has exactly one place to be handled.
type ImportSource interface {
	sourceType() string
}

type VideoSource struct {
	URL string
}

type AudioSource struct {
	// Either a remote URL or uploaded bytes, never both.
	URL      string
	FileName string
	Data     []byte
}

type ArticleSource struct {
	URL string
}

type TextSource struct {
	Text string
}

func (VideoSource) sourceType() string   { return "youtube" }
func (AudioSource) sourceType() string   { return "podcast" }
func (ArticleSource) sourceType() string { return "blog" }
func (TextSource) sourceType() string    { return "text" }

// SourceType exposes the wire name of the union arm.
func SourceType(s ImportSource) string { return s.sourceType() }

// AcquiredContent is the normalized output every adapter produces.
type AcquiredContent struct {
	Transcript      string
	Title           string
	Metadata        map[string]interface{}
	DurationMinutes int
}
