package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Newsletter is the generated artifact. Mutated by editor autosave and
// subject-line refreshes; the draft/ready/archived status is advisory.
type Newsletter struct {
	ID                  uuid.UUID       `json:"id"`
	UserID              uuid.UUID       `json:"userId"`
	ContentSourceID     uuid.UUID       `json:"contentSourceId"`
	AnalysisID          uuid.UUID       `json:"analysisId"`
	Title               string          `json:"title"`
	SubjectLines        []SubjectLine   `json:"subjectLines"`
	SelectedSubjectLine *string         `json:"selectedSubjectLine"`
	ContentMarkdown     string          `json:"contentMarkdown"`
	ContentHTML         string          `json:"contentHtml"`
	Tone                string          `json:"tone"`
	Length              string          `json:"length"`
	Structure           string          `json:"structure"`
	WordCount           int             `json:"wordCount"`
	ReadingTimeMinutes  int             `json:"readingTimeMinutes"`
	Status              string          `json:"status"` // "draft" | "ready" | "archived"
	Metadata            json.RawMessage `json:"metadata"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// SubjectLine is one candidate email subject with predicted performance
// metadata. Stored as an ordered jsonb list on the newsletter row.
type SubjectLine struct {
	Text              string   `json:"text"`
	Type              string   `json:"type"` // "curiosity" | "number" | "question" | "benefit" | "fomo"
	PredictedOpenRate float64  `json:"predictedOpenRate"`
	Confidence        float64  `json:"confidence,omitempty"`
	Reasoning         string   `json:"reasoning,omitempty"`
	PowerWords        []string `json:"powerWords,omitempty"`
	Length            int      `json:"length,omitempty"`
	Score             float64  `json:"score,omitempty"`
}

// NewsletterMetadata is the model's self-reported metadata block.
type NewsletterMetadata struct {
	WordCount            int      `json:"wordCount"`
	ReadingTimeMinutes   int      `json:"readingTimeMinutes"`
	KeyTopics            []string `json:"keyTopics"`
	SentimentScore       float64  `json:"sentimentScore"`
	EngagementPrediction string   `json:"engagementPrediction"` // "low" | "medium" | "high"
}

// GeneratedNewsletter is the decoded generation payload before persistence.
type GeneratedNewsletter struct {
	SubjectLines []SubjectLine      `json:"subjectLines"`
	Content      string             `json:"content"`
	Metadata     NewsletterMetadata `json:"metadata"`
}

type GenerateNewsletterRequest struct {
	ContentSourceID uuid.UUID `json:"contentSourceId"`
	AnalysisID      uuid.UUID `json:"analysisId"`
	Tone            string    `json:"tone"`      // "professional" | "friendly" | "casual" | "educational"
	Length          string    `json:"length"`    // "quick" | "standard" | "deep"
	Structure       string    `json:"structure"` // "story-led" | "listicle" | "tutorial" | "mixed"
}

type SubjectLinesRequest struct {
	NewsletterID uuid.UUID `json:"newsletterId"`
}

type TestEmailRequest struct {
	NewsletterID   uuid.UUID `json:"newsletterId"`
	RecipientEmail string    `json:"recipientEmail"`
}

type UpdateNewsletterRequest struct {
	ContentMarkdown     *string `json:"contentMarkdown"`
	SelectedSubjectLine *string `json:"selectedSubjectLine"`
	Title               *string `json:"title"`
}
