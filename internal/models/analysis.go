package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ContentAnalysis is the structured result of one analysis call. Created
// once per request and never mutated.
type ContentAnalysis struct {
	ID              uuid.UUID       `json:"id"`
	ContentSourceID uuid.UUID       `json:"contentSourceId"`
	MainTopic       string          `json:"mainTopic"`
	SubTopics       []string        `json:"subTopics"`
	KeyTakeaways    []string        `json:"keyTakeaways"`
	Quotes          []string        `json:"quotes"`
	TargetAudience  string          `json:"targetAudience"`
	PainPoints      []string        `json:"painPoints"`
	SuggestedCTAs   []string        `json:"suggestedCtas"`
	Sentiment       string          `json:"sentiment"`  // "educational" | "inspirational" | "entertaining" | "authoritative"
	Difficulty      string          `json:"difficulty"` // "easy" | "medium" | "hard"
	FullAnalysis    json.RawMessage `json:"fullAnalysis"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// AnalysisResult is the decoded vendor payload before persistence.
type AnalysisResult struct {
	MainTopic      string            `json:"mainTopic"`
	SubTopics      []string          `json:"subTopics"`
	KeyTakeaways   []string          `json:"keyTakeaways"`
	Quotes         []string          `json:"quotes"`
	Examples       []AnalysisExample `json:"examples"`
	TargetAudience string            `json:"targetAudience"`
	AudienceLevel  string            `json:"audienceLevel"` // "beginner" | "intermediate" | "advanced"
	PainPoints     []string          `json:"painPoints"`
	SuggestedCTAs  []string          `json:"suggestedCTAs"`
	Sentiment      string            `json:"sentiment"`
	Difficulty     string            `json:"difficulty"`
}

type AnalysisExample struct {
	Type        string `json:"type"` // "case_study" | "statistic" | "example"
	Description string `json:"description"`
}

type AnalyzeRequest struct {
	ContentSourceID uuid.UUID `json:"contentSourceId"`
}
