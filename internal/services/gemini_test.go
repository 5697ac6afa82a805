package services

import (
	"strings"
	"testing"

	"newsletterai-backend/internal/models"
)

func TestStripJSONFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := stripJSONFence(tc.input)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestTruncateTranscript(t *testing.T) {
	short := "short transcript"
	if truncateTranscript(short) != short {
		t.Error("Short transcript should pass through unchanged")
	}

	long := strings.Repeat("x", maxPromptTranscript+500)
	truncated := truncateTranscript(long)
	if len(truncated) != maxPromptTranscript {
		t.Errorf("Expected truncation to %d chars, got %d", maxPromptTranscript, len(truncated))
	}
}

func TestClampSubjectLines(t *testing.T) {
	lines := []models.SubjectLine{
		{Text: "Valid line", Type: "curiosity", PredictedOpenRate: 0.45, Confidence: 0.8, Score: 7.2},
		{Text: "", Type: "number"},
		{Text: "Out of range", Type: "question", PredictedOpenRate: 1.5, Confidence: 2.0, Score: -5},
		{Text: "Bad type", Type: "shouty", PredictedOpenRate: 0.3},
		{Text: "No length", Type: "benefit", PredictedOpenRate: 0.4},
	}

	result := clampSubjectLines(lines)

	if len(result) != 4 {
		t.Fatalf("Expected 4 valid lines, got %d", len(result))
	}

	if result[0].PredictedOpenRate != 0.45 {
		t.Error("In-range open rate should be untouched")
	}

	if result[1].PredictedOpenRate != 1 {
		t.Errorf("Open rate should clamp to 1, got %f", result[1].PredictedOpenRate)
	}
	if result[1].Confidence != 1 {
		t.Errorf("Confidence should clamp to 1, got %f", result[1].Confidence)
	}
	if result[1].Score != 0 {
		t.Errorf("Negative score should clamp to 0, got %f", result[1].Score)
	}

	if result[2].Type != "curiosity" {
		t.Errorf("Unknown type should default to curiosity, got %q", result[2].Type)
	}

	if result[3].Length != len("No length") {
		t.Errorf("Missing length should be computed from text, got %d", result[3].Length)
	}
}

func TestBuildNewsletterPrompt_LengthTargets(t *testing.T) {
	analysis := &models.AnalysisResult{
		MainTopic:      "Growth",
		TargetAudience: "founders",
		AudienceLevel:  "intermediate",
	}

	tests := []struct {
		length   string
		expected string
	}{
		{"quick", "approximately 300 words"},
		{"standard", "approximately 800 words"},
		{"deep", "approximately 1500 words"},
		{"unknown", "approximately 800 words"},
	}

	for _, tc := range tests {
		prompt := buildNewsletterPrompt("transcript", analysis, "professional", tc.length, "mixed")
		if !strings.Contains(prompt, tc.expected) {
			t.Errorf("length=%q: expected prompt to contain %q", tc.length, tc.expected)
		}
	}
}

func TestBuildNewsletterPrompt_TruncatesTranscript(t *testing.T) {
	long := strings.Repeat("y", maxPromptTranscript*2)
	prompt := buildNewsletterPrompt(long, nil, "casual", "quick", "listicle")

	if strings.Contains(prompt, long) {
		t.Error("Full transcript should not appear in prompt")
	}
	if !strings.Contains(prompt, long[:maxPromptTranscript]) {
		t.Error("Truncated transcript should appear in prompt")
	}
}

func TestBuildSubjectLinesPrompt(t *testing.T) {
	prompt := buildSubjectLinesPrompt("Newsletter body", &models.AnalysisResult{
		TargetAudience: "marketers",
		Sentiment:      "educational",
	})

	if !strings.Contains(prompt, "exactly 10 subject lines") {
		t.Error("Expected 10-line instruction")
	}
	for _, typ := range []string{"curiosity", "number", "question", "benefit", "fomo"} {
		if !strings.Contains(prompt, typ) {
			t.Errorf("Expected subject type %q in prompt", typ)
		}
	}
	if !strings.Contains(prompt, "marketers") {
		t.Error("Expected audience in prompt")
	}
}

func TestBuildAnalysisPrompt(t *testing.T) {
	prompt := buildAnalysisPrompt("some transcript", "Video Title")

	if !strings.Contains(prompt, "Video Title") {
		t.Error("Expected title in prompt")
	}
	if !strings.Contains(prompt, "mainTopic") {
		t.Error("Expected JSON schema in prompt")
	}
	if !strings.Contains(prompt, "---CONTENT START---") {
		t.Error("Expected content delimiters")
	}
}
