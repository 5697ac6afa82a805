package services

import (
	"context"
	"strings"
	"testing"

	"newsletterai-backend/internal/models"
)

func TestAcquire_TextSource(t *testing.T) {
	a := NewAcquirer(nil, nil, nil, nil)

	text := "How We Grew 10x\n\n" + strings.Repeat("Growth content paragraph. ", 20)
	content, err := a.Acquire(context.Background(), models.TextSource{Text: text})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if content.Title != "Pasted content" {
		t.Errorf("Expected fixed pasted-content title, got %q", content.Title)
	}
	if !strings.Contains(content.Transcript, "Growth content paragraph") {
		t.Error("Expected transcript to carry the text")
	}
	if content.DurationMinutes != 0 {
		t.Error("Text sources have no duration")
	}
}

func TestAcquire_TextTooShort(t *testing.T) {
	a := NewAcquirer(nil, nil, nil, nil)

	_, err := a.Acquire(context.Background(), models.TextSource{Text: "too short"})
	if err == nil {
		t.Fatal("Expected validation error for short text")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Errorf("Expected *ValidationError, got %T", err)
	}
}

func TestAcquire_InvalidYouTubeURL(t *testing.T) {
	a := NewAcquirer(NewYouTubeService(), nil, nil, nil)

	_, err := a.Acquire(context.Background(), models.VideoSource{URL: "https://vimeo.com/12345"})
	if err == nil {
		t.Fatal("Expected validation error for non-YouTube URL")
	}

	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if ve.Fields["url"] != "invalid" {
		t.Error("Expected url field marked invalid")
	}
}

func TestAcquire_AudioSourceWithoutInput(t *testing.T) {
	a := NewAcquirer(nil, NewPodcastService(nil), nil, nil)

	_, err := a.Acquire(context.Background(), models.AudioSource{})
	if err == nil {
		t.Fatal("Expected validation error for empty audio source")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Errorf("Expected *ValidationError, got %T", err)
	}
}

func TestAcquire_ArticleSourceWithoutURL(t *testing.T) {
	a := NewAcquirer(nil, nil, NewScraperService(), nil)

	_, err := a.Acquire(context.Background(), models.ArticleSource{})
	if err == nil {
		t.Fatal("Expected validation error for missing URL")
	}
}

func TestSourceType(t *testing.T) {
	tests := []struct {
		source   models.ImportSource
		expected string
	}{
		{models.VideoSource{}, "youtube"},
		{models.AudioSource{}, "podcast"},
		{models.ArticleSource{}, "blog"},
		{models.TextSource{}, "text"},
	}

	for _, tc := range tests {
		if got := models.SourceType(tc.source); got != tc.expected {
			t.Errorf("SourceType(%T) = %q, want %q", tc.source, got, tc.expected)
		}
	}
}

func TestAcquire_TextPreservesBody(t *testing.T) {
	a := NewAcquirer(nil, nil, nil, nil)

	text := "  " + strings.Repeat("body text here. ", 10) + "  "

	content, err := a.Acquire(context.Background(), models.TextSource{Text: text})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if strings.HasPrefix(content.Transcript, " ") || strings.HasSuffix(content.Transcript, " ") {
		t.Error("Expected surrounding whitespace to be trimmed")
	}
}
