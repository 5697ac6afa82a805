package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestScrape_ReadableArticle(t *testing.T) {
	longPara := strings.Repeat("This is a sentence about an interesting topic that goes on for a while. ", 10)
	page := fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>Test Article - My Blog</title>
<meta property="og:title" content="Test Article"></head>
<body><article><h1>Test Article</h1><p>%s</p><p>%s</p></article></body></html>`, longPara, longPara)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer server.Close()

	s := NewScraperService()
	article, err := s.Scrape(server.URL)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}

	if !strings.Contains(article.Text, "interesting topic") {
		t.Error("Expected article text to contain paragraph content")
	}
	if article.Title == "" {
		t.Error("Expected a title")
	}
}

func TestScrape_TooShort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Thin page</title></head><body><p>Too short.</p></body></html>`))
	}))
	defer server.Close()

	s := NewScraperService()
	_, err := s.Scrape(server.URL)
	if err == nil {
		t.Fatal("Expected extraction error for thin page")
	}
	if _, ok := err.(*ExtractionError); !ok {
		t.Errorf("Expected *ExtractionError, got %T", err)
	}
}

func TestScrape_Non200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s := NewScraperService()
	_, err := s.Scrape(server.URL)
	if err == nil {
		t.Fatal("Expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("Expected status code in error, got: %v", err)
	}
}

func TestTitleFromDoc_Priority(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		expected string
	}{
		{
			"h1 wins",
			`<html><head><meta property="og:title" content="OG Title"><title>Page Title</title></head><body><h1>H1 Title</h1></body></html>`,
			"H1 Title",
		},
		{
			"title tag second",
			`<html><head><meta property="og:title" content="OG Title"><title>Page Title</title></head><body><p>no h1</p></body></html>`,
			"Page Title",
		},
		{
			"og:title last",
			`<html><head><meta property="og:title" content="OG Title"></head><body><p>no h1</p></body></html>`,
			"OG Title",
		},
		{
			"fallback when nothing",
			`<html><head></head><body><p>no title here</p></body></html>`,
			"Untitled",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := html.Parse(strings.NewReader(tc.page))
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			result := titleFromDoc(doc)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestCollectText_SkipsScripts(t *testing.T) {
	page := `<html><body><p>visible</p><script>var hidden = true;</script></body></html>`
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	text := collectText(doc)
	if !strings.Contains(text, "visible") {
		t.Error("Expected visible text")
	}
	if strings.Contains(text, "hidden") {
		t.Error("Script content should be excluded")
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	input := "  line   one  \n\n\n  line two  \n"
	expected := "line one\nline two"

	result := normalizeWhitespace(input)
	if result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}
