package services

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// ScraperService extracts article text from blog URLs. Readability is
// tried first; a selector walk over known content containers covers
// pages readability cannot handle.
type ScraperService struct {
	httpClient *http.Client
}

const minArticleChars = 200

func NewScraperService() *ScraperService {
	return &ScraperService{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type ScrapedArticle struct {
	Title string
	Text  string
}

func (s *ScraperService) Scrape(articleURL string) (*ScrapedArticle, error) {
	req, err := http.NewRequest("GET", articleURL, nil)
	if err != nil {
		return nil, NewExtractionError("blog", fmt.Sprintf("invalid URL: %v", err))
	}
	// Some hosts 403 anything that does not look like a browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, NewExtractionError("blog", fmt.Sprintf("fetch failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewExtractionError("blog", fmt.Sprintf("got status %d", resp.StatusCode))
	}

	const maxBodySize = 10 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, NewExtractionError("blog", fmt.Sprintf("read failed: %v", err))
	}

	parsedURL, _ := url.Parse(articleURL)

	// First pass: readability
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err == nil && len(strings.TrimSpace(article.TextContent)) >= minArticleChars {
		title := strings.TrimSpace(article.Title)
		if title == "" {
			title = extractTitleFromHTML(body)
		}
		return &ScrapedArticle{
			Title: title,
			Text:  normalizeWhitespace(article.TextContent),
		}, nil
	}

	// Second pass: known content containers, then bare paragraphs
	extracted, title := extractFromSelectors(body)
	if len(extracted) >= minArticleChars {
		return &ScrapedArticle{Title: title, Text: extracted}, nil
	}

	return nil, NewExtractionError("blog", "could not find article content on the page")
}

var contentContainers = []struct {
	tag   string
	class string
}{
	{tag: "article"},
	{tag: "main"},
	{class: "post-content"},
	{class: "entry-content"},
	{class: "article-content"},
	{class: "article-body"},
	{class: "content"},
}

func extractFromSelectors(body []byte) (text, title string) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}

	title = titleFromDoc(doc)

	for _, sel := range contentContainers {
		if node := findNode(doc, sel.tag, sel.class); node != nil {
			candidate := normalizeWhitespace(collectText(node))
			if len(candidate) >= minArticleChars {
				return candidate, title
			}
		}
	}

	// Last resort: every <p> on the page
	var paragraphs []string
	walkNodes(doc, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			if p := strings.TrimSpace(collectText(n)); p != "" {
				paragraphs = append(paragraphs, p)
			}
		}
	})

	return normalizeWhitespace(strings.Join(paragraphs, "\n\n")), title
}

// titleFromDoc prefers the first h1, then <title>, then og:title.
func titleFromDoc(doc *html.Node) string {
	var ogTitle, pageTitle, h1 string

	walkNodes(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "meta":
			var property, content string
			for _, attr := range n.Attr {
				if attr.Key == "property" {
					property = attr.Val
				}
				if attr.Key == "content" {
					content = attr.Val
				}
			}
			if property == "og:title" && ogTitle == "" {
				ogTitle = content
			}
		case "title":
			if pageTitle == "" {
				pageTitle = collectText(n)
			}
		case "h1":
			if h1 == "" {
				h1 = collectText(n)
			}
		}
	})

	for _, candidate := range []string{h1, pageTitle, ogTitle} {
		if t := strings.TrimSpace(candidate); t != "" {
			return t
		}
	}
	return "Untitled"
}

func extractTitleFromHTML(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "Untitled"
	}
	return titleFromDoc(doc)
}

func findNode(n *html.Node, tag, class string) *html.Node {
	if n.Type == html.ElementNode {
		if tag != "" && n.Data == tag {
			return n
		}
		if class != "" {
			for _, attr := range n.Attr {
				if attr.Key == "class" && containsClass(attr.Val, class) {
					return n
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

func containsClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

func walkNodes(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNodes(c, fn)
	}
}

func collectText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(collectText(c))
	}
	return b.String()
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
