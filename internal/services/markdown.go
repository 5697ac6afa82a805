package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownService renders newsletter markdown into the email-safe HTML
// shell and the plain-text alternative part.
type MarkdownService struct{}

func NewMarkdownService() *MarkdownService {
	return &MarkdownService{}
}

// RenderBodyHTML converts markdown to an HTML fragment. Raw HTML embedded
// in the markdown is skipped so script tags never reach an inbox.
func (s *MarkdownService) RenderBodyHTML(md string) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.HardLineBreak
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML,
	})
	return string(markdown.Render(doc, renderer))
}

// RenderEmailHTML wraps the rendered body in a self-contained document
// with inlined styles, since email clients ignore external stylesheets.
func (s *MarkdownService) RenderEmailHTML(md, title string) string {
	body := s.RenderBodyHTML(md)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1.0">`)
	b.WriteString("<title>")
	b.WriteString(escapeHTML(title))
	b.WriteString("</title>")
	b.WriteString(`<style>
		body { margin: 0; padding: 0; background-color: #f4f4f7; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: #333333; line-height: 1.6; }
		.container { max-width: 600px; margin: 0 auto; padding: 32px 24px; background-color: #ffffff; }
		h1 { font-size: 28px; line-height: 1.3; margin: 0 0 16px; color: #1a1a2e; }
		h2 { font-size: 22px; line-height: 1.35; margin: 28px 0 12px; color: #1a1a2e; }
		h3 { font-size: 18px; margin: 24px 0 8px; color: #1a1a2e; }
		p { margin: 0 0 16px; }
		a { color: #4f46e5; text-decoration: underline; }
		blockquote { margin: 16px 0; padding: 12px 20px; border-left: 4px solid #4f46e5; background-color: #f8f8fc; font-style: italic; }
		ul, ol { margin: 0 0 16px; padding-left: 24px; }
		li { margin-bottom: 6px; }
		hr { border: none; border-top: 1px solid #e5e5ea; margin: 28px 0; }
		code { background-color: #f1f1f4; padding: 2px 5px; border-radius: 4px; font-size: 14px; }
		img { max-width: 100%; height: auto; }
	</style></head><body>`)
	b.WriteString(`<div class="container">`)
	b.WriteString(body)
	b.WriteString("</div></body></html>")

	return b.String()
}

var (
	reMDHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reMDBold       = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	reMDItalic     = regexp.MustCompile(`\*([^*\n]+)\*|_([^_\n]+)_`)
	reMDLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	reMDImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	reMDBlockquote = regexp.MustCompile(`(?m)^>\s?`)
	reMDCodeFence  = regexp.MustCompile("(?s)```[a-zA-Z]*\n?(.*?)```")
	reMDInlineCode = regexp.MustCompile("`([^`]+)`")
	reMDHRule      = regexp.MustCompile(`(?m)^(-{3,}|\*{3,}|_{3,})\s*$`)
	reMDListMark   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	reMDBlankRuns  = regexp.MustCompile(`\n{3,}`)
)

// RenderPlainText strips markdown syntax for the text/plain email part.
// Links keep both the label and the URL.
func (s *MarkdownService) RenderPlainText(md string) string {
	text := md
	text = reMDImage.ReplaceAllString(text, "")
	text = reMDCodeFence.ReplaceAllString(text, "$1")
	text = reMDHeading.ReplaceAllString(text, "")
	text = reMDBold.ReplaceAllString(text, "$1")
	text = reMDItalic.ReplaceAllString(text, "$1$2")
	text = reMDLink.ReplaceAllString(text, "$1 ($2)")
	text = reMDInlineCode.ReplaceAllString(text, "$1")
	text = reMDBlockquote.ReplaceAllString(text, "")
	text = reMDHRule.ReplaceAllString(text, "")
	text = reMDListMark.ReplaceAllString(text, "- ")
	text = reMDBlankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// CountWords counts whitespace-separated tokens in markdown source.
func (s *MarkdownService) CountWords(md string) int {
	return len(strings.Fields(s.RenderPlainText(md)))
}

// ReadingTimeMinutes estimates reading time at 200 words per minute,
// rounded up with a floor of one minute for non-empty content.
func (s *MarkdownService) ReadingTimeMinutes(md string) int {
	words := s.CountWords(md)
	if words == 0 {
		return 0
	}
	return (words + 199) / 200
}

func escapeHTML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}

// ExportFilename builds a safe download filename for an export format.
func ExportFilename(title, ext string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = regexp.MustCompile(`[^a-z0-9]+`).ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "newsletter"
	}
	return fmt.Sprintf("%s.%s", slug, ext)
}
