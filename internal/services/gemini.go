package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"newsletterai-backend/internal/models"
)

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.4)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// AnalyzeContent runs the structured content analysis over a transcript.
func (s *GeminiService) AnalyzeContent(ctx context.Context, transcript, title string) (*models.AnalysisResult, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildAnalysisPrompt(transcript, title)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, NewVendorError("gemini", err)
	}

	rawText := stripJSONFence(extractText(resp))

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(rawText), &result); err != nil {
		// Try to slice out the JSON object
		start := strings.Index(rawText, "{")
		end := strings.LastIndex(rawText, "}")
		if start >= 0 && end > start {
			if err2 := json.Unmarshal([]byte(rawText[start:end+1]), &result); err2 != nil {
				return nil, NewVendorError("gemini", fmt.Errorf("unparseable analysis response: %w", err2))
			}
		} else {
			return nil, NewVendorError("gemini", fmt.Errorf("unparseable analysis response: %w", err))
		}
	}

	if result.MainTopic == "" {
		return nil, NewVendorError("gemini", fmt.Errorf("analysis response missing main topic"))
	}

	return &result, nil
}

// GenerateNewsletter produces the markdown newsletter plus subject lines
// and self-reported metadata for the given tone/length/structure.
func (s *GeminiService) GenerateNewsletter(ctx context.Context, transcript string, analysis *models.AnalysisResult, tone, length, structure string) (*models.GeneratedNewsletter, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildNewsletterPrompt(transcript, analysis, tone, length, structure)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, NewVendorError("gemini", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("Gemini candidate %d stopped early: %s", i, cand.FinishReason)
		}
	}

	rawText := stripJSONFence(extractText(resp))

	var result models.GeneratedNewsletter
	if err := json.Unmarshal([]byte(rawText), &result); err != nil {
		start := strings.Index(rawText, "{")
		end := strings.LastIndex(rawText, "}")
		if start >= 0 && end > start {
			if err2 := json.Unmarshal([]byte(rawText[start:end+1]), &result); err2 != nil {
				return nil, NewVendorError("gemini", fmt.Errorf("unparseable newsletter response: %w", err2))
			}
		} else {
			return nil, NewVendorError("gemini", fmt.Errorf("unparseable newsletter response: %w", err))
		}
	}

	if strings.TrimSpace(result.Content) == "" {
		return nil, NewVendorError("gemini", fmt.Errorf("newsletter response has empty content"))
	}

	result.SubjectLines = clampSubjectLines(result.SubjectLines)
	return &result, nil
}

// GenerateSubjectLines produces a fresh batch of ten candidate subjects
// for an existing newsletter body.
func (s *GeminiService) GenerateSubjectLines(ctx context.Context, newsletterContent string, analysis *models.AnalysisResult) ([]models.SubjectLine, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildSubjectLinesPrompt(newsletterContent, analysis)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, NewVendorError("gemini", err)
	}

	rawText := stripJSONFence(extractText(resp))

	var lines []models.SubjectLine
	if err := json.Unmarshal([]byte(rawText), &lines); err != nil {
		start := strings.Index(rawText, "[")
		end := strings.LastIndex(rawText, "]")
		if start >= 0 && end > start {
			if err2 := json.Unmarshal([]byte(rawText[start:end+1]), &lines); err2 != nil {
				return nil, NewVendorError("gemini", fmt.Errorf("unparseable subject lines response: %w", err2))
			}
		} else {
			return nil, NewVendorError("gemini", fmt.Errorf("unparseable subject lines response: %w", err))
		}
	}

	lines = clampSubjectLines(lines)
	if len(lines) == 0 {
		return nil, NewVendorError("gemini", fmt.Errorf("no usable subject lines in response"))
	}

	return lines, nil
}

// TranscribeAudio uses the Gemini File API to transcribe audio bytes.
func (s *GeminiService) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty")
	}

	file, err := s.client.UploadFile(ctx, "", bytes.NewReader(audio), &genai.UploadFileOptions{
		DisplayName: "podcast-audio",
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", NewVendorError("gemini", fmt.Errorf("failed to upload audio: %w", err))
	}

	// Ensure remote file is cleaned up
	defer s.client.DeleteFile(context.Background(), file.Name)

	// Wait until file is active
	for i := 0; i < 20; i++ {
		current, getErr := s.client.GetFile(ctx, file.Name)
		if getErr != nil {
			return "", NewVendorError("gemini", fmt.Errorf("failed to get uploaded file status: %w", getErr))
		}

		if current.State == genai.FileStateActive {
			file = current
			break
		}
		if current.State == genai.FileStateFailed {
			return "", NewVendorError("gemini", fmt.Errorf("audio file processing failed"))
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	if file.State != genai.FileStateActive {
		return "", NewVendorError("gemini", fmt.Errorf("audio file did not become active in time"))
	}

	prompt := "Transcribe the provided audio verbatim. Return plain text only, without markdown, headers, or explanations."

	resp, err := s.model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.FileData{MIMEType: mimeType, URI: file.URI},
	)
	if err != nil {
		return "", NewVendorError("gemini", fmt.Errorf("transcription error: %w", err))
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", NewVendorError("gemini", fmt.Errorf("empty transcription"))
	}

	return text, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripJSONFence(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

// Long transcripts get truncated before prompting; the analysis summary
// carries the rest of the signal.
const maxPromptTranscript = 3000

func truncateTranscript(transcript string) string {
	if len(transcript) <= maxPromptTranscript {
		return transcript
	}
	return transcript[:maxPromptTranscript]
}

func buildAnalysisPrompt(transcript, title string) string {
	var b strings.Builder

	b.WriteString("You are an expert content strategist analyzing source material for an email newsletter.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")

	if title != "" {
		b.WriteString(fmt.Sprintf("Content title: %s\n\n", title))
	}

	b.WriteString(`Analyze the content below and return this exact JSON structure:
{
  "mainTopic": "the single central topic",
  "subTopics": ["up to 5 supporting topics"],
  "keyTakeaways": ["5-7 concrete takeaways a reader should remember"],
  "quotes": ["2-4 verbatim quotable passages from the content"],
  "examples": [{"type": "case_study"|"statistic"|"example", "description": "string"}],
  "targetAudience": "who this content serves best",
  "audienceLevel": "beginner"|"intermediate"|"advanced",
  "painPoints": ["problems the audience has that this content addresses"],
  "suggestedCTAs": ["2-3 calls to action that fit the content"],
  "sentiment": "educational"|"inspirational"|"entertaining"|"authoritative",
  "difficulty": "easy"|"medium"|"hard"
}

`)
	b.WriteString("---CONTENT START---\n")
	b.WriteString(transcript)
	b.WriteString("\n---CONTENT END---\n")

	return b.String()
}

func buildNewsletterPrompt(transcript string, analysis *models.AnalysisResult, tone, length, structure string) string {
	var b strings.Builder

	// Layer 1 — Role
	b.WriteString("You are an expert email newsletter writer. Transform the analyzed content below into a polished newsletter issue.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown fences, no backticks.\n\n")

	// Layer 2 — Tone
	switch tone {
	case "professional":
		b.WriteString("Tone: Professional. Authoritative but approachable, precise language, no slang.\n")
	case "friendly":
		b.WriteString("Tone: Friendly. Warm, conversational, write like emailing a colleague you like.\n")
	case "casual":
		b.WriteString("Tone: Casual. Relaxed, playful where appropriate, contractions welcome.\n")
	case "educational":
		b.WriteString("Tone: Educational. Patient and clear, define terms, build up from basics.\n")
	default:
		b.WriteString("Tone: Professional. Authoritative but approachable.\n")
	}

	// Layer 3 — Length
	targetWords := 800
	switch length {
	case "quick":
		targetWords = 300
	case "standard":
		targetWords = 800
	case "deep":
		targetWords = 1500
	}
	b.WriteString(fmt.Sprintf("Length: The newsletter body must be approximately %d words.\n", targetWords))

	// Layer 4 — Structure
	switch structure {
	case "story-led":
		b.WriteString("Structure: Open with a narrative hook from the content, then develop the key insights, close with a takeaway and CTA.\n\n")
	case "listicle":
		b.WriteString("Structure: A numbered list of the key takeaways, each with a short explanation. Brief intro and outro.\n\n")
	case "tutorial":
		b.WriteString("Structure: Step-by-step walkthrough. Explain what to do, why, and what to expect at each step.\n\n")
	default:
		b.WriteString("Structure: Mix narrative and lists as the material demands.\n\n")
	}

	// Layer 5 — Analysis context
	if analysis != nil {
		b.WriteString(fmt.Sprintf("Main topic: %s\n", analysis.MainTopic))
		b.WriteString(fmt.Sprintf("Target audience: %s (%s level)\n", analysis.TargetAudience, analysis.AudienceLevel))
		if len(analysis.KeyTakeaways) > 0 {
			b.WriteString("Key takeaways to cover:\n")
			for _, kt := range analysis.KeyTakeaways {
				b.WriteString(fmt.Sprintf("- %s\n", kt))
			}
		}
		if len(analysis.Quotes) > 0 {
			b.WriteString("Quotable passages (use at most two, as blockquotes):\n")
			for _, q := range analysis.Quotes {
				b.WriteString(fmt.Sprintf("- %s\n", q))
			}
		}
		if len(analysis.SuggestedCTAs) > 0 {
			b.WriteString(fmt.Sprintf("Suggested CTA: %s\n", analysis.SuggestedCTAs[0]))
		}
		b.WriteString("\n")
	}

	b.WriteString(`Return this exact JSON structure:
{
  "subjectLines": [
    {"text": "string", "type": "curiosity"|"number"|"question", "predictedOpenRate": 0.0-1.0}
  ],
  "content": "the full newsletter body in markdown",
  "metadata": {
    "wordCount": int,
    "readingTimeMinutes": int,
    "keyTopics": ["string"],
    "sentimentScore": 0.0-1.0,
    "engagementPrediction": "low"|"medium"|"high"
  }
}

Provide exactly 3 subject lines: one curiosity, one number, one question.
The content field must be valid markdown: headings, short paragraphs, bold for emphasis, blockquotes for quotes.

`)

	b.WriteString("---SOURCE TRANSCRIPT (excerpt)---\n")
	b.WriteString(truncateTranscript(transcript))
	b.WriteString("\n---END---\n")

	return b.String()
}

func buildSubjectLinesPrompt(newsletterContent string, analysis *models.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("You are an email deliverability and copywriting expert. Generate subject line candidates for the newsletter below.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")

	b.WriteString(`Generate exactly 10 subject lines covering all five types: curiosity, number, question, benefit, fomo (two of each).

JSON schema per subject line:
{"text": "string under 60 chars", "type": "curiosity"|"number"|"question"|"benefit"|"fomo", "predictedOpenRate": 0.0-1.0, "confidence": 0.0-1.0, "reasoning": "one sentence on why it works", "powerWords": ["string"], "length": int, "score": 0.0-10.0}

Rules:
- No clickbait that the body cannot back up
- No spam-trigger words (FREE!!!, act now, $$$)
- length is the character count of text

`)

	if analysis != nil {
		b.WriteString(fmt.Sprintf("Audience: %s\n", analysis.TargetAudience))
		b.WriteString(fmt.Sprintf("Sentiment: %s\n\n", analysis.Sentiment))
	}

	b.WriteString("---NEWSLETTER---\n")
	b.WriteString(truncateTranscript(newsletterContent))
	b.WriteString("\n---END---\n")

	return b.String()
}

// clampSubjectLines drops empty entries and normalizes out-of-range
// numeric fields rather than failing the whole generation.
func clampSubjectLines(lines []models.SubjectLine) []models.SubjectLine {
	valid := make([]models.SubjectLine, 0, len(lines))
	for _, l := range lines {
		l.Text = strings.TrimSpace(l.Text)
		if l.Text == "" {
			continue
		}

		switch l.Type {
		case "curiosity", "number", "question", "benefit", "fomo":
		default:
			l.Type = "curiosity"
		}

		if l.PredictedOpenRate < 0 {
			l.PredictedOpenRate = 0
		}
		if l.PredictedOpenRate > 1 {
			l.PredictedOpenRate = 1
		}
		if l.Confidence < 0 {
			l.Confidence = 0
		}
		if l.Confidence > 1 {
			l.Confidence = 1
		}
		if l.Score < 0 {
			l.Score = 0
		}
		if l.Score > 10 {
			l.Score = 10
		}
		if l.Length <= 0 {
			l.Length = len(l.Text)
		}

		valid = append(valid, l)
	}
	return valid
}
