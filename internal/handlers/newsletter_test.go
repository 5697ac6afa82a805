package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"newsletterai-backend/internal/models"
	"newsletterai-backend/internal/services"
)

type stubNewsletterRepo struct {
	created      *models.Newsletter
	byID         *models.Newsletter
	list         []models.Newsletter
	updatedDraft *models.UpdateNewsletterRequest
	updatedHTML  *string
	updatedLines []models.SubjectLine
	status       string
	deleted      bool
}

func (s *stubNewsletterRepo) Create(ctx context.Context, n *models.Newsletter) error {
	n.ID = uuid.New()
	s.created = n
	return nil
}

func (s *stubNewsletterRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Newsletter, error) {
	if s.byID == nil {
		return nil, pgx.ErrNoRows
	}
	return s.byID, nil
}

func (s *stubNewsletterRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Newsletter, error) {
	return s.list, nil
}

func (s *stubNewsletterRepo) UpdateDraft(ctx context.Context, id, userID uuid.UUID, req *models.UpdateNewsletterRequest, contentHTML *string, wordCount, readingTime int) error {
	s.updatedDraft = req
	s.updatedHTML = contentHTML
	return nil
}

func (s *stubNewsletterRepo) UpdateSubjectLines(ctx context.Context, id, userID uuid.UUID, lines []models.SubjectLine) error {
	s.updatedLines = lines
	return nil
}

func (s *stubNewsletterRepo) UpdateStatus(ctx context.Context, id, userID uuid.UUID, status string) error {
	s.status = status
	return nil
}

func (s *stubNewsletterRepo) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	return s.deleted, nil
}

type stubGenerator struct {
	newsletter *models.GeneratedNewsletter
	lines      []models.SubjectLine
	err        error
}

func (s *stubGenerator) GenerateNewsletter(ctx context.Context, transcript string, analysis *models.AnalysisResult, tone, length, structure string) (*models.GeneratedNewsletter, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.newsletter, nil
}

func (s *stubGenerator) GenerateSubjectLines(ctx context.Context, newsletterContent string, analysis *models.AnalysisResult) ([]models.SubjectLine, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.lines, nil
}

type stubEmailSender struct {
	to      string
	subject string
	html    string
	text    string
	err     error
}

func (s *stubEmailSender) SendNewsletterTest(to, subject, htmlBody, textBody string) error {
	if s.err != nil {
		return s.err
	}
	s.to = to
	s.subject = subject
	s.html = htmlBody
	s.text = textBody
	return nil
}

type stubEmailRecorder struct {
	recorded  *models.TestEmail
	sentCount int
}

func (s *stubEmailRecorder) InsertTestEmail(ctx context.Context, te *models.TestEmail) error {
	s.recorded = te
	return nil
}

func (s *stubEmailRecorder) CountTestEmailsSince(ctx context.Context, userID uuid.UUID, windowMinutes int) (int, error) {
	return s.sentCount, nil
}

func newsletterHandlerFixture(repo *stubNewsletterRepo, contentRepo *stubContentRepo, analysisRepo *stubAnalysisRepo, gen *stubGenerator, sender *stubEmailSender, recorder *stubEmailRecorder) *NewsletterHandler {
	return NewNewsletterHandler(
		repo,
		contentRepo,
		analysisRepo,
		&stubUsageRepo{},
		recorder,
		gen,
		services.NewMarkdownService(),
		sender,
	)
}

func storedAnalysis(contentID uuid.UUID) *models.ContentAnalysis {
	full, _ := json.Marshal(models.AnalysisResult{
		MainTopic:    "Audience building",
		KeyTakeaways: []string{"Ship weekly"},
	})
	return &models.ContentAnalysis{
		ID:              uuid.New(),
		ContentSourceID: contentID,
		MainTopic:       "Audience building",
		FullAnalysis:    full,
	}
}

func TestGenerateAppliesDefaultsAndPersists(t *testing.T) {
	contentID := uuid.New()
	contentRepo := &stubContentRepo{byID: &models.ContentSource{
		ID:         contentID,
		Title:      "Audience Building 101",
		Transcript: "full transcript",
	}}
	analysisRepo := &stubAnalysisRepo{bySource: storedAnalysis(contentID)}
	repo := &stubNewsletterRepo{}
	gen := &stubGenerator{newsletter: &models.GeneratedNewsletter{
		SubjectLines: []models.SubjectLine{{Text: "Why audiences compound", Type: "curiosity", PredictedOpenRate: 0.42}},
		Content:      "## The big idea\n\nAudiences compound when you ship weekly.",
		Metadata:     models.NewsletterMetadata{KeyTopics: []string{"audience"}},
	}}

	h := newsletterHandlerFixture(repo, contentRepo, analysisRepo, gen, &stubEmailSender{}, &stubEmailRecorder{})

	body := bytes.NewBufferString(`{"contentSourceId":"` + contentID.String() + `"}`)
	rec := httptest.NewRecorder()
	h.Generate(rec, authedRequest(http.MethodPost, "/api/newsletter/generate", body, uuid.New()))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	n := repo.created
	if n == nil {
		t.Fatal("expected the newsletter to be persisted")
	}
	if n.Tone != "professional" || n.Length != "standard" || n.Structure != "mixed" {
		t.Errorf("defaults not applied: tone=%s length=%s structure=%s", n.Tone, n.Length, n.Structure)
	}
	if n.Status != "draft" {
		t.Errorf("expected draft status, got %s", n.Status)
	}
	if n.WordCount == 0 || n.ReadingTimeMinutes == 0 {
		t.Errorf("expected derived counts, got words=%d reading=%d", n.WordCount, n.ReadingTimeMinutes)
	}
	if !strings.Contains(n.ContentHTML, "<h2") {
		t.Errorf("expected rendered HTML, got %q", n.ContentHTML)
	}
}

func TestGenerateRejectsUnknownTone(t *testing.T) {
	h := newsletterHandlerFixture(&stubNewsletterRepo{}, &stubContentRepo{}, &stubAnalysisRepo{}, &stubGenerator{}, &stubEmailSender{}, &stubEmailRecorder{})

	body := bytes.NewBufferString(`{"contentSourceId":"` + uuid.NewString() + `","tone":"sarcastic"}`)
	rec := httptest.NewRecorder()
	h.Generate(rec, authedRequest(http.MethodPost, "/api/newsletter/generate", body, uuid.New()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if apiErr := decodeError(t, rec); apiErr.Fields["tone"] == "" {
		t.Errorf("expected a tone field error, got %v", apiErr.Fields)
	}
}

func TestGenerateMissingAnalysis(t *testing.T) {
	contentID := uuid.New()
	contentRepo := &stubContentRepo{byID: &models.ContentSource{ID: contentID, Transcript: "t"}}
	h := newsletterHandlerFixture(&stubNewsletterRepo{}, contentRepo, &stubAnalysisRepo{}, &stubGenerator{}, &stubEmailSender{}, &stubEmailRecorder{})

	body := bytes.NewBufferString(`{"contentSourceId":"` + contentID.String() + `"}`)
	rec := httptest.NewRecorder()
	h.Generate(rec, authedRequest(http.MethodPost, "/api/newsletter/generate", body, uuid.New()))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSubjectLinesRegenerates(t *testing.T) {
	repo := &stubNewsletterRepo{byID: &models.Newsletter{
		ID:              uuid.New(),
		AnalysisID:      uuid.New(),
		ContentMarkdown: "## Draft",
	}}
	lines := make([]models.SubjectLine, 10)
	for i := range lines {
		lines[i] = models.SubjectLine{Text: "Subject", Type: "curiosity", PredictedOpenRate: 0.3}
	}
	gen := &stubGenerator{lines: lines}

	h := newsletterHandlerFixture(repo, &stubContentRepo{}, &stubAnalysisRepo{}, gen, &stubEmailSender{}, &stubEmailRecorder{})

	body := bytes.NewBufferString(`{"newsletterId":"` + repo.byID.ID.String() + `"}`)
	rec := httptest.NewRecorder()
	h.SubjectLines(rec, authedRequest(http.MethodPost, "/api/newsletter/subject-lines", body, uuid.New()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.updatedLines) != 10 {
		t.Errorf("expected 10 stored subject lines, got %d", len(repo.updatedLines))
	}
}

func TestTestEmailRejectsInvalidRecipient(t *testing.T) {
	h := newsletterHandlerFixture(&stubNewsletterRepo{}, &stubContentRepo{}, &stubAnalysisRepo{}, &stubGenerator{}, &stubEmailSender{}, &stubEmailRecorder{})

	body := bytes.NewBufferString(`{"newsletterId":"` + uuid.NewString() + `","recipientEmail":"not-an-email"}`)
	rec := httptest.NewRecorder()
	h.TestEmail(rec, authedRequest(http.MethodPost, "/api/newsletter/test-email", body, uuid.New()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if apiErr := decodeError(t, rec); apiErr.Fields["recipientEmail"] == "" {
		t.Errorf("expected a recipientEmail field error, got %v", apiErr.Fields)
	}
}

func TestTestEmailRateLimited(t *testing.T) {
	recorder := &stubEmailRecorder{sentCount: 10}
	h := newsletterHandlerFixture(&stubNewsletterRepo{}, &stubContentRepo{}, &stubAnalysisRepo{}, &stubGenerator{}, &stubEmailSender{}, recorder)

	body := bytes.NewBufferString(`{"newsletterId":"` + uuid.NewString() + `","recipientEmail":"me@example.com"}`)
	rec := httptest.NewRecorder()
	h.TestEmail(rec, authedRequest(http.MethodPost, "/api/newsletter/test-email", body, uuid.New()))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestTestEmailUsesSelectedSubject(t *testing.T) {
	selected := "The one subject that won"
	repo := &stubNewsletterRepo{byID: &models.Newsletter{
		ID:                  uuid.New(),
		Title:               "Fallback Title",
		SelectedSubjectLine: &selected,
		SubjectLines:        []models.SubjectLine{{Text: "First candidate"}},
		ContentMarkdown:     "## Hello\n\nBody text.",
	}}
	sender := &stubEmailSender{}
	recorder := &stubEmailRecorder{}

	h := newsletterHandlerFixture(repo, &stubContentRepo{}, &stubAnalysisRepo{}, &stubGenerator{}, sender, recorder)

	body := bytes.NewBufferString(`{"newsletterId":"` + repo.byID.ID.String() + `","recipientEmail":"me@example.com"}`)
	rec := httptest.NewRecorder()
	h.TestEmail(rec, authedRequest(http.MethodPost, "/api/newsletter/test-email", body, uuid.New()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if sender.subject != "[Test] "+selected {
		t.Errorf("unexpected subject %q", sender.subject)
	}
	if sender.html == "" || sender.text == "" {
		t.Error("expected both HTML and plain-text bodies")
	}
	if recorder.recorded == nil || recorder.recorded.RecipientEmail != "me@example.com" {
		t.Errorf("expected the send to be recorded, got %+v", recorder.recorded)
	}
}

func TestUpdateNothingToUpdate(t *testing.T) {
	h := newsletterHandlerFixture(&stubNewsletterRepo{}, &stubContentRepo{}, &stubAnalysisRepo{}, &stubGenerator{}, &stubEmailSender{}, &stubEmailRecorder{})

	req := authedRequest(http.MethodPut, "/api/newsletters/x", bytes.NewBufferString(`{}`), uuid.New())
	req = withURLParam(req, "id", uuid.NewString())
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateRerendersMarkdown(t *testing.T) {
	repo := &stubNewsletterRepo{byID: &models.Newsletter{ID: uuid.New(), ContentMarkdown: "old"}}
	h := newsletterHandlerFixture(repo, &stubContentRepo{}, &stubAnalysisRepo{}, &stubGenerator{}, &stubEmailSender{}, &stubEmailRecorder{})

	body := bytes.NewBufferString(`{"contentMarkdown":"## Edited\n\nNew body text here."}`)
	req := authedRequest(http.MethodPut, "/api/newsletters/x", body, uuid.New())
	req = withURLParam(req, "id", repo.byID.ID.String())
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.updatedHTML == nil || !strings.Contains(*repo.updatedHTML, "<h2") {
		t.Errorf("expected the edited markdown to be re-rendered, got %v", repo.updatedHTML)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	repo := &stubNewsletterRepo{byID: &models.Newsletter{ID: uuid.New()}}
	h := newsletterHandlerFixture(repo, &stubContentRepo{}, &stubAnalysisRepo{}, &stubGenerator{}, &stubEmailSender{}, &stubEmailRecorder{})

	body := bytes.NewBufferString(`{"status":"published"}`)
	req := authedRequest(http.MethodPut, "/api/newsletters/x/status", body, uuid.New())
	req = withURLParam(req, "id", repo.byID.ID.String())
	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteNotFound(t *testing.T) {
	h := newsletterHandlerFixture(&stubNewsletterRepo{deleted: false}, &stubContentRepo{}, &stubAnalysisRepo{}, &stubGenerator{}, &stubEmailSender{}, &stubEmailRecorder{})

	req := authedRequest(http.MethodDelete, "/api/newsletters/x", nil, uuid.New())
	req = withURLParam(req, "id", uuid.NewString())
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestExportFormats(t *testing.T) {
	repo := &stubNewsletterRepo{byID: &models.Newsletter{
		ID:              uuid.New(),
		Title:           "Weekly Digest #4",
		ContentMarkdown: "## Digest\n\nThis week in **growth**.",
	}}
	h := newsletterHandlerFixture(repo, &stubContentRepo{}, &stubAnalysisRepo{}, &stubGenerator{}, &stubEmailSender{}, &stubEmailRecorder{})

	tests := []struct {
		format      string
		contentType string
		ext         string
		contains    string
	}{
		{"html", "text/html; charset=utf-8", ".html", "<h2"},
		{"markdown", "text/markdown; charset=utf-8", ".md", "## Digest"},
		{"text", "text/plain; charset=utf-8", ".txt", "This week in growth."},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			req := authedRequest(http.MethodGet, "/api/newsletters/x/export?format="+tt.format, nil, uuid.New())
			req = withURLParam(req, "id", repo.byID.ID.String())
			rec := httptest.NewRecorder()
			h.Export(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("expected content type %q, got %q", tt.contentType, got)
			}
			if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, tt.ext) || !strings.Contains(cd, "attachment") {
				t.Errorf("unexpected content disposition %q", cd)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("expected body to contain %q, got %q", tt.contains, rec.Body.String())
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		req := authedRequest(http.MethodGet, "/api/newsletters/x/export?format=pdf", nil, uuid.New())
		req = withURLParam(req, "id", repo.byID.ID.String())
		rec := httptest.NewRecorder()
		h.Export(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
