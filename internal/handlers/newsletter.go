package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"newsletterai-backend/internal/middleware"
	"newsletterai-backend/internal/models"
	"newsletterai-backend/internal/services"
)

type newsletterRepository interface {
	Create(ctx context.Context, n *models.Newsletter) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Newsletter, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Newsletter, error)
	UpdateDraft(ctx context.Context, id, userID uuid.UUID, req *models.UpdateNewsletterRequest, contentHTML *string, wordCount, readingTime int) error
	UpdateSubjectLines(ctx context.Context, id, userID uuid.UUID, lines []models.SubjectLine) error
	UpdateStatus(ctx context.Context, id, userID uuid.UUID, status string) error
	Delete(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type newsletterGenerator interface {
	GenerateNewsletter(ctx context.Context, transcript string, analysis *models.AnalysisResult, tone, length, structure string) (*models.GeneratedNewsletter, error)
	GenerateSubjectLines(ctx context.Context, newsletterContent string, analysis *models.AnalysisResult) ([]models.SubjectLine, error)
}

type testEmailSender interface {
	SendNewsletterTest(to, subject, htmlBody, textBody string) error
}

type testEmailRecorder interface {
	InsertTestEmail(ctx context.Context, te *models.TestEmail) error
	CountTestEmailsSince(ctx context.Context, userID uuid.UUID, windowMinutes int) (int, error)
}

type NewsletterHandler struct {
	newsletterRepo newsletterRepository
	contentRepo    contentRepository
	analysisRepo   analysisRepository
	usageRepo      usageRecorder
	emailRepo      testEmailRecorder
	generator      newsletterGenerator
	markdown       *services.MarkdownService
	email          testEmailSender
}

func NewNewsletterHandler(
	newsletterRepo newsletterRepository,
	contentRepo contentRepository,
	analysisRepo analysisRepository,
	usageRepo usageRecorder,
	emailRepo testEmailRecorder,
	generator newsletterGenerator,
	markdown *services.MarkdownService,
	email testEmailSender,
) *NewsletterHandler {
	return &NewsletterHandler{
		newsletterRepo: newsletterRepo,
		contentRepo:    contentRepo,
		analysisRepo:   analysisRepo,
		usageRepo:      usageRepo,
		emailRepo:      emailRepo,
		generator:      generator,
		markdown:       markdown,
		email:          email,
	}
}

var validTones = map[string]bool{"professional": true, "friendly": true, "casual": true, "educational": true}
var validLengths = map[string]bool{"quick": true, "standard": true, "deep": true}
var validStructures = map[string]bool{"story-led": true, "listicle": true, "tutorial": true, "mixed": true}
var validStatuses = map[string]bool{"draft": true, "ready": true, "archived": true}

// Generate turns an analyzed content source into a newsletter draft.
func (h *NewsletterHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.GenerateNewsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Tone == "" {
		req.Tone = "professional"
	}
	if req.Length == "" {
		req.Length = "standard"
	}
	if req.Structure == "" {
		req.Structure = "mixed"
	}

	fieldErrors := make(map[string]string)
	if !validTones[req.Tone] {
		fieldErrors["tone"] = "must be professional, friendly, casual, or educational"
	}
	if !validLengths[req.Length] {
		fieldErrors["length"] = "must be quick, standard, or deep"
	}
	if !validStructures[req.Structure] {
		fieldErrors["structure"] = "must be story-led, listicle, tutorial, or mixed"
	}
	if len(fieldErrors) > 0 {
		handleServiceError(w, r, services.NewValidationError("Validation error", fieldErrors))
		return
	}

	content, err := h.contentRepo.GetByID(r.Context(), req.ContentSourceID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			handleServiceError(w, r, services.NewNotFoundError("content source"))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	analysis, result, err := h.resolveAnalysis(r.Context(), req.AnalysisID, content.ID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	generated, err := h.generator.GenerateNewsletter(r.Context(), content.Transcript, result, req.Tone, req.Length, req.Structure)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	contentHTML := h.markdown.RenderBodyHTML(generated.Content)
	wordCount := h.markdown.CountWords(generated.Content)
	readingTime := h.markdown.ReadingTimeMinutes(generated.Content)

	metadata, _ := json.Marshal(generated.Metadata)

	newsletter := &models.Newsletter{
		UserID:             userID,
		ContentSourceID:    content.ID,
		AnalysisID:         analysis.ID,
		Title:              content.Title,
		SubjectLines:       generated.SubjectLines,
		ContentMarkdown:    generated.Content,
		ContentHTML:        contentHTML,
		Tone:               req.Tone,
		Length:             req.Length,
		Structure:          req.Structure,
		WordCount:          wordCount,
		ReadingTimeMinutes: readingTime,
		Status:             "draft",
		Metadata:           metadata,
	}

	if err := h.newsletterRepo.Create(r.Context(), newsletter); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.usageRepo.InsertEvent(r.Context(), userID, "newsletter_generated", map[string]interface{}{
		"newsletterId": newsletter.ID.String(),
		"tone":         req.Tone,
		"length":       req.Length,
	}); err != nil {
		log.Printf("failed to record usage event: %v", err)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"newsletterId": newsletter.ID,
		"newsletter":   newsletter,
	})
}

// resolveAnalysis loads the requested analysis, falling back to the
// latest one for the content source when no id was given.
func (h *NewsletterHandler) resolveAnalysis(ctx context.Context, analysisID, contentSourceID, userID uuid.UUID) (*models.ContentAnalysis, *models.AnalysisResult, error) {
	var (
		analysis *models.ContentAnalysis
		err      error
	)

	if analysisID != uuid.Nil {
		analysis, err = h.analysisRepo.GetByID(ctx, analysisID, userID)
	} else {
		analysis, err = h.analysisRepo.GetByContentSourceID(ctx, contentSourceID, userID)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, services.NewNotFoundError("analysis")
		}
		return nil, nil, err
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(analysis.FullAnalysis, &result); err != nil {
		return nil, nil, fmt.Errorf("stored analysis is unreadable: %w", err)
	}

	return analysis, &result, nil
}

// SubjectLines regenerates the candidate subjects for a newsletter.
func (h *NewsletterHandler) SubjectLines(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.SubjectLinesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	newsletter, err := h.newsletterRepo.GetByID(r.Context(), req.NewsletterID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			handleServiceError(w, r, services.NewNotFoundError("newsletter"))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	var result *models.AnalysisResult
	if analysis, aerr := h.analysisRepo.GetByID(r.Context(), newsletter.AnalysisID, userID); aerr == nil {
		var decoded models.AnalysisResult
		if json.Unmarshal(analysis.FullAnalysis, &decoded) == nil {
			result = &decoded
		}
	}

	lines, err := h.generator.GenerateSubjectLines(r.Context(), newsletter.ContentMarkdown, result)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.newsletterRepo.UpdateSubjectLines(r.Context(), newsletter.ID, userID, lines); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subjectLines": lines})
}

var recipientEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const testEmailsPerHour = 10

// TestEmail sends a preview of the newsletter to one recipient.
func (h *NewsletterHandler) TestEmail(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.TestEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if !recipientEmailRegex.MatchString(req.RecipientEmail) {
		handleServiceError(w, r, services.NewValidationError("Validation error", map[string]string{"recipientEmail": "Invalid email format"}))
		return
	}

	sent, err := h.emailRepo.CountTestEmailsSince(r.Context(), userID, 60)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if sent >= testEmailsPerHour {
		handleServiceError(w, r, services.NewRateLimitError("Test email limit reached. Try again in an hour."))
		return
	}

	newsletter, err := h.newsletterRepo.GetByID(r.Context(), req.NewsletterID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			handleServiceError(w, r, services.NewNotFoundError("newsletter"))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	subject := newsletter.Title
	if newsletter.SelectedSubjectLine != nil && *newsletter.SelectedSubjectLine != "" {
		subject = *newsletter.SelectedSubjectLine
	} else if len(newsletter.SubjectLines) > 0 {
		subject = newsletter.SubjectLines[0].Text
	}
	subject = "[Test] " + subject

	htmlBody := h.markdown.RenderEmailHTML(newsletter.ContentMarkdown, newsletter.Title)
	textBody := h.markdown.RenderPlainText(newsletter.ContentMarkdown)

	if err := h.email.SendNewsletterTest(req.RecipientEmail, subject, htmlBody, textBody); err != nil {
		handleServiceError(w, r, services.NewVendorError("smtp", err))
		return
	}

	record := &models.TestEmail{
		NewsletterID:   newsletter.ID,
		UserID:         userID,
		RecipientEmail: req.RecipientEmail,
		SubjectLine:    &subject,
	}
	if err := h.emailRepo.InsertTestEmail(r.Context(), record); err != nil {
		log.Printf("failed to record test email: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Test email sent",
		"recipientEmail": req.RecipientEmail,
		"subjectLine":    subject,
	})
}

func (h *NewsletterHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 20
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	newsletters, err := h.newsletterRepo.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"newsletters": newsletters})
}

func (h *NewsletterHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid newsletter id", r))
		return
	}

	newsletter, err := h.newsletterRepo.GetByID(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			handleServiceError(w, r, services.NewNotFoundError("newsletter"))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newsletter)
}

// Update applies editor autosave changes.
func (h *NewsletterHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid newsletter id", r))
		return
	}

	var req models.UpdateNewsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.ContentMarkdown == nil && req.SelectedSubjectLine == nil && req.Title == nil {
		handleServiceError(w, r, services.NewValidationError("Nothing to update", nil))
		return
	}

	// Ownership check before the blind UPDATE
	if _, err := h.newsletterRepo.GetByID(r.Context(), id, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			handleServiceError(w, r, services.NewNotFoundError("newsletter"))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	var contentHTML *string
	wordCount, readingTime := 0, 0
	if req.ContentMarkdown != nil {
		rendered := h.markdown.RenderBodyHTML(*req.ContentMarkdown)
		contentHTML = &rendered
		wordCount = h.markdown.CountWords(*req.ContentMarkdown)
		readingTime = h.markdown.ReadingTimeMinutes(*req.ContentMarkdown)
	}

	if err := h.newsletterRepo.UpdateDraft(r.Context(), id, userID, &req, contentHTML, wordCount, readingTime); err != nil {
		handleServiceError(w, r, err)
		return
	}

	updated, err := h.newsletterRepo.GetByID(r.Context(), id, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *NewsletterHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid newsletter id", r))
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if !validStatuses[req.Status] {
		handleServiceError(w, r, services.NewValidationError("Validation error", map[string]string{"status": "must be draft, ready, or archived"}))
		return
	}

	if _, err := h.newsletterRepo.GetByID(r.Context(), id, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			handleServiceError(w, r, services.NewNotFoundError("newsletter"))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	if err := h.newsletterRepo.UpdateStatus(r.Context(), id, userID, req.Status); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *NewsletterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid newsletter id", r))
		return
	}

	deleted, err := h.newsletterRepo.Delete(r.Context(), id, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !deleted {
		handleServiceError(w, r, services.NewNotFoundError("newsletter"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Newsletter deleted"})
}

// Export downloads the newsletter in the requested format.
func (h *NewsletterHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid newsletter id", r))
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}

	newsletter, err := h.newsletterRepo.GetByID(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			handleServiceError(w, r, services.NewNotFoundError("newsletter"))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	var (
		body        string
		contentType string
		ext         string
	)

	switch format {
	case "html":
		body = h.markdown.RenderEmailHTML(newsletter.ContentMarkdown, newsletter.Title)
		contentType = "text/html; charset=utf-8"
		ext = "html"
	case "markdown":
		body = newsletter.ContentMarkdown
		contentType = "text/markdown; charset=utf-8"
		ext = "md"
	case "text":
		body = h.markdown.RenderPlainText(newsletter.ContentMarkdown)
		contentType = "text/plain; charset=utf-8"
		ext = "txt"
	default:
		handleServiceError(w, r, services.NewValidationError("Validation error", map[string]string{"format": "must be html, markdown, or text"}))
		return
	}

	filename := services.ExportFilename(newsletter.Title, ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
