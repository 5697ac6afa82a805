package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"newsletterai-backend/internal/middleware"
	"newsletterai-backend/internal/models"
	"newsletterai-backend/internal/services"
)

// Repo interfaces are defined handler-side so tests can stub them.

type contentRepository interface {
	Create(ctx context.Context, content *models.ContentSource) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ContentSource, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ContentSource, error)
}

type analysisRepository interface {
	Create(ctx context.Context, a *models.ContentAnalysis) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ContentAnalysis, error)
	GetByContentSourceID(ctx context.Context, contentSourceID, userID uuid.UUID) (*models.ContentAnalysis, error)
}

type quotaUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	ConsumeQuota(ctx context.Context, userID uuid.UUID) (bool, error)
	ReleaseQuota(ctx context.Context, userID uuid.UUID) error
}

type usageRecorder interface {
	InsertEvent(ctx context.Context, userID uuid.UUID, eventType string, metadata map[string]interface{}) error
}

type contentAcquirer interface {
	Acquire(ctx context.Context, source models.ImportSource) (*models.AcquiredContent, error)
}

type contentAnalyzer interface {
	AnalyzeContent(ctx context.Context, transcript, title string) (*models.AnalysisResult, error)
}

type ContentHandler struct {
	contentRepo  contentRepository
	analysisRepo analysisRepository
	userRepo     quotaUserRepository
	usageRepo    usageRecorder
	acquirer     contentAcquirer
	analyzer     contentAnalyzer
}

func NewContentHandler(
	contentRepo contentRepository,
	analysisRepo analysisRepository,
	userRepo quotaUserRepository,
	usageRepo usageRecorder,
	acquirer contentAcquirer,
	analyzer contentAnalyzer,
) *ContentHandler {
	return &ContentHandler{
		contentRepo:  contentRepo,
		analysisRepo: analysisRepo,
		userRepo:     userRepo,
		usageRepo:    usageRepo,
		acquirer:     acquirer,
		analyzer:     analyzer,
	}
}

type importRequest struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Text string `json:"text"`
}

const maxUploadBytes = 100 * 1024 * 1024

// Import acquires content from a source and stores it. One import
// consumes one usage unit; the unit is returned if persistence fails.
func (h *ContentHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	source, err := parseImportSource(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	// Fast pre-check before doing any expensive acquisition work. The
	// authoritative check is the atomic consume below.
	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if user.UsageCount >= user.UsageLimit {
		handleServiceError(w, r, services.NewQuotaExceededError(user.UsageCount, user.UsageLimit))
		return
	}

	acquired, err := h.acquirer.Acquire(r.Context(), source)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	consumed, err := h.userRepo.ConsumeQuota(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !consumed {
		handleServiceError(w, r, services.NewQuotaExceededError(user.UsageLimit, user.UsageLimit))
		return
	}

	metadata, _ := json.Marshal(acquired.Metadata)

	var sourceURL *string
	switch src := source.(type) {
	case models.VideoSource:
		sourceURL = &src.URL
	case models.AudioSource:
		if src.URL != "" {
			sourceURL = &src.URL
		}
	case models.ArticleSource:
		sourceURL = &src.URL
	}

	content := &models.ContentSource{
		UserID:          userID,
		Type:            models.SourceType(source),
		URL:             sourceURL,
		Title:           acquired.Title,
		Transcript:      acquired.Transcript,
		Metadata:        metadata,
		WordCount:       len(strings.Fields(acquired.Transcript)),
		DurationMinutes: acquired.DurationMinutes,
	}

	if err := h.contentRepo.Create(r.Context(), content); err != nil {
		// Give the unit back: nothing was persisted.
		if relErr := h.userRepo.ReleaseQuota(r.Context(), userID); relErr != nil {
			log.Printf("failed to release quota for user %s: %v", userID, relErr)
		}
		handleServiceError(w, r, err)
		return
	}

	if err := h.usageRepo.InsertEvent(r.Context(), userID, "content_imported", map[string]interface{}{
		"contentSourceId": content.ID.String(),
		"type":            content.Type,
	}); err != nil {
		log.Printf("failed to record usage event: %v", err)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"contentSourceId": content.ID,
		"title":           content.Title,
		"wordCount":       content.WordCount,
	})
}

func parseImportSource(r *http.Request) (models.ImportSource, error) {
	contentType := r.Header.Get("Content-Type")

	// Multipart: form fields type + input, file only for podcast uploads
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, services.NewValidationError("Invalid multipart form", nil)
		}

		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()

			data, readErr := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
			if readErr != nil {
				return nil, services.NewValidationError("Could not read uploaded file", nil)
			}
			if len(data) > maxUploadBytes {
				return nil, services.NewValidationError("Uploaded file is too large", map[string]string{"file": "too large"})
			}

			return models.AudioSource{FileName: header.Filename, Data: data}, nil
		}

		input := r.FormValue("input")
		return sourceFromFields(r.FormValue("type"), input, input)
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, services.NewValidationError("Invalid request body", nil)
	}

	return sourceFromFields(req.Type, req.URL, req.Text)
}

func sourceFromFields(sourceType, url, text string) (models.ImportSource, error) {
	switch sourceType {
	case "youtube":
		if url == "" {
			return nil, services.NewValidationError("URL is required", map[string]string{"url": "required"})
		}
		return models.VideoSource{URL: url}, nil
	case "podcast":
		if url == "" {
			return nil, services.NewValidationError("URL is required", map[string]string{"url": "required"})
		}
		return models.AudioSource{URL: url}, nil
	case "blog":
		if url == "" {
			return nil, services.NewValidationError("URL is required", map[string]string{"url": "required"})
		}
		return models.ArticleSource{URL: url}, nil
	case "text":
		if strings.TrimSpace(text) == "" {
			return nil, services.NewValidationError("Text is required", map[string]string{"text": "required"})
		}
		return models.TextSource{Text: text}, nil
	default:
		return nil, services.NewValidationError("Unknown source type", map[string]string{"type": "must be youtube, podcast, blog, or text"})
	}
}

func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid content id", r))
		return
	}

	content, err := h.contentRepo.GetByID(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			handleServiceError(w, r, services.NewNotFoundError("content source"))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sources, err := h.contentRepo.ListByUser(r.Context(), userID, 50)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"contentSources": sources})
}

// Analyze runs the structured analysis over a stored content source.
func (h *ContentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
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

	result, err := h.analyzer.AnalyzeContent(r.Context(), content.Transcript, content.Title)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	fullAnalysis, err := json.Marshal(result)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	analysis := &models.ContentAnalysis{
		ContentSourceID: content.ID,
		MainTopic:       result.MainTopic,
		SubTopics:       result.SubTopics,
		KeyTakeaways:    result.KeyTakeaways,
		Quotes:          result.Quotes,
		TargetAudience:  result.TargetAudience,
		PainPoints:      result.PainPoints,
		SuggestedCTAs:   result.SuggestedCTAs,
		Sentiment:       result.Sentiment,
		Difficulty:      result.Difficulty,
		FullAnalysis:    fullAnalysis,
	}

	if err := h.analysisRepo.Create(r.Context(), analysis); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"analysisId": analysis.ID,
		"analysis":   analysis,
	})
}
