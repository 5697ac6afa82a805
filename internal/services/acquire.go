package services

import (
	"context"
	"fmt"
	"strings"

	"newsletterai-backend/internal/models"
)

// Acquirer fans out to the per-source adapters and normalizes their
// output. One type switch covers every supported source kind.
type Acquirer struct {
	youtube *YouTubeService
	podcast *PodcastService
	scraper *ScraperService
	gemini  *GeminiService
}

// Anything shorter is noise, not content worth a newsletter.
const minTranscriptChars = 50

func NewAcquirer(youtube *YouTubeService, podcast *PodcastService, scraper *ScraperService, gemini *GeminiService) *Acquirer {
	return &Acquirer{
		youtube: youtube,
		podcast: podcast,
		scraper: scraper,
		gemini:  gemini,
	}
}

func (a *Acquirer) Acquire(ctx context.Context, source models.ImportSource) (*models.AcquiredContent, error) {
	var (
		content *models.AcquiredContent
		err     error
	)

	switch src := source.(type) {
	case models.VideoSource:
		content, err = a.acquireVideo(ctx, src)
	case models.AudioSource:
		content, err = a.acquireAudio(ctx, src)
	case models.ArticleSource:
		content, err = a.acquireArticle(src)
	case models.TextSource:
		content, err = a.acquireText(src)
	default:
		return nil, NewValidationError("unsupported source type", nil)
	}

	if err != nil {
		return nil, err
	}

	content.Transcript = strings.TrimSpace(content.Transcript)
	if len(content.Transcript) < minTranscriptChars {
		return nil, NewValidationError(
			fmt.Sprintf("content is too short to work with (%d chars, need at least %d)", len(content.Transcript), minTranscriptChars),
			map[string]string{"transcript": "too short"},
		)
	}

	return content, nil
}

func (a *Acquirer) acquireVideo(ctx context.Context, src models.VideoSource) (*models.AcquiredContent, error) {
	videoID := ExtractVideoID(src.URL)
	if videoID == "" {
		return nil, NewValidationError("not a recognizable YouTube URL", map[string]string{"url": "invalid"})
	}

	title := a.youtube.GetVideoTitle(videoID)

	result, err := a.youtube.GetTranscript(videoID)
	if err == nil {
		return &models.AcquiredContent{
			Transcript: result.Transcript,
			Title:      title,
			Metadata: map[string]interface{}{
				"videoId":      videoID,
				"segmentCount": result.SegmentCount,
				"captionBased": true,
			},
			DurationMinutes: result.DurationMinutes,
		}, nil
	}

	// No captions: pull the audio track and transcribe it instead.
	audio, mimeType, dlErr := a.youtube.DownloadAudio(src.URL)
	if dlErr != nil {
		return nil, NewExtractionError("youtube", fmt.Sprintf("no captions (%v) and audio fallback failed (%v)", err, dlErr))
	}

	transcript, sttErr := a.gemini.TranscribeAudio(ctx, audio, mimeType)
	if sttErr != nil {
		return nil, sttErr
	}

	words := len(strings.Fields(transcript))
	return &models.AcquiredContent{
		Transcript: transcript,
		Title:      title,
		Metadata: map[string]interface{}{
			"videoId":      videoID,
			"captionBased": false,
		},
		DurationMinutes: estimateDurationFromWords(words),
	}, nil
}

func (a *Acquirer) acquireAudio(ctx context.Context, src models.AudioSource) (*models.AcquiredContent, error) {
	var (
		result *PodcastResult
		err    error
	)

	switch {
	case len(src.Data) > 0:
		result, err = a.podcast.TranscribeUpload(ctx, src.Data, src.FileName)
	case src.URL != "":
		result, err = a.podcast.TranscribeURL(ctx, src.URL)
	default:
		return nil, NewValidationError("podcast source needs a URL or an uploaded file", map[string]string{"url": "missing"})
	}
	if err != nil {
		return nil, err
	}

	return &models.AcquiredContent{
		Transcript: result.Transcript,
		Title:      result.Title,
		Metadata: map[string]interface{}{
			"transcribed": true,
		},
		DurationMinutes: result.DurationMinutes,
	}, nil
}

func (a *Acquirer) acquireArticle(src models.ArticleSource) (*models.AcquiredContent, error) {
	if src.URL == "" {
		return nil, NewValidationError("blog source needs a URL", map[string]string{"url": "missing"})
	}

	article, err := a.scraper.Scrape(src.URL)
	if err != nil {
		return nil, err
	}

	return &models.AcquiredContent{
		Transcript: article.Text,
		Title:      article.Title,
		Metadata: map[string]interface{}{
			"scraped": true,
		},
	}, nil
}

func (a *Acquirer) acquireText(src models.TextSource) (*models.AcquiredContent, error) {
	text := strings.TrimSpace(src.Text)

	return &models.AcquiredContent{
		Transcript: text,
		Title:      "Pasted content",
		Metadata: map[string]interface{}{
			"pasted": true,
		},
	}, nil
}
