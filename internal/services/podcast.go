package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
)

// PodcastService turns podcast audio (remote URL or uploaded file) into
// a transcript via speech-to-text.
type PodcastService struct {
	httpClient *http.Client
	gemini     *GeminiService
}

const maxPodcastBytes = 100 * 1024 * 1024 // 100MB

func NewPodcastService(gemini *GeminiService) *PodcastService {
	return &PodcastService{
		// Long timeout: podcast files run large
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		gemini:     gemini,
	}
}

type PodcastResult struct {
	Transcript      string
	Title           string
	DurationMinutes int
}

// TranscribeURL downloads a remote audio file and transcribes it.
func (s *PodcastService) TranscribeURL(ctx context.Context, audioURL string) (*PodcastResult, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", audioURL, nil)
	if err != nil {
		return nil, NewExtractionError("podcast", fmt.Sprintf("invalid URL: %v", err))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, NewExtractionError("podcast", fmt.Sprintf("download failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewExtractionError("podcast", fmt.Sprintf("got status %d", resp.StatusCode))
	}

	limited := io.LimitReader(resp.Body, maxPodcastBytes+1)
	audio, err := io.ReadAll(limited)
	if err != nil {
		return nil, NewExtractionError("podcast", fmt.Sprintf("read failed: %v", err))
	}
	if len(audio) > maxPodcastBytes {
		return nil, NewExtractionError("podcast", fmt.Sprintf("audio exceeds %d MB limit", maxPodcastBytes/(1024*1024)))
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimeTypeFromName(audioURL)
	}

	return s.transcribe(ctx, audio, mimeType, titleFromAudioName(audioURL))
}

// TranscribeUpload transcribes audio bytes from a multipart upload.
func (s *PodcastService) TranscribeUpload(ctx context.Context, audio []byte, fileName string) (*PodcastResult, error) {
	if len(audio) == 0 {
		return nil, NewExtractionError("podcast", "uploaded file is empty")
	}
	if len(audio) > maxPodcastBytes {
		return nil, NewExtractionError("podcast", fmt.Sprintf("audio exceeds %d MB limit", maxPodcastBytes/(1024*1024)))
	}

	return s.transcribe(ctx, audio, mimeTypeFromName(fileName), titleFromAudioName(fileName))
}

func (s *PodcastService) transcribe(ctx context.Context, audio []byte, mimeType, title string) (*PodcastResult, error) {
	transcript, err := s.gemini.TranscribeAudio(ctx, audio, mimeType)
	if err != nil {
		return nil, err
	}

	words := len(strings.Fields(transcript))
	return &PodcastResult{
		Transcript:      transcript,
		Title:           title,
		DurationMinutes: estimateDurationFromWords(words),
	}, nil
}

// Spoken audio runs about 150 words per minute.
func estimateDurationFromWords(words int) int {
	if words == 0 {
		return 0
	}
	return (words + 149) / 150
}

func mimeTypeFromName(name string) string {
	switch strings.ToLower(path.Ext(stripQuery(name))) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".wav":
		return "audio/wav"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".aac":
		return "audio/aac"
	default:
		return "audio/mpeg"
	}
}

func titleFromAudioName(name string) string {
	base := path.Base(stripQuery(name))
	ext := path.Ext(base)
	base = strings.TrimSuffix(base, ext)
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	base = strings.TrimSpace(base)
	if base == "" || base == "/" || base == "." {
		return "Podcast Episode"
	}
	return base
}

func stripQuery(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		return name[:i]
	}
	return name
}
