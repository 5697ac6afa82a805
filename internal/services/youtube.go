package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"
)

type YouTubeService struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
}

func NewYouTubeService() *YouTubeService {
	return &YouTubeService{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{},
	}
}

// videoIDPatterns are tried in order; the first capture wins. IDs are
// taken as-is rather than length-checked, since shorts and future
// formats vary.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=([^&\n?#]+)`),
	regexp.MustCompile(`youtu\.be/([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([^&\n?#]+)`),
}

// ExtractVideoID pulls the video id out of any recognized YouTube URL
// shape. Returns an empty string when the URL is not a YouTube link.
func ExtractVideoID(videoURL string) string {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(videoURL); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// TranscriptResult carries the joined caption text plus a duration
// estimate derived from the segment count.
type TranscriptResult struct {
	Transcript      string
	SegmentCount    int
	DurationMinutes int
}

// GetTranscript fetches captions for a video, preferring English tracks
// and falling back to any available language.
func (s *YouTubeService) GetTranscript(videoID string) (*TranscriptResult, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			return nil, fmt.Errorf("no captions available: %w", err)
		}
	}

	if len(transcript.Entries) == 0 {
		return nil, fmt.Errorf("caption track is empty")
	}

	var fullText strings.Builder
	segments := 0
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		fullText.WriteString(text)
		fullText.WriteString(" ")
		segments++
	}

	cleaned := strings.TrimSpace(fullText.String())
	if cleaned == "" {
		return nil, fmt.Errorf("caption text resolved to empty content")
	}

	return &TranscriptResult{
		Transcript:      cleaned,
		SegmentCount:    segments,
		DurationMinutes: estimateDurationFromSegments(segments),
	}, nil
}

// Caption segments run about 150 per minute of video.
func estimateDurationFromSegments(segments int) int {
	if segments == 0 {
		return 0
	}
	return (segments + 149) / 150
}

// GetVideoTitle resolves the video title via the oEmbed endpoint, which
// needs no API key. Falls back to a generic title on any failure.
func (s *YouTubeService) GetVideoTitle(videoID string) string {
	oembedURL := fmt.Sprintf("https://www.youtube.com/oembed?url=https://www.youtube.com/watch?v=%s&format=json", videoID)

	resp, err := s.httpClient.Get(oembedURL)
	if err != nil {
		return "YouTube Video"
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "YouTube Video"
	}

	var payload struct {
		Title      string `json:"title"`
		AuthorName string `json:"author_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Title == "" {
		return "YouTube Video"
	}

	return payload.Title
}

// DownloadAudio pulls the best audio-only stream; used when a video has
// no captions and the transcript must come from speech-to-text instead.
func (s *YouTubeService) DownloadAudio(videoURL string) ([]byte, string, error) {
	video, err := s.ytClient.GetVideo(videoURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch YouTube video metadata: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, "", fmt.Errorf("no audio formats available")
	}

	best := formats[0]
	for _, f := range formats {
		if f.Bitrate > best.Bitrate {
			best = f
		}
	}

	stream, _, err := s.ytClient.GetStream(video, &best)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	const maxAudioBytes = 100 * 1024 * 1024 // 100MB safety cap
	limited := io.LimitReader(stream, maxAudioBytes+1)
	audioBytes, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audio stream: %w", err)
	}
	if len(audioBytes) > maxAudioBytes {
		return nil, "", fmt.Errorf("audio stream exceeds %d MB limit", maxAudioBytes/(1024*1024))
	}

	mimeType := strings.TrimSpace(strings.Split(best.MimeType, ";")[0])
	if mimeType == "" {
		mimeType = "audio/mp4"
	}

	return audioBytes, mimeType, nil
}
