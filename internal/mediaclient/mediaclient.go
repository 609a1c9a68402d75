package mediaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"clippilot/internal/runtime"
	"clippilot/models"
)

// Endpoint is one backend capability: a base URL plus its bearer token.
type Endpoint struct {
	URL   string
	Token string
}

// Config holds the three media backend endpoints. Any endpoint left
// unconfigured fails the step that needs it with a permanent error.
type Config struct {
	Transcription      Endpoint
	ClipIdentification Endpoint
	ClipRendering      Endpoint
}

// Client calls the external AI/media backends over HTTP JSON.
type Client struct {
	cfg  Config
	http *http.Client
	log  *logrus.Logger
}

// New creates a media gateway client. The HTTP client has no timeout of its
// own: transcription and rendering calls are long-running and the execution
// runtime owns cancellation through the request context.
func New(cfg Config, log *logrus.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
		log:  log,
	}
}

// TranscriptSegment is one diarized span returned by the transcription
// backend.
type TranscriptSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}

type transcriptionRequest struct {
	YoutubeURL string `json:"youtube_url"`
}

// TranscriptionResponse is the transcription backend's payload.
type TranscriptionResponse struct {
	Transcription []TranscriptSegment `json:"transcription"`
}

// Transcribe requests a speaker-attributed transcript for a YouTube video.
func (c *Client) Transcribe(ctx context.Context, youtubeURL string) (*TranscriptionResponse, error) {
	var out TranscriptionResponse
	err := c.postJSON(ctx, c.cfg.Transcription, "transcription", transcriptionRequest{YoutubeURL: youtubeURL}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// IdentifyClipsRequest asks the backend to find viral clip candidates.
type IdentifyClipsRequest struct {
	YoutubeURL string `json:"youtube_url"`
	S3KeyYT    string `json:"s3_key_yt"`
	Prompt     string `json:"prompt"`
}

// IdentifiedClip is one clip candidate. Numeric fields may arrive as numbers
// or numeric strings, hence the Flex types.
type IdentifiedClip struct {
	Start         models.FlexString `json:"start"`
	End           models.FlexString `json:"end"`
	Title         string            `json:"title"`
	Summary       string            `json:"summary"`
	ViralityScore models.FlexString `json:"virality_score"`
	RelatedTopics []string          `json:"related_topics"`
	Transcript    string            `json:"transcript"`
}

// IdentifyClipsResponse is the clip-identification backend's payload.
type IdentifyClipsResponse struct {
	IdentifiedClips  []IdentifiedClip  `json:"identified_clips"`
	TotalClips       models.FlexInt    `json:"total_clips"`
	VideoDuration    models.FlexString `json:"video_duration"`
	DetectedLanguage string            `json:"detected_language"`
	S3Path           string            `json:"s3_path"`
}

// IdentifyClips requests viral clip candidates for a YouTube video.
func (c *Client) IdentifyClips(ctx context.Context, req IdentifyClipsRequest) (*IdentifyClipsResponse, error) {
	var out IdentifyClipsResponse
	err := c.postJSON(ctx, c.cfg.ClipIdentification, "clip-identification", req, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ClipRange is a time range in floating-point seconds.
type ClipRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ProcessClipsRequest asks the rendering backend to cut and export clips.
type ProcessClipsRequest struct {
	S3Key                 string                `json:"s3_key"`
	Clips                 []ClipRange           `json:"clips"`
	Prompt                string                `json:"prompt"`
	TargetLanguage        *string               `json:"target_language"`
	AspectRatio           string                `json:"aspect_ratio"`
	Subtitles             bool                  `json:"subtitles"`
	SubtitleCustomization SubtitleCustomization `json:"subtitle_customization"`
}

// ProcessedClip is one rendered artifact reported by the rendering backend.
type ProcessedClip struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	S3Key string  `json:"s3_key"`
}

// ProcessClipsResponse is the rendering backend's payload.
type ProcessClipsResponse struct {
	ProcessedClips []ProcessedClip `json:"processed_clips"`
}

// ProcessClips requests rendering and export of the given clip ranges.
func (c *Client) ProcessClips(ctx context.Context, req ProcessClipsRequest) (*ProcessClipsResponse, error) {
	var out ProcessClipsResponse
	err := c.postJSON(ctx, c.cfg.ClipRendering, "clip-rendering", req, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, ep Endpoint, name string, payload interface{}, out interface{}) error {
	if ep.URL == "" {
		return runtime.Permanent(fmt.Errorf("%s endpoint URL is not configured", name))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ep.Token != "" {
		req.Header.Set("Authorization", "Bearer "+ep.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", name, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"backend":    name,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Info("Media backend call finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s request failed: %s", name, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", name, err)
	}
	return nil
}
