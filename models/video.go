package models

import (
	"time"

	"github.com/google/uuid"
)

// Video represents the structure of a source video in the database.
// Metadata fields are nullable because they are filled in only after the
// clip-identification backend has analyzed the video.
type Video struct {
	ID               uuid.UUID `json:"id"`
	UserID           string    `json:"user_id"`
	YoutubeURL       string    `json:"youtube_url"`
	S3Key            string    `json:"s3_key"`
	Prompt           string    `json:"prompt"`
	TotalClips       *int      `json:"total_clips,omitempty"`
	VideoDuration    *string   `json:"video_duration,omitempty"`
	DetectedLanguage *string   `json:"detected_language,omitempty"`
	S3Path           *string   `json:"s3_path,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// VideoMetadata carries the derived fields written back onto a Video row
// after the clip-identification backend responds.
type VideoMetadata struct {
	TotalClips       int    `json:"total_clips"`
	VideoDuration    string `json:"video_duration"`
	DetectedLanguage string `json:"detected_language"`
	S3Path           string `json:"s3_path"`
}
