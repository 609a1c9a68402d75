package models

import (
	"time"

	"github.com/google/uuid"
)

// Clip represents a candidate viral clip identified within a Video.
// Start, End and ViralityScore are stored as strings because the upstream
// backend mixes numeric and string-encoded numbers; stringifying keeps the
// stored representation uniform. Clips are immutable once created.
type Clip struct {
	ID            uuid.UUID `json:"id"`
	VideoID       uuid.UUID `json:"video_id"`
	Start         string    `json:"start"`
	End           string    `json:"end"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	ViralityScore string    `json:"virality_score"`
	RelatedTopics []string  `json:"related_topics"`
	Transcript    string    `json:"transcript"`
	CreatedAt     time.Time `json:"created_at"`
}

// ExportedClip represents a rendered clip artifact. The time range is
// arbitrary and does not have to match a stored Clip row. AspectRatio and
// TargetLanguage are denormalized per export because the same Video can be
// exported multiple times with different settings.
type ExportedClip struct {
	ID             uuid.UUID `json:"id"`
	VideoID        uuid.UUID `json:"video_id"`
	Start          string    `json:"start"`
	End            string    `json:"end"`
	S3Key          string    `json:"s3_key"`
	AspectRatio    string    `json:"aspect_ratio"`
	TargetLanguage *string   `json:"target_language,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
