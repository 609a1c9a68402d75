package models

import (
	"time"

	"github.com/google/uuid"
)

// Status values shared by Transcription and Mindmap rows. Consumers poll these
// to infer pipeline progress, so a status must never claim completion before
// the corresponding data is durably persisted.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Transcription represents a speaker-attributed transcription job for a
// YouTube video. Segments are attached in bulk once the transcription backend
// responds; status flips to completed in the same step.
type Transcription struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"user_id"`
	YoutubeURL string    `json:"youtube_url"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// TranscriptionSegment is a single diarized span of the transcript.
// Speaker holds the raw diarization label (e.g. "SPEAKER_00"); SpeakerName is
// a user-assigned display name set through the speaker rename endpoint, never
// by the pipeline.
type TranscriptionSegment struct {
	ID              uuid.UUID `json:"id"`
	TranscriptionID uuid.UUID `json:"transcription_id"`
	Start           float64   `json:"start"`
	End             float64   `json:"end"`
	Text            string    `json:"text"`
	Speaker         string    `json:"speaker"`
	SpeakerName     *string   `json:"speaker_name,omitempty"`
}
