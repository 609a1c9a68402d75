package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"clippilot/models"
)

// ErrRecordNotFound is returned when a database record is not found. A row
// owned by a different user is reported with this same error so that callers
// cannot distinguish "not yours" from "does not exist".
var ErrRecordNotFound = errors.New("record not found")

// Store is the persistence gateway used by the pipelines and handlers.
// Every write a pipeline step performs goes through here, which is what makes
// the steps testable against the in-memory implementation.
type Store interface {
	// Videos
	CreateVideo(ctx context.Context, video *models.Video) error
	GetVideo(ctx context.Context, videoID uuid.UUID, userID string) (*models.Video, error)
	UpdateVideoMetadata(ctx context.Context, videoID uuid.UUID, meta models.VideoMetadata) error

	// Clips
	CreateClips(ctx context.Context, clips []models.Clip) error
	ListClips(ctx context.Context, videoID uuid.UUID) ([]models.Clip, error)

	// Exported clips
	CreateExportedClips(ctx context.Context, clips []models.ExportedClip) error
	ListExportedClips(ctx context.Context, videoID uuid.UUID) ([]models.ExportedClip, error)

	// Transcriptions
	CreateTranscription(ctx context.Context, transcription *models.Transcription) error
	GetTranscription(ctx context.Context, transcriptionID uuid.UUID, userID string) (*models.Transcription, error)
	UpdateTranscriptionStatus(ctx context.Context, transcriptionID uuid.UUID, status string) error

	// Transcription segments
	CreateTranscriptionSegments(ctx context.Context, segments []models.TranscriptionSegment) error
	ListSegments(ctx context.Context, transcriptionID uuid.UUID) ([]models.TranscriptionSegment, error)
	RenameSpeaker(ctx context.Context, transcriptionID uuid.UUID, speaker, speakerName string) error

	// Mindmaps (unique on transcription_id)
	GetMindmapByTranscription(ctx context.Context, transcriptionID uuid.UUID) (*models.Mindmap, error)
	CreateMindmap(ctx context.Context, mindmap *models.Mindmap) error
	ResetMindmap(ctx context.Context, mindmapID uuid.UUID) error
	SaveMindmapData(ctx context.Context, mindmapID uuid.UUID, title string, data json.RawMessage) error
}
