package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	postgrest "github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"clippilot/models"
)

const (
	videosTable         = "videos"
	clipsTable          = "clips"
	exportedClipsTable  = "exported_clips"
	transcriptionsTable = "transcriptions"
	segmentsTable       = "transcription_segments"
	mindmapsTable       = "mindmaps"
)

// SupabaseStore implements Store against Supabase via PostgREST.
type SupabaseStore struct {
	client *supa.Client
	log    *logrus.Logger
}

// NewSupabaseStore creates a SupabaseStore around an initialized client.
func NewSupabaseStore(client *supa.Client, log *logrus.Logger) *SupabaseStore {
	return &SupabaseStore{client: client, log: log}
}

func (s *SupabaseStore) CreateVideo(ctx context.Context, video *models.Video) error {
	_, _, err := s.client.From(videosTable).
		Insert(video, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert video %s: %w", video.ID, err)
	}
	return nil
}

func (s *SupabaseStore) GetVideo(ctx context.Context, videoID uuid.UUID, userID string) (*models.Video, error) {
	var videos []models.Video
	_, err := s.client.From(videosTable).
		Select("*", "", false).
		Eq("id", videoID.String()).
		Eq("user_id", userID).
		ExecuteTo(&videos)
	if err != nil {
		return nil, fmt.Errorf("fetch video %s: %w", videoID, err)
	}
	if len(videos) == 0 {
		return nil, ErrRecordNotFound
	}
	return &videos[0], nil
}

func (s *SupabaseStore) UpdateVideoMetadata(ctx context.Context, videoID uuid.UUID, meta models.VideoMetadata) error {
	updates := map[string]interface{}{
		"total_clips":       meta.TotalClips,
		"video_duration":    meta.VideoDuration,
		"detected_language": meta.DetectedLanguage,
		"s3_path":           meta.S3Path,
	}
	_, count, err := s.client.From(videosTable).
		Update(updates, "", "exact").
		Eq("id", videoID.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("update video %s metadata: %w", videoID, err)
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *SupabaseStore) CreateClips(ctx context.Context, clips []models.Clip) error {
	if len(clips) == 0 {
		return nil
	}
	_, _, err := s.client.From(clipsTable).
		Insert(clips, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert %d clips: %w", len(clips), err)
	}
	return nil
}

func (s *SupabaseStore) ListClips(ctx context.Context, videoID uuid.UUID) ([]models.Clip, error) {
	var clips []models.Clip
	_, err := s.client.From(clipsTable).
		Select("*", "", false).
		Eq("video_id", videoID.String()).
		ExecuteTo(&clips)
	if err != nil {
		return nil, fmt.Errorf("list clips for video %s: %w", videoID, err)
	}
	return clips, nil
}

func (s *SupabaseStore) CreateExportedClips(ctx context.Context, clips []models.ExportedClip) error {
	if len(clips) == 0 {
		return nil
	}
	_, _, err := s.client.From(exportedClipsTable).
		Insert(clips, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert %d exported clips: %w", len(clips), err)
	}
	return nil
}

func (s *SupabaseStore) ListExportedClips(ctx context.Context, videoID uuid.UUID) ([]models.ExportedClip, error) {
	var clips []models.ExportedClip
	_, err := s.client.From(exportedClipsTable).
		Select("*", "", false).
		Eq("video_id", videoID.String()).
		ExecuteTo(&clips)
	if err != nil {
		return nil, fmt.Errorf("list exported clips for video %s: %w", videoID, err)
	}
	return clips, nil
}

func (s *SupabaseStore) CreateTranscription(ctx context.Context, transcription *models.Transcription) error {
	_, _, err := s.client.From(transcriptionsTable).
		Insert(transcription, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert transcription %s: %w", transcription.ID, err)
	}
	return nil
}

func (s *SupabaseStore) GetTranscription(ctx context.Context, transcriptionID uuid.UUID, userID string) (*models.Transcription, error) {
	var rows []models.Transcription
	_, err := s.client.From(transcriptionsTable).
		Select("*", "", false).
		Eq("id", transcriptionID.String()).
		Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("fetch transcription %s: %w", transcriptionID, err)
	}
	if len(rows) == 0 {
		return nil, ErrRecordNotFound
	}
	return &rows[0], nil
}

func (s *SupabaseStore) UpdateTranscriptionStatus(ctx context.Context, transcriptionID uuid.UUID, status string) error {
	_, count, err := s.client.From(transcriptionsTable).
		Update(map[string]interface{}{"status": status}, "", "exact").
		Eq("id", transcriptionID.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("update transcription %s status: %w", transcriptionID, err)
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *SupabaseStore) CreateTranscriptionSegments(ctx context.Context, segments []models.TranscriptionSegment) error {
	if len(segments) == 0 {
		return nil
	}
	_, _, err := s.client.From(segmentsTable).
		Insert(segments, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert %d transcription segments: %w", len(segments), err)
	}
	return nil
}

func (s *SupabaseStore) ListSegments(ctx context.Context, transcriptionID uuid.UUID) ([]models.TranscriptionSegment, error) {
	var segments []models.TranscriptionSegment
	_, err := s.client.From(segmentsTable).
		Select("*", "", false).
		Eq("transcription_id", transcriptionID.String()).
		Order("start", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&segments)
	if err != nil {
		return nil, fmt.Errorf("list segments for transcription %s: %w", transcriptionID, err)
	}
	return segments, nil
}

func (s *SupabaseStore) RenameSpeaker(ctx context.Context, transcriptionID uuid.UUID, speaker, speakerName string) error {
	_, count, err := s.client.From(segmentsTable).
		Update(map[string]interface{}{"speaker_name": speakerName}, "", "exact").
		Eq("transcription_id", transcriptionID.String()).
		Eq("speaker", speaker).
		Execute()
	if err != nil {
		return fmt.Errorf("rename speaker %q on transcription %s: %w", speaker, transcriptionID, err)
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	s.log.WithFields(logrus.Fields{
		"transcription_id": transcriptionID,
		"speaker":          speaker,
		"segments":         count,
	}).Info("Renamed speaker label")
	return nil
}

func (s *SupabaseStore) GetMindmapByTranscription(ctx context.Context, transcriptionID uuid.UUID) (*models.Mindmap, error) {
	var rows []models.Mindmap
	_, err := s.client.From(mindmapsTable).
		Select("*", "", false).
		Eq("transcription_id", transcriptionID.String()).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("fetch mindmap for transcription %s: %w", transcriptionID, err)
	}
	if len(rows) == 0 {
		return nil, ErrRecordNotFound
	}
	return &rows[0], nil
}

func (s *SupabaseStore) CreateMindmap(ctx context.Context, mindmap *models.Mindmap) error {
	_, _, err := s.client.From(mindmapsTable).
		Insert(mindmap, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert mindmap %s: %w", mindmap.ID, err)
	}
	return nil
}

func (s *SupabaseStore) ResetMindmap(ctx context.Context, mindmapID uuid.UUID) error {
	updates := map[string]interface{}{
		"status": models.StatusProcessing,
		"data":   nil,
		"title":  "",
	}
	_, count, err := s.client.From(mindmapsTable).
		Update(updates, "", "exact").
		Eq("id", mindmapID.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("reset mindmap %s: %w", mindmapID, err)
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *SupabaseStore) SaveMindmapData(ctx context.Context, mindmapID uuid.UUID, title string, data json.RawMessage) error {
	updates := map[string]interface{}{
		"title":  title,
		"status": models.StatusCompleted,
		"data":   data,
	}
	_, count, err := s.client.From(mindmapsTable).
		Update(updates, "", "exact").
		Eq("id", mindmapID.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("save mindmap %s data: %w", mindmapID, err)
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return nil
}
