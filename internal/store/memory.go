package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"

	"clippilot/models"
)

// MemoryStore is an in-memory Store used in tests. It mirrors the relational
// shape closely enough to exercise the pipelines' persistence behavior,
// including the uniqueness of mindmaps per transcription.
type MemoryStore struct {
	mu             sync.Mutex
	videos         map[uuid.UUID]models.Video
	clips          []models.Clip
	exported       []models.ExportedClip
	transcriptions map[uuid.UUID]models.Transcription
	segments       []models.TranscriptionSegment
	mindmaps       map[uuid.UUID]models.Mindmap // keyed by mindmap ID
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos:         make(map[uuid.UUID]models.Video),
		transcriptions: make(map[uuid.UUID]models.Transcription),
		mindmaps:       make(map[uuid.UUID]models.Mindmap),
	}
}

func (m *MemoryStore) CreateVideo(ctx context.Context, video *models.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[video.ID] = *video
	return nil
}

func (m *MemoryStore) GetVideo(ctx context.Context, videoID uuid.UUID, userID string) (*models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok || v.UserID != userID {
		return nil, ErrRecordNotFound
	}
	out := v
	return &out, nil
}

func (m *MemoryStore) UpdateVideoMetadata(ctx context.Context, videoID uuid.UUID, meta models.VideoMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok {
		return ErrRecordNotFound
	}
	total := meta.TotalClips
	duration := meta.VideoDuration
	lang := meta.DetectedLanguage
	path := meta.S3Path
	v.TotalClips = &total
	v.VideoDuration = &duration
	v.DetectedLanguage = &lang
	v.S3Path = &path
	m.videos[videoID] = v
	return nil
}

func (m *MemoryStore) CreateClips(ctx context.Context, clips []models.Clip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clips = append(m.clips, clips...)
	return nil
}

func (m *MemoryStore) ListClips(ctx context.Context, videoID uuid.UUID) ([]models.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Clip
	for _, c := range m.clips {
		if c.VideoID == videoID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateExportedClips(ctx context.Context, clips []models.ExportedClip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exported = append(m.exported, clips...)
	return nil
}

func (m *MemoryStore) ListExportedClips(ctx context.Context, videoID uuid.UUID) ([]models.ExportedClip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExportedClip
	for _, c := range m.exported {
		if c.VideoID == videoID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateTranscription(ctx context.Context, transcription *models.Transcription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcriptions[transcription.ID] = *transcription
	return nil
}

func (m *MemoryStore) GetTranscription(ctx context.Context, transcriptionID uuid.UUID, userID string) (*models.Transcription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transcriptions[transcriptionID]
	if !ok || t.UserID != userID {
		return nil, ErrRecordNotFound
	}
	out := t
	return &out, nil
}

func (m *MemoryStore) UpdateTranscriptionStatus(ctx context.Context, transcriptionID uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transcriptions[transcriptionID]
	if !ok {
		return ErrRecordNotFound
	}
	t.Status = status
	m.transcriptions[transcriptionID] = t
	return nil
}

func (m *MemoryStore) CreateTranscriptionSegments(ctx context.Context, segments []models.TranscriptionSegment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments = append(m.segments, segments...)
	return nil
}

func (m *MemoryStore) ListSegments(ctx context.Context, transcriptionID uuid.UUID) ([]models.TranscriptionSegment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TranscriptionSegment
	for _, s := range m.segments {
		if s.TranscriptionID == transcriptionID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (m *MemoryStore) RenameSpeaker(ctx context.Context, transcriptionID uuid.UUID, speaker, speakerName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	updated := 0
	for i := range m.segments {
		if m.segments[i].TranscriptionID == transcriptionID && m.segments[i].Speaker == speaker {
			name := speakerName
			m.segments[i].SpeakerName = &name
			updated++
		}
	}
	if updated == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (m *MemoryStore) GetMindmapByTranscription(ctx context.Context, transcriptionID uuid.UUID) (*models.Mindmap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mm := range m.mindmaps {
		if mm.TranscriptionID == transcriptionID {
			out := mm
			return &out, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (m *MemoryStore) CreateMindmap(ctx context.Context, mindmap *models.Mindmap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mindmaps[mindmap.ID] = *mindmap
	return nil
}

func (m *MemoryStore) ResetMindmap(ctx context.Context, mindmapID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, ok := m.mindmaps[mindmapID]
	if !ok {
		return ErrRecordNotFound
	}
	mm.Status = models.StatusProcessing
	mm.Data = nil
	mm.Title = ""
	m.mindmaps[mindmapID] = mm
	return nil
}

func (m *MemoryStore) SaveMindmapData(ctx context.Context, mindmapID uuid.UUID, title string, data json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, ok := m.mindmaps[mindmapID]
	if !ok {
		return ErrRecordNotFound
	}
	mm.Title = title
	mm.Status = models.StatusCompleted
	mm.Data = data
	m.mindmaps[mindmapID] = mm
	return nil
}

// MindmapCount reports the number of mindmap rows, used by tests to verify
// that regeneration does not create duplicates.
func (m *MemoryStore) MindmapCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mindmaps)
}

// TranscriptionCount reports the number of transcription rows.
func (m *MemoryStore) TranscriptionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transcriptions)
}

// VideoCount reports the number of video rows.
func (m *MemoryStore) VideoCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.videos)
}
