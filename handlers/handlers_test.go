package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clippilot/internal/pipelines"
	"clippilot/internal/runtime"
	"clippilot/internal/store"
	"clippilot/models"
)

// fakeSubmitter records submitted events instead of running pipelines.
type fakeSubmitter struct {
	events []runtime.Event
	err    error
}

func (f *fakeSubmitter) Submit(evt runtime.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}

func newTestApp(t *testing.T) (*fiber.App, *fakeSubmitter, *store.MemoryStore) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	submitter := &fakeSubmitter{}
	st := store.NewMemoryStore()
	h := NewApplicationHandler(submitter, st, nil, "exported-clips", log)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	apiV1.Post("/transcriptions", h.StartTranscription)
	apiV1.Get("/transcriptions/:id", h.GetTranscription)
	apiV1.Patch("/transcriptions/:id/speakers", h.RenameSpeaker)
	apiV1.Post("/transcriptions/:id/mindmap", h.StartMindmapGeneration)
	apiV1.Get("/transcriptions/:id/mindmap", h.GetMindmap)
	apiV1.Post("/videos/identify", h.StartIdentifyClips)
	apiV1.Get("/videos/:id", h.GetVideo)
	apiV1.Post("/videos/:id/export", h.StartClipExport)
	apiV1.Get("/videos/:id/exports", h.ListExportedClips)

	return app, submitter, st
}

func doRequest(t *testing.T, app *fiber.App, method, path, userID string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestStartTranscriptionEmitsEvent(t *testing.T) {
	app, submitter, _ := newTestApp(t)

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/transcriptions", "user-1", fiber.Map{
		"youtube_url": "https://youtube.com/watch?v=abc",
	})
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	require.Len(t, submitter.events, 1)
	evt := submitter.events[0]
	assert.Equal(t, pipelines.EventTranscribeWithSpeakers, evt.Name)
	assert.NotEmpty(t, evt.ID)

	var payload pipelines.TranscribePayload
	require.NoError(t, json.Unmarshal(evt.Data, &payload))
	assert.Equal(t, "https://youtube.com/watch?v=abc", payload.YoutubeURL)
	assert.Equal(t, "user-1", payload.UserID)
}

func TestStartTranscriptionRequiresUser(t *testing.T) {
	app, submitter, _ := newTestApp(t)

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/transcriptions", "", fiber.Map{
		"youtube_url": "https://youtube.com/watch?v=abc",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, submitter.events)
}

func TestStartTranscriptionRejectsBadURL(t *testing.T) {
	app, submitter, _ := newTestApp(t)

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/transcriptions", "user-1", fiber.Map{
		"youtube_url": "not a url",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, submitter.events)
}

func TestStartTranscriptionFullQueueIs503(t *testing.T) {
	app, submitter, _ := newTestApp(t)
	submitter.err = errors.New("event queue full")

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/transcriptions", "user-1", fiber.Map{
		"youtube_url": "https://youtube.com/watch?v=abc",
	})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func seedTestTranscription(t *testing.T, st *store.MemoryStore, userID string) uuid.UUID {
	t.Helper()
	transcription := models.Transcription{
		ID:         uuid.New(),
		UserID:     userID,
		YoutubeURL: "https://youtube.com/watch?v=abc",
		Status:     models.StatusCompleted,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, st.CreateTranscription(context.Background(), &transcription))
	require.NoError(t, st.CreateTranscriptionSegments(context.Background(), []models.TranscriptionSegment{
		{ID: uuid.New(), TranscriptionID: transcription.ID, Start: 0, End: 4, Text: "hello", Speaker: "SPEAKER_00"},
	}))
	return transcription.ID
}

func TestGetTranscriptionReturnsSegments(t *testing.T) {
	app, _, st := newTestApp(t)
	id := seedTestTranscription(t, st, "user-1")

	resp := doRequest(t, app, fiber.MethodGet, "/api/v1/transcriptions/"+id.String(), "user-1", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	segments := data["segments"].([]interface{})
	assert.Len(t, segments, 1)
}

func TestGetTranscriptionHidesForeignRows(t *testing.T) {
	app, _, st := newTestApp(t)
	id := seedTestTranscription(t, st, "owner")

	resp := doRequest(t, app, fiber.MethodGet, "/api/v1/transcriptions/"+id.String(), "intruder", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRenameSpeaker(t *testing.T) {
	app, _, st := newTestApp(t)
	id := seedTestTranscription(t, st, "user-1")

	resp := doRequest(t, app, fiber.MethodPatch, "/api/v1/transcriptions/"+id.String()+"/speakers", "user-1", fiber.Map{
		"speaker":      "SPEAKER_00",
		"speaker_name": "Alice",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	segments, err := st.ListSegments(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, segments[0].SpeakerName)
	assert.Equal(t, "Alice", *segments[0].SpeakerName)
}

func TestRenameSpeakerUnknownLabelIs404(t *testing.T) {
	app, _, st := newTestApp(t)
	id := seedTestTranscription(t, st, "user-1")

	resp := doRequest(t, app, fiber.MethodPatch, "/api/v1/transcriptions/"+id.String()+"/speakers", "user-1", fiber.Map{
		"speaker":      "SPEAKER_99",
		"speaker_name": "Nobody",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetMindmapNotStarted(t *testing.T) {
	app, _, st := newTestApp(t)
	id := seedTestTranscription(t, st, "user-1")

	resp := doRequest(t, app, fiber.MethodGet, "/api/v1/transcriptions/"+id.String()+"/mindmap", "user-1", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "not_started", data["status"])
	assert.Nil(t, data["mindmap"])
}

func TestGetMindmapOnlyExposesCompletedData(t *testing.T) {
	app, _, st := newTestApp(t)
	id := seedTestTranscription(t, st, "user-1")

	mindmap := models.Mindmap{
		ID:              uuid.New(),
		TranscriptionID: id,
		Status:          models.StatusProcessing,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, st.CreateMindmap(context.Background(), &mindmap))

	resp := doRequest(t, app, fiber.MethodGet, "/api/v1/transcriptions/"+id.String()+"/mindmap", "user-1", nil)
	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, models.StatusProcessing, data["status"])
	assert.Nil(t, data["mindmap"])

	require.NoError(t, st.SaveMindmapData(context.Background(), mindmap.ID, "Graph", json.RawMessage(`{"title":"Graph","nodes":[],"edges":[]}`)))

	resp = doRequest(t, app, fiber.MethodGet, "/api/v1/transcriptions/"+id.String()+"/mindmap", "user-1", nil)
	body = decodeBody(t, resp)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, models.StatusCompleted, data["status"])
	assert.NotNil(t, data["mindmap"])
}

func TestStartMindmapGenerationChecksOwnership(t *testing.T) {
	app, submitter, st := newTestApp(t)
	id := seedTestTranscription(t, st, "owner")

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/transcriptions/"+id.String()+"/mindmap", "intruder", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Empty(t, submitter.events)

	resp = doRequest(t, app, fiber.MethodPost, "/api/v1/transcriptions/"+id.String()+"/mindmap", "owner", nil)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	require.Len(t, submitter.events, 1)
	assert.Equal(t, pipelines.EventGenerateMindmap, submitter.events[0].Name)
}

func seedTestVideo(t *testing.T, st *store.MemoryStore, userID string) models.Video {
	t.Helper()
	video := models.Video{
		ID:         uuid.New(),
		UserID:     userID,
		YoutubeURL: "https://youtube.com/watch?v=abc",
		S3Key:      "youtube-videos/x/yt",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, st.CreateVideo(context.Background(), &video))
	return video
}

func TestStartIdentifyClipsEmitsEvent(t *testing.T) {
	app, submitter, _ := newTestApp(t)

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/videos/identify", "user-1", fiber.Map{
		"youtube_url": "https://youtube.com/watch?v=abc",
		"prompt":      "find the hooks",
	})
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	require.Len(t, submitter.events, 1)
	var payload pipelines.IdentifyPayload
	require.NoError(t, json.Unmarshal(submitter.events[0].Data, &payload))
	assert.Equal(t, "find the hooks", payload.Prompt)
	assert.Equal(t, "user-1", payload.UserID)
}

func TestStartClipExportEmitsEvent(t *testing.T) {
	app, submitter, st := newTestApp(t)
	video := seedTestVideo(t, st, "user-1")

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/videos/"+video.ID.String()+"/export", "user-1", fiber.Map{
		"s3_key":          video.S3Key,
		"selected_clips":  []fiber.Map{{"start": "12.5", "end": "45"}},
		"aspect_ratio":    "9:16",
		"target_language": "es",
	})
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	require.Len(t, submitter.events, 1)
	var payload pipelines.ProcessPayload
	require.NoError(t, json.Unmarshal(submitter.events[0].Data, &payload))
	assert.Equal(t, video.ID, payload.VideoID)
	require.Len(t, payload.SelectedClips, 1)
	assert.Equal(t, "12.5", string(payload.SelectedClips[0].Start))
	require.NotNil(t, payload.TargetLanguage)
	assert.Equal(t, "es", *payload.TargetLanguage)
}

func TestStartClipExportChecksOwnership(t *testing.T) {
	app, submitter, st := newTestApp(t)
	video := seedTestVideo(t, st, "owner")

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/videos/"+video.ID.String()+"/export", "intruder", fiber.Map{
		"s3_key":         video.S3Key,
		"selected_clips": []fiber.Map{{"start": "0", "end": "10"}},
		"aspect_ratio":   "9:16",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Empty(t, submitter.events)
}

func TestGetVideoReturnsClips(t *testing.T) {
	app, _, st := newTestApp(t)
	video := seedTestVideo(t, st, "user-1")
	require.NoError(t, st.CreateClips(context.Background(), []models.Clip{
		{ID: uuid.New(), VideoID: video.ID, Start: "12.5", End: "45", Title: "Hook"},
	}))

	resp := doRequest(t, app, fiber.MethodGet, "/api/v1/videos/"+video.ID.String(), "user-1", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	clips := data["clips"].([]interface{})
	assert.Len(t, clips, 1)
}

func TestListExportedClips(t *testing.T) {
	app, _, st := newTestApp(t)
	video := seedTestVideo(t, st, "user-1")
	require.NoError(t, st.CreateExportedClips(context.Background(), []models.ExportedClip{
		{ID: uuid.New(), VideoID: video.ID, Start: "12.5", End: "45", S3Key: "exports/a.mp4", AspectRatio: "9:16"},
	}))

	resp := doRequest(t, app, fiber.MethodGet, "/api/v1/videos/"+video.ID.String()+"/exports", "user-1", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	exports := body["data"].([]interface{})
	assert.Len(t, exports, 1)
}

func TestInvalidIDFormatIs400(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := doRequest(t, app, fiber.MethodGet, "/api/v1/videos/not-a-uuid", "user-1", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
