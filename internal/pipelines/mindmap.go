package pipelines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clippilot/internal/runtime"
	"clippilot/internal/store"
	"clippilot/models"
)

// The concatenated transcript handed to the generative model is capped; a cut
// transcript carries the marker so the model knows it saw a prefix.
const (
	maxTranscriptChars = 15000
	truncationMarker   = "...[truncated]"
)

// MindmapPayload triggers the Generate-Mindmap pipeline.
type MindmapPayload struct {
	TranscriptionID uuid.UUID `json:"transcriptionId" validate:"required"`
	UserID          string    `json:"userId" validate:"required"`
}

// MindmapResult is the pipeline's output.
type MindmapResult struct {
	MindmapID       uuid.UUID `json:"mindmapId"`
	TranscriptionID uuid.UUID `json:"transcriptionId"`
	Status          string    `json:"status"`
}

// transcriptionData is the checkpointed result of step 2.
type transcriptionData struct {
	Transcription models.Transcription          `json:"transcription"`
	Segments      []models.TranscriptionSegment `json:"segments"`
}

// GenerateMindmap turns a stored transcription into a hierarchical concept
// graph. Mindmaps are a derived, replaceable view: regeneration resets the
// existing row instead of creating a second one.
func (p *Pipelines) GenerateMindmap(ctx context.Context, rc *runtime.RunContext, payload MindmapPayload) (MindmapResult, error) {
	// Step 1: upsert the mindmap record by transcription ID.
	mindmap, err := runtime.Step(ctx, rc, "create-mindmap-record", func(ctx context.Context) (models.Mindmap, error) {
		existing, err := p.Store.GetMindmapByTranscription(ctx, payload.TranscriptionID)
		if err == nil {
			if resetErr := p.Store.ResetMindmap(ctx, existing.ID); resetErr != nil {
				return models.Mindmap{}, resetErr
			}
			existing.Status = models.StatusProcessing
			existing.Data = nil
			return *existing, nil
		}
		if !errors.Is(err, store.ErrRecordNotFound) {
			return models.Mindmap{}, err
		}

		record := models.Mindmap{
			ID:              uuid.New(),
			TranscriptionID: payload.TranscriptionID,
			Status:          models.StatusProcessing,
			CreatedAt:       time.Now().UTC(),
		}
		if createErr := p.Store.CreateMindmap(ctx, &record); createErr != nil {
			return models.Mindmap{}, createErr
		}
		return record, nil
	})
	if err != nil {
		return MindmapResult{}, err
	}

	// Step 2: load the transcription scoped to the requesting user. A row
	// owned by someone else reads exactly like a missing row.
	data, err := runtime.Step(ctx, rc, "fetch-transcription-data", func(ctx context.Context) (transcriptionData, error) {
		transcription, err := p.Store.GetTranscription(ctx, payload.TranscriptionID, payload.UserID)
		if err != nil {
			return transcriptionData{}, runtime.Permanent(fmt.Errorf("transcription %s: %w", payload.TranscriptionID, err))
		}
		segments, err := p.Store.ListSegments(ctx, payload.TranscriptionID)
		if err != nil {
			return transcriptionData{}, err
		}
		return transcriptionData{Transcription: *transcription, Segments: segments}, nil
	})
	if err != nil {
		return MindmapResult{}, err
	}

	// Step 3: build the prompt transcript and ask the model for the graph.
	generated, err := runtime.Step(ctx, rc, "generate-mindmap-ai", func(ctx context.Context) (*models.MindmapData, error) {
		transcript := buildTranscriptText(data.Segments)
		return p.Mindmaps.Generate(ctx, transcript)
	})
	if err != nil {
		return MindmapResult{}, err
	}

	// Step 4: persist the graph and mark the mindmap completed.
	_, err = runtime.Step(ctx, rc, "save-mindmap-data", func(ctx context.Context) (struct{}, error) {
		encoded, err := json.Marshal(generated)
		if err != nil {
			return struct{}{}, fmt.Errorf("encode mindmap data: %w", err)
		}
		if err := p.Store.SaveMindmapData(ctx, mindmap.ID, generated.Title, encoded); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return MindmapResult{}, err
	}

	rc.Log().WithFields(logrus.Fields{
		"mindmap_id":       mindmap.ID,
		"transcription_id": payload.TranscriptionID,
		"nodes":            len(generated.Nodes),
	}).Info("Mindmap pipeline finished")

	return MindmapResult{
		MindmapID:       mindmap.ID,
		TranscriptionID: payload.TranscriptionID,
		Status:          models.StatusCompleted,
	}, nil
}

// buildTranscriptText concatenates segments into "speaker: text" lines and
// caps the result at maxTranscriptChars, appending the truncation marker when
// cut. Segments are expected in start-time order.
func buildTranscriptText(segments []models.TranscriptionSegment) string {
	var b strings.Builder
	for i, seg := range segments {
		speaker := seg.Speaker
		if seg.SpeakerName != nil && *seg.SpeakerName != "" {
			speaker = *seg.SpeakerName
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(seg.Text)
	}

	text := b.String()
	if utf8.RuneCountInString(text) > maxTranscriptChars {
		runes := []rune(text)
		text = string(runes[:maxTranscriptChars]) + truncationMarker
	}
	return text
}
