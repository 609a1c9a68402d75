package pipelines

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clippilot/internal/mediaclient"
	"clippilot/internal/runtime"
	"clippilot/models"
)

// TranscribePayload triggers the Transcribe-With-Speakers pipeline.
type TranscribePayload struct {
	YoutubeURL string `json:"youtubeUrl" validate:"required,url"`
	UserID     string `json:"userId" validate:"required"`
}

// TranscribeResult is the pipeline's output.
type TranscribeResult struct {
	TranscriptionID uuid.UUID `json:"transcriptionId"`
	SegmentCount    int       `json:"segmentCount"`
}

// TranscribeWithSpeakers turns a YouTube URL into a stored, speaker-labeled
// transcript.
func (p *Pipelines) TranscribeWithSpeakers(ctx context.Context, rc *runtime.RunContext, payload TranscribePayload) (TranscribeResult, error) {
	// Step 1: insert the transcription record in processing state.
	transcription, err := runtime.Step(ctx, rc, "create-transcription-record", func(ctx context.Context) (models.Transcription, error) {
		record := models.Transcription{
			ID:         uuid.New(),
			UserID:     payload.UserID,
			YoutubeURL: payload.YoutubeURL,
			Status:     models.StatusProcessing,
			CreatedAt:  time.Now().UTC(),
		}
		if err := p.Store.CreateTranscription(ctx, &record); err != nil {
			return models.Transcription{}, err
		}
		return record, nil
	})
	if err != nil {
		return TranscribeResult{}, err
	}

	// Step 2: call the transcription backend.
	segments, err := runtime.Step(ctx, rc, "call-transcription-api", func(ctx context.Context) ([]mediaclient.TranscriptSegment, error) {
		resp, err := p.Media.Transcribe(ctx, payload.YoutubeURL)
		if err != nil {
			return nil, err
		}
		return resp.Transcription, nil
	})
	if err != nil {
		return TranscribeResult{}, err
	}

	// Step 3: bulk-insert the segments and flip the status to completed in
	// the same step. An empty segment list is not an error; the transcription
	// is left at processing with no segment rows.
	segmentCount, err := runtime.Step(ctx, rc, "save-transcription-segments", func(ctx context.Context) (int, error) {
		if len(segments) == 0 {
			rc.Log().WithField("transcription_id", transcription.ID).Warn("Transcription backend returned no segments")
			return 0, nil
		}

		rows := make([]models.TranscriptionSegment, len(segments))
		for i, seg := range segments {
			rows[i] = models.TranscriptionSegment{
				ID:              uuid.New(),
				TranscriptionID: transcription.ID,
				Start:           seg.Start,
				End:             seg.End,
				Text:            seg.Text,
				Speaker:         seg.Speaker,
			}
		}
		if err := p.Store.CreateTranscriptionSegments(ctx, rows); err != nil {
			return 0, err
		}
		if err := p.Store.UpdateTranscriptionStatus(ctx, transcription.ID, models.StatusCompleted); err != nil {
			return 0, err
		}
		return len(rows), nil
	})
	if err != nil {
		return TranscribeResult{}, err
	}

	rc.Log().WithFields(logrus.Fields{
		"transcription_id": transcription.ID,
		"segments":         segmentCount,
	}).Info("Transcription pipeline finished")

	return TranscribeResult{
		TranscriptionID: transcription.ID,
		SegmentCount:    segmentCount,
	}, nil
}
