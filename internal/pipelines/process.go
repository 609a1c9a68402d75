package pipelines

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clippilot/internal/mediaclient"
	"clippilot/internal/runtime"
	"clippilot/models"
)

// SelectedClip is a user-selected time range. Values arrive as strings or
// numbers from the trigger surface and are parsed to seconds at the gateway
// boundary.
type SelectedClip struct {
	Start models.FlexString `json:"start"`
	End   models.FlexString `json:"end"`
}

// ProcessPayload triggers the Process-Clips pipeline.
type ProcessPayload struct {
	VideoID        uuid.UUID      `json:"videoId" validate:"required"`
	S3Key          string         `json:"s3Key" validate:"required"`
	SelectedClips  []SelectedClip `json:"selectedClips" validate:"required,min=1"`
	TargetLanguage *string        `json:"targetLanguage"`
	AspectRatio    string         `json:"aspectRatio" validate:"required"`
	UserID         string         `json:"userId" validate:"required"`
}

// ProcessResult is the pipeline's output.
type ProcessResult struct {
	VideoID        uuid.UUID `json:"videoId"`
	ProcessedClips int       `json:"processedClips"`
}

// ProcessClips renders and exports the selected time ranges of a stored
// video.
func (p *Pipelines) ProcessClips(ctx context.Context, rc *runtime.RunContext, payload ProcessPayload) (ProcessResult, error) {
	// Step 1: hand the ranges and the fixed subtitle styling to the rendering
	// backend.
	rendered, err := runtime.Step(ctx, rc, "call-process-clips-api", func(ctx context.Context) (*mediaclient.ProcessClipsResponse, error) {
		clips := make([]mediaclient.ClipRange, len(payload.SelectedClips))
		for i, sel := range payload.SelectedClips {
			clips[i] = mediaclient.ClipRange{
				Start: sel.Start.Float(),
				End:   sel.End.Float(),
			}
		}
		return p.Media.ProcessClips(ctx, mediaclient.ProcessClipsRequest{
			S3Key:                 payload.S3Key,
			Clips:                 clips,
			TargetLanguage:        payload.TargetLanguage,
			AspectRatio:           payload.AspectRatio,
			Subtitles:             true,
			SubtitleCustomization: p.Subtitles,
		})
	})
	if err != nil {
		return ProcessResult{}, err
	}

	// Step 2: record one exported clip row per rendered artifact, carrying
	// the export settings alongside each row.
	saved, err := runtime.Step(ctx, rc, "save-exported-clips-to-database", func(ctx context.Context) (int, error) {
		if len(rendered.ProcessedClips) == 0 {
			rc.Log().WithField("video_id", payload.VideoID).Warn("Rendering backend returned no clips")
			return 0, nil
		}

		rows := make([]models.ExportedClip, len(rendered.ProcessedClips))
		for i, clip := range rendered.ProcessedClips {
			rows[i] = models.ExportedClip{
				ID:             uuid.New(),
				VideoID:        payload.VideoID,
				Start:          strconv.FormatFloat(clip.Start, 'f', -1, 64),
				End:            strconv.FormatFloat(clip.End, 'f', -1, 64),
				S3Key:          clip.S3Key,
				AspectRatio:    payload.AspectRatio,
				TargetLanguage: payload.TargetLanguage,
				CreatedAt:      time.Now().UTC(),
			}
		}
		if err := p.Store.CreateExportedClips(ctx, rows); err != nil {
			return 0, err
		}
		return len(rows), nil
	})
	if err != nil {
		return ProcessResult{}, err
	}

	rc.Log().WithFields(logrus.Fields{
		"video_id":        payload.VideoID,
		"processed_clips": saved,
	}).Info("Clip export pipeline finished")

	return ProcessResult{
		VideoID:        payload.VideoID,
		ProcessedClips: saved,
	}, nil
}
