package pipelines

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clippilot/internal/mediaclient"
	"clippilot/internal/runtime"
	"clippilot/models"
)

// IdentifyPayload triggers the Identify-Clips pipeline.
type IdentifyPayload struct {
	YoutubeURL string `json:"youtubeUrl" validate:"required,url"`
	Prompt     string `json:"prompt"`
	UserID     string `json:"userId" validate:"required"`
}

// IdentifyResult is the pipeline's output.
type IdentifyResult struct {
	VideoID    uuid.UUID `json:"videoId"`
	S3Key      string    `json:"s3Key"`
	TotalClips int       `json:"totalClips"`
}

// identifyVideoRecord is the checkpointed result of step 1.
type identifyVideoRecord struct {
	Video models.Video `json:"video"`
	S3Key string       `json:"s3Key"`
}

// IdentifyClips turns a YouTube URL and an optional user prompt into a stored
// set of candidate viral clips with scores.
func (p *Pipelines) IdentifyClips(ctx context.Context, rc *runtime.RunContext, payload IdentifyPayload) (IdentifyResult, error) {
	// Step 1: generate an opaque identifier, derive the storage key from it
	// and insert the video record.
	videoData, err := runtime.Step(ctx, rc, "create-video-record", func(ctx context.Context) (identifyVideoRecord, error) {
		videoID := uuid.New()
		s3Key := fmt.Sprintf("youtube-videos/%s/yt", videoID)

		video := models.Video{
			ID:         videoID,
			UserID:     payload.UserID,
			YoutubeURL: payload.YoutubeURL,
			S3Key:      s3Key,
			Prompt:     payload.Prompt,
			CreatedAt:  time.Now().UTC(),
		}
		if err := p.Store.CreateVideo(ctx, &video); err != nil {
			return identifyVideoRecord{}, err
		}
		return identifyVideoRecord{Video: video, S3Key: s3Key}, nil
	})
	if err != nil {
		return IdentifyResult{}, err
	}

	// Step 2: ask the backend for clip candidates. Any string-encoded numbers
	// in the response are normalized by the response types themselves.
	clipsResponse, err := runtime.Step(ctx, rc, "call-identify-clips-api", func(ctx context.Context) (*mediaclient.IdentifyClipsResponse, error) {
		return p.Media.IdentifyClips(ctx, mediaclient.IdentifyClipsRequest{
			YoutubeURL: payload.YoutubeURL,
			S3KeyYT:    videoData.S3Key,
			Prompt:     payload.Prompt,
		})
	})
	if err != nil {
		return IdentifyResult{}, err
	}

	// Step 3: write the derived metadata back onto the video and bulk-insert
	// the clips, stringifying numeric fields for storage uniformity.
	_, err = runtime.Step(ctx, rc, "save-clips-to-database", func(ctx context.Context) (int, error) {
		meta := models.VideoMetadata{
			TotalClips:       int(clipsResponse.TotalClips),
			VideoDuration:    string(clipsResponse.VideoDuration),
			DetectedLanguage: clipsResponse.DetectedLanguage,
			S3Path:           clipsResponse.S3Path,
		}
		if err := p.Store.UpdateVideoMetadata(ctx, videoData.Video.ID, meta); err != nil {
			return 0, err
		}

		if len(clipsResponse.IdentifiedClips) == 0 {
			rc.Log().WithField("video_id", videoData.Video.ID).Warn("Backend identified no clips")
			return 0, nil
		}

		clips := make([]models.Clip, len(clipsResponse.IdentifiedClips))
		for i, clip := range clipsResponse.IdentifiedClips {
			clips[i] = models.Clip{
				ID:            uuid.New(),
				VideoID:       videoData.Video.ID,
				Start:         string(clip.Start),
				End:           string(clip.End),
				Title:         clip.Title,
				Summary:       clip.Summary,
				ViralityScore: string(clip.ViralityScore),
				RelatedTopics: clip.RelatedTopics,
				Transcript:    clip.Transcript,
				CreatedAt:     time.Now().UTC(),
			}
		}
		if err := p.Store.CreateClips(ctx, clips); err != nil {
			return 0, err
		}
		return len(clips), nil
	})
	if err != nil {
		return IdentifyResult{}, err
	}

	rc.Log().WithFields(logrus.Fields{
		"video_id":    videoData.Video.ID,
		"total_clips": int(clipsResponse.TotalClips),
	}).Info("Clip identification pipeline finished")

	return IdentifyResult{
		VideoID:    videoData.Video.ID,
		S3Key:      videoData.S3Key,
		TotalClips: int(clipsResponse.TotalClips),
	}, nil
}
