package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"clippilot/internal/pipelines"
	"clippilot/internal/store"
	"clippilot/utils"
)

// IdentifyClipsRequest is the body for POST /api/v1/videos/identify.
type IdentifyClipsRequest struct {
	YoutubeURL string `json:"youtube_url" validate:"required,url"`
	Prompt     string `json:"prompt"`
}

// StartIdentifyClips triggers the Identify-Clips pipeline.
func (h *ApplicationHandler) StartIdentifyClips(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	payload := new(IdentifyClipsRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Validation failed: %v", utils.FormatValidationErrors(err)))
	}

	evt, err := h.submitEvent(c, pipelines.EventIdentifyClips, pipelines.IdentifyPayload{
		YoutubeURL: payload.YoutubeURL,
		Prompt:     payload.Prompt,
		UserID:     userID,
	})
	if err != nil {
		return err
	}

	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{
		"message": "Clip identification started",
		"run_id":  evt.ID,
	})
}

// GetVideo returns a video with its identified clips.
func (h *ApplicationHandler) GetVideo(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	videoID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid video ID format")
	}

	video, err := h.Store.GetVideo(c.Context(), videoID, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Video not found")
		}
		h.Logger.WithError(err).Error("Failed to fetch video")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch video")
	}

	clips, err := h.Store.ListClips(c.Context(), videoID)
	if err != nil {
		h.Logger.WithError(err).Error("Failed to fetch clips")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch clips")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"video": video,
		"clips": clips,
	})
}

// ExportClipsRequest is the body for POST /api/v1/videos/:id/export.
type ExportClipsRequest struct {
	S3Key          string                   `json:"s3_key" validate:"required"`
	SelectedClips  []pipelines.SelectedClip `json:"selected_clips" validate:"required,min=1"`
	TargetLanguage *string                  `json:"target_language"`
	AspectRatio    string                   `json:"aspect_ratio" validate:"required"`
}

// StartClipExport triggers the Process-Clips pipeline for a video the caller
// owns.
func (h *ApplicationHandler) StartClipExport(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	videoID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid video ID format")
	}

	payload := new(ExportClipsRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Validation failed: %v", utils.FormatValidationErrors(err)))
	}

	if _, err := h.Store.GetVideo(c.Context(), videoID, userID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Video not found")
		}
		h.Logger.WithError(err).Error("Failed to fetch video for export trigger")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch video")
	}

	evt, err := h.submitEvent(c, pipelines.EventProcessClips, pipelines.ProcessPayload{
		VideoID:        videoID,
		S3Key:          payload.S3Key,
		SelectedClips:  payload.SelectedClips,
		TargetLanguage: payload.TargetLanguage,
		AspectRatio:    payload.AspectRatio,
		UserID:         userID,
	})
	if err != nil {
		return err
	}

	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{
		"message": "Clip processing started",
		"run_id":  evt.ID,
	})
}

// ListExportedClips returns the rendered exports for a video.
func (h *ApplicationHandler) ListExportedClips(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	videoID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid video ID format")
	}

	if _, err := h.Store.GetVideo(c.Context(), videoID, userID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Video not found")
		}
		h.Logger.WithError(err).Error("Failed to fetch video for exported clips")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch video")
	}

	exported, err := h.Store.ListExportedClips(c.Context(), videoID)
	if err != nil {
		h.Logger.WithError(err).Error("Failed to list exported clips")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to list exported clips")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, exported)
}

// DownloadExportedClip returns a time-limited signed URL for a rendered
// export.
func (h *ApplicationHandler) DownloadExportedClip(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	videoID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid video ID format")
	}

	if _, err := h.Store.GetVideo(c.Context(), videoID, userID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Video not found")
		}
		h.Logger.WithError(err).Error("Failed to fetch video for download")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch video")
	}

	s3Key := c.Query("s3_key")
	if s3Key == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Missing s3_key query parameter")
	}

	signed, err := h.Supabase.Storage.CreateSignedUrl(h.ExportBucket, s3Key, 3600)
	if err != nil {
		h.Logger.WithError(err).Error("Failed to sign download URL")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not generate download URL")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"download_url": signed.SignedURL,
		"expires_in":   3600,
	})
}
