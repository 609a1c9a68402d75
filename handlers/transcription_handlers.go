package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"clippilot/internal/pipelines"
	"clippilot/internal/store"
	"clippilot/models"
	"clippilot/utils"
)

// StartTranscriptionRequest is the body for POST /api/v1/transcriptions.
type StartTranscriptionRequest struct {
	YoutubeURL string `json:"youtube_url" validate:"required,url"`
}

// StartTranscription triggers the Transcribe-With-Speakers pipeline.
func (h *ApplicationHandler) StartTranscription(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	payload := new(StartTranscriptionRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Validation failed: %v", utils.FormatValidationErrors(err)))
	}

	evt, err := h.submitEvent(c, pipelines.EventTranscribeWithSpeakers, pipelines.TranscribePayload{
		YoutubeURL: payload.YoutubeURL,
		UserID:     userID,
	})
	if err != nil {
		return err
	}

	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{
		"message": "Transcription started",
		"run_id":  evt.ID,
	})
}

// GetTranscription returns a transcription with its segments ordered by start
// time.
func (h *ApplicationHandler) GetTranscription(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	transcriptionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid transcription ID format")
	}

	transcription, err := h.Store.GetTranscription(c.Context(), transcriptionID, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Transcription not found")
		}
		h.Logger.WithError(err).Error("Failed to fetch transcription")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch transcription")
	}

	segments, err := h.Store.ListSegments(c.Context(), transcriptionID)
	if err != nil {
		h.Logger.WithError(err).Error("Failed to fetch transcription segments")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch transcription segments")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"transcription": transcription,
		"segments":      segments,
	})
}

// RenameSpeakerRequest is the body for PATCH /api/v1/transcriptions/:id/speakers.
type RenameSpeakerRequest struct {
	Speaker     string `json:"speaker" validate:"required"`
	SpeakerName string `json:"speaker_name" validate:"required"`
}

// RenameSpeaker assigns a display name to every segment carrying the given
// diarization label. This is the only mutation of segments after the pipeline
// writes them.
func (h *ApplicationHandler) RenameSpeaker(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	transcriptionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid transcription ID format")
	}

	payload := new(RenameSpeakerRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Validation failed: %v", utils.FormatValidationErrors(err)))
	}

	// Ownership check first so renames cannot touch other users' rows.
	if _, err := h.Store.GetTranscription(c.Context(), transcriptionID, userID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Transcription not found")
		}
		h.Logger.WithError(err).Error("Failed to fetch transcription for speaker rename")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch transcription")
	}

	if err := h.Store.RenameSpeaker(c.Context(), transcriptionID, payload.Speaker, payload.SpeakerName); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "No segments with that speaker label")
		}
		h.Logger.WithError(err).Error("Failed to rename speaker")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to rename speaker")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"transcription_id": transcriptionID,
		"speaker":          payload.Speaker,
		"speaker_name":     payload.SpeakerName,
	})
}

// StartMindmapGeneration triggers the Generate-Mindmap pipeline after
// verifying the transcription belongs to the caller.
func (h *ApplicationHandler) StartMindmapGeneration(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	transcriptionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid transcription ID format")
	}

	if _, err := h.Store.GetTranscription(c.Context(), transcriptionID, userID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Transcription not found")
		}
		h.Logger.WithError(err).Error("Failed to fetch transcription for mindmap trigger")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch transcription")
	}

	evt, err := h.submitEvent(c, pipelines.EventGenerateMindmap, pipelines.MindmapPayload{
		TranscriptionID: transcriptionID,
		UserID:          userID,
	})
	if err != nil {
		return err
	}

	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{
		"message":          "Mindmap generation started",
		"transcription_id": transcriptionID,
		"run_id":           evt.ID,
	})
}

// GetMindmap returns the mindmap status for a transcription. Data is only
// included once the mindmap is completed.
func (h *ApplicationHandler) GetMindmap(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	transcriptionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid transcription ID format")
	}

	if _, err := h.Store.GetTranscription(c.Context(), transcriptionID, userID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Transcription not found")
		}
		h.Logger.WithError(err).Error("Failed to fetch transcription for mindmap read")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch transcription")
	}

	mindmap, err := h.Store.GetMindmapByTranscription(c.Context(), transcriptionID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
				"status":  "not_started",
				"mindmap": nil,
			})
		}
		h.Logger.WithError(err).Error("Failed to fetch mindmap")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch mindmap")
	}

	response := fiber.Map{
		"status":  mindmap.Status,
		"mindmap": nil,
	}
	if mindmap.Status == models.StatusCompleted {
		response["mindmap"] = mindmap.Data
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, response)
}
