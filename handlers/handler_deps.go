package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	supa "github.com/supabase-community/supabase-go"

	"clippilot/internal/runtime"
	"clippilot/internal/store"
)

// EventSubmitter is the slice of the dispatcher the handlers need: fire an
// event and return. Pipelines run asynchronously; handlers never wait for
// them.
type EventSubmitter interface {
	Submit(evt runtime.Event) error
}

var validate = validator.New()

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Events       EventSubmitter
	Store        store.Store
	Supabase     *supa.Client
	ExportBucket string
	Logger       *logrus.Logger
}

// NewApplicationHandler creates an ApplicationHandler with the given
// dependencies.
func NewApplicationHandler(events EventSubmitter, st store.Store, supabase *supa.Client, exportBucket string, logger *logrus.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		Events:       events,
		Store:        st,
		Supabase:     supabase,
		ExportBucket: exportBucket,
		Logger:       logger,
	}
}

// requestUserID extracts the caller identity. Authentication itself lives in
// front of this service; the gateway only forwards the resolved user ID.
func requestUserID(c *fiber.Ctx) (string, error) {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Missing X-User-ID header")
	}
	return userID, nil
}

// submitEvent builds and enqueues an event, translating a full queue into a
// 503 so callers can retry.
func (h *ApplicationHandler) submitEvent(c *fiber.Ctx, name string, data interface{}) (runtime.Event, error) {
	evt, err := runtime.NewEvent(name, data)
	if err != nil {
		h.Logger.WithError(err).Error("Failed to encode event")
		return runtime.Event{}, fiber.NewError(fiber.StatusInternalServerError, "Could not encode event")
	}
	if err := h.Events.Submit(evt); err != nil {
		h.Logger.WithError(err).Warn("Event queue rejected event")
		return runtime.Event{}, fiber.NewError(fiber.StatusServiceUnavailable, "Pipeline queue is full, try again later")
	}
	return evt, nil
}
