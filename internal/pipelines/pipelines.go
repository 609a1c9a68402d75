// Package pipelines implements the four durable job pipelines. Each pipeline
// is a fixed sequence of checkpointed steps: a step's result is persisted
// before the next step runs, so a retried or re-delivered run resumes instead
// of repeating completed work.
package pipelines

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"clippilot/internal/mediaclient"
	"clippilot/internal/mindmapai"
	"clippilot/internal/runtime"
	"clippilot/internal/store"
)

// Event names, one per pipeline. These are the only way pipelines start.
const (
	EventTranscribeWithSpeakers = "video/transcribe.with.speakers"
	EventIdentifyClips          = "video/identify.clips"
	EventGenerateMindmap        = "transcription/generate.mindmap"
	EventProcessClips           = "clips/process"
)

var validate = validator.New()

// Pipelines bundles the collaborators every pipeline needs. Pipelines never
// call each other; they share only the store and the gateway clients.
type Pipelines struct {
	Store     store.Store
	Media     *mediaclient.Client
	Mindmaps  mindmapai.Generator
	Subtitles mediaclient.SubtitleCustomization
	Log       *logrus.Logger
}

// Register binds all four pipelines to their event names.
func (p *Pipelines) Register(r *runtime.Router) {
	r.Register(EventTranscribeWithSpeakers, route(p.TranscribeWithSpeakers))
	r.Register(EventIdentifyClips, route(p.IdentifyClips))
	r.Register(EventGenerateMindmap, route(p.GenerateMindmap))
	r.Register(EventProcessClips, route(p.ProcessClips))
}

// route adapts a typed pipeline entry point to the runtime's PipelineFunc.
// Undecodable or invalid payloads are permanent failures: redelivering the
// same event cannot make them valid.
func route[P any, R any](fn func(ctx context.Context, rc *runtime.RunContext, payload P) (R, error)) runtime.PipelineFunc {
	return func(ctx context.Context, rc *runtime.RunContext, data json.RawMessage) (interface{}, error) {
		var payload P
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, runtime.Permanent(fmt.Errorf("decode event data: %w", err))
		}
		if err := validate.Struct(payload); err != nil {
			return nil, runtime.Permanent(fmt.Errorf("invalid event data: %w", err))
		}
		return fn(ctx, rc, payload)
	}
}
