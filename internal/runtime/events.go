package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Event is the trigger surface: a named event with a JSON payload. The ID
// doubles as the run ID, so re-delivering the same event replays the run's
// checkpoints instead of repeating its side effects.
type Event struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// NewEvent builds an event with a fresh ID.
func NewEvent(name string, data interface{}) (Event, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("encode event %q data: %w", name, err)
	}
	return Event{
		ID:   uuid.NewString(),
		Name: name,
		Data: encoded,
	}, nil
}

// Router maps event names to pipeline entry points and hands matched events to
// the executor.
type Router struct {
	executor *Executor
	routes   map[string]PipelineFunc
}

// NewRouter creates a Router backed by the given executor.
func NewRouter(executor *Executor) *Router {
	return &Router{
		executor: executor,
		routes:   make(map[string]PipelineFunc),
	}
}

// Register binds an event name to a pipeline. Later registrations for the
// same name replace earlier ones.
func (r *Router) Register(name string, fn PipelineFunc) {
	r.routes[name] = fn
}

// Handle executes the pipeline registered for the event's name. An unknown
// event name is a permanent failure: redelivery cannot fix it.
func (r *Router) Handle(ctx context.Context, evt Event) (interface{}, error) {
	fn, ok := r.routes[evt.Name]
	if !ok {
		return nil, Permanent(fmt.Errorf("no pipeline registered for event %q", evt.Name))
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	return r.executor.Execute(ctx, evt.ID, evt.Name, fn, evt.Data)
}
