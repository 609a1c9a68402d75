package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// RunContext carries the identity of one pipeline run through its steps.
// Steps executed with the same RunID replay their checkpointed results, which
// is what turns at-least-once event delivery into exactly-once effective
// execution.
type RunContext struct {
	RunID       string
	Pipeline    string
	checkpoints CheckpointStore
	log         *logrus.Entry
}

// Log returns the structured log entry scoped to this run.
func (rc *RunContext) Log() *logrus.Entry {
	return rc.log
}

// Step runs fn at most once per (run, name) pair. If a checkpoint exists the
// stored result is decoded and returned without invoking fn; otherwise fn runs
// and its result is persisted before Step returns. A failure in fn is returned
// as-is and leaves no checkpoint, so the step re-executes on the next attempt.
func Step[T any](ctx context.Context, rc *RunContext, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	raw, ok, err := rc.checkpoints.Load(ctx, rc.RunID, name)
	if err != nil {
		return zero, fmt.Errorf("step %q: %w", name, err)
	}
	if ok {
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return zero, fmt.Errorf("step %q: decode checkpointed result: %w", name, err)
		}
		rc.log.WithField("step", name).Info("Replaying memoized step result")
		return out, nil
	}

	out, err := fn(ctx)
	if err != nil {
		return zero, fmt.Errorf("step %q: %w", name, err)
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return zero, fmt.Errorf("step %q: encode result: %w", name, err)
	}
	if err := rc.checkpoints.Save(ctx, rc.RunID, name, encoded); err != nil {
		return zero, fmt.Errorf("step %q: %w", name, err)
	}
	rc.log.WithField("step", name).Info("Step completed and checkpointed")
	return out, nil
}

// PipelineFunc is a pipeline entry point: it receives the run context plus the
// raw event data and returns the pipeline's output value.
type PipelineFunc func(ctx context.Context, rc *RunContext, data json.RawMessage) (interface{}, error)

// Executor drives pipeline runs to completion with retry and backoff. Step
// memoization means a retried run only re-executes the step that failed.
type Executor struct {
	Checkpoints CheckpointStore
	Log         *logrus.Logger
	MaxAttempts int
	BaseBackoff time.Duration
}

// NewExecutor creates an Executor with the given checkpoint store and sane
// retry defaults.
func NewExecutor(checkpoints CheckpointStore, log *logrus.Logger) *Executor {
	return &Executor{
		Checkpoints: checkpoints,
		Log:         log,
		MaxAttempts: 4,
		BaseBackoff: 2 * time.Second,
	}
}

// Execute runs the pipeline identified by name for the given run ID. Attempts
// are spaced with exponential backoff; errors marked Permanent fail the run
// immediately.
func (e *Executor) Execute(ctx context.Context, runID, name string, fn PipelineFunc, data json.RawMessage) (interface{}, error) {
	rc := &RunContext{
		RunID:       runID,
		Pipeline:    name,
		checkpoints: e.Checkpoints,
		log: e.Log.WithFields(logrus.Fields{
			"run_id":   runID,
			"pipeline": name,
		}),
	}

	attempts := e.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := fn(ctx, rc, data)
		if err == nil {
			rc.log.WithField("attempt", attempt).Info("Pipeline run completed")
			return out, nil
		}
		lastErr = err

		if IsPermanent(err) {
			rc.log.WithError(err).Error("Pipeline run failed permanently")
			return nil, err
		}
		if attempt == attempts {
			break
		}

		backoff := e.BaseBackoff << (attempt - 1)
		rc.log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": backoff.String(),
		}).Warn("Pipeline run attempt failed, retrying")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	rc.log.WithError(lastErr).WithField("attempts", attempts).Error("Pipeline run exhausted retries")
	return nil, lastErr
}
