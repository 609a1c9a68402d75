package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testExecutor() *Executor {
	e := NewExecutor(NewMemoryCheckpointStore(), testLogger())
	e.BaseBackoff = time.Millisecond
	return e
}

func TestStepMemoizesResultAcrossRuns(t *testing.T) {
	e := testExecutor()

	calls := 0
	fn := func(ctx context.Context, rc *RunContext, data json.RawMessage) (interface{}, error) {
		return Step(ctx, rc, "expensive-step", func(ctx context.Context) (int, error) {
			calls++
			return 42, nil
		})
	}

	out, err := e.Execute(context.Background(), "run-1", "test-pipeline", fn, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 1, calls)

	// Re-delivering the same run replays the checkpoint without calling fn.
	out, err = e.Execute(context.Background(), "run-1", "test-pipeline", fn, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 1, calls)

	// A different run ID executes fresh.
	_, err = e.Execute(context.Background(), "run-2", "test-pipeline", fn, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFailedStepLeavesNoCheckpoint(t *testing.T) {
	e := testExecutor()
	e.MaxAttempts = 1

	calls := 0
	fn := func(ctx context.Context, rc *RunContext, data json.RawMessage) (interface{}, error) {
		return Step(ctx, rc, "flaky-step", func(ctx context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("backend hiccup")
			}
			return "ok", nil
		})
	}

	_, err := e.Execute(context.Background(), "run-1", "test-pipeline", fn, nil)
	require.Error(t, err)

	out, err := e.Execute(context.Background(), "run-1", "test-pipeline", fn, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, calls)
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	e := testExecutor()

	attempts := 0
	fn := func(ctx context.Context, rc *RunContext, data json.RawMessage) (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient failure")
		}
		return "done", nil
	}

	out, err := e.Execute(context.Background(), "run-1", "test-pipeline", fn, nil)
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 3, attempts)
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	e := testExecutor()
	e.MaxAttempts = 3

	attempts := 0
	fn := func(ctx context.Context, rc *RunContext, data json.RawMessage) (interface{}, error) {
		attempts++
		return nil, errors.New("always failing")
	}

	_, err := e.Execute(context.Background(), "run-1", "test-pipeline", fn, nil)
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecuteDoesNotRetryPermanentErrors(t *testing.T) {
	e := testExecutor()

	attempts := 0
	fn := func(ctx context.Context, rc *RunContext, data json.RawMessage) (interface{}, error) {
		attempts++
		return nil, Permanent(errors.New("record not found"))
	}

	_, err := e.Execute(context.Background(), "run-1", "test-pipeline", fn, nil)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, attempts)
}

func TestPermanentSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("step %q: %w", "fetch-data", Permanent(errors.New("not found")))
	assert.True(t, IsPermanent(err))
	assert.False(t, IsPermanent(errors.New("plain failure")))
	assert.Nil(t, Permanent(nil))
}

func TestRouterRejectsUnknownEvents(t *testing.T) {
	r := NewRouter(testExecutor())

	_, err := r.Handle(context.Background(), Event{ID: "run-1", Name: "video/unknown"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestRouterUsesEventIDAsRunID(t *testing.T) {
	e := testExecutor()
	r := NewRouter(e)

	calls := 0
	r.Register("video/test", func(ctx context.Context, rc *RunContext, data json.RawMessage) (interface{}, error) {
		return Step(ctx, rc, "only-step", func(ctx context.Context) (int, error) {
			calls++
			return calls, nil
		})
	})

	evt := Event{ID: "evt-1", Name: "video/test"}
	out, err := r.Handle(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, 1, out)

	// Duplicate delivery of the same event replays, so the side effect runs
	// once.
	out, err = r.Handle(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, 1, out)
	assert.Equal(t, 1, calls)
}

func TestDispatcherProcessesSubmittedEvents(t *testing.T) {
	e := testExecutor()
	r := NewRouter(e)

	done := make(chan string, 2)
	r.Register("video/test", func(ctx context.Context, rc *RunContext, data json.RawMessage) (interface{}, error) {
		done <- rc.RunID
		return nil, nil
	})

	d := NewDispatcher(r, testLogger(), 2, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Run(ctx)
	defer d.Stop()

	evt, err := NewEvent("video/test", map[string]string{"k": "v"})
	require.NoError(t, err)
	require.NoError(t, d.Submit(evt))

	select {
	case runID := <-done:
		assert.Equal(t, evt.ID, runID)
	case <-time.After(5 * time.Second):
		t.Fatal("event was never processed")
	}
}

func TestSubmitFailsWhenQueueFull(t *testing.T) {
	r := NewRouter(testExecutor())
	// Never started, so nothing drains the queue.
	d := NewDispatcher(r, testLogger(), 1, 1)

	evt, err := NewEvent("video/test", nil)
	require.NoError(t, err)
	require.NoError(t, d.Submit(evt))

	err = d.Submit(evt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")
}
