package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	postgrest "github.com/supabase-community/postgrest-go"
)

const checkpointTable = "pipeline_checkpoints"

// Checkpoint maps to the pipeline_checkpoints table. One row per
// (run_id, step_name) pair holds the serialized step result; its existence is
// what makes a step skip-and-replay on retry.
type Checkpoint struct {
	RunID     string          `json:"run_id"`
	StepName  string          `json:"step_name"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

// CheckpointStore records step results keyed by (runID, stepName). A result
// must be durable before the next step of the run begins.
type CheckpointStore interface {
	Load(ctx context.Context, runID, stepName string) (json.RawMessage, bool, error)
	Save(ctx context.Context, runID, stepName string, result json.RawMessage) error
}

// SupabaseCheckpointStore persists checkpoints through PostgREST. It talks to
// the REST endpoint directly with the service key, same as the processor's
// job-status table did.
type SupabaseCheckpointStore struct {
	client *postgrest.Client
}

// NewSupabaseCheckpointStore builds a checkpoint store from a Supabase project
// URL and service key.
func NewSupabaseCheckpointStore(supabaseURL, serviceKey string) (*SupabaseCheckpointStore, error) {
	if supabaseURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase URL and service key must be set for the checkpoint store")
	}
	client := postgrest.NewClient(supabaseURL+"/rest/v1", "", map[string]string{
		"apikey":        serviceKey,
		"Authorization": fmt.Sprintf("Bearer %s", serviceKey),
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("initialize checkpoint store client: %w", client.ClientError)
	}
	return &SupabaseCheckpointStore{client: client}, nil
}

func (s *SupabaseCheckpointStore) Load(ctx context.Context, runID, stepName string) (json.RawMessage, bool, error) {
	var rows []Checkpoint
	_, err := s.client.From(checkpointTable).
		Select("*", "", false).
		Eq("run_id", runID).
		Eq("step_name", stepName).
		ExecuteTo(&rows)
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint %s/%s: %w", runID, stepName, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0].Result, true, nil
}

func (s *SupabaseCheckpointStore) Save(ctx context.Context, runID, stepName string, result json.RawMessage) error {
	record := Checkpoint{
		RunID:    runID,
		StepName: stepName,
		Result:   result,
	}
	// Upsert on (run_id, step_name) so a re-run racing a slow first attempt
	// cannot fail the whole run on a duplicate key.
	_, _, err := s.client.From(checkpointTable).
		Insert(record, true, "run_id,step_name", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("save checkpoint %s/%s: %w", runID, stepName, err)
	}
	return nil
}

// MemoryCheckpointStore is an in-memory CheckpointStore for tests.
type MemoryCheckpointStore struct {
	mu      sync.Mutex
	results map[string]json.RawMessage
}

// NewMemoryCheckpointStore creates an empty MemoryCheckpointStore.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{results: make(map[string]json.RawMessage)}
}

func checkpointKey(runID, stepName string) string {
	return runID + "\x00" + stepName
}

func (s *MemoryCheckpointStore) Load(ctx context.Context, runID, stepName string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[checkpointKey(runID, stepName)]
	return result, ok, nil
}

func (s *MemoryCheckpointStore) Save(ctx context.Context, runID, stepName string, result json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[checkpointKey(runID, stepName)] = result
	return nil
}
