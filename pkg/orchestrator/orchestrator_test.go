package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// memJobStore is an in-process JobStore fake for testing the
// orchestrator's state machine and idempotency contract.
type memJobStore struct {
	mu      sync.Mutex
	states  map[string]State
	outputs map[string][]byte
	hashes  map[string]string
}

func newMemJobStore() *memJobStore {
	return &memJobStore{
		states:  map[string]State{},
		outputs: map[string][]byte{},
		hashes:  map[string]string{},
	}
}

func (m *memJobStore) GetState(ctx context.Context, jobID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[jobID], nil
}

func (m *memJobStore) SetState(ctx context.Context, jobID string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[jobID] = state
	return nil
}

func (m *memJobStore) GetStoredOutput(ctx context.Context, jobID string) ([]byte, string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.outputs[jobID]
	return out, m.hashes[jobID], ok, nil
}

func (m *memJobStore) PutOutput(ctx context.Context, jobID string, output []byte, decisionHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[jobID] = output
	m.hashes[jobID] = decisionHash
	return nil
}

func TestJobKeyIsDeterministic(t *testing.T) {
	in := JobKeyInput{
		MessageID:    "msg-1",
		Stage:        registry.StageIdentity,
		ConfigSHA256: "abc",
		InputArtifactRefs: []model.ArtifactRef{
			{SchemaID: model.SchemaNormalizedMessage, URI: "ire://msg-1/normalize/x", SHA256: "x"},
		},
	}
	a, err := JobKey(in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := JobKey(in)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("expected job key to be deterministic for identical input")
	}
}

func TestJobKeyRejectsInvalidStage(t *testing.T) {
	_, err := JobKey(JobKeyInput{MessageID: "msg-1", Stage: "NOT_A_STAGE"})
	if err == nil {
		t.Fatal("expected validation error for invalid stage")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := newMemJobStore()
	calls := 0
	fn := func(ctx context.Context) ([]byte, string, error) {
		calls++
		return []byte("output"), "hash-1", nil
	}

	out1, hash1, state1, err := Run(context.Background(), store, "job-1", fn)
	if err != nil {
		t.Fatal(err)
	}
	if state1 != StateDone {
		t.Fatalf("expected DONE, got %s", state1)
	}

	out2, hash2, state2, err := Run(context.Background(), store, "job-1", fn)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected fn to run exactly once across two Run calls for the same job, ran %d times", calls)
	}
	if string(out1) != string(out2) || hash1 != hash2 || state2 != StateDone {
		t.Fatal("expected identical cached result on second Run")
	}
}

func TestRunRetriesOnlyDependencyUnavailable(t *testing.T) {
	store := newMemJobStore()
	attempts := 0
	fn := func(ctx context.Context) ([]byte, string, error) {
		attempts++
		return nil, "", ireerrors.New(ireerrors.KindDependencyUnavailable, string(registry.StageIdentity), "directory_unreachable")
	}

	_, _, state, err := Run(context.Background(), store, "job-retry", fn)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if state != StateFailedClosed {
		t.Fatalf("expected FAILED_CLOSED, got %s", state)
	}
	if attempts != MaxIORetries+1 {
		t.Fatalf("expected %d attempts, got %d", MaxIORetries+1, attempts)
	}
}

func TestRunDoesNotRetryValidationFailures(t *testing.T) {
	store := newMemJobStore()
	attempts := 0
	fn := func(ctx context.Context) ([]byte, string, error) {
		attempts++
		return nil, "", ireerrors.New(ireerrors.KindValidation, string(registry.StageClassify), "schema_invalid")
	}

	_, _, state, err := Run(context.Background(), store, "job-novalidretry", fn)
	if err == nil {
		t.Fatal("expected error")
	}
	if state != StateFailedClosed {
		t.Fatalf("expected FAILED_CLOSED, got %s", state)
	}
	if attempts != 1 {
		t.Fatalf("validation failures must not be retried, got %d attempts", attempts)
	}
}

func TestReplayDetectsMatch(t *testing.T) {
	store := newMemJobStore()
	if err := store.PutOutput(context.Background(), "job-original", []byte("out"), "same-hash"); err != nil {
		t.Fatal(err)
	}

	fn := func(ctx context.Context) ([]byte, string, error) {
		return []byte("out"), "same-hash", nil
	}

	result, err := Replay(context.Background(), store, "job-original", "job-replay-1", fn)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Matches {
		t.Fatal("expected replay to match stored decision hash")
	}
	if result.NewArtifactJobID == "job-original" {
		t.Fatal("replay must write under a new job key, never alias the original")
	}
}

func TestReplayDetectsDivergence(t *testing.T) {
	store := newMemJobStore()
	if err := store.PutOutput(context.Background(), "job-original", []byte("out"), "old-hash"); err != nil {
		t.Fatal(err)
	}

	fn := func(ctx context.Context) ([]byte, string, error) {
		return []byte("out-v2"), "new-hash", nil
	}

	result, err := Replay(context.Background(), store, "job-original", "job-replay-2", fn)
	if err != nil {
		t.Fatal(err)
	}
	if result.Matches {
		t.Fatal("expected divergence to be detected")
	}
	if result.StoredHash != "old-hash" || result.RecomputedHash != "new-hash" {
		t.Fatalf("unexpected hashes: %+v", result)
	}
}

func TestReplayFailsClosedWhenSourceMissing(t *testing.T) {
	store := newMemJobStore()
	fn := func(ctx context.Context) ([]byte, string, error) {
		return []byte("out"), "hash", nil
	}
	_, err := Replay(context.Background(), store, "job-does-not-exist", "job-replay-3", fn)
	if err == nil {
		t.Fatal("expected error when the source job has no recorded output")
	}
}
