// Package orchestrator implements the Stage Orchestrator (§4.9): it
// computes each stage's job key, enforces the idempotent write
// contract, drives the PENDING→RUNNING→DONE|FAILED_CLOSED|DEAD_LETTERED
// state machine, and (in replay mode) re-executes a stage and compares
// its decision_hash against the stored value rather than overwriting.
//
// This generalizes the teacher's replay.Engine (pkg/replay/engine.go):
// where that engine replays a flat event sequence and hashes whole
// payloads, the orchestrator here is keyed per (message_id, stage) and
// compares the narrower, timestamp-free decision_hash so divergence
// detection survives config/ruleset versioning across runs.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// State is a stage's lifecycle state within one run.
type State string

const (
	StatePending       State = "PENDING"
	StateRunning       State = "RUNNING"
	StateDone          State = "DONE"
	StateFailedClosed  State = "FAILED_CLOSED"
	StateDeadLettered  State = "DEAD_LETTERED"
)

// JobKeyInput is the canonical object hashed into job_id (§4.9).
type JobKeyInput struct {
	MessageID         string             `json:"message_id"`
	Stage             registry.Stage     `json:"stage"`
	ConfigSHA256      string             `json:"config_sha256"`
	RulesetSHA256     string             `json:"ruleset_sha256,omitempty"` // route stage only
	InputArtifactRefs []model.ArtifactRef `json:"input_artifact_refs"`
}

// JobKey computes job_id = SHA-256(canonical(JobKeyInput)).
func JobKey(in JobKeyInput) (string, error) {
	if err := registry.ValidateStage(in.Stage); err != nil {
		return "", err
	}
	h, err := canonicalize.CanonicalHash(in)
	if err != nil {
		return "", fmt.Errorf("orchestrator: canonicalize job key: %w", err)
	}
	return h, nil
}

// StageFunc runs one stage's decision logic. It must be a pure
// function of its inputs: no reads of wall-clock time into anything
// that reaches decision_hash.
type StageFunc func(ctx context.Context) (output []byte, decisionHash string, err error)

// JobStore tracks the per-(message_id, stage) state machine and
// provides idempotent artifact writes keyed by job_id.
type JobStore interface {
	GetState(ctx context.Context, jobID string) (State, error)
	SetState(ctx context.Context, jobID string, state State) error
	GetStoredOutput(ctx context.Context, jobID string) (output []byte, decisionHash string, found bool, err error)
	PutOutput(ctx context.Context, jobID string, output []byte, decisionHash string) error
}

// MaxIORetries bounds retry of transient I/O failures only. Decision-
// stage logic failures (validation, safety override, determinism
// violation, internal) are never retried — they fail the stage closed
// immediately (§4.9, §9 error taxonomy).
const MaxIORetries = 3

// Run executes a stage under the idempotent job contract: if the
// job's output already exists (DONE), it is returned without
// re-invoking fn — a second attempt at an already-completed job is a
// no-op write. Otherwise fn runs, retrying only on DependencyUnavailable
// errors up to MaxIORetries, and the result is written exactly once.
// A panic inside fn is recovered and fails the stage closed with a
// KindInternal error.
func Run(ctx context.Context, store JobStore, jobID string, fn StageFunc) (output []byte, decisionHash string, state State, err error) {
	if existing, hash, found, getErr := store.GetStoredOutput(ctx, jobID); getErr == nil && found {
		return existing, hash, StateDone, nil
	}

	if setErr := store.SetState(ctx, jobID, StateRunning); setErr != nil {
		return nil, "", StateFailedClosed, setErr
	}

	var lastErr error
	for attempt := 0; attempt <= MaxIORetries; attempt++ {
		out, hash, runErr := func() (o []byte, h string, e error) {
			defer func() {
				if r := recover(); r != nil {
					e = ireerrors.Wrap(ireerrors.KindInternal, "", "stage_panic", fmt.Errorf("panic: %v", r))
				}
			}()
			return fn(ctx)
		}()
		if runErr == nil {
			if putErr := store.PutOutput(ctx, jobID, out, hash); putErr != nil {
				_ = store.SetState(ctx, jobID, StateFailedClosed)
				return nil, "", StateFailedClosed, putErr
			}
			_ = store.SetState(ctx, jobID, StateDone)
			return out, hash, StateDone, nil
		}

		lastErr = runErr
		if !isRetryable(runErr) {
			break
		}
	}

	_ = store.SetState(ctx, jobID, StateFailedClosed)
	return nil, "", StateFailedClosed, lastErr
}

func isRetryable(err error) bool {
	ireErr, ok := err.(*ireerrors.Error)
	if !ok {
		return false
	}
	return ireErr.Kind == ireerrors.KindDependencyUnavailable
}

// ReplayResult is the outcome of re-executing a stage in replay mode.
type ReplayResult struct {
	Matches          bool
	StoredHash       string
	RecomputedHash   string
	NewArtifactJobID string
}

// Replay re-executes fn (whatever inputs and determinism setting fn
// itself uses) and compares the freshly computed decision_hash to the
// one stored for storedJobID. It never overwrites the original
// artifact: a mismatch is reported as ReplayResult.Matches == false,
// and in either case the re-execution is written under its own (new)
// job key so replay artifacts are versioned, never aliased to the
// original (§4.9).
func Replay(ctx context.Context, store JobStore, storedJobID string, newJobID string, fn StageFunc) (ReplayResult, error) {
	_, storedHash, found, err := store.GetStoredOutput(ctx, storedJobID)
	if err != nil {
		return ReplayResult{}, err
	}
	if !found {
		return ReplayResult{}, ireerrors.New(ireerrors.KindIntegrity, "", "replay_source_not_found")
	}

	out, recomputedHash, _, runErr := Run(ctx, store, newJobID, fn)
	if runErr != nil {
		return ReplayResult{}, runErr
	}
	_ = out

	return ReplayResult{
		Matches:          recomputedHash == storedHash,
		StoredHash:       storedHash,
		RecomputedHash:   recomputedHash,
		NewArtifactJobID: newJobID,
	}, nil
}
