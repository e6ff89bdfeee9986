// Package audit implements the append-only audit log (§4.2): one
// linear, hash-chained sequence of events per (message_id, run_id),
// with a verifier that recomputes the chain and reports the first
// broken link.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/interfaces"
	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/merkle"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// GenesisHash is the fixed zero-hash the first event in every chain
// chains from (I1).
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

type chainKey struct {
	messageID string
	runID     string
}

// Log is an in-process, append-only audit log keyed by (message_id, run_id).
// It satisfies interfaces.AuditStore and is the reference implementation;
// durable backends (Postgres/SQLite, see pkg/store) wrap the same
// event-hash computation.
type Log struct {
	mu     sync.Mutex
	chains map[chainKey][]model.AuditEvent
	clock  interfaces.Clock
}

// NewLog creates an empty audit log.
func NewLog(clock interfaces.Clock) *Log {
	return &Log{
		chains: make(map[chainKey][]model.AuditEvent),
		clock:  clock,
	}
}

// Append computes event_id/prev_event_hash/event_hash and appends the
// event to its chain. The caller supplies everything except the
// chain-linkage fields (§4.2); append is atomic under the log's mutex,
// modeling the store-level write-then-acknowledge requirement.
func (l *Log) Append(ctx context.Context, messageID, runID string, event model.AuditEvent) error {
	if err := registry.ValidateStage(event.Stage); err != nil {
		return ireerrors.Wrap(ireerrors.KindValidation, string(event.Stage), ireerrors.ReasonNonCanonicalLabel, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := chainKey{messageID, runID}
	chain := l.chains[key]

	prevHash := GenesisHash
	if len(chain) > 0 {
		prevHash = chain[len(chain)-1].EventHash
	}

	event.MessageID = messageID
	event.RunID = runID
	event.EventID = uuid.New().String()
	event.PrevEventHash = prevHash
	event.OccurredAt = l.clock()
	event.EventHash = ""

	hash, err := computeEventHash(event)
	if err != nil {
		return ireerrors.Wrap(ireerrors.KindInternal, string(event.Stage), "event_hash_computation_failed", err)
	}
	event.EventHash = hash

	l.chains[key] = append(chain, event)
	return nil
}

// ReadChain returns the full event sequence for (message_id, run_id) in
// append order.
func (l *Log) ReadChain(ctx context.Context, messageID, runID string) ([]model.AuditEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	chain := l.chains[chainKey{messageID, runID}]
	out := make([]model.AuditEvent, len(chain))
	copy(out, chain)
	return out, nil
}

// eventHashInput is the canonical object hashed for event_hash (§4.2):
// the event body without the event_hash field itself, but including
// prev_event_hash so the chain links.
type eventHashInput struct {
	EventID       string                `json:"event_id"`
	MessageID     string                `json:"message_id"`
	RunID         string                `json:"run_id"`
	Stage         registry.Stage        `json:"stage"`
	InputRef      *model.ArtifactRef    `json:"input_ref,omitempty"`
	OutputRef     *model.ArtifactRef    `json:"output_ref,omitempty"`
	DecisionHash  string                `json:"decision_hash,omitempty"`
	ConfigRef     model.ArtifactRef     `json:"config_ref"`
	RulesRef      *model.ArtifactRef    `json:"rules_ref,omitempty"`
	ModelRef      *model.ArtifactRef    `json:"model_ref,omitempty"`
	PromptRef     *model.ArtifactRef    `json:"prompt_ref,omitempty"`
	Evidence      []model.EvidenceEntry `json:"evidence,omitempty"`
	PrevEventHash string                `json:"prev_event_hash"`
	OccurredAt    time.Time             `json:"occurred_at"`
}

func computeEventHash(e model.AuditEvent) (string, error) {
	input := eventHashInput{
		EventID:       e.EventID,
		MessageID:     e.MessageID,
		RunID:         e.RunID,
		Stage:         e.Stage,
		InputRef:      e.InputRef,
		OutputRef:     e.OutputRef,
		DecisionHash:  e.DecisionHash,
		ConfigRef:     e.ConfigRef,
		RulesRef:      e.RulesRef,
		ModelRef:      e.ModelRef,
		PromptRef:     e.PromptRef,
		Evidence:      e.Evidence,
		PrevEventHash: e.PrevEventHash,
		OccurredAt:    e.OccurredAt,
	}
	h, err := canonicalize.CanonicalHash(input)
	if err != nil {
		return "", fmt.Errorf("audit: canonicalize event: %w", err)
	}
	return h, nil
}

// VerifyResult reports the outcome of walking a chain.
type VerifyResult struct {
	OK            bool
	BrokenAtIndex int // -1 if OK
	Reason        string
}

// Verify recomputes every event_hash in the chain and checks the
// prev_event_hash linkage, reporting the index of the first break (P1).
func Verify(chain []model.AuditEvent) VerifyResult {
	expectedPrev := GenesisHash
	for i, e := range chain {
		if e.PrevEventHash != expectedPrev {
			return VerifyResult{OK: false, BrokenAtIndex: i, Reason: "prev_event_hash mismatch"}
		}
		stored := e.EventHash
		e.EventHash = ""
		recomputed, err := computeEventHash(e)
		if err != nil {
			return VerifyResult{OK: false, BrokenAtIndex: i, Reason: "event_hash recomputation failed: " + err.Error()}
		}
		if recomputed != stored {
			return VerifyResult{OK: false, BrokenAtIndex: i, Reason: "event_hash mismatch"}
		}
		expectedPrev = stored
	}
	return VerifyResult{OK: true, BrokenAtIndex: -1}
}

// EvidenceTree builds a Merkle tree over the chain's
// {stage -> output artifact sha256} evidence, supplementing the
// per-event hash chain with an O(log n) spot-check primitive: given a
// published root, an auditor can prove one stage's output was part of
// the run without fetching every other stage's artifact. Events
// without an OutputRef (e.g. a FAILED_CLOSED event with no output) are
// skipped; if a stage appears more than once, its last event's output
// wins, matching the orchestrator's one-output-per-job-key contract.
func EvidenceTree(chain []model.AuditEvent) *merkle.Tree {
	stageHashes := make(map[string]string)
	for _, e := range chain {
		if e.OutputRef == nil {
			continue
		}
		stageHashes[string(e.Stage)] = e.OutputRef.SHA256
	}
	return merkle.BuildEvidenceTree(stageHashes)
}
