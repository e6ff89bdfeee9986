// Package corrections implements the Correction Sink (§4.11): an
// append-only ledger of reviewer corrections. A CorrectionRecord
// references the artifacts it corrects by (schema_id, sha256); it
// never mutates those artifacts, and a later reprocess run may consume
// it offline. The HITL audit event's output_ref points at the record
// this package appends.
package corrections

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
)

// Submission is the caller-supplied content of a correction, before a
// CorrectionID is assigned.
type Submission struct {
	ReviewItemID    string
	ActorID         string
	Patch           string
	TargetArtifacts []model.ArtifactRef
}

// Store persists correction records and lets later reprocess runs
// fetch everything recorded against a given target artifact.
type Store interface {
	Append(ctx context.Context, rec model.CorrectionRecord) error
	ListByTarget(ctx context.Context, schemaID, sha256 string) ([]model.CorrectionRecord, error)
}

// Sink assigns content-addressed CorrectionIDs and appends through a Store.
type Sink struct {
	mu    sync.Mutex
	store Store
	clock func() time.Time
	seq   uint64
}

// NewSink returns a Sink writing through store, using time.Now for
// CreatedAt. Tests should override clock via WithClock for determinism.
func NewSink(store Store) *Sink {
	return &Sink{store: store, clock: time.Now}
}

// WithClock overrides the sink's clock, for deterministic tests.
func (s *Sink) WithClock(clock func() time.Time) *Sink {
	s.clock = clock
	return s
}

// Submit appends a new CorrectionRecord. CorrectionID is the content
// hash of the submission plus a monotonic sequence number, so repeated
// submissions of the same patch against the same targets remain
// individually addressable rather than colliding.
func (s *Sink) Submit(ctx context.Context, sub Submission) (model.CorrectionRecord, error) {
	if sub.ReviewItemID == "" {
		return model.CorrectionRecord{}, fmt.Errorf("corrections: review_item_id is required")
	}
	if sub.ActorID == "" {
		return model.CorrectionRecord{}, fmt.Errorf("corrections: actor_id is required")
	}
	if len(sub.TargetArtifacts) == 0 {
		return model.CorrectionRecord{}, fmt.Errorf("corrections: at least one target artifact is required")
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	id, err := correctionID(sub, seq)
	if err != nil {
		return model.CorrectionRecord{}, fmt.Errorf("corrections: computing correction_id: %w", err)
	}

	rec := model.CorrectionRecord{
		CorrectionID:    id,
		ReviewItemID:    sub.ReviewItemID,
		ActorID:         sub.ActorID,
		Patch:           sub.Patch,
		TargetArtifacts: sub.TargetArtifacts,
		CreatedAt:       s.clock(),
	}

	if err := s.store.Append(ctx, rec); err != nil {
		return model.CorrectionRecord{}, err
	}
	return rec, nil
}

func correctionID(sub Submission, seq uint64) (string, error) {
	h, err := canonicalize.CanonicalHash(struct {
		Sequence     uint64               `json:"sequence"`
		ReviewItemID string               `json:"review_item_id"`
		ActorID      string               `json:"actor_id"`
		Patch        string               `json:"patch"`
		Targets      []model.ArtifactRef `json:"target_artifact_refs"`
	}{
		Sequence:     seq,
		ReviewItemID: sub.ReviewItemID,
		ActorID:      sub.ActorID,
		Patch:        sub.Patch,
		Targets:      sub.TargetArtifacts,
	})
	if err != nil {
		return "", err
	}
	return "correction-" + h[:16], nil
}

// MemStore is an in-process Store keyed for quick target lookup, used
// in tests and for single-process deployments ahead of a durable
// pkg/store-backed adapter.
type MemStore struct {
	mu      sync.Mutex
	records []model.CorrectionRecord
}

// NewMemStore returns an empty in-process correction store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) Append(ctx context.Context, rec model.CorrectionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *MemStore) ListByTarget(ctx context.Context, schemaID, sha256 string) ([]model.CorrectionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CorrectionRecord
	for _, rec := range m.records {
		for _, t := range rec.TargetArtifacts {
			if t.SchemaID == schemaID && t.SHA256 == sha256 {
				out = append(out, rec)
				break
			}
		}
	}
	return out, nil
}
