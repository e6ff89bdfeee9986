// Package inferencecache implements the content-addressed LLM
// inference cache (§4.4). Entries are keyed by a deterministic
// function of {purpose, model_id, params, prompt_sha256,
// input_digest_sha256} so a cache lookup is reproducible across
// processes and across time — the same request always derives the
// same key, and a replay never needs to re-invoke a provider to find
// a prior answer.
//
// This generalizes the teacher's VCR-tape primitive (pkg/tape): where
// a tape records an arbitrary sequence of nondeterministic inputs by
// recorder-assigned sequence number, the inference cache instead
// derives its key purely from request content, so lookups work without
// replaying anything in order.
package inferencecache

import (
	"context"
	"fmt"
	"sync"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// Key is the {purpose, model_id, params, prompt_sha256,
// input_digest_sha256} tuple hashed into llm_cache_key.
type Key struct {
	Purpose           registry.ClassificationPurpose `json:"purpose"`
	ModelID           string                         `json:"model_id"`
	Params            model.LLMParams                `json:"params"`
	PromptSHA256      string                          `json:"prompt_sha256"`
	InputDigestSHA256 string                          `json:"input_digest_sha256"`
}

// Derive computes llm_cache_key = SHA-256(RFC8785-JSON(key)).
func Derive(k Key) (string, error) {
	if err := validatePurpose(k.Purpose); err != nil {
		return "", err
	}
	h, err := canonicalize.CanonicalHash(k)
	if err != nil {
		return "", fmt.Errorf("inferencecache: canonicalize key: %w", err)
	}
	return h, nil
}

func validatePurpose(p registry.ClassificationPurpose) error {
	switch p {
	case registry.PurposeClassify, registry.PurposeExtract, registry.PurposeIdentityAssist:
		return nil
	default:
		return &registry.ErrNonCanonical{Vocabulary: "classification_purpose", Value: string(p)}
	}
}

// Store is the inference cache's storage port. Implementations are
// content-addressed: Put is keyed by the cache key, never overwritten,
// and entries are treated as immutable artifacts so eviction never
// breaks a future replay — the key can always be re-derived and, if
// present, re-fetched.
type Store interface {
	Get(ctx context.Context, cacheKey string) (*model.LLMInferenceArtifact, bool, error)
	Put(ctx context.Context, cacheKey string, artifact model.LLMInferenceArtifact) error
}

// Cache wraps a Store with the determinism-mode fail-closed contract
// of §4.4: a miss while determinism_mode=true is a
// KindDeterminismViolation with reason determinism_cache_miss.
type Cache struct {
	store Store
}

func New(store Store) *Cache {
	return &Cache{store: store}
}

// Lookup derives the cache key for k and returns (artifact, cacheKey,
// nil) on a hit, or an error if determinismMode is true and there is
// no cached artifact. Callers in non-determinism mode get
// (nil, cacheKey, nil) on a miss and must invoke the provider
// themselves, then call Record.
func (c *Cache) Lookup(ctx context.Context, k Key, determinismMode bool) (*model.LLMInferenceArtifact, string, error) {
	cacheKey, err := Derive(k)
	if err != nil {
		return nil, "", ireerrors.Wrap(ireerrors.KindValidation, "", ireerrors.ReasonSchemaInvalid, err)
	}

	artifact, hit, err := c.store.Get(ctx, cacheKey)
	if err != nil {
		return nil, cacheKey, ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, err)
	}
	if hit {
		return artifact, cacheKey, nil
	}
	if determinismMode {
		return nil, cacheKey, ireerrors.New(ireerrors.KindDeterminismViolation, "", ireerrors.ReasonDeterminismCacheMiss)
	}
	return nil, cacheKey, nil
}

// Record stores a freshly produced inference artifact under its cache key.
func (c *Cache) Record(ctx context.Context, k Key, artifact model.LLMInferenceArtifact) (string, error) {
	cacheKey, err := Derive(k)
	if err != nil {
		return "", ireerrors.Wrap(ireerrors.KindValidation, "", ireerrors.ReasonSchemaInvalid, err)
	}
	if err := c.store.Put(ctx, cacheKey, artifact); err != nil {
		return cacheKey, ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, err)
	}
	return cacheKey, nil
}

// MemStore is an in-process Store, used in tests and single-node replay.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]model.LLMInferenceArtifact
}

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]model.LLMInferenceArtifact)}
}

func (m *MemStore) Get(ctx context.Context, cacheKey string) (*model.LLMInferenceArtifact, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.entries[cacheKey]
	if !ok {
		return nil, false, nil
	}
	return &a, true, nil
}

func (m *MemStore) Put(ctx context.Context, cacheKey string, artifact model.LLMInferenceArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[cacheKey]; exists {
		return nil // content-addressed: first write wins, never overwritten
	}
	m.entries[cacheKey] = artifact
	return nil
}
