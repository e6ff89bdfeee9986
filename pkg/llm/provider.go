package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/inferencecache"
	"github.com/aliuyar1234/intake-routing-engine/pkg/interfaces"
	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/provenance"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// Clock abstracts wall-clock time so Provider's cache writes are
// testable without affecting anything hashed into a decision (the
// timestamp lands only in LLMInferenceArtifact.ProducedAt and its
// Provenance.ProducedAt, both excluded from every decision_hash per I3).
type Clock func() time.Time

// Provider implements interfaces.LLMProvider on top of a purpose-routed
// Router and a content-addressed inferencecache.Cache: a request is
// first looked up by its deterministic key, and only invokes the
// underlying model client on a miss (outside determinism_mode, where a
// miss fails closed instead).
type Provider struct {
	router *Router
	cache  *inferencecache.Cache
	clock  Clock
}

// NewProvider wires a Router to an inference cache.
func NewProvider(router *Router, cache *inferencecache.Cache) *Provider {
	return &Provider{router: router, cache: cache, clock: time.Now}
}

// WithClock overrides the provider's clock, for deterministic tests.
func (p *Provider) WithClock(clock Clock) *Provider {
	p.clock = clock
	return p
}

// InferRequest extends interfaces.LLMRequest with the routing and
// caching metadata the Classifier/Extractor must supply: which purpose
// this call serves and a content digest of whatever input (canonical
// message text, attachment OCR output, …) grounds the prompt.
type InferRequest struct {
	Purpose           registry.ClassificationPurpose
	Prompt            string
	Params            model.LLMParams
	InputDigestSHA256 string
	DeterminismMode   bool
}

// Infer satisfies interfaces.LLMProvider for callers that only carry
// prompt+params; it derives InputDigestSHA256 from the prompt itself,
// which is sufficient when the prompt already embeds all stage input
// (the common case for single-shot classification/extraction prompts).
func (p *Provider) Infer(ctx context.Context, req interfaces.LLMRequest) (string, error) {
	return p.InferWithPurpose(ctx, InferRequest{
		Purpose:           registry.PurposeClassify,
		Prompt:            req.Prompt,
		Params:            req.Params,
		InputDigestSHA256: canonicalize.HashBytes([]byte(req.Prompt)),
	})
}

// InferWithPurpose is the full entry point: it consults the cache
// before ever calling a model client, and on a genuine miss stores the
// freshly produced output under its derived key before returning it.
func (p *Provider) InferWithPurpose(ctx context.Context, req InferRequest) (string, error) {
	promptHash := canonicalize.HashBytes([]byte(req.Prompt))

	route, ok := p.router.byPurpose[req.Purpose]
	if !ok {
		return "", fmt.Errorf("llm: no route configured for purpose %q", req.Purpose)
	}

	key := inferencecache.Key{
		Purpose:           req.Purpose,
		ModelID:           route.modelID,
		Params:            req.Params,
		PromptSHA256:      promptHash,
		InputDigestSHA256: req.InputDigestSHA256,
	}

	hit, _, err := p.cache.Lookup(ctx, key, req.DeterminismMode)
	if err != nil {
		return "", err
	}
	if hit != nil {
		return hit.OutputJSON, nil
	}

	resp, modelID, err := p.router.Chat(ctx, req.Purpose, []Message{{Role: "user", Content: req.Prompt}}, SamplingOptions{
		Temperature: req.Params.Temperature,
		TopP:        req.Params.TopP,
		MaxTokens:   req.Params.MaxTokens,
	})
	if err != nil {
		return "", ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, err)
	}

	producedAt := p.clock()
	artifact := model.LLMInferenceArtifact{
		Purpose:           req.Purpose,
		ModelID:           modelID,
		Params:            req.Params,
		PromptSHA256:      promptHash,
		InputDigestSHA256: req.InputDigestSHA256,
		OutputJSON:        resp.Content,
		OutputSHA256:      canonicalize.HashBytes([]byte(resp.Content)),
		ProducedAt:        producedAt,
		Provenance:        provenance.New(provenance.SourceLLMProvider, modelID, producedAt),
	}
	if _, err := p.cache.Record(ctx, key, artifact); err != nil {
		return "", err
	}

	return resp.Content, nil
}
