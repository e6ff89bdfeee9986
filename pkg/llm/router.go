package llm

import (
	"context"
	"fmt"

	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// Router selects a model client by inference purpose. Unlike the
// teacher's heuristic/embedding-based complexity router, model
// selection here is a fixed table keyed on
// registry.ClassificationPurpose: the purpose is already part of the
// cache key (pkg/inferencecache.Key) and of every downstream decision
// hash, so routing must be a pure function of purpose alone — a
// content-sensitive heuristic would make which model answered a
// request depend on the request's own text, which the cache key does
// not capture and replay could not reproduce.
type Router struct {
	byPurpose map[registry.ClassificationPurpose]routedClient
}

type routedClient struct {
	client  Client
	modelID string
}

// NewRouter builds a Router with no routes configured; call Route to
// register one model per purpose before first use.
func NewRouter() *Router {
	return &Router{byPurpose: make(map[registry.ClassificationPurpose]routedClient)}
}

// Route registers the model client and model_id used for a given
// purpose. Registering a purpose twice replaces its prior route.
func (r *Router) Route(purpose registry.ClassificationPurpose, client Client, modelID string) *Router {
	r.byPurpose[purpose] = routedClient{client: client, modelID: modelID}
	return r
}

// Chat dispatches to the client registered for purpose and returns
// its model_id alongside the response so callers can stamp it into
// the cache key and the audit event's model_ref.
func (r *Router) Chat(ctx context.Context, purpose registry.ClassificationPurpose, msgs []Message, options SamplingOptions) (*Response, string, error) {
	route, ok := r.byPurpose[purpose]
	if !ok {
		return nil, "", fmt.Errorf("llm: no route configured for purpose %q", purpose)
	}
	resp, err := route.client.Chat(ctx, msgs, options)
	if err != nil {
		return nil, route.modelID, err
	}
	return resp, route.modelID, nil
}
