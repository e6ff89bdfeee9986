// Package llm adapts a single-turn completion client to the
// deterministic-params-only interfaces.LLMProvider port (§6), with
// purpose-based model routing and content-addressed caching through
// pkg/inferencecache. No tool-calling surface survives from the
// teacher's client: the Classifier and Extractor only ever send one
// prompt and parse one text response (§4.6, §4.7), and an undocumented
// function-calling path would give the LLM a way to diverge from the
// verbatim-evidence contract those stages enforce.
package llm

import "context"

// Message is one turn of a chat-style prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SamplingOptions are deterministic generation parameters. A fixed
// Seed plus Temperature=0 is how a provider is expected to behave
// reproducibly when determinism_mode requires it, though
// reproducibility is ultimately enforced by the inference cache, not
// by provider-side determinism alone.
type SamplingOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	Seed        int64   `json:"seed"`
	MaxTokens   int     `json:"max_tokens"`
}

// Response is a single-turn completion result.
type Response struct {
	Content string `json:"content"`
}

// Client performs one chat completion against a concrete model
// backend (a local model server, a hosted API, …).
type Client interface {
	Chat(ctx context.Context, messages []Message, options SamplingOptions) (*Response, error)
}
