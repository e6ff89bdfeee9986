// Package provenance stamps produced artifacts with where they came
// from: which component produced them, at what version, and when.
// An Envelope is carried on the artifact itself but deliberately never
// enters a decision_hash (pkg/decisionhash builds its canonical inputs
// field-by-field and never embeds a whole artifact, so a stamp added
// here cannot leak into a hash meant to be reproducible across runs).
package provenance

import "time"

// Known Source values. Any non-empty string is accepted — this is not
// a closed registry vocabulary (§6) — but these cover every producer
// in this codebase.
const (
	SourceLLMProvider  = "llm_provider"
	SourceOCR          = "ocr_extractor"
	SourceRuleExtractor = "rule_extractor"
)

// Envelope is the {source, producer_version, produced_at} sidecar
// attached to an LLMInferenceArtifact or ExtractionResult so an audit
// query can answer "which model or extractor version produced this"
// without reconstructing it from the audit chain.
type Envelope struct {
	Source          string    `json:"source"`
	ProducerVersion string    `json:"producer_version"`
	ProducedAt      time.Time `json:"produced_at"`
}

// New stamps an envelope for a producer as of now.
func New(source, producerVersion string, now time.Time) Envelope {
	return Envelope{
		Source:          source,
		ProducerVersion: producerVersion,
		ProducedAt:      now,
	}
}
