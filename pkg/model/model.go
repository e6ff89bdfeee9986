// Package model defines the schema-validated artifacts of §3: the data
// that flows between stages, addressed by {schema_id, uri, sha256} and
// never mutated once written.
package model

import (
	"time"

	"github.com/aliuyar1234/intake-routing-engine/pkg/provenance"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// ArtifactRef is a handle to a stored artifact — components hold this,
// never a raw mutable reference (§9 Ownership).
type ArtifactRef struct {
	SchemaID string `json:"schema_id"`
	URI      string `json:"uri"`
	SHA256   string `json:"sha256"`
}

// Canonical schema URNs (§6).
const (
	SchemaNormalizedMessage      = "urn:ire:schema:normalized-message:1.0.0"
	SchemaIdentityResolution     = "urn:ire:schema:identity-resolution-result:1.0.0"
	SchemaClassificationResult   = "urn:ire:schema:classification-result:1.0.0"
	SchemaExtractionResult       = "urn:ire:schema:extraction-result:1.0.0"
	SchemaRoutingDecision        = "urn:ire:schema:routing-decision:1.0.0"
	SchemaAuditEvent             = "urn:ire:schema:audit-event:1.0.0"
	SchemaCorrectionRecord       = "urn:ire:schema:correction-record:1.0.0"
	SchemaLLMInference           = "urn:ire:schema:llm-inference:1.0.0"
)

// AVStatus is the AV scan outcome stamped on an Attachment before
// downstream use (§3).
type AVStatus string

const (
	AVClean      AVStatus = "CLEAN"
	AVInfected   AVStatus = "INFECTED"
	AVSuspicious AVStatus = "SUSPICIOUS"
	AVFailed     AVStatus = "FAILED"
)

// RawMIME is written once at ingest and never mutated.
type RawMIME struct {
	SHA256   string `json:"sha256"`
	Bytes    []byte `json:"-"`
	SourceID string `json:"source_id"`
}

// Attachment is written once per attachment; its AV status is stamped
// before any downstream stage reads it.
type Attachment struct {
	SHA256           string   `json:"sha256"`
	Filename         string   `json:"filename"`
	Bytes            []byte   `json:"-"`
	AVStatus         AVStatus `json:"av_status"`
	ScannerVersion   string   `json:"scanner_version,omitempty"`
	ExtractedTextRef *ArtifactRef `json:"extracted_text_ref,omitempty"`
	OCRConfidence    float64  `json:"ocr_confidence,omitempty"`
}

// NormalizedMessage is immutable after normalization; one per message.
type NormalizedMessage struct {
	MessageID           string        `json:"message_id"`
	SubjectCanonical     string        `json:"canonical_subject"`
	BodyCanonical        string        `json:"canonical_body"`
	SubjectOriginal      string        `json:"subject_original"`
	BodyOriginal         string        `json:"body_original"`
	ThreadMessageID      string        `json:"thread_message_id,omitempty"`
	ThreadInReplyTo      string        `json:"thread_in_reply_to,omitempty"`
	ThreadConversationID string        `json:"thread_conversation_id,omitempty"`
	SenderAddress        string        `json:"sender_address"`
	Recipients           []string      `json:"recipients"`
	AttachmentIDs        []string      `json:"attachment_ids"`
	IngestionSource      string        `json:"ingestion_source"`
	IngestedAt           time.Time     `json:"ingested_at"`
	MessageFingerprint   string        `json:"message_fingerprint"`
}

// IdentitySignal is one piece of evidence contributing to a candidate's score.
type IdentitySignal struct {
	Name   string  `json:"name"`
	Value  string  `json:"value"`
	Weight float64 `json:"weight"`
	Class  string  `json:"class"` // HARD | MEDIUM | SOFT
}

// IdentityCandidate is one scored entity candidate (§4.5).
type IdentityCandidate struct {
	EntityType       registry.EntityType `json:"entity_type"`
	EntityID         string              `json:"entity_id"`
	Score            float64             `json:"score"`
	Signals          []IdentitySignal    `json:"signals"`
	Evidence         []string            `json:"evidence_snippet_sha256"`
	HasHardSignal    bool                `json:"has_hard_signal"`
	DirectoryActive  bool                `json:"directory_active"`
	DirectoryUnknown bool                `json:"directory_unknown"`
}

// IdentityResolutionResult is written once per run.
type IdentityResolutionResult struct {
	TopK          []IdentityCandidate       `json:"top_k"`
	Status        registry.IdentityStatus   `json:"status"`
	StatusReason  string                    `json:"status_reason,omitempty"`
	ThresholdsRef ArtifactRef               `json:"thresholds_ref"`
}

// Selected returns the top-ranked candidate, or nil if the pool is empty.
func (r IdentityResolutionResult) Selected() *IdentityCandidate {
	if len(r.TopK) == 0 {
		return nil
	}
	return &r.TopK[0]
}

// LabeledConfidence is a multi-label classification or risk output with
// its supporting evidence.
type LabeledConfidence struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence_snippet_sha256"`
}

// ClassificationResult is written once per run.
type ClassificationResult struct {
	Intents       []LabeledConfidence  `json:"intents"`
	PrimaryIntent registry.Intent      `json:"primary_intent"`
	ProductLine   registry.ProductLine `json:"product_line"`
	Urgency       registry.Urgency     `json:"urgency"`
	RiskFlags     []LabeledConfidence  `json:"risk_flags"`
	RulesVersion  string               `json:"rules_version"`
	ModelRef      *ArtifactRef         `json:"model_ref,omitempty"`
	PromptRef     *ArtifactRef         `json:"prompt_ref,omitempty"`
}

// ExtractedEntity is one extracted entity with redacted value and provenance.
type ExtractedEntity struct {
	Type           string  `json:"type"`
	RedactedValue  string  `json:"redacted_value"`
	SHA256OfFull   string  `json:"sha256_of_full_value,omitempty"`
	Confidence     float64 `json:"confidence"`
	SourceField    string  `json:"provenance_source"`
	OffsetStart    int     `json:"provenance_offset_start"`
	OffsetEnd      int     `json:"provenance_offset_end"`
	AttachmentID   string  `json:"provenance_attachment_id,omitempty"`
	DirectoryMiss  bool    `json:"directory_miss,omitempty"`
}

// ExtractionResult is written once per run.
type ExtractionResult struct {
	Entities   []ExtractedEntity    `json:"entities"`
	Provenance provenance.Envelope `json:"provenance"`
}

// RoutingDecision is written once per run.
type RoutingDecision struct {
	QueueID          registry.Queue     `json:"queue_id"`
	SLAID            registry.SLA       `json:"sla_id"`
	Priority         int                `json:"priority"`
	Actions          []registry.Action  `json:"actions"`
	RuleID           string             `json:"rule_id"`
	RulesetRef       ArtifactRef        `json:"ruleset_ref"`
	FailClosed       bool               `json:"fail_closed"`
	FailClosedReason string             `json:"fail_closed_reason,omitempty"`
}

// HasAction reports whether the decision includes the given action.
func (d RoutingDecision) HasAction(a registry.Action) bool {
	for _, existing := range d.Actions {
		if existing == a {
			return true
		}
	}
	return false
}

// EvidenceEntry is a redacted piece of evidence attached to an audit event.
type EvidenceEntry struct {
	Snippet       string `json:"snippet"`
	SnippetSHA256 string `json:"snippet_sha256"`
	OffsetStart   int    `json:"offset_start"`
	OffsetEnd     int    `json:"offset_end"`
	SourceRef     string `json:"source_ref"`
}

// AuditEvent is one append-only event in a (message_id, run_id) chain.
type AuditEvent struct {
	EventID        string            `json:"event_id"`
	MessageID      string            `json:"message_id"`
	RunID          string            `json:"run_id"`
	Stage          registry.Stage    `json:"stage"`
	InputRef       *ArtifactRef      `json:"input_ref,omitempty"`
	OutputRef      *ArtifactRef      `json:"output_ref,omitempty"`
	DecisionHash   string            `json:"decision_hash,omitempty"`
	ConfigRef      ArtifactRef       `json:"config_ref"`
	RulesRef       *ArtifactRef      `json:"rules_ref,omitempty"`
	ModelRef       *ArtifactRef      `json:"model_ref,omitempty"`
	PromptRef      *ArtifactRef      `json:"prompt_ref,omitempty"`
	Evidence       []EvidenceEntry   `json:"evidence,omitempty"`
	PrevEventHash  string            `json:"prev_event_hash"`
	EventHash      string            `json:"event_hash"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// CorrectionRecord is an append-only reviewer correction.
type CorrectionRecord struct {
	CorrectionID   string        `json:"correction_id"`
	ReviewItemID   string        `json:"review_item_id"`
	ActorID        string        `json:"actor_id"`
	Patch          string        `json:"patch"`
	TargetArtifacts []ArtifactRef `json:"target_artifact_refs"`
	CreatedAt      time.Time     `json:"created_at"`
}

// LLMParams are the deterministic sampling params keyed into the cache.
type LLMParams struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// LLMInferenceArtifact is written once at inference and looked up by
// deterministic key during replay.
type LLMInferenceArtifact struct {
	Purpose          registry.ClassificationPurpose `json:"purpose"`
	ModelID          string                         `json:"model_id"`
	Params           LLMParams                      `json:"params"`
	PromptSHA256     string                         `json:"prompt_sha256"`
	InputDigestSHA256 string                        `json:"input_digest_sha256"`
	OutputJSON       string                         `json:"output_json"`
	OutputSHA256     string                         `json:"output_sha256"`
	ProducedAt       time.Time                      `json:"produced_at"`
	Provenance       provenance.Envelope            `json:"provenance"`
}
