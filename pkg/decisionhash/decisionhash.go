// Package decisionhash computes the timestamp-free decision_hash for
// the Identity, Classify, and Route stages (§4.3): SHA-256 over the
// RFC8785 canonical JSON serialization of a stage-specific struct that
// deliberately omits run_id, event_id, timestamps, hostnames, worker
// IDs, and random seeds (I3, P3), so identical inputs/config/ruleset
// always reproduce the same hash (I4, P2) regardless of when or where
// the stage ran.
package decisionhash

import (
	"fmt"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// ConfigRef is the {path, sha256} pair every stage's canonical input pins.
type ConfigRef struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// RulesRef additionally carries a ruleset version (Route only).
type RulesRef struct {
	Path    string `json:"path"`
	SHA256  string `json:"sha256"`
	Version string `json:"version"`
}

type signalInput struct {
	Name   string  `json:"name"`
	Value  string  `json:"value"`
	Weight float64 `json:"weight"`
}

type candidateInput struct {
	EntityType            registry.EntityType `json:"entity_type"`
	EntityID              string              `json:"entity_id"`
	Score                 float64             `json:"score"`
	Signals               []signalInput       `json:"signals"`
	EvidenceSnippetSHA256 []string            `json:"evidence_snippet_sha256"`
}

type selectedInput struct {
	EntityType registry.EntityType `json:"entity_type"`
	EntityID   string              `json:"entity_id"`
	Score      float64             `json:"score"`
}

// IdentityInput is the canonical decision input for the Identity stage.
type IdentityInput struct {
	SystemID          string                  `json:"system_id"`
	SpecSemver        string                  `json:"spec_semver"`
	Stage             registry.Stage          `json:"stage"`
	MessageFingerprint string                 `json:"message_fingerprint"`
	RawMIMESHA256     string                  `json:"raw_mime_sha256"`
	ConfigRef         ConfigRef               `json:"config_ref"`
	DeterminismMode   bool                    `json:"determinism_mode"`
	Status            registry.IdentityStatus `json:"status"`
	Selected          *selectedInput          `json:"selected,omitempty"`
	TopK              []candidateInput        `json:"top_k"`
	Thresholds        map[string]float64      `json:"thresholds"`
}

func toCandidateInputs(cands []model.IdentityCandidate) []candidateInput {
	out := make([]candidateInput, 0, len(cands))
	for _, c := range cands {
		signals := make([]signalInput, 0, len(c.Signals))
		for _, s := range c.Signals {
			signals = append(signals, signalInput{Name: s.Name, Value: s.Value, Weight: s.Weight})
		}
		out = append(out, candidateInput{
			EntityType:            c.EntityType,
			EntityID:              c.EntityID,
			Score:                 c.Score,
			Signals:               signals,
			EvidenceSnippetSHA256: c.Evidence,
		})
	}
	return out
}

// Identity builds the canonical input and hashes it.
func Identity(systemID, specSemver, messageFingerprint, rawMIMESHA256 string, cfg ConfigRef, determinismMode bool, result model.IdentityResolutionResult, thresholds map[string]float64) (string, error) {
	in := IdentityInput{
		SystemID:           systemID,
		SpecSemver:         specSemver,
		Stage:              registry.StageIdentity,
		MessageFingerprint: messageFingerprint,
		RawMIMESHA256:      rawMIMESHA256,
		ConfigRef:          cfg,
		DeterminismMode:    determinismMode,
		Status:             result.Status,
		TopK:               toCandidateInputs(result.TopK),
		Thresholds:         thresholds,
	}
	if sel := result.Selected(); sel != nil {
		in.Selected = &selectedInput{EntityType: sel.EntityType, EntityID: sel.EntityID, Score: sel.Score}
	}
	return hash(in)
}

type llmInput struct {
	Enabled      bool   `json:"enabled"`
	Provider     string `json:"provider,omitempty"`
	ModelID      string `json:"model_id,omitempty"`
	PromptSHA256 string `json:"prompt_sha256,omitempty"`
}

type labeledInput struct {
	Label                 string   `json:"label"`
	Confidence            float64  `json:"confidence"`
	EvidenceSnippetSHA256 []string `json:"evidence_snippet_sha256"`
}

// ClassifyInput is the canonical decision input for the Classify stage:
// everything Identity carries, plus rules_version, the LLM call
// metadata (if one was made), and the classification outputs.
type ClassifyInput struct {
	IdentityInput
	RulesVersion string         `json:"rules_version"`
	LLM          *llmInput      `json:"llm,omitempty"`
	PrimaryIntent registry.Intent      `json:"primary_intent"`
	Intents       []labeledInput       `json:"intents"`
	ProductLine   registry.ProductLine `json:"product_line"`
	Urgency       registry.Urgency     `json:"urgency"`
	RiskFlags     []labeledInput       `json:"risk_flags"`
}

func toLabeledInputs(lc []model.LabeledConfidence) []labeledInput {
	out := make([]labeledInput, 0, len(lc))
	for _, l := range lc {
		out = append(out, labeledInput{Label: l.Label, Confidence: l.Confidence, EvidenceSnippetSHA256: l.Evidence})
	}
	return out
}

// Classify builds the canonical input and hashes it. identityPart is the
// same Identity-stage canonical input recomputed for this run (not the
// stored decision_hash string — the field values themselves are reused
// so Classify's hash changes if and only if Identity's decision changed).
func Classify(identityPart IdentityInput, result model.ClassificationResult, llmProvider, llmPromptSHA256 string) (string, error) {
	in := ClassifyInput{
		IdentityInput: identityPart,
		RulesVersion:  result.RulesVersion,
		PrimaryIntent: result.PrimaryIntent,
		Intents:       toLabeledInputs(result.Intents),
		ProductLine:   result.ProductLine,
		Urgency:       result.Urgency,
		RiskFlags:     toLabeledInputs(result.RiskFlags),
	}
	in.Stage = registry.StageClassify
	if result.ModelRef != nil {
		in.LLM = &llmInput{Enabled: true, Provider: llmProvider, ModelID: result.ModelRef.SHA256, PromptSHA256: llmPromptSHA256}
	} else {
		in.LLM = &llmInput{Enabled: false}
	}
	return hash(in)
}

type decisionSummary struct {
	QueueID          registry.Queue    `json:"queue_id"`
	SLAID            registry.SLA      `json:"sla_id"`
	Priority         int               `json:"priority"`
	Actions          []registry.Action `json:"actions"`
	RuleID           string            `json:"rule_id"`
	FailClosed       bool              `json:"fail_closed"`
	FailClosedReason string            `json:"fail_closed_reason,omitempty"`
}

// RouteInput is the canonical decision input for the Route stage:
// classify's fields plus the ruleset reference and routing outputs.
type RouteInput struct {
	ClassifyInput
	RulesRef       RulesRef               `json:"rules_ref"`
	IdentityStatus registry.IdentityStatus `json:"identity_status"`
	Decision       decisionSummary        `json:"decision_summary"`
}

// Route builds the canonical input and hashes it.
func Route(classifyPart ClassifyInput, rules RulesRef, identityStatus registry.IdentityStatus, decision model.RoutingDecision) (string, error) {
	in := RouteInput{
		ClassifyInput:  classifyPart,
		RulesRef:       rules,
		IdentityStatus: identityStatus,
		Decision: decisionSummary{
			QueueID:          decision.QueueID,
			SLAID:            decision.SLAID,
			Priority:         decision.Priority,
			Actions:          decision.Actions,
			RuleID:           decision.RuleID,
			FailClosed:       decision.FailClosed,
			FailClosedReason: decision.FailClosedReason,
		},
	}
	in.Stage = registry.StageRoute
	return hash(in)
}

func hash(v interface{}) (string, error) {
	h, err := canonicalize.CanonicalHash(v)
	if err != nil {
		return "", fmt.Errorf("decisionhash: canonicalize: %w", err)
	}
	return h, nil
}
