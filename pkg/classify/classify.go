// Package classify implements the Classifier (§4.6): a deterministic
// risk prescan that always runs, plus one of two pipeline modes
// (BASELINE or LLM_FIRST) that produce the multi-label classification
// result. LLM acceptance runs through fixed gates — schema validity,
// canonical labels, confidence thresholds, verbatim evidence spans —
// and a disagreement gate against high-confidence deterministic rules.
package classify

import (
	"context"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// Mode selects the classification pipeline (config key pipeline.mode).
type Mode string

const (
	ModeBaseline Mode = "BASELINE"
	ModeLLMFirst Mode = "LLM_FIRST"
)

// AcceptanceThresholds are the default confidence gates (§4.6),
// overridable from config.
type AcceptanceThresholds struct {
	PrimaryIntent float64
	ProductLine   float64
	Urgency       float64
	RiskFlag      float64
}

// DefaultAcceptanceThresholds matches the spec's stated defaults.
var DefaultAcceptanceThresholds = AcceptanceThresholds{
	PrimaryIntent: 0.72,
	ProductLine:   0.65,
	Urgency:       0.60,
	RiskFlag:      0.80,
}

// MaxLLMAttempts is the attempt limit for LLM-stage I/O failures
// (never for decision-logic rejections — a failed acceptance gate is
// not retried, it routes to review). Nothing in this package reads it;
// the package itself performs no retries.
const MaxLLMAttempts = 2

// RuleProposal is one deterministic rule's intent assertion, used by
// the disagreement gate.
type RuleProposal struct {
	Intent         registry.Intent
	RuleConfidence float64
}

// LLMProposal is the strict-JSON classification the LLM returns,
// pre-validated against the JSON schema and canonical enums by the caller.
type LLMProposal struct {
	PrimaryIntent         registry.Intent
	Intents               []model.LabeledConfidence
	ProductLine           registry.ProductLine
	ProductLineConfidence float64
	Urgency               registry.Urgency
	UrgencyConfidence     float64
	RiskFlags             []model.LabeledConfidence
	Evidence              map[string]canonicalize.Snippet // keyed by field name: primary_intent, product_line, urgency
}

// Outcome is the classifier's decision: either an accepted
// ClassificationResult or a routed review reason.
type Outcome struct {
	Result       *model.ClassificationResult
	NeedsReview  bool
	ReviewReason string
}

// Classifier runs the configured pipeline mode.
type Classifier struct {
	Mode       Mode
	Thresholds AcceptanceThresholds
}

func New(mode Mode, thresholds AcceptanceThresholds) *Classifier {
	return &Classifier{Mode: mode, Thresholds: thresholds}
}

// Baseline implements the BASELINE order: deterministic rules produce
// intents/product/urgency; the LLM is not consulted (disabled by
// default per §4.6).
func (c *Classifier) Baseline(prescanRisks []model.LabeledConfidence, ruleProposals []model.LabeledConfidence, primary registry.Intent, product registry.ProductLine, urgency registry.Urgency) model.ClassificationResult {
	return model.ClassificationResult{
		Intents:       ruleProposals,
		PrimaryIntent: primary,
		ProductLine:   product,
		Urgency:       urgency,
		RiskFlags:     prescanRisks,
		RulesVersion:  RulesVersion,
	}
}

// LLMFirst implements the LLM_FIRST order: prescan already ran, the
// LLM proposal is passed in already parsed, and this function applies
// the acceptance + disagreement gates.
func (c *Classifier) LLMFirst(ctx context.Context, prescanRisks []model.LabeledConfidence, proposal LLMProposal, canonicalSubject, canonicalBody string, deterministicRules []RuleProposal, modelRef *model.ArtifactRef, promptRef *model.ArtifactRef) Outcome {
	if err := c.validateCanonicalLabels(proposal); err != nil {
		return Outcome{NeedsReview: true, ReviewReason: ireerrors.ReasonNonCanonicalLabel}
	}
	if !c.meetsConfidenceThresholds(proposal) {
		return Outcome{NeedsReview: true, ReviewReason: "confidence_below_threshold"}
	}
	if !c.evidenceVerifies(proposal, canonicalSubject, canonicalBody) {
		return Outcome{NeedsReview: true, ReviewReason: "evidence_verification_failed"}
	}
	if disagrees(deterministicRules, proposal.PrimaryIntent) {
		return Outcome{NeedsReview: true, ReviewReason: ireerrors.ReasonDisagreementGate}
	}

	merged := MergeRiskFlags(prescanRisks, proposal.RiskFlags)
	result := model.ClassificationResult{
		Intents:       proposal.Intents,
		PrimaryIntent: proposal.PrimaryIntent,
		ProductLine:   proposal.ProductLine,
		Urgency:       proposal.Urgency,
		RiskFlags:     merged,
		RulesVersion:  RulesVersion,
		ModelRef:      modelRef,
		PromptRef:     promptRef,
	}
	return Outcome{Result: &result}
}

func (c *Classifier) validateCanonicalLabels(p LLMProposal) error {
	if err := registry.ValidateIntent(p.PrimaryIntent); err != nil {
		return err
	}
	if err := registry.ValidateProductLine(p.ProductLine); err != nil {
		return err
	}
	if err := registry.ValidateUrgency(p.Urgency); err != nil {
		return err
	}
	for _, i := range p.Intents {
		if err := registry.ValidateIntent(registry.Intent(i.Label)); err != nil {
			return err
		}
	}
	for _, r := range p.RiskFlags {
		if err := registry.ValidateRiskFlag(registry.RiskFlag(r.Label)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Classifier) meetsConfidenceThresholds(p LLMProposal) bool {
	var primaryConf float64
	for _, i := range p.Intents {
		if i.Label == string(p.PrimaryIntent) {
			primaryConf = i.Confidence
		}
	}
	if primaryConf < c.Thresholds.PrimaryIntent {
		return false
	}
	if p.ProductLineConfidence < c.Thresholds.ProductLine {
		return false
	}
	if p.UrgencyConfidence < c.Thresholds.Urgency {
		return false
	}
	for _, r := range p.RiskFlags {
		if r.Confidence < c.Thresholds.RiskFlag {
			return false
		}
	}
	return true
}

// evidenceVerifies checks that each of primary_intent, product_line,
// and urgency has an evidence span that is a verbatim substring of the
// canonical text at the stated offsets and whose hash matches.
func (c *Classifier) evidenceVerifies(p LLMProposal, subject, body string) bool {
	for _, field := range []string{"primary_intent", "product_line", "urgency"} {
		snip, ok := p.Evidence[field]
		if !ok {
			return false
		}
		if canonicalize.VerifySnippet(snip, body) || canonicalize.VerifySnippet(snip, subject) {
			continue
		}
		return false
	}
	return true
}

// disagrees implements the disagreement gate: any deterministic rule
// with rule_confidence >= 0.85 asserting a different primary_intent
// than the LLM forces review.
func disagrees(rules []RuleProposal, llmPrimary registry.Intent) bool {
	const disagreementThreshold = 0.85
	for _, r := range rules {
		if r.RuleConfidence >= disagreementThreshold && r.Intent != llmPrimary {
			return true
		}
	}
	return false
}

// SelectPrimaryIntent picks the single primary intent from an accepted
// multi-label set using the canonical priority order (§4.6, registry).
func SelectPrimaryIntent(labels []model.LabeledConfidence) registry.Intent {
	best := registry.Intent("")
	bestRank := -1
	for _, l := range labels {
		intent := registry.Intent(l.Label)
		rank := registry.PrimaryIntentRank(intent)
		if rank < 0 {
			continue
		}
		if bestRank < 0 || rank < bestRank {
			bestRank = rank
			best = intent
		}
	}
	return best
}
