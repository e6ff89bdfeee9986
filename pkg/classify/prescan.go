package classify

import (
	"regexp"

	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// PrescanRule is one versioned keyword/regex rule feeding the
// always-on deterministic risk prescan (§4.6). Rules are additive: the
// LLM may add flags on top of a prescan but never remove one.
type PrescanRule struct {
	Flag    registry.RiskFlag
	Pattern *regexp.Regexp
}

// RulesVersion identifies the prescan ruleset revision, carried into
// ClassificationResult.RulesVersion.
const RulesVersion = "prescan-2026.1"

var defaultPrescanRules = []PrescanRule{
	{Flag: registry.RiskLegalThreat, Pattern: regexp.MustCompile(`(?i)\b(lawsuit|attorney|litigation|sue you|legal action|my lawyer)\b`)},
	{Flag: registry.RiskRegulatory, Pattern: regexp.MustCompile(`(?i)\b(ombudsman|regulator|data protection authority|financial conduct authority|fca complaint)\b`)},
	{Flag: registry.RiskFraudSignal, Pattern: regexp.MustCompile(`(?i)\b(fake invoice|staged accident|inflated claim|fraudulent)\b`)},
	{Flag: registry.RiskSelfHarmThreat, Pattern: regexp.MustCompile(`(?i)\b(kill myself|end my life|suicide|self[- ]harm)\b`)},
	{Flag: registry.RiskAutoreplyLoop, Pattern: regexp.MustCompile(`(?i)\b(out of office|automatic reply|auto-reply|vacation responder)\b`)},
	{Flag: registry.RiskLanguageUnsupported, Pattern: regexp.MustCompile(`[\x{4e00}-\x{9fff}\x{3040}-\x{30ff}\x{0600}-\x{06ff}]`)},
}

// Prescan runs the deterministic rule set over canonical subject/body
// text (joined as subject + "\n" + body) and AV results, producing the
// risk flags §4.6 requires. Each flag is returned with confidence 1.0
// and no evidence entries.
func Prescan(subject, body string, anyAttachmentInfected bool) []model.LabeledConfidence {
	var out []model.LabeledConfidence
	combined := subject + "\n" + body

	if anyAttachmentInfected {
		out = append(out, model.LabeledConfidence{Label: string(registry.RiskSecurityMalware), Confidence: 1.0})
	}

	for _, rule := range defaultPrescanRules {
		if loc := rule.Pattern.FindStringIndex(combined); loc != nil {
			out = append(out, model.LabeledConfidence{Label: string(rule.Flag), Confidence: 1.0})
		}
	}
	return out
}

// MergeRiskFlags unions LLM-proposed risk flags onto the deterministic
// prescan set. Prescan flags are never removed (§4.6); an LLM flag
// duplicating a prescan label is dropped in favor of the prescan entry.
func MergeRiskFlags(prescan, llmProposed []model.LabeledConfidence) []model.LabeledConfidence {
	seen := make(map[string]bool, len(prescan))
	out := make([]model.LabeledConfidence, 0, len(prescan)+len(llmProposed))
	for _, f := range prescan {
		seen[f.Label] = true
		out = append(out, f)
	}
	for _, f := range llmProposed {
		if seen[f.Label] {
			continue
		}
		seen[f.Label] = true
		out = append(out, f)
	}
	return out
}
