// Package routing implements the Routing Evaluator (§4.8): a pure
// function over identity status, classification outputs, validated
// entity hints, and incident toggles that returns a RoutingDecision.
// Evaluation is first-match-by-priority: incident gates, then hard
// risk overrides in canonical order, then privacy/GDPR, then the
// identity needs-review modifier, then the versioned product/intent
// decision table, and finally a fail-closed fallback.
package routing

import (
	"strings"

	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// Incidents is the snapshot of incident-response toggles consulted on
// every routing evaluation (§4.10, pinned per run).
type Incidents struct {
	ForceReview               bool
	ForceReviewQueueID        registry.Queue
	ForceReviewSLAID          registry.SLA
	DisableLLM                bool
	BlockCaseCreateRiskFlags  []registry.RiskFlag
}

// ProductIntentRule is one row of the versioned decision table (§4.8
// step 5). Rows are evaluated in Priority order, lowest first; the
// first row whose predicate matches wins.
type ProductIntentRule struct {
	RuleID      string               `yaml:"rule_id" json:"rule_id"`
	Priority    int                  `yaml:"priority" json:"priority"`
	ProductLine registry.ProductLine `yaml:"product_line,omitempty" json:"product_line,omitempty"` // "" matches any
	Intent      registry.Intent      `yaml:"intent,omitempty" json:"intent,omitempty"`               // "" matches any
	QueueID     registry.Queue       `yaml:"queue_id" json:"queue_id"`
	SLAID       registry.SLA         `yaml:"sla_id" json:"sla_id"`
	Actions     []registry.Action    `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// Ruleset is a versioned, ordered decision table. Its content hash is
// carried alongside it in RulesetRef, not on the Ruleset itself.
type Ruleset struct {
	Version string              `yaml:"version" json:"version"`
	Rules   []ProductIntentRule `yaml:"rules" json:"rules"`
}

// Input is everything the evaluator is a pure function of.
type Input struct {
	IdentityStatus registry.IdentityStatus
	PrimaryIntent  registry.Intent
	ProductLine    registry.ProductLine
	Urgency        registry.Urgency
	RiskFlags      []registry.RiskFlag
	ProductResolvedByAuthoritativeID bool
	Incidents      Incidents
	Ruleset        Ruleset
}

func hasRisk(flags []registry.RiskFlag, target registry.RiskFlag) bool {
	for _, f := range flags {
		if f == target {
			return true
		}
	}
	return false
}

func hasAnyRisk(flags, targets []registry.RiskFlag) bool {
	for _, t := range targets {
		if hasRisk(flags, t) {
			return true
		}
	}
	return false
}

// riskOverrideDecision is the canonical mapping for §4.8 step 2, in
// the fixed evaluation order from registry.CanonicalRiskOverrideOrder.
var riskOverrideDecision = map[registry.RiskFlag]func() model.RoutingDecision{
	registry.RiskSecurityMalware: func() model.RoutingDecision {
		return model.RoutingDecision{QueueID: registry.QueueSecurityReview, SLAID: registry.SLA1Hour, Actions: []registry.Action{registry.ActionBlockCaseCreate}, RuleID: "RISK_OVERRIDE_MALWARE"}
	},
	registry.RiskRegulatory: func() model.RoutingDecision {
		return model.RoutingDecision{QueueID: registry.QueueComplaints, SLAID: registry.SLA1Hour, RuleID: "RISK_OVERRIDE_REGULATORY"}
	},
	registry.RiskLegalThreat: func() model.RoutingDecision {
		return model.RoutingDecision{QueueID: registry.QueueLegal, SLAID: registry.SLA1Hour, RuleID: "RISK_OVERRIDE_LEGAL"}
	},
	registry.RiskFraudSignal: func() model.RoutingDecision {
		return model.RoutingDecision{QueueID: registry.QueueFraud, SLAID: registry.SLA4Hour, RuleID: "RISK_OVERRIDE_FRAUD"}
	},
	registry.RiskSelfHarmThreat: func() model.RoutingDecision {
		return model.RoutingDecision{QueueID: registry.QueueIntakeReviewGeneral, SLAID: registry.SLA1Hour, Actions: []registry.Action{registry.ActionHumanEscalation}, RuleID: "RISK_OVERRIDE_SELF_HARM"}
	},
	registry.RiskLanguageUnsupported: func() model.RoutingDecision {
		return model.RoutingDecision{QueueID: registry.QueueIntakeReviewGeneral, SLAID: registry.SLA1BizDay, RuleID: "RISK_OVERRIDE_LANGUAGE"}
	},
}

// Evaluate applies the first-match-by-priority order and returns the decision.
func Evaluate(in Input) model.RoutingDecision {
	decision := evaluateCore(in)
	decision = applyBlockCaseCreate(decision, in)
	decision = applyUnknownProduct(decision, in)
	return decision
}

func evaluateCore(in Input) model.RoutingDecision {
	// 1. Incident gates.
	if in.Incidents.ForceReview {
		return model.RoutingDecision{
			QueueID: in.Incidents.ForceReviewQueueID,
			SLAID:   in.Incidents.ForceReviewSLAID,
			RuleID:  "INCIDENT_FORCE_REVIEW",
		}
	}

	// 2. Hard risk overrides, canonical order.
	for _, flag := range registry.CanonicalRiskOverrideOrder {
		if hasRisk(in.RiskFlags, flag) {
			return riskOverrideDecision[flag]()
		}
	}

	// 3. Privacy/GDPR.
	if in.PrimaryIntent == registry.IntentGDPRRequest {
		return model.RoutingDecision{QueueID: registry.QueuePrivacyDSR, SLAID: registry.SLA1BizDay, RuleID: "PRIVACY_GDPR"}
	}

	// 4. Identity needs-review modifier.
	if in.IdentityStatus == registry.IdentityNeedsReview || in.IdentityStatus == registry.IdentityNoCandidate {
		return model.RoutingDecision{
			QueueID: registry.QueueIdentityReview,
			SLAID:   registry.SLA1BizDay,
			Actions: []registry.Action{registry.ActionAddRequestInfoDraft},
			RuleID:  "IDENTITY_NEEDS_REVIEW",
		}
	}

	// 5. Product/intent decision table, first match by ascending priority.
	if rule, ok := matchRule(in.Ruleset, in.ProductLine, in.PrimaryIntent); ok {
		return model.RoutingDecision{
			QueueID: rule.QueueID,
			SLAID:   rule.SLAID,
			Actions: append([]registry.Action{registry.ActionCreateCase}, rule.Actions...),
			RuleID:  rule.RuleID,
		}
	}

	// 6. Fallback.
	return model.RoutingDecision{
		QueueID:          registry.QueueIntakeReviewGeneral,
		SLAID:            registry.SLA3BizDay,
		RuleID:           "FALLBACK",
		FailClosed:       true,
		FailClosedReason: "no_rule_match",
	}
}

func matchRule(rs Ruleset, product registry.ProductLine, intent registry.Intent) (ProductIntentRule, bool) {
	var best *ProductIntentRule
	for i := range rs.Rules {
		r := &rs.Rules[i]
		if r.ProductLine != "" && r.ProductLine != product {
			continue
		}
		if r.Intent != "" && r.Intent != intent {
			continue
		}
		if best == nil || r.Priority < best.Priority {
			best = r
		}
	}
	if best == nil {
		return ProductIntentRule{}, false
	}
	return *best, true
}

// applyBlockCaseCreate enforces incident.block_case_create_risk_flags_any:
// when any listed risk flag is present, CREATE_CASE is removed and
// BLOCK_CASE_CREATE inserted (§4.8).
func applyBlockCaseCreate(d model.RoutingDecision, in Input) model.RoutingDecision {
	if !hasAnyRisk(in.RiskFlags, in.Incidents.BlockCaseCreateRiskFlags) {
		return d
	}
	filtered := make([]registry.Action, 0, len(d.Actions)+1)
	hasBlock := false
	for _, a := range d.Actions {
		if a == registry.ActionCreateCase {
			continue
		}
		if a == registry.ActionBlockCaseCreate {
			hasBlock = true
		}
		filtered = append(filtered, a)
	}
	if !hasBlock {
		filtered = append(filtered, registry.ActionBlockCaseCreate)
	}
	d.Actions = filtered
	return d
}

// applyUnknownProduct re-routes to QUEUE_UNKNOWN_PRODUCT_REVIEW when
// product is PROD_UNKNOWN, the intent implies claims/policy service,
// and no authoritative identifier resolved the product (§4.8 tail rule).
// It only rewrites a decision the product/intent table or the fallback
// rule produced — incident gates, hard risk overrides, the GDPR route,
// and the identity needs-review modifier all outrank it and must never
// be overwritten here.
func applyUnknownProduct(d model.RoutingDecision, in Input) model.RoutingDecision {
	if !eligibleForUnknownProductOverride(d.RuleID) {
		return d
	}
	if in.ProductLine != registry.ProductUnknown || in.ProductResolvedByAuthoritativeID {
		return d
	}
	if !impliesClaimsOrPolicy(in.PrimaryIntent) {
		return d
	}
	d.QueueID = registry.QueueUnknownProductReview
	d.RuleID = "UNKNOWN_PRODUCT"
	return d
}

// eligibleForUnknownProductOverride reports whether d.RuleID came from
// the product/intent table or the fallback rule, as opposed to a
// higher-precedence branch of evaluateCore.
func eligibleForUnknownProductOverride(ruleID string) bool {
	switch {
	case strings.HasPrefix(ruleID, "RISK_OVERRIDE_"):
		return false
	case strings.HasPrefix(ruleID, "INCIDENT_"):
		return false
	case ruleID == "PRIVACY_GDPR", ruleID == "IDENTITY_NEEDS_REVIEW":
		return false
	default:
		return true
	}
}

func impliesClaimsOrPolicy(intent registry.Intent) bool {
	switch intent {
	case registry.IntentClaimNew, registry.IntentClaimUpdate, registry.IntentPolicyCancellation, registry.IntentPolicyChange, registry.IntentCoverageQuestion:
		return true
	default:
		return false
	}
}
