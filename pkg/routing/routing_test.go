package routing

import (
	"testing"

	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

func baseInput() Input {
	return Input{
		IdentityStatus: registry.IdentityConfirmed,
		PrimaryIntent:  registry.IntentClaimNew,
		ProductLine:    registry.ProductAuto,
		Urgency:        registry.UrgencyMedium,
		Ruleset: Ruleset{
			Version: "1.0.0",
			Rules: []ProductIntentRule{
				{RuleID: "AUTO_CLAIM", Priority: 1, ProductLine: registry.ProductAuto, Intent: registry.IntentClaimNew, QueueID: registry.QueueClaimsAuto, SLAID: registry.SLA4Hour},
			},
		},
	}
}

func TestIncidentForceReviewOutranksEverything(t *testing.T) {
	in := baseInput()
	in.RiskFlags = []registry.RiskFlag{registry.RiskSecurityMalware}
	in.Incidents = Incidents{ForceReview: true, ForceReviewQueueID: registry.QueueIntakeReviewGeneral, ForceReviewSLAID: registry.SLA1Hour}
	d := Evaluate(in)
	if d.RuleID != "INCIDENT_FORCE_REVIEW" {
		t.Fatalf("expected force-review to win, got %s", d.RuleID)
	}
}

func TestMalwareOverrideOutranksProductRule(t *testing.T) {
	in := baseInput()
	in.RiskFlags = []registry.RiskFlag{registry.RiskSecurityMalware}
	d := Evaluate(in)
	if d.QueueID != registry.QueueSecurityReview || !d.HasAction(registry.ActionBlockCaseCreate) {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestCanonicalOverrideOrderMalwareBeforeRegulatory(t *testing.T) {
	in := baseInput()
	in.RiskFlags = []registry.RiskFlag{registry.RiskRegulatory, registry.RiskSecurityMalware}
	d := Evaluate(in)
	if d.QueueID != registry.QueueSecurityReview {
		t.Fatalf("expected malware to win over regulatory per canonical order, got %s", d.QueueID)
	}
}

func TestGDPRRequestRoutesToPrivacyDSR(t *testing.T) {
	in := baseInput()
	in.PrimaryIntent = registry.IntentGDPRRequest
	d := Evaluate(in)
	if d.QueueID != registry.QueuePrivacyDSR {
		t.Fatalf("expected QUEUE_PRIVACY_DSR, got %s", d.QueueID)
	}
}

func TestIdentityNeedsReviewModifier(t *testing.T) {
	in := baseInput()
	in.IdentityStatus = registry.IdentityNeedsReview
	d := Evaluate(in)
	if d.QueueID != registry.QueueIdentityReview || !d.HasAction(registry.ActionAddRequestInfoDraft) {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestProductIntentRuleMatch(t *testing.T) {
	in := baseInput()
	d := Evaluate(in)
	if d.QueueID != registry.QueueClaimsAuto || d.RuleID != "AUTO_CLAIM" {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if !d.HasAction(registry.ActionCreateCase) {
		t.Fatal("expected CREATE_CASE action on a matched product/intent rule")
	}
}

func TestFallbackIsFailClosed(t *testing.T) {
	in := baseInput()
	in.Ruleset = Ruleset{} // no rules configured
	d := Evaluate(in)
	if !d.FailClosed || d.FailClosedReason != "no_rule_match" || d.QueueID != registry.QueueIntakeReviewGeneral {
		t.Fatalf("expected fail-closed fallback, got %+v", d)
	}
}

func TestBlockCaseCreateRemovesCreateCase(t *testing.T) {
	in := baseInput()
	in.RiskFlags = []registry.RiskFlag{registry.RiskFraudSignal}
	in.Incidents.BlockCaseCreateRiskFlags = []registry.RiskFlag{registry.RiskFraudSignal}
	d := Evaluate(in)
	if d.HasAction(registry.ActionCreateCase) {
		t.Fatal("CREATE_CASE must be removed when a block-listed risk flag is present")
	}
	if !d.HasAction(registry.ActionBlockCaseCreate) {
		t.Fatal("expected BLOCK_CASE_CREATE to be inserted")
	}
}

func TestUnknownProductRoutesToReview(t *testing.T) {
	in := baseInput()
	in.ProductLine = registry.ProductUnknown
	in.PrimaryIntent = registry.IntentClaimNew
	d := Evaluate(in)
	if d.QueueID != registry.QueueUnknownProductReview {
		t.Fatalf("expected QUEUE_UNKNOWN_PRODUCT_REVIEW, got %s", d.QueueID)
	}
}

func TestUnknownProductSkippedWhenAuthoritativeIDResolves(t *testing.T) {
	in := baseInput()
	in.ProductLine = registry.ProductUnknown
	in.PrimaryIntent = registry.IntentClaimNew
	in.ProductResolvedByAuthoritativeID = true
	d := Evaluate(in)
	if d.QueueID == registry.QueueUnknownProductReview {
		t.Fatal("authoritative identifier resolution should bypass unknown-product review")
	}
}

func TestUnknownProductNeverOverridesRiskOverride(t *testing.T) {
	in := baseInput()
	in.ProductLine = registry.ProductUnknown
	in.PrimaryIntent = registry.IntentClaimNew
	in.RiskFlags = []registry.RiskFlag{registry.RiskSecurityMalware}
	d := Evaluate(in)
	if d.QueueID != registry.QueueSecurityReview {
		t.Fatalf("unknown-product rewrite must not outrank a hard risk override, got %+v", d)
	}
}

func TestUnknownProductNeverOverridesGDPR(t *testing.T) {
	in := baseInput()
	in.ProductLine = registry.ProductUnknown
	in.PrimaryIntent = registry.IntentGDPRRequest
	d := Evaluate(in)
	if d.QueueID != registry.QueuePrivacyDSR {
		t.Fatalf("unknown-product rewrite must not outrank the GDPR route, got %+v", d)
	}
}

func TestUnknownProductNeverOverridesIdentityNeedsReview(t *testing.T) {
	in := baseInput()
	in.ProductLine = registry.ProductUnknown
	in.PrimaryIntent = registry.IntentClaimNew
	in.IdentityStatus = registry.IdentityNeedsReview
	d := Evaluate(in)
	if d.QueueID != registry.QueueIdentityReview {
		t.Fatalf("unknown-product rewrite must not outrank the identity needs-review modifier, got %+v", d)
	}
}

func TestUnknownProductNeverOverridesIncidentForceReview(t *testing.T) {
	in := baseInput()
	in.ProductLine = registry.ProductUnknown
	in.PrimaryIntent = registry.IntentClaimNew
	in.Incidents = Incidents{ForceReview: true, ForceReviewQueueID: registry.QueueIntakeReviewGeneral, ForceReviewSLAID: registry.SLA1Hour}
	d := Evaluate(in)
	if d.RuleID != "INCIDENT_FORCE_REVIEW" {
		t.Fatalf("unknown-product rewrite must not outrank an incident force-review gate, got %+v", d)
	}
}

func TestUnknownProductStillAppliesOnFallback(t *testing.T) {
	in := baseInput()
	in.ProductLine = registry.ProductUnknown
	in.PrimaryIntent = registry.IntentClaimNew
	in.Ruleset = Ruleset{} // no rules configured, decision falls through to FALLBACK
	d := Evaluate(in)
	if d.QueueID != registry.QueueUnknownProductReview {
		t.Fatalf("unknown-product rewrite should still apply to a fallback decision, got %+v", d)
	}
}
