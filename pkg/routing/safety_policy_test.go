package routing

import (
	"testing"

	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

func TestSafetyPolicyEvaluateMatchesExpression(t *testing.T) {
	p, err := NewSafetyPolicy([]SafetyRule{
		{RuleID: "vip-complaint", Expression: `product_line == "PROD_LIFE" && primary_intent == "INTENT_COMPLAINT"`, Flag: registry.RiskVIPEscalation},
	})
	if err != nil {
		t.Fatal(err)
	}

	flags := p.Evaluate(SafetyPolicyVars{
		PrimaryIntent: string(registry.IntentComplaint),
		ProductLine:   string(registry.ProductLife),
	})
	if len(flags) != 1 || flags[0] != registry.RiskVIPEscalation {
		t.Fatalf("expected RiskVIPEscalation, got %v", flags)
	}
}

func TestSafetyPolicyEvaluateNoMatchReturnsEmpty(t *testing.T) {
	p, err := NewSafetyPolicy([]SafetyRule{
		{RuleID: "vip-complaint", Expression: `product_line == "PROD_LIFE"`, Flag: registry.RiskVIPEscalation},
	})
	if err != nil {
		t.Fatal(err)
	}

	flags := p.Evaluate(SafetyPolicyVars{ProductLine: string(registry.ProductAuto)})
	if len(flags) != 0 {
		t.Fatalf("expected no matches, got %v", flags)
	}
}

func TestNewSafetyPolicyRejectsMalformedExpression(t *testing.T) {
	_, err := NewSafetyPolicy([]SafetyRule{
		{RuleID: "broken", Expression: `product_line ===`, Flag: registry.RiskFraudSignal},
	})
	if err == nil {
		t.Fatal("expected compile error for malformed CEL expression")
	}
}

func TestSafetyPolicyEvaluateRiskFlagsMembership(t *testing.T) {
	p, err := NewSafetyPolicy([]SafetyRule{
		{RuleID: "dup-plus-fraud", Expression: `"RISK_DUPLICATE_SUBMISSION" in risk_flags`, Flag: registry.RiskFraudSignal},
	})
	if err != nil {
		t.Fatal(err)
	}

	flags := p.Evaluate(SafetyPolicyVars{RiskFlags: []string{"RISK_DUPLICATE_SUBMISSION"}})
	if len(flags) != 1 || flags[0] != registry.RiskFraudSignal {
		t.Fatalf("expected RiskFraudSignal, got %v", flags)
	}
}
