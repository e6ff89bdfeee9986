package classify

import (
	"context"
	"testing"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

func TestPrescanFlagsMalwareFromAttachment(t *testing.T) {
	flags := Prescan("subject", "body", true)
	found := false
	for _, f := range flags {
		if f.Label == string(registry.RiskSecurityMalware) {
			found = true
		}
	}
	if !found {
		t.Fatal("expected RISK_SECURITY_MALWARE when an attachment is infected")
	}
}

func TestPrescanFlagsLegalThreatKeyword(t *testing.T) {
	flags := Prescan("", "I will sue you and my lawyer has been notified", false)
	if len(flags) == 0 || flags[0].Label != string(registry.RiskLegalThreat) {
		t.Fatalf("expected RISK_LEGAL_THREAT, got %+v", flags)
	}
}

func TestMergeRiskFlagsNeverDropsPrescan(t *testing.T) {
	prescan := []model.LabeledConfidence{{Label: string(registry.RiskLegalThreat), Confidence: 1.0}}
	llm := []model.LabeledConfidence{{Label: string(registry.RiskFraudSignal), Confidence: 0.9}}
	merged := MergeRiskFlags(prescan, llm)
	if len(merged) != 2 {
		t.Fatalf("expected prescan ∪ llm flags, got %+v", merged)
	}
}

func sampleProposal(body string) LLMProposal {
	snip, _ := canonicalize.NewSnippet(body, 0, 10, "body")
	return LLMProposal{
		PrimaryIntent:         registry.IntentClaimNew,
		Intents:               []model.LabeledConfidence{{Label: string(registry.IntentClaimNew), Confidence: 0.9}},
		ProductLine:           registry.ProductAuto,
		ProductLineConfidence: 0.9,
		Urgency:               registry.UrgencyMedium,
		UrgencyConfidence:     0.9,
		Evidence: map[string]canonicalize.Snippet{
			"primary_intent": snip,
			"product_line":   snip,
			"urgency":        snip,
		},
	}
}

func TestLLMFirstAcceptsValidProposal(t *testing.T) {
	c := New(ModeLLMFirst, DefaultAcceptanceThresholds)
	body := "I was in a car accident yesterday and need to file a claim."
	outcome := c.LLMFirst(context.Background(), nil, sampleProposal(body), "subject", body, nil, nil, nil)
	if outcome.NeedsReview {
		t.Fatalf("expected acceptance, got review reason %s", outcome.ReviewReason)
	}
	if outcome.Result.PrimaryIntent != registry.IntentClaimNew {
		t.Fatalf("unexpected primary intent: %s", outcome.Result.PrimaryIntent)
	}
}

func TestLLMFirstRejectsNonCanonicalLabel(t *testing.T) {
	c := New(ModeLLMFirst, DefaultAcceptanceThresholds)
	body := "I was in a car accident yesterday and need to file a claim."
	p := sampleProposal(body)
	p.PrimaryIntent = "NOT_CANONICAL"
	outcome := c.LLMFirst(context.Background(), nil, p, "subject", body, nil, nil, nil)
	if !outcome.NeedsReview || outcome.ReviewReason != "non_canonical_label" {
		t.Fatalf("expected non_canonical_label review, got %+v", outcome)
	}
}

func TestLLMFirstRejectsLowConfidence(t *testing.T) {
	c := New(ModeLLMFirst, DefaultAcceptanceThresholds)
	body := "I was in a car accident yesterday and need to file a claim."
	p := sampleProposal(body)
	p.Intents[0].Confidence = 0.1
	outcome := c.LLMFirst(context.Background(), nil, p, "subject", body, nil, nil, nil)
	if !outcome.NeedsReview || outcome.ReviewReason != "confidence_below_threshold" {
		t.Fatalf("expected confidence_below_threshold review, got %+v", outcome)
	}
}

func TestLLMFirstRejectsLowProductLineConfidence(t *testing.T) {
	c := New(ModeLLMFirst, DefaultAcceptanceThresholds)
	body := "I was in a car accident yesterday and need to file a claim."
	p := sampleProposal(body)
	p.ProductLineConfidence = 0.1
	outcome := c.LLMFirst(context.Background(), nil, p, "subject", body, nil, nil, nil)
	if !outcome.NeedsReview || outcome.ReviewReason != "confidence_below_threshold" {
		t.Fatalf("expected confidence_below_threshold review for low product_line confidence, got %+v", outcome)
	}
}

func TestLLMFirstRejectsLowUrgencyConfidence(t *testing.T) {
	c := New(ModeLLMFirst, DefaultAcceptanceThresholds)
	body := "I was in a car accident yesterday and need to file a claim."
	p := sampleProposal(body)
	p.UrgencyConfidence = 0.1
	outcome := c.LLMFirst(context.Background(), nil, p, "subject", body, nil, nil, nil)
	if !outcome.NeedsReview || outcome.ReviewReason != "confidence_below_threshold" {
		t.Fatalf("expected confidence_below_threshold review for low urgency confidence, got %+v", outcome)
	}
}

func TestLLMFirstRejectsTamperedEvidence(t *testing.T) {
	c := New(ModeLLMFirst, DefaultAcceptanceThresholds)
	body := "I was in a car accident yesterday and need to file a claim."
	p := sampleProposal(body)
	tampered := p.Evidence["primary_intent"]
	tampered.Text = "forged evidence"
	p.Evidence["primary_intent"] = tampered
	outcome := c.LLMFirst(context.Background(), nil, p, "subject", body, nil, nil, nil)
	if !outcome.NeedsReview || outcome.ReviewReason != "evidence_verification_failed" {
		t.Fatalf("expected evidence_verification_failed review, got %+v", outcome)
	}
}

func TestLLMFirstDisagreementGate(t *testing.T) {
	c := New(ModeLLMFirst, DefaultAcceptanceThresholds)
	body := "I was in a car accident yesterday and need to file a claim."
	p := sampleProposal(body)
	rules := []RuleProposal{{Intent: registry.IntentComplaint, RuleConfidence: 0.9}}
	outcome := c.LLMFirst(context.Background(), nil, p, "subject", body, rules, nil, nil)
	if !outcome.NeedsReview || outcome.ReviewReason != "disagreement_gate" {
		t.Fatalf("expected disagreement_gate review, got %+v", outcome)
	}
}

func TestSelectPrimaryIntentUsesCanonicalPriority(t *testing.T) {
	labels := []model.LabeledConfidence{
		{Label: string(registry.IntentGeneralInquiry), Confidence: 0.9},
		{Label: string(registry.IntentLegal), Confidence: 0.5},
	}
	if got := SelectPrimaryIntent(labels); got != registry.IntentLegal {
		t.Fatalf("expected INTENT_LEGAL to outrank general inquiry, got %s", got)
	}
}
