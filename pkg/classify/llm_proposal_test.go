package classify

import (
	"testing"

	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

func TestParseLLMProposalDecodesWireShape(t *testing.T) {
	raw := []byte(`{
		"primary_intent": "INTENT_CLAIM_NEW",
		"intents": [{"label": "INTENT_CLAIM_NEW", "confidence": 0.91}],
		"product_line": "PROD_AUTO",
		"product_line_confidence": 0.77,
		"urgency": "URG_MEDIUM",
		"urgency_confidence": 0.68,
		"risk_flags": [{"label": "RISK_FRAUD_SIGNAL", "confidence": 0.82}],
		"evidence": {
			"primary_intent": {"text": "I need to file a claim", "offset_start": 10, "offset_end": 33}
		}
	}`)

	p, err := ParseLLMProposal(raw, "body")
	if err != nil {
		t.Fatal(err)
	}
	if p.PrimaryIntent != registry.IntentClaimNew {
		t.Fatalf("primary_intent = %q", p.PrimaryIntent)
	}
	if p.ProductLine != registry.ProductAuto || p.Urgency != registry.UrgencyMedium {
		t.Fatalf("unexpected product_line/urgency: %+v", p)
	}
	if p.ProductLineConfidence != 0.77 || p.UrgencyConfidence != 0.68 {
		t.Fatalf("unexpected product_line/urgency confidences: %+v", p)
	}
	if len(p.Intents) != 1 || p.Intents[0].Confidence != 0.91 {
		t.Fatalf("unexpected intents: %+v", p.Intents)
	}
	if len(p.RiskFlags) != 1 || p.RiskFlags[0].Label != "RISK_FRAUD_SIGNAL" {
		t.Fatalf("unexpected risk_flags: %+v", p.RiskFlags)
	}
	snip, ok := p.Evidence["primary_intent"]
	if !ok {
		t.Fatal("expected an evidence snippet for primary_intent")
	}
	if snip.SourceRef != "body" || snip.SHA256 == "" {
		t.Fatalf("evidence snippet not fully populated: %+v", snip)
	}
}

func TestParseLLMProposalRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseLLMProposal([]byte(`not json`), "body"); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestParseLLMProposalRejectsMissingPrimaryIntent(t *testing.T) {
	if _, err := ParseLLMProposal([]byte(`{"product_line": "PROD_AUTO"}`), "body"); err == nil {
		t.Fatal("expected an error when primary_intent is absent")
	}
}
