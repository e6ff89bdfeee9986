package classify

import (
	"encoding/json"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// wireLabeledConfidence mirrors the classification-result schema's
// labeledConfidence $def, minus the evidence_snippet_sha256 field the
// LLM never fills in directly. Labels decoded from it carry no snippet
// hashes; hashes are computed only for the separate evidence spans
// below, from each span's asserted text.
type wireLabeledConfidence struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// wireSnippet mirrors the subset of canonicalize.Snippet the model can
// actually assert: it names an offset range, not a precomputed hash.
type wireSnippet struct {
	Text        string `json:"text"`
	OffsetStart int    `json:"offset_start"`
	OffsetEnd   int    `json:"offset_end"`
}

type wireProposal struct {
	PrimaryIntent         string                  `json:"primary_intent"`
	Intents               []wireLabeledConfidence `json:"intents"`
	ProductLine           string                  `json:"product_line"`
	ProductLineConfidence float64                 `json:"product_line_confidence"`
	Urgency               string                  `json:"urgency"`
	UrgencyConfidence     float64                 `json:"urgency_confidence"`
	RiskFlags             []wireLabeledConfidence `json:"risk_flags"`
	Evidence              map[string]wireSnippet  `json:"evidence"`
}

// ParseLLMProposal decodes the strict-JSON text an LLMProvider returns
// for a CLASSIFY purpose call into an LLMProposal. It performs no
// acceptance-gate validation itself — that's LLMFirst's job — beyond
// what's needed to build well-typed values: malformed JSON or an empty
// primary_intent is rejected outright as a non-retryable schema failure.
func ParseLLMProposal(rawJSON []byte, sourceRef string) (LLMProposal, error) {
	var w wireProposal
	if err := json.Unmarshal(rawJSON, &w); err != nil {
		return LLMProposal{}, ireerrors.Wrap(ireerrors.KindValidation, "", ireerrors.ReasonSchemaInvalid, err)
	}
	if w.PrimaryIntent == "" {
		return LLMProposal{}, ireerrors.New(ireerrors.KindValidation, "", ireerrors.ReasonSchemaInvalid)
	}

	evidence := make(map[string]canonicalize.Snippet, len(w.Evidence))
	for field, s := range w.Evidence {
		evidence[field] = canonicalize.Snippet{
			Text:        s.Text,
			SHA256:      canonicalize.SnippetHash(s.Text),
			OffsetStart: s.OffsetStart,
			OffsetEnd:   s.OffsetEnd,
			SourceRef:   sourceRef,
		}
	}

	return LLMProposal{
		PrimaryIntent:         registry.Intent(w.PrimaryIntent),
		Intents:               toLabeledConfidence(w.Intents),
		ProductLine:           registry.ProductLine(w.ProductLine),
		ProductLineConfidence: w.ProductLineConfidence,
		Urgency:               registry.Urgency(w.Urgency),
		UrgencyConfidence:     w.UrgencyConfidence,
		RiskFlags:             toLabeledConfidence(w.RiskFlags),
		Evidence:              evidence,
	}, nil
}

func toLabeledConfidence(in []wireLabeledConfidence) []model.LabeledConfidence {
	out := make([]model.LabeledConfidence, 0, len(in))
	for _, i := range in {
		out = append(out, model.LabeledConfidence{Label: i.Label, Confidence: i.Confidence})
	}
	return out
}
