package inferencecache

import (
	"context"
	"testing"

	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

func sampleKey() Key {
	return Key{
		Purpose:           registry.PurposeClassify,
		ModelID:           "model-a",
		Params:            model.LLMParams{Temperature: 0, TopP: 1, MaxTokens: 512},
		PromptSHA256:      "prompt-sha",
		InputDigestSHA256: "input-sha",
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	k1, err := Derive(sampleKey())
	if err != nil {
		t.Fatal(err)
	}
	k2, err := Derive(sampleKey())
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Fatalf("cache key not deterministic: %s vs %s", k1, k2)
	}
}

func TestDeriveRejectsNonCanonicalPurpose(t *testing.T) {
	k := sampleKey()
	k.Purpose = "NOT_A_PURPOSE"
	if _, err := Derive(k); err == nil {
		t.Fatal("expected error for non-canonical purpose")
	}
}

func TestLookupMissFailsClosedUnderDeterminismMode(t *testing.T) {
	c := New(NewMemStore())
	_, _, err := c.Lookup(context.Background(), sampleKey(), true)
	if err == nil {
		t.Fatal("expected determinism violation on cache miss")
	}
	ireErr, ok := err.(*ireerrors.Error)
	if !ok {
		t.Fatalf("expected *ireerrors.Error, got %T", err)
	}
	if ireErr.Kind != ireerrors.KindDeterminismViolation || ireErr.Reason != ireerrors.ReasonDeterminismCacheMiss {
		t.Fatalf("unexpected error: %+v", ireErr)
	}
}

func TestLookupMissIsNilWithoutDeterminismMode(t *testing.T) {
	c := New(NewMemStore())
	artifact, _, err := c.Lookup(context.Background(), sampleKey(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact != nil {
		t.Fatal("expected nil artifact on miss")
	}
}

func TestRecordThenLookupHits(t *testing.T) {
	c := New(NewMemStore())
	k := sampleKey()
	artifact := model.LLMInferenceArtifact{
		Purpose: k.Purpose, ModelID: k.ModelID, Params: k.Params,
		PromptSHA256: k.PromptSHA256, InputDigestSHA256: k.InputDigestSHA256,
		OutputJSON: `{"ok":true}`,
	}
	if _, err := c.Record(context.Background(), k, artifact); err != nil {
		t.Fatal(err)
	}
	got, _, err := c.Lookup(context.Background(), k, true)
	if err != nil {
		t.Fatalf("expected hit, got error: %v", err)
	}
	if got == nil || got.OutputJSON != `{"ok":true}` {
		t.Fatalf("unexpected cached artifact: %+v", got)
	}
}

func TestMemStorePutIsWriteOnce(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()
	_ = m.Put(ctx, "k", model.LLMInferenceArtifact{OutputJSON: "first"})
	_ = m.Put(ctx, "k", model.LLMInferenceArtifact{OutputJSON: "second"})
	got, hit, _ := m.Get(ctx, "k")
	if !hit || got.OutputJSON != "first" {
		t.Fatalf("expected first write to win, got %+v", got)
	}
}
