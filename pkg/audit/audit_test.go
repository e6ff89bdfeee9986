package audit

import (
	"context"
	"testing"
	"time"

	"github.com/aliuyar1234/intake-routing-engine/pkg/merkle"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

func fixedClock() time.Time { return time.Unix(0, 0).UTC() }

func TestAppendBuildsLinearChain(t *testing.T) {
	ctx := context.Background()
	l := NewLog(fixedClock)

	for _, stage := range []registry.Stage{registry.StageIngest, registry.StageNormalize, registry.StageIdentity} {
		if err := l.Append(ctx, "msg-1", "run-1", model.AuditEvent{Stage: stage, ConfigRef: model.ArtifactRef{SHA256: "cfg"}}); err != nil {
			t.Fatalf("append %s: %v", stage, err)
		}
	}

	chain, err := l.ReadChain(ctx, "msg-1", "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 3 {
		t.Fatalf("expected 3 events, got %d", len(chain))
	}
	if chain[0].PrevEventHash != GenesisHash {
		t.Fatalf("genesis event must chain from fixed zero-hash, got %s", chain[0].PrevEventHash)
	}
	for i := 1; i < len(chain); i++ {
		if chain[i].PrevEventHash != chain[i-1].EventHash {
			t.Fatalf("chain broken at %d: prev=%s want=%s", i, chain[i].PrevEventHash, chain[i-1].EventHash)
		}
	}

	res := Verify(chain)
	if !res.OK {
		t.Fatalf("expected chain to verify, got %+v", res)
	}
}

func TestVerifyDetectsTamperingAtExactIndex(t *testing.T) {
	ctx := context.Background()
	l := NewLog(fixedClock)
	for i := 0; i < 5; i++ {
		_ = l.Append(ctx, "msg-2", "run-1", model.AuditEvent{Stage: registry.StageNormalize, ConfigRef: model.ArtifactRef{SHA256: "cfg"}})
	}
	chain, _ := l.ReadChain(ctx, "msg-2", "run-1")

	chain[2].Evidence = []model.EvidenceEntry{{Snippet: "tampered"}}

	res := Verify(chain)
	if res.OK {
		t.Fatal("expected tampered chain to fail verification")
	}
	if res.BrokenAtIndex != 2 {
		t.Fatalf("expected break reported at index 2, got %d", res.BrokenAtIndex)
	}
}

func TestAppendRejectsNonCanonicalStage(t *testing.T) {
	ctx := context.Background()
	l := NewLog(fixedClock)
	err := l.Append(ctx, "msg-3", "run-1", model.AuditEvent{Stage: "NOT_A_STAGE", ConfigRef: model.ArtifactRef{SHA256: "cfg"}})
	if err == nil {
		t.Fatal("expected error for non-canonical stage")
	}
}

func TestChainsAreIndependentPerMessageAndRun(t *testing.T) {
	ctx := context.Background()
	l := NewLog(fixedClock)
	_ = l.Append(ctx, "msg-4", "run-1", model.AuditEvent{Stage: registry.StageIngest, ConfigRef: model.ArtifactRef{SHA256: "cfg"}})
	_ = l.Append(ctx, "msg-4", "run-2", model.AuditEvent{Stage: registry.StageIngest, ConfigRef: model.ArtifactRef{SHA256: "cfg"}})

	chainA, _ := l.ReadChain(ctx, "msg-4", "run-1")
	chainB, _ := l.ReadChain(ctx, "msg-4", "run-2")
	if chainA[0].PrevEventHash != GenesisHash || chainB[0].PrevEventHash != GenesisHash {
		t.Fatal("independent chains must each start from genesis")
	}
}

func TestEvidenceTreeProvesEachStageOutput(t *testing.T) {
	chain := []model.AuditEvent{
		{Stage: registry.StageIdentity, OutputRef: &model.ArtifactRef{SHA256: "aa"}},
		{Stage: registry.StageClassify, OutputRef: &model.ArtifactRef{SHA256: "bb"}},
		{Stage: registry.StageRoute, OutputRef: &model.ArtifactRef{SHA256: "cc"}},
	}

	tree := EvidenceTree(chain)
	if tree.Root == "" {
		t.Fatal("expected a non-empty evidence root")
	}

	for _, stage := range []registry.Stage{registry.StageIdentity, registry.StageClassify, registry.StageRoute} {
		proof, ok := tree.Prove(string(stage))
		if !ok {
			t.Fatalf("expected %s to be provable", stage)
		}
		if err := merkle.VerifyInclusionProof(proof, tree.Root); err != nil {
			t.Fatalf("proof for %s failed: %v", stage, err)
		}
	}
}

func TestEvidenceTreeSkipsEventsWithoutOutput(t *testing.T) {
	chain := []model.AuditEvent{
		{Stage: registry.StageIdentity, OutputRef: &model.ArtifactRef{SHA256: "aa"}},
		{Stage: registry.StageRoute}, // no OutputRef: e.g. a fail-closed event
	}
	tree := EvidenceTree(chain)
	if _, ok := tree.Prove(string(registry.StageRoute)); ok {
		t.Fatal("expected a stage with no OutputRef to be absent from the evidence tree")
	}
}
