package extract

import (
	"context"
	"testing"
	"time"

	"github.com/aliuyar1234/intake-routing-engine/pkg/interfaces"
	"github.com/aliuyar1234/intake-routing-engine/pkg/provenance"
)

type stubDirectory struct {
	policyFound bool
}

func (s stubDirectory) LookupPolicy(ctx context.Context, id string) (interfaces.DirectoryRecord, error) {
	return interfaces.DirectoryRecord{Found: s.policyFound, Status: interfaces.DirectoryActive}, nil
}
func (s stubDirectory) LookupClaim(ctx context.Context, id string) (interfaces.DirectoryRecord, error) {
	return interfaces.DirectoryRecord{}, nil
}
func (s stubDirectory) LookupCustomer(ctx context.Context, idOrEmail string) (interfaces.DirectoryRecord, error) {
	return interfaces.DirectoryRecord{}, nil
}

func validPolicyNumber() string {
	for d := 0; d <= 9; d++ {
		candidate := "POL-2024-1234567" + string(byte('0'+d))
		if luhnValid(candidate[9:]) {
			return candidate
		}
	}
	return "POL-2024-00000000"
}

func TestScanCanonicalTextFindsValidPolicyNumber(t *testing.T) {
	num := validPolicyNumber()
	text := "Please see attached policy " + num + " for reference."
	candidates := ScanCanonicalText(Config{}, text, "body", "")
	if len(candidates) != 1 || candidates[0].Type != EntityTypePolicyNumber {
		t.Fatalf("expected one policy number candidate, got %+v", candidates)
	}
}

func TestScanCanonicalTextSkipsIBANWhenDisabled(t *testing.T) {
	text := "My IBAN is GB29NWBK60161331926819 for the refund."
	candidates := ScanCanonicalText(Config{IBANEnabled: false}, text, "body", "")
	for _, c := range candidates {
		if c.Type == EntityTypeIBAN {
			t.Fatal("IBAN extraction must be gated by config")
		}
	}
}

func TestScanCanonicalTextFindsIBANWhenEnabled(t *testing.T) {
	text := "My IBAN is GB29NWBK60161331926819 for the refund."
	candidates := ScanCanonicalText(Config{IBANEnabled: true}, text, "body", "")
	found := false
	for _, c := range candidates {
		if c.Type == EntityTypeIBAN {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a valid IBAN to be extracted when enabled")
	}
}

func TestRedactKeepsOnlyFourLeadingChars(t *testing.T) {
	redacted, sha := Redact("GB29NWBK60161331926819")
	if redacted != "GB29****" {
		t.Fatalf("unexpected redaction: %s", redacted)
	}
	if len(sha) != 64 {
		t.Fatalf("expected 64-char sha256 hex, got %d", len(sha))
	}
}

func TestResolveFlagsDirectoryMiss(t *testing.T) {
	num := validPolicyNumber()
	text := "policy " + num
	candidates := ScanCanonicalText(Config{}, text, "body", "")
	entities := Resolve(context.Background(), stubDirectory{policyFound: false}, Config{}, candidates)
	if len(entities) != 1 || !entities[0].DirectoryMiss {
		t.Fatalf("expected directory_miss=true for unknown policy number, got %+v", entities)
	}
}

func TestResolveNoMissWhenDirectoryHasRecord(t *testing.T) {
	num := validPolicyNumber()
	text := "policy " + num
	candidates := ScanCanonicalText(Config{}, text, "body", "")
	entities := Resolve(context.Background(), stubDirectory{policyFound: true}, Config{}, candidates)
	if len(entities) != 1 || entities[0].DirectoryMiss {
		t.Fatalf("expected directory_miss=false when directory has the record, got %+v", entities)
	}
}

func TestBuildResultStampsProvenance(t *testing.T) {
	num := validPolicyNumber()
	candidates := ScanCanonicalText(Config{}, "policy "+num, "body", "")
	entities := Resolve(context.Background(), stubDirectory{policyFound: true}, Config{}, candidates)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	result := BuildResult(entities, now)
	if len(result.Entities) != 1 {
		t.Fatalf("expected entities to pass through unchanged, got %+v", result.Entities)
	}
	if result.Provenance.Source != provenance.SourceRuleExtractor {
		t.Fatalf("unexpected provenance source: %+v", result.Provenance)
	}
	if !result.Provenance.ProducedAt.Equal(now) {
		t.Fatalf("unexpected produced_at: %+v", result.Provenance.ProducedAt)
	}
}

func TestBuildResultNeverReturnsNilEntities(t *testing.T) {
	result := BuildResult(nil, time.Now())
	if result.Entities == nil {
		t.Fatal("expected Entities to be an empty slice, not nil, for stable JSON serialization")
	}
}
