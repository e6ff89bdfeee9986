// Package extract implements the Extractor (§4.7): canonical-type
// entity extraction with pattern+checksum validation, evidence
// verification, directory existence checks, and redacted storage of
// sensitive values.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"time"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/interfaces"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/provenance"
)

// RuleExtractorVersion identifies the pattern/checksum ruleset revision
// that produced a rule-extracted ExtractionResult.
const RuleExtractorVersion = "extract-rules-2026.1"

// EntityType names the canonical extracted-entity kinds.
const (
	EntityTypePolicyNumber   = "POLICY_NUMBER"
	EntityTypeClaimNumber    = "CLAIM_NUMBER"
	EntityTypeCustomerID     = "CUSTOMER_ID"
	EntityTypeIBAN           = "IBAN"
)

var ibanPattern = regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`)

// Config gates optional extraction behavior.
type Config struct {
	IBANEnabled bool
}

// Candidate is a raw pattern match before directory/checksum validation.
type Candidate struct {
	Type        string
	Value       string
	Snippet     canonicalize.Snippet
	SourceField string
	AttachmentID string
}

// ScanCanonicalText finds pattern candidates in already-canonicalized
// text (subject, body, or OCR output), tagging each with its source
// field so provenance survives into the ExtractedEntity.
func ScanCanonicalText(cfg Config, text, sourceField, attachmentID string) []Candidate {
	var out []Candidate
	out = append(out, matchWithChecksum(text, policyPattern, EntityTypePolicyNumber, sourceField, attachmentID, validLuhnSuffix)...)
	out = append(out, matchWithChecksum(text, claimPattern, EntityTypeClaimNumber, sourceField, attachmentID, validLuhnSuffix)...)
	out = append(out, matchWithChecksum(text, customerPattern, EntityTypeCustomerID, sourceField, attachmentID, nil)...)
	if cfg.IBANEnabled {
		for _, loc := range ibanPattern.FindAllStringIndex(text, -1) {
			value := text[loc[0]:loc[1]]
			if !validIBANChecksum(value) {
				continue
			}
			snip, err := canonicalize.NewSnippet(text, loc[0], loc[1], sourceField)
			if err != nil {
				continue
			}
			out = append(out, Candidate{Type: EntityTypeIBAN, Value: value, Snippet: snip, SourceField: sourceField, AttachmentID: attachmentID})
		}
	}
	return out
}

var (
	policyPattern   = regexp.MustCompile(`\bPOL-\d{4}-\d{8}\b`)
	claimPattern    = regexp.MustCompile(`\bCLM-\d{4}-\d{8}\b`)
	customerPattern = regexp.MustCompile(`\bCUS-\d{9}\b`)
)

func matchWithChecksum(text string, pattern *regexp.Regexp, entityType, sourceField, attachmentID string, checksum func(string) bool) []Candidate {
	var out []Candidate
	for _, loc := range pattern.FindAllStringIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		if checksum != nil && !checksum(value) {
			continue
		}
		snip, err := canonicalize.NewSnippet(text, loc[0], loc[1], sourceField)
		if err != nil {
			continue
		}
		out = append(out, Candidate{Type: entityType, Value: value, Snippet: snip, SourceField: sourceField, AttachmentID: attachmentID})
	}
	return out
}

// IsSensitive reports whether an entity type's value must be stored
// redacted rather than in the clear (§4.7: bank details, ID documents).
func IsSensitive(entityType string) bool {
	return entityType == EntityTypeIBAN
}

// Redact returns the template-visible redacted form (first 4 leading
// characters only, per §4.7) plus the full value's sha256.
func Redact(value string) (redacted, sha256Hex string) {
	h := sha256.Sum256([]byte(value))
	sha256Hex = hex.EncodeToString(h[:])
	lead := 4
	if len(value) < lead {
		lead = len(value)
	}
	redacted = value[:lead] + "****"
	return redacted, sha256Hex
}

// Resolve turns validated candidates into ExtractedEntity records,
// existence-checking identity-bearing types against the directory.
// Pattern-valid but directory-unknown entities are kept with
// directory_miss=true rather than dropped.
func Resolve(ctx context.Context, dir interfaces.DirectoryAdapter, cfg Config, candidates []Candidate) []model.ExtractedEntity {
	out := make([]model.ExtractedEntity, 0, len(candidates))
	for _, c := range candidates {
		entity := model.ExtractedEntity{
			Type:         c.Type,
			Confidence:   1.0,
			SourceField:  c.SourceField,
			OffsetStart:  c.Snippet.OffsetStart,
			OffsetEnd:    c.Snippet.OffsetEnd,
			AttachmentID: c.AttachmentID,
		}

		if IsSensitive(c.Type) {
			redacted, sha := Redact(c.Value)
			entity.RedactedValue = redacted
			entity.SHA256OfFull = sha
		} else {
			entity.RedactedValue = c.Value
		}

		if directoryRelevant(c.Type) && dir != nil {
			found, err := existsInDirectory(ctx, dir, c.Type, c.Value)
			if err == nil {
				entity.DirectoryMiss = !found
			}
		}

		out = append(out, entity)
	}
	return out
}

// BuildResult stamps a pattern-extracted entity set with a provenance
// envelope naming this package as the producer, so rule-extracted and
// OCR-extracted ExtractionResults carry the same sidecar shape as
// LLM-produced artifacts.
func BuildResult(entities []model.ExtractedEntity, now time.Time) model.ExtractionResult {
	if entities == nil {
		entities = []model.ExtractedEntity{}
	}
	return model.ExtractionResult{
		Entities:   entities,
		Provenance: provenance.New(provenance.SourceRuleExtractor, RuleExtractorVersion, now),
	}
}

func directoryRelevant(entityType string) bool {
	switch entityType {
	case EntityTypePolicyNumber, EntityTypeClaimNumber, EntityTypeCustomerID:
		return true
	default:
		return false
	}
}

func existsInDirectory(ctx context.Context, dir interfaces.DirectoryAdapter, entityType, value string) (bool, error) {
	var rec interfaces.DirectoryRecord
	var err error
	switch entityType {
	case EntityTypePolicyNumber:
		rec, err = dir.LookupPolicy(ctx, value)
	case EntityTypeClaimNumber:
		rec, err = dir.LookupClaim(ctx, value)
	default:
		rec, err = dir.LookupCustomer(ctx, value)
	}
	if err != nil {
		return false, err
	}
	return rec.Found, nil
}

func validLuhnSuffix(id string) bool {
	parts := splitLast(id, '-')
	if parts == "" {
		return false
	}
	return luhnValid(parts)
}

func splitLast(s string, sep byte) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == sep {
			return s[i+1:]
		}
	}
	return ""
}

func luhnValid(digits string) bool {
	if len(digits) == 0 {
		return false
	}
	sum := 0
	alt := false
	for i := len(digits) - 1; i >= 0; i-- {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
		d := int(digits[i] - '0')
		if alt {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		alt = !alt
	}
	return sum%10 == 0
}

// validIBANChecksum implements the standard ISO 7064 mod-97-10 check.
func validIBANChecksum(iban string) bool {
	if len(iban) < 4 {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	var numeric []byte
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		switch {
		case c >= '0' && c <= '9':
			numeric = append(numeric, c)
		case c >= 'A' && c <= 'Z':
			n := int(c-'A') + 10
			numeric = append(numeric, []byte(itoaSmall(n))...)
		default:
			return false
		}
	}
	remainder := 0
	for _, d := range numeric {
		remainder = (remainder*10 + int(d-'0')) % 97
	}
	return remainder == 1
}

func itoaSmall(n int) string {
	if n < 10 {
		return string(byte('0' + n))
	}
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}
