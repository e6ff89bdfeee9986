package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// JurisdictionProfile is a per-jurisdiction overlay on the base
// Snapshot: data residency and retention rules, and threshold
// overrides. ApplyTo folds the overrides into a new snapshot whenever
// it is called; it does not look at a message's jurisdiction or at
// GDPR/privacy handling (§4.8 PRIVACY_GDPR routing, §4.10/§4.11
// retention of corrections and audit evidence).
type JurisdictionProfile struct {
	Name           string `yaml:"name" json:"name"`
	Code           string `yaml:"code" json:"code"`
	DataResidency  string `yaml:"data_residency" json:"data_residency"`
	PIIHandling    string `yaml:"pii_handling,omitempty" json:"pii_handling,omitempty"` // "standard" | "strict"
	RightToErasure bool   `yaml:"right_to_erasure,omitempty" json:"right_to_erasure,omitempty"`

	Retention RetentionConfig `yaml:"retention" json:"retention"`

	// IdentityThresholds, when non-nil, overrides the base snapshot's
	// identity thresholds for messages routed under this jurisdiction
	// (e.g. a stricter ConfirmScore where local regulation requires
	// a higher bar before auto-linking a customer record).
	IdentityThresholds *identityThresholdsOverride `yaml:"identity_thresholds,omitempty" json:"identity_thresholds,omitempty"`

	// ExtractIBANEnabled, when non-nil, overrides the base snapshot's
	// IBAN extraction toggle (SEPA jurisdictions enable it by default;
	// others leave it off).
	ExtractIBANEnabled *bool `yaml:"extract_iban_enabled,omitempty" json:"extract_iban_enabled,omitempty"`
}

// identityThresholdsOverride mirrors identity.Thresholds field-for-field
// so a profile YAML can override a subset without redeclaring the
// whole struct (avoids importing pkg/identity's zero-value ambiguity
// into the YAML surface: an absent field here means "inherit base",
// not "set to zero").
type identityThresholdsOverride struct {
	ConfirmScore         *float64 `yaml:"confirm_score,omitempty" json:"confirm_score,omitempty"`
	ConfirmMargin        *float64 `yaml:"confirm_margin,omitempty" json:"confirm_margin,omitempty"`
	ProbableScore        *float64 `yaml:"probable_score,omitempty" json:"probable_score,omitempty"`
	ProbableMargin       *float64 `yaml:"probable_margin,omitempty" json:"probable_margin,omitempty"`
	SharedMailboxPenalty *float64 `yaml:"shared_mailbox_penalty,omitempty" json:"shared_mailbox_penalty,omitempty"`
}

// RetentionConfig defines data retention policy for a jurisdiction.
type RetentionConfig struct {
	MaxDays          int `yaml:"max_days" json:"max_days"`
	AuditLogDays     int `yaml:"audit_log_days" json:"audit_log_days"`
	PIIRetentionDays int `yaml:"pii_retention_days,omitempty" json:"pii_retention_days,omitempty"`
}

// LoadProfile loads a jurisdiction profile YAML by code, searching
// profilesDir for profile_<code>.yaml.
func LoadProfile(profilesDir, code string) (*JurisdictionProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", code, err)
	}

	var profile JurisdictionProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", code, err)
	}

	if profile.Code == "" {
		profile.Code = code
	}

	return &profile, nil
}

// LoadAllProfiles loads every profile_*.yaml file from profilesDir.
func LoadAllProfiles(profilesDir string) (map[string]*JurisdictionProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*JurisdictionProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var profile JurisdictionProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if profile.Code == "" {
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}

		profiles[profile.Code] = &profile
	}

	return profiles, nil
}

// ApplyTo returns a new Snapshot with this profile's overrides merged
// in, then re-finalizes it so the overlaid snapshot carries its own
// SHA256 distinct from the base (§5: a configuration change is a new
// snapshot, never a mutation of the one in flight).
func (p *JurisdictionProfile) ApplyTo(base Snapshot) (Snapshot, error) {
	snap := base

	if p.IdentityThresholds != nil {
		if v := p.IdentityThresholds.ConfirmScore; v != nil {
			snap.IdentityThresholds.ConfirmScore = *v
		}
		if v := p.IdentityThresholds.ConfirmMargin; v != nil {
			snap.IdentityThresholds.ConfirmMargin = *v
		}
		if v := p.IdentityThresholds.ProbableScore; v != nil {
			snap.IdentityThresholds.ProbableScore = *v
		}
		if v := p.IdentityThresholds.ProbableMargin; v != nil {
			snap.IdentityThresholds.ProbableMargin = *v
		}
		if v := p.IdentityThresholds.SharedMailboxPenalty; v != nil {
			snap.IdentityThresholds.SharedMailboxPenalty = *v
		}
	}

	if p.ExtractIBANEnabled != nil {
		snap.ExtractConfig.IBANEnabled = *p.ExtractIBANEnabled
	}

	return Finalize(snap)
}
