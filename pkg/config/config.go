// Package config loads the process-wide configuration snapshot (§5):
// an immutable bundle of timeouts, feature toggles, and per-stage
// thresholds, loaded once at process start and pinned per run via its
// own content-addressed SHA256. A reload produces a new snapshot with
// a new hash; in-flight runs keep the one they started with.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/classify"
	"github.com/aliuyar1234/intake-routing-engine/pkg/extract"
	"github.com/aliuyar1234/intake-routing-engine/pkg/identity"
)

// Timeouts are per-call deadlines sourced from configuration (§5).
type Timeouts struct {
	DirectoryRPC time.Duration `yaml:"directory_rpc" json:"directory_rpc"`
	LLMProvider  time.Duration `yaml:"llm_provider" json:"llm_provider"`
	CaseAdapter  time.Duration `yaml:"case_adapter" json:"case_adapter"`
	AVScanner    time.Duration `yaml:"av_scanner" json:"av_scanner"`
	OCR          time.Duration `yaml:"ocr" json:"ocr"`
}

// DefaultTimeouts matches the examples given in §5.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		DirectoryRPC: 2 * time.Second,
		LLMProvider:  20 * time.Second,
		CaseAdapter:  10 * time.Second,
		AVScanner:    5 * time.Second,
		OCR:          15 * time.Second,
	}
}

// Snapshot is the full immutable configuration pinned per run.
type Snapshot struct {
	SystemID           string                        `yaml:"system_id" json:"system_id"`
	SpecSemver         string                        `yaml:"spec_semver" json:"spec_semver"`
	DeterminismMode    bool                          `yaml:"determinism_mode" json:"determinism_mode"`
	Timeouts           Timeouts                      `yaml:"timeouts" json:"timeouts"`
	IdentityThresholds identity.Thresholds           `yaml:"identity_thresholds" json:"identity_thresholds"`
	ClassifyThresholds classify.AcceptanceThresholds `yaml:"classify_thresholds" json:"classify_thresholds"`
	ClassifyMode       classify.Mode                 `yaml:"classify_mode" json:"classify_mode"`
	ExtractConfig      extract.Config                `yaml:"extract_config" json:"extract_config"`

	// SHA256 is populated by Finalize and must never be set by hand;
	// it is excluded from its own hash input.
	SHA256 string `yaml:"-" json:"-"`
}

// defaultSnapshot mirrors the identity resolver's and classifier's
// documented defaults so a bare environment still runs deterministically.
func defaultSnapshot() Snapshot {
	return Snapshot{
		SystemID:        "intake-routing-engine",
		SpecSemver:      "1.0.0",
		DeterminismMode: false,
		Timeouts:        DefaultTimeouts(),
		IdentityThresholds: identity.Thresholds{
			ConfirmScore:         0.85,
			ConfirmMargin:        0.15,
			ProbableScore:        0.60,
			ProbableMargin:       0.10,
			SharedMailboxPenalty: 0.20,
		},
		ClassifyThresholds: classify.DefaultAcceptanceThresholds,
		ClassifyMode:       classify.ModeBaseline,
		ExtractConfig:      extract.Config{IBANEnabled: false},
	}
}

// Load builds a Snapshot from environment variables layered over
// documented defaults, then finalizes it with a content hash. This
// mirrors the teacher's env-var-with-defaults loading in the original
// pkg/config/config.go, generalized from a handful of server settings
// to the full per-run decision-core configuration surface.
func Load() (Snapshot, error) {
	snap := defaultSnapshot()

	if v := os.Getenv("IRE_SYSTEM_ID"); v != "" {
		snap.SystemID = v
	}
	if v := os.Getenv("IRE_SPEC_SEMVER"); v != "" {
		snap.SpecSemver = v
	}
	if os.Getenv("IRE_DETERMINISM_MODE") == "true" {
		snap.DeterminismMode = true
	}
	if os.Getenv("IRE_IBAN_ENABLED") == "true" {
		snap.ExtractConfig.IBANEnabled = true
	}
	if v := os.Getenv("IRE_CLASSIFY_MODE"); v != "" {
		snap.ClassifyMode = classify.Mode(v)
	}

	return Finalize(snap)
}

// Finalize stamps SHA256 over the snapshot's own content, excluding
// the SHA256 field itself (§5: "reloads produce a new snapshot with a
// new config.sha256").
func Finalize(snap Snapshot) (Snapshot, error) {
	snap.SHA256 = ""
	h, err := canonicalize.CanonicalHash(snap)
	if err != nil {
		return Snapshot{}, fmt.Errorf("config: hashing snapshot: %w", err)
	}
	snap.SHA256 = h
	return snap, nil
}
