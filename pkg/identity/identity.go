// Package identity implements the Identity Resolver (§4.5): it scores
// candidate entities against deterministic and (optionally) LLM-assisted
// signals, ranks them by a fixed tie-break order, and derives a
// confidence status from the top score and its margin over the runner-up.
package identity

import (
	"context"
	"sort"

	"github.com/aliuyar1234/intake-routing-engine/pkg/interfaces"
	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// SignalClass is the strength tier a signal contributes at.
type SignalClass string

const (
	ClassHard   SignalClass = "HARD"
	ClassMedium SignalClass = "MEDIUM"
	ClassSoft   SignalClass = "SOFT"
)

// ClassWeight is the fixed scoring weight per signal class.
var ClassWeight = map[SignalClass]float64{
	ClassHard:   1.0,
	ClassMedium: 0.7,
	ClassSoft:   0.3,
}

// Thresholds configure status derivation. Loaded from config, never hardcoded.
type Thresholds struct {
	ConfirmScore   float64 `json:"confirm_score" yaml:"confirm_score"`
	ConfirmMargin  float64 `json:"confirm_margin" yaml:"confirm_margin"`
	ProbableScore  float64 `json:"probable_score" yaml:"probable_score"`
	ProbableMargin float64 `json:"probable_margin" yaml:"probable_margin"`
	SharedMailboxPenalty float64 `json:"shared_mailbox_penalty" yaml:"shared_mailbox_penalty"`
}

// AsMap renders the thresholds for inclusion in decisionhash.Identity's
// canonical input.
func (t Thresholds) AsMap() map[string]float64 {
	return map[string]float64{
		"confirm_score":          t.ConfirmScore,
		"confirm_margin":         t.ConfirmMargin,
		"probable_score":         t.ProbableScore,
		"probable_margin":        t.ProbableMargin,
		"shared_mailbox_penalty": t.SharedMailboxPenalty,
	}
}

// Candidate is a working accumulator for one entity before scoring.
type Candidate struct {
	EntityType    registry.EntityType
	EntityID      string
	Signals       []model.IdentitySignal
	Evidence      []string
	SharedMailbox bool
}

// AddSignal appends one signal with its class weight already resolved.
func (c *Candidate) AddSignal(name, value string, class SignalClass) {
	c.Signals = append(c.Signals, model.IdentitySignal{
		Name: name, Value: value, Weight: ClassWeight[class], Class: string(class),
	})
}

func (c Candidate) hasHardSignal() bool {
	for _, s := range c.Signals {
		if s.Class == string(ClassHard) {
			return true
		}
	}
	return false
}

func (c Candidate) hasMediumSignal() bool {
	for _, s := range c.Signals {
		if s.Class == string(ClassMedium) {
			return true
		}
	}
	return false
}

func (c Candidate) rawScore() float64 {
	var sum float64
	for _, s := range c.Signals {
		sum += s.Weight
	}
	return sum
}

// score applies the shared-mailbox penalty and clamps to [0, 1] per
// §4.5: score = min(1.0, score_raw − penalties).
func (c Candidate) score(penalty float64) float64 {
	raw := c.rawScore()
	if c.SharedMailbox {
		raw -= penalty
	}
	if raw < 0 {
		raw = 0
	}
	if raw > 1.0 {
		raw = 1.0
	}
	return raw
}

// Resolve scores and ranks candidates, derives a status, and returns
// the full result. directoryUnavailable forces NEEDS_REVIEW regardless
// of score (§4.5 Failure).
func Resolve(ctx context.Context, candidates []Candidate, primaryIntentIsClaimRelated bool, thresholds Thresholds, directoryUnavailable bool) model.IdentityResolutionResult {
	if directoryUnavailable {
		return model.IdentityResolutionResult{
			Status:       registry.IdentityNeedsReview,
			StatusReason: ireerrors.ReasonDirectoryUnavailable,
			TopK:         scoredCandidates(candidates, thresholds, primaryIntentIsClaimRelated),
		}
	}

	scored := scoredCandidates(candidates, thresholds, primaryIntentIsClaimRelated)
	if len(scored) == 0 {
		return model.IdentityResolutionResult{Status: registry.IdentityNoCandidate, TopK: scored}
	}

	top := scored[0]
	var second model.IdentityCandidate
	if len(scored) > 1 {
		second = scored[1]
	}
	margin := top.Score - second.Score

	status := registry.IdentityNeedsReview
	switch {
	case top.Score >= thresholds.ConfirmScore && margin >= thresholds.ConfirmMargin && top.HasHardSignal:
		status = registry.IdentityConfirmed
	case top.Score >= thresholds.ProbableScore && margin >= thresholds.ProbableMargin && hasAnyMediumSignal(top):
		status = registry.IdentityProbable
	}

	return model.IdentityResolutionResult{Status: status, TopK: scored}
}

func hasAnyMediumSignal(c model.IdentityCandidate) bool {
	for _, s := range c.Signals {
		if s.Class == string(ClassMedium) {
			return true
		}
	}
	return false
}

func scoredCandidates(candidates []Candidate, thresholds Thresholds, claimRelated bool) []model.IdentityCandidate {
	out := make([]model.IdentityCandidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, model.IdentityCandidate{
			EntityType:    c.EntityType,
			EntityID:      c.EntityID,
			Score:         c.score(thresholds.SharedMailboxPenalty),
			Signals:       c.Signals,
			Evidence:      c.Evidence,
			HasHardSignal: c.hasHardSignal(),
		})
	}
	rankOrder := entityRankOrder(claimRelated)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j], rankOrder)
	})
	return out
}

// entityRankOrder returns the entity-type priority used in tie-break
// step 2 (§4.5): lower index ranks higher.
func entityRankOrder(claimRelated bool) []registry.EntityType {
	if claimRelated {
		return []registry.EntityType{registry.EntityClaim, registry.EntityPolicy, registry.EntityCustomer}
	}
	return []registry.EntityType{registry.EntityPolicy, registry.EntityCustomer, registry.EntityClaim}
}

func entityRank(order []registry.EntityType, t registry.EntityType) int {
	for i, et := range order {
		if et == t {
			return i
		}
	}
	return len(order)
}

// less implements the deterministic §4.5 tie-break order. It returns
// true when a should rank before b.
func less(a, b model.IdentityCandidate, rankOrder []registry.EntityType) bool {
	if a.HasHardSignal != b.HasHardSignal {
		return a.HasHardSignal
	}
	ra, rb := entityRank(rankOrder, a.EntityType), entityRank(rankOrder, b.EntityType)
	if ra != rb {
		return ra < rb
	}
	if a.DirectoryActive != b.DirectoryActive {
		return a.DirectoryActive
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.EntityID < b.EntityID
}

// ApplyDirectoryStatus looks up a candidate's active/closed status and
// stamps it on the scored result. Directory errors are surfaced to the
// caller, who decides whether to treat the whole run as
// directory-unavailable (and force NEEDS_REVIEW).
func ApplyDirectoryStatus(ctx context.Context, dir interfaces.DirectoryAdapter, entityType registry.EntityType, entityID string) (active bool, unknown bool, err error) {
	var rec interfaces.DirectoryRecord
	switch entityType {
	case registry.EntityPolicy:
		rec, err = dir.LookupPolicy(ctx, entityID)
	case registry.EntityClaim:
		rec, err = dir.LookupClaim(ctx, entityID)
	default:
		rec, err = dir.LookupCustomer(ctx, entityID)
	}
	if err != nil {
		return false, true, err
	}
	if !rec.Found {
		return false, true, nil
	}
	return rec.Status == interfaces.DirectoryActive, false, nil
}
