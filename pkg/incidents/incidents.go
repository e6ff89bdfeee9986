// Package incidents manages the process-wide Incident Gate toggles
// (§4.10): force_review, disable_llm, and block_case_create_risk_flags_any,
// consulted by every stage on entry. A change takes effect for the next
// message dequeued; a run already in flight keeps the snapshot it
// started with, taken once via Snapshot().
package incidents

import (
	"sync"

	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
	"github.com/aliuyar1234/intake-routing-engine/pkg/routing"
)

// Gate is the mutable, process-wide incident toggle set. All mutation
// goes through Set*; reads are always a snapshot, never a live view,
// so a run pins the state it observed at start.
type Gate struct {
	mu sync.RWMutex

	forceReview        bool
	forceReviewQueueID registry.Queue
	forceReviewSLAID   registry.SLA
	disableLLM         bool
	blockCaseCreate    []registry.RiskFlag
}

// NewGate returns a Gate with all toggles cleared.
func NewGate() *Gate {
	return &Gate{}
}

// Snapshot returns the routing.Incidents view of the gate's current
// state. Callers take exactly one snapshot per run, at run start, and
// evaluate every stage against it — later mutations of the Gate are
// invisible to a run already holding a snapshot (§4.10, §5 shared
// resources: configuration is pinned per run).
func (g *Gate) Snapshot() routing.Incidents {
	g.mu.RLock()
	defer g.mu.RUnlock()

	flags := make([]registry.RiskFlag, len(g.blockCaseCreate))
	copy(flags, g.blockCaseCreate)

	return routing.Incidents{
		ForceReview:              g.forceReview,
		ForceReviewQueueID:       g.forceReviewQueueID,
		ForceReviewSLAID:         g.forceReviewSLAID,
		DisableLLM:               g.disableLLM,
		BlockCaseCreateRiskFlags: flags,
	}
}

// SetForceReview enables or disables the global force-review gate. When
// enabled every message routes to queueID at the given SLA regardless
// of classification or product, with CREATE_CASE withheld (§4.8 step 1).
func (g *Gate) SetForceReview(enabled bool, queueID registry.Queue, slaID registry.SLA) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.forceReview = enabled
	g.forceReviewQueueID = queueID
	g.forceReviewSLAID = slaID
}

// SetDisableLLM sets the disable_llm toggle, which Snapshot reports as
// routing.Incidents.DisableLLM and LLMDisabled reports live. The gate
// only records it: neither pkg/classify nor pkg/routing reads the
// toggle, so it does not by itself change a classifier's mode (§4.6).
func (g *Gate) SetDisableLLM(disabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disableLLM = disabled
}

// SetBlockCaseCreateRiskFlags replaces the set of risk flags that, when
// present on a message, strip CREATE_CASE and insert BLOCK_CASE_CREATE
// from the routing decision regardless of which rule matched (§4.8).
func (g *Gate) SetBlockCaseCreateRiskFlags(flags []registry.RiskFlag) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make([]registry.RiskFlag, len(flags))
	copy(cp, flags)
	g.blockCaseCreate = cp
}

// LLMDisabled reports whether the gate's live state has disable_llm
// set. Unlike Snapshot, this is for gating at queue-dequeue time
// before a run's snapshot is taken, not for use inside a running
// stage chain.
func (g *Gate) LLMDisabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.disableLLM
}
