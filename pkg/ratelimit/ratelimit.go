// Package ratelimit wraps outbound calls to external dependencies
// (directory lookups, LLM inference) in a token-bucket limiter, so a
// single misbehaving run cannot exhaust a shared downstream system's
// quota. Each external dependency this system calls synchronously
// mid-stage (§5) gets its own limiter rather than sharing one, mirroring
// the teacher's one-limiter-per-connector convention.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/aliuyar1234/intake-routing-engine/pkg/interfaces"
	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
)

// Limiter is a named token-bucket gate.
type Limiter struct {
	id      string
	limiter *rate.Limiter
}

// New creates a limiter allowing r events per second with burst b.
func New(id string, r rate.Limit, b int) *Limiter {
	return &Limiter{id: id, limiter: rate.NewLimiter(r, b)}
}

// Wait blocks until the limiter permits a call, or returns a
// KindDependencyUnavailable error if ctx is cancelled first.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, err)
	}
	return nil
}

// DirectoryAdapter rate-limits calls to an interfaces.DirectoryAdapter.
type DirectoryAdapter struct {
	next    interfaces.DirectoryAdapter
	limiter *Limiter
}

// NewDirectoryAdapter wraps next behind limiter.
func NewDirectoryAdapter(next interfaces.DirectoryAdapter, limiter *Limiter) *DirectoryAdapter {
	return &DirectoryAdapter{next: next, limiter: limiter}
}

func (a *DirectoryAdapter) LookupPolicy(ctx context.Context, id string) (interfaces.DirectoryRecord, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return interfaces.DirectoryRecord{}, err
	}
	return a.next.LookupPolicy(ctx, id)
}

func (a *DirectoryAdapter) LookupClaim(ctx context.Context, id string) (interfaces.DirectoryRecord, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return interfaces.DirectoryRecord{}, err
	}
	return a.next.LookupClaim(ctx, id)
}

func (a *DirectoryAdapter) LookupCustomer(ctx context.Context, idOrEmail string) (interfaces.DirectoryRecord, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return interfaces.DirectoryRecord{}, err
	}
	return a.next.LookupCustomer(ctx, idOrEmail)
}

// LLMProvider rate-limits calls to an interfaces.LLMProvider.
type LLMProvider struct {
	next    interfaces.LLMProvider
	limiter *Limiter
}

// NewLLMProvider wraps next behind limiter.
func NewLLMProvider(next interfaces.LLMProvider, limiter *Limiter) *LLMProvider {
	return &LLMProvider{next: next, limiter: limiter}
}

func (p *LLMProvider) Infer(ctx context.Context, req interfaces.LLMRequest) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.next.Infer(ctx, req)
}
