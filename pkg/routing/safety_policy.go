package routing

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

// SafetyPolicyVars is the fixed set of attributes an operator-defined
// CEL expression may reference. It mirrors the subset of Input the
// canonical hard-override table (§4.8 step 2) already sees, so a
// custom rule can never act on information the fixed table could not.
type SafetyPolicyVars struct {
	RiskFlags      []string
	PrimaryIntent  string
	ProductLine    string
	Urgency        string
	IdentityStatus string
}

func (v SafetyPolicyVars) toCELInput() map[string]any {
	return map[string]any{
		"risk_flags":      v.RiskFlags,
		"primary_intent":  v.PrimaryIntent,
		"product_line":    v.ProductLine,
		"urgency":         v.Urgency,
		"identity_status": v.IdentityStatus,
	}
}

// SafetyRule is one operator-authored override condition: when
// Expression evaluates true against a run's SafetyPolicyVars,
// SafetyPolicy.Evaluate returns Flag. routing.Evaluate does not call
// SafetyPolicy; a returned flag takes part in the canonical
// hard-override precedence only once it is in Input.RiskFlags, the
// same way a prescan-detected risk flag does.
type SafetyRule struct {
	RuleID     string
	Expression string
	Flag       registry.RiskFlag
}

// SafetyPolicy is a compiled, cached set of SafetyRule expressions.
// Evaluation never mutates routing's fixed precedence order — it only
// ever adds risk flags to the input the canonical table already
// understands, so a misconfigured custom rule can widen a review
// routing decision but can never bypass one.
type SafetyPolicy struct {
	env   *cel.Env
	mu    sync.RWMutex
	rules []compiledRule
}

type compiledRule struct {
	rule SafetyRule
	prg  cel.Program
}

// NewSafetyPolicy compiles rules against a fixed CEL environment. A
// malformed expression fails the whole load closed: a policy file
// with one bad rule must not silently run with the rest.
func NewSafetyPolicy(rules []SafetyRule) (*SafetyPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("risk_flags", cel.ListType(cel.StringType)),
		cel.Variable("primary_intent", cel.StringType),
		cel.Variable("product_line", cel.StringType),
		cel.Variable("urgency", cel.StringType),
		cel.Variable("identity_status", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("routing: safety policy environment: %w", err)
	}

	p := &SafetyPolicy{env: env}
	for _, r := range rules {
		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("routing: safety rule %s: compile: %w", r.RuleID, issues.Err())
		}
		prg, err := env.Program(ast, cel.InterruptCheckFrequency(100), cel.CostLimit(10000))
		if err != nil {
			return nil, fmt.Errorf("routing: safety rule %s: program: %w", r.RuleID, err)
		}
		p.rules = append(p.rules, compiledRule{rule: r, prg: prg})
	}
	return p, nil
}

// Evaluate runs every compiled rule against vars and returns the risk
// flags whose predicate matched, in rule-definition order. A rule
// whose expression does not evaluate to a bool, or that exceeds its
// cost limit, is treated as non-matching rather than aborting the
// whole evaluation — a buggy custom rule degrades to a no-op, not a
// fail-closed processing halt, since the canonical table in routing.go
// already carries the system's actual safety guarantees.
func (p *SafetyPolicy) Evaluate(vars SafetyPolicyVars) []registry.RiskFlag {
	p.mu.RLock()
	defer p.mu.RUnlock()

	input := vars.toCELInput()
	var matched []registry.RiskFlag
	for _, cr := range p.rules {
		out, _, err := cr.prg.Eval(input)
		if err != nil {
			continue
		}
		if b, ok := out.Value().(bool); ok && b {
			matched = append(matched, cr.rule.Flag)
		}
	}
	return matched
}
