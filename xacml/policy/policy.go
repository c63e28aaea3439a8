package policy

import (
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/combining"
	"github.com/CameronXie/xacml-engine/xacml/decision"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
)

// Policy combines rules through a rule-combining algorithm behind a target,
// with a per-evaluation variable memoisation scope.
type Policy struct {
	id                 string
	version            string
	description        string
	target             *Target
	algorithm          combining.Algorithm
	rules              []*Rule
	variables          map[string]VariableDefinition
	obligationExps     []ObligationExpression
	adviceExps         []AdviceExpression
	maxDelegationDepth int
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy) error

// WithPolicyTarget sets the policy's target.
func WithPolicyTarget(target *Target) PolicyOption {
	return func(p *Policy) error {
		p.target = target
		return nil
	}
}

// WithVariables declares the policy's variable definitions.
func WithVariables(defs ...VariableDefinition) PolicyOption {
	return func(p *Policy) error {
		byID, err := resolveVariables(defs)
		if err != nil {
			return err
		}
		p.variables = byID
		return nil
	}
}

// WithPolicyObligations appends obligation declarations.
func WithPolicyObligations(exps ...ObligationExpression) PolicyOption {
	return func(p *Policy) error {
		p.obligationExps = append(p.obligationExps, exps...)
		return nil
	}
}

// WithPolicyAdvice appends advice declarations.
func WithPolicyAdvice(exps ...AdviceExpression) PolicyOption {
	return func(p *Policy) error {
		p.adviceExps = append(p.adviceExps, exps...)
		return nil
	}
}

// WithPolicyDescription sets a human-readable description.
func WithPolicyDescription(description string) PolicyOption {
	return func(p *Policy) error {
		p.description = description
		return nil
	}
}

// WithMaxDelegationDepth records the administrative delegation depth. The
// value is stored only; evaluation neither reads nor enforces it.
func WithMaxDelegationDepth(depth int) PolicyOption {
	return func(p *Policy) error {
		p.maxDelegationDepth = depth
		return nil
	}
}

// NewPolicy builds a policy from its rules and rule-combining algorithm
// identifier.
func NewPolicy(id, version, algorithmID string, rules []*Rule, options ...PolicyOption) (*Policy, error) {
	algorithm, err := combining.RuleAlgorithm(algorithmID)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", id, err)
	}

	p := &Policy{id: id, version: version, algorithm: algorithm, rules: rules}
	for _, option := range options {
		if err := option(p); err != nil {
			return nil, fmt.Errorf("policy %s: %w", id, err)
		}
	}
	return p, nil
}

// ID returns the policy identifier.
func (p *Policy) ID() string { return p.id }

// Version returns the policy version.
func (p *Policy) Version() string { return p.version }

// Variable returns the definition for a variable identifier.
func (p *Policy) Variable(id string) (VariableDefinition, bool) {
	def, ok := p.variables[id]
	return def, ok
}

// IsApplicable evaluates only the policy's target.
func (p *Policy) IsApplicable(ctx *evalctx.Context) (bool, error) {
	return p.target.Match(ctx)
}

// Evaluate matches the target, combines the rules, and applies the policy's
// own obligation and advice declarations to the combined decision.
func (p *Policy) Evaluate(ctx *evalctx.Context) decision.Result {
	matched, err := p.target.Match(ctx)
	if err != nil {
		return decision.NewIndeterminate(decision.IndeterminateDP, err)
	}
	if !matched {
		return decision.NewResult(decision.NotApplicable)
	}

	restore := ctx.PushVariableScope()
	defer restore()

	elements := make([]combining.Element, len(p.rules))
	for i, rule := range p.rules {
		elements[i] = rule
	}
	combined := p.algorithm.Combine(ctx, elements)

	combined = applyOwnObligations(ctx, combined, p.obligationExps, p.adviceExps)
	return recordApplicable(ctx, combined, decision.PolicyRef{ID: p.id, Version: p.version})
}

// applyOwnObligations prepends the combining element's own obligations and
// advice matching the combined decision. A failure evaluating them lifts the
// result to the Indeterminate flavour of that decision.
func applyOwnObligations(ctx *evalctx.Context, combined decision.Result,
	obligationExps []ObligationExpression, adviceExps []AdviceExpression) decision.Result {
	var effect Effect
	switch combined.Decision {
	case decision.Permit:
		effect = EffectPermit
	case decision.Deny:
		effect = EffectDeny
	default:
		return combined
	}

	obligations, err := evaluateObligations(ctx, obligationExps, effect)
	if err != nil {
		return decision.NewIndeterminate(effect.indeterminate(), err)
	}
	advice, err := evaluateAdvice(ctx, adviceExps, effect)
	if err != nil {
		return decision.NewIndeterminate(effect.indeterminate(), err)
	}

	combined.Obligations = append(obligations, combined.Obligations...)
	combined.Advice = append(advice, combined.Advice...)
	return combined
}

// recordApplicable prepends the element's own reference to the result's
// applicable-policy list when tracking is on and the element applied.
func recordApplicable(ctx *evalctx.Context, combined decision.Result, ref decision.PolicyRef) decision.Result {
	if !ctx.TrackPolicyIDs() || combined.Decision == decision.NotApplicable {
		return combined
	}
	combined.ApplicablePolicies = append([]decision.PolicyRef{ref}, combined.ApplicablePolicies...)
	return combined
}
