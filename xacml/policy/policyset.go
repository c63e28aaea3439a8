package policy

import (
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/combining"
	"github.com/CameronXie/xacml-engine/xacml/decision"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
)

// PolicySet combines policies, nested policy sets, and references through a
// policy-combining algorithm behind a target.
type PolicySet struct {
	id             string
	version        string
	description    string
	target         *Target
	algorithm      combining.Algorithm
	children       []combining.Element
	obligationExps []ObligationExpression
	adviceExps     []AdviceExpression
}

// PolicySetOption configures a PolicySet.
type PolicySetOption func(*PolicySet)

// WithPolicySetTarget sets the policy set's target.
func WithPolicySetTarget(target *Target) PolicySetOption {
	return func(ps *PolicySet) {
		ps.target = target
	}
}

// WithPolicySetObligations appends obligation declarations.
func WithPolicySetObligations(exps ...ObligationExpression) PolicySetOption {
	return func(ps *PolicySet) {
		ps.obligationExps = append(ps.obligationExps, exps...)
	}
}

// WithPolicySetAdvice appends advice declarations.
func WithPolicySetAdvice(exps ...AdviceExpression) PolicySetOption {
	return func(ps *PolicySet) {
		ps.adviceExps = append(ps.adviceExps, exps...)
	}
}

// WithPolicySetDescription sets a human-readable description.
func WithPolicySetDescription(description string) PolicySetOption {
	return func(ps *PolicySet) {
		ps.description = description
	}
}

// NewPolicySet builds a policy set from its children and policy-combining
// algorithm identifier. Children are inline policies or policy sets, or
// references resolved through a provider.
func NewPolicySet(id, version, algorithmID string, children []combining.Element, options ...PolicySetOption) (*PolicySet, error) {
	algorithm, err := combining.PolicyAlgorithm(algorithmID)
	if err != nil {
		return nil, fmt.Errorf("policy set %s: %w", id, err)
	}

	ps := &PolicySet{id: id, version: version, algorithm: algorithm, children: children}
	for _, option := range options {
		option(ps)
	}
	return ps, nil
}

// ID returns the policy set identifier.
func (ps *PolicySet) ID() string { return ps.id }

// Version returns the policy set version.
func (ps *PolicySet) Version() string { return ps.version }

// IsApplicable evaluates only the policy set's target.
func (ps *PolicySet) IsApplicable(ctx *evalctx.Context) (bool, error) {
	return ps.target.Match(ctx)
}

// Evaluate matches the target, combines the children, and applies the
// policy set's own obligation and advice declarations.
func (ps *PolicySet) Evaluate(ctx *evalctx.Context) decision.Result {
	matched, err := ps.target.Match(ctx)
	if err != nil {
		return decision.NewIndeterminate(decision.IndeterminateDP, err)
	}
	if !matched {
		return decision.NewResult(decision.NotApplicable)
	}

	combined := ps.algorithm.Combine(ctx, ps.children)
	combined = applyOwnObligations(ctx, combined, ps.obligationExps, ps.adviceExps)
	return recordApplicable(ctx, combined,
		decision.PolicyRef{ID: ps.id, Version: ps.version, PolicySet: true})
}
