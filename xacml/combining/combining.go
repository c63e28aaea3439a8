// Package combining implements the XACML 3.0 rule- and policy-combining
// algorithms: pure reductions from child decisions to a parent decision,
// aggregating obligations and advice from the children that agree with the
// combined outcome.
package combining

import (
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/decision"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
)

// Standard combining algorithm identifier prefixes.
const (
	rule30   = "urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:"
	policy30 = "urn:oasis:names:tc:xacml:3.0:policy-combining-algorithm:"
	rule10   = "urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:"
	policy10 = "urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:"
)

// Element is a combinable child: a rule, a policy, a policy set, or a
// reference to one.
type Element interface {
	// Evaluate fully evaluates the element.
	Evaluate(ctx *evalctx.Context) decision.Result

	// IsApplicable evaluates only the element's target.
	IsApplicable(ctx *evalctx.Context) (bool, error)
}

// Algorithm reduces the decisions of a list of child elements to one
// combined decision. Children are evaluated in document order; the decision
// value is independent of that order for the unordered algorithms.
type Algorithm interface {
	ID() string
	Combine(ctx *evalctx.Context, elements []Element) decision.Result
}

var (
	ruleAlgorithms   = make(map[string]Algorithm)
	policyAlgorithms = make(map[string]Algorithm)
)

func init() {
	for _, prefix := range []string{rule30, policy30} {
		forRules := prefix == rule30
		registerAlgorithm(forRules,
			&overrides{id: prefix + "deny-overrides", winner: decision.Deny},
			&overrides{id: prefix + "ordered-deny-overrides", winner: decision.Deny},
			&overrides{id: prefix + "permit-overrides", winner: decision.Permit},
			&overrides{id: prefix + "ordered-permit-overrides", winner: decision.Permit},
			&unlessAlgorithm{id: prefix + "deny-unless-permit", winner: decision.Permit, fallback: decision.Deny},
			&unlessAlgorithm{id: prefix + "permit-unless-deny", winner: decision.Deny, fallback: decision.Permit},
		)
	}

	registerAlgorithm(true, &firstApplicable{id: rule10 + "first-applicable"})
	registerAlgorithm(false, &firstApplicable{id: policy10 + "first-applicable"})
	registerAlgorithm(false, &onlyOneApplicable{id: policy10 + "only-one-applicable"})
}

func registerAlgorithm(forRules bool, algs ...Algorithm) {
	for _, alg := range algs {
		if forRules {
			ruleAlgorithms[alg.ID()] = alg
		} else {
			policyAlgorithms[alg.ID()] = alg
		}
	}
}

// RuleAlgorithm resolves a rule-combining algorithm identifier.
func RuleAlgorithm(id string) (Algorithm, error) {
	alg, ok := ruleAlgorithms[id]
	if !ok {
		return nil, fmt.Errorf("unknown rule-combining algorithm %q", id)
	}
	return alg, nil
}

// PolicyAlgorithm resolves a policy-combining algorithm identifier.
func PolicyAlgorithm(id string) (Algorithm, error) {
	alg, ok := policyAlgorithms[id]
	if !ok {
		return nil, fmt.Errorf("unknown policy-combining algorithm %q", id)
	}
	return alg, nil
}

// aggregate collects obligations and advice, in evaluation order, from the
// children whose individual decision equals the combined decision, and the
// applicable-policy references from every evaluated child.
func aggregate(combined decision.Decision, children []decision.Result) (
	obligations []decision.Obligation, advice []decision.Advice, refs []decision.PolicyRef) {
	for _, child := range children {
		refs = append(refs, child.ApplicablePolicies...)
		if child.Decision != combined {
			continue
		}
		obligations = append(obligations, child.Obligations...)
		advice = append(advice, child.Advice...)
	}
	return obligations, advice, refs
}

// firstIndeterminateStatus returns the status of the first child with an
// Indeterminate decision.
func firstIndeterminateStatus(children []decision.Result) decision.Status {
	for _, child := range children {
		if child.Decision.Indeterminate() {
			return child.Status
		}
	}
	return decision.StatusOK
}
