package combining

import (
	"github.com/CameronXie/xacml-engine/xacml/decision"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/status"
)

// overrides implements deny-overrides and permit-overrides (and their
// ordered variants, which differ only in that reordering is forbidden;
// children are always evaluated in document order here) per the XACML 3.0
// §7.18 decision tables.
type overrides struct {
	id     string
	winner decision.Decision
}

func (a *overrides) ID() string { return a.id }

func (a *overrides) Combine(ctx *evalctx.Context, elements []Element) decision.Result {
	loser := decision.Permit
	indWinner, indLoser := decision.IndeterminateD, decision.IndeterminateP
	if a.winner == decision.Permit {
		loser = decision.Deny
		indWinner, indLoser = decision.IndeterminateP, decision.IndeterminateD
	}

	children := make([]decision.Result, 0, len(elements))
	var anyWinner, anyLoser, anyIndWinner, anyIndLoser, anyIndDP bool
	for _, element := range elements {
		child := element.Evaluate(ctx)
		children = append(children, child)

		switch child.Decision {
		case a.winner:
			anyWinner = true
		case loser:
			anyLoser = true
		case indWinner:
			anyIndWinner = true
		case indLoser:
			anyIndLoser = true
		case decision.IndeterminateDP:
			anyIndDP = true
		}
	}

	var combined decision.Decision
	var st decision.Status
	switch {
	case anyWinner:
		combined, st = a.winner, decision.StatusOK
	case anyIndDP:
		combined, st = decision.IndeterminateDP, firstIndeterminateStatus(children)
	case anyIndWinner && (anyIndLoser || anyLoser):
		combined, st = decision.IndeterminateDP, firstIndeterminateStatus(children)
	case anyIndWinner:
		combined, st = indWinner, firstIndeterminateStatus(children)
	case anyLoser:
		combined, st = loser, decision.StatusOK
	case anyIndLoser:
		combined, st = indLoser, firstIndeterminateStatus(children)
	default:
		combined, st = decision.NotApplicable, decision.StatusOK
	}

	obligations, advice, refs := aggregate(combined, children)
	return decision.Result{
		Decision:           combined,
		Status:             st,
		Obligations:        obligations,
		Advice:             advice,
		ApplicablePolicies: refs,
	}
}

// firstApplicable returns the result of the first child that is not
// NotApplicable, including Indeterminate ones.
type firstApplicable struct {
	id string
}

func (a *firstApplicable) ID() string { return a.id }

func (a *firstApplicable) Combine(ctx *evalctx.Context, elements []Element) decision.Result {
	var refs []decision.PolicyRef
	for _, element := range elements {
		child := element.Evaluate(ctx)
		if child.Decision == decision.NotApplicable {
			refs = append(refs, child.ApplicablePolicies...)
			continue
		}

		child.ApplicablePolicies = append(refs, child.ApplicablePolicies...)
		return child
	}
	return decision.Result{Decision: decision.NotApplicable, Status: decision.StatusOK, ApplicablePolicies: refs}
}

// onlyOneApplicable checks each child's applicability by target only. With
// zero applicable children the result is NotApplicable; with more than one
// it is an Indeterminate processing error; with exactly one, that child's
// full evaluation is the result.
type onlyOneApplicable struct {
	id string
}

func (a *onlyOneApplicable) ID() string { return a.id }

func (a *onlyOneApplicable) Combine(ctx *evalctx.Context, elements []Element) decision.Result {
	var selected Element
	for _, element := range elements {
		applicable, err := element.IsApplicable(ctx)
		if err != nil {
			return decision.NewIndeterminate(decision.IndeterminateDP, err)
		}
		if !applicable {
			continue
		}

		if selected != nil {
			return decision.NewIndeterminate(decision.IndeterminateDP,
				status.NewProcessingError("Too many (more than one) applicable policies for algorithm: %s", a.id))
		}
		selected = element
	}

	if selected == nil {
		return decision.Result{Decision: decision.NotApplicable, Status: decision.StatusOK}
	}
	return selected.Evaluate(ctx)
}

// unlessAlgorithm implements deny-unless-permit and permit-unless-deny:
// any child returning the winning decision wins, every other outcome is
// coerced to the fallback. Neither NotApplicable nor Indeterminate can
// escape.
type unlessAlgorithm struct {
	id       string
	winner   decision.Decision
	fallback decision.Decision
}

func (a *unlessAlgorithm) ID() string { return a.id }

func (a *unlessAlgorithm) Combine(ctx *evalctx.Context, elements []Element) decision.Result {
	children := make([]decision.Result, 0, len(elements))
	anyWinner := false
	for _, element := range elements {
		child := element.Evaluate(ctx)
		children = append(children, child)
		if child.Decision == a.winner {
			anyWinner = true
		}
	}

	combined := a.fallback
	if anyWinner {
		combined = a.winner
	}

	obligations, advice, refs := aggregate(combined, children)
	return decision.Result{
		Decision:           combined,
		Status:             decision.StatusOK,
		Obligations:        obligations,
		Advice:             advice,
		ApplicablePolicies: refs,
	}
}
