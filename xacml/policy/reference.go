package policy

import (
	"github.com/CameronXie/xacml-engine/xacml/combining"
	"github.com/CameronXie/xacml-engine/xacml/decision"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/status"
)

// ReferenceResolver resolves policy and policy set references against a
// policy store. Resolvers must return nil, nil when no stored version
// satisfies the constraints.
type ReferenceResolver interface {
	ResolvePolicy(id string, constraints VersionConstraints) (*Policy, error)
	ResolvePolicySet(id string, constraints VersionConstraints) (*PolicySet, error)
}

// PolicyReference is a policy-set child resolved through a provider at
// evaluation time. An unresolvable reference is an Indeterminate processing
// error; reference cycles are detected per evaluation.
type PolicyReference struct {
	id          string
	constraints VersionConstraints
	resolver    ReferenceResolver
}

// NewPolicyReference builds a reference to a policy.
func NewPolicyReference(id string, constraints VersionConstraints, resolver ReferenceResolver) *PolicyReference {
	return &PolicyReference{id: id, constraints: constraints, resolver: resolver}
}

// ID returns the referenced policy identifier.
func (r *PolicyReference) ID() string { return r.id }

func (r *PolicyReference) resolve(ctx *evalctx.Context) (*Policy, error) {
	if err := ctx.EnterReference(r.id); err != nil {
		return nil, err
	}

	p, err := r.resolver.ResolvePolicy(r.id, r.constraints)
	if err != nil {
		ctx.LeaveReference(r.id)
		return nil, status.Wrap(err, status.CodeProcessingError, "cannot resolve policy reference %q", r.id)
	}
	if p == nil {
		ctx.LeaveReference(r.id)
		return nil, status.NewProcessingError("unresolvable policy reference %q", r.id)
	}
	return p, nil
}

// Evaluate resolves and evaluates the referenced policy.
func (r *PolicyReference) Evaluate(ctx *evalctx.Context) decision.Result {
	p, err := r.resolve(ctx)
	if err != nil {
		return decision.NewIndeterminate(decision.IndeterminateDP, err)
	}
	defer ctx.LeaveReference(r.id)
	return p.Evaluate(ctx)
}

// IsApplicable resolves the referenced policy and evaluates its target.
func (r *PolicyReference) IsApplicable(ctx *evalctx.Context) (bool, error) {
	p, err := r.resolve(ctx)
	if err != nil {
		return false, err
	}
	defer ctx.LeaveReference(r.id)
	return p.IsApplicable(ctx)
}

// PolicySetReference is the policy-set counterpart of PolicyReference.
type PolicySetReference struct {
	id          string
	constraints VersionConstraints
	resolver    ReferenceResolver
}

// NewPolicySetReference builds a reference to a policy set.
func NewPolicySetReference(id string, constraints VersionConstraints, resolver ReferenceResolver) *PolicySetReference {
	return &PolicySetReference{id: id, constraints: constraints, resolver: resolver}
}

// ID returns the referenced policy set identifier.
func (r *PolicySetReference) ID() string { return r.id }

func (r *PolicySetReference) resolve(ctx *evalctx.Context) (*PolicySet, error) {
	if err := ctx.EnterReference(r.id); err != nil {
		return nil, err
	}

	ps, err := r.resolver.ResolvePolicySet(r.id, r.constraints)
	if err != nil {
		ctx.LeaveReference(r.id)
		return nil, status.Wrap(err, status.CodeProcessingError, "cannot resolve policy set reference %q", r.id)
	}
	if ps == nil {
		ctx.LeaveReference(r.id)
		return nil, status.NewProcessingError("unresolvable policy set reference %q", r.id)
	}
	return ps, nil
}

// Evaluate resolves and evaluates the referenced policy set.
func (r *PolicySetReference) Evaluate(ctx *evalctx.Context) decision.Result {
	ps, err := r.resolve(ctx)
	if err != nil {
		return decision.NewIndeterminate(decision.IndeterminateDP, err)
	}
	defer ctx.LeaveReference(r.id)
	return ps.Evaluate(ctx)
}

// IsApplicable resolves the referenced policy set and evaluates its target.
func (r *PolicySetReference) IsApplicable(ctx *evalctx.Context) (bool, error) {
	ps, err := r.resolve(ctx)
	if err != nil {
		return false, err
	}
	defer ctx.LeaveReference(r.id)
	return ps.IsApplicable(ctx)
}

var (
	_ combining.Element = (*Rule)(nil)
	_ combining.Element = (*Policy)(nil)
	_ combining.Element = (*PolicySet)(nil)
	_ combining.Element = (*PolicyReference)(nil)
	_ combining.Element = (*PolicySetReference)(nil)
)
