package policyprovider

import (
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/combining"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/policy"
)

// MemStore keeps parsed policies and policy sets in memory, versioned by
// identifier. It serves both root lookup and reference resolution. The
// store is immutable once handed to a PDP.
type MemStore struct {
	policies   map[string][]*policy.Policy
	policySets map[string][]*policy.PolicySet
	root       combining.Element
	candidates []combining.Element
}

// NewMemStore creates an empty in-memory policy store.
func NewMemStore() *MemStore {
	return &MemStore{
		policies:   make(map[string][]*policy.Policy),
		policySets: make(map[string][]*policy.PolicySet),
	}
}

// AddPolicy registers a policy version.
func (m *MemStore) AddPolicy(p *policy.Policy) {
	m.policies[p.ID()] = append(m.policies[p.ID()], p)
}

// AddPolicySet registers a policy set version.
func (m *MemStore) AddPolicySet(ps *policy.PolicySet) {
	m.policySets[ps.ID()] = append(m.policySets[ps.ID()], ps)
}

// SetRoot pins the element returned by FindByTarget. Without a pinned root,
// FindByTarget scans the root candidates in registration order.
func (m *MemStore) SetRoot(element combining.Element) {
	m.root = element
}

// AddRootCandidate registers an element considered by FindByTarget when no
// root is pinned.
func (m *MemStore) AddRootCandidate(element combining.Element) {
	m.candidates = append(m.candidates, element)
}

// FindByTarget implements the PDP's policy provider contract: the pinned
// root when set, otherwise the first registered candidate whose target
// matches the request context.
func (m *MemStore) FindByTarget(ctx *evalctx.Context) (combining.Element, error) {
	if m.root != nil {
		return m.root, nil
	}

	for _, candidate := range m.candidates {
		applicable, err := candidate.IsApplicable(ctx)
		if err != nil {
			return nil, err
		}
		if applicable {
			return candidate, nil
		}
	}
	return nil, nil
}

// ResolvePolicy implements policy.ReferenceResolver, returning the highest
// registered version satisfying the constraints.
func (m *MemStore) ResolvePolicy(id string, constraints policy.VersionConstraints) (*policy.Policy, error) {
	var best *policy.Policy
	for _, candidate := range m.policies[id] {
		if !constraints.Match(candidate.Version()) {
			continue
		}
		if best == nil || policy.CompareVersions(candidate.Version(), best.Version()) > 0 {
			best = candidate
		}
	}
	return best, nil
}

// ResolvePolicySet implements policy.ReferenceResolver.
func (m *MemStore) ResolvePolicySet(id string, constraints policy.VersionConstraints) (*policy.PolicySet, error) {
	var best *policy.PolicySet
	for _, candidate := range m.policySets[id] {
		if !constraints.Match(candidate.Version()) {
			continue
		}
		if best == nil || policy.CompareVersions(candidate.Version(), best.Version()) > 0 {
			best = candidate
		}
	}
	return best, nil
}

// LoadDocument decodes a JSON policy document and registers it, wiring its
// references back to this store.
func (m *MemStore) LoadDocument(data []byte) (combining.Element, error) {
	element, err := DecodeDocument(data, m)
	if err != nil {
		return nil, err
	}

	switch e := element.(type) {
	case *policy.Policy:
		m.AddPolicy(e)
	case *policy.PolicySet:
		m.AddPolicySet(e)
	default:
		return nil, fmt.Errorf("unexpected document element %T", element)
	}
	return element, nil
}
