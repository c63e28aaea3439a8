// Package attributeprovider ships attribute providers for the evaluation
// context's resolution chain: fixture-backed static attributes and a
// provider deriving subject attributes from verified JWT claims.
package attributeprovider

import (
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

type staticKey struct {
	category, id, datatype string
}

// Static resolves attributes from a fixed in-memory table. It is primarily
// useful for tests and bootstrapping deployments without external PIPs.
type Static struct {
	bags map[staticKey]*value.Bag
}

// NewStatic creates an empty static provider.
func NewStatic() *Static {
	return &Static{bags: make(map[staticKey]*value.Bag)}
}

// Add registers values for an attribute, parsing them as the given datatype.
func (s *Static) Add(category, attributeID, datatype string, lexicals ...string) error {
	values := make([]value.AttributeValue, 0, len(lexicals))
	for _, lexical := range lexicals {
		av, err := value.Parse(datatype, lexical)
		if err != nil {
			return fmt.Errorf("static attribute %s: %w", attributeID, err)
		}
		values = append(values, av)
	}

	bag, err := value.NewBag(datatype, values...)
	if err != nil {
		return err
	}
	s.bags[staticKey{category: category, id: attributeID, datatype: datatype}] = bag
	return nil
}

// Supports implements evalctx.AttributeProvider.
func (s *Static) Supports(category, attributeID, datatype string) bool {
	_, ok := s.bags[staticKey{category: category, id: attributeID, datatype: datatype}]
	return ok
}

// Find implements evalctx.AttributeProvider. Static attributes carry no
// issuer, so a lookup constrained to an issuer resolves to the empty bag.
func (s *Static) Find(_ *evalctx.Context, category, attributeID, datatype, issuer string) (*value.Bag, error) {
	if issuer != "" {
		return value.EmptyBag(datatype), nil
	}

	bag, ok := s.bags[staticKey{category: category, id: attributeID, datatype: datatype}]
	if !ok {
		return value.EmptyBag(datatype), nil
	}
	return bag, nil
}
