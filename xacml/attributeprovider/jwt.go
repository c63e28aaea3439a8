package attributeprovider

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/request"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// DefaultTokenAttributeID is the subject attribute the JWT provider reads
// the bearer token from. It is not a standard XACML identifier; deployments
// putting the token elsewhere configure WithTokenAttribute.
const DefaultTokenAttributeID = "urn:oasis:names:tc:xacml:1.0:subject:authn-token"

// ClaimMapping maps one JWT claim to an attribute.
type ClaimMapping struct {
	Claim       string
	Category    string
	AttributeID string
	Datatype    string
}

// JWT derives attributes from the claims of a signed token carried in the
// request, verified with the configured key function. Resolution is cached
// by the evaluation context, so the token is parsed at most once per
// request per attribute.
type JWT struct {
	keyfunc          jwt.Keyfunc
	parser           *jwt.Parser
	tokenCategory    string
	tokenAttributeID string
	mappings         []ClaimMapping
}

// JWTOption configures a JWT provider.
type JWTOption func(*JWT)

// WithTokenAttribute sets where the provider reads the token string from.
func WithTokenAttribute(category, attributeID string) JWTOption {
	return func(p *JWT) {
		p.tokenCategory = category
		p.tokenAttributeID = attributeID
	}
}

// WithSigningMethods restricts the accepted token signing algorithms.
func WithSigningMethods(methods ...string) JWTOption {
	return func(p *JWT) {
		p.parser = jwt.NewParser(jwt.WithValidMethods(methods))
	}
}

// NewJWT creates a provider resolving the mapped claims with tokens
// verified through keyfunc.
func NewJWT(keyfunc jwt.Keyfunc, mappings []ClaimMapping, options ...JWTOption) *JWT {
	p := &JWT{
		keyfunc:          keyfunc,
		parser:           jwt.NewParser(),
		tokenCategory:    request.CategorySubjectAccess,
		tokenAttributeID: DefaultTokenAttributeID,
		mappings:         mappings,
	}

	for _, option := range options {
		option(p)
	}
	return p
}

// Supports implements evalctx.AttributeProvider.
func (p *JWT) Supports(category, attributeID, datatype string) bool {
	return p.mapping(category, attributeID, datatype) != nil
}

func (p *JWT) mapping(category, attributeID, datatype string) *ClaimMapping {
	for i := range p.mappings {
		m := &p.mappings[i]
		if m.Category == category && m.AttributeID == attributeID && m.Datatype == datatype {
			return m
		}
	}
	return nil
}

// Find implements evalctx.AttributeProvider: it reads the token attribute
// from the context, verifies it, and projects the mapped claim into a bag of
// the requested datatype. A request without a token resolves to the empty
// bag; an invalid token is an evaluation failure.
func (p *JWT) Find(ctx *evalctx.Context, category, attributeID, datatype, _ string) (*value.Bag, error) {
	m := p.mapping(category, attributeID, datatype)
	if m == nil {
		return value.EmptyBag(datatype), nil
	}

	tokenBag, err := ctx.Attributes(p.tokenCategory, p.tokenAttributeID, value.TypeString, "")
	if err != nil {
		return nil, err
	}
	if tokenBag.Size() == 0 {
		return value.EmptyBag(datatype), nil
	}

	raw, err := tokenBag.Single()
	if err != nil {
		return nil, fmt.Errorf("expected a single token attribute: %w", err)
	}

	claims := jwt.MapClaims{}
	if _, err := p.parser.ParseWithClaims(raw.Lexical(), claims, p.keyfunc); err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	claim, ok := claims[m.Claim]
	if !ok {
		return value.EmptyBag(datatype), nil
	}
	return claimToBag(claim, datatype)
}

// claimToBag converts a claim value, which may be a scalar or a list, into a
// bag of the requested datatype.
func claimToBag(claim any, datatype string) (*value.Bag, error) {
	items := []any{claim}
	if list, ok := claim.([]any); ok {
		items = list
	}

	values := make([]value.AttributeValue, 0, len(items))
	for _, item := range items {
		lexical, ok := claimLexical(item)
		if !ok {
			return nil, fmt.Errorf("claim value %v cannot be converted to %s", item, datatype)
		}

		av, err := value.Parse(datatype, lexical)
		if err != nil {
			return nil, err
		}
		values = append(values, av)
	}
	return value.NewBag(datatype, values...)
}

func claimLexical(item any) (string, bool) {
	switch v := item.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'g', -1, 64), true
	default:
		return "", false
	}
}
