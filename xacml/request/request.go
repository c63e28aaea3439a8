// Package request defines the parsed decision request and response data
// model the engine consumes and produces. Marshalling from and to the XACML
// XML or JSON wire representations is the caller's concern.
package request

import (
	"time"

	"github.com/google/uuid"

	"github.com/CameronXie/xacml-engine/xacml/decision"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
)

// Standard attribute category identifiers.
const (
	CategorySubjectAccess = "urn:oasis:names:tc:xacml:1.0:subject-category:access-subject"
	CategoryResource      = "urn:oasis:names:tc:xacml:3.0:attribute-category:resource"
	CategoryAction        = "urn:oasis:names:tc:xacml:3.0:attribute-category:action"
	CategoryEnvironment   = evalctx.CategoryEnvironment
)

// Well-known resource attribute identifiers recognised for profile support.
const (
	AttributeResourceID    = "urn:oasis:names:tc:xacml:1.0:resource:resource-id"
	AttributeResourceScope = "urn:oasis:names:tc:xacml:1.0:resource:scope"
)

// ResourceScope values. Scopes other than Immediate address resource
// hierarchies and must be expanded into individual requests by the caller.
const (
	ScopeImmediate   = "Immediate"
	ScopeChildren    = "Children"
	ScopeDescendants = "Descendants"
)

// AttributeValue is one value of a request attribute in lexical form,
// accompanied by its datatype.
type AttributeValue struct {
	Datatype string `json:"dataType"`
	Value    string `json:"value"`
}

// Attribute is a named, optionally issued attribute with one or more values.
// With IncludeInResult set, the attribute is echoed in the result.
type Attribute struct {
	ID              string           `json:"attributeId"`
	Issuer          string           `json:"issuer,omitempty"`
	IncludeInResult bool             `json:"includeInResult,omitempty"`
	Values          []AttributeValue `json:"values"`
}

// Category groups the attributes describing one facet of the request:
// subject, resource, action, environment, or a custom category. Content
// carries optional structured data addressed by attribute selectors.
type Category struct {
	ID         string      `json:"category"`
	Content    any         `json:"content,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Request is one individual decision request.
type Request struct {
	ID                 uuid.UUID  `json:"requestId"`
	ReturnPolicyIDList bool       `json:"returnPolicyIdList,omitempty"`
	Categories         []Category `json:"categories"`
}

// ResourceScope extracts the request's resource-scope value, defaulting to
// Immediate.
func (r *Request) ResourceScope() string {
	for _, category := range r.Categories {
		if category.ID != CategoryResource {
			continue
		}
		for _, attribute := range category.Attributes {
			if attribute.ID != AttributeResourceScope {
				continue
			}
			for _, v := range attribute.Values {
				return v.Value
			}
		}
	}
	return ScopeImmediate
}

// Status describes the outcome of the decision process in the response.
type Status struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Result is the outcome of one individual decision request.
type Result struct {
	RequestID          uuid.UUID             `json:"requestId"`
	Decision           string                `json:"decision"`
	Status             Status                `json:"status"`
	Obligations        []decision.Obligation `json:"obligations,omitempty"`
	Advice             []decision.Advice     `json:"advice,omitempty"`
	ApplicablePolicies []decision.PolicyRef  `json:"policyIdReferences,omitempty"`
	UsedAttributes     []evalctx.AttributeID `json:"usedAttributes,omitempty"`
	Attributes         []Category            `json:"attributes,omitempty"`
	EvaluatedAt        time.Time             `json:"evaluatedAt"`
}

// Response carries one Result per individual decision request.
type Response struct {
	Results []Result `json:"results"`
}

// IncludedAttributes returns the request categories reduced to the
// attributes marked includeInResult, for echoing in the result.
func (r *Request) IncludedAttributes() []Category {
	var categories []Category
	for _, category := range r.Categories {
		var attrs []Attribute
		for _, attribute := range category.Attributes {
			if attribute.IncludeInResult {
				attrs = append(attrs, attribute)
			}
		}
		if len(attrs) > 0 {
			categories = append(categories, Category{ID: category.ID, Attributes: attrs})
		}
	}
	return categories
}
