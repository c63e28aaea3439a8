// Package evalctx implements the per-request evaluation context: the typed
// attribute store scoped by category, the attribute provider chain, the
// frozen environment clock, variable memoisation, and selector projection
// over structured content.
package evalctx

import (
	"log/slog"
	"time"

	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// Standard environment attribute identifiers issued by the PDP.
const (
	CategoryEnvironment = "urn:oasis:names:tc:xacml:3.0:attribute-category:environment"

	AttributeCurrentTime     = "urn:oasis:names:tc:xacml:1.0:environment:current-time"
	AttributeCurrentDate     = "urn:oasis:names:tc:xacml:1.0:environment:current-date"
	AttributeCurrentDateTime = "urn:oasis:names:tc:xacml:1.0:environment:current-dateTime"
)

// AttributeID identifies one attribute lookup: category, attribute
// identifier, datatype, and an optional issuer.
type AttributeID struct {
	Category string `json:"category"`
	ID       string `json:"attributeId"`
	Datatype string `json:"dataType"`
	Issuer   string `json:"issuer,omitempty"`
}

// AttributeProvider resolves attributes the request did not carry. Providers
// may perform blocking I/O; they are invoked synchronously and their results
// are cached in the context for the rest of the request.
type AttributeProvider interface {
	// Supports reports whether the provider can resolve the given
	// designator coordinates.
	Supports(category, attributeID, datatype string) bool

	// Find resolves the attribute. An empty bag is a valid result and is
	// cached like any other.
	Find(ctx *Context, category, attributeID, datatype, issuer string) (*value.Bag, error)
}

type attrKey struct {
	category, id string
}

type namedBag struct {
	issuer string
	bag    *value.Bag
}

type providerResult struct {
	bag *value.Bag
	err error
}

// VariableResult is the memoised outcome of evaluating a variable
// definition: a value or an Indeterminate error.
type VariableResult struct {
	Value value.Value
	Err   error
}

// Context is the per-request attribute store. It is created per individual
// decision request, mutated only by attribute resolution and memoisation,
// and discarded when the decision is returned. It is not safe for concurrent
// use; independent decisions use independent contexts.
type Context struct {
	attrs         map[attrKey][]namedBag
	content       map[string]any
	providers     []AttributeProvider
	providerCache map[AttributeID]providerResult

	clock     func() time.Time
	cacheEnv  bool
	frozen    time.Time
	frozenSet bool

	variables map[string]VariableResult

	trackUsed bool
	usedSeen  map[AttributeID]bool
	used      []AttributeID

	trackPolicyIDs bool

	activeRefs map[string]bool

	logger *slog.Logger
}

// Option configures a Context.
type Option func(*Context)

// WithProviders appends attribute providers to the resolution chain, in
// order.
func WithProviders(providers ...AttributeProvider) Option {
	return func(c *Context) {
		c.providers = append(c.providers, providers...)
	}
}

// WithContent attaches structured content for a category, used by attribute
// selectors.
func WithContent(category string, content any) Option {
	return func(c *Context) {
		c.content[category] = content
	}
}

// WithClock replaces the source of the environment clock.
func WithClock(clock func() time.Time) Option {
	return func(c *Context) {
		c.clock = clock
	}
}

// WithCacheEnvValues controls whether the environment clock freezes on first
// observation. It defaults to true; turning it off makes repeated
// current-time reads within one request observe real time.
func WithCacheEnvValues(cache bool) Option {
	return func(c *Context) {
		c.cacheEnv = cache
	}
}

// WithUsedAttributeTracking records every attribute consulted during
// evaluation for inclusion in the result.
func WithUsedAttributeTracking(track bool) Option {
	return func(c *Context) {
		c.trackUsed = track
	}
}

// WithPolicyIDTracking records the identifiers of applicable policies for
// inclusion in the result.
func WithPolicyIDTracking(track bool) Option {
	return func(c *Context) {
		c.trackPolicyIDs = track
	}
}

// WithLogger attaches a logger used for debug-level diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// New creates an empty evaluation context.
func New(options ...Option) *Context {
	c := &Context{
		attrs:         make(map[attrKey][]namedBag),
		content:       make(map[string]any),
		providerCache: make(map[AttributeID]providerResult),
		variables:     make(map[string]VariableResult),
		usedSeen:      make(map[AttributeID]bool),
		activeRefs:    make(map[string]bool),
		clock:         time.Now,
		cacheEnv:      true,
	}

	for _, option := range options {
		option(c)
	}
	return c
}

// AddAttribute seeds the context with a named attribute bag. Bags added for
// the same coordinates accumulate as separate issuer entries.
func (c *Context) AddAttribute(category, attributeID, issuer string, bag *value.Bag) {
	key := attrKey{category: category, id: attributeID}
	c.attrs[key] = append(c.attrs[key], namedBag{issuer: issuer, bag: bag})
}

// AddContent attaches structured content for a category after construction.
func (c *Context) AddContent(category string, content any) {
	c.content[category] = content
}

// Attributes resolves a designator: it consults the in-context store first,
// then the provider chain, and finally returns the empty bag of the
// requested datatype. Provider results, including failures, are cached so
// repeated lookups are deterministic within the request.
func (c *Context) Attributes(category, attributeID, datatype, issuer string) (*value.Bag, error) {
	c.markUsed(AttributeID{Category: category, ID: attributeID, Datatype: datatype, Issuer: issuer})

	c.synthesizeEnvironment(category, attributeID, datatype)

	if bag, found := c.lookup(category, attributeID, datatype, issuer); found {
		return bag, nil
	}
	return c.findThroughProviders(category, attributeID, datatype, issuer)
}

func (c *Context) lookup(category, attributeID, datatype, issuer string) (*value.Bag, bool) {
	entries, ok := c.attrs[attrKey{category: category, id: attributeID}]
	if !ok {
		return nil, false
	}

	found := false
	merged := value.EmptyBag(datatype)
	for _, entry := range entries {
		if entry.bag.Datatype() != datatype {
			continue
		}
		found = true
		if issuer != "" && entry.issuer != issuer {
			continue
		}

		m, err := merged.Merge(entry.bag)
		if err != nil {
			continue
		}
		merged = m
	}
	return merged, found
}

func (c *Context) findThroughProviders(category, attributeID, datatype, issuer string) (*value.Bag, error) {
	key := AttributeID{Category: category, ID: attributeID, Datatype: datatype, Issuer: issuer}
	if cached, ok := c.providerCache[key]; ok {
		return cached.bag, cached.err
	}

	for _, provider := range c.providers {
		if !provider.Supports(category, attributeID, datatype) {
			continue
		}

		bag, err := provider.Find(c, category, attributeID, datatype, issuer)
		if err != nil {
			err = status.From(err)
			if c.logger != nil {
				c.logger.Debug("attribute provider failed",
					slog.String("category", category),
					slog.String("attribute_id", attributeID),
					slog.String("error", err.Error()),
				)
			}
		}

		c.providerCache[key] = providerResult{bag: bag, err: err}
		return bag, err
	}

	empty := value.EmptyBag(datatype)
	c.providerCache[key] = providerResult{bag: empty}
	return empty, nil
}

// synthesizeEnvironment lazily materialises the PDP environment clock
// attributes when the request did not carry them.
func (c *Context) synthesizeEnvironment(category, attributeID, datatype string) {
	if category != CategoryEnvironment {
		return
	}

	var av value.AttributeValue
	switch {
	case attributeID == AttributeCurrentTime && datatype == value.TypeTime:
		av = value.NewTime(c.Now())
	case attributeID == AttributeCurrentDate && datatype == value.TypeDate:
		av = value.NewDate(c.Now())
	case attributeID == AttributeCurrentDateTime && datatype == value.TypeDateTime:
		av = value.NewDateTime(c.Now())
	default:
		return
	}

	key := attrKey{category: category, id: attributeID}
	for _, entry := range c.attrs[key] {
		if entry.bag.Datatype() == datatype {
			return
		}
	}
	c.attrs[key] = append(c.attrs[key], namedBag{bag: value.BagOf(av)})
}

// Now returns the request's notion of the current instant. With environment
// value caching enabled the clock freezes on first observation.
func (c *Context) Now() time.Time {
	if !c.cacheEnv {
		return c.clock()
	}
	if !c.frozenSet {
		c.frozen = c.clock().Truncate(time.Second)
		c.frozenSet = true
	}
	return c.frozen
}

// Variable returns the memoised result for a variable definition in the
// current policy scope.
func (c *Context) Variable(id string) (VariableResult, bool) {
	res, ok := c.variables[id]
	return res, ok
}

// SetVariable memoises the result of evaluating a variable definition.
func (c *Context) SetVariable(id string, res VariableResult) {
	c.variables[id] = res
}

// PushVariableScope opens a fresh variable memoisation scope for a policy
// evaluation and returns the function restoring the previous scope.
func (c *Context) PushVariableScope() func() {
	previous := c.variables
	c.variables = make(map[string]VariableResult)
	return func() { c.variables = previous }
}

// EnterReference guards against reference cycles while resolving a policy
// reference. It fails when the referenced id is already being evaluated.
func (c *Context) EnterReference(id string) error {
	if c.activeRefs[id] {
		return status.NewProcessingError("circular policy reference to %q", id)
	}
	c.activeRefs[id] = true
	return nil
}

// LeaveReference releases the cycle guard for id.
func (c *Context) LeaveReference(id string) {
	delete(c.activeRefs, id)
}

// TrackPolicyIDs reports whether applicable policy identifiers should be
// collected into the result.
func (c *Context) TrackPolicyIDs() bool { return c.trackPolicyIDs }

// UsedAttributes returns the attributes consulted so far, in first-use
// order. It is empty unless tracking was enabled.
func (c *Context) UsedAttributes() []AttributeID {
	return c.used
}

func (c *Context) markUsed(id AttributeID) {
	if !c.trackUsed || c.usedSeen[id] {
		return
	}
	c.usedSeen[id] = true
	c.used = append(c.used, id)
}
