// Package pdp implements the policy decision point entry: it turns an
// individual decision request into an evaluation context, locates the root
// policy, and assembles the decision response.
package pdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CameronXie/xacml-engine/xacml/combining"
	"github.com/CameronXie/xacml-engine/xacml/decision"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/request"
	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// PolicyProvider locates the root policy or policy set for a request
// context. Returning nil, nil means no policy applies.
type PolicyProvider interface {
	FindByTarget(ctx *evalctx.Context) (combining.Element, error)
}

// PDP is the policy decision point. It is immutable after construction and
// safe for concurrent use; each decision evaluates on its own context.
type PDP struct {
	provider            PolicyProvider
	attributeProviders  []evalctx.AttributeProvider
	envOverridesRequest bool
	cacheEnvValues      bool
	returnUsedAttrs     bool
	clock               func() time.Time
	logger              *slog.Logger
}

// Option defines configuration options for PDP.
type Option func(*PDP)

// WithAttributeProviders appends attribute providers consulted, in order,
// for attributes the request does not carry.
func WithAttributeProviders(providers ...evalctx.AttributeProvider) Option {
	return func(p *PDP) {
		p.attributeProviders = append(p.attributeProviders, providers...)
	}
}

// WithEnvOverridesRequest makes the PDP-issued environment attributes
// (current-time, current-date, current-dateTime) override request-provided
// values. By default request values win.
func WithEnvOverridesRequest(override bool) Option {
	return func(p *PDP) {
		p.envOverridesRequest = override
	}
}

// WithCacheEnvValues controls freezing of the environment clock on first
// observation. Defaults to true.
func WithCacheEnvValues(cache bool) Option {
	return func(p *PDP) {
		p.cacheEnvValues = cache
	}
}

// WithReturnUsedAttributes includes the list of attributes consulted during
// evaluation in each result.
func WithReturnUsedAttributes(include bool) Option {
	return func(p *PDP) {
		p.returnUsedAttrs = include
	}
}

// WithClock replaces the environment clock source.
func WithClock(clock func() time.Time) Option {
	return func(p *PDP) {
		p.clock = clock
	}
}

// WithLogger attaches a logger. Lower-level Indeterminate causes that the
// response discards are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(p *PDP) {
		p.logger = logger
	}
}

// New creates a PDP evaluating decisions against the given policy provider.
func New(provider PolicyProvider, options ...Option) *PDP {
	p := &PDP{
		provider:       provider,
		cacheEnvValues: true,
		clock:          time.Now,
	}

	for _, option := range options {
		option(p)
	}
	return p
}

// Evaluate evaluates one individual decision request and returns a response
// holding its single result.
func (p *PDP) Evaluate(ctx context.Context, req *request.Request) (*request.Response, error) {
	if req == nil {
		return nil, errors.New("decision request cannot be nil")
	}

	result := p.evaluateIndividual(ctx, req)
	return &request.Response{Results: []request.Result{result}}, nil
}

// EvaluateAll evaluates a batch of independent decision requests
// concurrently and returns one result per request, in request order.
func (p *PDP) EvaluateAll(ctx context.Context, reqs []*request.Request) (*request.Response, error) {
	for i, req := range reqs {
		if req == nil {
			return nil, fmt.Errorf("decision request %d cannot be nil", i)
		}
	}

	results := make([]request.Result, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			results[i] = p.evaluateIndividual(ctx, req)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &request.Response{Results: results}, nil
}

func (p *PDP) evaluateIndividual(_ context.Context, req *request.Request) request.Result {
	if scope := req.ResourceScope(); scope != request.ScopeImmediate {
		return p.assemble(req, nil, decision.NewIndeterminate(decision.IndeterminateDP,
			status.NewProcessingError("resource scope %q is not supported; expand the request before evaluation", scope)))
	}

	ectx, err := p.buildContext(req)
	if err != nil {
		return p.assemble(req, ectx, decision.NewIndeterminate(decision.IndeterminateDP, err))
	}

	root, err := p.provider.FindByTarget(ectx)
	if err != nil {
		return p.assemble(req, ectx, decision.NewIndeterminate(decision.IndeterminateDP,
			status.Wrap(err, status.CodeProcessingError, "root policy lookup failed")))
	}
	if root == nil {
		result := decision.NewResult(decision.NotApplicable)
		result.Status.Message = "no applicable root policy found for the request"
		return p.assemble(req, ectx, result)
	}

	return p.assemble(req, ectx, root.Evaluate(ectx))
}

// buildContext merges PDP-issued environment attributes with the request's
// attributes and seeds a fresh evaluation context. The PDP-issued map is
// built per request, so the merge never mutates shared state.
func (p *PDP) buildContext(req *request.Request) (*evalctx.Context, error) {
	options := []evalctx.Option{
		evalctx.WithProviders(p.attributeProviders...),
		evalctx.WithClock(p.clock),
		evalctx.WithCacheEnvValues(p.cacheEnvValues),
		evalctx.WithPolicyIDTracking(req.ReturnPolicyIDList),
		evalctx.WithUsedAttributeTracking(p.returnUsedAttrs),
	}
	if p.logger != nil {
		options = append(options, evalctx.WithLogger(p.logger))
	}

	ectx := evalctx.New(options...)
	for _, category := range req.Categories {
		if category.Content != nil {
			ectx.AddContent(category.ID, category.Content)
		}
	}

	requestAttrs, err := groupRequestAttributes(req)
	if err != nil {
		return ectx, err
	}

	merged := p.mergeEnvironment(ectx, requestAttrs)
	for key, values := range merged {
		bag, err := value.NewBag(key.Datatype, values...)
		if err != nil {
			return ectx, status.From(err)
		}
		ectx.AddAttribute(key.Category, key.ID, key.Issuer, bag)
	}
	return ectx, nil
}

// groupRequestAttributes parses the request's lexical values into typed
// bags grouped by category, attribute id, issuer, and datatype.
func groupRequestAttributes(req *request.Request) (map[evalctx.AttributeID][]value.AttributeValue, error) {
	grouped := make(map[evalctx.AttributeID][]value.AttributeValue)
	for _, category := range req.Categories {
		for _, attribute := range category.Attributes {
			for _, raw := range attribute.Values {
				av, err := value.Parse(raw.Datatype, raw.Value)
				if err != nil {
					return nil, status.Wrap(err, status.CodeSyntaxError,
						"attribute %s of category %s", attribute.ID, category.ID)
				}

				key := evalctx.AttributeID{
					Category: category.ID,
					ID:       attribute.ID,
					Datatype: raw.Datatype,
					Issuer:   attribute.Issuer,
				}
				grouped[key] = append(grouped[key], av)
			}
		}
	}
	return grouped, nil
}

// mergeEnvironment overlays the PDP-issued environment attributes and the
// request attributes according to the override flag.
func (p *PDP) mergeEnvironment(ectx *evalctx.Context, requestAttrs map[evalctx.AttributeID][]value.AttributeValue) map[evalctx.AttributeID][]value.AttributeValue {
	now := ectx.Now()
	pdpIssued := map[evalctx.AttributeID][]value.AttributeValue{
		{Category: evalctx.CategoryEnvironment, ID: evalctx.AttributeCurrentTime, Datatype: value.TypeTime}:         {value.NewTime(now)},
		{Category: evalctx.CategoryEnvironment, ID: evalctx.AttributeCurrentDate, Datatype: value.TypeDate}:         {value.NewDate(now)},
		{Category: evalctx.CategoryEnvironment, ID: evalctx.AttributeCurrentDateTime, Datatype: value.TypeDateTime}: {value.NewDateTime(now)},
	}

	merged := make(map[evalctx.AttributeID][]value.AttributeValue, len(requestAttrs)+len(pdpIssued))
	if p.envOverridesRequest {
		for key, values := range requestAttrs {
			merged[key] = values
		}
		for key, values := range pdpIssued {
			merged[key] = values
		}
		return merged
	}

	for key, values := range pdpIssued {
		merged[key] = values
	}
	for key, values := range requestAttrs {
		merged[key] = values
	}
	return merged
}

// assemble converts an engine result into the response model, collapsing the
// Indeterminate flavours and keeping the first observed status.
func (p *PDP) assemble(req *request.Request, ectx *evalctx.Context, result decision.Result) request.Result {
	out := request.Result{
		RequestID:          req.ID,
		Decision:           result.Decision.Collapsed(),
		Status:             request.Status{Code: result.Status.Code, Message: result.Status.Message},
		Obligations:        result.Obligations,
		Advice:             result.Advice,
		ApplicablePolicies: result.ApplicablePolicies,
		Attributes:         req.IncludedAttributes(),
		EvaluatedAt:        time.Now(),
	}
	if p.returnUsedAttrs && ectx != nil {
		out.UsedAttributes = ectx.UsedAttributes()
	}

	if p.logger != nil {
		p.logger.Debug("decision evaluated",
			slog.String("request_id", req.ID.String()),
			slog.String("decision", out.Decision),
			slog.String("status_code", out.Status.Code),
		)
	}
	return out
}
