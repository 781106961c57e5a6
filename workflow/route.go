package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/martinemde/llmflow/llm"
	"github.com/martinemde/llmflow/structured"
)

// Route is one destination a Router can dispatch to. Description guides the
// classifier; Prompt is the system prompt used when handling input sent to
// this route.
type Route struct {
	Name        string
	Description string
	Prompt      string
	Model       string // overrides the router's model when set
}

// RouterOptions configures a Router.
type RouterOptions struct {
	Client   *llm.Client
	Model    string
	Routes   []Route
	Fallback string // route used when classification fails; default first route
	Retry    *llm.RetryPolicy
}

// Router classifies incoming input and dispatches it to the matching route.
type Router struct {
	client   *llm.Client
	model    string
	routes   []Route
	byName   map[string]Route
	fallback string
	retry    *llm.RetryPolicy
}

// Decision is the classifier's verdict.
type Decision struct {
	Route      string  `json:"route"`
	Confidence float64 `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	Reasoning  string  `json:"reasoning"`
}

// RouteResult is the outcome of routing and handling one input.
type RouteResult struct {
	Decision Decision
	Route    string // resolved route name, after any fallback
	Output   string
	Usage    llm.Usage
}

// NewRouter builds a Router. The fallback must name one of the routes; when
// empty the first route is the fallback.
func NewRouter(opts RouterOptions) (*Router, error) {
	if opts.Client == nil {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "RouterOptions.Client is required"}}
	}
	if len(opts.Routes) == 0 {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "RouterOptions.Routes is empty"}}
	}

	byName := make(map[string]Route, len(opts.Routes))
	for _, r := range opts.Routes {
		if r.Name == "" {
			return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "route with empty name"}}
		}
		if _, dup := byName[r.Name]; dup {
			return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: fmt.Sprintf("duplicate route %q", r.Name)}}
		}
		byName[r.Name] = r
	}

	fallback := opts.Fallback
	if fallback == "" {
		fallback = opts.Routes[0].Name
	}
	if _, ok := byName[fallback]; !ok {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: fmt.Sprintf("fallback route %q is not defined", fallback)}}
	}

	return &Router{
		client:   opts.Client,
		model:    opts.Model,
		routes:   opts.Routes,
		byName:   byName,
		fallback: fallback,
		retry:    opts.Retry,
	}, nil
}

// Routes returns the configured routes in registration order.
func (r *Router) Routes() []Route {
	return r.routes
}

// DetermineRoute classifies the input and returns the decision with its
// Route field resolved to a configured route. An unknown classification
// resolves to the fallback route.
func (r *Router) DetermineRoute(ctx context.Context, input string) (Decision, error) {
	decision, err := structured.GenerateAs[Decision](ctx, structured.Options{
		Client: r.client,
		Model:  r.model,
		System: r.classifierSystem(),
		Prompt: "Classify this input:\n\n" + input,
		Retry:  r.retry,
	})
	if err != nil {
		return Decision{}, err
	}
	if _, ok := r.byName[decision.Route]; !ok {
		decision.Reasoning = fmt.Sprintf("unknown route %q, using fallback: %s", decision.Route, decision.Reasoning)
		decision.Route = r.fallback
	}
	return decision, nil
}

// Route classifies the input and handles it with the selected route's
// prompt. A classification failure does not fail the call; the input is
// handled by the fallback route instead.
func (r *Router) Route(ctx context.Context, input string) (*RouteResult, error) {
	decision, err := r.DetermineRoute(ctx, input)
	if err != nil {
		decision = Decision{
			Route:     r.fallback,
			Reasoning: fmt.Sprintf("classification failed, using fallback: %v", err),
		}
	}

	route := r.byName[decision.Route]
	model := route.Model
	if model == "" {
		model = r.model
	}

	gen, genErr := llm.Generate(ctx, llm.GenerateOptions{
		Client: r.client,
		Model:  model,
		System: route.Prompt,
		Prompt: input,
		Retry:  r.retry,
	})
	if genErr != nil {
		return nil, &StepError{Step: route.Name, Err: genErr}
	}

	return &RouteResult{
		Decision: decision,
		Route:    route.Name,
		Output:   gen.Text,
		Usage:    gen.TotalUsage,
	}, nil
}

func (r *Router) classifierSystem() string {
	var sb strings.Builder
	sb.WriteString("You route user input to exactly one of these destinations:\n\n")
	for _, route := range r.routes {
		fmt.Fprintf(&sb, "- %s: %s\n", route.Name, route.Description)
	}
	sb.WriteString("\nPick the single best route for the input.")
	return sb.String()
}
