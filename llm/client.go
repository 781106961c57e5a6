package llm

import (
	"context"
	"fmt"
	"sync"
)

// Middleware wraps a blocking provider call. It receives the request and a
// next function that invokes the downstream handler.
type Middleware func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error)

// StreamMiddleware wraps a streaming provider call.
type StreamMiddleware func(ctx context.Context, req Request, next func(context.Context, Request) (<-chan Event, error)) (<-chan Event, error)

// Client routes requests to registered providers and applies middleware.
// The advisor package builds its chain on top of these middleware hooks.
type Client struct {
	mu              sync.RWMutex
	providers       map[string]Provider
	defaultProvider string
	middleware      []Middleware
	streamMW        []StreamMiddleware
}

// Option configures a Client.
type Option func(*Client)

// WithProvider registers a provider under its name.
func WithProvider(name string, p Provider) Option {
	return func(c *Client) { c.providers[name] = p }
}

// WithDefaultProvider sets the provider used when a request names none.
func WithDefaultProvider(name string) Option {
	return func(c *Client) { c.defaultProvider = name }
}

// WithMiddleware appends middleware. The first registered runs first.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *Client) { c.middleware = append(c.middleware, mw...) }
}

// WithStreamMiddleware appends stream middleware.
func WithStreamMiddleware(mw ...StreamMiddleware) Option {
	return func(c *Client) { c.streamMW = append(c.streamMW, mw...) }
}

// NewClient creates a Client. With a single registered provider and no
// explicit default, that provider becomes the default.
func NewClient(opts ...Option) *Client {
	c := &Client{providers: make(map[string]Provider)}
	for _, opt := range opts {
		opt(c)
	}
	if c.defaultProvider == "" && len(c.providers) == 1 {
		for name := range c.providers {
			c.defaultProvider = name
		}
	}
	return c
}

// Register adds a provider after construction.
func (c *Client) Register(name string, p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[name] = p
	if c.defaultProvider == "" {
		c.defaultProvider = name
	}
}

// resolve picks the provider for a request: explicit name, then default,
// then a catalog lookup on the model id.
func (c *Client) resolve(req Request) (Provider, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		if info := LookupModel(req.Model); info != nil {
			name = info.Provider
		}
	}
	if name == "" {
		return nil, &ConfigError{BaseError{Message: "no provider named in request and no default configured"}}
	}

	p, ok := c.providers[name]
	if !ok {
		return nil, &ConfigError{BaseError{Message: fmt.Sprintf("provider %q is not registered", name)}}
	}
	return p, nil
}

// Complete routes a blocking request through the middleware chain.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	p, err := c.resolve(req)
	if err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = p.Name()
	}

	handler := func(ctx context.Context, r Request) (*Response, error) {
		return p.Complete(ctx, r)
	}
	// Wrap in reverse so the first registered middleware runs first.
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw, next := c.middleware[i], handler
		handler = func(ctx context.Context, r Request) (*Response, error) {
			return mw(ctx, r, next)
		}
	}
	return handler(ctx, req)
}

// Stream routes a streaming request through the stream middleware chain.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	p, err := c.resolve(req)
	if err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = p.Name()
	}

	handler := func(ctx context.Context, r Request) (<-chan Event, error) {
		return p.Stream(ctx, r)
	}
	for i := len(c.streamMW) - 1; i >= 0; i-- {
		mw, next := c.streamMW[i], handler
		handler = func(ctx context.Context, r Request) (<-chan Event, error) {
			return mw(ctx, r, next)
		}
	}
	return handler(ctx, req)
}

// Close releases resources held by registered providers.
func (c *Client) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var firstErr error
	for _, p := range c.providers {
		if closer, ok := p.(Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
