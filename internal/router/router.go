package router

import (
	"net/http"
	"slices"
	"strings"
	"sync"
)

// Router wraps http.ServeMux with middleware chaining. Groups share the
// parent's mux and route table.
type Router struct {
	mux    *http.ServeMux
	chain  []Middleware
	routes *routeTable
}

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

type routeTable struct {
	mu       sync.Mutex
	patterns []string
}

// New creates a new Router with optional global middleware
func New(middleware ...Middleware) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		chain:  middleware,
		routes: &routeTable{},
	}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, handler, middleware...)
}

// Post registers a POST route
func (r *Router) Post(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, handler, middleware...)
}

// Handle registers a route with explicit method. An empty method matches
// every method.
func (r *Router) Handle(method, pattern string, handler http.Handler, middleware ...Middleware) {
	full := strings.TrimSpace(method + " " + pattern)
	r.mux.Handle(full, r.wrap(handler, middleware))
	r.routes.add(full)
}

// Mount serves every path under prefix with h. h is not wrapped by the
// router's middleware; mounted routers bring their own.
func (r *Router) Mount(prefix string, h http.Handler) {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	r.mux.Handle(prefix, h)
	r.routes.add(prefix + "*")
}

// Routes returns the registered patterns in registration order.
func (r *Router) Routes() []string {
	r.routes.mu.Lock()
	defer r.routes.mu.Unlock()
	return slices.Clone(r.routes.patterns)
}

// Group creates a sub-router with additional middleware
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{
		mux:    r.mux,
		chain:  append(slices.Clone(r.chain), middleware...),
		routes: r.routes,
	}
}

// wrap applies the global chain, then route middleware, outermost first.
func (r *Router) wrap(handler http.Handler, middleware []Middleware) http.Handler {
	combined := append(slices.Clone(r.chain), middleware...)
	slices.Reverse(combined)

	result := handler
	for _, m := range combined {
		result = m(result)
	}
	return result
}

func (t *routeTable) add(pattern string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.patterns = append(t.patterns, pattern)
}
