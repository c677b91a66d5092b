package guard

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Controller binds a shared Config once and builds route pipelines from
// it. Pipelines capture the configuration current at route-definition
// time; UpdateConfig only affects routes defined afterwards.
type Controller struct {
	mu  sync.Mutex
	cfg Config
}

// New creates a Controller with the given configuration.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// Config returns a snapshot of the bound configuration.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// UpdateConfig replaces every non-zero field of the bound configuration
// with the corresponding field of patch. Nested collaborators are replaced
// wholesale. Routes already defined keep the configuration they captured.
func (c *Controller) UpdateConfig(patch Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = c.cfg.merge(patch)
}

// RouteHandler pairs a route configuration with its handler, for Routes.
type RouteHandler struct {
	Config  RouteConfig
	Handler Handler
}

// Route builds a pipeline for a single method and path. The returned
// handler rejects other methods with 405 and an Allow header before any
// pipeline stage runs, and the route is registered for documentation when
// the controller has docs enabled.
func (c *Controller) Route(method, path string, rc RouteConfig, h Handler) http.Handler {
	method = strings.ToUpper(method)
	p := c.build(method, path, rc, h)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w, r, []string{method})
			return
		}
		p.ServeHTTP(w, r)
	})
}

// Routes builds a multi-method handler for one path. Methods not declared
// are rejected with 405 listing every declared method.
func (c *Controller) Routes(path string, routes map[string]RouteHandler) http.Handler {
	pipelines := make(map[string]*pipeline, len(routes))
	allowed := make([]string, 0, len(routes))
	for method, rh := range routes {
		method = strings.ToUpper(method)
		pipelines[method] = c.build(method, path, rh.Config, rh.Handler)
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := pipelines[r.Method]
		if !ok {
			methodNotAllowed(w, r, allowed)
			return
		}
		p.ServeHTTP(w, r)
	})
}

// Get builds a GET pipeline.
func (c *Controller) Get(path string, rc RouteConfig, h Handler) http.Handler {
	return c.Route(http.MethodGet, path, rc, h)
}

// Post builds a POST pipeline.
func (c *Controller) Post(path string, rc RouteConfig, h Handler) http.Handler {
	return c.Route(http.MethodPost, path, rc, h)
}

// Put builds a PUT pipeline.
func (c *Controller) Put(path string, rc RouteConfig, h Handler) http.Handler {
	return c.Route(http.MethodPut, path, rc, h)
}

// Patch builds a PATCH pipeline.
func (c *Controller) Patch(path string, rc RouteConfig, h Handler) http.Handler {
	return c.Route(http.MethodPatch, path, rc, h)
}

// Delete builds a DELETE pipeline.
func (c *Controller) Delete(path string, rc RouteConfig, h Handler) http.Handler {
	return c.Route(http.MethodDelete, path, rc, h)
}

// build snapshots the controller configuration into a pipeline and
// registers the route for documentation.
func (c *Controller) build(method, path string, rc RouteConfig, h Handler) *pipeline {
	cfg := c.Config()

	if cfg.Docs != nil {
		cfg.registry().Register(Registration{
			Method: method,
			Path:   path,
			Config: rc,
		})
	}

	return &pipeline{
		cfg:     cfg,
		route:   rc,
		handler: h,
		path:    path,
		params:  pathParamNames(path),
	}
}

// methodNotAllowed writes the 405 error body with an Allow header listing
// the declared methods.
func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed []string) {
	e := NewErrorResponse(r, http.StatusMethodNotAllowed, CodeMethodNotAllowed,
		"Method "+r.Method+" not allowed")
	errResponse(e).WithHeader("Allow", strings.Join(allowed, ", ")).write(w)
}

// NotFoundHandler returns a handler producing the standard 404 error body.
// The pipeline never produces 404 itself; mount this as the mux fallback.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errResponse(NewErrorResponse(r, http.StatusNotFound, CodeNotFound, "Not found")).write(w)
	})
}
