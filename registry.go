package guard

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registration is one declared route: the unit stored in a Registry and
// consumed by the document generator. It plays no part in request dispatch.
type Registration struct {
	Method string
	Path   string
	Config RouteConfig

	// Metadata overrides Config.Metadata when set.
	Metadata *Metadata
}

func (reg Registration) key() string { return reg.Method + ":" + reg.Path }

func (reg Registration) metadata() *Metadata {
	if reg.Metadata != nil {
		return reg.Metadata
	}
	return reg.Config.Metadata
}

// Registry is a table of declared routes keyed by METHOD:path. It is safe
// for concurrent use; construct isolated instances for tests and use
// DefaultRegistry for the common process-wide case.
type Registry struct {
	mu     sync.RWMutex
	routes map[string]Registration
}

// DefaultRegistry is the process-wide registry used by controllers without
// an explicit one. Clear it between test runs to avoid cross-test leakage.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]Registration)}
}

// Register adds or replaces a registration.
func (g *Registry) Register(reg Registration) {
	reg.Method = strings.ToUpper(reg.Method)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes[reg.key()] = reg
}

// Unregister removes the registration for method and path, reporting
// whether one existed.
func (g *Registry) Unregister(method, path string) bool {
	key := strings.ToUpper(method) + ":" + path
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.routes[key]; !ok {
		return false
	}
	delete(g.routes, key)
	return true
}

// Update replaces an existing registration, reporting whether it existed.
// Unlike Register it never creates a new entry.
func (g *Registry) Update(reg Registration) bool {
	reg.Method = strings.ToUpper(reg.Method)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.routes[reg.key()]; !ok {
		return false
	}
	g.routes[reg.key()] = reg
	return true
}

// Clear removes every registration.
func (g *Registry) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes = make(map[string]Registration)
}

// Len returns the number of registrations.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.routes)
}

// Get returns the registration for method and path.
func (g *Registry) Get(method, path string) (Registration, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	reg, ok := g.routes[strings.ToUpper(method)+":"+path]
	return reg, ok
}

// Lookup returns every registration whose path matches, across methods,
// sorted by method. Paths match after normalization.
func (g *Registry) Lookup(path string) []Registration {
	want := NormalizePath(path)
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Registration
	for _, reg := range g.routes {
		if NormalizePath(reg.Path) == want {
			out = append(out, reg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

// All returns every registration sorted by METHOD:path for determinism.
func (g *Registry) All() []Registration {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Registration, 0, len(g.routes))
	for _, reg := range g.routes {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// GroupByPath groups registrations by normalized path.
func (g *Registry) GroupByPath() map[string][]Registration {
	grouped := make(map[string][]Registration)
	for _, reg := range g.All() {
		p := NormalizePath(reg.Path)
		grouped[p] = append(grouped[p], reg)
	}
	return grouped
}

// Stats summarizes the registry contents.
type Stats struct {
	Total            int            `json:"total"`
	UniquePaths      int            `json:"uniquePaths"`
	ByMethod         map[string]int `json:"byMethod"`
	MultiMethodPaths []string       `json:"multiMethodPaths,omitempty"`
}

// Stats computes registry statistics: total routes, unique normalized
// paths, per-method counts, and paths serving more than one method.
func (g *Registry) Stats() Stats {
	grouped := g.GroupByPath()

	stats := Stats{
		UniquePaths: len(grouped),
		ByMethod:    make(map[string]int),
	}
	for path, regs := range grouped {
		stats.Total += len(regs)
		for _, reg := range regs {
			stats.ByMethod[reg.Method]++
		}
		if len(regs) > 1 {
			stats.MultiMethodPaths = append(stats.MultiMethodPaths, path)
		}
	}
	sort.Strings(stats.MultiMethodPaths)
	return stats
}

// Snapshot is a serializable projection of a registry. Schemas and
// middleware are code, not data, so a snapshot carries only the
// declarative route facts.
type Snapshot struct {
	Routes []SnapshotRoute `json:"routes"`
}

// SnapshotRoute is one route in a Snapshot.
type SnapshotRoute struct {
	Method    string     `json:"method"`
	Path      string     `json:"path"`
	Auth      AuthMode   `json:"auth,omitempty"`
	Roles     []string   `json:"roles,omitempty"`
	Metadata  *Metadata  `json:"metadata,omitempty"`
	RateLimit *RateLimit `json:"rateLimit,omitempty"`
}

// Export projects the registry into a serializable snapshot.
func (g *Registry) Export() Snapshot {
	var snap Snapshot
	for _, reg := range g.All() {
		snap.Routes = append(snap.Routes, SnapshotRoute{
			Method:    reg.Method,
			Path:      reg.Path,
			Auth:      reg.Config.Auth,
			Roles:     reg.Config.Roles,
			Metadata:  reg.metadata(),
			RateLimit: reg.Config.RateLimit,
		})
	}
	return snap
}

// Import registers every route of a snapshot. Imported routes have no
// schemas or handlers attached; they exist for documentation only.
func (g *Registry) Import(snap Snapshot) {
	for _, route := range snap.Routes {
		g.Register(Registration{
			Method: route.Method,
			Path:   route.Path,
			Config: RouteConfig{
				Auth:      route.Auth,
				Roles:     route.Roles,
				Metadata:  route.Metadata,
				RateLimit: route.RateLimit,
			},
		})
	}
}

var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// Validate flags registrations with missing or unknown fields and distinct
// raw paths that collapse to the same normalized METHOD:path.
func (g *Registry) Validate() []string {
	var problems []string
	seen := make(map[string]string)

	for _, reg := range g.All() {
		if reg.Method == "" {
			problems = append(problems, fmt.Sprintf("registration %q: missing method", reg.Path))
		} else if !knownMethods[reg.Method] {
			problems = append(problems, fmt.Sprintf("registration %q: unknown method %q", reg.Path, reg.Method))
		}
		if reg.Path == "" {
			problems = append(problems, fmt.Sprintf("registration %q: missing path", reg.Method))
			continue
		}

		norm := reg.Method + ":" + NormalizePath(reg.Path)
		if prev, ok := seen[norm]; ok {
			problems = append(problems, fmt.Sprintf("routes %q and %q collapse to %q", prev, reg.Path, norm))
			continue
		}
		seen[norm] = reg.Path
	}
	return problems
}

// NormalizePath rewrites framework-specific dynamic segments into generic
// placeholders: [id] and {id} become {id}; [...slug], {slug...}, and
// {slug*} become {slug*}.
func NormalizePath(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		switch {
		case strings.HasPrefix(seg, "[...") && strings.HasSuffix(seg, "]"):
			segs[i] = "{" + seg[4:len(seg)-1] + "*}"
		case strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]"):
			segs[i] = "{" + seg[1:len(seg)-1] + "}"
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "...}"):
			segs[i] = "{" + seg[1:len(seg)-4] + "*}"
		}
	}
	return strings.Join(segs, "/")
}
