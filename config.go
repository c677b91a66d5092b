package guard

import "log/slog"

// Mode selects the execution mode. Development mode enables response
// validation by default and returns unredacted internal error messages.
// The zero value is production.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

func (m Mode) development() bool { return m == ModeDevelopment }

// Bool returns a pointer to b, for the optional boolean config fields.
func Bool(b bool) *bool { return &b }

// Config holds the shared collaborators bound to a Controller. All fields
// are optional; the zero value is a production-mode controller with
// built-in error responses, no authentication, and no documentation.
type Config struct {
	// Auth authenticates requests on routes whose AuthMode is not disabled.
	Auth AuthProvider

	// OnAuthError, OnValidationError, and OnInternalError override the
	// built-in error response construction for their failure category.
	// Override handlers must not panic; a panic escalates past the
	// pipeline boundary.
	OnAuthError       AuthErrorHandler
	OnValidationError ValidationErrorHandler
	OnInternalError   InternalErrorHandler

	// Middleware runs before every stage on every route built from this
	// controller, ahead of any route-local middleware.
	Middleware Middleware

	// ValidateResponses toggles the diagnostic response check for routes
	// that do not set their own override. Unset means "enabled in
	// development mode only".
	ValidateResponses *bool

	// StrictResponses replaces a response that fails the diagnostic check
	// with a 500 instead of returning it unchanged. Diagnostic failures
	// are logged either way.
	StrictResponses bool

	// Mode selects development or production behavior.
	Mode Mode

	// Logger receives pipeline diagnostics. Nil means slog.Default().
	Logger *slog.Logger

	// Registry receives route registrations when Docs is set. Nil means
	// the process-wide DefaultRegistry.
	Registry *Registry

	// Docs enables route registration for document generation and carries
	// the document metadata.
	Docs *DocsConfig
}

// logger returns the configured logger or the process default.
func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// registry returns the configured registry or the process default.
func (c Config) registry() *Registry {
	if c.Registry != nil {
		return c.Registry
	}
	return DefaultRegistry
}

// merge returns a copy of c with every non-zero field of patch replacing
// the corresponding field. Nested collaborators are replaced wholesale,
// never merged in place.
func (c Config) merge(patch Config) Config {
	out := c
	if patch.Auth != nil {
		out.Auth = patch.Auth
	}
	if patch.OnAuthError != nil {
		out.OnAuthError = patch.OnAuthError
	}
	if patch.OnValidationError != nil {
		out.OnValidationError = patch.OnValidationError
	}
	if patch.OnInternalError != nil {
		out.OnInternalError = patch.OnInternalError
	}
	if patch.Middleware != nil {
		out.Middleware = patch.Middleware
	}
	if patch.ValidateResponses != nil {
		out.ValidateResponses = patch.ValidateResponses
	}
	if patch.StrictResponses {
		out.StrictResponses = true
	}
	if patch.Mode != "" {
		out.Mode = patch.Mode
	}
	if patch.Logger != nil {
		out.Logger = patch.Logger
	}
	if patch.Registry != nil {
		out.Registry = patch.Registry
	}
	if patch.Docs != nil {
		out.Docs = patch.Docs
	}
	return out
}

// RouteConfig is the per-route declaration.
type RouteConfig struct {
	// Auth selects the authentication mode for the route. The zero value
	// disables authentication.
	Auth AuthMode

	// Roles lists acceptable roles. When non-empty and the provider
	// resolved roles for the user, at least one must match or the request
	// is rejected with 403.
	Roles []string

	// QuerySchema, BodySchema, and ParamsSchema validate their respective
	// inputs. A nil schema skips that stage.
	QuerySchema  Schema
	BodySchema   Schema
	ParamsSchema Schema

	// ResponseSchema validates the handler's output regardless of status.
	// ResponseSchemas maps status codes to schemas and takes precedence
	// over ResponseSchema when both are set.
	ResponseSchema  Schema
	ResponseSchemas map[int]Schema

	// ValidateResponse overrides the controller's response-check toggle
	// for this route.
	ValidateResponse *bool

	// Metadata carries documentation hints for the generated document.
	Metadata *Metadata

	// Middleware runs after the controller's global middleware and before
	// authentication.
	Middleware Middleware

	// RateLimit is declared for documentation only; the pipeline does
	// not enforce it. Use the Throttle middleware for enforcement.
	RateLimit *RateLimit
}

// Metadata holds documentation hints for a route.
type Metadata struct {
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	OperationID string   `json:"operationId,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Deprecated  bool     `json:"deprecated,omitempty"`

	// Security names security schemes overriding the auth-derived
	// requirement in the generated document.
	Security []string `json:"security,omitempty"`
}

// RateLimit declares a request rate for a route.
type RateLimit struct {
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

// validateResponses reports whether the diagnostic response check runs for
// a route, combining the route override, the controller default, and the
// development-mode fallback.
func (c Config) validateResponses(rc RouteConfig) bool {
	if rc.ValidateResponse != nil {
		return *rc.ValidateResponse
	}
	if c.ValidateResponses != nil {
		return *c.ValidateResponses
	}
	return c.Mode.development()
}
