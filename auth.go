package guard

import (
	"context"
	"net/http"
)

// AuthMode controls whether a route authenticates the request.
// The zero value disables authentication for the route.
type AuthMode string

const (
	// AuthDisabled skips the authentication stage entirely. The provider
	// is never invoked.
	AuthDisabled AuthMode = ""

	// AuthRequired rejects the request with 401 unless the provider
	// returns a user.
	AuthRequired AuthMode = "required"

	// AuthOptional invokes the provider but lets unauthenticated requests
	// through with a nil user.
	AuthOptional AuthMode = "optional"
)

// AuthProvider authenticates requests. Authenticate returns (nil, nil) for
// "not authenticated" — a non-nil error means authentication itself failed
// and is reported to the caller as a 401 carrying the error message.
//
// Providers may additionally implement Authorizer and RoleProvider; the
// pipeline detects those capabilities and skips the corresponding stages
// when they are absent.
type AuthProvider interface {
	Authenticate(ctx context.Context, r *http.Request) (any, error)
}

// Authorizer is the optional per-request authorization capability.
// A false result or an error yields 403 — authorization failure is
// distinct from authentication failure.
type Authorizer interface {
	Authorize(ctx context.Context, user any, r *http.Request) (bool, error)
}

// RoleProvider is the optional role-resolution capability. Resolved roles
// are matched against RouteConfig.Roles and exposed to handlers.
type RoleProvider interface {
	Roles(ctx context.Context, user any) ([]string, error)
}
