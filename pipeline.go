package guard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Middleware is a pre-processing hook invoked with the raw request before
// any pipeline stage. It may return a replacement request (nil keeps the
// current one), an early response that stops the pipeline, or an error
// that is reported as an internal failure.
type Middleware func(r *http.Request) (*http.Request, *Response, error)

// Handler is the request→response function wrapped by the pipeline. The
// returned value is normalized: a *Response passes through, nil yields
// 204, anything else is wrapped as a JSON 200. Errors implementing
// StatusCoder keep their status; everything else becomes a 500 whose
// message is redacted outside development mode.
type Handler func(ctx context.Context, req *Request) (any, error)

// pipeline executes the ordered stage sequence for one route. Its
// configuration is captured at route-definition time; later UpdateConfig
// calls do not affect it.
type pipeline struct {
	cfg     Config
	route   RouteConfig
	handler Handler
	path    string
	params  []paramName
}

func (p *pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := p.dispatch(r)
	resp.write(w)
}

// dispatch runs the stages and guarantees a response: panics from handlers
// or middleware are caught here, logged, and converted to internal errors.
func (p *pipeline) dispatch(r *http.Request) (resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			p.cfg.logger().Error("pipeline panic",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"route", p.path,
			)
			resp = p.internalError(r, fmt.Errorf("panic: %v", rec))
		}
	}()
	return p.run(r)
}

// run executes the stages in order. Each stage is attempted at most once
// and short-circuits with an error response on failure.
func (p *pipeline) run(r *http.Request) *Response {
	// Global, then route-local middleware.
	for _, mw := range []Middleware{p.cfg.Middleware, p.route.Middleware} {
		if mw == nil {
			continue
		}
		replaced, early, err := mw(r)
		if err != nil {
			return p.internalError(r, err)
		}
		if early != nil {
			return early
		}
		if replaced != nil {
			r = replaced
		}
	}

	req := &Request{raw: r, Meta: metaFor(r)}

	if resp := p.authenticate(r, req); resp != nil {
		return resp
	}

	// Query validation.
	if p.route.QuerySchema != nil {
		res := p.route.QuerySchema.Parse(collectQuery(r))
		if !res.OK {
			return p.validationError(r, http.StatusUnprocessableEntity, CodeValidation, "Query validation failed", res.Issues)
		}
		req.Query, _ = res.Value.(map[string]any)
	}

	// Body validation. Only body-carrying methods are read; everything
	// else gets a fixed empty mapping with no parse attempt.
	if p.route.BodySchema != nil {
		if !bodyMethod(r.Method) {
			req.Body = map[string]any{}
		} else {
			value, code, message := decodeJSONBody(r)
			if code != "" {
				return p.validationError(r, http.StatusBadRequest, code, message, nil)
			}
			res := p.route.BodySchema.Parse(value)
			if !res.OK {
				return p.validationError(r, http.StatusUnprocessableEntity, CodeValidation, "Body validation failed", res.Issues)
			}
			req.Body = res.Value
		}
	}

	// Path-parameter validation.
	if p.route.ParamsSchema != nil {
		res := p.route.ParamsSchema.Parse(collectParams(r, p.params))
		if !res.OK {
			return p.validationError(r, http.StatusUnprocessableEntity, CodeValidation, "Path parameter validation failed", res.Issues)
		}
		req.Params, _ = res.Value.(map[string]any)
	}

	if resp := p.authorize(r, req); resp != nil {
		return resp
	}

	result, err := p.handler(r.Context(), req)
	if err != nil {
		return p.handlerError(r, err)
	}

	resp := normalize(result)
	return p.checkResponse(r, resp)
}

// authenticate runs the authentication stage and resolves roles. It
// returns a non-nil response to short-circuit the pipeline.
func (p *pipeline) authenticate(r *http.Request, req *Request) *Response {
	if p.route.Auth == AuthDisabled {
		return nil
	}

	provider := p.cfg.Auth
	if provider == nil {
		if p.route.Auth == AuthRequired {
			return p.authError(r, http.StatusUnauthorized, CodeUnauthorized, "Authentication provider not configured")
		}
		return nil
	}

	user, err := provider.Authenticate(r.Context(), r)
	if err != nil {
		// A provider error is an authentication failure, not absence.
		return p.authError(r, http.StatusUnauthorized, CodeUnauthorized, err.Error())
	}
	req.AuthAttempted = true

	if user == nil {
		if p.route.Auth == AuthRequired {
			return p.authError(r, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
		}
		return nil
	}

	req.User = user
	if rp, ok := provider.(RoleProvider); ok {
		roles, err := rp.Roles(r.Context(), user)
		if err != nil {
			return p.authError(r, http.StatusUnauthorized, CodeUnauthorized, err.Error())
		}
		req.Roles = roles
	}
	return nil
}

// authorize runs the authorization stage: the provider's Authorize
// capability first, then the role intersection check. Skipped entirely
// when no user authenticated. Failures are 403, never 401.
func (p *pipeline) authorize(r *http.Request, req *Request) *Response {
	if req.User == nil {
		return nil
	}

	if az, ok := p.cfg.Auth.(Authorizer); ok {
		allowed, err := az.Authorize(r.Context(), req.User, r)
		if err != nil || !allowed {
			return p.authError(r, http.StatusForbidden, CodeForbidden, "Forbidden")
		}
	}

	if len(p.route.Roles) > 0 && len(req.Roles) > 0 {
		if !rolesIntersect(p.route.Roles, req.Roles) {
			return p.authError(r, http.StatusForbidden, CodeForbidden, "Insufficient role")
		}
	}
	return nil
}

func rolesIntersect(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

// handlerError shapes an error returned by the handler. StatusCoder errors
// below 500 keep their status and message; everything else is an internal
// error.
func (p *pipeline) handlerError(r *http.Request, err error) *Response {
	var er *ErrorResponse
	if errors.As(err, &er) {
		return errResponse(er)
	}

	var sc StatusCoder
	if errors.As(err, &sc) && sc.StatusCode() < http.StatusInternalServerError {
		status := sc.StatusCode()
		return errResponse(NewErrorResponse(r, status, statusCode(status), err.Error()))
	}

	return p.internalError(r, err)
}

// statusCode derives a stable error code from an HTTP status.
func statusCode(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusTooManyRequests:
		return CodeRateLimited
	default:
		return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func (p *pipeline) authError(r *http.Request, status int, code, message string) *Response {
	if p.cfg.OnAuthError != nil {
		return p.cfg.OnAuthError.AuthError(r, status, code, message)
	}
	return defaultResponders{mode: p.cfg.Mode}.AuthError(r, status, code, message)
}

func (p *pipeline) validationError(r *http.Request, status int, code, message string, issues []ValidationError) *Response {
	if p.cfg.OnValidationError != nil {
		return p.cfg.OnValidationError.ValidationError(r, status, code, message, issues)
	}
	return defaultResponders{mode: p.cfg.Mode}.ValidationError(r, status, code, message, issues)
}

// internalError always logs; the wire message is redacted outside
// development mode by the default responder.
func (p *pipeline) internalError(r *http.Request, err error) *Response {
	p.cfg.logger().Error("internal error",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"route", p.path,
	)
	if p.cfg.OnInternalError != nil {
		return p.cfg.OnInternalError.InternalError(r, err)
	}
	return defaultResponders{mode: p.cfg.Mode}.InternalError(r, err)
}
