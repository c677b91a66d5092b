package guard

import (
	"encoding/json"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
)

// Request is the per-request processing context handed to handlers. It is
// created fresh for every invocation and never shared across requests.
//
// Query, Body, and Params hold validated values and stay nil until their
// validation stage ran; routes without a schema for an input leave that
// input nil (except bodies on non-body methods, which are fixed to an
// empty map).
type Request struct {
	raw *http.Request

	// User is the authenticated principal, or nil. AuthAttempted
	// distinguishes "provider returned no user" from "authentication was
	// never attempted" on AuthOptional routes.
	User          any
	AuthAttempted bool

	// Roles are the roles resolved by the provider, when it implements
	// RoleProvider.
	Roles []string

	Query  map[string]any
	Body   any
	Params map[string]any

	Meta Meta
}

// Raw returns the underlying (possibly middleware-rewritten) HTTP request.
func (req *Request) Raw() *http.Request { return req.raw }

// Meta holds request metadata captured at dispatch time.
type Meta struct {
	Method    string
	URL       string
	Path      string
	Timestamp time.Time
	UserAgent string
	IP        string
}

func metaFor(r *http.Request) Meta {
	return Meta{
		Method:    r.Method,
		URL:       r.URL.String(),
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC(),
		UserAgent: r.UserAgent(),
		IP:        clientIP(r),
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// collectQuery flattens URL query parameters into a schema-ready mapping.
// A key supplied once maps to its string value; a repeated key maps to the
// ordered array of its values.
func collectQuery(r *http.Request) map[string]any {
	out := make(map[string]any)
	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			out[key] = values[0]
			continue
		}
		arr := make([]any, len(values))
		for i, v := range values {
			arr[i] = v
		}
		out[key] = arr
	}
	return out
}

// bodyMethod reports whether the pipeline reads a request body for the
// given method. Other methods get an empty body mapping without any read.
func bodyMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// decodeJSONBody reads and decodes the request body, requiring a JSON
// content type. On failure it returns a code distinguishing an absent body,
// a non-JSON content type, and malformed JSON, plus a caller-facing message.
func decodeJSONBody(r *http.Request) (any, string, string) {
	if r.Body == nil {
		return nil, CodeMissingBody, "Request body is required"
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, CodeInvalidJSON, "Failed to read request body"
	}
	if len(raw) == 0 {
		return nil, CodeMissingBody, "Request body is required"
	}

	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return nil, CodeInvalidContentType, "Content-Type must be application/json"
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, CodeInvalidJSON, "Request body is not valid JSON"
	}
	return value, "", ""
}

// paramName is one path-parameter placeholder declared in a route path.
type paramName struct {
	name     string
	catchAll bool
}

// pathParamNames extracts placeholder names from a route path. Both the
// bracket syntax ([id], [...slug]) and the generic syntax ({id}, {slug*},
// {slug...}) are accepted.
func pathParamNames(path string) []paramName {
	var params []paramName
	for seg := range strings.SplitSeq(path, "/") {
		switch {
		case strings.HasPrefix(seg, "[...") && strings.HasSuffix(seg, "]"):
			params = append(params, paramName{name: seg[4 : len(seg)-1], catchAll: true})
		case strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]"):
			params = append(params, paramName{name: seg[1 : len(seg)-1]})
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "...}"):
			params = append(params, paramName{name: seg[1 : len(seg)-4], catchAll: true})
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "*}"):
			params = append(params, paramName{name: seg[1 : len(seg)-2], catchAll: true})
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			params = append(params, paramName{name: seg[1 : len(seg)-1]})
		}
	}
	return params
}

// collectParams reads path-parameter values from the request. Values come
// from the host mux (Request.PathValue); catch-all parameters become the
// ordered array of their segments.
func collectParams(r *http.Request, names []paramName) map[string]any {
	out := make(map[string]any, len(names))
	for _, p := range names {
		value := r.PathValue(p.name)
		if !p.catchAll {
			out[p.name] = value
			continue
		}
		segs := strings.Split(strings.Trim(value, "/"), "/")
		arr := make([]any, len(segs))
		for i, s := range segs {
			arr[i] = s
		}
		out[p.name] = arr
	}
	return out
}

// MuxPattern converts a route path into a Go 1.22 http.ServeMux pattern,
// turning [id] into {id} and [...slug] or {slug*} into {slug...} so a
// pipeline can be mounted on the mux it expects path values from.
func MuxPattern(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		switch {
		case strings.HasPrefix(seg, "[...") && strings.HasSuffix(seg, "]"):
			segs[i] = "{" + seg[4:len(seg)-1] + "...}"
		case strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]"):
			segs[i] = "{" + seg[1:len(seg)-1] + "}"
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "*}"):
			segs[i] = "{" + seg[1:len(seg)-2] + "...}"
		}
	}
	return strings.Join(segs, "/")
}
