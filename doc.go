// Package guard wraps plain request→response functions with a validated,
// authenticated request-processing pipeline and projects the declared
// routes into an OpenAPI 3.0.3 document.
//
// A Controller binds shared collaborators once — an AuthProvider, error
// response overrides, a route Registry — and exposes per-method route
// constructors. Each constructor returns a standard http.Handler that runs
// the full pipeline: middleware, authentication, query/body/path-parameter
// validation, authorization, the handler itself, and an optional
// diagnostic check of the response shape.
//
//	c := guard.New(guard.Config{Auth: provider})
//	h := c.Post("/api/users", guard.RouteConfig{
//	    Auth:       guard.AuthRequired,
//	    BodySchema: guard.MustSchema(`{"type":"object","required":["name"]}`),
//	}, createUser)
//	mux.Handle("POST /api/users", h)
//
// Handlers never touch http.ResponseWriter. They receive a *Request holding
// the authenticated user and the validated query, body, and params, and
// return a plain value (wrapped as a JSON 200), a *Response, or an error:
//
//	func createUser(ctx context.Context, req *guard.Request) (any, error) {
//	    body := req.Body.(map[string]any)
//	    return map[string]any{"id": "u1", "name": body["name"]}, nil
//	}
//
// Schemas are JSON Schema documents compiled with
// github.com/santhosh-tekuri/jsonschema/v6. Validation failures become
// structured ErrorResponse payloads with stable codes; malformed input
// (wrong content type, bad JSON) is reported as 400, semantically invalid
// input as 422.
//
// Every route declared through a Controller with documentation enabled is
// recorded in a Registry, and Generate turns the registry's contents into
// an OpenAPI document:
//
//	doc := guard.Generate(guard.DocsConfig{Title: "My API", Version: "1.0.0"}, reg.All())
package guard
