package guard

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// DocsConfig holds the static metadata for generated documents. Setting it
// on a Controller's Config enables route registration.
type DocsConfig struct {
	Title       string
	Version     string
	Description string
	Servers     []Server

	// TagDescriptions supplies descriptions for the document's tag list.
	TagDescriptions map[string]string
}

// Document is an OpenAPI 3.0.3 description document.
type Document struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components *Components         `json:"components,omitempty"`
	Tags       []Tag               `json:"tags,omitempty"`
}

// Info holds API metadata.
type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Server describes an API server.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem maps lowercase HTTP methods to operations.
type PathItem map[string]Operation

// Operation describes a single API operation on a path.
type Operation struct {
	Summary     string                `json:"summary,omitempty"`
	Description string                `json:"description,omitempty"`
	OperationID string                `json:"operationId,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	Deprecated  bool                  `json:"deprecated,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"requestBody,omitempty"`
	Responses   map[string]ResponseObj `json:"responses"`
	Security    []SecurityRequirement `json:"security,omitempty"`

	// XRateLimit surfaces the route's declared (unenforced) rate limit.
	XRateLimit *RateLimit `json:"x-rate-limit,omitempty"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string         `json:"name"`
	In          string         `json:"in"`
	Description string         `json:"description,omitempty"`
	Required    bool           `json:"required,omitempty"`
	Schema      map[string]any `json:"schema,omitempty"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Required bool                `json:"required"`
	Content  map[string]MediaObj `json:"content"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema map[string]any `json:"schema,omitempty"`
}

// ResponseObj describes a single response.
type ResponseObj struct {
	Description string              `json:"description"`
	Content     map[string]MediaObj `json:"content,omitempty"`
}

// SecurityRequirement maps scheme names to required scopes. An empty
// requirement object means "no authentication".
type SecurityRequirement map[string][]string

// Components holds the document's shared component definitions.
type Components struct {
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes,omitempty"`
}

// SecurityScheme describes a security scheme.
type SecurityScheme struct {
	Type         string `json:"type"`
	Scheme       string `json:"scheme,omitempty"`
	BearerFormat string `json:"bearerFormat,omitempty"`
}

// Tag is a documented tag.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

const bearerScheme = "bearerAuth"

// Generate projects a route list into a complete document. It is a pure
// function of its inputs and fully regenerates the document on every call.
func Generate(cfg DocsConfig, routes []Registration) Document {
	doc := Document{
		OpenAPI: "3.0.3",
		Info: Info{
			Title:       cfg.Title,
			Version:     cfg.Version,
			Description: cfg.Description,
		},
		Servers: cfg.Servers,
		Paths:   make(map[string]PathItem),
	}

	tagSet := make(map[string]bool)
	needsBearer := false

	for i := range routes {
		reg := &routes[i]
		path := NormalizePath(reg.Path)
		method := strings.ToLower(reg.Method)

		op := buildOperation(reg, path, &needsBearer)
		for _, tag := range op.Tags {
			tagSet[tag] = true
		}

		if doc.Paths[path] == nil {
			doc.Paths[path] = make(PathItem)
		}
		doc.Paths[path][method] = op
	}

	// The shared bearer scheme is added once, the first time any
	// operation needs it.
	if needsBearer {
		doc.Components = &Components{
			SecuritySchemes: map[string]SecurityScheme{
				bearerScheme: {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
			},
		}
	}

	tags := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		doc.Tags = append(doc.Tags, Tag{Name: tag, Description: cfg.TagDescriptions[tag]})
	}

	return doc
}

// Document generates a document from the registry's current contents.
func (g *Registry) Document(cfg DocsConfig) Document {
	return Generate(cfg, g.All())
}

func buildOperation(reg *Registration, normalizedPath string, needsBearer *bool) Operation {
	op := Operation{
		Responses:  make(map[string]ResponseObj),
		XRateLimit: reg.Config.RateLimit,
	}

	if meta := reg.metadata(); meta != nil {
		op.Summary = meta.Summary
		op.Description = meta.Description
		op.OperationID = meta.OperationID
		op.Deprecated = meta.Deprecated
		op.Tags = dedupeTags(meta.Tags)
	}

	op.Parameters = append(op.Parameters, queryParameters(reg.Config.QuerySchema)...)
	op.Parameters = append(op.Parameters, pathParameters(normalizedPath, reg.Config.ParamsSchema)...)

	if reg.Config.BodySchema != nil && bodyMethod(reg.Method) {
		op.RequestBody = &RequestBody{
			Required: true,
			Content: map[string]MediaObj{
				"application/json": {Schema: schemaDoc(reg.Config.BodySchema)},
			},
		}
	}

	buildResponses(reg, op.Responses)
	op.Security = securityFor(reg, needsBearer)

	return op
}

// buildResponses fills the operation responses from the status map or the
// single default schema, always supplementing generic 400/500 entries.
func buildResponses(reg *Registration, responses map[string]ResponseObj) {
	switch {
	case len(reg.Config.ResponseSchemas) > 0:
		for status, schema := range reg.Config.ResponseSchemas {
			responses[strconv.Itoa(status)] = ResponseObj{
				Description: http.StatusText(status),
				Content: map[string]MediaObj{
					"application/json": {Schema: schemaDoc(schema)},
				},
			}
		}
	case reg.Config.ResponseSchema != nil:
		responses["200"] = ResponseObj{
			Description: "Successful response",
			Content: map[string]MediaObj{
				"application/json": {Schema: schemaDoc(reg.Config.ResponseSchema)},
			},
		}
	default:
		responses["200"] = ResponseObj{Description: "Successful response"}
	}

	if _, ok := responses["400"]; !ok {
		responses["400"] = ResponseObj{Description: "Bad request"}
	}
	if _, ok := responses["500"]; !ok {
		responses["500"] = ResponseObj{Description: "Internal server error"}
	}
}

// securityFor derives the operation's security requirements. Metadata
// scheme names override the auth-derived requirement; AuthOptional is
// expressed as bearer-or-nothing.
func securityFor(reg *Registration, needsBearer *bool) []SecurityRequirement {
	if meta := reg.metadata(); meta != nil && len(meta.Security) > 0 {
		reqs := make([]SecurityRequirement, 0, len(meta.Security))
		for _, scheme := range meta.Security {
			if scheme == bearerScheme {
				*needsBearer = true
			}
			reqs = append(reqs, SecurityRequirement{scheme: {}})
		}
		return reqs
	}

	switch reg.Config.Auth {
	case AuthRequired:
		*needsBearer = true
		return []SecurityRequirement{{bearerScheme: {}}}
	case AuthOptional:
		*needsBearer = true
		return []SecurityRequirement{{bearerScheme: {}}, {}}
	default:
		return nil
	}
}

// queryParameters derives one "in: query" parameter per top-level property
// of the query schema, required-ness taken from the schema's required set.
func queryParameters(schema Schema) []Parameter {
	if schema == nil {
		return nil
	}
	doc := schemaDoc(schema)

	props, _ := doc["properties"].(map[string]any)
	if len(props) == 0 {
		return nil
	}

	required := make(map[string]bool)
	if list, ok := doc["required"].([]any); ok {
		for _, name := range list {
			if s, ok := name.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]Parameter, 0, len(names))
	for _, name := range names {
		p := Parameter{Name: name, In: "query", Required: required[name]}
		if prop, ok := props[name].(map[string]any); ok {
			p.Schema = prop
			if desc, ok := prop["description"].(string); ok {
				p.Description = desc
			}
		}
		params = append(params, p)
	}
	return params
}

// pathParameters derives one required "in: path" parameter per placeholder
// in the normalized path, merged with any declared params schema.
func pathParameters(normalizedPath string, schema Schema) []Parameter {
	var declared map[string]any
	if schema != nil {
		declared, _ = schemaDoc(schema)["properties"].(map[string]any)
	}

	var params []Parameter
	for _, p := range pathParamNames(normalizedPath) {
		param := Parameter{
			Name:     p.name,
			In:       "path",
			Required: true,
			Schema:   map[string]any{"type": "string"},
		}
		if prop, ok := declared[p.name].(map[string]any); ok {
			param.Schema = prop
			if desc, ok := prop["description"].(string); ok {
				param.Description = desc
			}
		}
		params = append(params, param)
	}
	return params
}

// schemaDoc returns a schema's raw document, or a generic object schema
// for schemas that cannot expose one.
func schemaDoc(schema Schema) map[string]any {
	if dp, ok := schema.(DocumentProvider); ok {
		if doc := dp.Document(); doc != nil {
			return doc
		}
	}
	return map[string]any{"type": "object"}
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
