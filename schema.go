package guard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Schema is the parse contract consumed by the pipeline. Parse validates a
// decoded JSON value and reports either success with the validated value or
// failure with a list of portable issues.
type Schema interface {
	Parse(v any) Result
}

// Result is the uniform outcome of a schema parse.
type Result struct {
	OK     bool
	Value  any
	Issues []ValidationError
}

// ValidationError describes a single schema violation in a shape that is
// independent of the validation library that produced it. Path segments are
// strings for object properties and ints for array indices.
type ValidationError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Path     []any  `json:"path"`
	Expected string `json:"expected,omitempty"`
	Received string `json:"received,omitempty"`
}

// DocumentProvider is optionally implemented by schemas that can expose
// their raw JSON Schema document. The OpenAPI generator uses it to project
// parameters and bodies; schemas without it are documented generically.
type DocumentProvider interface {
	Document() map[string]any
}

// JSONSchema is a Schema backed by a compiled JSON Schema document.
type JSONSchema struct {
	compiled *jsonschema.Schema
	doc      map[string]any
}

// CompileSchema compiles a JSON Schema document from its JSON source.
func CompileSchema(source string) (*JSONSchema, error) {
	var doc any
	if err := json.Unmarshal([]byte(source), &doc); err != nil {
		return nil, fmt.Errorf("invalid schema JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()
	compiler.AssertContent()

	if err := compiler.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	s := &JSONSchema{compiled: compiled}
	if m, ok := doc.(map[string]any); ok {
		s.doc = m
	}
	return s, nil
}

// MustSchema compiles a JSON Schema document and panics on error.
// For use with literal schema sources at route-definition time.
func MustSchema(source string) *JSONSchema {
	s, err := CompileSchema(source)
	if err != nil {
		panic(fmt.Sprintf("guard: %v", err))
	}
	return s
}

// Parse validates v against the compiled schema.
func (s *JSONSchema) Parse(v any) Result {
	err := s.compiled.Validate(v)
	if err == nil {
		return Result{OK: true, Value: v}
	}

	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return Result{Issues: []ValidationError{{
			Code:    "invalid",
			Message: err.Error(),
		}}}
	}

	var issues []ValidationError
	collectIssues(verr, &issues)
	return Result{Issues: issues}
}

// Document returns the raw schema document, or nil if the source was not a
// JSON object.
func (s *JSONSchema) Document() map[string]any { return s.doc }

// collectIssues flattens the library's error tree into leaf issues.
func collectIssues(verr *jsonschema.ValidationError, issues *[]ValidationError) {
	if verr == nil {
		return
	}
	if len(verr.Causes) == 0 {
		*issues = append(*issues, leafIssue(verr))
		return
	}
	for _, cause := range verr.Causes {
		collectIssues(cause, issues)
	}
}

var issuePrinter = message.NewPrinter(language.English)

// leafIssue translates a single library error into the portable shape.
// The kind type identifies the violated keyword; LocalizedString renders
// the human-readable detail the same way the library's Error() does.
func leafIssue(verr *jsonschema.ValidationError) ValidationError {
	issue := ValidationError{
		Code:    "invalid",
		Message: verr.ErrorKind.LocalizedString(issuePrinter),
		Path:    issuePath(verr.InstanceLocation),
	}

	switch k := verr.ErrorKind.(type) {
	case *kind.Type:
		issue.Code = "invalid_type"
		issue.Received = k.Got
		issue.Expected = strings.Join(k.Want, " or ")
	case *kind.Required:
		issue.Code = "required"
	case *kind.Enum, *kind.Const:
		issue.Code = "invalid_enum"
	case *kind.MinLength, *kind.MaxLength:
		issue.Code = "invalid_length"
	case *kind.Format, *kind.Pattern:
		issue.Code = "invalid_format"
	}

	return issue
}

// issuePath converts the library's instance location into path segments,
// promoting numeric segments to array indices.
func issuePath(location []string) []any {
	path := make([]any, 0, len(location))
	for _, seg := range location {
		if n, err := strconv.Atoi(seg); err == nil {
			path = append(path, n)
			continue
		}
		path = append(path, seg)
	}
	return path
}
