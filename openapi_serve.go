package guard

import (
	"encoding/json"
	"html/template"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// Document generates the document for the controller's registry and docs
// metadata. Controllers without docs enabled produce an empty-info document
// from the same registry.
func (c *Controller) Document() Document {
	cfg := c.Config()
	var docs DocsConfig
	if cfg.Docs != nil {
		docs = *cfg.Docs
	}
	return cfg.registry().Document(docs)
}

// ServeDocument returns a handler serving the generated document as JSON.
// The document is regenerated on every request.
func (c *Controller) ServeDocument() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
		json.NewEncoder(w).Encode(c.Document())
	})
}

// ServeDocumentYAML returns a handler serving the generated document as YAML.
func (c *Controller) ServeDocumentYAML() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		yaml.NewEncoder(w).Encode(c.Document())
	})
}

// WriteDocument writes the generated document as indented JSON.
func (c *Controller) WriteDocument(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Document())
}

// WriteDocumentYAML writes the generated document as YAML.
func (c *Controller) WriteDocumentYAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(c.Document())
}

// UIOption configures the docs UI.
type UIOption func(*uiConfig)

type uiConfig struct {
	title   string
	specURL string
}

// WithUITitle sets the page title for the docs UI.
func WithUITitle(title string) UIOption {
	return func(c *uiConfig) {
		c.title = title
	}
}

// WithSpecURL sets the URL the docs UI loads the document from.
func WithSpecURL(url string) UIOption {
	return func(c *uiConfig) {
		c.specURL = url
	}
}

// DocsUI returns a handler rendering an interactive documentation UI
// (Stoplight Elements) pointing at the served document.
func (c *Controller) DocsUI(opts ...UIOption) http.Handler {
	cfg := &uiConfig{specURL: "/openapi.json"}
	if docs := c.Config().Docs; docs != nil {
		cfg.title = docs.Title
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tmpl := template.Must(template.New("docs").Parse(docsHTML))

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		//nolint:errcheck,gosec // best-effort template render
		tmpl.Execute(w, cfg)
	})
}

const docsHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/@stoplight/elements/styles.min.css">
  <script src="https://unpkg.com/@stoplight/elements/web-components.min.js"></script>
</head>
<body>
  <elements-api
    apiDescriptionUrl="{{.SpecURL}}"
    router="hash"
    layout="sidebar"
  />
</body>
</html>`

// Title returns the docs UI title (used in the template).
func (c *uiConfig) Title() string { return c.title }

// SpecURL returns the docs UI spec URL (used in the template).
func (c *uiConfig) SpecURL() string { return c.specURL }
