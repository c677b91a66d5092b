package guard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// checkResponse diagnostically validates the handler's response against the
// route's declared response schema. It never alters the response unless
// StrictResponses is set; mismatches are logged so handler/schema drift
// surfaces during development.
func (p *pipeline) checkResponse(r *http.Request, resp *Response) *Response {
	if !p.cfg.validateResponses(p.route) {
		return resp
	}
	if p.route.ResponseSchemas == nil && p.route.ResponseSchema == nil {
		return resp
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}

	schema := p.route.ResponseSchema
	if p.route.ResponseSchemas != nil {
		declared, ok := p.route.ResponseSchemas[status]
		if !ok {
			p.cfg.logger().Warn("response check: no schema for status",
				"code", CodeNoSchemaForStatus,
				"status", status,
				"method", r.Method,
				"path", r.URL.Path,
			)
			return resp
		}
		schema = declared
	}

	value, ok, err := responseValue(resp)
	if err != nil {
		p.cfg.logger().Warn("response check: body not inspectable",
			"error", err,
			"status", status,
			"method", r.Method,
			"path", r.URL.Path,
		)
		return resp
	}
	if !ok {
		// Non-JSON content is not deep-inspected.
		return resp
	}

	res := schema.Parse(value)
	if res.OK {
		return resp
	}

	p.cfg.logger().Warn("response check: schema mismatch",
		"status", status,
		"issues", len(res.Issues),
		"first", firstIssue(res.Issues),
		"method", r.Method,
		"path", r.URL.Path,
	)

	if p.cfg.StrictResponses {
		return p.internalError(r, errors.New("response failed schema validation"))
	}
	return resp
}

// responseValue extracts the JSON value of a response body for validation,
// without consuming anything the caller still needs. The second return is
// false when the body is a non-JSON payload that should not be inspected.
func responseValue(resp *Response) (any, bool, error) {
	if raw, isBytes := resp.Body.([]byte); isBytes {
		ct := resp.Header.Get("Content-Type")
		if ct != "" && !strings.Contains(ct, "json") {
			return nil, false, nil
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, false, err
		}
		return value, true, nil
	}

	// Marshal-roundtrip so the schema sees exactly what goes on the wire.
	raw, err := json.Marshal(resp.Body)
	if err != nil {
		return nil, false, err
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func firstIssue(issues []ValidationError) string {
	if len(issues) == 0 {
		return ""
	}
	return issues[0].Message
}
