package guard

import (
	"encoding/json"
	"net/http"
)

// Response is an explicit handler response: status, headers, and a body
// that is JSON-encoded on write. Handlers that return any other value get
// a default JSON 200 wrapper instead.
type Response struct {
	Status int
	Header http.Header
	Body   any
}

// JSON returns a Response with the given status and JSON body.
func JSON(status int, body any) *Response {
	return &Response{Status: status, Body: body}
}

// WithHeader sets a response header and returns the response.
func (resp *Response) WithHeader(key, value string) *Response {
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Header.Set(key, value)
	return resp
}

// normalize converts a handler's return value into a Response. A *Response
// passes through, nil becomes 204 No Content, anything else becomes a JSON
// 200 wrapping the value.
func normalize(v any) *Response {
	switch resp := v.(type) {
	case *Response:
		return resp
	case nil:
		return &Response{Status: http.StatusNoContent}
	default:
		return JSON(http.StatusOK, v)
	}
}

// write serializes the response onto the wire. Bodies that are already raw
// bytes are written as-is; everything else is JSON-encoded.
func (resp *Response) write(w http.ResponseWriter) {
	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}

	if resp.Body == nil {
		w.WriteHeader(status)
		return
	}

	if raw, ok := resp.Body.([]byte); ok {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		w.WriteHeader(status)
		//nolint:errcheck,gosec // best-effort after WriteHeader
		w.Write(raw)
		return
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(resp.Body)
}
