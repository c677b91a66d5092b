// Package guardtest provides typed test helpers for the guard pipeline.
package guardtest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bjaus/guard"
)

// Client wraps an httptest.Server for convenient pipeline testing. Mount
// pipelines on a mux (with guard.MuxPattern for parameterized paths) and
// pass the mux in.
type Client struct {
	Server *httptest.Server
}

// NewClient creates a test client serving h.
func NewClient(t testing.TB, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Response holds a decoded pipeline response.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Body    *T
	Raw     *http.Response
}

// Err decodes the response body as a guard error payload. It fails the
// test when the body is not a well-formed error shape.
func Err[T any](t testing.TB, resp *Response[T]) *guard.ErrorResponse {
	t.Helper()
	if resp.Body == nil {
		t.Fatal("guardtest: response has no body")
	}
	raw, err := json.Marshal(resp.Body)
	if err != nil {
		t.Fatalf("guardtest: re-marshal body: %v", err)
	}
	var e guard.ErrorResponse
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("guardtest: decode error body: %v", err)
	}
	return &e
}

// Get sends a typed GET request.
func Get[Resp any](t testing.TB, c *Client, path string, opts ...func(*http.Request)) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodGet, path, nil, opts...)
}

// Post sends a typed POST request with a JSON body.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...func(*http.Request)) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPost, path, body, opts...)
}

// Put sends a typed PUT request with a JSON body.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...func(*http.Request)) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPut, path, body, opts...)
}

// Patch sends a typed PATCH request with a JSON body.
func Patch[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...func(*http.Request)) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPatch, path, body, opts...)
}

// Delete sends a typed DELETE request.
func Delete[Resp any](t testing.TB, c *Client, path string, opts ...func(*http.Request)) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodDelete, path, nil, opts...)
}

// WithHeader returns a request option setting a header.
func WithHeader(key, value string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithBearer returns a request option setting a bearer Authorization header.
func WithBearer(token string) func(*http.Request) {
	return WithHeader("Authorization", "Bearer "+token)
}

func do[Resp any](t testing.TB, c *Client, method, path string, body any, opts ...func(*http.Request)) *Response[Resp] {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("guardtest: marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("guardtest: create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("guardtest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("guardtest: close body: %v", closeErr)
		}
	}()

	result := &Response[Resp]{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Raw:     resp,
	}

	if resp.StatusCode != http.StatusNoContent && resp.ContentLength != 0 {
		var decoded Resp
		if decErr := json.NewDecoder(resp.Body).Decode(&decoded); decErr != nil && decErr != io.EOF {
			return result
		}
		result.Body = &decoded
	}

	return result
}
