package guard_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/guard"
)

func TestResponse_rawBytes(t *testing.T) {
	t.Parallel()

	c := guard.New(guard.Config{})

	t.Run("default content type is octet-stream", func(t *testing.T) {
		t.Parallel()

		h := c.Get("/raw", guard.RouteConfig{}, func(_ context.Context, _ *guard.Request) (any, error) {
			return guard.JSON(http.StatusOK, []byte("raw bytes")), nil
		})

		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)

		resp, err := http.Get(srv.URL + "/raw")
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })

		assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "raw bytes", string(body), "byte bodies are written verbatim, not JSON-encoded")
	})

	t.Run("explicit content type wins", func(t *testing.T) {
		t.Parallel()

		h := c.Get("/csv", guard.RouteConfig{}, func(_ context.Context, _ *guard.Request) (any, error) {
			return guard.JSON(http.StatusOK, []byte("a,b\n1,2\n")).WithHeader("Content-Type", "text/csv"), nil
		})

		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)

		resp, err := http.Get(srv.URL + "/csv")
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })

		assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	})
}

func TestResponse_zeroStatusDefaultsTo200(t *testing.T) {
	t.Parallel()

	c := guard.New(guard.Config{})
	h := c.Get("/default", guard.RouteConfig{}, func(_ context.Context, _ *guard.Request) (any, error) {
		return &guard.Response{Body: map[string]string{"ok": "yes"}}, nil
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/default")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
