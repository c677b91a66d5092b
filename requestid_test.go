package guard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/guard"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg      []guard.RequestIDConfig
		header   string
		incoming string
		wantID   string
	}{
		"generates an ID": {
			header: "X-Request-ID",
		},
		"echoes the incoming ID": {
			header:   "X-Request-ID",
			incoming: "abc-123",
			wantID:   "abc-123",
		},
		"custom header": {
			cfg:      []guard.RequestIDConfig{{Header: "X-Trace-ID"}},
			header:   "X-Trace-ID",
			incoming: "trace-9",
			wantID:   "trace-9",
		},
		"custom generator": {
			cfg:    []guard.RequestIDConfig{{Generator: func() string { return "fixed" }}},
			header: "X-Request-ID",
			wantID: "fixed",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var seen string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = guard.GetRequestID(r)
				w.WriteHeader(http.StatusOK)
			})

			srv := httptest.NewServer(guard.RequestID(tc.cfg...)(handler))
			t.Cleanup(srv.Close)

			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
			require.NoError(t, err)
			if tc.incoming != "" {
				req.Header.Set(tc.header, tc.incoming)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())

			got := resp.Header.Get(tc.header)
			assert.NotEmpty(t, got)
			assert.Equal(t, got, seen, "context ID matches the response header")
			if tc.wantID != "" {
				assert.Equal(t, tc.wantID, got)
			}
		})
	}
}

func TestGetRequestID_withoutMiddleware(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, guard.GetRequestID(r))
}
