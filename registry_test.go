package guard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/guard"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		want string
	}{
		"bracket segment":       {in: "/api/users/[id]", want: "/api/users/{id}"},
		"bracket catch-all":     {in: "/docs/[...slug]", want: "/docs/{slug*}"},
		"brace passthrough":     {in: "/api/users/{id}", want: "/api/users/{id}"},
		"brace ellipsis":        {in: "/docs/{slug...}", want: "/docs/{slug*}"},
		"star passthrough":      {in: "/docs/{slug*}", want: "/docs/{slug*}"},
		"static path untouched": {in: "/api/health", want: "/api/health"},
		"mixed segments":        {in: "/a/[b]/c/[...d]", want: "/a/{b}/c/{d*}"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, guard.NormalizePath(tc.in))
		})
	}
}

func TestRegistry_crud(t *testing.T) {
	t.Parallel()

	reg := guard.NewRegistry()

	reg.Register(guard.Registration{Method: "get", Path: "/a"})
	assert.Equal(t, 1, reg.Len())

	// Method is stored uppercased.
	got, ok := reg.Get("GET", "/a")
	require.True(t, ok)
	assert.Equal(t, "GET", got.Method)

	// Update only touches existing entries.
	assert.False(t, reg.Update(guard.Registration{Method: "POST", Path: "/a"}))
	assert.True(t, reg.Update(guard.Registration{
		Method:   "GET",
		Path:     "/a",
		Metadata: &guard.Metadata{Summary: "updated"},
	}))
	got, _ = reg.Get("GET", "/a")
	require.NotNil(t, got.Metadata)
	assert.Equal(t, "updated", got.Metadata.Summary)

	assert.True(t, reg.Unregister("GET", "/a"))
	assert.False(t, reg.Unregister("GET", "/a"))
	assert.Zero(t, reg.Len())
}

func TestRegistry_isolatedInstances(t *testing.T) {
	t.Parallel()

	a := guard.NewRegistry()
	b := guard.NewRegistry()

	a.Register(guard.Registration{Method: "GET", Path: "/only-a"})

	assert.Equal(t, 1, a.Len())
	assert.Zero(t, b.Len())
}

func TestRegistry_lookupMatchesNormalized(t *testing.T) {
	t.Parallel()

	reg := guard.NewRegistry()
	reg.Register(guard.Registration{Method: "GET", Path: "/api/users/[id]"})
	reg.Register(guard.Registration{Method: "DELETE", Path: "/api/users/{id}"})
	reg.Register(guard.Registration{Method: "GET", Path: "/api/other"})

	matches := reg.Lookup("/api/users/{id}")
	require.Len(t, matches, 2)
	assert.Equal(t, "DELETE", matches[0].Method)
	assert.Equal(t, "GET", matches[1].Method)
}

func TestRegistry_stats(t *testing.T) {
	t.Parallel()

	reg := guard.NewRegistry()
	reg.Register(guard.Registration{Method: "GET", Path: "/api/users"})
	reg.Register(guard.Registration{Method: "POST", Path: "/api/users"})
	reg.Register(guard.Registration{Method: "GET", Path: "/api/users/[id]"})

	stats := reg.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.UniquePaths)
	assert.Equal(t, map[string]int{"GET": 2, "POST": 1}, stats.ByMethod)
	assert.Equal(t, []string{"/api/users"}, stats.MultiMethodPaths)
}

func TestRegistry_exportImport(t *testing.T) {
	t.Parallel()

	src := guard.NewRegistry()
	src.Register(guard.Registration{
		Method: "GET",
		Path:   "/api/users/[id]",
		Config: guard.RouteConfig{
			Auth:      guard.AuthRequired,
			Roles:     []string{"admin"},
			Metadata:  &guard.Metadata{Summary: "Fetch user"},
			RateLimit: &guard.RateLimit{Rate: 10, Burst: 5},
		},
	})

	snap := src.Export()
	require.Len(t, snap.Routes, 1)
	route := snap.Routes[0]
	assert.Equal(t, guard.AuthRequired, route.Auth)
	assert.Equal(t, []string{"admin"}, route.Roles)
	require.NotNil(t, route.RateLimit)
	assert.Equal(t, float64(10), route.RateLimit.Rate)

	dst := guard.NewRegistry()
	dst.Import(snap)

	got, ok := dst.Get("GET", "/api/users/[id]")
	require.True(t, ok)
	assert.Equal(t, guard.AuthRequired, got.Config.Auth)
	require.NotNil(t, got.Config.Metadata)
	assert.Equal(t, "Fetch user", got.Config.Metadata.Summary)
	assert.Nil(t, got.Config.BodySchema, "snapshots never carry schemas")
}

func TestRegistry_validate(t *testing.T) {
	t.Parallel()

	t.Run("clean registry has no problems", func(t *testing.T) {
		t.Parallel()

		reg := guard.NewRegistry()
		reg.Register(guard.Registration{Method: "GET", Path: "/ok"})
		assert.Empty(t, reg.Validate())
	})

	t.Run("unknown method", func(t *testing.T) {
		t.Parallel()

		reg := guard.NewRegistry()
		reg.Register(guard.Registration{Method: "FETCH", Path: "/x"})

		problems := reg.Validate()
		require.Len(t, problems, 1)
		assert.Contains(t, problems[0], "unknown method")
	})

	t.Run("missing path", func(t *testing.T) {
		t.Parallel()

		reg := guard.NewRegistry()
		reg.Register(guard.Registration{Method: "GET"})

		problems := reg.Validate()
		require.Len(t, problems, 1)
		assert.Contains(t, problems[0], "missing path")
	})

	t.Run("colliding normalized paths", func(t *testing.T) {
		t.Parallel()

		reg := guard.NewRegistry()
		reg.Register(guard.Registration{Method: "GET", Path: "/api/users/[id]"})
		reg.Register(guard.Registration{Method: "GET", Path: "/api/users/{id}"})

		problems := reg.Validate()
		require.Len(t, problems, 1)
		assert.Contains(t, problems[0], "collapse")
	})
}

func TestRegistry_clear(t *testing.T) {
	t.Parallel()

	reg := guard.NewRegistry()
	reg.Register(guard.Registration{Method: "GET", Path: "/a"})
	reg.Register(guard.Registration{Method: "GET", Path: "/b"})
	require.Equal(t, 2, reg.Len())

	reg.Clear()
	assert.Zero(t, reg.Len())
	assert.Empty(t, reg.All())
}
