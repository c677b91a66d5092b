// Command sample demonstrates the github.com/bjaus/guard pipeline
// with a realistic users API covering every major feature.
//
// Run:
//
//	go run ./cmd/sample
//
// Generate the OpenAPI document:
//
//	go run ./cmd/sample -spec                        — print to stdout
//	go run ./cmd/sample -spec -o openapi.json        — write to file
//	go run ./cmd/sample -spec -yaml                  — print YAML instead
//
// Then explore:
//
//	GET    http://localhost:8080/openapi.json         — OpenAPI document
//	GET    http://localhost:8080/docs                 — interactive docs UI
//	GET    http://localhost:8080/v1/health            — health check
//	GET    http://localhost:8080/v1/users             — list users (q, role, limit)
//	POST   http://localhost:8080/v1/users             — create user (auth required)
//	GET    http://localhost:8080/v1/users/{id}        — get user (auth optional)
//	PUT    http://localhost:8080/v1/users/{id}        — update user (auth required)
//	DELETE http://localhost:8080/v1/users/{id}        — delete user (admin role)
//
// Authenticate with "Authorization: Bearer admin-token" or "Bearer member-token".
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/bjaus/guard"
)

func main() {
	specFlag := flag.Bool("spec", false, "Print the OpenAPI document and exit")
	yamlFlag := flag.Bool("yaml", false, "Emit YAML instead of JSON (requires -spec)")
	outFlag := flag.String("o", "", "Output file for the document (requires -spec)")
	flag.Parse()

	controller := newController()
	mux := newMux(controller)

	if *specFlag {
		if err := writeSpec(controller, *outFlag, *yamlFlag); err != nil {
			slog.Error("spec generation failed", "err", err)
			os.Exit(1)
		}
		return
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	handler := guard.RequestID()(guard.Logger(slog.Default())(guard.Throttle(guard.ThrottleConfig{
		RateLimit: guard.RateLimit{Rate: 50, Burst: 100},
	})(mux)))

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		//nolint:errcheck // best-effort shutdown
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting server", "addr", srv.Addr, "spec", "http://localhost:8080/openapi.json")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
	}

	slog.Info("server stopped")
}

func newController() *guard.Controller {
	return guard.New(guard.Config{
		Auth:     &tokenProvider{},
		Mode:     guard.ModeDevelopment,
		Registry: guard.NewRegistry(),
		Docs: &guard.DocsConfig{
			Title:       "Sample Users API",
			Version:     "1.0.0",
			Description: "Demonstrates the guard request pipeline.",
			Servers:     []guard.Server{{URL: "http://localhost:8080"}},
			TagDescriptions: map[string]string{
				"users": "User management",
				"ops":   "Operational endpoints",
			},
		},
	})
}

func newMux(c *guard.Controller) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/openapi.json", c.ServeDocument())
	mux.Handle("/openapi.yaml", c.ServeDocumentYAML())
	mux.Handle("/docs", c.DocsUI())

	mux.Handle("/v1/health", c.Get("/v1/health", guard.RouteConfig{
		Metadata: &guard.Metadata{Summary: "Health check", Tags: []string{"ops"}},
	}, handleHealth))

	mux.Handle("/v1/users", c.Routes("/v1/users", map[string]guard.RouteHandler{
		http.MethodGet: {
			Config: guard.RouteConfig{
				QuerySchema: listUsersQuery,
				Metadata:    &guard.Metadata{Summary: "List users", Tags: []string{"users"}},
			},
			Handler: handleListUsers,
		},
		http.MethodPost: {
			Config: guard.RouteConfig{
				Auth:           guard.AuthRequired,
				BodySchema:     createUserBody,
				ResponseSchema: userSchema,
				RateLimit:      &guard.RateLimit{Rate: 5, Burst: 10},
				Metadata:       &guard.Metadata{Summary: "Create user", Tags: []string{"users"}},
			},
			Handler: handleCreateUser,
		},
	}))

	userPath := "/v1/users/[id]"
	mux.Handle("GET "+guard.MuxPattern(userPath), c.Get(userPath, guard.RouteConfig{
		Auth:           guard.AuthOptional,
		ParamsSchema:   userIDParams,
		ResponseSchema: userSchema,
		Metadata:       &guard.Metadata{Summary: "Get user by ID", Tags: []string{"users"}},
	}, handleGetUser))
	mux.Handle("PUT "+guard.MuxPattern(userPath), c.Put(userPath, guard.RouteConfig{
		Auth:           guard.AuthRequired,
		ParamsSchema:   userIDParams,
		BodySchema:     updateUserBody,
		ResponseSchema: userSchema,
		Metadata:       &guard.Metadata{Summary: "Update user", Tags: []string{"users"}},
	}, handleUpdateUser))
	mux.Handle("DELETE "+guard.MuxPattern(userPath), c.Delete(userPath, guard.RouteConfig{
		Auth:         guard.AuthRequired,
		Roles:        []string{"admin"},
		ParamsSchema: userIDParams,
		Metadata:     &guard.Metadata{Summary: "Delete user", Tags: []string{"users"}},
	}, handleDeleteUser))

	mux.Handle("/", guard.NotFoundHandler())
	return mux
}

func writeSpec(c *guard.Controller, outFile string, asYAML bool) error {
	w := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile) //nolint:gosec // user-provided CLI flag
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				slog.Error("failed to close output file", "err", err)
			}
		}()
		w = f
	}
	if asYAML {
		return c.WriteDocumentYAML(w)
	}
	return c.WriteDocument(w)
}

// ---------------------------------------------------------------------------
// Schemas
// ---------------------------------------------------------------------------

var listUsersQuery = guard.MustSchema(`{
	"type": "object",
	"properties": {
		"q": {"type": "string", "description": "Search terms"},
		"role": {"enum": ["admin", "member"], "description": "Filter by role"},
		"limit": {"type": "string", "pattern": "^[0-9]+$", "description": "Max results"}
	}
}`)

var createUserBody = guard.MustSchema(`{
	"type": "object",
	"properties": {
		"name": {"type": "string", "minLength": 1, "description": "Display name"},
		"email": {"type": "string", "format": "email", "description": "Email address"},
		"role": {"enum": ["admin", "member"], "description": "User role"}
	},
	"required": ["name", "email"]
}`)

var updateUserBody = guard.MustSchema(`{
	"type": "object",
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"email": {"type": "string", "format": "email"},
		"role": {"enum": ["admin", "member"]}
	}
}`)

var userIDParams = guard.MustSchema(`{
	"type": "object",
	"properties": {
		"id": {"type": "string", "pattern": "^[0-9]+$", "description": "User ID"}
	},
	"required": ["id"]
}`)

var userSchema = guard.MustSchema(`{
	"type": "object",
	"properties": {
		"id": {"type": "string"},
		"name": {"type": "string"},
		"email": {"type": "string"},
		"role": {"type": "string"},
		"created_at": {"type": "string"}
	},
	"required": ["id", "name", "email", "role"]
}`)

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// tokenProvider authenticates static bearer tokens and resolves their roles.
type tokenProvider struct{}

func (tokenProvider) Authenticate(_ context.Context, r *http.Request) (any, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, errors.New("malformed Authorization header")
	}
	switch token {
	case "admin-token":
		return &Principal{Name: "admin", Role: "admin"}, nil
	case "member-token":
		return &Principal{Name: "member", Role: "member"}, nil
	default:
		return nil, errors.New("unknown token")
	}
}

func (tokenProvider) Roles(_ context.Context, user any) ([]string, error) {
	p, ok := user.(*Principal)
	if !ok {
		return nil, errors.New("unexpected principal type")
	}
	return []string{p.Role}, nil
}

// Principal is the authenticated caller.
type Principal struct {
	Name string
	Role string
}

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

var store = &userStore{
	users: map[string]*User{
		"1": {ID: "1", Name: "Alice", Email: "alice@example.com", Role: "admin", CreatedAt: time.Now()},
		"2": {ID: "2", Name: "Bob", Email: "bob@example.com", Role: "member", CreatedAt: time.Now()},
	},
	nextID: 3,
}

type userStore struct {
	mu     sync.RWMutex
	users  map[string]*User
	nextID int
}

func (s *userStore) list(role string) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, *u)
	}
	return out
}

func (s *userStore) get(id string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

func (s *userStore) create(name, email, role string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{
		ID:        fmt.Sprintf("%d", s.nextID),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.users[u.ID] = u
	cp := *u
	return &cp
}

func (s *userStore) update(id, name, email, role string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	if name != "" {
		u.Name = name
	}
	if email != "" {
		u.Email = email
	}
	if role != "" {
		u.Role = role
	}
	cp := *u
	return &cp, true
}

func (s *userStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

// User is the core domain entity.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func handleHealth(_ context.Context, _ *guard.Request) (any, error) {
	return map[string]any{"status": "ok", "time": time.Now()}, nil
}

func handleListUsers(_ context.Context, req *guard.Request) (any, error) {
	role, _ := req.Query["role"].(string)
	users := store.list(role)
	return map[string]any{"users": users, "total": len(users)}, nil
}

func handleCreateUser(_ context.Context, req *guard.Request) (any, error) {
	body, _ := req.Body.(map[string]any)
	name, _ := body["name"].(string)
	email, _ := body["email"].(string)
	role, _ := body["role"].(string)
	if role == "" {
		role = "member"
	}
	user := store.create(name, email, role)
	return guard.JSON(http.StatusCreated, user), nil
}

func handleGetUser(_ context.Context, req *guard.Request) (any, error) {
	id, _ := req.Params["id"].(string)
	user, ok := store.get(id)
	if !ok {
		return nil, guard.Errorf(http.StatusNotFound, "user %s not found", id)
	}
	return user, nil
}

func handleUpdateUser(_ context.Context, req *guard.Request) (any, error) {
	id, _ := req.Params["id"].(string)
	body, _ := req.Body.(map[string]any)
	name, _ := body["name"].(string)
	email, _ := body["email"].(string)
	role, _ := body["role"].(string)

	user, ok := store.update(id, name, email, role)
	if !ok {
		return nil, guard.Errorf(http.StatusNotFound, "user %s not found", id)
	}
	return user, nil
}

func handleDeleteUser(_ context.Context, req *guard.Request) (any, error) {
	id, _ := req.Params["id"].(string)
	if !store.delete(id) {
		return nil, guard.Errorf(http.StatusNotFound, "user %s not found", id)
	}
	return nil, nil
}
