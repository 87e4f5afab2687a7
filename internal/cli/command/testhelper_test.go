package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/libcat-go/internal/core/domain"
	"github.com/yndnr/libcat-go/internal/storage/credential"
)

const (
	userToken  = "7|userTokenSecretValue123"
	adminToken = "8|adminTokenSecretValue456"
)

// mockServer is a catalog backend keyed by "METHOD /path".
type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
}

// newMockServer creates a new mock server.
func newMockServer(t *testing.T) *mockServer {
	m := &mockServer{
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		m.mu.Lock()
		m.hits[key]++
		handler, ok := m.handlers[key]
		m.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// handle registers a handler for method and path.
func (m *mockServer) handle(method, path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method+" "+path] = handler
}

// count returns how often method and path were requested.
func (m *mockServer) count(method, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[method+" "+path]
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResponse writes an error response.
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"message": message})
}

// bearer wraps handler with a check of the Authorization header.
func bearer(token string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			errorResponse(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		handler(w, r)
	}
}

// withProfile serves GET /profile for token.
func (m *mockServer) withProfile(token string, user domain.User) {
	m.handle(http.MethodGet, "/profile", bearer(token, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{"status": "success", "data": user})
	}))
}

// withBooks serves GET /books for token.
func (m *mockServer) withBooks(token string) {
	m.handle(http.MethodGet, "/books", bearer(token, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{"data": sampleBooks()})
	}))
}

func sampleUser() domain.User {
	return domain.User{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com", Role: domain.RoleUser, Status: domain.AccountActive}
}

func sampleAdmin() domain.User {
	return domain.User{ID: 2, Name: "Grace Hopper", Email: "grace@example.com", Role: domain.RoleAdmin, Status: domain.AccountActive}
}

func sampleBooks() []domain.Book {
	return []domain.Book{
		{ID: 1, Title: "Dune", Author: "Frank Herbert", Status: domain.BookAvailable},
		{ID: 2, Title: "Emma", Author: "Jane Austen", ISBN: "9780141439587", Status: domain.BookBorrowed},
		{ID: 3, Title: "Persuasion", Author: "Jane Austen", Status: domain.BookAvailable},
	}
}

// harness runs the CLI against a mock backend with a private config and
// credential file.
type harness struct {
	t      *testing.T
	server *mockServer
	dir    string
	config string
	store  *credential.FileStore
	stdin  string
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	srv := newMockServer(t)
	credPath := filepath.Join(dir, "credential.yaml")

	cfg := fmt.Sprintf(`api:
  server: %s
  timeout: 5s
credentials:
  backend: file
  path: %s
console:
  history_file: %s
  watch_credentials: false
`, srv.URL, credPath, filepath.Join(dir, "history"))

	cfgPath := filepath.Join(dir, "cli.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &harness{
		t:      t,
		server: srv,
		dir:    dir,
		config: cfgPath,
		store:  credential.NewFileStore(credPath, ""),
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
	}
}

// watchCredentials turns on the console credential watcher in the config.
func (h *harness) watchCredentials() {
	h.t.Helper()
	data, err := os.ReadFile(h.config)
	if err != nil {
		h.t.Fatalf("read config: %v", err)
	}
	data = bytes.Replace(data, []byte("watch_credentials: false"), []byte("watch_credentials: true"), 1)
	if err := os.WriteFile(h.config, data, 0o600); err != nil {
		h.t.Fatalf("write config: %v", err)
	}
}

// openEnv opens an environment on the harness config without running a
// command.
func (h *harness) openEnv() *Env {
	h.t.Helper()
	env := newEnv(&GlobalFlags{Config: h.config, NoSpinner: true},
		&options{in: strings.NewReader(""), out: h.out, err: h.errOut})
	if err := env.Open(); err != nil {
		h.t.Fatalf("open env: %v", err)
	}
	h.t.Cleanup(func() { env.Close() })
	return env
}

// eventually polls cond until it holds or a second has passed.
func eventually(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

// run executes one command line.
func (h *harness) run(args ...string) error {
	h.t.Helper()
	h.out.Reset()
	h.errOut.Reset()

	app := App(WithStreams(strings.NewReader(h.stdin), h.out, h.errOut))
	full := append([]string{"libcat-cli", "--config", h.config, "--no-spinner"}, args...)
	return app.Run(full)
}

// signIn stores token as if a previous login had succeeded.
func (h *harness) signIn(token string) {
	h.t.Helper()
	cookie := credential.NewCookie(credential.DefaultName, token, time.Hour, false, time.Now())
	if err := h.store.Set(context.Background(), cookie); err != nil {
		h.t.Fatalf("store token: %v", err)
	}
}

// storedToken returns the persisted token, or "".
func (h *harness) storedToken() string {
	h.t.Helper()
	cookie, err := h.store.Get(context.Background())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// containsAll reports whether s contains every part.
func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
