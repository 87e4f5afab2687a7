package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/libcat-go/internal/core/domain"
	"github.com/yndnr/libcat-go/internal/storage/credential"
	"github.com/yndnr/libcat-go/internal/telemetry/metric"
)

// ============================================================================
// Test doubles
// ============================================================================

type profileReply struct {
	env *domain.ProfileEnvelope
	err error
}

type fakeBackend struct {
	mu sync.Mutex

	loginResp *domain.AuthResponse
	loginErr  error

	registerResp *domain.AuthResponse
	registerErr  error
	registered   []domain.Registration

	profiles     map[string]profileReply
	profileCalls int

	// gates block Profile for a token until closed. When ignoreCancel is
	// set the gate is awaited even after the request context is done.
	gates        map[string]chan struct{}
	ignoreCancel bool
	started      chan string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		profiles: make(map[string]profileReply),
		gates:    make(map[string]chan struct{}),
		started:  make(chan string, 16),
	}
}

func (b *fakeBackend) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loginResp, b.loginErr
}

func (b *fakeBackend) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = append(b.registered, reg)
	return b.registerResp, b.registerErr
}

func (b *fakeBackend) Profile(ctx context.Context, token string) (*domain.ProfileEnvelope, error) {
	b.mu.Lock()
	b.profileCalls++
	gate := b.gates[token]
	ignoreCancel := b.ignoreCancel
	b.mu.Unlock()

	b.started <- token

	if gate != nil {
		if ignoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	reply, ok := b.profiles[token]
	if !ok {
		return nil, &domain.APIError{StatusCode: 401, Message: "Unauthenticated."}
	}
	return reply.env, reply.err
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.profileCalls
}

func (b *fakeBackend) setProfile(token string, u *domain.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profiles[token] = profileReply{env: &domain.ProfileEnvelope{Status: domain.StringStatus("success"), Data: u}}
}

func (b *fakeBackend) setGate(token string, gate chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gates[token] = gate
}

type recorder struct {
	mu      sync.Mutex
	intents []Intent
	notices []Notice
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) Intents() []Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Intent(nil), r.intents...)
}

func (r *recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func (r *recorder) lastIntent() Intent {
	in := r.Intents()
	if len(in) == 0 {
		return Stay
	}
	return in[len(in)-1]
}

func (r *recorder) hasNotice(level NoticeLevel, msg string) bool {
	for _, n := range r.Notices() {
		if n.Level == level && n.Message == msg {
			return true
		}
	}
	return false
}

type harness struct {
	c       *Controller
	backend *fakeBackend
	store   *credential.MemoryStore
	router  *Router
	rec     *recorder
	metrics *metric.Registry
}

func newHarness(t *testing.T, location string, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		backend: newFakeBackend(),
		store:   credential.NewMemoryStore(),
		router:  NewRouter(location),
		rec:     &recorder{},
		metrics: metric.NewRegistry(),
	}
	h.router.OnNavigate = func(intent Intent, _ string) {
		h.rec.mu.Lock()
		h.rec.intents = append(h.rec.intents, intent)
		h.rec.mu.Unlock()
	}
	opts = append([]Option{WithMetrics(h.metrics)}, opts...)
	h.c = New(h.backend, h.store, h.router, h.rec, opts...)
	return h
}

func (h *harness) storeToken(t *testing.T, token string, secure bool) {
	t.Helper()
	c := credential.NewCookie("", token, 0, secure, time.Now())
	if err := h.store.Set(context.Background(), c); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) storedToken() (string, bool) {
	c, err := h.store.Get(context.Background())
	if err != nil {
		return "", false
	}
	return c.Value, true
}

func adminUser() *domain.User {
	return &domain.User{ID: 1, Name: "Ada", Email: "a@x.com", Role: domain.RoleAdmin, Status: domain.AccountActive, CreatedAt: "2024-01-01T00:00:00Z"}
}

func regularUser() *domain.User {
	return &domain.User{ID: 2, Name: "Bob", Email: "b@x.com", Role: domain.RoleUser, Status: domain.AccountActive}
}

func assertSignedOut(t *testing.T, h *harness) {
	t.Helper()
	snap := h.c.Snapshot()
	if snap.Token != "" || snap.User != nil || snap.Loading || snap.ProfileInFlight {
		t.Errorf("snapshot = %+v, want signed out", snap)
	}
	if _, ok := h.storedToken(); ok {
		t.Error("credential still stored")
	}
	if got := h.rec.lastIntent(); got != ToSignIn {
		t.Errorf("last intent = %v, want %v", got, ToSignIn)
	}
}

// ============================================================================
// Bootstrap
// ============================================================================

func TestNew_StartsLoading(t *testing.T) {
	h := newHarness(t, "/")
	if !h.c.Snapshot().Loading {
		t.Error("a new controller should be loading until bootstrap")
	}
}

func TestBootstrap_NoToken(t *testing.T) {
	h := newHarness(t, "/user-dashboard")

	if err := h.c.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	want := Snapshot{}
	if got := h.c.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("snapshot = %+v, want %+v", got, want)
	}
	if got := h.rec.Intents(); !reflect.DeepEqual(got, []Intent{ToSignIn}) {
		t.Errorf("intents = %v, want [ToSignIn]", got)
	}
	if h.backend.calls() != 0 {
		t.Errorf("profile calls = %d, want 0", h.backend.calls())
	}
}

func TestBootstrap_ValidTokenResolvesOnce(t *testing.T) {
	h := newHarness(t, "/")
	token := "12|abcdefghijklmnopqrstuvwxyz"
	h.storeToken(t, token, false)
	h.backend.setProfile(token, regularUser())
	gate := make(chan struct{})
	h.backend.setGate(token, gate)

	done := make(chan error, 1)
	go func() { done <- h.c.Bootstrap(context.Background()) }()
	<-h.backend.started

	snap := h.c.Snapshot()
	if !snap.ProfileInFlight || !snap.Loading || snap.Token != token {
		t.Fatalf("snapshot during fetch = %+v", snap)
	}

	// Both triggers collapse into the outstanding request.
	if err := h.c.Reconcile(context.Background()); err != nil {
		t.Errorf("Reconcile() during fetch error = %v", err)
	}
	if err := h.c.Revalidate(context.Background()); !errors.Is(err, domain.ErrProfileInFlight) {
		t.Errorf("Revalidate() during fetch error = %v, want ErrProfileInFlight", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	if got := h.backend.calls(); got != 1 {
		t.Errorf("profile calls = %d, want 1", got)
	}
	snap = h.c.Snapshot()
	if snap.User == nil || snap.User.ID != 2 || snap.Loading || snap.ProfileInFlight {
		t.Errorf("snapshot after fetch = %+v", snap)
	}
	if len(h.rec.Intents()) != 0 {
		t.Errorf("intents = %v, want none at an unrelated location", h.rec.Intents())
	}
	if got := testutil.ToFloat64(h.metrics.ProfileFetches.WithLabelValues(metric.ProfileDropped)); got != 1 {
		t.Errorf("dropped fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.metrics.Authenticated); got != 1 {
		t.Errorf("authenticated gauge = %v, want 1", got)
	}
}

func TestBootstrap_ShortTokenRejectedWithoutNetwork(t *testing.T) {
	h := newHarness(t, "/user-dashboard")
	h.storeToken(t, "short", false)

	err := h.c.Bootstrap(context.Background())
	if !errors.Is(err, domain.ErrTokenMalformed) {
		t.Errorf("Bootstrap() error = %v, want ErrTokenMalformed", err)
	}
	if h.backend.calls() != 0 {
		t.Errorf("profile calls = %d, want 0", h.backend.calls())
	}
	assertSignedOut(t, h)
}

func TestBootstrap_MinTokenLengthOption(t *testing.T) {
	h := newHarness(t, "/", WithMinTokenLength(40))
	h.storeToken(t, "12|abcdefghijklmnopqrstuvwxyz", false)

	if err := h.c.Bootstrap(context.Background()); !errors.Is(err, domain.ErrTokenMalformed) {
		t.Errorf("Bootstrap() error = %v, want ErrTokenMalformed", err)
	}
}

func TestBootstrap_ExpiredJWTRejected(t *testing.T) {
	h := newHarness(t, "/")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatal(err)
	}
	h.storeToken(t, token, false)

	if err := h.c.Bootstrap(context.Background()); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("Bootstrap() error = %v, want ErrTokenExpired", err)
	}
	if h.backend.calls() != 0 {
		t.Errorf("profile calls = %d, want 0", h.backend.calls())
	}
	assertSignedOut(t, h)
}

func TestBootstrap_SecureCookieOverInsecureOrigin(t *testing.T) {
	token := "12|abcdefghijklmnopqrstuvwxyz"

	t.Run("ignored on http", func(t *testing.T) {
		h := newHarness(t, "/")
		h.storeToken(t, token, true)
		h.backend.setProfile(token, regularUser())

		if err := h.c.Bootstrap(context.Background()); err != nil {
			t.Fatalf("Bootstrap() error = %v", err)
		}
		if h.backend.calls() != 0 {
			t.Errorf("profile calls = %d, want 0", h.backend.calls())
		}
		if h.c.Snapshot().Token != "" {
			t.Error("secure token staged on an insecure origin")
		}
		if h.rec.lastIntent() != ToSignIn {
			t.Errorf("last intent = %v, want ToSignIn", h.rec.lastIntent())
		}
	})

	t.Run("honoured on https", func(t *testing.T) {
		h := newHarness(t, "/", WithSecureOrigin(true))
		h.storeToken(t, token, true)
		h.backend.setProfile(token, regularUser())

		if err := h.c.Bootstrap(context.Background()); err != nil {
			t.Fatalf("Bootstrap() error = %v", err)
		}
		if !h.c.Snapshot().Authenticated() {
			t.Error("secure token should be used on an https origin")
		}
	})
}

func TestBootstrap_ProfileFailureClearsSession(t *testing.T) {
	h := newHarness(t, "/user-dashboard/books")
	h.storeToken(t, "12|revokedtokenvalue", false)

	err := h.c.Bootstrap(context.Background())
	if domain.StatusCode(err) != 401 {
		t.Errorf("Bootstrap() error = %v, want 401", err)
	}
	assertSignedOut(t, h)
}

func TestBootstrap_CallerCancelKeepsToken(t *testing.T) {
	h := newHarness(t, "/")
	token := "12|abcdefghijklmnopqrstuvwxyz"
	h.storeToken(t, token, false)
	h.backend.setProfile(token, regularUser())
	h.backend.setGate(token, make(chan struct{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.c.Bootstrap(ctx) }()
	<-h.backend.started
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Bootstrap() error = %v, want context.Canceled", err)
	}
	snap := h.c.Snapshot()
	if snap.Token != token || snap.User != nil || snap.Loading || snap.ProfileInFlight {
		t.Fatalf("snapshot after cancel = %+v", snap)
	}
	if _, ok := h.storedToken(); !ok {
		t.Fatal("credential removed after caller cancellation")
	}

	h.backend.setGate(token, nil)
	if err := h.c.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !h.c.Snapshot().Authenticated() {
		t.Error("Reconcile() should resolve the profile")
	}
	if got := h.backend.calls(); got != 2 {
		t.Errorf("profile calls = %d, want 2", got)
	}
}

func TestBootstrap_CancelledBeforeStoreRead(t *testing.T) {
	store := credential.NewFileStore(t.TempDir()+"/credential.yaml", "")
	token := "12|abcdefghijklmnopqrstuvwxyz"
	if err := store.Set(context.Background(), credential.NewCookie("", token, 0, false, time.Now())); err != nil {
		t.Fatal(err)
	}
	backend := newFakeBackend()
	backend.setProfile(token, regularUser())
	router := NewRouter("/")
	c := New(backend, store, router, &recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Bootstrap(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Bootstrap() error = %v, want context.Canceled", err)
	}
	if snap := c.Snapshot(); snap.Loading || snap.Token != "" {
		t.Errorf("snapshot = %+v", snap)
	}
	if got, err := store.Get(context.Background()); err != nil || got.Value != token {
		t.Fatalf("stored credential = %q, %v after cancellation", got.Value, err)
	}
	if router.Location() != "/" || backend.calls() != 0 {
		t.Errorf("location = %q, profile calls = %d", router.Location(), backend.calls())
	}

	if err := c.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() retry error = %v", err)
	}
	if !c.Snapshot().Authenticated() {
		t.Error("retry should restore the session")
	}
}

// ============================================================================
// Queries and round trips
// ============================================================================

func TestCheckAdminAccess_Idempotent(t *testing.T) {
	h := newHarness(t, "/")
	token := "12|abcdefghijklmnopqrstuvwxyz"
	h.storeToken(t, token, false)
	h.backend.setProfile(token, adminUser())

	if h.c.CheckAdminAccess() {
		t.Error("CheckAdminAccess() true before bootstrap")
	}
	if err := h.c.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if !h.c.CheckAdminAccess() {
			t.Fatalf("call %d: CheckAdminAccess() = false", i)
		}
	}
	if len(h.rec.Intents()) != 0 {
		t.Error("CheckAdminAccess() must not navigate")
	}
}

func TestCheckAdminAccess_RegularUser(t *testing.T) {
	h := newHarness(t, "/")
	h.backend.loginResp = &domain.AuthResponse{Token: "tok-regular-1"}
	h.backend.setProfile("tok-regular-1", regularUser())

	if err := h.c.Login(context.Background(), "b@x.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if h.c.CheckAdminAccess() {
		t.Error("CheckAdminAccess() = true for a regular user")
	}
}

func TestLoginThenLogout_EqualsFreshBootstrap(t *testing.T) {
	fresh := newHarness(t, "/auth")
	if err := fresh.c.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, "/auth")
	h.backend.loginResp = &domain.AuthResponse{Token: "tok123"}
	h.backend.setProfile("tok123", adminUser())

	if err := h.c.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := h.c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if got, want := h.c.Snapshot(), fresh.c.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("snapshot after login+logout = %+v, want %+v", got, want)
	}
	if _, ok := h.storedToken(); ok {
		t.Error("credential not removed by logout")
	}
	if !h.rec.hasNotice(NoticeSuccess, "Logout successful!") {
		t.Errorf("notices = %v", h.rec.Notices())
	}
	if h.rec.lastIntent() != ToSignIn {
		t.Errorf("last intent = %v, want ToSignIn", h.rec.lastIntent())
	}
	if got := testutil.ToFloat64(h.metrics.Authenticated); got != 0 {
		t.Errorf("authenticated gauge = %v, want 0", got)
	}
}

// ============================================================================
// Login
// ============================================================================

func TestLogin_AdminFromSignIn(t *testing.T) {
	h := newHarness(t, "/auth", WithSecureOrigin(true))
	h.backend.loginResp = &domain.AuthResponse{Token: "tok123"}
	h.backend.setProfile("tok123", adminUser())

	if err := h.c.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	snap := h.c.Snapshot()
	if snap.User == nil || snap.User.Role != domain.RoleAdmin {
		t.Fatalf("user = %+v, want admin", snap.User)
	}
	if snap.Loading || snap.ProfileInFlight {
		t.Errorf("snapshot = %+v, want settled", snap)
	}
	if h.rec.lastIntent() != ToAdminLanding {
		t.Errorf("last intent = %v, want ToAdminLanding", h.rec.lastIntent())
	}
	if h.router.Location() != AdminLandingPath {
		t.Errorf("location = %q", h.router.Location())
	}
	if !h.rec.hasNotice(NoticeSuccess, "Login successful!") {
		t.Errorf("notices = %v", h.rec.Notices())
	}

	cookie, err := h.store.Get(context.Background())
	if err != nil {
		t.Fatalf("credential not persisted: %v", err)
	}
	if cookie.Value != "tok123" || cookie.Name != "authToken" || !cookie.Secure || cookie.SameSite != credential.SameSiteStrict {
		t.Errorf("cookie = %+v", cookie)
	}
	if ttl := time.Until(cookie.Expires); ttl < 6*24*time.Hour || ttl > 7*24*time.Hour {
		t.Errorf("cookie ttl = %v, want about 7 days", ttl)
	}
	if got := testutil.ToFloat64(h.metrics.AuthOperations.WithLabelValues("login", "success")); got != 1 {
		t.Errorf("login success count = %v", got)
	}
}

func TestLogin_UserFromSignIn(t *testing.T) {
	h := newHarness(t, "/auth")
	h.backend.loginResp = &domain.AuthResponse{Token: "tok456", Status: domain.BoolStatus(true)}
	h.backend.setProfile("tok456", regularUser())

	if err := h.c.Login(context.Background(), "b@x.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if h.rec.lastIntent() != ToUserLanding {
		t.Errorf("last intent = %v, want ToUserLanding", h.rec.lastIntent())
	}
	if cookie, _ := h.store.Get(context.Background()); cookie.Secure {
		t.Error("cookie marked secure on an http origin")
	}
}

func TestLogin_InvalidRole(t *testing.T) {
	h := newHarness(t, "/auth")
	h.backend.loginResp = &domain.AuthResponse{Token: "tok123"}
	u := adminUser()
	u.Role = "superuser"
	h.backend.setProfile("tok123", u)

	err := h.c.Login(context.Background(), "a@x.com", "pw")
	if !errors.Is(err, domain.ErrProfileInvalid) {
		t.Errorf("Login() error = %v, want ErrProfileInvalid", err)
	}
	assertSignedOut(t, h)
	if h.rec.hasNotice(NoticeSuccess, "Login successful!") {
		t.Error("success notice emitted although the profile failed")
	}
}

func TestLogin_RejectedWithServerMessage(t *testing.T) {
	h := newHarness(t, "/auth")
	h.backend.loginErr = &domain.APIError{StatusCode: 422, Message: "Invalid credentials"}

	err := h.c.Login(context.Background(), "a@x.com", "wrong")
	if !errors.Is(err, domain.ErrAuthRejected) {
		t.Errorf("Login() error = %v, want ErrAuthRejected", err)
	}

	notices := h.rec.Notices()
	if len(notices) != 1 || notices[0].Level != NoticeError || notices[0].Message != "Invalid credentials" {
		t.Errorf("notices = %+v, want exactly \"Invalid credentials\"", notices)
	}
	assertSignedOut(t, h)
	if h.backend.calls() != 0 {
		t.Error("profile fetched after a rejected login")
	}
}

func TestLogin_FailurePaths(t *testing.T) {
	tests := []struct {
		name    string
		resp    *domain.AuthResponse
		err     error
		wantMsg string
		wantErr *domain.Error
	}{
		{
			name:    "status false without message",
			resp:    &domain.AuthResponse{Status: domain.BoolStatus(false)},
			wantMsg: "Login failed",
			wantErr: domain.ErrAuthRejected,
		},
		{
			name:    "status false with message",
			resp:    &domain.AuthResponse{Status: domain.BoolStatus(false), Message: "Account disabled"},
			wantMsg: "Account disabled",
			wantErr: domain.ErrAuthRejected,
		},
		{
			name:    "missing token",
			resp:    &domain.AuthResponse{Status: domain.BoolStatus(true)},
			wantMsg: "Login response missing authentication token",
			wantErr: domain.ErrAuthRejected,
		},
		{
			name:    "http error without message",
			err:     &domain.APIError{StatusCode: 500},
			wantMsg: "Login failed. Please check your credentials.",
			wantErr: domain.ErrAuthRejected,
		},
		{
			name:    "transport error",
			err:     domain.ErrTransport.Wrap(errors.New("connection refused")),
			wantMsg: "Login failed. Please check your credentials.",
			wantErr: domain.ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "/auth")
			h.storeToken(t, "12|previoussessiontoken", false)
			h.backend.loginResp = tt.resp
			h.backend.loginErr = tt.err

			err := h.c.Login(context.Background(), "a@x.com", "pw")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if !Announced(err) {
				t.Errorf("Login() error %v not marked as announced", err)
			}
			if !h.rec.hasNotice(NoticeError, tt.wantMsg) {
				t.Errorf("notices = %+v, want %q", h.rec.Notices(), tt.wantMsg)
			}
			assertSignedOut(t, h)
		})
	}
}

func TestLogin_CredentialStoreFailure(t *testing.T) {
	h := newHarness(t, "/auth")
	h.backend.loginResp = &domain.AuthResponse{Token: "tok123"}
	h.backend.setProfile("tok123", adminUser())
	h.c.store = failingStore{h.store}

	err := h.c.Login(context.Background(), "a@x.com", "pw")
	if !errors.Is(err, domain.ErrCredentialStore) {
		t.Errorf("Login() error = %v, want ErrCredentialStore", err)
	}
	if h.backend.calls() != 0 {
		t.Error("profile fetched although the token was not persisted")
	}
	if snap := h.c.Snapshot(); snap.Token != "" || snap.Loading {
		t.Errorf("snapshot = %+v", snap)
	}
}

type failingStore struct {
	*credential.MemoryStore
}

func (failingStore) Set(context.Context, credential.Cookie) error {
	return errors.New("disk full")
}

// ============================================================================
// Register
// ============================================================================

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		reg        domain.Registration
		wantNotice string
		wantIntent Intent
		wantCode   string
	}{
		{
			name:       "default role",
			reg:        domain.Registration{Name: "Bob", Email: "b@x.com", Password: "pw", PasswordConfirmation: "pw", AdminCode: "ignored"},
			wantNotice: "Registration successful! Welcome to the library.",
			wantIntent: ToUserLanding,
		},
		{
			name:       "admin",
			reg:        domain.Registration{Name: "Ada", Email: "a@x.com", Password: "pw", PasswordConfirmation: "pw", Role: domain.RoleAdmin, AdminCode: "ADMIN123"},
			wantNotice: "Registration successful! Welcome to the library as an administrator.",
			wantIntent: ToAdminLanding,
			wantCode:   "ADMIN123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "/auth")
			h.backend.registerResp = &domain.AuthResponse{Token: "tok-new-account", Status: domain.StringStatus("success")}
			u := regularUser()
			if tt.reg.Role == domain.RoleAdmin {
				u = adminUser()
			}
			h.backend.setProfile("tok-new-account", u)

			if err := h.c.Register(context.Background(), tt.reg); err != nil {
				t.Fatalf("Register() error = %v", err)
			}
			if !h.rec.hasNotice(NoticeSuccess, tt.wantNotice) {
				t.Errorf("notices = %+v, want %q", h.rec.Notices(), tt.wantNotice)
			}
			if h.rec.lastIntent() != tt.wantIntent {
				t.Errorf("last intent = %v, want %v", h.rec.lastIntent(), tt.wantIntent)
			}

			sent := h.backend.registered[0]
			if sent.Role == "" {
				t.Error("role not defaulted")
			}
			if sent.AdminCode != tt.wantCode {
				t.Errorf("admin code forwarded = %q, want %q", sent.AdminCode, tt.wantCode)
			}
			if v, ok := h.storedToken(); !ok || v != "tok-new-account" {
				t.Errorf("stored token = %q, %v", v, ok)
			}
		})
	}
}

func TestRegister_FieldErrors(t *testing.T) {
	h := newHarness(t, "/auth")
	h.backend.registerErr = &domain.APIError{
		StatusCode: 422,
		Message:    "The given data was invalid.",
		Errors: map[string][]string{
			"password": {"The password must be at least 8 characters."},
			"email":    {"The email has already been taken."},
		},
	}

	err := h.c.Register(context.Background(), domain.Registration{Name: "N", Email: "e@x.y", Password: "p", PasswordConfirmation: "p"})
	if !errors.Is(err, domain.ErrAuthRejected) {
		t.Errorf("Register() error = %v", err)
	}

	var msgs []string
	for _, n := range h.rec.Notices() {
		msgs = append(msgs, n.Message)
	}
	want := []string{"The email has already been taken.", "The password must be at least 8 characters."}
	if !reflect.DeepEqual(msgs, want) {
		t.Errorf("notices = %v, want %v", msgs, want)
	}
	assertSignedOut(t, h)
}

func TestRegister_FailurePaths(t *testing.T) {
	tests := []struct {
		name    string
		resp    *domain.AuthResponse
		err     error
		wantMsg string
	}{
		{"status false", &domain.AuthResponse{Status: domain.BoolStatus(false)}, nil, "Registration failed. Please try again."},
		{"missing token", &domain.AuthResponse{Status: domain.BoolStatus(true)}, nil, "Registration response missing authentication token"},
		{"http error", nil, &domain.APIError{StatusCode: 500}, "Registration failed. Please try again."},
		{"http error with message", nil, &domain.APIError{StatusCode: 409, Message: "Email taken"}, "Email taken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "/auth")
			h.backend.registerResp = tt.resp
			h.backend.registerErr = tt.err

			if err := h.c.Register(context.Background(), domain.Registration{Name: "N"}); err == nil {
				t.Fatal("Register() should fail")
			}
			if !h.rec.hasNotice(NoticeError, tt.wantMsg) {
				t.Errorf("notices = %+v, want %q", h.rec.Notices(), tt.wantMsg)
			}
			assertSignedOut(t, h)
		})
	}
}

// ============================================================================
// Revalidation and routing
// ============================================================================

func TestRevalidate_NonAdminOnAdminScreen(t *testing.T) {
	h := newHarness(t, "/user-dashboard")
	token := "12|abcdefghijklmnopqrstuvwxyz"
	h.storeToken(t, token, false)
	h.backend.setProfile(token, regularUser())

	if err := h.c.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(h.rec.Intents()); n != 0 {
		t.Fatalf("bootstrap on own landing navigated %d times", n)
	}

	h.router.SetLocation("/dashboard/users")
	if err := h.c.Revalidate(context.Background()); err != nil {
		t.Fatalf("Revalidate() error = %v", err)
	}

	if !h.rec.hasNotice(NoticeError, "Access denied. Admin privileges required.") {
		t.Errorf("notices = %+v", h.rec.Notices())
	}
	if h.rec.lastIntent() != ToUserLanding {
		t.Errorf("last intent = %v, want ToUserLanding", h.rec.lastIntent())
	}
	if !h.c.Snapshot().Authenticated() {
		t.Error("access denial must not sign the user out")
	}
}

func TestRevalidate_AdminOnUserScreen(t *testing.T) {
	h := newHarness(t, "/user-dashboard/books")
	token := "12|abcdefghijklmnopqrstuvwxyz"
	h.storeToken(t, token, false)
	h.backend.setProfile(token, adminUser())

	if err := h.c.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.rec.lastIntent() != ToAdminLanding {
		t.Errorf("last intent = %v, want ToAdminLanding", h.rec.lastIntent())
	}
	if len(h.rec.Notices()) != 0 {
		t.Errorf("notices = %+v, want none", h.rec.Notices())
	}
}

func TestRevalidate_NoToken(t *testing.T) {
	h := newHarness(t, "/")
	if err := h.c.Revalidate(context.Background()); err != nil {
		t.Errorf("Revalidate() error = %v", err)
	}
	if h.backend.calls() != 0 || h.c.Snapshot().Loading {
		t.Error("Revalidate() without a token should only end loading")
	}
}

func TestReconcile_NoopWhenSettled(t *testing.T) {
	h := newHarness(t, "/")
	token := "12|abcdefghijklmnopqrstuvwxyz"
	h.storeToken(t, token, false)
	h.backend.setProfile(token, regularUser())
	if err := h.c.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := h.c.Reconcile(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := h.backend.calls(); got != 1 {
		t.Errorf("profile calls = %d, want 1", got)
	}
}

func TestStaleProfileResponseDiscarded(t *testing.T) {
	h := newHarness(t, "/auth")
	oldToken := "12|oldtokenoldtokenold"
	h.storeToken(t, oldToken, false)
	h.backend.setProfile(oldToken, adminUser())
	h.backend.setProfile("tok-new", regularUser())
	h.backend.loginResp = &domain.AuthResponse{Token: "tok-new"}

	gate := make(chan struct{})
	h.backend.setGate(oldToken, gate)
	h.backend.ignoreCancel = true

	oldDone := make(chan error, 1)
	go func() { oldDone <- h.c.Bootstrap(context.Background()) }()
	<-h.backend.started

	if err := h.c.Login(context.Background(), "b@x.com", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	close(gate)
	if err := <-oldDone; !errors.Is(err, domain.ErrStaleProfile) {
		t.Errorf("old fetch error = %v, want ErrStaleProfile", err)
	}

	snap := h.c.Snapshot()
	if snap.Token != "tok-new" || snap.User == nil || snap.User.ID != 2 {
		t.Errorf("snapshot = %+v, want the new user", snap)
	}
	if h.c.CheckAdminAccess() {
		t.Error("stale admin profile leaked into the session")
	}
	if got := testutil.ToFloat64(h.metrics.ProfileFetches.WithLabelValues(metric.ProfileStale)); got != 1 {
		t.Errorf("stale fetches = %v, want 1", got)
	}
}

func TestInvalidate(t *testing.T) {
	h := newHarness(t, "/dashboard")
	token := "12|abcdefghijklmnopqrstuvwxyz"
	h.storeToken(t, token, false)
	h.backend.setProfile(token, adminUser())
	if err := h.c.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}

	h.c.Invalidate(context.Background())
	assertSignedOut(t, h)
	if len(h.rec.Notices()) != 0 {
		t.Errorf("Invalidate() should not notify, got %+v", h.rec.Notices())
	}
}

func TestMalformedProfileEnvelope(t *testing.T) {
	tests := []struct {
		name string
		env  *domain.ProfileEnvelope
	}{
		{"status error", &domain.ProfileEnvelope{Status: domain.StringStatus("error"), Data: adminUser()}},
		{"missing data", &domain.ProfileEnvelope{Status: domain.StringStatus("success")}},
		{"missing status", &domain.ProfileEnvelope{Data: adminUser()}},
		{"empty role", &domain.ProfileEnvelope{Status: domain.StringStatus("success"), Data: &domain.User{ID: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "/")
			token := "12|abcdefghijklmnopqrstuvwxyz"
			h.storeToken(t, token, false)
			h.backend.profiles[token] = profileReply{env: tt.env}

			if err := h.c.Bootstrap(context.Background()); !errors.Is(err, domain.ErrProfileInvalid) {
				t.Errorf("Bootstrap() error = %v, want ErrProfileInvalid", err)
			}
			assertSignedOut(t, h)
		})
	}
}

func TestSnapshotUserIsCopy(t *testing.T) {
	h := newHarness(t, "/")
	h.backend.loginResp = &domain.AuthResponse{Token: "tok-regular-1"}
	h.backend.setProfile("tok-regular-1", regularUser())
	if err := h.c.Login(context.Background(), "b@x.com", "pw"); err != nil {
		t.Fatal(err)
	}

	snap := h.c.Snapshot()
	snap.User.Role = domain.RoleAdmin
	if h.c.CheckAdminAccess() {
		t.Error("mutating a snapshot changed the session")
	}
}
