package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/libcat-go/internal/core/domain"
	"github.com/yndnr/libcat-go/internal/storage/credential"
	"github.com/yndnr/libcat-go/internal/telemetry/logger"
	"github.com/yndnr/libcat-go/internal/telemetry/metric"
)

// User-facing messages.
const (
	AccessDeniedMessage = "Access denied. Admin privileges required."

	msgLoginFailed        = "Login failed"
	msgLoginNoToken       = "Login response missing authentication token"
	msgLoginRejected      = "Login failed. Please check your credentials."
	msgLoginSuccess       = "Login successful!"
	msgRegisterFailed     = "Registration failed. Please try again."
	msgRegisterNoToken    = "Registration response missing authentication token"
	msgRegisterSuccess    = "Registration successful! Welcome to the library"
	msgRegisterAdmin      = " as an administrator"
	msgLogoutSuccess      = "Logout successful!"
	msgCredentialSaveFail = "Unable to save authentication token"
)

// Backend is the part of the catalog API the controller depends on.
type Backend interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.AuthResponse, error)
	Profile(ctx context.Context, token string) (*domain.ProfileEnvelope, error)
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	Token           string
	User            *domain.User
	Loading         bool
	ProfileInFlight bool
}

// Authenticated reports whether a token and a resolved user are present.
func (s Snapshot) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// profileRequest occupies the single in-flight slot.
type profileRequest struct {
	id     ulid.ULID
	token  string
	cancel context.CancelFunc
}

// Controller owns the session.
//
// State is guarded by mu. Credential store writes happen inside the same
// critical section as the state change they mirror; notices and navigation
// are emitted after the lock is released.
type Controller struct {
	backend  Backend
	store    credential.Store
	nav      Navigator
	notifier Notifier
	log      logger.Logger
	metrics  *metric.Registry

	minTokenLen  int
	cookieName   string
	maxAge       time.Duration
	secureOrigin bool
	now          func() time.Time

	mu       sync.Mutex
	token    string
	user     *domain.User
	loading  bool
	inflight *profileRequest
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics records operations in m.
func WithMetrics(m *metric.Registry) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithMinTokenLength sets the bootstrap length threshold.
func WithMinTokenLength(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.minTokenLen = n
		}
	}
}

// WithSecureOrigin declares that the API is served over https. Tokens are
// then persisted with the Secure flag, and Secure tokens are honoured at
// bootstrap.
func WithSecureOrigin(secure bool) Option {
	return func(c *Controller) {
		c.secureOrigin = secure
	}
}

// WithCookie sets the persisted cookie name and lifetime.
func WithCookie(name string, maxAge time.Duration) Option {
	return func(c *Controller) {
		if name != "" {
			c.cookieName = name
		}
		if maxAge > 0 {
			c.maxAge = maxAge
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a controller. The session starts in the loading state until
// Bootstrap runs.
func New(backend Backend, store credential.Store, nav Navigator, notifier Notifier, opts ...Option) *Controller {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if nav == nil {
		nav = NewRouter("/")
	}
	c := &Controller{
		backend:     backend,
		store:       store,
		nav:         nav,
		notifier:    notifier,
		log:         logger.Default(),
		minTokenLen: DefaultMinTokenLength,
		cookieName:  credential.DefaultName,
		maxAge:      credential.DefaultMaxAge,
		now:         time.Now,
		loading:     true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Token:           c.token,
		User:            c.user.Clone(),
		Loading:         c.loading,
		ProfileInFlight: c.inflight != nil,
	}
}

// CheckAdminAccess reports whether the session belongs to an admin.
func (c *Controller) CheckAdminAccess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != "" && c.user.IsAdmin()
}

// Bootstrap restores the session from the credential store.
func (c *Controller) Bootstrap(ctx context.Context) error {
	cookie, err := c.store.Get(ctx)
	switch {
	case errors.Is(err, credential.ErrNotFound):
		c.signedOut()
		return nil
	case err != nil && ctx.Err() != nil:
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
		c.publish()
		return ctx.Err()
	case err != nil:
		c.log.Warn("credential store unreadable", "error", err)
		c.handleAuthError(ctx)
		c.record("bootstrap", "failure")
		return domain.ErrCredentialStore.Wrap(err)
	case cookie.Secure && !c.secureOrigin:
		c.log.Debug("ignoring secure credential on insecure origin", "cookie", cookie.Name)
		c.signedOut()
		return nil
	}

	if err := CheckToken(cookie.Value, c.minTokenLen, c.now()); err != nil {
		c.log.Warn("stored token rejected", "error", err)
		c.handleAuthError(ctx)
		c.record("bootstrap", "failure")
		return err
	}

	c.mu.Lock()
	req, reqCtx := c.stageLocked(ctx, cookie.Value)
	c.mu.Unlock()
	c.publish()

	if err := c.fetchProfile(reqCtx, req); err != nil {
		c.record("bootstrap", "failure")
		return err
	}
	c.record("bootstrap", "success")
	return nil
}

// Login signs in with email and password.
//
// When ctx is cancelled after the token was persisted, the token stays
// staged without a user; Reconcile resolves it later.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	c.beginAuth()

	resp, err := c.backend.Login(ctx, domain.LoginRequest{Email: email, Password: password})
	if err != nil {
		msg := domain.MessageOr(err, msgLoginRejected)
		return c.authFailed(ctx, "login", []string{msg}, rejection(err, msg))
	}
	if resp.Status.Present() && resp.Status.Failed() {
		msg := resp.Message
		if msg == "" {
			msg = msgLoginFailed
		}
		return c.authFailed(ctx, "login", []string{msg}, domain.ErrAuthRejected.WithDetails(msg))
	}
	if resp.Token == "" {
		return c.authFailed(ctx, "login", []string{msgLoginNoToken}, domain.ErrAuthRejected.WithDetails(msgLoginNoToken))
	}

	return c.establish(ctx, "login", resp.Token, msgLoginSuccess)
}

// Register creates an account and signs in with it. Cancellation behaves as
// for Login. The admin code is
// forwarded for admin registrations but never checked here; see
// VerifyRegistration.
func (c *Controller) Register(ctx context.Context, reg domain.Registration) error {
	reg = reg.Normalize()
	c.beginAuth()

	resp, err := c.backend.Register(ctx, reg)
	if err != nil {
		msgs := []string{domain.MessageOr(err, msgRegisterFailed)}
		if apiErr, ok := domain.AsAPIError(err); ok {
			if fields := apiErr.FieldMessages(); len(fields) > 0 {
				msgs = fields
			}
		}
		return c.authFailed(ctx, "register", msgs, rejection(err, msgs[0]))
	}
	if resp.Status.Present() && resp.Status.Failed() {
		msg := resp.Message
		if msg == "" {
			msg = msgRegisterFailed
		}
		return c.authFailed(ctx, "register", []string{msg}, domain.ErrAuthRejected.WithDetails(msg))
	}
	if resp.Token == "" {
		return c.authFailed(ctx, "register", []string{msgRegisterNoToken}, domain.ErrAuthRejected.WithDetails(msgRegisterNoToken))
	}

	welcome := msgRegisterSuccess
	if reg.Role == domain.RoleAdmin {
		welcome += msgRegisterAdmin
	}
	return c.establish(ctx, "register", resp.Token, welcome+".")
}

// Logout ends the session. It always succeeds.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.clearLocked()
	c.removeCredentialLocked(ctx)
	c.mu.Unlock()

	c.publish()
	c.record("logout", "success")
	c.notify(NoticeSuccess, msgLogoutSuccess)
	c.navigate(ToSignIn)
	return nil
}

// Invalidate tears the session down after the backend rejected the token,
// e.g. a 401 from a catalog call.
func (c *Controller) Invalidate(ctx context.Context) {
	c.handleAuthError(ctx)
	c.record("invalidate", "success")
}

// Revalidate re-resolves the profile for the staged token. It is dropped
// with ErrProfileInFlight when a fetch is already running.
func (c *Controller) Revalidate(ctx context.Context) error {
	c.mu.Lock()
	if c.token == "" {
		c.loading = false
		c.mu.Unlock()
		c.publish()
		return nil
	}
	if c.inflight != nil {
		c.mu.Unlock()
		c.profileResult(metric.ProfileDropped)
		return domain.ErrProfileInFlight
	}
	c.loading = true
	req, reqCtx := c.acquireLocked(ctx)
	c.mu.Unlock()

	return c.fetchProfile(reqCtx, req)
}

// Reconcile resolves the profile when a token is staged but no user is
// known and nothing is pending. Consumers call it whenever they regain
// control; it is a no-op in every other state.
func (c *Controller) Reconcile(ctx context.Context) error {
	c.mu.Lock()
	need := c.token != "" && c.user == nil && c.inflight == nil && !c.loading
	c.mu.Unlock()

	if !need {
		return nil
	}
	c.log.Debug("token present without user, resolving profile")
	return c.Revalidate(ctx)
}

// ============================================================================
// Transitions
// ============================================================================

func (c *Controller) beginAuth() {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
}

// establish persists token, stages it and resolves the profile.
func (c *Controller) establish(ctx context.Context, op, token, success string) error {
	cookie := credential.NewCookie(c.cookieName, token, c.maxAge, c.secureOrigin, c.now())

	c.mu.Lock()
	if err := c.store.Set(ctx, cookie); err != nil {
		c.mu.Unlock()
		c.log.Error("persist token failed", "error", err)
		return c.authFailed(ctx, op, []string{msgCredentialSaveFail}, domain.ErrCredentialStore.Wrap(err))
	}
	req, reqCtx := c.stageLocked(ctx, token)
	c.mu.Unlock()
	c.publish()

	if err := c.fetchProfile(reqCtx, req); err != nil {
		c.record(op, "failure")
		return err
	}

	c.notify(NoticeSuccess, success)
	c.record(op, "success")
	return nil
}

// stageLocked replaces the staged token and claims the in-flight slot for
// it. A request still running for an older token is cancelled.
func (c *Controller) stageLocked(ctx context.Context, token string) (*profileRequest, context.Context) {
	if c.inflight != nil {
		c.log.Debug("replacing in-flight profile request", "request_id", c.inflight.id.String())
		c.inflight.cancel()
		c.inflight = nil
	}
	c.token = token
	c.user = nil
	c.loading = true
	return c.acquireLocked(ctx)
}

func (c *Controller) acquireLocked(ctx context.Context) (*profileRequest, context.Context) {
	reqCtx, cancel := context.WithCancel(ctx)
	req := &profileRequest{
		id:     ulid.Make(),
		token:  c.token,
		cancel: cancel,
	}
	c.inflight = req
	return req, logger.WithRequestID(reqCtx, req.id.String())
}

// fetchProfile runs req and applies its outcome if req still owns the slot.
func (c *Controller) fetchProfile(ctx context.Context, req *profileRequest) error {
	defer req.cancel()

	env, err := c.backend.Profile(ctx, req.token)
	user, err := checkProfile(env, err)

	c.mu.Lock()
	if c.inflight != req || c.token != req.token {
		c.mu.Unlock()
		c.log.Debug("discarding stale profile response", "request_id", req.id.String())
		c.profileResult(metric.ProfileStale)
		return domain.ErrStaleProfile
	}
	c.inflight = nil

	if err != nil && ctx.Err() != nil {
		// Caller gave up; keep the token so a later Reconcile can retry.
		c.loading = false
		c.mu.Unlock()
		c.publish()
		return ctx.Err()
	}

	if err != nil {
		c.clearLocked()
		c.removeCredentialLocked(ctx)
		c.mu.Unlock()

		c.log.WithContext(ctx).Warn("profile resolution failed", "error", err)
		c.profileResult(metric.ProfileFailure)
		c.publish()
		c.navigate(ToSignIn)
		return err
	}

	c.user = user
	c.loading = false
	c.mu.Unlock()

	c.profileResult(metric.ProfileSuccess)
	c.publish()

	d := Route(c.nav.Location(), user.Role)
	if d.AccessDenied {
		c.notify(NoticeError, AccessDeniedMessage)
	}
	c.navigate(d.Intent)
	return nil
}

// checkProfile validates a profile envelope.
func checkProfile(env *domain.ProfileEnvelope, err error) (*domain.User, error) {
	if err != nil {
		return nil, err
	}
	if env == nil || !env.Status.Success() || env.Data == nil {
		return nil, domain.ErrProfileInvalid.WithDetails("malformed envelope")
	}
	if !env.Data.Role.Valid() {
		return nil, domain.ErrProfileInvalid.WithDetails("invalid role " + string(env.Data.Role))
	}
	return env.Data.Clone(), nil
}

// handleAuthError returns to the signed-out state and removes the credential.
func (c *Controller) handleAuthError(ctx context.Context) {
	c.mu.Lock()
	c.clearLocked()
	c.removeCredentialLocked(ctx)
	c.mu.Unlock()

	c.publish()
	c.navigate(ToSignIn)
}

// authFailed reports msgs, clears the session and returns err marked as
// announced.
func (c *Controller) authFailed(ctx context.Context, op string, msgs []string, err error) error {
	for _, m := range msgs {
		c.notify(NoticeError, m)
	}
	c.handleAuthError(ctx)
	c.record(op, "failure")
	return &announcedError{err: err}
}

// announcedError wraps a failure whose message already went out as a notice.
type announcedError struct {
	err error
}

func (e *announcedError) Error() string { return e.err.Error() }

func (e *announcedError) Unwrap() error { return e.err }

// Announced reports whether err was already shown to the user as a notice.
func Announced(err error) bool {
	var a *announcedError
	return errors.As(err, &a)
}

// signedOut settles the session with no credential present.
func (c *Controller) signedOut() {
	c.mu.Lock()
	c.clearLocked()
	c.mu.Unlock()

	c.publish()
	c.record("bootstrap", "anonymous")
	c.navigate(ToSignIn)
}

func (c *Controller) clearLocked() {
	if c.inflight != nil {
		c.inflight.cancel()
		c.inflight = nil
	}
	c.token = ""
	c.user = nil
	c.loading = false
}

func (c *Controller) removeCredentialLocked(ctx context.Context) {
	if err := c.store.Remove(context.WithoutCancel(ctx)); err != nil {
		c.log.Warn("remove credential failed", "error", err)
	}
}

// rejection maps a backend error to the error returned by Login/Register.
func rejection(err error, msg string) error {
	if _, ok := domain.AsAPIError(err); ok {
		return domain.ErrAuthRejected.WithDetails(msg).Wrap(err)
	}
	return err
}

// ============================================================================
// Effects
// ============================================================================

func (c *Controller) notify(level NoticeLevel, msg string) {
	c.notifier.Notify(Notice{Level: level, Message: msg})
}

func (c *Controller) navigate(intent Intent) {
	if intent == Stay {
		return
	}
	if c.metrics != nil {
		c.metrics.Navigations.WithLabelValues(intent.String()).Inc()
	}
	c.log.Debug("navigate", "intent", intent.String(), "path", intent.Path())
	c.nav.Navigate(intent)
}

func (c *Controller) record(op, result string) {
	if c.metrics != nil {
		c.metrics.AuthOperations.WithLabelValues(op, result).Inc()
	}
}

func (c *Controller) profileResult(result string) {
	if c.metrics != nil {
		c.metrics.ProfileFetches.WithLabelValues(result).Inc()
	}
}

func (c *Controller) publish() {
	if c.metrics == nil {
		return
	}
	v := 0.0
	if c.Snapshot().Authenticated() {
		v = 1
	}
	c.metrics.Authenticated.Set(v)
}
