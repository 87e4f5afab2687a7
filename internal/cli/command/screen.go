package command

import (
	"context"
	"errors"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/libcat-go/internal/core/domain"
	"github.com/yndnr/libcat-go/internal/core/session"
)

const msgLoginRequired = "Please login to continue."

// screen is the location a command renders at and the guard protecting it.
type screen struct {
	path  string
	auth  bool
	admin bool
}

var (
	signInScreen     = screen{path: session.SignInPath}
	homeScreen       = screen{path: "/", auth: true}
	profileScreen    = screen{path: "/profile", auth: true}
	booksScreen      = screen{path: session.UserLandingPath + "/books", auth: true}
	borrowedScreen   = screen{path: session.UserLandingPath + "/borrowed", auth: true}
	adminBooksScreen = screen{path: session.AdminLandingPath + "/books", auth: true, admin: true}
	adminUsersScreen = screen{path: session.AdminLandingPath + "/users", auth: true, admin: true}
	adminStatsScreen = screen{path: session.AdminLandingPath, auth: true, admin: true}
)

// errRedirected means the session moved away from the command's screen.
var errRedirected = errors.New("redirected")

// reportedError is an error the user has already seen as a notice.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil || Reported(err) {
		return err
	}
	return &reportedError{err: err}
}

// Reported reports whether err was already shown to the user and needs no
// further printing.
func Reported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// userFacing reports whether the details of err are meant for the user.
func userFacing(err error) bool {
	for _, target := range []error{
		domain.ErrValidation,
		domain.ErrAdminCodeMismatch,
		domain.ErrNotAuthenticated,
		domain.ErrAccessDenied,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// on wraps a command action with its screen: the environment is opened, the
// session is brought to s and the guard runs before fn.
func on(s screen, fn func(c *cli.Context, env *Env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		env := envFrom(c)
		if env == nil {
			return errors.New("command environment not initialized")
		}
		if err := env.Open(); err != nil {
			return err
		}

		ctx := c.Context
		if ctx == nil {
			ctx = context.Background()
		}
		err := env.enter(ctx, s)
		if errors.Is(err, errRedirected) {
			return nil
		}
		if err != nil {
			return err
		}
		return fn(c, env)
	}
}

// enter moves the router to s and settles the session there.
func (e *Env) enter(ctx context.Context, s screen) error {
	e.Router.SetLocation(s.path)

	if !e.bootstrapped {
		e.bootstrapped = true
		err := e.spin("Restoring session", func() error {
			return e.Session.Bootstrap(ctx)
		})
		if err != nil {
			if s.auth || errors.Is(err, domain.ErrCredentialStore) {
				return err
			}
			e.Logger.Debug("bootstrap failed on public screen", "error", err)
		}
		return e.guard(s)
	}

	if err := e.Session.Reconcile(ctx); err != nil {
		e.Logger.Debug("reconcile failed", "error", err)
	}
	if snap := e.Session.Snapshot(); snap.Authenticated() {
		d := session.Route(s.path, snap.User.Role)
		if d.AccessDenied {
			e.Printer.Failure(session.AccessDeniedMessage)
		}
		e.Router.Navigate(d.Intent)
	}
	return e.guard(s)
}

// guard enforces s for the settled session.
func (e *Env) guard(s screen) error {
	loc := e.Router.Location()

	if s.auth && !e.Session.Snapshot().Authenticated() {
		if loc != session.SignInPath {
			e.Router.Navigate(session.ToSignIn)
		}
		e.Printer.Failure(msgLoginRequired)
		return reported(domain.ErrNotAuthenticated)
	}
	if !within(loc, s.path) {
		if s.admin {
			return reported(domain.ErrAccessDenied)
		}
		return errRedirected
	}
	if s.admin && !e.Session.CheckAdminAccess() {
		e.Printer.Failure(session.AccessDeniedMessage)
		e.Router.Navigate(session.ToUserLanding)
		return reported(domain.ErrAccessDenied)
	}
	return nil
}

// within reports whether location is root or below it.
func within(location, root string) bool {
	if root == "/" {
		return true
	}
	return location == root || strings.HasPrefix(location, root+"/")
}
