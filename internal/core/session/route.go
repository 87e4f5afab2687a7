package session

import (
	"strings"

	"github.com/yndnr/libcat-go/internal/core/domain"
)

// Screen locations.
const (
	SignInPath       = "/auth"
	AdminLandingPath = "/dashboard"
	UserLandingPath  = "/user-dashboard"
)

// Intent is a navigation request emitted by the controller.
type Intent int

const (
	Stay Intent = iota
	ToAdminLanding
	ToUserLanding
	ToSignIn
)

// String returns the metric label of the intent.
func (i Intent) String() string {
	switch i {
	case ToAdminLanding:
		return "to_admin_landing"
	case ToUserLanding:
		return "to_user_landing"
	case ToSignIn:
		return "to_sign_in"
	default:
		return "stay"
	}
}

// Path returns the target location, or "" for Stay.
func (i Intent) Path() string {
	switch i {
	case ToAdminLanding:
		return AdminLandingPath
	case ToUserLanding:
		return UserLandingPath
	case ToSignIn:
		return SignInPath
	default:
		return ""
	}
}

// Decision is the outcome of post-resolution routing.
type Decision struct {
	Intent       Intent
	AccessDenied bool
}

// Route decides where a user with role belongs when their profile resolves
// while they are at location.
func Route(location string, role domain.Role) Decision {
	admin := role == domain.RoleAdmin

	switch {
	case at(location, SignInPath):
		if admin {
			return Decision{Intent: ToAdminLanding}
		}
		return Decision{Intent: ToUserLanding}
	case under(location, AdminLandingPath) && !admin:
		return Decision{Intent: ToUserLanding, AccessDenied: true}
	case under(location, UserLandingPath) && admin:
		return Decision{Intent: ToAdminLanding}
	default:
		return Decision{Intent: Stay}
	}
}

// under reports whether location is root or a path below it.
func under(location, root string) bool {
	location = trimLocation(location)
	return location == root || strings.HasPrefix(location, root+"/")
}

// at reports whether location is exactly path, ignoring a trailing slash,
// query and fragment.
func at(location, path string) bool {
	return trimLocation(location) == path
}

func trimLocation(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	return strings.TrimRight(location, "/")
}
