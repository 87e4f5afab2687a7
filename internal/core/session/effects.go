package session

import "sync"

// NoticeLevel classifies a user-facing message.
type NoticeLevel int

const (
	NoticeSuccess NoticeLevel = iota
	NoticeError
)

// Notice is a user-facing message.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notifier receives notices emitted by the controller.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Navigator reports the current location and executes navigation intents.
type Navigator interface {
	Location() string
	Navigate(Intent)
}

// Router is a Navigator that tracks the current location in memory.
type Router struct {
	mu       sync.Mutex
	location string

	// OnNavigate, when set, is called after every location change.
	OnNavigate func(intent Intent, location string)
}

// NewRouter creates a router positioned at location.
func NewRouter(location string) *Router {
	return &Router{location: location}
}

// Location implements Navigator.
func (r *Router) Location() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location
}

// SetLocation moves the router without emitting a navigation.
func (r *Router) SetLocation(location string) {
	r.mu.Lock()
	r.location = location
	r.mu.Unlock()
}

// Navigate implements Navigator.
func (r *Router) Navigate(intent Intent) {
	if intent == Stay {
		return
	}
	path := intent.Path()

	r.mu.Lock()
	r.location = path
	hook := r.OnNavigate
	r.mu.Unlock()

	if hook != nil {
		hook(intent, path)
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}
