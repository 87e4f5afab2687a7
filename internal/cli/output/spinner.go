package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner displays an animation while a request is in flight.
type Spinner struct {
	w        io.Writer
	message  string
	frames   []string
	interval time.Duration

	done     chan struct{}
	stopped  chan struct{}
	start    sync.Once
	stop     sync.Once
	disabled bool
}

// NewSpinner creates a new spinner. A disabled spinner only prints the final
// Success or Fail line.
func NewSpinner(w io.Writer, message string, disabled bool) *Spinner {
	return &Spinner{
		w:        w,
		message:  message,
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 100 * time.Millisecond,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		disabled: disabled,
	}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	if s.disabled {
		return
	}
	s.start.Do(func() {
		go s.run()
	})
}

func (s *Spinner) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		fmt.Fprintf(s.w, "\r%s %s", s.frames[i%len(s.frames)], s.message)
		select {
		case <-s.done:
			fmt.Fprint(s.w, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Stop stops the spinner and clears the line. Safe to call more than once
// and before Start.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		close(s.done)
		started := true
		s.start.Do(func() { started = false })
		if started && !s.disabled {
			<-s.stopped
		}
	})
}

// Success stops the spinner with a success notice.
func (s *Spinner) Success(message string) {
	s.Stop()
	Success(s.w, message)
}

// Fail stops the spinner with a failure notice.
func (s *Spinner) Fail(message string) {
	s.Stop()
	Failure(s.w, message)
}
