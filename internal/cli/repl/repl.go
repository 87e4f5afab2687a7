// Package repl provides the interactive console loop.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Executor runs one parsed console line.
type Executor func(ctx context.Context, args []string) error

// ErrUnterminatedQuote is returned for a line with an open quote.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	completer *Completer
	history   *History

	exec   Executor
	prompt func() string
	after  func(ctx context.Context)
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithPrompt sets a function producing the prompt before each line.
func WithPrompt(prompt func() string) Option {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// WithAfterLine registers a hook run after every executed line.
func WithAfterLine(fn func(ctx context.Context)) Option {
	return func(r *REPL) {
		r.after = fn
	}
}

// WithHistory replaces the default in-memory history.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// New creates a new REPL dispatching to exec and completing over commands.
func New(exec Executor, commands []string, opts ...Option) *REPL {
	r := &REPL{
		completer: NewCompleter(commands),
		history:   NewHistory("", 0),
		exec:      exec,
		prompt:    func() string { return "libcat> " },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// History returns the console history.
func (r *REPL) History() *History {
	return r.history
}

// Run reads lines until exit, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.output, r.prompt())

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.output)
			return nil
		case err := <-readErr:
			fmt.Fprintln(r.output)
			return err
		case line = <-lines:
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case line == "exit" || line == "quit":
			return nil
		case line == "history":
			r.printHistory()
			continue
		case strings.HasSuffix(line, "?"):
			r.printCompletions(strings.TrimSpace(strings.TrimSuffix(line, "?")))
			continue
		case strings.HasPrefix(line, "!"):
			recalled, err := r.recall(line)
			if err != nil {
				fmt.Fprintf(r.output, "Error: %v\n", err)
				continue
			}
			fmt.Fprintln(r.output, recalled)
			line = recalled
		}

		r.history.Add(line)
		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
		if r.after != nil {
			r.after(ctx)
		}
	}
}

func (r *REPL) execute(ctx context.Context, line string) error {
	args, err := Split(line)
	if err != nil {
		return err
	}
	return r.exec(ctx, args)
}

// recall resolves "!N" (1-based, oldest first) and "!!" (last line).
func (r *REPL) recall(line string) (string, error) {
	entries := r.history.Entries()
	if line == "!!" {
		if len(entries) == 0 {
			return "", errors.New("history is empty")
		}
		return entries[len(entries)-1], nil
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil || n < 1 || n > len(entries) {
		return "", fmt.Errorf("no history entry %s", line[1:])
	}
	return entries[n-1], nil
}

func (r *REPL) printHistory() {
	for i, entry := range r.history.Entries() {
		fmt.Fprintf(r.output, "%4d  %s\n", i+1, entry)
	}
}

func (r *REPL) printCompletions(prefix string) {
	for _, s := range r.completer.Complete(prefix) {
		fmt.Fprintln(r.output, s)
	}
}

// Split breaks a line into arguments. Single and double quotes group words;
// a backslash escapes the next character outside single quotes.
func Split(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)

	for _, c := range line {
		switch {
		case escaped:
			cur.WriteRune(c)
			escaped = false
		case c == '\\' && quote != '\'':
			escaped = true
			inArg = true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '"' || c == '\'':
			quote = c
			inArg = true
		case c == ' ' || c == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(c)
			inArg = true
		}
	}

	if quote != 0 || escaped {
		return nil, ErrUnterminatedQuote
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
