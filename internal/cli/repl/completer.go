// Package repl provides the interactive console loop.
package repl

import (
	"sort"
	"strings"
)

// builtins are handled by the loop itself.
var builtins = []string{"exit", "quit", "history"}

// Completer provides command completion for the console.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over full command paths such as
// "admin users list".
func NewCompleter(commands []string) *Completer {
	seen := make(map[string]struct{}, len(commands)+len(builtins))
	all := make([]string, 0, len(commands)+len(builtins))
	for _, c := range append(append([]string{}, commands...), builtins...) {
		c = strings.Join(strings.Fields(c), " ")
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		all = append(all, c)
	}
	sort.Strings(all)
	return &Completer{commands: all}
}

// Complete returns the commands starting with prefix. Extra spaces in
// prefix are ignored.
func (c *Completer) Complete(prefix string) []string {
	norm := strings.Join(strings.Fields(prefix), " ")
	if strings.HasSuffix(prefix, " ") && norm != "" {
		norm += " "
	}
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, norm) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
