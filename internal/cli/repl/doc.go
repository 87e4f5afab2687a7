// Package repl provides the interactive console loop.
//
//   - repl.go: read lines, split them into arguments, dispatch to an Executor
//   - completer.go: prefix completion over the command tree ("books ?")
//   - history.go: persisted command history; lines carrying secrets are
//     never recorded
package repl
