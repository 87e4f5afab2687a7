// Package command provides CLI command definitions for libcat-cli.
//
// It uses urfave/cli/v2 for command parsing and supports both
// single-command mode and the interactive console.
//
// Every command belongs to a screen location such as /user-dashboard/books.
// A one-shot command moves the session router to its location, restores the
// session from the credential store and then runs its guard; the console
// restores the session once and re-dispatches each line through the same
// command tree.
package command
