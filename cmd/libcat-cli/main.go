// Package main provides the entry point for libcat-cli.
//
// libcat-cli is a terminal console for a library catalog API,
// supporting both single-command mode and an interactive console.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/libcat-go/internal/cli/command"
	"github.com/yndnr/libcat-go/internal/core/domain"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		if !command.Reported(err) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(domain.ExitCode(err))
	}
}
