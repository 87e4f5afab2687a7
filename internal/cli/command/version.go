package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/libcat-go/internal/cli/output"
	"github.com/yndnr/libcat-go/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			env := envFrom(c)
			info := buildinfo.Get()
			if env.flags.Output != "" {
				format, err := output.ParseFormat(env.flags.Output)
				if err != nil {
					return err
				}
				if format != output.FormatTable {
					return output.NewFormatter(format, false).Format(env.Out(), info)
				}
			}
			fmt.Fprintf(env.Out(), "libcat-cli %s\n", info.Version)
			fmt.Fprintf(env.Out(), "  commit:  %s\n", info.Commit)
			fmt.Fprintf(env.Out(), "  built:   %s\n", info.BuildTime)
			fmt.Fprintf(env.Out(), "  go:      %s\n", info.GoVersion)
			return nil
		},
	}
}
