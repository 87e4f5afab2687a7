package command

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/libcat-go/internal/infra/buildinfo"
	"github.com/yndnr/libcat-go/internal/storage/credential"
)

const envKey = "env"

// Option configures the application.
type Option func(*options)

type options struct {
	in    io.Reader
	out   io.Writer
	err   io.Writer
	store credential.Store
}

// WithStreams replaces stdin, stdout and stderr.
func WithStreams(in io.Reader, out, errOut io.Writer) Option {
	return func(o *options) {
		o.in = in
		o.out = out
		o.err = errOut
	}
}

// WithStore uses store instead of the configured credential backend.
func WithStore(store credential.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// App creates the CLI application.
func App(opts ...Option) *cli.App {
	o := &options{in: os.Stdin, out: os.Stdout, err: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	app := &cli.App{
		Name:      "libcat-cli",
		Usage:     "Library catalog console",
		Version:   buildinfo.String(),
		Reader:    o.in,
		Writer:    o.out,
		ErrWriter: o.err,
		Flags:     globalFlags(),
		Commands: []*cli.Command{
			LoginCommand(),
			RegisterCommand(),
			LogoutCommand(),
			WhoamiCommand(),
			DashboardCommand(),
			BooksCommand(),
			BorrowedCommand(),
			ProfileCommand(),
			AdminCommand(),
			ConfigCommand(),
			ConsoleCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			if nested(c.Context) {
				return nil
			}
			c.App.Metadata[envKey] = newEnv(ParseGlobalFlags(c), o)
			return nil
		},
		After: func(c *cli.Context) error {
			if nested(c.Context) {
				return nil
			}
			if env := envFrom(c); env != nil {
				delete(c.App.Metadata, envKey)
				return env.Close()
			}
			return nil
		},
	}

	return app
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file (default ~/.libcat/cli.yaml)",
			EnvVars: []string{"LIBCAT_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Catalog API base URL (e.g., http://localhost:8000/api)",
			EnvVars: []string{"LIBCAT_API_SERVER"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Suppress success notices and navigation lines",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
		&cli.BoolFlag{
			Name:  "ephemeral",
			Usage: "Keep the token in memory only",
		},
		&cli.BoolFlag{
			Name:  "no-spinner",
			Usage: "Disable progress spinners",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config    string
	Server    string
	Output    string
	Wide      bool
	Quiet     bool
	Verbose   bool
	Ephemeral bool
	NoSpinner bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:    c.String("config"),
		Server:    c.String("server"),
		Output:    c.String("output"),
		Wide:      c.Bool("wide"),
		Quiet:     c.Bool("quiet"),
		Verbose:   c.Bool("verbose"),
		Ephemeral: c.Bool("ephemeral"),
		NoSpinner: c.Bool("no-spinner"),
	}
}

// Overrides returns the config keys set on the command line.
func (f *GlobalFlags) Overrides() map[string]any {
	m := make(map[string]any)
	if f.Server != "" {
		m["api.server"] = f.Server
	}
	if f.Output != "" {
		m["output.format"] = f.Output
	}
	if f.Wide {
		m["output.wide"] = true
	}
	if f.Quiet {
		m["output.quiet"] = true
	}
	if f.Verbose {
		m["log.level"] = "debug"
	}
	if f.Ephemeral {
		m["credentials.backend"] = credential.BackendMemory
	}
	return m
}

// GetEnv retrieves the command environment from context.
func GetEnv(c *cli.Context) *Env {
	return envFrom(c)
}

func envFrom(c *cli.Context) *Env {
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		return env
	}
	return nil
}

type nestedKey struct{}

// withNested marks ctx as a console line run inside an existing Env.
func withNested(ctx context.Context) context.Context {
	return context.WithValue(ctx, nestedKey{}, true)
}

func nested(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(nestedKey{}).(bool)
	return v
}
