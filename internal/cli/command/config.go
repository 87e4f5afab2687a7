package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/libcat-go/internal/cli/config"
	"github.com/yndnr/libcat-go/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration",
				Action: configValidate,
			},
			{
				Name:  "init",
				Usage: "Write a configuration file with the defaults",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
				},
				Action: configInit,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: configPath,
			},
		},
	}
}

const redacted = "***REDACTED***"

func configFile(env *Env) string {
	if env.flags.Config != "" {
		return env.flags.Config
	}
	return config.DefaultConfigPath()
}

func configShow(c *cli.Context) error {
	env := envFrom(c)
	cfg, err := env.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.AdminRegistrationCode != "" {
		cfg.Auth.AdminRegistrationCode = redacted
	}

	fmt.Fprintf(env.ErrOut(), "# %s\n", configFile(env))
	enc := yaml.NewEncoder(env.Out())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func configValidate(c *cli.Context) error {
	env := envFrom(c)
	cfg, err := env.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				output.Failure(env.ErrOut(), e.Error())
			}
		} else {
			output.Failure(env.ErrOut(), err.Error())
		}
		return reported(err)
	}
	output.Success(env.ErrOut(), "Configuration is valid")
	return nil
}

func configInit(c *cli.Context) error {
	env := envFrom(c)
	path := configFile(env)

	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := config.Save(config.Default(), path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	output.Success(env.ErrOut(), "Wrote "+path)
	return nil
}

func configPath(c *cli.Context) error {
	fmt.Fprintln(envFrom(c).Out(), configFile(envFrom(c)))
	return nil
}
