package command

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/libcat-go/internal/core/domain"
)

// ProfileCommand returns the profile subcommand group.
func ProfileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Manage your own account",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show your profile",
				Action: on(profileScreen, authWhoami),
			},
			{
				Name:  "update",
				Usage: "Change your name or email",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "New name",
					},
					&cli.StringFlag{
						Name:    "email",
						Aliases: []string{"e"},
						Usage:   "New email",
					},
				},
				Action: on(profileScreen, profileUpdate),
			},
			{
				Name:  "password",
				Usage: "Change your password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "current-password",
						Usage: "Current password",
					},
					&cli.StringFlag{
						Name:  "new-password",
						Usage: "New password",
					},
					&cli.StringFlag{
						Name:  "password-confirmation",
						Usage: "New password again",
					},
				},
				Action: on(profileScreen, profilePassword),
			},
		},
	}
}

func profileUpdate(c *cli.Context, env *Env) error {
	var msg string
	err := env.spin("Updating profile", func() error {
		var err error
		msg, err = env.Catalog.UpdateProfile(c.Context, domain.ProfileUpdate{
			Name:  strings.TrimSpace(c.String("name")),
			Email: strings.TrimSpace(c.String("email")),
		})
		return err
	})
	if err != nil {
		return env.fail(err)
	}
	env.succeed(msg)
	return nil
}

func profilePassword(c *cli.Context, env *Env) error {
	msg, err := env.Catalog.ChangePassword(c.Context, domain.PasswordChange{
		CurrentPassword:         c.String("current-password"),
		NewPassword:             c.String("new-password"),
		NewPasswordConfirmation: c.String("password-confirmation"),
	})
	if err != nil {
		return env.fail(err)
	}
	env.succeed(msg)
	return nil
}
