package command

import (
	"errors"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/libcat-go/internal/core/domain"
	"github.com/yndnr/libcat-go/internal/core/session"
)

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with email and password",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "email",
				Aliases: []string{"e"},
				Usage:   "Account email",
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Account password",
				EnvVars: []string{"LIBCAT_PASSWORD"},
			},
		},
		Action: on(signInScreen, authLogin),
	}
}

// RegisterCommand returns the register command.
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Full name",
			},
			&cli.StringFlag{
				Name:    "email",
				Aliases: []string{"e"},
				Usage:   "Account email",
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Password",
				EnvVars: []string{"LIBCAT_PASSWORD"},
			},
			&cli.StringFlag{
				Name:  "password-confirmation",
				Usage: "Password again",
			},
			&cli.StringFlag{
				Name:  "role",
				Value: string(domain.RoleUser),
				Usage: "Account role: user, admin",
			},
			&cli.StringFlag{
				Name:  "admin-code",
				Usage: "Admin registration code (required for --role admin)",
			},
		},
		Action: on(signInScreen, authRegister),
	}
}

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Sign out and forget the stored token",
		Action: authLogout,
	}
}

// WhoamiCommand returns the whoami command.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the signed-in user",
		Action: on(homeScreen, authWhoami),
	}
}

func authLogin(c *cli.Context, env *Env) error {
	email := strings.TrimSpace(c.String("email"))
	password := c.String("password")
	if email == "" || password == "" {
		return env.fail(domain.ErrValidation.WithDetails("Email and password are required"))
	}

	err := env.spin("Signing in", func() error {
		return env.Session.Login(c.Context, email, password)
	})
	return authResult(err)
}

func authRegister(c *cli.Context, env *Env) error {
	reg := domain.Registration{
		Name:                 strings.TrimSpace(c.String("name")),
		Email:                strings.TrimSpace(c.String("email")),
		Password:             c.String("password"),
		PasswordConfirmation: c.String("password-confirmation"),
		Role:                 domain.Role(strings.ToLower(c.String("role"))),
		AdminCode:            c.String("admin-code"),
	}
	if err := session.VerifyRegistration(reg, env.Config.Auth.AdminRegistrationCode); err != nil {
		return env.fail(err)
	}

	err := env.spin("Creating account", func() error {
		return env.Session.Register(c.Context, reg)
	})
	return authResult(err)
}

// authResult marks login and register failures the controller has already
// announced.
func authResult(err error) error {
	if err == nil {
		return nil
	}
	if session.Announced(err) {
		return reported(err)
	}
	return err
}

func authLogout(c *cli.Context) error {
	env := envFrom(c)
	if env == nil {
		return errors.New("command environment not initialized")
	}
	if err := env.Open(); err != nil {
		return err
	}
	return env.Session.Logout(c.Context)
}

func authWhoami(c *cli.Context, env *Env) error {
	return env.Printer.Print(env.Session.Snapshot().User)
}
