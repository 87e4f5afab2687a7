package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/libcat-go/internal/cli/repl"
	"github.com/yndnr/libcat-go/internal/core/domain"
	"github.com/yndnr/libcat-go/internal/core/session"
	"github.com/yndnr/libcat-go/internal/infra/confloader"
	"github.com/yndnr/libcat-go/internal/infra/shutdown"
	"github.com/yndnr/libcat-go/internal/storage/credential"
	"github.com/yndnr/libcat-go/internal/telemetry/logger"
)

const shutdownTimeout = 5 * time.Second

// ConsoleCommand returns the interactive console command.
func ConsoleCommand() *cli.Command {
	return &cli.Command{
		Name:    "console",
		Aliases: []string{"shell"},
		Usage:   "Start the interactive console",
		Description: "Lines are run as libcat-cli commands against one session. " +
			"Global flags given to console apply to every line.",
		Action: runConsole,
	}
}

func runConsole(c *cli.Context) error {
	env := envFrom(c)
	if env == nil {
		return errors.New("command environment not initialized")
	}
	if env.console {
		return errors.New("already in the console")
	}
	if err := env.Open(); err != nil {
		return err
	}
	env.console = true
	defer func() { env.console = false }()

	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	env.Router.SetLocation(session.SignInPath)
	env.bootstrapped = true
	if err := env.Session.Bootstrap(ctx); err != nil {
		if errors.Is(err, domain.ErrCredentialStore) {
			return err
		}
		env.Logger.Debug("stored session not restored", "error", err)
	}

	history := repl.NewHistory(env.Config.Console.HistoryFile, env.Config.Console.HistorySize)
	if err := history.Load(); err != nil {
		env.Logger.Warn("load history failed", "error", err)
	}

	app := c.App
	exec := func(ctx context.Context, args []string) error {
		if len(args) > 0 && (args[0] == "console" || args[0] == "shell") {
			return errors.New("already in the console")
		}
		err := app.RunContext(withNested(ctx), append([]string{app.Name}, args...))
		if Reported(err) {
			return nil
		}
		return err
	}

	r := repl.New(exec, commandPaths(app.Commands, ""),
		repl.WithIO(env.In(), env.Out()),
		repl.WithHistory(history),
		repl.WithPrompt(func() string {
			return "libcat:" + env.Router.Location() + "> "
		}),
		repl.WithAfterLine(func(ctx context.Context) {
			if err := env.Session.Reconcile(ctx); err != nil {
				env.Logger.Debug("reconcile after line failed", "error", err)
			}
		}),
	)

	handler := shutdown.NewHandler(shutdownTimeout)
	handler.OnShutdown("history", func(context.Context) error {
		return history.Save()
	})
	if w := env.watchCredentials(ctx); w != nil {
		handler.OnShutdown("credential watcher", func(context.Context) error {
			return w.Stop()
		})
	}

	runErr := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		runErr <- r.Run(ctx)
		close(stopped)
		handler.Trigger()
	}()
	// Runs first: stop reading lines before history is saved.
	handler.OnShutdown("console", func(hctx context.Context) error {
		cancel()
		select {
		case <-stopped:
		case <-hctx.Done():
		}
		return nil
	})

	err := handler.Wait(parent)
	select {
	case e := <-runErr:
		if e != nil {
			return e
		}
	default:
	}
	return err
}

// commandPaths lists every command path below prefix for completion.
func commandPaths(cmds []*cli.Command, prefix string) []string {
	var paths []string
	for _, cmd := range cmds {
		if cmd.Hidden {
			continue
		}
		path := prefix + cmd.Name
		paths = append(paths, path)
		paths = append(paths, commandPaths(cmd.Subcommands, path+" ")...)
	}
	return paths
}

// watchCredentials follows the credential file so that a login or logout
// in another process is picked up by the console.
func (e *Env) watchCredentials(ctx context.Context) *confloader.Watcher {
	if !e.Config.Console.WatchCredentials || !e.ownsStore ||
		e.Config.Credentials.Backend != credential.BackendFile {
		return nil
	}

	path := e.Config.Credentials.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		e.Logger.Warn("credential watch disabled", "error", err)
		return nil
	}
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(logger.Slog(e.Logger)))
	if err != nil {
		e.Logger.Warn("credential watch disabled", "error", err)
		return nil
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil
	}
	w.OnChange(func(confloader.Change) {
		e.syncCredential(ctx)
	})
	w.Start()
	return w
}

// syncCredential follows the session to a credential file changed by
// another process. An event for the token this session already holds only
// resolves a missing profile.
func (e *Env) syncCredential(ctx context.Context) {
	cookie, err := e.Store.Get(ctx)
	snap := e.Session.Snapshot()

	switch {
	case errors.Is(err, credential.ErrNotFound):
		if snap.Token == "" {
			return
		}
	case err != nil:
		e.Logger.Warn("read changed credential failed", "error", err)
		return
	case cookie.Value == snap.Token:
		if err := e.Session.Reconcile(ctx); err != nil {
			e.Logger.Debug("resolve profile failed", "error", err)
		}
		return
	}

	e.Logger.Debug("credential changed outside the console")
	if err := e.Session.Bootstrap(ctx); err != nil {
		e.Logger.Debug("restore changed credential failed", "error", err)
	}
}
