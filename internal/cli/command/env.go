package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/yndnr/libcat-go/internal/cli/config"
	"github.com/yndnr/libcat-go/internal/cli/connection"
	"github.com/yndnr/libcat-go/internal/cli/output"
	"github.com/yndnr/libcat-go/internal/core/domain"
	"github.com/yndnr/libcat-go/internal/core/service"
	"github.com/yndnr/libcat-go/internal/core/session"
	"github.com/yndnr/libcat-go/internal/infra/tlsroots"
	"github.com/yndnr/libcat-go/internal/storage/credential"
	"github.com/yndnr/libcat-go/internal/telemetry/logger"
	"github.com/yndnr/libcat-go/internal/telemetry/metric"
)

// Env holds the components shared by every command of one process.
// It is opened lazily so that config and version commands work without a
// usable configuration.
type Env struct {
	Config  *config.CLIConfig
	Logger  logger.Logger
	Metrics *metric.Registry
	Printer *output.Printer
	Library *connection.LibraryClient
	Store   credential.Store
	Router  *session.Router
	Session *session.Controller
	Catalog *service.Catalog

	flags *GlobalFlags
	opts  *options

	opened       bool
	ownsStore    bool
	bootstrapped bool
	console      bool
}

func newEnv(flags *GlobalFlags, opts *options) *Env {
	return &Env{flags: flags, opts: opts}
}

// In returns the input stream.
func (e *Env) In() io.Reader { return e.opts.in }

// Out returns the output stream.
func (e *Env) Out() io.Writer { return e.opts.out }

// ErrOut returns the diagnostics stream.
func (e *Env) ErrOut() io.Writer { return e.opts.err }

// LoadConfig loads the configuration with command line overrides applied.
func (e *Env) LoadConfig() (*config.CLIConfig, error) {
	cfg, err := config.Load(e.flags.Config, e.flags.Overrides())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Open builds the session stack. Later calls are no-ops.
func (e *Env) Open() error {
	if e.opened {
		return nil
	}

	cfg, err := e.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: e.opts.err,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	logger.SetDefault(log)

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	printer := output.NewPrinter(e.opts.out, e.opts.err, format, cfg.Output.Wide, cfg.Output.Quiet)
	metrics := metric.NewRegistry()

	tlsConfig, err := tlsroots.Load(tlsroots.ClientConfig{
		CAFile:       cfg.API.CAFile,
		CADir:        cfg.API.CADir,
		NoSystemRoot: cfg.API.NoSystemRoots,
		ServerName:   cfg.API.ServerName,
		CertFile:     cfg.API.CertFile,
		KeyFile:      cfg.API.KeyFile,
		Logger:       logger.Slog(log),
	})
	if err != nil {
		return err
	}

	httpClient := connection.NewHTTPClient(cfg.API.Server,
		connection.WithTimeout(cfg.API.Timeout),
		connection.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		connection.WithTLSConfig(tlsConfig),
		connection.WithDurationHistogram(metrics.RequestDuration),
		connection.WithLogger(logger.Slog(log)),
	)
	library := connection.NewLibraryClient(httpClient)

	store := e.opts.store
	ownsStore := false
	if store == nil {
		store, err = credential.Open(credential.Config{
			Backend: cfg.Credentials.Backend,
			Path:    cfg.Credentials.Path,
			KeyFile: cfg.CredentialKeyFile(),
			Name:    cfg.Credentials.Name,
			Logger:  logger.Slog(log),
		})
		if err != nil {
			return fmt.Errorf("open credential store: %w", err)
		}
		ownsStore = true
	}

	router := session.NewRouter("/")
	router.OnNavigate = func(_ session.Intent, path string) {
		printer.Navigation(path)
	}
	notifier := session.NotifierFunc(func(n session.Notice) {
		if n.Level == session.NoticeError {
			printer.Failure(n.Message)
			return
		}
		printer.Success(n.Message)
	})

	ctrl := session.New(library, store, router, notifier,
		session.WithLogger(log),
		session.WithMetrics(metrics),
		session.WithMinTokenLength(cfg.Session.MinTokenLength),
		session.WithSecureOrigin(httpClient.Secure()),
		session.WithCookie(cfg.Credentials.Name, cfg.CredentialMaxAge()),
	)

	e.Config = cfg
	e.Logger = log
	e.Metrics = metrics
	e.Printer = printer
	e.Library = library
	e.Store = store
	e.Router = router
	e.Session = ctrl
	e.Catalog = service.NewCatalog(library, ctrl)
	e.ownsStore = ownsStore
	e.opened = true

	log.Debug("environment ready",
		"server", httpClient.BaseURL(),
		"credentials", cfg.Credentials.Backend,
	)
	return nil
}

// Close releases the credential store and writes the metrics textfile.
func (e *Env) Close() error {
	if !e.opened {
		return nil
	}
	e.opened = false

	var errs []error
	if e.ownsStore {
		if err := e.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close credential store: %w", err))
		}
	}
	if err := e.Metrics.WriteTextfile(e.Config.Metrics.Textfile); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// spin runs fn behind a progress spinner on stderr.
func (e *Env) spin(message string, fn func() error) error {
	disabled := e.flags.NoSpinner || e.console || e.Printer.Quiet || e.Printer.Machine()
	sp := output.NewSpinner(e.opts.err, message, disabled)
	sp.Start()
	defer sp.Stop()
	return fn()
}

// succeed prints a success notice.
func (e *Env) succeed(msg string) {
	if msg != "" {
		e.Printer.Success(msg)
	}
}

// fail renders err as notices when it carries a user-facing message and
// marks it as reported. Other errors are returned unchanged.
func (e *Env) fail(err error) error {
	var actionErr *service.ActionError
	if errors.As(err, &actionErr) {
		if len(actionErr.Fields) > 0 {
			for _, msg := range actionErr.Fields {
				e.Printer.Failure(msg)
			}
		} else {
			e.Printer.Failure(actionErr.Message)
		}
		return reported(err)
	}

	var de *domain.Error
	if errors.As(err, &de) && userFacing(err) {
		e.Printer.Failure(de.Text())
		return reported(err)
	}
	return err
}
