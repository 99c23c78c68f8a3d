package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huebackup/internal/backup"
	"github.com/dokzlo13/huebackup/internal/bootstrap"
	"github.com/dokzlo13/huebackup/internal/config"
	"github.com/dokzlo13/huebackup/internal/db"
	"github.com/dokzlo13/huebackup/internal/discovery"
	"github.com/dokzlo13/huebackup/internal/hue"
	"github.com/dokzlo13/huebackup/internal/ledger"
	"github.com/dokzlo13/huebackup/internal/store"
)

// App wires the bootstrap flow to its real collaborators.
type App struct {
	cfg      *config.Config
	paths    config.Paths
	db       *db.DB
	ledger   *ledger.Ledger
	recorder *ledger.Recorder
	flow     *bootstrap.Flow
}

// New creates the application. prompter is usually prompt.Stdio().
func New(cfg *config.Config, paths config.Paths, prompter bootstrap.Prompter) (*App, error) {
	a := &App{cfg: cfg, paths: paths}

	timeout := cfg.Hue.Timeout.Duration()

	var probe discovery.ProbeFunc
	if cfg.Discovery.ProbeEnabled() {
		probe = discovery.NewProbe(timeout)
	}
	discoverer := discovery.New(
		discovery.NewRegistry(probe),
		discovery.NewMDNS(
			cfg.Discovery.MDNSService,
			cfg.Discovery.MDNSDomain,
			cfg.Discovery.MDNSTimeout.Duration(),
			probe,
		),
	)

	deps := bootstrap.Deps{
		Store:      store.New(paths.Bridge),
		Discoverer: discoverer,
		Prompter:   prompter,
		Registrar:  hue.NewRegistrar(),
		Backup:     backup.New(paths.Backups, timeout),
		DeviceType: hue.HostDeviceType(cfg.Hue.AppName),
	}

	if cfg.History.IsEnabled() {
		database, err := db.Open(paths.History)
		if err != nil {
			// Runs without history
			log.Warn().Err(err).Str("path", paths.History).Msg("Run history disabled")
		} else {
			a.db = database
			a.ledger = ledger.New(database.DB)
			a.recorder = ledger.NewRecorder(a.ledger, ledger.NewRunID())
			deps.Recorder = a.recorder
		}
	}

	a.flow = bootstrap.New(deps)
	return a, nil
}

// Run executes one bootstrap-and-backup run.
func (a *App) Run(ctx context.Context) (bootstrap.Result, error) {
	log.Debug().
		Str("home", a.paths.Home).
		Str("run_id", a.recorder.RunID()).
		Msg("Starting run")

	result, err := a.flow.Run(ctx)
	a.logHistory()
	return result, err
}

// logHistory prints the events recorded during this run.
func (a *App) logHistory() {
	if a.ledger == nil {
		return
	}
	entries, err := a.ledger.GetByRun(a.recorder.RunID())
	if err != nil {
		log.Debug().Err(err).Msg("Failed to read run history")
		return
	}
	events := make([]string, 0, len(entries))
	for _, e := range entries {
		events = append(events, string(e.EventType))
	}
	log.Debug().
		Str("run_id", a.recorder.RunID()).
		Strs("events", events).
		Msg("Run recorded")
}

// Close releases all resources.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Summary returns the one-line, operator-facing description of a fatal error.
func Summary(err error) string {
	var corrupt *store.CorruptError
	switch {
	case errors.As(err, &corrupt):
		return "The stored bridge configuration is invalid. Validate " + corrupt.Path + " with a JSON validator and fix it by hand"
	case errors.Is(err, context.Canceled):
		return "Interrupted"
	case errors.Is(err, config.ErrInvalidSettings):
		return "The settings file could not be read. Fix or remove it to use the defaults"
	case errors.Is(err, hue.ErrRegistration):
		return "Registration with the bridge failed"
	default:
		return "Backup failed"
	}
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
