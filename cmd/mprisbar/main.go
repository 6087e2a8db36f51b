package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/bubbletea"
	"github.com/genricoloni/mprisbar/internal/config"
	"github.com/genricoloni/mprisbar/internal/domain"
	"github.com/genricoloni/mprisbar/internal/engine"
	"github.com/genricoloni/mprisbar/internal/mpris"
	"github.com/genricoloni/mprisbar/internal/ui"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command tree and returns the process exit code
func run(args []string) int {
	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// coreOptions wires the bus bridge and the refresh engine
func coreOptions(opts config.Options) fx.Option {
	return fx.Options(
		// Logger configuration
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),

		fx.Supply(opts),

		// Provide dependencies
		fx.Provide(
			newLogger,
			fx.Annotate(config.NewAppConfig, fx.As(new(domain.Config))),
			fx.Annotate(mpris.NewSessionConnector, fx.As(new(mpris.Connector))),
			fx.Annotate(mpris.NewBridge, fx.As(new(domain.TrackSource)), fx.As(new(domain.Commander))),
			fx.Annotate(mpris.NewSignalWatcher, fx.As(new(domain.Watcher))),
			engine.NewEngine,
		),
	)
}

// AppOptions is the full widget: core, terminal UI and lifecycle hooks
func AppOptions(opts config.Options) fx.Option {
	return fx.Options(
		coreOptions(opts),
		fx.Provide(
			newController,
			ui.NewModel,
			newProgram,
		),
		fx.Invoke(registerHooks),
	)
}

// newLogger creates a new zap logger instance writing to a file, since
// stdout belongs to the terminal UI
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()

	path := os.Getenv("MPRISBAR_LOG_FILE")
	if path == "" {
		path = filepath.Join(os.TempDir(), "mprisbar.log")
	}
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	if lvl := os.Getenv("MPRISBAR_LOG_LEVEL"); lvl != "" {
		level, err := zap.ParseAtomicLevel(lvl)
		if err != nil {
			return nil, err
		}
		cfg.Level = level
	}

	return cfg.Build()
}

func newController(e *engine.Engine) ui.Controller {
	return e
}

func newProgram(m *ui.Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

// registerHooks sets up application lifecycle hooks
func registerHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	logger *zap.Logger,
	eng *engine.Engine,
	prog *tea.Program,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("mprisbar started")
			if err := eng.Start(ctx); err != nil {
				return err
			}

			go func() {
				if _, err := prog.Run(); err != nil {
					logger.Error("Terminal UI failed", zap.Error(err))
				}
				if err := shutdowner.Shutdown(); err != nil {
					logger.Warn("Shutdown request failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			prog.Quit()
			prog.Wait()
			return eng.Stop(ctx)
		},
	})
}
