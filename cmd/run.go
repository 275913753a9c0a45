package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	uuid "github.com/google/uuid"
	config "github.com/inference-gateway/modui/config"
	eventloop "github.com/inference-gateway/modui/eventloop"
	logger "github.com/inference-gateway/modui/internal/logger"
	modules "github.com/inference-gateway/modui/internal/modules"
	script "github.com/inference-gateway/modui/internal/source/script"
	terminal "github.com/inference-gateway/modui/internal/source/terminal"
	x11 "github.com/inference-gateway/modui/internal/source/x11"
	cobra "github.com/spf13/cobra"
	zap "go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the enabled modules on an event source",
	Long: `Build the module chain from modules.enabled and run it on the configured
event source until a module asks to quit or the source stops.

The backend "auto" picks the terminal when stdin is a TTY and an X11 window
when a display is available.

Examples:
  # Run with the configured backend and modules
  modui run

  # Open an X11 window and journal every event
  modui run --backend x11 --modules keymap,journal,status

  # Stop the source as soon as a module fails
  modui run --exit-on-error`,
	RunE: runModules,
}

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Replay a scripted event session through the module chain",
	Long: `Replay the events listed in a YAML script through the enabled modules.
This is the script backend with its path taken from the command line.

Example script:
  name: smoke
  events:
    - kind: resize
      width: 80
      height: 24
    - kind: key
      key: j
      repeat: 3
    - kind: key
      key: q`,
	Args: cobra.ExactArgs(1),
	RunE: replayScript,
}

func init() {
	runCmd.Flags().StringP("backend", "b", "", "event source: auto, terminal, x11 or script (overrides source.backend)")
	runCmd.Flags().StringSliceP("modules", "m", nil, "modules to enable in dispatch order (overrides modules.enabled)")
	runCmd.Flags().Bool("exit-on-error", false, "stop the source on the first module failure")

	replayCmd.Flags().StringSliceP("modules", "m", nil, "modules to enable in dispatch order (overrides modules.enabled)")
	replayCmd.Flags().Duration("delay", 0, "pause between replayed events")
	replayCmd.Flags().Bool("exit-on-error", false, "stop the replay on the first module failure")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
}

func runModules(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromViper()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Source.Backend = backend
	}
	if err := applyDispatchFlags(cmd, cfg); err != nil {
		return err
	}

	_, err = runSession(cmd.Context(), cfg, cmd.OutOrStdout())
	return err
}

func replayScript(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromViper()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Source.Backend = config.BackendScript
	cfg.Source.Script.Path = args[0]
	if cmd.Flags().Changed("delay") {
		cfg.Source.Script.Delay, _ = cmd.Flags().GetDuration("delay")
	}
	if err := applyDispatchFlags(cmd, cfg); err != nil {
		return err
	}

	_, err = runSession(cmd.Context(), cfg, cmd.OutOrStdout())
	return err
}

func applyDispatchFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("modules") {
		cfg.Modules.Enabled, _ = cmd.Flags().GetStringSlice("modules")
	}
	if exit, _ := cmd.Flags().GetBool("exit-on-error"); exit {
		cfg.Dispatch.ExitOnError = true
	}
	return cfg.Validate()
}

// sessionResult summarizes a finished run
type sessionResult struct {
	RunID     string
	Stats     eventloop.Stats
	FailedSeq uint64
}

// runSession builds the module chain and the event loop described by cfg,
// runs it and reports the outcome on out
func runSession(ctx context.Context, cfg *config.Config, out io.Writer) (*sessionResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := &sessionResult{RunID: uuid.New().String()}
	ctx = logger.WithRun(logger.ContextWithLogger(ctx, logger.Logger()), result.RunID)
	log := logger.FromContext(ctx)

	set, err := modules.Build[eventloop.Unit](ctx, cfg.Modules, modules.Env{RunID: result.RunID, Logger: log})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := set.Close(); err != nil {
			log.Warn("failed to close modules", zap.Error(err))
		}
	}()

	opts := []eventloop.Option{
		eventloop.WithLogger(log),
		eventloop.WithObserver(func(seq uint64, kind eventloop.Kind, res eventloop.Result) {
			if res == eventloop.ResultFailed {
				result.FailedSeq = seq
			}
		}),
	}
	if cfg.Dispatch.ExitOnError {
		opts = append(opts, eventloop.WithExitOnError())
	}

	loop, err := openLoop(ctx, cfg, set, opts)
	if err != nil {
		return nil, err
	}

	stopWatch := closeOnDone(ctx, loop.Source())
	defer stopWatch()

	log.Info("run started",
		zap.String("backend", cfg.Source.Backend),
		zap.Strings("modules", set.Names()))
	started := time.Now()

	runErr := loop.Run(set.Handlers())
	result.Stats = loop.Stats()

	log.Info("run finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.Uint64("dispatched", result.Stats.Dispatched),
		zap.Uint64("captured", result.Stats.Captured),
		zap.Uint64("skipped", result.Stats.Skipped),
		zap.Error(runErr))

	fmt.Fprintf(out, "run %s: %d events (%d captured, %d continued, %d failed, %d skipped)\n",
		result.RunID, result.Stats.Dispatched+result.Stats.Skipped,
		result.Stats.Captured, result.Stats.Continued, result.Stats.Failed, result.Stats.Skipped)

	return result, reportRunError(ctx, runErr, result)
}

func reportRunError(ctx context.Context, err error, result *sessionResult) error {
	if err == nil {
		return nil
	}

	var loopErr *eventloop.LoopError[error]
	if !errors.As(err, &loopErr) {
		return err
	}
	if loopErr.IsHandler() {
		return fmt.Errorf("module failed at event #%d: %w", result.FailedSeq, loopErr.Handler)
	}
	if ctx.Err() != nil {
		logger.FromContext(ctx).Info("run interrupted", zap.Error(err))
		return nil
	}
	return fmt.Errorf("event source failed: %w", err)
}

// openLoop creates the event loop for the configured backend
func openLoop(ctx context.Context, cfg *config.Config, set *modules.Set[eventloop.Unit], opts []eventloop.Option) (*eventloop.EventLoop[eventloop.Unit, error], error) {
	terminalOpts := terminalOptions(ctx, cfg.Source.Terminal, set.View)
	x11Opts := x11.Options{
		Display: cfg.Source.X11.Display,
		Width:   cfg.Source.X11.Width,
		Height:  cfg.Source.X11.Height,
		Title:   cfg.Source.X11.Title,
	}

	switch cfg.Source.Backend {
	case config.BackendTerminal:
		opts = append(opts, eventloop.WithSourceName(terminal.SourceName))
		return eventloop.FromBuilder[eventloop.Unit, error](terminal.NewBuilder[eventloop.Unit](terminalOpts...), opts...)
	case config.BackendX11:
		opts = append(opts, eventloop.WithSourceName(x11.SourceName))
		return eventloop.FromBuilder[eventloop.Unit, error](x11.NewBuilder[eventloop.Unit](x11Opts), opts...)
	case config.BackendScript:
		opts = append(opts, eventloop.WithSourceName(script.SourceName))
		builder := script.NewBuilder[eventloop.Unit](cfg.Source.Script.Path, script.WithDelay(cfg.Source.Script.Delay))
		return eventloop.FromBuilder[eventloop.Unit, error](builder, opts...)
	default:
		registerProviders(terminalOpts, x11Opts)
		return eventloop.New[error](opts...)
	}
}

// registerProviders installs the default sources in priority order
func registerProviders(terminalOpts []terminal.Option, x11Opts x11.Options) {
	eventloop.ClearProviders()
	eventloop.Register(&terminal.Provider{Options: terminalOpts})
	eventloop.Register(&x11.Provider{Options: x11Opts})
}

func terminalOptions(ctx context.Context, cfg config.TerminalConfig, view func() string) []terminal.Option {
	opts := []terminal.Option{
		terminal.WithContext(ctx),
		terminal.WithView(view),
	}
	if cfg.AltScreen {
		opts = append(opts, terminal.WithAltScreen())
	}
	if cfg.Mouse {
		opts = append(opts, terminal.WithMouse())
	}
	if cfg.ReportFocus {
		opts = append(opts, terminal.WithReportFocus())
	}
	if cfg.FPS > 0 {
		opts = append(opts, terminal.WithFPS(cfg.FPS))
	}
	return opts
}

// closeOnDone closes sources without context support once ctx is cancelled
func closeOnDone(ctx context.Context, src eventloop.Source[eventloop.Unit]) func() {
	closer, ok := src.(interface{ Close() })
	if !ok {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			closer.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}
