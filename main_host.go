package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ember/app"
	"ember/hal"
	"ember/internal/buildinfo"
	"ember/internal/config"
	"ember/kernel"
)

var (
	configPath string
	verbose    bool
	ticks      uint64
	broker     string
	serialDev  string
	noSignal   bool
	window     bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ember",
	Short: "Ember - a three-level priority RTOS kernel on a simulated board",
	Long: `Ember runs a single-core RTOS kernel with system, periodic and
round-robin tasks on a simulated board: LED, GPIO, framebuffer, serial
console and an optional pub/sub uplink.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot the kernel with the demo workload",
	RunE:  runBoard,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
	},
}

var configCmd = &cobra.Command{
	Use:   "config [path]",
	Short: "Write the default configuration as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ember.yaml", "Configuration file")

	runCmd.Flags().Uint64Var(&ticks, "ticks", 0, "Stop after N kernel ticks (0 = run until interrupted)")
	runCmd.Flags().StringVar(&broker, "broker", "", "Pub/sub broker address host:port (overrides config)")
	runCmd.Flags().StringVar(&serialDev, "serial", "", "Serial device for the trace (overrides config)")
	runCmd.Flags().BoolVar(&noSignal, "no-signal", false, "Exit right after an abort instead of blinking the code")
	runCmd.Flags().BoolVar(&window, "window", false, "Show the framebuffer and pin states in a desktop window (needs cgo)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBoard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if broker != "" {
		cfg.Client.Broker = broker
	}
	if serialDev != "" {
		cfg.Serial.Device = serialDev
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("booting",
		zap.String("version", buildinfo.Short()),
		zap.String("config", configPath),
		zap.Uint64("ticks", ticks),
		zap.Bool("window", window),
	)

	board := func(ctx context.Context, h hal.HAL) error {
		return app.Run(ctx, h, cfg, app.Options{
			Logger: logger,
			Ticks:  ticks,
			Signal: !noSignal,
		})
	}
	host := hal.HostConfig{SerialDevice: cfg.Serial.Device}
	if window {
		err = hal.RunWindow(ctx, hal.WindowConfig{Host: host}, board)
	} else {
		err = hal.RunHeadless(ctx, hal.HeadlessConfig{Host: host}, board)
	}

	var fe *kernel.FatalError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case errors.As(err, &fe):
		return fmt.Errorf("board halted: %w", fe)
	default:
		return err
	}
}
