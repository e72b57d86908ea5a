package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/pump-alarm-gateway/internal/config"
	"github.com/oshokin/pump-alarm-gateway/internal/service/sampler"
	"github.com/oshokin/pump-alarm-gateway/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// interval overrides the sampling period for bench testing.
	interval time.Duration

	// rootCmd represents the base command for the sampling service.
	rootCmd = &cobra.Command{
		Use:   "pump-sampler",
		Short: "Sample pump sensors and publish snapshots.",
		Long: `Background service that polls the pump sensor channels over Modbus.

Once per sampling interval it reads the vibration, photoelectric and
electrical channels, classifies each reading against its thresholds and
publishes one timestamped snapshot to the shared state file. The alarm
decision service consumes that snapshot on its own schedule.

A channel that stops answering coasts on its last good reading for the
configured retention window, after which the point is marked degraded.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return sampler.Run(ctx, &sampler.Options{
				ConfigPath: configPath,
				Interval:   interval,
				LogLevel:   logLevel,
			})
		},
	}
)

// Execute runs the pump-sampler CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level override (debug, info, warn, error)")

	// Hidden interval override for bench testing against a simulator.
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "sampling interval override")

	if err := rootCmd.Flags().MarkHidden("interval"); err != nil {
		panic(err)
	}
}
