package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/pump-alarm-gateway/internal/config"
	"github.com/oshokin/pump-alarm-gateway/internal/service/writer"
	"github.com/oshokin/pump-alarm-gateway/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// interval overrides the decision period for bench testing.
	interval time.Duration

	// rootCmd represents the base command for the alarm decision service.
	rootCmd = &cobra.Command{
		Use:   "pump-alarm",
		Short: "Derive alarm decisions and write RTU registers.",
		Long: `Background service that turns sensor snapshots into alarm registers.

Once per decision interval it loads the latest snapshot published by the
sampling service, applies the alarm rules (per-point severities, phase
loss, load state, sensor-fault downgrade) and writes the complete register
image to the RTU over Modbus.

A snapshot older than the staleness bound is rejected and the cycle is
skipped; the registers keep their last written values rather than being
zeroed on missing data.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return writer.Run(ctx, &writer.Options{
				ConfigPath: configPath,
				Interval:   interval,
				LogLevel:   logLevel,
			})
		},
	}
)

// Execute runs the pump-alarm CLI and exits with non-zero status on error.
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
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "decision interval override")

	if err := rootCmd.Flags().MarkHidden("interval"); err != nil {
		panic(err)
	}
}
