package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"farmd/config"
	"farmd/internal/daemon"
	"farmd/internal/logging"
	"farmd/internal/support/buildinfo"
)

func main() {
	if err := logging.Configure(logging.LevelInfo); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := rootCmd().Execute(); err != nil {
		slog.Error("daemon failed", "err", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var dataRoot string
	var debug bool

	cmd := &cobra.Command{
		Use:     "farmd",
		Short:   "Farm robot device daemon",
		Version: buildinfo.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dataRoot != "" {
				cfg.DataRoot = dataRoot
			}

			level := cfg.LogLevel
			if debug {
				level = logging.LevelDebug
			}
			if err := logging.Configure(level); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return daemon.Run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "Device config file")
	cmd.Flags().StringVar(&dataRoot, "data-root", "", "Override the configured data root")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}
