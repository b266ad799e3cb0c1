package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edgeclimate/acbridge/config"
	"github.com/edgeclimate/acbridge/registry"
)

var (
	runProfile string
	runDataDir string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the polling daemon",
	Long: `Run the polling daemon for one device.

The daemon connects to the unit, refreshes the tracked register set on the
configured interval, and reconnects with exponential backoff when the link
drops. State is held in memory; use the write/scan commands or an automation
layer on top for control.`,
	Example: `  # Run against a device profile
  acbridge run --profile ac.yaml

  # Run against flags only (defaults for everything else)
  acbridge run -H 192.168.1.100`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().StringVar(&runProfile, "profile", "", "Device profile YAML file")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "Directory for auxiliary state (filter countdown)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	profile, err := loadRunProfile()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dev, err := registry.Open(profile, runDataDir, logger)
	if err != nil {
		return err
	}
	reg := registry.New()
	if err := reg.Add(dev); err != nil {
		return err
	}
	defer reg.CloseAll()

	// Initial connect, retried with backoff until it succeeds or we are told
	// to stop.
	if err := dev.Hub.Connect(ctx); err != nil {
		logger.Warn("initial connect failed, retrying",
			slog.String("addr", dev.Hub.Addr()),
			slog.String("error", err.Error()))
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := dev.Hub.Reconnect(ctx); err == nil {
				break
			} else if errors.Is(err, context.Canceled) {
				return err
			}
		}
	}

	dev.Coordinator.Refresh(ctx)
	go dev.Coordinator.Run(ctx)

	logger.Info("daemon started",
		slog.String("device", dev.ID),
		slog.String("addr", dev.Hub.Addr()),
		slog.Duration("interval", dev.Coordinator.Interval()))

	// Supervision loop: when polling goes unavailable and the hub has lost
	// the link, drive backoff reconnects.
	ticker := time.NewTicker(dev.Coordinator.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
			st := dev.Coordinator.Status()
			if st.Available {
				continue
			}
			logger.Warn("device unavailable",
				slog.Int("consecutive_errors", st.ConsecutiveErrors))
			if !dev.Hub.IsConnected() {
				if err := dev.Hub.Reconnect(ctx); err != nil && errors.Is(err, context.Canceled) {
					return nil
				}
			}
		}
	}
}

func loadRunProfile() (*config.Profile, error) {
	if runProfile != "" {
		return config.Load(runProfile)
	}
	p := &config.Profile{
		Host:           viper.GetString("host"),
		Port:           viper.GetInt("port"),
		UnitID:         int(viper.GetUint("unit")),
		TimeoutSeconds: viper.GetDuration("timeout").Seconds(),
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
