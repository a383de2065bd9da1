// File: cmd/headunitd/root.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-headunit/control"
	"github.com/momentics/hioload-headunit/facade"
	"github.com/momentics/hioload-headunit/internal/logging"
)

const shutdownTimeout = 10 * time.Second

type rootFlags struct {
	configPath       string
	port             int
	disableAutostart bool
	controlAddr      string
	noControlAPI     bool
}

func newRootCmd(log *logging.Logger) (*cobra.Command, error) {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "headunitd",
		Short: "Runs the projection head unit connection orchestrator",
		Long: `Runs the projection head unit connection orchestrator.

Watches the USB bus for phones in accessory mode, listens for wireless
projection peers and keeps at most one projection session running.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return run(cmd.Context(), log, cfg, flags.configPath)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&flags.configPath, "config", "c", "", "Path to the YAML configuration file. Watched for changes when set.")
	fs.IntVarP(&flags.port, "port", "p", 0, "Wireless projection listen port (overrides the config file).")
	fs.BoolVar(&flags.disableAutostart, "disable-autostart", false, "Do not start sessions for attached USB devices.")
	fs.StringVar(&flags.controlAddr, "control-addr", "", "Address of the local control API (overrides the config file).")
	fs.BoolVar(&flags.noControlAPI, "no-control-api", false, "Disable the local control API.")
	log.AddLevelFlag(cmd.PersistentFlags())

	return cmd, nil
}

// loadConfig reads the file, if any, and applies flags that were set.
func loadConfig(cmd *cobra.Command, flags rootFlags) (*control.Config, error) {
	cfg := control.DefaultConfig()
	if flags.configPath != "" {
		var err error
		if cfg, err = control.LoadConfig(flags.configPath); err != nil {
			return nil, err
		}
	}

	fs := cmd.Flags()
	if fs.Changed("port") {
		cfg.Listen.Port = flags.port
	}
	if fs.Changed("disable-autostart") {
		cfg.Autostart.Disabled = flags.disableAutostart
	}
	if fs.Changed("control-addr") {
		cfg.ControlAPI.Addr = flags.controlAddr
	}
	if flags.noControlAPI {
		cfg.ControlAPI.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, log *logging.Logger, cfg *control.Config, configPath string) error {
	var opts []facade.Option
	if configPath != "" {
		opts = append(opts, facade.WithConfigPath(configPath))
	}
	hu, err := facade.New(cfg, log.Logger, opts...)
	if err != nil {
		return err
	}
	if err := hu.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return hu.Shutdown(shutdownCtx)
}
