package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gamecoach-ai/gamecoach/internal/doctor"
	"github.com/gamecoach-ai/gamecoach/internal/logging"
	"github.com/gamecoach-ai/gamecoach/server"
)

func main() {
	var (
		configPath string
		addr       string
		token      string
		doctorFlag bool
	)

	cmd := &cobra.Command{
		Use:           "gamecoach-server",
		Short:         "Serve the gamecoach analysis API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if doctorFlag {
				fmt.Fprintln(os.Stderr, "gamecoach-server preflight checks:")
				if !doctor.PrintResults(doctor.RunChecks("server")) {
					return fmt.Errorf("preflight checks failed")
				}
				return nil
			}

			cfg, err := server.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if token != "" {
				cfg.Token = token
			}

			log, err := logging.New(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			defer log.Sync()

			return server.New(cfg, log).Run()
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file path")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&token, "token", "", "require Bearer token for authentication")
	cmd.Flags().BoolVar(&doctorFlag, "doctor", false, "run preflight checks and exit")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
