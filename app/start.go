package app

import (
	"github.com/spf13/cobra"

	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/daemon"
	"github.com/community-dashboard/community-dashboard/internal/logger"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	startCmd.Flags().BoolVar(
		&browseStatic,
		"browse",
		false,
		"Enable static file browsing (for development purposes only)",
	)

	rootCmd.AddCommand(startCmd)
}

var (
	devMode      bool
	browseStatic bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the community-dashboard web service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ReadConfig(configPath)
			if err != nil {
				return err
			}

			if devMode {
				cfg.DevMode = true
			}

			if browseStatic {
				cfg.Webserver.BrowseStatic = true
			}

			if err = logger.Init(cfg.Log); err != nil {
				return err
			}

			d, err := daemon.New(cmd.Context(), &cfg)
			if err != nil {
				return err
			}

			defer func() {
				_ = d.Close()
			}()

			go d.WaitShutdown()

			return d.Start()
		},
	}
)
