// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

// DefaultConfigPath is the configuration file used without --config.
const DefaultConfigPath = "etc/main.toml"

var configPath string // Path to the configuration file

var rootCmd = &cobra.Command{
	Use:   "community-dashboard",
	Short: "community-dashboard is the web dashboard of the community",
	Long: `community-dashboard serves the community dashboard with a local
administrator login and single sign-on through an OpenID Connect provider.`,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", DefaultConfigPath, "Path to the configuration file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
