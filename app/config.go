package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/community-dashboard/community-dashboard/internal/config"
)

func init() { //nolint: gochecknoinits
	dumpCmd.Flags().StringVar(&dumpFormat, "format", "toml", "Output format: toml or json")
	dumpCmd.Flags().BoolVar(&dumpSecrets, "show-secrets", false, "Print passwords and keys unmasked")

	configCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(configCmd)
}

var (
	dumpFormat  string
	dumpSecrets bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration after environment overrides",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ReadConfig(configPath)
			if err != nil {
				return err
			}

			out, err := dump(cfg, dumpFormat, dumpSecrets)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)

			return err
		},
	}
)

func dump(cfg config.Config, format string, showSecrets bool) (string, error) {
	if !showSecrets {
		cfg = config.Redacted(cfg)
	}

	switch format {
	case "toml":
		return config.DumpConfig(&cfg)
	case "json":
		return config.DumpConfigJSON(&cfg)
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}
