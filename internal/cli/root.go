package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"extpack/internal/config"
)

var (
	configPath string
	verbose    bool

	logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "extpack",
		ReportTimestamp: true,
	})
)

var rootCmd = &cobra.Command{
	Use:   "extpack",
	Short: "Package editor extensions for publishing",
	Long: `extpack packages the extensions listed in a registry file into
versioned, installable archives.

By default it packages every extension whose version changed since the
baseline git ref. Use --unpublished to compare against a published-versions
index instead, or name extension IDs to package exactly those.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
	},
}

// loadConfig loads the configuration named by --config
func loadConfig() (*config.Config, error) {
	cfg, err := config.DefaultConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFileName, "path to the extpack config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(packageCmd)
	rootCmd.AddCommand(changedCmd)
	rootCmd.AddCommand(validateThemeCmd)
	rootCmd.AddCommand(configCmd)
}
