package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"extpack/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  `Print the configuration extpack uses after merging the config file over the defaults.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.ConfigPath); os.IsNotExist(err) {
		fmt.Printf("# %s not found; showing defaults\n", cfg.ConfigPath)
	} else {
		fmt.Printf("# %s\n", cfg.ConfigPath)
	}
	return cfg.Encode(os.Stdout)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Defaults(configPath)

	if _, err := os.Stat(cfg.ConfigPath); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfg.ConfigPath)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("Wrote %s\n", cfg.ConfigPath)
	return nil
}
