package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"extpack/internal/pipeline"
	"extpack/internal/registry"
	"extpack/internal/tui/styles"
)

var changedCmd = &cobra.Command{
	Use:   "changed",
	Short: "List the extensions a package run would select",
	Long: `List extensions whose registry version differs from the baseline ref,
or with --unpublished, whose version is missing from the published index.`,
	Args: cobra.NoArgs,
	RunE: runChanged,
}

func init() {
	addSelectionFlags(changedCmd)
}

func runChanged(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg)

	mode := pipeline.ModeChanged
	if unpublished {
		mode = pipeline.ModeUnpublished
	}

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		return err
	}

	selected, err := newPipeline(cfg, pipeline.WithLogger(logger)).Select(cmd.Context(), reg, mode, nil)
	if err != nil {
		return err
	}

	if len(selected) == 0 {
		fmt.Println(styles.Muted.Render("No extensions selected."))
		return nil
	}
	for _, id := range selected {
		entry, _ := reg.Lookup(id)
		fmt.Printf("%s %s\n", id, entry.Version)
	}
	return nil
}
