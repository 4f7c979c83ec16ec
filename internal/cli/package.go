package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"extpack/internal/config"
	"extpack/internal/git"
	"extpack/internal/pipeline"
	"extpack/internal/registry"
	"extpack/internal/tui"
	"extpack/internal/tui/styles"
)

var (
	unpublished   bool
	dryRun        bool
	noTUI         bool
	jobs          int
	timeout       time.Duration
	registryFlag  string
	outputFlag    string
	baselineFlag  string
	publishedFlag string
)

var packageCmd = &cobra.Command{
	Use:   "package [id...]",
	Short: "Package changed, unpublished or named extensions",
	Long: `Package extensions from the registry into <id>-<version>.tar.gz archives.

Without arguments, packages every extension whose registry version differs
from the baseline ref. With --unpublished, packages every extension whose
current version is missing from the published index. With IDs, packages
exactly those extensions.

Examples:
  extpack package
  extpack package --unpublished --jobs 4
  extpack package my-theme my-language --dry-run`,
	RunE: runPackage,
}

func init() {
	addSelectionFlags(packageCmd)
	packageCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the selected extensions without building")
	packageCmd.Flags().BoolVar(&noTUI, "no-tui", false, "log progress instead of showing the interactive view")
	packageCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "number of extensions to build concurrently")
	packageCmd.Flags().DurationVar(&timeout, "timeout", 0, "per-extension build timeout")
	packageCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "directory for finished archives")
}

// addSelectionFlags registers the flags that decide which extensions a run selects
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&unpublished, "unpublished", false, "select extensions whose version is not in the published index")
	cmd.Flags().StringVar(&registryFlag, "registry", "", "path to the extension registry")
	cmd.Flags().StringVar(&baselineFlag, "baseline", "", "git ref the registry is compared against")
	cmd.Flags().StringVar(&publishedFlag, "published-index", "", "published-versions index file or URL")
}

// applyFlags overrides config values with flags set on the command line
func applyFlags(cfg *config.Config) {
	if registryFlag != "" {
		cfg.RegistryPath = registryFlag
	}
	if baselineFlag != "" {
		cfg.BaselineRef = baselineFlag
	}
	if publishedFlag != "" {
		cfg.PublishedIndex = publishedFlag
	}
	if outputFlag != "" {
		cfg.OutputDir = outputFlag
	}
	if jobs > 0 {
		cfg.Jobs = jobs
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
}

// selection returns the run mode for the command line
func selection(args []string) (pipeline.Mode, []registry.ExtensionID, error) {
	if len(args) > 0 {
		if unpublished {
			return 0, nil, errors.New("--unpublished cannot be combined with explicit extension IDs")
		}
		ids := make([]registry.ExtensionID, len(args))
		for i, a := range args {
			ids[i] = registry.ExtensionID(a)
		}
		return pipeline.ModeExplicit, ids, nil
	}
	if unpublished {
		return pipeline.ModeUnpublished, nil, nil
	}
	return pipeline.ModeChanged, nil, nil
}

// publishedSource returns the configured published-versions source, or nil
func publishedSource(cfg *config.Config) registry.PublishedSource {
	switch {
	case cfg.PublishedIndex == "":
		return nil
	case cfg.IsRemoteIndex():
		cache := registry.NewCacheManager(cfg.PublishedCachePath(), time.Duration(cfg.CacheTTL)*time.Hour)
		return registry.NewHTTPSource(cfg.PublishedIndex, cache)
	default:
		return &registry.FileSource{Path: cfg.PublishedIndex}
	}
}

// newPipeline wires a pipeline from the effective configuration
func newPipeline(cfg *config.Config, options ...pipeline.Option) *pipeline.Pipeline {
	opts := pipeline.Options{
		RegistryPath: cfg.RegistryPath,
		BuildDir:     cfg.BuildDir,
		OutputDir:    cfg.OutputDir,
		BaselineRef:  cfg.BaselineRef,
		Jobs:         cfg.Jobs,
		Timeout:      cfg.Timeout,
		DryRun:       dryRun,
	}

	base := []pipeline.Option{
		pipeline.WithVCS(git.NewClient(filepath.Dir(cfg.RegistryPath))),
	}
	if src := publishedSource(cfg); src != nil {
		base = append(base, pipeline.WithPublishedSource(src))
	}
	return pipeline.New(opts, append(base, options...)...)
}

func runPackage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg)

	mode, ids, err := selection(args)
	if err != nil {
		return err
	}
	if !dryRun {
		if err := cfg.EnsureDirs(); err != nil {
			return fmt.Errorf("failed to create directories: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var report *pipeline.Report
	if useTUI() {
		title := fmt.Sprintf("Packaging %s extensions", mode)
		report, err = tui.Run(ctx, title, func(ctx context.Context, obs pipeline.Observer) (*pipeline.Report, error) {
			return newPipeline(cfg, pipeline.WithObserver(obs)).Run(ctx, mode, ids)
		})
	} else {
		report, err = newPipeline(cfg, pipeline.WithLogger(logger)).Run(ctx, mode, ids)
		if report != nil {
			printReport(report)
		}
	}

	if errors.Is(err, context.Canceled) {
		return errors.New("interrupted")
	}
	if err != nil {
		return err
	}

	if n := report.Count(pipeline.StatusFailed); n > 0 {
		return fmt.Errorf("%d extension(s) failed to package", n)
	}
	return nil
}

func useTUI() bool {
	if noTUI || dryRun {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printReport prints the outcome of a run without the interactive view
func printReport(report *pipeline.Report) {
	if dryRun {
		if len(report.Selected) == 0 {
			fmt.Println("No extensions selected.")
			return
		}
		for _, o := range report.Outcomes {
			fmt.Printf("%s %s\n", o.ID, o.Version)
		}
		return
	}

	if len(report.Outcomes) == 0 {
		fmt.Println("Nothing to package.")
		return
	}

	for _, o := range report.Outcomes {
		switch o.Status {
		case pipeline.StatusPackaged:
			fmt.Printf("%s %s %s\n", styles.StatusPackaged, o.ID, o.Archive)
		case pipeline.StatusSkipped:
			fmt.Printf("%s %s skipped: %v\n", styles.StatusSkipped, o.ID, o.Err)
		default:
			fmt.Printf("%s %s %v\n", styles.StatusFailed, o.ID, o.Err)
		}
	}

	summary := fmt.Sprintf("\n%d packaged, %d failed, %d skipped",
		report.Count(pipeline.StatusPackaged),
		report.Count(pipeline.StatusFailed),
		report.Count(pipeline.StatusSkipped))
	if report.Count(pipeline.StatusFailed) > 0 {
		fmt.Println(styles.ErrorMsg.Render(summary))
	} else {
		fmt.Println(styles.SuccessMsg.Render(summary))
	}
}
