package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"extpack/internal/theme"
	"extpack/internal/tui/styles"
)

var validateThemeCmd = &cobra.Command{
	Use:   "validate-theme <file>...",
	Short: "Validate theme-family files against the theme schema",
	Long: `Validate one or more theme-family JSON files and print every
diagnostic for each invalid file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidateTheme,
}

func runValidateTheme(cmd *cobra.Command, args []string) error {
	invalid := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		err = theme.ValidateBytes(data)
		if err == nil {
			fmt.Printf("%s %s\n", styles.StatusPackaged, path)
			continue
		}

		invalid++
		fmt.Printf("%s %s\n", styles.StatusFailed, path)
		var verr *theme.ValidationError
		if errors.As(err, &verr) {
			for _, msg := range verr.Errors {
				fmt.Println(styles.Detail.Render(msg))
			}
		} else {
			fmt.Println(styles.Detail.Render(err.Error()))
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d theme file(s) invalid", invalid, len(args))
	}
	return nil
}
