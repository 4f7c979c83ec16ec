package packager

import (
	"fmt"
	"strings"

	"extpack/internal/registry"
)

// Error wraps any failure that aborted one extension's package build
type Error struct {
	ID  registry.ExtensionID
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to package %s: %v", e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// VersionMismatchError reports a manifest whose version differs from the
// version the registry declares for the extension.
type VersionMismatchError struct {
	ID       registry.ExtensionID
	Name     string // Manifest display name
	Expected string // Registry version
	Actual   string // Manifest version
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("version mismatch for %s (%q): registry declares %s, manifest declares %s",
		e.ID, e.Name, e.Expected, e.Actual)
}

// InvalidThemeError reports a theme file that failed to parse or validate.
// One bad theme invalidates the whole package.
type InvalidThemeError struct {
	ID     registry.ExtensionID
	File   string
	Errors []string
}

func (e *InvalidThemeError) Error() string {
	return fmt.Sprintf("invalid theme %s in %s:\n  %s", e.File, e.ID, strings.Join(e.Errors, "\n  "))
}
