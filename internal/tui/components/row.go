package components

import (
	"fmt"

	"extpack/internal/pipeline"
	"extpack/internal/tui/styles"
)

// StatusIcon returns the glyph for an outcome's status. Building rows use
// the spinner's current frame.
func StatusIcon(status pipeline.Status, spin Spinner) string {
	switch status {
	case pipeline.StatusBuilding:
		return spin.Frame()
	case pipeline.StatusPackaged:
		return styles.StatusPackaged.String()
	case pipeline.StatusFailed:
		return styles.StatusFailed.String()
	case pipeline.StatusSkipped:
		return styles.StatusSkipped.String()
	default:
		return styles.StatusPending.String()
	}
}

// Row renders one extension's line, followed by its error when it failed
// or was skipped
func Row(o pipeline.Outcome, spin Spinner) string {
	label := styles.ExtensionID.Render(string(o.ID))
	if o.Version != "" {
		label += styles.Muted.Render("@" + o.Version)
	}

	line := fmt.Sprintf("%s %s  %s", StatusIcon(o.Status, spin), label, styles.Muted.Render(o.Status.String()))
	if o.Status == pipeline.StatusPackaged && o.Archive != "" {
		line += "  " + styles.Muted.Render(o.Archive)
	}
	if o.Err != nil {
		line += "\n" + styles.Detail.Render(o.Err.Error())
	}
	return line
}
