package pipeline

import (
	"context"
	"fmt"

	"extpack/internal/registry"
)

// Mode selects which extensions a run packages
type Mode int

const (
	ModeChanged     Mode = iota // Version differs from the baseline registry
	ModeUnpublished             // Version absent from the published index
	ModeExplicit                // IDs named by the operator
)

func (m Mode) String() string {
	switch m {
	case ModeChanged:
		return "changed"
	case ModeUnpublished:
		return "unpublished"
	case ModeExplicit:
		return "explicit"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// VCS is the version-control collaborator
type VCS interface {
	// ShowFile returns path's content at ref
	ShowFile(ctx context.Context, ref, path string) ([]byte, error)
	// CheckoutCommit materializes one commit of repoURL into the empty dir
	CheckoutCommit(ctx context.Context, repoURL, commit, dir string) error
}

// Status is the state of one extension within a run
type Status int

const (
	StatusPending Status = iota
	StatusBuilding
	StatusPackaged
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusBuilding:
		return "building"
	case StatusPackaged:
		return "packaged"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome records what happened to one selected extension
type Outcome struct {
	ID      registry.ExtensionID
	Version string
	Status  Status
	Archive string // Final archive path when packaged
	Err     error  // Failure or skip reason
}

// Event reports a status change. Index is the extension's position in the
// selection, so observers can render in selection order.
type Event struct {
	Index int
	Outcome
}

// Observer receives events. It may be called from several goroutines.
type Observer func(Event)

// Report is the result of a run, in selection order
type Report struct {
	Mode     Mode
	Selected []registry.ExtensionID
	Outcomes []Outcome
}

// Count returns how many outcomes have status s
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}
