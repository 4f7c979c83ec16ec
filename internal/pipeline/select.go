package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"extpack/internal/diff"
	"extpack/internal/git"
	"extpack/internal/registry"
)

// Select returns the IDs a run in mode should package, in registry order.
// For ModeExplicit, ids are kept even when unknown so they can be reported.
func (p *Pipeline) Select(ctx context.Context, reg *registry.Registry, mode Mode, ids []registry.ExtensionID) ([]registry.ExtensionID, error) {
	switch mode {
	case ModeChanged:
		baseline, err := p.baseline(ctx)
		if err != nil {
			return nil, err
		}
		return diff.ChangedSince(reg, baseline), nil

	case ModeUnpublished:
		if p.published == nil {
			return nil, errors.New("unpublished mode requires a published index")
		}
		published, err := p.published.Published(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load published versions: %w", err)
		}
		return diff.Unpublished(reg, published), nil

	case ModeExplicit:
		return explicit(reg, ids), nil

	default:
		return nil, fmt.Errorf("unknown selection mode %v", mode)
	}
}

// baseline loads the registry file as of the baseline ref. A registry that
// did not exist at the ref yields an empty baseline.
func (p *Pipeline) baseline(ctx context.Context) (*registry.Registry, error) {
	if p.vcs == nil {
		return nil, errors.New("changed mode requires a version-control client")
	}

	// The VCS runs in the registry's directory; "./" keeps the path relative to it
	path := "./" + filepath.Base(p.opts.RegistryPath)
	data, err := p.vcs.ShowFile(ctx, p.opts.BaselineRef, path)
	if errors.Is(err, git.ErrPathNotFound) {
		p.logger.Warn("registry not found at baseline; treating every extension as changed", "ref", p.opts.BaselineRef)
		return registry.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline registry: %w", err)
	}

	return registry.ParseBaseline(data, p.opts.BaselineRef+":"+path)
}

func explicit(reg *registry.Registry, ids []registry.ExtensionID) []registry.ExtensionID {
	wanted := make(map[registry.ExtensionID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	selected := make([]registry.ExtensionID, 0, len(ids))
	for id := range reg.All() {
		if wanted[id] {
			selected = append(selected, id)
			delete(wanted, id)
		}
	}
	// Unknown IDs keep their command-line order
	for _, id := range ids {
		if wanted[id] {
			selected = append(selected, id)
			delete(wanted, id)
		}
	}
	return selected
}
