// Package pipeline runs a packaging pass over a registry: it selects the
// extensions to package, gives every build its own scratch directory and
// collects per-extension outcomes in selection order.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"extpack/internal/packager"
	"extpack/internal/registry"
)

// Options configures a run
type Options struct {
	RegistryPath string
	BuildDir     string // Shared scratch root
	OutputDir    string
	BaselineRef  string
	Jobs         int           // Concurrent builds; values below 1 mean 1
	Timeout      time.Duration // Per-extension; zero means no limit
	DryRun       bool          // Select only, build nothing
}

// Pipeline packages extensions
type Pipeline struct {
	opts      Options
	vcs       VCS
	published registry.PublishedSource
	builder   *packager.Builder
	logger    *log.Logger
	observer  Observer
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithVCS sets the version-control collaborator
func WithVCS(vcs VCS) Option {
	return func(p *Pipeline) { p.vcs = vcs }
}

// WithPublishedSource sets the published-versions index used by ModeUnpublished
func WithPublishedSource(src registry.PublishedSource) Option {
	return func(p *Pipeline) { p.published = src }
}

// WithLogger sets the logger
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithObserver registers a progress observer
func WithObserver(obs Observer) Option {
	return func(p *Pipeline) { p.observer = obs }
}

// New creates a pipeline
func New(opts Options, options ...Option) *Pipeline {
	p := &Pipeline{opts: opts}
	for _, o := range options {
		o(p)
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	if p.opts.Jobs < 1 {
		p.opts.Jobs = 1
	}
	p.builder = packager.NewBuilder(p.logger)
	return p
}

// Run loads the registry, selects extensions and packages each of them.
// Failing to load the registry or to select is fatal and returns an error;
// a failure packaging one extension is recorded in the report and the run
// continues. Cancelling ctx stops pending builds and returns ctx's error
// with the partial report.
func (p *Pipeline) Run(ctx context.Context, mode Mode, ids []registry.ExtensionID) (*Report, error) {
	reg, err := registry.Load(p.opts.RegistryPath)
	if err != nil {
		return nil, err
	}

	selected, err := p.Select(ctx, reg, mode, ids)
	if err != nil {
		return nil, err
	}
	p.logger.Info("selected extensions", "mode", mode, "count", len(selected), "ids", selected)

	report := &Report{
		Mode:     mode,
		Selected: selected,
		Outcomes: make([]Outcome, len(selected)),
	}
	for i, id := range selected {
		entry, _ := reg.Lookup(id)
		report.Outcomes[i] = Outcome{ID: id, Version: entry.Version, Status: StatusPending}
		p.emit(i, report.Outcomes[i])
	}

	if p.opts.DryRun || len(selected) == 0 {
		return report, nil
	}

	if err := os.MkdirAll(p.opts.BuildDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}
	if err := os.MkdirAll(p.opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(p.opts.Jobs)
	for i, id := range selected {
		// Each goroutine writes only its own slot
		g.Go(func() error {
			report.Outcomes[i] = p.packageOne(ctx, i, reg, id)
			return nil
		})
	}
	_ = g.Wait()

	return report, ctx.Err()
}

func (p *Pipeline) emit(index int, o Outcome) {
	if p.observer != nil {
		p.observer(Event{Index: index, Outcome: o})
	}
}

// packageOne builds one extension inside its own scratch directory, which
// is removed before returning whatever the result.
func (p *Pipeline) packageOne(ctx context.Context, index int, reg *registry.Registry, id registry.ExtensionID) (out Outcome) {
	out = Outcome{ID: id, Status: StatusFailed}
	defer func() { p.emit(index, out) }()

	entry, ok := reg.Lookup(id)
	if !ok {
		out.Status = StatusSkipped
		out.Err = fmt.Errorf("no registry entry for %q", id)
		p.logger.Warn("no extension info found; skipping", "id", id)
		return out
	}
	out.Version = entry.Version

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	p.emit(index, Outcome{ID: id, Version: entry.Version, Status: StatusBuilding})
	p.logger.Info("packaging", "id", id, "version", entry.Version)

	scratch, err := os.MkdirTemp(p.opts.BuildDir, string(id)+"-*")
	if err != nil {
		out.Err = &packager.Error{ID: id, Err: fmt.Errorf("failed to allocate scratch directory: %w", err)}
		return out
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			p.logger.Warn("failed to remove scratch directory", "id", id, "dir", scratch, "err", err)
		}
	}()

	srcDir, err := p.sourceDir(ctx, id, entry, scratch)
	if err != nil {
		out.Err = &packager.Error{ID: id, Err: err}
		p.logger.Error("failed", "id", id, "err", out.Err)
		return out
	}

	outDir := filepath.Join(scratch, "out")
	if err := os.Mkdir(outDir, 0755); err != nil {
		out.Err = &packager.Error{ID: id, Err: err}
		return out
	}

	res, err := p.builder.Build(ctx, packager.Request{
		ID:         id,
		SourceDir:  srcDir,
		Version:    entry.Version,
		ScratchDir: outDir,
	})
	if err != nil {
		out.Err = err
		p.logger.Error("failed", "id", id, "err", err)
		return out
	}

	dest := filepath.Join(p.opts.OutputDir, filepath.Base(res.ArchivePath))
	if err := moveFile(res.ArchivePath, dest); err != nil {
		out.Err = &packager.Error{ID: id, Err: fmt.Errorf("failed to move archive: %w", err)}
		p.logger.Error("failed", "id", id, "err", out.Err)
		return out
	}

	out.Status = StatusPackaged
	out.Archive = dest
	p.logger.Info("packaged", "id", id, "version", entry.Version, "archive", dest, "format", res.Format)
	return out
}

// sourceDir returns the extension's source tree, checking it out into the
// scratch directory when the registry points at a remote repository. Local
// paths are relative to the registry file.
func (p *Pipeline) sourceDir(ctx context.Context, id registry.ExtensionID, entry registry.Entry, scratch string) (string, error) {
	if !entry.IsRemote() {
		if filepath.IsAbs(entry.Path) {
			return entry.Path, nil
		}
		return filepath.Join(filepath.Dir(p.opts.RegistryPath), entry.Path), nil
	}

	if p.vcs == nil {
		return "", fmt.Errorf("extension %s has a remote source but no version-control client is configured", id)
	}

	checkout := filepath.Join(scratch, "source")
	if err := os.Mkdir(checkout, 0755); err != nil {
		return "", err
	}
	p.logger.Debug("checking out source", "id", id, "repository", entry.Repository, "rev", entry.Rev)
	if err := p.vcs.CheckoutCommit(ctx, entry.Repository, entry.Rev, checkout); err != nil {
		return "", err
	}
	dir := filepath.Join(checkout, filepath.FromSlash(entry.Path))
	rel, err := filepath.Rel(checkout, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("extension %s: path %q escapes the repository checkout", id, entry.Path)
	}
	return dir, nil
}

// moveFile renames src to dst, falling back to copy and delete when the
// rename fails (e.g. across devices).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Remove(src)
}
