// Package packager turns one extension's source directory into a
// self-contained tar.gz package.
package packager

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"extpack/internal/manifest"
	"extpack/internal/registry"
)

// PackageDirName is the directory inside the scratch area that becomes the
// archive's root.
const PackageDirName = "package"

// Request describes one package build
type Request struct {
	ID         registry.ExtensionID
	SourceDir  string // Extension source tree
	Version    string // Version the registry declares
	ScratchDir string // Owned by the caller; the builder only writes inside it
}

// Result describes a finished package
type Result struct {
	ArchivePath string
	Manifest    *manifest.Manifest // Rewritten manifest stored in the archive
	Format      manifest.Format    // Format the source manifest was read from
}

// Builder builds extension packages
type Builder struct {
	logger *log.Logger
}

// NewBuilder creates a builder. A nil logger discards output.
func NewBuilder(logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Builder{logger: logger}
}

// ArchiveName returns the deterministic archive file name for id at version
func ArchiveName(id registry.ExtensionID, version string) string {
	return fmt.Sprintf("%s-%s.tar.gz", id, version)
}

// Build packages req.SourceDir into an archive under req.ScratchDir.
// Every returned error is a *Error naming the extension.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	res, err := b.build(ctx, req)
	if err != nil {
		return nil, &Error{ID: req.ID, Err: err}
	}
	return res, nil
}

func (b *Builder) build(ctx context.Context, req Request) (*Result, error) {
	src, format, err := manifest.Load(req.SourceDir)
	if err != nil {
		return nil, err
	}
	if src.Version != req.Version {
		return nil, &VersionMismatchError{
			ID:       req.ID,
			Name:     src.Name,
			Expected: req.Version,
			Actual:   src.Version,
		}
	}
	b.logger.Debug("loaded manifest", "id", req.ID, "format", format, "name", src.Name)

	out := src.Skeleton()

	pkgDir := filepath.Join(req.ScratchDir, PackageDirName)
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create package directory: %w", err)
	}
	archivePath := filepath.Join(req.ScratchDir, ArchiveName(req.ID, req.Version))

	w := &assetWalker{
		id:     req.ID,
		src:    req.SourceDir,
		dst:    pkgDir,
		logger: b.logger,
	}
	if err := w.themes(ctx, out); err != nil {
		return nil, err
	}
	if err := w.languages(ctx, out); err != nil {
		return nil, err
	}
	if err := w.grammars(ctx, src, out); err != nil {
		return nil, err
	}
	if err := w.lib(ctx, src, out); err != nil {
		return nil, err
	}
	for pair := src.LanguageServers.Oldest(); pair != nil; pair = pair.Next() {
		out.LanguageServers.Set(pair.Key, pair.Value)
	}

	if err := writeManifest(filepath.Join(pkgDir, manifest.JSONFileName), out); err != nil {
		return nil, err
	}

	if err := writeArchive(ctx, pkgDir, archivePath); err != nil {
		return nil, err
	}

	return &Result{
		ArchivePath: archivePath,
		Manifest:    out,
		Format:      format,
	}, nil
}

func writeManifest(path string, m *manifest.Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := m.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return f.Close()
}
