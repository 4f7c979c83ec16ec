package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"extpack/internal/manifest"
	"extpack/internal/registry"
	"extpack/internal/theme"
)

const (
	themesDir    = "themes"
	languagesDir = "languages"
	grammarsDir  = "grammars"
	libDir       = "lib"

	languageConfigFile = "config.toml"
)

// assetWalker copies declared assets from an extension source tree into the
// package directory. Paths recorded in the output manifest are always
// slash-separated and relative to the package root.
type assetWalker struct {
	id     registry.ExtensionID
	src    string
	dst    string
	logger *log.Logger
}

// readAssetDir lists a top-level asset directory. A missing directory is
// not an error.
func (w *assetWalker) readAssetDir(name string) ([]fs.DirEntry, bool, error) {
	entries, err := os.ReadDir(filepath.Join(w.src, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Join(w.dst, name), 0755); err != nil {
		return nil, false, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return entries, true, nil
}

// themes validates each theme file against the theme family schema and
// copies it unchanged.
func (w *assetWalker) themes(ctx context.Context, out *manifest.Manifest) error {
	entries, ok, err := w.readAssetDir(themesDir)
	if err != nil || !ok {
		return err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() || filepath.Ext(entry.Name()) != ".json" {
			w.logger.Debug("skipping non-theme entry", "id", w.id, "entry", entry.Name())
			continue
		}

		rel := path.Join(themesDir, entry.Name())
		data, err := os.ReadFile(filepath.Join(w.src, themesDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read theme %s: %w", rel, err)
		}

		if err := validateTheme(data); err != nil {
			invalid := &InvalidThemeError{ID: w.id, File: rel}
			var verr *theme.ValidationError
			if errors.As(err, &verr) {
				invalid.Errors = verr.Errors
			} else {
				invalid.Errors = []string{err.Error()}
			}
			return invalid
		}

		if err := os.WriteFile(filepath.Join(w.dst, filepath.FromSlash(rel)), data, 0644); err != nil {
			return fmt.Errorf("failed to copy theme %s: %w", rel, err)
		}
		out.Themes = append(out.Themes, rel)
		w.logger.Debug("added theme", "id", w.id, "file", rel)
	}
	return nil
}

func validateTheme(data []byte) error {
	doc, err := theme.Parse(data)
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return theme.Validate(doc)
}

// languages copies each languages/<name>/ directory. Every language must
// carry a config.toml.
func (w *assetWalker) languages(ctx context.Context, out *manifest.Manifest) error {
	entries, ok, err := w.readAssetDir(languagesDir)
	if err != nil || !ok {
		return err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.IsDir() {
			continue
		}

		rel := path.Join(languagesDir, entry.Name())
		srcDir := filepath.Join(w.src, languagesDir, entry.Name())
		if _, err := os.Stat(filepath.Join(srcDir, languageConfigFile)); err != nil {
			return fmt.Errorf("language %s: missing %s", rel, languageConfigFile)
		}

		if err := copyDir(ctx, srcDir, filepath.Join(w.dst, filepath.FromSlash(rel))); err != nil {
			return fmt.Errorf("failed to copy language %s: %w", rel, err)
		}
		out.Languages = append(out.Languages, rel)
		w.logger.Debug("added language", "id", w.id, "dir", rel)
	}
	return nil
}

// grammars carries grammar sources into the output manifest. Grammar
// sources are fetched separately; only prebuilt grammars/*.wasm are copied.
func (w *assetWalker) grammars(ctx context.Context, src, out *manifest.Manifest) error {
	for pair := src.Grammars.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Repository == "" || pair.Value.Rev == "" {
			return fmt.Errorf("grammar %q: repository and rev are required", pair.Key)
		}
		out.Grammars.Set(pair.Key, pair.Value)
	}

	entries, ok, err := w.readAssetDir(grammarsDir)
	if err != nil || !ok {
		return err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() || filepath.Ext(entry.Name()) != ".wasm" {
			continue
		}
		name := entry.Name()
		if err := copyFile(filepath.Join(w.src, grammarsDir, name), filepath.Join(w.dst, grammarsDir, name)); err != nil {
			return fmt.Errorf("failed to copy grammar %s: %w", name, err)
		}
		w.logger.Debug("added grammar", "id", w.id, "file", path.Join(grammarsDir, name))
	}
	return nil
}

// lib copies the extension's prebuilt library into lib/.
func (w *assetWalker) lib(ctx context.Context, src, out *manifest.Manifest) error {
	if src.Lib == nil || src.Lib.Path == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	libPath := filepath.Join(w.src, filepath.FromSlash(src.Lib.Path))
	rel, err := filepath.Rel(w.src, libPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("lib path %q escapes the extension directory", src.Lib.Path)
	}

	info, err := os.Stat(libPath)
	if err != nil {
		return fmt.Errorf("lib %s not found; it must be built before packaging", src.Lib.Path)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("lib %s is not a regular file", src.Lib.Path)
	}

	if err := os.MkdirAll(filepath.Join(w.dst, libDir), 0755); err != nil {
		return err
	}
	name := filepath.Base(libPath)
	if err := copyFile(libPath, filepath.Join(w.dst, libDir, name)); err != nil {
		return fmt.Errorf("failed to copy lib: %w", err)
	}
	out.Lib = &manifest.LibEntry{Path: path.Join(libDir, name)}
	return nil
}

// copyFile copies src to dst, keeping the executable bits
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode(info.Mode()))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// fileMode normalizes a source file's mode to 0755 or 0644
func fileMode(m fs.FileMode) fs.FileMode {
	if m&0111 != 0 {
		return 0755
	}
	return 0644
}

// copyDir recursively copies regular files and directories. Symlinks are
// not followed.
func copyDir(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0755)
		case d.Type().IsRegular():
			return copyFile(p, target)
		default:
			return nil
		}
	})
}
