package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"extpack/internal/git"
	"extpack/internal/packager"
	"extpack/internal/registry"
)

const themeFamily = `{"name": "T", "author": "A", "themes": [{"name": "T Dark", "appearance": "dark", "style": {}}]}`

// fakeVCS serves registry content per ref and fakes checkouts from a map of
// repository URL to file contents.
type fakeVCS struct {
	files     map[string]string            // "ref:path" -> content
	repos     map[string]map[string]string // repoURL -> relative path -> content
	mu        sync.Mutex
	checkouts []string
}

func (f *fakeVCS) ShowFile(ctx context.Context, ref, path string) ([]byte, error) {
	content, ok := f.files[ref+":"+path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, git.ErrPathNotFound)
	}
	return []byte(content), nil
}

func (f *fakeVCS) CheckoutCommit(ctx context.Context, repoURL, commit, dir string) error {
	f.mu.Lock()
	f.checkouts = append(f.checkouts, repoURL+"@"+commit)
	f.mu.Unlock()

	files, ok := f.repos[repoURL]
	if !ok {
		return fmt.Errorf("repository %s not found", repoURL)
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type fakePublished registry.PublishedVersions

func (f fakePublished) Published(ctx context.Context) (registry.PublishedVersions, error) {
	return registry.PublishedVersions(f), nil
}

type workspace struct {
	root     string
	registry string
	opts     Options
}

func newWorkspace(t *testing.T, registryContent string) *workspace {
	t.Helper()
	root := t.TempDir()
	ws := &workspace{
		root:     root,
		registry: filepath.Join(root, "extensions.toml"),
	}
	ws.write(t, "extensions.toml", registryContent)
	ws.opts = Options{
		RegistryPath: ws.registry,
		BuildDir:     filepath.Join(root, "build"),
		OutputDir:    filepath.Join(root, "dist"),
		BaselineRef:  "origin/main",
		Jobs:         1,
	}
	return ws
}

func (ws *workspace) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(ws.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (ws *workspace) extension(t *testing.T, id, name, version string) {
	t.Helper()
	ws.write(t, id+"/extension.toml", fmt.Sprintf("name = %q\nversion = %q\n", name, version))
	ws.write(t, id+"/themes/"+id+".json", themeFamily)
}

func (ws *workspace) assertScratchClean(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(ws.opts.BuildDir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch directories left behind: %v", entries)
	}
}

func statuses(r *Report) []Status {
	out := make([]Status, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = o.Status
	}
	return out
}

func TestRun_ChangedMode(t *testing.T) {
	ws := newWorkspace(t, `
[demo]
path = "demo"
version = "0.2.0"

[stable]
path = "stable"
version = "1.0.0"
`)
	ws.extension(t, "demo", "Demo", "0.2.0")
	ws.extension(t, "stable", "Stable", "1.0.0")

	vcs := &fakeVCS{files: map[string]string{
		"origin/main:./extensions.toml": `
[demo]
path = "demo"
version = "0.1.0"

[stable]
path = "stable"
version = "1.0.0"
`,
	}}

	report, err := New(ws.opts, WithVCS(vcs)).Run(context.Background(), ModeChanged, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(report.Selected, []registry.ExtensionID{"demo"}) {
		t.Fatalf("selected = %v, want [demo]", report.Selected)
	}
	o := report.Outcomes[0]
	if o.Status != StatusPackaged {
		t.Fatalf("demo status = %v, err = %v", o.Status, o.Err)
	}
	if o.Archive != filepath.Join(ws.opts.OutputDir, "demo-0.2.0.tar.gz") {
		t.Errorf("archive = %s", o.Archive)
	}
	if _, err := os.Stat(o.Archive); err != nil {
		t.Errorf("archive missing: %v", err)
	}
	ws.assertScratchClean(t)
}

func TestRun_ChangedMode_NoBaseline(t *testing.T) {
	ws := newWorkspace(t, "[b]\npath = \"b\"\nversion = \"0.1.0\"\n[a]\npath = \"a\"\nversion = \"0.1.0\"\n")
	ws.extension(t, "a", "A", "0.1.0")
	ws.extension(t, "b", "B", "0.1.0")

	opts := ws.opts
	opts.DryRun = true
	report, err := New(opts, WithVCS(&fakeVCS{})).Run(context.Background(), ModeChanged, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(report.Selected, []registry.ExtensionID{"b", "a"}) {
		t.Errorf("selected = %v, want [b a]", report.Selected)
	}
	if _, err := os.Stat(ws.opts.OutputDir); !os.IsNotExist(err) {
		t.Error("dry run must not create output")
	}
}

func TestRun_UnpublishedMode(t *testing.T) {
	ws := newWorkspace(t, `
[old]
path = "old"
version = "1.0.0"

[bumped]
path = "bumped"
version = "1.1.0"

[new]
path = "new"
version = "0.1.0"
`)
	ws.extension(t, "old", "Old", "1.0.0")
	ws.extension(t, "bumped", "Bumped", "1.1.0")
	ws.extension(t, "new", "New", "0.1.0")

	published := fakePublished{"old": {"1.0.0"}, "bumped": {"1.0.0"}}
	report, err := New(ws.opts, WithPublishedSource(published)).Run(context.Background(), ModeUnpublished, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(report.Selected, []registry.ExtensionID{"bumped", "new"}) {
		t.Errorf("selected = %v, want [bumped new]", report.Selected)
	}
	if report.Count(StatusPackaged) != 2 {
		t.Errorf("statuses = %v", statuses(report))
	}
}

func TestRun_FailureDoesNotStopOthers(t *testing.T) {
	ws := newWorkspace(t, `
[first]
path = "first"
version = "0.1.0"

[broken]
path = "broken"
version = "0.2.0"

[last]
path = "last"
version = "0.1.0"
`)
	ws.extension(t, "first", "First", "0.1.0")
	ws.extension(t, "broken", "Broken", "0.1.9")
	ws.extension(t, "last", "Last", "0.1.0")

	opts := ws.opts
	opts.Jobs = 3
	report, err := New(opts).Run(context.Background(), ModeExplicit, []registry.ExtensionID{"last", "broken", "first"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Selection follows registry order, not argument order
	if !slices.Equal(report.Selected, []registry.ExtensionID{"first", "broken", "last"}) {
		t.Fatalf("selected = %v", report.Selected)
	}
	want := []Status{StatusPackaged, StatusFailed, StatusPackaged}
	if got := statuses(report); !slices.Equal(got, want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}

	var mismatch *packager.VersionMismatchError
	if !errors.As(report.Outcomes[1].Err, &mismatch) {
		t.Errorf("expected version mismatch, got %v", report.Outcomes[1].Err)
	}
	ws.assertScratchClean(t)
}

func TestRun_UnknownExplicitID(t *testing.T) {
	ws := newWorkspace(t, "[demo]\npath = \"demo\"\nversion = \"0.1.0\"\n")
	ws.extension(t, "demo", "Demo", "0.1.0")

	report, err := New(ws.opts).Run(context.Background(), ModeExplicit, []registry.ExtensionID{"ghost", "demo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(report.Selected, []registry.ExtensionID{"demo", "ghost"}) {
		t.Fatalf("selected = %v", report.Selected)
	}
	if got := statuses(report); !slices.Equal(got, []Status{StatusPackaged, StatusSkipped}) {
		t.Errorf("statuses = %v", got)
	}
}

func TestRun_RemoteSource(t *testing.T) {
	ws := newWorkspace(t, `
[remote]
repository = "https://example.com/remote.git"
rev = "abc123"
path = "ext"
version = "0.4.0"
`)
	vcs := &fakeVCS{repos: map[string]map[string]string{
		"https://example.com/remote.git": {
			"ext/extension.toml":     "name = \"Remote\"\nversion = \"0.4.0\"\n",
			"ext/themes/remote.json": themeFamily,
		},
	}}

	report, err := New(ws.opts, WithVCS(vcs)).Run(context.Background(), ModeExplicit, []registry.ExtensionID{"remote"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o := report.Outcomes[0]; o.Status != StatusPackaged {
		t.Fatalf("status = %v, err = %v", o.Status, o.Err)
	}
	if !slices.Equal(vcs.checkouts, []string{"https://example.com/remote.git@abc123"}) {
		t.Errorf("checkouts = %v", vcs.checkouts)
	}
	ws.assertScratchClean(t)
}

func TestRun_ChangedMode_LegacyBaseline(t *testing.T) {
	ws := newWorkspace(t, "[demo]\npath = \"demo\"\nversion = \"0.2.0\"\n")
	ws.extension(t, "demo", "Demo", "0.2.0")

	// Entries that predate registry validation must not block the comparison
	vcs := &fakeVCS{files: map[string]string{
		"origin/main:./extensions.toml": "[demo]\nversion = \"0.1\"\n\n[old]\nversion = \"1.0.0\"\n",
	}}

	opts := ws.opts
	opts.DryRun = true
	report, err := New(opts, WithVCS(vcs)).Run(context.Background(), ModeChanged, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(report.Selected, []registry.ExtensionID{"demo"}) {
		t.Errorf("selected = %v, want [demo]", report.Selected)
	}
}

func TestRun_RemotePathEscapesCheckout(t *testing.T) {
	ws := newWorkspace(t, `
[remote]
repository = "https://example.com/remote.git"
rev = "abc123"
path = "../.."
version = "0.4.0"
`)
	vcs := &fakeVCS{repos: map[string]map[string]string{
		"https://example.com/remote.git": {"extension.toml": "name = \"Remote\"\nversion = \"0.4.0\"\n"},
	}}

	report, err := New(ws.opts, WithVCS(vcs)).Run(context.Background(), ModeExplicit, []registry.ExtensionID{"remote"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o := report.Outcomes[0]
	if o.Status != StatusFailed {
		t.Fatalf("status = %v, want failed", o.Status)
	}
	if o.Err == nil || !strings.Contains(o.Err.Error(), "escapes the repository checkout") {
		t.Errorf("err = %v", o.Err)
	}
	ws.assertScratchClean(t)
}

func TestRun_MissingRegistryIsFatal(t *testing.T) {
	opts := Options{RegistryPath: filepath.Join(t.TempDir(), "missing.toml")}
	if _, err := New(opts).Run(context.Background(), ModeExplicit, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestRun_UnpublishedWithoutSource(t *testing.T) {
	ws := newWorkspace(t, "[demo]\npath = \"demo\"\nversion = \"0.1.0\"\n")
	if _, err := New(ws.opts).Run(context.Background(), ModeUnpublished, nil); err == nil {
		t.Fatal("expected error without a published source")
	}
}

func TestRun_Cancelled(t *testing.T) {
	ws := newWorkspace(t, "[demo]\npath = \"demo\"\nversion = \"0.1.0\"\n")
	ws.extension(t, "demo", "Demo", "0.1.0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(ws.opts).Run(ctx, ModeExplicit, []registry.ExtensionID{"demo"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report == nil || report.Outcomes[0].Status != StatusFailed {
		t.Errorf("expected the build to be recorded as failed, got %+v", report)
	}
	ws.assertScratchClean(t)
}

func TestRun_ObserverSeesEveryTransition(t *testing.T) {
	ws := newWorkspace(t, "[demo]\npath = \"demo\"\nversion = \"0.1.0\"\n")
	ws.extension(t, "demo", "Demo", "0.1.0")

	var mu sync.Mutex
	var seen []Status
	obs := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Status)
	}

	if _, err := New(ws.opts, WithObserver(obs)).Run(context.Background(), ModeExplicit, []registry.ExtensionID{"demo"}); err != nil {
		t.Fatal(err)
	}

	want := []Status{StatusPending, StatusBuilding, StatusPackaged}
	if !slices.Equal(seen, want) {
		t.Errorf("events = %v, want %v", seen, want)
	}
}
