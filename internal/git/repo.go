// Package git is the version-control collaborator. It shells out to the
// git executable and honours context cancellation on every invocation.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrPathNotFound is returned by ShowFile when the file does not exist at
// the requested ref.
var ErrPathNotFound = errors.New("path not found at ref")

// Client runs git commands against the repository in Dir
type Client struct {
	Dir    string // Working directory for repository-scoped commands; "" means the current directory
	Binary string // git executable; "" means "git" on PATH
}

// NewClient creates a client for the repository containing dir
func NewClient(dir string) *Client {
	return &Client{Dir: dir}
}

func (c *Client) binary() string {
	if c.Binary == "" {
		return "git"
	}
	return c.Binary
}

// runGit runs git in dir and returns stdout. stderr is folded into the error.
func (c *Client) runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary(), args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("git %s: %w", args[0], ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, &CommandError{Args: args, Err: err, Stderr: msg}
		}
		return nil, &CommandError{Args: args, Err: err}
	}
	return stdout.Bytes(), nil
}

// CommandError describes a failed git invocation
type CommandError struct {
	Args   []string
	Err    error
	Stderr string
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s failed: %v\n%s", strings.Join(e.Args, " "), e.Err, e.Stderr)
	}
	return fmt.Sprintf("git %s failed: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ShowFile returns the content of path as of ref, like `git show ref:path`
func (c *Client) ShowFile(ctx context.Context, ref, path string) ([]byte, error) {
	out, err := c.runGit(ctx, c.Dir, "show", ref+":"+path)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && isMissingPath(cmdErr.Stderr) {
			return nil, fmt.Errorf("%s at %s: %w", path, ref, ErrPathNotFound)
		}
		return nil, err
	}
	return out, nil
}

// isMissingPath recognises git's messages for a path absent at a valid ref
func isMissingPath(stderr string) bool {
	return strings.Contains(stderr, "does not exist in") ||
		strings.Contains(stderr, "exists on disk, but not in")
}

// CheckoutCommit materializes a single commit of repoURL into dir using a
// shallow fetch. dir must exist and be empty.
func (c *Client) CheckoutCommit(ctx context.Context, repoURL, commit, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("checkout directory: %w", err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("checkout directory %s is not empty", dir)
	}

	steps := [][]string{
		{"init", "--quiet"},
		{"remote", "add", "origin", repoURL},
		{"fetch", "--quiet", "--depth", "1", "origin", commit},
		{"checkout", "--quiet", "--detach", "FETCH_HEAD"},
	}
	for _, args := range steps {
		if _, err := c.runGit(ctx, dir, args...); err != nil {
			return fmt.Errorf("failed to check out %s@%s: %w", repoURL, commit, err)
		}
	}

	head, err := c.runGit(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return err
	}
	if got := strings.TrimSpace(string(head)); !strings.HasPrefix(got, commit) {
		return fmt.Errorf("checked out %s, expected %s", got, commit)
	}
	return nil
}
