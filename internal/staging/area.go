// Package staging manages a temporary directory on a remote Linux host
// during a test run: create it, copy files in, fetch results back, remove
// it on teardown. It owns no transport of its own; command execution and
// file transfer are supplied by the caller as collaborators.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Area is one staging directory on the target. An Area is meant for
// exclusive use by a single test context; it is not safe for concurrent
// use and performs no locking.
type Area struct {
	path     string
	baseDir  string
	runner   CommandRunner
	transfer FileTransfer
}

// Option configures New.
type Option func(*options)

type options struct {
	baseDir string
	pattern string
}

// WithBaseDir sets the local directory that relative Put sources are
// resolved against and that Get downloads into by default. The directory
// must exist when New is called.
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

// WithPattern sets a mktemp directory template (e.g. "/tmp/stage.XXXXXXXXXX")
// so staging directories are recognizable, for instance by a sweep of
// leftovers from crashed runs. Default is mktemp's own choice.
func WithPattern(pattern string) Option {
	return func(o *options) { o.pattern = pattern }
}

// New creates a fresh directory on the target via the command runner and
// binds an Area to it. Pass the same object as runner and transfer when one
// driver implements both capabilities.
func New(runner CommandRunner, transfer FileTransfer, opts ...Option) (*Area, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.baseDir != "" {
		info, err := os.Stat(o.baseDir)
		if err != nil || !info.IsDir() {
			return nil, &ConfigError{Reason: fmt.Sprintf("%s is not a directory", o.baseDir)}
		}
	}

	cmd := "mktemp -d"
	if o.pattern != "" {
		cmd += " " + o.pattern
	}
	lines, err := runner.RunCheck(cmd)
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("create staging dir: no path in mktemp output")
	}

	path := strings.TrimSpace(lines[0])
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	return &Area{
		path:     path,
		baseDir:  o.baseDir,
		runner:   runner,
		transfer: transfer,
	}, nil
}

// Path returns the staging directory on the target, trailing slash included.
func (a *Area) Path() string {
	return a.path
}

// BaseDir returns the configured local base directory, empty if none.
func (a *Area) BaseDir() string {
	return a.baseDir
}

// Put copies local files into the staging directory. A regular file lands
// under its base name. A directory contributes its immediate regular-file
// children only; nested directories are skipped, the layout is flattened.
// Relative paths are resolved against the base directory and are rejected
// when none is configured.
func (a *Area) Put(paths ...string) error {
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			if a.baseDir == "" {
				return &ConfigError{Reason: fmt.Sprintf("relative path %q requires a base directory", p)}
			}
			p = filepath.Join(a.baseDir, p)
		}

		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}

		if info.Mode().IsRegular() {
			if err := a.transfer.Put(p, a.path+filepath.Base(p)); err != nil {
				return fmt.Errorf("upload %s: %w", p, err)
			}
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return fmt.Errorf("read dir %s: %w", p, err)
		}
		for _, entry := range entries {
			fi, err := entry.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", filepath.Join(p, entry.Name()), err)
			}
			if !fi.Mode().IsRegular() {
				continue
			}
			local := filepath.Join(p, entry.Name())
			if err := a.transfer.Put(local, a.path+entry.Name()); err != nil {
				return fmt.Errorf("upload %s: %w", local, err)
			}
		}
	}
	return nil
}

// Get downloads files that live directly under the staging directory into
// localDir, or into the base directory when localDir is empty. One of the
// two must be available.
func (a *Area) Get(localDir string, files ...string) error {
	dest := localDir
	if dest == "" {
		dest = a.baseDir
	}
	if dest == "" {
		return &PreconditionError{Reason: "no destination directory, set a base directory or pass one to Get"}
	}

	for _, f := range files {
		if err := a.transfer.Get(a.path+f, dest); err != nil {
			return fmt.Errorf("download %s: %w", f, err)
		}
	}
	return nil
}

// RunCheck uploads the executable named by the first token of commandLine
// into the staging directory, then runs it there with the remaining tokens
// and any extraArgs appended. Returns the runner's output lines.
func (a *Area) RunCheck(commandLine string, extraArgs ...string) ([]string, error) {
	parts := strings.SplitN(commandLine, " ", 2)
	local := parts[0]

	if err := a.Put(local); err != nil {
		return nil, err
	}

	cmd := a.path + filepath.Base(local)
	if len(parts) == 2 && parts[1] != "" {
		cmd += " " + parts[1]
	}
	if len(extraArgs) > 0 {
		cmd += " " + strings.Join(extraArgs, " ")
	}

	return a.runner.RunCheck(cmd)
}

// CleanupResult reports the outcome of Cleanup. Err carries the captured
// command failure; it is informational and never re-raised.
type CleanupResult struct {
	Err error
}

// OK reports whether the remote removal succeeded.
func (r CleanupResult) OK() bool {
	return r.Err == nil
}

// Cleanup removes the staging directory on the target. Teardown is
// best-effort: a failing remove is captured in the result, not returned as
// an error, so fixture teardown sequences keep going.
func (a *Area) Cleanup() CleanupResult {
	if _, err := a.runner.RunCheck("rm -r " + a.path); err != nil {
		return CleanupResult{Err: err}
	}
	return CleanupResult{}
}
