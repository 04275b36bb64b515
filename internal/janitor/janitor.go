// Package janitor removes staging directories that crashed runs left
// behind on a target. It acts purely through the remote command runner,
// so it needs no extra transport.
package janitor

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Runner abstracts the required remote command execution.
type Runner interface {
	RunCheck(cmd string) ([]string, error)
}

// Sweeper describes one sweep over a target's tmp base.
type Sweeper struct {
	TmpBase   string        // directory holding staging dirs, default /tmp
	Pattern   string        // directory name glob, e.g. "stage.*"
	OlderThan time.Duration // only dirs at least this old are touched
	DryRun    bool          // report, don't remove
}

// Report summarizes a sweep.
type Report struct {
	Stale   []string // stale directories found
	Removed []string // actually removed (empty on dry-run)
	Failed  []string // removal attempted but failed
}

// Sweep finds stale staging directories and removes them. Removal is
// best-effort per directory: one failure is logged and does not stop the
// sweep.
func (s *Sweeper) Sweep(r Runner) (*Report, error) {
	if s.Pattern == "" {
		// refuse to pattern-match everything under the tmp base
		return nil, fmt.Errorf("sweep requires a directory name pattern")
	}

	base := s.TmpBase
	if base == "" {
		base = "/tmp"
	}
	minutes := int(s.OlderThan / time.Minute)
	if minutes < 0 {
		minutes = 0
	}

	findCmd := fmt.Sprintf("find %s -maxdepth 1 -type d -name '%s' -mmin +%d",
		base, s.Pattern, minutes)
	lines, err := r.RunCheck(findCmd)
	if err != nil {
		return nil, fmt.Errorf("list stale dirs: %w", err)
	}

	report := &Report{}
	for _, line := range lines {
		dir := strings.TrimSpace(line)
		if dir == "" {
			continue
		}
		report.Stale = append(report.Stale, dir)
	}

	if s.DryRun {
		return report, nil
	}

	for _, dir := range report.Stale {
		if _, err := r.RunCheck("rm -r " + dir); err != nil {
			slog.Warn("Failed to remove stale staging dir", "dir", dir, "err", err)
			report.Failed = append(report.Failed, dir)
			continue
		}
		report.Removed = append(report.Removed, dir)
	}
	return report, nil
}
