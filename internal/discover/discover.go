// Package discover probes a staging target for the facts the rest of the
// tool needs: what architecture to build helpers for, and where temporary
// directories live.
package discover

import (
	"fmt"
	"strconv"
	"strings"
)

// HostInfo encapsulates key information about the remote host.
type HostInfo struct {
	Hostname string
	Arch     string // uname -m, e.g. x86_64, aarch64
	Kernel   string
	TmpBase  string // ${TMPDIR:-/tmp} on the target
	FreeKB   uint64 // free space on TmpBase
}

// Runner abstracts the required remote command execution for probing.
type Runner interface {
	RunCheck(cmd string) ([]string, error)
}

// probeScript gathers everything in one round trip. Output format:
// "hostname|arch|kernel|tmpbase|free_kb"
const probeScript = `
host=$(uname -n)
arch=$(uname -m)
kernel=$(uname -r)
tmpbase=${TMPDIR:-/tmp}
free=$(df -Pk "$tmpbase" 2>/dev/null | awk 'NR==2 {print $4}')
if [ -z "$free" ]; then
	free=0
fi
echo "$host|$arch|$kernel|$tmpbase|$free"
`

// Probe executes remote detection and returns the gathered facts.
func Probe(runner Runner) (*HostInfo, error) {
	lines, err := runner.RunCheck(probeScript)
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("probe returned no output")
	}
	return parseHostInfo(lines[len(lines)-1])
}

// parseHostInfo parses a "host|arch|kernel|tmpbase|free_kb" line.
func parseHostInfo(raw string) (*HostInfo, error) {
	parts := strings.Split(strings.TrimSpace(raw), "|")
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid probe output, expected 5 fields, got: %s", raw)
	}

	free, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid free space %q: %v", parts[4], err)
	}

	info := &HostInfo{
		Hostname: parts[0],
		Arch:     parts[1],
		Kernel:   parts[2],
		TmpBase:  parts[3],
		FreeKB:   free,
	}
	if info.TmpBase == "" {
		info.TmpBase = "/tmp"
	}
	return info, nil
}
