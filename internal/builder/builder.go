// Package builder cross-compiles Go helper binaries for the staging
// target's architecture so they can be uploaded and executed there.
package builder

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
)

// goArchFor maps a uname -m architecture to Go's GOARCH.
func goArchFor(remoteArch string) string {
	switch remoteArch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	case "armv7l", "armv6l":
		return "arm"
	case "riscv64":
		return "riscv64"
	}
	return remoteArch
}

// BuildForTarget compiles source for a linux target of the given uname -m
// architecture. CGO is disabled so the binary runs on any libc.
func BuildForTarget(remoteArch, source, output string) error {
	goArch := goArchFor(remoteArch)
	slog.Info("Cross-compiling helper", "goarch", goArch, "src", source, "out", output)

	cmd := exec.Command("go", "build", "-o", output, source)
	cmd.Env = append(os.Environ(), "GOOS=linux", "GOARCH="+goArch, "CGO_ENABLED=0")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build for %s: %w", goArch, err)
	}
	return nil
}

// IsSameArch reports whether the remote architecture matches the local one,
// in which case the current executable can be staged directly.
func IsSameArch(remoteArch string) bool {
	return runtime.GOARCH == goArchFor(remoteArch)
}

// LocalBinaryPath returns the path of the running executable.
func LocalBinaryPath() (string, error) {
	return os.Executable()
}
