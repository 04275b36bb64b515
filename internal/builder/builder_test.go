package builder

import (
	"runtime"
	"testing"
)

func TestGoArchFor(t *testing.T) {
	tests := []struct {
		uname string
		want  string
	}{
		{"x86_64", "amd64"},
		{"aarch64", "arm64"},
		{"armv7l", "arm"},
		{"armv6l", "arm"},
		{"riscv64", "riscv64"},
		{"mips64", "mips64"}, // unknown values pass through
	}

	for _, tt := range tests {
		if got := goArchFor(tt.uname); got != tt.want {
			t.Errorf("goArchFor(%q) = %q, want %q", tt.uname, got, tt.want)
		}
	}
}

func TestIsSameArch(t *testing.T) {
	var same string
	switch runtime.GOARCH {
	case "amd64":
		same = "x86_64"
	case "arm64":
		same = "aarch64"
	default:
		t.Skipf("no uname mapping for local arch %s", runtime.GOARCH)
	}

	if !IsSameArch(same) {
		t.Errorf("IsSameArch(%q) = false, want true", same)
	}
	if IsSameArch("mips64") {
		t.Error("IsSameArch(mips64) = true, want false")
	}
}
