package discover

import (
	"fmt"
	"strings"
	"testing"
)

type mockRunner struct {
	out  []string
	fail bool
	cmds []string
}

func (m *mockRunner) RunCheck(cmd string) ([]string, error) {
	m.cmds = append(m.cmds, cmd)
	if m.fail {
		return nil, fmt.Errorf("mock command failed")
	}
	return m.out, nil
}

func TestParseHostInfo(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    HostInfo
		wantErr bool
	}{
		{
			name:  "normal case",
			input: "dut-7|aarch64|6.1.0-rpi|/tmp|1843200",
			want: HostInfo{
				Hostname: "dut-7",
				Arch:     "aarch64",
				Kernel:   "6.1.0-rpi",
				TmpBase:  "/tmp",
				FreeKB:   1843200,
			},
		},
		{
			name:  "with newline",
			input: "board|x86_64|5.15.0|/var/tmp|512\n",
			want: HostInfo{
				Hostname: "board",
				Arch:     "x86_64",
				Kernel:   "5.15.0",
				TmpBase:  "/var/tmp",
				FreeKB:   512,
			},
		},
		{
			name:  "empty tmpbase falls back",
			input: "b|x86_64|5.15.0||0",
			want: HostInfo{
				Hostname: "b",
				Arch:     "x86_64",
				Kernel:   "5.15.0",
				TmpBase:  "/tmp",
				FreeKB:   0,
			},
		},
		{
			name:    "missing fields",
			input:   "dut-7|aarch64",
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "non-numeric free space",
			input:   "h|a|k|/tmp|lots",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHostInfo(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseHostInfo() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && *got != tt.want {
				t.Errorf("parseHostInfo() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestProbe(t *testing.T) {
	m := &mockRunner{out: []string{"dut-7|aarch64|6.1.0|/tmp|100"}}
	info, err := Probe(m)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.Arch != "aarch64" || info.Hostname != "dut-7" {
		t.Errorf("unexpected info: %+v", info)
	}
	if len(m.cmds) != 1 || !strings.Contains(m.cmds[0], "uname -m") {
		t.Errorf("unexpected probe command: %v", m.cmds)
	}
}

func TestProbe_CommandFailure(t *testing.T) {
	m := &mockRunner{fail: true}
	if _, err := Probe(m); err == nil {
		t.Fatal("expected error from failing runner")
	}
}
