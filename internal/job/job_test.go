package job

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"remotestage/internal/config"
)

// MockExecutor mocks the combined staging collaborator contract
type MockExecutor struct {
	Cmds      []string
	Puts      []string
	Gets      []string
	RunOut    []string // returned for non-mktemp commands
	FailOnCmd string
}

func (m *MockExecutor) RunCheck(cmd string) ([]string, error) {
	if m.FailOnCmd != "" && strings.Contains(cmd, m.FailOnCmd) {
		return nil, fmt.Errorf("mock command failed: %s", cmd)
	}
	m.Cmds = append(m.Cmds, cmd)
	if strings.HasPrefix(cmd, "mktemp") {
		return []string{"/tmp/stage.T35T"}, nil
	}
	return m.RunOut, nil
}

func (m *MockExecutor) Put(localPath, remotePath string) error {
	m.Puts = append(m.Puts, fmt.Sprintf("%s -> %s", localPath, remotePath))
	return nil
}

func (m *MockExecutor) Get(remotePath, localDir string) error {
	m.Gets = append(m.Gets, fmt.Sprintf("%s -> %s", remotePath, localDir))
	return nil
}

// writeFile creates a file under dir and returns its path
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0755); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRun_FullPlan(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "selftest", "#!/bin/sh\n")
	dest := t.TempDir()

	m := &MockExecutor{RunOut: []string{"PASS"}}
	res, err := New(m).Run(config.TargetConfig{
		Alias:   "dut-7",
		BaseDir: base,
		Put:     []string{"selftest"},
		Run:     "selftest --json report.json",
		Get:     []string{"report.json"},
		Dest:    dest,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.StagePath != "/tmp/stage.T35T/" {
		t.Errorf("StagePath = %q", res.StagePath)
	}
	if len(res.Output) != 1 || res.Output[0] != "PASS" {
		t.Errorf("Output = %v", res.Output)
	}
	if !res.CleanupOK {
		t.Error("CleanupOK = false")
	}

	// selftest staged twice: once by put, once by the run command
	if len(m.Puts) != 2 {
		t.Errorf("Puts = %v", m.Puts)
	}
	if m.Gets[0] != "/tmp/stage.T35T/report.json -> "+dest {
		t.Errorf("Gets = %v", m.Gets)
	}

	last := m.Cmds[len(m.Cmds)-1]
	if last != "rm -r /tmp/stage.T35T/" {
		t.Errorf("expected final cleanup, got %q", last)
	}
	if m.Cmds[len(m.Cmds)-2] != "/tmp/stage.T35T/selftest --json report.json" {
		t.Errorf("payload command = %q", m.Cmds[len(m.Cmds)-2])
	}
}

func TestRun_KeepSkipsCleanup(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "a.bin", "x")

	m := &MockExecutor{}
	res, err := New(m).Run(config.TargetConfig{
		Alias:   "dut",
		BaseDir: base,
		Put:     []string{"a.bin"},
		Keep:    true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.CleanupOK {
		t.Error("CleanupOK should stay true when keeping")
	}
	for _, c := range m.Cmds {
		if strings.HasPrefix(c, "rm -r") {
			t.Errorf("cleanup ran despite keep: %v", m.Cmds)
		}
	}
}

func TestRun_EnvUsesWrapperScript(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "selftest", "#!/bin/sh\n")

	m := &MockExecutor{}
	_, err := New(m).Run(config.TargetConfig{
		Alias:   "dut",
		BaseDir: base,
		Run:     "selftest --fast",
		Env:     map[string]string{"DUT_NAME": "dut"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// payload plus wrapper must both have been staged
	if len(m.Puts) != 2 {
		t.Fatalf("Puts = %v", m.Puts)
	}
	if !strings.HasSuffix(m.Puts[0], "/tmp/stage.T35T/selftest") {
		t.Errorf("payload upload = %q", m.Puts[0])
	}
	if !strings.Contains(m.Puts[1], "stage-run-") {
		t.Errorf("wrapper upload = %q", m.Puts[1])
	}

	var ran bool
	for _, c := range m.Cmds {
		if strings.HasPrefix(c, "sh /tmp/stage.T35T/stage-run-") {
			ran = true
		}
	}
	if !ran {
		t.Errorf("wrapper was not executed: %v", m.Cmds)
	}
}

func TestRun_CleanupFailureReportedNotFatal(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "a.bin", "x")

	m2 := &MockExecutor{FailOnCmd: "rm -r"}
	res2, err := New(m2).Run(config.TargetConfig{
		Alias:   "dut",
		BaseDir: base,
		Put:     []string{"a.bin"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res2.CleanupOK {
		t.Error("CleanupOK = true despite failed rm")
	}
}

func TestRun_PutFailureStillCleansUp(t *testing.T) {
	m := &MockExecutor{}
	// relative path without base dir is a staging config error
	_, err := New(m).Run(config.TargetConfig{
		Alias: "dut",
		Put:   []string{"relative/path"},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	last := m.Cmds[len(m.Cmds)-1]
	if last != "rm -r /tmp/stage.T35T/" {
		t.Errorf("expected cleanup after failure, got %v", m.Cmds)
	}
}
