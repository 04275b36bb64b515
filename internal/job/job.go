// Package job orchestrates one staging run against a target: wake it if
// needed, connect, stage inputs, run the payload, fetch artifacts, and
// tear the staging directory down.
package job

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"remotestage/internal/config"
	"remotestage/internal/staging"
	"remotestage/internal/templates"
	"remotestage/pkg/sshutil"
	"remotestage/pkg/wol"
)

// Result reports what one target run did.
type Result struct {
	Alias     string
	StagePath string
	Output    []string // payload output lines, if a run command was set
	CleanupOK bool
}

// Job executes a target's plan against an injected executor. The executor
// serves as both staging collaborators, which is what every real driver in
// this repo provides.
type Job struct {
	exec staging.RemoteExecutor
}

// New creates a Job bound to an executor.
func New(exec staging.RemoteExecutor) *Job {
	return &Job{exec: exec}
}

// Run performs put/run/get for the target and cleans up afterwards unless
// the plan says to keep the directory. Cleanup failure never overrides the
// run's own outcome; it is reported in the result.
func (j *Job) Run(target config.TargetConfig) (res *Result, err error) {
	var opts []staging.Option
	if target.BaseDir != "" {
		opts = append(opts, staging.WithBaseDir(target.BaseDir))
	}
	if target.Pattern != "" {
		opts = append(opts, staging.WithPattern(target.Pattern))
	}

	area, err := staging.New(j.exec, j.exec, opts...)
	if err != nil {
		return nil, err
	}

	res = &Result{Alias: target.Alias, StagePath: area.Path(), CleanupOK: true}
	defer func() {
		if target.Keep {
			slog.Info("Keeping staging dir", "target", target.Alias, "path", area.Path())
			return
		}
		cr := area.Cleanup()
		res.CleanupOK = cr.OK()
		if cr.Err != nil {
			slog.Warn("Cleanup failed", "target", target.Alias, "path", area.Path(), "err", cr.Err)
		}
	}()

	if len(target.Put) > 0 {
		if err := area.Put(target.Put...); err != nil {
			return res, err
		}
	}

	if target.Run != "" {
		out, err := j.runPayload(area, target)
		if err != nil {
			return res, err
		}
		res.Output = out
	}

	if len(target.Get) > 0 {
		if err := area.Get(target.Dest, target.Get...); err != nil {
			return res, err
		}
	}

	return res, nil
}

// runPayload executes the target's run command. Without env it is handed
// straight to the staging area; with env the payload is staged first and
// started through a rendered wrapper script.
func (j *Job) runPayload(area *staging.Area, target config.TargetConfig) ([]string, error) {
	if len(target.Env) == 0 {
		return area.RunCheck(target.Run)
	}

	parts := strings.SplitN(target.Run, " ", 2)
	if err := area.Put(parts[0]); err != nil {
		return nil, err
	}

	payload := "./" + filepath.Base(parts[0])
	if len(parts) == 2 && parts[1] != "" {
		payload += " " + parts[1]
	}

	script, err := templates.Render("run", templates.RunScriptTmpl, templates.Config{
		WorkDir: area.Path(),
		Command: payload,
		Env:     target.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("render wrapper: %w", err)
	}

	tmp, err := os.CreateTemp("", "stage-run-*.sh")
	if err != nil {
		return nil, fmt.Errorf("write wrapper: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(script); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write wrapper: %w", err)
	}
	tmp.Close()

	if err := area.Put(tmp.Name()); err != nil {
		return nil, err
	}
	return j.exec.RunCheck("sh " + area.Path() + filepath.Base(tmp.Name()))
}

// Options tweaks RunTarget behavior.
type Options struct {
	// Progress receives transferred byte counts, for a CLI progress bar.
	Progress func(n int)
}

// RunTarget wakes (if configured), connects, and runs the target's plan
// over SSH. This is the entry the CLI uses; tests exercise Job.Run with a
// mock executor instead.
func RunTarget(target config.TargetConfig, opts Options) (*Result, error) {
	if target.Wake != nil {
		if err := wake(target.Wake); err != nil {
			return nil, err
		}
	}

	client, err := sshutil.NewClient(target.Alias)
	if err != nil {
		return nil, err
	}
	client.Progress = opts.Progress

	if err := client.Connect(); err != nil {
		return nil, err
	}
	defer client.Close()

	return New(client).Run(target)
}

func wake(w *config.WakeConfig) error {
	slog.Info("Waking target", "mac", w.MAC, "ip", w.IP)

	packet, err := wol.NewMagicPacket(w.MAC)
	if err != nil {
		return fmt.Errorf("invalid wake mac: %w", err)
	}
	if err := packet.Send(w.BroadcastAddr()); err != nil {
		return fmt.Errorf("send wol packet: %w", err)
	}
	if err := wol.WaitForPort(w.IP, w.WakePort(), w.WakeTimeout()); err != nil {
		return fmt.Errorf("wake %s: %w", w.IP, err)
	}
	return nil
}
