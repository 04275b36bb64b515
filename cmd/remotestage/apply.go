package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"remotestage/internal/config"
	"remotestage/internal/job"
)

// newApplyCmd builds the apply command: run a staging plan file across all
// of its targets, a bounded number at a time.
func newApplyCmd() *cobra.Command {
	var (
		configPath string
		parallel   int
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run a staging plan across all its targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(configPath, parallel)
		},
	}
	cmd.Flags().StringVarP(&configPath, "file", "f", "", "plan file (YAML)")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "targets staged concurrently")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runApply(configPath string, parallel int) error {
	slog.Info("Loading plan", "path", configPath)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read plan: %v", err)
	}

	cfg, err := config.ParseConfig(data)
	if err != nil {
		return fmt.Errorf("invalid plan: %v", err)
	}

	var g errgroup.Group
	g.SetLimit(parallel)

	results := make([]*job.Result, len(cfg.Targets))
	errs := make([]error, len(cfg.Targets))

	for i, target := range cfg.Targets {
		g.Go(func() error {
			slog.Info("Staging target", "alias", target.Alias)
			results[i], errs[i] = job.RunTarget(target, job.Options{})
			return nil // per-target failures are reported together below
		})
	}
	g.Wait()

	failed := 0
	for i, target := range cfg.Targets {
		if errs[i] != nil {
			failed++
			fmt.Printf("FAIL %-20s %v\n", target.Alias, errs[i])
			continue
		}
		res := results[i]
		status := "ok"
		if !res.CleanupOK {
			status = "ok (cleanup failed)"
		}
		fmt.Printf("PASS %-20s %s\n", target.Alias, status)
		for _, line := range res.Output {
			fmt.Printf("     %s\n", line)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(cfg.Targets))
	}
	return nil
}
