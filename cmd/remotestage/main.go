package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"remotestage/internal/builder"
	"remotestage/internal/config"
	"remotestage/internal/discover"
	"remotestage/internal/janitor"
	"remotestage/internal/job"
	"remotestage/pkg/sshutil"
	"remotestage/pkg/wol"
)

func main() {
	var debug bool
	var rootCmd = &cobra.Command{
		Use:   "remotestage",
		Short: "Stage files into a temporary directory on a remote test host",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")

	// --- Debug Command ---
	var debugCmd = &cobra.Command{
		Use:   "debug [ssh_alias]",
		Short: "Connect to a target and report what staging would see",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias := args[0]

			client, err := sshutil.NewClient(alias)
			if err != nil {
				return err
			}
			if err := client.Connect(); err != nil {
				return err
			}
			defer client.Close()
			fmt.Printf("Connected: %s@%s:%s\n", client.User, client.Host, client.Port)

			info, err := discover.Probe(client)
			if err != nil {
				return fmt.Errorf("probe failed: %w", err)
			}

			fmt.Println("------------------------------------------------")
			fmt.Printf("Hostname     : %s\n", info.Hostname)
			fmt.Printf("Architecture : %s (GOARCH match: %v)\n", info.Arch, builder.IsSameArch(info.Arch))
			fmt.Printf("Kernel       : %s\n", info.Kernel)
			fmt.Printf("Tmp base     : %s (%d KB free)\n", info.TmpBase, info.FreeKB)
			fmt.Println("------------------------------------------------")
			return nil
		},
	}

	// --- Wake Command ---
	var (
		wakeMac     string
		wakeIP      string
		wakePort    int
		wakeBcast   string
		wakeTimeout time.Duration
	)
	var wakeCmd = &cobra.Command{
		Use:   "wake",
		Short: "Send WoL to a target and wait for its ssh port",
		RunE: func(cmd *cobra.Command, args []string) error {
			packet, err := wol.NewMagicPacket(wakeMac)
			if err != nil {
				return fmt.Errorf("invalid MAC: %w", err)
			}
			if err := packet.Send(wakeBcast); err != nil {
				return fmt.Errorf("send WoL: %w", err)
			}
			slog.Info("WoL packet sent", "mac", wakeMac)

			fmt.Printf("Waiting for %s:%d ...\n", wakeIP, wakePort)
			if err := wol.WaitForPort(wakeIP, wakePort, wakeTimeout); err != nil {
				return err
			}
			fmt.Println("Target is up.")
			return nil
		},
	}
	wakeCmd.Flags().StringVar(&wakeMac, "mac", "", "MAC address")
	wakeCmd.Flags().StringVar(&wakeIP, "ip", "", "target IP")
	wakeCmd.Flags().StringVar(&wakeBcast, "bcast", "255.255.255.255", "broadcast IP")
	wakeCmd.Flags().IntVar(&wakePort, "port", 22, "port to wait for")
	wakeCmd.Flags().DurationVar(&wakeTimeout, "timeout", 120*time.Second, "wake timeout")
	wakeCmd.MarkFlagRequired("mac")
	wakeCmd.MarkFlagRequired("ip")

	// --- Run Command ---
	var (
		runPut      []string
		runGet      []string
		runDest     string
		runBaseDir  string
		runPattern  string
		runKeep     bool
		runBuild    bool
		runProgress bool
	)
	var runCmd = &cobra.Command{
		Use:   "run [ssh_alias] [command...]",
		Short: "Stage files, run a payload remotely, fetch results, clean up",
		Long: `Stages the command's executable (plus any --put files) into a fresh
temporary directory on the target, runs it there, downloads --get files,
and removes the directory again.

With --build the first command token is treated as a Go main package and
cross-compiled for the target's architecture first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias := args[0]
			target := config.TargetConfig{
				Alias:   alias,
				BaseDir: runBaseDir,
				Pattern: runPattern,
				Put:     runPut,
				Get:     runGet,
				Dest:    runDest,
				Keep:    runKeep,
			}
			if len(args) > 1 {
				target.Run = strings.Join(args[1:], " ")
			}
			if target.Run == "" && len(target.Put) == 0 {
				return fmt.Errorf("nothing to do: give a command or --put files")
			}

			if runBuild && target.Run != "" {
				built, err := buildPayload(alias, &target)
				if err != nil {
					return err
				}
				defer os.Remove(built)
			}

			var opts job.Options
			if runProgress {
				bar := progressbar.DefaultBytes(-1, "transfer")
				opts.Progress = func(n int) { bar.Add(n) }
			}

			res, err := job.RunTarget(target, opts)
			if err != nil {
				return err
			}
			for _, line := range res.Output {
				fmt.Println(line)
			}
			if !res.CleanupOK {
				slog.Warn("Staging dir was not removed", "path", res.StagePath)
			}
			if runKeep {
				fmt.Printf("Staging dir kept: %s\n", res.StagePath)
			}
			return nil
		},
	}
	runCmd.Flags().StringArrayVar(&runPut, "put", nil, "extra files or dirs to stage")
	runCmd.Flags().StringArrayVar(&runGet, "get", nil, "files to download afterwards")
	runCmd.Flags().StringVar(&runDest, "dest", "", "download destination (default --base-dir)")
	runCmd.Flags().StringVar(&runBaseDir, "base-dir", "", "local dir for relative paths")
	runCmd.Flags().StringVar(&runPattern, "pattern", "", "mktemp directory template")
	runCmd.Flags().BoolVar(&runKeep, "keep", false, "keep the staging dir for inspection")
	runCmd.Flags().BoolVar(&runBuild, "build", false, "cross-compile the payload for the target first")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "show transfer progress")

	// --- Sweep Command ---
	var (
		sweepOlder   time.Duration
		sweepPattern string
		sweepBase    string
		sweepDryRun  bool
	)
	var sweepCmd = &cobra.Command{
		Use:   "sweep [ssh_alias]",
		Short: "Remove stale staging dirs left by crashed runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sshutil.NewClient(args[0])
			if err != nil {
				return err
			}
			if err := client.Connect(); err != nil {
				return err
			}
			defer client.Close()

			s := &janitor.Sweeper{
				TmpBase:   sweepBase,
				Pattern:   sweepPattern,
				OlderThan: sweepOlder,
				DryRun:    sweepDryRun,
			}
			report, err := s.Sweep(client)
			if err != nil {
				return err
			}

			if sweepDryRun {
				for _, d := range report.Stale {
					fmt.Printf("stale: %s\n", d)
				}
				fmt.Printf("%d stale dir(s), none removed (dry-run)\n", len(report.Stale))
				return nil
			}
			fmt.Printf("%d stale dir(s), %d removed, %d failed\n",
				len(report.Stale), len(report.Removed), len(report.Failed))
			return nil
		},
	}
	sweepCmd.Flags().DurationVar(&sweepOlder, "older-than", 24*time.Hour, "minimum age")
	sweepCmd.Flags().StringVar(&sweepPattern, "pattern", "stage.*", "directory name glob")
	sweepCmd.Flags().StringVar(&sweepBase, "tmp-base", "/tmp", "remote tmp base dir")
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "report only, remove nothing")

	rootCmd.AddCommand(debugCmd, wakeCmd, runCmd, sweepCmd, newApplyCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildPayload probes the target's arch, cross-compiles the run command's
// leading token as a Go package, and rewrites the target to stage the
// built binary. Returns the binary path for deferred removal.
func buildPayload(alias string, target *config.TargetConfig) (string, error) {
	client, err := sshutil.NewClient(alias)
	if err != nil {
		return "", err
	}
	if err := client.Connect(); err != nil {
		return "", err
	}
	defer client.Close()

	info, err := discover.Probe(client)
	if err != nil {
		return "", fmt.Errorf("probe target arch: %w", err)
	}

	parts := strings.SplitN(target.Run, " ", 2)
	src := parts[0]
	out := filepath.Join(os.TempDir(), filepath.Base(strings.TrimSuffix(src, "/"))+"-"+info.Arch)
	if err := builder.BuildForTarget(info.Arch, src, out); err != nil {
		return "", err
	}

	target.Run = out
	if len(parts) == 2 {
		target.Run += " " + parts[1]
	}
	return out, nil
}
