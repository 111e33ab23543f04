package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"inkwell/internal/daemonctl"
	"inkwell/internal/daemonrun"
)

const (
	daemonStartTimeout = 15 * time.Second
	daemonStopGrace    = 10 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStartCommand(ctx),
		newStopCommand(ctx),
		newRestartCommand(ctx),
		newStatusCommand(ctx),
	}
}

// daemonExecutable resolves the inkwelld binary: first as a sibling of the
// CLI binary, then on PATH.
func daemonExecutable() (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), "inkwelld")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath("inkwelld")
	if err != nil {
		return "", fmt.Errorf("locate inkwelld binary: %w", err)
	}
	return path, nil
}

func (c *commandContext) daemonLaunchOptions(logLevel string) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{LogLevel: logLevel}
	if c.configFlag != nil {
		opts.ConfigPath = strings.TrimSpace(*c.configFlag)
	}
	return opts
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the inkwell daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			executable, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(cmd.Context(), ctx.apiClient(), executable, ctx.daemonLaunchOptions(logLevel), daemonStartTimeout)
			if err != nil {
				return err
			}

			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is already running")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon started")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Daemon log level (debug, info, warn, error)")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the inkwell daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			result, err := daemonctl.StopAndTerminate(cmd.Context(), ctx.apiClient(), daemonrun.PIDFilePath(cfg), daemonStopGrace)
			if err != nil {
				if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
					return nil
				}
				return err
			}

			if result.ForcedKill {
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon did not exit gracefully; killed pid %d\n", result.PID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon stopped (pid %d)\n", result.PID)
			}
			return nil
		},
	}
}

func newRestartCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the inkwell daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			executable, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(cmd.Context(), ctx.apiClient(), daemonrun.PIDFilePath(cfg), executable, ctx.daemonLaunchOptions(logLevel), daemonStopGrace, daemonStartTimeout)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !result.WasRunning {
				fmt.Fprintln(out, "Daemon was not running")
			} else if result.Stop.ForcedKill {
				fmt.Fprintf(out, "Daemon did not exit gracefully; killed pid %d\n", result.Stop.PID)
			}
			fmt.Fprintln(out, "Daemon started")
			return nil
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Daemon log level (debug, info, warn, error)")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and pipeline status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.apiClient()
			status, err := client.Status(cmd.Context())
			if err != nil {
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"running": false})
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), renderSectionHeader("Daemon"))
				fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(colorize, statusError, "Daemon", "not running"))
				return nil
			}

			if jsonOutput {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, renderSectionHeader("Daemon"))
			fmt.Fprintln(out, renderStatusLine(colorize, statusOK, "Daemon", fmt.Sprintf("running (pid %d)", status.PID)))
			fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Records DB", status.RecordsDBPath))
			fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Queue DB", status.QueueDBPath))

			workerKind, workerMsg := statusOK, "running"
			if !status.Worker.Running {
				workerKind, workerMsg = statusWarn, "stopped"
			}
			if status.Worker.LastError != "" {
				workerKind = statusError
				workerMsg += ": " + status.Worker.LastError
			}
			fmt.Fprintln(out, renderStatusLine(colorize, workerKind, "Worker", workerMsg))

			reconcilerKind, reconcilerMsg := statusOK, "running"
			if !status.Reconciler.Running {
				reconcilerKind, reconcilerMsg = statusWarn, "stopped"
			}
			if status.Reconciler.LastSweep != "" {
				reconcilerMsg += fmt.Sprintf(" (last sweep %s, requeued %d, failed %d)",
					status.Reconciler.LastSweep, status.Reconciler.Requeued, status.Reconciler.Failed)
			}
			fmt.Fprintln(out, renderStatusLine(colorize, reconcilerKind, "Reconciler", reconcilerMsg))

			fmt.Fprintln(out)
			fmt.Fprintln(out, renderSectionHeader("Health"))
			if report, err := client.Health(cmd.Context()); err == nil {
				for _, check := range report.Checks {
					kind := statusOK
					msg := check.Detail
					if !check.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(colorize, kind, check.Name, msg))
				}
			} else {
				fmt.Fprintln(out, renderStatusLine(colorize, statusWarn, "Health", err.Error()))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, renderSectionHeader("Documents"))
			records := status.Worker.Records
			queue := status.Worker.Queue
			fmt.Fprintln(out, renderTable(
				[]string{"Total", "Uploaded", "Queued", "In Flight", "Processed", "Failed", "Recycled"},
				[][]string{{
					strconv.Itoa(records.Total),
					strconv.Itoa(records.Uploaded),
					strconv.Itoa(records.Queued),
					strconv.Itoa(records.InFlight),
					strconv.Itoa(records.Processed),
					strconv.Itoa(records.Failed),
					strconv.Itoa(records.Recycled),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "Queue: %d ready, %d leased, %d dead-lettered\n", queue.Ready, queue.Leased, queue.DeadLetters)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	return cmd
}
