package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// --- Daemon helpers ---

// homeDir holds the pid and log files of the background server.
func homeDir() (string, error) {
	if v := os.Getenv("JOURNEYFLOW_HOME"); v != "" {
		return v, nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(h, ".journeyflow"), nil
}

func pidFilePath() (string, error) {
	base, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "journeyflow.pid"), nil
}

func logFilePath() (string, error) {
	base, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "journeyflow.log"), nil
}

func readPID() (int, error) {
	p, err := pidFilePath()
	if err != nil {
		return 0, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

func writePID(pid int) error {
	p, err := pidFilePath()
	if err != nil {
		return err
	}
	return os.WriteFile(p, []byte(strconv.Itoa(pid)), 0o644)
}

func removePIDFile() {
	if p, err := pidFilePath(); err == nil {
		_ = os.Remove(p)
	}
}

func isRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	// Signal 0 checks existence
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means we can't signal but it exists
	return err == syscall.EPERM
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP API as a background daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := homeDir()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(home, 0o755); err != nil {
				return err
			}
			if pid, err := readPID(); err == nil && isRunning(pid) {
				return fmt.Errorf("journeyflow already running (pid %d)", pid)
			}

			logPath, _ := logFilePath()
			lf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return err
			}
			defer lf.Close()
			_, _ = io.WriteString(lf, time.Now().Format(time.RFC3339)+" starting journeyflow daemon\n")

			bin, err := os.Executable()
			if err != nil {
				return err
			}
			serveArgs := []string{"serve"}
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				abs, err := filepath.Abs(path)
				if err != nil {
					return err
				}
				serveArgs = append(serveArgs, "--config", abs)
			}
			child := exec.Command(bin, serveArgs...)
			child.Stdout = lf
			child.Stderr = lf
			child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
			if err := child.Start(); err != nil {
				return err
			}
			if err := writePID(child.Process.Pid); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "journeyflow started in background (pid %d). Logs: %s\n", child.Process.Pid, logPath)
			return nil
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			pid, err := readPID()
			if err != nil {
				return fmt.Errorf("cannot read pid file: %w", err)
			}
			if !isRunning(pid) {
				removePIDFile()
				fmt.Fprintln(out, "journeyflow is not running")
				return nil
			}
			if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
				return err
			}
			// Wait up to 5s for shutdown
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				if !isRunning(pid) {
					removePIDFile()
					fmt.Fprintln(out, "journeyflow stopped")
					return nil
				}
				time.Sleep(150 * time.Millisecond)
			}
			_ = syscall.Kill(pid, syscall.SIGKILL)
			removePIDFile()
			fmt.Fprintln(out, "journeyflow force-stopped")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the background daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			pid, err := readPID()
			if err != nil {
				fmt.Fprintln(out, "journeyflow not running (no pid file)")
				return nil
			}
			if isRunning(pid) {
				logPath, _ := logFilePath()
				fmt.Fprintf(out, "journeyflow running (pid %d). Logs: %s\n", pid, logPath)
			} else {
				fmt.Fprintf(out, "journeyflow not running (stale pid %d)\n", pid)
				removePIDFile()
			}
			return nil
		},
	}
}
