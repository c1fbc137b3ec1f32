package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// performEndAction runs the job's post-run action. Cancelled runs never
// trigger it. Shutdown is skipped in interactive terminals unless
// forced, so a foreground test run cannot power the machine off.
func performEndAction(ctx context.Context, logger *zap.Logger, action string, cancelled, force bool) error {
	if cancelled || action == "" || action == "none" {
		return nil
	}

	switch action {
	case "exit":
		logger.Info("end action: exiting")
		return nil
	case "shutdown":
		if isInteractiveTerminal() && !force {
			logger.Warn("skipping shutdown end action in an interactive terminal, pass --force-end-action to override")
			return nil
		}
		argv := shutdownArgv()
		logger.Info("end action: shutting down", zap.Strings("argv", argv))
		if err := exec.CommandContext(ctx, argv[0], argv[1:]...).Run(); err != nil {
			return fmt.Errorf("failed to run shutdown command: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown end action %q", action)
	}
}

// shutdownArgv leaves a grace minute so a mistaken run can be aborted
// with the platform's cancel command.
func shutdownArgv() []string {
	if runtime.GOOS == "windows" {
		return []string{"shutdown", "/s", "/t", "60"}
	}
	return []string{"shutdown", "-h", "+1"}
}

func isInteractiveTerminal() bool {
	if os.Getenv("CI") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}
