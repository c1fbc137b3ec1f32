// Package procmon runs external engine commands while watching them:
// output is streamed line-by-line to a sink, a watchdog reports output
// directory growth and emits heartbeats through quiet stretches, and a
// cancelled context terminates the child. Abnormal conditions never
// escape as errors; they become distinguished result statuses.
package procmon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/autoextract/autoextract/internal/detect"
)

// defaultPollInterval is how often the watchdog samples.
const defaultPollInterval = 2 * time.Second

// Status classifies how a command run ended.
type Status int

const (
	// StatusExited means the child ran to completion; ExitCode is its
	// real exit code and the result is conclusive.
	StatusExited Status = iota
	// StatusCancelled means the run was aborted by the caller.
	StatusCancelled
	// StatusToolMissing means the executable could not be located or started.
	StatusToolMissing
	// StatusExecError means an unexpected failure around the subprocess.
	StatusExecError
)

// Result is the outcome of one command run.
type Result struct {
	Status   Status
	ExitCode int
}

// Success reports a conclusive, clean exit.
func (r Result) Success() bool {
	return r.Status == StatusExited && r.ExitCode == 0
}

// Conclusive reports whether the child actually ran and finished, so
// its exit code means something. Cancelled, missing-tool and
// exec-error results are inconclusive about the archive itself.
func (r Result) Conclusive() bool {
	return r.Status == StatusExited
}

// LineSink receives the ordered stream of output and status lines.
type LineSink interface {
	Log(line string)
}

// RunOptions tune one command run.
type RunOptions struct {
	// MonitorDir, when set, is sampled for recursive byte growth; every
	// change is reported and counts as activity.
	MonitorDir string
	// QuietSeconds is how long without activity before a heartbeat line
	// is emitted. Zero disables heartbeats.
	QuietSeconds int
	// Phase names the pipeline phase in heartbeat lines.
	Phase string
}

// Monitor executes commands. PollInterval may be shortened in tests.
type Monitor struct {
	fs     afero.Fs
	logger *zap.Logger

	PollInterval time.Duration
}

func NewMonitor(fs afero.Fs, logger *zap.Logger) *Monitor {
	return &Monitor{fs: fs, logger: logger, PollInterval: defaultPollInterval}
}

// Run starts argv and blocks until the child exits, fails to start, or
// is terminated through ctx. Merged stdout/stderr goes to sink line by
// line. The watchdog runs concurrently; reader and watchdog share only
// a last-activity timestamp and a stop signal.
func (m *Monitor) Run(ctx context.Context, argv []string, sink LineSink, opts RunOptions) Result {
	if len(argv) == 0 {
		return Result{Status: StatusExecError}
	}

	cmd := exec.Command(argv[0], argv[1:]...)

	pr, pw, err := os.Pipe()
	if err != nil {
		m.logger.Error("pipe setup failed", zap.Error(err))
		return Result{Status: StatusExecError}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	m.logger.Debug("starting engine process",
		zap.Strings("argv", argv),
		zap.String("phase", opts.Phase),
		zap.String("monitor_dir", opts.MonitorDir),
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return Result{Status: StatusToolMissing}
		}
		sink.Log(fmt.Sprintf("!! failed to start command: %v", err))
		m.logger.Error("command start failed", zap.Strings("argv", argv), zap.Error(err))
		return Result{Status: StatusExecError}
	}
	// The child holds its own copy of the write end.
	pw.Close()

	var lastActivity atomic.Int64
	touch := func() { lastActivity.Store(time.Now().UnixNano()) }
	touch()

	var cancelled atomic.Bool
	// terminate kills the child and closes the read end so the reader
	// unblocks even when a grandchild still holds the write end.
	terminate := func() {
		cancelled.Store(true)
		_ = cmd.Process.Kill()
		_ = pr.Close()
	}

	stop := make(chan struct{})
	watchdogDone := make(chan struct{})
	go m.watchdog(ctx, sink, opts, &lastActivity, terminate, stop, watchdogDone)

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		touch()
		sink.Log(scanner.Text())
		if ctx.Err() != nil {
			terminate()
			break
		}
	}
	pr.Close()

	waitErr := cmd.Wait()
	close(stop)
	<-watchdogDone

	duration := time.Since(start)
	if cancelled.Load() || ctx.Err() != nil {
		m.logger.Debug("engine process cancelled",
			zap.Strings("argv", argv), zap.Duration("duration", duration))
		return Result{Status: StatusCancelled}
	}

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		sink.Log(fmt.Sprintf("!! command execution failed: %v", waitErr))
		m.logger.Error("command wait failed", zap.Strings("argv", argv), zap.Error(waitErr))
		return Result{Status: StatusExecError}
	}

	m.logger.Debug("engine process finished",
		zap.Strings("argv", argv),
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", duration),
	)
	return Result{Status: StatusExited, ExitCode: exitCode}
}

// watchdog polls until stop closes: it samples output-directory growth,
// emits heartbeats after quiet stretches, and kills the child when ctx
// is cancelled. It never blocks the reader.
func (m *Monitor) watchdog(
	ctx context.Context,
	sink LineSink,
	opts RunOptions,
	lastActivity *atomic.Int64,
	terminate func(),
	stop <-chan struct{},
	done chan<- struct{},
) {
	defer close(done)

	ticker := time.NewTicker(m.PollInterval)
	defer ticker.Stop()

	quiet := time.Duration(opts.QuietSeconds) * time.Second
	lastSize := int64(-1)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			terminate()
			<-stop
			return
		case <-ticker.C:
			if opts.MonitorDir != "" {
				size := m.dirSize(opts.MonitorDir)
				if size != lastSize {
					sink.Log(fmt.Sprintf("  · output directory at %s", detect.HumanSize(size)))
					lastSize = size
					lastActivity.Store(time.Now().UnixNano())
				}
			}
			if quiet > 0 {
				idle := time.Since(time.Unix(0, lastActivity.Load()))
				if idle >= quiet {
					if opts.Phase != "" {
						sink.Log(fmt.Sprintf("  … no output for %ds (phase: %s), still waiting on the engine", opts.QuietSeconds, opts.Phase))
					} else {
						sink.Log(fmt.Sprintf("  … no output for %ds, still waiting on the engine", opts.QuietSeconds))
					}
					lastActivity.Store(time.Now().UnixNano())
				}
			}
		}
	}
}

// dirSize is the recursive byte size of dir; unreadable entries count
// as zero and a missing dir is zero.
func (m *Monitor) dirSize(dir string) int64 {
	var total int64
	_ = afero.Walk(m.fs, dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}
