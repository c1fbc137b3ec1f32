package procmon

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordSink) Log(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *recordSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *recordSink) count(substr string) int {
	n := 0
	for _, l := range s.snapshot() {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

func newTestMonitor() *Monitor {
	m := NewMonitor(afero.NewMemMapFs(), zap.NewNop())
	m.PollInterval = 50 * time.Millisecond
	return m
}

func TestRun_StreamsOutputAndExitCode(t *testing.T) {
	m := newTestMonitor()
	sink := &recordSink{}

	res := m.Run(t.Context(), []string{"sh", "-c", "echo one; echo two"}, sink, RunOptions{Phase: "test"})
	require.Equal(t, StatusExited, res.Status)
	assert.Equal(t, 0, res.ExitCode)
	assert.True(t, res.Success())
	assert.Equal(t, []string{"one", "two"}, sink.snapshot())
}

func TestRun_RealExitCodePassedThrough(t *testing.T) {
	m := newTestMonitor()
	sink := &recordSink{}

	res := m.Run(t.Context(), []string{"sh", "-c", "exit 3"}, sink, RunOptions{})
	require.Equal(t, StatusExited, res.Status)
	assert.Equal(t, 3, res.ExitCode)
	assert.True(t, res.Conclusive())
	assert.False(t, res.Success())
}

func TestRun_ToolMissing(t *testing.T) {
	m := newTestMonitor()
	sink := &recordSink{}

	res := m.Run(t.Context(), []string{"/no/such/engine-binary"}, sink, RunOptions{})
	assert.Equal(t, StatusToolMissing, res.Status)
	assert.False(t, res.Conclusive())
	assert.Empty(t, sink.snapshot())
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	m := newTestMonitor()
	sink := &recordSink{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	res := m.Run(ctx, []string{"sleep", "5"}, sink, RunOptions{Phase: "extract"})
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRun_CancelledMidFlight(t *testing.T) {
	m := newTestMonitor()
	sink := &recordSink{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := m.Run(ctx, []string{"sleep", "5"}, sink, RunOptions{})
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRun_HeartbeatOncePerQuietPeriod(t *testing.T) {
	m := newTestMonitor()
	sink := &recordSink{}

	// Silent for ~2.3s with a 1s quiet limit: expect roughly two
	// heartbeats, crucially not one per 50ms poll tick.
	res := m.Run(t.Context(), []string{"sleep", "2.3"}, sink, RunOptions{QuietSeconds: 1, Phase: "test"})
	require.Equal(t, StatusExited, res.Status)

	beats := sink.count("no output for 1s")
	assert.GreaterOrEqual(t, beats, 1)
	assert.LessOrEqual(t, beats, 3)
	for _, l := range sink.snapshot() {
		assert.Contains(t, l, "phase: test")
	}
}

func TestRun_ReportsOutputDirGrowth(t *testing.T) {
	m := newTestMonitor()
	require.NoError(t, m.fs.MkdirAll("/out", 0o755))
	require.NoError(t, afero.WriteFile(m.fs, "/out/part.bin", make([]byte, 2048), 0o644))

	sink := &recordSink{}
	res := m.Run(t.Context(), []string{"sleep", "0.4"}, sink, RunOptions{MonitorDir: "/out"})
	require.Equal(t, StatusExited, res.Status)

	// Size changed once (from unsampled to 2KB) and then held steady.
	assert.Equal(t, 1, sink.count("output directory at"))
	assert.Equal(t, 1, sink.count("2.0KB"))
}
