package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// consoleSink renders run output for a terminal. Concurrent workers
// share it, so every write is serialized to keep lines whole.
type consoleSink struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
}

func newConsoleSink(logger *zap.Logger) *consoleSink {
	return &consoleSink{out: os.Stdout, logger: logger}
}

func (s *consoleSink) Log(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

func (s *consoleSink) Progress(done, total int) {
	s.logger.Debug("progress", zap.Int("done", done), zap.Int("total", total))
}

func (s *consoleSink) Current(index, total int, name string) {
	s.logger.Debug("current archive",
		zap.Int("index", index), zap.Int("total", total), zap.String("name", name))
}

func (s *consoleSink) Phase(label string) {
	s.logger.Debug("phase", zap.String("phase", label))
}
