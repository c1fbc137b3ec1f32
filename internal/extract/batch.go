package extract

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/autoextract/autoextract/internal/detect"
)

const maxWorkers = 16

// Batch applies one Orchestrator to a sequence of archives.
type Batch struct {
	logger *zap.Logger
	sink   Sink
	orch   *Orchestrator
}

func NewBatch(logger *zap.Logger, sink Sink, orch *Orchestrator) *Batch {
	return &Batch{logger: logger, sink: sink, orch: orch}
}

// RunSequential processes archives one at a time in order. Once
// cancellation is observed no further archive starts; the archive in
// flight is aborted by the process monitor's own cancellation check.
func (b *Batch) RunSequential(ctx context.Context, archives []detect.Archive) Summary {
	total := len(archives)
	b.sink.Log(fmt.Sprintf("archives found: %d", total))
	b.sink.Progress(0, total)

	done := 0
	for i, arc := range archives {
		if ctx.Err() != nil {
			break
		}
		b.sink.Current(i+1, total, arc.Name())
		b.sink.Log(fmt.Sprintf("== start: [%d/%d] %s", i+1, total, arc.Path))
		b.orch.Process(ctx, arc)
		done++
		b.sink.Progress(done, total)
	}

	cancelled := ctx.Err() != nil
	b.finish(cancelled)
	return Summary{Done: done, Total: total, Cancelled: cancelled}
}

// RunSelected processes an explicit set of archives on a bounded worker
// pool. On cancellation, unstarted archives are dropped; in-flight ones
// are left to the process monitor to abort.
func (b *Batch) RunSelected(ctx context.Context, archives []detect.Archive, workers int) Summary {
	if workers < 1 {
		workers = 1
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}

	total := len(archives)
	b.sink.Log(fmt.Sprintf("selected archives: %d (workers: %d)", total, workers))
	b.sink.Progress(0, total)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var done atomic.Int64

submit:
	for i, arc := range archives {
		select {
		case <-ctx.Done():
			break submit
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(index int, a detect.Archive) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			if exists, _ := afero.Exists(b.orch.fs, a.Path); !exists {
				b.sink.Log(fmt.Sprintf("⚠ file not found, skipping: %s", a.Path))
			} else {
				b.sink.Current(index+1, total, a.Name())
				b.sink.Log(fmt.Sprintf("== start: [%d/%d] %s", index+1, total, a.Path))
				b.orch.Process(ctx, a)
			}
			n := done.Add(1)
			b.sink.Progress(int(n), total)
		}(i, arc)
	}

	wg.Wait()
	cancelled := ctx.Err() != nil
	b.finish(cancelled)
	return Summary{Done: int(done.Load()), Total: total, Cancelled: cancelled}
}

func (b *Batch) finish(cancelled bool) {
	if cancelled {
		b.sink.Log("stopped; remaining archives were not started")
		return
	}
	b.sink.Log("run complete")
}
