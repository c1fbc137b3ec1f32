// Package runner binds a parsed job to the detection, password,
// engine and extraction layers and exposes the scan and run entry
// points the commands call.
package runner

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/google/cel-go/cel"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	v1 "github.com/autoextract/autoextract/apis/v1"
	"github.com/autoextract/autoextract/internal/detect"
	"github.com/autoextract/autoextract/internal/engine"
	"github.com/autoextract/autoextract/internal/extract"
	"github.com/autoextract/autoextract/internal/password"
	"github.com/autoextract/autoextract/internal/procmon"
)

const (
	// defaultQuietSeconds applies when the job leaves quiet_seconds unset.
	defaultQuietSeconds = 30
	// minQuietSeconds is the floor; shorter intervals make the heartbeat
	// fire on ordinary engine pauses.
	minQuietSeconds = 10

	defaultWorkers = 2
)

type Runner struct {
	logger   *zap.Logger
	fs       afero.Fs
	job      v1.ExtractJob
	detector *detect.Detector
	inferrer *password.Inferrer
	batch    *extract.Batch
	filter   cel.Program
	workers  int
}

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// ParseExtractJob parses a YAML or JSON job file and validates it
// against the constraints declared on the v1.ExtractJob struct. It
// returns a validated ExtractJob or an error if parsing or validation
// fails.
func ParseExtractJob(data []byte) (v1.ExtractJob, error) {
	var job v1.ExtractJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.ExtractJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := defaultValidator.Struct(job); err != nil {
		return v1.ExtractJob{}, fmt.Errorf("failed to validate job: %w", err)
	}

	return job, nil
}

func New(logger *zap.Logger, fs afero.Fs, job v1.ExtractJob, sink extract.Sink) (*Runner, error) {
	logger.Info("creating runner", zap.String("job_name", job.Metadata.Name))

	if sink == nil {
		sink = extract.NopSink{}
	}

	quiet := job.Spec.QuietSeconds
	if quiet == 0 {
		quiet = defaultQuietSeconds
	}
	if quiet < minQuietSeconds {
		quiet = minQuietSeconds
	}

	workers := job.Spec.Workers
	if workers == 0 {
		workers = defaultWorkers
	}

	policy := job.Spec.Policy
	if policy == "" {
		policy = "skip"
	}

	var filter cel.Program
	if job.Spec.Filter != "" {
		prg, err := CompileFilter(job.Spec.Filter)
		if err != nil {
			return nil, err
		}
		filter = prg
	}

	primary, secondary := engine.Resolve(engine.Config{
		Bandizip: job.Spec.Engines.Bandizip,
		SevenZip: job.Spec.Engines.SevenZip,
	}, logger.Named("engine"))

	detector := detect.NewDetector(fs, logger.Named("detect"))
	inferrer := password.NewInferrer(fs, logger.Named("password"))

	orch := extract.NewOrchestrator(extract.Deps{
		Fs:        fs,
		Logger:    logger.Named("extract"),
		Detector:  detector,
		Inferrer:  inferrer,
		Monitor:   procmon.NewMonitor(fs, logger.Named("procmon")),
		Primary:   primary,
		Secondary: secondary,
		Sink:      sink,
	}, extract.Config{
		Root:          job.Spec.Root,
		OutputRoot:    job.Spec.OutputRoot,
		Policy:        policy,
		Pretest:       job.Spec.Pretest,
		CrossFallback: job.Spec.CrossFallback,
		Nested:        job.Spec.Nested,
		DeleteSource:  job.Spec.DeleteSource,
		QuietSeconds:  quiet,
	})

	return &Runner{
		logger:   logger,
		fs:       fs,
		job:      job,
		detector: detector,
		inferrer: inferrer,
		batch:    extract.NewBatch(logger.Named("batch"), sink, orch),
		filter:   filter,
		workers:  workers,
	}, nil
}

// Scan gathers archives under the job root, enriches each with its
// sniffed signature kind and inferred password, and applies the job
// filter. The result is the exact work list Run would process.
func (r *Runner) Scan(ctx context.Context) ([]detect.Archive, error) {
	archives, err := r.detector.Gather(r.job.Spec.Root, r.job.Spec.Recursive)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", r.job.Spec.Root, err)
	}

	kept := archives[:0]
	for _, arc := range archives {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		arc.Kind = r.detector.SniffSignature(arc.Path)
		arc.Password, _ = r.inferrer.Infer(arc.Path)

		if r.filter != nil {
			keep, err := matches(r.filter, arc)
			if err != nil {
				r.logger.Warn("filter evaluation failed, excluding archive",
					zap.String("path", arc.Path), zap.Error(err))
				continue
			}
			if !keep {
				continue
			}
		}
		kept = append(kept, arc)
	}
	return kept, nil
}

// Run scans and processes every matching archive sequentially.
func (r *Runner) Run(ctx context.Context) (extract.Summary, error) {
	archives, err := r.Scan(ctx)
	if err != nil {
		return extract.Summary{}, err
	}
	return r.batch.RunSequential(ctx, archives), nil
}

// RunSelected processes an explicit archive selection on a bounded
// worker pool. A non-positive workers argument falls back to the job's
// worker count.
func (r *Runner) RunSelected(ctx context.Context, archives []detect.Archive, workers int) extract.Summary {
	if workers < 1 {
		workers = r.workers
	}
	return r.batch.RunSelected(ctx, archives, workers)
}

// EndAction reports the job's configured post-run action.
func (r *Runner) EndAction() string {
	if r.job.Spec.EndAction == "" {
		return "none"
	}
	return r.job.Spec.EndAction
}
