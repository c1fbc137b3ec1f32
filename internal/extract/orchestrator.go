// Package extract sequences the per-archive extraction state machine
// and applies it to batches, sequentially or through a bounded worker
// pool. Engine and process failures never propagate as errors; every
// archive ends in a terminal outcome reported through the sink.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/autoextract/autoextract/internal/detect"
	"github.com/autoextract/autoextract/internal/engine"
	"github.com/autoextract/autoextract/internal/password"
	"github.com/autoextract/autoextract/internal/procmon"
)

// Config carries the per-run extraction policy.
type Config struct {
	// Root is the scan root; output paths mirror archive paths relative
	// to it when OutputRoot is set.
	Root       string
	OutputRoot string

	Policy        string
	Pretest       bool
	CrossFallback bool
	Nested        bool
	DeleteSource  bool
	QuietSeconds  int
}

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Fs        afero.Fs
	Logger    *zap.Logger
	Detector  *detect.Detector
	Inferrer  *password.Inferrer
	Monitor   *procmon.Monitor
	Primary   *engine.Engine
	Secondary *engine.Engine
	Sink      Sink
}

// Orchestrator processes one archive at a time through
// prepare → (test) → extract → (nested) → (cleanup).
type Orchestrator struct {
	fs        afero.Fs
	logger    *zap.Logger
	detector  *detect.Detector
	inferrer  *password.Inferrer
	monitor   *procmon.Monitor
	primary   *engine.Engine
	secondary *engine.Engine
	sink      Sink
	cfg       Config
}

func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	return &Orchestrator{
		fs:        deps.Fs,
		logger:    deps.Logger,
		detector:  deps.Detector,
		inferrer:  deps.Inferrer,
		monitor:   deps.Monitor,
		primary:   deps.Primary,
		secondary: deps.Secondary,
		sink:      deps.Sink,
		cfg:       cfg,
	}
}

type testVerdict int

const (
	testPassed testVerdict = iota
	testFailed
	testInconclusive
)

// Process runs the archive through the state machine and returns its
// terminal outcome. It never returns an error.
func (o *Orchestrator) Process(ctx context.Context, arc detect.Archive) Outcome {
	if ctx.Err() != nil {
		return Outcome{State: StateCancelled}
	}

	o.sink.Phase("prepare")
	kind := o.detector.SniffSignature(arc.Path)
	if kind.IsPlaceholder() {
		o.sink.Log(fmt.Sprintf("⚠ not an archive (%s header), likely a mis-downloaded page: %s", strings.ToUpper(string(kind)), arc.Path))
		return Outcome{State: StateSkipped, Reason: "not an archive"}
	}

	pwd := arc.Password
	if pwd == "" {
		pwd, _ = o.inferrer.Infer(arc.Path)
	}

	outDir := o.outputDir(arc)
	if err := o.fs.MkdirAll(outDir, 0o755); err != nil {
		o.sink.Log(fmt.Sprintf("!! cannot create output directory %s: %v", outDir, err))
		return Outcome{State: StateFailed, Reason: "output directory"}
	}

	if o.primary == nil {
		o.sink.Log(fmt.Sprintf("!! no extraction engine available, skipping: %s", arc.Path))
		return Outcome{State: StateFailed, Reason: "no engine available"}
	}

	if o.cfg.Pretest {
		o.sink.Phase("test")
		verdict := o.test(ctx, o.primary, arc.Path, pwd)
		if ctx.Err() != nil {
			return Outcome{State: StateCancelled}
		}
		if verdict == testFailed && o.cfg.CrossFallback && o.secondary != nil {
			o.sink.Log("  ↺ test failed, retrying with the other engine...")
			o.sink.Phase("test (fallback)")
			if o.test(ctx, o.secondary, arc.Path, pwd) == testFailed {
				o.sink.Log("✖ classified as corrupt or missing parts, skipped (re-download or complete the volume set)")
				return Outcome{State: StateFailed, Reason: "corrupt or missing parts"}
			}
			if ctx.Err() != nil {
				return Outcome{State: StateCancelled}
			}
		}
	}

	o.sink.Phase("extract")
	res := o.extractWith(ctx, o.primary, arc.Path, outDir, pwd)
	if res.Status == procmon.StatusCancelled {
		return Outcome{State: StateCancelled}
	}
	ok := res.Success()
	if !ok && o.cfg.CrossFallback && o.secondary != nil {
		o.sink.Log("  ↺ failed, retrying with the other engine...")
		o.sink.Phase("extract (fallback)")
		res = o.extractWith(ctx, o.secondary, arc.Path, outDir, pwd)
		if res.Status == procmon.StatusCancelled {
			return Outcome{State: StateCancelled}
		}
		ok = res.Success()
	}
	if !ok {
		o.sink.Log("✖ extraction failed. Check the password, archive integrity, multipart completeness, or try another engine version")
		return Outcome{State: StateFailed, Reason: "extraction failed"}
	}

	outcome := Outcome{State: StateDone}
	if o.cfg.Nested {
		o.sink.Phase("nested")
		outcome.Nested = o.extractNested(ctx, outDir, pwd)
		if outcome.Nested > 0 {
			o.sink.Log(fmt.Sprintf("  ✔ nested extraction finished (%d archives)", outcome.Nested))
		}
	}
	if o.cfg.DeleteSource {
		outcome.Deleted = o.deleteFamily(arc.Path)
		o.sink.Log(fmt.Sprintf("  🗑 removed %d source file(s)", outcome.Deleted))
	}
	o.sink.Log(fmt.Sprintf("✔ done: %s", arc.Name()))
	return outcome
}

func (o *Orchestrator) outputDir(arc detect.Archive) string {
	if o.cfg.OutputRoot == "" {
		return filepath.Join(filepath.Dir(arc.Path), arc.Stem())
	}
	rel, err := filepath.Rel(o.cfg.Root, filepath.Dir(arc.Path))
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = ""
	}
	return filepath.Join(o.cfg.OutputRoot, rel, arc.Stem())
}

func (o *Orchestrator) test(ctx context.Context, e *engine.Engine, archive, pwd string) testVerdict {
	o.sink.Log(fmt.Sprintf("→ testing: %s  using: %s", archive, e.Kind))
	res := o.monitor.Run(ctx, e.TestCmd(archive, pwd), o.sink, procmon.RunOptions{
		QuietSeconds: o.cfg.QuietSeconds,
		Phase:        "test",
	})
	switch {
	case res.Success():
		o.sink.Log("  ✔ test passed")
		return testPassed
	case res.Conclusive():
		return testFailed
	default:
		// Cancelled, missing tool or launch failure: says nothing about
		// the archive, so extraction is still attempted.
		return testInconclusive
	}
}

func (o *Orchestrator) extractWith(ctx context.Context, e *engine.Engine, archive, outDir, pwd string) procmon.Result {
	o.sink.Log(fmt.Sprintf("→ extracting: %s  using: %s  into: %s  policy: %s", archive, e.Kind, outDir, o.cfg.Policy))
	return o.monitor.Run(ctx, e.ExtractCmd(archive, outDir, pwd, o.cfg.Policy), o.sink, procmon.RunOptions{
		MonitorDir:   outDir,
		QuietSeconds: o.cfg.QuietSeconds,
		Phase:        "extract",
	})
}

// extractNested walks the freshly extracted output and extracts every
// archive found inside it, in place, reusing the same password and
// policy. Only the primary engine is used; there is no fallback here.
func (o *Orchestrator) extractNested(ctx context.Context, root, pwd string) int {
	var candidates []string
	_ = afero.Walk(o.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		path = o.detector.ClassifyExtension(path)
		name := filepath.Base(path)
		if !detect.LooksLikeArchive(name) {
			return nil
		}
		if multi, first := detect.IsMultipartFirst(name); multi && !first {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})

	count := 0
	for _, nested := range candidates {
		if ctx.Err() != nil {
			break
		}
		stem := strings.TrimSuffix(filepath.Base(nested), filepath.Ext(nested))
		outDir := filepath.Join(filepath.Dir(nested), stem)
		if err := o.fs.MkdirAll(outDir, 0o755); err != nil {
			continue
		}
		res := o.monitor.Run(ctx, o.primary.ExtractCmd(nested, outDir, pwd, o.cfg.Policy), o.sink, procmon.RunOptions{
			MonitorDir:   outDir,
			QuietSeconds: o.cfg.QuietSeconds,
			Phase:        "nested",
		})
		if res.Success() {
			count++
			if o.cfg.DeleteSource {
				o.deleteFamily(nested)
			}
		}
	}
	return count
}

// deleteFamily removes every multipart sibling of firstPart, best
// effort: unlinkable files are skipped and only the removed count is
// reported.
func (o *Orchestrator) deleteFamily(firstPart string) int {
	removed := 0
	for _, sibling := range o.detector.Siblings(firstPart) {
		if err := o.fs.Remove(sibling); err != nil {
			o.logger.Debug("could not remove source fragment",
				zap.String("path", sibling), zap.Error(err))
			continue
		}
		removed++
	}
	return removed
}
