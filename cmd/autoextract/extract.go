package main

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/autoextract/autoextract/internal/detect"
	"github.com/autoextract/autoextract/internal/runner"
)

var extractCommand = &cli.Command{
	Name:      "extract",
	Usage:     "Extract an explicit set of archives using the job's policy and engines",
	ArgsUsage: "<job> <archive>...",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Worker pool size (overrides the job's workers setting)",
		},
		forceEndActionFlag,
	},
	Arguments: jobArgument("The job file providing engines and policy"),
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		job, jobFilename, err := loadExtractJob(command)
		if err != nil {
			return err
		}

		paths := command.Args().Slice()
		if len(paths) == 0 {
			return fmt.Errorf("no archives provided")
		}
		logger.Info("starting selected extraction",
			zap.String("job_filename", jobFilename),
			zap.Int("archives", len(paths)))

		r, err := runner.New(logger.Named("runner"), afero.NewOsFs(), job, newConsoleSink(logger))
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		// Missing files stay in the list; the pool reports them as skipped.
		archives := lo.Map(paths, func(path string, _ int) detect.Archive {
			arc := detect.Archive{Path: path}
			if info, err := os.Stat(path); err == nil {
				arc.Size = info.Size()
			}
			return arc
		})

		summary := r.RunSelected(ctx, archives, int(command.Int("workers")))
		logger.Info("selected extraction finished",
			zap.Int("done", summary.Done),
			zap.Int("total", summary.Total),
			zap.Bool("cancelled", summary.Cancelled))

		return performEndAction(ctx, logger, r.EndAction(), summary.Cancelled, command.Bool("force-end-action"))
	},
}
