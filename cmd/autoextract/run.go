package main

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/autoextract/autoextract/internal/runner"
)

var forceEndActionFlag = &cli.BoolFlag{
	Name:  "force-end-action",
	Usage: "Run the job's shutdown end action even from an interactive terminal",
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Scan the job root and extract every matching archive in order",
	Flags:     []cli.Flag{forceEndActionFlag},
	Arguments: jobArgument("The job file describing the run"),
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		job, jobFilename, err := loadExtractJob(command)
		if err != nil {
			return err
		}
		logger.Info("starting run",
			zap.String("job_filename", jobFilename),
			zap.String("root", job.Spec.Root))

		r, err := runner.New(logger.Named("runner"), afero.NewOsFs(), job, newConsoleSink(logger))
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		summary, err := r.Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to run job: %w", err)
		}
		logger.Info("run finished",
			zap.Int("done", summary.Done),
			zap.Int("total", summary.Total),
			zap.Bool("cancelled", summary.Cancelled))

		return performEndAction(ctx, logger, r.EndAction(), summary.Cancelled, command.Bool("force-end-action"))
	},
}
