package main

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/autoextract/autoextract/internal/detect"
	"github.com/autoextract/autoextract/internal/runner"
)

var scanCommand = &cli.Command{
	Name:      "scan",
	Usage:     "List the archives a job would extract, without extracting",
	Arguments: jobArgument("The job file describing the scan"),
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		job, jobFilename, err := loadExtractJob(command)
		if err != nil {
			return err
		}
		logger.Debug("scanning", zap.String("job_filename", jobFilename))

		r, err := runner.New(logger.Named("runner"), afero.NewOsFs(), job, nil)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		archives, err := r.Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to scan: %w", err)
		}

		for _, arc := range archives {
			line := fmt.Sprintf("%-8s %10s  %s", arc.Kind, detect.HumanSize(arc.Size), arc.Path)
			if arc.Password != "" {
				line += fmt.Sprintf("  (password: %s)", arc.Password)
			}
			fmt.Println(line)
		}

		totalSize := lo.SumBy(archives, func(arc detect.Archive) int64 { return arc.Size })
		withPassword := lo.CountBy(archives, func(arc detect.Archive) bool { return arc.Password != "" })
		fmt.Printf("%d archive(s), %s total, %d with an inferred password\n",
			len(archives), detect.HumanSize(totalSize), withPassword)

		return nil
	},
}
