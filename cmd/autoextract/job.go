package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	v1 "github.com/autoextract/autoextract/apis/v1"
	"github.com/autoextract/autoextract/internal/runner"
)

// jobArgument is the shared positional argument every job-driven
// command takes.
func jobArgument(usage string) []cli.Argument {
	return []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: usage,
		},
	}
}

func loadExtractJob(command *cli.Command) (v1.ExtractJob, string, error) {
	jobFilename := command.StringArg("job")
	if jobFilename == "" {
		return v1.ExtractJob{}, "", fmt.Errorf("no job file provided")
	}

	jobFile, err := os.ReadFile(jobFilename)
	if err != nil {
		return v1.ExtractJob{}, jobFilename, fmt.Errorf("failed to read job file '%s': %w", jobFilename, err)
	}

	job, err := runner.ParseExtractJob(jobFile)
	if err != nil {
		return v1.ExtractJob{}, jobFilename, fmt.Errorf("failed to parse job: %w", err)
	}

	return job, jobFilename, nil
}
