package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shortreel/internal/daemon"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show the status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := client.Job(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderJobDetail(job))
			return nil
		},
	}
}

func renderJobDetail(job daemon.JobView) string {
	rows := [][]string{
		{"ID", strconv.FormatInt(job.ID, 10)},
		{"Topic", job.Topic},
		{"Status", job.Status},
		{"Progress", formatProgress(job.Progress)},
	}
	if job.Voice != "" {
		rows = append(rows, []string{"Voice", job.Voice})
	}
	rows = append(rows,
		[]string{"Music", yesNo(job.UseMusic)},
		[]string{"Upload", yesNo(job.Upload)},
	)
	if job.OutputFile != "" {
		rows = append(rows, []string{"Output", job.OutputFile})
	}
	if job.RemoteID != "" {
		rows = append(rows, []string{"Video ID", job.RemoteID})
	}
	if job.ErrorMessage != "" {
		label := job.ErrorMessage
		if job.ErrorStage != "" {
			label = fmt.Sprintf("[%s] %s", job.ErrorStage, label)
		}
		rows = append(rows, []string{"Error", label})
	}
	if job.CancelRequested {
		rows = append(rows, []string{"Cancel", "requested"})
	}
	if job.CreatedAt != "" {
		rows = append(rows, []string{"Created", job.CreatedAt})
	}
	return renderTable([]string{"Field", "Value"}, rows)
}

func formatProgress(progress daemon.JobProgress) string {
	stage := progress.Stage
	if stage == "" {
		stage = "-"
	}
	label := fmt.Sprintf("%s (%.0f%%)", stage, progress.Percent)
	if message := strings.TrimSpace(progress.Message); message != "" {
		label += " " + message
	}
	return label
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func parseJobID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", arg)
	}
	return id, nil
}
