package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shortreel/internal/daemon"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue operations",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			jobs, err := client.Queue(cmd.Context(), statuses)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}
			fmt.Fprintln(out, renderQueueTable(jobs))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func renderQueueTable(jobs []daemon.JobView) string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.Topic,
			job.Status,
			formatProgress(job.Progress),
		})
	}
	return renderTable([]string{"ID", "Topic", "Status", "Progress"}, rows, 1)
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Retry failed jobs (all failed jobs when no ids given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseJobID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			count, err := client.Retry(cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d job(s)\n", count)
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completed bool
	var failed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if completed && failed {
				return fmt.Errorf("choose one of --completed or --failed")
			}
			scope := "all"
			switch {
			case completed:
				scope = "completed"
			case failed:
				scope = "failed"
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			count, err := client.Clear(cmd.Context(), scope)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&completed, "completed", false, "Only clear completed jobs")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only clear failed jobs")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Request cancellation of a job",
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
			if err := client.Cancel(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for job %d\n", id)
			return nil
		},
	}
}
