package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"shortreel/internal/daemon"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show daemon, stage, and dependency health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			health, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderHealth(health))
			return nil
		},
	}
}

func renderHealth(health daemon.HealthResponse) string {
	out := fmt.Sprintf("Daemon running: %s (pid %d)\n", yesNo(health.Running), health.PID)
	if health.LastError != "" {
		out += "Last error: " + health.LastError + "\n"
	}

	if len(health.QueueStats) > 0 {
		statuses := make([]string, 0, len(health.QueueStats))
		for status := range health.QueueStats {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		rows := make([][]string, 0, len(statuses))
		for _, status := range statuses {
			rows = append(rows, []string{status, strconv.Itoa(health.QueueStats[status])})
		}
		out += "\n" + renderTable([]string{"Status", "Count"}, rows, 2) + "\n"
	}

	if len(health.StageHealth) > 0 {
		rows := make([][]string, 0, len(health.StageHealth))
		for _, stage := range health.StageHealth {
			rows = append(rows, []string{stage.Name, readiness(stage.Ready), stage.Detail})
		}
		out += "\n" + renderTable([]string{"Stage", "Ready", "Detail"}, rows) + "\n"
	}

	if len(health.Dependencies) > 0 {
		rows := make([][]string, 0, len(health.Dependencies))
		for _, dep := range health.Dependencies {
			rows = append(rows, []string{dep.Name, dep.Command, readiness(dep.Available), dep.Detail})
		}
		out += "\n" + renderTable([]string{"Dependency", "Command", "Available", "Detail"}, rows) + "\n"
	}

	return out
}

func readiness(ok bool) string {
	if ok {
		return "yes"
	}
	return "NO"
}
