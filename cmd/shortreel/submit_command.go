package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shortreel/internal/daemon"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var voice string
	var model string
	var paragraphs int
	var threads int
	var useMusic bool
	var musicSource string
	var upload bool
	var subtitlePosition string
	var subtitleColor string
	var extraPrompt string

	cmd := &cobra.Command{
		Use:   "submit <topic>",
		Short: "Submit a new video generation job",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(strings.Join(args, " "))
			if topic == "" {
				return fmt.Errorf("topic is required")
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := client.Submit(cmd.Context(), daemon.SubmitJobRequest{
				Topic:             topic,
				Voice:             voice,
				Model:             model,
				ParagraphCount:    paragraphs,
				Threads:           threads,
				UseMusic:          useMusic || musicSource != "",
				MusicSource:       musicSource,
				Upload:            upload,
				SubtitlesPosition: subtitlePosition,
				SubtitlesColor:    subtitleColor,
				ExtraPrompt:       extraPrompt,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %d queued: %s\n", job.ID, job.Topic)
			fmt.Fprintf(out, "Track it with `shortreel status %d`\n", job.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&voice, "voice", "", "Narration voice")
	cmd.Flags().StringVar(&model, "model", "", "Text generation model override")
	cmd.Flags().IntVar(&paragraphs, "paragraphs", 0, "Script paragraph count")
	cmd.Flags().IntVar(&threads, "threads", 0, "Footage download concurrency")
	cmd.Flags().BoolVar(&useMusic, "music", false, "Mix a background music bed")
	cmd.Flags().StringVar(&musicSource, "music-source", "", "Music bed file path or URL (implies --music)")
	cmd.Flags().BoolVar(&upload, "upload", false, "Publish to YouTube when composed")
	cmd.Flags().StringVar(&subtitlePosition, "subtitle-position", "", "Subtitle position (top, center, bottom)")
	cmd.Flags().StringVar(&subtitleColor, "subtitle-color", "", "Subtitle color (#RRGGBB)")
	cmd.Flags().StringVar(&extraPrompt, "extra-prompt", "", "Additional script guidance")
	return cmd
}
