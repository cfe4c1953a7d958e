package main

import (
	"log/slog"

	"shortreel/internal/compose"
	"shortreel/internal/config"
	"shortreel/internal/gather"
	"shortreel/internal/publish"
	"shortreel/internal/script"
	"shortreel/internal/subtitles"
	"shortreel/internal/workflow"
)

func buildStages(cfg *config.Config, logger *slog.Logger) workflow.StageSet {
	return workflow.StageSet{
		Script:  script.NewSynthesizer(cfg, logger),
		Gather:  gather.NewStage(cfg, logger),
		Align:   subtitles.NewStage(cfg, logger),
		Compose: compose.NewStage(cfg, logger),
		Publish: publish.NewStage(cfg, logger),
	}
}
