package main

import (
	"context"
	"testing"

	"shortreel/internal/logging"
	"shortreel/internal/stage"
	"shortreel/internal/testsupport"
)

func TestBuildStagesWiresEveryHandler(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	set := buildStages(cfg, logging.NewNop())
	handlers := map[string]stage.Handler{
		"script":  set.Script,
		"gather":  set.Gather,
		"align":   set.Align,
		"compose": set.Compose,
		"publish": set.Publish,
	}
	for name, handler := range handlers {
		if handler == nil {
			t.Fatalf("stage %s not wired", name)
		}
		health := handler.HealthCheck(context.Background())
		if health.Name == "" {
			t.Fatalf("stage %s reports unnamed health", name)
		}
	}
}
