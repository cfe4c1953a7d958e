package gather_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shortreel/internal/footage"
	"shortreel/internal/gather"
	"shortreel/internal/logging"
	"shortreel/internal/queue"
	"shortreel/internal/script"
	"shortreel/internal/services"
	"shortreel/internal/speech"
	"shortreel/internal/testsupport"
	"shortreel/internal/workspace"
)

type fakeAcquirer struct {
	assets []footage.Asset
	err    error
	req    footage.Request
	block  bool
}

func (f *fakeAcquirer) Acquire(ctx context.Context, ws *workspace.Workspace, req footage.Request) ([]footage.Asset, error) {
	f.req = req
	if f.block {
		<-ctx.Done()
		return nil, services.Wrap(services.ErrCancelled, "acquiring", "download", "cancelled during footage download", ctx.Err())
	}
	return f.assets, f.err
}

type fakeSpeech struct {
	narration speech.Narration
	err       error
	voice     string
}

func (f *fakeSpeech) Synthesize(ctx context.Context, ws *workspace.Workspace, sentences []string, voice string) (speech.Narration, error) {
	f.voice = voice
	return f.narration, f.err
}

func scriptedItem(t *testing.T) *queue.Item {
	t.Helper()
	encoded, err := script.Script{
		Sentences:   []string{"The ocean hides wonders.", "Creatures glow below."},
		SearchTerms: []string{"deep ocean", "glowing jellyfish"},
	}.Encode()
	if err != nil {
		t.Fatalf("encode script: %v", err)
	}
	return &queue.Item{
		ID:         1,
		Topic:      "the deep ocean",
		Voice:      "en_us_001",
		ScriptJSON: encoded,
	}
}

func sampleAssets() []footage.Asset {
	return []footage.Asset{
		{SourceID: 1, Path: "/tmp/clip-000.mp4", Width: 1080, Height: 1920, Duration: 10},
		{SourceID: 2, Path: "/tmp/clip-001.mp4", Width: 1080, Height: 1920, Duration: 10},
	}
}

func sampleSpeech() speech.Narration {
	return speech.Narration{
		Segments: []speech.Segment{
			{Index: 0, Sentence: "The ocean hides wonders.", Path: "/tmp/a.mp3", Duration: 2},
			{Index: 1, Sentence: "Creatures glow below.", Path: "/tmp/b.mp3", Duration: 2},
		},
		TrackPath: "/tmp/narration.mp3",
		Duration:  4,
	}
}

func TestPrepareCreatesWorkspace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := gather.NewStage(cfg, logging.NewNop(),
		gather.WithAcquirer(&fakeAcquirer{}),
		gather.WithSpeechSynthesizer(&fakeSpeech{}),
	)
	item := scriptedItem(t)
	if err := st.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if item.WorkspacePath == "" {
		t.Fatal("expected workspace to be created")
	}
	if item.DownloadThreads != cfg.Pipeline.DownloadThreads {
		t.Fatalf("expected default download threads, got %d", item.DownloadThreads)
	}
}

func TestExecutePersistsBothLanes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	acquirer := &fakeAcquirer{assets: sampleAssets()}
	speechLane := &fakeSpeech{narration: sampleSpeech()}
	st := gather.NewStage(cfg, logging.NewNop(),
		gather.WithAcquirer(acquirer),
		gather.WithSpeechSynthesizer(speechLane),
	)

	item := scriptedItem(t)
	if err := st.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := st.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	assets, err := footage.Decode(item.AssetsJSON)
	if err != nil {
		t.Fatalf("Decode assets: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets persisted, got %d", len(assets))
	}
	narration, err := speech.Decode(item.NarrationJSON)
	if err != nil {
		t.Fatalf("Decode narration: %v", err)
	}
	if narration.Duration != 4 {
		t.Fatalf("expected narration duration persisted, got %v", narration.Duration)
	}
	if speechLane.voice != "en_us_001" {
		t.Fatalf("expected job voice passed through, got %q", speechLane.voice)
	}
	if len(acquirer.req.ExpansionTerms) == 0 {
		t.Fatal("expected expansion terms derived from topic")
	}
	if acquirer.req.Threads != cfg.Pipeline.DownloadThreads {
		t.Fatalf("expected pool width from defaults, got %d", acquirer.req.Threads)
	}
}

func TestExecuteToleratesFootageShortfall(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	acquirer := &fakeAcquirer{
		assets: sampleAssets()[:1],
		err:    services.Wrap(services.ErrDurationShortfall, "acquiring", "acquire", "accepted 10.0s of footage, need 30.0s", nil),
	}
	st := gather.NewStage(cfg, logging.NewNop(),
		gather.WithAcquirer(acquirer),
		gather.WithSpeechSynthesizer(&fakeSpeech{narration: sampleSpeech()}),
	)

	item := scriptedItem(t)
	if err := st.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := st.Execute(context.Background(), item); err != nil {
		t.Fatalf("expected shortfall tolerated, got %v", err)
	}
	assets, err := footage.Decode(item.AssetsJSON)
	if err != nil {
		t.Fatalf("Decode assets: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("expected partial pool persisted, got %d assets", len(assets))
	}
}

func TestExecuteSpeechFailureCancelsFootage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	acquirer := &fakeAcquirer{block: true}
	speechLane := &fakeSpeech{
		err: services.Wrap(services.ErrUpstreamUnavailable, "synthesizing", "synthesize", "speech backend failed on sentence 1", errors.New("503")),
	}
	st := gather.NewStage(cfg, logging.NewNop(),
		gather.WithAcquirer(acquirer),
		gather.WithSpeechSynthesizer(speechLane),
	)

	item := scriptedItem(t)
	if err := st.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := st.Execute(ctx, item)
	if !errors.Is(err, services.ErrUpstreamUnavailable) {
		t.Fatalf("expected speech failure surfaced, got %v", err)
	}
	if details := services.Details(err); details.Stage != "synthesizing" {
		t.Fatalf("expected synthesizing stage, got %q", details.Stage)
	}
}

func TestExecuteRequiresScript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := gather.NewStage(cfg, logging.NewNop(),
		gather.WithAcquirer(&fakeAcquirer{}),
		gather.WithSpeechSynthesizer(&fakeSpeech{}),
	)
	item := &queue.Item{ID: 2, Topic: "volcanoes"}
	if err := st.Prepare(context.Background(), item); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
