package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/internal/queue"
	"shortreel/internal/services"
	"shortreel/internal/services/llm"
	"shortreel/internal/stage"
)

const stageName = "scripting"

// Completer is the slice of the LLM client the synthesizer needs.
type Completer interface {
	CompleteJSONWithModel(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Synthesizer turns a job topic into a narration script plus search terms.
type Synthesizer struct {
	cfg       *config.Config
	completer Completer
	logger    *slog.Logger
}

// NewSynthesizer constructs the scripting stage handler.
func NewSynthesizer(cfg *config.Config, logger *slog.Logger) *Synthesizer {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	return NewSynthesizerWithCompleter(cfg, logger, client)
}

// NewSynthesizerWithCompleter injects the completion backend (tests).
func NewSynthesizerWithCompleter(cfg *config.Config, logger *slog.Logger, completer Completer) *Synthesizer {
	return &Synthesizer{
		cfg:       cfg,
		completer: completer,
		logger:    logging.NewComponentLogger(logger, "script-synthesizer"),
	}
}

// SetLogger replaces the stage logger.
func (s *Synthesizer) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "script-synthesizer")
}

// Prepare validates job inputs and fills generation defaults.
func (s *Synthesizer) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.Topic) == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "job topic is empty", nil)
	}
	if item.ParagraphCount <= 0 {
		item.ParagraphCount = s.cfg.Pipeline.ParagraphCount
	}
	item.InitProgress("Scripting", "Generating narration script")
	return nil
}

// Execute calls the text-generation backend and persists the parsed script on
// the item.
func (s *Synthesizer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)
	termCount := s.cfg.Pipeline.SearchTermCount

	user := generationUserPrompt(item.Topic, item.ExtraPrompt, item.ParagraphCount, termCount)
	content, err := s.completer.CompleteJSONWithModel(ctx, item.Model, generationSystemPrompt, user)
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrCancelled, stageName, "generate", "cancelled during script generation", ctx.Err())
		}
		return services.Wrap(services.ErrUpstreamUnavailable, stageName, "generate", "text generation backend failed", err)
	}

	generated, err := parseGeneration(content, item.Topic, termCount)
	if err != nil {
		return services.Wrap(services.ErrMalformedResponse, stageName, "parse", "backend returned unusable script", err)
	}

	encoded, err := generated.Encode()
	if err != nil {
		return services.Wrap(services.ErrMalformedResponse, stageName, "encode", "script serialization failed", err)
	}
	item.ScriptJSON = encoded
	item.SetProgressComplete("Scripted", "Narration script ready")

	logger.Info("script generated",
		logging.Int("sentences", len(generated.Sentences)),
		logging.Int("search_terms", len(generated.SearchTerms)),
		logging.String(logging.FieldEventType, "script_generated"),
	)
	return nil
}

// HealthCheck verifies the text-generation backend is reachable.
func (s *Synthesizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "script-synthesizer"
	if strings.TrimSpace(s.cfg.LLM.APIKey) == "" {
		return stage.Unhealthy(name, "llm api key not configured")
	}
	if err := s.completer.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

type generationPayload struct {
	Script      string   `json:"script"`
	SearchTerms []string `json:"search_terms"`
}

func parseGeneration(content, topic string, termCount int) (Script, error) {
	var payload generationPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return Script{}, err
	}

	narration := CleanNarration(payload.Script)
	sentences := SplitSentences(narration)
	if len(sentences) == 0 {
		return Script{}, fmt.Errorf("no sentences in generated script")
	}

	terms := normalizeTerms(payload.SearchTerms)
	if len(terms) < termCount {
		for _, fallback := range FallbackSearchTerms(topic) {
			if len(terms) >= termCount {
				break
			}
			if !containsFold(terms, fallback) {
				terms = append(terms, fallback)
			}
		}
	}
	if len(terms) > termCount {
		terms = terms[:termCount]
	}

	return Script{Sentences: sentences, SearchTerms: terms}, nil
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.Join(strings.Fields(term), " ")
		if term == "" || containsFold(out, term) {
			continue
		}
		// Overlong phrases make poor stock search queries.
		if words := strings.Fields(term); len(words) > 5 {
			term = strings.Join(words[:5], " ")
		}
		out = append(out, term)
	}
	return out
}

func containsFold(list []string, candidate string) bool {
	for _, entry := range list {
		if strings.EqualFold(entry, candidate) {
			return true
		}
	}
	return false
}
