package insight

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/seadrift/dive-insights/internal/infra/llm/chatgpt"
	apperrors "github.com/seadrift/dive-insights/pkg/errors"
	"github.com/seadrift/dive-insights/pkg/metrics"
	"github.com/seadrift/dive-insights/pkg/util"
)

// Service exposes the dive insight generation pipeline.
type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// ChatClient is the text-completion backend contract.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

type service struct {
	cfg       Config
	client    ChatClient
	baselines *BaselineFetcher
	cache     *InsightCache
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires up the insight orchestrator.
func NewService(cfg Config, client ChatClient, baselines *BaselineFetcher, cache *InsightCache, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg,
		client:    client,
		baselines: baselines,
		cache:     cache,
		logger:    logger.With("component", "insight.service"),
		now:       util.NowUTC,
	}
}

func (s *service) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return GenerateResponse{}, apperrors.Wrap("invalid_input", "user id is required", nil)
	}

	diveCtx, err := NormalizeDiveContext(req.Dive)
	if err != nil {
		return GenerateResponse{}, apperrors.Wrap("invalid_input", err.Error(), nil)
	}
	profile := NormalizeDiverProfile(req.Profile)
	locationKey := DeriveLocationKey(req.Dive.LocationID, diveCtx.Location)

	bundle := s.baselines.FetchBaselines(ctx, BaselineQuery{
		UserID:      req.UserID,
		LocationKey: locationKey,
		Now:         s.now().UTC(),
	})

	diveMetrics := ComputeDiveMetrics(diveCtx, profile, bundle)
	signals := ExtractSignals(diveCtx, profile, diveMetrics, bundle)
	system, user := BuildDiveInsightPrompt(PromptInput{
		Context:   diveCtx,
		Profile:   profile,
		Metrics:   diveMetrics,
		Signals:   signals,
		Baselines: bundle,
	})

	inputHash := BuildInputHash(hashInput{
		Context:       diveCtx,
		Profile:       profile,
		Metrics:       diveMetrics,
		Signals:       signals,
		Baselines:     bundle,
		PromptVersion: PromptVersion,
		Model:         s.cfg.Model,
	})

	// The recap fallback exists before any network call so every later
	// failure mode has safe text to reach for.
	recap := BuildDeterministicRecap(diveCtx)

	if !req.Regenerate {
		if stored, hit := s.cache.Read(ctx, req.UserID, diveCtx.ID, inputHash); hit {
			s.logger.Info("insight cache hit", "diveId", diveCtx.ID)
			return GenerateResponse{
				Summary: flattenInsight(stored.Insight),
				Insight: stored.Insight,
				Meta: Meta{
					Cached:        true,
					Model:         stored.Model,
					PromptVersion: stored.PromptVersion,
					GeneratedAt:   stored.GeneratedAt,
				},
			}, nil
		}
	}

	completion, err := s.requestCompletion(ctx, system, user)
	if err != nil {
		return GenerateResponse{}, apperrors.Wrap("llm_error", "chatgpt request failed", err)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return GenerateResponse{}, apperrors.Wrap("llm_error", "chatgpt returned no content", nil)
	}

	content := completion.Choices[0].Message.Content
	parsed, parseErr := parseInsightContent(content)
	if parseErr != nil {
		s.logger.Warn("insight content unusable, using deterministic fallback", "error", parseErr)
		parsed = buildFallbackInsight(recap, signals, bundle)
	}
	final := enforceDiveInsightPolicy(parsed, recap, diveCtx, bundle, signals)

	generatedAt := s.now().UTC().Format(time.RFC3339)
	stored := StoredDiveInsight{
		PromptVersion: PromptVersion,
		Model:         s.cfg.Model,
		InputHash:     inputHash,
		GeneratedAt:   generatedAt,
		Insight:       final,
		Metrics:       diveMetrics,
		Signals:       signals,
		Baselines:     bundle,
	}
	s.cache.Write(ctx, req.UserID, diveCtx.ID, stored)

	return GenerateResponse{
		Summary: flattenInsight(final),
		Insight: final,
		Meta: Meta{
			Cached:        false,
			Model:         s.cfg.Model,
			PromptVersion: PromptVersion,
			GeneratedAt:   generatedAt,
		},
		TokenUsage: s.tokenUsage(completion, system, user),
	}, nil
}

// requestCompletion bounds the backend call with the configured deadline; a
// timeout surfaces on the fatal path, same as the backend returning nothing.
func (s *service) requestCompletion(ctx context.Context, system, user string) (chatgpt.ChatCompletionResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	seed := s.cfg.Seed
	return s.client.CreateChatCompletion(callCtx, chatgpt.ChatCompletionRequest{
		Model:          s.cfg.Model,
		Messages:       []chatgpt.Message{{Role: "system", Content: system}, {Role: "user", Content: user}},
		Temperature:    s.cfg.Temperature,
		MaxTokens:      s.cfg.MaxTokens,
		Seed:           &seed,
		ResponseFormat: &chatgpt.ResponseFormat{Type: "json_object"},
	})
}

func (s *service) tokenUsage(completion chatgpt.ChatCompletionResponse, system, user string) *metrics.TokenUsage {
	usage := metrics.TokenUsage{
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		TotalTokens:      completion.Usage.TotalTokens,
	}
	if usage.IsZero() {
		estimated := EstimatePromptTokens(s.cfg.Model, system, user)
		usage = metrics.TokenUsage{PromptTokens: estimated, TotalTokens: estimated}
	}
	return &usage
}

func flattenInsight(in DiveInsight) string {
	if strings.TrimSpace(in.DiveInsight.Text) == "" || in.DiveInsight.Text == in.Recap {
		return in.Recap
	}
	return strings.TrimSpace(in.Recap + " " + in.DiveInsight.Text)
}
