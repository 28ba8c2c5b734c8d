//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/seadrift/dive-insights/internal/bootstrap"
	"github.com/seadrift/dive-insights/internal/domain/insight"
	"github.com/seadrift/dive-insights/internal/infra/config"
	"github.com/seadrift/dive-insights/internal/infra/llm/chatgpt"
	httpiface "github.com/seadrift/dive-insights/internal/interface/http"
	"github.com/seadrift/dive-insights/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideInsightConfig,
		provideChatGPTClient,
		provideDiveRepository,
		provideKVStore,
		provideBaselineFetcher,
		provideInsightCache,
		provideRateLimiter,
		providePhotoSigner,
		provideExportService,
		provideGeocodeClient,
		provideVerifier,
		insight.NewService,
		wire.Bind(new(insight.ChatClient), new(*chatgpt.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
