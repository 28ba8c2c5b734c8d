// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package main

import (
	"github.com/seadrift/dive-insights/internal/bootstrap"
	"github.com/seadrift/dive-insights/internal/domain/insight"
	"github.com/seadrift/dive-insights/internal/infra/config"
	"github.com/seadrift/dive-insights/internal/interface/http"
	"github.com/seadrift/dive-insights/pkg/logger"
)

// Injectors from wire.go:

func initializeApp() (*bootstrap.App, error) {
	configConfig, err := config.Load()
	if err != nil {
		return nil, err
	}
	slogLogger := logger.New()
	insightConfig := provideInsightConfig(configConfig)
	client, err := provideChatGPTClient(configConfig)
	if err != nil {
		return nil, err
	}
	mainDiveRepository := provideDiveRepository(configConfig, slogLogger)
	baselineFetcher := provideBaselineFetcher(mainDiveRepository, slogLogger)
	kvStore := provideKVStore(configConfig, slogLogger)
	insightCache := provideInsightCache(insightConfig, mainDiveRepository, kvStore, slogLogger)
	service := insight.NewService(insightConfig, client, baselineFetcher, insightCache, slogLogger)
	rateLimiter := provideRateLimiter(insightConfig, mainDiveRepository, slogLogger)
	photoSigner := providePhotoSigner(configConfig, slogLogger)
	exportService := provideExportService(mainDiveRepository, photoSigner, slogLogger)
	geocodeClient := provideGeocodeClient(configConfig)
	handler := http.NewHandler(service, rateLimiter, exportService, geocodeClient, slogLogger)
	verifier, err := provideVerifier(configConfig, slogLogger)
	if err != nil {
		return nil, err
	}
	server := http.NewRouter(configConfig, handler, verifier)
	app := bootstrap.NewApp(configConfig, slogLogger, server)
	return app, nil
}
