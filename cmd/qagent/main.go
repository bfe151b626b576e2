// Command qagent generates QA test cases and Selenium scripts from product
// documentation and page markup.
//
// Usage:
//
//	qagent cases "<feature>" --docs ./docs [--page page.html] [-n 5] [--json]
//	qagent script --docs ./docs --page page.html --query "<feature>" [--id TC-001]
//	qagent kb build --collection <name> --docs ./docs
//	qagent serve [--port 8080] [--watch ./docs]
//	qagent settings [show|get|set|keys|llm|embedding]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/custodia-labs/qagent/internal/adapters/driven/ai"
	"github.com/custodia-labs/qagent/internal/adapters/driven/config/file"
	"github.com/custodia-labs/qagent/internal/adapters/driven/page/chromedp"
	"github.com/custodia-labs/qagent/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/qagent/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/qagent/internal/adapters/driving/cli"
	"github.com/custodia-labs/qagent/internal/connectors/filesystem"
	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/core/services"
	"github.com/custodia-labs/qagent/internal/logger"
	"github.com/custodia-labs/qagent/internal/markup"
	"github.com/custodia-labs/qagent/internal/normalisers"
	"github.com/custodia-labs/qagent/internal/postprocessors"
)

// Set by ldflags at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := services.ApplyEnv(settings); err != nil {
		return err
	}
	if err := services.ValidateSettings(settings); err != nil {
		logger.Warn("invalid settings, using defaults where needed: %v", err)
	}

	aiServices := ai.Init(ctx, settings)
	defer aiServices.Close()
	for _, w := range aiServices.Warnings {
		logger.Debug("%s", w)
	}

	newIndex, collections, closeIndex, err := indexFactory(settings.Index)
	if err != nil {
		return err
	}
	defer closeIndex()

	embedder := aiServices.EmbeddingService
	knowledgeFactory := func(sessionID string) (*services.KnowledgeStore, error) {
		pipeline, err := postprocessors.FromSettings(settings.Chunking)
		if err != nil {
			return nil, err
		}
		return services.NewKnowledgeStore(pipeline, embedder, newIndex(sessionID),
			services.WithEmbedConcurrency(settings.Embedding.Concurrency),
			services.WithRateLimit(settings.Embedding.RequestsPerSecond),
		), nil
	}

	registry := normalisers.Default()
	sessions := services.NewSessionManager(knowledgeFactory, registry)
	defer sessions.CloseAll() //nolint:errcheck

	promptStore, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("failed to open prompts: %w", err)
	}
	prompts := services.NewPromptBuilder(promptStore, settings.Retrieval)
	gateway := services.NewGateway(aiServices.LLMService, services.WithTimeout(settings.LLM.Timeout))
	genOpts := driven.GenerateOptions{
		MaxTokens:   settings.LLM.MaxTokens,
		Temperature: settings.LLM.Temperature,
	}

	pages := chromedp.NewFetcher()
	defer pages.Close() //nolint:errcheck

	cfg := &cli.Config{
		Sessions:    sessions,
		TestCases:   services.NewTestCaseGenerator(sessions, prompts, gateway, settings.Retrieval, genOpts),
		Scripts:     services.NewScriptSynthesizer(sessions, markup.Extractor{}, prompts, gateway, settings.Retrieval, genOpts),
		Settings:    settingsService,
		Loader:      filesystem.NewLoader(registry.SupportedExtensions()),
		Pages:       pages,
		Collections: collections,
		Persistent:  collections != nil,
	}
	cli.SetConfig(cfg)
	cli.SetVersion(version)

	return cli.Execute(ctx)
}

// indexFactory returns a constructor for per-session chunk indexes on the
// configured backend, the backend's collection store (nil for memory) and a
// func that releases the backend.
//
// Only named collections are written to SQLite. Anonymous sessions, whose
// IDs are UUIDs, always get an in-memory index so one-off runs leave no rows
// behind.
func indexFactory(settings domain.IndexSettings) (func(sessionID string) driven.ChunkIndex, driven.CollectionStore, func(), error) {
	inMemory := func(string) driven.ChunkIndex { return memory.NewChunkIndex() }
	if settings.Backend != domain.IndexBackendSQLite {
		return inMemory, nil, func() {}, nil
	}

	store, err := sqlite.NewStore(settings.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open index: %w", err)
	}
	logger.Debug("index: %s", store.Path())

	newIndex := func(sessionID string) driven.ChunkIndex {
		if _, err := uuid.Parse(sessionID); err == nil {
			return inMemory(sessionID)
		}
		return store.ChunkIndex(sessionID)
	}
	closeFn := func() {
		store.Close() //nolint:errcheck
	}
	return newIndex, store, closeFn, nil
}
