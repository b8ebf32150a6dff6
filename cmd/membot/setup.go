package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sandevgo/membot/internal/config"
	"github.com/sandevgo/membot/internal/core"
	"github.com/sandevgo/membot/internal/providers/llm"
	"github.com/sandevgo/membot/internal/service/agent"
	"github.com/sandevgo/membot/internal/service/memory"
	"github.com/sandevgo/membot/internal/service/session"
	"github.com/sandevgo/membot/internal/storage/sqlite"
	"github.com/sandevgo/membot/internal/tokens"
	"github.com/sandevgo/membot/internal/transport/cli"
	"github.com/sandevgo/membot/pkg/log"
	"github.com/sandevgo/membot/pkg/srv"
)

// App holds the wired application: background services plus the interactive
// transport that runs in the foreground.
type App struct {
	Services []srv.Service
	CLI      *cli.ReadLine

	Knowledge *sqlite.KnowledgeStore
	Sessions  *session.Manager
	Indexer   *memory.Indexer
}

func NewApp(ctx context.Context) *App {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	ctxCfg := config.NewContextConfig(ctx)

	// 2. Storage
	knowledge := sqlite.NewKnowledgeStore(appCfg.GetKnowledgePath())
	if err := knowledge.Open(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to open knowledge store")
	}
	services = append(services, srv.NewCleanup(knowledge.Close))

	sessionStore := sqlite.NewSessionStore(appCfg.GetSessionsPath())
	if err := sessionStore.Open(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to open session store")
	}
	services = append(services, srv.NewCleanup(sessionStore.Close))

	sessions, err := session.NewManager(ctx, sessionStore)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load sessions")
	}

	// 3. AI Provider
	aiProvider, err := llm.NewProvider(ctx, appCfg.LLMProvider)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}

	// 4. Token counter and context builder
	counter, err := tokens.NewCounter(ctxCfg.TokenizerModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token counter")
	}
	builder := memory.NewBuilder(knowledge, counter)

	// 5. Memory extraction
	recorder := memory.NewRecorder(knowledge, memory.KeywordStrategy())

	// 6. Agent Service
	engine := agent.NewEngine(sessions, builder, recorder, aiProvider, core.ContextConfig{
		MaxTokens:        ctxCfg.MaxTokens,
		SystemPrompt:     loadSystemPrompt(ctx, appCfg),
		MemoryMaxResults: ctxCfg.MemoryMaxResults,
		MemoryMinScore:   ctxCfg.MemoryMinScore,
	})

	app := &App{
		Services:  services,
		Knowledge: knowledge,
		Sessions:  sessions,
		Indexer:   memory.NewIndexer(knowledge),
	}

	// 7. Transport
	if appCfg.EnableCLI {
		transport, err := cli.NewReadLine(engine, appCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize CLI transport")
		}
		app.CLI = transport
	}

	return app
}

func loadSystemPrompt(ctx context.Context, cfg *config.AppConfig) string {
	data, err := os.ReadFile(cfg.GetSystemPromptPath())
	if err != nil {
		if !os.IsNotExist(err) {
			log.FromCtx(ctx).Warn().Err(err).Msg("failed to read system prompt")
		}
		return "You are a helpful assistant with access to stored knowledge."
	}
	return strings.TrimSpace(string(data))
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
