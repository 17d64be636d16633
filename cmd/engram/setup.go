package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sandevgo/engram/internal/config"
	"github.com/sandevgo/engram/internal/providers/llm"
	"github.com/sandevgo/engram/internal/service/category"
	"github.com/sandevgo/engram/internal/service/consolidate"
	"github.com/sandevgo/engram/internal/service/dispatch"
	"github.com/sandevgo/engram/internal/service/extract"
	"github.com/sandevgo/engram/internal/storage/sqlite"
	"github.com/sandevgo/engram/internal/transport/cli"
	"github.com/sandevgo/engram/pkg/log"
	"github.com/sandevgo/engram/pkg/srv"
)

// Dependencies is the wired object graph shared by the long-running session
// and the one-shot commands.
type Dependencies struct {
	AppCfg       *config.AppConfig
	Messages     *sqlite.MessagesRepo
	Dispatcher   *dispatch.Dispatcher
	Consolidator *consolidate.Coordinator

	db *sql.DB
}

func NewDependencies(ctx context.Context) *Dependencies {
	logger := log.FromCtx(ctx)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	providerCfg := config.NewProviderConfig(ctx)
	consolidationCfg := config.NewConsolidationConfig(ctx)

	// 2. Storage
	if err := os.MkdirAll(appCfg.GetRuntimePath(), 0755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create runtime directory")
	}
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	messagesRepo := sqlite.NewMessagesRepo(db)
	memoriesRepo := sqlite.NewMemoriesRepo(db)
	edgesRepo := sqlite.NewEdgesRepo(db)
	beliefsRepo := sqlite.NewBeliefsRepo(db)
	commitmentsRepo := sqlite.NewCommitmentsRepo(db)
	remindersRepo := sqlite.NewRemindersRepo(db)
	notesRepo := sqlite.NewNotesRepo(db)
	listsRepo := sqlite.NewListsRepo(db)
	identityRepo := sqlite.NewIdentityRepo(db)
	categoriesRepo := sqlite.NewCategoriesRepo(db)
	insightsRepo := sqlite.NewInsightsRepo(db)
	entitiesRepo := sqlite.NewEntitiesRepo(db)

	// 3. AI Provider and Embedder
	aiProvider, err := llm.NewProvider(ctx, appCfg, providerCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}
	embedder, err := llm.NewEmbedder(ctx, appCfg, providerCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize embedder")
	}

	// 4. Engine services
	categoryService := category.NewService(aiProvider, categoriesRepo)
	beliefDeriver := consolidate.NewDeriver(aiProvider, beliefsRepo)

	dispatcher := dispatch.NewDispatcher(
		aiProvider,
		identityRepo,
		memoriesRepo,
		categoryService,
		remindersRepo,
		notesRepo,
		listsRepo,
		commitmentsRepo,
		entitiesRepo,
		consolidationCfg,
	)

	extractor, err := extract.NewCoordinator(
		aiProvider,
		embedder,
		messagesRepo,
		memoriesRepo,
		categoryService,
		beliefDeriver,
		commitmentsRepo,
		remindersRepo,
		identityRepo,
		appCfg.TranscriptTokenBudget,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize batch extractor")
	}

	consolidator := consolidate.NewCoordinator(
		aiProvider,
		extractor,
		memoriesRepo,
		edgesRepo,
		beliefsRepo,
		categoriesRepo,
		insightsRepo,
		category.Categories,
		appCfg.CronSchedule,
		consolidationCfg,
	)

	return &Dependencies{
		AppCfg:       appCfg,
		Messages:     messagesRepo,
		Dispatcher:   dispatcher,
		Consolidator: consolidator,
		db:           db,
	}
}

func (d *Dependencies) Close(ctx context.Context) {
	if err := d.db.Close(); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to close database")
	}
}

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)

	deps := NewDependencies(ctx)

	services := make([]srv.Service, 0)
	services = append(services, srv.NewCleanup(deps.db.Close))
	services = append(services, deps.Consolidator)

	repl, err := cli.NewReadLine(deps.Messages, deps.Dispatcher, deps.Consolidator, deps.AppCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize CLI transport")
	}
	services = append(services, repl)

	return services
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
