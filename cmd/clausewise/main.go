package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/clausewise/clausewise/internal/ai"
	"github.com/clausewise/clausewise/internal/config"
	"github.com/clausewise/clausewise/internal/db"
	"github.com/clausewise/clausewise/internal/embedcache"
	"github.com/clausewise/clausewise/internal/filestore"
	"github.com/clausewise/clausewise/internal/handler"
	"github.com/clausewise/clausewise/internal/job"
	"github.com/clausewise/clausewise/internal/middleware"
	"github.com/clausewise/clausewise/internal/repo"
	"github.com/clausewise/clausewise/internal/schedule"
	"github.com/clausewise/clausewise/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "clausewise",
		Short: "clausewise backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run clausewise server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := setup(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg, database)
		},
	}

	createTenantCmd := &cobra.Command{
		Use:   "create-tenant <name>",
		Short: "create a tenant and print its api key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := setup(configPath)
			if err != nil {
				return err
			}
			defer database.Close()
			authService := service.NewAuthService(
				repo.NewTenantRepo(database),
				[]byte(cfg.JWTSecret),
				time.Hour*time.Duration(cfg.JWTTTLHours),
			)
			tenant, apiKey, err := authService.CreateTenant(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("tenant_id: %s\napi_key: %s\n", tenant.ID, apiKey)
			return nil
		},
	}

	var seedPath string
	seedAnchorsCmd := &cobra.Command{
		Use:   "seed-anchors",
		Short: "embed and upsert anchor clauses from a json seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if seedPath == "" {
				return fmt.Errorf("--seeds is required")
			}
			cfg, database, err := setup(configPath)
			if err != nil {
				return err
			}
			defer database.Close()
			embedder, err := buildEmbedder(cfg, database)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(seedPath)
			if err != nil {
				return fmt.Errorf("read seeds: %w", err)
			}
			var seeds []service.AnchorSeed
			if err := json.Unmarshal(data, &seeds); err != nil {
				return fmt.Errorf("decode seeds: %w", err)
			}
			anchorService := service.NewAnchorService(
				repo.NewAnchorRepo(database, cfg.AI.EmbeddingDim),
				embedder,
			)
			count, err := anchorService.SeedAnchors(cmd.Context(), seeds)
			if err != nil {
				return err
			}
			fmt.Printf("seeded %d anchors\n", count)
			return nil
		},
	}
	seedAnchorsCmd.Flags().StringVar(&seedPath, "seeds", "", "path to anchor seed json")

	for _, cmd := range []*cobra.Command{runCmd, createTenantCmd, seedAnchorsCmd} {
		cmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
		rootCmd.AddCommand(cmd)
	}

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	database, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(database); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, database, nil
}

// buildEmbedder assembles the embedding path: provider, then the DB
// cache, then the in-process LRU in front of it.
func buildEmbedder(cfg *config.Config, database *sql.DB) (*ai.Manager, error) {
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Embedder.Provider, cfg.AI.Embedder.Data)
	if err != nil {
		return nil, fmt.Errorf("init embed provider: %w", err)
	}
	var gen ai.IGenerator
	if cfg.AI.Generator.Provider != "" {
		genProvider, err := ai.NewProvider(cfg.AI.Generator.Provider, cfg.AI.Generator.Data)
		if err != nil {
			return nil, fmt.Errorf("init generator provider: %w", err)
		}
		gen = ai.NewGenerator(genProvider, cfg.AI.Generator.Model)
	}

	embedder := ai.NewEmbedder(embedProvider, cfg.AI.Embedder.Model)
	cached := embedcache.WrapDBCacheToEmbedder(embedder, repo.NewEmbeddingCacheRepo(database))
	cached = embedcache.WrapLruCacheToEmbedder(cached, cfg.AI.CacheSize, time.Duration(cfg.AI.CacheTTLHours)*time.Hour)

	return ai.NewManager(gen, cached, ai.ManagerConfig{
		Timeout:       cfg.AI.Timeout,
		MaxInputChars: cfg.AI.MaxInputChars,
		EmbeddingDim:  cfg.AI.EmbeddingDim,
	}), nil
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("embedder", cfg.AI.Embedder.Provider),
	)
	defer database.Close()

	tenantRepo := repo.NewTenantRepo(database)
	documentRepo := repo.NewDocumentRepo(database)
	chunkRepo := repo.NewChunkRepo(database, cfg.AI.EmbeddingDim)
	anchorRepo := repo.NewAnchorRepo(database, cfg.AI.EmbeddingDim)
	cacheRepo := repo.NewEmbeddingCacheRepo(database)
	draftRepo := repo.NewDraftTaskRepo(database)

	manager, err := buildEmbedder(cfg, database)
	if err != nil {
		return err
	}
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	retrievalService := service.NewRetrievalService(manager, chunkRepo, anchorRepo, service.RetrievalConfig{
		CandidateLimit: cfg.Retrieval.CandidateLimit,
		ExcerptChars:   cfg.Retrieval.ExcerptChars,
	})
	suggestService := service.NewSuggestService(retrievalService, manager)
	draftService := service.NewDraftService(draftRepo, retrievalService, manager, cfg.Retrieval.DraftMinSimilarity)
	ingestService := service.NewIngestService(documentRepo, chunkRepo, store, manager)
	authService := service.NewAuthService(tenantRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Documents: handler.NewDocumentHandler(ingestService),
		Retrieval: handler.NewRetrievalHandler(retrievalService, suggestService),
		Drafts:    handler.NewDraftHandler(draftService),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingBackfillJob(ingestService, 32), "* * * * *"); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewDraftGenerationJob(draftService), "* * * * *"); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, 30), "0 4 * * *"); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
