package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vortex-hue/forgeai/internal/config"
	"github.com/vortex-hue/forgeai/internal/database"
	"github.com/vortex-hue/forgeai/internal/llm"
	"github.com/vortex-hue/forgeai/internal/repository"
	"github.com/vortex-hue/forgeai/internal/service"
	"github.com/vortex-hue/forgeai/internal/storage"
	"github.com/vortex-hue/forgeai/internal/vectorstore"
)

// app bundles the wired services every command needs. Commands stay thin:
// parse flags, call a service, print.
type app struct {
	cfg  *config.Config
	pool *pgxpool.Pool

	kbRepo    *repository.KnowledgeBaseRepository
	docRepo   *repository.DocumentRepository
	chunkRepo *repository.DocumentChunkRepository
	agentRepo *repository.AgentConfigRepository
	taskRepo  *repository.AgentTaskRepository
	logRepo   *repository.AgentTaskLogRepository

	llmClient *llm.Client
	stores    *vectorstore.Factory
	s3        *storage.S3Client

	kbSvc     *service.KnowledgeBaseService
	docSvc    *service.DocumentService
	searchSvc *service.SearchService
	taskSvc   *service.TaskService
	ingestSvc *service.IngestionService
}

// newApp loads config, connects the database and wires the service graph.
// The caller owns the returned app and must call close.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &app{
		cfg:  cfg,
		pool: pool,

		kbRepo:    repository.NewKnowledgeBaseRepository(pool),
		docRepo:   repository.NewDocumentRepository(pool),
		chunkRepo: repository.NewDocumentChunkRepository(pool),
		agentRepo: repository.NewAgentConfigRepository(pool),
		taskRepo:  repository.NewAgentTaskRepository(pool),
		logRepo:   repository.NewAgentTaskLogRepository(pool),
	}

	a.llmClient = llm.NewClient(llm.Config{
		APIKey:              cfg.OpenAIAPIKey,
		ChatModel:           cfg.ChatModel,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		MaxTokens:           cfg.MaxTokens,
		ModerationKeywords:  cfg.ModerationKeywordSet(),
	})

	a.stores = vectorstore.NewFactory(vectorstore.Config{
		SQLitePath:     cfg.VectorDBPath,
		MilvusAddress:  cfg.MilvusAddress,
		MilvusUsername: cfg.MilvusUsername,
		MilvusPassword: cfg.MilvusPassword,
		Pool:           pool,
		Dimensions:     a.llmClient.Dimensions(),
	})

	a.kbSvc = service.NewKnowledgeBaseService(a.kbRepo)
	a.docSvc = service.NewDocumentService(a.docRepo, a.kbRepo, a.stores)
	a.searchSvc = service.NewSearchService(a.kbRepo, a.llmClient, a.llmClient, a.stores, cfg.TopK)
	a.taskSvc = service.NewTaskService(a.agentRepo, a.taskRepo, a.logRepo)

	a.ingestSvc = service.NewIngestionService(
		a.docRepo, a.chunkRepo, a.kbRepo, a.llmClient, a.stores,
		service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
	).WithTxRunner(repository.NewTxRunner(pool))

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		a.s3 = s3Client
		a.ingestSvc.WithObjectStorage(s3Client)
	}

	return a, nil
}

func (a *app) close() {
	a.pool.Close()
}

// withApp wires the app for one command invocation.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}
