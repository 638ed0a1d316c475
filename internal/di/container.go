package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"rubric-orchestrator/internal/adapter/document_text"
	"rubric-orchestrator/internal/adapter/filestore"
	"rubric-orchestrator/internal/adapter/rag_http"
	"rubric-orchestrator/internal/adapter/rag_identity"
	"rubric-orchestrator/internal/adapter/rag_openai"
	"rubric-orchestrator/internal/adapter/rag_rerank"
	"rubric-orchestrator/internal/adapter/rag_search"
	"rubric-orchestrator/internal/adapter/repository"
	"rubric-orchestrator/internal/domain"
	"rubric-orchestrator/internal/infra"
	"rubric-orchestrator/internal/infra/config"
	"rubric-orchestrator/internal/infra/httpclient"
	"rubric-orchestrator/internal/infra/tokenizer"
	"rubric-orchestrator/internal/usecase"
	"rubric-orchestrator/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the server.
type ApplicationComponents struct {
	Handler *rag_http.Handler
	// Worker is nil when no database is configured.
	Worker *worker.JobWorker
	// Pool is nil when no database is configured.
	Pool *pgxpool.Pool
}

// Close releases the database pool.
func (a *ApplicationComponents) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// IngestionComponents is what the prepdocs CLI needs.
type IngestionComponents struct {
	Ingest usecase.IngestDocumentsUsecase
	Pool   *pgxpool.Pool
}

func (i *IngestionComponents) Close() {
	if i.Pool != nil {
		i.Pool.Close()
	}
}

// backend groups the read and write sides of one search backend.
type backend struct {
	search domain.SearchService
	index  domain.SectionIndex
}

type openAIClients struct {
	chat      *rag_openai.ChatClient
	embedding *rag_openai.EmbeddingClient
}

func newOpenAIClients(cfg *config.Config, log *slog.Logger) openAIClients {
	oaiCfg := rag_openai.Config{
		Host:                cfg.OpenAI.Host,
		Endpoint:            cfg.OpenAI.Endpoint(),
		APIKey:              cfg.OpenAI.APIKey,
		APIVersion:          cfg.OpenAI.APIVersion,
		Organization:        cfg.OpenAI.Organization,
		ChatDeployment:      cfg.OpenAI.ChatDeployment,
		ChatModel:           cfg.OpenAI.ChatModel,
		EmbeddingDeployment: cfg.OpenAI.EmbeddingDeployment,
		EmbeddingModel:      cfg.OpenAI.EmbeddingModel,
	}
	httpClient := httpclient.NewPooledClient(time.Duration(cfg.OpenAI.Timeout) * time.Second)

	// Chat and embedding calls share one request budget.
	limiter := rate.NewLimiter(rate.Limit(cfg.OpenAI.RequestsPerSecond), cfg.OpenAI.RequestBurst)

	return openAIClients{
		chat:      rag_openai.NewChatClient(oaiCfg, httpClient, limiter, log),
		embedding: rag_openai.NewEmbeddingClient(oaiCfg, httpClient, limiter, log),
	}
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if !cfg.DB.Enabled() {
		return nil, nil
	}
	pool, err := infra.NewPostgresDB(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

func newBackend(cfg *config.Config, name string, pool *pgxpool.Pool, log *slog.Logger) (backend, error) {
	switch name {
	case config.SearchBackendAzure:
		searchCfg := rag_search.Config{
			Endpoint:            cfg.Search.URL(),
			Index:               cfg.Search.Index,
			APIKey:              cfg.Search.APIKey,
			APIVersion:          cfg.Search.APIVersion,
			SourcePageField:     cfg.Search.SourcePageField,
			ContentField:        cfg.Search.ContentField,
			AnalyzerName:        cfg.Search.AnalyzerName,
			EmbeddingDimensions: cfg.Search.EmbeddingDimensions,
		}
		client := httpclient.NewPooledClient(time.Duration(cfg.Search.Timeout) * time.Second)
		return backend{
			search: rag_search.NewSearchClient(searchCfg, client, log),
			index:  rag_search.NewIndexClient(searchCfg, client, log),
		}, nil
	case config.SearchBackendPostgres:
		if pool == nil {
			return backend{}, fmt.Errorf("search backend %q needs DB_HOST", name)
		}
		var reranker domain.Reranker
		if cfg.Rerank.Enabled {
			reranker = rag_rerank.NewCrossEncoderClient(
				cfg.Rerank.URL,
				cfg.Rerank.Model,
				httpclient.NewPooledClient(time.Duration(cfg.Rerank.Timeout)*time.Second),
				log,
			)
			log.Info("reranker_enabled",
				slog.String("url", cfg.Rerank.URL),
				slog.String("model", cfg.Rerank.Model))
		}
		txManager := repository.NewPostgresTransactionManager(pool)
		return backend{
			search: repository.NewSectionSearchRepository(pool, reranker, log),
			index:  repository.NewSectionIndexRepository(pool, txManager, cfg.Search.EmbeddingDimensions, log),
		}, nil
	default:
		return backend{}, fmt.Errorf("unknown search backend %q", name)
	}
}

func newIngestUsecase(b backend, encoder domain.VectorEncoder, content domain.ContentStore, log *slog.Logger) usecase.IngestDocumentsUsecase {
	return usecase.NewIngestDocumentsUsecase(b.index, encoder, document_text.NewExtractor(), domain.NewSectionSplitter(), content, log)
}

// NewApplicationComponents wires all dependencies from config.
func NewApplicationComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ApplicationComponents, error) {
	tokenLimit, err := tokenizer.TokenLimit(cfg.OpenAI.ChatModel)
	if err != nil {
		return nil, err
	}
	counter, err := tokenizer.NewTiktokenCounter(cfg.OpenAI.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	approachCfg := usecase.DefaultApproachConfig()
	approachCfg.TokenLimit = tokenLimit
	approachCfg.RubricConcurrency = cfg.RAG.RubricConcurrency
	approachCfg.CallTimeout = time.Duration(cfg.RAG.UpstreamTimeout) * time.Second
	if err := approachCfg.Validate(); err != nil {
		return nil, fmt.Errorf("approach config: %w", err)
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &ApplicationComponents{Pool: pool}

	b, err := newBackend(cfg, cfg.Search.Backend, pool, log)
	if err != nil {
		app.Close()
		return nil, err
	}

	oai := newOpenAIClients(cfg, log)

	content, err := filestore.NewContentStore(cfg.Server.ContentDir)
	if err != nil {
		app.Close()
		return nil, err
	}

	// Auth
	var identity domain.IdentityProvider
	if cfg.Auth.UseAuthentication {
		identity = rag_identity.NewEntraClient(rag_identity.Config{
			AuthorityHost: cfg.Auth.AuthorityHost,
			TenantID:      cfg.Auth.TenantID,
			ClientID:      cfg.Auth.ServerAppID,
			ClientSecret:  cfg.Auth.ServerAppSecret,
			GraphURL:      cfg.Auth.GraphURL,
		}, httpclient.NewPooledClient(time.Duration(cfg.Auth.Timeout)*time.Second), log)
	}
	claimsResolver := usecase.NewAuthClaimsResolver(usecase.AuthClaimsResolverConfig{
		UseAuthentication:    cfg.Auth.UseAuthentication,
		RequireAccessControl: cfg.Auth.RequireAccessControl,
		RequireLogin:         cfg.Auth.RequireLogin,
		GroupCacheSize:       cfg.Auth.GroupCacheSize,
		GroupCacheTTL:        time.Duration(cfg.Auth.GroupCacheTTL) * time.Second,
	}, identity, log)
	authSetup := usecase.NewAuthSetupProvider(usecase.AuthSetupConfig{
		UseAuthentication:    cfg.Auth.UseAuthentication,
		RequireAccessControl: cfg.Auth.RequireAccessControl,
		ServerAppID:          cfg.Auth.ServerAppID,
		ClientAppID:          cfg.Auth.ClientAppID,
		TenantID:             cfg.Auth.TenantID,
		AuthorityHost:        cfg.Auth.AuthorityHost,
	})

	// Approaches
	retriever := usecase.NewRetrieveDocumentsUsecase(
		b.search,
		oai.embedding,
		usecase.NewSecurityFilterCompiler(cfg.Auth.RequireAccessControl),
		usecase.RetrievalConfig{
			QueryLanguage: cfg.Search.QueryLanguage,
			QuerySpeller:  cfg.Search.QuerySpeller,
			CallTimeout:   approachCfg.CallTimeout,
		},
		log,
	)
	queries := usecase.NewQueryGenerator(oai.chat, counter, approachCfg.QueryGeneratorConfig(), log)
	answers := usecase.NewAnswerGenerator(oai.chat, approachCfg.AnswerGeneratorConfig(), log)

	deps := rag_http.HandlerDeps{
		Chat:      usecase.NewChatUsecase(queries, retriever, oai.chat, counter, approachCfg, log),
		Ask:       usecase.NewAskUsecase(retriever, answers, log),
		Rubric:    usecase.NewRubricEvaluationUsecase(queries, retriever, answers, approachCfg.RubricConcurrency, log),
		Content:   usecase.NewCitationContentUsecase(content),
		Claims:    claimsResolver,
		AuthSetup: authSetup,
		Features: rag_http.Features{
			ShowGPT4VOptions:    cfg.Server.ShowGPT4VOptions,
			ShowSemanticOptions: cfg.Server.ShowSemanticOptions,
			ShowVectorOption:    true,
		},
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         log,
	}

	// Uploads need the job queue.
	if pool != nil {
		deps.Ready = pool.Ping

		jobRepo := repository.NewIngestionJobRepository(pool)
		if err := jobRepo.EnsureSchema(ctx); err != nil {
			app.Close()
			return nil, err
		}
		store, err := filestore.NewLocalStore(cfg.Server.UploadDir)
		if err != nil {
			app.Close()
			return nil, err
		}
		deps.Upload = usecase.NewUploadDocumentUsecase(store, jobRepo, log)
		deps.UploadStatus = usecase.NewUploadStatusUsecase(jobRepo)

		ingestUpload := usecase.NewIngestUploadUsecase(store, newIngestUsecase(b, oai.embedding, content, log), cfg.Ingest.EmbeddingBatchSize, log)
		app.Worker = worker.NewJobWorker(jobRepo, ingestUpload, worker.Config{
			PollInterval: time.Duration(cfg.Ingest.PollIntervalMillis) * time.Millisecond,
			JobTimeout:   time.Duration(cfg.Ingest.JobTimeout) * time.Second,
		}, log)
	}

	app.Handler = rag_http.NewHandler(deps)

	log.Info("components_wired",
		slog.String("search_backend", cfg.Search.Backend),
		slog.String("openai_host", cfg.OpenAI.Host),
		slog.Int("token_limit", tokenLimit),
		slog.Bool("uploads_enabled", deps.Upload != nil),
		slog.Bool("auth_enabled", cfg.Auth.UseAuthentication))

	return app, nil
}

// NewIngestionComponents wires the offline ingestion pipeline for searchBackend.
func NewIngestionComponents(ctx context.Context, cfg *config.Config, searchBackend string, log *slog.Logger) (*IngestionComponents, error) {
	var pool *pgxpool.Pool
	if searchBackend == config.SearchBackendPostgres {
		var err error
		if pool, err = openPool(ctx, cfg); err != nil {
			return nil, err
		}
	}
	comps := &IngestionComponents{Pool: pool}

	b, err := newBackend(cfg, searchBackend, pool, log)
	if err != nil {
		comps.Close()
		return nil, err
	}

	content, err := filestore.NewContentStore(cfg.Server.ContentDir)
	if err != nil {
		comps.Close()
		return nil, err
	}

	oai := newOpenAIClients(cfg, log)
	comps.Ingest = newIngestUsecase(b, oai.embedding, content, log)
	return comps, nil
}
