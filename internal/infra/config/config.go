package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Search backends.
const (
	SearchBackendAzure    = "azure"
	SearchBackendPostgres = "postgres"
)

// OpenAI hosts.
const (
	OpenAIHostAzure  = "azure"
	OpenAIHostOpenAI = "openai"
)

type Config struct {
	Env    string
	Server ServerConfig
	DB     DBConfig
	OpenAI OpenAIConfig
	Search SearchConfig
	Rerank RerankConfig
	Auth   AuthConfig
	RAG    RAGConfig
	Ingest IngestConfig
}

type ServerConfig struct {
	Port                string
	ShutdownTimeout     int
	RateLimitPerMinute  int
	RateLimitBurst      int
	UploadDir           string
	ContentDir          string
	MaxUploadBytes      int64
	ShowGPT4VOptions    bool
	ShowSemanticOptions bool
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int32
	MinConns int32
}

// DSN builds the pgx connection string.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Enabled reports whether a database was configured.
func (d DBConfig) Enabled() bool {
	return d.Host != ""
}

type OpenAIConfig struct {
	Host                string
	Service             string
	BaseURL             string
	APIKey              string
	APIVersion          string
	Organization        string
	ChatDeployment      string
	ChatModel           string
	EmbeddingDeployment string
	EmbeddingModel      string
	Timeout             int
	RequestsPerSecond   float64
	RequestBurst        int
}

// Endpoint returns the API root, derived from the Azure service name when BaseURL is unset.
func (o OpenAIConfig) Endpoint() string {
	if o.BaseURL != "" {
		return strings.TrimRight(o.BaseURL, "/")
	}
	if o.Host == OpenAIHostAzure {
		return fmt.Sprintf("https://%s.openai.azure.com", o.Service)
	}
	return "https://api.openai.com/v1"
}

type SearchConfig struct {
	Backend             string
	Service             string
	Endpoint            string
	Index               string
	APIKey              string
	APIVersion          string
	QueryLanguage       string
	QuerySpeller        string
	SourcePageField     string
	ContentField        string
	AnalyzerName        string
	EmbeddingDimensions int
	Timeout             int
}

// URL returns the search service root.
func (s SearchConfig) URL() string {
	if s.Endpoint != "" {
		return strings.TrimRight(s.Endpoint, "/")
	}
	return fmt.Sprintf("https://%s.search.windows.net", s.Service)
}

type RerankConfig struct {
	Enabled bool
	URL     string
	Model   string
	Timeout int
}

type AuthConfig struct {
	UseAuthentication    bool
	RequireAccessControl bool
	RequireLogin         bool
	TenantID             string
	AuthorityHost        string
	GraphURL             string
	ServerAppID          string
	ServerAppSecret      string
	ClientAppID          string
	GroupCacheSize       int
	GroupCacheTTL        int
	Timeout              int
}

type RAGConfig struct {
	RubricConcurrency int
	UpstreamTimeout   int
}

type IngestConfig struct {
	EmbeddingBatchSize int
	PollIntervalMillis int
	JobTimeout         int
}

func Load() *Config {
	return &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			Port:                getEnv("PORT", "50505"),
			ShutdownTimeout:     getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10),
			RateLimitPerMinute:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
			RateLimitBurst:      getEnvInt("RATE_LIMIT_BURST", 10),
			UploadDir:           getEnv("UPLOAD_DIR", os.TempDir()),
			ContentDir:          getEnv("CONTENT_DIR", "data/content"),
			MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_BYTES", 20<<20)),
			ShowGPT4VOptions:    getEnvBool("USE_GPT4V", false),
			ShowSemanticOptions: getEnvBool("SHOW_SEMANTIC_OPTIONS", true),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "rubric_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", ""),
			Name:     getEnv("DB_NAME", "rubric_db"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		OpenAI: OpenAIConfig{
			Host:                getEnv("OPENAI_HOST", OpenAIHostAzure),
			Service:             getEnv("AZURE_OPENAI_SERVICE", ""),
			BaseURL:             getEnv("OPENAI_BASE_URL", ""),
			APIKey:              getSecret("OPENAI_API_KEY", "OPENAI_API_KEY_FILE", ""),
			APIVersion:          getEnv("AZURE_OPENAI_API_VERSION", "2023-05-15"),
			Organization:        getEnv("OPENAI_ORGANIZATION", ""),
			ChatDeployment:      getEnv("AZURE_OPENAI_CHATGPT_DEPLOYMENT", ""),
			ChatModel:           getEnvWithAlt("AZURE_OPENAI_CHATGPT_MODEL", "OPENAI_CHATGPT_MODEL", "gpt-35-turbo"),
			EmbeddingDeployment: getEnv("AZURE_OPENAI_EMB_DEPLOYMENT", ""),
			EmbeddingModel:      getEnvWithAlt("AZURE_OPENAI_EMB_MODEL_NAME", "OPENAI_EMB_MODEL_NAME", "text-embedding-ada-002"),
			Timeout:             getEnvInt("OPENAI_TIMEOUT_SECONDS", 60),
			RequestsPerSecond:   getEnvFloat64("OPENAI_REQUESTS_PER_SECOND", 10),
			RequestBurst:        getEnvInt("OPENAI_REQUEST_BURST", 20),
		},
		Search: SearchConfig{
			Backend:             getEnv("SEARCH_BACKEND", SearchBackendAzure),
			Service:             getEnv("AZURE_SEARCH_SERVICE", ""),
			Endpoint:            getEnv("AZURE_SEARCH_ENDPOINT", ""),
			Index:               getEnv("AZURE_SEARCH_INDEX", "gptkbindex"),
			APIKey:              getSecret("AZURE_SEARCH_KEY", "AZURE_SEARCH_KEY_FILE", ""),
			APIVersion:          getEnv("AZURE_SEARCH_API_VERSION", "2024-05-01-preview"),
			QueryLanguage:       getEnv("AZURE_SEARCH_QUERY_LANGUAGE", "en-us"),
			QuerySpeller:        getEnv("AZURE_SEARCH_QUERY_SPELLER", "lexicon"),
			SourcePageField:     getEnv("KB_FIELDS_SOURCEPAGE", "sourcepage"),
			ContentField:        getEnv("KB_FIELDS_CONTENT", "content"),
			AnalyzerName:        getEnv("AZURE_SEARCH_ANALYZER_NAME", "en.microsoft"),
			EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1536),
			Timeout:             getEnvInt("AZURE_SEARCH_TIMEOUT_SECONDS", 30),
		},
		Rerank: RerankConfig{
			Enabled: getEnvBool("RERANK_ENABLED", false),
			URL:     getEnv("RERANK_URL", "http://reranker:8001"),
			Model:   getEnv("RERANK_MODEL", "bge-reranker-v2-m3"),
			Timeout: getEnvInt("RERANK_TIMEOUT_SECONDS", 10),
		},
		Auth: AuthConfig{
			UseAuthentication:    getEnvBool("AZURE_USE_AUTHENTICATION", false),
			RequireAccessControl: getEnvBool("AZURE_ENFORCE_ACCESS_CONTROL", false),
			RequireLogin:         getEnvBool("AZURE_AUTH_REQUIRED", false),
			TenantID:             getEnvWithAlt("AZURE_AUTH_TENANT_ID", "AZURE_TENANT_ID", ""),
			AuthorityHost:        getEnv("AZURE_AUTHORITY_HOST", "https://login.microsoftonline.com"),
			GraphURL:             getEnv("MS_GRAPH_URL", "https://graph.microsoft.com"),
			ServerAppID:          getEnv("AZURE_SERVER_APP_ID", ""),
			ServerAppSecret:      getSecret("AZURE_SERVER_APP_SECRET", "AZURE_SERVER_APP_SECRET_FILE", ""),
			ClientAppID:          getEnv("AZURE_CLIENT_APP_ID", ""),
			GroupCacheSize:       getEnvInt("AUTH_GROUP_CACHE_SIZE", 1024),
			GroupCacheTTL:        getEnvInt("AUTH_GROUP_CACHE_TTL_SECONDS", 300),
			Timeout:              getEnvInt("AUTH_TIMEOUT_SECONDS", 5),
		},
		RAG: RAGConfig{
			RubricConcurrency: getEnvInt("RUBRIC_CONCURRENCY", 4),
			UpstreamTimeout:   getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 60),
		},
		Ingest: IngestConfig{
			EmbeddingBatchSize: getEnvInt("INGEST_EMBEDDING_BATCH_SIZE", 16),
			PollIntervalMillis: getEnvInt("INGEST_POLL_INTERVAL_MS", 500),
			JobTimeout:         getEnvInt("INGEST_JOB_TIMEOUT_SECONDS", 300),
		},
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.OpenAI.Host {
	case OpenAIHostAzure:
		if c.OpenAI.Service == "" && c.OpenAI.BaseURL == "" {
			errs = append(errs, errors.New("AZURE_OPENAI_SERVICE or OPENAI_BASE_URL is required when OPENAI_HOST=azure"))
		}
		if c.OpenAI.ChatDeployment == "" {
			errs = append(errs, errors.New("AZURE_OPENAI_CHATGPT_DEPLOYMENT is required when OPENAI_HOST=azure"))
		}
		if c.OpenAI.EmbeddingDeployment == "" {
			errs = append(errs, errors.New("AZURE_OPENAI_EMB_DEPLOYMENT is required when OPENAI_HOST=azure"))
		}
	case OpenAIHostOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when OPENAI_HOST=openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("OPENAI_HOST must be %q or %q, got %q", OpenAIHostAzure, OpenAIHostOpenAI, c.OpenAI.Host))
	}
	if c.OpenAI.ChatModel == "" {
		errs = append(errs, errors.New("AZURE_OPENAI_CHATGPT_MODEL is required"))
	}

	switch c.Search.Backend {
	case SearchBackendAzure:
		if c.Search.Service == "" && c.Search.Endpoint == "" {
			errs = append(errs, errors.New("AZURE_SEARCH_SERVICE or AZURE_SEARCH_ENDPOINT is required when SEARCH_BACKEND=azure"))
		}
		if c.Search.Index == "" {
			errs = append(errs, errors.New("AZURE_SEARCH_INDEX is required when SEARCH_BACKEND=azure"))
		}
	case SearchBackendPostgres:
		if !c.DB.Enabled() {
			errs = append(errs, errors.New("DB_HOST is required when SEARCH_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("SEARCH_BACKEND must be %q or %q, got %q", SearchBackendAzure, SearchBackendPostgres, c.Search.Backend))
	}

	if c.Auth.RequireAccessControl && !c.Auth.UseAuthentication {
		errs = append(errs, errors.New("AZURE_ENFORCE_ACCESS_CONTROL requires AZURE_USE_AUTHENTICATION"))
	}
	if c.Auth.RequireLogin && !c.Auth.UseAuthentication {
		errs = append(errs, errors.New("AZURE_AUTH_REQUIRED requires AZURE_USE_AUTHENTICATION"))
	}
	if c.Auth.UseAuthentication {
		required := map[string]string{
			"AZURE_AUTH_TENANT_ID":    c.Auth.TenantID,
			"AZURE_SERVER_APP_ID":     c.Auth.ServerAppID,
			"AZURE_SERVER_APP_SECRET": c.Auth.ServerAppSecret,
			"AZURE_CLIENT_APP_ID":     c.Auth.ClientAppID,
		}
		for _, key := range []string{"AZURE_AUTH_TENANT_ID", "AZURE_SERVER_APP_ID", "AZURE_SERVER_APP_SECRET", "AZURE_CLIENT_APP_ID"} {
			if required[key] == "" {
				errs = append(errs, fmt.Errorf("%s is required when AZURE_USE_AUTHENTICATION is true", key))
			}
		}
	}

	if c.RAG.RubricConcurrency < 1 {
		errs = append(errs, fmt.Errorf("RUBRIC_CONCURRENCY must be >= 1, got %d", c.RAG.RubricConcurrency))
	}
	if c.Ingest.EmbeddingBatchSize < 1 {
		errs = append(errs, fmt.Errorf("INGEST_EMBEDDING_BATCH_SIZE must be >= 1, got %d", c.Ingest.EmbeddingBatchSize))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
