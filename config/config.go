// Package config implements configuration management with environment
// variable support: defaults, parsing, and validation for production use.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names recognized by NEWS_PROVIDER.
const (
	ProviderNewsData = "newsdata"
	ProviderAPITube  = "apitube"
)

type Config struct {
	Server    ServerConfig
	HTTP      HTTPConfig
	Provider  ProviderConfig
	Producer  ProducerConfig
	Processor ProcessorConfig
	Inference InferenceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Retry     RetryConfig
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// HTTPConfig controls the client used to fetch article webpages.
type HTTPConfig struct {
	UserAgent            string
	ArticleFetchTimeout  time.Duration
	EnableBrowserHeaders bool
}

type ProviderConfig struct {
	Name           string
	NewsDataAPIKey string
	NewsDataHost   string
	APITubeAPIKey  string
	APITubeHost    string
}

// ProducerConfig bounds the ingestion tick.
type ProducerConfig struct {
	MaxStoredArticles int
	MaxPages          int
	IDIndexTTL        time.Duration
	DeleteOldArticles bool
}

// ProcessorConfig bounds the enrichment tick.
type ProcessorConfig struct {
	MaxArticlesPerRun       int
	MaxContentChars         int
	MaxContentFetchAttempts int
}

type InferenceConfig struct {
	Host                    string
	APIPath                 string
	Model                   string
	Timeout                 time.Duration
	SentimentMaxTokens      int
	SummaryMaxTokens        int
	SentimentScoreThreshold float64
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	URL string
}

type SchedulerConfig struct {
	IngestInterval  time.Duration
	ProcessInterval time.Duration
}

type RetryConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterFactor  float64
}

func LoadConfig() (*Config, error) {
	config := &Config{}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func loadFromEnv(config *Config) error {
	var err error

	// Server config
	if config.Server.Port, err = envInt("SERVER_PORT", 9300); err != nil {
		return err
	}

	if config.Server.ShutdownTimeout, err = envDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return err
	}

	// HTTP config for article page fetching
	config.HTTP.UserAgent = envString("HTTP_USER_AGENT",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	if config.HTTP.ArticleFetchTimeout, err = envDuration("ARTICLE_FETCH_TIMEOUT", 10*time.Second); err != nil {
		return err
	}

	if config.HTTP.EnableBrowserHeaders, err = envBool("HTTP_ENABLE_BROWSER_HEADERS", true); err != nil {
		return err
	}

	// Provider config
	config.Provider.Name = strings.ToLower(envString("NEWS_PROVIDER", ProviderNewsData))
	config.Provider.NewsDataAPIKey = envString("NEWSDATA_API_KEY", "")
	config.Provider.NewsDataHost = envString("NEWSDATA_HOST", "https://newsdata.io")
	config.Provider.APITubeAPIKey = envString("APITUBE_API_KEY", "")
	config.Provider.APITubeHost = envString("APITUBE_HOST", "https://api.apitube.io")

	// Producer config
	if config.Producer.MaxStoredArticles, err = envInt("MAX_STORED_ARTICLES", 100); err != nil {
		return err
	}

	if config.Producer.MaxPages, err = envInt("MAX_PAGES", 10); err != nil {
		return err
	}

	ttlSeconds, err := envInt("ID_INDEX_TTL", 2592000)
	if err != nil {
		return err
	}

	config.Producer.IDIndexTTL = time.Duration(ttlSeconds) * time.Second

	if config.Producer.DeleteOldArticles, err = envBool("DELETE_OLD_ARTICLES", false); err != nil {
		return err
	}

	// Processor config
	if config.Processor.MaxArticlesPerRun, err = envInt("MAX_ARTICLES_PER_RUN", 5); err != nil {
		return err
	}

	if config.Processor.MaxContentChars, err = envInt("MAX_CONTENT_CHARS", 10240); err != nil {
		return err
	}

	if config.Processor.MaxContentFetchAttempts, err = envInt("MAX_CONTENT_FETCH_ATTEMPTS", 3); err != nil {
		return err
	}

	// Inference runtime config
	config.Inference.Host = envString("INFERENCE_HOST", "http://inference-runtime:8787")
	config.Inference.APIPath = envString("INFERENCE_API_PATH", "/v1/run")
	config.Inference.Model = envString("INFERENCE_MODEL", "@cf/meta/llama-3.1-8b-instruct")

	if config.Inference.Timeout, err = envDuration("INFERENCE_TIMEOUT", 240*time.Second); err != nil {
		return err
	}

	if config.Inference.SentimentMaxTokens, err = envInt("SENTIMENT_MAX_TOKENS", 10); err != nil {
		return err
	}

	if config.Inference.SummaryMaxTokens, err = envInt("SUMMARY_MAX_TOKENS", 1024); err != nil {
		return err
	}

	if config.Inference.SentimentScoreThreshold, err = envFloat("SENTIMENT_SCORE_THRESHOLD", 0.1); err != nil {
		return err
	}

	// Storage config
	config.Database.URL = envString("DATABASE_URL", "")
	config.Redis.URL = envString("REDIS_URL", "redis://localhost:6379")

	// Scheduler config
	if config.Scheduler.IngestInterval, err = envDuration("INGEST_INTERVAL", time.Hour); err != nil {
		return err
	}

	if config.Scheduler.ProcessInterval, err = envDuration("PROCESS_INTERVAL", 5*time.Minute); err != nil {
		return err
	}

	// Retry config
	if config.Retry.MaxAttempts, err = envInt("RETRY_MAX_ATTEMPTS", 3); err != nil {
		return err
	}

	if config.Retry.BaseDelay, err = envDuration("RETRY_BASE_DELAY", time.Second); err != nil {
		return err
	}

	if config.Retry.MaxDelay, err = envDuration("RETRY_MAX_DELAY", 30*time.Second); err != nil {
		return err
	}

	if config.Retry.BackoffFactor, err = envFloat("RETRY_BACKOFF_FACTOR", 2.0); err != nil {
		return err
	}

	if config.Retry.JitterFactor, err = envFloat("RETRY_JITTER_FACTOR", 0.1); err != nil {
		return err
	}

	return nil
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Provider.Name {
	case ProviderNewsData:
		if config.Provider.NewsDataAPIKey == "" {
			return fmt.Errorf("NEWSDATA_API_KEY is required when NEWS_PROVIDER is %s", ProviderNewsData)
		}
	case ProviderAPITube:
		if config.Provider.APITubeAPIKey == "" {
			return fmt.Errorf("APITUBE_API_KEY is required when NEWS_PROVIDER is %s", ProviderAPITube)
		}
	default:
		return fmt.Errorf("unknown news provider: %s", config.Provider.Name)
	}

	if config.Producer.MaxStoredArticles <= 0 {
		return fmt.Errorf("max stored articles must be positive: %d", config.Producer.MaxStoredArticles)
	}

	if config.Producer.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive: %d", config.Producer.MaxPages)
	}

	if config.Producer.IDIndexTTL <= 0 {
		return fmt.Errorf("id index TTL must be positive: %v", config.Producer.IDIndexTTL)
	}

	if config.Processor.MaxArticlesPerRun <= 0 {
		return fmt.Errorf("max articles per run must be positive: %d", config.Processor.MaxArticlesPerRun)
	}

	if config.Processor.MaxContentChars <= 0 {
		return fmt.Errorf("max content chars must be positive: %d", config.Processor.MaxContentChars)
	}

	if config.Processor.MaxContentFetchAttempts <= 0 {
		return fmt.Errorf("max content fetch attempts must be positive: %d", config.Processor.MaxContentFetchAttempts)
	}

	if config.HTTP.ArticleFetchTimeout <= 0 {
		return fmt.Errorf("article fetch timeout must be positive: %v", config.HTTP.ArticleFetchTimeout)
	}

	if config.Inference.Host == "" {
		return fmt.Errorf("inference host cannot be empty")
	}

	if config.Inference.Timeout <= 0 {
		return fmt.Errorf("inference timeout must be positive: %v", config.Inference.Timeout)
	}

	if config.Inference.SentimentScoreThreshold <= 0 || config.Inference.SentimentScoreThreshold >= 1 {
		return fmt.Errorf("sentiment score threshold must be in (0, 1): %f", config.Inference.SentimentScoreThreshold)
	}

	if config.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max attempts must be positive: %d", config.Retry.MaxAttempts)
	}

	if config.Retry.BackoffFactor <= 1.0 {
		return fmt.Errorf("backoff factor must be greater than 1.0: %f", config.Retry.BackoffFactor)
	}

	return nil
}

// GetBrowserHeaders returns the request headers used when fetching article
// webpages. Sites commonly refuse bare default-client requests, so the
// fetcher presents a browser-like header set.
func (config *HTTPConfig) GetBrowserHeaders() map[string]string {
	if !config.EnableBrowserHeaders {
		return map[string]string{
			"User-Agent": config.UserAgent,
		}
	}

	headers := map[string]string{
		"User-Agent":                config.UserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}

	if strings.Contains(config.UserAgent, "Chrome") {
		headers["sec-ch-ua"] = `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`
		headers["sec-ch-ua-mobile"] = "?0"
		headers["sec-ch-ua-platform"] = `"Windows"`
	}

	return headers
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}

	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s", key, v)
	}

	return b, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}

	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}

	return d, nil
}
