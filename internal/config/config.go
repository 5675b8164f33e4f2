package config

import (
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Apify      ApifyConfig      `yaml:"apify" mapstructure:"apify"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Temporal   TemporalConfig   `yaml:"temporal" mapstructure:"temporal"`
	Queue      QueueConfig      `yaml:"queue" mapstructure:"queue"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	KB         KBConfig         `yaml:"kb" mapstructure:"kb"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds the Claude credentials, model and token budget.
type AnthropicConfig struct {
	Key                  string `yaml:"key" mapstructure:"key"`
	Model                string `yaml:"model" mapstructure:"model"`
	InputTokensPerMinute int    `yaml:"input_tokens_per_minute" mapstructure:"input_tokens_per_minute"`
}

// JinaConfig holds Jina Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// ApifyConfig holds Apify credentials and actor IDs.
type ApifyConfig struct {
	Token        string `yaml:"token" mapstructure:"token"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	YouTubeActor string `yaml:"youtube_actor" mapstructure:"youtube_actor"`
	RedditActor  string `yaml:"reddit_actor" mapstructure:"reddit_actor"`
	RunTimeout   int    `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NotionConfig holds the Notion token and KB database ID.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	KBDatabase string `yaml:"kb_db" mapstructure:"kb_db"`
}

// RedisConfig configures the optional Redis cache connection.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// CacheConfig selects the search/fetch cache backend.
type CacheConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"` // none, redis, store
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// TemporalConfig holds the Temporal frontend address.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue string `yaml:"task_queue" mapstructure:"task_queue"`
}

// QueueConfig tunes the research job retry policy and worker size.
type QueueConfig struct {
	MaxAttempts        int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffSecs int `yaml:"initial_backoff_secs" mapstructure:"initial_backoff_secs"`
	Concurrency        int `yaml:"concurrency" mapstructure:"concurrency"`
	JobTimeoutMins     int `yaml:"job_timeout_mins" mapstructure:"job_timeout_mins"`
}

// ResearchConfig tunes the research stages.
type ResearchConfig struct {
	SearchConcurrency int  `yaml:"search_concurrency" mapstructure:"search_concurrency"`
	VerifyQuotes      bool `yaml:"verify_quotes" mapstructure:"verify_quotes"`
}

// KBConfig configures knowledge base ingestion.
type KBConfig struct {
	SeedDir  string `yaml:"seed_dir" mapstructure:"seed_dir"`
	LockPath string `yaml:"lock_path" mapstructure:"lock_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json, console, auto
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COLDEMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets have empty defaults so AutomaticEnv can bind them on Unmarshal.
	for _, key := range []string{
		"store.database_url", "anthropic.key", "jina.key", "apify.token",
		"perplexity.key", "firecrawl.key", "notion.token", "notion.kb_db",
		"redis.password",
	} {
		v.SetDefault(key, "")
	}

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.input_tokens_per_minute", 30000)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.youtube_actor", "h7sDV53CddomktSi5")
	v.SetDefault("apify.reddit_actor", "TwqHBuZZPHJxiQrTU")
	v.SetDefault("apify.run_timeout_secs", 600)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("cache.driver", "none")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "research")
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.initial_backoff_secs", 5)
	v.SetDefault("queue.concurrency", 2)
	v.SetDefault("queue.job_timeout_mins", 45)
	v.SetDefault("research.search_concurrency", 5)
	v.SetDefault("research.verify_quotes", true)
	v.SetDefault("kb.seed_dir", "kb")
	v.SetDefault("kb.lock_path", ".kb-seed.lock")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the keys required by the given mode are set.
// Modes: "serve", "worker", "inline", "kb".
func (c *Config) Validate(mode string) error {
	var missing []string
	need := func(val, key string) {
		if val == "" {
			missing = append(missing, key)
		}
	}

	if c.Store.Driver == "postgres" {
		need(c.Store.DatabaseURL, "store.database_url")
	}

	switch mode {
	case "worker", "inline":
		need(c.Anthropic.Key, "anthropic.key")
		need(c.Jina.Key, "jina.key")
		need(c.Apify.Token, "apify.token")
	case "serve":
		need(c.Anthropic.Key, "anthropic.key")
		need(c.Temporal.HostPort, "temporal.host_port")
	case "kb":
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required keys for %s: %s", mode, strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if resolveFormat(cfg.Format, os.Stderr.Fd()) == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// resolveFormat maps "auto" to console on a terminal and json elsewhere.
func resolveFormat(format string, fd uintptr) string {
	if format != "auto" && format != "" {
		return format
	}
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return "console"
	}
	return "json"
}
