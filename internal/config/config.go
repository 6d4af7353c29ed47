package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	Store      Store      `mapstructure:"store"`
	Search     Search     `mapstructure:"search"`
	Classify   Classify   `mapstructure:"classify"`
	Fetch      Fetch      `mapstructure:"fetch"`
	References References `mapstructure:"references"`
	AI         AI         `mapstructure:"ai"`
	Cache      Cache      `mapstructure:"cache"`
	Logging    Logging    `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	ConfigFile string `mapstructure:"config_file"`
}

// Store holds the backing article store configuration
type Store struct {
	BaseURL    string `mapstructure:"base_url"`
	PathPrefix string `mapstructure:"path_prefix"`
	PerPage    int    `mapstructure:"per_page"`
	MaxPages   int    `mapstructure:"max_pages"`
	Timeout    string `mapstructure:"timeout"`
}

// Search holds search provider configuration
type Search struct {
	Timeout       string          `mapstructure:"timeout"`
	MaxResults    int             `mapstructure:"max_results"`
	Language      string          `mapstructure:"language"`
	ExcludeDomain string          `mapstructure:"exclude_domain"`
	RateLimit     string          `mapstructure:"rate_limit"`
	SeedsFile     string          `mapstructure:"seeds_file"`
	Providers     SearchProviders `mapstructure:"providers"`
}

// SearchProviders holds configuration for all search providers
type SearchProviders struct {
	Searx      SearxConfig        `mapstructure:"searx"`
	DuckDuckGo EndpointConfig     `mapstructure:"duckduckgo"`
	Bing       EndpointConfig     `mapstructure:"bing"`
	Google     GoogleSearchConfig `mapstructure:"google"`
}

// SearxConfig holds SearxNG metasearch configuration
type SearxConfig struct {
	URL string `mapstructure:"url"`
}

// EndpointConfig holds the endpoint of an HTML-scraped search engine
type EndpointConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// GoogleSearchConfig holds Google Custom Search configuration
type GoogleSearchConfig struct {
	APIKey   string `mapstructure:"api_key"`
	SearchID string `mapstructure:"search_id"`
}

// Classify holds URL classifier configuration
type Classify struct {
	ExtraBlockedDomains []string `mapstructure:"extra_blocked_domains"`
}

// Fetch holds page fetching and extraction configuration
type Fetch struct {
	Timeout        string `mapstructure:"timeout"`
	UserAgent      string `mapstructure:"user_agent"`
	AcceptLanguage string `mapstructure:"accept_language"`
	MinTextLength  int    `mapstructure:"min_text_length"`
}

// References holds reference discovery configuration
type References struct {
	MinContent    int `mapstructure:"min_content"`
	MaxCandidates int `mapstructure:"max_candidates"`
	Concurrency   int `mapstructure:"concurrency"`
	Wanted        int `mapstructure:"wanted"`
}

// AI holds rewrite provider configuration
type AI struct {
	Timeout     string          `mapstructure:"timeout"`
	Temperature float32         `mapstructure:"temperature"`
	Groq        ChatModelConfig `mapstructure:"groq"`
	OpenAI      ChatModelConfig `mapstructure:"openai"`
	Gemini      GeminiConfig    `mapstructure:"gemini"`
}

// ChatModelConfig holds an OpenAI-compatible chat completions endpoint
type ChatModelConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Cache holds the extraction cache configuration
type Cache struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	TTL       string `mapstructure:"ttl"`
}

// Logging holds logging configuration
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".updater")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)

	// Store defaults
	viper.SetDefault("store.base_url", "http://127.0.0.1:8000")
	viper.SetDefault("store.path_prefix", "/api")
	viper.SetDefault("store.per_page", 50)
	viper.SetDefault("store.max_pages", 10)
	viper.SetDefault("store.timeout", "60s")

	// Search defaults
	viper.SetDefault("search.timeout", "60s")
	viper.SetDefault("search.max_results", 10)
	viper.SetDefault("search.language", "en")
	viper.SetDefault("search.exclude_domain", "beyondchats.com")
	viper.SetDefault("search.rate_limit", "1s")
	viper.SetDefault("search.providers.searx.url", "https://searxng.matrixaiserver.com/search")
	viper.SetDefault("search.providers.duckduckgo.url", "https://html.duckduckgo.com/html/")
	viper.SetDefault("search.providers.duckduckgo.enabled", true)
	viper.SetDefault("search.providers.bing.url", "https://www.bing.com/search")
	viper.SetDefault("search.providers.bing.enabled", true)

	// Fetch defaults
	viper.SetDefault("fetch.timeout", "60s")
	viper.SetDefault("fetch.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	viper.SetDefault("fetch.accept_language", "en-US,en;q=0.9")
	viper.SetDefault("fetch.min_text_length", 300)

	// Reference defaults
	viper.SetDefault("references.min_content", 800)
	viper.SetDefault("references.max_candidates", 6)
	viper.SetDefault("references.concurrency", 3)
	viper.SetDefault("references.wanted", 2)

	// AI defaults
	viper.SetDefault("ai.timeout", "60s")
	viper.SetDefault("ai.temperature", 0.7)
	viper.SetDefault("ai.groq.model", "llama-3.1-70b-versatile")
	viper.SetDefault("ai.groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("ai.openai.model", "gpt-4o-mini")
	viper.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("ai.gemini.model", "gemini-1.5-flash")

	// Cache defaults
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.directory", ".updater-cache")
	viper.SetDefault("cache.ttl", "24h")

	viper.SetDefault("logging.level", "info")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("store.base_url", []string{
		"API_BASE_URL",
		"STORE_BASE_URL",
	})

	bindEnvKeys("store.per_page", []string{
		"PER_PAGE",
	})

	bindEnvKeys("references.min_content", []string{
		"MIN_CONTENT",
	})

	bindEnvKeys("ai.groq.api_key", []string{
		"GROQ_API_KEY",
	})

	bindEnvKeys("ai.groq.model", []string{
		"GROQ_MODEL",
	})

	bindEnvKeys("ai.openai.api_key", []string{
		"OPENAI_API_KEY",
	})

	bindEnvKeys("ai.openai.model", []string{
		"OPENAI_MODEL",
	})

	// Gemini API key - support multiple formats
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("search.providers.searx.url", []string{
		"SEARXNG_URL",
		"SEARX_URL",
	})

	bindEnvKeys("search.providers.google.api_key", []string{
		"GOOGLE_CUSTOM_SEARCH_API_KEY",
		"GOOGLE_CSE_API_KEY",
	})

	bindEnvKeys("search.providers.google.search_id", []string{
		"GOOGLE_CUSTOM_SEARCH_ID",
		"GOOGLE_CSE_ID",
	})

	bindEnvKeys("search.seeds_file", []string{
		"TOPIC_SEEDS_FILE",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"UPDATER_DEBUG",
	})

	bindEnvKeys("logging.level", []string{
		"LOG_LEVEL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.Cache.Directory != "" {
		config.Cache.Directory = expandPath(config.Cache.Directory)
	}
	if config.Search.SeedsFile != "" {
		config.Search.SeedsFile = expandPath(config.Search.SeedsFile)
	}
	config.Store.BaseURL = strings.TrimRight(config.Store.BaseURL, "/")
	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	durations := map[string]string{
		"store.timeout":     config.Store.Timeout,
		"search.timeout":    config.Search.Timeout,
		"search.rate_limit": config.Search.RateLimit,
		"fetch.timeout":     config.Fetch.Timeout,
		"ai.timeout":        config.AI.Timeout,
		"cache.ttl":         config.Cache.TTL,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errors []string

	if u, err := url.Parse(config.Store.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("store.base_url must be an absolute URL, got %q. Set API_BASE_URL", config.Store.BaseURL))
	}

	positives := map[string]int{
		"store.per_page":            config.Store.PerPage,
		"store.max_pages":           config.Store.MaxPages,
		"references.min_content":    config.References.MinContent,
		"references.max_candidates": config.References.MaxCandidates,
		"references.concurrency":    config.References.Concurrency,
		"references.wanted":         config.References.Wanted,
	}
	for key, value := range positives {
		if value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got %d", key, value))
		}
	}

	google := config.Search.Providers.Google
	if (google.APIKey == "") != (google.SearchID == "") {
		errors = append(errors, "Google Custom Search requires both API key and Search ID. Set GOOGLE_CUSTOM_SEARCH_API_KEY and GOOGLE_CUSTOM_SEARCH_ID")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Duration parses a validated duration string, returning fallback when empty.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// HasValidGoogleSearch returns true if Google Custom Search is properly configured
func (c *Config) HasValidGoogleSearch() bool {
	g := c.Search.Providers.Google
	return isValidAPIKey(g.APIKey) && isValidAPIKey(g.SearchID)
}

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-google-key", "your-openai-key", "your-groq-key",
		"your-search-id", "YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}

	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// HasKey reports whether an API key is set to something other than a placeholder.
func HasKey(apiKey string) bool {
	return isValidAPIKey(apiKey)
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
