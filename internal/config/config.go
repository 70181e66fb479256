// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.docchat/config.yaml)
//  3. Default values
//
// Sensitive data (API keys) are never logged; Config masks them in
// MarshalJSON and String. Validation happens immediately after loading
// (fail-fast) with sentinel errors usable via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidProvider indicates the configured default provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidServerAddr indicates the HTTP listen address is malformed.
	ErrInvalidServerAddr = errors.New("invalid server address")

	// ErrInvalidScraper indicates a web scraper setting is out of range.
	ErrInvalidScraper = errors.New("invalid web scraper setting")

	// ErrInvalidHistoryLimit indicates the history limit is out of range.
	ErrInvalidHistoryLimit = errors.New("invalid history limit")
)

// AI provider identifiers used in Config.Provider and the registry.
const (
	ProviderGroq     = "groq"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
)

const (
	// DefaultMaxHistoryTurns is the default number of turns replayed into a prompt.
	DefaultMaxHistoryTurns = 100

	// MaxAllowedHistoryTurns is the absolute maximum to prevent OOM.
	MaxAllowedHistoryTurns = 10000
)

// ScraperConfig controls the Site loader's fetch behaviour.
type ScraperConfig struct {
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	DelayMs     int `mapstructure:"delay_ms" json:"delay_ms"`
	TimeoutMs   int `mapstructure:"timeout_ms" json:"timeout_ms"`
}

// TracingConfig controls optional OTLP trace export.
// Empty Endpoint disables tracing entirely.
type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (API keys, tokens), update MarshalJSON.
type Config struct {
	// Default provider and model used when the boundary does not select one
	Provider  string `mapstructure:"provider" json:"provider"`
	ModelName string `mapstructure:"model_name" json:"model_name"`

	// Provider credentials, read from the environment.
	// These seed the session's per-provider key store; the boundary may
	// overwrite them per session. SENSITIVE: masked in MarshalJSON.
	GroqAPIKey   string `mapstructure:"groq_api_key" json:"groq_api_key"`
	OpenAIAPIKey string `mapstructure:"openai_api_key" json:"openai_api_key"`
	GeminiAPIKey string `mapstructure:"gemini_api_key" json:"gemini_api_key"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Conversation settings
	MaxHistoryTurns int `mapstructure:"max_history_turns" json:"max_history_turns"`

	// Site loader settings
	Scraper ScraperConfig `mapstructure:"scraper" json:"scraper"`

	// HTTP server settings (serve mode)
	ServerAddr  string   `mapstructure:"server_addr" json:"server_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`

	// Observability settings
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".docchat")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("provider", ProviderGroq)
	viper.SetDefault("model_name", "llama-3.1-8b-instant")
	viper.SetDefault("max_history_turns", DefaultMaxHistoryTurns)

	viper.SetDefault("ollama_host", "http://localhost:11434")

	viper.SetDefault("scraper.parallelism", 2)
	viper.SetDefault("scraper.delay_ms", 1000)
	viper.SetDefault("scraper.timeout_ms", 30000)

	viper.SetDefault("server_addr", "localhost:8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:4200"})

	viper.SetDefault("tracing.service_name", "docchat")
	viper.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
// API keys use their providers' conventional variable names so existing
// shell setups keep working.
func bindEnvVariables() {
	// Hardcoded strings can't fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("groq_api_key", "GROQ_API_KEY")
	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("gemini_api_key", "GEMINI_API_KEY")

	mustBind("provider", "DOCCHAT_PROVIDER")
	mustBind("model_name", "DOCCHAT_MODEL_NAME")
	mustBind("ollama_host", "DOCCHAT_OLLAMA_HOST")
	mustBind("server_addr", "DOCCHAT_SERVER_ADDR")
	mustBind("cors_origins", "DOCCHAT_CORS_ORIGINS")
	mustBind("tracing.endpoint", "DOCCHAT_OTLP_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matching against real key material.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked; longer ones keep the
// first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.GroqAPIKey = maskSecret(a.GroqAPIKey)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// APIKeys returns the per-provider credentials read from the
// environment, keyed by provider identifier. Providers without a
// configured key are omitted; ollama never appears (local, keyless).
func (c *Config) APIKeys() map[string]string {
	keys := make(map[string]string)
	if c.GroqAPIKey != "" {
		keys[ProviderGroq] = c.GroqAPIKey
	}
	if c.OpenAIAPIKey != "" {
		keys[ProviderOpenAI] = c.OpenAIAPIKey
	}
	if c.GeminiAPIKey != "" {
		keys[ProviderGoogleAI] = c.GeminiAPIKey
	}
	return keys
}
