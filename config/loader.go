// =============================================================================
// AeroDesk configuration loader
// =============================================================================
// Unified configuration loading with YAML files plus environment overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("AERODESK").
//	    Load()
//
// Precedence: defaults, then YAML file, then environment variables.
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Core configuration structures
// =============================================================================

// Config is the complete AeroDesk configuration.
type Config struct {
	// Server holds HTTP server settings.
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Log holds logging settings.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Redis holds the conversation history cache settings.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Weaviate holds the vector store settings.
	Weaviate WeaviateConfig `yaml:"weaviate" env:"WEAVIATE"`

	// Embedding holds the embedding provider settings.
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`

	// LLM holds the chat completion provider settings.
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Router holds supervisor routing settings.
	Router RouterConfig `yaml:"router" env:"ROUTER"`

	// Normalizer holds entity normalization settings.
	Normalizer NormalizerConfig `yaml:"normalizer" env:"NORMALIZER"`

	// Agents holds per-source retrieval agent settings.
	Agents AgentsConfig `yaml:"agents" env:"AGENTS"`

	// History holds conversation memory settings.
	History HistoryConfig `yaml:"history" env:"HISTORY"`

	// Telemetry holds OpenTelemetry settings.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// HTTP listen port
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Prometheus metrics listen port
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// Read timeout
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// Write timeout
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// Rate limit in requests per second per client
	RateLimitRPS int `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// Rate limit burst size
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// Output paths
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// Include caller information
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// Include stack traces on errors
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// RedisConfig holds Redis settings for conversation history.
type RedisConfig struct {
	// Enabled toggles the Redis-backed history store. When false an
	// in-process store is used instead.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Address
	Addr string `yaml:"addr" env:"ADDR"`
	// Password
	Password string `yaml:"password" env:"PASSWORD"`
	// Database number
	DB int `yaml:"db" env:"DB"`
	// Connection pool size
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// Minimum idle connections
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// WeaviateConfig holds Weaviate vector store settings.
type WeaviateConfig struct {
	// Host
	Host string `yaml:"host" env:"HOST"`
	// HTTP port
	Port int `yaml:"port" env:"PORT"`
	// Scheme: http or https
	Scheme string `yaml:"scheme" env:"SCHEME"`
	// API key, optional
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// API key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Base URL, defaults to the OpenAI endpoint when empty
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Model name
	Model string `yaml:"model" env:"MODEL"`
	// Vector dimension
	Dimension int `yaml:"dimension" env:"DIMENSION"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LLMConfig holds chat completion provider settings.
type LLMConfig struct {
	// API key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Base URL, defaults to the OpenAI endpoint when empty
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Model name
	Model string `yaml:"model" env:"MODEL"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// Maximum completion tokens
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// Token budget for merged retrieval context in the prompt
	MaxContextTokens int `yaml:"max_context_tokens" env:"MAX_CONTEXT_TOKENS"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// Maximum retries on retryable failures
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
}

// RouterConfig holds supervisor routing settings.
type RouterConfig struct {
	// Per-agent retrieval timeout during fan-out
	AgentTimeout time.Duration `yaml:"agent_timeout" env:"AGENT_TIMEOUT"`
	// Source consulted when no rule family matches: flight, policy, web
	FallbackSource string `yaml:"fallback_source" env:"FALLBACK_SOURCE"`
}

// NormalizerConfig holds entity normalization settings.
type NormalizerConfig struct {
	// Path to a YAML alias table. Empty uses the built-in table.
	AliasFile string `yaml:"alias_file" env:"ALIAS_FILE"`
}

// AgentsConfig holds per-source retrieval agent settings.
type AgentsConfig struct {
	Flight AgentConfig `yaml:"flight" env:"FLIGHT"`
	Policy AgentConfig `yaml:"policy" env:"POLICY"`
	Web    AgentConfig `yaml:"web" env:"WEB"`
}

// AgentConfig holds a single retrieval agent's settings.
type AgentConfig struct {
	// Weaviate collection name
	Collection string `yaml:"collection" env:"COLLECTION"`
	// Minimum similarity score for a chunk to be kept
	ScoreThreshold float64 `yaml:"score_threshold" env:"SCORE_THRESHOLD"`
	// Maximum chunks returned
	TopK int `yaml:"top_k" env:"TOP_K"`
}

// HistoryConfig holds conversation memory settings.
type HistoryConfig struct {
	// Maximum messages kept per session
	MaxMessages int `yaml:"max_messages" env:"MAX_MESSAGES"`
	// Session time-to-live in the store
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	// Enabled toggles trace and metric export
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP endpoint
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// Service name
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// Trace sample rate
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// Loader
// =============================================================================

// Loader loads configuration using the builder pattern.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "AERODESK",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the configuration file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a configuration validator.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load loads the configuration.
// Precedence: defaults, then YAML file, then environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file falls back to defaults.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv applies environment variable overrides.
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv recursively sets struct fields from the environment.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue sets a single field from its string representation.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// Comma separated string slices.
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// MustLoad loads the configuration and panics on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}

	switch c.Router.FallbackSource {
	case "flight", "policy", "web":
	default:
		errs = append(errs, "fallback_source must be flight, policy, or web")
	}

	for _, a := range []struct {
		name string
		cfg  AgentConfig
	}{
		{"flight", c.Agents.Flight},
		{"policy", c.Agents.Policy},
		{"web", c.Agents.Web},
	} {
		if a.cfg.ScoreThreshold < 0 || a.cfg.ScoreThreshold > 1 {
			errs = append(errs, fmt.Sprintf("agents.%s score_threshold must be between 0 and 1", a.name))
		}
		if a.cfg.TopK <= 0 {
			errs = append(errs, fmt.Sprintf("agents.%s top_k must be positive", a.name))
		}
		if a.cfg.Collection == "" {
			errs = append(errs, fmt.Sprintf("agents.%s collection must not be empty", a.name))
		}
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "llm temperature must be between 0 and 2")
	}
	if c.History.MaxMessages <= 0 {
		errs = append(errs, "history max_messages must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
