// =============================================================================
// AeroDesk default configuration
// =============================================================================
// Sensible defaults for every configuration section.
// =============================================================================
package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Log:        DefaultLogConfig(),
		Redis:      DefaultRedisConfig(),
		Weaviate:   DefaultWeaviateConfig(),
		Embedding:  DefaultEmbeddingConfig(),
		LLM:        DefaultLLMConfig(),
		Router:     DefaultRouterConfig(),
		Normalizer: NormalizerConfig{},
		Agents:     DefaultAgentsConfig(),
		History:    DefaultHistoryConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9090,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultWeaviateConfig returns the default Weaviate configuration.
func DefaultWeaviateConfig() WeaviateConfig {
	return WeaviateConfig{
		Host:    "localhost",
		Port:    8080,
		Scheme:  "http",
		APIKey:  "",
		Timeout: 30 * time.Second,
	}
}

// DefaultEmbeddingConfig returns the default embedding configuration.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		BaseURL:   "",
		Model:     "text-embedding-3-small",
		Dimension: 1536,
		Timeout:   30 * time.Second,
	}
}

// DefaultLLMConfig returns the default chat completion configuration.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:          "",
		Model:            "gpt-4o-mini",
		Temperature:      0.2,
		MaxTokens:        1024,
		MaxContextTokens: 4096,
		Timeout:          2 * time.Minute,
		MaxRetries:       1,
	}
}

// DefaultRouterConfig returns the default routing configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		AgentTimeout:   10 * time.Second,
		FallbackSource: "policy",
	}
}

// DefaultAgentsConfig returns the default per-source agent configuration.
func DefaultAgentsConfig() AgentsConfig {
	return AgentsConfig{
		Flight: AgentConfig{
			Collection:     "FlightStatus",
			ScoreThreshold: 0.6,
			TopK:           5,
		},
		Policy: AgentConfig{
			Collection:     "PolicyDocument",
			ScoreThreshold: 0.6,
			TopK:           5,
		},
		Web: AgentConfig{
			Collection:     "WebNotice",
			ScoreThreshold: 0.7,
			TopK:           5,
		},
	}
}

// DefaultHistoryConfig returns the default conversation memory configuration.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		MaxMessages: 10,
		TTL:         24 * time.Hour,
	}
}

// DefaultTelemetryConfig returns the default telemetry configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "aerodesk",
		SampleRate:   0.1,
	}
}
