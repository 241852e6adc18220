// Package aerodesk provides a top-level convenience entry point for building
// the query pipeline with minimal boilerplate.
//
// Usage:
//
//	import "github.com/aerodesk-ai/aerodesk"
//
//	engine, err := aerodesk.New(aerodesk.WithConfig(cfg))
//	answer, trace, err := engine.Ask(ctx, types.Query{SessionID: "s1", Text: "baggage rules?"})
//
// The engine wires the entity normalizer, the supervisor router with its
// three retrieval agents, the merger, and the synthesizer from the given
// configuration. Callers who need custom transports (tests, alternate
// vector stores) can inject them via [WithRetrievalClient] and
// [WithProvider].
package aerodesk

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aerodesk-ai/aerodesk/agent"
	"github.com/aerodesk-ai/aerodesk/answer"
	"github.com/aerodesk-ai/aerodesk/chat"
	"github.com/aerodesk-ai/aerodesk/config"
	"github.com/aerodesk-ai/aerodesk/internal/history"
	"github.com/aerodesk-ai/aerodesk/internal/metrics"
	"github.com/aerodesk-ai/aerodesk/llm"
	"github.com/aerodesk-ai/aerodesk/normalize"
	"github.com/aerodesk-ai/aerodesk/retrieval"
	"github.com/aerodesk-ai/aerodesk/router"
	"github.com/aerodesk-ai/aerodesk/types"
)

type options struct {
	cfg      *config.Config
	logger   *zap.Logger
	history  history.Store
	metrics  *metrics.Collector
	client   retrieval.Client
	provider llm.Provider
}

// Option configures the engine created by [New].
type Option func(*options)

// WithConfig sets the configuration. Defaults to [config.DefaultConfig].
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHistory sets the conversation history store. Nil disables memory.
func WithHistory(store history.Store) Option {
	return func(o *options) { o.history = store }
}

// WithMetrics sets the metrics collector. Nil disables recording.
func WithMetrics(collector *metrics.Collector) Option {
	return func(o *options) { o.metrics = collector }
}

// WithRetrievalClient overrides the vector search client shared by the
// retrieval agents. Defaults to a Weaviate client built from the config.
func WithRetrievalClient(client retrieval.Client) Option {
	return func(o *options) { o.client = client }
}

// WithProvider overrides the chat completion provider used by the
// synthesizer. Defaults to an OpenAI-compatible client built from the config.
func WithProvider(provider llm.Provider) Option {
	return func(o *options) { o.provider = provider }
}

// New builds a ready-to-use [chat.Engine] from the options.
func New(opts ...Option) (*chat.Engine, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg == nil {
		o.cfg = config.DefaultConfig()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	rules := normalize.DefaultRules()
	if o.cfg.Normalizer.AliasFile != "" {
		loaded, err := normalize.LoadRules(o.cfg.Normalizer.AliasFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load alias rules: %w", err)
		}
		rules = loaded
	}
	normalizer, err := normalize.New(rules, o.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build normalizer: %w", err)
	}

	client := o.client
	if client == nil {
		embedder := retrieval.NewOpenAIEmbedder(o.cfg.Embedding, o.logger)
		client = retrieval.NewWeaviateClient(o.cfg.Weaviate, embedder, o.logger)
	}

	adapters := []agent.Adapter{
		agent.NewSourceAgent(types.SourceFlight, o.cfg.Agents.Flight, client, o.logger),
		agent.NewSourceAgent(types.SourcePolicy, o.cfg.Agents.Policy, client, o.logger),
		agent.NewSourceAgent(types.SourceWeb, o.cfg.Agents.Web, client, o.logger),
	}

	supervisor := router.NewSupervisor(
		router.DefaultFamilies(),
		adapters,
		types.SourceType(o.cfg.Router.FallbackSource),
		o.cfg.Router.AgentTimeout,
		o.logger,
	)

	counter := answer.NewTokenCounter("", o.logger)
	merger := answer.NewMerger(o.cfg.LLM.MaxContextTokens, counter, o.logger)

	provider := o.provider
	if provider == nil {
		provider = llm.NewOpenAIProvider(o.cfg.LLM, o.logger)
	}
	synthesizer := answer.NewSynthesizer(provider, o.cfg.LLM.MaxRetries, o.logger)

	return chat.NewEngine(normalizer, supervisor, merger, synthesizer, chat.Options{
		History:      o.history,
		HistoryLimit: o.cfg.History.MaxMessages,
		Metrics:      o.metrics,
	}, o.logger), nil
}
