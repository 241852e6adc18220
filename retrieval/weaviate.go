package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aerodesk-ai/aerodesk/config"
	"github.com/aerodesk-ai/aerodesk/types"
)

// WeaviateClient implements Client against Weaviate's REST and GraphQL
// APIs. Each data source maps to its own Weaviate class; the class name
// is passed per search as the collection. Query text is embedded with
// the configured Embedder before the nearVector search.
type WeaviateClient struct {
	cfg      config.WeaviateConfig
	embedder Embedder

	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewWeaviateClient creates a Weaviate-backed retrieval client.
func NewWeaviateClient(cfg config.WeaviateConfig, embedder Embedder, logger *zap.Logger) *WeaviateClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &WeaviateClient{
		cfg:      cfg,
		embedder: embedder,
		baseURL:  fmt.Sprintf("%s://%s:%d", cfg.Scheme, cfg.Host, cfg.Port),
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger.With(zap.String("component", "weaviate_client")),
	}
}

// Search embeds the query and performs a nearVector search against the
// given collection. Results are ordered by descending score.
func (c *WeaviateClient) Search(ctx context.Context, collection, queryText string, topK int) ([]SearchResult, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, types.NewError(types.ErrRetrieval, "collection is required")
	}
	if topK <= 0 {
		return []SearchResult{}, nil
	}

	vector, err := c.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, err
	}

	query := c.buildSearchQuery(collection, vector, topK)
	results, err := c.executeGraphQL(ctx, collection, query)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("weaviate search completed",
		zap.String("collection", collection),
		zap.Int("results", len(results)))
	return results, nil
}

// buildSearchQuery builds the GraphQL nearVector query.
func (c *WeaviateClient) buildSearchQuery(collection string, vector []float64, topK int) map[string]any {
	graphql := fmt.Sprintf(`{
		Get {
			%s(
				nearVector: {
					vector: %s
				}
				limit: %d
			) {
				docId
				content
				_additional {
					id
					distance
					certainty
				}
			}
		}
	}`, collection, formatVector(vector), topK)

	return map[string]any{
		"query": graphql,
	}
}

// executeGraphQL runs a GraphQL query and parses the hits for collection.
func (c *WeaviateClient) executeGraphQL(ctx context.Context, collection string, query map[string]any) ([]SearchResult, error) {
	var resp struct {
		Data struct {
			Get map[string][]struct {
				DocID      string `json:"docId"`
				Content    string `json:"content"`
				Additional struct {
					ID        string   `json:"id"`
					Distance  *float64 `json:"distance"`
					Certainty *float64 `json:"certainty"`
				} `json:"_additional"`
			} `json:"Get"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}

	if err := c.doJSON(ctx, http.MethodPost, "/v1/graphql", query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, types.NewError(types.ErrRetrieval,
			fmt.Sprintf("weaviate graphql error: %s", resp.Errors[0].Message))
	}

	hits := resp.Data.Get[collection]
	out := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		// Certainty is already in [0,1]; cosine distance converts the
		// same way when certainty is absent.
		var score float64
		if h.Additional.Certainty != nil {
			score = *h.Additional.Certainty
		} else if h.Additional.Distance != nil {
			score = 1.0 - *h.Additional.Distance
		}
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}

		docID := h.DocID
		if docID == "" {
			docID = h.Additional.ID
		}

		out = append(out, SearchResult{
			DocID:   docID,
			Content: h.Content,
			Score:   score,
		})
	}

	return out, nil
}

// Ready probes the Weaviate readiness endpoint.
func (c *WeaviateClient) Ready(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/v1/.well-known/ready", nil, nil)
}

// doJSON performs a JSON HTTP request against Weaviate.
func (c *WeaviateClient) doJSON(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return types.NewError(types.ErrRetrieval, "weaviate marshal request").WithCause(err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return types.NewError(types.ErrRetrieval, "weaviate create request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.cfg.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return types.NewError(types.ErrRetrieval, "weaviate request failed").
			WithCause(err).
			WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return types.NewError(types.ErrRetrieval,
			fmt.Sprintf("weaviate request failed: method=%s path=%s status=%d body=%s",
				method, path, resp.StatusCode, string(raw))).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(resp.StatusCode >= 500)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewError(types.ErrRetrieval, "weaviate decode response").WithCause(err)
	}
	return nil
}

// formatVector formats a float64 slice as a GraphQL array literal.
func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%f", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
