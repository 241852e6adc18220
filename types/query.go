package types

import "time"

// SourceType identifies a retrieval data source.
type SourceType string

const (
	SourceFlight SourceType = "flight" // Flight-status XML snapshots
	SourcePolicy SourceType = "policy" // Policy and regulation documents
	SourceWeb    SourceType = "web"    // Scraped web notices and links
)

// IntentLabel is the routing classification of a user query.
type IntentLabel string

const (
	IntentFlightStatus IntentLabel = "XML_FLIGHT_STATUS"
	IntentPolicy       IntentLabel = "POLICY_DOCUMENT"
	IntentWebNotice    IntentLabel = "WEB_NOTICE"
	IntentMultiSource  IntentLabel = "MULTI_SOURCE"
	IntentUnknown      IntentLabel = "UNKNOWN"
)

// Query is a single user question. All per-request state is derived from it
// and discarded once the answer is returned.
type Query struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// RetrievedChunk is one ranked retrieval result from a source collection.
// Score is cosine-similarity-like in [0,1]; adapters drop chunks below
// their configured threshold before the chunk ever reaches the merge.
type RetrievedChunk struct {
	Source  SourceType `json:"source"`
	DocID   string     `json:"doc_id"`
	Content string     `json:"content"`
	Score   float64    `json:"score"`
}

// MergedContext is the deduplicated, source-ordered chunk sequence handed to
// the synthesizer. Chunks are grouped by source in a fixed priority order so
// prompts stay deterministic regardless of adapter completion order.
type MergedContext struct {
	Chunks     []RetrievedChunk `json:"chunks"`
	Sources    []SourceType     `json:"sources"`
	TokenCount int              `json:"token_count"`
	Truncated  bool             `json:"truncated"`
}

// Empty reports whether no chunk survived thresholding and merging.
func (m *MergedContext) Empty() bool {
	return m == nil || len(m.Chunks) == 0
}

// BySource returns the merged chunks originating from one source.
func (m *MergedContext) BySource(source SourceType) []RetrievedChunk {
	var out []RetrievedChunk
	for _, c := range m.Chunks {
		if c.Source == source {
			out = append(out, c)
		}
	}
	return out
}

// Citation names one document that contributed grounding to an answer.
type Citation struct {
	Source SourceType `json:"source"`
	DocID  string     `json:"doc_id"`
}

// Answer is the final response for one query.
// Confidence holds the max surviving chunk score per contributing source.
type Answer struct {
	Text       string                 `json:"text"`
	Intent     IntentLabel            `json:"intent"`
	Citations  []Citation             `json:"citations,omitempty"`
	Confidence map[SourceType]float64 `json:"confidence,omitempty"`
	Grounded   bool                   `json:"grounded"`
	CreatedAt  time.Time              `json:"created_at"`
}

// AgentTrace records one adapter invocation for the routing trace.
type AgentTrace struct {
	Source   SourceType    `json:"source"`
	Chunks   int           `json:"chunks"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// RouteTrace is the per-request diagnostic record of the supervisor's
// decision: which rule families matched and what each dispatched agent
// returned. It is returned to the caller alongside the answer.
type RouteTrace struct {
	Intent   IntentLabel  `json:"intent"`
	Families []string     `json:"families,omitempty"`
	Fallback bool         `json:"fallback,omitempty"`
	Agents   []AgentTrace `json:"agents,omitempty"`
}
