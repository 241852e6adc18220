// Package retrieval provides the vector search boundary: an Embedder that
// turns query text into vectors and a Client that searches per-source
// collections in the external Weaviate index. The query path only reads
// from the index; ingestion is handled by a separate process.
package retrieval
