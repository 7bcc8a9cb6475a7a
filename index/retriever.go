package index

import (
	"context"
	"fmt"
	"strings"

	"deepresearch/llm"

	"github.com/hashicorp/go-hclog"
)

// Retriever answers text queries against an index by embedding them first
type Retriever struct {
	index    Index
	embedder llm.Embedder
	logger   hclog.Logger
}

func NewRetriever(idx Index, embedder llm.Embedder, logger hclog.Logger) *Retriever {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Retriever{index: idx, embedder: embedder, logger: logger}
}

// Retrieve returns the topK chunks most similar to query
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]Result, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := r.index.Search(ctx, vector, topK)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("retrieved chunks", "count", len(results), "top_k", topK)
	return results, nil
}

// Context renders the topK matches for query as a numbered source list.
// It returns an empty string when nothing matches.
func (r *Retriever) Context(ctx context.Context, query string, topK int) (string, error) {
	results, err := r.Retrieve(ctx, query, topK)
	if err != nil {
		return "", err
	}
	return FormatResults(results), nil
}

// FormatResults renders search results for inclusion in a prompt
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Search results from the document index:\n")
	for i, res := range results {
		sb.WriteString(fmt.Sprintf("\n[%d] %s (chunk %d)\n%s\n", i+1, res.FileName, res.ChunkNo, res.Content))
	}
	return sb.String()
}
