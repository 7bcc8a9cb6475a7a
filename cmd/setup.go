package cmd

import (
	"context"
	"fmt"

	"deepresearch/agent"
	"deepresearch/config"
	"deepresearch/index"
	"deepresearch/llm"
	"deepresearch/runtimes"
	"deepresearch/store"

	"github.com/hashicorp/go-hclog"
)

// openIndex opens the configured index together with the embedder that feeds it
func openIndex(cfg *config.Config, logger hclog.Logger) (index.Index, *llm.OpenAIEmbedder, error) {
	if err := cfg.RequireIndex(); err != nil {
		return nil, nil, err
	}
	idx, err := index.New(cfg.Index, logger.Named("index"))
	if err != nil {
		return nil, nil, err
	}
	embedder := llm.NewOpenAIEmbedder(
		cfg.Index.EmbeddingAPIKey,
		cfg.Index.EmbeddingBaseURL,
		cfg.Index.EmbeddingModel,
		cfg.Index.Dimensions,
	)
	return idx, embedder, nil
}

// buildRuntime creates the agent runtime selected by the research block.
// The returned cleanup releases the runtime and any index it opened.
func buildRuntime(ctx context.Context, cfg *config.Config, threads store.ThreadStore, logger hclog.Logger) (agent.Runtime, func(), error) {
	switch cfg.Research.Runtime {
	case config.RuntimeAssistants:
		rt := runtimes.NewAssistants(cfg.Research.APIKey, cfg.Research.BaseURL, logger.Named("runtime"))
		return rt, func() {}, nil

	case config.RuntimeLocal:
		agents, err := runtimes.LocalAgentsFromConfig(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}

		opts := runtimes.LocalOptions{Threads: threads, Logger: logger.Named("runtime")}
		var idx index.Index
		for _, a := range agents {
			if !a.Retrieval {
				continue
			}
			var embedder *llm.OpenAIEmbedder
			idx, embedder, err = openIndex(cfg, logger)
			if err != nil {
				return nil, nil, err
			}
			opts.Retriever = index.NewRetriever(idx, embedder, logger.Named("retriever"))
			break
		}

		rt, err := runtimes.NewLocal(agents, opts)
		if err != nil {
			if idx != nil {
				idx.Close()
			}
			return nil, nil, err
		}
		cleanup := func() {
			rt.Close()
			if idx != nil {
				idx.Close()
			}
		}
		return rt, cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown runtime '%s'", cfg.Research.Runtime)
	}
}
