package runtimes

import (
	"context"
	"fmt"

	"deepresearch/config"
	"deepresearch/llm"
)

// LocalAgentsFromConfig resolves every agent block to a provider-backed LocalAgent.
// Agents sharing a model block share one provider.
func LocalAgentsFromConfig(ctx context.Context, cfg *config.Config) ([]LocalAgent, error) {
	providers := make(map[string]llm.Provider)
	agents := make([]LocalAgent, 0, len(cfg.Agents))

	for _, a := range cfg.Agents {
		modelCfg, modelName, err := a.ResolveModel(cfg.Models)
		if err != nil {
			return nil, fmt.Errorf("agent '%s': %w", a.Name, err)
		}

		provider, ok := providers[modelCfg.Name]
		if !ok {
			provider, err = llm.NewProvider(ctx, modelCfg)
			if err != nil {
				return nil, fmt.Errorf("creating provider for model '%s': %w", modelCfg.Name, err)
			}
			providers[modelCfg.Name] = provider
		}

		agents = append(agents, LocalAgent{
			ID:           a.Name,
			Model:        modelName,
			Instructions: a.Instructions,
			Provider:     provider,
			Retrieval:    a.Retrieval,
			TopK:         a.GetTopK(),
		})
	}
	return agents, nil
}
