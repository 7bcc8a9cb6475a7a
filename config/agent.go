package config

import (
	"fmt"

	"deepresearch/config/internal/prompts"
)

// DefaultRetrievalTopK matches the number of chunks the researcher sees per query
const DefaultRetrievalTopK = 5

// Agent represents a role agent definition for the local runtime and for
// "deepresearch agents create" on the hosted runtime
type Agent struct {
	Name         string `hcl:"name,label"`
	Model        string `hcl:"model"`
	// Instructions defaults to the built-in text for the role the agent is
	// named after or bound to in the research block
	Instructions string `hcl:"instructions,optional"`
	// Retrieval grounds the agent's runs in the configured index
	Retrieval bool `hcl:"retrieval,optional"`
	TopK      int  `hcl:"top_k,optional"`
}

// GetTopK returns the retrieval depth, defaulting when unset
func (a *Agent) GetTopK() int {
	if a.TopK <= 0 {
		return DefaultRetrievalTopK
	}
	return a.TopK
}

// Validate checks that the agent configuration is valid
func (a *Agent) Validate() error {
	if a.Model == "" {
		return fmt.Errorf("agent '%s': model is required", a.Name)
	}
	if a.Instructions == "" {
		return fmt.Errorf("agent '%s': instructions are required", a.Name)
	}
	if a.TopK < 0 {
		return fmt.Errorf("agent '%s': top_k must not be negative", a.Name)
	}
	return nil
}

// DefaultInstructions returns the built-in system instructions for the
// planner, researcher or critic role, or "" for any other name
func DefaultInstructions(role string) string {
	return prompts.Instructions(role)
}

// ResolveModel finds the Model config that matches this agent's model key
func (a *Agent) ResolveModel(models []Model) (*Model, string, error) {
	for i := range models {
		m := &models[i]
		supportedModels, ok := SupportedModels[m.Provider]
		if !ok || !m.Allows(a.Model) {
			continue
		}
		actualModel, ok := supportedModels[a.Model]
		if !ok {
			return nil, "", fmt.Errorf("model key '%s' not found in supported models for provider '%s'", a.Model, m.Provider)
		}
		return m, actualModel, nil
	}

	return nil, "", fmt.Errorf("no model config found for model '%s'", a.Model)
}
