package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type RuntimeKind string

const (
	// RuntimeLocal runs agents in-process against the configured models
	RuntimeLocal RuntimeKind = "local"
	// RuntimeAssistants runs agents as hosted assistants (threads and runs)
	RuntimeAssistants RuntimeKind = "assistants"
)

const (
	DefaultMaxIterations = 3
	DefaultPollInterval  = time.Second
)

// Environment overrides recognised on top of the research block
const (
	EnvMaxIterations   = "MAX_RESEARCH_ITERATIONS"
	EnvPlannerAgent    = "PLANNER_AGENT_ID"
	EnvResearcherAgent = "RESEARCHER_AGENT_ID"
	EnvCriticAgent     = "CRITIC_AGENT_ID"
	// EnvOpenAIAPIKey supplies research.api_key for the assistants runtime when the block leaves it empty
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// Research configures the planner/researcher/critic loop and the runtime it talks to.
// For the local runtime the role fields name agent blocks (agents.planner); for the
// assistants runtime they hold hosted assistant ids.
type Research struct {
	Runtime       RuntimeKind `hcl:"runtime,optional"`
	Planner       string      `hcl:"planner,optional"`
	Researcher    string      `hcl:"researcher,optional"`
	Critic        string      `hcl:"critic,optional"`
	MaxIterations int         `hcl:"max_iterations,optional"`
	PollInterval  string      `hcl:"poll_interval,optional"`
	RunTimeout    string      `hcl:"run_timeout,optional"`

	// Hosted runtime credentials
	APIKey  string `hcl:"api_key,optional"`
	BaseURL string `hcl:"base_url,optional"`
}

// Defaults fills in default values for unset fields
func (r *Research) Defaults() {
	if r.Runtime == "" {
		r.Runtime = RuntimeLocal
	}
	if r.MaxIterations == 0 {
		r.MaxIterations = DefaultMaxIterations
	}
}

// ApplyEnv overlays the environment overrides onto the block
func (r *Research) ApplyEnv() error {
	if raw, ok := os.LookupEnv(EnvMaxIterations); ok && strings.TrimSpace(raw) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 1 {
			return Invalid("%s must be a positive integer, got %q", EnvMaxIterations, raw)
		}
		r.MaxIterations = n
	}
	if v := os.Getenv(EnvPlannerAgent); v != "" {
		r.Planner = v
	}
	if v := os.Getenv(EnvResearcherAgent); v != "" {
		r.Researcher = v
	}
	if v := os.Getenv(EnvCriticAgent); v != "" {
		r.Critic = v
	}
	if r.Runtime == RuntimeAssistants && r.APIKey == "" {
		r.APIKey = os.Getenv(EnvOpenAIAPIKey)
	}
	return nil
}

// GetPollInterval returns the delay between run status checks
func (r *Research) GetPollInterval() time.Duration {
	d, _ := parseDuration(r.PollInterval, DefaultPollInterval)
	return d
}

// GetRunTimeout returns the per-run timeout enforced by the port (0 = none)
func (r *Research) GetRunTimeout() time.Duration {
	d, _ := parseDuration(r.RunTimeout, 0)
	return d
}

// Validate checks the research block against the declared agents.
// Every missing setting is reported in a single ConfigurationError.
func (r *Research) Validate(agents []Agent) error {
	var missing []string
	if r.Planner == "" {
		missing = append(missing, "research.planner ("+EnvPlannerAgent+")")
	}
	if r.Researcher == "" {
		missing = append(missing, "research.researcher ("+EnvResearcherAgent+")")
	}
	if r.Critic == "" {
		missing = append(missing, "research.critic ("+EnvCriticAgent+")")
	}
	if r.Runtime == RuntimeAssistants && r.APIKey == "" {
		missing = append(missing, "research.api_key ("+EnvOpenAIAPIKey+")")
	}
	if len(missing) > 0 {
		return Missing(missing...)
	}

	if r.MaxIterations < 1 {
		return Invalid("research.max_iterations must be a positive integer, got %d", r.MaxIterations)
	}
	if _, err := parseDuration(r.PollInterval, DefaultPollInterval); err != nil {
		return Invalid("research.poll_interval: %v", err)
	}
	if _, err := parseDuration(r.RunTimeout, 0); err != nil {
		return Invalid("research.run_timeout: %v", err)
	}

	switch r.Runtime {
	case RuntimeLocal:
		for _, ref := range []string{r.Planner, r.Researcher, r.Critic} {
			if !hasAgent(agents, ref) {
				return Invalid("research: agent '%s' is not defined", ref)
			}
		}
	case RuntimeAssistants:
	default:
		return Invalid("research.runtime: unknown runtime '%s' (expected 'local' or 'assistants')", r.Runtime)
	}
	return nil
}

func hasAgent(agents []Agent, name string) bool {
	for _, a := range agents {
		if a.Name == name {
			return true
		}
	}
	return false
}

func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, err
	}
	if d < 0 {
		return def, fmt.Errorf("duration must not be negative: %s", raw)
	}
	return d, nil
}
