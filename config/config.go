package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Config holds all configuration
type Config struct {
	Variables []Variable
	Models    []Model
	Agents    []Agent
	Research  *Research
	Index     *Index
	Analyzer  *Analyzer
	Storage   *StorageConfig

	// ResolvedVars holds the resolved variable values for runtime use
	ResolvedVars map[string]cty.Value
}

func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadAndValidate loads the config and validates all components
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all config components are valid. Missing settings
// from every block are gathered into a single ConfigurationError; any other
// problem is returned as soon as it is found.
func (c *Config) Validate() error {
	var missing []string
	check := func(err error) error {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) && cfgErr.Reason == "" && len(cfgErr.Missing) > 0 {
			missing = append(missing, cfgErr.Missing...)
			return nil
		}
		return err
	}

	for _, m := range c.Models {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("model '%s': %w", m.Name, err)
		}
	}

	for _, v := range c.Variables {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("variable '%s': %w", v.Name, err)
		}
	}

	for _, a := range c.Agents {
		if err := a.Validate(); err != nil {
			return err
		}
		m, _, err := a.ResolveModel(c.Models)
		if err != nil {
			return fmt.Errorf("agent '%s': %w", a.Name, err)
		}
		if m.APIKey == "" {
			name := fmt.Sprintf("model '%s' api_key", m.Name)
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
		}
	}

	if c.Research == nil {
		missing = append(missing, "research")
	} else if err := check(c.Research.Validate(c.Agents)); err != nil {
		return err
	}

	if c.Research != nil && c.Research.Runtime == RuntimeLocal && c.usesRetrieval() {
		if err := check(c.RequireIndex()); err != nil {
			return err
		}
	} else if c.Index != nil {
		if err := check(c.Index.Validate()); err != nil {
			return err
		}
	}

	if c.Analyzer != nil {
		if err := check(c.Analyzer.Validate()); err != nil {
			return err
		}
	}

	if c.Storage != nil {
		if err := check(c.Storage.Validate()); err != nil {
			return err
		}
	}

	if len(missing) > 0 {
		return Missing(missing...)
	}
	return nil
}

// RequireIndex reports a ConfigurationError when no usable index block is present
func (c *Config) RequireIndex() error {
	if c.Index == nil {
		return Missing("index")
	}
	return c.Index.Validate()
}

// RequireAnalyzer reports a ConfigurationError when no usable analyzer block is present
func (c *Config) RequireAnalyzer() error {
	if c.Analyzer == nil {
		return Missing("analyzer")
	}
	return c.Analyzer.Validate()
}

// GetAgent returns the agent block with the given name
func (c *Config) GetAgent(name string) (*Agent, error) {
	for i := range c.Agents {
		if c.Agents[i].Name == name {
			return &c.Agents[i], nil
		}
	}
	return nil, fmt.Errorf("agent '%s' not found", name)
}

func (c *Config) usesRetrieval() bool {
	for _, a := range c.Agents {
		if a.Retrieval {
			return true
		}
	}
	return false
}

func LoadFile(filename string) (*Config, error) {
	return loadFromFiles([]string{filename})
}

func LoadDir(dir string) (*Config, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.hcl"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %s", dir)
	}
	return loadFromFiles(files)
}

// parsedBlocks holds all blocks extracted from a file in one pass
type parsedBlocks struct {
	Variables []*hcl.Block
	Models    []*hcl.Block
	Agents    []*hcl.Block
	Singles   map[string][]*hcl.Block
}

// singletonBlocks may appear at most once across all files
var singletonBlocks = []string{"research", "index", "analyzer", "storage"}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "variable", LabelNames: []string{"name"}},
		{Type: "model", LabelNames: []string{"name"}},
		{Type: "agent", LabelNames: []string{"name"}},
		{Type: "research"},
		{Type: "index"},
		{Type: "analyzer"},
		{Type: "storage"},
	},
}

// loadFromFiles implements staged loading: variables → models → agents → research/index/analyzer/storage
func loadFromFiles(files []string) (*Config, error) {
	parser := hclparse.NewParser()
	var allParsedBlocks []parsedBlocks

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %s: %w", file, diags)
		}

		content, diags := hclFile.Body.Content(fileSchema)
		if diags.HasErrors() {
			return nil, fmt.Errorf("content %s: %w", file, diags)
		}

		pb := parsedBlocks{Singles: make(map[string][]*hcl.Block)}
		for _, block := range content.Blocks {
			switch block.Type {
			case "variable":
				pb.Variables = append(pb.Variables, block)
			case "model":
				pb.Models = append(pb.Models, block)
			case "agent":
				pb.Agents = append(pb.Agents, block)
			default:
				pb.Singles[block.Type] = append(pb.Singles[block.Type], block)
			}
		}
		allParsedBlocks = append(allParsedBlocks, pb)
	}

	singles := make(map[string]*hcl.Block)
	for _, name := range singletonBlocks {
		for _, pb := range allParsedBlocks {
			for _, block := range pb.Singles[name] {
				if prev, dup := singles[name]; dup {
					return nil, fmt.Errorf("duplicate %s block at %s (first defined at %s)", name, block.DefRange, prev.DefRange)
				}
				singles[name] = block
			}
		}
	}

	// Stage 1: Load variables (no context needed)
	var allVars []Variable
	seenVars := make(map[string]bool)
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Variables {
			var v Variable
			v.Name = block.Labels[0]
			diags := gohcl.DecodeBody(block.Body, nil, &v)
			if diags.HasErrors() {
				return nil, fmt.Errorf("decode variable %s: %w", v.Name, diags)
			}
			if seenVars[v.Name] {
				return nil, fmt.Errorf("duplicate variable '%s'", v.Name)
			}
			seenVars[v.Name] = true
			allVars = append(allVars, v)
		}
	}

	varsCtx, resolvedVars, err := buildVarsContext(allVars)
	if err != nil {
		return nil, err
	}

	// Stage 2: Load models (with vars context)
	var allModels []Model
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Models {
			var m Model
			m.Name = block.Labels[0]
			diags := gohcl.DecodeBody(block.Body, varsCtx, &m)
			if diags.HasErrors() {
				return nil, fmt.Errorf("decode model %s: %w", m.Name, diags)
			}
			allModels = append(allModels, m)
		}
	}

	modelsCtx := buildModelsContext(varsCtx, allModels)

	// Stage 3: Load agents (with vars + models context)
	var allAgents []Agent
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Agents {
			var a Agent
			a.Name = block.Labels[0]
			diags := gohcl.DecodeBody(block.Body, modelsCtx, &a)
			if diags.HasErrors() {
				return nil, fmt.Errorf("decode agent %s: %w", a.Name, diags)
			}
			allAgents = append(allAgents, a)
		}
	}

	agentsCtx := buildAgentsContext(modelsCtx, allAgents)

	// Stage 4: Load singleton blocks (with the full context)
	cfg := &Config{
		Variables:    allVars,
		Models:       allModels,
		Agents:       allAgents,
		Storage:      &StorageConfig{},
		ResolvedVars: resolvedVars,
	}

	if block, ok := singles["research"]; ok {
		cfg.Research = &Research{}
		if diags := gohcl.DecodeBody(block.Body, agentsCtx, cfg.Research); diags.HasErrors() {
			return nil, fmt.Errorf("decode research: %w", diags)
		}
	} else if hasResearchEnv() {
		// Bindings from the environment are hosted assistant ids
		cfg.Research = &Research{Runtime: RuntimeAssistants}
	}
	if cfg.Research != nil {
		cfg.Research.Defaults()
		if err := cfg.Research.ApplyEnv(); err != nil {
			return nil, err
		}
	}

	applyDefaultInstructions(cfg)

	if block, ok := singles["index"]; ok {
		cfg.Index = &Index{}
		if diags := gohcl.DecodeBody(block.Body, varsCtx, cfg.Index); diags.HasErrors() {
			return nil, fmt.Errorf("decode index: %w", diags)
		}
		cfg.Index.Defaults()
	}

	if block, ok := singles["analyzer"]; ok {
		cfg.Analyzer = &Analyzer{}
		if diags := gohcl.DecodeBody(block.Body, varsCtx, cfg.Analyzer); diags.HasErrors() {
			return nil, fmt.Errorf("decode analyzer: %w", diags)
		}
		cfg.Analyzer.Defaults()
	}

	if block, ok := singles["storage"]; ok {
		if diags := gohcl.DecodeBody(block.Body, varsCtx, cfg.Storage); diags.HasErrors() {
			return nil, fmt.Errorf("decode storage: %w", diags)
		}
	}
	cfg.Storage.Defaults()

	return cfg, nil
}

// applyDefaultInstructions fills in the built-in role instructions for agent
// blocks that leave them out. The role comes from the block name first, then
// from the research binding that points at it.
func applyDefaultInstructions(cfg *Config) {
	roles := map[string]string{}
	if cfg.Research != nil && cfg.Research.Runtime == RuntimeLocal {
		roles[cfg.Research.Planner] = "planner"
		roles[cfg.Research.Researcher] = "researcher"
		roles[cfg.Research.Critic] = "critic"
	}
	for i := range cfg.Agents {
		a := &cfg.Agents[i]
		if a.Instructions != "" {
			continue
		}
		if text := DefaultInstructions(a.Name); text != "" {
			a.Instructions = text
		} else if role, ok := roles[a.Name]; ok {
			a.Instructions = DefaultInstructions(role)
		}
	}
}

// hasResearchEnv reports whether the role bindings come entirely from the environment
func hasResearchEnv() bool {
	return os.Getenv(EnvPlannerAgent) != "" || os.Getenv(EnvResearcherAgent) != "" || os.Getenv(EnvCriticAgent) != ""
}

// buildVarsContext creates context with just vars
func buildVarsContext(vars []Variable) (*hcl.EvalContext, map[string]cty.Value, error) {
	fileVars, err := LoadVarsFromFile()
	if err != nil {
		return nil, nil, fmt.Errorf("load vars file: %w", err)
	}

	varsMap := make(map[string]cty.Value)
	for i := range vars {
		varsMap[vars[i].Name] = cty.StringVal(ResolveVariableValue(&vars[i], fileVars))
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"vars": cty.ObjectVal(varsMap),
		},
	}, varsMap, nil
}

// buildModelsContext adds models to existing context
func buildModelsContext(ctx *hcl.EvalContext, models []Model) *hcl.EvalContext {
	modelsMap := make(map[string]cty.Value)
	for _, m := range models {
		providerModels := make(map[string]cty.Value)
		for _, modelKey := range m.AllowedModels {
			providerModels[modelKey] = cty.StringVal(modelKey)
		}
		modelsMap[m.Name] = cty.ObjectVal(providerModels)
	}
	return extendContext(ctx, "models", cty.ObjectVal(modelsMap))
}

// buildAgentsContext adds agents namespace to existing context
// Creates agents.{agent_name} references
func buildAgentsContext(ctx *hcl.EvalContext, agents []Agent) *hcl.EvalContext {
	agentsMap := make(map[string]cty.Value)
	for _, a := range agents {
		agentsMap[a.Name] = cty.StringVal(a.Name)
	}
	return extendContext(ctx, "agents", cty.ObjectVal(agentsMap))
}

func extendContext(ctx *hcl.EvalContext, name string, value cty.Value) *hcl.EvalContext {
	newVars := make(map[string]cty.Value, len(ctx.Variables)+1)
	for k, v := range ctx.Variables {
		newVars[k] = v
	}
	newVars[name] = value
	return &hcl.EvalContext{Variables: newVars}
}
