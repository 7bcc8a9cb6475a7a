package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"deepresearch/agent"
	"deepresearch/config"
	"deepresearch/runtimes"

	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage hosted research assistants",
}

var agentsModel string

var agentsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the planner, researcher and critic assistants",
	Long: `Create registers one hosted assistant per research role and prints their ids
as environment assignments ready for a .env file. An agent block named after a
role supplies its model and instructions; roles without a block use --model and
the built-in instructions.`,
	Args: cobra.NoArgs,
	RunE: runAgentsCreate,
}

func runAgentsCreate(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnvForConfig(configPath); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	apiKey := os.Getenv(config.EnvOpenAIAPIKey)
	baseURL := ""
	if cfg.Research != nil {
		if cfg.Research.APIKey != "" {
			apiKey = cfg.Research.APIKey
		}
		baseURL = cfg.Research.BaseURL
	}
	if apiKey == "" {
		return config.Missing("research.api_key (" + config.EnvOpenAIAPIKey + ")")
	}
	logger := newLogger()

	rt := runtimes.NewAssistants(apiKey, baseURL, logger.Named("runtime"))
	ctx := context.Background()

	envNames := map[agent.Role]string{
		agent.RolePlanner:    config.EnvPlannerAgent,
		agent.RoleResearcher: config.EnvResearcherAgent,
		agent.RoleCritic:     config.EnvCriticAgent,
	}

	for _, role := range agent.Roles {
		model, instructions, err := assistantParams(cfg, role)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Creating %s assistant...\n", role)
		id, err := rt.CreateAssistant(ctx, "Deep-Research-"+roleTitle(role), model, instructions)
		if err != nil {
			return err
		}
		fmt.Printf("%s=%s\n", envNames[role], id)
	}
	return nil
}

// assistantParams picks the model and instructions for a role's assistant
func assistantParams(cfg *config.Config, role agent.Role) (string, string, error) {
	a, err := cfg.GetAgent(role.String())
	if err != nil {
		return agentsModel, config.DefaultInstructions(role.String()), nil
	}
	_, model, err := a.ResolveModel(cfg.Models)
	if err != nil {
		return "", "", err
	}
	return model, a.Instructions, nil
}

func roleTitle(role agent.Role) string {
	s := role.String()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func init() {
	rootCmd.AddCommand(agentsCmd)
	agentsCmd.AddCommand(agentsCreateCmd)
	agentsCreateCmd.Flags().StringVarP(&configPath, "config", "c", ".", "Path to config file or directory")
	agentsCreateCmd.Flags().StringVar(&agentsModel, "model", "gpt-4o", "Model for roles without an agent block")
}
