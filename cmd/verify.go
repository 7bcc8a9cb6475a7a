package cmd

import (
	"fmt"

	"deepresearch/config"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify that the configuration is valid",
	Long:  `Verify parses and validates the HCL configuration files. Path can be a file or directory.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			configPath = args[0]
		}
		cfg, err := loadConfig()
		exitOnError(err)

		fileVars, err := config.LoadVarsFromFile()
		exitOnError(err)

		// Check for unset variables
		var warnings []string
		for _, v := range cfg.Variables {
			if config.ResolveVariableValue(&v, fileVars) == "" {
				warnings = append(warnings, fmt.Sprintf("variable '%s' has no default and no value set", v.Name))
			}
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Found %d model(s)\n", len(cfg.Models))
		for _, m := range cfg.Models {
			fmt.Printf("  - %s (provider: %s, models: %v)\n", m.Name, m.Provider, m.AllowedModels)
		}
		fmt.Printf("Found %d variable(s)\n", len(cfg.Variables))
		for _, v := range cfg.Variables {
			resolved := config.ResolveVariableValue(&v, fileVars)
			if v.Secret {
				if resolved != "" {
					fmt.Printf("  - %s (secret, set)\n", v.Name)
				} else {
					fmt.Printf("  - %s (secret, not set)\n", v.Name)
				}
			} else {
				fmt.Printf("  - %s = %q\n", v.Name, resolved)
			}
		}
		fmt.Printf("Found %d agent(s)\n", len(cfg.Agents))
		for _, a := range cfg.Agents {
			retrieval := "no retrieval"
			if a.Retrieval {
				retrieval = fmt.Sprintf("retrieval top_k=%d", a.GetTopK())
			}
			fmt.Printf("  - %s (%s)\n", a.Name, retrieval)
		}

		r := cfg.Research
		fmt.Printf("Research: runtime=%s, max_iterations=%d, poll_interval=%s\n", r.Runtime, r.MaxIterations, r.GetPollInterval())
		fmt.Printf("  - planner: %s\n  - researcher: %s\n  - critic: %s\n", r.Planner, r.Researcher, r.Critic)

		if cfg.Index != nil {
			fmt.Printf("Index: %s (collection: %s, embedding: %s)\n", cfg.Index.Backend, cfg.Index.Collection, cfg.Index.EmbeddingModel)
		}
		if cfg.Analyzer != nil {
			fmt.Printf("Analyzer: %s (api version: %s)\n", cfg.Analyzer.AnalyzerID, cfg.Analyzer.APIVersion)
		}
		fmt.Printf("Storage: %s\n", cfg.Storage.Backend)

		if len(warnings) > 0 {
			fmt.Printf("\nWarnings:\n")
			for _, w := range warnings {
				fmt.Printf("  - %s\n", w)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&configPath, "config", "c", ".", "Path to config file or directory")
}
