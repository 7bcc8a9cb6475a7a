package cmd

import (
	"fmt"
	"strings"

	"deepresearch/config"

	"github.com/spf13/cobra"
)

var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "Manage variables",
	Long: `Manage variables stored in ~/.deepresearch/vars.txt (or $DEEPRESEARCH_VARS_FILE).
Values set here take precedence over the environment and over defaults in the config.`,
}

var varsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all variables, masking secrets",
	Run: func(cmd *cobra.Command, args []string) {
		vars, err := config.LoadVarsFromFile()
		exitOnError(err)
		names, err := config.ListVars()
		exitOnError(err)
		if len(names) == 0 {
			fmt.Println("No variables set")
			return
		}

		secrets := declaredSecrets()
		for _, name := range names {
			if secrets[name] || isSecretName(name) {
				fmt.Printf("%s=********\n", name)
			} else {
				fmt.Printf("%s=%s\n", name, vars[name])
			}
		}
	},
}

// declaredSecrets returns the variables marked secret in the config, if one loads
func declaredSecrets() map[string]bool {
	secrets := make(map[string]bool)
	cfg, err := config.Load(configPath)
	if err != nil {
		return secrets
	}
	for _, v := range cfg.Variables {
		if v.Secret {
			secrets[v.Name] = true
		}
	}
	return secrets
}

func isSecretName(name string) bool {
	for _, suffix := range []string{"_key", "_token", "_secret", "_password", "_dsn"} {
		if strings.HasSuffix(strings.ToLower(name), suffix) {
			return true
		}
	}
	return false
}

var varsGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Get a variable value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		value, err := config.GetVar(args[0])
		exitOnError(err)
		fmt.Println(value)
	},
}

var varsSetCmd = &cobra.Command{
	Use:   "set [name] [value]",
	Short: "Set a variable value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(config.SetVar(args[0], args[1]))
		fmt.Printf("Variable '%s' set\n", args[0])
	},
}

var varsDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a variable",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(config.DeleteVar(args[0]))
		fmt.Printf("Variable '%s' deleted\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(varsCmd)
	varsCmd.AddCommand(varsListCmd)
	varsCmd.AddCommand(varsGetCmd)
	varsCmd.AddCommand(varsSetCmd)
	varsCmd.AddCommand(varsDeleteCmd)
	varsListCmd.Flags().StringVarP(&configPath, "config", "c", ".", "Config whose secret variables are masked")
}
