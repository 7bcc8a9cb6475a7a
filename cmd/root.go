package cmd

import (
	"errors"
	"fmt"
	"os"

	"deepresearch/config"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "deepresearch",
	Short:         "Multi-agent deep research CLI",
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Welcome to deepresearch! Use --help to see available commands.")
	},
}

// errQuietExit fails the command after it has already told the user why
var errQuietExit = errors.New("exit")

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errQuietExit) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error)")
}

// newLogger builds the process logger; diagnostics go to stderr so reports on stdout stay clean
func newLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "deepresearch",
		Level:  hclog.LevelFromString(logLevel),
		Output: os.Stderr,
	})
}

// exitOnError is for commands that hold nothing that needs releasing;
// commands with deferred cleanup return their errors through RunE instead
func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads .env files next to the config, then the config itself
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnvForConfig(configPath); err != nil {
		return nil, err
	}
	return config.LoadAndValidate(configPath)
}
