package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Long = fmt.Sprintf(`deepresearch %s

HCL-configured CLI that answers research questions with a planner, a
researcher and a critic agent grounded in your own documents.

Get started:
  deepresearch verify -c <path>    Validate your configuration
  deepresearch ingest <dir>        Index documents for retrieval
  deepresearch research -q "..."   Research a question
  deepresearch runs list           Inspect past runs`, Version)
}
