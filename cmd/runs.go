package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"deepresearch/config"
	"deepresearch/store"
	"deepresearch/streamers/cli"

	"github.com/spf13/cobra"
)

var (
	runsLimit  int
	runsOffset int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored research runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List research runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := openStore()
		if err != nil {
			return err
		}
		defer bundle.Close()

		runs, total, err := bundle.Runs.ListRuns(runsLimit, runsOffset)
		if err != nil {
			return err
		}
		if total == 0 {
			fmt.Println("No research runs recorded")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("%s  %-9s  %d/%d  %s  %s\n",
				r.ID, r.Status, r.Iterations, r.MaxIterations,
				r.StartedAt.Local().Format(time.DateTime), truncateLine(r.Question, 60))
		}
		if shown := runsOffset + len(runs); shown < total {
			fmt.Printf("%s... %d more (use --offset %d)%s\n", cli.ColorGray, total-shown, shown, cli.ColorReset)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a research run with its findings and critic decisions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := openStore()
		if err != nil {
			return err
		}
		defer bundle.Close()

		run, err := bundle.Runs.GetRun(args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("run '%s' not found", args[0])
		}
		if err != nil {
			return err
		}
		findings, err := bundle.Runs.GetFindings(run.ID)
		if err != nil {
			return err
		}
		decisions, err := bundle.Runs.GetDecisions(run.ID)
		if err != nil {
			return err
		}

		fmt.Printf("%sRun %s%s\n", cli.ColorBold, run.ID, cli.ColorReset)
		fmt.Printf("Question:   %s\n", run.Question)
		fmt.Printf("Status:     %s\n", run.Status)
		fmt.Printf("Iterations: %d/%d\n", run.Iterations, run.MaxIterations)
		fmt.Printf("Started:    %s\n", run.StartedAt.Local().Format(time.DateTime))
		if run.FinishedAt != nil {
			fmt.Printf("Finished:   %s\n", run.FinishedAt.Local().Format(time.DateTime))
		}
		if run.Error != "" {
			fmt.Printf("%sError:      %s%s\n", cli.ColorRed, run.Error, cli.ColorReset)
		}

		verdicts := make(map[int]bool, len(decisions))
		for _, d := range decisions {
			verdicts[d.Iteration] = d.Complete
		}
		for _, f := range findings {
			verdict := "no decision"
			if complete, ok := verdicts[f.Iteration]; ok {
				verdict = "continue"
				if complete {
					verdict = "complete"
				}
			}
			fmt.Printf("\n%s--- Iteration %d (critic: %s) ---%s\n%s\n", cli.ColorCyan, f.Iteration, verdict, cli.ColorReset, f.Content)
		}

		if run.Report != "" {
			fmt.Printf("\n%s%s=== Report ===%s\n\n", cli.ColorBold, cli.ColorCyan, cli.ColorReset)
			if rawReport {
				fmt.Println(run.Report)
			} else {
				fmt.Println(cli.RenderReport(run.Report, reportWordWrap))
			}
		}
		return nil
	},
}

// openStore opens the configured storage without requiring the research block
func openStore() (*store.Bundle, error) {
	if err := config.LoadDotEnvForConfig(configPath); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}
	return store.NewBundle(cfg.Storage)
}

func truncateLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "Path to config file or directory")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list")
	runsListCmd.Flags().IntVar(&runsOffset, "offset", 0, "Runs to skip")
	runsShowCmd.Flags().BoolVar(&rawReport, "raw", false, "Print the report without markdown rendering")
}
