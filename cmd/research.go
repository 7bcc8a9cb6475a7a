package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"deepresearch/agent"
	"deepresearch/research"
	"deepresearch/store"
	"deepresearch/streamers"
	"deepresearch/streamers/cli"

	"github.com/spf13/cobra"
)

var (
	question  string
	rawReport bool
)

const reportWordWrap = 100

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research a question with the planner, researcher and critic agents",
	Long: `Research runs the planner, researcher and critic agents in a loop until the
critic accepts the findings or the iteration budget is spent, then prints the
final report. The question is read from stdin when --question is not given.`,
	Args: cobra.NoArgs,
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	q := strings.TrimSpace(question)
	if q == "" {
		q = promptQuestion()
	}
	if q == "" {
		fmt.Println("No question provided. Exiting.")
		return errQuietExit
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bundle, err := store.NewBundle(cfg.Storage)
	if err != nil {
		return err
	}
	defer bundle.Close()

	rt, cleanup, err := buildRuntime(ctx, cfg, bundle.Threads, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	port, err := agent.NewRuntimePort(rt, agent.BindingsFromConfig(cfg.Research), agent.PortOptions{
		PollInterval: cfg.Research.GetPollInterval(),
		RunTimeout:   cfg.Research.GetRunTimeout(),
		Logger:       logger.Named("port"),
	})
	if err != nil {
		return err
	}

	handler := streamers.NewStoringResearchHandler(cli.NewResearchHandler(), bundle.Runs, logger.Named("store"))
	controller, err := research.New(port, research.Options{
		MaxIterations: cfg.Research.MaxIterations,
		Handler:       handler,
		Logger:        logger.Named("research"),
	})
	if err != nil {
		return err
	}

	report, err := controller.Run(ctx, q)
	if err != nil {
		return fmt.Errorf("research failed: %w", err)
	}

	fmt.Printf("\n%s%s=== Final Report ===%s\n\n", cli.ColorBold, cli.ColorCyan, cli.ColorReset)
	if rawReport {
		fmt.Println(report.Text)
	} else {
		fmt.Println(cli.RenderReport(report.Text, reportWordWrap))
	}
	if id := handler.RunID(); id != "" {
		fmt.Printf("\n%sRun %s (%s after %d iteration(s))%s\n", cli.ColorGray, id, report.Outcome, report.Iterations, cli.ColorReset)
	}
	return nil
}

func promptQuestion() string {
	fmt.Print("Enter the question to research:\n> ")
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func init() {
	rootCmd.AddCommand(researchCmd)
	researchCmd.Flags().StringVarP(&configPath, "config", "c", ".", "Path to config file or directory")
	researchCmd.Flags().StringVarP(&question, "question", "q", "", "Question to research (prompted when omitted)")
	researchCmd.Flags().BoolVar(&rawReport, "raw", false, "Print the report without markdown rendering")
}
