package research

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"deepresearch/agent"
	"deepresearch/config"
	"deepresearch/research/internal/prompts"
	"deepresearch/streamers"

	"github.com/hashicorp/go-hclog"
)

// State is the position of the controller in the research loop
type State string

const (
	StateInit        State = "init"
	StatePlanning    State = "planning"
	StateResearching State = "researching"
	StateCritiquing  State = "critiquing"
	StateExhausted   State = "exhausted"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Outcome says which exit the loop took
type Outcome string

const (
	// OutcomeComplete means the critic accepted the findings
	OutcomeComplete Outcome = "complete"
	// OutcomeExhausted means the report was synthesized after the iteration budget ran out
	OutcomeExhausted Outcome = "exhausted"
)

// Report is the result of a research run
type Report struct {
	Text       string
	Outcome    Outcome
	Iterations int
	Findings   []string
}

// Options configures a Controller
type Options struct {
	// MaxIterations bounds the planner/researcher/critic cycles (0 selects the default of 3)
	MaxIterations int
	// Handler receives loop events (optional)
	Handler streamers.ResearchHandler
	Logger  hclog.Logger
}

// Controller drives the planner, researcher and critic agents until the critic
// accepts the findings or the iteration budget is spent. A Controller runs one
// question at a time.
type Controller struct {
	port          agent.Port
	maxIterations int
	handler       streamers.ResearchHandler
	logger        hclog.Logger

	runMu sync.Mutex

	mu        sync.Mutex
	state     State
	iteration int
	findings  Findings
}

// New creates a controller around port
func New(port agent.Port, opts Options) (*Controller, error) {
	if port == nil {
		return nil, config.Invalid("agent port is required")
	}
	if opts.MaxIterations < 0 {
		return nil, config.Invalid("max iterations must be a positive integer, got %d", opts.MaxIterations)
	}

	c := &Controller{
		port:          port,
		maxIterations: opts.MaxIterations,
		handler:       opts.Handler,
		logger:        opts.Logger,
		state:         StateInit,
	}
	if c.maxIterations == 0 {
		c.maxIterations = config.DefaultMaxIterations
	}
	if c.handler == nil {
		c.handler = streamers.NopResearchHandler{}
	}
	if c.logger == nil {
		c.logger = hclog.NewNullLogger()
	}
	return c, nil
}

// MaxIterations returns the iteration budget
func (c *Controller) MaxIterations() int {
	return c.maxIterations
}

// State returns the current loop state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Iteration returns the current 1-based iteration, 0 before the first one
func (c *Controller) Iteration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.iteration
}

// Findings returns the findings gathered so far in the current or last run
func (c *Controller) Findings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findings.Items()
}

// Run researches question. It returns a report on both successful exits and
// fails only on configuration problems, agent execution failures or ctx.
func (c *Controller) Run(ctx context.Context, question string) (*Report, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if !c.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer c.runMu.Unlock()

	c.mu.Lock()
	c.state = StateInit
	c.iteration = 0
	c.findings.reset()
	c.mu.Unlock()

	c.logger.Info("research started", "max_iterations", c.maxIterations)
	c.handler.ResearchStarted(question, c.maxIterations)

	report, err := c.loop(ctx, question)
	if err != nil {
		c.setState(StateFailed)
		c.logger.Error("research failed", "iteration", c.Iteration(), "error", err)
		c.handler.ResearchFailed(c.Iteration(), err)
		return nil, err
	}

	c.setState(StateDone)
	c.logger.Info("research finished", "outcome", report.Outcome, "iterations", report.Iterations)
	c.handler.ResearchCompleted(string(report.Outcome), report.Iterations, report.Text)
	return report, nil
}

func (c *Controller) loop(ctx context.Context, question string) (*Report, error) {
	for iteration := 1; iteration <= c.maxIterations; iteration++ {
		c.mu.Lock()
		c.iteration = iteration
		c.mu.Unlock()
		c.handler.IterationStarted(iteration, c.maxIterations)

		c.setState(StatePlanning)
		plan, err := c.invoke(ctx, agent.RolePlanner, iteration, c.plannerPrompt(question, iteration))
		if err != nil {
			return nil, err
		}

		c.setState(StateResearching)
		finding, err := c.invoke(ctx, agent.RoleResearcher, iteration, prompts.Researcher(plan))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.findings.Append(finding)
		findingsJSON := c.findings.JSON()
		c.mu.Unlock()
		c.handler.FindingAdded(iteration, finding)

		c.setState(StateCritiquing)
		critique, err := c.invoke(ctx, agent.RoleCritic, iteration, prompts.Critic(question, findingsJSON))
		if err != nil {
			return nil, err
		}

		decision := ExtractDecision(critique)
		c.logger.Debug("critic decision", "iteration", iteration, "decision", decision.Verdict)
		c.handler.DecisionMade(iteration, decision.IsComplete(), critique)
		if decision.IsComplete() {
			return &Report{
				Text:       decision.Report,
				Outcome:    OutcomeComplete,
				Iterations: iteration,
				Findings:   c.Findings(),
			}, nil
		}
	}

	c.setState(StateExhausted)
	c.logger.Info("iteration budget exhausted", "iterations", c.maxIterations)
	c.handler.BudgetExhausted(c.maxIterations)

	c.mu.Lock()
	findingsJSON := c.findings.IndentedJSON()
	c.mu.Unlock()

	text, err := c.invoke(ctx, agent.RolePlanner, c.maxIterations, prompts.Synthesis(question, findingsJSON))
	if err != nil {
		return nil, err
	}
	return &Report{
		Text:       text,
		Outcome:    OutcomeExhausted,
		Iterations: c.maxIterations,
		Findings:   c.Findings(),
	}, nil
}

func (c *Controller) plannerPrompt(question string, iteration int) string {
	if iteration == 1 {
		return prompts.PlannerInitial(question)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return prompts.PlannerFollowup(question, c.findings.JSON())
}

func (c *Controller) invoke(ctx context.Context, role agent.Role, iteration int, message string) (string, error) {
	c.handler.AgentStarted(role.String(), iteration)
	c.logger.Debug("invoking agent", "role", role, "iteration", iteration)

	response, err := c.port.Invoke(ctx, role, message)
	if err != nil {
		return "", fmt.Errorf("iteration %d: %w", iteration, err)
	}

	c.handler.AgentCompleted(role.String(), iteration, response)
	return response, nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}
