package research_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deepresearch/agent"
	"deepresearch/config"
	"deepresearch/research"
)

type portCall struct {
	role    agent.Role
	message string
}

// scriptedPort answers each role from a queue and records every call
type scriptedPort struct {
	responses map[agent.Role][]string
	calls     []portCall
	failRole  agent.Role
	failAt    int // 1-based call count for failRole
	seen      map[agent.Role]int
	onInvoke  func(role agent.Role)
}

func newScriptedPort() *scriptedPort {
	return &scriptedPort{responses: map[agent.Role][]string{}, seen: map[agent.Role]int{}}
}

func (p *scriptedPort) script(role agent.Role, responses ...string) *scriptedPort {
	p.responses[role] = append(p.responses[role], responses...)
	return p
}

func (p *scriptedPort) Invoke(_ context.Context, role agent.Role, message string) (string, error) {
	if p.onInvoke != nil {
		p.onInvoke(role)
	}
	p.calls = append(p.calls, portCall{role: role, message: message})
	p.seen[role]++
	n := p.seen[role]

	if role == p.failRole && n == p.failAt {
		return "", &agent.ExecutionError{Role: role, RunID: "run_x", Status: agent.StatusFailed}
	}

	queue := p.responses[role]
	if len(queue) == 0 {
		return fmt.Sprintf("%s response %d", role, n), nil
	}
	// Repeat the last scripted response once the queue runs out
	idx := n - 1
	if idx >= len(queue) {
		idx = len(queue) - 1
	}
	return queue[idx], nil
}

func (p *scriptedPort) count(role agent.Role) int {
	return p.seen[role]
}

func (p *scriptedPort) roles() []agent.Role {
	out := make([]agent.Role, len(p.calls))
	for i, c := range p.calls {
		out[i] = c.role
	}
	return out
}

// recordingHandler captures the sequence of loop events
type recordingHandler struct {
	events []string
}

func (h *recordingHandler) ResearchStarted(q string, max int) {
	h.events = append(h.events, fmt.Sprintf("started:%d", max))
}
func (h *recordingHandler) ResearchCompleted(outcome string, iterations int, _ string) {
	h.events = append(h.events, fmt.Sprintf("completed:%s:%d", outcome, iterations))
}
func (h *recordingHandler) ResearchFailed(iteration int, _ error) {
	h.events = append(h.events, fmt.Sprintf("failed:%d", iteration))
}
func (h *recordingHandler) IterationStarted(i, _ int) {
	h.events = append(h.events, fmt.Sprintf("iteration:%d", i))
}
func (h *recordingHandler) BudgetExhausted(i int) {
	h.events = append(h.events, fmt.Sprintf("exhausted:%d", i))
}
func (h *recordingHandler) AgentStarted(string, int)           {}
func (h *recordingHandler) AgentCompleted(string, int, string) {}
func (h *recordingHandler) FindingAdded(i int, _ string) {
	h.events = append(h.events, fmt.Sprintf("finding:%d", i))
}
func (h *recordingHandler) DecisionMade(i int, complete bool, _ string) {
	h.events = append(h.events, fmt.Sprintf("decision:%d:%t", i, complete))
}

const (
	continueText = "Needs more sources on topic Y."
	completeJSON = "```json\n{\"decision\":\"COMPLETE\",\"final_report\":\"The answer.\"}\n```"
)

var _ = Describe("Controller", func() {
	var (
		ctx  context.Context
		port *scriptedPort
	)

	BeforeEach(func() {
		ctx = context.Background()
		port = newScriptedPort()
	})

	newController := func(max int) *research.Controller {
		c, err := research.New(port, research.Options{MaxIterations: max})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	Describe("New", func() {
		It("requires a port", func() {
			_, err := research.New(nil, research.Options{})
			var cfgErr *config.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
		})

		It("rejects a negative iteration budget", func() {
			_, err := research.New(port, research.Options{MaxIterations: -1})
			var cfgErr *config.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
		})

		It("defaults the iteration budget to 3", func() {
			c := newController(0)
			Expect(c.MaxIterations()).To(Equal(3))
			Expect(c.State()).To(Equal(research.StateInit))
		})
	})

	It("rejects an empty question without calling any agent", func() {
		c := newController(2)
		_, err := c.Run(ctx, "   ")
		Expect(err).To(MatchError(research.ErrEmptyQuestion))
		Expect(port.calls).To(BeEmpty())
	})

	It("stops after one iteration when the critic completes", func() {
		port.script(agent.RoleCritic, completeJSON)
		c := newController(3)

		report, err := c.Run(ctx, "What is X?")
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Text).To(Equal("The answer."))
		Expect(report.Outcome).To(Equal(research.OutcomeComplete))
		Expect(report.Iterations).To(Equal(1))

		Expect(port.roles()).To(Equal([]agent.Role{agent.RolePlanner, agent.RoleResearcher, agent.RoleCritic}))
		Expect(c.State()).To(Equal(research.StateDone))
	})

	It("synthesizes a report with the planner when the budget is exhausted", func() {
		port.script(agent.RoleCritic, continueText)
		port.script(agent.RolePlanner, "plan 1", "plan 2", "Synthesized report")
		c := newController(2)

		report, err := c.Run(ctx, "What is X?")
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Text).To(Equal("Synthesized report"))
		Expect(report.Outcome).To(Equal(research.OutcomeExhausted))
		Expect(report.Iterations).To(Equal(2))

		Expect(port.count(agent.RolePlanner)).To(Equal(3))
		Expect(port.count(agent.RoleResearcher)).To(Equal(2))
		Expect(port.count(agent.RoleCritic)).To(Equal(2))
		Expect(port.roles()).To(Equal([]agent.Role{
			agent.RolePlanner, agent.RoleResearcher, agent.RoleCritic,
			agent.RolePlanner, agent.RoleResearcher, agent.RoleCritic,
			agent.RolePlanner,
		}))
		Expect(c.Iteration()).To(Equal(2))
		Expect(c.State()).To(Equal(research.StateDone))
	})

	It("accumulates one finding per continued iteration in order", func() {
		port.script(agent.RoleCritic, continueText, continueText, completeJSON)
		port.script(agent.RoleResearcher, "finding A", "finding B", "finding C")
		c := newController(5)

		var plannerIterations []int
		var findingsAtPlanning []int
		port.onInvoke = func(role agent.Role) {
			if role == agent.RolePlanner {
				plannerIterations = append(plannerIterations, c.Iteration())
				findingsAtPlanning = append(findingsAtPlanning, len(c.Findings()))
			}
		}

		report, err := c.Run(ctx, "What is X?")
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Findings).To(Equal([]string{"finding A", "finding B", "finding C"}))

		// After N continues the controller plans iteration N+1 holding N findings
		Expect(plannerIterations).To(Equal([]int{1, 2, 3}))
		Expect(findingsAtPlanning).To(Equal([]int{0, 1, 2}))
	})

	It("carries only the question in the first planner prompt", func() {
		port.script(agent.RoleCritic, continueText, completeJSON)
		port.script(agent.RoleResearcher, "<finding one>")
		c := newController(3)

		_, err := c.Run(ctx, "What is X?")
		Expect(err).NotTo(HaveOccurred())

		first := port.calls[0]
		Expect(first.role).To(Equal(agent.RolePlanner))
		Expect(first.message).To(ContainSubstring("What is X?"))
		Expect(first.message).NotTo(ContainSubstring("<finding one>"))

		second := port.calls[3]
		Expect(second.role).To(Equal(agent.RolePlanner))
		Expect(second.message).To(ContainSubstring("What is X?"))
		Expect(second.message).To(ContainSubstring(`["<finding one>"]`))
	})

	It("embeds the latest plan in the researcher prompt", func() {
		port.script(agent.RolePlanner, "PLAN-ALPHA")
		port.script(agent.RoleCritic, completeJSON)
		c := newController(1)

		_, err := c.Run(ctx, "q")
		Expect(err).NotTo(HaveOccurred())
		Expect(port.calls[1].role).To(Equal(agent.RoleResearcher))
		Expect(port.calls[1].message).To(ContainSubstring("PLAN-ALPHA"))
	})

	It("gives the critic the question and every finding", func() {
		port.script(agent.RoleResearcher, "one", "two")
		port.script(agent.RoleCritic, continueText, completeJSON)
		c := newController(3)

		_, err := c.Run(ctx, "the question")
		Expect(err).NotTo(HaveOccurred())

		critic := port.calls[5]
		Expect(critic.role).To(Equal(agent.RoleCritic))
		Expect(critic.message).To(ContainSubstring("the question"))
		Expect(critic.message).To(ContainSubstring(`["one","two"]`))
	})

	It("asks for prose with indented findings when synthesizing", func() {
		port.script(agent.RoleResearcher, "only finding")
		port.script(agent.RoleCritic, continueText)
		c := newController(1)

		_, err := c.Run(ctx, "the question")
		Expect(err).NotTo(HaveOccurred())

		synthesis := port.calls[len(port.calls)-1]
		Expect(synthesis.role).To(Equal(agent.RolePlanner))
		Expect(synthesis.message).To(ContainSubstring("not JSON"))
		Expect(synthesis.message).To(ContainSubstring("the question"))
		Expect(synthesis.message).To(ContainSubstring("[\n  \"only finding\"\n]"))
	})

	It("aborts before critiquing when the researcher fails", func() {
		port.script(agent.RoleCritic, continueText)
		port.failRole = agent.RoleResearcher
		port.failAt = 2
		c := newController(3)

		report, err := c.Run(ctx, "q")
		Expect(report).To(BeNil())
		Expect(err).To(MatchError(agent.ErrAgentExecution))

		var execErr *agent.ExecutionError
		Expect(errors.As(err, &execErr)).To(BeTrue())
		Expect(execErr.Role).To(Equal(agent.RoleResearcher))

		Expect(port.count(agent.RoleCritic)).To(Equal(1))
		Expect(c.Findings()).To(HaveLen(1))
		Expect(c.State()).To(Equal(research.StateFailed))
	})

	It("fails without a report when the synthesis call fails", func() {
		port.script(agent.RoleCritic, continueText)
		port.failRole = agent.RolePlanner
		port.failAt = 2
		c := newController(1)

		_, err := c.Run(ctx, "q")
		Expect(err).To(MatchError(agent.ErrAgentExecution))
	})

	It("emits events for every transition", func() {
		handler := &recordingHandler{}
		port.script(agent.RoleCritic, continueText)
		c, err := research.New(port, research.Options{MaxIterations: 2, Handler: handler})
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Run(ctx, "q")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Join(handler.events, " ")).To(Equal(
			"started:2 iteration:1 finding:1 decision:1:false iteration:2 finding:2 decision:2:false exhausted:2 completed:exhausted:2",
		))
	})

	It("resets findings between runs", func() {
		port.script(agent.RoleCritic, completeJSON)
		c := newController(3)

		_, err := c.Run(ctx, "first")
		Expect(err).NotTo(HaveOccurred())
		report, err := c.Run(ctx, "second")
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Findings).To(HaveLen(1))
	})
})
