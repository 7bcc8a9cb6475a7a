package agent_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deepresearch/agent"
	"deepresearch/config"
)

// fakeRuntime walks each run through a scripted status sequence
type fakeRuntime struct {
	mu       sync.Mutex
	statuses []agent.RunStatus
	reply    string
	threads  int
	posted   map[string][]string
	started  []string // agent ids
	polls    int
	startErr error
}

func newFakeRuntime(reply string, statuses ...agent.RunStatus) *fakeRuntime {
	return &fakeRuntime{reply: reply, statuses: statuses, posted: map[string][]string{}}
}

func (f *fakeRuntime) CreateThread(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads++
	return fmt.Sprintf("thread_%d", f.threads), nil
}

func (f *fakeRuntime) PostMessage(ctx context.Context, threadID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted[threadID] = append(f.posted[threadID], content)
	return nil
}

func (f *fakeRuntime) StartRun(ctx context.Context, threadID, agentID string) (*agent.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, agentID)
	f.polls = 0
	return &agent.Run{ID: "run_1", ThreadID: threadID, AgentID: agentID, Status: agent.StatusQueued}, nil
}

func (f *fakeRuntime) GetRun(ctx context.Context, threadID, runID string) (*agent.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := agent.StatusInProgress
	if f.polls < len(f.statuses) {
		status = f.statuses[f.polls]
	}
	f.polls++
	run := &agent.Run{ID: runID, ThreadID: threadID, Status: status}
	if status == agent.StatusFailed {
		run.LastError = "rate limited"
	}
	return run, nil
}

func (f *fakeRuntime) LastMessageText(ctx context.Context, threadID string) (string, error) {
	return f.reply, nil
}

var _ = Describe("RuntimePort", func() {
	bindings := agent.Bindings{
		agent.RolePlanner:    "asst_planner",
		agent.RoleResearcher: "asst_researcher",
		agent.RoleCritic:     "asst_critic",
	}
	fast := agent.PortOptions{PollInterval: time.Millisecond}

	It("fails construction when a role is unbound", func() {
		_, err := agent.NewRuntimePort(newFakeRuntime(""), agent.Bindings{agent.RolePlanner: "p"}, fast)
		var cfgErr *config.ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Missing).To(ConsistOf("researcher agent id", "critic agent id"))
	})

	It("polls until the run completes and returns the reply", func() {
		rt := newFakeRuntime("the plan", agent.StatusInProgress, agent.StatusInProgress, agent.StatusCompleted)
		port, err := agent.NewRuntimePort(rt, bindings, fast)
		Expect(err).NotTo(HaveOccurred())

		reply, err := port.Invoke(context.Background(), agent.RolePlanner, "plan this")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("the plan"))
		Expect(rt.polls).To(Equal(3))
		Expect(rt.started).To(Equal([]string{"asst_planner"}))
		Expect(rt.posted["thread_1"]).To(Equal([]string{"plan this"}))
	})

	It("uses a fresh thread for every call", func() {
		rt := newFakeRuntime("ok", agent.StatusCompleted)
		port, err := agent.NewRuntimePort(rt, bindings, fast)
		Expect(err).NotTo(HaveOccurred())

		_, err = port.Invoke(context.Background(), agent.RoleCritic, "one")
		Expect(err).NotTo(HaveOccurred())
		_, err = port.Invoke(context.Background(), agent.RoleCritic, "two")
		Expect(err).NotTo(HaveOccurred())

		Expect(rt.threads).To(Equal(2))
		Expect(rt.posted["thread_1"]).To(Equal([]string{"one"}))
		Expect(rt.posted["thread_2"]).To(Equal([]string{"two"}))
	})

	DescribeTable("reports non-success terminal statuses",
		func(status agent.RunStatus) {
			rt := newFakeRuntime("ignored", agent.StatusInProgress, status)
			port, err := agent.NewRuntimePort(rt, bindings, fast)
			Expect(err).NotTo(HaveOccurred())

			_, err = port.Invoke(context.Background(), agent.RoleResearcher, "search")
			Expect(err).To(MatchError(agent.ErrAgentExecution))

			var execErr *agent.ExecutionError
			Expect(errors.As(err, &execErr)).To(BeTrue())
			Expect(execErr.Role).To(Equal(agent.RoleResearcher))
			Expect(execErr.AgentID).To(Equal("asst_researcher"))
			Expect(execErr.RunID).To(Equal("run_1"))
			Expect(execErr.Status).To(Equal(status))
		},
		Entry("failed", agent.StatusFailed),
		Entry("cancelled", agent.StatusCancelled),
		Entry("expired", agent.StatusExpired),
		Entry("incomplete", agent.StatusIncomplete),
		Entry("requires_action", agent.StatusRequiresAction),
	)

	It("includes the runtime's reason in the error", func() {
		rt := newFakeRuntime("", agent.StatusFailed)
		port, err := agent.NewRuntimePort(rt, bindings, fast)
		Expect(err).NotTo(HaveOccurred())

		_, err = port.Invoke(context.Background(), agent.RolePlanner, "x")
		Expect(err).To(MatchError(ContainSubstring("rate limited")))
		Expect(err).To(MatchError(ContainSubstring("planner agent run run_1 ended with status failed")))
	})

	It("wraps runtime call failures as execution errors", func() {
		rt := newFakeRuntime("")
		rt.startErr = errors.New("connection refused")
		port, err := agent.NewRuntimePort(rt, bindings, fast)
		Expect(err).NotTo(HaveOccurred())

		_, err = port.Invoke(context.Background(), agent.RolePlanner, "x")
		Expect(err).To(MatchError(agent.ErrAgentExecution))
		Expect(errors.Unwrap(err)).To(MatchError("connection refused"))
	})

	It("rejects empty messages", func() {
		port, err := agent.NewRuntimePort(newFakeRuntime(""), bindings, fast)
		Expect(err).NotTo(HaveOccurred())

		_, err = port.Invoke(context.Background(), agent.RolePlanner, "  \n")
		Expect(err).To(MatchError(agent.ErrEmptyMessage))
	})

	It("rejects unbound roles", func() {
		port, err := agent.NewRuntimePort(newFakeRuntime(""), bindings, fast)
		Expect(err).NotTo(HaveOccurred())

		_, err = port.Invoke(context.Background(), agent.Role("editor"), "x")
		var cfgErr *config.ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
	})

	It("stops polling when the context is cancelled", func() {
		rt := newFakeRuntime("") // stays in progress
		port, err := agent.NewRuntimePort(rt, bindings, agent.PortOptions{PollInterval: 5 * time.Millisecond})
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		_, err = port.Invoke(ctx, agent.RolePlanner, "x")
		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(err).NotTo(MatchError(agent.ErrAgentExecution))
	})

	It("enforces the run timeout as an execution failure", func() {
		rt := newFakeRuntime("")
		port, err := agent.NewRuntimePort(rt, bindings, agent.PortOptions{
			PollInterval: 5 * time.Millisecond,
			RunTimeout:   30 * time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = port.Invoke(context.Background(), agent.RolePlanner, "x")
		Expect(err).To(MatchError(agent.ErrAgentExecution))
		Expect(err).To(MatchError(ContainSubstring("did not finish within")))
	})

	It("does not follow changes to the caller's bindings", func() {
		rt := newFakeRuntime("ok", agent.StatusCompleted)
		b := agent.Bindings{agent.RolePlanner: "p1", agent.RoleResearcher: "r", agent.RoleCritic: "c"}
		port, err := agent.NewRuntimePort(rt, b, fast)
		Expect(err).NotTo(HaveOccurred())

		b[agent.RolePlanner] = "p2"
		_, err = port.Invoke(context.Background(), agent.RolePlanner, "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(rt.started).To(Equal([]string{"p1"}))
	})
})
