package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"deepresearch/config"

	"github.com/hashicorp/go-hclog"
)

// Port runs a role's agent on a message and returns its reply
type Port interface {
	Invoke(ctx context.Context, role Role, message string) (string, error)
}

// PortOptions tunes how RuntimePort waits for runs
type PortOptions struct {
	// PollInterval is the delay between run status checks (default 1s)
	PollInterval time.Duration
	// RunTimeout bounds a single run; zero waits indefinitely
	RunTimeout time.Duration
	Logger     hclog.Logger
}

// RuntimePort implements Port on top of a Runtime. Every Invoke uses a fresh
// thread, so calls share no conversation state.
type RuntimePort struct {
	runtime      Runtime
	bindings     Bindings
	pollInterval time.Duration
	runTimeout   time.Duration
	logger       hclog.Logger
}

// NewRuntimePort binds the three roles to agent identifiers on rt
func NewRuntimePort(rt Runtime, bindings Bindings, opts PortOptions) (*RuntimePort, error) {
	if rt == nil {
		return nil, config.Invalid("agent runtime is required")
	}
	if err := bindings.Validate(); err != nil {
		return nil, err
	}

	// Copy so later changes to the caller's map do not rebind roles
	bound := make(Bindings, len(Roles))
	for _, role := range Roles {
		bound[role] = bindings[role]
	}

	p := &RuntimePort{
		runtime:      rt,
		bindings:     bound,
		pollInterval: opts.PollInterval,
		runTimeout:   opts.RunTimeout,
		logger:       opts.Logger,
	}
	if p.pollInterval <= 0 {
		p.pollInterval = config.DefaultPollInterval
	}
	if p.logger == nil {
		p.logger = hclog.NewNullLogger()
	}
	return p, nil
}

// AgentID returns the identifier bound to role
func (p *RuntimePort) AgentID(role Role) string {
	return p.bindings[role]
}

func (p *RuntimePort) Invoke(ctx context.Context, role Role, message string) (string, error) {
	agentID, ok := p.bindings[role]
	if !ok {
		return "", config.Invalid("role '%s' is not bound to an agent", role)
	}
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	if p.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.runTimeout)
		defer cancel()
	}

	fail := func(runID string, status RunStatus, reason string, err error) error {
		return &ExecutionError{Role: role, AgentID: agentID, RunID: runID, Status: status, Reason: reason, Err: err}
	}

	threadID, err := p.runtime.CreateThread(ctx)
	if err != nil {
		return "", fail("", "", "creating thread", err)
	}
	if err := p.runtime.PostMessage(ctx, threadID, message); err != nil {
		return "", fail("", "", "posting message", err)
	}

	run, err := p.runtime.StartRun(ctx, threadID, agentID)
	if err != nil {
		return "", fail("", "", "starting run", err)
	}
	p.logger.Debug("run started", "role", role, "agent", agentID, "thread", threadID, "run", run.ID)

	for !run.Status.Terminal() {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && p.runTimeout > 0 {
				return "", fail(run.ID, run.Status, fmt.Sprintf("run did not finish within %s", p.runTimeout), ctx.Err())
			}
			return "", ctx.Err()
		case <-time.After(p.pollInterval):
		}

		current, err := p.runtime.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return "", fail(run.ID, run.Status, "checking run status", err)
		}
		run = current
		p.logger.Trace("run status", "role", role, "run", run.ID, "status", run.Status)
	}

	if run.Status != StatusCompleted {
		p.logger.Warn("run did not complete", "role", role, "run", run.ID, "status", run.Status, "error", run.LastError)
		return "", fail(run.ID, run.Status, run.LastError, nil)
	}

	text, err := p.runtime.LastMessageText(ctx, threadID)
	if err != nil {
		return "", fail(run.ID, run.Status, "reading response", err)
	}
	p.logger.Debug("run completed", "role", role, "run", run.ID, "chars", len(text))
	return text, nil
}
