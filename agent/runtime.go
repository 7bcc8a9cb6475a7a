package agent

import "context"

// RunStatus mirrors the lifecycle states of a hosted assistant run
type RunStatus string

const (
	StatusQueued         RunStatus = "queued"
	StatusInProgress     RunStatus = "in_progress"
	StatusCancelling     RunStatus = "cancelling"
	StatusCompleted      RunStatus = "completed"
	StatusFailed         RunStatus = "failed"
	StatusCancelled      RunStatus = "cancelled"
	StatusExpired        RunStatus = "expired"
	StatusIncomplete     RunStatus = "incomplete"
	StatusRequiresAction RunStatus = "requires_action"
)

// Terminal reports whether a run in this status will not change again.
// requires_action is terminal here: nothing in the loop answers tool calls.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusQueued, StatusInProgress, StatusCancelling:
		return false
	default:
		return true
	}
}

// Run is a snapshot of one agent run
type Run struct {
	ID        string
	ThreadID  string
	AgentID   string
	Status    RunStatus
	LastError string
}

// Runtime is the thread/message/run API an agent backend exposes
type Runtime interface {
	// CreateThread opens a new, empty conversation
	CreateThread(ctx context.Context) (string, error)
	// PostMessage appends a user message to the thread
	PostMessage(ctx context.Context, threadID, content string) error
	// StartRun asks the agent to respond to the thread
	StartRun(ctx context.Context, threadID, agentID string) (*Run, error)
	// GetRun returns the current state of a run
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)
	// LastMessageText returns the text of the newest assistant message
	LastMessageText(ctx context.Context, threadID string) (string, error)
}
