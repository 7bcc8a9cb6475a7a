package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a run or thread does not exist
var ErrNotFound = errors.New("not found")

// Run statuses
const (
	StatusRunning   = "running"
	StatusComplete  = "complete"
	StatusExhausted = "exhausted"
	StatusFailed    = "failed"
)

// Bundle holds all stores for tracking research runs
type Bundle struct {
	Runs    RunStore
	Threads ThreadStore
	closer  func() error
}

// Close cleans up the bundle resources
func (b *Bundle) Close() error {
	if b.closer != nil {
		return b.closer()
	}
	return nil
}

// RunStore tracks research runs with their findings and critic decisions
type RunStore interface {
	CreateRun(question string, maxIterations int) (id string, err error)
	FinishRun(id, status string, iterations int, report, errMsg string) error
	GetRun(id string) (*ResearchRun, error)
	ListRuns(limit, offset int) ([]ResearchRun, int, error)
	AddFinding(runID string, iteration int, content string) error
	GetFindings(runID string) ([]Finding, error)
	AddDecision(runID string, iteration int, complete bool, response string) error
	GetDecisions(runID string) ([]Decision, error)
}

// ResearchRun is one question taken through the research loop
type ResearchRun struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	Status        string     `json:"status"`
	MaxIterations int        `json:"maxIterations"`
	Iterations    int        `json:"iterations"`
	Report        string     `json:"report,omitempty"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
}

// Finding is the researcher output for one iteration
type Finding struct {
	RunID     string    `json:"runId"`
	Iteration int       `json:"iteration"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Decision is the critic verdict for one iteration, with its raw response
type Decision struct {
	RunID     string    `json:"runId"`
	Iteration int       `json:"iteration"`
	Complete  bool      `json:"complete"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"createdAt"`
}

// ThreadStore keeps the conversations of the local agent runtime
type ThreadStore interface {
	CreateThread() (id string, err error)
	AppendMessage(threadID, role, content string) error
	GetMessages(threadID string) ([]ThreadMessage, error)
}

// ThreadMessage represents a single message in a thread
type ThreadMessage struct {
	ID        int       `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func isFinished(status string) bool {
	return status == StatusComplete || status == StatusExhausted || status == StatusFailed
}

func generateID() string {
	return uuid.New().String()
}
