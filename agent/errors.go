package agent

import (
	"errors"
	"fmt"
)

// ErrAgentExecution matches every *ExecutionError via errors.Is
var ErrAgentExecution = errors.New("agent execution failed")

// ErrEmptyMessage is returned when Invoke is called without content
var ErrEmptyMessage = errors.New("agent message must not be empty")

// ExecutionError reports a run that did not complete, or a runtime call that failed
type ExecutionError struct {
	Role    Role
	AgentID string
	RunID   string
	Status  RunStatus
	Reason  string
	Err     error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s agent", e.Role)
	if e.RunID != "" {
		msg += fmt.Sprintf(" run %s", e.RunID)
	}
	if e.Status != "" {
		msg += fmt.Sprintf(" ended with status %s", e.Status)
	} else {
		msg += " failed"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrAgentExecution
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
