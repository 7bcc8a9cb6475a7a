package streamers

import (
	"sync"

	"deepresearch/store"

	"github.com/hashicorp/go-hclog"
)

// StoringResearchHandler is a ResearchHandler decorator that persists the run,
// its findings and decisions to a RunStore, then delegates to an inner handler.
// Store failures are logged, never surfaced to the loop.
type StoringResearchHandler struct {
	inner  ResearchHandler
	runs   store.RunStore
	logger hclog.Logger

	mu    sync.Mutex
	runID string
}

// NewStoringResearchHandler wraps an existing ResearchHandler with run persistence.
func NewStoringResearchHandler(inner ResearchHandler, runs store.RunStore, logger hclog.Logger) *StoringResearchHandler {
	if inner == nil {
		inner = NopResearchHandler{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &StoringResearchHandler{inner: inner, runs: runs, logger: logger}
}

// RunID returns the id of the run being recorded, empty before ResearchStarted
func (h *StoringResearchHandler) RunID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runID
}

func (h *StoringResearchHandler) ResearchStarted(question string, maxIterations int) {
	id, err := h.runs.CreateRun(question, maxIterations)
	if err != nil {
		h.logger.Error("create run", "error", err)
	} else {
		h.mu.Lock()
		h.runID = id
		h.mu.Unlock()
		h.logger.Debug("run recorded", "run", id)
	}
	h.inner.ResearchStarted(question, maxIterations)
}

func (h *StoringResearchHandler) ResearchCompleted(outcome string, iterations int, report string) {
	if id := h.RunID(); id != "" {
		status := store.StatusComplete
		if outcome == store.StatusExhausted {
			status = store.StatusExhausted
		}
		if err := h.runs.FinishRun(id, status, iterations, report, ""); err != nil {
			h.logger.Error("finish run", "run", id, "error", err)
		}
	}
	h.inner.ResearchCompleted(outcome, iterations, report)
}

func (h *StoringResearchHandler) ResearchFailed(iteration int, err error) {
	if id := h.RunID(); id != "" {
		if serr := h.runs.FinishRun(id, store.StatusFailed, iteration, "", err.Error()); serr != nil {
			h.logger.Error("finish run", "run", id, "error", serr)
		}
	}
	h.inner.ResearchFailed(iteration, err)
}

func (h *StoringResearchHandler) IterationStarted(iteration int, maxIterations int) {
	h.inner.IterationStarted(iteration, maxIterations)
}

func (h *StoringResearchHandler) BudgetExhausted(iterations int) {
	h.inner.BudgetExhausted(iterations)
}

func (h *StoringResearchHandler) AgentStarted(role string, iteration int) {
	h.inner.AgentStarted(role, iteration)
}

func (h *StoringResearchHandler) AgentCompleted(role string, iteration int, response string) {
	h.inner.AgentCompleted(role, iteration, response)
}

func (h *StoringResearchHandler) FindingAdded(iteration int, finding string) {
	if id := h.RunID(); id != "" {
		if err := h.runs.AddFinding(id, iteration, finding); err != nil {
			h.logger.Error("store finding", "run", id, "iteration", iteration, "error", err)
		}
	}
	h.inner.FindingAdded(iteration, finding)
}

func (h *StoringResearchHandler) DecisionMade(iteration int, complete bool, response string) {
	if id := h.RunID(); id != "" {
		if err := h.runs.AddDecision(id, iteration, complete, response); err != nil {
			h.logger.Error("store decision", "run", id, "iteration", iteration, "error", err)
		}
	}
	h.inner.DecisionMade(iteration, complete, response)
}
