package store

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// NewMemoryBundle creates a Bundle backed entirely by in-memory stores
func NewMemoryBundle() *Bundle {
	return &Bundle{
		Runs:    &MemoryRunStore{runs: make(map[string]*memRun)},
		Threads: &MemoryThreadStore{threads: make(map[string][]ThreadMessage)},
	}
}

// =============================================================================
// MemoryRunStore
// =============================================================================

type memRun struct {
	run       ResearchRun
	findings  []Finding
	decisions []Decision
}

type MemoryRunStore struct {
	mu   sync.Mutex
	runs map[string]*memRun
}

func (s *MemoryRunStore) CreateRun(question string, maxIterations int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := generateID()
	s.runs[id] = &memRun{run: ResearchRun{
		ID:            id,
		Question:      question,
		Status:        StatusRunning,
		MaxIterations: maxIterations,
		StartedAt:     time.Now(),
	}}
	return id, nil
}

func (s *MemoryRunStore) FinishRun(id, status string, iterations int, report, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	r.run.Status = status
	r.run.Iterations = iterations
	r.run.Report = report
	r.run.Error = errMsg
	if isFinished(status) {
		now := time.Now()
		r.run.FinishedAt = &now
	}
	return nil
}

func (s *MemoryRunStore) GetRun(id string) (*ResearchRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	run := r.run
	return &run, nil
}

func (s *MemoryRunStore) ListRuns(limit, offset int) ([]ResearchRun, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]ResearchRun, 0, len(s.runs))
	for _, r := range s.runs {
		all = append(all, r.run)
	}
	// Newest first, like the SQL backends
	sort.Slice(all, func(i, j int) bool {
		return all[i].StartedAt.After(all[j].StartedAt)
	})

	total := len(all)
	if offset >= total {
		return []ResearchRun{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (s *MemoryRunStore) AddFinding(runID string, iteration int, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	r.findings = append(r.findings, Finding{
		RunID:     runID,
		Iteration: iteration,
		Content:   content,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *MemoryRunStore) GetFindings(runID string) ([]Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return append([]Finding(nil), r.findings...), nil
}

func (s *MemoryRunStore) AddDecision(runID string, iteration int, complete bool, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	r.decisions = append(r.decisions, Decision{
		RunID:     runID,
		Iteration: iteration,
		Complete:  complete,
		Response:  response,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *MemoryRunStore) GetDecisions(runID string) ([]Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return append([]Decision(nil), r.decisions...), nil
}

// =============================================================================
// MemoryThreadStore
// =============================================================================

type MemoryThreadStore struct {
	mu      sync.Mutex
	nextID  int
	threads map[string][]ThreadMessage
}

func (s *MemoryThreadStore) CreateThread() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := generateID()
	s.threads[id] = nil
	return id, nil
}

func (s *MemoryThreadStore) AppendMessage(threadID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.threads[threadID]
	if !ok {
		return fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	s.nextID++
	s.threads[threadID] = append(msgs, ThreadMessage{
		ID:        s.nextID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *MemoryThreadStore) GetMessages(threadID string) ([]ThreadMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	return append([]ThreadMessage(nil), msgs...), nil
}
