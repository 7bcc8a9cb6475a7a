package runtimes

import (
	"context"
	"fmt"
	"sync"

	"deepresearch/agent"
	"deepresearch/config"
	"deepresearch/llm"
	"deepresearch/store"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Retriever supplies grounding context for a query
type Retriever interface {
	Context(ctx context.Context, query string, topK int) (string, error)
}

// LocalAgent is an agent executed in-process on an LLM provider
type LocalAgent struct {
	ID           string
	Model        string
	Instructions string
	Provider     llm.Provider
	// Retrieval prepends index search results for the user's message
	Retrieval bool
	TopK      int
}

// LocalOptions configures the local runtime
type LocalOptions struct {
	// Threads persists conversations (default: in-memory)
	Threads store.ThreadStore
	// Retriever is required when any agent uses retrieval
	Retriever Retriever
	Logger    hclog.Logger
}

// Local implements agent.Runtime by running each run in its own goroutine
type Local struct {
	agents    map[string]*LocalAgent
	threads   store.ThreadStore
	retriever Retriever
	logger    hclog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	runs map[string]*agent.Run
}

var _ agent.Runtime = (*Local)(nil)

func NewLocal(agents []LocalAgent, opts LocalOptions) (*Local, error) {
	l := &Local{
		agents:    make(map[string]*LocalAgent, len(agents)),
		threads:   opts.Threads,
		retriever: opts.Retriever,
		logger:    opts.Logger,
		runs:      make(map[string]*agent.Run),
	}
	if l.threads == nil {
		l.threads = store.NewMemoryBundle().Threads
	}
	if l.logger == nil {
		l.logger = hclog.NewNullLogger()
	}

	for i := range agents {
		a := agents[i]
		if a.Provider == nil {
			return nil, fmt.Errorf("agent '%s' has no provider", a.ID)
		}
		if a.Retrieval && l.retriever == nil {
			return nil, fmt.Errorf("agent '%s' uses retrieval but no index is configured", a.ID)
		}
		if a.TopK <= 0 {
			a.TopK = config.DefaultRetrievalTopK
		}
		l.agents[a.ID] = &a
	}

	l.ctx, l.cancel = context.WithCancel(context.Background())
	return l, nil
}

func (l *Local) CreateThread(ctx context.Context) (string, error) {
	return l.threads.CreateThread()
}

func (l *Local) PostMessage(ctx context.Context, threadID, content string) error {
	return l.threads.AppendMessage(threadID, string(llm.RoleUser), content)
}

func (l *Local) StartRun(ctx context.Context, threadID, agentID string) (*agent.Run, error) {
	a, ok := l.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("agent '%s' not found", agentID)
	}

	run := &agent.Run{
		ID:       "run_" + uuid.New().String(),
		ThreadID: threadID,
		AgentID:  agentID,
		Status:   agent.StatusQueued,
	}

	l.mu.Lock()
	l.runs[run.ID] = run
	snapshot := *run
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.execute(a, run.ID, threadID)
	}()

	return &snapshot, nil
}

func (l *Local) GetRun(ctx context.Context, threadID, runID string) (*agent.Run, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	run, ok := l.runs[runID]
	if !ok || run.ThreadID != threadID {
		return nil, fmt.Errorf("run '%s' not found in thread '%s'", runID, threadID)
	}
	snapshot := *run
	return &snapshot, nil
}

func (l *Local) LastMessageText(ctx context.Context, threadID string) (string, error) {
	msgs, err := l.threads.GetMessages(threadID)
	if err != nil {
		return "", err
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == string(llm.RoleAssistant) {
			return msgs[i].Content, nil
		}
	}
	return "", fmt.Errorf("thread '%s' has no assistant message", threadID)
}

// Close cancels in-flight runs and waits for them to stop
func (l *Local) Close() error {
	l.cancel()
	l.wg.Wait()
	return nil
}

func (l *Local) setStatus(runID string, status agent.RunStatus, lastErr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if run, ok := l.runs[runID]; ok {
		run.Status = status
		run.LastError = lastErr
	}
}

func (l *Local) execute(a *LocalAgent, runID, threadID string) {
	l.setStatus(runID, agent.StatusInProgress, "")
	logger := l.logger.With("agent", a.ID, "run", runID)

	reply, err := l.respond(l.ctx, a, threadID)
	if err != nil {
		status := agent.StatusFailed
		if l.ctx.Err() != nil {
			status = agent.StatusCancelled
		}
		logger.Warn("run failed", "status", status, "error", err)
		l.setStatus(runID, status, err.Error())
		return
	}

	if err := l.threads.AppendMessage(threadID, string(llm.RoleAssistant), reply); err != nil {
		l.setStatus(runID, agent.StatusFailed, err.Error())
		return
	}
	logger.Debug("run completed")
	l.setStatus(runID, agent.StatusCompleted, "")
}

func (l *Local) respond(ctx context.Context, a *LocalAgent, threadID string) (string, error) {
	history, err := l.threads.GetMessages(threadID)
	if err != nil {
		return "", err
	}

	messages := []llm.Message{llm.NewTextMessage(llm.RoleSystem, a.Instructions)}

	if a.Retrieval {
		query := lastUserMessage(history)
		grounding, err := l.retriever.Context(ctx, query, a.TopK)
		if err != nil {
			return "", fmt.Errorf("retrieval: %w", err)
		}
		if grounding != "" {
			messages = append(messages, llm.NewTextMessage(llm.RoleSystem, grounding))
		}
	}

	for _, m := range history {
		messages = append(messages, llm.NewTextMessage(llm.Role(m.Role), m.Content))
	}

	resp, err := a.Provider.Chat(ctx, &llm.ChatRequest{Model: a.Model, Messages: messages})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func lastUserMessage(msgs []store.ThreadMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == string(llm.RoleUser) {
			return msgs[i].Content
		}
	}
	return ""
}
