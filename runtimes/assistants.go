package runtimes

import (
	"context"
	"fmt"
	"strings"

	"deepresearch/agent"

	"github.com/hashicorp/go-hclog"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Assistants implements agent.Runtime on hosted OpenAI assistants
// (threads, messages and runs)
type Assistants struct {
	client *openai.Client
	logger hclog.Logger
}

var _ agent.Runtime = (*Assistants)(nil)

// NewAssistants creates a hosted runtime; baseURL is optional
func NewAssistants(apiKey, baseURL string, logger hclog.Logger) *Assistants {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	client := openai.NewClient(opts...)
	return &Assistants{client: &client, logger: logger}
}

func (a *Assistants) CreateThread(ctx context.Context) (string, error) {
	thread, err := a.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

func (a *Assistants) PostMessage(ctx context.Context, threadID, content string) error {
	_, err := a.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(content),
		},
	})
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

func (a *Assistants) StartRun(ctx context.Context, threadID, agentID string) (*agent.Run, error) {
	run, err := a.client.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: agentID,
	})
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	return convertRun(run), nil
}

func (a *Assistants) GetRun(ctx context.Context, threadID, runID string) (*agent.Run, error) {
	run, err := a.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return convertRun(run), nil
}

func (a *Assistants) LastMessageText(ctx context.Context, threadID string) (string, error) {
	page, err := a.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		Order: openai.BetaThreadMessageListParamsOrderDesc,
		Limit: openai.Int(20),
	})
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}

	for _, msg := range page.Data {
		if string(msg.Role) != "assistant" {
			continue
		}
		var text strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				text.WriteString(block.Text.Value)
			}
		}
		return text.String(), nil
	}
	return "", fmt.Errorf("thread '%s' has no assistant message", threadID)
}

// CreateAssistant registers a hosted assistant and returns its id
func (a *Assistants) CreateAssistant(ctx context.Context, name, model, instructions string) (string, error) {
	asst, err := a.client.Beta.Assistants.New(ctx, openai.BetaAssistantNewParams{
		Model:        openai.ChatModel(model),
		Name:         openai.String(name),
		Instructions: openai.String(instructions),
	})
	if err != nil {
		return "", fmt.Errorf("create assistant %s: %w", name, err)
	}
	a.logger.Info("created assistant", "name", name, "id", asst.ID)
	return asst.ID, nil
}

func convertRun(run *openai.Run) *agent.Run {
	out := &agent.Run{
		ID:       run.ID,
		ThreadID: run.ThreadID,
		AgentID:  run.AssistantID,
		Status:   agent.RunStatus(run.Status),
	}
	if run.LastError.Message != "" {
		out.LastError = fmt.Sprintf("%s: %s", run.LastError.Code, run.LastError.Message)
	}
	return out
}
