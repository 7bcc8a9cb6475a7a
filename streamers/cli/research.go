package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ResearchHandler implements streamers.ResearchHandler for terminal output
type ResearchHandler struct {
	mu      sync.Mutex
	out     io.Writer
	spinner *spinner
	animate bool
}

// NewResearchHandler creates a CLI research handler writing to stdout
func NewResearchHandler() *ResearchHandler {
	return NewResearchHandlerWriter(os.Stdout, true)
}

// NewResearchHandlerWriter creates a handler writing to out; animate toggles the spinner
func NewResearchHandlerWriter(out io.Writer, animate bool) *ResearchHandler {
	return &ResearchHandler{out: out, spinner: newSpinner(out), animate: animate}
}

func roleLabel(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

func (s *ResearchHandler) ResearchStarted(question string, maxIterations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\n%s%s=== Deep Research ===%s\n", ColorBold, ColorCyan, ColorReset)
	fmt.Fprintf(s.out, "%sQuestion: %s%s\n", ColorGray, question, ColorReset)
	fmt.Fprintf(s.out, "%sMax iterations: %d%s\n", ColorGray, maxIterations, ColorReset)
}

func (s *ResearchHandler) ResearchCompleted(outcome string, iterations int, report string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spinner.Stop()
	fmt.Fprintf(s.out, "\n%s%s=== Research %s after %d iteration(s) ===%s\n", ColorBold, ColorGreen, outcome, iterations, ColorReset)
}

func (s *ResearchHandler) ResearchFailed(iteration int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spinner.Stop()
	fmt.Fprintf(s.out, "\n%s%s[Research FAILED in iteration %d: %v]%s\n", ColorBold, ColorRed, iteration, err, ColorReset)
}

func (s *ResearchHandler) IterationStarted(iteration int, maxIterations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\n%s--- Iteration %d/%d ---%s\n\n", ColorBold, iteration, maxIterations, ColorReset)
}

func (s *ResearchHandler) BudgetExhausted(iterations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\n%sReached the iteration limit (%d); synthesizing a report from the findings.%s\n", ColorYellow, iterations, ColorReset)
}

func (s *ResearchHandler) AgentStarted(role string, iteration int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := fmt.Sprintf("[%s] %s", roleLabel(role), activity(role))
	if s.animate {
		s.spinner.Start(msg)
		return
	}
	fmt.Fprintln(s.out, msg)
}

func (s *ResearchHandler) AgentCompleted(role string, iteration int, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spinner.Stop()
	fmt.Fprintf(s.out, "%s✓%s [%s] done %s%s%s\n", ColorGreen, ColorReset, roleLabel(role), ColorGray, truncate(response, 80), ColorReset)
}

func (s *ResearchHandler) FindingAdded(iteration int, finding string) {}

func (s *ResearchHandler) DecisionMade(iteration int, complete bool, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if complete {
		fmt.Fprintf(s.out, "\n%s[Critic] Research judged complete.%s\n", ColorGreen, ColorReset)
		return
	}
	fmt.Fprintf(s.out, "\n%s[Critic] More research needed.%s\n", ColorMagenta, ColorReset)
}

func activity(role string) string {
	switch role {
	case "planner":
		return "planning..."
	case "researcher":
		return "searching..."
	case "critic":
		return "evaluating..."
	default:
		return "working..."
	}
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
