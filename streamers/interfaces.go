package streamers

// ResearchHandler defines the interface for handling research loop events.
// Different implementations can render to a terminal, persist, forward, etc.
type ResearchHandler interface {
	// Run lifecycle
	ResearchStarted(question string, maxIterations int)
	ResearchCompleted(outcome string, iterations int, report string)
	ResearchFailed(iteration int, err error)

	// Iteration lifecycle
	IterationStarted(iteration int, maxIterations int)
	BudgetExhausted(iterations int)

	// Agent execution events; role is planner, researcher or critic
	AgentStarted(role string, iteration int)
	AgentCompleted(role string, iteration int, response string)

	// Loop state changes
	FindingAdded(iteration int, finding string)
	DecisionMade(iteration int, complete bool, response string)
}

// NopResearchHandler ignores every event
type NopResearchHandler struct{}

func (NopResearchHandler) ResearchStarted(string, int)           {}
func (NopResearchHandler) ResearchCompleted(string, int, string) {}
func (NopResearchHandler) ResearchFailed(int, error)             {}
func (NopResearchHandler) IterationStarted(int, int)             {}
func (NopResearchHandler) BudgetExhausted(int)                   {}
func (NopResearchHandler) AgentStarted(string, int)              {}
func (NopResearchHandler) AgentCompleted(string, int, string)    {}
func (NopResearchHandler) FindingAdded(int, string)              {}
func (NopResearchHandler) DecisionMade(int, bool, string)        {}
