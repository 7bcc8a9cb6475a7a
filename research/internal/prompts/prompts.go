package prompts

import (
	_ "embed"
	"strings"
)

//go:embed planner_initial.md
var plannerInitialTemplate string

//go:embed planner_followup.md
var plannerFollowupTemplate string

//go:embed researcher.md
var researcherTemplate string

//go:embed critic.md
var criticTemplate string

//go:embed synthesis.md
var synthesisTemplate string

// PlannerInitial asks for a plan given only the question
func PlannerInitial(question string) string {
	return fill(plannerInitialTemplate, "{{QUESTION}}", question)
}

// PlannerFollowup asks for gap-filling queries given the findings so far
func PlannerFollowup(question, findingsJSON string) string {
	return fill(plannerFollowupTemplate, "{{QUESTION}}", question, "{{FINDINGS}}", findingsJSON)
}

// Researcher asks the researcher to execute a plan
func Researcher(plan string) string {
	return fill(researcherTemplate, "{{PLAN}}", plan)
}

// Critic asks whether the findings answer the question
func Critic(question, findingsJSON string) string {
	return fill(criticTemplate, "{{QUESTION}}", question, "{{FINDINGS}}", findingsJSON)
}

// Synthesis asks the planner for a prose report once the iteration budget is spent
func Synthesis(question, findingsJSON string) string {
	return fill(synthesisTemplate, "{{QUESTION}}", question, "{{FINDINGS}}", findingsJSON)
}

// fill substitutes placeholders in a single pass so values that happen to
// contain placeholder text are left alone
func fill(template string, pairs ...string) string {
	return strings.TrimRight(strings.NewReplacer(pairs...).Replace(template), "\n")
}
