package prompts

import _ "embed"

//go:embed planner.md
var plannerInstructions string

//go:embed researcher.md
var researcherInstructions string

//go:embed critic.md
var criticInstructions string

// Instructions returns the built-in system instructions for a research role,
// or "" when the name is not a role
func Instructions(role string) string {
	switch role {
	case "planner":
		return plannerInstructions
	case "researcher":
		return researcherInstructions
	case "critic":
		return criticInstructions
	}
	return ""
}
