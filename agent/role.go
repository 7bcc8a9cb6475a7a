package agent

import (
	"fmt"

	"deepresearch/config"
)

// Role is one of the three specialised agents in the research loop
type Role string

const (
	RolePlanner    Role = "planner"
	RoleResearcher Role = "researcher"
	RoleCritic     Role = "critic"
)

// Roles lists every role in loop order
var Roles = []Role{RolePlanner, RoleResearcher, RoleCritic}

func (r Role) String() string {
	return string(r)
}

// Bindings maps each role to the runtime's opaque agent identifier
type Bindings map[Role]string

// BindingsFromConfig reads the role bindings from the research block
func BindingsFromConfig(r *config.Research) Bindings {
	return Bindings{
		RolePlanner:    r.Planner,
		RoleResearcher: r.Researcher,
		RoleCritic:     r.Critic,
	}
}

// Validate reports every unbound role in one ConfigurationError
func (b Bindings) Validate() error {
	var missing []string
	for _, role := range Roles {
		if b[role] == "" {
			missing = append(missing, fmt.Sprintf("%s agent id", role))
		}
	}
	if len(missing) > 0 {
		return config.Missing(missing...)
	}
	return nil
}
