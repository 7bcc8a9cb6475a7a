package config

import (
	"fmt"
	"strings"
)

type Variable struct {
	Name    string `hcl:"name,label"`
	Default string `hcl:"default,optional"`
	Secret  bool   `hcl:"secret,optional"`
}

func (v *Variable) Validate() error {
	if v.Secret && v.Default != "" {
		return fmt.Errorf("Invalid secret; Secret variable '%s' cannot have a default value set in config", v.Name)
	}
	return nil
}

// EnvName is the environment variable consulted for this variable's value
func (v *Variable) EnvName() string {
	return strings.ToUpper(v.Name)
}
