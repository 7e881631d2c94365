package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dynsoa-run/dynsoa/dynsoa/policy"
)

// LoadPolicyFile reads a YAML-encoded policy.Policy from path: a plain
// os.ReadFile + yaml.Unmarshal, with errors returned rather than panicked --
// this is a CLI-boundary operation, so unlike the engine's internal
// degrade-silently conventions, a bad --policy file should stop the run.
func LoadPolicyFile(path string) (policy.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("reading policy file %q: %w", path, err)
	}

	var p policy.Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return policy.Policy{}, fmt.Errorf("parsing policy file %q: %w", path, err)
	}
	if len(p.Triggers) == 0 {
		return policy.Policy{}, fmt.Errorf("policy file %q defines no triggers", path)
	}
	return p, nil
}
