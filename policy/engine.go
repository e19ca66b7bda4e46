// Package policy gates calls to external capabilities (currently the
// clinic lookup) behind an OPA policy, so deployments can tighten or
// loosen when the pipeline reaches out without a code change.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Engine is the OPA capability policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.capability_policy.decision"),
		rego.Module("capability_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// CapabilityInput is the evaluation input for one capability call.
type CapabilityInput struct {
	Capability  string `json:"capability"`
	Tier        string `json:"tier"`
	HasLocation bool   `json:"has_location"`
}

// Allow evaluates the policy for one capability call. The policy is
// expected to define a string decision; anything but "allow" denies.
func (e *Engine) Allow(ctx context.Context, input CapabilityInput) (bool, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	decision, _ := results[0].Expressions[0].Value.(string)
	return decision == "allow", nil
}

// DefaultPolicy permits clinic lookup only for sessions at MODERATE risk or
// above that actually carry geolocation context.
const DefaultPolicy = `
package capability_policy

default decision := "deny"

decision := "allow" if {
	input.capability == "clinic_lookup"
	input.has_location == true
	input.tier == "MODERATE"
}

decision := "allow" if {
	input.capability == "clinic_lookup"
	input.has_location == true
	input.tier == "HIGH"
}
`
