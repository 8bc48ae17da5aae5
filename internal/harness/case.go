package harness

import "github.com/roach88/hartcheck/internal/capability"

// Case is one entry of the catalog. Cases are immutable once registered.
type Case struct {
	// Name identifies the case in the report.
	Name string
	// Component names the verifier the case exercises.
	Component string

	// Applies decides applicability from the capability set. Nil means the
	// case always applies.
	Applies func(capability.Set) bool
	// SkipReason is printed when Applies rejects the case.
	SkipReason string

	// Setup prepares the hart before the observatory is armed.
	Setup func(env *Env) error
	// Stimulus provokes the behaviour under test and records values into obs.
	Stimulus func(env *Env, obs *Observation) error
	// Assert checks the observation. A nil Assert passes whenever Stimulus
	// returned no error.
	Assert func(env *Env, obs Observation) error
	// Cleanup restores the hart. It runs whenever the case started.
	Cleanup func(env *Env)
}

func (c *Case) applies(caps capability.Set) bool {
	return c.Applies == nil || c.Applies(caps)
}

func (c *Case) skipReason() string {
	if c.SkipReason == "" {
		return DefaultSkipReason
	}
	return c.SkipReason
}

// All combines applicability predicates.
func All(preds ...func(capability.Set) bool) func(capability.Set) bool {
	return func(caps capability.Set) bool {
		for _, p := range preds {
			if !p(caps) {
				return false
			}
		}
		return true
	}
}
