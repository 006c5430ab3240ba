package checklist

import (
	"context"
	"sync"

	"github.com/careflow/careflow/internal/platform/apperr"
)

type pair struct {
	from string
	to   string
}

// Registry is the in-memory snapshot of the transition graph. It is
// read-only at request time; the legal graph is entirely defined by which
// (from,to) pairs have a rule — no stage set is hardcoded anywhere.
type Registry struct {
	mu    sync.RWMutex
	rules map[pair]*Rule
}

func NewRegistry() *Registry {
	return &Registry{rules: make(map[pair]*Rule)}
}

// NewRegistryFromRules builds a pre-populated registry, mainly for tests
// and seeding.
func NewRegistryFromRules(rules []*Rule) *Registry {
	r := NewRegistry()
	r.replace(rules)
	return r
}

// Load replaces the snapshot with the current contents of the repository.
func (r *Registry) Load(ctx context.Context, repo Repository) error {
	rules, err := repo.List(ctx)
	if err != nil {
		return err
	}
	r.replace(rules)
	return nil
}

func (r *Registry) replace(rules []*Rule) {
	next := make(map[pair]*Rule, len(rules))
	for _, rule := range rules {
		next[pair{rule.FromStage, rule.ToStage}] = rule
	}
	r.mu.Lock()
	r.rules = next
	r.mu.Unlock()
}

// Validate returns the rule governing fromStage -> toStage. Both stage
// identifiers must be non-empty; a missing rule means the transition is
// forbidden. Pure lookup, no side effects.
func (r *Registry) Validate(fromStage, toStage string) (*Rule, error) {
	if fromStage == "" || toStage == "" {
		return nil, apperr.New(apperr.KindValidation, "stage identifiers must be non-empty")
	}

	r.mu.RLock()
	rule, ok := r.rules[pair{fromStage, toStage}]
	r.mu.RUnlock()

	if !ok {
		return nil, apperr.New(apperr.KindInvalidTransition,
			"no transition registered from %q to %q", fromStage, toStage)
	}
	return rule, nil
}

// Len reports the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
